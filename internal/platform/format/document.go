package format

// ValidCPF は CPF のチェックディジットを検証します。
func ValidCPF(raw string) bool {
	d := OnlyDigits(raw)
	if len(d) != 11 || allSame(d) {
		return false
	}

	first := cpfDigit(d[:9], 10)
	second := cpfDigit(d[:10], 11)
	return int(d[9]-'0') == first && int(d[10]-'0') == second
}

func cpfDigit(digits string, weight int) int {
	sum := 0
	for _, r := range digits {
		sum += int(r-'0') * weight
		weight--
	}
	rest := (sum * 10) % 11
	if rest == 10 {
		return 0
	}
	return rest
}

// ValidCNPJ は CNPJ のチェックディジットを検証します。
func ValidCNPJ(raw string) bool {
	d := OnlyDigits(raw)
	if len(d) != 14 || allSame(d) {
		return false
	}

	first := cnpjDigit(d[:12], []int{5, 4, 3, 2, 9, 8, 7, 6, 5, 4, 3, 2})
	second := cnpjDigit(d[:13], []int{6, 5, 4, 3, 2, 9, 8, 7, 6, 5, 4, 3, 2})
	return int(d[12]-'0') == first && int(d[13]-'0') == second
}

func cnpjDigit(digits string, weights []int) int {
	sum := 0
	for i, r := range digits {
		sum += int(r-'0') * weights[i]
	}
	rest := sum % 11
	if rest < 2 {
		return 0
	}
	return 11 - rest
}

func allSame(d string) bool {
	for i := 1; i < len(d); i++ {
		if d[i] != d[0] {
			return false
		}
	}
	return true
}
