package format

import "strings"

// OnlyDigits は数字以外の文字を取り除きます。
func OnlyDigits(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// MaskCPF は 000.000.000-00 形式に整形します。
func MaskCPF(raw string) string {
	return applyMask(OnlyDigits(raw), "###.###.###-##")
}

// MaskCNPJ は 00.000.000/0000-00 形式に整形します。
func MaskCNPJ(raw string) string {
	return applyMask(OnlyDigits(raw), "##.###.###/####-##")
}

// MaskCEP は 00000-000 形式に整形します。
func MaskCEP(raw string) string {
	return applyMask(OnlyDigits(raw), "#####-###")
}

// MaskPhone は桁数に応じて (00) 0000-0000 または (00) 00000-0000 に整形します。
func MaskPhone(raw string) string {
	digits := OnlyDigits(raw)
	if len(digits) > 10 {
		return applyMask(digits, "(##) #####-####")
	}
	return applyMask(digits, "(##) ####-####")
}

// applyMask は入力済みの桁までマスクを適用し、余った桁は切り捨てます。
func applyMask(digits, mask string) string {
	if digits == "" {
		return ""
	}

	var b strings.Builder
	i := 0
	for _, m := range mask {
		if i >= len(digits) {
			break
		}
		if m == '#' {
			b.WriteByte(digits[i])
			i++
			continue
		}
		b.WriteRune(m)
	}
	return b.String()
}
