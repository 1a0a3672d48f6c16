package format

import "unicode"

// Strength はパスワード強度の判定結果です。
type Strength struct {
	Score int
	Label string
}

var strengthLabels = [...]string{"weak", "weak", "fair", "good", "strong"}

// PasswordStrength は長さと文字種から 0〜4 のスコアを算出します。
// 8 文字以上・大文字小文字の混在・数字・記号で 1 点ずつ、12 文字以上で加点し、上限は 4 です。
func PasswordStrength(password string) Strength {
	var upper, lower, digit, symbol bool
	length := 0
	for _, r := range password {
		length++
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		default:
			symbol = true
		}
	}

	score := 0
	if length >= 8 {
		score++
	}
	if upper && lower {
		score++
	}
	if digit {
		score++
	}
	if symbol {
		score++
	}
	if length >= 12 {
		score++
	}
	if score > 4 {
		score = 4
	}

	return Strength{Score: score, Label: strengthLabels[score]}
}
