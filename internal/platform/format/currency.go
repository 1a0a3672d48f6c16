package format

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrInvalidCurrency は通貨文字列を解釈できない場合に返却されます。
var ErrInvalidCurrency = errors.New("format: invalid currency value")

// FormatBRL は金額を "R$ 1.234,56" 形式の文字列にします。
func FormatBRL(amount decimal.Decimal) string {
	negative := amount.Sign() < 0
	fixed := amount.Abs().StringFixed(2)

	intPart, frac, _ := strings.Cut(fixed, ".")
	var b strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}

	out := "R$ " + b.String() + "," + frac
	if negative {
		return "-" + out
	}
	return out
}

// ParseBRL は "R$ 1.234,56" や "1234,56" を decimal に変換します。
func ParseBRL(raw string) (decimal.Decimal, error) {
	s := strings.TrimSpace(raw)
	negative := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")
	s = strings.TrimSpace(strings.TrimPrefix(s, "R$"))
	if s == "" {
		return decimal.Zero, ErrInvalidCurrency
	}

	s = strings.ReplaceAll(s, ".", "")
	s = strings.Replace(s, ",", ".", 1)

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidCurrency
	}
	if negative {
		d = d.Neg()
	}
	return d, nil
}
