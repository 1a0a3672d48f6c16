package nfe

import (
	"strconv"

	"github.com/ogurasousui/stockly/internal/platform/format"
)

// AccessKeyLength はアクセスキーの桁数です。
const AccessKeyLength = 44

// AccessKey はアクセスキーを構成要素に分解したものです。
type AccessKey struct {
	Raw          string
	UF           string
	YearMonth    string
	EmitterCNPJ  string
	Model        string
	Series       string
	Number       string
	EmissionType string
	Code         string
	CheckDigit   string
}

// ParseAccessKey は 44 桁の数字と mod 11 の検証桁を確認して分解します。
// 空白や区切り文字は無視します。
func ParseAccessKey(raw string) (*AccessKey, error) {
	digits := format.OnlyDigits(raw)
	if len(digits) != AccessKeyLength {
		return nil, ErrInvalidAccessKey
	}
	if strconv.Itoa(CheckDigit(digits[:43])) != digits[43:] {
		return nil, ErrInvalidAccessKey
	}
	return &AccessKey{
		Raw:          digits,
		UF:           digits[0:2],
		YearMonth:    digits[2:6],
		EmitterCNPJ:  digits[6:20],
		Model:        digits[20:22],
		Series:       digits[22:25],
		Number:       digits[25:34],
		EmissionType: digits[34:35],
		Code:         digits[35:43],
		CheckDigit:   digits[43:],
	}, nil
}

// CheckDigit は右から 2〜9 の重みを繰り返した mod 11 の検証桁を返します。
// 剰余が 0 または 1 の場合は 0 です。
func CheckDigit(digits string) int {
	sum := 0
	weight := 2
	for i := len(digits) - 1; i >= 0; i-- {
		sum += int(digits[i]-'0') * weight
		weight++
		if weight > 9 {
			weight = 2
		}
	}
	rest := sum % 11
	if rest < 2 {
		return 0
	}
	return 11 - rest
}

// ValidAccessKey はアクセスキーとして正しいかを返します。
func ValidAccessKey(raw string) bool {
	_, err := ParseAccessKey(raw)
	return err == nil
}
