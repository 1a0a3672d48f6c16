package nfe

import (
	"errors"
	"testing"
)

const (
	validKey       = "35250611222333000181550010000012341000000014"
	validKeyZeroDV = "35250611222333000181550010000012351000000020"
)

func TestParseAccessKey(t *testing.T) {
	t.Parallel()

	key, err := ParseAccessKey("3525 0611 2223 3300 0181 5500 1000 0012 3410 0000 0014")
	if err != nil {
		t.Fatalf("ParseAccessKey returned error: %v", err)
	}
	if key.Raw != validKey {
		t.Errorf("unexpected raw key %s", key.Raw)
	}
	if key.UF != "35" || key.YearMonth != "2506" || key.EmitterCNPJ != "11222333000181" {
		t.Errorf("unexpected header fields: %+v", key)
	}
	if key.Model != "55" || key.Series != "001" || key.Number != "000001234" {
		t.Errorf("unexpected document fields: %+v", key)
	}
	if key.EmissionType != "1" || key.Code != "00000001" || key.CheckDigit != "4" {
		t.Errorf("unexpected trailing fields: %+v", key)
	}
}

func TestParseAccessKey_Invalid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		raw  string
	}{
		{name: "empty", raw: ""},
		{name: "too short", raw: validKey[:43]},
		{name: "too long", raw: validKey + "1"},
		{name: "wrong check digit", raw: validKey[:43] + "5"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if _, err := ParseAccessKey(tt.raw); !errors.Is(err, ErrInvalidAccessKey) {
				t.Fatalf("expected ErrInvalidAccessKey, got %v", err)
			}
		})
	}
}

func TestCheckDigit(t *testing.T) {
	t.Parallel()

	if got := CheckDigit(validKey[:43]); got != 4 {
		t.Errorf("expected 4, got %d", got)
	}
	if got := CheckDigit(validKeyZeroDV[:43]); got != 0 {
		t.Errorf("expected 0 when remainder is below 2, got %d", got)
	}
	if !ValidAccessKey(validKeyZeroDV) {
		t.Error("expected key with zero check digit to be valid")
	}
}
