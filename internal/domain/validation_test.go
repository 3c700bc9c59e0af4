package domain

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestParseAccountName(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantType AccountType
		wantErr  bool
	}{
		{"bank account", "Assets:Bank:Savings", AccountTypeAssets, false},
		{"expense category", "Expenses:Food:Groceries", AccountTypeExpenses, false},
		{"credit card", "Liabilities:CreditCard", AccountTypeLiabilities, false},
		{"root only", "Equity", AccountTypeEquity, false},
		{"unknown root", "Savings:Main", "", true},
		{"lower-case root", "assets:Bank", "", true},
		{"empty", "", "", true},
		{"whitespace only", "   ", "", true},
		{"empty middle segment", "Assets::Checking", "", true},
		{"trailing separator", "Assets:Bank:", "", true},
		{"whitespace segment", "Assets: :Checking", "", true},
		{"padded segment", "Assets: Bank", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseAccountName(tt.input)

			if tt.wantErr {
				if !errors.Is(err, ErrInvalidAccountName) {
					t.Fatalf("expected ErrInvalidAccountName, got %v", err)
				}
				return
			}

			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.wantType {
				t.Errorf("expected type %s, got %s", tt.wantType, got)
			}
		})
	}
}

func TestValidateCurrency(t *testing.T) {
	for _, c := range []string{"USD", "eur", " JPY "} {
		if err := ValidateCurrency(c); err != nil {
			t.Errorf("expected %q to be valid, got %v", c, err)
		}
	}

	for _, c := range []string{"", "XXXX", "DOLLARS"} {
		if err := ValidateCurrency(c); !errors.Is(err, ErrInvalidCurrency) {
			t.Errorf("expected %q to be invalid, got %v", c, err)
		}
	}
}

func TestTolerance(t *testing.T) {
	if got := Tolerance("USD"); !got.Equal(decimal.RequireFromString("0.00000001")) {
		t.Errorf("USD tolerance = %s", got)
	}

	if got := Tolerance("JPY"); !got.Equal(decimal.RequireFromString("0.000001")) {
		t.Errorf("JPY tolerance = %s", got)
	}

	if !WithinTolerance(decimal.RequireFromString("-0.00000001"), "USD") {
		t.Error("expected residual at the tolerance to balance")
	}

	if WithinTolerance(decimal.RequireFromString("0.0000001"), "USD") {
		t.Error("expected residual above the tolerance to fail")
	}
}

func TestValidateMetadata(t *testing.T) {
	if err := ValidateMetadata(map[string]any{"vendor": "Whole Foods"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	big := make([]byte, MaxMetadataSize+1)
	if err := ValidateMetadata(map[string]any{"blob": string(big)}); !errors.Is(err, ErrMetadataTooLarge) {
		t.Fatalf("expected ErrMetadataTooLarge, got %v", err)
	}
}

func TestNormalizeLabels(t *testing.T) {
	got, err := NormalizeLabels([]string{"#trip", "trip", " food ", "", "^invoice-42"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []string{"trip", "food", "invoice-42"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("label %d: expected %q, got %q", i, want[i], got[i])
		}
	}

	if _, err := NormalizeLabels([]string{"two words"}); !errors.Is(err, ErrInvalidLabel) {
		t.Fatalf("expected ErrInvalidLabel, got %v", err)
	}
}

func TestValidatePagination(t *testing.T) {
	limit, offset, _ := ValidatePagination(0, -5)
	if limit != 100 || offset != 0 {
		t.Errorf("expected defaults 100/0, got %d/%d", limit, offset)
	}

	limit, _, _ = ValidatePagination(5000, 0)
	if limit != 1000 {
		t.Errorf("expected cap 1000, got %d", limit)
	}
}
