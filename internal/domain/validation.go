package domain

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// Validation errors
var (
	ErrInvalidCurrency  = errors.New("invalid currency code")
	ErrMetadataTooLarge = errors.New("metadata size exceeds limit")
	ErrInvalidLabel     = errors.New("invalid tag or link")
)

// Validation constants
const (
	MaxAccountNameLength = 255
	MaxNarrationLength   = 4096
	MaxLabelLength       = 255
	MaxMetadataSize      = 10240 // 10KB

	// ToleranceMinorUnits is the balancing tolerance expressed in minor units
	// of the currency (cents for USD).
	ToleranceMinorUnits = "0.000001"
)

var minorTolerance = decimal.RequireFromString(ToleranceMinorUnits)

// ParseAccountName validates a colon-delimited account name and returns the
// account type encoded by its first segment.
func ParseAccountName(name string) (AccountType, error) {
	if strings.TrimSpace(name) == "" {
		return "", fmt.Errorf("%w: name cannot be empty", ErrInvalidAccountName)
	}

	if len(name) > MaxAccountNameLength {
		return "", fmt.Errorf("%w: name exceeds %d characters", ErrInvalidAccountName, MaxAccountNameLength)
	}

	segments := strings.Split(name, AccountNameSeparator)
	for i, segment := range segments {
		if strings.TrimSpace(segment) == "" {
			return "", fmt.Errorf("%w: segment %d of %q is empty", ErrInvalidAccountName, i+1, name)
		}
		if segment != strings.TrimSpace(segment) {
			return "", fmt.Errorf("%w: segment %q has surrounding whitespace", ErrInvalidAccountName, segment)
		}
	}

	root := AccountType(segments[0])
	if !root.IsValid() {
		return "", fmt.Errorf("%w: root %q must be one of %v", ErrInvalidAccountName, segments[0], AccountTypes())
	}

	return root, nil
}

// NormalizeCurrency upper-cases and trims a currency code.
func NormalizeCurrency(currency string) string {
	return strings.ToUpper(strings.TrimSpace(currency))
}

// ValidateCurrency validates an ISO 4217 currency code against the go-money table.
func ValidateCurrency(currency string) error {
	currency = NormalizeCurrency(currency)

	if currency == "" || money.GetCurrency(currency) == nil {
		return fmt.Errorf("%w: %q is not a valid ISO 4217 currency code", ErrInvalidCurrency, currency)
	}

	return nil
}

// Tolerance returns the largest residual still considered balanced for the
// currency: 1e-6 of one minor unit.
func Tolerance(currency string) decimal.Decimal {
	fraction := 2
	if cur := money.GetCurrency(NormalizeCurrency(currency)); cur != nil {
		fraction = cur.Fraction
	}

	return minorTolerance.Shift(int32(-fraction))
}

// WithinTolerance reports whether |amount| does not exceed the currency tolerance.
func WithinTolerance(amount decimal.Decimal, currency string) bool {
	return amount.Abs().LessThanOrEqual(Tolerance(currency))
}

// ValidateMetadata validates metadata size
func ValidateMetadata(metadata map[string]any) error {
	if metadata == nil {
		return nil
	}

	// Estimate size (rough approximation)
	size := 0
	for k, v := range metadata {
		size += len(k)
		size += len(fmt.Sprintf("%v", v))
	}

	if size > MaxMetadataSize {
		return fmt.Errorf("%w: metadata size %d bytes exceeds limit of %d bytes", ErrMetadataTooLarge, size, MaxMetadataSize)
	}

	return nil
}

// NormalizeLabels trims, drops empties and de-duplicates tags or links,
// preserving first-seen order.
func NormalizeLabels(labels []string) ([]string, error) {
	if len(labels) == 0 {
		return nil, nil
	}

	seen := make(map[string]bool, len(labels))
	out := make([]string, 0, len(labels))

	for _, l := range labels {
		l = strings.TrimPrefix(strings.TrimPrefix(strings.TrimSpace(l), "#"), "^")
		if l == "" || seen[l] {
			continue
		}
		if len(l) > MaxLabelLength || strings.ContainsAny(l, " \t\n") {
			return nil, fmt.Errorf("%w: %q", ErrInvalidLabel, l)
		}
		seen[l] = true
		out = append(out, l)
	}

	return out, nil
}

// ValidatePagination validates and limits pagination parameters
func ValidatePagination(limit, offset int) (int, int, error) {
	const MaxPageSize = 1000
	const DefaultPageSize = 100

	if limit <= 0 {
		limit = DefaultPageSize
	}

	if limit > MaxPageSize {
		limit = MaxPageSize
	}

	if offset < 0 {
		offset = 0
	}

	return limit, offset, nil
}
