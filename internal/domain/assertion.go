package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// BalanceAssertion is an externally stated balance used for reconciliation.
// It is advisory: a failing assertion never blocks other operations.
type BalanceAssertion struct {
	Date      time.Time
	CreatedAt time.Time
	ID        string
	AccountID string
	Currency  string
	Amount    decimal.Decimal
}

// AssertionResult is the outcome of verifying one assertion.
type AssertionResult struct {
	Assertion *BalanceAssertion
	Actual    decimal.Decimal
	Delta     decimal.Decimal
	Passed    bool
}
