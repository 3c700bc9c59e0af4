package domain

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	// Account errors
	ErrInvalidAccountName = errors.New("invalid account name")
	ErrDuplicateAccount   = errors.New("an active account with this name already exists")
	ErrAccountNotFound    = errors.New("account not found")
	ErrAccountInactive    = errors.New("account does not accept postings at this date")
	ErrAlreadyClosed      = errors.New("account is already closed")
	ErrInvalidCloseDate   = errors.New("close date is before the open date")
	ErrPostingsAfterClose = errors.New("account has postings dated after the close date")

	// Transaction errors
	ErrInvalidPosting              = errors.New("invalid posting")
	ErrMultipleAutoBalancePostings = errors.New("more than one posting without amount in a currency group")
	ErrBalanceMismatch             = errors.New("postings do not balance")
	ErrTransactionNotFound         = errors.New("transaction not found")
	ErrPostingNotFound             = errors.New("posting not found")

	// Assertion errors
	ErrAssertionMismatch = errors.New("balance assertion failed")
	ErrAssertionNotFound = errors.New("balance assertion not found")

	// ErrInvalidQuery marks malformed read requests such as inverted ranges.
	ErrInvalidQuery = errors.New("invalid query")

	// ErrStorage marks failures of the underlying store, as opposed to validation failures.
	ErrStorage = errors.New("storage failure")
)

// BalanceMismatchError reports the non-zero residual of a currency group.
type BalanceMismatchError struct {
	Delta    decimal.Decimal
	Currency string
}

func (e *BalanceMismatchError) Error() string {
	return fmt.Sprintf("%s: off by %s %s", ErrBalanceMismatch, e.Delta.String(), e.Currency)
}

func (e *BalanceMismatchError) Unwrap() error {
	return ErrBalanceMismatch
}

// AssertionMismatchError reports the signed difference between the computed
// and the asserted balance (Actual - Expected).
type AssertionMismatchError struct {
	Expected decimal.Decimal
	Actual   decimal.Decimal
	Delta    decimal.Decimal
	Currency string
}

func (e *AssertionMismatchError) Error() string {
	return fmt.Sprintf("%s: expected %s %s, got %s %s (delta %s)",
		ErrAssertionMismatch,
		e.Expected.String(), e.Currency,
		e.Actual.String(), e.Currency,
		e.Delta.String(),
	)
}

func (e *AssertionMismatchError) Unwrap() error {
	return ErrAssertionMismatch
}

var domainErrors = []error{
	ErrInvalidAccountName,
	ErrDuplicateAccount,
	ErrAccountNotFound,
	ErrAccountInactive,
	ErrAlreadyClosed,
	ErrInvalidCloseDate,
	ErrPostingsAfterClose,
	ErrInvalidPosting,
	ErrMultipleAutoBalancePostings,
	ErrBalanceMismatch,
	ErrTransactionNotFound,
	ErrPostingNotFound,
	ErrAssertionMismatch,
	ErrAssertionNotFound,
	ErrInvalidQuery,
	ErrInvalidCurrency,
	ErrInvalidLabel,
	ErrMetadataTooLarge,
	ErrStorage,
}

// IsDomainError reports whether err belongs to the ledger's error taxonomy.
func IsDomainError(err error) bool {
	for _, target := range domainErrors {
		if errors.Is(err, target) {
			return true
		}
	}

	return false
}

// StorageError wraps an infrastructure error so callers can tell it apart
// from validation errors with errors.Is(err, ErrStorage). Errors that are
// already part of the taxonomy pass through unchanged.
func StorageError(op string, err error) error {
	if err == nil || IsDomainError(err) {
		return err
	}

	return fmt.Errorf("%w: %s: %w", ErrStorage, op, err)
}
