package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// AccountFilter selects accounts for listing. Zero values match everything.
type AccountFilter struct {
	Active     *bool
	Type       AccountType
	NamePrefix string
	Limit      int
	Offset     int
}

// SearchFilter selects transactions. Bounds are inclusive; zero values
// disable the corresponding criterion.
type SearchFilter struct {
	From      *time.Time
	To        *time.Time
	MinAmount *decimal.Decimal
	MaxAmount *decimal.Decimal
	Text      string
	Tag       string
	Limit     int
}

// Matches applies the filter to a single transaction. Stores that cannot
// push the predicate down evaluate it with this method.
func (f SearchFilter) Matches(txn *Transaction) bool {
	if f.From != nil && txn.Date.Before(TruncateDate(*f.From)) {
		return false
	}
	if f.To != nil && txn.Date.After(TruncateDate(*f.To)) {
		return false
	}
	if f.Tag != "" && !txn.HasTag(f.Tag) {
		return false
	}
	if f.Text != "" && !containsFold(txn.Narration, f.Text) && !containsFold(txn.Payee, f.Text) {
		return false
	}

	if f.MinAmount == nil && f.MaxAmount == nil {
		return true
	}

	for _, p := range txn.Postings {
		abs := p.Amount.Abs()
		if f.MinAmount != nil && abs.LessThan(*f.MinAmount) {
			continue
		}
		if f.MaxAmount != nil && abs.GreaterThan(*f.MaxAmount) {
			continue
		}

		return true
	}

	return false
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

// Matches reports whether the account satisfies the filter.
func (f AccountFilter) Matches(a *Account) bool {
	if f.Active != nil && a.IsActive() != *f.Active {
		return false
	}
	if f.Type != "" && a.Type != f.Type {
		return false
	}

	return strings.HasPrefix(a.Name, f.NamePrefix)
}
