package domain

import (
	"strings"
	"time"
)

// AccountType is the root of the chart of accounts an account belongs to.
type AccountType string

const (
	AccountTypeAssets      AccountType = "Assets"
	AccountTypeLiabilities AccountType = "Liabilities"
	AccountTypeEquity      AccountType = "Equity"
	AccountTypeIncome      AccountType = "Income"
	AccountTypeExpenses    AccountType = "Expenses"
)

// AccountNameSeparator separates the segments of a hierarchical account name.
const AccountNameSeparator = ":"

var accountTypes = map[AccountType]bool{
	AccountTypeAssets:      true,
	AccountTypeLiabilities: true,
	AccountTypeEquity:      true,
	AccountTypeIncome:      true,
	AccountTypeExpenses:    true,
}

// AccountTypes returns the five canonical roots in chart order.
func AccountTypes() []AccountType {
	return []AccountType{
		AccountTypeAssets,
		AccountTypeLiabilities,
		AccountTypeEquity,
		AccountTypeIncome,
		AccountTypeExpenses,
	}
}

// IsValid reports whether t is one of the canonical roots.
func (t AccountType) IsValid() bool {
	return accountTypes[t]
}

// Account is a node of the chart of accounts. Accounts are soft-closed and
// never deleted, so postings always resolve.
type Account struct {
	OpenDate    time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
	CloseDate   *time.Time
	Metadata    map[string]any
	ID          string
	Name        string
	Type        AccountType
	Currency    string
	Description string
}

// IsActive reports whether the account has not been closed.
func (a *Account) IsActive() bool {
	return a.CloseDate == nil
}

// AcceptsPostingsAt reports whether a posting dated date may target the account.
func (a *Account) AcceptsPostingsAt(date time.Time) bool {
	d := TruncateDate(date)
	if d.Before(TruncateDate(a.OpenDate)) {
		return false
	}

	if a.CloseDate != nil && d.After(TruncateDate(*a.CloseDate)) {
		return false
	}

	return true
}

// ParentName returns the name of the parent account, or "" for a root-level account.
func (a *Account) ParentName() string {
	idx := strings.LastIndex(a.Name, AccountNameSeparator)
	if idx < 0 {
		return ""
	}

	return a.Name[:idx]
}

// ShortName returns the last segment of the account name.
func (a *Account) ShortName() string {
	idx := strings.LastIndex(a.Name, AccountNameSeparator)
	return a.Name[idx+1:]
}

// Close marks the account closed as of closeDate.
func (a *Account) Close(closeDate time.Time) error {
	if !a.IsActive() {
		return ErrAlreadyClosed
	}

	closeDate = TruncateDate(closeDate)
	if closeDate.Before(TruncateDate(a.OpenDate)) {
		return ErrInvalidCloseDate
	}

	a.CloseDate = &closeDate

	return nil
}

// TruncateDate drops the time-of-day component; the ledger works in whole days.
func TruncateDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Clone returns a copy that shares no mutable state with a.
func (a *Account) Clone() *Account {
	c := *a
	c.Metadata = cloneMetadata(a.Metadata)
	if a.CloseDate != nil {
		d := *a.CloseDate
		c.CloseDate = &d
	}

	return &c
}
