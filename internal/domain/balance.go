package domain

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// Balance maps a currency code to an amount. No conversion ever happens
// between currencies.
type Balance map[string]decimal.Decimal

// Add accumulates amount into the currency's total.
func (b Balance) Add(currency string, amount decimal.Decimal) {
	b[currency] = b[currency].Add(amount)
}

// Get returns the amount for currency, treating absence as zero.
func (b Balance) Get(currency string) decimal.Decimal {
	if v, ok := b[currency]; ok {
		return v
	}

	return decimal.Zero
}

// Currencies returns the currency codes in sorted order.
func (b Balance) Currencies() []string {
	out := make([]string, 0, len(b))
	for c := range b {
		out = append(out, c)
	}
	sort.Strings(out)

	return out
}

// Clone returns a copy of the balance.
func (b Balance) Clone() Balance {
	c := make(Balance, len(b))
	for k, v := range b {
		c[k] = v
	}

	return c
}

// StatementLine is one posting of an account statement with the running
// balance of its currency after the posting is applied.
type StatementLine struct {
	Date           time.Time
	Posting        *Posting
	TransactionID  string
	Payee          string
	Narration      string
	RunningBalance decimal.Decimal
}

// PostingRecord is a posting joined with the header fields of its transaction.
type PostingRecord struct {
	Date      time.Time
	Posting   *Posting
	Payee     string
	Narration string
}

// SortPostingRecords orders records by (date, transaction id, posting id).
func SortPostingRecords(records []*PostingRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		a, b := records[i], records[j]
		if !a.Date.Equal(b.Date) {
			return a.Date.Before(b.Date)
		}
		if a.Posting.TransactionID != b.Posting.TransactionID {
			return a.Posting.TransactionID < b.Posting.TransactionID
		}

		return a.Posting.ID < b.Posting.ID
	})
}

// NetWorth summarizes assets and liabilities for one currency.
type NetWorth struct {
	Currency         string
	TotalAssets      decimal.Decimal
	TotalLiabilities decimal.Decimal
	NetWorth         decimal.Decimal
}
