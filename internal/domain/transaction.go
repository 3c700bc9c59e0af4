package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Flag marks the review state of a transaction.
type Flag string

const (
	FlagComplete   Flag = "*"
	FlagIncomplete Flag = "!"
)

// IsValid reports whether f is a known flag.
func (f Flag) IsValid() bool {
	return f == FlagComplete || f == FlagIncomplete
}

// Transaction is a balanced set of postings. Once persisted it is immutable
// except for the target account of individual postings.
type Transaction struct {
	Date      time.Time
	CreatedAt time.Time
	Metadata  map[string]any
	ID        string
	Flag      Flag
	Payee     string
	Narration string
	Postings  []*Posting
	Tags      []string
	Links     []string
}

// Posting is one signed, currency-tagged leg of a transaction.
type Posting struct {
	Metadata      map[string]any
	ID            string
	TransactionID string
	AccountID     string
	Currency      string
	Amount        decimal.Decimal
	Position      int
}

// PostingDraft is a posting before balancing. A nil Amount asks the ledger to
// infer it from the other postings of the same currency.
type PostingDraft struct {
	Amount    *decimal.Decimal
	Metadata  map[string]any
	AccountID string
	Currency  string
}

// HasTag reports whether the transaction carries tag.
func (t *Transaction) HasTag(tag string) bool {
	for _, tg := range t.Tags {
		if tg == tag {
			return true
		}
	}

	return false
}

// Posting returns the posting with the given ID, or nil.
func (t *Transaction) Posting(id string) *Posting {
	for _, p := range t.Postings {
		if p.ID == id {
			return p
		}
	}

	return nil
}

// Residuals sums posting amounts per currency.
func (t *Transaction) Residuals() Balance {
	sums := make(Balance)
	for _, p := range t.Postings {
		sums.Add(p.Currency, p.Amount)
	}

	return sums
}

// Clone returns a deep copy so callers cannot mutate stored state.
func (t *Transaction) Clone() *Transaction {
	c := *t
	c.Metadata = cloneMetadata(t.Metadata)
	c.Tags = append([]string(nil), t.Tags...)
	c.Links = append([]string(nil), t.Links...)
	c.Postings = make([]*Posting, len(t.Postings))
	for i, p := range t.Postings {
		pc := *p
		pc.Metadata = cloneMetadata(p.Metadata)
		c.Postings[i] = &pc
	}

	return &c
}

func cloneMetadata(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}

	c := make(map[string]any, len(m))
	for k, v := range m {
		c[k] = v
	}

	return c
}

// MergeMetadata returns base overlaid with extra.
func MergeMetadata(base, extra map[string]any) map[string]any {
	if len(extra) == 0 {
		return cloneMetadata(base)
	}

	out := cloneMetadata(base)
	if out == nil {
		out = make(map[string]any, len(extra))
	}
	for k, v := range extra {
		out[k] = v
	}

	return out
}
