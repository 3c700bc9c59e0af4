package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/beanledger/internal/domain"
	"github.com/iho/beanledger/internal/usecase"
)

// TransactionDraft is the message format of the drafts topic. Postings name
// their account either by ID or by full name.
type TransactionDraft struct {
	Date      string         `json:"date"`
	Flag      string         `json:"flag,omitempty"`
	Payee     string         `json:"payee,omitempty"`
	Narration string         `json:"narration,omitempty"`
	Tags      []string       `json:"tags,omitempty"`
	Links     []string       `json:"links,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	Postings  []PostingDraft `json:"postings"`
}

// PostingDraft is one leg of a TransactionDraft. A missing amount is inferred.
type PostingDraft struct {
	AccountID string           `json:"account_id,omitempty"`
	Account   string           `json:"account,omitempty"`
	Amount    *decimal.Decimal `json:"amount,omitempty"`
	Currency  string           `json:"currency,omitempty"`
	Metadata  map[string]any   `json:"metadata,omitempty"`
}

// AccountLookup resolves account names.
type AccountLookup interface {
	GetAccountByName(ctx context.Context, name string) (*domain.Account, error)
}

func decodeDraft(data []byte) (*TransactionDraft, error) {
	var draft TransactionDraft
	if err := json.Unmarshal(data, &draft); err != nil {
		return nil, fmt.Errorf("%w: malformed draft: %w", domain.ErrInvalidPosting, err)
	}

	return &draft, nil
}

func (d *TransactionDraft) toInput(ctx context.Context, accounts AccountLookup) (usecase.CreateTransactionInput, error) {
	date, err := time.Parse(domain.DateLayout, d.Date)
	if err != nil {
		return usecase.CreateTransactionInput{}, fmt.Errorf("%w: date must be YYYY-MM-DD", domain.ErrInvalidPosting)
	}

	postings := make([]domain.PostingDraft, 0, len(d.Postings))
	for i, p := range d.Postings {
		accountID := p.AccountID
		if accountID == "" {
			if p.Account == "" {
				return usecase.CreateTransactionInput{}, fmt.Errorf("%w: posting %d names no account", domain.ErrInvalidPosting, i+1)
			}
			account, err := accounts.GetAccountByName(ctx, p.Account)
			if err != nil {
				return usecase.CreateTransactionInput{}, err
			}
			accountID = account.ID
		}

		postings = append(postings, domain.PostingDraft{
			AccountID: accountID,
			Amount:    p.Amount,
			Currency:  p.Currency,
			Metadata:  p.Metadata,
		})
	}

	return usecase.CreateTransactionInput{
		Date:      date,
		Flag:      domain.Flag(d.Flag),
		Payee:     d.Payee,
		Narration: d.Narration,
		Tags:      d.Tags,
		Links:     d.Links,
		Metadata:  d.Metadata,
		Postings:  postings,
	}, nil
}
