package dto

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/beanledger/internal/domain"
	"github.com/iho/beanledger/internal/usecase"
)

// ParseDate parses a YYYY-MM-DD date. An empty string yields the zero time.
func ParseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}

	t, err := time.Parse(domain.DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: date %q must be YYYY-MM-DD", domain.ErrInvalidQuery, s)
	}

	return t, nil
}

// AccountRef names an account either by ID or by its full colon-separated
// name. The ID wins when both are set.
type AccountRef struct {
	AccountID string `json:"account_id,omitempty"`
	Account   string `json:"account,omitempty"`
}

// IsZero reports whether neither field is set.
func (r AccountRef) IsZero() bool {
	return r.AccountID == "" && r.Account == ""
}

// CreateAccountRequest represents a request to open an account.
type CreateAccountRequest struct {
	Name        string         `json:"name"`
	Currency    string         `json:"currency"`
	OpenDate    string         `json:"open_date,omitempty"`
	Description string         `json:"description,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// ToUseCaseInput converts to use case input.
func (r *CreateAccountRequest) ToUseCaseInput() (usecase.CreateAccountInput, error) {
	openDate, err := ParseDate(r.OpenDate)
	if err != nil {
		return usecase.CreateAccountInput{}, err
	}

	return usecase.CreateAccountInput{
		Name:        r.Name,
		Currency:    r.Currency,
		OpenDate:    openDate,
		Description: r.Description,
		Metadata:    r.Metadata,
	}, nil
}

// CloseAccountRequest represents a request to close an account.
type CloseAccountRequest struct {
	CloseDate string `json:"close_date"`
}

// PostingRequest is one leg of a CreateTransactionRequest. A nil amount asks
// the ledger to infer it.
type PostingRequest struct {
	AccountRef
	Amount   *decimal.Decimal `json:"amount,omitempty"`
	Currency string           `json:"currency,omitempty"`
	Metadata map[string]any   `json:"metadata,omitempty"`
}

// CreateTransactionRequest represents a request to record a transaction.
type CreateTransactionRequest struct {
	Date      string           `json:"date"`
	Flag      string           `json:"flag,omitempty"`
	Payee     string           `json:"payee,omitempty"`
	Narration string           `json:"narration,omitempty"`
	Tags      []string         `json:"tags,omitempty"`
	Links     []string         `json:"links,omitempty"`
	Metadata  map[string]any   `json:"metadata,omitempty"`
	Postings  []PostingRequest `json:"postings"`
}

// ToUseCaseInput converts to use case input. Account names are resolved
// through resolve.
func (r *CreateTransactionRequest) ToUseCaseInput(resolve func(AccountRef) (string, error)) (usecase.CreateTransactionInput, error) {
	if r.Date == "" {
		return usecase.CreateTransactionInput{}, fmt.Errorf("%w: date is required", domain.ErrInvalidPosting)
	}

	date, err := ParseDate(r.Date)
	if err != nil {
		return usecase.CreateTransactionInput{}, err
	}

	postings := make([]domain.PostingDraft, 0, len(r.Postings))
	for i, p := range r.Postings {
		if p.IsZero() {
			return usecase.CreateTransactionInput{}, fmt.Errorf("%w: posting %d names no account", domain.ErrInvalidPosting, i+1)
		}

		accountID, err := resolve(p.AccountRef)
		if err != nil {
			return usecase.CreateTransactionInput{}, err
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
		Flag:      domain.Flag(r.Flag),
		Payee:     r.Payee,
		Narration: r.Narration,
		Tags:      r.Tags,
		Links:     r.Links,
		Metadata:  r.Metadata,
		Postings:  postings,
	}, nil
}

// RecategorizePostingRequest moves a posting to another account.
type RecategorizePostingRequest struct {
	AccountRef
	Metadata map[string]any `json:"metadata,omitempty"`
}

// RecordAssertionRequest represents a balance assertion.
type RecordAssertionRequest struct {
	AccountRef
	Date     string          `json:"date"`
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
}

// ToUseCaseInput converts to use case input for an already resolved account.
func (r *RecordAssertionRequest) ToUseCaseInput(accountID string) (usecase.RecordAssertionInput, error) {
	if r.Date == "" {
		return usecase.RecordAssertionInput{}, fmt.Errorf("%w: date is required", domain.ErrInvalidQuery)
	}

	date, err := ParseDate(r.Date)
	if err != nil {
		return usecase.RecordAssertionInput{}, err
	}

	return usecase.RecordAssertionInput{
		AccountID: accountID,
		Date:      date,
		Amount:    r.Amount,
		Currency:  r.Currency,
	}, nil
}
