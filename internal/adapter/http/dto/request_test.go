package dto

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/beanledger/internal/domain"
)

func TestCreateAccountRequest_ToUseCaseInput(t *testing.T) {
	req := &CreateAccountRequest{
		Name:     "Assets:Bank:Checking",
		Currency: "USD",
		OpenDate: "2024-01-15",
	}

	got, err := req.ToUseCaseInput()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got.Name != req.Name || got.Currency != "USD" {
		t.Fatalf("ToUseCaseInput() = %+v", got)
	}
	if !got.OpenDate.Equal(time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected open date %v", got.OpenDate)
	}

	req.OpenDate = ""
	got, err = req.ToUseCaseInput()
	if err != nil || !got.OpenDate.IsZero() {
		t.Fatalf("expected zero open date to be passed through, got %v / %v", got.OpenDate, err)
	}

	req.OpenDate = "15/01/2024"
	if _, err := req.ToUseCaseInput(); !errors.Is(err, domain.ErrInvalidQuery) {
		t.Fatalf("expected ErrInvalidQuery, got %v", err)
	}
}

func TestCreateTransactionRequest_Decode(t *testing.T) {
	body := `{
		"date": "2024-03-05",
		"payee": "Whole Foods",
		"tags": ["food"],
		"postings": [
			{"account": "Expenses:Food", "amount": "52.50", "currency": "USD"},
			{"account_id": "acc-checking"}
		]
	}`

	var req CreateTransactionRequest
	if err := json.Unmarshal([]byte(body), &req); err != nil {
		t.Fatalf("decode: %v", err)
	}

	var resolved []AccountRef
	input, err := req.ToUseCaseInput(func(ref AccountRef) (string, error) {
		resolved = append(resolved, ref)
		if ref.AccountID != "" {
			return ref.AccountID, nil
		}
		return "acc-food", nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(resolved) != 2 || resolved[0].Account != "Expenses:Food" {
		t.Fatalf("unexpected resolutions %+v", resolved)
	}

	if len(input.Postings) != 2 {
		t.Fatalf("expected 2 postings, got %d", len(input.Postings))
	}
	if input.Postings[0].AccountID != "acc-food" || !input.Postings[0].Amount.Equal(decimal.RequireFromString("52.50")) {
		t.Fatalf("unexpected first posting %+v", input.Postings[0])
	}
	if input.Postings[1].AccountID != "acc-checking" || input.Postings[1].Amount != nil {
		t.Fatalf("expected second posting to be auto-balanced, got %+v", input.Postings[1])
	}
	if input.Payee != "Whole Foods" || len(input.Tags) != 1 {
		t.Fatalf("unexpected header %+v", input)
	}
}

func TestCreateTransactionRequest_Errors(t *testing.T) {
	resolver := func(ref AccountRef) (string, error) { return "acc", nil }

	tests := []struct {
		name     string
		request  CreateTransactionRequest
		expected error
	}{
		{
			name:     "missing date",
			request:  CreateTransactionRequest{Postings: []PostingRequest{{AccountRef: AccountRef{AccountID: "a"}}}},
			expected: domain.ErrInvalidPosting,
		},
		{
			name:     "malformed date",
			request:  CreateTransactionRequest{Date: "March 5"},
			expected: domain.ErrInvalidQuery,
		},
		{
			name:     "posting without account",
			request:  CreateTransactionRequest{Date: "2024-03-05", Postings: []PostingRequest{{}}},
			expected: domain.ErrInvalidPosting,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := tt.request.ToUseCaseInput(resolver); !errors.Is(err, tt.expected) {
				t.Fatalf("expected %v, got %v", tt.expected, err)
			}
		})
	}

	lookupErr := CreateTransactionRequest{
		Date:     "2024-03-05",
		Postings: []PostingRequest{{AccountRef: AccountRef{Account: "Expenses:Nope"}}},
	}
	_, err := lookupErr.ToUseCaseInput(func(AccountRef) (string, error) { return "", domain.ErrAccountNotFound })
	if !errors.Is(err, domain.ErrAccountNotFound) {
		t.Fatalf("expected resolver error to propagate, got %v", err)
	}
}

func TestRecordAssertionRequest_ToUseCaseInput(t *testing.T) {
	req := RecordAssertionRequest{Date: "2024-02-01", Amount: decimal.RequireFromString("1500.25"), Currency: "USD"}

	got, err := req.ToUseCaseInput("acc-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.AccountID != "acc-1" || !got.Amount.Equal(req.Amount) || got.Date.Day() != 1 {
		t.Fatalf("unexpected input %+v", got)
	}

	req.Date = ""
	if _, err := req.ToUseCaseInput("acc-1"); !errors.Is(err, domain.ErrInvalidQuery) {
		t.Fatalf("expected ErrInvalidQuery for missing date, got %v", err)
	}
}
