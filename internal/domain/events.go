package domain

import (
	"encoding/json"
	"time"
)

// Event types
const (
	EventTypeAccountCreated       = "account.created"
	EventTypeAccountClosed        = "account.closed"
	EventTypeTransactionCreated   = "transaction.created"
	EventTypePostingRecategorized = "posting.recategorized"
	EventTypeAssertionRecorded    = "assertion.recorded"
)

// Aggregate types
const (
	AggregateTypeAccount     = "account"
	AggregateTypeTransaction = "transaction"
	AggregateTypeAssertion   = "assertion"
)

// OutboxEvent represents an event to be published
type OutboxEvent struct {
	ID            string
	AggregateID   string
	AggregateType string
	EventType     string
	Payload       map[string]any
	CreatedAt     time.Time
	PublishedAt   *time.Time
	Published     bool
}

// AccountCreatedEvent payload
type AccountCreatedEvent struct {
	AccountID string `json:"account_id"`
	Name      string `json:"name"`
	Type      string `json:"type"`
	Currency  string `json:"currency"`
	OpenDate  string `json:"open_date"`
}

// AccountClosedEvent payload
type AccountClosedEvent struct {
	AccountID string `json:"account_id"`
	Name      string `json:"name"`
	CloseDate string `json:"close_date"`
}

// TransactionCreatedEvent payload
type TransactionCreatedEvent struct {
	TransactionID string            `json:"transaction_id"`
	Date          string            `json:"date"`
	Narration     string            `json:"narration"`
	Totals        map[string]string `json:"totals"`
	Postings      int               `json:"postings"`
}

// PostingRecategorizedEvent payload
type PostingRecategorizedEvent struct {
	TransactionID string `json:"transaction_id"`
	PostingID     string `json:"posting_id"`
	FromAccountID string `json:"from_account_id"`
	ToAccountID   string `json:"to_account_id"`
}

// AssertionRecordedEvent payload
type AssertionRecordedEvent struct {
	AssertionID string `json:"assertion_id"`
	AccountID   string `json:"account_id"`
	Date        string `json:"date"`
	Amount      string `json:"amount"`
	Currency    string `json:"currency"`
}

// DateLayout is the wire format of ledger dates.
const DateLayout = "2006-01-02"

// ToPayload converts an event payload struct into the generic outbox form.
func ToPayload(v any) map[string]any {
	if v == nil {
		return nil
	}

	data, err := json.Marshal(v)
	if err != nil {
		return map[string]any{"error": "failed to marshal payload"}
	}

	var result map[string]any
	if err := json.Unmarshal(data, &result); err != nil {
		return map[string]any{"error": "failed to unmarshal payload"}
	}

	return result
}
