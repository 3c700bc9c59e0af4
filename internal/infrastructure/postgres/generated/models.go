package generated

import (
	"github.com/jackc/pgx/v5/pgtype"
)

type Account struct {
	ID          string             `json:"id"`
	Name        string             `json:"name"`
	AccountType string             `json:"account_type"`
	Currency    string             `json:"currency"`
	Description string             `json:"description"`
	Metadata    []byte             `json:"metadata"`
	OpenDate    pgtype.Date        `json:"open_date"`
	CloseDate   pgtype.Date        `json:"close_date"`
	CreatedAt   pgtype.Timestamptz `json:"created_at"`
	UpdatedAt   pgtype.Timestamptz `json:"updated_at"`
}

type BalanceAssertion struct {
	ID        string             `json:"id"`
	AccountID string             `json:"account_id"`
	Date      pgtype.Date        `json:"date"`
	Amount    pgtype.Numeric     `json:"amount"`
	Currency  string             `json:"currency"`
	CreatedAt pgtype.Timestamptz `json:"created_at"`
}

type OutboxEvent struct {
	ID            string             `json:"id"`
	AggregateID   string             `json:"aggregate_id"`
	AggregateType string             `json:"aggregate_type"`
	EventType     string             `json:"event_type"`
	Payload       []byte             `json:"payload"`
	CreatedAt     pgtype.Timestamptz `json:"created_at"`
	PublishedAt   pgtype.Timestamptz `json:"published_at"`
	Published     bool               `json:"published"`
}

type Posting struct {
	ID            string         `json:"id"`
	TransactionID string         `json:"transaction_id"`
	AccountID     string         `json:"account_id"`
	Amount        pgtype.Numeric `json:"amount"`
	Currency      string         `json:"currency"`
	Position      int32          `json:"position"`
	Metadata      []byte         `json:"metadata"`
}

type Transaction struct {
	ID        string             `json:"id"`
	Date      pgtype.Date        `json:"date"`
	Flag      string             `json:"flag"`
	Payee     string             `json:"payee"`
	Narration string             `json:"narration"`
	Metadata  []byte             `json:"metadata"`
	CreatedAt pgtype.Timestamptz `json:"created_at"`
}

type TransactionLink struct {
	TransactionID string `json:"transaction_id"`
	Link          string `json:"link"`
}

type TransactionTag struct {
	TransactionID string `json:"transaction_id"`
	Tag           string `json:"tag"`
}
