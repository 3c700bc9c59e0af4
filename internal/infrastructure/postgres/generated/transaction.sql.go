package generated

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const createPosting = `-- name: CreatePosting :exec
INSERT INTO postings (id, transaction_id, account_id, amount, currency, position, metadata)
VALUES ($1, $2, $3, $4, $5, $6, $7)
`

type CreatePostingParams struct {
	ID            string         `json:"id"`
	TransactionID string         `json:"transaction_id"`
	AccountID     string         `json:"account_id"`
	Amount        pgtype.Numeric `json:"amount"`
	Currency      string         `json:"currency"`
	Position      int32          `json:"position"`
	Metadata      []byte         `json:"metadata"`
}

func (q *Queries) CreatePosting(ctx context.Context, arg CreatePostingParams) error {
	_, err := q.db.Exec(ctx, createPosting,
		arg.ID,
		arg.TransactionID,
		arg.AccountID,
		arg.Amount,
		arg.Currency,
		arg.Position,
		arg.Metadata,
	)
	return err
}

const createTransaction = `-- name: CreateTransaction :exec
INSERT INTO transactions (id, date, flag, payee, narration, metadata, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
`

type CreateTransactionParams struct {
	ID        string             `json:"id"`
	Date      pgtype.Date        `json:"date"`
	Flag      string             `json:"flag"`
	Payee     string             `json:"payee"`
	Narration string             `json:"narration"`
	Metadata  []byte             `json:"metadata"`
	CreatedAt pgtype.Timestamptz `json:"created_at"`
}

func (q *Queries) CreateTransaction(ctx context.Context, arg CreateTransactionParams) error {
	_, err := q.db.Exec(ctx, createTransaction,
		arg.ID,
		arg.Date,
		arg.Flag,
		arg.Payee,
		arg.Narration,
		arg.Metadata,
		arg.CreatedAt,
	)
	return err
}

const createTransactionLink = `-- name: CreateTransactionLink :exec
INSERT INTO transaction_links (transaction_id, link) VALUES ($1, $2)
`

type CreateTransactionLinkParams struct {
	TransactionID string `json:"transaction_id"`
	Link          string `json:"link"`
}

func (q *Queries) CreateTransactionLink(ctx context.Context, arg CreateTransactionLinkParams) error {
	_, err := q.db.Exec(ctx, createTransactionLink, arg.TransactionID, arg.Link)
	return err
}

const createTransactionTag = `-- name: CreateTransactionTag :exec
INSERT INTO transaction_tags (transaction_id, tag) VALUES ($1, $2)
`

type CreateTransactionTagParams struct {
	TransactionID string `json:"transaction_id"`
	Tag           string `json:"tag"`
}

func (q *Queries) CreateTransactionTag(ctx context.Context, arg CreateTransactionTagParams) error {
	_, err := q.db.Exec(ctx, createTransactionTag, arg.TransactionID, arg.Tag)
	return err
}

const getTransactionByID = `-- name: GetTransactionByID :one
SELECT id, date, flag, payee, narration, metadata, created_at FROM transactions WHERE id = $1
`

func (q *Queries) GetTransactionByID(ctx context.Context, id string) (Transaction, error) {
	row := q.db.QueryRow(ctx, getTransactionByID, id)
	var i Transaction
	err := row.Scan(
		&i.ID,
		&i.Date,
		&i.Flag,
		&i.Payee,
		&i.Narration,
		&i.Metadata,
		&i.CreatedAt,
	)
	return i, err
}

const listAccountPostings = `-- name: ListAccountPostings :many
SELECT p.id, p.transaction_id, p.account_id, p.amount, p.currency, p.position, p.metadata, t.date, t.payee, t.narration
FROM postings p
JOIN transactions t ON t.id = p.transaction_id
WHERE p.account_id = $1 AND t.date >= $2 AND t.date <= $3
ORDER BY t.date, p.transaction_id, p.id
`

type ListAccountPostingsParams struct {
	AccountID string      `json:"account_id"`
	FromDate  pgtype.Date `json:"from_date"`
	ToDate    pgtype.Date `json:"to_date"`
}

type ListAccountPostingsRow struct {
	ID            string         `json:"id"`
	TransactionID string         `json:"transaction_id"`
	AccountID     string         `json:"account_id"`
	Amount        pgtype.Numeric `json:"amount"`
	Currency      string         `json:"currency"`
	Position      int32          `json:"position"`
	Metadata      []byte         `json:"metadata"`
	Date          pgtype.Date    `json:"date"`
	Payee         string         `json:"payee"`
	Narration     string         `json:"narration"`
}

func (q *Queries) ListAccountPostings(ctx context.Context, arg ListAccountPostingsParams) ([]ListAccountPostingsRow, error) {
	rows, err := q.db.Query(ctx, listAccountPostings, arg.AccountID, arg.FromDate, arg.ToDate)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []ListAccountPostingsRow{}
	for rows.Next() {
		var i ListAccountPostingsRow
		if err := rows.Scan(
			&i.ID,
			&i.TransactionID,
			&i.AccountID,
			&i.Amount,
			&i.Currency,
			&i.Position,
			&i.Metadata,
			&i.Date,
			&i.Payee,
			&i.Narration,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const listLinksByTransactionIDs = `-- name: ListLinksByTransactionIDs :many
SELECT transaction_id, link FROM transaction_links
WHERE transaction_id = ANY($1::text[])
ORDER BY transaction_id, link
`

func (q *Queries) ListLinksByTransactionIDs(ctx context.Context, ids []string) ([]TransactionLink, error) {
	rows, err := q.db.Query(ctx, listLinksByTransactionIDs, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []TransactionLink{}
	for rows.Next() {
		var i TransactionLink
		if err := rows.Scan(&i.TransactionID, &i.Link); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const listPostingsByTransactionIDs = `-- name: ListPostingsByTransactionIDs :many
SELECT id, transaction_id, account_id, amount, currency, position, metadata FROM postings
WHERE transaction_id = ANY($1::text[])
ORDER BY transaction_id, position
`

func (q *Queries) ListPostingsByTransactionIDs(ctx context.Context, ids []string) ([]Posting, error) {
	rows, err := q.db.Query(ctx, listPostingsByTransactionIDs, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []Posting{}
	for rows.Next() {
		var i Posting
		if err := rows.Scan(
			&i.ID,
			&i.TransactionID,
			&i.AccountID,
			&i.Amount,
			&i.Currency,
			&i.Position,
			&i.Metadata,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const listTagsByTransactionIDs = `-- name: ListTagsByTransactionIDs :many
SELECT transaction_id, tag FROM transaction_tags
WHERE transaction_id = ANY($1::text[])
ORDER BY transaction_id, tag
`

func (q *Queries) ListTagsByTransactionIDs(ctx context.Context, ids []string) ([]TransactionTag, error) {
	rows, err := q.db.Query(ctx, listTagsByTransactionIDs, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []TransactionTag{}
	for rows.Next() {
		var i TransactionTag
		if err := rows.Scan(&i.TransactionID, &i.Tag); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const listTransactionResiduals = `-- name: ListTransactionResiduals :many
SELECT transaction_id, currency, SUM(amount)::numeric AS total
FROM postings
GROUP BY transaction_id, currency
HAVING SUM(amount) <> 0
ORDER BY transaction_id, currency
`

type ListTransactionResidualsRow struct {
	TransactionID string         `json:"transaction_id"`
	Currency      string         `json:"currency"`
	Total         pgtype.Numeric `json:"total"`
}

func (q *Queries) ListTransactionResiduals(ctx context.Context) ([]ListTransactionResidualsRow, error) {
	rows, err := q.db.Query(ctx, listTransactionResiduals)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []ListTransactionResidualsRow{}
	for rows.Next() {
		var i ListTransactionResidualsRow
		if err := rows.Scan(&i.TransactionID, &i.Currency, &i.Total); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const listTransactionsByLink = `-- name: ListTransactionsByLink :many
SELECT t.id, t.date, t.flag, t.payee, t.narration, t.metadata, t.created_at
FROM transactions t
JOIN transaction_links l ON l.transaction_id = t.id
WHERE l.link = $1
ORDER BY t.date, t.id
`

func (q *Queries) ListTransactionsByLink(ctx context.Context, link string) ([]Transaction, error) {
	rows, err := q.db.Query(ctx, listTransactionsByLink, link)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []Transaction{}
	for rows.Next() {
		var i Transaction
		if err := rows.Scan(
			&i.ID,
			&i.Date,
			&i.Flag,
			&i.Payee,
			&i.Narration,
			&i.Metadata,
			&i.CreatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const searchTransactions = `-- name: SearchTransactions :many
SELECT t.id, t.date, t.flag, t.payee, t.narration, t.metadata, t.created_at
FROM transactions t
WHERE ($1::text = '' OR t.narration ILIKE '%' || $1::text || '%' OR t.payee ILIKE '%' || $1::text || '%')
  AND ($2::text = '' OR EXISTS (
        SELECT 1 FROM transaction_tags tt WHERE tt.transaction_id = t.id AND tt.tag = $2::text))
  AND ($3::date IS NULL OR t.date >= $3::date)
  AND ($4::date IS NULL OR t.date <= $4::date)
  AND (($5::numeric IS NULL AND $6::numeric IS NULL) OR EXISTS (
        SELECT 1 FROM postings p
        WHERE p.transaction_id = t.id
          AND ($5::numeric IS NULL OR abs(p.amount) >= $5::numeric)
          AND ($6::numeric IS NULL OR abs(p.amount) <= $6::numeric)))
ORDER BY t.date DESC, t.id
LIMIT NULLIF($7::int, 0)
`

type SearchTransactionsParams struct {
	Text      string         `json:"text"`
	Tag       string         `json:"tag"`
	FromDate  pgtype.Date    `json:"from_date"`
	ToDate    pgtype.Date    `json:"to_date"`
	MinAmount pgtype.Numeric `json:"min_amount"`
	MaxAmount pgtype.Numeric `json:"max_amount"`
	Limit     int32          `json:"limit"`
}

func (q *Queries) SearchTransactions(ctx context.Context, arg SearchTransactionsParams) ([]Transaction, error) {
	rows, err := q.db.Query(ctx, searchTransactions,
		arg.Text,
		arg.Tag,
		arg.FromDate,
		arg.ToDate,
		arg.MinAmount,
		arg.MaxAmount,
		arg.Limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []Transaction{}
	for rows.Next() {
		var i Transaction
		if err := rows.Scan(
			&i.ID,
			&i.Date,
			&i.Flag,
			&i.Payee,
			&i.Narration,
			&i.Metadata,
			&i.CreatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const sumPostingsByAccount = `-- name: SumPostingsByAccount :many
SELECT p.currency, SUM(p.amount)::numeric AS total
FROM postings p
JOIN transactions t ON t.id = p.transaction_id
WHERE p.account_id = $1 AND t.date <= $2
GROUP BY p.currency
ORDER BY p.currency
`

type SumPostingsByAccountParams struct {
	AccountID string      `json:"account_id"`
	AsOf      pgtype.Date `json:"as_of"`
}

type SumPostingsRow struct {
	Currency string         `json:"currency"`
	Total    pgtype.Numeric `json:"total"`
}

func (q *Queries) SumPostingsByAccount(ctx context.Context, arg SumPostingsByAccountParams) ([]SumPostingsRow, error) {
	rows, err := q.db.Query(ctx, sumPostingsByAccount, arg.AccountID, arg.AsOf)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []SumPostingsRow{}
	for rows.Next() {
		var i SumPostingsRow
		if err := rows.Scan(&i.Currency, &i.Total); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const sumPostingsByAccounts = `-- name: SumPostingsByAccounts :many
SELECT p.account_id, p.currency, SUM(p.amount)::numeric AS total
FROM postings p
JOIN transactions t ON t.id = p.transaction_id
WHERE p.account_id = ANY($1::text[]) AND t.date <= $2
GROUP BY p.account_id, p.currency
ORDER BY p.account_id, p.currency
`

type SumPostingsByAccountsParams struct {
	AccountIds []string    `json:"account_ids"`
	AsOf       pgtype.Date `json:"as_of"`
}

type SumPostingsByAccountsRow struct {
	AccountID string         `json:"account_id"`
	Currency  string         `json:"currency"`
	Total     pgtype.Numeric `json:"total"`
}

func (q *Queries) SumPostingsByAccounts(ctx context.Context, arg SumPostingsByAccountsParams) ([]SumPostingsByAccountsRow, error) {
	rows, err := q.db.Query(ctx, sumPostingsByAccounts, arg.AccountIds, arg.AsOf)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []SumPostingsByAccountsRow{}
	for rows.Next() {
		var i SumPostingsByAccountsRow
		if err := rows.Scan(&i.AccountID, &i.Currency, &i.Total); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const sumPostingsByAccountTypes = `-- name: SumPostingsByAccountTypes :many
SELECT a.account_type, p.currency, SUM(p.amount)::numeric AS total
FROM postings p
JOIN transactions t ON t.id = p.transaction_id
JOIN accounts a ON a.id = p.account_id
WHERE a.account_type = ANY($1::text[]) AND t.date <= $2
GROUP BY a.account_type, p.currency
ORDER BY a.account_type, p.currency
`

type SumPostingsByAccountTypesParams struct {
	AccountTypes []string    `json:"account_types"`
	AsOf         pgtype.Date `json:"as_of"`
}

type SumPostingsByAccountTypesRow struct {
	AccountType string         `json:"account_type"`
	Currency    string         `json:"currency"`
	Total       pgtype.Numeric `json:"total"`
}

func (q *Queries) SumPostingsByAccountTypes(ctx context.Context, arg SumPostingsByAccountTypesParams) ([]SumPostingsByAccountTypesRow, error) {
	rows, err := q.db.Query(ctx, sumPostingsByAccountTypes, arg.AccountTypes, arg.AsOf)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []SumPostingsByAccountTypesRow{}
	for rows.Next() {
		var i SumPostingsByAccountTypesRow
		if err := rows.Scan(&i.AccountType, &i.Currency, &i.Total); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const updatePostingAccount = `-- name: UpdatePostingAccount :execrows
UPDATE postings SET account_id = $3, metadata = $4
WHERE id = $1 AND transaction_id = $2
`

type UpdatePostingAccountParams struct {
	ID            string `json:"id"`
	TransactionID string `json:"transaction_id"`
	AccountID     string `json:"account_id"`
	Metadata      []byte `json:"metadata"`
}

func (q *Queries) UpdatePostingAccount(ctx context.Context, arg UpdatePostingAccountParams) (int64, error) {
	result, err := q.db.Exec(ctx, updatePostingAccount,
		arg.ID,
		arg.TransactionID,
		arg.AccountID,
		arg.Metadata,
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}
