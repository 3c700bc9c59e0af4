package generated

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const closeAccount = `-- name: CloseAccount :execrows
UPDATE accounts
SET close_date = $2, updated_at = $3
WHERE id = $1 AND close_date IS NULL
`

type CloseAccountParams struct {
	ID        string             `json:"id"`
	CloseDate pgtype.Date        `json:"close_date"`
	UpdatedAt pgtype.Timestamptz `json:"updated_at"`
}

func (q *Queries) CloseAccount(ctx context.Context, arg CloseAccountParams) (int64, error) {
	result, err := q.db.Exec(ctx, closeAccount, arg.ID, arg.CloseDate, arg.UpdatedAt)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

const countPostingsAfter = `-- name: CountPostingsAfter :one
SELECT COUNT(*) FROM postings p
JOIN transactions t ON t.id = p.transaction_id
WHERE p.account_id = $1 AND t.date > $2
`

type CountPostingsAfterParams struct {
	AccountID string      `json:"account_id"`
	After     pgtype.Date `json:"after"`
}

func (q *Queries) CountPostingsAfter(ctx context.Context, arg CountPostingsAfterParams) (int64, error) {
	row := q.db.QueryRow(ctx, countPostingsAfter, arg.AccountID, arg.After)
	var count int64
	err := row.Scan(&count)
	return count, err
}

const createAccount = `-- name: CreateAccount :exec
INSERT INTO accounts (id, name, account_type, currency, description, metadata, open_date, close_date, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
`

type CreateAccountParams struct {
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

func (q *Queries) CreateAccount(ctx context.Context, arg CreateAccountParams) error {
	_, err := q.db.Exec(ctx, createAccount,
		arg.ID,
		arg.Name,
		arg.AccountType,
		arg.Currency,
		arg.Description,
		arg.Metadata,
		arg.OpenDate,
		arg.CloseDate,
		arg.CreatedAt,
		arg.UpdatedAt,
	)
	return err
}

const getAccountByID = `-- name: GetAccountByID :one
SELECT id, name, account_type, currency, description, metadata, open_date, close_date, created_at, updated_at FROM accounts WHERE id = $1
`

func (q *Queries) GetAccountByID(ctx context.Context, id string) (Account, error) {
	row := q.db.QueryRow(ctx, getAccountByID, id)
	var i Account
	err := row.Scan(
		&i.ID,
		&i.Name,
		&i.AccountType,
		&i.Currency,
		&i.Description,
		&i.Metadata,
		&i.OpenDate,
		&i.CloseDate,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const getAccountByIDForUpdate = `-- name: GetAccountByIDForUpdate :one
SELECT id, name, account_type, currency, description, metadata, open_date, close_date, created_at, updated_at FROM accounts WHERE id = $1 FOR UPDATE
`

func (q *Queries) GetAccountByIDForUpdate(ctx context.Context, id string) (Account, error) {
	row := q.db.QueryRow(ctx, getAccountByIDForUpdate, id)
	var i Account
	err := row.Scan(
		&i.ID,
		&i.Name,
		&i.AccountType,
		&i.Currency,
		&i.Description,
		&i.Metadata,
		&i.OpenDate,
		&i.CloseDate,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const getActiveAccountByName = `-- name: GetActiveAccountByName :one
SELECT id, name, account_type, currency, description, metadata, open_date, close_date, created_at, updated_at FROM accounts WHERE name = $1 AND close_date IS NULL
`

func (q *Queries) GetActiveAccountByName(ctx context.Context, name string) (Account, error) {
	row := q.db.QueryRow(ctx, getActiveAccountByName, name)
	var i Account
	err := row.Scan(
		&i.ID,
		&i.Name,
		&i.AccountType,
		&i.Currency,
		&i.Description,
		&i.Metadata,
		&i.OpenDate,
		&i.CloseDate,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const listAccounts = `-- name: ListAccounts :many
SELECT id, name, account_type, currency, description, metadata, open_date, close_date, created_at, updated_at FROM accounts
WHERE ($1::text = '' OR account_type = $1::text)
  AND ($2::boolean IS NULL OR (close_date IS NULL) = $2::boolean)
  AND name LIKE $3::text || '%'
ORDER BY name, id
LIMIT NULLIF($4::int, 0) OFFSET $5::int
`

type ListAccountsParams struct {
	AccountType string      `json:"account_type"`
	Active      pgtype.Bool `json:"active"`
	NamePrefix  string      `json:"name_prefix"`
	Limit       int32       `json:"limit"`
	Offset      int32       `json:"offset"`
}

func (q *Queries) ListAccounts(ctx context.Context, arg ListAccountsParams) ([]Account, error) {
	rows, err := q.db.Query(ctx, listAccounts,
		arg.AccountType,
		arg.Active,
		arg.NamePrefix,
		arg.Limit,
		arg.Offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []Account{}
	for rows.Next() {
		var i Account
		if err := rows.Scan(
			&i.ID,
			&i.Name,
			&i.AccountType,
			&i.Currency,
			&i.Description,
			&i.Metadata,
			&i.OpenDate,
			&i.CloseDate,
			&i.CreatedAt,
			&i.UpdatedAt,
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

const lockAccountsForShare = `-- name: LockAccountsForShare :many
SELECT id, name, account_type, currency, description, metadata, open_date, close_date, created_at, updated_at FROM accounts
WHERE id = ANY($1::text[])
ORDER BY id
FOR SHARE
`

func (q *Queries) LockAccountsForShare(ctx context.Context, ids []string) ([]Account, error) {
	rows, err := q.db.Query(ctx, lockAccountsForShare, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []Account{}
	for rows.Next() {
		var i Account
		if err := rows.Scan(
			&i.ID,
			&i.Name,
			&i.AccountType,
			&i.Currency,
			&i.Description,
			&i.Metadata,
			&i.OpenDate,
			&i.CloseDate,
			&i.CreatedAt,
			&i.UpdatedAt,
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
