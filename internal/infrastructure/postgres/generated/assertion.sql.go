package generated

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const createBalanceAssertion = `-- name: CreateBalanceAssertion :exec
INSERT INTO balance_assertions (id, account_id, date, amount, currency, created_at)
VALUES ($1, $2, $3, $4, $5, $6)
`

type CreateBalanceAssertionParams struct {
	ID        string             `json:"id"`
	AccountID string             `json:"account_id"`
	Date      pgtype.Date        `json:"date"`
	Amount    pgtype.Numeric     `json:"amount"`
	Currency  string             `json:"currency"`
	CreatedAt pgtype.Timestamptz `json:"created_at"`
}

func (q *Queries) CreateBalanceAssertion(ctx context.Context, arg CreateBalanceAssertionParams) error {
	_, err := q.db.Exec(ctx, createBalanceAssertion,
		arg.ID,
		arg.AccountID,
		arg.Date,
		arg.Amount,
		arg.Currency,
		arg.CreatedAt,
	)
	return err
}

const getBalanceAssertionByID = `-- name: GetBalanceAssertionByID :one
SELECT id, account_id, date, amount, currency, created_at FROM balance_assertions WHERE id = $1
`

func (q *Queries) GetBalanceAssertionByID(ctx context.Context, id string) (BalanceAssertion, error) {
	row := q.db.QueryRow(ctx, getBalanceAssertionByID, id)
	var i BalanceAssertion
	err := row.Scan(
		&i.ID,
		&i.AccountID,
		&i.Date,
		&i.Amount,
		&i.Currency,
		&i.CreatedAt,
	)
	return i, err
}

const listBalanceAssertionsByAccount = `-- name: ListBalanceAssertionsByAccount :many
SELECT id, account_id, date, amount, currency, created_at FROM balance_assertions
WHERE account_id = $1
ORDER BY date, id
`

func (q *Queries) ListBalanceAssertionsByAccount(ctx context.Context, accountID string) ([]BalanceAssertion, error) {
	rows, err := q.db.Query(ctx, listBalanceAssertionsByAccount, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []BalanceAssertion{}
	for rows.Next() {
		var i BalanceAssertion
		if err := rows.Scan(
			&i.ID,
			&i.AccountID,
			&i.Date,
			&i.Amount,
			&i.Currency,
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

const listBalanceAssertionsUpTo = `-- name: ListBalanceAssertionsUpTo :many
SELECT id, account_id, date, amount, currency, created_at FROM balance_assertions
WHERE date <= $1
ORDER BY date, id
`

func (q *Queries) ListBalanceAssertionsUpTo(ctx context.Context, asOf pgtype.Date) ([]BalanceAssertion, error) {
	rows, err := q.db.Query(ctx, listBalanceAssertionsUpTo, asOf)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []BalanceAssertion{}
	for rows.Next() {
		var i BalanceAssertion
		if err := rows.Scan(
			&i.ID,
			&i.AccountID,
			&i.Date,
			&i.Amount,
			&i.Currency,
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
