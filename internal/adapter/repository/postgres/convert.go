package postgres

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"github.com/iho/beanledger/internal/domain"
	"github.com/iho/beanledger/internal/infrastructure/postgres/generated"
	"github.com/iho/beanledger/internal/usecase"
)

// PostgreSQL error codes mapped onto domain errors.
const (
	pgErrUniqueViolation     = "23505"
	pgErrForeignKeyViolation = "23503"
)

const activeAccountNameIndex = "accounts_active_name_idx"

// ErrForeignTx is returned when a repository receives a transaction that was
// not started by TxManager.
var ErrForeignTx = errors.New("postgres: transaction was not started by this store")

func queriesFor(tx usecase.Transaction) (*generated.Queries, error) {
	t, ok := tx.(*Tx)
	if !ok {
		return nil, ErrForeignTx
	}

	return generated.New(t.PgxTx()), nil
}

// mapWriteError translates constraint violations into domain errors.
func mapWriteError(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}

	switch pgErr.Code {
	case pgErrUniqueViolation:
		if pgErr.ConstraintName == activeAccountNameIndex {
			return domain.ErrDuplicateAccount
		}
	case pgErrForeignKeyViolation:
		return fmt.Errorf("%w: %s", domain.ErrAccountNotFound, pgErr.ConstraintName)
	}

	return err
}

func decimalToNumeric(d decimal.Decimal) pgtype.Numeric {
	var n pgtype.Numeric

	_ = n.Scan(d.String())

	return n
}

func optionalNumeric(d *decimal.Decimal) pgtype.Numeric {
	if d == nil {
		return pgtype.Numeric{}
	}

	return decimalToNumeric(*d)
}

func numericToDecimal(n pgtype.Numeric) decimal.Decimal {
	if !n.Valid {
		return decimal.Zero
	}

	d, _ := decimal.NewFromString(n.Int.String())
	if n.Exp != 0 {
		d = d.Shift(n.Exp)
	}

	return d
}

func timeToPgTimestamptz(t time.Time) pgtype.Timestamptz {
	return pgtype.Timestamptz{Time: t, Valid: true}
}

func timeToPgDate(t time.Time) pgtype.Date {
	return pgtype.Date{Time: domain.TruncateDate(t), Valid: true}
}

func optionalDate(t *time.Time) pgtype.Date {
	if t == nil {
		return pgtype.Date{}
	}

	return timeToPgDate(*t)
}

func pgDateToTime(d pgtype.Date) time.Time {
	return domain.TruncateDate(d.Time)
}

func pgDateToTimePtr(d pgtype.Date) *time.Time {
	if !d.Valid {
		return nil
	}

	t := pgDateToTime(d)

	return &t
}

func encodeMetadata(m map[string]any) ([]byte, error) {
	if len(m) == 0 {
		return []byte("{}"), nil
	}

	return json.Marshal(m)
}

func decodeMetadata(data []byte) map[string]any {
	if len(data) == 0 {
		return nil
	}

	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil || len(m) == 0 {
		return nil
	}

	return m
}

func balanceFromRows(rows []generated.SumPostingsRow) domain.Balance {
	balance := make(domain.Balance, len(rows))
	for _, row := range rows {
		balance.Add(row.Currency, numericToDecimal(row.Total))
	}

	return balance
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike makes user text match literally inside an ILIKE pattern.
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
