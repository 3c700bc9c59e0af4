package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/iho/beanledger/internal/domain"
	"github.com/iho/beanledger/internal/infrastructure/postgres/generated"
	"github.com/iho/beanledger/internal/usecase"
)

// AssertionRepository implements usecase.AssertionRepository.
type AssertionRepository struct {
	queries *generated.Queries
}

// NewAssertionRepository creates a new AssertionRepository.
func NewAssertionRepository(db generated.DBTX) *AssertionRepository {
	return &AssertionRepository{
		queries: generated.New(db),
	}
}

// Create inserts an assertion within a transaction.
func (r *AssertionRepository) Create(ctx context.Context, tx usecase.Transaction, assertion *domain.BalanceAssertion) error {
	queries, err := queriesFor(tx)
	if err != nil {
		return err
	}

	err = queries.CreateBalanceAssertion(ctx, generated.CreateBalanceAssertionParams{
		ID:        assertion.ID,
		AccountID: assertion.AccountID,
		Date:      timeToPgDate(assertion.Date),
		Amount:    decimalToNumeric(assertion.Amount),
		Currency:  assertion.Currency,
		CreatedAt: timeToPgTimestamptz(assertion.CreatedAt),
	})

	return mapWriteError(err)
}

// GetByID retrieves an assertion.
func (r *AssertionRepository) GetByID(ctx context.Context, id string) (*domain.BalanceAssertion, error) {
	row, err := r.queries.GetBalanceAssertionByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrAssertionNotFound
		}
		return nil, err
	}

	return rowToAssertion(row), nil
}

// ListByAccount returns the account's assertions ordered by date.
func (r *AssertionRepository) ListByAccount(ctx context.Context, accountID string) ([]*domain.BalanceAssertion, error) {
	rows, err := r.queries.ListBalanceAssertionsByAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}

	return rowsToAssertions(rows), nil
}

// ListUpTo returns assertions dated on or before asOf ordered by date.
func (r *AssertionRepository) ListUpTo(ctx context.Context, asOf time.Time) ([]*domain.BalanceAssertion, error) {
	rows, err := r.queries.ListBalanceAssertionsUpTo(ctx, timeToPgDate(asOf))
	if err != nil {
		return nil, err
	}

	return rowsToAssertions(rows), nil
}

func rowsToAssertions(rows []generated.BalanceAssertion) []*domain.BalanceAssertion {
	out := make([]*domain.BalanceAssertion, 0, len(rows))
	for _, row := range rows {
		out = append(out, rowToAssertion(row))
	}

	return out
}

func rowToAssertion(row generated.BalanceAssertion) *domain.BalanceAssertion {
	return &domain.BalanceAssertion{
		ID:        row.ID,
		AccountID: row.AccountID,
		Date:      pgDateToTime(row.Date),
		Amount:    numericToDecimal(row.Amount),
		Currency:  row.Currency,
		CreatedAt: row.CreatedAt.Time,
	}
}
