package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/iho/beanledger/internal/domain"
	"github.com/iho/beanledger/internal/infrastructure/postgres/generated"
	"github.com/iho/beanledger/internal/usecase"
)

// AccountRepository implements usecase.AccountRepository.
type AccountRepository struct {
	queries *generated.Queries
}

// NewAccountRepository creates a new AccountRepository.
func NewAccountRepository(db generated.DBTX) *AccountRepository {
	return &AccountRepository{
		queries: generated.New(db),
	}
}

// CreateTx inserts an account within a transaction. The partial unique index
// on active names turns a concurrent duplicate into domain.ErrDuplicateAccount.
func (r *AccountRepository) CreateTx(ctx context.Context, tx usecase.Transaction, account *domain.Account) error {
	queries, err := queriesFor(tx)
	if err != nil {
		return err
	}

	metadata, err := encodeMetadata(account.Metadata)
	if err != nil {
		return err
	}

	err = queries.CreateAccount(ctx, generated.CreateAccountParams{
		ID:          account.ID,
		Name:        account.Name,
		AccountType: string(account.Type),
		Currency:    account.Currency,
		Description: account.Description,
		Metadata:    metadata,
		OpenDate:    timeToPgDate(account.OpenDate),
		CloseDate:   optionalDate(account.CloseDate),
		CreatedAt:   timeToPgTimestamptz(account.CreatedAt),
		UpdatedAt:   timeToPgTimestamptz(account.UpdatedAt),
	})

	return mapWriteError(err)
}

// GetByID retrieves an account by ID, closed or not.
func (r *AccountRepository) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	row, err := r.queries.GetAccountByID(ctx, id)
	if err != nil {
		return nil, accountLookupError(err)
	}

	return rowToAccount(row), nil
}

// GetByIDForUpdate retrieves an account with a row lock.
func (r *AccountRepository) GetByIDForUpdate(ctx context.Context, tx usecase.Transaction, id string) (*domain.Account, error) {
	queries, err := queriesFor(tx)
	if err != nil {
		return nil, err
	}

	row, err := queries.GetAccountByIDForUpdate(ctx, id)
	if err != nil {
		return nil, accountLookupError(err)
	}

	return rowToAccount(row), nil
}

// GetByName retrieves the active account with the given name.
func (r *AccountRepository) GetByName(ctx context.Context, name string) (*domain.Account, error) {
	row, err := r.queries.GetActiveAccountByName(ctx, name)
	if err != nil {
		return nil, accountLookupError(err)
	}

	return rowToAccount(row), nil
}

// CloseTx sets the close date of an active account. It fails with
// domain.ErrPostingsAfterClose when a posting is dated after closeDate. The
// caller holds the account row lock from GetByIDForUpdate, so posting writers,
// which share-lock it, cannot add one in between.
func (r *AccountRepository) CloseTx(ctx context.Context, tx usecase.Transaction, id string, closeDate, updatedAt time.Time) error {
	queries, err := queriesFor(tx)
	if err != nil {
		return err
	}

	later, err := queries.CountPostingsAfter(ctx, generated.CountPostingsAfterParams{
		AccountID: id,
		After:     timeToPgDate(closeDate),
	})
	if err != nil {
		return err
	}
	if later > 0 {
		return fmt.Errorf("%w: %d posting(s) after %s", domain.ErrPostingsAfterClose, later, closeDate.Format(domain.DateLayout))
	}

	affected, err := queries.CloseAccount(ctx, generated.CloseAccountParams{
		ID:        id,
		CloseDate: timeToPgDate(closeDate),
		UpdatedAt: timeToPgTimestamptz(updatedAt),
	})
	if err != nil {
		return err
	}

	if affected == 0 {
		return domain.ErrAlreadyClosed
	}

	return nil
}

// List returns accounts matching the filter ordered by name.
func (r *AccountRepository) List(ctx context.Context, filter domain.AccountFilter) ([]*domain.Account, error) {
	var active pgtype.Bool
	if filter.Active != nil {
		active = pgtype.Bool{Bool: *filter.Active, Valid: true}
	}

	rows, err := r.queries.ListAccounts(ctx, generated.ListAccountsParams{
		AccountType: string(filter.Type),
		Active:      active,
		NamePrefix:  escapeLike(filter.NamePrefix),
		Limit:       int32(filter.Limit),
		Offset:      int32(filter.Offset),
	})
	if err != nil {
		return nil, err
	}

	accounts := make([]*domain.Account, 0, len(rows))
	for _, row := range rows {
		accounts = append(accounts, rowToAccount(row))
	}

	return accounts, nil
}

func accountLookupError(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrAccountNotFound
	}

	return err
}

func rowToAccount(row generated.Account) *domain.Account {
	return &domain.Account{
		ID:          row.ID,
		Name:        row.Name,
		Type:        domain.AccountType(row.AccountType),
		Currency:    row.Currency,
		Description: row.Description,
		Metadata:    decodeMetadata(row.Metadata),
		OpenDate:    pgDateToTime(row.OpenDate),
		CloseDate:   pgDateToTimePtr(row.CloseDate),
		CreatedAt:   row.CreatedAt.Time,
		UpdatedAt:   row.UpdatedAt.Time,
	}
}
