package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/iho/beanledger/internal/domain"
)

// AccountUseCase handles account business logic.
type AccountUseCase struct {
	txManager   TransactionManager
	accountRepo AccountRepository
	outboxRepo  OutboxRepository
	idGen       IDGenerator
	metrics     LedgerMetrics
}

// NewAccountUseCase creates a new AccountUseCase.
func NewAccountUseCase(
	txManager TransactionManager,
	accountRepo AccountRepository,
	outboxRepo OutboxRepository,
	idGen IDGenerator,
) *AccountUseCase {
	return &AccountUseCase{
		txManager:   txManager,
		accountRepo: accountRepo,
		outboxRepo:  outboxRepo,
		idGen:       idGen,
		metrics:     NopMetrics{},
	}
}

// WithMetrics sets the metrics sink.
func (uc *AccountUseCase) WithMetrics(m LedgerMetrics) *AccountUseCase {
	uc.metrics = m
	return uc
}

// CreateAccountInput represents input for creating an account.
type CreateAccountInput struct {
	OpenDate    time.Time
	Metadata    map[string]any
	Name        string
	Currency    string
	Description string
}

// CreateAccount opens a new account. The account type is derived from the
// root segment of the name.
func (uc *AccountUseCase) CreateAccount(ctx context.Context, input CreateAccountInput) (*domain.Account, error) {
	accountType, err := domain.ParseAccountName(input.Name)
	if err != nil {
		return nil, err
	}

	currency := domain.NormalizeCurrency(input.Currency)
	if err := domain.ValidateCurrency(currency); err != nil {
		return nil, err
	}

	if err := domain.ValidateMetadata(input.Metadata); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	openDate := input.OpenDate
	if openDate.IsZero() {
		openDate = now
	}

	account := &domain.Account{
		ID:          uc.idGen.Generate(),
		Name:        input.Name,
		Type:        accountType,
		Currency:    currency,
		Description: strings.TrimSpace(input.Description),
		Metadata:    input.Metadata,
		OpenDate:    domain.TruncateDate(openDate),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	txCtx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
	defer cancel()

	tx, err := uc.txManager.Begin(txCtx)
	if err != nil {
		return nil, domain.StorageError("begin", err)
	}
	defer func() { _ = tx.Rollback(txCtx) }()

	if err := uc.accountRepo.CreateTx(txCtx, tx, account); err != nil {
		return nil, domain.StorageError("create account", err)
	}

	event := &domain.OutboxEvent{
		ID:            uc.idGen.Generate(),
		AggregateID:   account.ID,
		AggregateType: domain.AggregateTypeAccount,
		EventType:     domain.EventTypeAccountCreated,
		Payload: domain.ToPayload(domain.AccountCreatedEvent{
			AccountID: account.ID,
			Name:      account.Name,
			Type:      string(account.Type),
			Currency:  account.Currency,
			OpenDate:  account.OpenDate.Format(domain.DateLayout),
		}),
		CreatedAt: now,
	}
	if err := uc.outboxRepo.Create(txCtx, tx, event); err != nil {
		return nil, domain.StorageError("create outbox event", err)
	}

	if err := tx.Commit(txCtx); err != nil {
		return nil, domain.StorageError("commit", err)
	}

	uc.metrics.AccountCreated(account.Type)

	return account, nil
}

// CloseAccount closes an account as of closeDate. Postings dated after the
// close date are rejected from then on.
func (uc *AccountUseCase) CloseAccount(ctx context.Context, id string, closeDate time.Time) (*domain.Account, error) {
	if closeDate.IsZero() {
		closeDate = time.Now().UTC()
	}

	txCtx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
	defer cancel()

	tx, err := uc.txManager.Begin(txCtx)
	if err != nil {
		return nil, domain.StorageError("begin", err)
	}
	defer func() { _ = tx.Rollback(txCtx) }()

	account, err := uc.accountRepo.GetByIDForUpdate(txCtx, tx, id)
	if err != nil {
		return nil, domain.StorageError("load account", err)
	}

	if err := account.Close(closeDate); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	account.UpdatedAt = now

	if err := uc.accountRepo.CloseTx(txCtx, tx, id, *account.CloseDate, now); err != nil {
		return nil, domain.StorageError("close account", err)
	}

	event := &domain.OutboxEvent{
		ID:            uc.idGen.Generate(),
		AggregateID:   account.ID,
		AggregateType: domain.AggregateTypeAccount,
		EventType:     domain.EventTypeAccountClosed,
		Payload: domain.ToPayload(domain.AccountClosedEvent{
			AccountID: account.ID,
			Name:      account.Name,
			CloseDate: account.CloseDate.Format(domain.DateLayout),
		}),
		CreatedAt: now,
	}
	if err := uc.outboxRepo.Create(txCtx, tx, event); err != nil {
		return nil, domain.StorageError("create outbox event", err)
	}

	if err := tx.Commit(txCtx); err != nil {
		return nil, domain.StorageError("commit", err)
	}

	uc.metrics.AccountClosed()

	return account, nil
}

// GetAccount retrieves an account by ID.
func (uc *AccountUseCase) GetAccount(ctx context.Context, id string) (*domain.Account, error) {
	account, err := uc.accountRepo.GetByID(ctx, id)
	if err != nil {
		return nil, domain.StorageError("get account", err)
	}

	return account, nil
}

// GetAccountByName retrieves the active account with the given name.
func (uc *AccountUseCase) GetAccountByName(ctx context.Context, name string) (*domain.Account, error) {
	if _, err := domain.ParseAccountName(name); err != nil {
		return nil, err
	}

	account, err := uc.accountRepo.GetByName(ctx, name)
	if err != nil {
		return nil, domain.StorageError("get account by name", err)
	}

	return account, nil
}

// ResolveAccount returns the account with the given ID whether or not it is
// still open.
func (uc *AccountUseCase) ResolveAccount(ctx context.Context, id string) (*domain.Account, error) {
	return uc.GetAccount(ctx, id)
}

// ResolveForPosting returns the account if it accepts postings dated at.
func (uc *AccountUseCase) ResolveForPosting(ctx context.Context, id string, at time.Time) (*domain.Account, error) {
	return resolveForPosting(ctx, uc.accountRepo, id, at)
}

// ListAccounts lists accounts ordered by name.
func (uc *AccountUseCase) ListAccounts(ctx context.Context, filter domain.AccountFilter) ([]*domain.Account, error) {
	if filter.Type != "" && !filter.Type.IsValid() {
		return nil, fmt.Errorf("%w: unknown account type %q", domain.ErrInvalidAccountName, filter.Type)
	}

	filter.Limit, filter.Offset, _ = domain.ValidatePagination(filter.Limit, filter.Offset)

	accounts, err := uc.accountRepo.List(ctx, filter)
	if err != nil {
		return nil, domain.StorageError("list accounts", err)
	}

	return accounts, nil
}

func resolveForPosting(ctx context.Context, repo AccountRepository, id string, at time.Time) (*domain.Account, error) {
	account, err := repo.GetByID(ctx, id)
	if err != nil {
		return nil, domain.StorageError("resolve account", err)
	}

	if !account.AcceptsPostingsAt(at) {
		return nil, fmt.Errorf("%w: %s on %s", domain.ErrAccountInactive, account.Name, at.Format(domain.DateLayout))
	}

	return account, nil
}
