package usecase

import (
	"context"
	"time"

	"github.com/iho/beanledger/internal/domain"
)

// AccountRepository defines data access for accounts.
type AccountRepository interface {
	// CreateTx stages a new account. Name uniqueness among active accounts is
	// enforced when the transaction commits (domain.ErrDuplicateAccount).
	CreateTx(ctx context.Context, tx Transaction, account *domain.Account) error
	GetByID(ctx context.Context, id string) (*domain.Account, error)
	GetByIDForUpdate(ctx context.Context, tx Transaction, id string) (*domain.Account, error)
	// GetByName returns the active account with the given name.
	GetByName(ctx context.Context, name string) (*domain.Account, error)
	CloseTx(ctx context.Context, tx Transaction, id string, closeDate, updatedAt time.Time) error
	List(ctx context.Context, filter domain.AccountFilter) ([]*domain.Account, error)
}

// TransactionRepository defines data access for ledger transactions and
// their postings. Every balance is derived from these rows.
type TransactionRepository interface {
	Create(ctx context.Context, tx Transaction, txn *domain.Transaction) error
	GetByID(ctx context.Context, id string) (*domain.Transaction, error)
	UpdatePosting(ctx context.Context, tx Transaction, posting *domain.Posting) error
	ListByLink(ctx context.Context, link string) ([]*domain.Transaction, error)
	Search(ctx context.Context, filter domain.SearchFilter) ([]*domain.Transaction, error)

	// StatementPostings returns the account's balance over postings dated
	// before from, and its postings dated in [from, to] ordered by (date,
	// transaction id, posting id), both read from the same committed state.
	// A zero from means no lower bound and an empty opening balance.
	StatementPostings(ctx context.Context, accountID string, from, to time.Time) (domain.Balance, []*domain.PostingRecord, error)
	// SumByAccount folds postings of the account dated on or before asOf.
	SumByAccount(ctx context.Context, accountID string, asOf time.Time) (domain.Balance, error)
	// SumByAccounts folds postings of each account dated on or before asOf,
	// reading every account from the same committed state. Each requested
	// account has an entry, possibly empty.
	SumByAccounts(ctx context.Context, accountIDs []string, asOf time.Time) (map[string]domain.Balance, error)
	// SumByAccountTypes folds postings dated on or before asOf per account
	// type, reading every type from the same committed state. Each requested
	// type has an entry, possibly empty.
	SumByAccountTypes(ctx context.Context, types []domain.AccountType, asOf time.Time) (map[domain.AccountType]domain.Balance, error)
	// Residuals returns the per-currency posting sum of every transaction
	// whose sum is not exactly zero.
	Residuals(ctx context.Context) (map[string]domain.Balance, error)
}

// BalanceReader answers point-in-time balance queries. *BalanceUseCase
// implements it.
type BalanceReader interface {
	GetBalance(ctx context.Context, accountID string, asOf time.Time) (domain.Balance, error)
}

// AssertionRepository defines data access for balance assertions.
type AssertionRepository interface {
	Create(ctx context.Context, tx Transaction, assertion *domain.BalanceAssertion) error
	GetByID(ctx context.Context, id string) (*domain.BalanceAssertion, error)
	ListByAccount(ctx context.Context, accountID string) ([]*domain.BalanceAssertion, error)
	// ListUpTo returns every assertion dated on or before asOf, ordered by date.
	ListUpTo(ctx context.Context, asOf time.Time) ([]*domain.BalanceAssertion, error)
}

// OutboxRepository defines data access for outbox events.
type OutboxRepository interface {
	Create(ctx context.Context, tx Transaction, event *domain.OutboxEvent) error
	GetUnpublished(ctx context.Context, limit int) ([]*domain.OutboxEvent, error)
	MarkPublished(ctx context.Context, id string, publishedAt time.Time) error
	GetByAggregate(ctx context.Context, aggregateType, aggregateID string, limit, offset int) ([]*domain.OutboxEvent, error)
	DeletePublished(ctx context.Context, before time.Time) error
}

// Transaction represents a storage transaction.
type Transaction interface {
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// TransactionManager handles transaction lifecycle.
type TransactionManager interface {
	Begin(ctx context.Context) (Transaction, error)
}

// IDGenerator generates unique IDs.
type IDGenerator interface {
	Generate() string
}

// Retrier re-runs an operation on transient storage conflicts.
type Retrier interface {
	Retry(ctx context.Context, operation func() error) error
}

// IdempotencyStore handles idempotency key storage.
type IdempotencyStore interface {
	// CheckAndSet atomically checks if key exists, sets if not.
	// Returns (exists, existingValue, error).
	CheckAndSet(ctx context.Context, key string, response []byte, ttl time.Duration) (bool, []byte, error)
	// Update updates an existing key with the final response.
	Update(ctx context.Context, key string, response []byte, ttl time.Duration) error
	// Release drops a key whose request did not complete, so it may be retried.
	Release(ctx context.Context, key string) error
}

// LedgerMetrics receives business events for instrumentation.
type LedgerMetrics interface {
	AccountCreated(accountType domain.AccountType)
	AccountClosed()
	TransactionCreated(postings int)
	TransactionRejected(reason string)
	PostingRecategorized()
	AssertionChecked(passed bool)
}

// NopMetrics discards all observations.
type NopMetrics struct{}

func (NopMetrics) AccountCreated(domain.AccountType) {}
func (NopMetrics) AccountClosed()                    {}
func (NopMetrics) TransactionCreated(int)            {}
func (NopMetrics) TransactionRejected(string)        {}
func (NopMetrics) PostingRecategorized()             {}
func (NopMetrics) AssertionChecked(bool)             {}
