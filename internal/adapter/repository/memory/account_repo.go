package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/iho/beanledger/internal/domain"
	"github.com/iho/beanledger/internal/usecase"
)

// AccountRepository implements usecase.AccountRepository.
type AccountRepository struct {
	store *Store
}

// NewAccountRepository creates a new AccountRepository.
func NewAccountRepository(store *Store) *AccountRepository {
	return &AccountRepository{store: store}
}

// CreateTx stages the account. The active-name check runs at commit.
func (r *AccountRepository) CreateTx(ctx context.Context, tx usecase.Transaction, account *domain.Account) error {
	t, err := r.store.txFor(tx)
	if err != nil {
		return err
	}

	staged := account.Clone()

	return t.stage(func(next *state) error {
		if _, exists := next.accounts[staged.ID]; exists {
			return fmt.Errorf("memory: account id %s already exists", staged.ID)
		}
		if next.activeAccountNamed(staged.Name) != nil {
			return fmt.Errorf("%w: %s", domain.ErrDuplicateAccount, staged.Name)
		}
		next.putAccount(staged)

		return nil
	})
}

// GetByID retrieves an account by ID.
func (r *AccountRepository) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	var account *domain.Account
	r.store.read(func(st *state) {
		if a, ok := st.accounts[id]; ok {
			account = a.Clone()
		}
	})

	if account == nil {
		return nil, domain.ErrAccountNotFound
	}

	return account, nil
}

// GetByIDForUpdate reads the committed account. Conflicting closes are
// detected when the transaction commits.
func (r *AccountRepository) GetByIDForUpdate(ctx context.Context, tx usecase.Transaction, id string) (*domain.Account, error) {
	if _, err := r.store.txFor(tx); err != nil {
		return nil, err
	}

	return r.GetByID(ctx, id)
}

// GetByName retrieves the active account with the given name.
func (r *AccountRepository) GetByName(ctx context.Context, name string) (*domain.Account, error) {
	var account *domain.Account
	r.store.read(func(st *state) {
		if a := st.activeAccountNamed(name); a != nil {
			account = a.Clone()
		}
	})

	if account == nil {
		return nil, domain.ErrAccountNotFound
	}

	return account, nil
}

// CloseTx stages closing the account.
func (r *AccountRepository) CloseTx(ctx context.Context, tx usecase.Transaction, id string, closeDate, updatedAt time.Time) error {
	t, err := r.store.txFor(tx)
	if err != nil {
		return err
	}

	return t.stage(func(next *state) error {
		current, ok := next.accounts[id]
		if !ok {
			return domain.ErrAccountNotFound
		}

		closed := current.Clone()
		if err := closed.Close(closeDate); err != nil {
			return err
		}
		if n := next.postingsAfter(id, *closed.CloseDate); n > 0 {
			return fmt.Errorf("%w: %d posting(s) after %s", domain.ErrPostingsAfterClose, n, closed.CloseDate.Format(domain.DateLayout))
		}
		closed.UpdatedAt = updatedAt
		next.putAccount(closed)

		return nil
	})
}

// List returns accounts matching the filter ordered by name.
func (r *AccountRepository) List(ctx context.Context, filter domain.AccountFilter) ([]*domain.Account, error) {
	var accounts []*domain.Account
	r.store.read(func(st *state) {
		for _, a := range st.accounts {
			if filter.Matches(a) {
				accounts = append(accounts, a.Clone())
			}
		}
	})

	sort.Slice(accounts, func(i, j int) bool {
		if accounts[i].Name != accounts[j].Name {
			return accounts[i].Name < accounts[j].Name
		}
		return accounts[i].ID < accounts[j].ID
	})

	return paginate(accounts, filter.Limit, filter.Offset), nil
}

func paginate[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return []T{}
	}
	items = items[offset:]

	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}

	return items
}
