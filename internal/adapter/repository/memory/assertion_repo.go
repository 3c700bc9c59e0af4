package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/iho/beanledger/internal/domain"
	"github.com/iho/beanledger/internal/usecase"
)

// AssertionRepository implements usecase.AssertionRepository.
type AssertionRepository struct {
	store *Store
}

// NewAssertionRepository creates a new AssertionRepository.
func NewAssertionRepository(store *Store) *AssertionRepository {
	return &AssertionRepository{store: store}
}

// Create stages the assertion.
func (r *AssertionRepository) Create(ctx context.Context, tx usecase.Transaction, assertion *domain.BalanceAssertion) error {
	t, err := r.store.txFor(tx)
	if err != nil {
		return err
	}

	staged := *assertion

	return t.stage(func(next *state) error {
		if _, exists := next.assertions[staged.ID]; exists {
			return fmt.Errorf("memory: assertion id %s already exists", staged.ID)
		}
		next.putAssertion(&staged)

		return nil
	})
}

// GetByID retrieves an assertion by ID.
func (r *AssertionRepository) GetByID(ctx context.Context, id string) (*domain.BalanceAssertion, error) {
	var assertion *domain.BalanceAssertion
	r.store.read(func(st *state) {
		if a, ok := st.assertions[id]; ok {
			c := *a
			assertion = &c
		}
	})

	if assertion == nil {
		return nil, domain.ErrAssertionNotFound
	}

	return assertion, nil
}

// ListByAccount returns the account's assertions ordered by date.
func (r *AssertionRepository) ListByAccount(ctx context.Context, accountID string) ([]*domain.BalanceAssertion, error) {
	return r.collect(func(a *domain.BalanceAssertion) bool {
		return a.AccountID == accountID
	}), nil
}

// ListUpTo returns assertions dated on or before asOf ordered by date.
func (r *AssertionRepository) ListUpTo(ctx context.Context, asOf time.Time) ([]*domain.BalanceAssertion, error) {
	return r.collect(func(a *domain.BalanceAssertion) bool {
		return !a.Date.After(asOf)
	}), nil
}

func (r *AssertionRepository) collect(keep func(*domain.BalanceAssertion) bool) []*domain.BalanceAssertion {
	out := make([]*domain.BalanceAssertion, 0)
	r.store.read(func(st *state) {
		for _, a := range st.assertions {
			if keep(a) {
				c := *a
				out = append(out, &c)
			}
		}
	})

	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].ID < out[j].ID
	})

	return out
}
