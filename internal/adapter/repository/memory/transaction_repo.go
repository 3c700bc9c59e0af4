package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/iho/beanledger/internal/domain"
	"github.com/iho/beanledger/internal/usecase"
)

// TransactionRepository implements usecase.TransactionRepository.
type TransactionRepository struct {
	store *Store
}

// NewTransactionRepository creates a new TransactionRepository.
func NewTransactionRepository(store *Store) *TransactionRepository {
	return &TransactionRepository{store: store}
}

// Create stages the transaction. Posting accounts are re-checked against the
// committed state so an account closed concurrently cannot receive postings.
func (r *TransactionRepository) Create(ctx context.Context, tx usecase.Transaction, txn *domain.Transaction) error {
	t, err := r.store.txFor(tx)
	if err != nil {
		return err
	}

	staged := txn.Clone()

	return t.stage(func(next *state) error {
		if _, exists := next.txns[staged.ID]; exists {
			return fmt.Errorf("memory: transaction id %s already exists", staged.ID)
		}

		for _, p := range staged.Postings {
			account, ok := next.accounts[p.AccountID]
			if !ok {
				return fmt.Errorf("%w: %w: %s", domain.ErrInvalidPosting, domain.ErrAccountNotFound, p.AccountID)
			}
			if !account.AcceptsPostingsAt(staged.Date) {
				return fmt.Errorf("%w: %w: %s", domain.ErrInvalidPosting, domain.ErrAccountInactive, account.Name)
			}
		}

		next.putTxn(staged)

		return nil
	})
}

// GetByID retrieves a transaction with its postings.
func (r *TransactionRepository) GetByID(ctx context.Context, id string) (*domain.Transaction, error) {
	var txn *domain.Transaction
	r.store.read(func(st *state) {
		if t, ok := st.txns[id]; ok {
			txn = t.Clone()
		}
	})

	if txn == nil {
		return nil, domain.ErrTransactionNotFound
	}

	return txn, nil
}

// UpdatePosting stages the new account and metadata of a posting. The
// target account must still accept postings at the transaction date when
// the write is applied.
func (r *TransactionRepository) UpdatePosting(ctx context.Context, tx usecase.Transaction, posting *domain.Posting) error {
	t, err := r.store.txFor(tx)
	if err != nil {
		return err
	}

	accountID := posting.AccountID
	metadata := domain.MergeMetadata(posting.Metadata, nil)

	return t.stage(func(next *state) error {
		current, ok := next.txns[posting.TransactionID]
		if !ok {
			return domain.ErrTransactionNotFound
		}
		account, ok := next.accounts[accountID]
		if !ok {
			return domain.ErrAccountNotFound
		}
		if !account.AcceptsPostingsAt(current.Date) {
			return fmt.Errorf("%w: %w: %s", domain.ErrInvalidPosting, domain.ErrAccountInactive, account.Name)
		}

		updated := current.Clone()
		p := updated.Posting(posting.ID)
		if p == nil {
			return domain.ErrPostingNotFound
		}
		p.AccountID = accountID
		p.Metadata = metadata
		next.putTxn(updated)

		return nil
	})
}

// ListByLink returns transactions carrying the link, oldest first.
func (r *TransactionRepository) ListByLink(ctx context.Context, link string) ([]*domain.Transaction, error) {
	var txns []*domain.Transaction
	r.store.read(func(st *state) {
		for _, t := range st.txns {
			for _, l := range t.Links {
				if l == link {
					txns = append(txns, t.Clone())
					break
				}
			}
		}
	})

	sort.Slice(txns, func(i, j int) bool {
		if !txns[i].Date.Equal(txns[j].Date) {
			return txns[i].Date.Before(txns[j].Date)
		}
		return txns[i].ID < txns[j].ID
	})

	return txns, nil
}

// Search returns transactions matching the filter, newest first.
func (r *TransactionRepository) Search(ctx context.Context, filter domain.SearchFilter) ([]*domain.Transaction, error) {
	var txns []*domain.Transaction
	r.store.read(func(st *state) {
		for _, t := range st.txns {
			if filter.Matches(t) {
				txns = append(txns, t)
			}
		}
	})

	sort.Slice(txns, func(i, j int) bool {
		if !txns[i].Date.Equal(txns[j].Date) {
			return txns[i].Date.After(txns[j].Date)
		}
		return txns[i].ID < txns[j].ID
	})

	txns = paginate(txns, filter.Limit, 0)

	out := make([]*domain.Transaction, len(txns))
	for i, t := range txns {
		out[i] = t.Clone()
	}

	return out, nil
}

// StatementPostings returns the account's opening balance before from and
// its postings dated in [from, to] from one committed snapshot. A zero from
// is unbounded.
func (r *TransactionRepository) StatementPostings(ctx context.Context, accountID string, from, to time.Time) (domain.Balance, []*domain.PostingRecord, error) {
	opening := make(domain.Balance)
	var records []*domain.PostingRecord

	r.store.read(func(st *state) {
		for _, t := range st.txns {
			if t.Date.After(to) {
				continue
			}
			before := !from.IsZero() && t.Date.Before(from)
			for _, p := range t.Postings {
				if p.AccountID != accountID {
					continue
				}
				if before {
					opening.Add(p.Currency, p.Amount)
					continue
				}
				pc := *p
				pc.Metadata = domain.MergeMetadata(p.Metadata, nil)
				records = append(records, &domain.PostingRecord{
					Date:      t.Date,
					Posting:   &pc,
					Payee:     t.Payee,
					Narration: t.Narration,
				})
			}
		}
	})

	domain.SortPostingRecords(records)

	return opening, records, nil
}

// SumByAccount folds the account's postings dated on or before asOf.
func (r *TransactionRepository) SumByAccount(ctx context.Context, accountID string, asOf time.Time) (domain.Balance, error) {
	balance := make(domain.Balance)
	r.store.read(func(st *state) {
		for _, t := range st.txns {
			if t.Date.After(asOf) {
				continue
			}
			for _, p := range t.Postings {
				if p.AccountID == accountID {
					balance.Add(p.Currency, p.Amount)
				}
			}
		}
	})

	return balance, nil
}

// SumByAccounts folds postings of several accounts dated on or before asOf,
// all from one committed snapshot.
func (r *TransactionRepository) SumByAccounts(ctx context.Context, accountIDs []string, asOf time.Time) (map[string]domain.Balance, error) {
	out := make(map[string]domain.Balance, len(accountIDs))
	for _, id := range accountIDs {
		out[id] = make(domain.Balance)
	}

	r.store.read(func(st *state) {
		for _, t := range st.txns {
			if t.Date.After(asOf) {
				continue
			}
			for _, p := range t.Postings {
				if balance, wanted := out[p.AccountID]; wanted {
					balance.Add(p.Currency, p.Amount)
				}
			}
		}
	})

	return out, nil
}

// SumByAccountTypes folds postings per account type dated on or before asOf,
// all from one committed snapshot.
func (r *TransactionRepository) SumByAccountTypes(ctx context.Context, types []domain.AccountType, asOf time.Time) (map[domain.AccountType]domain.Balance, error) {
	out := make(map[domain.AccountType]domain.Balance, len(types))
	for _, t := range types {
		out[t] = make(domain.Balance)
	}

	r.store.read(func(st *state) {
		for _, t := range st.txns {
			if t.Date.After(asOf) {
				continue
			}
			for _, p := range t.Postings {
				a, ok := st.accounts[p.AccountID]
				if !ok {
					continue
				}
				if balance, wanted := out[a.Type]; wanted {
					balance.Add(p.Currency, p.Amount)
				}
			}
		}
	})

	return out, nil
}

// Residuals returns non-zero per-currency sums keyed by transaction ID.
func (r *TransactionRepository) Residuals(ctx context.Context) (map[string]domain.Balance, error) {
	out := make(map[string]domain.Balance)
	r.store.read(func(st *state) {
		for id, t := range st.txns {
			nonZero := make(domain.Balance)
			for currency, sum := range t.Residuals() {
				if !sum.IsZero() {
					nonZero[currency] = sum
				}
			}
			if len(nonZero) > 0 {
				out[id] = nonZero
			}
		}
	})

	return out, nil
}
