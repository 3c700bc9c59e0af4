// Package memory is an in-process implementation of the ledger storage ports.
//
// Writes are buffered on a Tx and applied at commit, under the store's write
// lock, directly to the committed state. Every write is journaled, so a
// failed commit is undone before the lock is released. Readers hold the read
// lock and therefore only ever observe whole commits. A commit costs the size
// of its own writes, not the size of the ledger; reads are full scans.
package memory

import (
	"context"
	"errors"
	"sync"

	"github.com/iho/beanledger/internal/usecase"
)

// ErrTxClosed is returned when committing a finished transaction.
var ErrTxClosed = errors.New("memory: transaction already closed")

// ErrForeignTx is returned when a repository receives a transaction it did not create.
var ErrForeignTx = errors.New("memory: transaction does not belong to this store")

// Store holds the committed ledger state.
type Store struct {
	mu    sync.RWMutex
	state *state
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{state: newState()}
}

// op applies one staged write during commit through the state's put
// helpers. Entities reachable from the committed state must be replaced,
// never modified in place.
type op func(next *state) error

// Tx buffers writes until Commit.
type Tx struct {
	store *Store
	ops   []op
	done  bool
	mu    sync.Mutex
}

func (t *Tx) stage(o op) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.done {
		return ErrTxClosed
	}
	t.ops = append(t.ops, o)

	return nil
}

// Commit applies the buffered writes atomically.
func (t *Tx) Commit(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.done {
		return ErrTxClosed
	}
	t.done = true

	if err := ctx.Err(); err != nil {
		return err
	}

	s := t.store
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.state
	st.begin()
	for _, o := range t.ops {
		if err := o(st); err != nil {
			st.revert()
			return err
		}
	}
	st.begin()

	return nil
}

// Rollback discards the buffered writes. It is safe to call after Commit.
func (t *Tx) Rollback(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.done = true
	t.ops = nil

	return nil
}

// TxManager implements usecase.TransactionManager.
type TxManager struct {
	store *Store
}

// NewTxManager creates a new TxManager.
func NewTxManager(store *Store) *TxManager {
	return &TxManager{store: store}
}

// Begin starts a new transaction.
func (m *TxManager) Begin(ctx context.Context) (usecase.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return &Tx{store: m.store}, nil
}

func (s *Store) txFor(tx usecase.Transaction) (*Tx, error) {
	t, ok := tx.(*Tx)
	if !ok || t.store != s {
		return nil, ErrForeignTx
	}

	return t, nil
}

func (s *Store) read(fn func(st *state)) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fn(s.state)
}
