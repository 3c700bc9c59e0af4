package memory

import (
	"time"

	"github.com/iho/beanledger/internal/domain"
)

// state is the committed ledger. Commit ops write through the put helpers,
// which journal the previous value so a failing commit can be undone.
type state struct {
	accounts   map[string]*domain.Account
	txns       map[string]*domain.Transaction
	assertions map[string]*domain.BalanceAssertion
	outbox     []*domain.OutboxEvent

	// activeNames maps the name of every active account to its ID.
	activeNames map[string]string

	undo []func()
}

func newState() *state {
	return &state{
		accounts:    make(map[string]*domain.Account),
		txns:        make(map[string]*domain.Transaction),
		assertions:  make(map[string]*domain.BalanceAssertion),
		activeNames: make(map[string]string),
	}
}

func (st *state) journal(fn func()) {
	st.undo = append(st.undo, fn)
}

// begin starts a journal for one commit.
func (st *state) begin() {
	st.undo = st.undo[:0]
}

// revert undoes every write since begin, newest first.
func (st *state) revert() {
	for i := len(st.undo) - 1; i >= 0; i-- {
		st.undo[i]()
	}
	st.undo = st.undo[:0]
}

func (st *state) putAccount(a *domain.Account) {
	prev, had := st.accounts[a.ID]
	st.accounts[a.ID] = a
	if had && prev.IsActive() {
		delete(st.activeNames, prev.Name)
	}
	if a.IsActive() {
		st.activeNames[a.Name] = a.ID
	}

	st.journal(func() {
		if a.IsActive() {
			delete(st.activeNames, a.Name)
		}
		if !had {
			delete(st.accounts, a.ID)
			return
		}
		st.accounts[a.ID] = prev
		if prev.IsActive() {
			st.activeNames[prev.Name] = prev.ID
		}
	})
}

func (st *state) putTxn(t *domain.Transaction) {
	prev, had := st.txns[t.ID]
	st.txns[t.ID] = t

	st.journal(func() {
		if had {
			st.txns[t.ID] = prev
			return
		}
		delete(st.txns, t.ID)
	})
}

func (st *state) putAssertion(a *domain.BalanceAssertion) {
	prev, had := st.assertions[a.ID]
	st.assertions[a.ID] = a

	st.journal(func() {
		if had {
			st.assertions[a.ID] = prev
			return
		}
		delete(st.assertions, a.ID)
	})
}

func (st *state) appendEvent(e *domain.OutboxEvent) {
	n := len(st.outbox)
	st.outbox = append(st.outbox, e)

	st.journal(func() {
		st.outbox[n] = nil
		st.outbox = st.outbox[:n]
	})
}

func (st *state) activeAccountNamed(name string) *domain.Account {
	id, ok := st.activeNames[name]
	if !ok {
		return nil
	}

	return st.accounts[id]
}

// postingsAfter counts the account's postings dated after date.
func (st *state) postingsAfter(accountID string, date time.Time) int {
	n := 0
	for _, t := range st.txns {
		if !t.Date.After(date) {
			continue
		}
		for _, p := range t.Postings {
			if p.AccountID == accountID {
				n++
			}
		}
	}

	return n
}
