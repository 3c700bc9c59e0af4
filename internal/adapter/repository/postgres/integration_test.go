package postgres_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iho/beanledger/internal/adapter/repository/postgres"
	"github.com/iho/beanledger/internal/domain"
	"github.com/iho/beanledger/internal/testutil"
	"github.com/iho/beanledger/internal/usecase"
)

type pgLedger struct {
	db         *testutil.TestDB
	accounts   *usecase.AccountUseCase
	ledger     *usecase.LedgerUseCase
	balances   *usecase.BalanceUseCase
	search     *usecase.SearchUseCase
	assertions *usecase.AssertionUseCase
}

func newPgLedger(t *testing.T) *pgLedger {
	db := testutil.NewTestDB(t)
	pool := db.Pool

	txManager := postgres.NewTxManager(pool)
	accountRepo := postgres.NewAccountRepository(pool)
	txnRepo := postgres.NewTransactionRepository(pool)
	assertionRepo := postgres.NewAssertionRepository(pool)
	outboxRepo := postgres.NewOutboxRepository(pool)
	idGen := postgres.NewULIDGenerator()
	balanceUC := usecase.NewBalanceUseCase(accountRepo, txnRepo)

	return &pgLedger{
		db:         db,
		accounts:   usecase.NewAccountUseCase(txManager, accountRepo, outboxRepo, idGen),
		ledger:     usecase.NewLedgerUseCase(txManager, accountRepo, txnRepo, outboxRepo, idGen),
		balances:   balanceUC,
		search:     usecase.NewSearchUseCase(txnRepo),
		assertions: usecase.NewAssertionUseCase(txManager, accountRepo, balanceUC, assertionRepo, outboxRepo, idGen),
	}
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func draft(accountID, amt string) domain.PostingDraft {
	d := domain.PostingDraft{AccountID: accountID}
	if amt != "" {
		v := decimal.RequireFromString(amt)
		d.Amount = &v
	}
	return d
}

func (l *pgLedger) open(t *testing.T, name string) *domain.Account {
	t.Helper()
	a, err := l.accounts.CreateAccount(context.Background(), usecase.CreateAccountInput{
		Name:     name,
		Currency: "USD",
		OpenDate: date(2024, 1, 1),
	})
	require.NoError(t, err)
	return a
}

func TestPostgresLedger_RoundTrip(t *testing.T) {
	ctx := context.Background()
	l := newPgLedger(t)

	food := l.open(t, "Expenses:Food")
	checking := l.open(t, "Assets:Checking")

	txn, err := l.ledger.CreateTransaction(ctx, usecase.CreateTransactionInput{
		Date:      date(2024, 3, 5),
		Payee:     "Whole Foods",
		Narration: "50% off groceries",
		Tags:      []string{"food"},
		Links:     []string{"receipt-42"},
		Postings:  []domain.PostingDraft{draft(food.ID, "52.50"), draft(checking.ID, "")},
	})
	require.NoError(t, err)

	stored, err := l.ledger.GetTransaction(ctx, txn.ID)
	require.NoError(t, err)
	require.Len(t, stored.Postings, 2)
	assert.True(t, stored.Postings[1].Amount.Equal(decimal.RequireFromString("-52.50")))
	assert.Equal(t, []string{"food"}, stored.Tags)

	balance, err := l.balances.GetBalance(ctx, checking.ID, date(2024, 12, 31))
	require.NoError(t, err)
	assert.True(t, balance.Get("USD").Equal(decimal.RequireFromString("-52.50")))

	found, err := l.search.Search(ctx, domain.SearchFilter{Text: "50%"})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, txn.ID, found[0].ID)

	linked, err := l.ledger.ListTransactionsByLink(ctx, "receipt-42")
	require.NoError(t, err)
	assert.Len(t, linked, 1)

	report, err := l.ledger.CheckConsistency(ctx)
	require.NoError(t, err)
	assert.True(t, report.Consistent)
}

func TestPostgresLedger_RecategorizeKeepsAmounts(t *testing.T) {
	ctx := context.Background()
	l := newPgLedger(t)

	misc := l.open(t, "Expenses:Misc")
	travel := l.open(t, "Expenses:Travel")
	checking := l.open(t, "Assets:Checking")

	txn, err := l.ledger.CreateTransaction(ctx, usecase.CreateTransactionInput{
		Date:     date(2024, 4, 2),
		Postings: []domain.PostingDraft{draft(misc.ID, "120"), draft(checking.ID, "")},
	})
	require.NoError(t, err)

	_, err = l.ledger.RecategorizePosting(ctx, usecase.RecategorizePostingInput{
		TransactionID: txn.ID,
		PostingID:     txn.Postings[0].ID,
		AccountID:     travel.ID,
	})
	require.NoError(t, err)

	travelBalance, err := l.balances.GetBalance(ctx, travel.ID, date(2024, 12, 31))
	require.NoError(t, err)
	assert.True(t, travelBalance.Get("USD").Equal(decimal.NewFromInt(120)))

	// The schema itself refuses amount changes.
	_, err = l.db.Pool.Exec(ctx, `UPDATE postings SET amount = 1 WHERE id = $1`, txn.Postings[0].ID)
	assert.Error(t, err)

	_, err = l.db.Pool.Exec(ctx, `DELETE FROM postings WHERE id = $1`, txn.Postings[0].ID)
	assert.Error(t, err)
}

func TestPostgresLedger_ConcurrentCreateSameName(t *testing.T) {
	ctx := context.Background()
	l := newPgLedger(t)

	var (
		wg         sync.WaitGroup
		created    atomic.Int32
		duplicates atomic.Int32
	)

	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := l.accounts.CreateAccount(ctx, usecase.CreateAccountInput{Name: "Assets:Checking", Currency: "USD"})
			switch {
			case err == nil:
				created.Add(1)
			case errors.Is(err, domain.ErrDuplicateAccount):
				duplicates.Add(1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), created.Load())
	assert.Equal(t, int32(9), duplicates.Load())
}

func TestPostgresLedger_ClosedAccountRejectsLaterPostings(t *testing.T) {
	ctx := context.Background()
	l := newPgLedger(t)

	food := l.open(t, "Expenses:Food")
	checking := l.open(t, "Assets:Checking")

	_, err := l.accounts.CloseAccount(ctx, checking.ID, date(2024, 6, 30))
	require.NoError(t, err)

	_, err = l.ledger.CreateTransaction(ctx, usecase.CreateTransactionInput{
		Date:     date(2024, 7, 1),
		Postings: []domain.PostingDraft{draft(food.ID, "10"), draft(checking.ID, "")},
	})
	assert.ErrorIs(t, err, domain.ErrAccountInactive)

	_, err = l.ledger.CreateTransaction(ctx, usecase.CreateTransactionInput{
		Date:     date(2024, 6, 30),
		Postings: []domain.PostingDraft{draft(food.ID, "10"), draft(checking.ID, "")},
	})
	assert.NoError(t, err)
}

func TestPostgresLedger_Assertions(t *testing.T) {
	ctx := context.Background()
	l := newPgLedger(t)

	income := l.open(t, "Income:Salary")
	checking := l.open(t, "Assets:Checking")

	_, err := l.ledger.CreateTransaction(ctx, usecase.CreateTransactionInput{
		Date:     date(2024, 1, 31),
		Postings: []domain.PostingDraft{draft(checking.ID, "1500.25"), draft(income.ID, "")},
	})
	require.NoError(t, err)

	_, err = l.assertions.RecordAssertion(ctx, usecase.RecordAssertionInput{
		AccountID: checking.ID,
		Date:      date(2024, 2, 1),
		Amount:    decimal.RequireFromString("1500.25"),
	})
	require.NoError(t, err)

	report, err := l.assertions.VerifyAll(ctx, date(2024, 12, 31))
	require.NoError(t, err)
	assert.True(t, report.Reconciled())
}
