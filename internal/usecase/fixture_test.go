package usecase_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/iho/beanledger/internal/adapter/repository/memory"
	"github.com/iho/beanledger/internal/domain"
	"github.com/iho/beanledger/internal/usecase"
	"github.com/iho/beanledger/internal/usecase/mocks"
)

type ledgerFixture struct {
	accounts   *usecase.AccountUseCase
	ledger     *usecase.LedgerUseCase
	balances   *usecase.BalanceUseCase
	search     *usecase.SearchUseCase
	assertions *usecase.AssertionUseCase
	outbox     *memory.OutboxRepository
	metrics    *mocks.RecordingMetrics
}

func newLedgerFixture() *ledgerFixture {
	store := memory.NewStore()
	txManager := memory.NewTxManager(store)
	accountRepo := memory.NewAccountRepository(store)
	txnRepo := memory.NewTransactionRepository(store)
	assertionRepo := memory.NewAssertionRepository(store)
	outboxRepo := memory.NewOutboxRepository(store)
	idGen := mocks.NewSequenceIDGenerator("id")
	metrics := mocks.NewRecordingMetrics()
	balances := usecase.NewBalanceUseCase(accountRepo, txnRepo)

	return &ledgerFixture{
		accounts:   usecase.NewAccountUseCase(txManager, accountRepo, outboxRepo, idGen).WithMetrics(metrics),
		ledger:     usecase.NewLedgerUseCase(txManager, accountRepo, txnRepo, outboxRepo, idGen).WithMetrics(metrics),
		balances:   balances,
		search:     usecase.NewSearchUseCase(txnRepo),
		assertions: usecase.NewAssertionUseCase(txManager, accountRepo, balances, assertionRepo, outboxRepo, idGen).WithMetrics(metrics),
		outbox:     outboxRepo,
		metrics:    metrics,
	}
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func amount(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func (f *ledgerFixture) open(t *testing.T, name, currency string) *domain.Account {
	t.Helper()

	account, err := f.accounts.CreateAccount(context.Background(), usecase.CreateAccountInput{
		Name:     name,
		Currency: currency,
		OpenDate: day(2024, 1, 1),
	})
	require.NoError(t, err)

	return account
}

func (f *ledgerFixture) record(t *testing.T, date time.Time, narration string, postings ...domain.PostingDraft) *domain.Transaction {
	t.Helper()

	txn, err := f.ledger.CreateTransaction(context.Background(), usecase.CreateTransactionInput{
		Date:      date,
		Narration: narration,
		Postings:  postings,
	})
	require.NoError(t, err)

	return txn
}

func (f *ledgerFixture) balance(t *testing.T, accountID string, asOf time.Time) domain.Balance {
	t.Helper()

	b, err := f.balances.GetBalance(context.Background(), accountID, asOf)
	require.NoError(t, err)

	return b
}

func post(accountID, amt string) domain.PostingDraft {
	if amt == "" {
		return domain.PostingDraft{AccountID: accountID}
	}
	return domain.PostingDraft{AccountID: accountID, Amount: amount(amt)}
}
