package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/shopspring/decimal"

	"github.com/iho/beanledger/internal/domain"
)

var accountColumns = []string{
	"id", "name", "account_type", "currency", "description", "metadata",
	"open_date", "close_date", "created_at", "updated_at",
}

func pgDay(y int, m time.Month, d int) pgtype.Date {
	return pgtype.Date{Time: time.Date(y, m, d, 0, 0, 0, 0, time.UTC), Valid: true}
}

func accountRow(rows *pgxmock.Rows, id, name string, closeDate pgtype.Date) *pgxmock.Rows {
	now := timeToPgTimestamptz(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	return rows.AddRow(id, name, "Assets", "USD", "", []byte(`{"bank":"acme"}`),
		pgDay(2024, 1, 1), closeDate, now, now)
}

func TestAccountRepositoryCreateTxDuplicateName(t *testing.T) {
	ctx := context.Background()
	mockPool := newMockPool(t)
	mockPool.ExpectBegin()
	mockPool.ExpectExec("INSERT INTO accounts").
		WithArgs("acc-1", "Assets:Checking", "Assets", "USD", "",
			pgxmock.AnyArg(), pgDay(2024, 1, 1), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(&pgconn.PgError{Code: pgErrUniqueViolation, ConstraintName: activeAccountNameIndex})
	mockPool.ExpectRollback()

	tx, err := newTxManagerWithPool(mockPool).Begin(ctx)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}

	repo := NewAccountRepository(mockPool)
	err = repo.CreateTx(ctx, tx, &domain.Account{
		ID:       "acc-1",
		Name:     "Assets:Checking",
		Type:     domain.AccountTypeAssets,
		Currency: "USD",
		OpenDate: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	})
	if !errors.Is(err, domain.ErrDuplicateAccount) {
		t.Fatalf("expected ErrDuplicateAccount, got %v", err)
	}

	if err := tx.Rollback(ctx); err != nil {
		t.Fatalf("rollback: %v", err)
	}

	assertExpectations(t, mockPool)
}

func TestAccountRepositoryCloseTxRejectsLaterPostings(t *testing.T) {
	ctx := context.Background()
	mockPool := newMockPool(t)
	mockPool.ExpectBegin()
	mockPool.ExpectQuery("t.date > ").
		WithArgs("acc-1", pgDay(2024, 3, 1)).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(2)))
	mockPool.ExpectRollback()

	tx, err := newTxManagerWithPool(mockPool).Begin(ctx)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}

	err = NewAccountRepository(mockPool).CloseTx(ctx, tx, "acc-1",
		time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), time.Date(2024, 3, 2, 9, 0, 0, 0, time.UTC))
	if !errors.Is(err, domain.ErrPostingsAfterClose) {
		t.Fatalf("expected ErrPostingsAfterClose, got %v", err)
	}

	if err := tx.Rollback(ctx); err != nil {
		t.Fatalf("rollback: %v", err)
	}

	assertExpectations(t, mockPool)
}

func TestAccountRepositoryGetByID(t *testing.T) {
	ctx := context.Background()
	mockPool := newMockPool(t)
	mockPool.ExpectQuery("FROM accounts WHERE id").
		WithArgs("acc-1").
		WillReturnRows(accountRow(pgxmock.NewRows(accountColumns), "acc-1", "Assets:Checking", pgtype.Date{}))
	mockPool.ExpectQuery("FROM accounts WHERE id").
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)

	repo := NewAccountRepository(mockPool)

	account, err := repo.GetByID(ctx, "acc-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if account.Name != "Assets:Checking" || !account.IsActive() {
		t.Fatalf("unexpected account %+v", account)
	}
	if account.Metadata["bank"] != "acme" {
		t.Fatalf("metadata not decoded: %v", account.Metadata)
	}

	if _, err := repo.GetByID(ctx, "missing"); !errors.Is(err, domain.ErrAccountNotFound) {
		t.Fatalf("expected ErrAccountNotFound, got %v", err)
	}

	assertExpectations(t, mockPool)
}

func TestTransactionRepositoryCreateRejectsClosedAccount(t *testing.T) {
	ctx := context.Background()
	mockPool := newMockPool(t)
	mockPool.ExpectBegin()
	mockPool.ExpectQuery("FOR SHARE").
		WithArgs([]string{"acc-1"}).
		WillReturnRows(accountRow(pgxmock.NewRows(accountColumns), "acc-1", "Assets:Checking", pgDay(2024, 1, 31)))
	mockPool.ExpectRollback()

	tx, err := newTxManagerWithPool(mockPool).Begin(ctx)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}

	repo := NewTransactionRepository(mockPool)
	err = repo.Create(ctx, tx, &domain.Transaction{
		ID:   "txn-1",
		Date: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
		Flag: domain.FlagComplete,
		Postings: []*domain.Posting{
			{ID: "p-1", AccountID: "acc-1", Amount: decimal.NewFromInt(10), Currency: "USD"},
			{ID: "p-2", AccountID: "acc-1", Amount: decimal.NewFromInt(-10), Currency: "USD", Position: 1},
		},
	})
	if !errors.Is(err, domain.ErrInvalidPosting) || !errors.Is(err, domain.ErrAccountInactive) {
		t.Fatalf("expected ErrInvalidPosting and ErrAccountInactive, got %v", err)
	}

	if err := tx.Rollback(ctx); err != nil {
		t.Fatalf("rollback: %v", err)
	}

	assertExpectations(t, mockPool)
}

var transactionColumns = []string{"id", "date", "flag", "payee", "narration", "metadata", "created_at"}

func transactionRow(id string, date pgtype.Date) *pgxmock.Rows {
	created := timeToPgTimestamptz(time.Date(2024, 3, 15, 9, 0, 0, 0, time.UTC))
	return pgxmock.NewRows(transactionColumns).
		AddRow(id, date, "*", "Cafe", "lunch", []byte(`{}`), created)
}

func TestTransactionRepositoryUpdatePostingRejectsClosedTarget(t *testing.T) {
	ctx := context.Background()
	mockPool := newMockPool(t)
	mockPool.ExpectBegin()
	mockPool.ExpectQuery("FROM transactions WHERE id").
		WithArgs("txn-1").
		WillReturnRows(transactionRow("txn-1", pgDay(2024, 3, 15)))
	mockPool.ExpectQuery("FOR SHARE").
		WithArgs([]string{"acc-dining"}).
		WillReturnRows(accountRow(pgxmock.NewRows(accountColumns), "acc-dining", "Expenses:Dining", pgDay(2024, 2, 1)))
	mockPool.ExpectRollback()

	tx, err := newTxManagerWithPool(mockPool).Begin(ctx)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}

	repo := NewTransactionRepository(mockPool)
	err = repo.UpdatePosting(ctx, tx, &domain.Posting{
		ID:            "p-1",
		TransactionID: "txn-1",
		AccountID:     "acc-dining",
	})
	if !errors.Is(err, domain.ErrAccountInactive) {
		t.Fatalf("expected ErrAccountInactive, got %v", err)
	}

	if err := tx.Rollback(ctx); err != nil {
		t.Fatalf("rollback: %v", err)
	}

	assertExpectations(t, mockPool)
}

func TestTransactionRepositoryGetByIDReadsOneSnapshot(t *testing.T) {
	ctx := context.Background()
	mockPool := newMockPool(t)
	mockPool.ExpectBeginTx(pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly})
	mockPool.ExpectQuery("FROM transactions WHERE id").
		WithArgs("txn-1").
		WillReturnRows(transactionRow("txn-1", pgDay(2024, 3, 15)))
	mockPool.ExpectQuery("FROM postings").
		WithArgs([]string{"txn-1"}).
		WillReturnRows(pgxmock.NewRows([]string{"id", "transaction_id", "account_id", "amount", "currency", "position", "metadata"}).
			AddRow("p-1", "txn-1", "acc-food", decimalToNumeric(decimal.RequireFromString("12.50")), "USD", int32(0), []byte(`{}`)).
			AddRow("p-2", "txn-1", "acc-cash", decimalToNumeric(decimal.RequireFromString("-12.50")), "USD", int32(1), []byte(`{}`)))
	mockPool.ExpectQuery("FROM transaction_tags").
		WithArgs([]string{"txn-1"}).
		WillReturnRows(pgxmock.NewRows([]string{"transaction_id", "tag"}).AddRow("txn-1", "work"))
	mockPool.ExpectQuery("FROM transaction_links").
		WithArgs([]string{"txn-1"}).
		WillReturnRows(pgxmock.NewRows([]string{"transaction_id", "link"}))
	mockPool.ExpectCommit()

	txn, err := NewTransactionRepository(mockPool).GetByID(ctx, "txn-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(txn.Postings) != 2 || txn.Postings[1].AccountID != "acc-cash" {
		t.Fatalf("unexpected postings %+v", txn.Postings)
	}
	if len(txn.Tags) != 1 || txn.Tags[0] != "work" {
		t.Fatalf("unexpected tags %v", txn.Tags)
	}

	assertExpectations(t, mockPool)
}

func TestTransactionRepositoryGetByIDMissingRollsBack(t *testing.T) {
	mockPool := newMockPool(t)
	mockPool.ExpectBeginTx(pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly})
	mockPool.ExpectQuery("FROM transactions WHERE id").
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)
	mockPool.ExpectRollback()

	_, err := NewTransactionRepository(mockPool).GetByID(context.Background(), "missing")
	if !errors.Is(err, domain.ErrTransactionNotFound) {
		t.Fatalf("expected ErrTransactionNotFound, got %v", err)
	}

	assertExpectations(t, mockPool)
}

func TestTransactionRepositoryStatementPostingsReadsOneSnapshot(t *testing.T) {
	mockPool := newMockPool(t)
	mockPool.ExpectBeginTx(pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly})
	mockPool.ExpectQuery("GROUP BY p.currency").
		WithArgs("acc-checking", pgDay(2024, 2, 29)).
		WillReturnRows(pgxmock.NewRows([]string{"currency", "total"}).
			AddRow("USD", decimalToNumeric(decimal.RequireFromString("100"))))
	mockPool.ExpectQuery("ORDER BY t.date, p.transaction_id, p.id").
		WithArgs("acc-checking", pgDay(2024, 3, 1), pgDay(2024, 3, 31)).
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "transaction_id", "account_id", "amount", "currency", "position", "metadata", "date", "payee", "narration",
		}).AddRow("p-2", "txn-1", "acc-checking", decimalToNumeric(decimal.RequireFromString("-52.50")), "USD", int32(1), []byte(`{}`),
			pgDay(2024, 3, 15), "Whole Foods", "groceries"))
	mockPool.ExpectCommit()

	opening, records, err := NewTransactionRepository(mockPool).StatementPostings(context.Background(), "acc-checking",
		time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !opening.Get("USD").Equal(decimal.NewFromInt(100)) {
		t.Fatalf("unexpected opening balance %v", opening)
	}
	if len(records) != 1 || records[0].Posting.ID != "p-2" || records[0].Payee != "Whole Foods" {
		t.Fatalf("unexpected records %+v", records)
	}

	assertExpectations(t, mockPool)
}

func TestTransactionRepositoryResiduals(t *testing.T) {
	mockPool := newMockPool(t)
	mockPool.ExpectQuery("HAVING SUM").
		WillReturnRows(pgxmock.NewRows([]string{"transaction_id", "currency", "total"}).
			AddRow("txn-1", "USD", decimalToNumeric(decimal.RequireFromString("0.5"))).
			AddRow("txn-1", "EUR", decimalToNumeric(decimal.RequireFromString("-1.25"))))

	residuals, err := NewTransactionRepository(mockPool).Residuals(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got := residuals["txn-1"]
	if !got.Get("USD").Equal(decimal.RequireFromString("0.5")) || !got.Get("EUR").Equal(decimal.RequireFromString("-1.25")) {
		t.Fatalf("unexpected residuals %v", got)
	}

	assertExpectations(t, mockPool)
}

func TestTransactionRepositorySumByAccountTypesSingleStatement(t *testing.T) {
	mockPool := newMockPool(t)
	mockPool.ExpectQuery("GROUP BY a.account_type, p.currency").
		WithArgs([]string{"Assets", "Liabilities"}, pgDay(2024, 3, 1)).
		WillReturnRows(pgxmock.NewRows([]string{"account_type", "currency", "total"}).
			AddRow("Assets", "USD", decimalToNumeric(decimal.RequireFromString("1000"))))

	sums, err := NewTransactionRepository(mockPool).SumByAccountTypes(context.Background(),
		[]domain.AccountType{domain.AccountTypeAssets, domain.AccountTypeLiabilities},
		time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !sums[domain.AccountTypeAssets].Get("USD").Equal(decimal.NewFromInt(1000)) {
		t.Fatalf("unexpected assets %v", sums[domain.AccountTypeAssets])
	}
	if liabilities, ok := sums[domain.AccountTypeLiabilities]; !ok || len(liabilities) != 0 {
		t.Fatalf("expected an empty liabilities entry, got %v (present=%v)", liabilities, ok)
	}

	assertExpectations(t, mockPool)
}

func TestForeignTransactionRejected(t *testing.T) {
	repo := NewOutboxRepository(newMockPool(t))

	err := repo.Create(context.Background(), foreignTx{}, &domain.OutboxEvent{ID: "evt-1"})
	if !errors.Is(err, ErrForeignTx) {
		t.Fatalf("expected ErrForeignTx, got %v", err)
	}
}

func TestEscapeLike(t *testing.T) {
	if got := escapeLike(`50%_off\`); got != `50\%\_off\\` {
		t.Fatalf("unexpected escape result %q", got)
	}
}

type foreignTx struct{}

func (foreignTx) Commit(context.Context) error   { return nil }
func (foreignTx) Rollback(context.Context) error { return nil }
