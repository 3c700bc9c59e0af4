// Package testutil provides shared fixtures for tests that need a real
// PostgreSQL database.
package testutil

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"github.com/iho/beanledger/internal/domain"
	"github.com/iho/beanledger/internal/infrastructure/postgres"
	"github.com/iho/beanledger/internal/infrastructure/postgres/generated"
)

// TestDB provides an isolated test database connection.
type TestDB struct {
	Pool    *pgxpool.Pool
	Queries *generated.Queries
	t       *testing.T
}

// NewTestDB connects to DATABASE_URL and applies the embedded migrations.
// The test is skipped when DATABASE_URL is unset or -short is given.
func NewTestDB(t *testing.T) *TestDB {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping integration test")
	}

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		t.Skip("DATABASE_URL not set")
	}

	if err := postgres.NewMigrator(dbURL, "", zerolog.Nop()).Up(); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := postgres.NewPool(ctx, dbURL, 10, 0)
	if err != nil {
		t.Fatalf("failed to connect to test database: %v", err)
	}

	db := &TestDB{
		Pool:    pool,
		Queries: generated.New(pool),
		t:       t,
	}
	t.Cleanup(db.Cleanup)

	db.TruncateAll(ctx)

	return db
}

// Cleanup closes the database connection.
func (db *TestDB) Cleanup() {
	db.Pool.Close()
}

// TruncateAll removes all data. TRUNCATE bypasses the append-only row triggers.
func (db *TestDB) TruncateAll(ctx context.Context) {
	db.t.Helper()

	_, err := db.Pool.Exec(ctx, `
		TRUNCATE TABLE outbox_events, balance_assertions, transaction_links,
			transaction_tags, postings, transactions, accounts CASCADE;
	`)
	if err != nil {
		db.t.Fatalf("failed to truncate tables: %v", err)
	}
}

// CreateTestAccount inserts an open account directly, bypassing the use cases.
func (db *TestDB) CreateTestAccount(ctx context.Context, name, currency string, openDate time.Time) *domain.Account {
	db.t.Helper()

	accountType, err := domain.ParseAccountName(name)
	if err != nil {
		db.t.Fatalf("invalid test account name %q: %v", name, err)
	}

	now := time.Now().UTC()
	id := GenerateID()
	ts := pgtype.Timestamptz{Time: now, Valid: true}

	err = db.Queries.CreateAccount(ctx, generated.CreateAccountParams{
		ID:          id,
		Name:        name,
		AccountType: string(accountType),
		Currency:    currency,
		Metadata:    []byte("{}"),
		OpenDate:    pgtype.Date{Time: domain.TruncateDate(openDate), Valid: true},
		CreatedAt:   ts,
		UpdatedAt:   ts,
	})
	if err != nil {
		db.t.Fatalf("failed to create test account: %v", err)
	}

	return &domain.Account{
		ID:        id,
		Name:      name,
		Type:      accountType,
		Currency:  currency,
		OpenDate:  domain.TruncateDate(openDate),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// GenerateID generates a new ULID.
func GenerateID() string {
	return ulid.Make().String()
}
