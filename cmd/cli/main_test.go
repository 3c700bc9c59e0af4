package main

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httpAdapter "github.com/iho/beanledger/internal/adapter/http"
	"github.com/iho/beanledger/internal/adapter/http/dto"
	"github.com/iho/beanledger/internal/adapter/http/handler"
	"github.com/iho/beanledger/internal/adapter/repository/memory"
	"github.com/iho/beanledger/internal/infrastructure/auth"
	"github.com/iho/beanledger/internal/usecase"
	"github.com/iho/beanledger/internal/usecase/mocks"
)

func newTestAPI(t *testing.T) *httptest.Server {
	t.Helper()

	store := memory.NewStore()
	txManager := memory.NewTxManager(store)
	accountRepo := memory.NewAccountRepository(store)
	txnRepo := memory.NewTransactionRepository(store)
	assertionRepo := memory.NewAssertionRepository(store)
	outboxRepo := memory.NewOutboxRepository(store)
	idGen := mocks.NewSequenceIDGenerator("id")

	accountUC := usecase.NewAccountUseCase(txManager, accountRepo, outboxRepo, idGen)
	ledgerUC := usecase.NewLedgerUseCase(txManager, accountRepo, txnRepo, outboxRepo, idGen)
	balanceUC := usecase.NewBalanceUseCase(accountRepo, txnRepo)
	assertionUC := usecase.NewAssertionUseCase(txManager, accountRepo, balanceUC, assertionRepo, outboxRepo, idGen)

	srv := httptest.NewServer(httpAdapter.NewRouter(httpAdapter.RouterConfig{
		AccountHandler:     handler.NewAccountHandler(accountUC, balanceUC),
		TransactionHandler: handler.NewTransactionHandler(ledgerUC, accountUC, nil),
		SearchHandler:      handler.NewSearchHandler(usecase.NewSearchUseCase(txnRepo)),
		ReportHandler:      handler.NewReportHandler(balanceUC, ledgerUC),
		AssertionHandler:   handler.NewAssertionHandler(assertionUC, accountUC),
		HealthHandler:      handler.NewHealthHandler(nil),
		Logger:             zerolog.Nop(),
	}))
	t.Cleanup(srv.Close)

	return srv
}

func runCLI(t *testing.T, baseURL string, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--url", baseURL}, args...))

	err := cmd.Execute()
	return out.String(), err
}

func writeChart(t *testing.T) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "chart.yaml")
	chart := `currency: USD
open_date: 2024-01-01
accounts:
  - name: Assets:Bank:Checking
  - name: Expenses:Food:Groceries
    description: Supermarket runs
  - name: Assets:Brokerage
    currency: EUR
    open_date: 2024-02-01
`
	require.NoError(t, os.WriteFile(path, []byte(chart), 0o600))
	return path
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "lon...", truncate("longerstring", 6))
	assert.Equal(t, "lo", truncate("longerstring", 2))
}

func TestPrintJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, printJSON(&buf, struct {
		A int `json:"a"`
	}{A: 1}))

	assert.Equal(t, "{\n  \"a\": 1\n}\n", buf.String())
}

func TestFormatAmount(t *testing.T) {
	tests := []struct {
		amount   string
		currency string
		expected string
	}{
		{"12.5", "USD", "$12.50"},
		{"-3", "USD", "-$3.00"},
		{"1234.56", "USD", "$1,234.56"},
		{"0.001", "USD", "0.001 USD"},
		{"1.5", "ZZZ", "1.5 ZZZ"},
	}

	for _, tt := range tests {
		t.Run(tt.amount+" "+tt.currency, func(t *testing.T) {
			assert.Equal(t, tt.expected, formatAmount(decimal.RequireFromString(tt.amount), tt.currency))
		})
	}

	assert.Equal(t, "0", formatAmounts(nil))
	assert.Equal(t, "$1.00, 2 ZZZ", formatAmounts([]dto.AmountResponse{
		{Currency: "USD", Amount: decimal.NewFromInt(1)},
		{Currency: "ZZZ", Amount: decimal.NewFromInt(2)},
	}))
}

func TestParsePosting(t *testing.T) {
	p, err := parsePosting("Expenses:Food 12.50 usd")
	require.NoError(t, err)
	assert.Equal(t, "Expenses:Food", p.Account)
	assert.Empty(t, p.AccountID)
	require.NotNil(t, p.Amount)
	assert.True(t, p.Amount.Equal(decimal.RequireFromString("12.50")))
	assert.Equal(t, "USD", p.Currency)

	p, err = parsePosting("01HXYZACCOUNT")
	require.NoError(t, err)
	assert.Equal(t, "01HXYZACCOUNT", p.AccountID)
	assert.Nil(t, p.Amount)

	_, err = parsePosting("Expenses:Food 12.50")
	assert.Error(t, err)

	_, err = parsePosting("Expenses:Food lots USD")
	assert.ErrorContains(t, err, "invalid amount")
}

func TestLoadChart_AppliesDefaults(t *testing.T) {
	chart, err := loadChart(writeChart(t))
	require.NoError(t, err)

	reqs := chart.requests()
	require.Len(t, reqs, 3)

	assert.Equal(t, "Assets:Bank:Checking", reqs[0].Name)
	assert.Equal(t, "USD", reqs[0].Currency)
	assert.Equal(t, "2024-01-01", reqs[0].OpenDate)
	assert.Equal(t, "Supermarket runs", reqs[1].Description)
	assert.Equal(t, "EUR", reqs[2].Currency)
	assert.Equal(t, "2024-02-01", reqs[2].OpenDate)
}

func TestLoadChart_Errors(t *testing.T) {
	_, err := loadChart(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	empty := filepath.Join(t.TempDir(), "empty.yaml")
	require.NoError(t, os.WriteFile(empty, []byte("currency: USD\n"), 0o600))
	_, err = loadChart(empty)
	assert.ErrorContains(t, err, "lists no accounts")
}

func TestCLI_LedgerWorkflow(t *testing.T) {
	srv := newTestAPI(t)
	chart := writeChart(t)

	out, err := runCLI(t, srv.URL, "accounts", "seed", "--file", chart)
	require.NoError(t, err, out)
	assert.Contains(t, out, "3 opened, 0 already present")

	out, err = runCLI(t, srv.URL, "accounts", "seed", "--file", chart)
	require.NoError(t, err, out)
	assert.Contains(t, out, "0 opened, 3 already present")

	out, err = runCLI(t, srv.URL, "accounts", "list", "--prefix", "Assets")
	require.NoError(t, err, out)
	assert.Contains(t, out, "Assets:Bank:Checking")
	assert.Contains(t, out, "Assets:Brokerage")
	assert.NotContains(t, out, "Expenses:Food:Groceries")

	out, err = runCLI(t, srv.URL, "transactions", "create",
		"--date", "2024-03-01",
		"--payee", "Corner Shop",
		"--tag", "food",
		"--posting", "Expenses:Food:Groceries 42.10 USD",
		"--posting", "Assets:Bank:Checking",
	)
	require.NoError(t, err, out)
	assert.Contains(t, out, `2024-03-01 * "Corner Shop" #food`)
	assert.Contains(t, out, "-$42.10")

	out, err = runCLI(t, srv.URL, "accounts", "balance", "Assets:Bank:Checking")
	require.NoError(t, err, out)
	assert.Contains(t, out, "-$42.10")

	out, err = runCLI(t, srv.URL, "accounts", "balances", "--prefix", "Assets")
	require.NoError(t, err, out)
	assert.Contains(t, out, "Assets:Bank:Checking")
	assert.NotContains(t, out, "Assets:Brokerage", "zero balances are omitted")

	out, err = runCLI(t, srv.URL, "accounts", "statement", "Expenses:Food:Groceries", "--start", "2024-01-01")
	require.NoError(t, err, out)
	assert.Contains(t, out, "Opening balance:")
	assert.Contains(t, out, "Corner Shop")
	assert.Contains(t, out, "Closing balance: $42.10")

	out, err = runCLI(t, srv.URL, "search", "-q", "corner")
	require.NoError(t, err, out)
	assert.Contains(t, out, "Corner Shop")

	out, err = runCLI(t, srv.URL, "search", "--tag", "travel")
	require.NoError(t, err, out)
	assert.Contains(t, out, "no transactions")

	out, err = runCLI(t, srv.URL, "networth", "--json")
	require.NoError(t, err, out)
	assert.Contains(t, out, `"currency": "USD"`)

	out, err = runCLI(t, srv.URL, "assertions", "record", "--date", "2024-03-02", "--", "Assets:Bank:Checking", "-42.10", "USD")
	require.NoError(t, err, out)
	assert.Contains(t, out, "recorded")

	out, err = runCLI(t, srv.URL, "assertions", "verify-all")
	require.NoError(t, err, out)
	assert.Contains(t, out, "1 passed, 0 failed")

	_, err = runCLI(t, srv.URL, "assertions", "record", "--date", "2024-03-03", "Assets:Bank:Checking", "100", "USD")
	require.NoError(t, err)

	out, err = runCLI(t, srv.URL, "assertions", "verify-all")
	assert.EqualError(t, err, "1 assertion(s) failed")
	assert.Contains(t, out, "FAIL")

	out, err = runCLI(t, srv.URL, "ledger", "consistency")
	require.NoError(t, err, out)
	assert.Contains(t, out, "Consistency check PASSED")
}

func TestCLI_ReportsAPIErrors(t *testing.T) {
	srv := newTestAPI(t)

	_, err := runCLI(t, srv.URL, "accounts", "get", "Assets:Nowhere")
	require.Error(t, err)

	var apiErr *apiError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.Status)

	_, err = runCLI(t, srv.URL, "transactions", "create", "--date", "2024-03-01", "--posting", "Assets:Cash 1 USD")
	assert.ErrorContains(t, err, "at least two --posting flags")
}

func TestCheckConsistency_Inconsistent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/ledger/consistency", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"consistent":false,"imbalances":[{"transaction_id":"txn-7","currency":"USD","residual":"0.05"}]}`))
	}))
	defer srv.Close()

	out, err := runCLI(t, srv.URL, "ledger", "consistency")

	assert.EqualError(t, err, "ledger is inconsistent")
	assert.Contains(t, out, "Consistency check FAILED")
	assert.Contains(t, out, "txn-7")
	assert.Contains(t, out, "0.05")
}

func TestCLI_SendsBearerToken(t *testing.T) {
	var seen string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"accounts":[],"total":0}`))
	}))
	defer srv.Close()

	_, err := runCLI(t, srv.URL, "--token", "abc", "accounts", "list")
	require.NoError(t, err)
	assert.Equal(t, "Bearer abc", seen)
}

func TestTokenIssue(t *testing.T) {
	out, err := runCLI(t, "http://unused",
		"token", "issue", "--secret", "s3cret", "--issuer", "beanledger",
		"--subject", "importer-bot", "--role", "ingestor", "--ttl", "1h")
	require.NoError(t, err, out)

	claims, err := auth.NewJWTManager("s3cret", "beanledger", time.Hour).Verify(strings.TrimSpace(out))
	require.NoError(t, err)
	assert.Equal(t, "importer-bot", claims.Subject)
	assert.Equal(t, auth.RoleIngestor, claims.Role)

	_, err = runCLI(t, "http://unused", "token", "issue", "--secret", "s3cret", "--subject", "x", "--role", "owner")
	assert.ErrorIs(t, err, auth.ErrUnknownRole)
}
