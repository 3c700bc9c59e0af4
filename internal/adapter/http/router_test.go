package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iho/beanledger/internal/adapter/http/dto"
	"github.com/iho/beanledger/internal/adapter/http/handler"
	apimiddleware "github.com/iho/beanledger/internal/adapter/http/middleware"
	"github.com/iho/beanledger/internal/adapter/repository/memory"
	"github.com/iho/beanledger/internal/infrastructure/auth"
	"github.com/iho/beanledger/internal/infrastructure/metrics"
	"github.com/iho/beanledger/internal/usecase"
	"github.com/iho/beanledger/internal/usecase/mocks"
)

func newRouterConfig(opts ...func(*RouterConfig)) RouterConfig {
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

	cfg := RouterConfig{
		AccountHandler:     handler.NewAccountHandler(accountUC, balanceUC),
		TransactionHandler: handler.NewTransactionHandler(ledgerUC, accountUC, nil),
		SearchHandler:      handler.NewSearchHandler(usecase.NewSearchUseCase(txnRepo)),
		ReportHandler:      handler.NewReportHandler(balanceUC, ledgerUC),
		AssertionHandler:   handler.NewAssertionHandler(assertionUC, accountUC),
		HealthHandler:      handler.NewHealthHandler(nil),
		Logger:             zerolog.Nop(),
	}

	for _, opt := range opts {
		opt(&cfg)
	}

	return cfg
}

type apiClient struct {
	t      *testing.T
	router http.Handler
	token  string
}

func (c *apiClient) do(method, path, body string, headers ...string) *httptest.ResponseRecorder {
	c.t.Helper()

	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	rec := httptest.NewRecorder()
	c.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()

	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestNewRouter_HealthEndpointAvailable(t *testing.T) {
	router := NewRouter(newRouterConfig())

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected /health to return 200, got %d", rec.Code)
	}
}

func TestNewRouter_LedgerWorkflow(t *testing.T) {
	api := &apiClient{t: t, router: NewRouter(newRouterConfig())}

	for _, name := range []string{"Assets:Bank:Checking", "Expenses:Food", "Expenses:Food:Groceries"} {
		rec := api.do(http.MethodPost, "/api/v1/accounts",
			`{"name":"`+name+`","currency":"USD","open_date":"2024-01-01"}`)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	}

	rec := api.do(http.MethodPost, "/api/v1/accounts", `{"name":"Assets:Bank:Checking","currency":"USD"}`)
	assert.Equal(t, http.StatusConflict, rec.Code, "duplicate active name")

	rec = api.do(http.MethodPost, "/api/v1/transactions", `{
		"date": "2024-03-05",
		"payee": "Whole Foods",
		"narration": "weekly shop",
		"tags": ["food"],
		"links": ["receipt-1"],
		"postings": [
			{"account": "Expenses:Food", "amount": "52.50", "currency": "USD"},
			{"account": "Assets:Bank:Checking"}
		]
	}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	txn := decode[dto.TransactionResponse](t, rec)
	require.Len(t, txn.Postings, 2)
	assert.Equal(t, "-52.5", txn.Postings[1].Amount.String(), "inferred amount")

	rec = api.do(http.MethodPost, "/api/v1/transactions", `{
		"date": "2024-03-06",
		"postings": [
			{"account": "Expenses:Food", "amount": "10", "currency": "USD"},
			{"account": "Assets:Bank:Checking", "amount": "-9", "currency": "USD"}
		]
	}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code, "unbalanced transaction")

	checking := decode[dto.AccountResponse](t, api.do(http.MethodGet, "/api/v1/accounts/lookup?name=Assets:Bank:Checking", ""))

	rec = api.do(http.MethodGet, "/api/v1/accounts/"+checking.ID+"/balance?as_of=2024-12-31", "")
	require.Equal(t, http.StatusOK, rec.Code)
	balance := decode[dto.BalanceResponse](t, rec)
	require.Len(t, balance.Balances, 1)
	assert.Equal(t, "-52.5", balance.Balances[0].Amount.String())

	rec = api.do(http.MethodPatch, "/api/v1/transactions/"+txn.ID+"/postings/"+txn.Postings[0].ID,
		`{"account":"Expenses:Food:Groceries"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	groceries := decode[dto.AccountResponse](t, api.do(http.MethodGet, "/api/v1/accounts/lookup?name=Expenses:Food:Groceries", ""))
	assert.Equal(t, groceries.ID, decode[dto.TransactionResponse](t, rec).Postings[0].AccountID)

	rec = api.do(http.MethodGet, "/api/v1/search?q=whole&tag=food", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]dto.TransactionResponse](t, rec), 1)

	rec = api.do(http.MethodGet, "/api/v1/links/receipt-1/transactions", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]dto.TransactionResponse](t, rec), 1)

	rec = api.do(http.MethodPost, "/api/v1/assertions",
		`{"account":"Assets:Bank:Checking","date":"2024-04-01","amount":"-52.50","currency":"USD"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assertion := decode[dto.AssertionResponse](t, rec)

	rec = api.do(http.MethodGet, "/api/v1/assertions/"+assertion.ID+"/verify", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decode[dto.AssertionResultResponse](t, rec).Passed)

	rec = api.do(http.MethodGet, "/api/v1/assertions/verify?as_of=2024-12-31", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decode[dto.ReconciliationResponse](t, rec).Reconciled)

	rec = api.do(http.MethodGet, "/api/v1/reports/net-worth?as_of=2024-12-31", "")
	require.Equal(t, http.StatusOK, rec.Code)
	netWorth := decode[dto.NetWorthResponse](t, rec)
	require.Len(t, netWorth.Currencies, 1)
	assert.Equal(t, "-52.5", netWorth.Currencies[0].NetWorth.String())

	rec = api.do(http.MethodGet, "/api/v1/ledger/consistency", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decode[dto.ConsistencyResponse](t, rec).Consistent)

	rec = api.do(http.MethodGet, "/api/v1/accounts/"+checking.ID+"/statement?start=2024-01-01&end=2024-12-31", "")
	require.Equal(t, http.StatusOK, rec.Code)
	statement := decode[dto.StatementResponse](t, rec)
	require.Len(t, statement.Lines, 1)
	assert.Equal(t, "-52.5", statement.Lines[0].RunningBalance.String())
}

func TestNewRouter_AuthEnforcesRoles(t *testing.T) {
	manager := auth.NewJWTManager("router-secret", "beanledger", time.Hour)
	router := NewRouter(newRouterConfig(func(cfg *RouterConfig) {
		cfg.Authenticator = manager
	}))

	viewerToken, err := manager.Generate("auditor", auth.RoleViewer)
	require.NoError(t, err)
	adminToken, err := manager.Generate("owner", auth.RoleAdmin)
	require.NoError(t, err)

	anonymous := &apiClient{t: t, router: router}
	assert.Equal(t, http.StatusUnauthorized, anonymous.do(http.MethodGet, "/api/v1/accounts", "").Code)
	assert.Equal(t, http.StatusOK, anonymous.do(http.MethodGet, "/health", "").Code)

	viewer := &apiClient{t: t, router: router, token: viewerToken}
	assert.Equal(t, http.StatusOK, viewer.do(http.MethodGet, "/api/v1/accounts", "").Code)
	assert.Equal(t, http.StatusForbidden,
		viewer.do(http.MethodPost, "/api/v1/accounts", `{"name":"Assets:Cash","currency":"USD"}`).Code)

	admin := &apiClient{t: t, router: router, token: adminToken}
	assert.Equal(t, http.StatusCreated,
		admin.do(http.MethodPost, "/api/v1/accounts", `{"name":"Assets:Cash","currency":"USD"}`).Code)
}

func TestNewRouter_IdempotentCreateReplays(t *testing.T) {
	store := mocks.NewFakeIdempotencyStore()
	api := &apiClient{t: t, router: NewRouter(newRouterConfig(func(cfg *RouterConfig) {
		cfg.IdempotencyStore = store
	}))}

	body := `{"name":"Assets:Cash","currency":"USD"}`
	first := api.do(http.MethodPost, "/api/v1/accounts", body, apimiddleware.IdempotencyKeyHeader, "key-123")
	second := api.do(http.MethodPost, "/api/v1/accounts", body, apimiddleware.IdempotencyKeyHeader, "key-123")

	require.Equal(t, http.StatusCreated, first.Code)
	assert.Equal(t, http.StatusCreated, second.Code, "replay instead of duplicate error")
	assert.Equal(t, "true", second.Header().Get(apimiddleware.IdempotencyReplayHeader))
	assert.JSONEq(t, first.Body.String(), second.Body.String())
}

func TestNewRouter_RateLimiterBlocksExcessRequests(t *testing.T) {
	rl := apimiddleware.NewRateLimiter(0.001, 1, nil)
	router := NewRouter(newRouterConfig(func(cfg *RouterConfig) {
		cfg.RateLimiter = rl
	}))

	req1 := httptest.NewRequest(http.MethodGet, "/api/v1/accounts", nil)
	req1.RemoteAddr = "1.2.3.4:1234"
	rec1 := httptest.NewRecorder()
	router.ServeHTTP(rec1, req1)
	if rec1.Code != http.StatusOK {
		t.Fatalf("expected first request to succeed, got %d", rec1.Code)
	}

	req2 := httptest.NewRequest(http.MethodGet, "/api/v1/accounts", nil)
	req2.RemoteAddr = "1.2.3.4:1234"
	rec2 := httptest.NewRecorder()
	router.ServeHTTP(rec2, req2)
	if rec2.Code != http.StatusTooManyRequests {
		t.Fatalf("expected second request to be throttled, got %d", rec2.Code)
	}
}

func TestNewRouter_ExposesMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	router := NewRouter(newRouterConfig(func(cfg *RouterConfig) {
		cfg.Metrics = m
		cfg.MetricsHandler = promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
	}))

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/accounts", nil))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `beanledger_http_requests_total{method="GET",path="/api/v1/accounts`)
	assert.Contains(t, rec.Body.String(), "beanledger_http_requests_in_flight")
}

func TestNewRouter_RegistersKeyRoutes(t *testing.T) {
	router := NewRouter(newRouterConfig())

	chiRoutes, ok := router.(chi.Router)
	if !ok {
		t.Fatal("router does not implement chi.Routes")
	}

	seen := map[string]bool{}
	if err := chi.Walk(chiRoutes, func(method string, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
		seen[method+" "+route] = true
		return nil
	}); err != nil {
		t.Fatalf("walk failed: %v", err)
	}

	expected := []string{
		"GET /health",
		"GET /ready",
		"POST /api/v1/accounts/",
		"GET /api/v1/accounts/",
		"GET /api/v1/accounts/{id}",
		"POST /api/v1/accounts/{id}/close",
		"GET /api/v1/accounts/{id}/balance",
		"GET /api/v1/accounts/{id}/statement",
		"POST /api/v1/transactions/",
		"PATCH /api/v1/transactions/{id}/postings/{postingID}",
		"GET /api/v1/search",
		"POST /api/v1/assertions/",
		"GET /api/v1/assertions/verify",
		"GET /api/v1/ledger/consistency",
	}

	for _, route := range expected {
		if !seen[route] {
			t.Fatalf("expected route %s to be registered", route)
		}
	}
}
