package handler

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/iho/beanledger/internal/adapter/http/dto"
	"github.com/iho/beanledger/internal/domain"
	"github.com/iho/beanledger/internal/usecase"
)

// AccountService defines the behavior needed by AccountHandler.
type AccountService interface {
	CreateAccount(ctx context.Context, input usecase.CreateAccountInput) (*domain.Account, error)
	GetAccount(ctx context.Context, id string) (*domain.Account, error)
	GetAccountByName(ctx context.Context, name string) (*domain.Account, error)
	CloseAccount(ctx context.Context, id string, closeDate time.Time) (*domain.Account, error)
	ListAccounts(ctx context.Context, filter domain.AccountFilter) ([]*domain.Account, error)
}

// BalanceService defines the read models needed by AccountHandler.
type BalanceService interface {
	GetBalance(ctx context.Context, accountID string, asOf time.Time) (domain.Balance, error)
	GetAccountStatement(ctx context.Context, accountID string, start, end time.Time) (*usecase.Statement, error)
	LatestBalances(ctx context.Context, filter domain.AccountFilter) (map[string]domain.Balance, error)
}

// AccountLookup resolves account names to accounts.
type AccountLookup interface {
	GetAccountByName(ctx context.Context, name string) (*domain.Account, error)
}

// resolveAccount returns the ID named by ref.
func resolveAccount(ctx context.Context, lookup AccountLookup, ref dto.AccountRef) (string, error) {
	if ref.AccountID != "" {
		return ref.AccountID, nil
	}
	if ref.Account == "" {
		return "", fmt.Errorf("%w: account_id or account is required", domain.ErrInvalidQuery)
	}

	account, err := lookup.GetAccountByName(ctx, ref.Account)
	if err != nil {
		return "", err
	}

	return account.ID, nil
}

// AccountHandler handles account-related HTTP requests.
type AccountHandler struct {
	accountUC AccountService
	balanceUC BalanceService
}

// NewAccountHandler creates a new AccountHandler.
func NewAccountHandler(accountUC AccountService, balanceUC BalanceService) *AccountHandler {
	return &AccountHandler{accountUC: accountUC, balanceUC: balanceUC}
}

// Create opens a new account.
func (h *AccountHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateAccountRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	input, err := req.ToUseCaseInput()
	if err != nil {
		writeDomainError(w, r, "invalid request body", err)
		return
	}

	account, err := h.accountUC.CreateAccount(r.Context(), input)
	if err != nil {
		writeDomainError(w, r, "failed to create account", err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.AccountFromDomain(account))
}

// Get retrieves an account by ID.
func (h *AccountHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing account ID", "")
		return
	}

	account, err := h.accountUC.GetAccount(r.Context(), id)
	if err != nil {
		writeDomainError(w, r, "failed to get account", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.AccountFromDomain(account))
}

// Lookup retrieves the active account with the given name.
func (h *AccountHandler) Lookup(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	if name == "" {
		writeError(w, http.StatusBadRequest, "missing account name", "")
		return
	}

	account, err := h.accountUC.GetAccountByName(r.Context(), name)
	if err != nil {
		writeDomainError(w, r, "failed to get account", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.AccountFromDomain(account))
}

// List lists accounts ordered by name. Supported filters: type, prefix and
// active (true/false).
func (h *AccountHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := domain.AccountFilter{
		Type:       domain.AccountType(q.Get("type")),
		NamePrefix: q.Get("prefix"),
		Limit:      parseIntQuery(r, "limit", 100),
		Offset:     parseIntQuery(r, "offset", 0),
	}

	if v := q.Get("active"); v != "" {
		active, err := strconv.ParseBool(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid active filter", err.Error())
			return
		}
		filter.Active = &active
	}

	accounts, err := h.accountUC.ListAccounts(r.Context(), filter)
	if err != nil {
		writeDomainError(w, r, "failed to list accounts", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ListAccountsResponse{
		Accounts: dto.AccountsFromDomain(accounts),
		Total:    int64(len(accounts)),
	})
}

// Close closes an account as of close_date (today when omitted).
func (h *AccountHandler) Close(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req dto.CloseAccountRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
			return
		}
	}

	closeDate, err := dto.ParseDate(req.CloseDate)
	if err != nil {
		writeDomainError(w, r, "invalid request body", err)
		return
	}

	account, err := h.accountUC.CloseAccount(r.Context(), id, closeDate)
	if err != nil {
		writeDomainError(w, r, "failed to close account", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.AccountFromDomain(account))
}

// Balance returns the account balance as of as_of (today when omitted).
func (h *AccountHandler) Balance(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	asOf, err := asOfQuery(r)
	if err != nil {
		writeDomainError(w, r, "invalid as_of", err)
		return
	}
	if asOf.IsZero() {
		asOf = time.Now().UTC()
	}

	balance, err := h.balanceUC.GetBalance(r.Context(), id, asOf)
	if err != nil {
		writeDomainError(w, r, "failed to get balance", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.BalanceResponse{
		AccountID: id,
		AsOf:      asOf.Format(domain.DateLayout),
		Balances:  dto.AmountsFromBalance(balance),
	})
}

// Balances returns today's non-zero balance of every active account matching
// the type and prefix filters.
func (h *AccountHandler) Balances(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := domain.AccountFilter{
		Type:       domain.AccountType(q.Get("type")),
		NamePrefix: q.Get("prefix"),
	}

	balances, err := h.balanceUC.LatestBalances(r.Context(), filter)
	if err != nil {
		writeDomainError(w, r, "failed to get balances", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.BalancesFromMap(time.Now().UTC(), balances))
}

// Statement lists the account's postings between start and end with
// running balances.
func (h *AccountHandler) Statement(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	start, err := parseDateQuery(r, "start")
	if err != nil {
		writeDomainError(w, r, "invalid start", err)
		return
	}
	end, err := parseDateQuery(r, "end")
	if err != nil {
		writeDomainError(w, r, "invalid end", err)
		return
	}

	var from, to time.Time
	if start != nil {
		from = *start
	}
	if end != nil {
		to = *end
	}

	statement, err := h.balanceUC.GetAccountStatement(r.Context(), id, from, to)
	if err != nil {
		writeDomainError(w, r, "failed to build statement", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.StatementFromUseCase(statement))
}
