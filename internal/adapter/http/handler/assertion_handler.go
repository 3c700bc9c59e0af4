package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/iho/beanledger/internal/adapter/http/dto"
	"github.com/iho/beanledger/internal/domain"
	"github.com/iho/beanledger/internal/usecase"
)

// AssertionService defines the behavior needed by AssertionHandler.
type AssertionService interface {
	RecordAssertion(ctx context.Context, input usecase.RecordAssertionInput) (*domain.BalanceAssertion, error)
	VerifyByID(ctx context.Context, id string) (*domain.AssertionResult, error)
	ListAssertions(ctx context.Context, accountID string) ([]*domain.BalanceAssertion, error)
	VerifyAll(ctx context.Context, asOf time.Time) (*usecase.ReconciliationReport, error)
}

// AssertionHandler handles balance assertion requests.
type AssertionHandler struct {
	assertionUC AssertionService
	accounts    AccountLookup
}

// NewAssertionHandler creates a new AssertionHandler.
func NewAssertionHandler(assertionUC AssertionService, accounts AccountLookup) *AssertionHandler {
	return &AssertionHandler{assertionUC: assertionUC, accounts: accounts}
}

// Record stores an assertion. A failing assertion is recorded as well; use
// Verify to check it.
func (h *AssertionHandler) Record(w http.ResponseWriter, r *http.Request) {
	var req dto.RecordAssertionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	accountID, err := resolveAccount(r.Context(), h.accounts, req.AccountRef)
	if err != nil {
		writeDomainError(w, r, "invalid account", err)
		return
	}

	input, err := req.ToUseCaseInput(accountID)
	if err != nil {
		writeDomainError(w, r, "invalid assertion", err)
		return
	}

	assertion, err := h.assertionUC.RecordAssertion(r.Context(), input)
	if err != nil {
		writeDomainError(w, r, "failed to record assertion", err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.AssertionFromDomain(assertion))
}

// ListByAccount lists the assertions of an account, oldest first.
func (h *AssertionHandler) ListByAccount(w http.ResponseWriter, r *http.Request) {
	assertions, err := h.assertionUC.ListAssertions(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, r, "failed to list assertions", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.AssertionsFromDomain(assertions))
}

// Verify checks one stored assertion against the ledger.
func (h *AssertionHandler) Verify(w http.ResponseWriter, r *http.Request) {
	result, err := h.assertionUC.VerifyByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, r, "failed to verify assertion", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.AssertionResultFromDomain(result))
}

// VerifyAll checks every assertion dated on or before as_of.
func (h *AssertionHandler) VerifyAll(w http.ResponseWriter, r *http.Request) {
	asOf, err := asOfQuery(r)
	if err != nil {
		writeDomainError(w, r, "invalid as_of", err)
		return
	}

	report, err := h.assertionUC.VerifyAll(r.Context(), asOf)
	if err != nil {
		writeDomainError(w, r, "failed to verify assertions", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ReconciliationFromUseCase(report))
}
