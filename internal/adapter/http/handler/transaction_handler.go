package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/iho/beanledger/internal/adapter/http/dto"
	"github.com/iho/beanledger/internal/domain"
	"github.com/iho/beanledger/internal/usecase"
)

// LedgerService defines the ledger operations needed by TransactionHandler.
type LedgerService interface {
	CreateTransaction(ctx context.Context, input usecase.CreateTransactionInput) (*domain.Transaction, error)
	RecategorizePosting(ctx context.Context, input usecase.RecategorizePostingInput) (*domain.Transaction, error)
	GetTransaction(ctx context.Context, id string) (*domain.Transaction, error)
	ListTransactionsByLink(ctx context.Context, link string) ([]*domain.Transaction, error)
}

type noRetry struct{}

func (noRetry) Retry(_ context.Context, operation func() error) error { return operation() }

// TransactionHandler handles transaction-related HTTP requests.
type TransactionHandler struct {
	ledgerUC LedgerService
	accounts AccountLookup
	retrier  usecase.Retrier
}

// NewTransactionHandler creates a new TransactionHandler. A nil retrier runs
// every write exactly once.
func NewTransactionHandler(ledgerUC LedgerService, accounts AccountLookup, retrier usecase.Retrier) *TransactionHandler {
	if retrier == nil {
		retrier = noRetry{}
	}
	return &TransactionHandler{ledgerUC: ledgerUC, accounts: accounts, retrier: retrier}
}

// Create records a balanced transaction. Postings may name accounts by ID or
// by full name; at most one posting per currency may omit its amount.
func (h *TransactionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateTransactionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	ctx := r.Context()
	input, err := req.ToUseCaseInput(func(ref dto.AccountRef) (string, error) {
		return resolveAccount(ctx, h.accounts, ref)
	})
	if err != nil {
		writeDomainError(w, r, "invalid transaction", err)
		return
	}

	var txn *domain.Transaction
	err = h.retrier.Retry(ctx, func() error {
		var createErr error
		txn, createErr = h.ledgerUC.CreateTransaction(ctx, input)
		return createErr
	})
	if err != nil {
		writeDomainError(w, r, "failed to create transaction", err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.TransactionFromDomain(txn))
}

// Get retrieves a transaction with its postings.
func (h *TransactionHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing transaction ID", "")
		return
	}

	txn, err := h.ledgerUC.GetTransaction(r.Context(), id)
	if err != nil {
		writeDomainError(w, r, "failed to get transaction", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.TransactionFromDomain(txn))
}

// Recategorize moves one posting to another account.
func (h *TransactionHandler) Recategorize(w http.ResponseWriter, r *http.Request) {
	var req dto.RecategorizePostingRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	ctx := r.Context()
	accountID, err := resolveAccount(ctx, h.accounts, req.AccountRef)
	if err != nil {
		writeDomainError(w, r, "invalid target account", err)
		return
	}

	input := usecase.RecategorizePostingInput{
		TransactionID: chi.URLParam(r, "id"),
		PostingID:     chi.URLParam(r, "postingID"),
		AccountID:     accountID,
		Metadata:      req.Metadata,
	}

	var txn *domain.Transaction
	err = h.retrier.Retry(ctx, func() error {
		var updateErr error
		txn, updateErr = h.ledgerUC.RecategorizePosting(ctx, input)
		return updateErr
	})
	if err != nil {
		writeDomainError(w, r, "failed to recategorize posting", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.TransactionFromDomain(txn))
}

// ByLink lists the transactions carrying a link.
func (h *TransactionHandler) ByLink(w http.ResponseWriter, r *http.Request) {
	txns, err := h.ledgerUC.ListTransactionsByLink(r.Context(), chi.URLParam(r, "link"))
	if err != nil {
		writeDomainError(w, r, "failed to list transactions", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.TransactionsFromDomain(txns))
}
