package handler

import (
	"context"
	"net/http"

	"github.com/iho/beanledger/internal/adapter/http/dto"
	"github.com/iho/beanledger/internal/domain"
)

// SearchService finds transactions.
type SearchService interface {
	Search(ctx context.Context, filter domain.SearchFilter) ([]*domain.Transaction, error)
}

// SearchHandler serves transaction search.
type SearchHandler struct {
	searchUC SearchService
}

// NewSearchHandler creates a new SearchHandler.
func NewSearchHandler(searchUC SearchService) *SearchHandler {
	return &SearchHandler{searchUC: searchUC}
}

// Search filters transactions by q (payee or narration), tag, from, to, min
// and max. Results are newest first.
func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := domain.SearchFilter{
		Text:  q.Get("q"),
		Tag:   q.Get("tag"),
		Limit: parseIntQuery(r, "limit", 100),
	}

	var err error
	if filter.From, err = parseDateQuery(r, "from"); err != nil {
		writeDomainError(w, r, "invalid from", err)
		return
	}
	if filter.To, err = parseDateQuery(r, "to"); err != nil {
		writeDomainError(w, r, "invalid to", err)
		return
	}
	if filter.MinAmount, err = parseDecimalQuery(r, "min"); err != nil {
		writeDomainError(w, r, "invalid min", err)
		return
	}
	if filter.MaxAmount, err = parseDecimalQuery(r, "max"); err != nil {
		writeDomainError(w, r, "invalid max", err)
		return
	}

	txns, err := h.searchUC.Search(r.Context(), filter)
	if err != nil {
		writeDomainError(w, r, "search failed", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.TransactionsFromDomain(txns))
}
