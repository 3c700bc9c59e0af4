package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/iho/beanledger/internal/adapter/http/dto"
	"github.com/iho/beanledger/internal/domain"
	"github.com/iho/beanledger/internal/usecase"
)

// NetWorthService computes the net worth summary.
type NetWorthService interface {
	NetWorthSummary(ctx context.Context, asOf time.Time) ([]*domain.NetWorth, error)
}

// ConsistencyService re-checks that every stored transaction balances.
type ConsistencyService interface {
	CheckConsistency(ctx context.Context) (*usecase.ConsistencyReport, error)
}

// ReportHandler serves ledger-wide reports.
type ReportHandler struct {
	netWorth    NetWorthService
	consistency ConsistencyService
}

// NewReportHandler creates a new ReportHandler.
func NewReportHandler(netWorth NetWorthService, consistency ConsistencyService) *ReportHandler {
	return &ReportHandler{netWorth: netWorth, consistency: consistency}
}

// NetWorth returns assets, liabilities and net worth per currency.
func (h *ReportHandler) NetWorth(w http.ResponseWriter, r *http.Request) {
	asOf, err := asOfQuery(r)
	if err != nil {
		writeDomainError(w, r, "invalid as_of", err)
		return
	}
	if asOf.IsZero() {
		asOf = time.Now().UTC()
	}

	summary, err := h.netWorth.NetWorthSummary(r.Context(), asOf)
	if err != nil {
		writeDomainError(w, r, "failed to compute net worth", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.NetWorthFromDomain(asOf, summary))
}

// Consistency reports transactions whose postings no longer sum to zero,
// answering 409 when any exist.
func (h *ReportHandler) Consistency(w http.ResponseWriter, r *http.Request) {
	report, err := h.consistency.CheckConsistency(r.Context())
	if err != nil {
		writeDomainError(w, r, "consistency check failed", err)
		return
	}

	status := http.StatusOK
	if !report.Consistent {
		status = http.StatusConflict
	}

	writeJSON(w, status, dto.ConsistencyFromUseCase(report))
}
