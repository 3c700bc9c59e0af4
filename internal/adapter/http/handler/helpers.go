package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/beanledger/internal/adapter/http/dto"
	"github.com/iho/beanledger/internal/domain"
	"github.com/iho/beanledger/internal/infrastructure/logger"
)

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeError writes an error response.
func writeError(w http.ResponseWriter, status int, message, details string) {
	writeJSON(w, status, dto.ErrorResponse{
		Error:   message,
		Message: details,
	})
}

// writeDomainError maps err to a status and writes it. Storage failures are
// logged and reported without their cause.
func writeDomainError(w http.ResponseWriter, r *http.Request, message string, err error) {
	status := mapDomainError(err)
	if status == http.StatusInternalServerError {
		logger.FromContext(r.Context()).Error().Err(err).Msg(message)
		writeError(w, status, message, "internal error")
		return
	}

	resp := dto.ErrorResponse{Error: message, Message: err.Error()}

	var balanceErr *domain.BalanceMismatchError
	var assertionErr *domain.AssertionMismatchError
	switch {
	case errors.As(err, &balanceErr):
		resp.Details = map[string]any{
			"currency": balanceErr.Currency,
			"delta":    balanceErr.Delta.String(),
		}
	case errors.As(err, &assertionErr):
		resp.Details = map[string]any{
			"currency": assertionErr.Currency,
			"expected": assertionErr.Expected.String(),
			"actual":   assertionErr.Actual.String(),
			"delta":    assertionErr.Delta.String(),
		}
	}

	writeJSON(w, status, resp)
}

// mapDomainError maps domain errors to HTTP status codes.
func mapDomainError(err error) int {
	switch {
	case errors.Is(err, domain.ErrAccountNotFound),
		errors.Is(err, domain.ErrTransactionNotFound),
		errors.Is(err, domain.ErrPostingNotFound),
		errors.Is(err, domain.ErrAssertionNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrDuplicateAccount),
		errors.Is(err, domain.ErrAlreadyClosed),
		errors.Is(err, domain.ErrPostingsAfterClose):
		return http.StatusConflict
	case errors.Is(err, domain.ErrAccountInactive),
		errors.Is(err, domain.ErrBalanceMismatch),
		errors.Is(err, domain.ErrMultipleAutoBalancePostings),
		errors.Is(err, domain.ErrAssertionMismatch):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrInvalidAccountName),
		errors.Is(err, domain.ErrInvalidCloseDate),
		errors.Is(err, domain.ErrInvalidPosting),
		errors.Is(err, domain.ErrInvalidCurrency),
		errors.Is(err, domain.ErrInvalidLabel),
		errors.Is(err, domain.ErrMetadataTooLarge),
		errors.Is(err, domain.ErrInvalidQuery):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// decodeJSON decodes the request body into v, rejecting unknown fields.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// parseIntQuery parses an integer query parameter with a default value.
func parseIntQuery(r *http.Request, key string, defaultValue int) int {
	val := r.URL.Query().Get(key)
	if val == "" {
		return defaultValue
	}
	i, err := strconv.Atoi(val)
	if err != nil {
		return defaultValue
	}
	return i
}

// parseDateQuery parses an optional YYYY-MM-DD query parameter.
func parseDateQuery(r *http.Request, key string) (*time.Time, error) {
	val := r.URL.Query().Get(key)
	if val == "" {
		return nil, nil
	}

	t, err := dto.ParseDate(val)
	if err != nil {
		return nil, err
	}

	return &t, nil
}

// parseDecimalQuery parses an optional decimal query parameter.
func parseDecimalQuery(r *http.Request, key string) (*decimal.Decimal, error) {
	val := r.URL.Query().Get(key)
	if val == "" {
		return nil, nil
	}

	d, err := decimal.NewFromString(val)
	if err != nil {
		return nil, errors.Join(domain.ErrInvalidQuery, err)
	}

	return &d, nil
}

// asOfQuery returns the as_of parameter, or the zero time (today) when absent.
func asOfQuery(r *http.Request) (time.Time, error) {
	asOf, err := parseDateQuery(r, "as_of")
	if err != nil || asOf == nil {
		return time.Time{}, err
	}
	return *asOf, nil
}
