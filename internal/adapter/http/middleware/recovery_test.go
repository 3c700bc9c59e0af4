package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestRecovery(t *testing.T) {
	var buf bytes.Buffer
	log := zerolog.New(&buf)

	rr := httptest.NewRecorder()
	Recovery(log)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("ledger on fire")
	})).ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/v1/transactions", nil))

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.JSONEq(t, `{"error":"internal server error"}`, rr.Body.String())
	assert.Contains(t, buf.String(), "ledger on fire")
	assert.Contains(t, buf.String(), "panic recovered")
}

func TestLoggingMiddleware(t *testing.T) {
	var buf bytes.Buffer
	mw := NewLoggingMiddleware(zerolog.New(&buf))

	handler := chimiddleware.RequestID(mw.Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/accounts/missing", nil)
	req.Header.Set(chimiddleware.RequestIDHeader, "req-42")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	line := buf.String()
	assert.True(t, strings.Contains(line, `"level":"warn"`), line)
	assert.Contains(t, line, `"request_id":"req-42"`)
	assert.Contains(t, line, `"status":404`)
}
