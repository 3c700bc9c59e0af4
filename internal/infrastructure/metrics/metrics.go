package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/iho/beanledger/internal/domain"
)

const namespace = "beanledger"

// Metrics holds all Prometheus metrics
type Metrics struct {
	// Ledger metrics
	AccountsCreated       *prometheus.CounterVec
	AccountsClosed        prometheus.Counter
	TransactionsCreated   prometheus.Counter
	PostingsCreated       prometheus.Counter
	TransactionsRejected  *prometheus.CounterVec
	PostingsRecategorized prometheus.Counter
	AssertionsChecked     *prometheus.CounterVec

	// API metrics
	HTTPRequests  *prometheus.CounterVec
	HTTPDuration  *prometheus.HistogramVec
	HTTPInFlight  prometheus.Gauge
	RateLimitHits *prometheus.CounterVec

	// Event metrics
	EventsPublished *prometheus.CounterVec
	EventErrors     *prometheus.CounterVec
	DraftsConsumed  *prometheus.CounterVec

	// Storage metrics
	StorageRetries *prometheus.CounterVec
}

// New creates all metrics and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		AccountsCreated: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "accounts_created_total",
				Help:      "Total number of accounts opened, by account type",
			},
			[]string{"type"},
		),
		AccountsClosed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "accounts_closed_total",
			Help:      "Total number of accounts closed",
		}),
		TransactionsCreated: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transactions_created_total",
			Help:      "Total number of transactions recorded",
		}),
		PostingsCreated: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "postings_created_total",
			Help:      "Total number of postings recorded",
		}),
		TransactionsRejected: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "transactions_rejected_total",
				Help:      "Total number of rejected transactions by reason",
			},
			[]string{"reason"},
		),
		PostingsRecategorized: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "postings_recategorized_total",
			Help:      "Total number of postings moved to another account",
		}),
		AssertionsChecked: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "assertions_checked_total",
				Help:      "Total number of balance assertion checks by result",
			},
			[]string{"result"},
		),

		HTTPRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),
		HTTPInFlight: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "http_requests_in_flight",
			Help:      "Number of HTTP requests currently being processed",
		}),
		RateLimitHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rate_limit_hits_total",
				Help:      "Total requests refused by the rate limiter",
			},
			[]string{"path"},
		),

		EventsPublished: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "events_published_total",
				Help:      "Total outbox events published by event type",
			},
			[]string{"event_type"},
		),
		EventErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "event_publish_errors_total",
				Help:      "Total outbox publish failures by event type",
			},
			[]string{"event_type"},
		),
		DraftsConsumed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "drafts_consumed_total",
				Help:      "Total transaction drafts consumed by outcome",
			},
			[]string{"outcome"},
		),

		StorageRetries: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "storage_retries_total",
				Help:      "Total storage operations retried by SQLSTATE",
			},
			[]string{"code"},
		),
	}
}

func (m *Metrics) AccountCreated(accountType domain.AccountType) {
	m.AccountsCreated.WithLabelValues(string(accountType)).Inc()
}

func (m *Metrics) AccountClosed() {
	m.AccountsClosed.Inc()
}

func (m *Metrics) TransactionCreated(postings int) {
	m.TransactionsCreated.Inc()
	m.PostingsCreated.Add(float64(postings))
}

func (m *Metrics) TransactionRejected(reason string) {
	m.TransactionsRejected.WithLabelValues(reason).Inc()
}

func (m *Metrics) PostingRecategorized() {
	m.PostingsRecategorized.Inc()
}

func (m *Metrics) AssertionChecked(passed bool) {
	result := "failed"
	if passed {
		result = "passed"
	}
	m.AssertionsChecked.WithLabelValues(result).Inc()
}

// EventPublished records the outcome of one outbox publish attempt.
func (m *Metrics) EventPublished(eventType string, err error) {
	if err != nil {
		m.EventErrors.WithLabelValues(eventType).Inc()
		return
	}
	m.EventsPublished.WithLabelValues(eventType).Inc()
}

// DraftConsumed records the outcome of one consumed draft: recorded,
// rejected or duplicate.
func (m *Metrics) DraftConsumed(outcome string) {
	m.DraftsConsumed.WithLabelValues(outcome).Inc()
}

// StorageRetried counts one retry of a storage operation that failed with
// the given SQLSTATE.
func (m *Metrics) StorageRetried(code string) {
	m.StorageRetries.WithLabelValues(code).Inc()
}
