package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"
)

// SQLSTATE codes a ledger write may be retried on. Both leave the
// transaction rolled back with nothing applied.
const (
	pgErrDeadlock             = "40P01"
	pgErrSerializationFailure = "40001"
)

// RetryObserver is told about every retry, keyed by SQLSTATE.
// *metrics.Metrics implements it.
type RetryObserver interface {
	StorageRetried(code string)
}

// Retrier implements usecase.Retrier. A write that loses a lock race or a
// serialization check is replayed from the top with exponential backoff.
type Retrier struct {
	logger          zerolog.Logger
	observer        RetryObserver
	maxRetries      int
	initialInterval time.Duration
	maxInterval     time.Duration
	maxElapsedTime  time.Duration
}

// NewRetrier creates a Retrier allowing three retries within ten seconds.
func NewRetrier(logger zerolog.Logger) *Retrier {
	return &Retrier{
		logger:          logger.With().Str("component", "retrier").Logger(),
		maxRetries:      3,
		initialInterval: 50 * time.Millisecond,
		maxInterval:     time.Second,
		maxElapsedTime:  10 * time.Second,
	}
}

// WithObserver sets the sink told about each retry.
func (r *Retrier) WithObserver(o RetryObserver) *Retrier {
	r.observer = o
	return r
}

// Retry runs op until it succeeds, fails with a non-retryable error, or the
// retry or time budget runs out.
func (r *Retrier) Retry(ctx context.Context, op func() error) error {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = r.initialInterval
	policy.MaxInterval = r.maxInterval
	policy.MaxElapsedTime = r.maxElapsedTime

	attempt := 0
	return backoff.Retry(func() error {
		err := op()
		if err == nil {
			return nil
		}

		code, ok := retryCode(err)
		if !ok || attempt >= r.maxRetries {
			return backoff.Permanent(err)
		}
		attempt++

		if r.observer != nil {
			r.observer.StorageRetried(code)
		}
		r.logger.Warn().
			Err(err).
			Str("sqlstate", code).
			Int("retry", attempt).
			Msg("retrying ledger write")

		return err
	}, backoff.WithContext(policy, ctx))
}

// IsRetryableError reports whether err carries a SQLSTATE worth retrying.
func IsRetryableError(err error) bool {
	_, ok := retryCode(err)
	return ok
}

func retryCode(err error) (string, bool) {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return "", false
	}

	switch pgErr.Code {
	case pgErrDeadlock, pgErrSerializationFailure:
		return pgErr.Code, true
	}

	return "", false
}
