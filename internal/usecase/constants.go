package usecase

import "time"

const (
	// DefaultTransactionTimeout bounds a single storage transaction.
	DefaultTransactionTimeout = 10 * time.Second

	// AccountPageSize is the page size used when a report walks every account.
	AccountPageSize = 1000

	// MinPostings is the smallest number of postings a transaction may carry.
	MinPostings = 2

	// IdempotencyKeyTTL is how long idempotency keys are cached
	IdempotencyKeyTTL = 24 * time.Hour

	// IdempotencyPending marks a key whose first request is still in flight.
	IdempotencyPending = "processing"
)
