package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/beanledger/internal/domain"
)

// LedgerUseCase records balanced transactions and applies the only mutation
// the ledger allows: moving a posting to another account.
type LedgerUseCase struct {
	txManager   TransactionManager
	accountRepo AccountRepository
	txnRepo     TransactionRepository
	outboxRepo  OutboxRepository
	idGen       IDGenerator
	metrics     LedgerMetrics
}

// NewLedgerUseCase creates a new LedgerUseCase.
func NewLedgerUseCase(
	txManager TransactionManager,
	accountRepo AccountRepository,
	txnRepo TransactionRepository,
	outboxRepo OutboxRepository,
	idGen IDGenerator,
) *LedgerUseCase {
	return &LedgerUseCase{
		txManager:   txManager,
		accountRepo: accountRepo,
		txnRepo:     txnRepo,
		outboxRepo:  outboxRepo,
		idGen:       idGen,
		metrics:     NopMetrics{},
	}
}

// WithMetrics sets the metrics sink.
func (uc *LedgerUseCase) WithMetrics(m LedgerMetrics) *LedgerUseCase {
	uc.metrics = m
	return uc
}

// CreateTransactionInput represents input for recording a transaction.
type CreateTransactionInput struct {
	Date      time.Time
	Metadata  map[string]any
	Flag      domain.Flag
	Payee     string
	Narration string
	Postings  []domain.PostingDraft
	Tags      []string
	Links     []string
}

// CreateTransaction validates, balances and persists a transaction. All
// validation happens before any storage transaction is opened, so a rejected
// transaction leaves the store untouched.
func (uc *LedgerUseCase) CreateTransaction(ctx context.Context, input CreateTransactionInput) (*domain.Transaction, error) {
	txn, err := uc.buildTransaction(ctx, input)
	if err != nil {
		uc.metrics.TransactionRejected(rejectReason(err))
		return nil, err
	}

	txCtx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
	defer cancel()

	tx, err := uc.txManager.Begin(txCtx)
	if err != nil {
		uc.metrics.TransactionRejected(rejectReason(domain.ErrStorage))
		return nil, domain.StorageError("begin", err)
	}
	defer func() { _ = tx.Rollback(txCtx) }()

	if err := uc.txnRepo.Create(txCtx, tx, txn); err != nil {
		uc.metrics.TransactionRejected(rejectReason(domain.ErrStorage))
		return nil, domain.StorageError("create transaction", err)
	}

	event := &domain.OutboxEvent{
		ID:            uc.idGen.Generate(),
		AggregateID:   txn.ID,
		AggregateType: domain.AggregateTypeTransaction,
		EventType:     domain.EventTypeTransactionCreated,
		Payload: domain.ToPayload(domain.TransactionCreatedEvent{
			TransactionID: txn.ID,
			Date:          txn.Date.Format(domain.DateLayout),
			Narration:     txn.Narration,
			Totals:        grossTotals(txn),
			Postings:      len(txn.Postings),
		}),
		CreatedAt: txn.CreatedAt,
	}
	if err := uc.outboxRepo.Create(txCtx, tx, event); err != nil {
		uc.metrics.TransactionRejected(rejectReason(domain.ErrStorage))
		return nil, domain.StorageError("create outbox event", err)
	}

	if err := tx.Commit(txCtx); err != nil {
		uc.metrics.TransactionRejected(rejectReason(domain.ErrStorage))
		return nil, domain.StorageError("commit", err)
	}

	uc.metrics.TransactionCreated(len(txn.Postings))

	return txn, nil
}

func (uc *LedgerUseCase) buildTransaction(ctx context.Context, input CreateTransactionInput) (*domain.Transaction, error) {
	if len(input.Postings) < MinPostings {
		return nil, fmt.Errorf("%w: a transaction needs at least %d postings, got %d",
			domain.ErrInvalidPosting, MinPostings, len(input.Postings))
	}

	if input.Date.IsZero() {
		return nil, fmt.Errorf("%w: transaction date is required", domain.ErrInvalidPosting)
	}
	date := domain.TruncateDate(input.Date)

	flag := input.Flag
	if flag == "" {
		flag = domain.FlagComplete
	}
	if !flag.IsValid() {
		return nil, fmt.Errorf("%w: unknown flag %q", domain.ErrInvalidPosting, flag)
	}

	narration := strings.TrimSpace(input.Narration)
	if len(narration) > domain.MaxNarrationLength {
		return nil, fmt.Errorf("%w: narration exceeds %d characters", domain.ErrInvalidPosting, domain.MaxNarrationLength)
	}

	tags, err := domain.NormalizeLabels(input.Tags)
	if err != nil {
		return nil, err
	}
	links, err := domain.NormalizeLabels(input.Links)
	if err != nil {
		return nil, err
	}

	if err := domain.ValidateMetadata(input.Metadata); err != nil {
		return nil, err
	}

	drafts := make([]domain.PostingDraft, len(input.Postings))
	accounts := make(map[string]*domain.Account, len(input.Postings))

	for i, draft := range input.Postings {
		account, ok := accounts[draft.AccountID]
		if !ok {
			account, err = resolveForPosting(ctx, uc.accountRepo, draft.AccountID, date)
			if err != nil {
				if errors.Is(err, domain.ErrStorage) {
					return nil, err
				}
				return nil, fmt.Errorf("%w: posting %d: %w", domain.ErrInvalidPosting, i+1, err)
			}
			accounts[draft.AccountID] = account
		}

		currency := account.Currency
		if draft.Currency != "" {
			currency = domain.NormalizeCurrency(draft.Currency)
			if err := domain.ValidateCurrency(currency); err != nil {
				return nil, fmt.Errorf("%w: posting %d: %w", domain.ErrInvalidPosting, i+1, err)
			}
		}

		if err := domain.ValidateMetadata(draft.Metadata); err != nil {
			return nil, fmt.Errorf("%w: posting %d: %w", domain.ErrInvalidPosting, i+1, err)
		}

		drafts[i] = domain.PostingDraft{
			Amount:    draft.Amount,
			Metadata:  draft.Metadata,
			AccountID: draft.AccountID,
			Currency:  currency,
		}
	}

	amounts, err := domain.ResolveAmounts(drafts)
	if err != nil {
		return nil, err
	}

	txn := &domain.Transaction{
		ID:        uc.idGen.Generate(),
		Date:      date,
		Flag:      flag,
		Payee:     strings.TrimSpace(input.Payee),
		Narration: narration,
		Tags:      tags,
		Links:     links,
		Metadata:  input.Metadata,
		CreatedAt: time.Now().UTC(),
		Postings:  make([]*domain.Posting, len(drafts)),
	}

	for i, d := range drafts {
		txn.Postings[i] = &domain.Posting{
			ID:            uc.idGen.Generate(),
			TransactionID: txn.ID,
			AccountID:     d.AccountID,
			Amount:        amounts[i],
			Currency:      d.Currency,
			Position:      i,
			Metadata:      d.Metadata,
		}
	}

	return txn, nil
}

// RecategorizePostingInput represents input for moving a posting.
type RecategorizePostingInput struct {
	Metadata      map[string]any
	TransactionID string
	PostingID     string
	AccountID     string
}

// RecategorizePosting moves a posting to another account, keeping its amount
// and currency. Metadata is merged into the posting's metadata.
func (uc *LedgerUseCase) RecategorizePosting(ctx context.Context, input RecategorizePostingInput) (*domain.Transaction, error) {
	if err := domain.ValidateMetadata(input.Metadata); err != nil {
		return nil, err
	}

	txn, err := uc.txnRepo.GetByID(ctx, input.TransactionID)
	if err != nil {
		return nil, domain.StorageError("get transaction", err)
	}

	posting := txn.Posting(input.PostingID)
	if posting == nil {
		return nil, fmt.Errorf("%w: %s in transaction %s", domain.ErrPostingNotFound, input.PostingID, txn.ID)
	}

	account, err := uc.accountRepo.GetByID(ctx, input.AccountID)
	if err != nil {
		return nil, domain.StorageError("get account", err)
	}
	if !account.AcceptsPostingsAt(txn.Date) {
		return nil, fmt.Errorf("%w: %w: %s on %s",
			domain.ErrInvalidPosting, domain.ErrAccountInactive, account.Name, txn.Date.Format(domain.DateLayout))
	}

	fromAccountID := posting.AccountID
	posting.AccountID = account.ID
	posting.Metadata = domain.MergeMetadata(posting.Metadata, input.Metadata)

	if err := domain.ValidateMetadata(posting.Metadata); err != nil {
		return nil, err
	}

	txCtx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
	defer cancel()

	tx, err := uc.txManager.Begin(txCtx)
	if err != nil {
		return nil, domain.StorageError("begin", err)
	}
	defer func() { _ = tx.Rollback(txCtx) }()

	if err := uc.txnRepo.UpdatePosting(txCtx, tx, posting); err != nil {
		return nil, domain.StorageError("update posting", err)
	}

	event := &domain.OutboxEvent{
		ID:            uc.idGen.Generate(),
		AggregateID:   txn.ID,
		AggregateType: domain.AggregateTypeTransaction,
		EventType:     domain.EventTypePostingRecategorized,
		Payload: domain.ToPayload(domain.PostingRecategorizedEvent{
			TransactionID: txn.ID,
			PostingID:     posting.ID,
			FromAccountID: fromAccountID,
			ToAccountID:   account.ID,
		}),
		CreatedAt: time.Now().UTC(),
	}
	if err := uc.outboxRepo.Create(txCtx, tx, event); err != nil {
		return nil, domain.StorageError("create outbox event", err)
	}

	if err := tx.Commit(txCtx); err != nil {
		return nil, domain.StorageError("commit", err)
	}

	uc.metrics.PostingRecategorized()

	return txn, nil
}

// GetTransaction retrieves a transaction with its postings.
func (uc *LedgerUseCase) GetTransaction(ctx context.Context, id string) (*domain.Transaction, error) {
	txn, err := uc.txnRepo.GetByID(ctx, id)
	if err != nil {
		return nil, domain.StorageError("get transaction", err)
	}

	return txn, nil
}

// ListTransactionsByLink returns every transaction carrying the link, oldest first.
func (uc *LedgerUseCase) ListTransactionsByLink(ctx context.Context, link string) ([]*domain.Transaction, error) {
	links, err := domain.NormalizeLabels([]string{link})
	if err != nil {
		return nil, err
	}
	if len(links) == 0 {
		return nil, fmt.Errorf("%w: link is required", domain.ErrInvalidLabel)
	}

	txns, err := uc.txnRepo.ListByLink(ctx, links[0])
	if err != nil {
		return nil, domain.StorageError("list by link", err)
	}

	return txns, nil
}

// Imbalance is a transaction whose postings do not sum to zero in a currency.
type Imbalance struct {
	TransactionID string
	Currency      string
	Residual      decimal.Decimal
}

// ConsistencyReport is the result of re-deriving every transaction's sums.
type ConsistencyReport struct {
	CheckedAt  time.Time
	Imbalances []Imbalance
	Consistent bool
}

// CheckConsistency verifies that every persisted transaction still balances
// per currency.
func (uc *LedgerUseCase) CheckConsistency(ctx context.Context) (*ConsistencyReport, error) {
	residuals, err := uc.txnRepo.Residuals(ctx)
	if err != nil {
		return nil, domain.StorageError("residuals", err)
	}

	report := &ConsistencyReport{
		CheckedAt:  time.Now().UTC(),
		Imbalances: make([]Imbalance, 0),
	}

	for txnID, balance := range residuals {
		for _, currency := range balance.Currencies() {
			residual := balance.Get(currency)
			if domain.WithinTolerance(residual, currency) {
				continue
			}
			report.Imbalances = append(report.Imbalances, Imbalance{
				TransactionID: txnID,
				Currency:      currency,
				Residual:      residual,
			})
		}
	}

	sort.Slice(report.Imbalances, func(i, j int) bool {
		a, b := report.Imbalances[i], report.Imbalances[j]
		if a.TransactionID != b.TransactionID {
			return a.TransactionID < b.TransactionID
		}
		return a.Currency < b.Currency
	})

	report.Consistent = len(report.Imbalances) == 0

	return report, nil
}

// grossTotals sums the positive side of each currency group.
func grossTotals(txn *domain.Transaction) map[string]string {
	sums := make(domain.Balance)
	for _, p := range txn.Postings {
		if p.Amount.IsPositive() {
			sums.Add(p.Currency, p.Amount)
		}
	}

	out := make(map[string]string, len(sums))
	for currency, amount := range sums {
		out[currency] = amount.String()
	}

	return out
}

func rejectReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrStorage):
		return "storage"
	case errors.Is(err, domain.ErrBalanceMismatch):
		return "balance_mismatch"
	case errors.Is(err, domain.ErrMultipleAutoBalancePostings):
		return "multiple_auto_balance"
	case errors.Is(err, domain.ErrInvalidPosting):
		return "invalid_posting"
	default:
		return "invalid_input"
	}
}
