package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/beanledger/internal/domain"
)

// AssertionUseCase records externally stated balances and checks them
// against the balances the ledger reports.
type AssertionUseCase struct {
	txManager     TransactionManager
	accountRepo   AccountRepository
	balances      BalanceReader
	assertionRepo AssertionRepository
	outboxRepo    OutboxRepository
	idGen         IDGenerator
	metrics       LedgerMetrics
}

// NewAssertionUseCase creates a new AssertionUseCase.
func NewAssertionUseCase(
	txManager TransactionManager,
	accountRepo AccountRepository,
	balances BalanceReader,
	assertionRepo AssertionRepository,
	outboxRepo OutboxRepository,
	idGen IDGenerator,
) *AssertionUseCase {
	return &AssertionUseCase{
		txManager:     txManager,
		accountRepo:   accountRepo,
		balances:      balances,
		assertionRepo: assertionRepo,
		outboxRepo:    outboxRepo,
		idGen:         idGen,
		metrics:       NopMetrics{},
	}
}

// WithMetrics sets the metrics sink.
func (uc *AssertionUseCase) WithMetrics(m LedgerMetrics) *AssertionUseCase {
	uc.metrics = m
	return uc
}

// RecordAssertionInput represents input for recording an assertion.
type RecordAssertionInput struct {
	Date      time.Time
	AccountID string
	Currency  string
	Amount    decimal.Decimal
}

// RecordAssertion persists an assertion. It is not checked here; a failing
// assertion is still recorded.
func (uc *AssertionUseCase) RecordAssertion(ctx context.Context, input RecordAssertionInput) (*domain.BalanceAssertion, error) {
	account, err := uc.accountRepo.GetByID(ctx, input.AccountID)
	if err != nil {
		return nil, domain.StorageError("get account", err)
	}

	currency := account.Currency
	if input.Currency != "" {
		currency = domain.NormalizeCurrency(input.Currency)
		if err := domain.ValidateCurrency(currency); err != nil {
			return nil, err
		}
	}

	date := input.Date
	if date.IsZero() {
		date = time.Now().UTC()
	}

	now := time.Now().UTC()
	assertion := &domain.BalanceAssertion{
		ID:        uc.idGen.Generate(),
		AccountID: account.ID,
		Date:      domain.TruncateDate(date),
		Amount:    input.Amount,
		Currency:  currency,
		CreatedAt: now,
	}

	txCtx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
	defer cancel()

	tx, err := uc.txManager.Begin(txCtx)
	if err != nil {
		return nil, domain.StorageError("begin", err)
	}
	defer func() { _ = tx.Rollback(txCtx) }()

	if err := uc.assertionRepo.Create(txCtx, tx, assertion); err != nil {
		return nil, domain.StorageError("create assertion", err)
	}

	event := &domain.OutboxEvent{
		ID:            uc.idGen.Generate(),
		AggregateID:   assertion.ID,
		AggregateType: domain.AggregateTypeAssertion,
		EventType:     domain.EventTypeAssertionRecorded,
		Payload: domain.ToPayload(domain.AssertionRecordedEvent{
			AssertionID: assertion.ID,
			AccountID:   assertion.AccountID,
			Date:        assertion.Date.Format(domain.DateLayout),
			Amount:      assertion.Amount.String(),
			Currency:    assertion.Currency,
		}),
		CreatedAt: now,
	}
	if err := uc.outboxRepo.Create(txCtx, tx, event); err != nil {
		return nil, domain.StorageError("create outbox event", err)
	}

	if err := tx.Commit(txCtx); err != nil {
		return nil, domain.StorageError("commit", err)
	}

	return assertion, nil
}

// VerifyAssertion recomputes the account balance at the assertion date and
// returns an *domain.AssertionMismatchError when it differs from the asserted
// amount by more than the currency tolerance. Delta is computed minus asserted.
func (uc *AssertionUseCase) VerifyAssertion(ctx context.Context, assertion *domain.BalanceAssertion) error {
	result, err := uc.check(ctx, assertion)
	if err != nil {
		return err
	}

	if result.Passed {
		return nil
	}

	return &domain.AssertionMismatchError{
		Expected: assertion.Amount,
		Actual:   result.Actual,
		Delta:    result.Delta,
		Currency: assertion.Currency,
	}
}

// VerifyByID loads a stored assertion and checks it.
func (uc *AssertionUseCase) VerifyByID(ctx context.Context, id string) (*domain.AssertionResult, error) {
	assertion, err := uc.assertionRepo.GetByID(ctx, id)
	if err != nil {
		return nil, domain.StorageError("get assertion", err)
	}

	return uc.check(ctx, assertion)
}

// ListAssertions returns the assertions recorded for an account, oldest first.
func (uc *AssertionUseCase) ListAssertions(ctx context.Context, accountID string) ([]*domain.BalanceAssertion, error) {
	if _, err := uc.accountRepo.GetByID(ctx, accountID); err != nil {
		return nil, domain.StorageError("get account", err)
	}

	assertions, err := uc.assertionRepo.ListByAccount(ctx, accountID)
	if err != nil {
		return nil, domain.StorageError("list assertions", err)
	}

	return assertions, nil
}

// ReconciliationReport is the outcome of checking every assertion up to a date.
type ReconciliationReport struct {
	CheckedAt time.Time
	AsOf      time.Time
	Results   []*domain.AssertionResult
	Passed    int
	Failed    int
}

// Reconciled reports whether every assertion passed.
func (r *ReconciliationReport) Reconciled() bool {
	return r.Failed == 0
}

// VerifyAll checks every assertion dated on or before asOf.
func (uc *AssertionUseCase) VerifyAll(ctx context.Context, asOf time.Time) (*ReconciliationReport, error) {
	asOf = asOfDate(asOf)

	assertions, err := uc.assertionRepo.ListUpTo(ctx, asOf)
	if err != nil {
		return nil, domain.StorageError("list assertions", err)
	}

	report := &ReconciliationReport{
		CheckedAt: time.Now().UTC(),
		AsOf:      asOf,
		Results:   make([]*domain.AssertionResult, 0, len(assertions)),
	}

	for _, a := range assertions {
		result, err := uc.check(ctx, a)
		if err != nil {
			return nil, err
		}

		if result.Passed {
			report.Passed++
		} else {
			report.Failed++
		}
		report.Results = append(report.Results, result)
	}

	return report, nil
}

func (uc *AssertionUseCase) check(ctx context.Context, assertion *domain.BalanceAssertion) (*domain.AssertionResult, error) {
	if assertion == nil {
		return nil, errors.New("assertion is nil")
	}

	balance, err := uc.balances.GetBalance(ctx, assertion.AccountID, assertion.Date)
	if err != nil {
		return nil, err
	}

	actual := balance.Get(assertion.Currency)
	delta := actual.Sub(assertion.Amount)
	passed := domain.WithinTolerance(delta, assertion.Currency)

	uc.metrics.AssertionChecked(passed)

	return &domain.AssertionResult{
		Assertion: assertion,
		Actual:    actual,
		Delta:     delta,
		Passed:    passed,
	}, nil
}
