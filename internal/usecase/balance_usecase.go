package usecase

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/iho/beanledger/internal/domain"
)

// BalanceUseCase derives balances from persisted postings. Nothing is cached:
// every answer is a fresh fold over the store.
type BalanceUseCase struct {
	accountRepo AccountRepository
	txnRepo     TransactionRepository
}

// NewBalanceUseCase creates a new BalanceUseCase.
func NewBalanceUseCase(accountRepo AccountRepository, txnRepo TransactionRepository) *BalanceUseCase {
	return &BalanceUseCase{
		accountRepo: accountRepo,
		txnRepo:     txnRepo,
	}
}

// GetBalance returns the per-currency balance of the account including every
// posting dated on or before asOf. A zero asOf means today.
func (uc *BalanceUseCase) GetBalance(ctx context.Context, accountID string, asOf time.Time) (domain.Balance, error) {
	if _, err := uc.accountRepo.GetByID(ctx, accountID); err != nil {
		return nil, domain.StorageError("get account", err)
	}

	balance, err := uc.txnRepo.SumByAccount(ctx, accountID, asOfDate(asOf))
	if err != nil {
		return nil, domain.StorageError("sum postings", err)
	}

	return balance, nil
}

// Statement is an account's postings within a date range with running balances.
type Statement struct {
	Start          time.Time
	End            time.Time
	Account        *domain.Account
	OpeningBalance domain.Balance
	ClosingBalance domain.Balance
	Lines          []*domain.StatementLine
}

// GetAccountStatement lists the account's postings dated in [start, end]
// ordered by (date, transaction id, posting id). Running balances are kept
// per currency and start from the balance on the day before start, so the
// last line of each currency equals GetBalance(end).
func (uc *BalanceUseCase) GetAccountStatement(ctx context.Context, accountID string, start, end time.Time) (*Statement, error) {
	account, err := uc.accountRepo.GetByID(ctx, accountID)
	if err != nil {
		return nil, domain.StorageError("get account", err)
	}

	end = asOfDate(end)
	if start.IsZero() {
		start = account.OpenDate
	}
	start = domain.TruncateDate(start)

	if start.After(end) {
		return nil, fmt.Errorf("%w: statement start %s is after end %s",
			domain.ErrInvalidQuery, start.Format(domain.DateLayout), end.Format(domain.DateLayout))
	}

	opening, records, err := uc.txnRepo.StatementPostings(ctx, accountID, start, end)
	if err != nil {
		return nil, domain.StorageError("list postings", err)
	}
	domain.SortPostingRecords(records)

	running := opening.Clone()
	lines := make([]*domain.StatementLine, 0, len(records))

	for _, r := range records {
		running.Add(r.Posting.Currency, r.Posting.Amount)
		lines = append(lines, &domain.StatementLine{
			Date:           r.Date,
			Posting:        r.Posting,
			TransactionID:  r.Posting.TransactionID,
			Payee:          r.Payee,
			Narration:      r.Narration,
			RunningBalance: running.Get(r.Posting.Currency),
		})
	}

	return &Statement{
		Start:          start,
		End:            end,
		Account:        account,
		OpeningBalance: opening,
		ClosingBalance: running,
		Lines:          lines,
	}, nil
}

// NetWorthSummary sums asset and liability balances per currency as of asOf.
// Liabilities are stored as negative amounts and reported negated, so an
// overpaid liability shows as a negative total and net worth always equals
// the signed sum of both sides.
func (uc *BalanceUseCase) NetWorthSummary(ctx context.Context, asOf time.Time) ([]*domain.NetWorth, error) {
	asOf = asOfDate(asOf)

	sums, err := uc.txnRepo.SumByAccountTypes(ctx,
		[]domain.AccountType{domain.AccountTypeAssets, domain.AccountTypeLiabilities}, asOf)
	if err != nil {
		return nil, domain.StorageError("sum balance sheet", err)
	}
	assets := sums[domain.AccountTypeAssets]
	liabilities := sums[domain.AccountTypeLiabilities]

	currencies := make(map[string]struct{}, len(assets)+len(liabilities))
	for c := range assets {
		currencies[c] = struct{}{}
	}
	for c := range liabilities {
		currencies[c] = struct{}{}
	}

	summary := make([]*domain.NetWorth, 0, len(currencies))
	for c := range currencies {
		totalAssets := assets.Get(c)
		totalLiabilities := liabilities.Get(c).Neg()

		summary = append(summary, &domain.NetWorth{
			Currency:         c,
			TotalAssets:      totalAssets,
			TotalLiabilities: totalLiabilities,
			NetWorth:         totalAssets.Sub(totalLiabilities),
		})
	}

	sort.Slice(summary, func(i, j int) bool {
		return summary[i].Currency < summary[j].Currency
	})

	return summary, nil
}

// LatestBalances returns today's balance of every active account matching
// the filter's type and name prefix that holds a non-zero amount, keyed by
// account ID. Pagination fields are ignored: every matching account is
// visited, and all balances are folded in one read.
func (uc *BalanceUseCase) LatestBalances(ctx context.Context, filter domain.AccountFilter) (map[string]domain.Balance, error) {
	active := true
	filter.Active = &active
	filter.Limit = AccountPageSize
	filter.Offset = 0

	var ids []string
	for {
		page, err := uc.accountRepo.List(ctx, filter)
		if err != nil {
			return nil, domain.StorageError("list accounts", err)
		}
		for _, a := range page {
			ids = append(ids, a.ID)
		}
		if len(page) < filter.Limit {
			break
		}
		filter.Offset += len(page)
	}

	out := make(map[string]domain.Balance, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	sums, err := uc.txnRepo.SumByAccounts(ctx, ids, asOfDate(time.Time{}))
	if err != nil {
		return nil, domain.StorageError("sum postings", err)
	}

	for id, balance := range sums {
		nonZero := make(domain.Balance, len(balance))
		for c, amount := range balance {
			if !amount.IsZero() {
				nonZero[c] = amount
			}
		}
		if len(nonZero) > 0 {
			out[id] = nonZero
		}
	}

	return out, nil
}

func asOfDate(t time.Time) time.Time {
	if t.IsZero() {
		t = time.Now().UTC()
	}

	return domain.TruncateDate(t)
}
