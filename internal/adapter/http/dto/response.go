package dto

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/beanledger/internal/domain"
	"github.com/iho/beanledger/internal/usecase"
)

// ErrorResponse represents an error in API responses.
type ErrorResponse struct {
	Error   string         `json:"error"`
	Message string         `json:"message,omitempty"`
	Details map[string]any `json:"details,omitempty"`
}

func formatDate(t time.Time) string {
	return t.Format(domain.DateLayout)
}

// AccountResponse represents an account in API responses.
type AccountResponse struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Type        string         `json:"type"`
	Currency    string         `json:"currency,omitempty"`
	Description string         `json:"description,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	OpenDate    string         `json:"open_date"`
	CloseDate   *string        `json:"close_date,omitempty"`
	Active      bool           `json:"active"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// AccountFromDomain converts domain account to response.
func AccountFromDomain(a *domain.Account) *AccountResponse {
	resp := &AccountResponse{
		ID:          a.ID,
		Name:        a.Name,
		Type:        string(a.Type),
		Currency:    a.Currency,
		Description: a.Description,
		Metadata:    a.Metadata,
		OpenDate:    formatDate(a.OpenDate),
		Active:      a.IsActive(),
		CreatedAt:   a.CreatedAt,
		UpdatedAt:   a.UpdatedAt,
	}
	if a.CloseDate != nil {
		d := formatDate(*a.CloseDate)
		resp.CloseDate = &d
	}
	return resp
}

// AccountsFromDomain converts domain accounts to responses.
func AccountsFromDomain(accounts []*domain.Account) []*AccountResponse {
	result := make([]*AccountResponse, len(accounts))
	for i, a := range accounts {
		result[i] = AccountFromDomain(a)
	}
	return result
}

// ListAccountsResponse represents a page of accounts.
type ListAccountsResponse struct {
	Accounts []*AccountResponse `json:"accounts"`
	Total    int64              `json:"total"`
}

// PostingResponse represents a posting in API responses.
type PostingResponse struct {
	ID        string          `json:"id"`
	AccountID string          `json:"account_id"`
	Amount    decimal.Decimal `json:"amount"`
	Currency  string          `json:"currency"`
	Metadata  map[string]any  `json:"metadata,omitempty"`
}

// TransactionResponse represents a transaction in API responses.
type TransactionResponse struct {
	ID        string             `json:"id"`
	Date      string             `json:"date"`
	Flag      string             `json:"flag"`
	Payee     string             `json:"payee,omitempty"`
	Narration string             `json:"narration,omitempty"`
	Tags      []string           `json:"tags,omitempty"`
	Links     []string           `json:"links,omitempty"`
	Metadata  map[string]any     `json:"metadata,omitempty"`
	Postings  []*PostingResponse `json:"postings"`
	CreatedAt time.Time          `json:"created_at"`
}

// TransactionFromDomain converts a domain transaction to response.
func TransactionFromDomain(t *domain.Transaction) *TransactionResponse {
	postings := make([]*PostingResponse, len(t.Postings))
	for i, p := range t.Postings {
		postings[i] = &PostingResponse{
			ID:        p.ID,
			AccountID: p.AccountID,
			Amount:    p.Amount,
			Currency:  p.Currency,
			Metadata:  p.Metadata,
		}
	}

	return &TransactionResponse{
		ID:        t.ID,
		Date:      formatDate(t.Date),
		Flag:      string(t.Flag),
		Payee:     t.Payee,
		Narration: t.Narration,
		Tags:      t.Tags,
		Links:     t.Links,
		Metadata:  t.Metadata,
		Postings:  postings,
		CreatedAt: t.CreatedAt,
	}
}

// TransactionsFromDomain converts domain transactions to responses.
func TransactionsFromDomain(txns []*domain.Transaction) []*TransactionResponse {
	result := make([]*TransactionResponse, len(txns))
	for i, t := range txns {
		result[i] = TransactionFromDomain(t)
	}
	return result
}

// AmountResponse is one currency of a multi-currency balance.
type AmountResponse struct {
	Currency string          `json:"currency"`
	Amount   decimal.Decimal `json:"amount"`
}

// AmountsFromBalance lists a balance sorted by currency.
func AmountsFromBalance(b domain.Balance) []AmountResponse {
	result := make([]AmountResponse, 0, len(b))
	for _, c := range b.Currencies() {
		result = append(result, AmountResponse{Currency: c, Amount: b.Get(c)})
	}
	return result
}

// BalanceResponse represents an account balance as of a date.
type BalanceResponse struct {
	AccountID string           `json:"account_id"`
	AsOf      string           `json:"as_of"`
	Balances  []AmountResponse `json:"balances"`
}

// BalancesFromMap lists per-account balances sorted by account ID.
func BalancesFromMap(asOf time.Time, balances map[string]domain.Balance) []BalanceResponse {
	ids := make([]string, 0, len(balances))
	for id := range balances {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	result := make([]BalanceResponse, 0, len(ids))
	for _, id := range ids {
		result = append(result, BalanceResponse{
			AccountID: id,
			AsOf:      formatDate(asOf),
			Balances:  AmountsFromBalance(balances[id]),
		})
	}
	return result
}

// StatementLineResponse is one posting of a statement.
type StatementLineResponse struct {
	Date           string          `json:"date"`
	TransactionID  string          `json:"transaction_id"`
	PostingID      string          `json:"posting_id"`
	Payee          string          `json:"payee,omitempty"`
	Narration      string          `json:"narration,omitempty"`
	Amount         decimal.Decimal `json:"amount"`
	Currency       string          `json:"currency"`
	RunningBalance decimal.Decimal `json:"running_balance"`
}

// StatementResponse represents an account statement.
type StatementResponse struct {
	Account        *AccountResponse         `json:"account"`
	Start          string                   `json:"start"`
	End            string                   `json:"end"`
	OpeningBalance []AmountResponse         `json:"opening_balance"`
	ClosingBalance []AmountResponse         `json:"closing_balance"`
	Lines          []*StatementLineResponse `json:"lines"`
}

// StatementFromUseCase converts a statement to response.
func StatementFromUseCase(s *usecase.Statement) *StatementResponse {
	lines := make([]*StatementLineResponse, len(s.Lines))
	for i, l := range s.Lines {
		lines[i] = &StatementLineResponse{
			Date:           formatDate(l.Date),
			TransactionID:  l.TransactionID,
			PostingID:      l.Posting.ID,
			Payee:          l.Payee,
			Narration:      l.Narration,
			Amount:         l.Posting.Amount,
			Currency:       l.Posting.Currency,
			RunningBalance: l.RunningBalance,
		}
	}

	return &StatementResponse{
		Account:        AccountFromDomain(s.Account),
		Start:          formatDate(s.Start),
		End:            formatDate(s.End),
		OpeningBalance: AmountsFromBalance(s.OpeningBalance),
		ClosingBalance: AmountsFromBalance(s.ClosingBalance),
		Lines:          lines,
	}
}

// NetWorthLine is the net worth in one currency.
type NetWorthLine struct {
	Currency         string          `json:"currency"`
	TotalAssets      decimal.Decimal `json:"total_assets"`
	TotalLiabilities decimal.Decimal `json:"total_liabilities"`
	NetWorth         decimal.Decimal `json:"net_worth"`
}

// NetWorthResponse represents the net worth summary.
type NetWorthResponse struct {
	AsOf       string         `json:"as_of"`
	Currencies []NetWorthLine `json:"currencies"`
}

// NetWorthFromDomain converts a net worth summary to response.
func NetWorthFromDomain(asOf time.Time, summary []*domain.NetWorth) *NetWorthResponse {
	lines := make([]NetWorthLine, len(summary))
	for i, n := range summary {
		lines[i] = NetWorthLine{
			Currency:         n.Currency,
			TotalAssets:      n.TotalAssets,
			TotalLiabilities: n.TotalLiabilities,
			NetWorth:         n.NetWorth,
		}
	}
	return &NetWorthResponse{AsOf: formatDate(asOf), Currencies: lines}
}

// AssertionResponse represents a recorded balance assertion.
type AssertionResponse struct {
	ID        string          `json:"id"`
	AccountID string          `json:"account_id"`
	Date      string          `json:"date"`
	Amount    decimal.Decimal `json:"amount"`
	Currency  string          `json:"currency"`
	CreatedAt time.Time       `json:"created_at"`
}

// AssertionFromDomain converts a domain assertion to response.
func AssertionFromDomain(a *domain.BalanceAssertion) *AssertionResponse {
	return &AssertionResponse{
		ID:        a.ID,
		AccountID: a.AccountID,
		Date:      formatDate(a.Date),
		Amount:    a.Amount,
		Currency:  a.Currency,
		CreatedAt: a.CreatedAt,
	}
}

// AssertionsFromDomain converts domain assertions to responses.
func AssertionsFromDomain(assertions []*domain.BalanceAssertion) []*AssertionResponse {
	result := make([]*AssertionResponse, len(assertions))
	for i, a := range assertions {
		result[i] = AssertionFromDomain(a)
	}
	return result
}

// AssertionResultResponse is the outcome of checking one assertion. Delta is
// the computed balance minus the asserted amount.
type AssertionResultResponse struct {
	Assertion *AssertionResponse `json:"assertion"`
	Actual    decimal.Decimal    `json:"actual"`
	Delta     decimal.Decimal    `json:"delta"`
	Passed    bool               `json:"passed"`
}

// AssertionResultFromDomain converts an assertion result to response.
func AssertionResultFromDomain(r *domain.AssertionResult) *AssertionResultResponse {
	return &AssertionResultResponse{
		Assertion: AssertionFromDomain(r.Assertion),
		Actual:    r.Actual,
		Delta:     r.Delta,
		Passed:    r.Passed,
	}
}

// ReconciliationResponse represents a verify-all run.
type ReconciliationResponse struct {
	AsOf       string                     `json:"as_of"`
	CheckedAt  time.Time                  `json:"checked_at"`
	Passed     int                        `json:"passed"`
	Failed     int                        `json:"failed"`
	Reconciled bool                       `json:"reconciled"`
	Results    []*AssertionResultResponse `json:"results"`
}

// ReconciliationFromUseCase converts a reconciliation report to response.
func ReconciliationFromUseCase(r *usecase.ReconciliationReport) *ReconciliationResponse {
	results := make([]*AssertionResultResponse, len(r.Results))
	for i, res := range r.Results {
		results[i] = AssertionResultFromDomain(res)
	}

	return &ReconciliationResponse{
		AsOf:       formatDate(r.AsOf),
		CheckedAt:  r.CheckedAt,
		Passed:     r.Passed,
		Failed:     r.Failed,
		Reconciled: r.Reconciled(),
		Results:    results,
	}
}

// ImbalanceResponse is a transaction that no longer sums to zero.
type ImbalanceResponse struct {
	TransactionID string          `json:"transaction_id"`
	Currency      string          `json:"currency"`
	Residual      decimal.Decimal `json:"residual"`
}

// ConsistencyResponse represents a ledger consistency check.
type ConsistencyResponse struct {
	CheckedAt  time.Time           `json:"checked_at"`
	Consistent bool                `json:"consistent"`
	Imbalances []ImbalanceResponse `json:"imbalances"`
}

// ConsistencyFromUseCase converts a consistency report to response.
func ConsistencyFromUseCase(r *usecase.ConsistencyReport) *ConsistencyResponse {
	imbalances := make([]ImbalanceResponse, len(r.Imbalances))
	for i, im := range r.Imbalances {
		imbalances[i] = ImbalanceResponse{
			TransactionID: im.TransactionID,
			Currency:      im.Currency,
			Residual:      im.Residual,
		}
	}

	return &ConsistencyResponse{
		CheckedAt:  r.CheckedAt,
		Consistent: r.Consistent,
		Imbalances: imbalances,
	}
}
