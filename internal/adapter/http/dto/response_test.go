package dto

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/beanledger/internal/domain"
	"github.com/iho/beanledger/internal/usecase"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestAccountFromDomain(t *testing.T) {
	closed := day(2024, 6, 30)
	account := &domain.Account{
		ID:        "acc-1",
		Name:      "Assets:Bank:Checking",
		Type:      domain.AccountTypeAssets,
		Currency:  "USD",
		OpenDate:  day(2024, 1, 1),
		CloseDate: &closed,
	}

	resp := AccountFromDomain(account)
	if resp.ID != account.ID || resp.Type != "Assets" || resp.OpenDate != "2024-01-01" {
		t.Fatalf("unexpected account response: %+v", resp)
	}
	if resp.Active || resp.CloseDate == nil || *resp.CloseDate != "2024-06-30" {
		t.Fatalf("expected closed account, got %+v", resp)
	}

	list := AccountsFromDomain([]*domain.Account{account})
	if len(list) != 1 || list[0].ID != account.ID {
		t.Fatalf("AccountsFromDomain returned %+v", list)
	}
}

func TestTransactionFromDomainKeepsDecimalText(t *testing.T) {
	txn := &domain.Transaction{
		ID:   "txn-1",
		Date: day(2024, 3, 5),
		Flag: domain.FlagComplete,
		Postings: []*domain.Posting{
			{ID: "p-1", AccountID: "food", Amount: decimal.RequireFromString("52.50"), Currency: "USD"},
			{ID: "p-2", AccountID: "checking", Amount: decimal.RequireFromString("-52.50"), Currency: "USD", Position: 1},
		},
	}

	body, err := json.Marshal(TransactionFromDomain(txn))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	for _, want := range []string{`"date":"2024-03-05"`, `"flag":"*"`, `"amount":"-52.5"`} {
		if !strings.Contains(string(body), want) {
			t.Fatalf("expected %s in %s", want, body)
		}
	}
}

func TestAmountsFromBalanceSortedByCurrency(t *testing.T) {
	b := domain.Balance{}
	b.Add("USD", decimal.NewFromInt(5))
	b.Add("EUR", decimal.NewFromInt(-3))

	got := AmountsFromBalance(b)
	if len(got) != 2 || got[0].Currency != "EUR" || got[1].Currency != "USD" {
		t.Fatalf("unexpected amounts %+v", got)
	}
}

func TestReconciliationFromUseCase(t *testing.T) {
	assertion := &domain.BalanceAssertion{ID: "as-1", AccountID: "acc-1", Date: day(2024, 2, 1), Currency: "USD"}
	report := &usecase.ReconciliationReport{
		AsOf: day(2024, 12, 31),
		Results: []*domain.AssertionResult{
			{Assertion: assertion, Actual: decimal.NewFromInt(10), Delta: decimal.NewFromInt(10)},
		},
		Failed: 1,
	}

	resp := ReconciliationFromUseCase(report)
	if resp.Reconciled || resp.Failed != 1 || resp.AsOf != "2024-12-31" {
		t.Fatalf("unexpected report %+v", resp)
	}
	if len(resp.Results) != 1 || resp.Results[0].Assertion.ID != "as-1" || resp.Results[0].Passed {
		t.Fatalf("unexpected results %+v", resp.Results)
	}
}
