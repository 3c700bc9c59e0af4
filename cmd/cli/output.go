package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"

	"github.com/iho/beanledger/internal/adapter/http/dto"
)

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	if n <= 3 {
		return s[:n]
	}
	return s[:n-3] + "..."
}

// formatAmount renders amount the way go-money displays the currency. Amounts
// finer than the currency's minor unit, or in currencies go-money does not
// know, fall back to the plain decimal followed by the code.
func formatAmount(amount decimal.Decimal, currency string) string {
	cur := money.GetCurrency(currency)
	if cur == nil {
		return amount.String() + " " + currency
	}

	minor := amount.Shift(int32(cur.Fraction))
	if !minor.Equal(minor.Truncate(0)) {
		return amount.String() + " " + currency
	}

	return money.New(minor.IntPart(), currency).Display()
}

func formatAmounts(amounts []dto.AmountResponse) string {
	if len(amounts) == 0 {
		return "0"
	}

	parts := make([]string, 0, len(amounts))
	for _, a := range amounts {
		parts = append(parts, formatAmount(a.Amount, a.Currency))
	}
	return strings.Join(parts, ", ")
}

func printAccount(w io.Writer, a *dto.AccountResponse) {
	status := "open"
	if !a.Active {
		status = "closed"
		if a.CloseDate != nil {
			status += " " + *a.CloseDate
		}
	}

	fmt.Fprintf(w, "ID:       %s\n", a.ID)
	fmt.Fprintf(w, "Name:     %s\n", a.Name)
	fmt.Fprintf(w, "Type:     %s\n", a.Type)
	if a.Currency != "" {
		fmt.Fprintf(w, "Currency: %s\n", a.Currency)
	}
	fmt.Fprintf(w, "Opened:   %s\n", a.OpenDate)
	fmt.Fprintf(w, "Status:   %s\n", status)
	if a.Description != "" {
		fmt.Fprintf(w, "Notes:    %s\n", a.Description)
	}
}

func printTransaction(w io.Writer, t *dto.TransactionResponse) error {
	header := t.Date + " " + t.Flag
	if t.Payee != "" {
		header += fmt.Sprintf(" %q", t.Payee)
	}
	if t.Narration != "" {
		header += fmt.Sprintf(" %q", t.Narration)
	}
	for _, tag := range t.Tags {
		header += " #" + tag
	}
	for _, link := range t.Links {
		header += " ^" + link
	}
	fmt.Fprintln(w, header)

	tw := newTable(w)
	for _, p := range t.Postings {
		fmt.Fprintf(tw, "  %s\t%s\t%s\n", p.ID, p.AccountID, formatAmount(p.Amount, p.Currency))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(w, "  id: %s\n", t.ID)
	return nil
}
