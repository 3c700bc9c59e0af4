package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// ResolveAmounts balances drafts per currency and returns the final amount
// of every draft, in input order. Currencies must already be set on the
// drafts. Within a currency group at most one amount may be omitted; it
// becomes the negated sum of its peers. A group without omissions must sum
// to zero within Tolerance.
func ResolveAmounts(drafts []PostingDraft) ([]decimal.Decimal, error) {
	type group struct {
		sum     decimal.Decimal
		omitted []int
	}

	groups := make(map[string]*group)
	order := make([]string, 0, 2)

	for i, d := range drafts {
		g, ok := groups[d.Currency]
		if !ok {
			g = &group{}
			groups[d.Currency] = g
			order = append(order, d.Currency)
		}

		if d.Amount == nil {
			g.omitted = append(g.omitted, i)
			continue
		}

		g.sum = g.sum.Add(*d.Amount)
	}

	amounts := make([]decimal.Decimal, len(drafts))
	for i, d := range drafts {
		if d.Amount != nil {
			amounts[i] = *d.Amount
		}
	}

	for _, currency := range order {
		g := groups[currency]

		switch len(g.omitted) {
		case 0:
			if !WithinTolerance(g.sum, currency) {
				return nil, &BalanceMismatchError{Delta: g.sum, Currency: currency}
			}
		case 1:
			amounts[g.omitted[0]] = g.sum.Neg()
		default:
			return nil, fmt.Errorf("%w: %d postings in %s", ErrMultipleAutoBalancePostings, len(g.omitted), currency)
		}
	}

	return amounts, nil
}
