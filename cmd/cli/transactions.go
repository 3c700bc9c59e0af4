package main

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/iho/beanledger/internal/adapter/http/dto"
)

func transactionsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "transactions",
		Aliases: []string{"txn", "tx"},
		Short:   "Transaction operations",
	}

	cmd.AddCommand(
		createTransactionCmd(a),
		getTransactionCmd(a),
		recategorizeCmd(a),
		byLinkCmd(a),
	)

	return cmd
}

func accountRef(ref string) dto.AccountRef {
	if strings.Contains(ref, ":") {
		return dto.AccountRef{Account: ref}
	}
	return dto.AccountRef{AccountID: ref}
}

// parsePosting reads "ACCOUNT [AMOUNT CURRENCY]". A posting without an
// amount is filled in by the ledger.
func parsePosting(s string) (dto.PostingRequest, error) {
	fields := strings.Fields(s)

	switch len(fields) {
	case 1:
		return dto.PostingRequest{AccountRef: accountRef(fields[0])}, nil
	case 3:
		amount, err := decimal.NewFromString(fields[1])
		if err != nil {
			return dto.PostingRequest{}, fmt.Errorf("posting %q: invalid amount: %w", s, err)
		}
		return dto.PostingRequest{
			AccountRef: accountRef(fields[0]),
			Amount:     &amount,
			Currency:   strings.ToUpper(fields[2]),
		}, nil
	default:
		return dto.PostingRequest{}, fmt.Errorf("posting %q: expected \"ACCOUNT [AMOUNT CURRENCY]\"", s)
	}
}

const createTransactionExample = `  beanledger transactions create --date 2024-03-01 --payee "Corner Shop" \
    --posting "Expenses:Food:Groceries 42.10 USD" \
    --posting "Assets:Bank:Checking"`

func createTransactionCmd(a *app) *cobra.Command {
	var (
		req            dto.CreateTransactionRequest
		postings       []string
		pending        bool
		idempotencyKey string
	)

	cmd := &cobra.Command{
		Use:     "create",
		Short:   "Record a transaction",
		Example: createTransactionExample,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(postings) < 2 {
				return fmt.Errorf("a transaction needs at least two --posting flags")
			}

			for _, p := range postings {
				posting, err := parsePosting(p)
				if err != nil {
					return err
				}
				req.Postings = append(req.Postings, posting)
			}
			if pending {
				req.Flag = "!"
			}
			if idempotencyKey == "" {
				idempotencyKey = ulid.Make().String()
			}

			var txn dto.TransactionResponse
			err := a.client().do(cmd.Context(), http.MethodPost, "/transactions", nil, req, &txn,
				withHeader("Idempotency-Key", idempotencyKey))
			if err != nil {
				return err
			}

			if a.jsonOutput {
				return printJSON(cmd.OutOrStdout(), txn)
			}
			return printTransaction(cmd.OutOrStdout(), &txn)
		},
	}

	cmd.Flags().StringVar(&req.Date, "date", "", "Transaction date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&req.Payee, "payee", "", "Payee")
	cmd.Flags().StringVar(&req.Narration, "narration", "", "Narration")
	cmd.Flags().StringSliceVar(&req.Tags, "tag", nil, "Tag (repeatable)")
	cmd.Flags().StringSliceVar(&req.Links, "link", nil, "Link (repeatable)")
	cmd.Flags().StringArrayVar(&postings, "posting", nil, `Posting as "ACCOUNT [AMOUNT CURRENCY]" (repeatable)`)
	cmd.Flags().BoolVar(&pending, "pending", false, "Flag the transaction as incomplete (!)")
	cmd.Flags().StringVar(&idempotencyKey, "idempotency-key", "", "Idempotency key (default a fresh ULID)")
	_ = cmd.MarkFlagRequired("date")

	return cmd
}

func getTransactionCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "get ID",
		Short: "Show a transaction",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var txn dto.TransactionResponse
			if err := a.client().do(cmd.Context(), http.MethodGet, "/transactions/"+url.PathEscape(args[0]), nil, nil, &txn); err != nil {
				return err
			}

			if a.jsonOutput {
				return printJSON(cmd.OutOrStdout(), txn)
			}
			return printTransaction(cmd.OutOrStdout(), &txn)
		},
	}
}

func recategorizeCmd(a *app) *cobra.Command {
	var account string

	cmd := &cobra.Command{
		Use:   "recategorize TRANSACTION_ID POSTING_ID",
		Short: "Move a posting to another account",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := dto.RecategorizePostingRequest{AccountRef: accountRef(account)}
			path := "/transactions/" + url.PathEscape(args[0]) + "/postings/" + url.PathEscape(args[1])

			var txn dto.TransactionResponse
			if err := a.client().do(cmd.Context(), http.MethodPatch, path, nil, req, &txn); err != nil {
				return err
			}

			if a.jsonOutput {
				return printJSON(cmd.OutOrStdout(), txn)
			}
			return printTransaction(cmd.OutOrStdout(), &txn)
		},
	}

	cmd.Flags().StringVar(&account, "account", "", "Target account ID or name")
	_ = cmd.MarkFlagRequired("account")

	return cmd
}

func byLinkCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "by-link LINK",
		Short: "List the transactions sharing a link",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var txns []*dto.TransactionResponse
			if err := a.client().do(cmd.Context(), http.MethodGet, "/links/"+url.PathEscape(args[0])+"/transactions", nil, nil, &txns); err != nil {
				return err
			}
			return printTransactions(cmd.OutOrStdout(), a, txns)
		},
	}
}

func searchCmd(a *app) *cobra.Command {
	var (
		text, tag, from, to, minAmount, maxAmount string
		limit                                     int
	)

	cmd := &cobra.Command{
		Use:   "search",
		Short: "Search transactions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			q := url.Values{}
			for key, v := range map[string]string{
				"q": text, "tag": tag, "from": from, "to": to, "min": minAmount, "max": maxAmount,
			} {
				if v != "" {
					q.Set(key, v)
				}
			}
			q.Set("limit", strconv.Itoa(limit))

			var txns []*dto.TransactionResponse
			if err := a.client().do(cmd.Context(), http.MethodGet, "/search", q, nil, &txns); err != nil {
				return err
			}
			return printTransactions(cmd.OutOrStdout(), a, txns)
		},
	}

	cmd.Flags().StringVarP(&text, "query", "q", "", "Case-insensitive text in payee or narration")
	cmd.Flags().StringVar(&tag, "tag", "", "Tag")
	cmd.Flags().StringVar(&from, "from", "", "First date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&to, "to", "", "Last date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&minAmount, "min", "", "Minimum absolute posting amount")
	cmd.Flags().StringVar(&maxAmount, "max", "", "Maximum absolute posting amount")
	cmd.Flags().IntVar(&limit, "limit", 100, "Maximum number of transactions")

	return cmd
}

func printTransactions(w io.Writer, a *app, txns []*dto.TransactionResponse) error {
	if a.jsonOutput {
		return printJSON(w, txns)
	}
	if len(txns) == 0 {
		fmt.Fprintln(w, "no transactions")
		return nil
	}

	for i, txn := range txns {
		if i > 0 {
			fmt.Fprintln(w)
		}
		if err := printTransaction(w, txn); err != nil {
			return err
		}
	}
	return nil
}
