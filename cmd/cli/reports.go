package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/iho/beanledger/internal/adapter/http/dto"
)

func netWorthCmd(a *app) *cobra.Command {
	var asOf string

	cmd := &cobra.Command{
		Use:   "networth",
		Short: "Show assets, liabilities and net worth per currency",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			q := url.Values{}
			if asOf != "" {
				q.Set("as_of", asOf)
			}

			var resp dto.NetWorthResponse
			if err := a.client().do(cmd.Context(), http.MethodGet, "/reports/net-worth", q, nil, &resp); err != nil {
				return err
			}

			if a.jsonOutput {
				return printJSON(cmd.OutOrStdout(), resp)
			}

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "Net worth as of %s\n", resp.AsOf)
			tw := newTable(w)
			fmt.Fprintln(tw, "CURRENCY\tASSETS\tLIABILITIES\tNET WORTH")
			for _, line := range resp.Currencies {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
					line.Currency,
					formatAmount(line.TotalAssets, line.Currency),
					formatAmount(line.TotalLiabilities, line.Currency),
					formatAmount(line.NetWorth, line.Currency),
				)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().StringVar(&asOf, "as-of", "", "Report date (YYYY-MM-DD, default today)")

	return cmd
}

func assertionsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "assertions",
		Aliases: []string{"assert"},
		Short:   "Balance assertion operations",
	}

	cmd.AddCommand(
		recordAssertionCmd(a),
		listAssertionsCmd(a),
		verifyAssertionCmd(a),
		verifyAllCmd(a),
	)

	return cmd
}

func recordAssertionCmd(a *app) *cobra.Command {
	var date string

	cmd := &cobra.Command{
		Use:     "record ACCOUNT AMOUNT CURRENCY",
		Short:   "Record the expected balance of an account at the end of a date",
		Example: `  beanledger assertions record --date 2024-04-01 -- Assets:Bank:Checking -120.00 USD`,
		Args:    cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := decimal.NewFromString(args[1])
			if err != nil {
				return fmt.Errorf("invalid amount %q: %w", args[1], err)
			}

			req := dto.RecordAssertionRequest{
				AccountRef: accountRef(args[0]),
				Date:       date,
				Amount:     amount,
				Currency:   args[2],
			}

			var assertion dto.AssertionResponse
			if err := a.client().do(cmd.Context(), http.MethodPost, "/assertions", nil, req, &assertion); err != nil {
				return err
			}

			if a.jsonOutput {
				return printJSON(cmd.OutOrStdout(), assertion)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "recorded %s: %s on %s\n",
				assertion.ID, formatAmount(assertion.Amount, assertion.Currency), assertion.Date)
			return nil
		},
	}

	cmd.Flags().StringVar(&date, "date", "", "Assertion date (YYYY-MM-DD)")
	_ = cmd.MarkFlagRequired("date")

	return cmd
}

func listAssertionsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list ACCOUNT",
		Short: "List the assertions recorded for an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := a.client()
			id, err := client.accountID(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			var assertions []*dto.AssertionResponse
			if err := client.do(cmd.Context(), http.MethodGet, "/accounts/"+url.PathEscape(id)+"/assertions", nil, nil, &assertions); err != nil {
				return err
			}

			if a.jsonOutput {
				return printJSON(cmd.OutOrStdout(), assertions)
			}

			tw := newTable(cmd.OutOrStdout())
			fmt.Fprintln(tw, "ID\tDATE\tEXPECTED")
			for _, as := range assertions {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", as.ID, as.Date, formatAmount(as.Amount, as.Currency))
			}
			return tw.Flush()
		},
	}
}

func verifyAssertionCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "verify ID",
		Short: "Check one assertion against the ledger",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result dto.AssertionResultResponse
			if err := a.client().do(cmd.Context(), http.MethodGet, "/assertions/"+url.PathEscape(args[0])+"/verify", nil, nil, &result); err != nil {
				return err
			}

			if a.jsonOutput {
				if err := printJSON(cmd.OutOrStdout(), result); err != nil {
					return err
				}
			} else {
				tw := newTable(cmd.OutOrStdout())
				printResultHeader(tw)
				printResult(tw, &result)
				if err := tw.Flush(); err != nil {
					return err
				}
			}

			if !result.Passed {
				return errors.New("assertion failed")
			}
			return nil
		},
	}
}

func verifyAllCmd(a *app) *cobra.Command {
	var asOf string

	cmd := &cobra.Command{
		Use:   "verify-all",
		Short: "Check every assertion dated on or before a date",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			q := url.Values{}
			if asOf != "" {
				q.Set("as_of", asOf)
			}

			var report dto.ReconciliationResponse
			if err := a.client().do(cmd.Context(), http.MethodGet, "/assertions/verify", q, nil, &report); err != nil {
				return err
			}

			if a.jsonOutput {
				if err := printJSON(cmd.OutOrStdout(), report); err != nil {
					return err
				}
			} else {
				w := cmd.OutOrStdout()
				tw := newTable(w)
				printResultHeader(tw)
				for _, result := range report.Results {
					printResult(tw, result)
				}
				if err := tw.Flush(); err != nil {
					return err
				}
				fmt.Fprintf(w, "%d passed, %d failed\n", report.Passed, report.Failed)
			}

			if !report.Reconciled {
				return fmt.Errorf("%d assertion(s) failed", report.Failed)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&asOf, "as-of", "", "Only check assertions dated on or before this date")

	return cmd
}

func printResultHeader(w io.Writer) {
	fmt.Fprintln(w, "ID\tDATE\tEXPECTED\tACTUAL\tDELTA\tRESULT")
}

func printResult(w io.Writer, r *dto.AssertionResultResponse) {
	status := "PASS"
	if !r.Passed {
		status = "FAIL"
	}
	cur := r.Assertion.Currency
	fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
		r.Assertion.ID,
		r.Assertion.Date,
		formatAmount(r.Assertion.Amount, cur),
		formatAmount(r.Actual, cur),
		r.Delta.String(),
		status,
	)
}

func ledgerCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ledger",
		Short: "Ledger operations",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "consistency",
		Short: "Check that every transaction still sums to zero per currency",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return checkConsistency(cmd, a)
		},
	})

	return cmd
}

func checkConsistency(cmd *cobra.Command, a *app) error {
	var report dto.ConsistencyResponse
	err := a.client().do(cmd.Context(), http.MethodGet, "/ledger/consistency", nil, nil, &report)

	var apiErr *apiError
	if errors.As(err, &apiErr) && apiErr.Status == http.StatusConflict {
		if jsonErr := json.Unmarshal(apiErr.Raw, &report); jsonErr != nil {
			return err
		}
	} else if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	if a.jsonOutput {
		if err := printJSON(w, report); err != nil {
			return err
		}
	} else if report.Consistent {
		fmt.Fprintln(w, "Consistency check PASSED")
	} else {
		fmt.Fprintln(w, "Consistency check FAILED")
		tw := newTable(w)
		fmt.Fprintln(tw, "TRANSACTION\tCURRENCY\tRESIDUAL")
		for _, imb := range report.Imbalances {
			fmt.Fprintf(tw, "%s\t%s\t%s\n", imb.TransactionID, imb.Currency, imb.Residual.String())
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}

	if !report.Consistent {
		return errors.New("ledger is inconsistent")
	}
	return nil
}
