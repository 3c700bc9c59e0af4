package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strconv"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/iho/beanledger/internal/adapter/http/dto"
)

func accountsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "accounts",
		Aliases: []string{"account"},
		Short:   "Account operations",
		Long: `Account operations. Commands taking an ACCOUNT accept either an account ID
or a full account name such as Assets:Bank:Checking.`,
	}

	cmd.AddCommand(
		createAccountCmd(a),
		listAccountsCmd(a),
		getAccountCmd(a),
		closeAccountCmd(a),
		balanceCmd(a),
		balancesCmd(a),
		statementCmd(a),
		seedAccountsCmd(a),
	)

	return cmd
}

func createAccountCmd(a *app) *cobra.Command {
	var req dto.CreateAccountRequest

	cmd := &cobra.Command{
		Use:   "create NAME",
		Short: "Open an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req.Name = args[0]

			var account dto.AccountResponse
			if err := a.client().do(cmd.Context(), http.MethodPost, "/accounts", nil, req, &account); err != nil {
				return err
			}

			if a.jsonOutput {
				return printJSON(cmd.OutOrStdout(), account)
			}
			printAccount(cmd.OutOrStdout(), &account)
			return nil
		},
	}

	cmd.Flags().StringVar(&req.Currency, "currency", "", "Constrain the account to one currency")
	cmd.Flags().StringVar(&req.OpenDate, "open-date", "", "Open date (YYYY-MM-DD, default today)")
	cmd.Flags().StringVar(&req.Description, "description", "", "Free-form description")

	return cmd
}

func listAccountsCmd(a *app) *cobra.Command {
	var (
		accountType string
		prefix      string
		active      string
		limit       int
		offset      int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List accounts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			q := url.Values{}
			if accountType != "" {
				q.Set("type", accountType)
			}
			if prefix != "" {
				q.Set("prefix", prefix)
			}
			if active != "" {
				q.Set("active", active)
			}
			q.Set("limit", strconv.Itoa(limit))
			q.Set("offset", strconv.Itoa(offset))

			var resp dto.ListAccountsResponse
			if err := a.client().do(cmd.Context(), http.MethodGet, "/accounts", q, nil, &resp); err != nil {
				return err
			}

			if a.jsonOutput {
				return printJSON(cmd.OutOrStdout(), resp)
			}

			tw := newTable(cmd.OutOrStdout())
			fmt.Fprintln(tw, "ID\tNAME\tCURRENCY\tOPENED\tSTATUS")
			for _, acc := range resp.Accounts {
				status := "open"
				if !acc.Active {
					status = "closed"
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", acc.ID, acc.Name, acc.Currency, acc.OpenDate, status)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().StringVar(&accountType, "type", "", "Filter by type (Assets, Liabilities, Equity, Income, Expenses)")
	cmd.Flags().StringVar(&prefix, "prefix", "", "Filter by name prefix")
	cmd.Flags().StringVar(&active, "active", "", "Filter by status (true/false)")
	cmd.Flags().IntVar(&limit, "limit", 100, "Maximum number of accounts")
	cmd.Flags().IntVar(&offset, "offset", 0, "Number of accounts to skip")

	return cmd
}

func getAccountCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "get ACCOUNT",
		Short: "Show an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := a.client()
			id, err := client.accountID(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			var account dto.AccountResponse
			if err := client.do(cmd.Context(), http.MethodGet, "/accounts/"+url.PathEscape(id), nil, nil, &account); err != nil {
				return err
			}

			if a.jsonOutput {
				return printJSON(cmd.OutOrStdout(), account)
			}
			printAccount(cmd.OutOrStdout(), &account)
			return nil
		},
	}
}

func closeAccountCmd(a *app) *cobra.Command {
	var req dto.CloseAccountRequest

	cmd := &cobra.Command{
		Use:   "close ACCOUNT",
		Short: "Close an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := a.client()
			id, err := client.accountID(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			var account dto.AccountResponse
			if err := client.do(cmd.Context(), http.MethodPost, "/accounts/"+url.PathEscape(id)+"/close", nil, req, &account); err != nil {
				return err
			}

			if a.jsonOutput {
				return printJSON(cmd.OutOrStdout(), account)
			}
			printAccount(cmd.OutOrStdout(), &account)
			return nil
		},
	}

	cmd.Flags().StringVar(&req.CloseDate, "date", "", "Close date (YYYY-MM-DD, default today)")

	return cmd
}

func balanceCmd(a *app) *cobra.Command {
	var asOf string

	cmd := &cobra.Command{
		Use:   "balance ACCOUNT",
		Short: "Show an account balance per currency",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := a.client()
			id, err := client.accountID(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			q := url.Values{}
			if asOf != "" {
				q.Set("as_of", asOf)
			}

			var resp dto.BalanceResponse
			if err := client.do(cmd.Context(), http.MethodGet, "/accounts/"+url.PathEscape(id)+"/balance", q, nil, &resp); err != nil {
				return err
			}

			if a.jsonOutput {
				return printJSON(cmd.OutOrStdout(), resp)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s as of %s: %s\n", args[0], resp.AsOf, formatAmounts(resp.Balances))
			return nil
		},
	}

	cmd.Flags().StringVar(&asOf, "as-of", "", "Balance date (YYYY-MM-DD, default today)")

	return cmd
}

func balancesCmd(a *app) *cobra.Command {
	var accountType, prefix string

	cmd := &cobra.Command{
		Use:   "balances",
		Short: "Show today's balance of every active account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			q := url.Values{}
			if accountType != "" {
				q.Set("type", accountType)
			}
			if prefix != "" {
				q.Set("prefix", prefix)
			}

			client := a.client()
			var balances []dto.BalanceResponse
			if err := client.do(cmd.Context(), http.MethodGet, "/accounts/balances", q, nil, &balances); err != nil {
				return err
			}

			if a.jsonOutput {
				return printJSON(cmd.OutOrStdout(), balances)
			}

			names, err := client.accountNames(cmd.Context(), q)
			if err != nil {
				return err
			}

			tw := newTable(cmd.OutOrStdout())
			fmt.Fprintln(tw, "ACCOUNT\tBALANCE")
			for _, b := range balances {
				name := names[b.AccountID]
				if name == "" {
					name = b.AccountID
				}
				fmt.Fprintf(tw, "%s\t%s\n", name, formatAmounts(b.Balances))
			}
			return tw.Flush()
		},
	}

	cmd.Flags().StringVar(&accountType, "type", "", "Filter by type")
	cmd.Flags().StringVar(&prefix, "prefix", "", "Filter by name prefix")

	return cmd
}

// accountNames maps the ID of every account matching q to its name, walking
// all pages.
func (c *apiClient) accountNames(ctx context.Context, q url.Values) (map[string]string, error) {
	const pageSize = 1000

	names := make(map[string]string)
	q.Set("limit", strconv.Itoa(pageSize))
	for offset := 0; ; offset += pageSize {
		q.Set("offset", strconv.Itoa(offset))

		var page dto.ListAccountsResponse
		if err := c.do(ctx, http.MethodGet, "/accounts", q, nil, &page); err != nil {
			return nil, err
		}
		for _, acc := range page.Accounts {
			names[acc.ID] = acc.Name
		}
		if len(page.Accounts) < pageSize {
			return names, nil
		}
	}
}

func statementCmd(a *app) *cobra.Command {
	var start, end string

	cmd := &cobra.Command{
		Use:   "statement ACCOUNT",
		Short: "List postings with running balances",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := a.client()
			id, err := client.accountID(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			q := url.Values{}
			if start != "" {
				q.Set("start", start)
			}
			if end != "" {
				q.Set("end", end)
			}

			var resp dto.StatementResponse
			if err := client.do(cmd.Context(), http.MethodGet, "/accounts/"+url.PathEscape(id)+"/statement", q, nil, &resp); err != nil {
				return err
			}

			if a.jsonOutput {
				return printJSON(cmd.OutOrStdout(), resp)
			}

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "Opening balance: %s\n", formatAmounts(resp.OpeningBalance))
			tw := newTable(w)
			fmt.Fprintln(tw, "DATE\tPAYEE\tNARRATION\tAMOUNT\tBALANCE")
			for _, line := range resp.Lines {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
					line.Date,
					truncate(line.Payee, 24),
					truncate(line.Narration, 32),
					formatAmount(line.Amount, line.Currency),
					formatAmount(line.RunningBalance, line.Currency),
				)
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(w, "Closing balance: %s\n", formatAmounts(resp.ClosingBalance))
			return nil
		},
	}

	cmd.Flags().StringVar(&start, "start", "", "First date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&end, "end", "", "Last date (YYYY-MM-DD)")

	return cmd
}

// chartOfAccounts is the YAML document read by "accounts seed".
type chartOfAccounts struct {
	Currency string        `yaml:"currency"`
	OpenDate string        `yaml:"open_date"`
	Accounts []seedAccount `yaml:"accounts"`
}

type seedAccount struct {
	Name        string `yaml:"name"`
	Currency    string `yaml:"currency"`
	OpenDate    string `yaml:"open_date"`
	Description string `yaml:"description"`
}

func loadChart(path string) (*chartOfAccounts, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var chart chartOfAccounts
	if err := yaml.Unmarshal(data, &chart); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if len(chart.Accounts) == 0 {
		return nil, fmt.Errorf("%s lists no accounts", path)
	}

	return &chart, nil
}

// requests applies the document defaults to every entry.
func (c *chartOfAccounts) requests() []dto.CreateAccountRequest {
	reqs := make([]dto.CreateAccountRequest, 0, len(c.Accounts))
	for _, acc := range c.Accounts {
		req := dto.CreateAccountRequest{
			Name:        acc.Name,
			Currency:    acc.Currency,
			OpenDate:    acc.OpenDate,
			Description: acc.Description,
		}
		if req.Currency == "" {
			req.Currency = c.Currency
		}
		if req.OpenDate == "" {
			req.OpenDate = c.OpenDate
		}
		reqs = append(reqs, req)
	}
	return reqs
}

func seedAccountsCmd(a *app) *cobra.Command {
	var (
		file   string
		dryRun bool
	)

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Open every account listed in a YAML chart of accounts",
		Long: `Open every account listed in a YAML chart of accounts:

  currency: USD
  open_date: 2024-01-01
  accounts:
    - name: Assets:Bank:Checking
    - name: Expenses:Food:Groceries
      description: Supermarket runs

Accounts that already exist are skipped.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			chart, err := loadChart(file)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			client := a.client()
			var created, skipped int
			for _, req := range chart.requests() {
				if dryRun {
					fmt.Fprintf(w, "would open %s\n", req.Name)
					continue
				}

				err := client.do(cmd.Context(), http.MethodPost, "/accounts", nil, req, nil)
				var apiErr *apiError
				switch {
				case err == nil:
					created++
					fmt.Fprintf(w, "opened  %s\n", req.Name)
				case errors.As(err, &apiErr) && apiErr.Status == http.StatusConflict:
					skipped++
					fmt.Fprintf(w, "exists  %s\n", req.Name)
				default:
					return fmt.Errorf("%s: %w", req.Name, err)
				}
			}

			if !dryRun {
				fmt.Fprintf(w, "%d opened, %d already present\n", created, skipped)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "Path to the chart of accounts")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Print the accounts without opening them")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}
