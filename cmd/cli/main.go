package main

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
)

// app carries the persistent flags shared by every command.
type app struct {
	baseURL    string
	token      string
	timeout    time.Duration
	jsonOutput bool
}

func (a *app) client() *apiClient {
	return &apiClient{
		baseURL: a.baseURL,
		token:   a.token,
		http:    &http.Client{Timeout: a.timeout},
	}
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:           "beanledger",
		Short:         "Beanledger CLI tool",
		Long:          `A command line interface for the Beanledger double-entry ledger API.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&a.baseURL, "url", envOr("BEANLEDGER_URL", "http://localhost:8080"), "Base URL of the Beanledger API")
	rootCmd.PersistentFlags().StringVar(&a.token, "token", os.Getenv("BEANLEDGER_TOKEN"), "Bearer token for authenticated servers")
	rootCmd.PersistentFlags().DurationVar(&a.timeout, "timeout", 10*time.Second, "Request timeout")
	rootCmd.PersistentFlags().BoolVar(&a.jsonOutput, "json", false, "Print raw JSON responses")

	rootCmd.AddCommand(
		accountsCmd(a),
		transactionsCmd(a),
		searchCmd(a),
		netWorthCmd(a),
		assertionsCmd(a),
		ledgerCmd(a),
		migrateCmd(),
		tokenCmd(),
	)

	return rootCmd
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
