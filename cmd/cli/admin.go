package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/iho/beanledger/internal/infrastructure/auth"
	"github.com/iho/beanledger/internal/infrastructure/logger"
	"github.com/iho/beanledger/internal/infrastructure/postgres"
)

func migrateCmd() *cobra.Command {
	var databaseURL, path string

	newMigrator := func(cmd *cobra.Command) *postgres.Migrator {
		log := logger.New(logger.Config{Level: "info", Format: "console", Output: cmd.ErrOrStderr()})
		return postgres.NewMigrator(databaseURL, path, log)
	}

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the PostgreSQL schema",
	}

	cmd.PersistentFlags().StringVar(&databaseURL, "database-url", os.Getenv("DATABASE_URL"), "PostgreSQL connection URL")
	cmd.PersistentFlags().StringVar(&path, "path", "", "Migrations directory (default the embedded set)")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return newMigrator(cmd).Up()
			},
		},
		&cobra.Command{
			Use:   "down",
			Short: "Roll back the last migration",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return newMigrator(cmd).Down()
			},
		},
		&cobra.Command{
			Use:   "version",
			Short: "Print the applied schema version",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				version, dirty, err := newMigrator(cmd).Version()
				if err != nil {
					return err
				}
				if dirty {
					fmt.Fprintf(cmd.OutOrStdout(), "%d (dirty)\n", version)
					return nil
				}
				fmt.Fprintln(cmd.OutOrStdout(), version)
				return nil
			},
		},
	)

	return cmd
}

func tokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Manage API tokens",
	}

	var (
		secret  string
		issuer  string
		subject string
		role    string
		ttl     time.Duration
	)

	issueCmd := &cobra.Command{
		Use:   "issue",
		Short: "Issue a signed token for a collaborator",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if secret == "" {
				return fmt.Errorf("--secret or AUTH_JWT_SECRET is required")
			}

			r, err := auth.ParseRole(role)
			if err != nil {
				return err
			}

			token, err := auth.NewJWTManager(secret, issuer, ttl).Generate(subject, r)
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	issueCmd.Flags().StringVar(&secret, "secret", os.Getenv("AUTH_JWT_SECRET"), "Signing secret")
	issueCmd.Flags().StringVar(&issuer, "issuer", envOr("AUTH_JWT_ISSUER", "beanledger"), "Token issuer")
	issueCmd.Flags().StringVar(&subject, "subject", "", "Collaborator name")
	issueCmd.Flags().StringVar(&role, "role", string(auth.RoleViewer), "Role: admin, ingestor, categorizer or viewer")
	issueCmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "Token lifetime")
	_ = issueCmd.MarkFlagRequired("subject")

	cmd.AddCommand(issueCmd)

	return cmd
}
