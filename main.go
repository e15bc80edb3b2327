// Package main is the hyperagent command: the HTTP API plus the one-shot
// maintenance commands that share its wiring.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	api "hyperagent/cmd/api"
	"hyperagent/pkg/config"
	"hyperagent/pkg/logging"

	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "hyperagent",
	Short: "Opportunity intake, triage and follow-up backend",
	Long: `hyperagent ingests inbound opportunities (widget, email, Twitter DMs),
classifies them with an LLM, and serves the team dashboard API.`,
	Version:      version,
	SilenceUsage: true,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(classifyCmd)
	rootCmd.AddCommand(syncTwitterCmd)
	rootCmd.AddCommand(tokenCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and background workers",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	Args:  cobra.NoArgs,
	RunE:  runMigrate,
}

var classifyCmd = &cobra.Command{
	Use:   "classify",
	Short: "Run one classification sweep and print the report",
	Args:  cobra.NoArgs,
	RunE:  runClassify,
}

var syncTwitterCmd = &cobra.Command{
	Use:   "sync-twitter",
	Short: "Pull new direct messages for every connected Twitter account",
	Args:  cobra.NoArgs,
	RunE:  runSyncTwitter,
}

var tokenCmd = &cobra.Command{
	Use:   "token <user-id>",
	Short: "Issue an access token for a user",
	Long: `Issue a signed access token for an existing user.

Examples:
  # Token for local testing
  hyperagent token 3f1c2a9e-6a53-4c8e-9a57-0d0a8f2b1e44`,
	Args: cobra.ExactArgs(1),
	RunE: runToken,
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func newApp(ctx context.Context) (*api.App, error) {
	cfg := config.Load()
	logger := logging.NewLogger(cfg.LogLevel)
	app, err := api.NewApp(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("initialize app: %w", err)
	}
	return app, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext()
	defer stop()

	app, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer app.Close()

	if app.DB() != nil {
		if err := api.Migrate(app.DB()); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	app.StartBackground(ctx)

	if err := api.NewHandler(app).Start(ctx, ":"+app.Config.Port); err != nil {
		return fmt.Errorf("serve: %w", err)
	}
	app.Logger.Info("Server stopped")
	return nil
}

func runMigrate(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext()
	defer stop()

	app, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer app.Close()

	if app.DB() == nil {
		return errors.New("DATABASE_URL is not set")
	}
	if err := api.Migrate(app.DB()); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	app.Logger.Info("Schema migrated")
	return nil
}

func runClassify(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext()
	defer stop()

	app, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer app.Close()

	report, err := app.Sweeper.RunSweep(ctx)
	if err != nil {
		return fmt.Errorf("classify: %w", err)
	}
	return printJSON(cmd, report)
}

func runSyncTwitter(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext()
	defer stop()

	app, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer app.Close()

	report, err := app.Ingestion.SyncTwitter(ctx)
	if err != nil {
		return fmt.Errorf("sync twitter: %w", err)
	}
	return printJSON(cmd, report)
}

func runToken(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext()
	defer stop()

	app, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer app.Close()

	token, err := app.Auth.GenerateToken(ctx, args[0])
	if err != nil {
		return fmt.Errorf("generate token: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), token)
	return nil
}

func printJSON(cmd *cobra.Command, v interface{}) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
