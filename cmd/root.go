// Package cmd contains all Cobra commands for askSQL.
//
// The root command launches the TUI directly. When --dsn or --conn is
// given the connection screen is skipped.
package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/DachengChen/askSQL/applog"
	"github.com/DachengChen/askSQL/assistant"
	"github.com/DachengChen/askSQL/config"
	"github.com/DachengChen/askSQL/tui"
)

var (
	flagDSN  string
	flagConn string

	appConfig *config.AppConfig
)

var rootCmd = &cobra.Command{
	Use:   "asksql",
	Short: "Ask questions about your database in plain language",
	Long: `askSQL turns questions into read-only SQL, runs them and picks a chart:
  • PostgreSQL (pgx, optional SSH tunnel) and DuckDB
  • OpenAI, Anthropic, Gemini, Groq or Ollama as the model
  • Terminal UI, one-shot CLI and an HTTP API

Run 'asksql' to start the TUI with a connection setup screen.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		appConfig = cfg
		if err := applog.Init(cfg.Logging); err != nil {
			pterm.Warning.Println("logging disabled: " + err.Error())
		}
		applog.Event("app", "start", "command", cmd.Name(), "provider", cfg.AI.Provider)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		applog.Event("app", "stop", "command", cmd.Name())
		applog.Close()
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := config.NewConnectionStore()
		if err != nil {
			return fmt.Errorf("failed to load connections: %w", err)
		}
		conn, ok, err := connectionFromFlags(store)
		if err != nil {
			return err
		}
		opts := tui.Options{Store: store, Config: appConfig}
		if ok {
			opts.Connection = &conn
		}
		return tui.Start(opts)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagDSN, "dsn", "", "connection string (postgres://..., host=... dbname=..., or a .duckdb file); defaults to $ASKSQL_DSN")
	rootCmd.PersistentFlags().StringVar(&flagConn, "conn", "", "name of a saved connection")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// loadConfig reads the config file. The OS keychain is consulted only
// when the selected provider has no key yet.
func loadConfig() (*config.AppConfig, error) {
	cfg, err := config.LoadAppConfig()
	if err != nil {
		return nil, err
	}
	if !config.NeedsAPIKey(cfg.AI.Provider) || cfg.AI.APIKey() != "" {
		return cfg, nil
	}
	if ring, err := config.OpenKeyring(); err == nil {
		cfg.ResolveSecrets(ring)
	}
	return cfg, nil
}

// connectionFromFlags resolves --dsn, --conn and $ASKSQL_DSN in that
// order. ok is false when none is set.
func connectionFromFlags(store *config.ConnectionStore) (config.Connection, bool, error) {
	dsn := flagDSN
	if dsn == "" && flagConn == "" {
		dsn = strings.TrimSpace(os.Getenv("ASKSQL_DSN"))
	}
	switch {
	case dsn != "":
		conn, err := config.ParseDSN(dsn)
		return conn, err == nil, err
	case flagConn != "":
		conn, ok := store.Get(flagConn)
		if !ok {
			return config.Connection{}, false, &config.ConfigurationError{
				Field:   "conn",
				Message: "no saved connection named " + flagConn,
				Hint:    "run 'asksql conn list' to see saved connections",
			}
		}
		return conn, true, nil
	}
	return config.Connection{}, false, nil
}

// requireConnection is connectionFromFlags for commands that cannot
// prompt for a connection.
func requireConnection() (config.Connection, error) {
	store, err := config.NewConnectionStore()
	if err != nil {
		return config.Connection{}, fmt.Errorf("failed to load connections: %w", err)
	}
	conn, ok, err := connectionFromFlags(store)
	if err != nil {
		return config.Connection{}, err
	}
	if !ok {
		return config.Connection{}, &config.ConfigurationError{
			Field:   "dsn",
			Message: "no database connection given",
			Hint:    "pass --dsn, --conn or set ASKSQL_DSN",
		}
	}
	return conn, nil
}

// openRuntime connects with a spinner on the terminal.
func openRuntime(ctx context.Context) (*assistant.Runtime, error) {
	conn, err := requireConnection()
	if err != nil {
		return nil, err
	}
	spinner, _ := pterm.DefaultSpinner.Start("Connecting to " + conn.Display())
	rt, err := assistant.Open(ctx, appConfig, conn)
	if err != nil {
		if spinner != nil {
			spinner.Fail(err.Error())
		}
		return nil, err
	}
	if spinner != nil {
		spinner.Success("Connected to " + conn.Display())
	}
	return rt, nil
}
