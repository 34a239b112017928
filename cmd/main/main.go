package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/CTAG07/thrivetones/pkg/markov"
	"github.com/spf13/cobra"
)

var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

// app holds the state shared by all commands once the config is loaded.
type app struct {
	configPath string
	config     *Config
	logger     *slog.Logger
	db         *sql.DB
	store      *markov.Store[string]
	tokenizer  *markov.DefaultTokenizer
	codec      markov.StringCodec
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "thrivetones",
		Short:         "Learn chord progressions and generate new ones",
		Long:          `thrivetones trains variable-order Markov tables on chord charts and samples new progressions from them.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.open()
		},
	}
	root.PersistentFlags().StringVar(&a.configPath, "config", "./config.json", "path to the JSON config file")

	root.AddCommand(
		a.trainCmd(),
		a.generateCmd(),
		a.statsCmd(),
		a.listCmd(),
		a.removeCmd(),
		a.exportCmd(),
		a.importCmd(),
		versionCmd(),
	)
	return root
}

// open loads the config, sets up logging and opens the table store.
func (a *app) open() error {
	config, err := LoadConfig(a.configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	a.config = config

	// Logs go to stderr so generated progressions can be piped from stdout.
	a.logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: parseLogLevel(config.LogLevel)}))
	a.tokenizer = markov.NewDefaultTokenizer()

	if dir := filepath.Dir(config.DatabasePath); dir != "" {
		if err = os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create data directory: %w", err)
		}
	}

	db, err := initDB(config.DatabasePath)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	a.db = db

	if err = markov.SetupSchema(db); err != nil {
		return fmt.Errorf("failed to setup chord table schema: %w", err)
	}

	store, err := markov.NewStore[string](db, a.codec)
	if err != nil {
		return fmt.Errorf("error creating table store: %w", err)
	}
	store.SetLogger(a.logger)
	a.store = store

	a.logger.Debug("Store opened", "database_path", config.DatabasePath)
	return nil
}

// close releases the store and database, if they were opened.
func (a *app) close() {
	if a.store != nil {
		a.store.Close()
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil && a.logger != nil {
			a.logger.Error("Failed to close database", "error", err)
		}
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return nil
		},
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "thrivetones %s (commit %s, built %s)\n", Version, Commit, BuildDate)
		},
	}
}

func main() {
	a := &app{}
	err := newRootCmd(a).ExecuteContext(context.Background())
	a.close()
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
