package cmd

import (
	"fmt"
	"log/slog"

	"github.com/pharmcheck/pharmcheck/internal/bank"
	"github.com/pharmcheck/pharmcheck/internal/config"
	"github.com/pharmcheck/pharmcheck/internal/logging"
	"github.com/pharmcheck/pharmcheck/internal/store"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "pharmcheck",
	Short: "Pharmacy career aptitude quiz",
	Long: "pharmcheck asks a short set of questions and ranks pharmacy career paths\n" +
		"by how well they match your answers.",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPlay(cmd)
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().String("db", "", "Path to SQLite database file (overrides PHARMCHECK_DB)")
	rootCmd.PersistentFlags().String("bank", "", "Question bank file, YAML or JSON (overrides PHARMCHECK_BANK)")

	rootCmd.AddCommand(playCmd)
	rootCmd.AddCommand(scoreCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(bankCmd)
	rootCmd.AddCommand(llmCmd)
	rootCmd.AddCommand(versionCmd)
}

// loadConfig reads .env and PHARMCHECK_* variables, then applies the
// persistent flags on top.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, err
	}
	if p, _ := cmd.Flags().GetString("db"); p != "" {
		cfg.DBPath = p
	}
	if p, _ := cmd.Flags().GetString("bank"); p != "" {
		cfg.BankPath = p
	}
	return cfg, nil
}

// resolveDBPath returns the database path using --db or PHARMCHECK_DB first,
// then the default XDG path.
func resolveDBPath(cfg config.Config) (string, error) {
	if cfg.DBPath != "" {
		return cfg.DBPath, store.EnsureDir(cfg.DBPath)
	}
	return store.DefaultDBPath()
}

func openStore(cfg config.Config) (*store.Store, error) {
	dbPath, err := resolveDBPath(cfg)
	if err != nil {
		return nil, fmt.Errorf("resolve database path: %w", err)
	}
	st, err := store.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return st, nil
}

// loadBank returns the configured bank, or the embedded one.
func loadBank(cfg config.Config) (*bank.Bank, error) {
	if cfg.BankPath == "" {
		return bank.Default()
	}
	b, err := bank.Load(cfg.BankPath)
	if err != nil {
		return nil, fmt.Errorf("load question bank: %w", err)
	}
	return b, nil
}

func stderrLogger(cfg config.Config) *slog.Logger {
	return logging.New(logging.Options{Level: cfg.LogLevel})
}
