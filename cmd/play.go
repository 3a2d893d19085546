package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/pharmcheck/pharmcheck/internal/advice"
	"github.com/pharmcheck/pharmcheck/internal/app"
	"github.com/pharmcheck/pharmcheck/internal/llm"
	"github.com/pharmcheck/pharmcheck/internal/logging"
	"github.com/pharmcheck/pharmcheck/internal/results"
	"github.com/pharmcheck/pharmcheck/internal/store"
	"github.com/pharmcheck/pharmcheck/internal/submit"
	"github.com/spf13/cobra"
)

var playCmd = &cobra.Command{
	Use:   "play",
	Short: "Take the quiz in the terminal (default)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPlay(cmd)
	},
}

// runPlay opens the store, builds dependencies, and launches the TUI.
func runPlay(cmd *cobra.Command) error {
	ctx := cmd.Context()

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	b, err := loadBank(cfg)
	if err != nil {
		return err
	}

	logPath := cfg.LogPath
	if logPath == "" {
		if logPath, err = logging.DefaultLogPath(); err != nil {
			return fmt.Errorf("resolve log path: %w", err)
		}
	}
	logger, logFile, err := logging.OpenFile(logPath, cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logFile.Close()

	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	opts := app.Options{
		Bank:            b,
		Scoring:         cfg.Scoring(),
		RequireNickname: cfg.RequireNickname,
		TopN:            cfg.TopN,
		Icons:           results.NewIconResolver(cfg.AssetsDir),
		Results:         st.ResultRepo(),
		Submitter:       submit.New(cfg.Submit(), nil, logger),
		Logger:          logger,
	}

	// Advice is optional; the app works without a provider.
	if svc, err := newAdviceService(ctx, st.EventRepo(), logger); err != nil {
		fmt.Fprintln(os.Stderr, "AI advice unavailable:", err)
	} else {
		opts.Advice = svc
	}

	logger.Info("starting terminal ui", "bank_version", b.Version, "questions", b.Len())
	return app.Run(ctx, opts)
}

// newAdviceService builds the advice service from the LLM environment. It
// returns nil without error when no provider is configured.
func newAdviceService(ctx context.Context, events store.EventRepo, logger *slog.Logger) (*advice.Service, error) {
	llmCfg, ok := llm.Resolve()
	if !ok {
		return nil, nil
	}
	provider, err := llm.NewProvider(ctx, llmCfg, events, logger)
	if err != nil {
		return nil, err
	}
	logger.Info("llm provider ready", "provider", provider.Name(), "model", provider.ModelID())
	return advice.NewService(provider, advice.DefaultConfig(), logger), nil
}
