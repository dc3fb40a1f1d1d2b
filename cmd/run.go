package cmd

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/knu-notice/noticewatch/internal/config"
	"github.com/knu-notice/noticewatch/internal/fetch"
	"github.com/knu-notice/noticewatch/internal/logging"
	"github.com/knu-notice/noticewatch/internal/monitor"
	"github.com/knu-notice/noticewatch/internal/notify"
	"github.com/knu-notice/noticewatch/internal/publish"
	"github.com/knu-notice/noticewatch/internal/state"
)

// newRunCmd creates and configures the 'run' subcommand, which executes
// one full polling batch across all configured sites.
func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Executes one polling run over all configured sites",
		Long: `Fetches every configured notice board once, extracts announcement
rows, notifies the webhook about rows not seen in previous runs, and
persists the updated seen state.`,

		RunE: runRunCommand,
	}
	return cmd
}

func runRunCommand(cmd *cobra.Command, _ []string) error {
	logger, err := logging.New(development)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync() //nolint:errcheck // best-effort flush
	logger = logger.With(zap.String("run_id", uuid.NewString()))

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	engine, store := buildEngine(cfg, logger)

	total, err := engine.Run(cmd.Context())
	if err != nil {
		return fmt.Errorf("run monitor: %w", err)
	}
	logger.Info("run finished",
		zap.Int("sites", len(cfg.Sites)), zap.Int("new_items", total))

	if err := publish.NewGit(logger).Publish(cmd.Context(), store.Path(), total); err != nil {
		logger.Error("state publish failed", zap.Error(err))
	}
	return nil
}

// buildEngine wires the run pipeline. One HTTP transport is shared by
// the fetcher and the webhook client for connection reuse.
func buildEngine(cfg config.Config, logger *zap.Logger) (*monitor.Engine, *state.FileStore) {
	transport := fetch.NewTransport()

	var notifier monitor.Notifier
	if cfg.Notify.WebhookURL == "" {
		notifier = notify.NewDisabled(logger)
	} else {
		notifier = notify.NewWebhook(cfg.Notify, transport, cfg.HTTP.Timeout, logger)
	}

	store := state.NewFileStore(cfg.Run.StateFile, logger)
	engine := monitor.NewEngine(
		cfg.Sites,
		fetch.New(cfg.HTTP, transport, logger),
		notifier,
		store,
		monitor.Options{DryRun: cfg.Run.DryRun, Preview: cfg.Run.Preview},
		logger,
	)
	return engine, store
}
