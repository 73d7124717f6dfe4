package cli

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/information-sharing-networks/blockcerts-viewer/internal/config"
	"github.com/information-sharing-networks/blockcerts-viewer/internal/logger"
	"github.com/information-sharing-networks/blockcerts-viewer/internal/version"
	"github.com/spf13/cobra"
)

var (
	cfg       *config.ServerEnvironment
	appLogger *slog.Logger
)

// NewRootCmd builds the certviewer command tree.
func NewRootCmd() *cobra.Command {
	var logLevel string

	rootCmd := &cobra.Command{
		Use:               "certviewer",
		CompletionOptions: cobra.CompletionOptions{DisableDefaultCmd: true},
		Short:             "Blockcerts certificate viewer CLI",
		Long: `Verify Blockcerts certificates, render their PDF cover page and issue test certificates.

The CLI reads the same environment variables as the viewer server (LOG_LEVEL, PINNED_KEYS_DIR,
TRUSTED_CHAINS, LEDGER_PATH, RECORD_BASE_URL, VERIFY_TIMEOUT...).`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cfg, err = config.NewServerConfig()
			if err != nil {
				log.Printf("failed to load configuration: %v", err.Error())
				return err
			}

			level := cfg.LogLevel
			if logLevel != "" {
				level = logLevel
			}
			appLogger = logger.InitLogger(logger.ParseLogLevel(level), cfg.Environment)
			return nil
		},
	}

	v := version.Get()
	rootCmd.Version = fmt.Sprintf("%s (built %s, commit %s)", v.Version, v.BuildDate, v.GitCommit)

	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error or none (overrides LOG_LEVEL)")

	rootCmd.AddCommand(newVerifyCmd())
	rootCmd.AddCommand(newCoverPageCmd())
	rootCmd.AddCommand(newKeygenCmd())
	rootCmd.AddCommand(newIssueCmd())

	return rootCmd
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	err := NewRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}
