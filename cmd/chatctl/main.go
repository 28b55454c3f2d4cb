package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/chating-app/chating/client/internal/config"
	"github.com/chating-app/chating/client/internal/service/api"
)

var rootCmd = &cobra.Command{
	Use:           "chatctl",
	Short:         "Terminal client for the chat backend",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return setup()
	},
}

var (
	flagBaseURL  string
	flagWSURL    string
	flagDataDir  string
	flagLogLevel string
	flagTimeout  time.Duration

	cfg *config.Config
)

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&flagBaseURL, "base-url", "", "backend http base (overrides CHAT_BASE_URL)")
	flags.StringVar(&flagWSURL, "ws-url", "", "backend websocket base (overrides CHAT_WS_URL)")
	flags.StringVar(&flagDataDir, "data-dir", "", "directory for the local profile store (overrides CHAT_DATA_DIR)")
	flags.StringVar(&flagLogLevel, "log-level", "", "debug|info|warn|error (overrides CHAT_LOG_LEVEL)")
	flags.DurationVar(&flagTimeout, "timeout", 0, "per-request http timeout (overrides CHAT_HTTP_TIMEOUT)")

	rootCmd.AddCommand(
		newLoginCmd(), newRegisterCmd(), newLogoutCmd(), newWhoamiCmd(),
		newRoomsCmd(), newHistoryCmd(),
		newChatCmd(), newSendCmd(), newUploadCmd(),
		newAdminCmd(), newDevServerCmd(),
	)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", api.UserMessage(err, err.Error()))
		if errors.Is(err, context.Canceled) {
			os.Exit(130)
		}
		os.Exit(1)
	}
}

// setup loads .env and configuration, then applies flag overrides and the
// logger. It runs before every subcommand.
func setup() error {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warn().Err(err).Msg("failed to load .env file, continuing with system environment variables only")
	}

	loaded, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	if flagBaseURL != "" {
		if _, err := api.WebSocketBase(flagBaseURL); err != nil {
			return fmt.Errorf("invalid --base-url: %w", err)
		}
		loaded.Server.BaseURL = flagBaseURL
	}
	if flagWSURL != "" {
		loaded.Server.WebSocketURL = flagWSURL
	}
	if flagDataDir != "" {
		loaded.Storage.DataDir = flagDataDir
	}
	if flagLogLevel != "" {
		loaded.Log.Level = flagLogLevel
	}
	if flagTimeout > 0 {
		loaded.Server.HTTPTimeout = flagTimeout
	}

	level, err := zerolog.ParseLevel(loaded.Log.Level)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", loaded.Log.Level, err)
	}
	zerolog.SetGlobalLevel(level)

	cfg = loaded
	return nil
}
