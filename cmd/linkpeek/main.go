package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"linkpeek/internal/bot"
	"linkpeek/internal/config"
	"linkpeek/internal/metrics"
)

var (
	version    = "0.1.0"
	configPath string
)

func main() {
	root := &cobra.Command{
		Use:   "linkpeek",
		Short: "linkpeek: Telegram bot that inspects URLs sent to it",
		Long:  "linkpeek fetches every URL posted to it, replies with an HTTP transaction summary, and relays structured platform metadata for recognized pages.",
	}

	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config.yaml (required in practice: the defaults ship an empty allow list and refuse to start)")

	root.AddCommand(runCmd())
	root.AddCommand(versionCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("linkpeek %s\n", version)
		},
	}
}

func runCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Start the bot",
		RunE:  run,
	}
}

func run(cmd *cobra.Command, args []string) error {
	cfg := config.Defaults()
	if configPath != "" {
		loaded, err := config.Load(configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel(cfg.Log.Level),
	}))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Metrics.Enabled {
		metrics.Register()
		go func() {
			if err := metrics.Serve(cfg.Metrics.Listen, logger); err != nil {
				logger.Error("metrics listener failed", "err", err)
			}
		}()
	}

	b, err := bot.New(cfg, logger)
	if err != nil {
		return err
	}

	if err := b.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logger.Info("shutdown complete")
	return nil
}

func logLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
