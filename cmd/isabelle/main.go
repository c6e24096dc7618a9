package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sglre6355/isabelle/internal/bot"
	_ "github.com/sglre6355/isabelle/internal/modules/playback"
	"github.com/spf13/cobra"
)

// version is set at build time via ldflags:
// go build -ldflags "-X main.version=1.0.0" ./cmd/isabelle
var version = "dev"

// shutdownTimeout bounds the graceful shutdown of the bot.
const shutdownTimeout = 10 * time.Second

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "isabelle",
		Short:   "Discord music bot",
		Version: version,
		// Running without a subcommand serves the bot.
		RunE:              runServe,
		PersistentPreRunE: setup,
		SilenceUsage:      true,
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Connect to Discord and serve commands until interrupted",
			Args:  cobra.NoArgs,
			RunE:  runServe,
		},
		commandsCmd(),
		&cobra.Command{
			Use:   "version",
			Short: "Print the version",
			Args:  cobra.NoArgs,
			// No configuration is needed to print the version.
			PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
			Run: func(cmd *cobra.Command, _ []string) {
				cmd.Println(version)
			},
		},
	)

	return cmd
}

// setup loads .env and installs the JSON logger.
func setup(*cobra.Command, []string) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load .env: %w", err)
	}

	cfg, err := bot.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	})))

	return nil
}

func loadBot() (*bot.Bot, error) {
	cfg, err := bot.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	b := bot.NewBot(cfg)
	b.LoadModules()
	return b, nil
}

func runServe(cmd *cobra.Command, _ []string) error {
	slog.Info("starting isabelle", "version", version)

	b, err := loadBot()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := b.Start(); err != nil {
		slog.Error("failed to start bot", "error", err)
		shutdown(b)
		return err
	}

	<-ctx.Done()
	slog.Info("received termination signal, shutting down")
	shutdown(b)

	slog.Info("completed bot shutdown")
	return nil
}

func shutdown(b *bot.Bot) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := b.Stop(ctx); err != nil {
		slog.Error("failed to shutdown", "error", err)
	}
}
