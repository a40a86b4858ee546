package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"hotsearch/internal/api"
	"hotsearch/internal/browser"
	"hotsearch/internal/config"
	"hotsearch/internal/fetcher"
	"hotsearch/internal/pipeline"
	"hotsearch/internal/scheduler"
	"hotsearch/internal/session"
	"hotsearch/internal/storage"
	"hotsearch/internal/trending"
)

var (
	cfgFile string
	cfg     *config.Config
	logger  *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "hotsearch",
	Short: "Weibo trending topics harvester",
	Long: `hotsearch samples Weibo's trending list on a schedule, enriches each
topic with detail-page statistics and hot posts, and maintains a merged
daily aggregate alongside hourly snapshots.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return err
		}
		if err := config.Validate(cfg); err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}
		logger = setupLogger(&cfg.Logging)
		return nil
	},
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Execute one harvest cycle and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		app, err := buildApp(ctx)
		if err != nil {
			return err
		}
		defer app.close()

		return app.runner.Run(ctx)
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the scheduler and the query API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		app, err := buildApp(ctx)
		if err != nil {
			return err
		}
		defer app.close()

		sched := scheduler.New(&cfg.Scheduler, func(ctx context.Context) {
			if err := app.runner.Run(ctx); err != nil {
				logger.Error("harvest cycle failed", "error", err)
			}
		}, logger)
		if err := sched.Start(ctx); err != nil {
			return err
		}

		server := api.NewServer(&cfg.API, app.store, app.runner.Stats, logger)
		errCh := make(chan error, 1)
		go func() { errCh <- server.Start() }()

		select {
		case <-ctx.Done():
			logger.Info("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		case err := <-errCh:
			return err
		}
	},
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Refresh the persisted Weibo session interactively",
	RunE: func(cmd *cobra.Command, args []string) error {
		sessions := session.NewManager(&cfg.Session, &cfg.Browser, logger)
		status, err := sessions.Reauthenticate()
		if err != nil {
			return err
		}
		fmt.Printf("session status: %s\n", status)
		return nil
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := json.MarshalIndent(cfg, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(data))
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("hotsearch %s\n", config.Version)
	},
}

// app bundles the long-lived components a command needs.
type app struct {
	runner *pipeline.Runner
	store  storage.Store
	closes []func()
}

func (a *app) close() {
	for i := len(a.closes) - 1; i >= 0; i-- {
		a.closes[i]()
	}
}

// buildApp wires the full pipeline: shared browser, session manager,
// fetchers, storage, and the runner.
func buildApp(ctx context.Context) (*app, error) {
	a := &app{}

	b, err := browser.Launch(&cfg.Browser, logger)
	if err != nil {
		return nil, err
	}
	a.closes = append(a.closes, func() { _ = b.Close() })

	sessions := session.NewManager(&cfg.Session, &cfg.Browser, logger)
	if err := sessions.Seed(b); err != nil {
		logger.Warn("seeding saved session failed", "error", err)
	}

	client, err := fetcher.NewClient(&cfg.Detail, logger)
	if err != nil {
		a.close()
		return nil, err
	}
	a.closes = append(a.closes, func() { _ = client.Close() })

	store, err := storage.New(ctx, &cfg.Storage, logger)
	if err != nil {
		a.close()
		return nil, err
	}
	a.closes = append(a.closes, func() { _ = store.Close(context.Background()) })
	a.store = store

	var archiver *storage.Archiver
	if cfg.Storage.Type == "file" {
		archiver = storage.NewArchiver(&cfg.Storage, logger)
	}

	a.runner = pipeline.NewRunner(
		trending.NewSnapshotFetcher(b, &cfg.Snapshot, logger),
		trending.NewDetailEnricher(client, &cfg.Detail, logger),
		trending.NewPostCollector(b, sessions, &cfg.Posts, logger),
		store,
		archiver,
		cfg,
		logger,
	)
	return a, nil
}

func setupLogger(cfg *config.LoggingConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	return slog.New(handler)
}

func main() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.AddCommand(runCmd, serveCmd, loginCmd, configCmd, versionCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
