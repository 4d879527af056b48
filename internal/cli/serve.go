package cli

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/KaifAhmad1/repo-analyzer/internal/config"
	"github.com/KaifAhmad1/repo-analyzer/internal/logger"
	"github.com/KaifAhmad1/repo-analyzer/internal/metrics"
	"github.com/KaifAhmad1/repo-analyzer/pkg/orchestrator"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the orchestrator and all declared workers",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe() error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}

	lg, err := logger.New(logger.Config{
		Level:   cfg.Logging.Level,
		File:    cfg.Logging.File,
		Console: cfg.Logging.Console,
		Pretty:  cfg.Logging.Pretty,
	})
	if err != nil {
		return err
	}
	defer lg.Close()
	zl := lg.Zerolog()

	m := metrics.New()
	if cfg.Metrics.Enabled {
		mux := http.NewServeMux()
		mux.Handle("/metrics", m.Handler())
		srv := &http.Server{Addr: cfg.Metrics.Listen, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				zl.Error().Err(err).Msg("Metrics server failed")
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
		zl.Info().Str("listen", cfg.Metrics.Listen).Msg("Metrics endpoint up")
	}

	orch, err := orchestrator.New(orchestrator.Options{
		Config:  cfg,
		Logger:  zl,
		Metrics: m,
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var watcher *config.Watcher
	if cfgFile != "" {
		watcher, err = config.NewWatcher(cfgFile, func(next config.Config) {
			// Worker topology changes need a restart; only quota pacing is
			// applied live for now.
			zl.Info().Msg("Configuration changed on disk; restart to apply worker changes")
		}, zl)
		if err != nil {
			zl.Warn().Err(err).Msg("Config watcher unavailable")
		} else {
			defer watcher.Stop()
		}
	}

	return orch.Run(ctx, func(o *orchestrator.Orchestrator) error {
		for _, ws := range o.Status().Workers {
			fmt.Printf("worker %-24s %s\n", ws.Name, ws.State)
		}
		<-ctx.Done()
		zl.Info().Msg("Shutting down")
		return nil
	})
}
