package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/BerylCAtieno/forked/internal/config"
	"github.com/BerylCAtieno/forked/internal/logging"
	"github.com/BerylCAtieno/forked/internal/metrics"
	"github.com/BerylCAtieno/forked/internal/provider"
	"github.com/BerylCAtieno/forked/internal/server"
	"github.com/BerylCAtieno/forked/internal/simulator"
)

const shutdownTimeout = 10 * time.Second

var configPath string

var rootCmd = &cobra.Command{
	Use:   "forked",
	Short: "Forked - Butterfly Effect trade-off simulator",
	Long: `Forked serves a small web app that imagines the ten-year alternate life behind a
decision you did not take, using a generative language model.

Configuration comes from an optional YAML file, a .env file and the environment.
GEMINI_API_KEY (or OPENAI_API_KEY with FORKED_PROVIDER=openai) is required.`,
	SilenceUsage: true,
	RunE:         runServe,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", config.DefaultPath, "path to a YAML config file")
}

// Execute runs the root command
func Execute() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadRuntime() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("configuration: %w", err)
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadRuntime()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	if !cfg.Log.Development {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	p, err := provider.New(ctx, cfg.ProviderConfig(), logger)
	if err != nil {
		logger.Error("provider startup failed", zap.Error(err))
		return err
	}
	defer p.Close()

	logger.Info("provider ready",
		zap.String("provider", p.Name()),
		zap.String("model", p.Model()),
		zap.String("on_provider_failure", cfg.Generation.OnProviderFailure),
		zap.Int("max_attempts", cfg.LLM.MaxAttempts))

	sim := simulator.New(p, cfg.SimulatorOptions(), logger)
	router, err := server.NewRouter(ctx, server.NewHandler(sim, logger), cfg.Server, logger)
	if err != nil {
		return err
	}
	srv := server.NewHTTPServer(cfg, router)

	var metricsSrv *http.Server
	if cfg.Server.MetricsAddr != "" {
		metricsSrv = metrics.NewServer(cfg.Server.MetricsAddr)
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("starting HTTP server", zap.String("addr", srv.Addr))
		return listen(srv)
	})

	if metricsSrv != nil {
		g.Go(func() error {
			logger.Info("starting metrics server", zap.String("addr", metricsSrv.Addr))
			return listen(metricsSrv)
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		err := srv.Shutdown(shutdownCtx)
		if metricsSrv != nil {
			err = errors.Join(err, metricsSrv.Shutdown(shutdownCtx))
		}
		return err
	})

	if err := g.Wait(); err != nil {
		logger.Error("server stopped with error", zap.Error(err))
		return err
	}
	logger.Info("server stopped")
	return nil
}

func listen(srv *http.Server) error {
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("listen on %s: %w", srv.Addr, err)
	}
	return nil
}
