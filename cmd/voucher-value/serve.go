package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/josz5930/CDC-Value-For-You/internal/config"
	"github.com/josz5930/CDC-Value-For-You/internal/metrics"
	"github.com/josz5930/CDC-Value-For-You/internal/profilestore"
	"github.com/josz5930/CDC-Value-For-You/internal/server"
	"github.com/josz5930/CDC-Value-For-You/pkg/constants"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const (
	shutdownTimeout = 30 * time.Second
	purgeInterval   = time.Hour
)

func newServeCmd(root *rootOptions) *cobra.Command {
	var (
		serverConfig string
		address      string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the valuation API over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := root.load(cmd)
			if err != nil {
				return err
			}

			path := rt.conf.Server.ConfigFile
			if serverConfig != "" {
				path = serverConfig
			}
			srvCfg, err := server.LoadConfig(path)
			if err != nil {
				return err
			}
			if address != "" {
				srvCfg.Address = address
			}

			// The server config may carry its own logging section.
			logger := rt.logger
			if srvCfg.Logging != (config.LoggingConfig{}) {
				logger, err = initializeLogger(srvCfg.Logging, root.logLevel)
				if err != nil {
					return fmt.Errorf("failed to initialize server logger: %w", err)
				}
			}
			defer func() { _ = logger.Sync() }()

			return runServer(cmd.Context(), rt, srvCfg, logger)
		},
	}

	cmd.Flags().StringVar(&serverConfig, "server-config", "", "path to server configuration file (default from config server.configFile)")
	cmd.Flags().StringVar(&address, "address", "", "listen address override, e.g. :8080")
	return cmd
}

func runServer(ctx context.Context, rt *cliRuntime, srvCfg *server.Config, logger *zap.Logger) error {
	store, err := profilestore.New(srvCfg.DatabasePath, profilestore.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("failed to open profile store: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Warn("failed to close profile store",
				zap.String("op", "main.runServer"),
				zap.Error(err),
			)
		}
	}()

	defaults := rt.conf.DefaultInput()
	handler := server.NewHandler(server.Options{
		Logger:        logger,
		MaxUploadSize: srvCfg.UploadSizeBytes(),
		Version:       version,
		Store:         store,
		Metrics:       metrics.New(constants.MetricsNamespace, prometheus.DefaultRegisterer),
		Gatherer:      prometheus.DefaultGatherer,
		Defaults:      &defaults,
		Wallets:       rt.wallets(),
		CORSOrigins:   srvCfg.CORSOrigins,
		Debounce:      srvCfg.DebounceDelay(),
	})

	httpServer := &http.Server{
		Addr:              srvCfg.Address,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go purgeLoop(ctx, store, logger)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting",
			zap.String("op", "main.runServer"),
			zap.String("address", srvCfg.Address),
			zap.String("database", srvCfg.DatabasePath),
		)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down server", zap.String("op", "main.runServer"))
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	logger.Info("server stopped", zap.String("op", "main.runServer"))
	return nil
}

// expiredPurger is the part of the profile store purgeLoop needs.
type expiredPurger interface {
	PurgeExpired(ctx context.Context) (int64, error)
}

// purgeLoop removes expired profiles at startup and then every purgeInterval
// until ctx is done.
func purgeLoop(ctx context.Context, store expiredPurger, logger *zap.Logger) {
	purgeOnce(ctx, store, logger)

	ticker := time.NewTicker(purgeInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			purgeOnce(ctx, store, logger)
		}
	}
}

func purgeOnce(ctx context.Context, store expiredPurger, logger *zap.Logger) {
	n, err := store.PurgeExpired(ctx)
	if err != nil {
		if ctx.Err() == nil {
			logger.Warn("failed to purge expired profiles",
				zap.String("op", "main.purgeOnce"),
				zap.Error(err),
			)
		}
		return
	}
	if n > 0 {
		logger.Info("purged expired profiles",
			zap.String("op", "main.purgeOnce"),
			zap.Int64("count", n),
		)
	}
}
