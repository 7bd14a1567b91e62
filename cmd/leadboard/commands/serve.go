package commands

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/Makoshaa/kia/internal/auth"
	"github.com/Makoshaa/kia/internal/client"
	"github.com/Makoshaa/kia/internal/config"
	"github.com/Makoshaa/kia/internal/export"
	"github.com/Makoshaa/kia/internal/handlers"
	"github.com/Makoshaa/kia/internal/monitoring"
	"github.com/Makoshaa/kia/internal/refresh"
	"github.com/Makoshaa/kia/internal/storage"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API and the dashboard refresher",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	logger := newLogger(cfg)

	logger.Info("Starting leadboard")
	warnInsecureConfig(cfg, logger)

	repo, err := storage.Open(cfg, logger)
	if err != nil {
		return err
	}
	defer repo.Close()

	if err := repo.Migrate(); err != nil {
		return err
	}

	// Initialize components
	httpClient := client.NewHTTPClient(cfg, logger)
	tr, calculator := newPipeline(cfg, logger)
	store := storage.NewSnapshotStore()
	monitor := monitoring.New()
	refresher := refresh.New(store, tr, refresh.Sources(httpClient, repo, logger), monitor, logger, cfg.RefreshInterval)
	exporter := export.NewExporter(cfg.SinkSecret, httpClient, logger)
	authService := auth.NewService(repo, cfg.JWTSecret, cfg.SessionTTL)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dashboards, err := repo.ListDashboards(ctx)
	if err != nil {
		return fmt.Errorf("failed to load dashboards: %w", err)
	}
	for _, dashboard := range dashboards {
		if err := refresher.Track(dashboard); err != nil {
			logger.WithError(err).WithField("dashboard_id", dashboard.ID).Warn("Skipping dashboard")
		}
	}
	refresher.Start()
	go refresher.RefreshAll(ctx)

	handler := handlers.New(cfg, repo, store, refresher, authService, httpClient, calculator, exporter, monitor, logger)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: handler.Router(),
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.WithField("port", cfg.Port).Info("Server started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serveErr <- err
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-serveErr:
		logger.WithError(err).Error("Failed to start server")
		cancel()
		refresher.Stop()
		return err
	}

	logger.Info("Shutting down server...")
	cancel()
	refresher.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Server forced to shutdown")
		return err
	}

	logger.Info("Server exited")
	return nil
}

func warnInsecureConfig(cfg *config.Config, logger *logrus.Logger) {
	if cfg.DefaultSecret() {
		logger.Warn("JWT_SECRET is not set, sessions are signed with the development default")
	}
	if cfg.APIKey == "" {
		logger.Warn("API_KEY is not set, lead ingestion is disabled")
	}
}
