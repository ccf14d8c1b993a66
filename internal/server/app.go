// Package server initializes and runs the main application server.
// It wires configuration, logging, persistence, blob storage and the HTTP
// endpoint, and handles graceful shutdown.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/dsmirnov/filedrop/internal/logging"
	"github.com/dsmirnov/filedrop/internal/server/blob"
	"github.com/dsmirnov/filedrop/internal/server/config"
	"github.com/dsmirnov/filedrop/internal/server/httpapi"
	"github.com/dsmirnov/filedrop/internal/server/quota"
	"github.com/dsmirnov/filedrop/internal/server/repositories/repomanager"
	"github.com/dsmirnov/filedrop/internal/server/services"
)

type App struct {
	config *config.Config
	logger logging.Logger
	repos  repomanager.RepositoryManager
	server *http.Server
}

func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	logger := newLogger(cfg.LogFormat)

	rm, err := repomanager.NewPostgresRepositoryManager(ctx, cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	store, err := newBlobStorage(ctx, cfg)
	if err != nil {
		rm.Close()
		return nil, fmt.Errorf("blob storage init error: %w", err)
	}

	svc := services.NewTransferService(rm, store, quota.SystemClock{}, logger,
		cfg.UploadLimitMB, cfg.DownloadLimitMB)

	srv := &http.Server{
		Addr:    cfg.EndpointAddr,
		Handler: httpapi.NewRouter(httpapi.NewHandler(svc, logger)),
	}

	return &App{config: cfg, logger: logger, repos: rm, server: srv}, nil
}

// newLogger selects the logging backend. "console" gives human-readable
// zerolog output for development, anything else structured slog JSON.
func newLogger(format string) logging.Logger {
	if format == "console" {
		zl := zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
		return logging.NewZerologLogger(zl)
	}
	return logging.NewSlogLogger(slog.New(slog.NewJSONHandler(os.Stdout, nil)))
}

func newBlobStorage(ctx context.Context, cfg *config.Config) (blob.Storage, error) {
	switch cfg.StorageBackend {
	case "s3":
		return blob.NewS3(ctx, blob.S3Config{
			RootUser:     cfg.S3RootUser,
			RootPassword: cfg.S3RootPassword,
			Bucket:       cfg.S3Bucket,
			Region:       cfg.S3Region,
			BaseEndpoint: cfg.S3BaseEndpoint,
		})
	case "local":
		return blob.NewLocal(cfg.StorageFolder)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
	}
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "starting app",
		"addr", app.config.EndpointAddr,
		"backend", app.config.StorageBackend,
		"upload_limit_mb", app.config.UploadLimitMB,
		"download_limit_mb", app.config.DownloadLimitMB,
	)

	app.initSignalHandler(cancelFunc)

	errCh := make(chan error, 1)
	go func() {
		if err := app.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		app.logger.Info(ctx, "shutdown signal received")
	case err := <-errCh:
		if err != nil {
			app.logger.Error(ctx, "http server error", "error", err.Error())
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), app.config.ShutdownTimeout)
	defer cancel()

	if err := app.server.Shutdown(shutdownCtx); err != nil {
		app.logger.Error(ctx, "shutdown error", "error", err.Error())
	}

	if err := app.repos.Close(); err != nil {
		app.logger.Error(ctx, "db close error", "error", err.Error())
	}

	app.logger.Info(ctx, "app stopped")
}
