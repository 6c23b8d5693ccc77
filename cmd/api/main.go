package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"barsync/internal/broadcast"
	"barsync/internal/config"
	"barsync/internal/database"
	"barsync/internal/handler"
	"barsync/internal/repository"
	"barsync/internal/router"
	"barsync/internal/service"
	"barsync/internal/upload"

	"github.com/rs/zerolog"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// Initialize logger
	logger := config.NewLogger(cfg.Logger)
	logger.Info().Msg("starting barsync server")

	// Create context for application lifecycle
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize document store
	store, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	// Initialize image uploads with S3 and local fallback
	uploads, err := openUploads(ctx, cfg, logger)
	if err != nil {
		return err
	}

	// Initialize broadcast hub
	hub := broadcast.NewHub(broadcast.Options{
		QueueSize:    cfg.Broadcast.QueueSize,
		WriteTimeout: cfg.Broadcast.WriteTimeout,
	}, logger)
	defer hub.Close()

	if cfg.Kafka.Enabled {
		hub.Register(broadcast.NewKafkaSink(cfg.Kafka.Brokers, cfg.Kafka.Topic, logger))
	}

	// Initialize controller
	controller := service.NewSyncController(store, hub, cfg.Sync.MaxAttempts, logger)

	// Initialize HTTP handlers
	menuHandler := handler.NewMenuHandler(controller, uploads, logger)
	orderHandler := handler.NewOrderHandler(controller, logger)
	wsHandler := handler.NewWebSocketHandler(hub, logger)

	// Initialize router
	mux := router.New(menuHandler, orderHandler, wsHandler, routerOptions(cfg), logger)

	// Create HTTP server
	server := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Channel to listen for errors from the server
	serverErrors := make(chan error, 1)

	// Start HTTP server in a goroutine
	go func() {
		logger.Info().
			Str("address", cfg.Server.Address()).
			Str("store", cfg.Store.Backend).
			Msg("HTTP server started")
		serverErrors <- server.ListenAndServe()
	}()

	// Channel to listen for interrupt signals
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	// Block until we receive a signal or an error
	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		logger.Info().
			Str("signal", sig.String()).
			Msg("shutdown signal received, starting graceful shutdown")

		// Viewer connections are hijacked and not tracked by Shutdown.
		hub.Close()

		// Create a context with timeout for shutdown
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		// Attempt graceful shutdown
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("failed to shutdown server gracefully")
			// Force close
			if closeErr := server.Close(); closeErr != nil {
				logger.Error().Err(closeErr).Msg("failed to close server")
			}
			return fmt.Errorf("server shutdown failed: %w", err)
		}

		logger.Info().Msg("server shutdown completed")
	}

	return nil
}

// openStore builds the configured document store and returns a function
// releasing its resources.
func openStore(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (repository.DocumentStore, func(), error) {
	switch cfg.Store.Backend {
	case config.StorePostgres:
		pool, err := database.NewPool(ctx, cfg.Database, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize database: %w", err)
		}
		if err := database.EnsureSchema(ctx, pool, logger); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("failed to initialize schema: %w", err)
		}
		return repository.NewPostgresStore(pool, logger), pool.Close, nil

	case config.StorePebble:
		store, err := repository.OpenPebbleStore(cfg.Store.PebbleDir, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize pebble store: %w", err)
		}
		return store, closer(store, logger), nil

	default:
		logger.Info().Msg("using in-memory document store, data is lost on restart")
		return repository.NewMemoryStore(logger), func() {}, nil
	}
}

// uploadsURLPrefix is where locally saved images are served.
const uploadsURLPrefix = "/uploads/"

var newS3Store = upload.NewS3Store

// openUploads builds the image store. S3 failures fall back to local disk.
func openUploads(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (upload.Store, error) {
	local, err := upload.NewFileStore(cfg.Upload.Dir, uploadsURLPrefix, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize upload store: %w", err)
	}

	if cfg.Upload.Backend != config.UploadS3 {
		logger.Info().Str("dir", cfg.Upload.Dir).Msg("using local file system for uploads")
		return local, nil
	}

	s3Store, err := newS3Store(ctx, cfg.S3.Bucket, cfg.S3.Region, cfg.S3.Prefix, logger)
	if err != nil {
		logger.Warn().
			Err(err).
			Msg("failed to initialise S3 upload store, falling back to local file system only")
		return local, nil
	}

	return upload.NewFallbackStore(s3Store, local, logger), nil
}

// routerOptions serves the local upload directory for every backend, since
// the S3 backend falls back to it.
func routerOptions(cfg *config.Config) router.Options {
	return router.Options{
		UploadDir: cfg.Upload.Dir,
		StaticDir: cfg.Server.StaticDir,
	}
}

func closer(c io.Closer, logger zerolog.Logger) func() {
	return func() {
		if err := c.Close(); err != nil {
			logger.Error().Err(err).Msg("failed to close document store")
		}
	}
}
