package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/pasabayan/chatd/internal/api"
	"github.com/pasabayan/chatd/internal/assistant"
	"github.com/pasabayan/chatd/internal/config"
	"github.com/pasabayan/chatd/internal/convo"
	"github.com/pasabayan/chatd/internal/gateway"
	"github.com/pasabayan/chatd/internal/identity"
	"github.com/pasabayan/chatd/internal/tools"
)

// Server timeout configuration.
const (
	readHeaderTimeout = 10 * time.Second
	readTimeout       = 30 * time.Second
	writeTimeout      = 2 * time.Minute // NDJSON streaming needs more headroom
	idleTimeout       = 2 * time.Minute
	shutdownTimeout   = 30 * time.Second
)

// runServe initializes and starts the HTTP API server.
func runServe() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if err = cfg.ValidateServe(); err != nil {
		return fmt.Errorf("validating config: %w", err)
	}

	addr, err := parseServeAddr()
	if err != nil {
		return fmt.Errorf("parsing address: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger := slog.Default()
	logger.Info("starting HTTP API server", "version", Version)

	gw, err := gateway.New(gateway.Config{
		BaseURL: cfg.GatewayURL,
		Timeout: time.Duration(cfg.GatewayTimeout) * time.Second,
		Logger:  logger,
	})
	if err != nil {
		return fmt.Errorf("creating gateway client: %w", err)
	}

	registry, err := tools.Catalog(logger)
	if err != nil {
		return fmt.Errorf("building tool catalog: %w", err)
	}

	asst, err := assistant.New(assistant.Config{
		APIKey:    cfg.AnthropicAPIKey,
		BaseURL:   cfg.AnthropicURL,
		Model:     cfg.Model,
		MaxTokens: int64(cfg.MaxTokens),
		MaxRounds: cfg.MaxToolRounds,
	}, registry, gw, logger)
	if err != nil {
		return fmt.Errorf("creating assistant: %w", err)
	}

	store, storePing, closeStore, err := setupStore(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("setting up conversation store: %w", err)
	}
	defer closeStore()

	resolver := identity.NewResolver(cfg.AdminToken, cfg.DeveloperSecret(), cfg.ServiceToken)

	apiServer, err := api.NewServer(api.ServerConfig{
		Logger:      logger,
		Assistant:   asst,
		Store:       store,
		Gateway:     gw,
		Resolver:    resolver,
		StorePing:   storePing,
		CORSOrigins: cfg.CORSOrigins,
		TrustProxy:  cfg.TrustProxy,
		RateBurst:   cfg.RateBurst,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           apiServer.Handler(),
		ReadHeaderTimeout: readHeaderTimeout,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
	}

	logger.Info("HTTP server ready",
		"addr", addr,
		"api", "/api/chat",
		"health", "/health, /ready",
		"store", cfg.StoreBackend,
	)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down HTTP server")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutting down server: %w", err)
		}
		<-errCh
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("HTTP server: %w", err)
	}
}

// setupStore builds the configured conversation store backend and starts
// its retention sweeper. The returned ping is nil for the memory backend.
func setupStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (convo.Store, func(context.Context) error, func(), error) {
	switch cfg.StoreBackend {
	case config.StorePostgres:
		if err := convo.Migrate(cfg.DatabaseURL); err != nil {
			return nil, nil, nil, fmt.Errorf("migrating schema: %w", err)
		}
		pg, err := convo.NewPostgres(ctx, cfg.DatabaseURL, logger)
		if err != nil {
			return nil, nil, nil, err
		}
		pg.StartSweeper(ctx)
		return pg, pg.Ping, pg.Close, nil
	default:
		mem := convo.NewMemory(logger)
		mem.StartSweeper(ctx)
		return mem, nil, func() {}, nil
	}
}
