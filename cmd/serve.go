package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/clonebrain/clonebrain/internal/api"
	"github.com/clonebrain/clonebrain/internal/auth"
	"github.com/clonebrain/clonebrain/internal/chat"
	"github.com/clonebrain/clonebrain/internal/config"
	"github.com/clonebrain/clonebrain/internal/extract"
	"github.com/clonebrain/clonebrain/internal/security"
	"github.com/clonebrain/clonebrain/internal/voice"
)

// Server timeout configuration.
const (
	readHeaderTimeout = 10 * time.Second
	readTimeout       = 30 * time.Second
	writeTimeout      = 2 * time.Minute // response streaming needs a long timeout
	idleTimeout       = 2 * time.Minute
	shutdownTimeout   = 30 * time.Second

	fetchTimeout = 15 * time.Second // link ingestion page fetches
)

// parseRateBurst reads CLONEBRAIN_RATE_BURST from the environment.
// Returns 0 (use default) if unset or invalid.
func parseRateBurst() int {
	v := os.Getenv("CLONEBRAIN_RATE_BURST")
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// runServe initializes and starts the HTTP API server.
func runServe() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("validating config: %w", err)
	}
	if err := cfg.ValidateServe(); err != nil {
		return fmt.Errorf("validating config: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger := slog.Default()
	logger.Info("starting HTTP API server", "version", Version)

	a, err := setupApp(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("initializing application: %w", err)
	}
	defer a.Close()

	engine, err := chat.New(chat.Config{
		Genkit:    a.Genkit,
		Retriever: a.Knowledge,
		Personas:  a.Personas,
		ModelName: cfg.FullModelName(),
		ChatTopK:  cfg.ChatTopK,
		VoiceTopK: cfg.VoiceTopK,
		Threshold: cfg.SimilarityThreshold,
		Logger:    logger,
	})
	if err != nil {
		return fmt.Errorf("creating chat engine: %w", err)
	}

	speech := voice.NewClient(voice.Config{
		STTModel: cfg.STTModel,
		TTSModel: cfg.TTSModel,
		TTSVoice: cfg.TTSVoice,
		Logger:   logger,
	})

	guard := security.NewGuard()
	extractor := extract.New(guard, guard.SafeClient(fetchTimeout), security.MaxFetchBytes, logger)

	apiServer, err := api.NewServer(api.ServerConfig{
		Logger:     logger,
		Resolver:   auth.NewClient(cfg.AuthUserURL, cfg.AuthAPIKey, logger),
		Engine:     engine,
		Knowledge:  a.Knowledge,
		Personas:   a.Personas,
		Voice:      speech,
		Extractor:  extractor,
		Pool:       a.Pool,
		TrustProxy: cfg.TrustProxy,
		RateBurst:  parseRateBurst(),
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}

	srv := &http.Server{
		Addr:              cfg.ServerAddr,
		Handler:           apiServer.Handler(),
		ReadHeaderTimeout: readHeaderTimeout,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
	}

	logger.Info("HTTP server ready",
		"addr", cfg.ServerAddr,
		"api", "/v1/*",
		"health", "/health, /ready",
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
