package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/steveharianto/Flightly/internal/config"
	"github.com/steveharianto/Flightly/internal/extract"
	"github.com/steveharianto/Flightly/internal/handlers"
	"github.com/steveharianto/Flightly/internal/intake"
	"github.com/steveharianto/Flightly/internal/llm"
	"github.com/steveharianto/Flightly/internal/memory"
	"github.com/steveharianto/Flightly/internal/telemetry"
	"github.com/steveharianto/Flightly/internal/transport"
)

func main() {
	// Load .env file if it exists (for development)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := newLogger(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer logger.Sync()

	logger.Info("Starting intake service",
		zap.String("service", cfg.ServiceName),
		zap.String("http_addr", cfg.HTTPAddr),
		zap.String("nats_url", cfg.NatsURL))

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := telemetry.NewMetrics(reg)

	store, err := newStore(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize journal store", zap.Error(err))
	}
	journal := memory.NewManager(store, logger)

	opts := []handlers.Option{
		handlers.WithCacheCapacity(cfg.CacheCapacity),
		handlers.WithMinInputLength(cfg.MinInputLength),
		handlers.WithLogger(logger),
		handlers.WithMetrics(metrics),
	}
	if cfg.RemoteEnabled() {
		provider, err := llm.New(llm.Config{
			Provider: cfg.LLMProvider,
			APIKey:   cfg.LLMAPIKey,
			Model:    cfg.LLMModel,
			BaseURL:  cfg.LLMBaseURL,
			Timeout:  cfg.LLMTimeout,
			Referer:  cfg.LLMReferer,
			Title:    cfg.LLMTitle,
		}, logger)
		if err != nil {
			logger.Fatal("Failed to initialize LLM provider", zap.Error(err))
		}
		opts = append(opts, handlers.WithRemote(handlers.NewRemoteExtractor(provider, logger, metrics)))
		logger.Info("Remote extraction enabled",
			zap.String("provider", provider.Name()),
			zap.String("model", cfg.LLMModel))
	} else {
		logger.Warn("No LLM API key configured, using rule-based extraction only")
	}
	travelHandler := handlers.NewTravelHandler(extract.New(), opts...)

	registry := intake.NewRegistry(travelHandler,
		intake.WithDebounceDelay(cfg.DebounceDelay),
		intake.WithMinGrowth(cfg.MinGrowth),
		intake.WithJournal(journal),
		intake.WithLogger(logger),
		intake.WithMetrics(metrics),
	)

	natsTransport, err := transport.NewNATSTransport(cfg, registry, journal, logger, metrics)
	if err != nil {
		logger.Warn("NATS unavailable, serving HTTP only", zap.Error(err))
	} else {
		registry.AddObserver(natsTransport.PublishState)
		if err := natsTransport.Start(); err != nil {
			logger.Fatal("Failed to start NATS transport", zap.Error(err))
		}
	}

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           transport.NewHTTPHandler(registry, journal, reg, logger, metrics).Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP server failed", zap.Error(err))
		}
	}()
	logger.Info("Intake service is running")

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan
	logger.Info("Shutting down gracefully", zap.String("signal", sig.String()))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Warn("Error shutting down HTTP server", zap.Error(err))
	}

	if natsTransport != nil {
		if err := natsTransport.Close(); err != nil {
			logger.Warn("Error closing NATS transport", zap.Error(err))
		}
	}

	logger.Info("Closing sessions", zap.Int("active_sessions", registry.Len()))
	registry.CloseAll()

	if err := journal.Close(); err != nil {
		logger.Warn("Error closing journal", zap.Error(err))
	}
	logger.Info("Intake service stopped")
}

// newStore keeps journals in Redis when REDIS_URL is set and in process
// memory otherwise.
func newStore(cfg *config.Config, logger *zap.Logger) (memory.Store, error) {
	if cfg.RedisURL == "" {
		logger.Info("Using in-memory journal store", zap.Duration("ttl", cfg.TranscriptTTL))
		return memory.NewInMemoryStore(cfg.TranscriptTTL), nil
	}
	store, err := memory.NewRedisStore(cfg.RedisURL, cfg.TranscriptTTL)
	if err != nil {
		return nil, err
	}
	logger.Info("Redis connected", zap.Duration("ttl", cfg.TranscriptTTL))
	return store, nil
}

func newLogger(level, format string) (*zap.Logger, error) {
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, err
	}
	zc := zap.NewProductionConfig()
	if format == "console" {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = lvl
	return zc.Build()
}
