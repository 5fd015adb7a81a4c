package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/lostmatch/internal/config"
	dbRedis "github.com/kailas-cloud/lostmatch/internal/db/redis"
	"github.com/kailas-cloud/lostmatch/internal/domain"
	logpkg "github.com/kailas-cloud/lostmatch/internal/logger"
	"github.com/kailas-cloud/lostmatch/internal/metrics"
	"github.com/kailas-cloud/lostmatch/internal/repository/embcache"
	itemrepo "github.com/kailas-cloud/lostmatch/internal/repository/item"
	pgrepo "github.com/kailas-cloud/lostmatch/internal/repository/item/postgres"
	chiTransport "github.com/kailas-cloud/lostmatch/internal/transport/chi"
	encoderClient "github.com/kailas-cloud/lostmatch/internal/transport/encoder"
	"github.com/kailas-cloud/lostmatch/internal/transport/local"
	openaiEmb "github.com/kailas-cloud/lostmatch/internal/transport/openai"
	embeddinguc "github.com/kailas-cloud/lostmatch/internal/usecase/embedding"
	healthuc "github.com/kailas-cloud/lostmatch/internal/usecase/health"
	matchuc "github.com/kailas-cloud/lostmatch/internal/usecase/match"
	"github.com/kailas-cloud/lostmatch/internal/version"
)

func main() {
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	if err := run(env, cfg, logger); err != nil {
		logger.Fatal("lostmatch stopped with error", zap.Error(err))
	}
	logger.Info("Server stopped gracefully")
}

func run(env string, cfg config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("Starting lostmatch API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("db_driver", cfg.Database.Driver),
		zap.String("encoder_provider", cfg.Encoder.Provider),
	)

	// Register metrics explicitly (no init())
	metrics.Register()

	corpus, pinger, closeCorpus, err := buildCorpus(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeCorpus()

	encoder, err := buildEncoder(cfg, logger)
	if err != nil {
		return fmt.Errorf("build encoder: %w", err)
	}
	instrumented := embeddinguc.NewInstrumentedEncoder(encoder, cfg.Encoder.Provider, cfg.Encoder.Model, logger)

	providerOpts := []embeddinguc.Option{embeddinguc.WithLogger(logger)}
	if cfg.Encoder.PinModel {
		providerOpts = append(providerOpts, embeddinguc.WithModel(cfg.Encoder.Model))
	}
	if cfg.Encoder.MaxPixels > 0 {
		providerOpts = append(providerOpts, embeddinguc.WithMaxPixels(cfg.Encoder.MaxPixels))
	}
	provider, err := embeddinguc.NewProvider(instrumented, cfg.Encoder.Dimensions, providerOpts...)
	if err != nil {
		return fmt.Errorf("build embedding provider: %w", err)
	}
	logger.Info("Embedding provider created",
		zap.String("provider", cfg.Encoder.Provider),
		zap.String("model", cfg.Encoder.Model),
		zap.Int("dimensions", cfg.Encoder.Dimensions),
	)

	scorer, err := matchuc.ScorerByName(cfg.Match.Scorer)
	if err != nil {
		return err
	}
	matchSvc := matchuc.New(provider, corpus, logger).
		WithTopK(cfg.Match.TopK).
		WithDimensions(cfg.Encoder.Dimensions).
		WithScorer(scorer).
		WithMinScore(cfg.Match.MinScore).
		WithCategoryFilter(cfg.Match.CategoryFilter).
		WithExcludeResolved(cfg.Match.ExcludeResolved)
	if cfg.Match.BatchCacheEnabled() {
		matchSvc.WithMemo(func(inner matchuc.ItemEncoder) matchuc.ItemEncoder {
			return embcache.New(inner, cfg.Encoder.Model, metrics.EmbeddingCacheTotal, logger)
		})
	}

	healthSvc := healthuc.New(pinger, instrumented)

	server := chiTransport.NewServer(matchSvc, healthSvc, logger).
		WithMaxBodyBytes(int64(cfg.HTTP.MaxBodyMB) << 20)

	r := chi.NewRouter()
	r.Use(chiTransport.JSONRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(chiTransport.WideEvent(logger))
	r.Use(chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys))
	r.Use(metrics.Middleware())
	server.Register(r)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadTimeout:       time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		ReadHeaderTimeout: time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout:      time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
		BaseContext:       func(_ net.Listener) context.Context { return ctx },
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Received shutdown signal")

		shutdownCtx, cancel := context.WithTimeout(context.Background(),
			time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	})
	return g.Wait()
}

// buildCorpus opens the configured store and returns the corpus, its health
// pinger and a close function.
func buildCorpus(ctx context.Context, cfg config.Config, logger *zap.Logger) (
	matchuc.Corpus, healthuc.CorpusPinger, func(), error,
) {
	readiness := time.Duration(cfg.Database.ReadinessTimeout) * time.Second

	switch cfg.Database.Driver {
	case config.DriverRedis, config.DriverValkey:
		store, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.Database.Addrs,
			Username: cfg.Database.Username,
			Password: cfg.Database.Password,
			DB:       cfg.Database.DB,
		})
		if err != nil {
			return nil, nil, nil, fmt.Errorf("create %s store: %w", cfg.Database.Driver, err)
		}
		if err := store.WaitForReady(ctx, readiness); err != nil {
			store.Close()
			return nil, nil, nil, fmt.Errorf("database not ready: %w", err)
		}
		logger.Info("Connected to database", zap.Strings("addrs", cfg.Database.Addrs))
		return itemrepo.New(store, cfg.Storage.KeyPrefix), store, store.Close, nil

	case config.DriverPostgres:
		pctx, cancel := context.WithTimeout(ctx, readiness)
		defer cancel()
		pool, err := pgrepo.NewPool(pctx, cfg.Database.DSN)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("database not ready: %w", err)
		}
		repo := pgrepo.New(pool)
		if cfg.Database.Migrate {
			if err := repo.Migrate(pctx); err != nil {
				pool.Close()
				return nil, nil, nil, err
			}
		}
		logger.Info("Connected to database", zap.String("driver", config.DriverPostgres))
		return repo, pool, pool.Close, nil

	default:
		return nil, nil, nil, fmt.Errorf("unknown database driver %q: %w", cfg.Database.Driver, domain.ErrConfiguration)
	}
}

// buildEncoder creates the base image encoder for the configured provider.
func buildEncoder(cfg config.Config, logger *zap.Logger) (domain.ImageEncoder, error) {
	switch cfg.Encoder.Provider {
	case config.ProviderHTTP:
		return encoderClient.NewClient(&encoderClient.Config{
			URL:       cfg.Encoder.URL,
			HealthURL: cfg.Encoder.HealthURL,
			APIKey:    cfg.Encoder.APIKey,
			Model:     cfg.Encoder.Model,
			Timeout:   cfg.Encoder.Timeout(),
			Provider:  config.ProviderHTTP,
			Logger:    logger,
		})
	case config.ProviderOpenAI:
		return openaiEmb.NewEmbedder(&openaiEmb.Config{
			APIKey:     cfg.Encoder.APIKey,
			BaseURL:    cfg.Encoder.URL,
			Model:      cfg.Encoder.Model,
			Dimensions: cfg.Encoder.Dimensions,
			Timeout:    cfg.Encoder.Timeout(),
			Provider:   config.ProviderOpenAI,
			Logger:     logger,
		}), nil
	case config.ProviderLocal:
		return local.NewHistogramEncoder(cfg.Encoder.Dimensions)
	default:
		return nil, fmt.Errorf("unknown encoder provider %q: %w", cfg.Encoder.Provider, domain.ErrConfiguration)
	}
}
