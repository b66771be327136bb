package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"invoiceweb/portal/internal/apiclient"
	"invoiceweb/portal/internal/config"
	"invoiceweb/portal/internal/mockapi"
	"invoiceweb/portal/internal/services"
	"invoiceweb/portal/internal/session"
	"invoiceweb/portal/internal/storage"
	filestore "invoiceweb/portal/internal/storage/file"
	pgstore "invoiceweb/portal/internal/storage/postgres"
	redisstore "invoiceweb/portal/internal/storage/redis"
	"invoiceweb/portal/internal/telemetry"
)

func main() {
	var cli *CLI
	app := fx.New(
		fx.WithLogger(func(logger *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: logger.WithOptions(zap.IncreaseLevel(zap.WarnLevel))}
		}),
		fx.Provide(
			newConfig,
			newLogger,
			newStorage,
			newMode,
			newTransport,
			newClient,
			services.NewAPI,
			newSessionStore,
			NewCLI,
		),
		fx.Invoke(useTelemetry),
		fx.Populate(&cli),
	)
	if err := app.Err(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	startCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := app.Start(startCtx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	code := cli.Run(context.Background(), os.Args[1:])

	stopCtx, cancelStop := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelStop()
	if err := app.Stop(stopCtx); err != nil {
		fmt.Fprintln(os.Stderr, err)
	}
	os.Exit(code)
}

func newConfig() (config.Config, error) {
	return config.Load()
}

func newLogger(cfg config.Config) (*zap.Logger, error) {
	var (
		logger *zap.Logger
		err    error
	)
	if cfg.Environment == "development" {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		return nil, err
	}
	zap.ReplaceGlobals(logger)
	return logger, nil
}

func useTelemetry(lc fx.Lifecycle, cfg config.Config, logger *zap.Logger) error {
	shutdown, err := telemetry.Setup(context.Background(), cfg, logger)
	if err != nil {
		return fmt.Errorf("telemetry init: %w", err)
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			stopCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			defer cancel()
			return shutdown(stopCtx)
		},
	})
	return nil
}

func newStorage(lc fx.Lifecycle, cfg config.Config) (storage.Storage, error) {
	switch cfg.SessionStore {
	case storage.KindMemory:
		return storage.NewMemory(), nil
	case storage.KindFile:
		return filestore.New(cfg.SessionFile)
	case storage.KindPostgres:
		pool, err := newPGXPool(lc, cfg)
		if err != nil {
			return nil, err
		}
		store := pgstore.NewStore(pool)
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := store.EnsureSchema(ctx); err != nil {
			return nil, err
		}
		return store, nil
	case storage.KindRedis:
		client, err := newRedisClient(lc, cfg)
		if err != nil {
			return nil, err
		}
		return redisstore.NewStore(client, cfg.RedisPrefix), nil
	default:
		return nil, storage.CheckKind(cfg.SessionStore)
	}
}

func newPGXPool(lc fx.Lifecycle, cfg config.Config) (*pgxpool.Pool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			pool.Close()
			return nil
		},
	})
	return pool, nil
}

func newRedisClient(lc fx.Lifecycle, cfg config.Config) (goredis.UniversalClient, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return client.Close()
		},
	})
	return client, nil
}

func newMode(cfg config.Config) *apiclient.Mode {
	return apiclient.NewMode(cfg.UseMock)
}

func newTransport(cfg config.Config, mode *apiclient.Mode, logger *zap.Logger) apiclient.Transport {
	backend := mockapi.NewBackend(mockapi.Options{
		Secret: []byte(cfg.MockSecret),
		Logger: logger.Named("mockapi"),
	})
	return &apiclient.Switch{
		Live: apiclient.NewHTTPTransport(apiclient.HTTPOptions{
			Logger:    logger.Named("http"),
			RateLimit: cfg.RateLimitRPS,
			Burst:     cfg.RateLimitBurst,
		}),
		Mock: mockapi.NewTransport(backend, cfg.MockLatency, logger.Named("mock")),
		Mode: mode,
	}
}

func newClient(cfg config.Config, transport apiclient.Transport, logger *zap.Logger) (*apiclient.Client, error) {
	return apiclient.New(apiclient.Options{
		BaseURL:   cfg.APIBaseURL,
		Timeout:   cfg.APITimeout,
		Transport: transport,
		Logger:    logger,
	})
}

func newSessionStore(api *services.API, store storage.Storage, logger *zap.Logger) *session.Store {
	return session.New(api.Auth, store, session.Options{Logger: logger.Named("session")})
}
