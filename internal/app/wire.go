package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	s3blob "github.com/openpredict/predictd/internal/blob/s3"
	"github.com/openpredict/predictd/internal/cache/redis"
	"github.com/openpredict/predictd/internal/config"
	"github.com/openpredict/predictd/internal/domain"
	"github.com/openpredict/predictd/internal/engine"
	"github.com/openpredict/predictd/internal/ledger"
	"github.com/openpredict/predictd/internal/notify"
	"github.com/openpredict/predictd/internal/server/handler"
	"github.com/openpredict/predictd/internal/store/memory"
	"github.com/openpredict/predictd/internal/store/postgres"
)

// Dependencies bundles every component the application modes need. It is
// constructed by Wire and torn down by the returned cleanup function.
type Dependencies struct {
	// Stores
	Platform  domain.PlatformStore
	Markets   domain.MarketStore
	Positions domain.PositionStore
	Disputes  domain.DisputeStore

	// Value ledgers
	Bank   domain.CollateralBank
	Shares domain.ShareLedger

	// Engine
	Engine *engine.Engine

	// Redis
	PriceCache  *redis.PriceCache
	SignalBus   *redis.SignalBus
	RateLimiter *redis.RateLimiter

	// Blob archive; nil when S3 is disabled.
	Archiver *s3blob.Archiver

	// Notifications
	Notifier *notify.Notifier

	// Health probes by component name.
	Pingers map[string]handler.Pinger
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that
// should be called on shutdown to release resources.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{
		Pingers: make(map[string]handler.Pinger),
	}

	// --- Stores ---
	switch strings.ToLower(cfg.Storage) {
	case "postgres":
		pgClient, err := postgres.New(ctx, postgres.ClientConfig{
			DSN:      cfg.Postgres.DSN,
			Host:     cfg.Postgres.Host,
			Port:     cfg.Postgres.Port,
			Database: cfg.Postgres.Database,
			User:     cfg.Postgres.User,
			Password: cfg.Postgres.Password,
			SSLMode:  cfg.Postgres.SSLMode,
			MaxConns: cfg.Postgres.PoolMaxConns,
			MinConns: cfg.Postgres.PoolMinConns,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres: %w", err)
		}
		closers = append(closers, pgClient.Close)

		if cfg.Postgres.RunMigrations {
			if err := pgClient.RunMigrations(ctx); err != nil {
				cleanup()
				return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
			}
		}

		pool := pgClient.Pool()
		deps.Platform = postgres.NewPlatformStore(pool)
		deps.Markets = postgres.NewMarketStore(pool)
		deps.Positions = postgres.NewPositionStore(pool)
		deps.Disputes = postgres.NewDisputeStore(pool)
		deps.Pingers["postgres"] = pool.Ping

	case "memory":
		deps.Platform = memory.NewPlatformStore()
		deps.Markets = memory.NewMarketStore()
		deps.Positions = memory.NewPositionStore()
		deps.Disputes = memory.NewDisputeStore()

	default:
		cleanup()
		return nil, nil, fmt.Errorf("wire: unknown storage %q", cfg.Storage)
	}

	// The collateral bank and share ledger are in-process: every transfer,
	// mint, and burn happens inside an engine instruction under its lock.
	deps.Bank = ledger.NewBank()
	deps.Shares = ledger.NewTokenLedger()

	// --- Redis ---
	redisClient, err := redis.New(ctx, redis.ClientConfig{
		Addr:       cfg.Redis.Addr,
		Password:   cfg.Redis.Password,
		DB:         cfg.Redis.DB,
		PoolSize:   cfg.Redis.PoolSize,
		MaxRetries: cfg.Redis.MaxRetries,
		TLSEnabled: cfg.Redis.TLSEnabled,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: redis: %w", err)
	}
	closers = append(closers, func() { _ = redisClient.Close() })

	deps.PriceCache = redis.NewPriceCache(redisClient)
	deps.SignalBus = redis.NewSignalBus(redisClient)
	deps.RateLimiter = redis.NewRateLimiter(redisClient)
	deps.Pingers["redis"] = redisClient.Ping

	// --- Engine ---
	deps.Engine = engine.New(engine.Config{
		Program:   cfg.Program.ProgramAddress(),
		Platform:  deps.Platform,
		Markets:   deps.Markets,
		Positions: deps.Positions,
		Disputes:  deps.Disputes,
		Bank:      deps.Bank,
		Shares:    deps.Shares,
		Bus:       deps.SignalBus,
		Prices:    deps.PriceCache,
		Logger:    logger,
	})

	// --- S3 archive ---
	if cfg.S3.Enabled {
		s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         cfg.S3.UseSSL,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: s3: %w", err)
		}
		deps.Archiver = s3blob.NewArchiver(
			s3blob.NewWriter(s3Client),
			deps.Positions,
			deps.Disputes,
			deps.SignalBus,
			logger,
		)
		deps.Pingers["s3"] = s3Client.Health
	}

	// --- Notifications ---
	var senders []notify.Sender
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(
			cfg.Notify.TelegramToken,
			cfg.Notify.TelegramChatID,
		))
	}
	if cfg.Notify.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.Notify.DiscordWebhookURL))
	}
	if cfg.Notify.WebhookURL != "" {
		senders = append(senders, notify.NewWebhookSender(cfg.Notify.WebhookURL, cfg.Notify.WebhookSecret))
	}
	deps.Notifier = notify.NewNotifier(senders, cfg.Notify.Events, logger)

	return deps, cleanup, nil
}
