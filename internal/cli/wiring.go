package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"ipormac/internal/address"
	"ipormac/internal/app"
	"ipormac/internal/config"
	"ipormac/internal/domain"
	"ipormac/internal/infra/memory"
	"ipormac/internal/infra/postgres"
	redisstore "ipormac/internal/infra/redis"
	"ipormac/internal/infra/sqlite"
	"ipormac/internal/logger"
	"ipormac/internal/monitoring"
)

// loadConfig reads the config file and configures logging from it.
func loadConfig(path string) (config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return cfg, fmt.Errorf("load config: %w", err)
	}
	logger.Init(cfg.Log.Level, cfg.Log.Format, cfg.Log.Output)
	return cfg, nil
}

// openStores returns the score store opener for the configured driver and a
// func releasing its connections.
func openStores(ctx context.Context, cfg config.Config) (app.StoreOpener, func(), error) {
	log := logger.WithField("driver", cfg.Store.Driver)
	switch cfg.Store.Driver {
	case config.DriverSQLite:
		db, err := sqlite.Open(cfg.Store.SQLiteDir)
		if err != nil {
			return nil, nil, err
		}
		log.WithField("dir", cfg.Store.SQLiteDir).Info("score store ready")
		return db.Opener(), func() { db.Close() }, nil
	case config.DriverRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, nil, fmt.Errorf("ping redis: %w", err)
		}
		ttl := config.TTLDuration(cfg.Redis.TTL, 0)
		log.WithFields(logrus.Fields{"addr": cfg.Redis.Addr, "ttl": ttl}).Info("score store ready")
		return redisstore.Opener(client, ttl), func() { client.Close() }, nil
	case config.DriverPostgres:
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return nil, nil, err
		}
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return nil, nil, fmt.Errorf("connect postgres: %w", err)
		}
		log.Info("score store ready")
		return postgres.Opener(pool), pool.Close, nil
	default:
		log.Warn("scores are kept in memory and lost on exit")
		return memory.NewScoreStores().Open, func() {}, nil
	}
}

// newGenerator builds the question source from the generator section. A zero
// seed draws a fresh one from the clock.
func newGenerator(cfg config.Config, metrics *monitoring.Metrics) *address.Generator {
	seed := cfg.Generator.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	opts := []address.Option{
		address.WithRerollHook(func(t domain.AddressType) { metrics.ObserveReroll(string(t)) }),
	}
	if len(cfg.Generator.Weights) > 0 {
		opts = append(opts, address.WithWeights(cfg.Generator.Weights))
	}
	return address.NewSeededGenerator(seed, opts...)
}

// newDrill assembles the drill service on top of opener.
func newDrill(cfg config.Config, open app.StoreOpener, metrics *monitoring.Metrics) *app.DrillService {
	sites := app.NewSites(cfg.Sites)
	managers := app.NewManagers(open, sites)
	sessions := memory.NewSessionStore(config.TTLDuration(cfg.Quiz.TTL, 10*time.Minute))
	return app.NewDrillService(sessions, newGenerator(cfg, metrics), managers, sites, app.WithMetrics(metrics))
}
