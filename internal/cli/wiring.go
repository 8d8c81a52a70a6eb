package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/uptrace/bun"

	"xforce-progression/internal/app"
	"xforce-progression/internal/config"
	"xforce-progression/internal/domain"
	"xforce-progression/internal/infra/amqp"
	"xforce-progression/internal/infra/memory"
	inframongo "xforce-progression/internal/infra/mongo"
	"xforce-progression/internal/infra/postgres"
	infraredis "xforce-progression/internal/infra/redis"
	"xforce-progression/internal/logger"
)

// adapters holds the wired ports plus what needs closing on shutdown.
type adapters struct {
	deps    app.Dependencies
	catalog *memory.CachedCatalog
	closers []func()
}

func (a *adapters) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

// buildAdapters picks an external adapter for every configured backend and the
// in-memory one otherwise.
func buildAdapters(ctx context.Context, cfg config.Config, log *logger.Logger) (*adapters, error) {
	a := &adapters{}
	fail := func(err error) (*adapters, error) {
		a.close()
		return nil, err
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		a.closers = append(a.closers, func() { _ = redisClient.Close() })
		if err := redisClient.Ping(ctx).Err(); err != nil {
			return fail(fmt.Errorf("ping redis: %w", err))
		}
		log.Info("redis enabled", "addr", cfg.Redis.Addr)
	}

	var (
		pool *pgxpool.Pool
		db   *bun.DB
	)
	if cfg.Postgres.URL != "" {
		db = openBun(cfg.Postgres.URL)
		a.closers = append(a.closers, func() { _ = db.Close() })
		if err := migrateDB(ctx, db, log); err != nil {
			return fail(err)
		}
		var err error
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return fail(fmt.Errorf("connect postgres: %w", err))
		}
		a.closers = append(a.closers, pool.Close)
		log.Info("postgres enabled")
	}

	var loader memory.QuizLoader = memory.NewStaticQuizLoader(memory.DemoQuizzes())
	if pool != nil {
		loader = postgres.NewQuizLoader(pool)
	}
	quizTTL := config.Duration(cfg.Quiz.TTL, config.Duration(cfg.Redis.TTL, 10*time.Minute))
	if redisClient != nil {
		a.deps.Quizzes = infraredis.NewQuizRepository(redisClient, loader, quizTTL)
		a.deps.Store = infraredis.NewAggregateStore(redisClient)
		a.deps.Leaderboard = infraredis.NewLeaderboard(redisClient)
	} else {
		a.deps.Quizzes = memory.NewQuizRepository(loader, quizTTL)
		a.deps.Store = memory.NewAggregateStore()
		a.deps.Leaderboard = memory.NewLeaderboard()
	}

	var source memory.CatalogSource = memory.NewStaticCatalog(domain.DefaultAchievements())
	if db != nil {
		a.deps.Ledger = postgres.NewActivityLedger(db)
		a.deps.Attempts = postgres.NewAttemptHistory(db)
		source = postgres.NewAchievementCatalog(db, log)
	} else {
		a.deps.Ledger = memory.NewActivityLedger()
		a.deps.Attempts = memory.NewAttemptHistory()
	}
	a.catalog = memory.NewCachedCatalog(source, config.Duration(cfg.Catalog.TTL, 5*time.Minute))
	a.deps.Catalog = a.catalog

	if cfg.Mongo.URI != "" {
		timeout := config.Duration(cfg.Mongo.Timeout, 5*time.Second)
		client, err := inframongo.Connect(ctx, cfg.Mongo.URI, timeout)
		if err != nil {
			return fail(err)
		}
		a.closers = append(a.closers, func() { _ = client.Disconnect(context.Background()) })
		database := cfg.Mongo.Database
		if database == "" {
			database = "xforce"
		}
		a.deps.Stats = inframongo.NewStatsProvider(client.Database(database), inframongo.DefaultCollections(), timeout)
		log.Info("mongo stats enabled", "database", database)
	} else {
		a.deps.Stats = memory.NewStatsProvider()
	}

	publisher, err := amqp.NewPublisher(cfg.AMQP.URL, cfg.AMQP.Exchange, log)
	if err != nil {
		return fail(err)
	}
	a.closers = append(a.closers, func() {
		if err := publisher.Close(); err != nil {
			log.Warn("close publisher", "error", err)
		}
	})
	if publisher.Enabled() {
		a.deps.Notifiers = append(a.deps.Notifiers, publisher)
	}

	a.deps.Logger = log
	return a, nil
}
