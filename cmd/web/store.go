package main

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/corprag/leadgate/internal/config"
	"github.com/corprag/leadgate/internal/database"
	"github.com/corprag/leadgate/internal/ratelimit"
)

// limiterStore bundles the selected Store with whatever must be closed on
// exit.  sql is non-nil only for the mysql backend.
type limiterStore struct {
	store ratelimit.Store
	sql   *ratelimit.SQLStore
	close func()
}

func openStore(ctx context.Context, cfg *config.Config, log *zap.SugaredLogger) (*limiterStore, error) {
	rl := cfg.Leads.RateLimit
	switch rl.Backend {
	case config.BackendRedis:
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			_ = rdb.Close()
			return nil, fmt.Errorf("redis ping %s: %w", cfg.Redis.Addr, err)
		}
		log.Infow("rate limiter on redis", "addr", cfg.Redis.Addr, "prefix", cfg.Redis.Prefix)
		return &limiterStore{
			store: ratelimit.NewRedisStore(rdb, cfg.Redis.Prefix),
			close: func() { _ = rdb.Close() },
		}, nil

	case config.BackendMySQL:
		db, err := database.Open(ctx, cfg.Database.RateLimitDSN)
		if err != nil {
			return nil, err
		}
		s := ratelimit.NewSQLStore(db)
		if err := s.EnsureSchema(ctx); err != nil {
			db.Close()
			return nil, err
		}
		log.Infow("rate limiter on mysql")
		return &limiterStore{store: s, sql: s, close: func() { _ = db.Close() }}, nil

	default:
		log.Infow("rate limiter in memory", "capacity", rl.MemoryCapacity)
		return &limiterStore{
			store: ratelimit.NewMemoryStore(rl.MemoryCapacity),
			close: func() {},
		}, nil
	}
}

// pruneLoop deletes expired mysql windows once per window length.
func pruneLoop(ctx context.Context, s *ratelimit.SQLStore, every time.Duration, log *zap.SugaredLogger) error {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-t.C:
			n, err := s.Prune(ctx, now)
			if err != nil {
				log.Warnw("rate limit prune failed", "err", err)
				continue
			}
			log.Debugw("rate limit windows pruned", "rows", n)
		}
	}
}
