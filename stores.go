package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/facturador/facturador/backend/go-services/internal/config"
	"github.com/facturador/facturador/backend/go-services/internal/database"
	"github.com/facturador/facturador/backend/go-services/internal/sessions"
	"github.com/facturador/facturador/backend/go-services/internal/users"
	"github.com/facturador/facturador/backend/go-services/pkg/logger"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
)

const expiredSweepInterval = time.Hour

// backends holds the optional connections shared by the stores.
type backends struct {
	redis    *redis.Client
	mongo    *mongo.Client
	postgres *pgxpool.Pool
	mongoDB  string
	timeout  time.Duration
}

func connect(ctx context.Context, cfg *config.Config) (*backends, error) {
	b := &backends{mongoDB: cfg.MongoDB.Database, timeout: cfg.MongoDB.Timeout}

	if cfg.Redis.Host != "" {
		b.redis = redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr(), Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		if err := b.redis.Ping(ctx).Err(); err != nil {
			logger.Warnf("redis ping failed (%s): %v", cfg.Redis.Addr(), err)
		} else {
			logger.Infof("connected to Redis: %s", cfg.Redis.Addr())
		}
	}

	if cfg.MongoDB.URI != "" {
		// Retry/backoff when connecting to MongoDB to tolerate startup races
		const maxAttempts = 5
		backoff := time.Second
		var errConn error
		for attempt := 1; attempt <= maxAttempts; attempt++ {
			b.mongo, errConn = database.ConnectMongo(ctx, cfg.MongoDB.URI, cfg.MongoDB.Timeout)
			if errConn == nil {
				break
			}
			logger.Warnf("attempt %d/%d: failed to connect to MongoDB: %v", attempt, maxAttempts, errConn)
			if attempt < maxAttempts {
				time.Sleep(backoff)
				backoff *= 2
			}
		}
		if errConn != nil {
			b.Close()
			return nil, fmt.Errorf("mongo after %d attempts: %w", maxAttempts, errConn)
		}
	}

	if cfg.Postgres.URL != "" {
		pool, err := database.ConnectPostgres(ctx, cfg.Postgres.URL)
		if err != nil {
			b.Close()
			return nil, err
		}
		b.postgres = pool
	}
	return b, nil
}

func (b *backends) Close() {
	if b.redis != nil {
		_ = b.redis.Close()
	}
	if b.mongo != nil {
		_ = b.mongo.Disconnect(context.Background())
	}
	if b.postgres != nil {
		b.postgres.Close()
	}
}

// userRepository uses Mongo when configured and an in-memory store otherwise.
func (b *backends) userRepository(ctx context.Context) (users.UserRepository, error) {
	if b.mongo == nil {
		logger.Warnf("MONGODB_URI not set: users are kept in memory")
		return users.NewMemoryRepo(), nil
	}
	return users.NewMongoUserRepository(ctx, b.mongo.Database(b.mongoDB).Collection("users"))
}

func (b *backends) tokenRepository(ctx context.Context, cfg *config.Config) (sessions.Repository, error) {
	switch cfg.Session.Store {
	case "", "memory":
		logger.Warnf("refresh tokens are kept in memory; they do not survive restarts")
		return sessions.NewMemoryRepository(), nil
	case "redis":
		if b.redis == nil {
			return nil, fmt.Errorf("SESSION_STORE=redis requires REDIS_HOST")
		}
		return sessions.NewRedisRepository(b.redis, cfg.Session.RedisPrefix), nil
	case "mongo":
		if b.mongo == nil {
			return nil, fmt.Errorf("SESSION_STORE=mongo requires MONGODB_URI")
		}
		return sessions.NewMongoRepository(ctx, b.mongo.Database(b.mongoDB).Collection("refresh_tokens"))
	case "postgres":
		if b.postgres == nil {
			return nil, fmt.Errorf("SESSION_STORE=postgres requires POSTGRES_URL")
		}
		repo := sessions.NewPostgresRepository(b.postgres)
		if err := repo.EnsureSchema(ctx); err != nil {
			return nil, err
		}
		go sweepExpired(ctx, repo)
		return repo, nil
	}
	return nil, fmt.Errorf("unknown SESSION_STORE %q", cfg.Session.Store)
}

// sweepExpired deletes dead refresh tokens until ctx is done. Redis and Mongo
// expire rows on their own.
func sweepExpired(ctx context.Context, repo *sessions.PostgresRepository) {
	ticker := time.NewTicker(expiredSweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			n, err := repo.DeleteExpired(ctx, now.UTC())
			if err != nil {
				logger.Warnf("expired refresh token sweep: %v", err)
				continue
			}
			logger.Debugf("expired refresh token sweep removed %d rows", n)
		}
	}
}

// ready pings every configured backend.
func (b *backends) ready(ctx context.Context) (int, map[string]bool) {
	deps := map[string]bool{}
	status := http.StatusOK
	check := func(name string, err error) {
		deps[name] = err == nil
		if err != nil {
			status = http.StatusServiceUnavailable
		}
	}
	if b.redis != nil {
		check("redis", b.redis.Ping(ctx).Err())
	}
	if b.mongo != nil {
		check("mongo", database.PingMongo(ctx, b.mongo, b.timeout))
	}
	if b.postgres != nil {
		check("postgres", b.postgres.Ping(ctx))
	}
	return status, deps
}
