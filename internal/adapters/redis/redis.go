package redis

import (
	"context"
	"time"

	"github.com/Bykamri/dev-elaction-sub000/internal/config"

	"github.com/redis/go-redis/v9"
)

// NewClient builds the shared Redis client. The same connection pool
// backs the event broadcaster's pub/sub fanout and the settlement
// schedule sorted set, so the pool size comes from configuration.
func NewClient(cfg *config.Config) *redis.Client {
	poolSize := cfg.Redis.PoolSize
	if poolSize <= 0 {
		poolSize = 10
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Redis.Addr,
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     poolSize,
		MinIdleConns: poolSize / 4,
		MaxRetries:   3,
	})

	return rdb
}

// PingRedis verifies the connection before the service starts serving.
func PingRedis(client *redis.Client) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return client.Ping(ctx).Err()
}
