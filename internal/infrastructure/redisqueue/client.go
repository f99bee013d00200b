package redisqueue

import (
	"context"

	"github.com/go-redis/redis/v8"

	"github.com/jhoicas/b2b-storefront-api/pkg/config"
)

// NewClient crea el cliente de Redis compartido por la cola, el limitador y la caché de tiendas.
func NewClient(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}

// Ping verifica la conexión (readiness).
func Ping(ctx context.Context, rdb *redis.Client) error {
	return rdb.Ping(ctx).Err()
}
