// Package bootstrap arma las dependencias compartidas por cmd/api, cmd/worker y cmd/ingestctl.
package bootstrap

import (
	"context"
	"fmt"

	"github.com/go-redis/redis/v8"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jhoicas/b2b-storefront-api/internal/application/activity"
	"github.com/jhoicas/b2b-storefront-api/internal/application/cart"
	"github.com/jhoicas/b2b-storefront-api/internal/application/event"
	"github.com/jhoicas/b2b-storefront-api/internal/application/identity"
	"github.com/jhoicas/b2b-storefront-api/internal/application/tenant"
	"github.com/jhoicas/b2b-storefront-api/internal/application/worker"
	"github.com/jhoicas/b2b-storefront-api/internal/infrastructure/postgres"
	"github.com/jhoicas/b2b-storefront-api/internal/infrastructure/redisqueue"
	"github.com/jhoicas/b2b-storefront-api/internal/infrastructure/redisstore"
	"github.com/jhoicas/b2b-storefront-api/pkg/config"
	"github.com/jhoicas/b2b-storefront-api/pkg/logger"
)

// Infra conexiones abiertas del proceso.
type Infra struct {
	Pool  *pgxpool.Pool
	Redis *redis.Client
	Queue *redisqueue.Queue
}

// Open conecta a PostgreSQL y Redis. Falla si alguno no responde.
func Open(ctx context.Context, cfg *config.Config, log *logger.Logger) (*Infra, error) {
	rdb, err := OpenRedis(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("conexión a PostgreSQL: %w", err)
	}
	log.Info().Str("dsn", postgres.RedactDSN(cfg.DB.ConnectionString())).Msg("PostgreSQL conectado")

	return &Infra{
		Pool:  pool,
		Redis: rdb,
		Queue: redisqueue.New(rdb, redisqueue.OptionsFromConfig(cfg.Queue), log),
	}, nil
}

// OpenRedis solo Redis (la CLI de dead-letter no necesita la base de datos).
func OpenRedis(ctx context.Context, cfg *config.Config, log *logger.Logger) (*redis.Client, error) {
	rdb := redisqueue.NewClient(cfg.Redis)
	if err := redisqueue.Ping(ctx, rdb); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("conexión a Redis %s: %w", cfg.Redis.Addr, err)
	}
	log.Info().Str("addr", cfg.Redis.Addr).Msg("Redis conectado")
	return rdb, nil
}

// Close cierra el pool y el cliente de Redis.
func (i *Infra) Close() {
	i.Pool.Close()
	_ = i.Redis.Close()
}

// TenantResolver resolvedor de tiendas con caché en Redis.
func (i *Infra) TenantResolver(cfg *config.Config, log *logger.Logger) *tenant.Resolver {
	return tenant.NewResolver(
		postgres.NewTenantRepository(i.Pool),
		redisstore.NewTenantCache(i.Redis, cfg.Ingest.TenantCacheTTL),
		log,
	)
}

// Dispatcher arma la tubería de los workers: resolvedores, reconciliador, registrador de eventos
// y auditoría, todos sobre PostgreSQL.
func (i *Infra) Dispatcher(cfg *config.Config, log *logger.Logger) *worker.Dispatcher {
	tenants := i.TenantResolver(cfg, log)
	identities := identity.NewResolver(
		postgres.NewCompanyUserRepository(i.Pool),
		postgres.NewCompanyRepository(i.Pool),
		identity.NewJWTSessionDecoder(cfg.Session.Secret, cfg.Session.Issuer),
		log,
	)
	audit := activity.NewLogger(postgres.NewActivityLogRepository(i.Pool), log)

	reconciler := cart.NewReconciler(
		postgres.NewTxRunner(i.Pool),
		tenants, identities, audit,
		cart.Options{MinorUnitThreshold: cfg.Ingest.MinorUnitThreshold},
		log,
	)
	recorder := event.NewRecorder(
		postgres.NewEventRepository(i.Pool),
		postgres.NewCompanyRepository(i.Pool),
		tenants, identities, audit,
		log,
	)
	return worker.NewDispatcher(reconciler, recorder, log)
}
