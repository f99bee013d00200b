package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/jhoicas/b2b-storefront-api/internal/application/tenant"
	"github.com/jhoicas/b2b-storefront-api/internal/domain/entity"
)

var _ tenant.Cache = (*TenantCache)(nil)

const tenantKeyPrefix = "tenant:domain:"

// TenantCache caché de tiendas por dominio con TTL. Una tienda suspendida deja de resolverse
// como mucho un TTL después.
type TenantCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewTenantCache(rdb *redis.Client, ttl time.Duration) *TenantCache {
	return &TenantCache{rdb: rdb, ttl: ttl}
}

type cachedTenant struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	ShopDomain   string    `json:"shop_domain"`
	CustomDomain string    `json:"custom_domain,omitempty"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (c *TenantCache) Get(ctx context.Context, domain string) (*entity.Tenant, bool, error) {
	raw, err := c.rdb.Get(ctx, tenantKeyPrefix+domain).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("tenant cache get: %w", err)
	}
	var ct cachedTenant
	if err := json.Unmarshal(raw, &ct); err != nil {
		// entrada corrupta: se trata como fallo de caché y se reescribe al resolver
		return nil, false, nil
	}
	return &entity.Tenant{
		ID:           ct.ID,
		Name:         ct.Name,
		ShopDomain:   ct.ShopDomain,
		CustomDomain: ct.CustomDomain,
		Status:       ct.Status,
		CreatedAt:    ct.CreatedAt,
		UpdatedAt:    ct.UpdatedAt,
	}, true, nil
}

func (c *TenantCache) Set(ctx context.Context, domain string, t *entity.Tenant) error {
	raw, err := json.Marshal(cachedTenant{
		ID:           t.ID,
		Name:         t.Name,
		ShopDomain:   t.ShopDomain,
		CustomDomain: t.CustomDomain,
		Status:       t.Status,
		CreatedAt:    t.CreatedAt,
		UpdatedAt:    t.UpdatedAt,
	})
	if err != nil {
		return fmt.Errorf("tenant cache encode: %w", err)
	}
	if err := c.rdb.Set(ctx, tenantKeyPrefix+domain, raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("tenant cache set: %w", err)
	}
	return nil
}

// Invalidate quita la tienda de la caché (al suspenderla, por ejemplo).
func (c *TenantCache) Invalidate(ctx context.Context, domain string) error {
	return c.rdb.Del(ctx, tenantKeyPrefix+domain).Err()
}
