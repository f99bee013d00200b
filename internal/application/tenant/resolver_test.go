package tenant_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/b2b-storefront-api/internal/application/tenant"
	"github.com/jhoicas/b2b-storefront-api/internal/domain"
	"github.com/jhoicas/b2b-storefront-api/internal/domain/entity"
	"github.com/jhoicas/b2b-storefront-api/internal/testutil"
	"github.com/jhoicas/b2b-storefront-api/pkg/logger"
)

type mapCache struct {
	data map[string]*entity.Tenant
	fail bool
}

func (c *mapCache) Get(_ context.Context, d string) (*entity.Tenant, bool, error) {
	if c.fail {
		return nil, false, errors.New("redis caído")
	}
	t, ok := c.data[d]
	return t, ok, nil
}

func (c *mapCache) Set(_ context.Context, d string, t *entity.Tenant) error {
	if c.fail {
		return errors.New("redis caído")
	}
	c.data[d] = t
	return nil
}

func TestNormalizeDomain(t *testing.T) {
	assert.Equal(t, "acme.myshopify.com", tenant.NormalizeDomain("https://Acme.myshopify.com/cart?x=1"))
	assert.Equal(t, "acme.myshopify.com", tenant.NormalizeDomain("acme.myshopify.com:443"))
	assert.Equal(t, "tienda.acme.com", tenant.NormalizeDomain(" tienda.acme.com. "))
	assert.Equal(t, "", tenant.NormalizeDomain("   "))
}

func TestResolve_PorDominioYCache(t *testing.T) {
	store := testutil.NewMemStore()
	acme := store.AddTenant("acme.myshopify.com")
	cache := &mapCache{data: map[string]*entity.Tenant{}}
	r := tenant.NewResolver(store.Tenants(), cache, logger.Nop())

	got, err := r.Resolve(context.Background(), "https://ACME.myshopify.com")
	require.NoError(t, err)
	assert.Equal(t, acme.ID, got.ID)
	assert.Contains(t, cache.data, "acme.myshopify.com", "el acierto debe quedar en caché")
}

func TestResolve_DominioPropio(t *testing.T) {
	store := testutil.NewMemStore()
	acme := store.AddTenant("acme.myshopify.com")
	acme.CustomDomain = "tienda.acme.com"
	r := tenant.NewResolver(store.Tenants(), nil, logger.Nop())

	got, err := r.Resolve(context.Background(), "tienda.acme.com")
	require.NoError(t, err)
	assert.Equal(t, acme.ID, got.ID)
}

func TestResolve_Desconocida(t *testing.T) {
	r := tenant.NewResolver(testutil.NewMemStore().Tenants(), nil, logger.Nop())
	_, err := r.Resolve(context.Background(), "nadie.myshopify.com")
	assert.ErrorIs(t, err, domain.ErrTenantNotFound)

	_, err = r.Resolve(context.Background(), "")
	assert.ErrorIs(t, err, domain.ErrTenantNotFound)
}

func TestResolve_SuspendidaNoResuelve(t *testing.T) {
	store := testutil.NewMemStore()
	acme := store.AddTenant("acme.myshopify.com")
	acme.Status = "suspended"
	r := tenant.NewResolver(store.Tenants(), nil, logger.Nop())

	_, err := r.Resolve(context.Background(), "acme.myshopify.com")
	assert.ErrorIs(t, err, domain.ErrTenantNotFound)
}

func TestResolve_CacheCaidaUsaDB(t *testing.T) {
	store := testutil.NewMemStore()
	store.AddTenant("acme.myshopify.com")
	r := tenant.NewResolver(store.Tenants(), &mapCache{fail: true}, logger.Nop())

	_, err := r.Resolve(context.Background(), "acme.myshopify.com")
	assert.NoError(t, err)
}
