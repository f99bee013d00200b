// Package tenant resuelve la tienda (tenant) a partir de la pista de dominio que envía el cliente.
package tenant

import (
	"context"
	"fmt"
	"net"
	"strings"

	"github.com/jhoicas/b2b-storefront-api/internal/domain"
	"github.com/jhoicas/b2b-storefront-api/internal/domain/entity"
	"github.com/jhoicas/b2b-storefront-api/internal/domain/repository"
	"github.com/jhoicas/b2b-storefront-api/pkg/logger"
)

// Cache caché de tiendas por dominio normalizado. Solo guarda aciertos.
type Cache interface {
	Get(ctx context.Context, domain string) (*entity.Tenant, bool, error)
	Set(ctx context.Context, domain string, tenant *entity.Tenant) error
}

// Resolver mapea dominio → Tenant.
type Resolver struct {
	repo  repository.TenantRepository
	cache Cache // opcional
	log   *logger.Logger
}

// NewResolver construye el resolvedor. cache puede ser nil.
func NewResolver(repo repository.TenantRepository, cache Cache, log *logger.Logger) *Resolver {
	return &Resolver{repo: repo, cache: cache, log: log.Named("tenant")}
}

// Resolve devuelve la tienda activa del dominio o domain.ErrTenantNotFound.
// Los errores de la caché no son fatales: se consulta la base de datos.
func (r *Resolver) Resolve(ctx context.Context, hint string) (*entity.Tenant, error) {
	d := NormalizeDomain(hint)
	if d == "" {
		return nil, domain.ErrTenantNotFound
	}
	if r.cache != nil {
		t, ok, err := r.cache.Get(ctx, d)
		if err != nil {
			r.log.Warn().Err(err).Str("domain", d).Msg("caché de tiendas no disponible")
		} else if ok {
			return t, nil
		}
	}

	t, err := r.repo.GetByDomain(ctx, d)
	if err != nil {
		return nil, fmt.Errorf("resolver tienda %s: %w", d, err)
	}
	if t == nil || !t.IsActive() {
		return nil, fmt.Errorf("%w: %s", domain.ErrTenantNotFound, d)
	}
	if r.cache != nil {
		if err := r.cache.Set(ctx, d, t); err != nil {
			r.log.Warn().Err(err).Str("domain", d).Msg("no se pudo cachear la tienda")
		}
	}
	return t, nil
}

// NormalizeDomain deja solo el host en minúsculas: sin esquema, ruta, puerto ni punto final.
//
//	"https://Acme.myshopify.com/cart?x=1" → "acme.myshopify.com"
func NormalizeDomain(hint string) string {
	s := strings.ToLower(strings.TrimSpace(hint))
	if i := strings.Index(s, "://"); i >= 0 {
		s = s[i+3:]
	}
	if i := strings.IndexAny(s, "/?#"); i >= 0 {
		s = s[:i]
	}
	if i := strings.LastIndexByte(s, '@'); i >= 0 {
		s = s[i+1:]
	}
	if host, _, err := net.SplitHostPort(s); err == nil {
		s = host
	}
	return strings.TrimSuffix(s, ".")
}
