package repository

import (
	"context"

	"github.com/jhoicas/b2b-storefront-api/internal/domain/entity"
)

// TenantRepository define el puerto de persistencia para Tenant (DIP).
type TenantRepository interface {
	// GetByDomain busca por shop_domain o custom_domain (ya normalizado). nil, nil si no existe.
	GetByDomain(ctx context.Context, domain string) (*entity.Tenant, error)
	GetByID(ctx context.Context, id string) (*entity.Tenant, error)
}
