package cart

import (
	"context"

	"github.com/jhoicas/b2b-storefront-api/internal/application/identity"
	"github.com/jhoicas/b2b-storefront-api/internal/domain/entity"
	"github.com/jhoicas/b2b-storefront-api/internal/domain/repository"
)

// TxRunner ejecuta fn dentro de la sección crítica del carrito (tienda, token).
// La implementación de postgres abre una transacción con advisory lock; fn recibe repos ligados a ella.
type TxRunner interface {
	RunCart(ctx context.Context, tenantID, cartToken string, fn func(carts repository.CartRepository, companies repository.CompanyRepository) error) error
}

// TenantResolver resuelve la tienda desde la pista de dominio.
type TenantResolver interface {
	Resolve(ctx context.Context, hint string) (*entity.Tenant, error)
}

// IdentityResolver resuelve empresa y usuario a partir de señales débiles.
type IdentityResolver interface {
	Resolve(ctx context.Context, tenant *entity.Tenant, sig identity.Signals) (identity.Identity, error)
}

// AuditWriter escribe el rastro de auditoría tragándose los errores.
type AuditWriter interface {
	RecordAll(ctx context.Context, entries []*entity.ActivityLog)
}
