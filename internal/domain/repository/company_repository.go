package repository

import (
	"context"

	"github.com/jhoicas/b2b-storefront-api/internal/domain/entity"
)

// CompanyRepository define el puerto de persistencia para Company.
// La implementación vive en infrastructure.
type CompanyRepository interface {
	GetByID(ctx context.Context, tenantID, id string) (*entity.Company, error)
	// EnsureAnonymous devuelve la empresa centinela de la tienda, creándola una sola vez.
	EnsureAnonymous(ctx context.Context, tenantID string) (*entity.Company, error)
}
