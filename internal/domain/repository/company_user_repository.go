package repository

import (
	"context"

	"github.com/jhoicas/b2b-storefront-api/internal/domain/entity"
)

// CompanyUserRepository define el puerto de persistencia para miembros de empresas.
// Todas las búsquedas están acotadas a la tienda. nil, nil si no hay coincidencia.
type CompanyUserRepository interface {
	GetByID(ctx context.Context, tenantID, id string) (*entity.CompanyUser, error)
	GetByProviderCustomerID(ctx context.Context, tenantID string, customerID int64) (*entity.CompanyUser, error)
	GetByEmail(ctx context.Context, tenantID, email string) (*entity.CompanyUser, error)
}
