package postgres

import (
	"context"
	"fmt"

	"github.com/jhoicas/b2b-storefront-api/internal/domain/entity"
	"github.com/jhoicas/b2b-storefront-api/internal/domain/repository"
)

var _ repository.CompanyUserRepository = (*CompanyUserRepo)(nil)

// CompanyUserRepo implementación de CompanyUserRepository. Solo devuelve miembros activos.
type CompanyUserRepo struct {
	q Querier
}

// NewCompanyUserRepository construye el adaptador de persistencia para miembros de empresas.
func NewCompanyUserRepository(q Querier) *CompanyUserRepo {
	return &CompanyUserRepo{q: q}
}

const companyUserSelect = `
	SELECT id, tenant_id, company_id, email, name, provider_customer_id, status, created_at, updated_at
	FROM company_users`

func (r *CompanyUserRepo) GetByID(ctx context.Context, tenantID, id string) (*entity.CompanyUser, error) {
	return r.getOne(ctx, "get company user",
		companyUserSelect+` WHERE tenant_id = $1 AND id = $2 AND status = 'active'`, tenantID, id)
}

func (r *CompanyUserRepo) GetByProviderCustomerID(ctx context.Context, tenantID string, customerID int64) (*entity.CompanyUser, error) {
	return r.getOne(ctx, "get company user by customer",
		companyUserSelect+` WHERE tenant_id = $1 AND provider_customer_id = $2 AND status = 'active'`, tenantID, customerID)
}

// GetByEmail compara sin distinguir mayúsculas; el índice único es sobre lower(email).
func (r *CompanyUserRepo) GetByEmail(ctx context.Context, tenantID, email string) (*entity.CompanyUser, error) {
	return r.getOne(ctx, "get company user by email",
		companyUserSelect+` WHERE tenant_id = $1 AND lower(email) = lower($2) AND status = 'active'`, tenantID, email)
}

func (r *CompanyUserRepo) getOne(ctx context.Context, op, query string, args ...any) (*entity.CompanyUser, error) {
	var u entity.CompanyUser
	err := r.q.QueryRow(ctx, query, args...).Scan(
		&u.ID, &u.TenantID, &u.CompanyID, &u.Email, &u.Name, &u.ProviderCustomerID,
		&u.Status, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &u, nil
}
