package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jhoicas/b2b-storefront-api/internal/domain/entity"
	"github.com/jhoicas/b2b-storefront-api/internal/domain/repository"
)

// Asegura que CompanyRepo implementa repository.CompanyRepository.
var _ repository.CompanyRepository = (*CompanyRepo)(nil)

// CompanyRepo implementación del puerto CompanyRepository sobre PostgreSQL.
type CompanyRepo struct {
	q Querier
}

// NewCompanyRepository construye el adaptador de persistencia para empresas.
func NewCompanyRepository(q Querier) *CompanyRepo {
	return &CompanyRepo{q: q}
}

// GetByID obtiene una empresa de la tienda por ID.
func (r *CompanyRepo) GetByID(ctx context.Context, tenantID, id string) (*entity.Company, error) {
	query := `
		SELECT id, tenant_id, name, is_anonymous, status, created_at, updated_at
		FROM companies WHERE tenant_id = $1 AND id = $2`
	var c entity.Company
	err := r.q.QueryRow(ctx, query, tenantID, id).Scan(
		&c.ID, &c.TenantID, &c.Name, &c.IsAnonymous, &c.Status, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get company: %w", err)
	}
	return &c, nil
}

// EnsureAnonymous inserta la empresa centinela si falta y la devuelve.
// El índice único parcial companies(tenant_id) WHERE is_anonymous garantiza una sola por tienda:
// un INSERT concurrente espera al otro y termina en DO NOTHING.
func (r *CompanyRepo) EnsureAnonymous(ctx context.Context, tenantID string) (*entity.Company, error) {
	insert := `
		INSERT INTO companies (id, tenant_id, name, is_anonymous, status, created_at, updated_at)
		VALUES ($1, $2, $3, TRUE, 'active', now(), now())
		ON CONFLICT (tenant_id) WHERE is_anonymous DO NOTHING`
	if _, err := r.q.Exec(ctx, insert, uuid.NewString(), tenantID, entity.AnonymousCompanyName); err != nil {
		return nil, fmt.Errorf("insert anonymous company: %w", err)
	}

	query := `
		SELECT id, tenant_id, name, is_anonymous, status, created_at, updated_at
		FROM companies WHERE tenant_id = $1 AND is_anonymous`
	var c entity.Company
	err := r.q.QueryRow(ctx, query, tenantID).Scan(
		&c.ID, &c.TenantID, &c.Name, &c.IsAnonymous, &c.Status, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("get anonymous company: %w", err)
	}
	return &c, nil
}
