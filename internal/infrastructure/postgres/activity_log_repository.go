package postgres

import (
	"context"
	"fmt"

	"github.com/jhoicas/b2b-storefront-api/internal/domain/entity"
	"github.com/jhoicas/b2b-storefront-api/internal/domain/repository"
)

var _ repository.ActivityLogRepository = (*ActivityLogRepo)(nil)

// ActivityLogRepo implementación append-only de ActivityLogRepository.
// La tabla tiene un trigger que rechaza UPDATE.
type ActivityLogRepo struct {
	q Querier
}

func NewActivityLogRepository(q Querier) *ActivityLogRepo {
	return &ActivityLogRepo{q: q}
}

// Append inserta el registro y completa ID con el valor de la secuencia.
func (r *ActivityLogRepo) Append(ctx context.Context, l *entity.ActivityLog) error {
	query := `
		INSERT INTO activity_logs (tenant_id, company_id, cart_id, event_type, payload, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`
	err := r.q.QueryRow(ctx, query,
		l.TenantID, l.CompanyID, l.CartID, l.EventType, jsonOrEmpty(l.Payload), l.CreatedAt,
	).Scan(&l.ID)
	if err != nil {
		return writeError("insert activity log", err)
	}
	return nil
}

// List devuelve los registros de la tienda del más nuevo al más viejo.
func (r *ActivityLogRepo) List(ctx context.Context, f repository.ActivityLogFilter) ([]*entity.ActivityLog, error) {
	query := `
		SELECT id, tenant_id, company_id, cart_id, event_type, payload, created_at
		FROM activity_logs WHERE tenant_id = $1`
	args := []any{f.TenantID}
	pos := 2
	if f.CartID != "" {
		query += fmt.Sprintf(" AND cart_id = $%d", pos)
		args = append(args, f.CartID)
		pos++
	}
	if f.EventType != "" {
		query += fmt.Sprintf(" AND event_type = $%d", pos)
		args = append(args, f.EventType)
		pos++
	}
	query += fmt.Sprintf(" ORDER BY id DESC LIMIT $%d OFFSET $%d", pos, pos+1)
	args = append(args, f.Limit, f.Offset)

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list activity logs: %w", err)
	}
	defer rows.Close()

	var list []*entity.ActivityLog
	for rows.Next() {
		var l entity.ActivityLog
		var payload []byte
		if err := rows.Scan(&l.ID, &l.TenantID, &l.CompanyID, &l.CartID, &l.EventType, &payload, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan activity log: %w", err)
		}
		l.Payload = payload
		list = append(list, &l)
	}
	return list, rows.Err()
}
