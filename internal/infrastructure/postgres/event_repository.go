package postgres

import (
	"context"

	"github.com/jhoicas/b2b-storefront-api/internal/domain/entity"
	"github.com/jhoicas/b2b-storefront-api/internal/domain/repository"
)

var _ repository.EventRepository = (*EventRepo)(nil)

// EventRepo persistencia de eventos de comportamiento.
type EventRepo struct {
	q Querier
}

func NewEventRepository(q Querier) *EventRepo {
	return &EventRepo{q: q}
}

// Insert es idempotente por ID: una re-entrega del mismo job no duplica el evento.
func (r *EventRepo) Insert(ctx context.Context, e *entity.Event) (bool, error) {
	query := `
		INSERT INTO events (id, tenant_id, company_id, company_user_id, session_id, event_type,
			page_url, referrer, user_agent, ip_address, payload, occurred_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (id) DO NOTHING`
	tag, err := r.q.Exec(ctx, query,
		e.ID, e.TenantID, e.CompanyID, e.CompanyUserID, e.SessionID, e.EventType,
		e.PageURL, e.Referrer, e.UserAgent, nullString(e.IPAddress), jsonOrEmpty(e.Payload),
		e.OccurredAt, e.CreatedAt,
	)
	if err != nil {
		return false, writeError("insert event", err)
	}
	return tag.RowsAffected() == 1, nil
}
