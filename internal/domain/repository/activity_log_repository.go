package repository

import (
	"context"

	"github.com/jhoicas/b2b-storefront-api/internal/domain/entity"
)

// ActivityLogRepository puerto append-only: no hay Update ni Delete.
type ActivityLogRepository interface {
	Append(ctx context.Context, log *entity.ActivityLog) error
	List(ctx context.Context, filter ActivityLogFilter) ([]*entity.ActivityLog, error)
}

// ActivityLogFilter filtros del listado (lectura de dashboards).
type ActivityLogFilter struct {
	TenantID  string
	CartID    string
	EventType string
	Limit     int
	Offset    int
}
