// Package activity escribe el rastro de auditoría (activity_logs). Append-only: cada llamada es
// un insert inmutable y un fallo nunca se propaga al llamador.
package activity

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jhoicas/b2b-storefront-api/internal/domain/entity"
	"github.com/jhoicas/b2b-storefront-api/internal/domain/repository"
	"github.com/jhoicas/b2b-storefront-api/pkg/logger"
)

// Logger escritor de auditoría.
type Logger struct {
	repo repository.ActivityLogRepository
	log  *logger.Logger
}

// NewLogger construye el escritor de auditoría.
func NewLogger(repo repository.ActivityLogRepository, log *logger.Logger) *Logger {
	return &Logger{repo: repo, log: log.Named("activity")}
}

// Record inserta un registro. Los errores (y panics del adaptador) se registran en el log
// operativo y se descartan.
func (l *Logger) Record(ctx context.Context, entry *entity.ActivityLog) {
	defer func() {
		if rec := recover(); rec != nil {
			l.log.Error().Interface("panic", rec).Str("event_type", entry.EventType).Msg("panic escribiendo activity log")
		}
	}()
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	if err := l.repo.Append(ctx, entry); err != nil {
		l.log.Error().Err(err).
			Str("tenant_id", entry.TenantID).
			Str("event_type", entry.EventType).
			Msg("no se pudo escribir activity log")
	}
}

// RecordAll inserta en orden; un fallo no detiene los siguientes.
func (l *Logger) RecordAll(ctx context.Context, entries []*entity.ActivityLog) {
	for _, e := range entries {
		l.Record(ctx, e)
	}
}

// NewEntry arma un registro con el payload serializado a JSON.
func NewEntry(tenantID string, companyID, cartID *string, eventType string, payload any) *entity.ActivityLog {
	raw, err := json.Marshal(payload)
	if err != nil || payload == nil {
		raw = json.RawMessage(`{}`)
	}
	return &entity.ActivityLog{
		TenantID:  tenantID,
		CompanyID: companyID,
		CartID:    cartID,
		EventType: eventType,
		Payload:   raw,
		CreatedAt: time.Now().UTC(),
	}
}
