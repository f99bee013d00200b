package repository

import (
	"context"

	"github.com/jhoicas/b2b-storefront-api/internal/domain/entity"
)

// EventRepository puerto de persistencia para eventos de comportamiento.
type EventRepository interface {
	// Insert es idempotente por ID: devuelve inserted=false si el evento ya existía.
	Insert(ctx context.Context, event *entity.Event) (inserted bool, err error)
}
