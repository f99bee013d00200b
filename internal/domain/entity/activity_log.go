package entity

import (
	"encoding/json"
	"time"
)

// Tipos de registro de actividad.
const (
	ActivityCartCreated        = "cart_created"
	ActivityCartCompanyUpdated = "cart_company_updated"
	ActivityCartItemsAdded     = "cart_items_added"
	ActivityCartItemAdded      = "cart_item_added"
	ActivityCartItemRemoved    = "cart_item_removed"
	ActivityCartItemUpdated    = "cart_item_updated"
	ActivityEventTracked       = "event_tracked"
)

// ActivityLog registro de auditoría inmutable. ID lo asigna la secuencia de la base de datos.
type ActivityLog struct {
	ID        int64
	TenantID  string
	CompanyID *string
	CartID    *string
	EventType string
	Payload   json.RawMessage
	CreatedAt time.Time
}
