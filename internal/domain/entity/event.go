package entity

import (
	"encoding/json"
	"time"
)

// Event ocurrencia de comportamiento (page view, product view, ...) de una tienda.
// ID es el id del job de ingesta, lo que hace idempotente la re-entrega.
type Event struct {
	ID            string
	TenantID      string
	CompanyID     *string
	CompanyUserID *string
	SessionID     string
	EventType     string
	PageURL       string
	Referrer      string
	UserAgent     string
	IPAddress     string
	Payload       json.RawMessage
	OccurredAt    time.Time
	CreatedAt     time.Time
}
