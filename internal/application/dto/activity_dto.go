package dto

import (
	"encoding/json"
	"time"
)

// ListActivityLogsRequest filtros de GET /api/activity-logs.
type ListActivityLogsRequest struct {
	PageRequest
	CartID string
	Type   string
}

// ActivityLogResponse registro de auditoría.
type ActivityLogResponse struct {
	ID        int64           `json:"id"`
	CompanyID *string         `json:"company_id,omitempty"`
	CartID    *string         `json:"cart_id,omitempty"`
	EventType string          `json:"event_type"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
}

// ActivityLogListResponse lista paginada.
type ActivityLogListResponse struct {
	Items []ActivityLogResponse `json:"items"`
	Page  PageResponse          `json:"page"`
}
