package activity

// Payloads tipados de cada tipo de activity log.

// CartCreated payload de cart_created.
type CartCreated struct {
	CartToken   string `json:"cartToken"`
	ItemCount   int    `json:"itemCount"`
	IsAnonymous bool   `json:"isAnonymous"`
	Source      string `json:"source,omitempty"`
}

// CartCompanyUpdated payload de cart_company_updated.
type CartCompanyUpdated struct {
	CartToken    string `json:"cartToken"`
	OldCompanyID string `json:"oldCompanyId"`
	NewCompanyID string `json:"newCompanyId"`
}

// ItemSummary ítem resumido dentro de cart_items_added.
type ItemSummary struct {
	VariantID int64  `json:"variantId"`
	Title     string `json:"title"`
	Quantity  int    `json:"quantity"`
}

// CartItemsAdded payload de cart_items_added (carrito nuevo).
type CartItemsAdded struct {
	CartToken string        `json:"cartToken"`
	Count     int           `json:"count"`
	Items     []ItemSummary `json:"items"`
}

// CartItemChange payload de cart_item_added / cart_item_removed / cart_item_updated.
type CartItemChange struct {
	CartToken   string `json:"cartToken"`
	VariantID   int64  `json:"variantId"`
	Title       string `json:"title,omitempty"`
	Quantity    int    `json:"quantity,omitempty"`
	OldQuantity *int   `json:"oldQuantity,omitempty"`
	NewQuantity *int   `json:"newQuantity,omitempty"`
}

// EventTracked payload de event_tracked.
type EventTracked struct {
	EventID   string `json:"eventId"`
	EventType string `json:"eventType"`
	SessionID string `json:"sessionId,omitempty"`
}
