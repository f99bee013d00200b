package dto

import (
	"encoding/json"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/b2b-storefront-api/pkg/provider"
)

// Contrato público del storefront (camelCase, sin autenticación).

// CollectEventRequest cuerpo de POST /events/collect.
type CollectEventRequest struct {
	EventType  string          `json:"eventType" validate:"required,max=64"`
	ShopDomain string          `json:"shopDomain" validate:"omitempty,max=255"`
	SessionID  string          `json:"sessionId" validate:"omitempty,max=128"`
	UserID     string          `json:"userId" validate:"omitempty,max=64"`
	CompanyID  string          `json:"companyId" validate:"omitempty,max=64"`
	CustomerID string          `json:"customerId" validate:"omitempty,max=128"`
	Email      string          `json:"email" validate:"omitempty,max=320"`
	PageURL    string          `json:"pageUrl" validate:"omitempty,max=2048"`
	Referrer   string          `json:"referrer" validate:"omitempty,max=2048"`
	UserAgent  string          `json:"userAgent" validate:"omitempty,max=512"`
	Payload    json.RawMessage `json:"payload"`
	Timestamp  json.RawMessage `json:"timestamp"` // epoch en ms o RFC3339
}

// TrackCartRequest cuerpo de POST /abandoned-carts/track.
type TrackCartRequest struct {
	CartToken     string           `json:"cartToken" validate:"required,max=255"`
	ShopDomain    string           `json:"shopDomain" validate:"omitempty,max=255"`
	CustomerEmail string           `json:"customerEmail" validate:"omitempty,max=320"`
	CustomerPhone string           `json:"customerPhone" validate:"omitempty,max=32"`
	CustomerID    string           `json:"customerId" validate:"omitempty,max=128"`
	Items         []TrackCartItem  `json:"items" validate:"max=250,dive"`
	Subtotal      *decimal.Decimal `json:"subtotal"`
	Total         *decimal.Decimal `json:"total"`
	Currency      string           `json:"currency" validate:"omitempty,len=3"`
	CheckoutURL   string           `json:"checkoutUrl" validate:"omitempty,max=2048"`
	// PriceUnit unidad de subtotal/total y de los ítems que no traen la suya. Vacío ⇒ heurística legada.
	PriceUnit string `json:"priceUnit" validate:"omitempty,oneof=minor major"`
}

// TrackCartItem línea del carrito en /track. Un variant id ausente o inválido no rechaza el
// carrito: el worker omite esa línea.
type TrackCartItem struct {
	ShopifyVariantID provider.RawID   `json:"shopifyVariantId"`
	ProductID        provider.RawID   `json:"productId"`
	Title            string           `json:"title" validate:"max=500"`
	VariantTitle     string           `json:"variantTitle" validate:"max=500"`
	Quantity         *int             `json:"quantity" validate:"required,gte=0,lte=100000"`
	Price            *decimal.Decimal `json:"price" validate:"required"`
	CompareAtPrice   *decimal.Decimal `json:"compareAtPrice"`
	ImageURL         string           `json:"imageUrl" validate:"omitempty,max=2048"`
	PriceUnit        string           `json:"priceUnit" validate:"omitempty,oneof=minor major"`
}

// SyncCartRequest cuerpo de POST /abandoned-carts/sync: el carrito crudo del proveedor
// (forma de /cart.js de Shopify, precios en centavos).
type SyncCartRequest struct {
	Token              string           `json:"token" validate:"omitempty,max=255"`
	CartToken          string           `json:"cartToken" validate:"omitempty,max=255"`
	ShopDomain         string           `json:"shopDomain" validate:"omitempty,max=255"`
	CustomerEmail      string           `json:"customerEmail" validate:"omitempty,max=320"`
	CustomerPhone      string           `json:"customerPhone" validate:"omitempty,max=32"`
	CustomerID         string           `json:"customerId" validate:"omitempty,max=128"`
	Currency           string           `json:"currency" validate:"omitempty,len=3"`
	TotalPrice         *decimal.Decimal `json:"total_price"`
	ItemsSubtotalPrice *decimal.Decimal `json:"items_subtotal_price"`
	Items              []SyncCartItem   `json:"items" validate:"max=250,dive"`
}

// SyncCartItem línea de /cart.js. Los ids inválidos no rechazan el carrito: se omite la línea.
type SyncCartItem struct {
	VariantID     provider.RawID   `json:"variant_id"`
	ProductID     provider.RawID   `json:"product_id"`
	Title         string           `json:"product_title"`
	VariantTitle  string           `json:"variant_title"`
	Quantity      int              `json:"quantity" validate:"gte=0,lte=100000"`
	Price         decimal.Decimal  `json:"price"`
	OriginalPrice *decimal.Decimal `json:"original_price"`
	Image         string           `json:"image"`
}

// AckResponse acuse de recibo: el trabajo quedó encolado, no procesado.
type AckResponse struct {
	Success   bool   `json:"success"`
	Queued    bool   `json:"queued,omitempty"`
	JobID     string `json:"jobId,omitempty"`
	CartToken string `json:"cartToken,omitempty"`
}

// PublicErrorResponse cuerpo de error de la superficie pública.
type PublicErrorResponse struct {
	StatusCode int    `json:"statusCode"`
	Message    string `json:"message"`
	Error      string `json:"error"`
}
