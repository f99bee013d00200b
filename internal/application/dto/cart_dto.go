package dto

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// ListCartsRequest filtros de GET /api/carts.
type ListCartsRequest struct {
	PageRequest
	Status    string
	CompanyID string
}

// CartItemResponse ítem de un carrito.
type CartItemResponse struct {
	VariantID    int64            `json:"variant_id"`
	ProductID    *int64           `json:"product_id,omitempty"`
	Title        string           `json:"title"`
	VariantTitle string           `json:"variant_title,omitempty"`
	Quantity     int              `json:"quantity"`
	UnitPrice    decimal.Decimal  `json:"unit_price"`
	ListPrice    *decimal.Decimal `json:"list_price,omitempty"`
	ImageURL     string           `json:"image_url,omitempty"`
}

// CartResponse carrito reconciliado.
type CartResponse struct {
	ID            string             `json:"id"`
	CompanyID     string             `json:"company_id"`
	CompanyUserID *string            `json:"company_user_id,omitempty"`
	CartToken     string             `json:"cart_token"`
	Status        string             `json:"status"`
	Currency      string             `json:"currency,omitempty"`
	Subtotal      decimal.Decimal    `json:"subtotal"`
	Total         decimal.Decimal    `json:"total"`
	ItemCount     int                `json:"item_count"`
	CheckoutURL   string             `json:"checkout_url,omitempty"`
	Metadata      json.RawMessage    `json:"metadata,omitempty"`
	Items         []CartItemResponse `json:"items,omitempty"`
	CreatedAt     time.Time          `json:"created_at"`
	UpdatedAt     time.Time          `json:"updated_at"`
}

// CartListResponse lista paginada de carritos.
type CartListResponse struct {
	Items []CartResponse `json:"items"`
	Page  PageResponse   `json:"page"`
}
