package entity

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// Estados del ciclo de vida del carrito.
const (
	CartStatusDraft     = "draft"
	CartStatusRestored  = "restored"
	CartStatusConverted = "converted"
)

// Cart carrito persistido. La clave natural dentro de la tienda es CartToken.
// CompanyID nunca es vacío: los carritos anónimos apuntan a la empresa centinela.
type Cart struct {
	ID            string
	TenantID      string
	CompanyID     string
	CompanyUserID *string
	CartToken     string
	Status        string
	Currency      string
	Subtotal      decimal.Decimal
	Total         decimal.Decimal
	ItemCount     int
	CheckoutURL   string
	Metadata      json.RawMessage
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// CartItem línea del carrito. Sin identidad propia entre reconciliaciones: se reemplaza completa.
type CartItem struct {
	ID           string
	CartID       string
	VariantID    int64
	ProductID    *int64
	Title        string
	VariantTitle string
	Quantity     int
	UnitPrice    decimal.Decimal // siempre en unidades mayores tras la normalización
	ListPrice    *decimal.Decimal
	ImageURL     string
	CreatedAt    time.Time
}

// CartMetadata contenido tipado de Cart.Metadata.
type CartMetadata struct {
	IsAnonymous       bool   `json:"isAnonymous"`
	CustomerEmail     string `json:"customerEmail,omitempty"`
	CustomerPhone     string `json:"customerPhone,omitempty"`
	CustomerID        string `json:"customerId,omitempty"`
	IdentitySource    string `json:"identitySource,omitempty"`
	PriceUnitInferred bool   `json:"priceUnitInferred,omitempty"`
	SkippedItems      int    `json:"skippedItems,omitempty"`
}
