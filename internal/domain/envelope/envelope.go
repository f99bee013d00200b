// Package envelope define el sobre tipado que viaja por la cola de ingesta.
// Se construye y valida una sola vez en el endpoint; los workers solo ven este tipo.
package envelope

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/b2b-storefront-api/internal/domain/cart"
	"github.com/jhoicas/b2b-storefront-api/pkg/provider"
)

// Kind discrimina el cuerpo del sobre.
type Kind string

const (
	KindEvent     Kind = "event"
	KindCartTrack Kind = "cart_track"
	KindCartSync  Kind = "cart_sync"
)

// IsCart informa si el sobre lleva un snapshot de carrito.
func (k Kind) IsCart() bool {
	return k == KindCartTrack || k == KindCartSync
}

// Tipos de evento aceptados.
const (
	EventPageView        = "page_view"
	EventProductView     = "product_view"
	EventCollectionView  = "collection_view"
	EventSearch          = "search"
	EventAddToCart       = "add_to_cart"
	EventRemoveFromCart  = "remove_from_cart"
	EventCartView        = "cart_view"
	EventCheckoutStarted = "checkout_started"
	EventQuoteRequested  = "quote_requested"
	EventLogin           = "login"
	EventLogout          = "logout"
	EventCustom          = "custom"
)

var knownEvents = map[string]struct{}{
	EventPageView: {}, EventProductView: {}, EventCollectionView: {}, EventSearch: {},
	EventAddToCart: {}, EventRemoveFromCart: {}, EventCartView: {}, EventCheckoutStarted: {},
	EventQuoteRequested: {}, EventLogin: {}, EventLogout: {}, EventCustom: {},
}

// IsKnownEventType informa si el tipo de evento es aceptado.
func IsKnownEventType(t string) bool {
	_, ok := knownEvents[t]
	return ok
}

// Provenance datos de procedencia de la petición original.
type Provenance struct {
	IP           string `json:"ip,omitempty"`
	UserAgent    string `json:"userAgent,omitempty"`
	Referrer     string `json:"referrer,omitempty"`
	Origin       string `json:"origin,omitempty"`
	SessionToken string `json:"sessionToken,omitempty"` // token de identidad firmado (Bearer / X-Session-Token)
}

// Envelope sobre de la cola. Exactamente uno de Event o Cart está presente según Kind.
type Envelope struct {
	ID         string        `json:"id"`
	Kind       Kind          `json:"kind"`
	ShopDomain string        `json:"shopDomain"`
	ReceivedAt time.Time     `json:"receivedAt"`
	Provenance Provenance    `json:"provenance"`
	Event      *EventPayload `json:"event,omitempty"`
	Cart       *CartSnapshot `json:"cart,omitempty"`
}

// EventPayload evento de comportamiento.
type EventPayload struct {
	EventType  string          `json:"eventType"`
	SessionID  string          `json:"sessionId,omitempty"`
	UserID     string          `json:"userId,omitempty"`
	CompanyID  string          `json:"companyId,omitempty"`
	CustomerID string          `json:"customerId,omitempty"`
	Email      string          `json:"email,omitempty"`
	PageURL    string          `json:"pageUrl,omitempty"`
	Data       json.RawMessage `json:"data,omitempty"`
	OccurredAt time.Time       `json:"occurredAt"`
}

// CartSnapshot estado completo del carrito reportado por el cliente.
type CartSnapshot struct {
	CartToken     string           `json:"cartToken"`
	CustomerEmail string           `json:"customerEmail,omitempty"`
	CustomerPhone string           `json:"customerPhone,omitempty"`
	CustomerID    string           `json:"customerId,omitempty"`
	Currency      string           `json:"currency,omitempty"`
	Subtotal      *decimal.Decimal `json:"subtotal,omitempty"`
	Total         *decimal.Decimal `json:"total,omitempty"`
	TotalsUnit    cart.PriceUnit   `json:"totalsUnit,omitempty"`
	CheckoutURL   string           `json:"checkoutUrl,omitempty"`
	Lines         []CartLine       `json:"lines"`
}

// CartLine línea cruda. VariantID/ProductID se validan en el reconciliador (ítem a ítem).
type CartLine struct {
	VariantID    provider.RawID   `json:"variantId"`
	ProductID    provider.RawID   `json:"productId,omitempty"`
	Title        string           `json:"title"`
	VariantTitle string           `json:"variantTitle,omitempty"`
	Quantity     int              `json:"quantity"`
	Price        decimal.Decimal  `json:"price"`
	ListPrice    *decimal.Decimal `json:"listPrice,omitempty"`
	Unit         cart.PriceUnit   `json:"unit,omitempty"`
	ImageURL     string           `json:"imageUrl,omitempty"`
}

// Validate verifica la coherencia estructural del sobre (el discriminante y su cuerpo).
func (e *Envelope) Validate() error {
	if e.ID == "" {
		return fmt.Errorf("envelope: id vacío")
	}
	if e.ShopDomain == "" {
		return fmt.Errorf("envelope: shopDomain vacío")
	}
	switch e.Kind {
	case KindEvent:
		if e.Event == nil || e.Cart != nil {
			return fmt.Errorf("envelope %s: kind %q requiere solo event", e.ID, e.Kind)
		}
		if !IsKnownEventType(e.Event.EventType) {
			return fmt.Errorf("envelope %s: tipo de evento %q", e.ID, e.Event.EventType)
		}
	case KindCartTrack, KindCartSync:
		if e.Cart == nil || e.Event != nil {
			return fmt.Errorf("envelope %s: kind %q requiere solo cart", e.ID, e.Kind)
		}
		if e.Cart.CartToken == "" {
			return fmt.Errorf("envelope %s: cartToken vacío", e.ID)
		}
		for i, l := range e.Cart.Lines {
			if l.Quantity < 0 {
				return fmt.Errorf("envelope %s: línea %d con cantidad negativa", e.ID, i)
			}
			if !l.Unit.Valid() {
				return fmt.Errorf("envelope %s: línea %d con unidad %q", e.ID, i, l.Unit)
			}
		}
	default:
		return fmt.Errorf("envelope %s: kind %q desconocido", e.ID, e.Kind)
	}
	return nil
}

// CartKey clave de serialización (tienda, token) usada en logs.
func (e *Envelope) CartKey() string {
	if e.Cart == nil {
		return ""
	}
	return e.ShopDomain + ":" + cart.NormalizeToken(e.Cart.CartToken)
}
