package entity

import "time"

// Tenant representa una tienda (merchant) de la plataforma. Es dueño de todas las demás entidades.
type Tenant struct {
	ID           string
	Name         string
	ShopDomain   string // dominio del proveedor (ej: acme.myshopify.com)
	CustomDomain string // dominio propio opcional (ej: tienda.acme.com)
	Status       string // active, suspended
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// IsActive informa si la tienda acepta ingesta.
func (t *Tenant) IsActive() bool {
	return t != nil && t.Status == "active"
}
