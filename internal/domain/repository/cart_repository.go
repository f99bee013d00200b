package repository

import (
	"context"

	"github.com/jhoicas/b2b-storefront-api/internal/domain/entity"
)

// CartRepository define el puerto de persistencia para Cart y sus ítems.
type CartRepository interface {
	GetByToken(ctx context.Context, tenantID, cartToken string) (*entity.Cart, error)
	GetByID(ctx context.Context, tenantID, id string) (*entity.Cart, error)
	Create(ctx context.Context, cart *entity.Cart) error
	Update(ctx context.Context, cart *entity.Cart) error
	ListItems(ctx context.Context, cartID string) ([]*entity.CartItem, error)
	// ReplaceItems borra todos los ítems del carrito e inserta el nuevo conjunto.
	ReplaceItems(ctx context.Context, cartID string, items []*entity.CartItem) error
	List(ctx context.Context, filter CartFilter) ([]*entity.Cart, error)
}

// CartFilter filtros del listado de carritos (lectura de dashboards).
type CartFilter struct {
	TenantID  string
	CompanyID string
	Status    string
	Limit     int
	Offset    int
}
