package usecase

import (
	"context"
	"fmt"

	"github.com/jhoicas/b2b-storefront-api/internal/application/dto"
	"github.com/jhoicas/b2b-storefront-api/internal/domain"
	"github.com/jhoicas/b2b-storefront-api/internal/domain/entity"
	"github.com/jhoicas/b2b-storefront-api/internal/domain/repository"
)

// CartUseCase lectura de carritos reconciliados para dashboards. Solo lee lo que escribió la tubería.
type CartUseCase struct {
	repo repository.CartRepository
}

// NewCartUseCase construye el caso de uso con el puerto de persistencia.
func NewCartUseCase(repo repository.CartRepository) *CartUseCase {
	return &CartUseCase{repo: repo}
}

// List lista carritos de la tienda, más recientes primero.
func (uc *CartUseCase) List(ctx context.Context, tenantID string, in dto.ListCartsRequest) (*dto.CartListResponse, error) {
	switch in.Status {
	case "", entity.CartStatusDraft, entity.CartStatusRestored, entity.CartStatusConverted:
	default:
		return nil, fmt.Errorf("%w: status %q", domain.ErrInvalidInput, in.Status)
	}
	in.DefaultPage()
	list, err := uc.repo.List(ctx, repository.CartFilter{
		TenantID:  tenantID,
		CompanyID: in.CompanyID,
		Status:    in.Status,
		Limit:     in.Limit,
		Offset:    in.Offset,
	})
	if err != nil {
		return nil, err
	}
	items := make([]dto.CartResponse, 0, len(list))
	for _, c := range list {
		items = append(items, *entityToCartResponse(c, nil))
	}
	return &dto.CartListResponse{
		Items: items,
		Page:  dto.PageResponse{Limit: in.Limit, Offset: in.Offset},
	}, nil
}

// GetByID obtiene un carrito con sus ítems. nil, nil si no existe en la tienda.
func (uc *CartUseCase) GetByID(ctx context.Context, tenantID, id string) (*dto.CartResponse, error) {
	c, err := uc.repo.GetByID(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, nil
	}
	items, err := uc.repo.ListItems(ctx, c.ID)
	if err != nil {
		return nil, err
	}
	return entityToCartResponse(c, items), nil
}

func entityToCartResponse(c *entity.Cart, items []*entity.CartItem) *dto.CartResponse {
	out := &dto.CartResponse{
		ID:            c.ID,
		CompanyID:     c.CompanyID,
		CompanyUserID: c.CompanyUserID,
		CartToken:     c.CartToken,
		Status:        c.Status,
		Currency:      c.Currency,
		Subtotal:      c.Subtotal,
		Total:         c.Total,
		ItemCount:     c.ItemCount,
		CheckoutURL:   c.CheckoutURL,
		Metadata:      c.Metadata,
		CreatedAt:     c.CreatedAt,
		UpdatedAt:     c.UpdatedAt,
	}
	for _, it := range items {
		out.Items = append(out.Items, dto.CartItemResponse{
			VariantID:    it.VariantID,
			ProductID:    it.ProductID,
			Title:        it.Title,
			VariantTitle: it.VariantTitle,
			Quantity:     it.Quantity,
			UnitPrice:    it.UnitPrice,
			ListPrice:    it.ListPrice,
			ImageURL:     it.ImageURL,
		})
	}
	return out
}
