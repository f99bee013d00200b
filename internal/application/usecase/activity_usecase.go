package usecase

import (
	"context"

	"github.com/jhoicas/b2b-storefront-api/internal/application/dto"
	"github.com/jhoicas/b2b-storefront-api/internal/domain/repository"
)

// ActivityLogUseCase lectura del rastro de auditoría.
type ActivityLogUseCase struct {
	repo repository.ActivityLogRepository
}

// NewActivityLogUseCase construye el caso de uso.
func NewActivityLogUseCase(repo repository.ActivityLogRepository) *ActivityLogUseCase {
	return &ActivityLogUseCase{repo: repo}
}

// List lista registros de la tienda, más nuevos primero.
func (uc *ActivityLogUseCase) List(ctx context.Context, tenantID string, in dto.ListActivityLogsRequest) (*dto.ActivityLogListResponse, error) {
	in.DefaultPage()
	list, err := uc.repo.List(ctx, repository.ActivityLogFilter{
		TenantID:  tenantID,
		CartID:    in.CartID,
		EventType: in.Type,
		Limit:     in.Limit,
		Offset:    in.Offset,
	})
	if err != nil {
		return nil, err
	}
	items := make([]dto.ActivityLogResponse, 0, len(list))
	for _, l := range list {
		items = append(items, dto.ActivityLogResponse{
			ID:        l.ID,
			CompanyID: l.CompanyID,
			CartID:    l.CartID,
			EventType: l.EventType,
			Payload:   l.Payload,
			CreatedAt: l.CreatedAt,
		})
	}
	return &dto.ActivityLogListResponse{
		Items: items,
		Page:  dto.PageResponse{Limit: in.Limit, Offset: in.Offset},
	}, nil
}
