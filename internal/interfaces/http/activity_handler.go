package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/jhoicas/b2b-storefront-api/internal/application/dto"
	"github.com/jhoicas/b2b-storefront-api/internal/application/usecase"
)

// ActivityLogHandler lectura del rastro de auditoría (protegido).
type ActivityLogHandler struct {
	uc *usecase.ActivityLogUseCase
}

func NewActivityLogHandler(uc *usecase.ActivityLogUseCase) *ActivityLogHandler {
	return &ActivityLogHandler{uc: uc}
}

// List GET /api/activity-logs: rastro de auditoría de la tienda, filtrable por carrito y tipo.
func (h *ActivityLogHandler) List(c *fiber.Ctx) error {
	in := dto.ListActivityLogsRequest{
		PageRequest: dto.PageRequest{Limit: c.QueryInt("limit", 20), Offset: c.QueryInt("offset", 0)},
		CartID:      c.Query("cartId"),
		Type:        c.Query("type"),
	}
	if in.CartID != "" {
		if _, err := uuid.Parse(in.CartID); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_QUERY", Message: "cartId debe ser un UUID"})
		}
	}
	out, err := h.uc.List(c.UserContext(), GetTenantID(c), in)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()})
	}
	return c.JSON(out)
}
