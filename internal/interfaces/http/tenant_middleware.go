package http

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/b2b-storefront-api/internal/application/dto"
	"github.com/jhoicas/b2b-storefront-api/internal/domain/entity"
)

// tenantLookup contrato mínimo para verificar la tienda del token.
// Lo implementa repository.TenantRepository.
type tenantLookup interface {
	GetByID(ctx context.Context, id string) (*entity.Tenant, error)
}

// RequireActiveTenant bloquea el API interno de tiendas inexistentes o suspendidas.
// Debe usarse DESPUÉS de AuthMiddleware (necesita LocalTenantID).
//
//   - 403 Forbidden: tienda suspendida o inexistente.
//   - 503 Service Unavailable: fallo al consultar la DB.
func RequireActiveTenant(tenants tenantLookup) fiber.Handler {
	return func(c *fiber.Ctx) error {
		tenantID := GetTenantID(c)
		if tenantID == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
				Code:    "UNAUTHORIZED",
				Message: "tenant_id no encontrado en el token",
			})
		}

		t, err := tenants.GetByID(c.UserContext(), tenantID)
		if err != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(dto.ErrorResponse{
				Code:    "TENANT_CHECK_FAILED",
				Message: "no se pudo verificar la tienda, intente más tarde",
			})
		}
		if !t.IsActive() {
			return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{
				Code:    "TENANT_INACTIVE",
				Message: "la tienda no está activa",
			})
		}
		return c.Next()
	}
}
