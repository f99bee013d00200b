package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/b2b-storefront-api/internal/application/dto"
	"github.com/jhoicas/b2b-storefront-api/pkg/logger"
)

// internalPrefix rutas del API interno (dashboards); el resto es superficie pública.
const internalPrefix = "/api"

// ErrorHandler convierte cualquier error no manejado (incluidos los pánicos que atrapa recover)
// en un cuerpo JSON. La superficie pública usa {statusCode, message, error}; el API interno dto.ErrorResponse.
func ErrorHandler(log *logger.Logger) fiber.ErrorHandler {
	log = log.Named("http")
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		msg := "error interno"
		var fe *fiber.Error
		if errors.As(err, &fe) {
			code = fe.Code
			msg = fe.Message
		}
		if code >= fiber.StatusInternalServerError {
			log.Error().Err(err).Str("method", c.Method()).Str("path", c.Path()).Msg("error no manejado")
		}

		if strings.HasPrefix(c.Path(), internalPrefix+"/") {
			return c.Status(code).JSON(dto.ErrorResponse{Code: errorCode(code), Message: msg})
		}
		return publicError(c, code, msg)
	}
}

// publicError respuesta de error de la superficie pública.
func publicError(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(dto.PublicErrorResponse{
		StatusCode: status,
		Message:    message,
		Error:      http.StatusText(status),
	})
}

func errorCode(status int) string {
	switch status {
	case fiber.StatusNotFound:
		return "NOT_FOUND"
	case fiber.StatusMethodNotAllowed:
		return "METHOD_NOT_ALLOWED"
	case fiber.StatusRequestEntityTooLarge:
		return "BODY_TOO_LARGE"
	case fiber.StatusTooManyRequests:
		return "RATE_LIMITED"
	}
	if status < fiber.StatusInternalServerError {
		return "BAD_REQUEST"
	}
	return "INTERNAL"
}
