package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/jhoicas/b2b-storefront-api/pkg/config"
	"github.com/jhoicas/b2b-storefront-api/pkg/logger"
)

// RateLimitStorages almacenamiento compartido de contadores. nil usa memoria del proceso.
type RateLimitStorages struct {
	Burst  fiber.Storage
	Window fiber.Storage
}

// RateLimit encadena dos limitadores por IP y ruta: una ráfaga corta estricta y una ventana
// deslizante más laxa. El endpoint público no tiene autenticación.
func RateLimit(cfg config.RateLimitConfig, storages RateLimitStorages, log *logger.Logger) []fiber.Handler {
	log = log.Named("ratelimit")
	reached := func(c *fiber.Ctx) error {
		log.Debug().Str("ip", c.IP()).Str("path", c.Path()).Msg("límite de tasa alcanzado")
		return publicError(c, fiber.StatusTooManyRequests, "demasiadas solicitudes, intente más tarde")
	}
	return []fiber.Handler{
		limiter.New(limiter.Config{
			Max:          positive(cfg.BurstMax, 10),
			Expiration:   positiveDuration(cfg.BurstWindow, time.Second),
			KeyGenerator: clientRouteKey,
			LimitReached: reached,
			Storage:      storages.Burst,
		}),
		limiter.New(limiter.Config{
			Max:               positive(cfg.WindowMax, 50),
			Expiration:        positiveDuration(cfg.Window, 10*time.Second),
			KeyGenerator:      clientRouteKey,
			LimitReached:      reached,
			Storage:           storages.Window,
			LimiterMiddleware: limiter.SlidingWindow{},
		}),
	}
}

func clientRouteKey(c *fiber.Ctx) string {
	return c.IP() + "|" + c.Path()
}

func positive(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

func positiveDuration(v, def time.Duration) time.Duration {
	if v <= 0 {
		return def
	}
	return v
}
