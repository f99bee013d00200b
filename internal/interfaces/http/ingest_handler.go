package http

import (
	"encoding/json"
	"errors"
	"net/url"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/b2b-storefront-api/internal/application/dto"
	"github.com/jhoicas/b2b-storefront-api/internal/application/ingest"
	"github.com/jhoicas/b2b-storefront-api/internal/domain/envelope"
	"github.com/jhoicas/b2b-storefront-api/pkg/logger"
)

// Cabeceras opcionales del script del storefront.
const (
	HeaderShopDomain   = "X-Shop-Domain"
	HeaderSessionToken = "X-Session-Token"
)

// IngestHandler endpoints públicos (sin autenticación) del storefront.
// Siempre responde JSON: el script del cliente no debe lanzar excepciones.
type IngestHandler struct {
	svc *ingest.Service
	log *logger.Logger
}

// NewIngestHandler construye el handler.
func NewIngestHandler(svc *ingest.Service, log *logger.Logger) *IngestHandler {
	return &IngestHandler{svc: svc, log: log.Named("http.ingest")}
}

// CollectEvent POST /events/collect: valida y encola un evento de comportamiento (202).
func (h *IngestHandler) CollectEvent(c *fiber.Ctx) error {
	var in dto.CollectEventRequest
	if err := decodeBody(c, &in); err != nil {
		return publicError(c, fiber.StatusBadRequest, "cuerpo JSON inválido")
	}
	out, err := h.svc.CollectEvent(c.UserContext(), in, requestMeta(c))
	if err != nil {
		return h.ingestError(c, err)
	}
	return c.Status(fiber.StatusAccepted).JSON(out)
}

// TrackCart POST /abandoned-carts/track: encola la reconciliación; el carrito reconciliado se lee en /api/carts.
func (h *IngestHandler) TrackCart(c *fiber.Ctx) error {
	var in dto.TrackCartRequest
	if err := decodeBody(c, &in); err != nil {
		return publicError(c, fiber.StatusBadRequest, "cuerpo JSON inválido")
	}
	out, err := h.svc.TrackCart(c.UserContext(), in, requestMeta(c))
	if err != nil {
		return h.ingestError(c, err)
	}
	return c.Status(fiber.StatusAccepted).JSON(out)
}

// SyncCart POST /abandoned-carts/sync: variante de TrackCart con el carrito crudo de /cart.js.
func (h *IngestHandler) SyncCart(c *fiber.Ctx) error {
	var in dto.SyncCartRequest
	if err := decodeBody(c, &in); err != nil {
		return publicError(c, fiber.StatusBadRequest, "cuerpo JSON inválido")
	}
	out, err := h.svc.SyncCart(c.UserContext(), in, requestMeta(c))
	if err != nil {
		return h.ingestError(c, err)
	}
	return c.Status(fiber.StatusAccepted).JSON(out)
}

func (h *IngestHandler) ingestError(c *fiber.Ctx, err error) error {
	var verr *ingest.ValidationError
	if errors.As(err, &verr) {
		return publicError(c, fiber.StatusBadRequest, verr.Error())
	}
	h.log.Error().Err(err).Str("path", c.Path()).Msg("ingesta no disponible")
	return publicError(c, fiber.StatusServiceUnavailable, "servicio temporalmente no disponible")
}

// decodeBody no exige Content-Type: navigator.sendBeacon envía text/plain.
func decodeBody(c *fiber.Ctx, v any) error {
	body := c.Body()
	if len(body) == 0 {
		return errors.New("cuerpo vacío")
	}
	return json.Unmarshal(body, v)
}

// requestMeta reúne la procedencia y la pista de tienda de las cabeceras.
func requestMeta(c *fiber.Ctx) ingest.Meta {
	origin := c.Get(fiber.HeaderOrigin)
	session := c.Get(HeaderSessionToken)
	if session == "" {
		if tok, ok := bearerToken(c.Get(fiber.HeaderAuthorization)); ok {
			session = tok
		}
	}
	hint := c.Get(HeaderShopDomain)
	if hint == "" {
		hint = originHost(origin)
	}
	return ingest.Meta{
		Provenance: envelope.Provenance{
			IP:           c.IP(),
			UserAgent:    c.Get(fiber.HeaderUserAgent),
			Referrer:     c.Get(fiber.HeaderReferer),
			Origin:       origin,
			SessionToken: session,
		},
		ShopHint: hint,
	}
}

func originHost(origin string) string {
	if origin == "" || strings.EqualFold(origin, "null") {
		return ""
	}
	u, err := url.Parse(origin)
	if err != nil {
		return ""
	}
	return u.Hostname()
}
