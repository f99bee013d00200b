// Package ingest es el borde de la tubería: valida la forma del payload, arma el sobre tipado y
// lo encola. Nunca espera la reconciliación.
package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/b2b-storefront-api/internal/application/dto"
	"github.com/jhoicas/b2b-storefront-api/internal/application/tenant"
	"github.com/jhoicas/b2b-storefront-api/internal/domain/cart"
	"github.com/jhoicas/b2b-storefront-api/internal/domain/envelope"
	"github.com/jhoicas/b2b-storefront-api/pkg/logger"
)

// maxClockSkew tolerancia para timestamps del cliente en el futuro.
const maxClockSkew = 5 * time.Minute

// Publisher encola sobres (cola redis en producción).
type Publisher interface {
	Publish(ctx context.Context, env *envelope.Envelope) error
}

// Meta datos de la petición HTTP que no vienen en el cuerpo.
type Meta struct {
	Provenance envelope.Provenance
	// ShopHint pista de tienda de respaldo (X-Shop-Domain u Origin) si el cuerpo no trae shopDomain.
	ShopHint string
}

// Service caso de uso de ingesta.
type Service struct {
	pub      Publisher
	validate *validator.Validate
	log      *logger.Logger
	now      func() time.Time
}

// NewService construye el servicio de ingesta.
func NewService(pub Publisher, log *logger.Logger) *Service {
	return &Service{
		pub:      pub,
		validate: newValidator(),
		log:      log.Named("ingest"),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// CollectEvent valida y encola un evento de comportamiento.
func (s *Service) CollectEvent(ctx context.Context, in dto.CollectEventRequest, meta Meta) (*dto.AckResponse, error) {
	if err := s.validate.Struct(in); err != nil {
		return nil, translate(err)
	}
	eventType := strings.ToLower(strings.TrimSpace(in.EventType))
	if !envelope.IsKnownEventType(eventType) {
		return nil, invalid("eventType", "tipo de evento desconocido: %s", in.EventType)
	}
	shop, err := shopDomain(in.ShopDomain, meta.ShopHint)
	if err != nil {
		return nil, err
	}
	now := s.now()
	occurred, err := parseTimestamp(in.Timestamp, now)
	if err != nil {
		return nil, err
	}
	if len(in.Payload) > 0 && !json.Valid(in.Payload) {
		return nil, invalid("payload", "JSON inválido")
	}
	if err := rejectNUL(in); err != nil {
		return nil, err
	}

	prov := meta.Provenance
	if in.Referrer != "" {
		prov.Referrer = in.Referrer
	}
	if in.UserAgent != "" {
		prov.UserAgent = in.UserAgent
	}
	env := &envelope.Envelope{
		ID:         uuid.NewString(),
		Kind:       envelope.KindEvent,
		ShopDomain: shop,
		ReceivedAt: now,
		Provenance: prov,
		Event: &envelope.EventPayload{
			EventType:  eventType,
			SessionID:  in.SessionID,
			UserID:     in.UserID,
			CompanyID:  in.CompanyID,
			CustomerID: in.CustomerID,
			Email:      in.Email,
			PageURL:    in.PageURL,
			Data:       in.Payload,
			OccurredAt: occurred,
		},
	}
	if err := s.enqueue(ctx, env); err != nil {
		return nil, err
	}
	return &dto.AckResponse{Success: true, Queued: true, JobID: env.ID}, nil
}

// TrackCart valida y encola un snapshot de carrito del script del storefront.
func (s *Service) TrackCart(ctx context.Context, in dto.TrackCartRequest, meta Meta) (*dto.AckResponse, error) {
	if err := s.validate.Struct(in); err != nil {
		return nil, translate(err)
	}
	token := cart.NormalizeToken(in.CartToken)
	if token == "" {
		return nil, invalid("cartToken", "es requerido")
	}
	shop, err := shopDomain(in.ShopDomain, meta.ShopHint)
	if err != nil {
		return nil, err
	}
	if err := rejectNUL(in); err != nil {
		return nil, err
	}
	unit := cart.PriceUnit(in.PriceUnit)
	if err := amount("subtotal", in.Subtotal, cart.MaxAmount); err != nil {
		return nil, err
	}
	if err := amount("total", in.Total, cart.MaxAmount); err != nil {
		return nil, err
	}

	lines := make([]envelope.CartLine, 0, len(in.Items))
	sum := decimal.Zero
	for i, it := range in.Items {
		field := fmt.Sprintf("items[%d]", i)
		if err := amount(field+".price", it.Price, cart.MaxUnitPrice); err != nil {
			return nil, err
		}
		if err := amount(field+".compareAtPrice", it.CompareAtPrice, cart.MaxUnitPrice); err != nil {
			return nil, err
		}
		sum = sum.Add(it.Price.Mul(decimal.NewFromInt(int64(*it.Quantity))))
		lineUnit := unit
		if it.PriceUnit != "" {
			lineUnit = cart.PriceUnit(it.PriceUnit)
		}
		lines = append(lines, envelope.CartLine{
			VariantID:    it.ShopifyVariantID,
			ProductID:    it.ProductID,
			Title:        it.Title,
			VariantTitle: it.VariantTitle,
			Quantity:     *it.Quantity,
			Price:        *it.Price,
			ListPrice:    it.CompareAtPrice,
			Unit:         lineUnit,
			ImageURL:     it.ImageURL,
		})
	}
	if err := lineSum(sum); err != nil {
		return nil, err
	}

	env := s.cartEnvelope(envelope.KindCartTrack, shop, meta, &envelope.CartSnapshot{
		CartToken:     token,
		CustomerEmail: in.CustomerEmail,
		CustomerPhone: in.CustomerPhone,
		CustomerID:    in.CustomerID,
		Currency:      in.Currency,
		Subtotal:      in.Subtotal,
		Total:         in.Total,
		TotalsUnit:    unit,
		CheckoutURL:   in.CheckoutURL,
		Lines:         lines,
	})
	if err := s.enqueue(ctx, env); err != nil {
		return nil, err
	}
	return &dto.AckResponse{Success: true, Queued: true, JobID: env.ID, CartToken: token}, nil
}

// SyncCart variante laxa de TrackCart que acepta el carrito crudo del proveedor.
// Los precios de /cart.js vienen siempre en centavos.
func (s *Service) SyncCart(ctx context.Context, in dto.SyncCartRequest, meta Meta) (*dto.AckResponse, error) {
	if err := s.validate.Struct(in); err != nil {
		return nil, translate(err)
	}
	raw := in.CartToken
	if raw == "" {
		raw = in.Token
	}
	token := cart.NormalizeToken(raw)
	if token == "" {
		return nil, invalid("token", "es requerido")
	}
	shop, err := shopDomain(in.ShopDomain, meta.ShopHint)
	if err != nil {
		return nil, err
	}

	if err := rejectNUL(in); err != nil {
		return nil, err
	}
	if err := amount("items_subtotal_price", in.ItemsSubtotalPrice, cart.MaxAmount); err != nil {
		return nil, err
	}
	if err := amount("total_price", in.TotalPrice, cart.MaxAmount); err != nil {
		return nil, err
	}

	lines := make([]envelope.CartLine, 0, len(in.Items))
	sum := decimal.Zero
	for i, it := range in.Items {
		field := fmt.Sprintf("items[%d]", i)
		if err := amount(field+".price", &it.Price, cart.MaxUnitPrice); err != nil {
			return nil, err
		}
		if err := amount(field+".original_price", it.OriginalPrice, cart.MaxUnitPrice); err != nil {
			return nil, err
		}
		sum = sum.Add(it.Price.Mul(decimal.NewFromInt(int64(it.Quantity))))
		lines = append(lines, envelope.CartLine{
			VariantID:    it.VariantID,
			ProductID:    it.ProductID,
			Title:        it.Title,
			VariantTitle: it.VariantTitle,
			Quantity:     it.Quantity,
			Price:        it.Price,
			ListPrice:    it.OriginalPrice,
			Unit:         cart.PriceUnitMinor,
			ImageURL:     it.Image,
		})
	}
	if err := lineSum(sum); err != nil {
		return nil, err
	}

	env := s.cartEnvelope(envelope.KindCartSync, shop, meta, &envelope.CartSnapshot{
		CartToken:     token,
		CustomerEmail: in.CustomerEmail,
		CustomerPhone: in.CustomerPhone,
		CustomerID:    in.CustomerID,
		Currency:      in.Currency,
		Subtotal:      in.ItemsSubtotalPrice,
		Total:         in.TotalPrice,
		TotalsUnit:    cart.PriceUnitMinor,
		Lines:         lines,
	})
	if err := s.enqueue(ctx, env); err != nil {
		return nil, err
	}
	return &dto.AckResponse{Success: true, Queued: true, JobID: env.ID, CartToken: token}, nil
}

func (s *Service) cartEnvelope(kind envelope.Kind, shop string, meta Meta, snap *envelope.CartSnapshot) *envelope.Envelope {
	return &envelope.Envelope{
		ID:         uuid.NewString(),
		Kind:       kind,
		ShopDomain: shop,
		ReceivedAt: s.now(),
		Provenance: meta.Provenance,
		Cart:       snap,
	}
}

// enqueue valida el sobre completo y lo publica. Un fallo de la cola no es culpa del cliente.
func (s *Service) enqueue(ctx context.Context, env *envelope.Envelope) error {
	if err := env.Validate(); err != nil {
		return &ValidationError{Message: err.Error()}
	}
	if err := s.pub.Publish(ctx, env); err != nil {
		s.log.Error().Err(err).Str("job_id", env.ID).Str("kind", string(env.Kind)).Msg("no se pudo encolar")
		return fmt.Errorf("encolar %s: %w", env.Kind, err)
	}
	s.log.Debug().Str("job_id", env.ID).Str("kind", string(env.Kind)).Str("shop", env.ShopDomain).Msg("encolado")
	return nil
}

// shopDomain el cuerpo gana sobre la pista de cabeceras.
func shopDomain(body, fallback string) (string, error) {
	d := tenant.NormalizeDomain(body)
	if d == "" {
		d = tenant.NormalizeDomain(fallback)
	}
	if d == "" {
		return "", invalid("shopDomain", "es requerido (cuerpo, X-Shop-Domain u Origin)")
	}
	return d, nil
}

// amount monto opcional dentro de [0, limit].
func amount(field string, v *decimal.Decimal, limit decimal.Decimal) error {
	if v == nil {
		return nil
	}
	if v.IsNegative() {
		return invalid(field, "no puede ser negativo")
	}
	if v.GreaterThan(limit) {
		return invalid(field, "excede el máximo (%s)", limit)
	}
	return nil
}

// lineSum el subtotal que calcula el worker sale de sumar cantidad × precio.
func lineSum(sum decimal.Decimal) error {
	if sum.GreaterThan(cart.MaxAmount) {
		return invalid("items", "cantidad × precio excede el máximo (%s)", cart.MaxAmount)
	}
	return nil
}

// parseTimestamp acepta epoch en milisegundos (número o string) o RFC3339. Ausente ⇒ cero
// (el worker usa la hora de recepción). Un timestamp en el futuro se recorta a now.
func parseTimestamp(raw json.RawMessage, now time.Time) (time.Time, error) {
	s := strings.TrimSpace(string(raw))
	if s == "" || s == "null" {
		return time.Time{}, nil
	}
	if unq, err := strconv.Unquote(s); err == nil {
		s = strings.TrimSpace(unq)
	}
	if s == "" {
		return time.Time{}, nil
	}

	var t time.Time
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		if ms <= 0 {
			return time.Time{}, invalid("timestamp", "fuera de rango")
		}
		t = time.UnixMilli(ms).UTC()
	} else if parsed, err := time.Parse(time.RFC3339Nano, s); err == nil {
		t = parsed.UTC()
	} else {
		return time.Time{}, invalid("timestamp", "formato no reconocido")
	}
	if t.After(now.Add(maxClockSkew)) {
		return now, nil
	}
	return t, nil
}
