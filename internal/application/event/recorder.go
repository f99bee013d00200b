// Package event persiste eventos de comportamiento genéricos (page view, add to cart, ...).
package event

import (
	"context"
	"fmt"
	"time"

	"github.com/jhoicas/b2b-storefront-api/internal/application/activity"
	"github.com/jhoicas/b2b-storefront-api/internal/application/identity"
	"github.com/jhoicas/b2b-storefront-api/internal/domain"
	"github.com/jhoicas/b2b-storefront-api/internal/domain/entity"
	"github.com/jhoicas/b2b-storefront-api/internal/domain/envelope"
	"github.com/jhoicas/b2b-storefront-api/internal/domain/repository"
	"github.com/jhoicas/b2b-storefront-api/pkg/logger"
)

// TenantResolver resuelve la tienda desde la pista de dominio.
type TenantResolver interface {
	Resolve(ctx context.Context, hint string) (*entity.Tenant, error)
}

// IdentityResolver resuelve empresa y usuario a partir de señales débiles.
type IdentityResolver interface {
	Resolve(ctx context.Context, tenant *entity.Tenant, sig identity.Signals) (identity.Identity, error)
}

// AuditWriter escribe una entrada de auditoría tragándose los errores.
type AuditWriter interface {
	Record(ctx context.Context, entry *entity.ActivityLog)
}

// Recorder caso de uso de persistencia de eventos.
type Recorder struct {
	events     repository.EventRepository
	companies  repository.CompanyRepository
	tenants    TenantResolver
	identities IdentityResolver
	audit      AuditWriter
	log        *logger.Logger
}

// NewRecorder construye el caso de uso. companies provee la empresa centinela de los
// eventos anónimos.
func NewRecorder(
	events repository.EventRepository,
	companies repository.CompanyRepository,
	tenants TenantResolver,
	identities IdentityResolver,
	audit AuditWriter,
	log *logger.Logger,
) *Recorder {
	return &Recorder{
		events:     events,
		companies:  companies,
		tenants:    tenants,
		identities: identities,
		audit:      audit,
		log:        log.Named("events"),
	}
}

// Record guarda el evento del sobre. La re-entrega del mismo sobre no duplica la fila ni el
// registro event_tracked (inserted=false).
func (r *Recorder) Record(ctx context.Context, env *envelope.Envelope) (*entity.Event, bool, error) {
	if env == nil || env.Event == nil {
		return nil, false, fmt.Errorf("%w: sobre sin evento", domain.ErrInvalidInput)
	}
	ev := env.Event
	if !envelope.IsKnownEventType(ev.EventType) {
		return nil, false, fmt.Errorf("%w: %s", domain.ErrUnknownEvent, ev.EventType)
	}

	tenant, err := r.tenants.Resolve(ctx, env.ShopDomain)
	if err != nil {
		return nil, false, err
	}
	who, err := r.identities.Resolve(ctx, tenant, identity.Signals{
		SessionToken:  env.Provenance.SessionToken,
		CustomerID:    ev.CustomerID,
		Email:         ev.Email,
		UserIDHint:    ev.UserID,
		CompanyIDHint: ev.CompanyID,
	})
	if err != nil {
		return nil, false, err
	}
	companyID := who.CompanyID
	if who.Anonymous() {
		anon, err := r.companies.EnsureAnonymous(ctx, tenant.ID)
		if err != nil {
			return nil, false, fmt.Errorf("empresa anónima: %w", err)
		}
		companyID = anon.ID
	}

	occurred := ev.OccurredAt
	if occurred.IsZero() {
		occurred = env.ReceivedAt
	}
	payload := ev.Data
	if len(payload) == 0 {
		payload = []byte(`{}`)
	}
	e := &entity.Event{
		ID:            env.ID,
		TenantID:      tenant.ID,
		CompanyID:     &companyID,
		CompanyUserID: optional(who.CompanyUserID),
		SessionID:     ev.SessionID,
		EventType:     ev.EventType,
		PageURL:       ev.PageURL,
		Referrer:      env.Provenance.Referrer,
		UserAgent:     env.Provenance.UserAgent,
		IPAddress:     env.Provenance.IP,
		Payload:       payload,
		OccurredAt:    occurred.UTC(),
		CreatedAt:     time.Now().UTC(),
	}

	inserted, err := r.events.Insert(ctx, e)
	if err != nil {
		return nil, false, fmt.Errorf("insertar evento: %w", err)
	}
	if !inserted {
		r.log.Debug().Str("event_id", e.ID).Msg("evento ya registrado, re-entrega ignorada")
		return e, false, nil
	}

	r.audit.Record(ctx, activity.NewEntry(tenant.ID, e.CompanyID, nil, entity.ActivityEventTracked, activity.EventTracked{
		EventID:   e.ID,
		EventType: e.EventType,
		SessionID: e.SessionID,
	}))
	return e, true, nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
