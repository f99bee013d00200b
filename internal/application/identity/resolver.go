// Package identity resuelve la empresa y el company-user que actúan detrás de un carrito o evento
// a partir de señales débiles y opcionales.
package identity

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/jhoicas/b2b-storefront-api/internal/domain/entity"
	"github.com/jhoicas/b2b-storefront-api/internal/domain/repository"
	"github.com/jhoicas/b2b-storefront-api/pkg/logger"
	"github.com/jhoicas/b2b-storefront-api/pkg/provider"
)

// Source señal que produjo la resolución.
type Source string

const (
	SourceSessionToken Source = "session_token"
	SourceCustomerID   Source = "customer_id"
	SourceEmail        Source = "email"
	SourceHint         Source = "hint"
	SourceAnonymous    Source = "anonymous"
)

// Signals señales disponibles, todas opcionales.
// Los hints (CompanyIDHint/UserIDHint) solo vienen en eventos y se usan al final.
type Signals struct {
	SessionToken  string
	CustomerID    string
	Email         string
	UserIDHint    string
	CompanyIDHint string
}

// Identity resultado. CompanyID vacío ⇒ anónimo.
type Identity struct {
	CompanyID     string
	CompanyUserID string
	Source        Source
}

// Anonymous informa si ninguna señal resolvió.
func (i Identity) Anonymous() bool {
	return i.CompanyID == ""
}

// TokenDecoder decodifica el token de sesión firmado y devuelve subject (company-user) y tienda.
type TokenDecoder interface {
	Decode(token string) (subject, shop string, err error)
}

// Resolver prueba las señales en orden de prioridad; la primera que resuelve gana:
// token de sesión → id de cliente del proveedor → email → hints.
type Resolver struct {
	users     repository.CompanyUserRepository
	companies repository.CompanyRepository
	tokens    TokenDecoder // nil si no hay secreto configurado
	log       *logger.Logger
}

// NewResolver construye el resolvedor.
func NewResolver(users repository.CompanyUserRepository, companies repository.CompanyRepository, tokens TokenDecoder, log *logger.Logger) *Resolver {
	return &Resolver{
		users:     users,
		companies: companies,
		tokens:    tokens,
		log:       log.Named("identity"),
	}
}

// Resolve nunca falla por una señal inválida: token vencido, id no numérico o email sin
// coincidencia bajan a la siguiente señal. Solo devuelve error ante fallos de infraestructura,
// para que la cola reintente en vez de atribuir mal el carrito.
func (r *Resolver) Resolve(ctx context.Context, tenant *entity.Tenant, sig Signals) (Identity, error) {
	if u, err := r.byToken(ctx, tenant, sig.SessionToken); err != nil {
		return Identity{}, err
	} else if u != nil {
		return Identity{CompanyID: u.CompanyID, CompanyUserID: u.ID, Source: SourceSessionToken}, nil
	}

	if u, err := r.byCustomerID(ctx, tenant, sig.CustomerID); err != nil {
		return Identity{}, err
	} else if u != nil {
		return Identity{CompanyID: u.CompanyID, CompanyUserID: u.ID, Source: SourceCustomerID}, nil
	}

	if email := NormalizeEmail(sig.Email); email != "" {
		u, err := r.users.GetByEmail(ctx, tenant.ID, email)
		if err != nil {
			return Identity{}, fmt.Errorf("identity por email: %w", err)
		}
		if u != nil && u.CompanyID != "" {
			return Identity{CompanyID: u.CompanyID, CompanyUserID: u.ID, Source: SourceEmail}, nil
		}
	}

	if id, err := r.byHints(ctx, tenant, sig); err != nil || !id.Anonymous() {
		return id, err
	}
	return Identity{Source: SourceAnonymous}, nil
}

func (r *Resolver) byToken(ctx context.Context, tenant *entity.Tenant, token string) (*entity.CompanyUser, error) {
	token = strings.TrimSpace(token)
	if token == "" || r.tokens == nil {
		return nil, nil
	}
	subject, shop, err := r.tokens.Decode(token)
	if err != nil {
		r.log.Debug().Err(err).Str("tenant_id", tenant.ID).Msg("token de sesión inválido, se usa la siguiente señal")
		return nil, nil
	}
	if shop != "" && !strings.EqualFold(shop, tenant.ShopDomain) && !strings.EqualFold(shop, tenant.CustomDomain) {
		r.log.Warn().Str("tenant_id", tenant.ID).Str("token_shop", shop).Msg("token de sesión de otra tienda")
		return nil, nil
	}
	if !isUUID(subject) {
		r.log.Debug().Str("tenant_id", tenant.ID).Msg("subject del token no es un id de company-user")
		return nil, nil
	}
	u, err := r.users.GetByID(ctx, tenant.ID, subject)
	if err != nil {
		return nil, fmt.Errorf("identity por token: %w", err)
	}
	if u == nil || u.CompanyID == "" {
		return nil, nil
	}
	return u, nil
}

func (r *Resolver) byCustomerID(ctx context.Context, tenant *entity.Tenant, raw string) (*entity.CompanyUser, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	id, err := provider.ParseInt64ID(raw)
	if err != nil {
		r.log.Debug().Str("tenant_id", tenant.ID).Str("customer_id", raw).Msg("customer id no numérico, se ignora")
		return nil, nil
	}
	u, err := r.users.GetByProviderCustomerID(ctx, tenant.ID, id.Int64())
	if err != nil {
		return nil, fmt.Errorf("identity por customer id: %w", err)
	}
	if u == nil || u.CompanyID == "" {
		return nil, nil
	}
	return u, nil
}

// byHints acepta los ids que el cliente dice tener solo si pertenecen a la tienda.
func (r *Resolver) byHints(ctx context.Context, tenant *entity.Tenant, sig Signals) (Identity, error) {
	if isUUID(sig.UserIDHint) {
		u, err := r.users.GetByID(ctx, tenant.ID, sig.UserIDHint)
		if err != nil {
			return Identity{}, fmt.Errorf("identity por hint de usuario: %w", err)
		}
		if u != nil && u.CompanyID != "" {
			return Identity{CompanyID: u.CompanyID, CompanyUserID: u.ID, Source: SourceHint}, nil
		}
	}
	if isUUID(sig.CompanyIDHint) {
		c, err := r.companies.GetByID(ctx, tenant.ID, sig.CompanyIDHint)
		if err != nil {
			return Identity{}, fmt.Errorf("identity por hint de empresa: %w", err)
		}
		if c != nil && !c.IsAnonymous {
			return Identity{CompanyID: c.ID, Source: SourceHint}, nil
		}
	}
	return Identity{}, nil
}

func isUUID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}

// NormalizeEmail recorta y pasa a minúsculas (Unicode) para usar el email como clave.
// cases.Caser guarda estado, por eso se crea uno por llamada.
func NormalizeEmail(email string) string {
	e := strings.TrimSpace(email)
	if e == "" || !strings.Contains(e, "@") {
		return ""
	}
	return cases.Lower(language.Und).String(e)
}
