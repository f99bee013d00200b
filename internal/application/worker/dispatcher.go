// Package worker enruta cada sobre de la cola a su caso de uso y clasifica los errores en
// terminales (se descartan) o transitorios (la cola reintenta).
package worker

import (
	"context"
	"errors"
	"fmt"

	"github.com/jhoicas/b2b-storefront-api/internal/application/cart"
	"github.com/jhoicas/b2b-storefront-api/internal/domain"
	"github.com/jhoicas/b2b-storefront-api/internal/domain/entity"
	"github.com/jhoicas/b2b-storefront-api/internal/domain/envelope"
	"github.com/jhoicas/b2b-storefront-api/internal/infrastructure/redisqueue"
	"github.com/jhoicas/b2b-storefront-api/pkg/logger"
)

// CartReconciler reconcilia snapshots de carrito.
type CartReconciler interface {
	Reconcile(ctx context.Context, env *envelope.Envelope) (*cart.Result, error)
}

// EventRecorder persiste eventos genéricos.
type EventRecorder interface {
	Record(ctx context.Context, env *envelope.Envelope) (*entity.Event, bool, error)
}

// Dispatcher implementa redisqueue.Handler.
type Dispatcher struct {
	carts  CartReconciler
	events EventRecorder
	log    *logger.Logger
}

// NewDispatcher construye el despachador.
func NewDispatcher(carts CartReconciler, events EventRecorder, log *logger.Logger) *Dispatcher {
	return &Dispatcher{carts: carts, events: events, log: log.Named("worker")}
}

// Handle procesa un sobre.
func (d *Dispatcher) Handle(ctx context.Context, env *envelope.Envelope) error {
	if err := env.Validate(); err != nil {
		return redisqueue.Permanent(fmt.Errorf("%w: %v", domain.ErrInvalidInput, err))
	}

	var err error
	switch {
	case env.Kind.IsCart():
		var res *cart.Result
		res, err = d.carts.Reconcile(ctx, env)
		if err == nil {
			d.log.Info().
				Str("job_id", env.ID).
				Str("cart_key", env.CartKey()).
				Str("cart_id", res.Cart.ID).
				Bool("created", res.Created).
				Int("changes", len(res.Changes)).
				Int("skipped_items", res.Skipped).
				Msg("carrito procesado")
		}
	case env.Kind == envelope.KindEvent:
		_, _, err = d.events.Record(ctx, env)
	default:
		err = fmt.Errorf("%w: kind %q", domain.ErrInvalidInput, env.Kind)
	}
	if err == nil {
		return nil
	}
	if isTerminal(err) {
		ev := d.log.Warn().Err(err).Str("job_id", env.ID).Str("shop", env.ShopDomain)
		if env.Kind.IsCart() {
			ev = ev.Str("cart_key", env.CartKey())
		}
		ev.Msg("job descartado")
		return redisqueue.Permanent(err)
	}
	return err
}

// isTerminal errores de atribución o de forma: reintentar no cambia el resultado.
// Los datos que Postgres rechaza (clase 22) llegan del adaptador como ErrInvalidInput.
func isTerminal(err error) bool {
	return errors.Is(err, domain.ErrTenantNotFound) ||
		errors.Is(err, domain.ErrMissingCartKey) ||
		errors.Is(err, domain.ErrInvalidInput) ||
		errors.Is(err, domain.ErrUnknownEvent)
}
