// Package cart reconcilia snapshots de carrito contra el estado guardado: busca o crea el carrito
// por (tienda, token), reemplaza sus ítems y deja el diff en el rastro de auditoría.
package cart

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/b2b-storefront-api/internal/application/activity"
	"github.com/jhoicas/b2b-storefront-api/internal/application/identity"
	"github.com/jhoicas/b2b-storefront-api/internal/domain"
	domaincart "github.com/jhoicas/b2b-storefront-api/internal/domain/cart"
	"github.com/jhoicas/b2b-storefront-api/internal/domain/entity"
	"github.com/jhoicas/b2b-storefront-api/internal/domain/envelope"
	"github.com/jhoicas/b2b-storefront-api/internal/domain/repository"
	"github.com/jhoicas/b2b-storefront-api/pkg/logger"
)

// Options parámetros del reconciliador.
type Options struct {
	// MinorUnitThreshold umbral de la heurística de precios sin unidad. 0 ⇒ domaincart.DefaultMinorUnitThreshold.
	MinorUnitThreshold int64
}

// Result resultado de una reconciliación.
type Result struct {
	Cart     *entity.Cart
	Items    []*entity.CartItem
	Created  bool
	Changes  []domaincart.Change
	Skipped  int
	Identity identity.Identity
}

// Reconciler caso de uso de reconciliación de carritos.
type Reconciler struct {
	tx         TxRunner
	tenants    TenantResolver
	identities IdentityResolver
	audit      AuditWriter
	threshold  decimal.Decimal
	log        *logger.Logger
	now        func() time.Time
}

// NewReconciler construye el reconciliador.
func NewReconciler(tx TxRunner, tenants TenantResolver, identities IdentityResolver, audit AuditWriter, opts Options, log *logger.Logger) *Reconciler {
	threshold := opts.MinorUnitThreshold
	if threshold <= 0 {
		threshold = domaincart.DefaultMinorUnitThreshold
	}
	return &Reconciler{
		tx:         tx,
		tenants:    tenants,
		identities: identities,
		audit:      audit,
		threshold:  decimal.NewFromInt(threshold),
		log:        log.Named("reconciler"),
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Reconcile aplica el snapshot del sobre. Es idempotente: repetir el mismo snapshot deja el mismo
// conjunto de ítems y no genera entradas de ítem en la auditoría.
// Errores: domain.ErrTenantNotFound y domain.ErrMissingCartKey son terminales; el resto es transitorio.
func (r *Reconciler) Reconcile(ctx context.Context, env *envelope.Envelope) (*Result, error) {
	if env == nil || env.Cart == nil {
		return nil, fmt.Errorf("%w: sobre sin carrito", domain.ErrInvalidInput)
	}
	snap := env.Cart

	tenant, err := r.tenants.Resolve(ctx, env.ShopDomain)
	if err != nil {
		return nil, err
	}
	token := domaincart.NormalizeToken(snap.CartToken)
	if token == "" {
		return nil, fmt.Errorf("%w: tienda %s", domain.ErrMissingCartKey, tenant.ShopDomain)
	}

	items, skipped, inferred := r.buildItems(tenant.ID, token, snap.Lines)

	who, err := r.identities.Resolve(ctx, tenant, identity.Signals{
		SessionToken: env.Provenance.SessionToken,
		CustomerID:   snap.CustomerID,
		Email:        snap.CustomerEmail,
	})
	if err != nil {
		return nil, err
	}

	res := &Result{Skipped: skipped, Identity: who}
	var entries []*entity.ActivityLog

	err = r.tx.RunCart(ctx, tenant.ID, token, func(carts repository.CartRepository, companies repository.CompanyRepository) error {
		entries = entries[:0]
		c, err := carts.GetByToken(ctx, tenant.ID, token)
		if err != nil {
			return fmt.Errorf("buscar carrito: %w", err)
		}

		var before []*entity.CartItem
		if c == nil {
			companyID := who.CompanyID
			if who.Anonymous() {
				anon, err := companies.EnsureAnonymous(ctx, tenant.ID)
				if err != nil {
					return fmt.Errorf("empresa anónima: %w", err)
				}
				companyID = anon.ID
			}
			c = &entity.Cart{
				TenantID:  tenant.ID,
				CompanyID: companyID,
				CartToken: token,
				Status:    entity.CartStatusDraft,
				CreatedAt: r.now(),
			}
			res.Created = true
		} else {
			if before, err = carts.ListItems(ctx, c.ID); err != nil {
				return fmt.Errorf("snapshot de ítems: %w", err)
			}
			// un carrito identificado nunca vuelve a la empresa anónima
			if !who.Anonymous() && who.CompanyID != c.CompanyID {
				entries = append(entries, activity.NewEntry(tenant.ID, strPtr(who.CompanyID), strPtr(c.ID), entity.ActivityCartCompanyUpdated,
					activity.CartCompanyUpdated{CartToken: token, OldCompanyID: c.CompanyID, NewCompanyID: who.CompanyID}))
				c.CompanyID = who.CompanyID
			}
		}

		r.applySnapshot(c, snap, items, who, inferred, skipped)

		if res.Created {
			if err := carts.Create(ctx, c); err != nil {
				return fmt.Errorf("crear carrito: %w", err)
			}
		} else if err := carts.Update(ctx, c); err != nil {
			return fmt.Errorf("actualizar carrito: %w", err)
		}
		for _, it := range items {
			it.CartID = c.ID
		}
		if err := carts.ReplaceItems(ctx, c.ID, items); err != nil {
			return fmt.Errorf("reemplazar ítems: %w", err)
		}

		res.Cart = c
		res.Items = items
		if res.Created {
			entries = append(entries, createdEntries(c, items, who)...)
			return nil
		}
		res.Changes = domaincart.Diff(before, items)
		entries = append(entries, changeEntries(c, res.Changes)...)
		return nil
	})
	if err != nil {
		return nil, err
	}

	// después del commit: un fallo de auditoría no revierte la reconciliación
	r.audit.RecordAll(ctx, entries)

	r.log.Debug().
		Str("tenant_id", tenant.ID).
		Str("cart_id", res.Cart.ID).
		Bool("created", res.Created).
		Int("changes", len(res.Changes)).
		Int("skipped", skipped).
		Msg("carrito reconciliado")
	return res, nil
}

// buildItems convierte las líneas crudas. Una línea con id inválido se salta sola; las líneas con
// cantidad 0 no forman parte del carrito.
func (r *Reconciler) buildItems(tenantID, token string, lines []envelope.CartLine) (items []*entity.CartItem, skipped int, inferred bool) {
	now := r.now()
	items = make([]*entity.CartItem, 0, len(lines))
	for i, l := range lines {
		variant, err := l.VariantID.Parse()
		if err != nil {
			skipped++
			r.log.Warn().Err(err).
				Str("tenant_id", tenantID).
				Str("cart_token", token).
				Int("line", i).
				Str("variant_id", string(l.VariantID)).
				Msg("línea de carrito con variant id inválido, se omite")
			continue
		}
		if l.Quantity <= 0 {
			continue
		}
		it := &entity.CartItem{
			VariantID:    variant.Int64(),
			Title:        strings.TrimSpace(l.Title),
			VariantTitle: strings.TrimSpace(l.VariantTitle),
			Quantity:     l.Quantity,
			ImageURL:     l.ImageURL,
			CreatedAt:    now,
		}
		if l.ProductID != "" {
			if p, err := l.ProductID.Parse(); err == nil {
				pid := p.Int64()
				it.ProductID = &pid
			} else {
				r.log.Warn().Str("tenant_id", tenantID).Str("product_id", string(l.ProductID)).Msg("product id inválido, se guarda la línea sin producto")
			}
		}
		var guessed bool
		it.UnitPrice, guessed = domaincart.NormalizePrice(l.Price, l.Unit, r.threshold)
		inferred = inferred || guessed
		if l.ListPrice != nil {
			lp, _ := domaincart.NormalizePrice(*l.ListPrice, l.Unit, r.threshold)
			it.ListPrice = &lp
		}
		items = append(items, it)
	}
	return items, skipped, inferred
}

// applySnapshot copia totales y metadatos del snapshot al carrito.
func (r *Reconciler) applySnapshot(c *entity.Cart, snap *envelope.CartSnapshot, items []*entity.CartItem, who identity.Identity, inferred bool, skipped int) {
	sum := decimal.Zero
	count := 0
	for _, it := range items {
		sum = sum.Add(it.UnitPrice.Mul(decimal.NewFromInt(int64(it.Quantity))))
		count += it.Quantity
	}
	c.Subtotal = sum
	if snap.Subtotal != nil {
		v, guessed := domaincart.NormalizePrice(*snap.Subtotal, snap.TotalsUnit, r.threshold)
		c.Subtotal = v
		inferred = inferred || guessed
	}
	c.Total = c.Subtotal
	if snap.Total != nil {
		v, guessed := domaincart.NormalizePrice(*snap.Total, snap.TotalsUnit, r.threshold)
		c.Total = v
		inferred = inferred || guessed
	}
	c.ItemCount = count
	if cur := strings.ToUpper(strings.TrimSpace(snap.Currency)); cur != "" {
		c.Currency = cur
	}
	if snap.CheckoutURL != "" {
		c.CheckoutURL = snap.CheckoutURL
	}
	if who.CompanyUserID != "" {
		c.CompanyUserID = strPtr(who.CompanyUserID)
	}

	var meta entity.CartMetadata
	if len(c.Metadata) > 0 {
		_ = json.Unmarshal(c.Metadata, &meta)
	}
	if c.ID == "" {
		meta.IsAnonymous = who.Anonymous()
	} else if !who.Anonymous() {
		meta.IsAnonymous = false
	}
	if !who.Anonymous() {
		meta.IdentitySource = string(who.Source)
	}
	if snap.CustomerEmail != "" {
		meta.CustomerEmail = strings.TrimSpace(snap.CustomerEmail)
	}
	if snap.CustomerPhone != "" {
		meta.CustomerPhone = strings.TrimSpace(snap.CustomerPhone)
	}
	if snap.CustomerID != "" {
		meta.CustomerID = strings.TrimSpace(snap.CustomerID)
	}
	meta.PriceUnitInferred = inferred
	meta.SkippedItems = skipped
	c.Metadata, _ = json.Marshal(meta)
	c.UpdatedAt = r.now()
}

func createdEntries(c *entity.Cart, items []*entity.CartItem, who identity.Identity) []*entity.ActivityLog {
	count := 0
	summary := make([]activity.ItemSummary, 0, len(items))
	for _, it := range items {
		count += it.Quantity
		summary = append(summary, activity.ItemSummary{VariantID: it.VariantID, Title: it.Title, Quantity: it.Quantity})
	}
	out := []*entity.ActivityLog{
		activity.NewEntry(c.TenantID, strPtr(c.CompanyID), strPtr(c.ID), entity.ActivityCartCreated, activity.CartCreated{
			CartToken:   c.CartToken,
			ItemCount:   count,
			IsAnonymous: who.Anonymous(),
			Source:      string(who.Source),
		}),
	}
	if len(items) > 0 {
		out = append(out, activity.NewEntry(c.TenantID, strPtr(c.CompanyID), strPtr(c.ID), entity.ActivityCartItemsAdded, activity.CartItemsAdded{
			CartToken: c.CartToken,
			Count:     len(items),
			Items:     summary,
		}))
	}
	return out
}

func changeEntries(c *entity.Cart, changes []domaincart.Change) []*entity.ActivityLog {
	out := make([]*entity.ActivityLog, 0, len(changes))
	for _, ch := range changes {
		p := activity.CartItemChange{CartToken: c.CartToken, VariantID: ch.VariantID, Title: ch.Title}
		var eventType string
		switch ch.Kind {
		case domaincart.ChangeAdded:
			eventType = entity.ActivityCartItemAdded
			p.Quantity = ch.NewQuantity
		case domaincart.ChangeRemoved:
			eventType = entity.ActivityCartItemRemoved
			p.Quantity = ch.OldQuantity
		case domaincart.ChangeUpdated:
			eventType = entity.ActivityCartItemUpdated
			oldQ, newQ := ch.OldQuantity, ch.NewQuantity
			p.OldQuantity, p.NewQuantity = &oldQ, &newQ
			p.Quantity = ch.NewQuantity
		}
		out = append(out, activity.NewEntry(c.TenantID, strPtr(c.CompanyID), strPtr(c.ID), eventType, p))
	}
	return out
}

func strPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
