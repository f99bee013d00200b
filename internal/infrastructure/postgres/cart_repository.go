package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jhoicas/b2b-storefront-api/internal/domain"
	"github.com/jhoicas/b2b-storefront-api/internal/domain/entity"
	"github.com/jhoicas/b2b-storefront-api/internal/domain/repository"
)

var _ repository.CartRepository = (*CartRepo)(nil)

// CartRepo implementación del puerto CartRepository sobre PostgreSQL.
type CartRepo struct {
	q Querier
}

// NewCartRepository construye el repositorio de carritos.
func NewCartRepository(q Querier) *CartRepo {
	return &CartRepo{q: q}
}

const cartColumns = `id, tenant_id, company_id, company_user_id, cart_token, status, currency,
	subtotal, total, item_count, checkout_url, metadata, created_at, updated_at`

var cartItemColumns = []string{
	"id", "cart_id", "variant_id", "product_id", "title", "variant_title",
	"quantity", "unit_price", "list_price", "image_url", "created_at",
}

// GetByToken busca el carrito por su clave natural (tienda, token). nil, nil si no existe.
func (r *CartRepo) GetByToken(ctx context.Context, tenantID, cartToken string) (*entity.Cart, error) {
	query := `SELECT ` + cartColumns + ` FROM carts WHERE tenant_id = $1 AND cart_token = $2`
	c, err := scanCart(r.q.QueryRow(ctx, query, tenantID, cartToken))
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get cart by token: %w", err)
	}
	return c, nil
}

// GetByID obtiene un carrito de la tienda por ID.
func (r *CartRepo) GetByID(ctx context.Context, tenantID, id string) (*entity.Cart, error) {
	query := `SELECT ` + cartColumns + ` FROM carts WHERE tenant_id = $1 AND id = $2`
	c, err := scanCart(r.q.QueryRow(ctx, query, tenantID, id))
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get cart: %w", err)
	}
	return c, nil
}

// Create inserta el carrito. Asigna ID si viene vacío.
func (r *CartRepo) Create(ctx context.Context, c *entity.Cart) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.UpdatedAt.IsZero() {
		c.UpdatedAt = c.CreatedAt
	}
	query := `
		INSERT INTO carts (id, tenant_id, company_id, company_user_id, cart_token, status, currency,
			subtotal, total, item_count, checkout_url, metadata, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`
	_, err := r.q.Exec(ctx, query,
		c.ID, c.TenantID, c.CompanyID, c.CompanyUserID, c.CartToken, c.Status, c.Currency,
		c.Subtotal, c.Total, c.ItemCount, c.CheckoutURL, jsonOrEmpty(c.Metadata), c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("insert cart %s: %w", c.CartToken, domain.ErrDuplicate)
		}
		return writeError("insert cart", err)
	}
	return nil
}

// Update sobrescribe los campos mutables. tenant_id y cart_token no cambian nunca.
func (r *CartRepo) Update(ctx context.Context, c *entity.Cart) error {
	query := `
		UPDATE carts SET
			company_id = $3, company_user_id = $4, status = $5, currency = $6,
			subtotal = $7, total = $8, item_count = $9, checkout_url = $10,
			metadata = $11, updated_at = $12
		WHERE tenant_id = $1 AND id = $2`
	tag, err := r.q.Exec(ctx, query,
		c.TenantID, c.ID, c.CompanyID, c.CompanyUserID, c.Status, c.Currency,
		c.Subtotal, c.Total, c.ItemCount, c.CheckoutURL, jsonOrEmpty(c.Metadata), c.UpdatedAt,
	)
	if err != nil {
		return writeError("update cart", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update cart %s: %w", c.ID, domain.ErrNotFound)
	}
	return nil
}

// ListItems devuelve los ítems en orden de inserción.
func (r *CartRepo) ListItems(ctx context.Context, cartID string) ([]*entity.CartItem, error) {
	query := `
		SELECT ` + strings.Join(cartItemColumns, ", ") + `
		FROM cart_items WHERE cart_id = $1
		ORDER BY created_at, variant_id`
	rows, err := r.q.Query(ctx, query, cartID)
	if err != nil {
		return nil, fmt.Errorf("list cart items: %w", err)
	}
	defer rows.Close()

	var list []*entity.CartItem
	for rows.Next() {
		var it entity.CartItem
		if err := rows.Scan(
			&it.ID, &it.CartID, &it.VariantID, &it.ProductID, &it.Title, &it.VariantTitle,
			&it.Quantity, &it.UnitPrice, &it.ListPrice, &it.ImageURL, &it.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan cart item: %w", err)
		}
		list = append(list, &it)
	}
	return list, rows.Err()
}

// ReplaceItems borra los ítems actuales y copia el nuevo conjunto con COPY.
// Debe ejecutarse dentro de la transacción del carrito.
func (r *CartRepo) ReplaceItems(ctx context.Context, cartID string, items []*entity.CartItem) error {
	if _, err := r.q.Exec(ctx, `DELETE FROM cart_items WHERE cart_id = $1`, cartID); err != nil {
		return fmt.Errorf("delete cart items: %w", err)
	}
	if len(items) == 0 {
		return nil
	}

	now := time.Now().UTC()
	rows := make([][]any, 0, len(items))
	for _, it := range items {
		if it.ID == "" {
			it.ID = uuid.NewString()
		}
		it.CartID = cartID
		if it.CreatedAt.IsZero() {
			it.CreatedAt = now
		}
		rows = append(rows, []any{
			it.ID, it.CartID, it.VariantID, it.ProductID, it.Title, it.VariantTitle,
			it.Quantity, it.UnitPrice, it.ListPrice, it.ImageURL, it.CreatedAt,
		})
	}
	if _, err := r.q.CopyFrom(ctx, pgx.Identifier{"cart_items"}, cartItemColumns, pgx.CopyFromRows(rows)); err != nil {
		return writeError("copy cart items", err)
	}
	return nil
}

// List lista carritos de la tienda, los más recientes primero.
func (r *CartRepo) List(ctx context.Context, f repository.CartFilter) ([]*entity.Cart, error) {
	query := `SELECT ` + cartColumns + ` FROM carts WHERE tenant_id = $1`
	args := []any{f.TenantID}
	pos := 2
	if f.CompanyID != "" {
		query += fmt.Sprintf(" AND company_id = $%d", pos)
		args = append(args, f.CompanyID)
		pos++
	}
	if f.Status != "" {
		query += fmt.Sprintf(" AND status = $%d", pos)
		args = append(args, f.Status)
		pos++
	}
	query += fmt.Sprintf(" ORDER BY updated_at DESC, id LIMIT $%d OFFSET $%d", pos, pos+1)
	args = append(args, f.Limit, f.Offset)

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list carts: %w", err)
	}
	defer rows.Close()

	var list []*entity.Cart
	for rows.Next() {
		c, err := scanCart(rows)
		if err != nil {
			return nil, fmt.Errorf("scan cart: %w", err)
		}
		list = append(list, c)
	}
	return list, rows.Err()
}

func scanCart(row rowScanner) (*entity.Cart, error) {
	var c entity.Cart
	var metadata []byte
	if err := row.Scan(
		&c.ID, &c.TenantID, &c.CompanyID, &c.CompanyUserID, &c.CartToken, &c.Status, &c.Currency,
		&c.Subtotal, &c.Total, &c.ItemCount, &c.CheckoutURL, &metadata, &c.CreatedAt, &c.UpdatedAt,
	); err != nil {
		return nil, err
	}
	c.Metadata = metadata
	return &c, nil
}
