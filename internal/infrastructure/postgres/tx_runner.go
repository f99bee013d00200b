package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jhoicas/b2b-storefront-api/internal/application/cart"
	"github.com/jhoicas/b2b-storefront-api/internal/domain/repository"
)

var _ cart.TxRunner = (*TxRunner)(nil)

// TxStarter lo cumple *pgxpool.Pool.
type TxStarter interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// TxRunner ejecuta callbacks dentro de una transacción PostgreSQL.
type TxRunner struct {
	pool TxStarter
}

// NewTxRunner construye el runner con el pool.
func NewTxRunner(pool TxStarter) *TxRunner {
	return &TxRunner{pool: pool}
}

// RunCart abre una transacción, toma un advisory lock de transacción sobre (tienda, token)
// y ejecuta fn con repos atados a la tx. El lock se libera con el Commit o el Rollback.
func (r *TxRunner) RunCart(ctx context.Context, tenantID, cartToken string, fn func(
	carts repository.CartRepository,
	companies repository.CompanyRepository,
) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx,
		`SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`,
		cartLockKey(tenantID, cartToken),
	); err != nil {
		return fmt.Errorf("lock cart: %w", err)
	}

	if err := fn(NewCartRepository(tx), NewCompanyRepository(tx)); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func cartLockKey(tenantID, cartToken string) string {
	return "cart:" + tenantID + ":" + cartToken
}
