package postgres_test

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/b2b-storefront-api/internal/domain"
	"github.com/jhoicas/b2b-storefront-api/internal/domain/entity"
	"github.com/jhoicas/b2b-storefront-api/internal/domain/repository"
	"github.com/jhoicas/b2b-storefront-api/internal/infrastructure/postgres"
)

const (
	lockSQL         = `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`
	cartByTokenSQL  = `FROM carts WHERE tenant_id = $1 AND cart_token = $2`
	anonInsertSQL   = `ON CONFLICT (tenant_id) WHERE is_anonymous DO NOTHING`
	anonSelectSQL   = `FROM companies WHERE tenant_id = $1 AND is_anonymous`
	deleteItemsSQL  = `DELETE FROM cart_items WHERE cart_id = $1`
	insertCartSQL   = `INSERT INTO carts`
	tenantID        = "7d1e0c52-0000-4000-8000-000000000001"
	cartToken       = "c1-abc"
	expectedLockKey = "cart:" + tenantID + ":" + cartToken
)

var cartColumns = []string{
	"id", "tenant_id", "company_id", "company_user_id", "cart_token", "status", "currency",
	"subtotal", "total", "item_count", "checkout_url", "metadata", "created_at", "updated_at",
}

var companyColumns = []string{"id", "tenant_id", "name", "is_anonymous", "status", "created_at", "updated_at"}

func setupMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return mock
}

func q(sql string) string { return regexp.QuoteMeta(sql) }

func TestRunCart_LockAntesDeLeerYCommit(t *testing.T) {
	mock := setupMock(t)

	mock.ExpectBegin()
	mock.ExpectExec(q(lockSQL)).WithArgs(expectedLockKey).WillReturnResult(pgxmock.NewResult("SELECT", 1))
	mock.ExpectQuery(q(cartByTokenSQL)).WithArgs(tenantID, cartToken).WillReturnRows(pgxmock.NewRows(cartColumns))
	mock.ExpectCommit()

	var found *entity.Cart
	err := postgres.NewTxRunner(mock).RunCart(context.Background(), tenantID, cartToken,
		func(carts repository.CartRepository, _ repository.CompanyRepository) error {
			var err error
			found, err = carts.GetByToken(context.Background(), tenantID, cartToken)
			return err
		})
	require.NoError(t, err)
	assert.Nil(t, found, "sin filas el carrito no existe")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunCart_FalloEnFnHaceRollback(t *testing.T) {
	mock := setupMock(t)
	boom := errors.New("falla a mitad")

	mock.ExpectBegin()
	mock.ExpectExec(q(lockSQL)).WithArgs(expectedLockKey).WillReturnResult(pgxmock.NewResult("SELECT", 1))
	mock.ExpectExec(q(insertCartSQL)).WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectRollback()

	err := postgres.NewTxRunner(mock).RunCart(context.Background(), tenantID, cartToken,
		func(carts repository.CartRepository, _ repository.CompanyRepository) error {
			c := &entity.Cart{TenantID: tenantID, CompanyID: "c-1", CartToken: cartToken, Status: entity.CartStatusDraft, CreatedAt: time.Now()}
			if err := carts.Create(context.Background(), c); err != nil {
				return err
			}
			return boom
		})
	assert.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet(), "el INSERT no debe quedar confirmado")
}

func TestRunCart_SinLockNoEjecutaFn(t *testing.T) {
	mock := setupMock(t)

	mock.ExpectBegin()
	mock.ExpectExec(q(lockSQL)).WithArgs(expectedLockKey).WillReturnError(errors.New("canceling statement due to lock timeout"))
	mock.ExpectRollback()

	called := false
	err := postgres.NewTxRunner(mock).RunCart(context.Background(), tenantID, cartToken,
		func(repository.CartRepository, repository.CompanyRepository) error {
			called = true
			return nil
		})
	require.Error(t, err)
	assert.False(t, called)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnsureAnonymous_InsertaSinConflictoYLee(t *testing.T) {
	mock := setupMock(t)
	now := time.Now().UTC()

	mock.ExpectExec(q(anonInsertSQL)).
		WithArgs(pgxmock.AnyArg(), tenantID, entity.AnonymousCompanyName).
		WillReturnResult(pgxmock.NewResult("INSERT", 0))
	mock.ExpectQuery(q(anonSelectSQL)).
		WithArgs(tenantID).
		WillReturnRows(pgxmock.NewRows(companyColumns).
			AddRow("c-anon", tenantID, entity.AnonymousCompanyName, true, "active", now, now))

	c, err := postgres.NewCompanyRepository(mock).EnsureAnonymous(context.Background(), tenantID)
	require.NoError(t, err)
	assert.Equal(t, "c-anon", c.ID)
	assert.True(t, c.IsAnonymous)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReplaceItems_BorraYCopia(t *testing.T) {
	mock := setupMock(t)
	items := []*entity.CartItem{
		{VariantID: 10, Title: "Casco", Quantity: 2, UnitPrice: decimal.RequireFromString("45.00")},
		{VariantID: 11, Title: "Guantes", Quantity: 1, UnitPrice: decimal.RequireFromString("12.50")},
	}

	mock.ExpectExec(q(deleteItemsSQL)).WithArgs("cart-1").WillReturnResult(pgxmock.NewResult("DELETE", 3))
	mock.ExpectCopyFrom(pgx.Identifier{"cart_items"}, []string{
		"id", "cart_id", "variant_id", "product_id", "title", "variant_title",
		"quantity", "unit_price", "list_price", "image_url", "created_at",
	}).WillReturnResult(2)

	require.NoError(t, postgres.NewCartRepository(mock).ReplaceItems(context.Background(), "cart-1", items))
	for _, it := range items {
		assert.NotEmpty(t, it.ID)
		assert.Equal(t, "cart-1", it.CartID)
		assert.False(t, it.CreatedAt.IsZero())
	}
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReplaceItems_VacioSoloBorra(t *testing.T) {
	mock := setupMock(t)
	mock.ExpectExec(q(deleteItemsSQL)).WithArgs("cart-1").WillReturnResult(pgxmock.NewResult("DELETE", 1))

	require.NoError(t, postgres.NewCartRepository(mock).ReplaceItems(context.Background(), "cart-1", nil))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReplaceItems_DesbordeNumericoEsEntradaInvalida(t *testing.T) {
	mock := setupMock(t)
	items := []*entity.CartItem{{VariantID: 10, Quantity: 1, UnitPrice: decimal.RequireFromString("1e20")}}

	mock.ExpectExec(q(deleteItemsSQL)).WithArgs("cart-1").WillReturnResult(pgxmock.NewResult("DELETE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"cart_items"}, []string{
		"id", "cart_id", "variant_id", "product_id", "title", "variant_title",
		"quantity", "unit_price", "list_price", "image_url", "created_at",
	}).WillReturnError(&pgconn.PgError{Code: "22003", Message: "numeric field overflow"})

	err := postgres.NewCartRepository(mock).ReplaceItems(context.Background(), "cart-1", items)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestCreate_ConflictoDeTokenEsDuplicado(t *testing.T) {
	mock := setupMock(t)
	mock.ExpectExec(q(insertCartSQL)).WillReturnError(&pgconn.PgError{Code: "23505"})

	c := &entity.Cart{TenantID: tenantID, CompanyID: "c-1", CartToken: cartToken, Status: entity.CartStatusDraft, CreatedAt: time.Now()}
	err := postgres.NewCartRepository(mock).Create(context.Background(), c)
	assert.ErrorIs(t, err, domain.ErrDuplicate)
	assert.NotErrorIs(t, err, domain.ErrInvalidInput)
}
