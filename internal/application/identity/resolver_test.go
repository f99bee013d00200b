package identity_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/b2b-storefront-api/internal/application/identity"
	"github.com/jhoicas/b2b-storefront-api/internal/testutil"
	pkgjwt "github.com/jhoicas/b2b-storefront-api/pkg/jwt"
	"github.com/jhoicas/b2b-storefront-api/pkg/logger"
)

const secret = "secreto-de-sesion"

func newResolver(store *testutil.MemStore) *identity.Resolver {
	return identity.NewResolver(store.CompanyUsers(), store.Companies(), identity.NewJWTSessionDecoder(secret, "storefront"), logger.Nop())
}

func sessionToken(t *testing.T, userID, shop string, ttl time.Duration) string {
	t.Helper()
	tok, err := pkgjwt.GenerateSession(secret, userID, shop, "storefront", ttl)
	require.NoError(t, err)
	return tok
}

func TestResolve_TokenGanaSobreEmail(t *testing.T) {
	store := testutil.NewMemStore()
	shop := store.AddTenant("acme.myshopify.com")
	c1 := store.AddCompany(shop.ID, "Ferretería Uno")
	c2 := store.AddCompany(shop.ID, "Ferretería Dos")
	u1 := store.AddCompanyUser(shop.ID, c1.ID, "uno@acme.com", 0)
	store.AddCompanyUser(shop.ID, c2.ID, "dos@acme.com", 0)

	id, err := newResolver(store).Resolve(context.Background(), shop, identity.Signals{
		SessionToken: sessionToken(t, u1.ID, "acme.myshopify.com", time.Hour),
		Email:        "dos@acme.com",
	})
	require.NoError(t, err)
	assert.Equal(t, c1.ID, id.CompanyID)
	assert.Equal(t, u1.ID, id.CompanyUserID)
	assert.Equal(t, identity.SourceSessionToken, id.Source)
}

func TestResolve_TokenVencidoBajaAEmail(t *testing.T) {
	store := testutil.NewMemStore()
	shop := store.AddTenant("acme.myshopify.com")
	c1 := store.AddCompany(shop.ID, "Uno")
	c2 := store.AddCompany(shop.ID, "Dos")
	u1 := store.AddCompanyUser(shop.ID, c1.ID, "uno@acme.com", 0)
	store.AddCompanyUser(shop.ID, c2.ID, "dos@acme.com", 0)

	id, err := newResolver(store).Resolve(context.Background(), shop, identity.Signals{
		SessionToken: sessionToken(t, u1.ID, "acme.myshopify.com", -time.Minute),
		Email:        "  DOS@acme.com ",
	})
	require.NoError(t, err)
	assert.Equal(t, c2.ID, id.CompanyID)
	assert.Equal(t, identity.SourceEmail, id.Source)
}

func TestResolve_TokenDeOtraTiendaSeIgnora(t *testing.T) {
	store := testutil.NewMemStore()
	shop := store.AddTenant("acme.myshopify.com")
	c1 := store.AddCompany(shop.ID, "Uno")
	u1 := store.AddCompanyUser(shop.ID, c1.ID, "uno@acme.com", 0)

	id, err := newResolver(store).Resolve(context.Background(), shop, identity.Signals{
		SessionToken: sessionToken(t, u1.ID, "otra.myshopify.com", time.Hour),
	})
	require.NoError(t, err)
	assert.True(t, id.Anonymous())
	assert.Equal(t, identity.SourceAnonymous, id.Source)
}

func TestResolve_CustomerID(t *testing.T) {
	store := testutil.NewMemStore()
	shop := store.AddTenant("acme.myshopify.com")
	c1 := store.AddCompany(shop.ID, "Uno")
	u1 := store.AddCompanyUser(shop.ID, c1.ID, "uno@acme.com", 7321)

	id, err := newResolver(store).Resolve(context.Background(), shop, identity.Signals{
		CustomerID: "gid://shopify/Customer/7321",
		Email:      "otro@acme.com",
	})
	require.NoError(t, err)
	assert.Equal(t, u1.ID, id.CompanyUserID)
	assert.Equal(t, identity.SourceCustomerID, id.Source)
}

func TestResolve_CustomerIDNoNumericoBaja(t *testing.T) {
	store := testutil.NewMemStore()
	shop := store.AddTenant("acme.myshopify.com")
	c1 := store.AddCompany(shop.ID, "Uno")
	store.AddCompanyUser(shop.ID, c1.ID, "uno@acme.com", 0)

	id, err := newResolver(store).Resolve(context.Background(), shop, identity.Signals{
		CustomerID: "abc",
		Email:      "uno@acme.com",
	})
	require.NoError(t, err)
	assert.Equal(t, c1.ID, id.CompanyID)
	assert.Equal(t, identity.SourceEmail, id.Source)
}

func TestResolve_AislamientoEntreTiendas(t *testing.T) {
	store := testutil.NewMemStore()
	a := store.AddTenant("a.myshopify.com")
	b := store.AddTenant("b.myshopify.com")
	ca := store.AddCompany(a.ID, "A")
	store.AddCompanyUser(a.ID, ca.ID, "x@acme.com", 0)

	id, err := newResolver(store).Resolve(context.Background(), b, identity.Signals{Email: "x@acme.com"})
	require.NoError(t, err)
	assert.True(t, id.Anonymous(), "un email de otra tienda no debe resolver")
}

func TestResolve_Hints(t *testing.T) {
	store := testutil.NewMemStore()
	shop := store.AddTenant("acme.myshopify.com")
	other := store.AddTenant("otra.myshopify.com")
	c1 := store.AddCompany(shop.ID, "Uno")
	foreign := store.AddCompany(other.ID, "Ajena")
	r := newResolver(store)

	id, err := r.Resolve(context.Background(), shop, identity.Signals{CompanyIDHint: c1.ID})
	require.NoError(t, err)
	assert.Equal(t, c1.ID, id.CompanyID)
	assert.Equal(t, identity.SourceHint, id.Source)

	id, err = r.Resolve(context.Background(), shop, identity.Signals{CompanyIDHint: foreign.ID})
	require.NoError(t, err)
	assert.True(t, id.Anonymous())

	// ids con forma libre no llegan al repositorio
	id, err = r.Resolve(context.Background(), shop, identity.Signals{CompanyIDHint: "42", UserIDHint: "gid://x"})
	require.NoError(t, err)
	assert.True(t, id.Anonymous())
}

func TestResolve_FalloDeRepositorioSePropaga(t *testing.T) {
	store := testutil.NewMemStore()
	shop := store.AddTenant("acme.myshopify.com")
	store.FailGetByEmail = errors.New("timeout")

	_, err := newResolver(store).Resolve(context.Background(), shop, identity.Signals{Email: "uno@acme.com"})
	assert.Error(t, err)
}

func TestResolve_SinSenales(t *testing.T) {
	store := testutil.NewMemStore()
	shop := store.AddTenant("acme.myshopify.com")

	id, err := identity.NewResolver(store.CompanyUsers(), store.Companies(), nil, logger.Nop()).
		Resolve(context.Background(), shop, identity.Signals{SessionToken: "cualquier-cosa"})
	require.NoError(t, err)
	assert.True(t, id.Anonymous())
}

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "ana@acme.com", identity.NormalizeEmail("  Ana@ACME.com "))
	assert.Equal(t, "", identity.NormalizeEmail("sin-arroba"))
}
