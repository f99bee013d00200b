package ingest_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/b2b-storefront-api/internal/application/dto"
	"github.com/jhoicas/b2b-storefront-api/internal/application/ingest"
	"github.com/jhoicas/b2b-storefront-api/internal/domain"
	"github.com/jhoicas/b2b-storefront-api/internal/domain/cart"
	"github.com/jhoicas/b2b-storefront-api/internal/domain/envelope"
	"github.com/jhoicas/b2b-storefront-api/pkg/logger"
)

type recordingPublisher struct {
	got []*envelope.Envelope
	err error
}

func (p *recordingPublisher) Publish(_ context.Context, env *envelope.Envelope) error {
	if p.err != nil {
		return p.err
	}
	p.got = append(p.got, env)
	return nil
}

func decode[T any](t *testing.T, body string) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal([]byte(body), &v))
	return v
}

func TestTrackCart_Encola(t *testing.T) {
	pub := &recordingPublisher{}
	svc := ingest.NewService(pub, logger.Nop())
	in := decode[dto.TrackCartRequest](t, `{
		"cartToken": "c1-abc?key=zz",
		"shopDomain": "https://Acme.myshopify.com",
		"customerEmail": "ana@acme.com",
		"priceUnit": "minor",
		"items": [
			{"shopifyVariantId": 4455, "title": "Taladro", "quantity": 2, "price": 2599},
			{"shopifyVariantId": "gid://shopify/ProductVariant/77", "title": "Broca", "quantity": 1, "price": "10.00", "priceUnit": "major"}
		]
	}`)

	ack, err := svc.TrackCart(context.Background(), in, ingest.Meta{Provenance: envelope.Provenance{IP: "1.2.3.4"}})
	require.NoError(t, err)
	assert.True(t, ack.Success)
	assert.True(t, ack.Queued)
	assert.Equal(t, "c1-abc", ack.CartToken)

	require.Len(t, pub.got, 1)
	env := pub.got[0]
	assert.Equal(t, ack.JobID, env.ID)
	assert.Equal(t, envelope.KindCartTrack, env.Kind)
	assert.Equal(t, "acme.myshopify.com", env.ShopDomain)
	assert.Equal(t, "1.2.3.4", env.Provenance.IP)
	require.Len(t, env.Cart.Lines, 2)
	assert.Equal(t, cart.PriceUnitMinor, env.Cart.Lines[0].Unit)
	assert.Equal(t, cart.PriceUnitMajor, env.Cart.Lines[1].Unit)
	assert.NoError(t, env.Validate())
}

func TestTrackCart_RechazaFormasInvalidas(t *testing.T) {
	cases := map[string]string{
		"sin cartToken":            `{"shopDomain":"acme.myshopify.com","items":[]}`,
		"cantidad negativa":        `{"cartToken":"c1","shopDomain":"acme.myshopify.com","items":[{"shopifyVariantId":1,"quantity":-1,"price":1}]}`,
		"sin cantidad":             `{"cartToken":"c1","shopDomain":"acme.myshopify.com","items":[{"shopifyVariantId":1,"price":1}]}`,
		"sin precio":               `{"cartToken":"c1","shopDomain":"acme.myshopify.com","items":[{"shopifyVariantId":1,"quantity":1}]}`,
		"precio negativo":          `{"cartToken":"c1","shopDomain":"acme.myshopify.com","items":[{"shopifyVariantId":1,"quantity":1,"price":-5}]}`,
		"unidad desconocida":       `{"cartToken":"c1","shopDomain":"acme.myshopify.com","priceUnit":"cents"}`,
		"sin tienda":               `{"cartToken":"c1"}`,
		"token solo de query":      `{"cartToken":"?key=1","shopDomain":"acme.myshopify.com"}`,
		"precio fuera de rango":    `{"cartToken":"c1","shopDomain":"acme.myshopify.com","priceUnit":"major","items":[{"shopifyVariantId":1,"quantity":1,"price":"99999999999999999999"}]}`,
		"cantidad por precio":      `{"cartToken":"c1","shopDomain":"acme.myshopify.com","priceUnit":"major","items":[{"shopifyVariantId":1,"quantity":100000,"price":"5000000"}]}`,
		"suma de líneas":           `{"cartToken":"c1","shopDomain":"acme.myshopify.com","items":[{"shopifyVariantId":1,"quantity":100000,"price":"600000"},{"shopifyVariantId":2,"quantity":100000,"price":"600000"}]}`,
		"compareAt fuera de rango": `{"cartToken":"c1","shopDomain":"acme.myshopify.com","items":[{"shopifyVariantId":1,"quantity":1,"price":1,"compareAtPrice":"1e12"}]}`,
		"subtotal fuera de rango":  `{"cartToken":"c1","shopDomain":"acme.myshopify.com","subtotal":"1000000000000"}`,
		"NUL en título":            `{"cartToken":"c1","shopDomain":"acme.myshopify.com","items":[{"shopifyVariantId":1,"quantity":1,"price":1,"title":"Taladro\u0000"}]}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			pub := &recordingPublisher{}
			_, err := ingest.NewService(pub, logger.Nop()).TrackCart(context.Background(), decode[dto.TrackCartRequest](t, body), ingest.Meta{})
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrInvalidInput)
			assert.Empty(t, pub.got, "un payload inválido nunca se encola")
		})
	}
}

func TestTrackCart_VarianteNulaNoRechazaElCarrito(t *testing.T) {
	pub := &recordingPublisher{}
	in := decode[dto.TrackCartRequest](t, `{
		"cartToken": "c1",
		"shopDomain": "acme.myshopify.com",
		"items": [
			{"shopifyVariantId": null, "title": "Sin variante", "quantity": 1, "price": 5},
			{"shopifyVariantId": "", "title": "Vacía", "quantity": 1, "price": 5},
			{"shopifyVariantId": 10, "title": "Casco", "quantity": 1, "price": 5}
		]
	}`)

	_, err := ingest.NewService(pub, logger.Nop()).TrackCart(context.Background(), in, ingest.Meta{})
	require.NoError(t, err)
	require.Len(t, pub.got, 1)
	require.Len(t, pub.got[0].Cart.Lines, 3, "las líneas sin variante se omiten en el worker")
	assert.Empty(t, string(pub.got[0].Cart.Lines[0].VariantID))
}

func TestTrackCart_MontoEnElTope(t *testing.T) {
	pub := &recordingPublisher{}
	in := decode[dto.TrackCartRequest](t, `{
		"cartToken": "c1",
		"shopDomain": "acme.myshopify.com",
		"priceUnit": "major",
		"subtotal": "100000000000",
		"items": [{"shopifyVariantId": 1, "quantity": 100, "price": "1000000000"}]
	}`)

	_, err := ingest.NewService(pub, logger.Nop()).TrackCart(context.Background(), in, ingest.Meta{})
	require.NoError(t, err)
	assert.Len(t, pub.got, 1)
}

func TestSyncCart_RechazaMontosQueNoCabenEnLaBase(t *testing.T) {
	cases := map[string]string{
		"precio":         `{"token":"c9","shopDomain":"acme.myshopify.com","items":[{"variant_id":1,"quantity":1,"price":"99999999999999999999"}]}`,
		"original_price": `{"token":"c9","shopDomain":"acme.myshopify.com","items":[{"variant_id":1,"quantity":1,"price":1,"original_price":"1e10"}]}`,
		"total":          `{"token":"c9","shopDomain":"acme.myshopify.com","total_price":"1e12"}`,
		"suma":           `{"token":"c9","shopDomain":"acme.myshopify.com","items":[{"variant_id":1,"quantity":100000,"price":"1000000000"}]}`,
		"NUL":            `{"token":"c9","shopDomain":"acme.myshopify.com","items":[{"variant_id":1,"quantity":1,"price":1,"product_title":"a\u0000b"}]}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			pub := &recordingPublisher{}
			_, err := ingest.NewService(pub, logger.Nop()).SyncCart(context.Background(), decode[dto.SyncCartRequest](t, body), ingest.Meta{})
			assert.ErrorIs(t, err, domain.ErrInvalidInput)
			assert.Empty(t, pub.got)
		})
	}
}

func TestTrackCart_TiendaDesdeCabecera(t *testing.T) {
	pub := &recordingPublisher{}
	in := decode[dto.TrackCartRequest](t, `{"cartToken":"c1"}`)
	_, err := ingest.NewService(pub, logger.Nop()).TrackCart(context.Background(), in, ingest.Meta{ShopHint: "https://acme.myshopify.com"})
	require.NoError(t, err)
	assert.Equal(t, "acme.myshopify.com", pub.got[0].ShopDomain)
}

func TestSyncCart_PreciosEnCentavosEIdsCrudos(t *testing.T) {
	pub := &recordingPublisher{}
	in := decode[dto.SyncCartRequest](t, `{
		"token": "c9",
		"shopDomain": "acme.myshopify.com",
		"currency": "COP",
		"total_price": 519800,
		"items": [
			{"variant_id": 39400000000001, "product_id": 7000, "product_title": "Guantes", "quantity": 2, "price": 259900},
			{"variant_id": "no-numerico", "quantity": 1, "price": 100}
		]
	}`)

	ack, err := ingest.NewService(pub, logger.Nop()).SyncCart(context.Background(), in, ingest.Meta{})
	require.NoError(t, err)
	assert.Equal(t, "c9", ack.CartToken)

	env := pub.got[0]
	assert.Equal(t, envelope.KindCartSync, env.Kind)
	assert.Equal(t, cart.PriceUnitMinor, env.Cart.TotalsUnit)
	require.Len(t, env.Cart.Lines, 2, "los ids inválidos se resuelven en el worker, línea a línea")
	assert.Equal(t, "39400000000001", string(env.Cart.Lines[0].VariantID))
	assert.Equal(t, "no-numerico", string(env.Cart.Lines[1].VariantID))
}

func TestCollectEvent(t *testing.T) {
	pub := &recordingPublisher{}
	in := decode[dto.CollectEventRequest](t, `{
		"eventType": "product_view",
		"shopDomain": "acme.myshopify.com",
		"sessionId": "s-1",
		"referrer": "https://google.com",
		"payload": {"productId": 10},
		"timestamp": 1767225600000
	}`)

	ack, err := ingest.NewService(pub, logger.Nop()).CollectEvent(context.Background(), in, ingest.Meta{
		Provenance: envelope.Provenance{Referrer: "https://acme.myshopify.com/products/x", UserAgent: "Mozilla"},
	})
	require.NoError(t, err)
	assert.True(t, ack.Success)

	env := pub.got[0]
	assert.Equal(t, envelope.EventProductView, env.Event.EventType)
	assert.Equal(t, "https://google.com", env.Provenance.Referrer, "el referrer del cuerpo gana")
	assert.Equal(t, "Mozilla", env.Provenance.UserAgent)
	assert.Equal(t, int64(1767225600000), env.Event.OccurredAt.UnixMilli())
	assert.JSONEq(t, `{"productId": 10}`, string(env.Event.Data))
}

func TestCollectEvent_TipoDesconocido(t *testing.T) {
	pub := &recordingPublisher{}
	in := decode[dto.CollectEventRequest](t, `{"eventType":"hover","shopDomain":"acme.myshopify.com"}`)
	_, err := ingest.NewService(pub, logger.Nop()).CollectEvent(context.Background(), in, ingest.Meta{})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Empty(t, pub.got)
}

func TestCollectEvent_RechazaNUL(t *testing.T) {
	cases := map[string]struct{ body, field string }{
		"en payload":        {`{"eventType":"search","shopDomain":"acme.myshopify.com","payload":{"q":["taladro","x\u0000"]}}`, "payload.q[1]"},
		"en clave":          {`{"eventType":"search","shopDomain":"acme.myshopify.com","payload":{"a\u0000":1}}`, "payload.a\x00"},
		"en campo de texto": {`{"eventType":"search","shopDomain":"acme.myshopify.com","pageUrl":"https://x\u0000"}`, "pageUrl"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			pub := &recordingPublisher{}
			_, err := ingest.NewService(pub, logger.Nop()).CollectEvent(context.Background(), decode[dto.CollectEventRequest](t, tc.body), ingest.Meta{})
			require.ErrorIs(t, err, domain.ErrInvalidInput)
			var verr *ingest.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tc.field, verr.Field)
			assert.Empty(t, pub.got)
		})
	}

	// un backslash literal seguido de u0000 es texto común
	pub := &recordingPublisher{}
	in := decode[dto.CollectEventRequest](t, `{"eventType":"search","shopDomain":"acme.myshopify.com","payload":{"q":"\\u0000"}}`)
	_, err := ingest.NewService(pub, logger.Nop()).CollectEvent(context.Background(), in, ingest.Meta{})
	require.NoError(t, err)
	assert.Len(t, pub.got, 1)
}

func TestCollectEvent_TimestampFuturoSeRecorta(t *testing.T) {
	pub := &recordingPublisher{}
	in := decode[dto.CollectEventRequest](t, `{"eventType":"page_view","shopDomain":"acme.myshopify.com","timestamp":"2999-01-01T00:00:00Z"}`)
	_, err := ingest.NewService(pub, logger.Nop()).CollectEvent(context.Background(), in, ingest.Meta{})
	require.NoError(t, err)
	env := pub.got[0]
	assert.Equal(t, env.ReceivedAt, env.Event.OccurredAt)
}

func TestEncolar_FalloDeColaNoEsDeValidacion(t *testing.T) {
	pub := &recordingPublisher{err: errors.New("redis caído")}
	in := decode[dto.CollectEventRequest](t, `{"eventType":"page_view","shopDomain":"acme.myshopify.com"}`)
	_, err := ingest.NewService(pub, logger.Nop()).CollectEvent(context.Background(), in, ingest.Meta{})
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrInvalidInput)
}
