package envelope_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/b2b-storefront-api/internal/domain/envelope"
)

func validCartEnvelope() *envelope.Envelope {
	return &envelope.Envelope{
		ID:         "job-1",
		Kind:       envelope.KindCartTrack,
		ShopDomain: "acme.myshopify.com",
		ReceivedAt: time.Now(),
		Cart: &envelope.CartSnapshot{
			CartToken: "tok-1",
			Lines: []envelope.CartLine{
				{VariantID: "11", Title: "Tornillo", Quantity: 2, Price: decimal.NewFromInt(10)},
			},
		},
	}
}

func TestValidate_CartValido(t *testing.T) {
	assert.NoError(t, validCartEnvelope().Validate())
}

func TestValidate_RechazaCuerposCruzados(t *testing.T) {
	env := validCartEnvelope()
	env.Event = &envelope.EventPayload{EventType: envelope.EventPageView}
	assert.Error(t, env.Validate())

	env = validCartEnvelope()
	env.Kind = envelope.KindEvent
	assert.Error(t, env.Validate(), "kind event sin cuerpo event")
}

func TestValidate_CantidadNegativa(t *testing.T) {
	env := validCartEnvelope()
	env.Cart.Lines[0].Quantity = -1
	assert.Error(t, env.Validate())
}

func TestValidate_EventoDesconocido(t *testing.T) {
	env := &envelope.Envelope{
		ID: "job-2", Kind: envelope.KindEvent, ShopDomain: "acme.myshopify.com",
		Event: &envelope.EventPayload{EventType: "teleport"},
	}
	assert.Error(t, env.Validate())
	env.Event.EventType = envelope.EventProductView
	assert.NoError(t, env.Validate())
}

func TestEnvelope_JSONIdaYVuelta(t *testing.T) {
	env := validCartEnvelope()
	raw, err := json.Marshal(env)
	require.NoError(t, err)

	var back envelope.Envelope
	require.NoError(t, json.Unmarshal(raw, &back))
	assert.Equal(t, envelope.KindCartTrack, back.Kind)
	require.Len(t, back.Cart.Lines, 1)
	assert.Equal(t, "11", string(back.Cart.Lines[0].VariantID))
	assert.True(t, back.Cart.Lines[0].Price.Equal(decimal.NewFromInt(10)))
	assert.Equal(t, "acme.myshopify.com:tok-1", back.CartKey())
}
