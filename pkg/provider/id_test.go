package provider_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/b2b-storefront-api/pkg/provider"
)

func TestParseID_Valores(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want provider.ID
		ok   bool
	}{
		{"decimal", "44012345678901", 44012345678901, true},
		{"con espacios", "  42 ", 42, true},
		{"gid variante", "gid://shopify/ProductVariant/123", 123, true},
		{"gid con query", "gid://shopify/CartLine/99?cart=abc", 99, true},
		{"vacío", "", 0, false},
		{"cero", "0", 0, false},
		{"negativo", "-5", 0, false},
		{"texto", "abc", 0, false},
		{"decimal con punto", "12.5", 0, false},
		{"desborda uint64", "184467440737095516160", 0, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := provider.ParseID(tc.raw)
			if !tc.ok {
				assert.ErrorIs(t, err, provider.ErrInvalidID)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestParseInt64ID_RechazaFueraDeBigint(t *testing.T) {
	_, err := provider.ParseInt64ID("18446744073709551615")
	assert.ErrorIs(t, err, provider.ErrInvalidID)

	id, err := provider.ParseInt64ID("9223372036854775807")
	require.NoError(t, err)
	assert.Equal(t, int64(9223372036854775807), id.Int64())
}

func TestRawID_UnmarshalNoFalla(t *testing.T) {
	var item struct {
		A provider.RawID `json:"a"`
		B provider.RawID `json:"b"`
		C provider.RawID `json:"c"`
		D provider.RawID `json:"d"`
	}
	err := json.Unmarshal([]byte(`{"a":"123","b":456,"c":null,"d":{"x":1}}`), &item)
	require.NoError(t, err, "un id raro no debe romper el payload completo")

	id, err := item.A.Parse()
	require.NoError(t, err)
	assert.Equal(t, "123", id.String())

	id, err = item.B.Parse()
	require.NoError(t, err)
	assert.Equal(t, provider.ID(456), id)

	_, err = item.C.Parse()
	assert.Error(t, err)
	_, err = item.D.Parse()
	assert.Error(t, err)
}
