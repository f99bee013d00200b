// Package provider contiene tipos compartidos para datos que llegan del proveedor de comercio
// (variantes, productos, clientes). Los identificadores del proveedor llegan como strings
// numéricos de precisión arbitraria o como global IDs ("gid://shopify/ProductVariant/123").
package provider

import (
	"errors"
	"strconv"
	"strings"
)

// ErrInvalidID se devuelve cuando un identificador no puede representarse como ID.
var ErrInvalidID = errors.New("identificador de proveedor inválido")

// ID identificador numérico del proveedor, acotado a uint64. El cero no es un ID válido.
type ID uint64

// ParseID convierte un identificador crudo en ID.
//
// Acepta:
//   - string decimal: "44012345678901"
//   - número JSON sin comillas (el raw token tal cual)
//   - global ID: "gid://shopify/ProductVariant/44012345678901"
//
// Rechaza vacío, negativos, no numéricos, cero, decimales y valores que desbordan uint64.
// El llamador decide la política ante el error (en carritos: saltar la línea y continuar).
func ParseID(raw string) (ID, error) {
	s := strings.TrimSpace(raw)
	s = strings.Trim(s, `"`)
	if strings.HasPrefix(s, "gid://") {
		idx := strings.LastIndex(s, "/")
		s = s[idx+1:]
		// los gid pueden traer query (?key=...) en line items con propiedades
		if q := strings.IndexByte(s, '?'); q >= 0 {
			s = s[:q]
		}
	}
	if s == "" {
		return 0, ErrInvalidID
	}
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil || n == 0 {
		return 0, ErrInvalidID
	}
	return ID(n), nil
}

// String devuelve la representación decimal.
func (id ID) String() string {
	return strconv.FormatUint(uint64(id), 10)
}

// Int64 devuelve el valor para columnas BIGINT. Los IDs mayores a MaxInt64 no caben en
// Postgres BIGINT, por eso ParseInt64ID existe para el camino de persistencia.
func (id ID) Int64() int64 {
	return int64(id)
}

// ParseInt64ID igual que ParseID pero exige que el valor quepa en BIGINT (int64).
func ParseInt64ID(raw string) (ID, error) {
	id, err := ParseID(raw)
	if err != nil {
		return 0, err
	}
	if uint64(id) > 1<<63-1 {
		return 0, ErrInvalidID
	}
	return id, nil
}
