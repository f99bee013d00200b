package cart

import "github.com/shopspring/decimal"

// PriceUnit indica en qué unidad llega un precio.
type PriceUnit string

const (
	PriceUnitMinor   PriceUnit = "minor" // centavos
	PriceUnitMajor   PriceUnit = "major" // unidades de la moneda
	PriceUnitUnknown PriceUnit = ""      // payload legado sin unidad
)

// DefaultMinorUnitThreshold umbral de la heurística legada: por encima se asume centavos.
const DefaultMinorUnitThreshold = 1000

var hundred = decimal.NewFromInt(100)

// Topes de montos crudos, por debajo de unit_price NUMERIC(14,4) y subtotal/total NUMERIC(14,2).
// Valen para cualquier unidad: normalizar nunca agranda el valor.
var (
	MaxUnitPrice = decimal.New(1, 9)
	MaxAmount    = decimal.New(1, 11)
)

// Valid informa si la unidad es una de las conocidas (incluida la desconocida).
func (u PriceUnit) Valid() bool {
	switch u {
	case PriceUnitMinor, PriceUnitMajor, PriceUnitUnknown:
		return true
	}
	return false
}

// NormalizePrice devuelve el precio en unidades mayores.
// Con unidad explícita no hay ambigüedad. Sin unidad se aplica la heurística legada
// (precio > threshold ⇒ centavos) y inferred=true para dejar rastro en el carrito.
func NormalizePrice(price decimal.Decimal, unit PriceUnit, threshold decimal.Decimal) (normalized decimal.Decimal, inferred bool) {
	switch unit {
	case PriceUnitMinor:
		return price.Div(hundred), false
	case PriceUnitMajor:
		return price, false
	}
	if price.GreaterThan(threshold) {
		return price.Div(hundred), true
	}
	return price, true
}
