// Package cart contiene la lógica pura de reconciliación de carritos (servicios de dominio):
// normalización de token y precio, y cálculo de diferencias entre conjuntos de ítems.
package cart

import (
	"sort"

	"github.com/jhoicas/b2b-storefront-api/internal/domain/entity"
)

// ChangeKind tipo de cambio detectado para una variante.
type ChangeKind string

const (
	ChangeAdded   ChangeKind = "added"
	ChangeRemoved ChangeKind = "removed"
	ChangeUpdated ChangeKind = "updated"
)

// Change diferencia de una variante entre dos snapshots.
type Change struct {
	Kind        ChangeKind
	VariantID   int64
	Title       string
	OldQuantity int
	NewQuantity int
}

type line struct {
	title string
	qty   int
}

// aggregate agrupa por variante sumando cantidades (una variante puede venir en varias líneas).
func aggregate(items []*entity.CartItem) map[int64]line {
	out := make(map[int64]line, len(items))
	for _, it := range items {
		l := out[it.VariantID]
		if l.title == "" {
			l.title = it.Title
		}
		l.qty += it.Quantity
		out[it.VariantID] = l
	}
	return out
}

// Diff compara el snapshot previo con el nuevo, por VariantID.
//   - solo en nuevo → added
//   - solo en previo → removed
//   - en ambos con cantidad distinta → updated
//
// El resultado sale ordenado por (VariantID, Kind) para que el log sea determinista.
// Snapshots iguales producen un slice vacío.
func Diff(before, after []*entity.CartItem) []Change {
	old := aggregate(before)
	cur := aggregate(after)

	var changes []Change
	for id, n := range cur {
		o, ok := old[id]
		switch {
		case !ok:
			changes = append(changes, Change{Kind: ChangeAdded, VariantID: id, Title: n.title, NewQuantity: n.qty})
		case o.qty != n.qty:
			changes = append(changes, Change{Kind: ChangeUpdated, VariantID: id, Title: n.title, OldQuantity: o.qty, NewQuantity: n.qty})
		}
	}
	for id, o := range old {
		if _, ok := cur[id]; !ok {
			changes = append(changes, Change{Kind: ChangeRemoved, VariantID: id, Title: o.title, OldQuantity: o.qty})
		}
	}
	sort.Slice(changes, func(i, j int) bool {
		if changes[i].VariantID != changes[j].VariantID {
			return changes[i].VariantID < changes[j].VariantID
		}
		return changes[i].Kind < changes[j].Kind
	})
	return changes
}
