// Package economy provides the deterministic trade economy: price oracle,
// market ledger, event scheduler and price knowledge store.
package economy

import (
	"encoding/json"
	"fmt"
)

// Commodity is one of the fixed tradeable good types.
type Commodity uint8

const (
	Grain Commodity = iota
	Ore
	Tritium
	Parts
	Medicine
	Electronics

	NumCommodities = 6
)

var commodityNames = [NumCommodities]string{
	"grain", "ore", "tritium", "parts", "medicine", "electronics",
}

// basePrices in credits, indexed by Commodity.
var basePrices = [NumCommodities]float64{
	Grain:       12,
	Ore:         20,
	Tritium:     50,
	Parts:       30,
	Medicine:    40,
	Electronics: 35,
}

// Commodities returns every commodity in enum order.
func Commodities() []Commodity {
	all := make([]Commodity, NumCommodities)
	for i := range all {
		all[i] = Commodity(i)
	}
	return all
}

// Valid reports whether c is a known commodity.
func (c Commodity) Valid() bool {
	return int(c) < NumCommodities
}

func (c Commodity) String() string {
	if !c.Valid() {
		return fmt.Sprintf("commodity(%d)", uint8(c))
	}
	return commodityNames[c]
}

// BasePrice returns the base price of c, or 0 for an unknown commodity.
func (c Commodity) BasePrice() float64 {
	if !c.Valid() {
		return 0
	}
	return basePrices[c]
}

// ParseCommodity resolves a commodity by its lowercase name.
func ParseCommodity(name string) (Commodity, bool) {
	for i, n := range commodityNames {
		if n == name {
			return Commodity(i), true
		}
	}
	return 0, false
}

// Table is a fixed-size per-commodity store where every slot may be absent.
// The zero value is an empty table.
type Table[T any] struct {
	vals [NumCommodities]T
	set  [NumCommodities]bool
}

// Get returns the value for c and whether it is present.
func (t *Table[T]) Get(c Commodity) (T, bool) {
	var zero T
	if !c.Valid() || !t.set[c] {
		return zero, false
	}
	return t.vals[c], true
}

// Set stores v for c. Unknown commodities are ignored.
func (t *Table[T]) Set(c Commodity, v T) {
	if !c.Valid() {
		return
	}
	t.vals[c] = v
	t.set[c] = true
}

// Delete removes the entry for c.
func (t *Table[T]) Delete(c Commodity) {
	if !c.Valid() {
		return
	}
	var zero T
	t.vals[c] = zero
	t.set[c] = false
}

// Has reports whether c is present.
func (t *Table[T]) Has(c Commodity) bool {
	return c.Valid() && t.set[c]
}

// Len returns the number of present entries.
func (t *Table[T]) Len() int {
	n := 0
	for _, ok := range t.set {
		if ok {
			n++
		}
	}
	return n
}

// Each calls fn for every present entry in commodity order.
func (t *Table[T]) Each(fn func(c Commodity, v T)) {
	for i, ok := range t.set {
		if ok {
			fn(Commodity(i), t.vals[i])
		}
	}
}

// MarshalJSON encodes the present entries as an object keyed by commodity name.
func (t Table[T]) MarshalJSON() ([]byte, error) {
	m := make(map[string]T, NumCommodities)
	for i, ok := range t.set {
		if ok {
			m[commodityNames[i]] = t.vals[i]
		}
	}
	return json.Marshal(m)
}

// UnmarshalJSON decodes an object keyed by commodity name. Unknown names are an error.
func (t *Table[T]) UnmarshalJSON(data []byte) error {
	var m map[string]T
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	*t = Table[T]{}
	for name, v := range m {
		c, ok := ParseCommodity(name)
		if !ok {
			return fmt.Errorf("%w: %q", ErrUnknownCommodity, name)
		}
		t.Set(c, v)
	}
	return nil
}
