package economy

import (
	"math"
	"sort"
)

// Ledger tuning.
const (
	DecayRate      = 0.90 // Fraction of net quantity that survives each day
	PruneThreshold = 1.0  // Entries with smaller magnitude are deleted on recovery
)

// Ledger is the per-system, per-commodity running net trade quantity.
// Positive values are cumulative surplus (player sold), negative values are
// cumulative shortage (player bought). The zero value is an empty ledger.
type Ledger struct {
	systems map[int]*Table[float64]
}

// NewLedger returns an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{systems: make(map[int]*Table[float64])}
}

// Update adds delta to the entry for (systemID, good), creating it if absent.
// Non-finite deltas, and deltas that would overflow the entry, are rejected
// and leave the ledger untouched.
func (l *Ledger) Update(systemID int, good Commodity, delta float64) error {
	if math.IsNaN(delta) || math.IsInf(delta, 0) {
		return ErrInvalidQuantity
	}
	if !good.Valid() {
		return ErrUnknownCommodity
	}
	if delta == 0 {
		return nil
	}
	cur, _ := l.Entry(systemID, good)
	next := cur + delta
	if math.IsInf(next, 0) {
		return ErrInvalidQuantity
	}
	l.set(systemID, good, next)
	return nil
}

// Restore sets the entry for (systemID, good) to net exactly, including 0.
// It is meant for rebuilding a saved ledger.
func (l *Ledger) Restore(systemID int, good Commodity, net float64) error {
	if math.IsNaN(net) || math.IsInf(net, 0) {
		return ErrInvalidQuantity
	}
	if !good.Valid() {
		return ErrUnknownCommodity
	}
	l.set(systemID, good, net)
	return nil
}

func (l *Ledger) set(systemID int, good Commodity, v float64) {
	if l.systems == nil {
		l.systems = make(map[int]*Table[float64])
	}
	t, ok := l.systems[systemID]
	if !ok {
		t = &Table[float64]{}
		l.systems[systemID] = t
	}
	t.Set(good, v)
}

// Recover decays every entry by DecayRate^days, then prunes entries whose
// magnitude fell below PruneThreshold and systems left without entries.
// Negative days are treated as 0, which makes this a pruning-only pass.
func (l *Ledger) Recover(days int) {
	if l == nil || len(l.systems) == 0 {
		return
	}
	if days < 0 {
		days = 0
	}
	factor := math.Pow(DecayRate, float64(days))

	for id, t := range l.systems {
		for _, c := range Commodities() {
			v, ok := t.Get(c)
			if !ok {
				continue
			}
			v *= factor
			if math.Abs(v) < PruneThreshold {
				t.Delete(c)
				continue
			}
			t.Set(c, v)
		}
		if t.Len() == 0 {
			delete(l.systems, id)
		}
	}
}

// Net returns the net quantity for (systemID, good), or 0 when absent.
func (l *Ledger) Net(systemID int, good Commodity) float64 {
	v, _ := l.Entry(systemID, good)
	return v
}

// Entry returns the net quantity for (systemID, good) and whether it exists.
func (l *Ledger) Entry(systemID int, good Commodity) (float64, bool) {
	if l == nil {
		return 0, false
	}
	t, ok := l.systems[systemID]
	if !ok {
		return 0, false
	}
	return t.Get(good)
}

// System returns a copy of the entries for one system.
func (l *Ledger) System(systemID int) (Table[float64], bool) {
	if l == nil {
		return Table[float64]{}, false
	}
	t, ok := l.systems[systemID]
	if !ok {
		return Table[float64]{}, false
	}
	return *t, true
}

// Systems returns the ids with at least one entry, ascending.
func (l *Ledger) Systems() []int {
	if l == nil {
		return nil
	}
	ids := make([]int, 0, len(l.systems))
	for id := range l.systems {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// Len returns the total number of (system, commodity) entries.
func (l *Ledger) Len() int {
	if l == nil {
		return 0
	}
	n := 0
	for _, t := range l.systems {
		n += t.Len()
	}
	return n
}

// Each visits every entry ordered by system id, then commodity.
func (l *Ledger) Each(fn func(systemID int, good Commodity, net float64)) {
	for _, id := range l.Systems() {
		l.systems[id].Each(func(c Commodity, v float64) {
			fn(id, c, v)
		})
	}
}

// Clone returns a deep copy.
func (l *Ledger) Clone() *Ledger {
	out := NewLedger()
	if l == nil {
		return out
	}
	for id, t := range l.systems {
		cp := *t
		out.systems[id] = &cp
	}
	return out
}
