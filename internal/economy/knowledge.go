package economy

import (
	"sort"

	"github.com/talgya/tradelanes/internal/galaxy"
)

// KnownPrices is the player's last-known view of one system's market.
type KnownPrices struct {
	LastVisit int        `json:"last_visit"` // Days since the prices were refreshed by a dock
	Prices    Table[int] `json:"prices"`
}

// Knowledge is the price knowledge store keyed by system id.
// The zero value is an empty store.
type Knowledge struct {
	entries map[int]*KnownPrices
}

// NewKnowledge returns an empty store.
func NewKnowledge() *Knowledge {
	return &Knowledge{entries: make(map[int]*KnownPrices)}
}

// Dock records a fresh visit: staleness resets to 0 and prices are requoted for day.
func (k *Knowledge) Dock(system galaxy.Star, day int, events []Event, ledger *Ledger) {
	k.Put(system.ID, KnownPrices{
		LastVisit: 0,
		Prices:    PricesFor(system, day, events, ledger),
	})
}

// Age adds days to the staleness of every known system.
func (k *Knowledge) Age(days int) {
	if k == nil {
		return
	}
	for _, e := range k.entries {
		e.LastVisit += days
	}
}

// Recompute requotes every known system for day without touching staleness.
func (k *Knowledge) Recompute(catalog *galaxy.Catalog, day int, events []Event, ledger *Ledger) {
	if k == nil {
		return
	}
	for id, e := range k.entries {
		e.Prices = PricesFor(catalog.Resolve(id), day, events, ledger)
	}
}

// Get returns the known prices for systemID. ok is false when the system was never docked at.
func (k *Knowledge) Get(systemID int) (KnownPrices, bool) {
	if k == nil {
		return KnownPrices{}, false
	}
	e, ok := k.entries[systemID]
	if !ok {
		return KnownPrices{}, false
	}
	return *e, true
}

// Put stores an entry directly. Used when restoring a save.
func (k *Knowledge) Put(systemID int, kp KnownPrices) {
	if k.entries == nil {
		k.entries = make(map[int]*KnownPrices)
	}
	k.entries[systemID] = &kp
}

// Systems returns every known system id, ascending.
func (k *Knowledge) Systems() []int {
	if k == nil {
		return nil
	}
	ids := make([]int, 0, len(k.entries))
	for id := range k.entries {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// Len returns the number of known systems.
func (k *Knowledge) Len() int {
	if k == nil {
		return 0
	}
	return len(k.entries)
}

// Clone returns a deep copy.
func (k *Knowledge) Clone() *Knowledge {
	out := NewKnowledge()
	if k == nil {
		return out
	}
	for id, e := range k.entries {
		cp := *e
		out.entries[id] = &cp
	}
	return out
}
