// Session ties the economy, the star catalog and the player's ship together.
package engine

import (
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"

	"github.com/talgya/tradelanes/internal/economy"
	"github.com/talgya/tradelanes/internal/galaxy"
	"github.com/talgya/tradelanes/internal/metrics"
	"github.com/talgya/tradelanes/internal/trade"
)

// MaxLogEvents bounds the notable-occurrence log.
const MaxLogEvents = 1000

// ErrUnknownSystem is returned when docking at a system missing from the catalog.
var ErrUnknownSystem = errors.New("unknown system")

// Event is a notable occurrence in the session.
type Event struct {
	Day         int    `json:"day" db:"day"`
	Description string `json:"description" db:"description"`
	Category    string `json:"category" db:"category"` // "dock", "trade", "event", "advance"
}

// DayReport summarizes one time advance for observers.
type DayReport struct {
	Day          int             `json:"day"`
	Label        string          `json:"label"`
	Started      []economy.Event `json:"started"`
	Expired      []economy.Event `json:"expired"`
	ActiveEvents int             `json:"active_events"`
	LedgerSize   int             `json:"ledger_entries"`
	KnownSystems int             `json:"known_systems"`
}

// Snapshot is a deep copy of everything a save needs.
type Snapshot struct {
	Day     int
	Seed    int64
	Economy *economy.State
	Ship    *trade.Ship
	Log     []Event
}

// Session owns one game's economy. Every mutation is one atomic transition:
// the mutex only serializes the HTTP control plane and autosave against the
// engine loop, it never interleaves sub-steps.
type Session struct {
	mu sync.Mutex

	catalog *galaxy.Catalog
	state   *economy.State
	ship    *trade.Ship
	day     int
	seed    int64
	log     []Event

	Metrics  *metrics.Economy
	OnReport func(DayReport) // Called after every advance, outside the lock
}

// NewSession starts a fresh game at day 0 with the ship docked at its location.
func NewSession(catalog *galaxy.Catalog, seed int64, ship *trade.Ship) *Session {
	s := &Session{
		catalog: catalog,
		state:   economy.NewState(),
		ship:    ship,
		seed:    seed,
	}
	s.state.Dock(catalog.Resolve(ship.Location), 0)
	return s
}

// RestoreSession rebuilds a session from a saved snapshot.
func RestoreSession(catalog *galaxy.Catalog, snap Snapshot) *Session {
	st := snap.Economy
	if st == nil {
		st = economy.NewState()
	}
	st.Normalize()
	ship := snap.Ship
	if ship == nil {
		ship = trade.NewShip(0, 0, 0)
	}
	return &Session{
		catalog: catalog,
		state:   st,
		ship:    ship,
		day:     snap.Day,
		seed:    snap.Seed,
		log:     snap.Log,
	}
}

// DaySource returns the seeded scheduler source for a given arrival day.
// Deriving it from (seed, day) keeps replays identical across save/load.
func DaySource(seed int64, day int) *rand.Rand {
	mixed := uint64(seed) ^ (uint64(day)+1)*0x9E3779B97F4A7C15
	return rand.New(rand.NewSource(int64(mixed)))
}

// Day returns the current game day.
func (s *Session) Day() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.day
}

// Catalog returns the star catalog.
func (s *Session) Catalog() *galaxy.Catalog {
	return s.catalog
}

// Dock moves the ship to systemID and refreshes its price knowledge.
func (s *Session) Dock(systemID int) error {
	star, ok := s.catalog.Lookup(systemID)
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownSystem, systemID)
	}

	s.mu.Lock()
	s.ship.Location = systemID
	s.state.Dock(star, s.day)
	s.record("dock", fmt.Sprintf("Docked at %s", star.Name))
	s.Metrics.ObserveState(s.day, s.state)
	day := s.day
	s.mu.Unlock()

	slog.Debug("docked", "system", star.Name, "day", day)
	return nil
}

// AdvanceDays runs one time advance of n days.
func (s *Session) AdvanceDays(n int) (DayReport, error) {
	s.mu.Lock()
	src := DaySource(s.seed, s.day+n)
	res, err := s.state.Advance(s.catalog, s.day, n, src)
	if err != nil {
		s.mu.Unlock()
		return DayReport{}, err
	}
	s.day = res.Day

	for _, e := range res.Started {
		star := s.catalog.Resolve(e.SystemID)
		s.record("event", fmt.Sprintf("%s begins at %s (until day %d)", e.Name(), star.Name, e.EndDay))
		s.Metrics.ObserveEventStarted(e.Type)
	}
	for _, e := range res.Expired {
		star := s.catalog.Resolve(e.SystemID)
		s.record("event", fmt.Sprintf("%s at %s has ended", e.Name(), star.Name))
	}
	s.Metrics.ObserveState(s.day, s.state)

	report := DayReport{
		Day:          s.day,
		Label:        DayLabel(s.day),
		Started:      res.Started,
		Expired:      res.Expired,
		ActiveEvents: len(s.state.Events),
		LedgerSize:   s.state.Ledger.Len(),
		KnownSystems: s.state.Knowledge.Len(),
	}
	onReport := s.OnReport
	s.mu.Unlock()

	slog.Info("day advanced",
		"day", report.Day,
		"date", report.Label,
		"started", len(report.Started),
		"expired", len(report.Expired),
		"active_events", report.ActiveEvents,
		"ledger_entries", report.LedgerSize,
	)
	if onReport != nil {
		onReport(report)
	}
	return report, nil
}

// Buy purchases at the ship's current system.
func (s *Session) Buy(good economy.Commodity, qty int) (trade.Receipt, error) {
	return s.execute(trade.SideBuy, good, qty)
}

// Sell sells at the ship's current system.
func (s *Session) Sell(good economy.Commodity, qty int) (trade.Receipt, error) {
	return s.execute(trade.SideSell, good, qty)
}

func (s *Session) execute(side trade.Side, good economy.Commodity, qty int) (trade.Receipt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	star := s.catalog.Resolve(s.ship.Location)
	var (
		r   trade.Receipt
		err error
	)
	switch side {
	case trade.SideBuy:
		r, err = trade.Buy(s.state, s.ship, star, s.day, good, qty)
	default:
		r, err = trade.Sell(s.state, s.ship, star, s.day, good, qty)
	}
	if err != nil {
		return r, err
	}

	s.record("trade", fmt.Sprintf("%s at %s", r, star.Name))
	s.Metrics.ObserveTrade(string(side), good, qty)
	s.Metrics.ObserveState(s.day, s.state)
	return r, nil
}

// Quote returns the live price of good at systemID for the current day.
// Uncharted systems are priced with the catalog fallback.
func (s *Session) Quote(systemID int, good economy.Commodity) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Quote(good, s.catalog.Resolve(systemID), s.day)
}

// QuoteAll returns live prices for every commodity at systemID.
func (s *Session) QuoteAll(systemID int) economy.Table[int] {
	s.mu.Lock()
	defer s.mu.Unlock()
	return economy.PricesFor(s.catalog.Resolve(systemID), s.day, s.state.Events, s.state.Ledger)
}

// KnownPrices returns the player's price knowledge for systemID.
func (s *Session) KnownPrices(systemID int) (economy.KnownPrices, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Knowledge.Get(systemID)
}

// ActiveEvents returns a copy of the active event list.
func (s *Session) ActiveEvents() []economy.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]economy.Event, len(s.state.Events))
	copy(out, s.state.Events)
	return out
}

// Ship returns a copy of the player's ship.
func (s *Session) Ship() *trade.Ship {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ship.Clone()
}

// RecentLog returns up to limit of the newest log entries, newest first.
func (s *Session) RecentLog(limit int) []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	if limit <= 0 || limit > len(s.log) {
		limit = len(s.log)
	}
	out := make([]Event, 0, limit)
	for i := len(s.log) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, s.log[i])
	}
	return out
}

// Snapshot returns a deep copy of the session for persistence or readers.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	log := make([]Event, len(s.log))
	copy(log, s.log)
	return Snapshot{
		Day:     s.day,
		Seed:    s.seed,
		Economy: s.state.Clone(),
		Ship:    s.ship.Clone(),
		Log:     log,
	}
}

// record appends to the log. Caller must hold mu.
func (s *Session) record(category, description string) {
	s.log = append(s.log, Event{Day: s.day, Description: description, Category: category})
	if len(s.log) > MaxLogEvents {
		s.log = s.log[len(s.log)-MaxLogEvents:]
	}
}
