package economy

import (
	"fmt"
	"math"

	"github.com/talgya/tradelanes/internal/galaxy"
)

// State is the session-scoped economy aggregate. It is mutated only through
// its methods and owned by exactly one game session.
type State struct {
	Ledger    *Ledger
	Events    []Event
	Knowledge *Knowledge
}

// NewState returns an empty economy.
func NewState() *State {
	return &State{
		Ledger:    NewLedger(),
		Events:    []Event{},
		Knowledge: NewKnowledge(),
	}
}

// Normalize lazily initializes any part missing from a restored or partial state.
func (s *State) Normalize() {
	if s.Ledger == nil {
		s.Ledger = NewLedger()
	}
	if s.Events == nil {
		s.Events = []Event{}
	}
	if s.Knowledge == nil {
		s.Knowledge = NewKnowledge()
	}
}

// Clone returns a deep copy suitable for autosave or readers.
func (s *State) Clone() *State {
	events := make([]Event, len(s.Events))
	copy(events, s.Events)
	return &State{
		Ledger:    s.Ledger.Clone(),
		Events:    events,
		Knowledge: s.Knowledge.Clone(),
	}
}

// Quote prices one commodity at system on day against the current state.
func (s *State) Quote(good Commodity, system galaxy.Star, day int) int {
	return CalculatePrice(good, system, day, s.Events, s.Ledger)
}

// Dock refreshes the price knowledge for system at day.
func (s *State) Dock(system galaxy.Star, day int) {
	s.Normalize()
	s.Knowledge.Dock(system, day, s.Events, s.Ledger)
}

// RecordTrade applies a completed trade to the ledger. Sales pass a positive
// quantity, purchases a negative one.
func (s *State) RecordTrade(systemID int, good Commodity, quantity float64) error {
	s.Normalize()
	return s.Ledger.Update(systemID, good, quantity)
}

// AdvanceReport describes what a time advance changed.
type AdvanceReport struct {
	Day     int     // Day after the advance
	Started []Event // Events created by this advance
	Expired []Event // Events dropped by this advance
}

// Advance moves the economy forward by days from day. The sub-steps run in a
// fixed order: staleness increment, event expiry/creation, ledger decay, then
// a price recompute of every known system against the post-advance events
// and ledger. The scheduler rolls once, for the arrival day.
func (s *State) Advance(catalog *galaxy.Catalog, day, days int, src Source) (AdvanceReport, error) {
	if days <= 0 {
		return AdvanceReport{Day: day}, fmt.Errorf("%w: %d", ErrInvalidDays, days)
	}
	s.Normalize()
	newDay := day + days

	s.Knowledge.Age(days)

	prev := s.Events
	before := make(map[string]bool, len(prev))
	for _, e := range prev {
		before[e.ID] = true
	}
	s.Events = UpdateEvents(s.Events, newDay, catalog, src)

	report := AdvanceReport{Day: newDay}
	after := make(map[string]bool, len(s.Events))
	for _, e := range s.Events {
		after[e.ID] = true
		if !before[e.ID] {
			report.Started = append(report.Started, e)
		}
	}
	for _, e := range prev {
		if !after[e.ID] {
			report.Expired = append(report.Expired, e)
		}
	}

	s.Ledger.Recover(days)

	s.Knowledge.Recompute(catalog, newDay, s.Events, s.Ledger)

	return report, nil
}

// EventAt returns the active event at systemID, if any.
func (s *State) EventAt(systemID int) (Event, bool) {
	for _, e := range s.Events {
		if e.SystemID == systemID {
			return e, true
		}
	}
	return Event{}, false
}

// Validate reports structural problems in a restored state.
func (s *State) Validate() error {
	var bad error
	s.Ledger.Each(func(id int, c Commodity, v float64) {
		if bad == nil && (math.IsNaN(v) || math.IsInf(v, 0)) {
			bad = fmt.Errorf("%w: ledger %d/%s is %v", ErrCorruptState, id, c, v)
		}
	})
	if bad != nil {
		return bad
	}

	seen := make(map[int]bool, len(s.Events))
	for _, e := range s.Events {
		if e.EndDay <= e.StartDay {
			return fmt.Errorf("%w: event %s ends on day %d, starts on day %d", ErrCorruptState, e.ID, e.EndDay, e.StartDay)
		}
		if seen[e.SystemID] {
			return fmt.Errorf("%w: two events at system %d", ErrCorruptState, e.SystemID)
		}
		seen[e.SystemID] = true
		d, ok := Definition(e.Type)
		if !ok {
			return fmt.Errorf("%w: event %s has unknown type %q", ErrCorruptState, e.ID, e.Type)
		}
		if dur := e.EndDay - e.StartDay; dur < d.MinDuration || dur > d.MaxDuration {
			return fmt.Errorf("%w: event %s lasts %d days", ErrCorruptState, e.ID, dur)
		}
		e.Modifiers.Each(func(c Commodity, m float64) {
			if bad == nil && (math.IsNaN(m) || math.IsInf(m, 0) || m <= 0) {
				bad = fmt.Errorf("%w: event %s modifier for %s is %v", ErrCorruptState, e.ID, c, m)
			}
		})
		if bad != nil {
			return bad
		}
	}

	for _, id := range s.Knowledge.Systems() {
		kp, _ := s.Knowledge.Get(id)
		if kp.LastVisit < 0 {
			return fmt.Errorf("%w: knowledge for %d has negative staleness", ErrCorruptState, id)
		}
	}
	return nil
}
