package economy

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/talgya/tradelanes/internal/galaxy"
)

// EventType identifies a kind of economic event.
type EventType string

const (
	EventMiningStrike     EventType = "mining_strike"
	EventMedicalEmergency EventType = "medical_emergency"
	EventFestival         EventType = "festival"
	EventSupplyGlut       EventType = "supply_glut"
)

// CoreSystems are the ids that host public celebrations (Sol, Alpha Centauri A).
var CoreSystems = map[int]bool{0: true, 1: true}

// MiningClasses are the spectral class letters whose systems support mining.
var MiningClasses = map[string]bool{"K": true, "M": true, "L": true}

// Source is the seeded pseudo-random source behind every scheduler roll.
// *math/rand.Rand satisfies it.
type Source interface {
	Float64() float64
	Intn(n int) int
	Read(p []byte) (int, error)
}

// EventDefinition declares how an event type behaves.
type EventDefinition struct {
	Type        EventType
	Name        string
	Probability float64 // Chance per eligible, event-free system per day-advance
	MinDuration int     // Days, inclusive
	MaxDuration int     // Days, inclusive
	Modifiers   Table[float64]

	// RandomGood, when set, adds one sampled commodity at RandomModifier.
	RandomGood     bool
	RandomModifier float64

	Eligible func(galaxy.Star) bool
}

func everywhere(galaxy.Star) bool { return true }

func miningCapable(s galaxy.Star) bool {
	return MiningClasses[strings.ToUpper(s.Class())]
}

func coreSystem(s galaxy.Star) bool {
	return CoreSystems[s.ID]
}

func modifiers(pairs map[Commodity]float64) Table[float64] {
	var t Table[float64]
	for c, m := range pairs {
		t.Set(c, m)
	}
	return t
}

// eventDefinitions is evaluated in order; the first type to trigger wins.
var eventDefinitions = []EventDefinition{
	{
		Type:        EventMiningStrike,
		Name:        "Mining Strike",
		Probability: 0.05,
		MinDuration: 5,
		MaxDuration: 10,
		Modifiers:   modifiers(map[Commodity]float64{Ore: 1.5, Tritium: 1.3}),
		Eligible:    miningCapable,
	},
	{
		Type:        EventMedicalEmergency,
		Name:        "Medical Emergency",
		Probability: 0.03,
		MinDuration: 3,
		MaxDuration: 7,
		Modifiers:   modifiers(map[Commodity]float64{Medicine: 2.0, Grain: 0.9}),
		Eligible:    everywhere,
	},
	{
		Type:        EventFestival,
		Name:        "Festival",
		Probability: 0.10,
		MinDuration: 2,
		MaxDuration: 4,
		Modifiers:   modifiers(map[Commodity]float64{Grain: 1.2, Electronics: 1.3}),
		Eligible:    coreSystem,
	},
	{
		Type:           EventSupplyGlut,
		Name:           "Supply Glut",
		Probability:    0.04,
		MinDuration:    4,
		MaxDuration:    8,
		RandomGood:     true,
		RandomModifier: 0.6,
		Eligible:       everywhere,
	},
}

// EventDefinitions returns the declared event types in evaluation order.
func EventDefinitions() []EventDefinition {
	return eventDefinitions
}

// Definition returns the declaration for t.
func Definition(t EventType) (EventDefinition, bool) {
	for _, d := range eventDefinitions {
		if d.Type == t {
			return d, true
		}
	}
	return EventDefinition{}, false
}

// CanOccur reports whether an event of type t may be scheduled at system.
// Unknown types are never eligible.
func CanOccur(t EventType, system galaxy.Star) bool {
	d, ok := Definition(t)
	if !ok || d.Eligible == nil {
		return false
	}
	return d.Eligible(system)
}

// Event is an active, time-boxed price modifier scoped to one system.
// It is self-contained once created.
type Event struct {
	ID        string         `json:"id"`
	Type      EventType      `json:"type"`
	SystemID  int            `json:"system_id"`
	StartDay  int            `json:"start_day"`
	EndDay    int            `json:"end_day"`
	Modifiers Table[float64] `json:"modifiers"`
}

// Modifier returns the multiplier for good, defaulting to 1.0 when unlisted.
func (e *Event) Modifier(good Commodity) float64 {
	if m, ok := e.Modifiers.Get(good); ok {
		return m
	}
	return 1.0
}

// Expired reports whether the event has ended as of day.
func (e *Event) Expired(day int) bool {
	return day >= e.EndDay
}

// Remaining returns the days left before expiry, never negative.
func (e *Event) Remaining(day int) int {
	if e.Expired(day) {
		return 0
	}
	return e.EndDay - day
}

// Name returns the display name of the event type.
func (e *Event) Name() string {
	if d, ok := Definition(e.Type); ok {
		return d.Name
	}
	return string(e.Type)
}

// UpdateEvents expires finished events and rolls new ones for event-free systems.
//
// Unexpired events carry forward unchanged. Each catalog system without an
// active event evaluates the event types in declaration order; the first type
// that is eligible and whose roll succeeds is created. The result never holds
// two events for the same system.
func UpdateEvents(events []Event, day int, catalog *galaxy.Catalog, src Source) []Event {
	next := make([]Event, 0, len(events))
	occupied := make(map[int]bool, len(events))

	for _, e := range events {
		if e.Expired(day) || occupied[e.SystemID] {
			continue
		}
		occupied[e.SystemID] = true
		next = append(next, e)
	}

	if src == nil {
		return next
	}

	for _, star := range catalog.Stars() {
		if occupied[star.ID] {
			continue
		}
		for _, def := range eventDefinitions {
			if def.Eligible == nil || !def.Eligible(star) {
				continue
			}
			if src.Float64() >= def.Probability {
				continue
			}
			next = append(next, newEvent(def, star.ID, day, src))
			occupied[star.ID] = true
			break
		}
	}

	return next
}

// newEvent samples duration and modifiers for a triggered definition.
func newEvent(def EventDefinition, systemID, day int, src Source) Event {
	duration := def.MinDuration
	if span := def.MaxDuration - def.MinDuration; span > 0 {
		duration += src.Intn(span + 1)
	}
	if duration < 1 {
		duration = 1
	}

	mods := def.Modifiers
	if def.RandomGood {
		mods.Set(Commodity(src.Intn(NumCommodities)), def.RandomModifier)
	}

	return Event{
		ID:        eventID(src, def.Type, systemID, day),
		Type:      def.Type,
		SystemID:  systemID,
		StartDay:  day,
		EndDay:    day + duration,
		Modifiers: mods,
	}
}

// eventID draws a UUID from the seeded source so replays reproduce ids.
func eventID(src Source, t EventType, systemID, day int) string {
	id, err := uuid.NewRandomFromReader(src)
	if err != nil {
		return fmt.Sprintf("%s-%d-%d", t, systemID, day)
	}
	return id.String()
}
