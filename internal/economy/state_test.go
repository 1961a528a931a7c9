package economy

import (
	"encoding/json"
	"errors"
	"math"
	"testing"

	"github.com/talgya/tradelanes/internal/galaxy"
)

func TestDockTwiceFreshGame(t *testing.T) {
	cat := galaxy.CoreCatalog()
	sol, _ := cat.Lookup(0)
	s := NewState()

	s.Dock(sol, 0)
	first, ok := s.Knowledge.Get(0)
	if !ok {
		t.Fatal("no knowledge after first dock")
	}
	s.Dock(sol, 0)
	second, _ := s.Knowledge.Get(0)

	if first.LastVisit != 0 || second.LastVisit != 0 {
		t.Errorf("LastVisit = %d, %d, want 0, 0", first.LastVisit, second.LastVisit)
	}
	for _, c := range Commodities() {
		direct := CalculatePrice(c, sol, 0, nil, nil)
		p1, _ := first.Prices.Get(c)
		p2, _ := second.Prices.Get(c)
		if p1 != direct || p2 != direct {
			t.Errorf("%s: docked prices %d, %d, oracle %d", c, p1, p2, direct)
		}
	}
}

func TestKnowledgeMissingSystem(t *testing.T) {
	s := NewState()
	if _, ok := s.Knowledge.Get(3); ok {
		t.Error("never-docked system should report no knowledge")
	}

	var k *Knowledge
	if _, ok := k.Get(3); ok {
		t.Error("nil store should report no knowledge")
	}
}

func TestAdvanceAgesAndRecomputes(t *testing.T) {
	cat := galaxy.CoreCatalog()
	s := NewState()
	s.Dock(cat.Resolve(0), 0)
	s.Advance(cat, 0, 2, neverTrigger)
	s.Dock(cat.Resolve(2), 2)
	s.Dock(cat.Resolve(77), 2) // uncharted

	if _, err := s.Advance(cat, 2, 5, neverTrigger); err != nil {
		t.Fatalf("Advance: %v", err)
	}

	tests := []struct {
		system    int
		lastVisit int
	}{
		{0, 7},
		{2, 5},
		{77, 5},
	}
	for _, tt := range tests {
		kp, ok := s.Knowledge.Get(tt.system)
		if !ok {
			t.Fatalf("system %d missing", tt.system)
		}
		if kp.LastVisit != tt.lastVisit {
			t.Errorf("system %d LastVisit = %d, want %d", tt.system, kp.LastVisit, tt.lastVisit)
		}
		want := PricesFor(cat.Resolve(tt.system), 7, s.Events, s.Ledger)
		if kp.Prices != want {
			t.Errorf("system %d prices not recomputed for day 7", tt.system)
		}
	}
}

func TestAdvanceRejectsNonPositiveDays(t *testing.T) {
	cat := galaxy.CoreCatalog()
	s := NewState()
	s.Dock(cat.Resolve(0), 0)
	s.RecordTrade(0, Grain, 30)

	for _, days := range []int{0, -4} {
		report, err := s.Advance(cat, 10, days, alwaysTrigger)
		if !errors.Is(err, ErrInvalidDays) {
			t.Errorf("Advance(%d) error = %v, want ErrInvalidDays", days, err)
		}
		if report.Day != 10 {
			t.Errorf("Advance(%d) report day = %d, want 10", days, report.Day)
		}
	}

	kp, _ := s.Knowledge.Get(0)
	if kp.LastVisit != 0 || len(s.Events) != 0 || s.Ledger.Net(0, Grain) != 30 {
		t.Error("rejected advance mutated state")
	}
}

func TestSellThenRecoverRaisesPrice(t *testing.T) {
	cat := galaxy.CoreCatalog()
	sol := cat.Resolve(0)
	s := NewState()

	s.Dock(sol, 0)
	if err := s.RecordTrade(sol.ID, Grain, 20); err != nil {
		t.Fatal(err)
	}
	if got := s.Ledger.Net(0, Grain); got != 20 {
		t.Fatalf("ledger grain = %v, want 20", got)
	}
	afterSale := s.Quote(Grain, sol, 0)

	if _, err := s.Advance(cat, 0, 10, neverTrigger); err != nil {
		t.Fatal(err)
	}

	if got, want := s.Ledger.Net(0, Grain), 20*math.Pow(DecayRate, 10); math.Abs(got-want) > 1e-9 {
		t.Errorf("ledger grain after 10 days = %v, want %v", got, want)
	}
	later := s.Quote(Grain, sol, 10)
	if later <= afterSale {
		t.Errorf("grain price after recovery %d, want > %d", later, afterSale)
	}
	kp, _ := s.Knowledge.Get(0)
	if p, _ := kp.Prices.Get(Grain); p != later {
		t.Errorf("known grain price %d, want live %d", p, later)
	}
}

func TestAdvanceEventsVisibleToSameDayRecompute(t *testing.T) {
	cat := galaxy.NewCatalog([]galaxy.Star{{ID: 0, Name: "Sol", SpectralType: "G2V", TechLevel: 5}})
	sol := cat.Resolve(0)
	s := NewState()
	s.Dock(sol, 0)

	report, err := s.Advance(cat, 0, 1, alwaysTrigger)
	if err != nil {
		t.Fatal(err)
	}
	if len(report.Started) != 1 {
		t.Fatalf("started %d events, want 1", len(report.Started))
	}
	e, ok := s.EventAt(0)
	if !ok || e.Type != EventMedicalEmergency {
		t.Fatalf("event at Sol = %+v, want medical emergency", e)
	}

	kp, _ := s.Knowledge.Get(0)
	withEvent := CalculatePrice(Medicine, sol, 1, s.Events, s.Ledger)
	withoutEvent := CalculatePrice(Medicine, sol, 1, nil, s.Ledger)
	if p, _ := kp.Prices.Get(Medicine); p != withEvent || p == withoutEvent {
		t.Errorf("known medicine price %d, want %d (event applied), not %d", p, withEvent, withoutEvent)
	}

	// Run until it expires; the expiry shows up in the report.
	day := 1
	for len(report.Expired) == 0 && day < 20 {
		report, _ = s.Advance(cat, day, 1, neverTrigger)
		day++
	}
	if len(report.Expired) != 1 || report.Expired[0].ID != e.ID {
		t.Fatalf("expired = %+v, want %s", report.Expired, e.ID)
	}
	if day != e.EndDay {
		t.Errorf("expired on day %d, want %d", day, e.EndDay)
	}
}

func TestCloneIsIndependent(t *testing.T) {
	cat := galaxy.CoreCatalog()
	s := NewState()
	s.Dock(cat.Resolve(1), 0)
	s.RecordTrade(1, Ore, -40)
	s.Events = append(s.Events, Event{ID: "x", SystemID: 1, StartDay: 0, EndDay: 3})

	cp := s.Clone()
	s.RecordTrade(1, Ore, -40)
	s.Advance(cat, 0, 4, neverTrigger)

	if got := cp.Ledger.Net(1, Ore); got != -40 {
		t.Errorf("clone ledger = %v, want -40", got)
	}
	if len(cp.Events) != 1 {
		t.Errorf("clone events = %d, want 1", len(cp.Events))
	}
	if kp, _ := cp.Knowledge.Get(1); kp.LastVisit != 0 {
		t.Errorf("clone staleness = %d, want 0", kp.LastVisit)
	}
}

func TestNormalizeAbsentParts(t *testing.T) {
	s := &State{}
	s.Normalize()
	if s.Ledger == nil || s.Events == nil || s.Knowledge == nil {
		t.Fatal("Normalize left nil parts")
	}
	if err := s.Validate(); err != nil {
		t.Errorf("empty state invalid: %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(s *State)
	}{
		{"ended before start", func(s *State) {
			s.Events = []Event{{ID: "a", Type: EventFestival, SystemID: 0, StartDay: 5, EndDay: 5}}
		}},
		{"two events one system", func(s *State) {
			s.Events = []Event{
				{ID: "a", Type: EventFestival, SystemID: 0, StartDay: 0, EndDay: 3},
				{ID: "b", Type: EventFestival, SystemID: 0, StartDay: 0, EndDay: 3},
			}
		}},
		{"duration out of range", func(s *State) {
			s.Events = []Event{{ID: "a", Type: EventFestival, SystemID: 0, StartDay: 0, EndDay: 40}}
		}},
		{"unknown event type", func(s *State) {
			s.Events = []Event{{ID: "a", Type: "bogus", SystemID: 0, StartDay: 0, EndDay: 500}}
		}},
		{"negative modifier", func(s *State) {
			e := Event{ID: "a", Type: EventMiningStrike, SystemID: 2, StartDay: 0, EndDay: 6}
			e.Modifiers.Set(Ore, -3)
			s.Events = []Event{e}
		}},
		{"zero modifier", func(s *State) {
			e := Event{ID: "a", Type: EventFestival, SystemID: 0, StartDay: 0, EndDay: 3}
			e.Modifiers.Set(Grain, 0)
			s.Events = []Event{e}
		}},
		{"non-finite modifier", func(s *State) {
			e := Event{ID: "a", Type: EventFestival, SystemID: 0, StartDay: 0, EndDay: 3}
			e.Modifiers.Set(Grain, math.NaN())
			s.Events = []Event{e}
		}},
		{"non-finite ledger", func(s *State) {
			s.Ledger.systems = map[int]*Table[float64]{0: {}}
			s.Ledger.systems[0].Set(Grain, math.Inf(1))
		}},
		{"negative staleness", func(s *State) {
			s.Knowledge.Put(0, KnownPrices{LastVisit: -1})
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewState()
			tt.mutate(s)
			if err := s.Validate(); !errors.Is(err, ErrCorruptState) {
				t.Errorf("Validate() = %v, want ErrCorruptState", err)
			}
		})
	}
}

func TestTableJSON(t *testing.T) {
	var prices Table[int]
	prices.Set(Grain, 11)
	prices.Set(Electronics, 40)

	data, err := json.Marshal(prices)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `{"electronics":40,"grain":11}` {
		t.Errorf("Marshal = %s", data)
	}

	var back Table[int]
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatal(err)
	}
	if back != prices {
		t.Errorf("round trip = %+v, want %+v", back, prices)
	}

	if err := json.Unmarshal([]byte(`{"spice":3}`), &back); !errors.Is(err, ErrUnknownCommodity) {
		t.Errorf("unknown commodity error = %v", err)
	}
}
