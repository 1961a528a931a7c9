package economy

import (
	"math"
	"testing"

	"github.com/talgya/tradelanes/internal/galaxy"
)

func TestTemporalModifierPeriodic(t *testing.T) {
	for id := 0; id < 50; id++ {
		for day := 0; day < 120; day++ {
			a := TemporalModifier(id, day)
			b := TemporalModifier(id, day+30)
			if a != b {
				t.Fatalf("TemporalModifier(%d, %d) = %v, day+30 = %v", id, day, a, b)
			}
		}
	}
}

func TestTemporalModifierBounds(t *testing.T) {
	lo, hi := 1-TemporalAmplitude, 1+TemporalAmplitude
	for id := 0; id < 100; id++ {
		for day := 0; day < 30; day++ {
			v := TemporalModifier(id, day)
			if v < lo || v > hi {
				t.Fatalf("TemporalModifier(%d, %d) = %v, outside [%v, %v]", id, day, v, lo, hi)
			}
		}
	}
}

func TestTemporalModifierPhaseShift(t *testing.T) {
	for day := 0; day < 30; day++ {
		for a := 0; a < 20; a++ {
			for b := a + 1; b < 20; b++ {
				va, vb := TemporalModifier(a, day), TemporalModifier(b, day)
				if math.Abs(va-vb) < 1e-9 {
					t.Errorf("day %d: systems %d and %d share temporal modifier %v", day, a, b, va)
				}
			}
		}
	}
}

func TestLocalModifier(t *testing.T) {
	if got := LocalModifier(0); got != 1 {
		t.Errorf("LocalModifier(0) = %v, want 1", got)
	}

	prev := LocalModifier(-1000)
	for net := -999.0; net <= 1000; net++ {
		cur := LocalModifier(net)
		if cur >= prev {
			t.Fatalf("LocalModifier not decreasing at %v: %v >= %v", net, cur, prev)
		}
		if cur <= 0 {
			t.Fatalf("LocalModifier(%v) = %v, want positive", net, cur)
		}
		prev = cur
	}

	// Diminishing marginal effect.
	first := LocalModifier(0) - LocalModifier(50)
	second := LocalModifier(50) - LocalModifier(100)
	if second >= first {
		t.Errorf("marginal effect grew: first 50 units %v, next 50 units %v", first, second)
	}

	if got := LocalModifier(1e12); got < 1-LocalSaturation {
		t.Errorf("LocalModifier(1e12) = %v, below floor", got)
	}
	if got := LocalModifier(math.NaN()); got != 1 {
		t.Errorf("LocalModifier(NaN) = %v, want 1", got)
	}
}

func TestTechModifier(t *testing.T) {
	tests := []struct {
		level int
		want  float64
	}{
		{galaxy.DefaultTechLevel, 1},
		{1, 1 + 2*TechStep},
		{5, 1 - 2*TechStep},
		{99, 1 - 2*TechStep},
	}
	for _, tt := range tests {
		got := TechModifier(galaxy.Star{TechLevel: tt.level})
		if math.Abs(got-tt.want) > 1e-12 {
			t.Errorf("TechModifier(level %d) = %v, want %v", tt.level, got, tt.want)
		}
	}
}

func TestCalculatePrice(t *testing.T) {
	sol, _ := galaxy.CoreCatalog().Lookup(0)

	// Day 0 at system 0 has a neutral temporal modifier; Sol is tech 5.
	if got := CalculatePrice(Grain, sol, 0, nil, nil); got != 11 {
		t.Errorf("grain at Sol day 0 = %d, want 11", got)
	}

	ledger := NewLedger()
	if err := ledger.Update(sol.ID, Ore, -40); err != nil {
		t.Fatal(err)
	}
	events := []Event{{SystemID: sol.ID, Modifiers: modifiers(map[Commodity]float64{Ore: 1.5})}}

	for day := 0; day < 40; day += 7 {
		want := int(math.Round(Ore.BasePrice() *
			TechModifier(sol) *
			TemporalModifier(sol.ID, day) *
			LocalModifier(-40) *
			1.5))
		if got := CalculatePrice(Ore, sol, day, events, ledger); got != want {
			t.Errorf("ore at Sol day %d = %d, want %d", day, got, want)
		}
	}
}

func TestCalculatePriceFallbacks(t *testing.T) {
	unknown := galaxy.CoreCatalog().Resolve(4242)

	if got := CalculatePrice(Commodity(200), unknown, 0, nil, nil); got != MinPrice {
		t.Errorf("unknown commodity price = %d, want %d", got, MinPrice)
	}

	want := int(math.Round(Medicine.BasePrice() * TemporalModifier(4242, 3)))
	if got := CalculatePrice(Medicine, unknown, 3, nil, nil); got != want {
		t.Errorf("medicine at uncharted system = %d, want %d", got, want)
	}

	if a, b := CalculatePrice(Parts, unknown, -12, nil, nil), CalculatePrice(Parts, unknown, 0, nil, nil); a != b {
		t.Errorf("negative day price %d, want day 0 price %d", a, b)
	}
}

func TestCalculatePriceNeverBelowMinimum(t *testing.T) {
	ledger := NewLedger()
	star := galaxy.Star{ID: 7, TechLevel: 5}
	for _, c := range Commodities() {
		ledger.Update(star.ID, c, 1e9)
	}
	events := []Event{{SystemID: star.ID, Modifiers: modifiers(map[Commodity]float64{Grain: 0.001})}}

	for day := 0; day < 30; day++ {
		for _, c := range Commodities() {
			if p := CalculatePrice(c, star, day, events, ledger); p < MinPrice {
				t.Fatalf("%s day %d price %d below minimum", c, day, p)
			}
		}
	}
}

func TestEventModifierScopedToSystem(t *testing.T) {
	events := []Event{
		{SystemID: 1, Modifiers: modifiers(map[Commodity]float64{Medicine: 2})},
		{SystemID: 2, Modifiers: modifiers(map[Commodity]float64{Medicine: 3})},
	}

	tests := []struct {
		system int
		good   Commodity
		want   float64
	}{
		{1, Medicine, 2},
		{2, Medicine, 3},
		{1, Grain, 1},
		{9, Medicine, 1},
	}
	for _, tt := range tests {
		if got := EventModifier(events, tt.system, tt.good); got != tt.want {
			t.Errorf("EventModifier(system %d, %s) = %v, want %v", tt.system, tt.good, got, tt.want)
		}
	}
}
