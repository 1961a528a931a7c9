package economy

import (
	"math"

	"github.com/talgya/tradelanes/internal/galaxy"
)

// Price model constants.
const (
	MinPrice = 1 // Floor for every quote; also the price of an unknown commodity

	TemporalAmplitude = 0.15
	TemporalPeriod    = 30.0 // Days
	TemporalPhaseStep = 0.15 // Radians of phase offset per system id

	TechStep = 0.05 // Price change per tech level away from the default

	LocalSaturation = 0.5   // Max fractional swing from the market ledger
	LocalScale      = 100.0 // Net quantity at which tanh reaches ~0.76 of saturation
)

// CalculatePrice returns the price in credits of good at system on day.
//
// A negative day is treated as day 0. An unknown commodity prices at MinPrice.
// Systems missing from the catalog should be passed as galaxy.Unknown(id).
func CalculatePrice(good Commodity, system galaxy.Star, day int, events []Event, ledger *Ledger) int {
	if !good.Valid() {
		return MinPrice
	}
	if day < 0 {
		day = 0
	}

	price := good.BasePrice() *
		TechModifier(system) *
		TemporalModifier(system.ID, day) *
		LocalModifier(ledger.Net(system.ID, good)) *
		EventModifier(events, system.ID, good)

	rounded := int(math.Round(price))
	if rounded < MinPrice {
		return MinPrice
	}
	return rounded
}

// PricesFor quotes every commodity at system on day.
func PricesFor(system galaxy.Star, day int, events []Event, ledger *Ledger) Table[int] {
	var prices Table[int]
	for _, c := range Commodities() {
		prices.Set(c, CalculatePrice(c, system, day, events, ledger))
	}
	return prices
}

// TechModifier makes low-tech stations pay more and high-tech stations less.
// The default tech level is neutral.
func TechModifier(system galaxy.Star) float64 {
	return 1 + TechStep*float64(galaxy.DefaultTechLevel-system.ClampedTechLevel())
}

// TemporalModifier is a 30-day periodic multiplier phase-shifted by system id.
// Always within [1-TemporalAmplitude, 1+TemporalAmplitude].
func TemporalModifier(systemID, day int) float64 {
	// Reduce day modulo the period first so large days keep full precision.
	d := float64(day % int(TemporalPeriod))
	phase := 2*math.Pi*d/TemporalPeriod + float64(systemID)*TemporalPhaseStep
	return 1 + TemporalAmplitude*math.Sin(phase)
}

// LocalModifier maps a ledger net quantity to a price multiplier.
// Surplus (positive) lowers the price, shortage raises it, with diminishing
// effect as magnitude grows. The result stays within
// [1-LocalSaturation, 1+LocalSaturation], so it never reaches zero.
func LocalModifier(net float64) float64 {
	if math.IsNaN(net) {
		return 1
	}
	return 1 - LocalSaturation*math.Tanh(net/LocalScale)
}

// EventModifier multiplies the modifiers of every event at systemID that lists good.
func EventModifier(events []Event, systemID int, good Commodity) float64 {
	mod := 1.0
	for i := range events {
		e := &events[i]
		if e.SystemID != systemID {
			continue
		}
		mod *= e.Modifier(good)
	}
	return mod
}
