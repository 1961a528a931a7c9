// Package engine provides the game session and the day-based simulation loop.
package engine

import (
	"fmt"
	"log/slog"
	"math"
	"sync/atomic"
	"time"
)

// TickSchedule defines when each layer runs relative to the tick counter.
// One tick is one game day.
const (
	TicksPerWeek  = 7
	TicksPerCycle = 30 // One full temporal price cycle
)

// Engine drives the session forward in real time.
type Engine struct {
	Tick     uint64        // Current tick counter (monotonic, never resets)
	Interval time.Duration // Real time per game day at speed 1
	speed    atomic.Uint64 // math.Float64bits of the speed multiplier
	running  atomic.Bool

	// Callbacks for each tick layer, set during setup.
	OnDay   func(tick uint64) // Every tick
	OnWeek  func(tick uint64) // Every 7 ticks
	OnCycle func(tick uint64) // Every 30 ticks
}

// NewEngine creates an engine with default settings.
func NewEngine() *Engine {
	e := &Engine{
		Tick:     0,
		Interval: 10 * time.Second,
	}
	e.SetSpeed(1.0)
	return e
}

// Speed returns the multiplier: 1.0 = real-time, 0 = paused.
// Safe to call while Run is active.
func (e *Engine) Speed() float64 {
	return math.Float64frombits(e.speed.Load())
}

// SetSpeed changes the multiplier. Negative values pause the loop.
// Safe to call while Run is active.
func (e *Engine) SetSpeed(speed float64) {
	if speed < 0 || math.IsNaN(speed) {
		speed = 0
	}
	e.speed.Store(math.Float64bits(speed))
}

// Run starts the loop. Blocks until Stop() is called.
func (e *Engine) Run() {
	e.running.Store(true)
	slog.Info("economy engine started", "tick", e.Tick, "speed", e.Speed(), "interval", e.Interval)

	for e.running.Load() {
		speed := e.Speed()
		if speed <= 0 {
			// Paused: sleep briefly and check again.
			time.Sleep(100 * time.Millisecond)
			continue
		}

		start := time.Now()

		e.step()

		// Sleep for the remainder of the tick interval, adjusted for speed.
		elapsed := time.Since(start)
		target := time.Duration(float64(e.Interval) / speed)
		if elapsed < target {
			time.Sleep(target - elapsed)
		}
	}

	slog.Info("economy engine stopped", "tick", e.Tick)
}

// Stop halts the loop.
func (e *Engine) Stop() {
	e.running.Store(false)
}

// Running reports whether Run is active.
func (e *Engine) Running() bool {
	return e.running.Load()
}

// step advances the loop by one tick.
func (e *Engine) step() {
	e.Tick++

	if e.OnDay != nil {
		e.OnDay(e.Tick)
	}

	if e.Tick%TicksPerWeek == 0 && e.OnWeek != nil {
		e.OnWeek(e.Tick)
	}

	if e.Tick%TicksPerCycle == 0 && e.OnCycle != nil {
		e.OnCycle(e.Tick)
	}
}

// DayLabel returns a human-readable date for a game day.
func DayLabel(day int) string {
	cycle := day/TicksPerCycle + 1
	dayOfCycle := day%TicksPerCycle + 1
	week := (dayOfCycle-1)/TicksPerWeek + 1
	return fmt.Sprintf("Cycle %d, Week %d, Day %d", cycle, week, dayOfCycle)
}
