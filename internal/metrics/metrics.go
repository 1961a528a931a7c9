// Package metrics exposes economy gauges and counters to Prometheus.
//
// Registers:
//
//	tradelanes_day
//	tradelanes_active_events{type}
//	tradelanes_ledger_entries
//	tradelanes_known_systems
//	tradelanes_events_started_total{type}
//	tradelanes_trades_total{side,good}
//	tradelanes_trade_units_total{side,good}
//	go_* and process_* system metrics
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/talgya/tradelanes/internal/economy"
)

// Economy holds the collectors on a private registry. A nil *Economy is a no-op.
type Economy struct {
	registry *prometheus.Registry

	day           prometheus.Gauge
	activeEvents  *prometheus.GaugeVec
	ledgerEntries prometheus.Gauge
	knownSystems  prometheus.Gauge
	eventsStarted *prometheus.CounterVec
	trades        *prometheus.CounterVec
	tradeUnits    *prometheus.CounterVec
}

// New creates and registers the economy collectors.
func New() *Economy {
	m := &Economy{
		registry: prometheus.NewRegistry(),
		day: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tradelanes_day",
			Help: "Current game day",
		}),
		activeEvents: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "tradelanes_active_events",
			Help: "Active economic events by type",
		}, []string{"type"}),
		ledgerEntries: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tradelanes_ledger_entries",
			Help: "Number of (system, commodity) entries in the market ledger",
		}),
		knownSystems: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tradelanes_known_systems",
			Help: "Systems with player price knowledge",
		}),
		eventsStarted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tradelanes_events_started_total",
			Help: "Economic events created by the scheduler",
		}, []string{"type"}),
		trades: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tradelanes_trades_total",
			Help: "Completed trades",
		}, []string{"side", "good"}),
		tradeUnits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tradelanes_trade_units_total",
			Help: "Units moved by completed trades",
		}, []string{"side", "good"}),
	}

	m.registry.MustRegister(
		m.day, m.activeEvents, m.ledgerEntries, m.knownSystems,
		m.eventsStarted, m.trades, m.tradeUnits,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// ObserveState refreshes the gauges from a state snapshot.
func (m *Economy) ObserveState(day int, st *economy.State) {
	if m == nil || st == nil {
		return
	}
	m.day.Set(float64(day))
	m.ledgerEntries.Set(float64(st.Ledger.Len()))
	m.knownSystems.Set(float64(st.Knowledge.Len()))

	m.activeEvents.Reset()
	for _, d := range economy.EventDefinitions() {
		m.activeEvents.WithLabelValues(string(d.Type)).Set(0)
	}
	for _, e := range st.Events {
		m.activeEvents.WithLabelValues(string(e.Type)).Inc()
	}
}

// ObserveEventStarted counts a newly scheduled event.
func (m *Economy) ObserveEventStarted(t economy.EventType) {
	if m == nil {
		return
	}
	m.eventsStarted.WithLabelValues(string(t)).Inc()
}

// ObserveTrade counts a completed trade.
func (m *Economy) ObserveTrade(side string, good economy.Commodity, qty int) {
	if m == nil {
		return
	}
	m.trades.WithLabelValues(side, good.String()).Inc()
	m.tradeUnits.WithLabelValues(side, good.String()).Add(float64(qty))
}

// Handler serves the registry in the Prometheus text format.
func (m *Economy) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
