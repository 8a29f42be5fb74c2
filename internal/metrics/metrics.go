// Package metrics exposes the trader's Prometheus collectors on a dedicated registry.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "tradesentinel"

// Metrics groups every collector. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	TickDuration   *prometheus.HistogramVec
	TickErrors     *prometheus.CounterVec
	Trades         *prometheus.CounterVec
	MissedTrades   *prometheus.CounterVec
	Cash           *prometheus.GaugeVec
	TotalValue     *prometheus.GaugeVec
	OpenPositions  *prometheus.GaugeVec
	CompositeScore *prometheus.GaugeVec
}

// New creates the collectors and registers them, plus Go and process collectors, on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		TickDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "trader",
			Name:      "tick_duration_seconds",
			Help:      "Duration of personality ticks",
			Buckets:   prometheus.DefBuckets,
		}, []string{"personality"}),
		TickErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "trader",
			Name:      "symbol_errors_total",
			Help:      "Symbols that could not be evaluated during a tick",
		}, []string{"personality"}),
		Trades: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "trades_total",
			Help:      "Executed trades by action and reason",
		}, []string{"personality", "action", "reason"}),
		MissedTrades: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "missed_trades_total",
			Help:      "Trades that were wanted but not executed",
		}, []string{"personality", "reason"}),
		Cash: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "cash",
			Help:      "Available cash",
		}, []string{"personality"}),
		TotalValue: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "total_value",
			Help:      "Cash plus marked positions",
		}, []string{"personality"}),
		OpenPositions: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "open_positions",
			Help:      "Held lots",
		}, []string{"personality"}),
		CompositeScore: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "composite_score",
			Help:      "Latest composite score per symbol",
		}, []string{"symbol"}),
	}
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.TickDuration, m.TickErrors, m.Trades, m.MissedTrades,
		m.Cash, m.TotalValue, m.OpenPositions, m.CompositeScore,
	)
	return m
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) ObserveTick(personality string, d time.Duration, errors int) {
	if m == nil {
		return
	}
	m.TickDuration.WithLabelValues(personality).Observe(d.Seconds())
	if errors > 0 {
		m.TickErrors.WithLabelValues(personality).Add(float64(errors))
	}
}

func (m *Metrics) TradeExecuted(personality, action, reason string) {
	if m == nil {
		return
	}
	m.Trades.WithLabelValues(personality, action, reason).Inc()
}

func (m *Metrics) TradeMissed(personality, reason string) {
	if m == nil {
		return
	}
	m.MissedTrades.WithLabelValues(personality, reason).Inc()
}

func (m *Metrics) SetPortfolio(personality string, cash, total float64, positions int) {
	if m == nil {
		return
	}
	m.Cash.WithLabelValues(personality).Set(cash)
	m.TotalValue.WithLabelValues(personality).Set(total)
	m.OpenPositions.WithLabelValues(personality).Set(float64(positions))
}

func (m *Metrics) SetComposite(symbol string, score float64) {
	if m == nil {
		return
	}
	m.CompositeScore.WithLabelValues(symbol).Set(score)
}
