// Package monitoring exposes Prometheus metrics and a health endpoint for
// the bot.
package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics collects the bot's operational metrics.
type Metrics struct {
	ordersPlaced    *prometheus.CounterVec
	configFallbacks prometheus.Counter
	scanErrors      prometheus.Counter
	lastClose       *prometheus.GaugeVec
	scanCandidates  prometheus.Gauge

	registry *prometheus.Registry
}

// NewMetrics creates and registers the bot's metric set on a fresh registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		ordersPlaced: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "niftyshop_orders_total",
				Help: "Total orders placed, by symbol and side",
			},
			[]string{"symbol", "side"},
		),
		configFallbacks: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "niftyshop_config_fallbacks_total",
				Help: "Configuration fields that fell back to their defaults on load",
			},
		),
		scanErrors: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "niftyshop_scan_errors_total",
				Help: "Symbols skipped during the daily scan due to data errors",
			},
		),
		lastClose: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "niftyshop_last_close_price",
				Help: "Most recent daily close observed per symbol",
			},
			[]string{"symbol"},
		),
		scanCandidates: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "niftyshop_scan_candidates",
				Help: "Symbols below their 20 day moving average in the last scan",
			},
		),
		registry: prometheus.NewRegistry(),
	}

	m.registry.MustRegister(
		m.ordersPlaced,
		m.configFallbacks,
		m.scanErrors,
		m.lastClose,
		m.scanCandidates,
	)
	return m
}

// Registry returns the registry holding the bot's metrics.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordOrder counts a placed order.
func (m *Metrics) RecordOrder(symbol, side string) {
	m.ordersPlaced.WithLabelValues(symbol, side).Inc()
}

// RecordConfigFallback counts one configuration field reset to its default.
func (m *Metrics) RecordConfigFallback() {
	m.configFallbacks.Inc()
}

// RecordScanError counts a symbol skipped during the scan.
func (m *Metrics) RecordScanError() {
	m.scanErrors.Inc()
}

// ObserveClose records the latest close price for a symbol.
func (m *Metrics) ObserveClose(symbol string, close float64) {
	m.lastClose.WithLabelValues(symbol).Set(close)
}

// SetScanCandidates records how many symbols qualified in the last scan.
func (m *Metrics) SetScanCandidates(n int) {
	m.scanCandidates.Set(float64(n))
}
