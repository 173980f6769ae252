package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	ActiveSessions = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{Name: "option_guide_active_sessions", Help: "Stream sessions currently streaming"},
		[]string{"transport"},
	)
	TicksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "option_guide_ticks_total", Help: "Tick events written to subscribers"},
		[]string{"transport"},
	)
	HeartbeatsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "option_guide_heartbeats_total", Help: "Keep-alive signals written to subscribers"},
		[]string{"transport"},
	)
	WriteFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "option_guide_write_failures_total", Help: "Transport writes that ended a session"},
		[]string{"transport"},
	)
	SessionsClosedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "option_guide_sessions_closed_total", Help: "Sessions closed, by reason"},
		[]string{"reason"},
	)
	UpstreamFetchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "option_guide_upstream_fetches_total", Help: "Upstream price fetches by provider and result"},
		[]string{"provider", "result"},
	)
	ReferencePrice = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "option_guide_reference_price", Help: "Current shared reference price"},
	)
	ChartsRenderedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "option_guide_charts_rendered_total", Help: "Server-side chart renders by format"},
		[]string{"format"},
	)
	ExcludedRowsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "option_guide_excluded_rows_total", Help: "Payoff rows dropped because their PnL did not parse"},
	)
)

func init() {
	prometheus.MustRegister(
		ActiveSessions,
		TicksTotal,
		HeartbeatsTotal,
		WriteFailuresTotal,
		SessionsClosedTotal,
		UpstreamFetchesTotal,
		ReferencePrice,
		ChartsRenderedTotal,
		ExcludedRowsTotal,
	)
}

// Handler exposes the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
