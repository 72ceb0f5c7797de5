package observability

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/jadavkeshav/log-management/internal/ports"
)

type PromMetrics struct {
	counters map[string]prometheus.Counter
	gauges   map[string]prometheus.Gauge
	histos   map[string]prometheus.Observer
}

func NewPromMetrics() *PromMetrics {
	ingested := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "logrelay_events_ingested_total",
		Help: "Log events accepted by the ingestion pipeline.",
	})
	validationErrs := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "logrelay_validation_errors_total",
		Help: "Producer frames rejected for missing or malformed fields.",
	})
	storeErrs := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "logrelay_store_errors_total",
		Help: "Best-effort persistence failures (logged, never surfaced).",
	})
	delivered := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "logrelay_fanout_delivered_total",
		Help: "Frames delivered to subscriber sessions.",
	})
	dropped := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "logrelay_fanout_dropped_total",
		Help: "Frames dropped for slow or closed subscribers (drop-on-backpressure).",
	})
	sessionDropped := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "logrelay_session_send_dropped_total",
		Help: "Direct session replies dropped on a full or closed send buffer.",
	})
	scored := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "logrelay_score_resolved_total",
		Help: "Correlations resolved with a real upstream verdict.",
	})
	failopen := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "logrelay_score_failopen_total",
		Help: "Correlations resolved fail-open (upstream down or deadline hit).",
	})
	sessions := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "logrelay_sessions_active",
		Help: "Currently registered websocket sessions across all tenants.",
	})
	upstream := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "logrelay_upstream_connected",
		Help: "1 when the scoring link is connected, 0 otherwise.",
	})
	pending := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "logrelay_pending_scores",
		Help: "Score requests awaiting an upstream verdict.",
	})
	latency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "logrelay_correlation_latency_seconds",
		Help:    "Latency from score request to matching upstream response.",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
	})

	prometheus.MustRegister(ingested, validationErrs, storeErrs, delivered, dropped, sessionDropped, scored, failopen, sessions, upstream, pending, latency)

	return &PromMetrics{
		counters: map[string]prometheus.Counter{
			"logrelay_events_ingested_total":      ingested,
			"logrelay_validation_errors_total":    validationErrs,
			"logrelay_store_errors_total":         storeErrs,
			"logrelay_fanout_delivered_total":     delivered,
			"logrelay_fanout_dropped_total":       dropped,
			"logrelay_session_send_dropped_total": sessionDropped,
			"logrelay_score_resolved_total":       scored,
			"logrelay_score_failopen_total":       failopen,
		},
		gauges: map[string]prometheus.Gauge{
			"logrelay_sessions_active":    sessions,
			"logrelay_upstream_connected": upstream,
			"logrelay_pending_scores":     pending,
		},
		histos: map[string]prometheus.Observer{
			"logrelay_correlation_latency_seconds": latency,
		},
	}
}

func (p *PromMetrics) IncCounter(name string, v float64) {
	if c, ok := p.counters[name]; ok {
		c.Add(v)
	}
}

func (p *PromMetrics) SetGauge(name string, v float64) {
	if g, ok := p.gauges[name]; ok {
		g.Set(v)
	}
}

func (p *PromMetrics) ObserveLatency(name string, seconds float64) {
	if h, ok := p.histos[name]; ok {
		h.Observe(seconds)
	}
}

var _ ports.Metrics = (*PromMetrics)(nil)
