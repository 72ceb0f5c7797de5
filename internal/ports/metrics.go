package ports

// Metrics is the instrumentation surface shared by the gateway, registry,
// pipeline, and relay. Names are the Prometheus series registered by the
// observability adapter; unknown names are ignored.
type Metrics interface {
	IncCounter(name string, v float64)
	SetGauge(name string, v float64)
	ObserveLatency(name string, seconds float64)
}
