package logrelay

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/jadavkeshav/log-management/internal/adapters/auth"
	"github.com/jadavkeshav/log-management/internal/adapters/observability"
	"github.com/jadavkeshav/log-management/internal/adapters/store"
	"github.com/jadavkeshav/log-management/internal/app/config"
	"github.com/jadavkeshav/log-management/internal/app/pipeline"
	"github.com/jadavkeshav/log-management/internal/gateway"
	"github.com/jadavkeshav/log-management/internal/logging"
	"github.com/jadavkeshav/log-management/internal/ports"
	"github.com/jadavkeshav/log-management/internal/registry"
	"github.com/jadavkeshav/log-management/internal/relay"
)

// Option customizes the dependencies used by Runtime.
type Option func(*overrides)

type overrides struct {
	store   ports.LogStore
	auth    ports.AuthValidator
	scorer  ports.Scorer
	metrics ports.Metrics
	logger  *zerolog.Logger
}

// WithLogStore injects a custom store so events can be persisted anywhere
// (ClickHouse, S3, a test double) instead of Postgres or memory.
func WithLogStore(s ports.LogStore) Option {
	return func(o *overrides) {
		o.store = s
	}
}

// WithAuthValidator injects a custom credential validator (OAuth introspection,
// static keys, test doubles).
func WithAuthValidator(v ports.AuthValidator) Option {
	return func(o *overrides) {
		o.auth = v
	}
}

// WithScorer replaces the upstream websocket relay with any scoring backend.
func WithScorer(s ports.Scorer) Option {
	return func(o *overrides) {
		o.scorer = s
	}
}

// WithMetrics plugs in a custom metrics backend.
func WithMetrics(m ports.Metrics) Option {
	return func(o *overrides) {
		o.metrics = m
	}
}

// WithLogger overrides the logger built from the config's log section.
func WithLogger(l zerolog.Logger) Option {
	return func(o *overrides) {
		o.logger = &l
	}
}

// Runtime wires the gateway, ingestion pipeline, tenant registry, store, and
// upstream relay together and exposes simple lifecycle hooks for embedding
// the relay inside any Go service.
type Runtime struct {
	cfg     *config.Config
	logger  zerolog.Logger
	metrics ports.Metrics

	store    ports.LogStore
	auth     ports.AuthValidator
	relay    *relay.Relay
	registry *registry.TenantRegistry
	pipeline *pipeline.Pipeline
	gateway  *gateway.Gateway

	db          *sql.DB
	metricsSrv  *http.Server
	gaugeStopCh chan struct{}
}

// New bootstraps the default adapters (Postgres store and key table when a
// conn string is configured, in-memory otherwise; websocket relay scorer;
// Prometheus metrics). Option values override any dependency.
func New(cfg *config.Config, opts ...Option) (*Runtime, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	cfg.ApplyDefaults()

	var ov overrides
	for _, opt := range opts {
		if opt != nil {
			opt(&ov)
		}
	}

	logger := logging.New(cfg.Log.Level, cfg.Log.Pretty, "log-relay", logging.InstanceID())
	if ov.logger != nil {
		logger = *ov.logger
	}

	metrics := ov.metrics
	if metrics == nil {
		metrics = observability.NewPromMetrics()
	}

	var db *sql.DB
	if (ov.store == nil || ov.auth == nil) && cfg.Postgres.ConnString != "" {
		var err error
		db, err = sql.Open("postgres", cfg.Postgres.ConnString)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
	}

	logStore := ov.store
	if logStore == nil {
		if db != nil {
			logStore = store.NewPostgresStore(db, cfg.Postgres.LogTable)
		} else {
			logStore = store.NewMemoryStore(0)
		}
	}

	validator := ov.auth
	if validator == nil {
		if db != nil {
			validator = auth.NewPostgresValidator(db, cfg.Postgres.KeyTable, logger)
		} else {
			validator = auth.NewMemoryValidator(nil)
		}
	}

	var upstream *relay.Relay
	scorer := ov.scorer
	if scorer == nil {
		upstream = relay.New(relay.Config{
			URL:              cfg.Upstream.URL,
			ReconnectBackoff: cfg.Upstream.ReconnectBackoff,
			ScoreDeadline:    cfg.Upstream.ScoreDeadline,
		}, metrics, logger)
		scorer = upstream
	}

	reg := registry.New(metrics, logger)
	pl := pipeline.New(logStore, scorer, reg, metrics, logger)
	gw := gateway.New(gateway.Config{
		Addr:        cfg.Server.Addr,
		Path:        cfg.Server.WSPath,
		InitialLogs: cfg.Server.InitialLogs,
		SendBuffer:  cfg.Server.SendBuffer,
	}, validator, logStore, pl, reg, metrics, logger)

	return &Runtime{
		cfg:      cfg,
		logger:   logger,
		metrics:  metrics,
		store:    logStore,
		auth:     validator,
		relay:    upstream,
		registry: reg,
		pipeline: pl,
		gateway:  gw,
		db:       db,
	}, nil
}

// Start launches the upstream relay supervisor, the websocket gateway, and
// the metrics endpoint. It returns immediately; call Run to block on a
// context instead.
func (r *Runtime) Start() error {
	if r == nil {
		return fmt.Errorf("runtime is nil")
	}

	if r.relay != nil {
		if err := r.relay.Start(); err != nil {
			return err
		}
	}
	if err := r.gateway.Start(); err != nil {
		return err
	}

	r.startMetrics()
	r.logger.Info().
		Str("addr", r.cfg.Server.Addr).
		Str("path", r.cfg.Server.WSPath).
		Str("upstream", r.cfg.Upstream.URL).
		Msg("log relay started")
	return nil
}

// Ingest pushes a log event through the full pipeline on behalf of the given
// tenant, bypassing the websocket gateway. It lets embedding services feed
// their own access logs into scoring and fan-out in-process. A non-nil error
// is always a *ValidationError.
func (r *Runtime) Ingest(ctx context.Context, tenantID string, raw RawLog) error {
	return r.pipeline.Ingest(ctx, tenantID, raw, "")
}

// Run starts the runtime and blocks until the provided context is cancelled.
// Upon cancellation it attempts a graceful shutdown.
func (r *Runtime) Run(ctx context.Context) error {
	if err := r.Start(); err != nil {
		return err
	}
	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return r.Shutdown(shutdownCtx)
}

// Shutdown stops the gateway, relay, metrics server, and DB connection.
func (r *Runtime) Shutdown(ctx context.Context) error {
	var errs []error

	if r.gaugeStopCh != nil {
		close(r.gaugeStopCh)
		r.gaugeStopCh = nil
	}

	if r.metricsSrv != nil {
		if err := r.metricsSrv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs = append(errs, err)
		}
	}

	if r.gateway != nil {
		if err := r.gateway.Shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
	}

	if r.relay != nil {
		if err := r.relay.Stop(); err != nil {
			errs = append(errs, err)
		}
	}

	if r.db != nil {
		if err := r.db.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

func (r *Runtime) startMetrics() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.metricsSrv = &http.Server{
		Addr:    r.cfg.Metrics.Addr,
		Handler: mux,
	}

	go func() {
		if err := r.metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			r.logger.Error().Err(err).Msg("metrics server exited")
		}
	}()

	r.gaugeStopCh = make(chan struct{})
	go r.recordResourceGauges(r.gaugeStopCh, time.Second)
}

func (r *Runtime) recordResourceGauges(stop <-chan struct{}, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			r.metrics.SetGauge("logrelay_sessions_active", float64(r.registry.SessionCount()))
			if r.relay != nil {
				r.metrics.SetGauge("logrelay_pending_scores", float64(r.relay.PendingCount()))
			}
		}
	}
}
