package relay

import (
	"context"
	"fmt"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/jadavkeshav/log-management/internal/domain"
	"github.com/jadavkeshav/log-management/internal/ports"
)

// LinkState describes the upstream scoring connection.
type LinkState int32

const (
	Disconnected LinkState = iota
	Connecting
	Connected
)

func (s LinkState) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	default:
		return "unknown"
	}
}

type waiterState int

const (
	waiterPending waiterState = iota
	waiterResolved
	waiterTimedOut
)

// waiter holds one correlation slot. Its channel is buffered and resolved
// exactly once; the state tag guards against the timer and the reader racing
// to resolve the same slot.
type waiter struct {
	state     waiterState
	ch        chan domain.Annotation
	timer     *time.Timer
	createdAt time.Time
}

// Config captures the runtime details of the upstream scoring link.
type Config struct {
	URL              string
	ReconnectBackoff time.Duration
	ScoreDeadline    time.Duration

	// Dialer overrides the default websocket dialer.
	Dialer *websocket.Dialer
}

func (c *Config) applyDefaults() {
	if c.ReconnectBackoff <= 0 {
		c.ReconnectBackoff = 5 * time.Second
	}
	if c.ScoreDeadline <= 0 {
		c.ScoreDeadline = 5 * time.Second
	}
	if c.Dialer == nil {
		c.Dialer = websocket.DefaultDialer
	}
}

// Relay owns the single connection to the scoring backend. A supervisor
// goroutine drives the Disconnected → Connecting → Connected state machine
// and reconnects after a fixed backoff; score requests are correlated to
// responses through a keyed table with per-entry deadline timers. All
// tenants share one link and one table, but entries are independent per key
// so callers only contend on socket write ordering.
type Relay struct {
	cfg     Config
	metrics ports.Metrics
	logger  zerolog.Logger

	mu      sync.Mutex
	state   LinkState
	conn    *websocket.Conn
	pending map[domain.EventKey]*waiter

	writeMu sync.Mutex

	cancel  context.CancelFunc
	done    chan struct{}
	started bool
}

func New(cfg Config, metrics ports.Metrics, logger zerolog.Logger) *Relay {
	cfg.applyDefaults()
	return &Relay{
		cfg:     cfg,
		metrics: metrics,
		logger:  logger.With().Str("component", "relay").Logger(),
		state:   Disconnected,
		pending: make(map[domain.EventKey]*waiter),
	}
}

// Start launches the supervisor loop. It returns immediately; the link is
// established in the background and score requests issued before the first
// connect resolve fail-open.
func (r *Relay) Start() error {
	r.mu.Lock()
	if r.started {
		r.mu.Unlock()
		return fmt.Errorf("relay already started")
	}
	r.started = true
	r.mu.Unlock()

	ctx, cancel := context.WithCancel(context.Background())
	r.cancel = cancel
	r.done = make(chan struct{})

	go r.supervise(ctx)
	return nil
}

// Stop tears the link down and waits for the supervisor to exit. Idempotent.
func (r *Relay) Stop() error {
	r.mu.Lock()
	if !r.started {
		r.mu.Unlock()
		return nil
	}
	r.started = false
	cancel := r.cancel
	conn := r.conn
	r.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if conn != nil {
		_ = conn.Close()
	}
	<-r.done
	return nil
}

// State reports the current link state.
func (r *Relay) State() LinkState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

func (r *Relay) supervise(ctx context.Context) {
	defer close(r.done)

	for {
		if ctx.Err() != nil {
			return
		}

		r.setState(Connecting)
		conn, resp, err := r.cfg.Dialer.DialContext(ctx, r.cfg.URL, nil)
		if resp != nil && resp.Body != nil {
			_ = resp.Body.Close()
		}
		if err != nil {
			r.setState(Disconnected)
			r.logger.Warn().Err(err).Str("url", r.cfg.URL).Msg("upstream dial failed")
			select {
			case <-ctx.Done():
				return
			case <-time.After(r.cfg.ReconnectBackoff):
			}
			continue
		}

		r.mu.Lock()
		r.conn = conn
		r.state = Connected
		r.mu.Unlock()
		r.metrics.SetGauge("logrelay_upstream_connected", 1)
		r.logger.Info().Str("url", r.cfg.URL).Msg("upstream connected")

		// Blocks until the socket errors or Stop closes it. Pending
		// correlations are not failed here; their own deadline timers
		// resolve them fail-open.
		r.readLoop(ctx, conn)

		r.mu.Lock()
		if r.conn == conn {
			r.conn = nil
		}
		r.state = Disconnected
		r.mu.Unlock()
		r.metrics.SetGauge("logrelay_upstream_connected", 0)
		_ = conn.Close()
		r.logger.Warn().Msg("upstream disconnected")

		select {
		case <-ctx.Done():
			return
		case <-time.After(r.cfg.ReconnectBackoff):
		}
	}
}

func (r *Relay) setState(s LinkState) {
	r.mu.Lock()
	r.state = s
	r.mu.Unlock()
	if s != Connected {
		r.metrics.SetGauge("logrelay_upstream_connected", 0)
	}
}

// scoreRequest is the outbound batch frame; the relay currently sends one
// event per frame.
type scoreRequest struct {
	Logs []*domain.LogEvent `json:"logs"`
}

type scoredLog struct {
	domain.LogEvent
	IsAnomaly    bool    `json:"is_anomaly"`
	AnomalyScore float64 `json:"anomaly_score"`
}

type scoreResponse struct {
	Type              string      `json:"type"`
	TotalLogs         int         `json:"total_logs"`
	AnomaliesDetected int         `json:"anomalies_detected"`
	Logs              []scoredLog `json:"logs"`
}

// ScoreAsync registers a correlation for the event and sends it upstream.
// The returned channel resolves exactly once: with the upstream verdict, or
// fail-open when the link is down, the write fails, or the deadline passes.
// A second request for the same composite key before resolution overwrites
// the first waiter; the orphaned waiter resolves fail-open on its own timer
// (last-write-wins, an accepted limitation of the natural key).
func (r *Relay) ScoreAsync(event *domain.LogEvent) <-chan domain.Annotation {
	ch := make(chan domain.Annotation, 1)

	r.mu.Lock()
	if r.state != Connected || r.conn == nil {
		r.mu.Unlock()
		r.metrics.IncCounter("logrelay_score_failopen_total", 1)
		ch <- failOpen("upstream unavailable")
		return ch
	}

	key := event.Key()
	w := &waiter{state: waiterPending, ch: ch, createdAt: time.Now()}
	// Arm the deadline before publishing the entry so a racing resolve
	// always sees a non-nil timer.
	w.timer = time.AfterFunc(r.cfg.ScoreDeadline, func() { r.expire(key, w) })
	r.pending[key] = w
	conn := r.conn
	r.mu.Unlock()

	payload, err := json.Marshal(scoreRequest{Logs: []*domain.LogEvent{event}})
	if err != nil {
		r.fail(key, w, "encode score request")
		return ch
	}

	r.writeMu.Lock()
	err = conn.WriteMessage(websocket.TextMessage, payload)
	r.writeMu.Unlock()
	if err != nil {
		r.logger.Warn().Err(err).Msg("upstream write failed")
		r.fail(key, w, "upstream write failed")
	}
	return ch
}

func (r *Relay) readLoop(ctx context.Context, conn *websocket.Conn) {
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		if ctx.Err() != nil {
			return
		}

		var resp scoreResponse
		if err := json.Unmarshal(msg, &resp); err != nil {
			r.logger.Warn().Err(err).Msg("malformed upstream frame")
			continue
		}
		if resp.Type != "logs_received" {
			continue
		}

		for i := range resp.Logs {
			r.resolve(&resp.Logs[i])
		}
	}
}

func (r *Relay) resolve(scored *scoredLog) {
	key := scored.LogEvent.Key()

	r.mu.Lock()
	w, ok := r.pending[key]
	if !ok || w.state != waiterPending {
		r.mu.Unlock()
		return
	}
	w.state = waiterResolved
	delete(r.pending, key)
	r.mu.Unlock()

	w.timer.Stop()
	r.metrics.IncCounter("logrelay_score_resolved_total", 1)
	r.metrics.ObserveLatency("logrelay_correlation_latency_seconds", time.Since(w.createdAt).Seconds())

	score := scored.AnomalyScore
	w.ch <- domain.Annotation{
		IsAnomaly:    scored.IsAnomaly,
		AnomalyScore: &score,
		ScoredAt:     time.Now().UTC(),
	}
}

// expire resolves a waiter fail-open after its deadline. The identity check
// against the table keeps an orphaned waiter's timer from deleting the entry
// that overwrote it.
func (r *Relay) expire(key domain.EventKey, w *waiter) {
	r.mu.Lock()
	if w.state != waiterPending {
		r.mu.Unlock()
		return
	}
	w.state = waiterTimedOut
	if cur, ok := r.pending[key]; ok && cur == w {
		delete(r.pending, key)
	}
	r.mu.Unlock()

	r.metrics.IncCounter("logrelay_score_failopen_total", 1)
	w.ch <- failOpen("correlation timeout")
}

// fail resolves a waiter fail-open immediately (encode or write failure).
func (r *Relay) fail(key domain.EventKey, w *waiter, reason string) {
	r.mu.Lock()
	if w.state != waiterPending {
		r.mu.Unlock()
		return
	}
	w.state = waiterTimedOut
	if cur, ok := r.pending[key]; ok && cur == w {
		delete(r.pending, key)
	}
	r.mu.Unlock()

	w.timer.Stop()
	r.metrics.IncCounter("logrelay_score_failopen_total", 1)
	w.ch <- failOpen(reason)
}

func failOpen(reason string) domain.Annotation {
	return domain.Annotation{IsAnomaly: false, AnomalyScore: nil, Err: reason}
}

// PendingCount reports the number of outstanding correlations.
func (r *Relay) PendingCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pending)
}

var _ ports.Scorer = (*Relay)(nil)
