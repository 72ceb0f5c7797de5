package registry

import (
	"sync"

	"github.com/rs/zerolog"

	"github.com/jadavkeshav/log-management/internal/ports"
)

type tenantEntry struct {
	sessions map[string]ports.Subscriber
}

// TenantRegistry maps tenants to their live sessions and performs fan-out.
// Entries are created lazily on first Register and removed once the last
// session deregisters. Publish snapshots the session set under the read
// lock and sends outside it, so registration churn never races iteration.
type TenantRegistry struct {
	mu      sync.RWMutex
	tenants map[string]*tenantEntry

	metrics ports.Metrics
	logger  zerolog.Logger
}

func New(metrics ports.Metrics, logger zerolog.Logger) *TenantRegistry {
	return &TenantRegistry{
		tenants: make(map[string]*tenantEntry),
		metrics: metrics,
		logger:  logger.With().Str("component", "registry").Logger(),
	}
}

func (r *TenantRegistry) Register(tenantID string, s ports.Subscriber) {
	r.mu.Lock()
	entry, ok := r.tenants[tenantID]
	if !ok {
		entry = &tenantEntry{sessions: make(map[string]ports.Subscriber)}
		r.tenants[tenantID] = entry
	}
	entry.sessions[s.ID()] = s
	total := r.sessionCountLocked()
	r.mu.Unlock()

	r.metrics.SetGauge("logrelay_sessions_active", float64(total))
	r.logger.Debug().Str("tenant", tenantID).Str("session", s.ID()).Msg("session registered")
}

func (r *TenantRegistry) Deregister(tenantID string, s ports.Subscriber) {
	r.mu.Lock()
	if entry, ok := r.tenants[tenantID]; ok {
		delete(entry.sessions, s.ID())
		if len(entry.sessions) == 0 {
			delete(r.tenants, tenantID)
		}
	}
	total := r.sessionCountLocked()
	r.mu.Unlock()

	r.metrics.SetGauge("logrelay_sessions_active", float64(total))
	r.logger.Debug().Str("tenant", tenantID).Str("session", s.ID()).Msg("session deregistered")
}

// Publish delivers the frame to every session of the tenant except the
// originator. Sessions that refuse the frame are skipped silently; that is
// the documented drop-on-backpressure policy, not an error.
func (r *TenantRegistry) Publish(tenantID string, payload []byte, excludeID string) {
	r.mu.RLock()
	entry, ok := r.tenants[tenantID]
	if !ok {
		r.mu.RUnlock()
		return
	}
	targets := make([]ports.Subscriber, 0, len(entry.sessions))
	for id, s := range entry.sessions {
		if id == excludeID {
			continue
		}
		targets = append(targets, s)
	}
	r.mu.RUnlock()

	for _, s := range targets {
		if s.Send(payload) {
			r.metrics.IncCounter("logrelay_fanout_delivered_total", 1)
		} else {
			r.metrics.IncCounter("logrelay_fanout_dropped_total", 1)
		}
	}
}

// SessionCount reports the number of registered sessions across all tenants.
func (r *TenantRegistry) SessionCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sessionCountLocked()
}

func (r *TenantRegistry) sessionCountLocked() int {
	n := 0
	for _, entry := range r.tenants {
		n += len(entry.sessions)
	}
	return n
}

var _ ports.Publisher = (*TenantRegistry)(nil)
