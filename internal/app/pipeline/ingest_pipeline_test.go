package pipeline

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/jadavkeshav/log-management/internal/domain"
)

type recordingStore struct {
	mu     sync.Mutex
	events []*domain.LogEvent
	saved  chan struct{}
	fail   bool
}

func newRecordingStore() *recordingStore {
	return &recordingStore{saved: make(chan struct{}, 8)}
}

func (s *recordingStore) Save(_ context.Context, event *domain.LogEvent) error {
	s.mu.Lock()
	s.events = append(s.events, event)
	fail := s.fail
	s.mu.Unlock()
	s.saved <- struct{}{}
	if fail {
		return errors.New("db down")
	}
	return nil
}

func (s *recordingStore) Recent(context.Context, string, int) ([]*domain.LogEvent, error) {
	return nil, nil
}

type stubScorer struct {
	ann domain.Annotation
}

func (s *stubScorer) ScoreAsync(*domain.LogEvent) <-chan domain.Annotation {
	ch := make(chan domain.Annotation, 1)
	ch <- s.ann
	return ch
}

type recordingPublisher struct {
	mu       sync.Mutex
	payloads [][]byte
	tenants  []string
	excludes []string
}

func (p *recordingPublisher) Publish(tenantID string, payload []byte, excludeID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.tenants = append(p.tenants, tenantID)
	p.payloads = append(p.payloads, payload)
	p.excludes = append(p.excludes, excludeID)
}

func (p *recordingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.payloads)
}

type nopMetrics struct{}

func (nopMetrics) IncCounter(string, float64)     {}
func (nopMetrics) SetGauge(string, float64)       {}
func (nopMetrics) ObserveLatency(string, float64) {}

func validRaw() RawLog {
	status := 200
	bytes := int64(512)
	return RawLog{
		IP:         "10.0.0.1",
		Timestamp:  time.Now().UTC().Format(time.RFC3339Nano),
		Method:     "GET",
		URL:        "/api/users/123",
		Protocol:   "HTTP/1.1",
		StatusCode: &status,
		BytesSent:  &bytes,
		UserAgent:  "curl/8.0",
	}
}

func TestIngestPublishesAnnotatedEvent(t *testing.T) {
	store := newRecordingStore()
	score := -0.7
	scorer := &stubScorer{ann: domain.Annotation{IsAnomaly: true, AnomalyScore: &score, ScoredAt: time.Now()}}
	pub := &recordingPublisher{}

	p := New(store, scorer, pub, nopMetrics{}, zerolog.Nop())

	if err := p.Ingest(context.Background(), "ws-1", validRaw(), "origin-session"); err != nil {
		t.Fatalf("ingest: %v", err)
	}

	if pub.count() != 1 {
		t.Fatalf("expected 1 published frame, got %d", pub.count())
	}
	if pub.tenants[0] != "ws-1" || pub.excludes[0] != "origin-session" {
		t.Fatalf("unexpected publish target tenant=%s exclude=%s", pub.tenants[0], pub.excludes[0])
	}

	var frame struct {
		Type string                `json:"type"`
		Log  domain.AnnotatedEvent `json:"log"`
	}
	if err := json.Unmarshal(pub.payloads[0], &frame); err != nil {
		t.Fatalf("decode push frame: %v", err)
	}
	if frame.Type != "log" {
		t.Fatalf("expected frame type log, got %s", frame.Type)
	}
	if frame.Log.URL != "/api/users/123" || frame.Log.URLDepth != 3 {
		t.Fatalf("expected derived features on published event, got %+v", frame.Log.LogEvent)
	}
	if !frame.Log.IsAnomaly || frame.Log.AnomalyScore == nil {
		t.Fatalf("expected annotation on published event, got %+v", frame.Log.Annotation)
	}

	select {
	case <-store.saved:
	case <-time.After(time.Second):
		t.Fatalf("event was never persisted")
	}
}

func TestIngestRejectsMissingFields(t *testing.T) {
	store := newRecordingStore()
	pub := &recordingPublisher{}
	p := New(store, &stubScorer{}, pub, nopMetrics{}, zerolog.Nop())

	raw := validRaw()
	raw.URL = ""

	err := p.Ingest(context.Background(), "ws-1", raw, "")
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if verr.Field != "url" {
		t.Fatalf("expected url field rejection, got %s", verr.Field)
	}

	if pub.count() != 0 {
		t.Fatalf("validation failure must not publish")
	}
	select {
	case <-store.saved:
		t.Fatalf("validation failure must not persist")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestIngestRejectsBadTimestamp(t *testing.T) {
	p := New(newRecordingStore(), &stubScorer{}, &recordingPublisher{}, nopMetrics{}, zerolog.Nop())

	raw := validRaw()
	raw.Timestamp = "yesterday"

	var verr *ValidationError
	if err := p.Ingest(context.Background(), "ws-1", raw, ""); !errors.As(err, &verr) || verr.Field != "timestamp" {
		t.Fatalf("expected timestamp rejection, got %v", err)
	}
}

func TestIngestAbsorbsStoreFailure(t *testing.T) {
	store := newRecordingStore()
	store.fail = true
	pub := &recordingPublisher{}
	p := New(store, &stubScorer{ann: domain.Annotation{Err: "upstream unavailable"}}, pub, nopMetrics{}, zerolog.Nop())

	if err := p.Ingest(context.Background(), "ws-1", validRaw(), ""); err != nil {
		t.Fatalf("store failure must not surface: %v", err)
	}
	if pub.count() != 1 {
		t.Fatalf("expected delivery despite store failure, got %d frames", pub.count())
	}
}
