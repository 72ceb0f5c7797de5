package registry

import (
	"sync"
	"testing"

	"github.com/rs/zerolog"
)

type fakeSession struct {
	id     string
	mu     sync.Mutex
	frames [][]byte
	refuse bool
}

func (f *fakeSession) ID() string { return f.id }

func (f *fakeSession) Send(payload []byte) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.refuse {
		return false
	}
	f.frames = append(f.frames, payload)
	return true
}

func (f *fakeSession) received() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.frames)
}

type nopMetrics struct{}

func (nopMetrics) IncCounter(string, float64)     {}
func (nopMetrics) SetGauge(string, float64)       {}
func (nopMetrics) ObserveLatency(string, float64) {}

func newTestRegistry() *TenantRegistry {
	return New(nopMetrics{}, zerolog.Nop())
}

func TestPublishIsolatesTenants(t *testing.T) {
	r := newTestRegistry()

	s1 := &fakeSession{id: "s1"}
	s2 := &fakeSession{id: "s2"}
	r.Register("tenant-1", s1)
	r.Register("tenant-2", s2)

	r.Publish("tenant-1", []byte(`{"type":"log"}`), "")

	if s1.received() != 1 {
		t.Fatalf("expected tenant-1 subscriber to receive 1 frame, got %d", s1.received())
	}
	if s2.received() != 0 {
		t.Fatalf("expected tenant-2 subscriber to receive 0 frames, got %d", s2.received())
	}
}

func TestPublishExcludesOriginator(t *testing.T) {
	r := newTestRegistry()

	producer := &fakeSession{id: "producer"}
	subscriber := &fakeSession{id: "subscriber"}
	r.Register("tenant-1", producer)
	r.Register("tenant-1", subscriber)

	r.Publish("tenant-1", []byte("x"), "producer")

	if producer.received() != 0 {
		t.Fatalf("expected producer to be excluded from its own broadcast")
	}
	if subscriber.received() != 1 {
		t.Fatalf("expected subscriber to receive the frame")
	}
}

func TestPublishSkipsRefusingSessions(t *testing.T) {
	r := newTestRegistry()

	slow := &fakeSession{id: "slow", refuse: true}
	ok := &fakeSession{id: "ok"}
	r.Register("tenant-1", slow)
	r.Register("tenant-1", ok)

	r.Publish("tenant-1", []byte("x"), "")

	if ok.received() != 1 {
		t.Fatalf("expected healthy session to receive the frame")
	}
	if slow.received() != 0 {
		t.Fatalf("expected refusing session to be skipped")
	}
}

func TestDeregisterRemovesEmptyTenant(t *testing.T) {
	r := newTestRegistry()

	s := &fakeSession{id: "s"}
	r.Register("tenant-1", s)
	r.Deregister("tenant-1", s)

	if r.SessionCount() != 0 {
		t.Fatalf("expected 0 sessions after deregister, got %d", r.SessionCount())
	}

	r.mu.RLock()
	_, exists := r.tenants["tenant-1"]
	r.mu.RUnlock()
	if exists {
		t.Fatalf("expected empty tenant entry to be garbage-collected")
	}
}

func TestConcurrentRegisterAndPublish(t *testing.T) {
	r := newTestRegistry()

	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-stop:
				return
			default:
				r.Publish("tenant-1", []byte("x"), "")
			}
		}
	}()

	for i := 0; i < 200; i++ {
		s := &fakeSession{id: string(rune('a' + i%26))}
		r.Register("tenant-1", s)
		r.Deregister("tenant-1", s)
	}
	close(stop)
	wg.Wait()
}
