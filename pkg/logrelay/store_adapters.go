package logrelay

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/jadavkeshav/log-management/internal/domain"
)

// ErrChannelStoreClosed is returned when a channel store is written to after being closed.
var ErrChannelStoreClosed = errors.New("logrelay: channel store closed")

// EventFunc is invoked with each event persisted through a callback store.
type EventFunc func(*LogEvent) error

// NewCallbackStore adapts a plain function into a full LogStore implementation
// so callers can plug arbitrary persistence without defining structs. The
// recent-history query always returns empty.
func NewCallbackStore(name string, fn EventFunc) LogStore {
	if name == "" {
		name = "callback"
	}
	return &callbackStore{name: name, fn: fn}
}

// NewChannelStore exposes persisted events via a channel; it returns the store,
// the read-only channel, and a close function that the caller should invoke
// during shutdown.
func NewChannelStore(name string, buffer int) (LogStore, <-chan *LogEvent, func()) {
	if name == "" {
		name = "channel"
	}
	if buffer < 0 {
		buffer = 0
	}
	ch := make(chan *LogEvent, buffer)
	s := &channelStore{
		name:   name,
		ch:     ch,
		closed: make(chan struct{}),
	}
	return s, ch, func() { s.close() }
}

type callbackStore struct {
	name string
	fn   EventFunc
}

func (s *callbackStore) Save(_ context.Context, event *domain.LogEvent) error {
	if s.fn == nil {
		return fmt.Errorf("callback store %q: nil handler", s.name)
	}
	if event == nil {
		return nil
	}
	return s.fn(event)
}

func (s *callbackStore) Recent(context.Context, string, int) ([]*domain.LogEvent, error) {
	return nil, nil
}

type channelStore struct {
	name   string
	ch     chan *domain.LogEvent
	closed chan struct{}
	once   sync.Once
}

func (s *channelStore) Save(ctx context.Context, event *domain.LogEvent) error {
	select {
	case <-s.closed:
		return ErrChannelStoreClosed
	default:
	}

	if event == nil {
		return nil
	}

	select {
	case <-s.closed:
		return ErrChannelStoreClosed
	case <-ctx.Done():
		return ctx.Err()
	case s.ch <- event:
		return nil
	}
}

func (s *channelStore) Recent(context.Context, string, int) ([]*domain.LogEvent, error) {
	return nil, nil
}

func (s *channelStore) close() {
	s.once.Do(func() {
		close(s.closed)
		close(s.ch)
	})
}
