package gateway

import (
	"context"
	"errors"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/jadavkeshav/log-management/internal/app/pipeline"
	"github.com/jadavkeshav/log-management/internal/domain"
	"github.com/jadavkeshav/log-management/internal/ports"
)

type sessionState int

const (
	stateUnauthenticated sessionState = iota
	stateAuthenticated
	stateClosed
)

// clientFrame is the envelope for every inbound message. Log stays raw until
// the frame type is known.
type clientFrame struct {
	Type   string          `json:"type"`
	APIKey string          `json:"apiKey"`
	Log    json.RawMessage `json:"log"`
}

type errorFrame struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type initialLogsFrame struct {
	Type string             `json:"type"`
	Logs []*domain.LogEvent `json:"logs"`
}

type ackFrame struct {
	Type string `json:"type"`
}

// Session wraps one websocket connection and its state machine:
// Unauthenticated → Authenticated → Closed. Frames are processed strictly in
// arrival order by a single read loop; outbound frames go through a buffered
// channel drained by the write pump, and a full buffer drops the frame.
type Session struct {
	id   string
	conn *websocket.Conn
	gw   *Gateway

	mu       sync.Mutex
	state    sessionState
	tenantID string

	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once

	ctx    context.Context
	cancel context.CancelFunc

	logger zerolog.Logger
}

func newSession(gw *Gateway, conn *websocket.Conn) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	id := uuid.NewString()
	return &Session{
		id:     id,
		conn:   conn,
		gw:     gw,
		state:  stateUnauthenticated,
		send:   make(chan []byte, gw.sendBuffer),
		done:   make(chan struct{}),
		ctx:    ctx,
		cancel: cancel,
		logger: gw.logger.With().Str("session", id).Logger(),
	}
}

// ID implements ports.Subscriber.
func (s *Session) ID() string { return s.id }

// Send queues a frame for delivery without blocking. It reports false when
// the session is closed or its buffer is full; the caller skips the session.
func (s *Session) Send(payload []byte) bool {
	select {
	case <-s.done:
		return false
	default:
	}
	select {
	case s.send <- payload:
		return true
	case <-s.done:
		return false
	default:
		return false
	}
}

func (s *Session) run() {
	go s.writePump()
	s.readLoop()
	s.close()
}

func (s *Session) readLoop() {
	for {
		_, msg, err := s.conn.ReadMessage()
		if err != nil {
			return
		}
		if closed := s.handleFrame(msg); closed {
			return
		}
	}
}

// writePump owns all writes to the socket and closes it last, so frames
// queued before teardown (auth rejections in particular) still reach the
// client.
func (s *Session) writePump() {
	defer s.conn.Close()
	for {
		select {
		case payload := <-s.send:
			if err := s.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				s.close()
				return
			}
		case <-s.done:
			for {
				select {
				case payload := <-s.send:
					_ = s.conn.SetWriteDeadline(time.Now().Add(time.Second))
					if err := s.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
						return
					}
				default:
					_ = s.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
					return
				}
			}
		}
	}
}

// handleFrame dispatches one inbound frame. It returns true when the session
// should terminate.
func (s *Session) handleFrame(msg []byte) bool {
	var frame clientFrame
	if err := json.Unmarshal(msg, &frame); err != nil {
		// Malformed traffic from an unauthenticated peer ends the
		// connection; authenticated clients may retry.
		s.sendError("Malformed request")
		return s.currentState() == stateUnauthenticated
	}

	switch frame.Type {
	case "auth":
		return s.handleAuth(frame.APIKey)
	case "log":
		return s.handleLog(frame.APIKey, frame.Log)
	default:
		s.sendError("Unknown message type")
		return s.currentState() == stateUnauthenticated
	}
}

func (s *Session) handleAuth(apiKey string) bool {
	if s.currentState() != stateUnauthenticated {
		s.sendError("Already authenticated")
		return false
	}

	ctx, cancel := context.WithTimeout(s.ctx, 5*time.Second)
	defer cancel()

	tenantID, err := s.gw.auth.Validate(ctx, apiKey)
	if err != nil {
		s.sendError(authErrorMessage(err))
		s.logger.Warn().Err(err).Msg("authentication rejected")
		return true
	}

	// Validate blocks on I/O; the session may have been torn down in the
	// meantime. Closed is terminal, so a late success must not register.
	// Registration happens in the same critical section as the state
	// transition: close either observes Unauthenticated and skips
	// deregistration, or Authenticated after the registry entry exists.
	s.mu.Lock()
	if s.state != stateUnauthenticated {
		s.mu.Unlock()
		return true
	}
	s.state = stateAuthenticated
	s.tenantID = tenantID
	s.gw.registry.Register(tenantID, s)
	s.mu.Unlock()

	s.logger.Info().Str("tenant", tenantID).Msg("session authenticated")

	logs, err := s.gw.store.Recent(ctx, tenantID, s.gw.initialLogs)
	if err != nil {
		// History is a convenience; the live stream still works.
		s.logger.Warn().Err(err).Msg("load initial logs")
		logs = nil
	}
	if logs == nil {
		logs = []*domain.LogEvent{}
	}
	s.sendJSON(initialLogsFrame{Type: "initial_logs", Logs: logs})
	return false
}

func (s *Session) handleLog(apiKey string, raw json.RawMessage) bool {
	state, tenantID := s.snapshot()
	if state != stateAuthenticated {
		s.sendError("Unauthenticated. No logs accepted.")
		return true
	}

	// Credentials are never cached: a frame that carries the key is
	// re-validated, so revocation takes effect mid-session.
	if apiKey != "" {
		ctx, cancel := context.WithTimeout(s.ctx, 5*time.Second)
		keyTenant, err := s.gw.auth.Validate(ctx, apiKey)
		cancel()
		if err != nil {
			s.sendError(authErrorMessage(err))
			s.logger.Warn().Err(err).Msg("credential re-check failed")
			return true
		}
		if keyTenant != tenantID {
			s.sendError("Invalid API Key")
			return true
		}
	}

	if len(raw) == 0 {
		s.sendError("Malformed request")
		return false
	}
	var payload pipeline.RawLog
	if err := json.Unmarshal(raw, &payload); err != nil {
		s.sendError("Malformed request")
		return false
	}

	if err := s.gw.pipeline.Ingest(s.ctx, tenantID, payload, s.id); err != nil {
		var verr *pipeline.ValidationError
		if errors.As(err, &verr) {
			s.sendError(verr.Error())
			return false
		}
		s.sendError("Failed to process log")
		return false
	}

	s.sendJSON(ackFrame{Type: "ack"})
	return false
}

// close tears the session down exactly once: deregister before the done
// channel closes so no Publish snapshot taken afterwards can observe it.
func (s *Session) close() {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		prev := s.state
		tenantID := s.tenantID
		s.state = stateClosed
		s.mu.Unlock()

		if prev == stateAuthenticated {
			s.gw.registry.Deregister(tenantID, s)
		}
		s.cancel()
		close(s.done)
		s.gw.dropSession(s.id)
		s.logger.Debug().Msg("session closed")
	})
}

func (s *Session) currentState() sessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) snapshot() (sessionState, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state, s.tenantID
}

func (s *Session) sendError(message string) {
	s.sendJSON(errorFrame{Type: "error", Message: message})
}

func (s *Session) sendJSON(v any) {
	payload, err := json.Marshal(v)
	if err != nil {
		s.logger.Error().Err(err).Msg("encode outbound frame")
		return
	}
	if !s.Send(payload) {
		s.gw.metrics.IncCounter("logrelay_session_send_dropped_total", 1)
	}
}

func authErrorMessage(err error) string {
	switch {
	case errors.Is(err, ports.ErrCredentialRevoked):
		return "API Key revoked"
	case errors.Is(err, ports.ErrCredentialExpired):
		return "API Key expired"
	case errors.Is(err, ports.ErrInvalidCredential):
		return "Invalid API Key"
	default:
		return "Authentication failed"
	}
}

var _ ports.Subscriber = (*Session)(nil)
