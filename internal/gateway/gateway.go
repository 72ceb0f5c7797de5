package gateway

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/jadavkeshav/log-management/internal/app/pipeline"
	"github.com/jadavkeshav/log-management/internal/ports"
	"github.com/jadavkeshav/log-management/internal/registry"
)

// Config captures the listener details for the websocket gateway.
type Config struct {
	Addr        string
	Path        string
	InitialLogs int
	SendBuffer  int
}

func (c *Config) applyDefaults() {
	if c.Path == "" {
		c.Path = "/ws"
	}
	if c.InitialLogs <= 0 {
		c.InitialLogs = 100
	}
	if c.SendBuffer <= 0 {
		c.SendBuffer = 64
	}
}

// Gateway accepts websocket connections and runs one Session per socket.
// A single failed upgrade never stops the accept loop.
type Gateway struct {
	addr        string
	path        string
	initialLogs int
	sendBuffer  int

	auth     ports.AuthValidator
	store    ports.LogStore
	pipeline *pipeline.Pipeline
	registry *registry.TenantRegistry
	metrics  ports.Metrics
	logger   zerolog.Logger

	upgrader websocket.Upgrader
	server   *http.Server

	mu       sync.Mutex
	sessions map[string]*Session
	started  bool
}

func New(cfg Config, auth ports.AuthValidator, store ports.LogStore, pl *pipeline.Pipeline, reg *registry.TenantRegistry, metrics ports.Metrics, logger zerolog.Logger) *Gateway {
	cfg.applyDefaults()
	return &Gateway{
		addr:        cfg.Addr,
		path:        cfg.Path,
		initialLogs: cfg.InitialLogs,
		sendBuffer:  cfg.SendBuffer,
		auth:        auth,
		store:       store,
		pipeline:    pl,
		registry:    reg,
		metrics:     metrics,
		logger:      logger.With().Str("component", "gateway").Logger(),
		upgrader: websocket.Upgrader{
			// Producers are server processes and the dashboard runs on
			// its own origin; credential checks happen in-protocol.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		sessions: make(map[string]*Session),
	}
}

// Handler returns the websocket endpoint, mounted at the configured path.
func (g *Gateway) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(g.path, g.handleWS)
	return mux
}

func (g *Gateway) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		g.logger.Warn().Err(err).Str("remote", r.RemoteAddr).Msg("websocket upgrade failed")
		return
	}

	s := newSession(g, conn)
	g.mu.Lock()
	g.sessions[s.id] = s
	g.mu.Unlock()

	g.logger.Debug().Str("session", s.id).Str("remote", r.RemoteAddr).Msg("connection accepted")
	go s.run()
}

// Start begins serving in the background.
func (g *Gateway) Start() error {
	g.mu.Lock()
	if g.started {
		g.mu.Unlock()
		return errors.New("gateway already started")
	}
	g.started = true
	g.mu.Unlock()

	g.server = &http.Server{Addr: g.addr, Handler: g.Handler()}
	go func() {
		if err := g.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			g.logger.Error().Err(err).Msg("gateway server exited")
		}
	}()
	g.logger.Info().Str("addr", g.addr).Str("path", g.path).Msg("gateway listening")
	return nil
}

// Shutdown stops accepting connections and closes every live session.
func (g *Gateway) Shutdown(ctx context.Context) error {
	var err error
	if g.server != nil {
		err = g.server.Shutdown(ctx)
	}

	g.mu.Lock()
	open := make([]*Session, 0, len(g.sessions))
	for _, s := range g.sessions {
		open = append(open, s)
	}
	g.mu.Unlock()

	for _, s := range open {
		s.close()
	}
	return err
}

func (g *Gateway) dropSession(id string) {
	g.mu.Lock()
	delete(g.sessions, id)
	g.mu.Unlock()
}
