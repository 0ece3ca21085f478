// Package server exposes a scene over websocket.
//
// Clients connect to GET /ws and exchange one reply frame per request frame.
// Text frames carry JSON events, binary frames carry msgpack events, and the
// reply uses the kind of the request. GET /debug returns the scene dump as
// plain text.
//
// The scene is single-owner: every request from every connection is applied
// by one goroutine in arrival order. Connection goroutines only decode and
// encode frames.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/haivivi/nearest/pkg/event"
	"github.com/haivivi/nearest/pkg/scene"
)

// ErrClosed is returned for requests submitted after Close.
var ErrClosed = errors.New("server: closed")

// Config configures a new [Server].
type Config struct {
	// Scene is the scene served. Required. The server becomes its owner.
	Scene *scene.Scene

	// Logger receives connection diagnostics.
	// Defaults to slog.Default().
	Logger *slog.Logger

	// CheckOrigin filters websocket upgrades. Default: allow all origins.
	CheckOrigin func(*http.Request) bool

	// ShutdownTimeout bounds graceful shutdown in ListenAndServe.
	// Default: 5s.
	ShutdownTimeout time.Duration
}

func (c *Config) setDefaults() {
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	if c.CheckOrigin == nil {
		c.CheckOrigin = func(*http.Request) bool { return true }
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = 5 * time.Second
	}
}

type request struct {
	ctx   context.Context
	event event.Event
	reply chan event.Result
}

// Server serializes scene access behind a request channel.
type Server struct {
	cfg      Config
	logger   *slog.Logger
	upgrader websocket.Upgrader

	requests  chan request
	closeCh   chan struct{}
	closeOnce sync.Once
	loopDone  chan struct{}
}

// New creates a server and starts its owner goroutine. Panics if
// cfg.Scene is nil.
func New(cfg Config) *Server {
	if cfg.Scene == nil {
		panic("server: Config.Scene is required")
	}
	cfg.setDefaults()
	s := &Server{
		cfg:    cfg,
		logger: cfg.Logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: cfg.CheckOrigin,
		},
		requests: make(chan request),
		closeCh:  make(chan struct{}),
		loopDone: make(chan struct{}),
	}
	go s.loop()
	return s
}

func (s *Server) loop() {
	defer close(s.loopDone)
	for {
		select {
		case req := <-s.requests:
			req.reply <- s.cfg.Scene.Apply(req.ctx, req.event)
		case <-s.closeCh:
			return
		}
	}
}

// Do applies one event on the owner goroutine and returns its result.
func (s *Server) Do(ctx context.Context, e event.Event) (event.Result, error) {
	req := request{ctx: ctx, event: e, reply: make(chan event.Result, 1)}
	select {
	case s.requests <- req:
	case <-ctx.Done():
		return event.Result{}, ctx.Err()
	case <-s.closeCh:
		return event.Result{}, ErrClosed
	}
	select {
	case res := <-req.reply:
		return res, nil
	case <-ctx.Done():
		return event.Result{}, ctx.Err()
	}
}

// Handler returns the HTTP handler serving /ws and /debug.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /ws", s.handleWS)
	mux.HandleFunc("GET /debug", s.handleDebug)
	return mux
}

func (s *Server) handleDebug(w http.ResponseWriter, r *http.Request) {
	res, err := s.Do(r.Context(), event.Event{Op: event.OpDump})
	if err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte(res.Dump + "\n"))
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Debug("server: upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}
	defer ws.Close()

	id := uuid.NewString()
	logger := s.logger.With("conn", id)
	logger.Info("server: client connected", "remote", r.RemoteAddr)
	defer logger.Info("server: client disconnected")

	ctx := r.Context()
	for {
		kind, data, err := ws.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.Debug("server: read failed", "error", err)
			}
			return
		}

		enc := event.JSON
		if kind == websocket.BinaryMessage {
			enc = event.Msgpack
		}
		res := s.serve(ctx, enc, data, logger)

		out, err := event.Encode(enc, res)
		if err != nil {
			logger.Warn("server: encode failed", "op", res.Op, "error", err)
			return
		}
		if err := ws.WriteMessage(kind, out); err != nil {
			logger.Debug("server: write failed", "error", err)
			return
		}
	}
}

func (s *Server) serve(ctx context.Context, enc event.Encoding, data []byte, logger *slog.Logger) event.Result {
	e, err := event.Decode(enc, data)
	if err != nil {
		logger.Debug("server: bad request", "encoding", enc, "error", err)
		return event.Result{Op: e.Op, ID: e.ID, Error: err.Error()}
	}
	res, err := s.Do(ctx, e)
	if err != nil {
		return event.Result{Op: e.Op, ID: e.ID, Error: err.Error()}
	}
	return res
}

// ListenAndServe serves on addr until ctx is canceled, then shuts down
// gracefully. The scene is not closed.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve is ListenAndServe on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:     s.Handler(),
		BaseContext: func(net.Listener) context.Context { return ctx },
	}
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()
	s.logger.Info("server: listening", "addr", ln.Addr().String())

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Close stops the owner goroutine. Pending and later requests fail with
// ErrClosed.
func (s *Server) Close() error {
	s.closeOnce.Do(func() {
		close(s.closeCh)
	})
	<-s.loopDone
	return nil
}
