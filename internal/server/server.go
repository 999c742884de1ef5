package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"
	"github.com/lox/pokermatic/internal/auth"
	"github.com/lox/pokermatic/internal/session"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const shutdownTimeout = 5 * time.Second

// Server exposes the dispatcher over websockets
type Server struct {
	upgrader    websocket.Upgrader
	logger      *log.Logger
	dispatcher  *Dispatcher
	gatherer    prometheus.Gatherer
	admins      auth.Validator
	mu          sync.RWMutex
	connections map[*Connection]bool
}

// NewServer creates a websocket server. A nil validator disables the admin
// endpoint.
func NewServer(dispatcher *Dispatcher, logger *log.Logger, gatherer prometheus.Gatherer, admins auth.Validator) *Server {
	return &Server{
		upgrader: websocket.Upgrader{
			CheckOrigin:     func(r *http.Request) bool { return true },
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		logger:      logger.WithPrefix("server"),
		dispatcher:  dispatcher,
		gatherer:    gatherer,
		admins:      admins,
		connections: make(map[*Connection]bool),
	}
}

// Handler returns the HTTP routes served by the server
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/admin", s.handleAdmin)
	mux.HandleFunc("/health", s.handleHealth)
	if s.gatherer != nil {
		mux.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}
	return mux
}

// Serve accepts connections on l until ctx is cancelled
func (s *Server) Serve(ctx context.Context, l net.Listener) error {
	httpServer := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Starting WebSocket server", "addr", l.Addr())
		errCh <- httpServer.Serve(l)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	err := httpServer.Shutdown(shutdownCtx)
	s.closeConnections()
	if err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// ListenAndServe binds addr and serves until ctx is cancelled
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, l)
}

// Publish broadcasts msg to every registered player. It is the lobby
// notifier for table and tournament announcements.
func (s *Server) Publish(ctx context.Context, msg session.Message) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var errs []error
	for conn := range s.connections {
		if conn.admin || conn.Player() == nil {
			continue
		}
		if err := conn.Publish(ctx, msg); err != nil {
			errs = append(errs, fmt.Errorf("conn %s: %w", conn.ID(), err))
		}
	}
	return errors.Join(errs...)
}

// ConnectionCount returns the number of open websocket connections
func (s *Server) ConnectionCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.connections)
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	s.accept(w, r, false)
}

func (s *Server) handleAdmin(w http.ResponseWriter, r *http.Request) {
	if s.admins == nil {
		http.Error(w, "admin endpoint disabled", http.StatusUnauthorized)
		return
	}
	token, ok := auth.BearerToken(r)
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	id, err := s.admins.Validate(r.Context(), token)
	switch {
	case errors.Is(err, auth.ErrUnavailable):
		s.logger.Warn("Admin auth unavailable", "error", err)
		http.Error(w, "auth unavailable", http.StatusServiceUnavailable)
		return
	case err != nil:
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	s.logger.Info("Admin connected", "admin", id.Name, "remote", r.RemoteAddr)
	s.accept(w, r, true)
}

func (s *Server) accept(w http.ResponseWriter, r *http.Request, admin bool) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("Failed to upgrade connection", "error", err)
		return
	}

	client := NewConnection(conn, s.logger, s.dispatcher, admin)
	s.mu.Lock()
	s.connections[client] = true
	total := len(s.connections)
	s.mu.Unlock()
	s.logger.Info("Client connected", "conn", client.ID(), "admin", admin, "total", total)

	client.Start()

	go func() {
		<-client.Done()
		s.unregister(client)
	}()
}

func (s *Server) unregister(client *Connection) {
	s.mu.Lock()
	delete(s.connections, client)
	total := len(s.connections)
	s.mu.Unlock()

	if p := client.Player(); p != nil {
		s.dispatcher.Registry().RemovePlayer(p.ID)
	}
	s.logger.Info("Client disconnected", "conn", client.ID(), "total", total)
}

func (s *Server) closeConnections() {
	s.mu.RLock()
	conns := make([]*Connection, 0, len(s.connections))
	for conn := range s.connections {
		conns = append(conns, conn)
	}
	s.mu.RUnlock()

	for _, conn := range conns {
		_ = conn.Close()
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprintf(w, "OK")
}
