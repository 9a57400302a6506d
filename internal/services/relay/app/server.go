package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/wildlink/relay/internal/platform/timeouts"
	"github.com/wildlink/relay/internal/services/relay/hub"
	"github.com/wildlink/relay/internal/services/relay/storage"
	sqlitestore "github.com/wildlink/relay/internal/services/relay/storage/sqlite"
)

// Config defines the inputs for the relay transport boundary.
type Config struct {
	HTTPAddr          string
	DBPath            string
	ReadHeaderTimeout time.Duration
	ShutdownTimeout   time.Duration
}

// Server hosts the relay HTTP/WebSocket process.
//
// It owns the websocket lifecycle and delegates session semantics to the hub
// coordinator so transport framing stays out of the core.
type Server struct {
	httpAddr        string
	shutdownTimeout time.Duration
	httpServer      *http.Server
	store           *sqlitestore.Store
}

// NewServer builds a configured relay server and opens the membership store
// if one is configured.
//
// A store that fails to open is logged and skipped rather than fatal: chat
// liveness never depends on persistence, only join/disconnect announcements
// across restarts do.
func NewServer(config Config) (*Server, error) {
	httpAddr := strings.TrimSpace(config.HTTPAddr)
	if httpAddr == "" {
		return nil, errors.New("http address is required")
	}
	if config.ReadHeaderTimeout <= 0 {
		config.ReadHeaderTimeout = timeouts.ReadHeader
	}
	if config.ShutdownTimeout <= 0 {
		config.ShutdownTimeout = timeouts.Shutdown
	}

	var store *sqlitestore.Store
	var membership storage.MembershipStore
	if strings.TrimSpace(config.DBPath) != "" {
		opened, err := sqlitestore.Open(config.DBPath)
		if err != nil {
			log.Printf("relay: membership store unavailable, announcements may be lost across restarts: %v", err)
		} else {
			store = opened
			membership = opened
		}
	}

	httpServer := &http.Server{
		Addr:              httpAddr,
		Handler:           NewHandler(membership),
		ReadHeaderTimeout: config.ReadHeaderTimeout,
	}

	return &Server{
		httpAddr:        httpAddr,
		shutdownTimeout: config.ShutdownTimeout,
		httpServer:      httpServer,
		store:           store,
	}, nil
}

// NewHandler creates relay routes backed by a fresh coordinator. The store
// may be nil for tests and offline paths.
func NewHandler(store storage.MembershipStore) http.Handler {
	return newHandler(hub.New(store))
}

// Run creates and serves a relay server until the context ends.
func Run(ctx context.Context, config Config) error {
	server, err := NewServer(config)
	if err != nil {
		return fmt.Errorf("init relay server: %w", err)
	}
	defer server.Close()

	if err := server.ListenAndServe(ctx); err != nil {
		return fmt.Errorf("serve relay: %w", err)
	}
	return nil
}

// ListenAndServe runs the HTTP server until the context ends.
func (s *Server) ListenAndServe(ctx context.Context) error {
	if s == nil {
		return errors.New("relay server is nil")
	}
	if ctx == nil {
		return errors.New("context is required")
	}

	serveErr := make(chan error, 1)
	log.Printf("relay server listening on %s", s.httpAddr)
	go func() {
		serveErr <- s.httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
		err := s.httpServer.Shutdown(shutdownCtx)
		cancel()
		if err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		return nil
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve http: %w", err)
	}
}

// Close releases server resources.
func (s *Server) Close() {
	if s == nil {
		return
	}
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			log.Printf("relay: close membership store: %v", err)
		}
	}
}
