// Package httpserver serves the Prometheus metrics endpoint while a game
// session is running.
package httpserver

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/yndnr/savekeep-go/internal/telemetry/logger"
)

// MetricsPath is where the metrics handler is mounted.
const MetricsPath = "/metrics"

// Server is an HTTP listener exposing metrics and a liveness probe.
type Server struct {
	httpServer *http.Server
	listener   net.Listener
	log        logger.Logger
	done       chan error
}

// New creates a server for addr serving metrics at MetricsPath.
func New(addr string, metrics http.Handler, log logger.Logger) *Server {
	if log == nil {
		log = logger.Default()
	}
	mux := http.NewServeMux()
	mux.Handle(MetricsPath, metrics)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})
	return &Server{
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
		log:  log.With("component", "httpserver"),
		done: make(chan error, 1),
	}
}

// Start binds the listener and serves in the background.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return err
	}
	s.listener = ln
	s.log.Info("metrics listener started", "addr", ln.Addr().String())
	go func() {
		err := s.httpServer.Serve(ln)
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		s.done <- err
	}()
	return nil
}

// Addr returns the bound address, or the configured one before Start.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.httpServer.Addr
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.listener == nil {
		return nil
	}
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return err
	}
	return <-s.done
}
