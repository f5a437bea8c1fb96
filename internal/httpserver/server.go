package httpserver

import (
	"context"
	"crypto/tls"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-ozzo/ozzo-validation/is"
	validation "github.com/go-ozzo/ozzo-validation/v4"
)

var ErrNotListening = errors.New("httpserver: not listening")

// Option customises a Server at construction.
type Option func(*Server)

// WithTLSCertificate makes the server accept TLS connections only.
func WithTLSCertificate(cert tls.Certificate) Option {
	return func(s *Server) {
		s.tlsConfig = &tls.Config{
			Certificates: []tls.Certificate{cert},
			MinVersion:   tls.VersionTLS12,
		}
	}
}

// WithErrorLog routes net/http's internal errors, including recovered
// handler panics, to logger at error level.
func WithErrorLog(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.server.ErrorLog = slog.NewLogLogger(logger.Handler(), slog.LevelError)
		}
	}
}

// Server wraps http.Server with validation, an explicit bind step and
// graceful shutdown.
type Server struct {
	server    *http.Server
	tlsConfig *tls.Config

	mutex    sync.Mutex
	listener net.Listener
}

// New creates a new HTTP server with the given address and handler.
// The address is validated before creating the server.
func New(addr string, handler http.Handler, opts ...Option) (*Server, error) {
	if err := validateHost(addr); err != nil {
		return nil, err
	}

	srv := &Server{
		server: &http.Server{
			Addr:         addr,
			Handler:      handler,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
	}

	for _, opt := range opts {
		opt(srv)
	}

	return srv, nil
}

// Listen binds the server address without accepting connections yet.
// Calling Listen on a bound server is a no-op.
func (s *Server) Listen() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.listener != nil {
		return nil
	}

	l, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		return err
	}

	if s.tlsConfig != nil {
		l = tls.NewListener(l, s.tlsConfig)
	}

	s.listener = l
	return nil
}

// Serve accepts connections on the bound listener until shutdown.
// Returns an error unless the server is shut down cleanly.
func (s *Server) Serve() error {
	s.mutex.Lock()
	l := s.listener
	s.mutex.Unlock()

	if l == nil {
		return ErrNotListening
	}

	err := s.server.Serve(l)
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}

// Start binds and then serves.
func (s *Server) Start() error {
	if err := s.Listen(); err != nil {
		return err
	}

	return s.Serve()
}

// Addr is the bound address, or nil before Listen.
func (s *Server) Addr() net.Addr {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// TLS reports whether the server was configured with a certificate.
func (s *Server) TLS() bool {
	return s.tlsConfig != nil
}

// Shutdown gracefully shuts down the server with a 5-second timeout.
func (s *Server) Shutdown(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	s.mutex.Lock()
	l := s.listener
	s.mutex.Unlock()

	err := s.server.Shutdown(shutdownCtx)
	if l != nil {
		// Shutdown only closes listeners that Serve has picked up.
		if cerr := l.Close(); cerr != nil && err == nil && !errors.Is(cerr, net.ErrClosed) {
			err = cerr
		}
	}

	return err
}

func validateHost(value interface{}) error {
	addr, ok := value.(string)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a string")
	}

	host, port, err := net.SplitHostPort(addr)

	if err != nil {
		return validation.NewError("validation_invalid_hostport", "must be in host:port format")
	}

	if port == "" {
		return validation.NewError("validation_invalid_port", "port cant be empty")
	}

	if host != "" {
		if err := is.Host.Validate(host); err != nil {
			return validation.NewError("validation_invalid_host", "invalid host")
		}
	}

	return err
}
