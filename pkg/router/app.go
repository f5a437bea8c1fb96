package router

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/angeloszaimis/routekit/internal/httpserver"
)

// DefaultPort is used by Listen when no port is given.
const DefaultPort = 8080

// Option configures an App at construction.
type Option func(*App) error

// WithTLS serves HTTPS using the PEM files at keyFile and certFile.
// Both files are read when the App starts listening.
func WithTLS(keyFile, certFile string) Option {
	return func(a *App) error {
		a.tls = true
		a.keyFile = keyFile
		a.certFile = certFile
		return nil
	}
}

// WithFavicon installs a /favicon.ico route serving file.
func WithFavicon(file string) Option {
	return func(a *App) error {
		return a.SetFavicon(file)
	}
}

// WithWrapper wraps the App's handler before it is handed to the listener.
func WithWrapper(wrap func(http.Handler) http.Handler) Option {
	return func(a *App) error {
		a.wrap = wrap
		return nil
	}
}

// WithErrorLog receives failures that reach the transport boundary.
func WithErrorLog(logger *slog.Logger) Option {
	return func(a *App) error {
		a.errorLog = logger
		return nil
	}
}

type state int

const (
	stateUnbound state = iota
	stateListening
)

// App routes requests to Routes and owns the listener serving them.
type App struct {
	tls      bool
	keyFile  string
	certFile string

	wrap     func(http.Handler) http.Handler
	errorLog *slog.Logger

	mutex        sync.RWMutex
	routes       map[string]*Route
	faviconFile  string
	errorHandler ErrorHandler

	lifecycle sync.Mutex
	state     state
	server    *httpserver.Server
	done      chan struct{}
	serveErr  error
}

// New creates an unbound App.
func New(opts ...Option) (*App, error) {
	a := &App{
		routes: make(map[string]*Route),
	}

	for _, opt := range opts {
		if err := opt(a); err != nil {
			return nil, err
		}
	}

	return a, nil
}

// OnError installs the app-level error handler.
func (a *App) OnError(h ErrorHandler) *App {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	a.errorHandler = h
	return a
}

// AddRoute stores route under its lowercased path, replacing any route
// already stored there.
func (a *App) AddRoute(route *Route) *App {
	return a.AddRoutes(route)
}

func (a *App) AddRoutes(routes ...*Route) *App {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	for _, route := range routes {
		if route == nil {
			continue
		}
		a.routes[normalize(route.Path())] = route
	}
	return a
}

// Route returns the route a request for path would resolve to.
func (a *App) Route(path string) (*Route, bool) {
	a.mutex.RLock()
	defer a.mutex.RUnlock()

	route, ok := a.routes[normalize(path)]
	return route, ok
}

// Routes lists the normalized paths in the routing table, sorted.
func (a *App) Routes() []string {
	a.mutex.RLock()
	defer a.mutex.RUnlock()

	paths := make([]string, 0, len(a.routes))
	for p := range a.routes {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// Listen serves on port, or DefaultPort when port is 0.
func (a *App) Listen(port int) error {
	if port == 0 {
		port = DefaultPort
	}
	return a.ListenAddr(fmt.Sprintf(":%d", port))
}

// ListenAddr binds addr and starts serving in the background. It is a
// no-op when the App is already listening. Configuration and credential
// errors are returned before anything is bound.
func (a *App) ListenAddr(addr string) error {
	a.lifecycle.Lock()
	defer a.lifecycle.Unlock()

	if a.state == stateListening {
		return nil
	}

	if a.tls && (a.keyFile == "" || a.certFile == "") {
		return ErrMissingCredentials
	}

	opts := []httpserver.Option{httpserver.WithErrorLog(a.errorLog)}
	if a.tls {
		cert, err := loadCredentials(a.keyFile, a.certFile)
		if err != nil {
			return err
		}
		opts = append(opts, httpserver.WithTLSCertificate(cert))
	}

	var handler http.Handler = a
	if a.wrap != nil {
		handler = a.wrap(handler)
	}

	srv, err := httpserver.New(addr, handler, opts...)
	if err != nil {
		return err
	}
	if err := srv.Listen(); err != nil {
		return err
	}

	done := make(chan struct{})
	a.server = srv
	a.done = done
	a.serveErr = nil
	a.state = stateListening

	go func() {
		err := srv.Serve()

		a.lifecycle.Lock()
		a.serveErr = err
		if a.server == srv {
			a.server = nil
			a.state = stateUnbound
		}
		a.lifecycle.Unlock()
		close(done)
	}()

	return nil
}

// Listening reports whether the App has a bound listener.
func (a *App) Listening() bool {
	a.lifecycle.Lock()
	defer a.lifecycle.Unlock()

	return a.state == stateListening
}

// Addr is the bound address, or nil while unbound.
func (a *App) Addr() net.Addr {
	a.lifecycle.Lock()
	defer a.lifecycle.Unlock()

	if a.server == nil {
		return nil
	}
	return a.server.Addr()
}

// Wait blocks until the serve loop ends and returns its error. The App is
// unbound again by the time Wait returns.
// It returns nil immediately when the App is not listening.
func (a *App) Wait() error {
	a.lifecycle.Lock()
	done := a.done
	a.lifecycle.Unlock()

	if done == nil {
		return nil
	}
	<-done

	a.lifecycle.Lock()
	defer a.lifecycle.Unlock()
	return a.serveErr
}

// Shutdown stops the listener gracefully and returns the App to unbound
// once the serve loop has ended and the address is free again.
func (a *App) Shutdown(ctx context.Context) error {
	a.lifecycle.Lock()
	srv := a.server
	done := a.done
	a.lifecycle.Unlock()

	if srv == nil {
		return nil
	}

	err := srv.Shutdown(ctx)
	<-done
	return err
}

func loadCredentials(keyFile, certFile string) (tls.Certificate, error) {
	keyPEM, err := os.ReadFile(keyFile)
	if err != nil {
		return tls.Certificate{}, &CredentialError{File: keyFile, Err: err}
	}

	certPEM, err := os.ReadFile(certFile)
	if err != nil {
		return tls.Certificate{}, &CredentialError{File: certFile, Err: err}
	}

	cert, err := tls.X509KeyPair(certPEM, keyPEM)
	if err != nil {
		return tls.Certificate{}, &CredentialError{Err: err}
	}

	return cert, nil
}

func normalize(path string) string {
	return strings.ToLower(path)
}
