package router

import (
	"net/http"
	"strings"
	"sync"
)

// Method is a lowercased HTTP method name a Route can bind.
type Method string

const (
	MethodGet     Method = "get"
	MethodPost    Method = "post"
	MethodPut     Method = "put"
	MethodPatch   Method = "patch"
	MethodHead    Method = "head"
	MethodOptions Method = "options"
)

// Methods lists every method a Route binds, in registration order.
var Methods = []Method{MethodGet, MethodPost, MethodPut, MethodPatch, MethodHead, MethodOptions}

const notSupportedBody = "Method not supported by route"

// Handler serves one method of one route.
type Handler func(w http.ResponseWriter, r *http.Request) (Result, error)

// ErrorHandler recovers a failure raised while serving a request.
// Returning an error passes the failure on to the next level.
type ErrorHandler func(w http.ResponseWriter, r *http.Request, err error) (Result, error)

// NotSupported is bound to every method a Route has not registered.
func NotSupported(w http.ResponseWriter, r *http.Request) (Result, error) {
	return Respond(http.StatusInternalServerError, notSupportedBody), nil
}

// Route binds a path to per-method handlers. Handlers may be rebound
// while the Route is serving requests.
type Route struct {
	path string

	mutex        sync.RWMutex
	handlers     map[Method]Handler
	registered   map[Method]bool
	errorHandler ErrorHandler
}

// NewRoute creates a Route for path with every method bound to
// NotSupported. The path should be non-empty; it is not checked.
func NewRoute(path string) *Route {
	handlers := make(map[Method]Handler, len(Methods))
	for _, m := range Methods {
		handlers[m] = NotSupported
	}

	return &Route{
		path:       path,
		handlers:   handlers,
		registered: make(map[Method]bool, len(Methods)),
	}
}

func (rt *Route) Path() string { return rt.path }

func (rt *Route) Get(h Handler) *Route     { return rt.handle(MethodGet, h) }
func (rt *Route) Post(h Handler) *Route    { return rt.handle(MethodPost, h) }
func (rt *Route) Put(h Handler) *Route     { return rt.handle(MethodPut, h) }
func (rt *Route) Patch(h Handler) *Route   { return rt.handle(MethodPatch, h) }
func (rt *Route) Head(h Handler) *Route    { return rt.handle(MethodHead, h) }
func (rt *Route) Options(h Handler) *Route { return rt.handle(MethodOptions, h) }

// OnError installs the route-level error handler, replacing any previous one.
func (rt *Route) OnError(h ErrorHandler) *Route {
	rt.mutex.Lock()
	defer rt.mutex.Unlock()

	rt.errorHandler = h
	return rt
}

func (rt *Route) ErrorHandler() ErrorHandler {
	rt.mutex.RLock()
	defer rt.mutex.RUnlock()

	return rt.errorHandler
}

// Handler returns the handler bound to method. The lookup is
// case-insensitive and fails only for methods outside Methods.
func (rt *Route) Handler(method string) (Handler, bool) {
	rt.mutex.RLock()
	defer rt.mutex.RUnlock()

	h, ok := rt.handlers[Method(strings.ToLower(method))]
	return h, ok
}

// allowed lists the methods with a registered handler, uppercased for an
// Allow header.
func (rt *Route) allowed() []string {
	rt.mutex.RLock()
	defer rt.mutex.RUnlock()

	var out []string
	for _, m := range Methods {
		if !rt.registered[m] {
			continue
		}
		out = append(out, strings.ToUpper(string(m)))
	}
	return out
}

func (rt *Route) handle(m Method, h Handler) *Route {
	rt.mutex.Lock()
	defer rt.mutex.Unlock()

	rt.registered[m] = h != nil
	if h == nil {
		h = NotSupported
	}
	rt.handlers[m] = h
	return rt
}
