package handler

import (
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/angeloszaimis/routekit/internal/metrics"
	"github.com/angeloszaimis/routekit/pkg/router"
)

const (
	RequestIDHeader = "X-Request-ID"
	// UnmatchedRoute labels requests for paths with no route, keeping
	// metric cardinality bounded.
	UnmatchedRoute = "unmatched"
)

// Resolver reports which route a path resolves to. *router.App satisfies it.
type Resolver interface {
	Route(path string) (*router.Route, bool)
}

// AccessHandler logs every request, tags it with a request ID and feeds
// the metrics collector. It sits between the listener and the App.
type AccessHandler struct {
	logger           *slog.Logger
	next             http.Handler
	routes           Resolver
	metricsCollector *metrics.Collector
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode  int
	wroteHeader bool
}

// Middleware returns a wrapper suitable for router.WithWrapper.
func Middleware(logger *slog.Logger, collector *metrics.Collector) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return NewAccessHandler(logger, next, collector)
	}
}

func NewAccessHandler(logger *slog.Logger, next http.Handler, collector *metrics.Collector) *AccessHandler {
	h := &AccessHandler{
		logger:           logger,
		next:             next,
		metricsCollector: collector,
	}
	if routes, ok := next.(Resolver); ok {
		h.routes = routes
	}
	return h
}

func (h *AccessHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	requestID := r.Header.Get(RequestIDHeader)
	if requestID == "" {
		requestID = uuid.NewString()
	}
	w.Header().Set(RequestIDHeader, requestID)

	route := h.routeLabel(r)
	log := h.logger.With(
		slog.String("request_id", requestID),
		slog.String("route", route))

	log.Debug("Received request",
		slog.String("from", extractClientIP(r)),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.String("proto", r.Proto),
		slog.String("host", r.Host),
		slog.String("user_agent", r.UserAgent()))

	h.emitEvent(metrics.MetricEvent{
		Type:      metrics.EventRequestReceived,
		Timestamp: time.Now(),
		Route:     route,
	})

	start := time.Now()
	wrapped := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}

	defer func() {
		if v := recover(); v != nil {
			h.emitEvent(metrics.MetricEvent{
				Type:      metrics.EventRequestAborted,
				Timestamp: time.Now(),
				Route:     route,
			})
			log.Error("Request aborted by unhandled failure",
				slog.String("method", r.Method),
				slog.Any("err", v))
			panic(v)
		}
	}()

	h.next.ServeHTTP(wrapped, r)

	duration := time.Since(start)
	h.emitEvent(metrics.MetricEvent{
		Type:       metrics.EventResponseCompleted,
		Timestamp:  time.Now(),
		Route:      route,
		Duration:   duration,
		StatusCode: wrapped.statusCode,
	})

	log.Info("Request completed",
		slog.String("method", r.Method),
		slog.Int("status", wrapped.statusCode),
		slog.Duration("duration", duration))
}

func (h *AccessHandler) routeLabel(r *http.Request) string {
	if h.routes == nil {
		return r.URL.Path
	}

	route, ok := h.routes.Route(r.URL.Path)
	if !ok {
		return UnmatchedRoute
	}
	return strings.ToLower(route.Path())
}

func extractClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		return strings.TrimSpace(strings.Split(xff, ",")[0])
	}

	host, _, _ := net.SplitHostPort(r.RemoteAddr)
	return host
}

func (h *AccessHandler) emitEvent(event metrics.MetricEvent) {
	if h.metricsCollector == nil {
		return
	}

	h.metricsCollector.Emit(event)
}

func (r *statusRecorder) WriteHeader(code int) {
	if !r.wroteHeader {
		r.statusCode = code
		r.wroteHeader = true
	}
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	r.wroteHeader = true
	return r.ResponseWriter.Write(b)
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}
