package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Prometheus exports the collector's events as Prometheus series on its
// own registry.
type Prometheus struct {
	registry        *prometheus.Registry
	requestsTotal   *prometheus.CounterVec
	responsesTotal  *prometheus.CounterVec
	responseSeconds *prometheus.HistogramVec
	abortedTotal    *prometheus.CounterVec
}

func NewPrometheus(namespace string) *Prometheus {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Prometheus{
		registry: registry,
		requestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Total number of requests received per route",
		}, []string{"route"}),

		responsesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "responses_total",
			Help:      "Total number of responses written per route and status code",
		}, []string{"route", "code"}),

		responseSeconds: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "response_duration_seconds",
			Help:      "Time from request received to response completed",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),

		abortedTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_aborted_total",
			Help:      "Requests whose failure reached the transport unhandled",
		}, []string{"route"}),
	}
}

// Registry exposes the registry for gathering in tests or custom exporters.
func (p *Prometheus) Registry() *prometheus.Registry {
	return p.registry
}

func (p *Prometheus) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}

func (p *Prometheus) observe(event MetricEvent) {
	switch event.Type {
	case EventRequestReceived:
		p.requestsTotal.WithLabelValues(event.Route).Inc()
	case EventResponseCompleted:
		p.responsesTotal.WithLabelValues(event.Route, strconv.Itoa(event.StatusCode)).Inc()
		p.responseSeconds.WithLabelValues(event.Route).Observe(event.Duration.Seconds())
	case EventRequestAborted:
		p.abortedTotal.WithLabelValues(event.Route).Inc()
	}
}
