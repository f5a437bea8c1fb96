// Package metrics provides real-time per-route metrics for the router.
//
// It uses a channel-based event pipeline to asynchronously collect:
//   - Request counts per route
//   - Response times with percentile calculations (P50, P95, P99)
//   - HTTP status code distribution
//   - Requests aborted by an unhandled failure
//
// The collector runs in a dedicated goroutine and processes events without
// blocking the request path. Events are sent with non-blocking semantics so
// a slow consumer never delays a response.
//
// Example usage:
//
//	prom := metrics.NewPrometheus("routekit")
//	collector := metrics.NewCollector(1000, logger, metrics.WithPrometheus(prom))
//	collector.Start(ctx)
//
//	collector.Emit(metrics.MetricEvent{
//		Type:       metrics.EventResponseCompleted,
//		Route:      "/hello",
//		Duration:   150 * time.Millisecond,
//		StatusCode: 200,
//	})
//
//	snapshot := collector.Snapshot()
//
// Snapshots are served as JSON by Collector.Handler; the Prometheus mirror
// is served by Prometheus.Handler.
package metrics
