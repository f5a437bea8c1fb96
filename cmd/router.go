package main

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/angeloszaimis/routekit/config"
	"github.com/angeloszaimis/routekit/internal/handler"
	"github.com/angeloszaimis/routekit/internal/metrics"
	"github.com/angeloszaimis/routekit/pkg/router"
)

const maxEchoBytes = 1 << 20

func newApp(cfg *config.Config, log *slog.Logger, collector *metrics.Collector, prom *metrics.Prometheus) (*router.App, error) {
	opts := []router.Option{
		router.WithErrorLog(log),
		router.WithWrapper(handler.Middleware(log, collector)),
	}
	if cfg.TLS.Enabled {
		opts = append(opts, router.WithTLS(cfg.TLS.KeyFile, cfg.TLS.CertFile))
	}
	if cfg.Favicon.File != "" {
		opts = append(opts, router.WithFavicon(cfg.Favicon.File))
	}

	app, err := router.New(opts...)
	if err != nil {
		return nil, err
	}

	app.AddRoutes(
		router.NewRoute("/").Get(index),
		router.NewRoute("/health").Get(health).Head(health),
		router.NewRoute("/echo").Post(echo).Put(echo),
	)

	if collector != nil {
		app.AddRoute(router.NewRoute("/metrics").Get(serveWith(collector.Handler())))
	}
	if prom != nil {
		app.AddRoute(router.NewRoute("/metrics/prometheus").Get(serveWith(prom.Handler())))
	}

	app.OnError(func(w http.ResponseWriter, r *http.Request, err error) (router.Result, error) {
		if errors.Is(err, router.ErrRouteNotFound) || errors.Is(err, router.ErrMethodNotAllowed) {
			return router.Result{}, err
		}

		log.Error("Request failed",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Any("err", err))
		return router.Respond(http.StatusInternalServerError, "Internal Server Error"), nil
	})

	return app, nil
}

func index(w http.ResponseWriter, r *http.Request) (router.Result, error) {
	return router.Respond(http.StatusOK, "routekit"), nil
}

func health(w http.ResponseWriter, r *http.Request) (router.Result, error) {
	return router.Respond(http.StatusOK, "ok"), nil
}

func echo(w http.ResponseWriter, r *http.Request) (router.Result, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxEchoBytes))
	if err != nil {
		return router.Result{}, err
	}
	return router.Respond(http.StatusOK, string(body)), nil
}

// serveWith adapts a plain http.Handler to a route handler.
func serveWith(h http.Handler) router.Handler {
	return func(w http.ResponseWriter, r *http.Request) (router.Result, error) {
		h.ServeHTTP(w, r)
		return router.Written(), nil
	}
}
