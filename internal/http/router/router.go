// Package router mounts generated resource routes on a chi router and
// serves them with request logging and Prometheus metrics.
package router

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/aanand-mishra/crudgen/internal/http/handlers"
	"github.com/aanand-mishra/crudgen/internal/resource"
	"github.com/aanand-mishra/crudgen/internal/validation"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsPath is where the Prometheus exposition is served.
const MetricsPath = "/metrics"

// Router serves generated routes. Mount every route table before the
// server starts; Router is not safe for concurrent Mount calls.
type Router struct {
	mux       chi.Router
	validator *validation.Validator
	metrics   *Metrics
	logger    *slog.Logger
	routes    []resource.Route
	seen      map[string]bool
}

type options struct {
	logger    *slog.Logger
	validator *validation.Validator
	registry  *prometheus.Registry
}

// Option customises New.
type Option func(*options)

// WithLogger sets the logger requests are logged to.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithValidator sets the payload validator. New builds one by default.
func WithValidator(v *validation.Validator) Option {
	return func(o *options) { o.validator = v }
}

// WithRegistry registers metrics on reg and serves reg at /metrics. Without
// it every Router gets a registry of its own.
func WithRegistry(reg *prometheus.Registry) Option {
	return func(o *options) { o.registry = reg }
}

// New returns a Router with no resource routes and /metrics mounted.
func New(opts ...Option) *Router {
	o := options{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.validator == nil {
		o.validator = validation.New()
	}

	if o.registry == nil {
		o.registry = prometheus.NewRegistry()
	}
	exporter := promhttp.HandlerFor(o.registry, promhttp.HandlerOpts{})

	mux := chi.NewRouter()
	mux.Use(middleware.RequestID)
	mux.Use(middleware.Recoverer)
	mux.Use(requestLogger(o.logger))
	mux.Handle(MetricsPath, exporter)

	return &Router{
		mux:       mux,
		validator: o.validator,
		metrics:   NewMetrics(o.registry),
		logger:    o.logger,
		seen:      make(map[string]bool),
	}
}

// Mount registers every route of a route table. A method and path that is
// already mounted is an error and nothing from routes is registered.
func (rt *Router) Mount(routes []resource.Route) error {
	batch := make(map[string]bool, len(routes))
	for _, route := range routes {
		if route.Handler == nil {
			return fmt.Errorf("router.Mount: %s %s: no handler", route.Method, route.Path)
		}
		k := key(route)
		if rt.seen[k] || batch[k] {
			return fmt.Errorf("router.Mount: %s %s: already mounted", route.Method, route.Path)
		}
		batch[k] = true
	}

	for _, route := range routes {
		rt.mux.Method(route.Method, route.Path, rt.instrument(route, handlers.New(route, rt.validator, rt.logger)))
		rt.seen[key(route)] = true
		rt.routes = append(rt.routes, route)

		rt.logger.Debug("route mounted",
			slog.String("method", route.Method),
			slog.String("path", route.Path),
			slog.String("op", route.Op.String()))
	}
	return nil
}

// MountHandler attaches h under pattern, e.g. the docs sub-router at "/docs".
func (rt *Router) MountHandler(pattern string, h http.Handler) {
	rt.mux.Mount(pattern, h)
}

// Handle serves h at exactly pattern.
func (rt *Router) Handle(pattern string, h http.Handler) {
	rt.mux.Handle(pattern, h)
}

// Routes returns every mounted route in mount order.
func (rt *Router) Routes() []resource.Route {
	out := make([]resource.Route, len(rt.routes))
	copy(out, rt.routes)
	return out
}

func (rt *Router) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rt.mux.ServeHTTP(w, r)
}

func (rt *Router) instrument(route resource.Route, next http.Handler) http.Handler {
	op := route.Op.String()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		rt.metrics.observe(route.Resource, op, ww.Status(), start)
	})
}

func key(route resource.Route) string {
	return route.Method + " " + route.Path
}

// requestLogger logs one line per request, skipping the metrics scrape.
func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			if r.URL.Path == MetricsPath {
				return
			}
			logger.Info("http request",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", ww.Status()),
				slog.Int("bytes", ww.BytesWritten()),
				slog.Duration("duration", time.Since(start)),
				slog.String("request_id", middleware.GetReqID(r.Context())))
		})
	}
}
