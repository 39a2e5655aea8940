package main

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/aanand-mishra/crudgen/internal/config"
	"github.com/aanand-mishra/crudgen/internal/http/docs"
	"github.com/aanand-mishra/crudgen/internal/http/router"
	"github.com/aanand-mishra/crudgen/internal/manifest"
	"github.com/aanand-mishra/crudgen/internal/microblog"
	"github.com/aanand-mishra/crudgen/internal/resource"
	"github.com/aanand-mishra/crudgen/internal/store"
	"github.com/aanand-mishra/crudgen/internal/store/redis"
	"github.com/aanand-mishra/crudgen/internal/store/sqlite"
	"github.com/aanand-mishra/crudgen/internal/utils/response"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	apiTitle   = "API Documentation"
	apiVersion = "0.1.0"
	docsPrefix = "/docs"
)

// openStore connects to the store selected by cfg.Storage.Driver.
func openStore(cfg *config.Config) (store.Conn, error) {
	switch cfg.Storage.Driver {
	case config.DriverRedis:
		return redis.New(cfg)
	case config.DriverSQLite:
		return sqlite.New(cfg)
	}
	return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
}

// buildResources decorates the built-in resources and, when manifestPath is
// set, the resources declared there. Models bind on the default connection.
func buildResources(cfg *config.Config, manifestPath string, log *slog.Logger) ([]*resource.Resource, error) {
	policy, err := resource.ParseUpdatePolicy(cfg.UpdatePolicy)
	if err != nil {
		return nil, err
	}
	opts := []resource.Option{
		resource.WithUpdatePolicy(policy),
		resource.WithLogger(log),
	}

	resources, err := microblog.Resources(opts...)
	if err != nil {
		return nil, err
	}

	if manifestPath != "" {
		m, err := manifest.Load(manifestPath)
		if err != nil {
			return nil, err
		}
		extra, err := m.Decorate(opts...)
		if err != nil {
			return nil, err
		}
		resources = append(resources, extra...)
	}

	return resources, nil
}

// newHandler mounts every resource, the docs and the index route.
func newHandler(resources []*resource.Resource, reg *prometheus.Registry, log *slog.Logger) (http.Handler, error) {
	rt := router.New(router.WithLogger(log), router.WithRegistry(reg))

	var routes []resource.Route
	for _, res := range resources {
		if err := rt.Mount(res.Routes); err != nil {
			return nil, err
		}
		routes = append(routes, res.Routes...)
	}

	doc := docs.Build(docs.Info{Title: apiTitle, Version: apiVersion}, routes)
	rt.MountHandler(docsPrefix, docs.Handler(doc, docsPrefix))

	rt.Handle("/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		response.WriteJSON(w, http.StatusOK, map[string]string{"status": response.StatusOK, "message": "microblog server running"})
	}))

	return rt, nil
}

// manifestPath prefers the --manifest flag over the config file.
func manifestPath(flag string, cfg *config.Config) string {
	if flag != "" {
		return flag
	}
	if cfg != nil {
		return cfg.ManifestPath
	}
	return ""
}
