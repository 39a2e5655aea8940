package router

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the request metrics of generated routes.
type Metrics struct {
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
}

// NewMetrics registers the route metrics on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "crudgen",
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "Total number of requests handled by generated routes",
			},
			[]string{"resource", "operation", "code"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "crudgen",
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "Request duration of generated routes in seconds",
				Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
			},
			[]string{"resource", "operation"},
		),
	}
}

func (m *Metrics) observe(resource, operation string, status int, start time.Time) {
	m.RequestsTotal.WithLabelValues(resource, operation, strconv.Itoa(status)).Inc()
	m.RequestDuration.WithLabelValues(resource, operation).Observe(time.Since(start).Seconds())
}
