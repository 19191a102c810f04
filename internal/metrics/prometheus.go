// Package metrics exposes Prometheus instrumentation for both services. A
// Collector satisfies the MetricsCollector interfaces of the ledger and saga
// packages and serves its own registry on /metrics.
package metrics

import (
	"database/sql"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Collector struct {
	registry *prometheus.Registry

	httpRequests *prometheus.CounterVec
	httpLatency  *prometheus.HistogramVec

	ledgerOps     *prometheus.CounterVec
	ledgerLatency *prometheus.HistogramVec

	sagaOutcomes *prometheus.CounterVec
	sagaSteps    *prometheus.HistogramVec
}

// New builds a collector whose series are prefixed with namespace.
func New(namespace string) *Collector {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Collector{
		registry: reg,
		httpRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		httpLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		ledgerOps: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ledger_operations_total",
			Help:      "Ledger operations by kind and result.",
		}, []string{"operation", "result"}),
		ledgerLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "ledger_operation_duration_seconds",
			Help:      "Time spent in a ledger unit of work.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		sagaOutcomes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "saga_outcomes_total",
			Help:      "Finished sagas by kind and terminal state.",
		}, []string{"kind", "state"}),
		sagaSteps: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "saga_step_duration_seconds",
			Help:      "Latency of each saga step.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"step"}),
	}
}

// RegisterDB exports the pool statistics of db.
func (c *Collector) RegisterDB(db *sql.DB, name string) {
	c.registry.MustRegister(collectors.NewDBStatsCollector(db, name))
}

func (c *Collector) RecordOperationDuration(operation string, duration time.Duration) {
	c.ledgerLatency.WithLabelValues(operation).Observe(duration.Seconds())
}

func (c *Collector) RecordOperationResult(operation, result string) {
	c.ledgerOps.WithLabelValues(operation, result).Inc()
}

func (c *Collector) RecordSagaOutcome(kind, state string) {
	c.sagaOutcomes.WithLabelValues(kind, state).Inc()
}

func (c *Collector) RecordStepDuration(step string, duration time.Duration) {
	c.sagaSteps.WithLabelValues(step).Observe(duration.Seconds())
}

// Middleware records every request under its route pattern.
func (c *Collector) Middleware() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		start := time.Now()
		err := ctx.Next()

		route := ctx.Route().Path
		status := ctx.Response().StatusCode()
		if err != nil {
			if fe, ok := err.(*fiber.Error); ok {
				status = fe.Code
			} else {
				status = fiber.StatusInternalServerError
			}
		}
		c.httpRequests.WithLabelValues(ctx.Method(), route, strconv.Itoa(status)).Inc()
		c.httpLatency.WithLabelValues(ctx.Method(), route).Observe(time.Since(start).Seconds())
		return err
	}
}

// Handler serves the registry in the Prometheus text format.
func (c *Collector) Handler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{}))
}

// Registry exposes the underlying registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}
