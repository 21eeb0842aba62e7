package obs

import (
	"strconv"
	"time"

	"go-survey-console/internal/routes"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups every console collector. It satisfies apiclient.Observer.
type Metrics struct {
	registry *prometheus.Registry

	httpInFlight        prometheus.Gauge
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	upstreamRequests *prometheus.CounterVec
	upstreamDuration *prometheus.HistogramVec
	tokenRefreshes   *prometheus.CounterVec

	gateDecisions *prometheus.CounterVec
	crudOps       *prometheus.CounterVec
	wsClients     prometheus.Gauge
}

// New registers the collectors on a fresh registry, plus the Go and
// process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		httpInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "console_http_in_flight_requests",
			Help: "In-flight console HTTP requests.",
		}),
		httpRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "console_http_requests_total",
			Help: "Total number of console HTTP requests.",
		}, []string{"method", "route", "status"}),
		httpRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "console_http_request_duration_seconds",
			Help:    "Console HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
		upstreamRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "console_upstream_requests_total",
			Help: "Requests sent to the upstream API, by status.",
		}, []string{"method", "status"}),
		upstreamDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "console_upstream_request_duration_seconds",
			Help:    "Upstream API latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method"}),
		tokenRefreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "console_token_refreshes_total",
			Help: "Access token refresh attempts, by result.",
		}, []string{"result"}),
		gateDecisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "console_gate_decisions_total",
			Help: "Route gate outcomes.",
		}, []string{"state"}),
		crudOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "console_crud_operations_total",
			Help: "Settings page writes, by schema, operation and result.",
		}, []string{"schema", "op", "result"}),
		wsClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "console_ws_clients",
			Help: "Connected navigation websockets.",
		}),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpInFlight, m.httpRequestsTotal, m.httpRequestDuration,
		m.upstreamRequests, m.upstreamDuration, m.tokenRefreshes,
		m.gateDecisions, m.crudOps, m.wsClients,
	)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves /metrics.
func (m *Metrics) Handler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
}

// Middleware measures every request, labelled by route pattern so that
// ids do not blow up cardinality.
func (m *Metrics) Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		m.httpInFlight.Inc()
		defer m.httpInFlight.Dec()
		start := time.Now()

		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			if fe, ok := err.(*fiber.Error); ok {
				status = fe.Code
			} else {
				status = fiber.StatusInternalServerError
			}
		}
		route := c.Route().Path
		labels := []string{c.Method(), route, strconv.Itoa(status)}
		m.httpRequestDuration.WithLabelValues(labels...).Observe(time.Since(start).Seconds())
		m.httpRequestsTotal.WithLabelValues(labels...).Inc()
		return err
	}
}

func (m *Metrics) ObserveRequest(method string, status int, elapsed time.Duration) {
	m.upstreamRequests.WithLabelValues(method, strconv.Itoa(status)).Inc()
	m.upstreamDuration.WithLabelValues(method).Observe(elapsed.Seconds())
}

func (m *Metrics) ObserveRefresh(result string) {
	m.tokenRefreshes.WithLabelValues(result).Inc()
}

// ObserveDecision is passed to routes.NewGate.
func (m *Metrics) ObserveDecision(d routes.Decision) {
	m.gateDecisions.WithLabelValues(d.State.String()).Inc()
}

// ObserveCRUD is assigned to crud.Registry.Observe.
func (m *Metrics) ObserveCRUD(schema, op string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.crudOps.WithLabelValues(schema, op, result).Inc()
}

func (m *Metrics) ClientConnected()    { m.wsClients.Inc() }
func (m *Metrics) ClientDisconnected() { m.wsClients.Dec() }
