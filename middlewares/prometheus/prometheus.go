package prometheus

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// FiberPrometheus records request counts, latencies and in-flight requests
// for a fiber app on its own registry.
type FiberPrometheus struct {
	registry    *prometheus.Registry
	constLabels prometheus.Labels

	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight *prometheus.GaugeVec

	skip map[string]struct{}
}

func New(serviceName string) *FiberPrometheus {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	constLabels := prometheus.Labels{"service": serviceName}

	p := &FiberPrometheus{
		registry:    registry,
		constLabels: constLabels,
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "http_requests_total",
			Help:        "Count all http requests by status code, method and path.",
			ConstLabels: constLabels,
		}, []string{"status_code", "method", "path"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:        "http_request_duration_seconds",
			Help:        "Duration of all HTTP requests by status code, method and path.",
			ConstLabels: constLabels,
			Buckets:     prometheus.DefBuckets,
		}, []string{"status_code", "method", "path"}),
		requestInFlight: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name:        "http_requests_in_progress_total",
			Help:        "All the requests in progress",
			ConstLabels: constLabels,
		}, []string{"method"}),
		skip: map[string]struct{}{},
	}

	registry.MustRegister(p.requestsTotal, p.requestDuration, p.requestInFlight)
	return p
}

func (p *FiberPrometheus) GetRegistry() *prometheus.Registry {
	return p.registry
}

func (p *FiberPrometheus) GetConstLabels() prometheus.Labels {
	return p.constLabels
}

// RegisterAt exposes the registry at path. The path itself is not measured.
func (p *FiberPrometheus) RegisterAt(app fiber.Router, path string, handlers ...fiber.Handler) {
	p.skip[path] = struct{}{}

	h := adaptor.HTTPHandler(promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{}))
	app.Get(path, append(handlers, h)...)
}

func (p *FiberPrometheus) Middleware(c *fiber.Ctx) error {
	if _, ok := p.skip[c.Path()]; ok {
		return c.Next()
	}

	start := time.Now()
	method := c.Method()

	p.requestInFlight.WithLabelValues(method).Inc()
	defer p.requestInFlight.WithLabelValues(method).Dec()

	err := c.Next()

	status := fiber.StatusInternalServerError
	if err != nil {
		if e, ok := err.(*fiber.Error); ok {
			status = e.Code
		}
	} else {
		status = c.Response().StatusCode()
	}

	// Route pattern rather than raw path keeps label cardinality bounded.
	path := c.Route().Path
	statusCode := strconv.Itoa(status)

	p.requestsTotal.WithLabelValues(statusCode, method, path).Inc()
	p.requestDuration.WithLabelValues(statusCode, method, path).Observe(time.Since(start).Seconds())

	return err
}
