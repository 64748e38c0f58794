// Package metrics centralizes Prometheus instrumentation for the render
// service: pool occupancy, render outcomes/duration, rate-limit rejections,
// detection hits, and HTTP request counts.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"
)

// Collector is the single entry point application code records metrics
// through; it hides the underlying Prometheus instruments.
type Collector struct {
	prom   *prometheusMetrics
	logger *zap.Logger
}

// New creates a Collector registered against the default Prometheus registry.
func New(namespace string, logger *zap.Logger) *Collector {
	return NewWithRegistry(namespace, prometheus.DefaultRegisterer, logger)
}

// NewWithRegistry creates a Collector against a caller-supplied registry,
// primarily for test isolation.
func NewWithRegistry(namespace string, registerer prometheus.Registerer, logger *zap.Logger) *Collector {
	return &Collector{
		prom:   newPrometheusMetrics(namespace, registerer, logger),
		logger: logger,
	}
}

// SetPoolSize records the current total number of browser instances.
func (c *Collector) SetPoolSize(n int) { c.prom.poolSize.Set(float64(n)) }

// SetPoolAvailable records the current number of free context slots across
// the pool.
func (c *Collector) SetPoolAvailable(n int) { c.prom.poolAvailable.Set(float64(n)) }

// SetQueueDepth records the current lease-wait queue depth.
func (c *Collector) SetQueueDepth(n int) { c.prom.queueDepth.Set(float64(n)) }

// RecordRender records one render outcome ("success", "error", or a lowercase error code).
func (c *Collector) RecordRender(outcome string) {
	c.prom.rendersTotal.WithLabelValues(outcome).Inc()
}

// RecordRenderDuration records how long one render took, in seconds.
func (c *Collector) RecordRenderDuration(seconds float64) {
	c.prom.renderDuration.Observe(seconds)
}

// RecordRateLimitRejection records one request denied by the rate limiter.
func (c *Collector) RecordRateLimitRejection() {
	c.prom.rateLimitRejections.Inc()
}

// RecordDetectionHit records one positive detection result, classifier
// being "captcha" or "block" and kind being the detected type/provider.
func (c *Collector) RecordDetectionHit(classifier, kind string) {
	c.prom.detectionHits.WithLabelValues(classifier, kind).Inc()
}

// RecordHTTPRequest records one completed HTTP request.
func (c *Collector) RecordHTTPRequest(endpoint, status string) {
	c.prom.httpRequests.WithLabelValues(endpoint, status).Inc()
}

// RecordError records one error by its spec error code.
func (c *Collector) RecordError(code string) {
	c.prom.errorsTotal.WithLabelValues(code).Inc()
}

// ServeHTTP implements metricsserver.MetricsHandler.
func (c *Collector) ServeHTTP(ctx *fasthttp.RequestCtx) {
	c.prom.ServeHTTP(ctx)
}
