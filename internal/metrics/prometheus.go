package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
	"go.uber.org/zap"
)

// prometheusMetrics holds the registered Prometheus instruments backing Collector.
type prometheusMetrics struct {
	poolSize      prometheus.Gauge
	poolAvailable prometheus.Gauge
	queueDepth    prometheus.Gauge

	rendersTotal   *prometheus.CounterVec
	renderDuration prometheus.Histogram

	rateLimitRejections prometheus.Counter
	detectionHits       *prometheus.CounterVec

	httpRequests *prometheus.CounterVec
	errorsTotal  *prometheus.CounterVec

	httpHandler func(*fasthttp.RequestCtx)
}

func newPrometheusMetrics(namespace string, registerer prometheus.Registerer, logger *zap.Logger) *prometheusMetrics {
	pm := &prometheusMetrics{}

	pm.poolSize = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace, Subsystem: "pool", Name: "size",
		Help: "Total number of browser instances in the pool",
	})
	pm.poolAvailable = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace, Subsystem: "pool", Name: "available",
		Help: "Number of free browsing-context slots across the pool",
	})
	pm.queueDepth = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace, Subsystem: "pool", Name: "queue_depth",
		Help: "Current number of lease requests waiting in queue",
	})

	pm.rendersTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "render", Name: "total",
		Help: "Total number of render requests by outcome",
	}, []string{"outcome"})

	pm.renderDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace, Subsystem: "render", Name: "duration_seconds",
		Help:    "Time spent executing the render pipeline",
		Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
	})

	pm.rateLimitRejections = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "ratelimit", Name: "rejections_total",
		Help: "Total number of requests rejected by the rate limiter",
	})

	pm.detectionHits = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "detection", Name: "hits_total",
		Help: "Total number of detection hits by classifier and type",
	}, []string{"classifier", "type"})

	pm.httpRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "http", Name: "requests_total",
		Help: "Total HTTP requests by endpoint and status",
	}, []string{"endpoint", "status"})

	pm.errorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "errors", Name: "total",
		Help: "Total errors by code",
	}, []string{"code"})

	registerer.MustRegister(
		pm.poolSize,
		pm.poolAvailable,
		pm.queueDepth,
		pm.rendersTotal,
		pm.renderDuration,
		pm.rateLimitRejections,
		pm.detectionHits,
		pm.httpRequests,
		pm.errorsTotal,
	)

	gatherer, ok := registerer.(prometheus.Gatherer)
	if !ok {
		gatherer = prometheus.DefaultGatherer
	}
	pm.httpHandler = fasthttpadaptor.NewFastHTTPHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	logger.Info("prometheus metrics initialized", zap.String("namespace", namespace))
	return pm
}

func (pm *prometheusMetrics) ServeHTTP(ctx *fasthttp.RequestCtx) {
	pm.httpHandler(ctx)
}
