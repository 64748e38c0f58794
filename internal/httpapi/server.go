// Package httpapi wires the render pipeline, rate limiter, and browser pool
// to the fasthttp request surface: POST /v1/render, GET /health,
// GET /v1/pool/status, and GET /.
package httpapi

import (
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/edgecomet/render-service/internal/browser"
	"github.com/edgecomet/render-service/internal/metrics"
	"github.com/edgecomet/render-service/internal/pipeline"
	"github.com/edgecomet/render-service/internal/ratelimit"
)

const serviceName = "render-service"

// Server holds the dependencies the HTTP handlers need.
type Server struct {
	pool        *browser.Pool
	pipeline    *pipeline.Pipeline
	limiter     *ratelimit.Limiter
	metrics     *metrics.Collector
	logger      *zap.Logger
	corsEnabled bool
	startedAt   time.Time
}

// New builds a Server.
func New(pool *browser.Pool, pl *pipeline.Pipeline, limiter *ratelimit.Limiter, collector *metrics.Collector, corsEnabled bool, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		pool:        pool,
		pipeline:    pl,
		limiter:     limiter,
		metrics:     collector,
		logger:      logger,
		corsEnabled: corsEnabled,
		startedAt:   time.Now(),
	}
}

// Handler builds the routed fasthttp.RequestHandler.
func (s *Server) Handler() fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		if s.corsEnabled {
			applyCORS(ctx)
			if string(ctx.Method()) == fasthttp.MethodOptions {
				ctx.SetStatusCode(fasthttp.StatusNoContent)
				return
			}
		}

		path := string(ctx.Path())
		method := string(ctx.Method())

		switch {
		case method == fasthttp.MethodPost && path == "/v1/render":
			s.handleRender(ctx)
		case method == fasthttp.MethodGet && path == "/health":
			s.handleHealth(ctx)
		case method == fasthttp.MethodGet && path == "/v1/pool/status":
			s.handlePoolStatus(ctx)
		case method == fasthttp.MethodGet && path == "/":
			s.handleIdentity(ctx)
		default:
			ctx.SetStatusCode(fasthttp.StatusNotFound)
			ctx.SetBodyString("Not Found")
			s.metrics.RecordHTTPRequest(path, "404")
		}
	}
}

func applyCORS(ctx *fasthttp.RequestCtx) {
	ctx.Response.Header.Set("Access-Control-Allow-Origin", "*")
	ctx.Response.Header.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	ctx.Response.Header.Set("Access-Control-Allow-Headers", "Content-Type, X-Request-ID, X-Forwarded-For")
}
