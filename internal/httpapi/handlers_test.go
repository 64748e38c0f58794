package httpapi

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/edgecomet/render-service/internal/browser"
	"github.com/edgecomet/render-service/internal/metrics"
	"github.com/edgecomet/render-service/internal/ratelimit"
	"github.com/edgecomet/render-service/pkg/types"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()

	cfg := browser.DefaultConfig()
	cfg.MinBrowsers = 0
	cfg.MaxBrowsers = 2
	pool, err := browser.NewPool(cfg, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, pool.Initialize(context.Background()))
	t.Cleanup(func() { _ = pool.Shutdown() })

	limiter := ratelimit.New(true, time.Minute, 5)
	t.Cleanup(limiter.Stop)

	collector := metrics.NewWithRegistry("httpapitest", prometheus.NewRegistry(), zap.NewNop())

	return New(pool, nil, limiter, collector, true, zap.NewNop())
}

func TestStatusForResponseSuccess(t *testing.T) {
	resp := &types.RenderResponse{Success: true}
	assert.Equal(t, fasthttp.StatusOK, statusForResponse(resp))
}

func TestStatusForResponseTimeout(t *testing.T) {
	resp := &types.RenderResponse{
		Success: false,
		Errors:  []types.ErrorDetail{{Code: types.ErrCodeTimeout}},
	}
	assert.Equal(t, fasthttp.StatusGatewayTimeout, statusForResponse(resp))
}

func TestStatusForResponseTotalTimeout(t *testing.T) {
	resp := &types.RenderResponse{
		Success: false,
		Errors:  []types.ErrorDetail{{Code: types.ErrCodeTotalTimeout}},
	}
	assert.Equal(t, fasthttp.StatusGatewayTimeout, statusForResponse(resp))
}

func TestStatusForResponseDefaultsToInternalError(t *testing.T) {
	resp := &types.RenderResponse{
		Success: false,
		Errors:  []types.ErrorDetail{{Code: types.ErrCodeRenderFailed}},
	}
	assert.Equal(t, fasthttp.StatusInternalServerError, statusForResponse(resp))
}

func TestHandleHealthReportsPoolAndLimiter(t *testing.T) {
	s := newTestServer(t)

	var ctx fasthttp.RequestCtx
	ctx.Request.Header.SetMethod(fasthttp.MethodGet)
	ctx.Request.SetRequestURI("/health")

	s.handleHealth(&ctx)

	assert.Equal(t, fasthttp.StatusOK, ctx.Response.StatusCode())
	assert.Contains(t, string(ctx.Response.Body()), `"status":"ok"`)
	assert.Contains(t, string(ctx.Response.Body()), `"rate_limiter"`)
}

func TestHandlePoolStatusReportsZeroBrowsers(t *testing.T) {
	s := newTestServer(t)

	var ctx fasthttp.RequestCtx
	ctx.Request.Header.SetMethod(fasthttp.MethodGet)
	ctx.Request.SetRequestURI("/v1/pool/status")

	s.handlePoolStatus(&ctx)

	assert.Equal(t, fasthttp.StatusOK, ctx.Response.StatusCode())
	assert.Contains(t, string(ctx.Response.Body()), `"total_browsers":0`)
}

func TestHandleIdentityListsEndpoints(t *testing.T) {
	s := newTestServer(t)

	var ctx fasthttp.RequestCtx
	ctx.Request.Header.SetMethod(fasthttp.MethodGet)
	ctx.Request.SetRequestURI("/")

	s.handleIdentity(&ctx)

	assert.Equal(t, fasthttp.StatusOK, ctx.Response.StatusCode())
	assert.Contains(t, string(ctx.Response.Body()), "render-service")
}

func TestHandleRenderRejectsInvalidJSON(t *testing.T) {
	s := newTestServer(t)

	var ctx fasthttp.RequestCtx
	ctx.Request.Header.SetMethod(fasthttp.MethodPost)
	ctx.Request.SetRequestURI("/v1/render")
	ctx.Request.SetBody([]byte("not json"))

	s.handleRender(&ctx)

	assert.Equal(t, fasthttp.StatusBadRequest, ctx.Response.StatusCode())
	assert.Contains(t, string(ctx.Response.Body()), types.ErrCodeValidationError)
}

func TestHandleRenderRejectsMissingURL(t *testing.T) {
	s := newTestServer(t)

	var ctx fasthttp.RequestCtx
	ctx.Request.Header.SetMethod(fasthttp.MethodPost)
	ctx.Request.SetRequestURI("/v1/render")
	ctx.Request.SetBody([]byte(`{}`))

	s.handleRender(&ctx)

	assert.Equal(t, fasthttp.StatusBadRequest, ctx.Response.StatusCode())
}

func TestHandleRenderEnforcesRateLimit(t *testing.T) {
	s := newTestServer(t)
	s.limiter = ratelimit.New(true, time.Minute, 0)
	t.Cleanup(s.limiter.Stop)

	var ctx fasthttp.RequestCtx
	ctx.Request.Header.SetMethod(fasthttp.MethodPost)
	ctx.Request.SetRequestURI("/v1/render")
	ctx.Request.SetBody([]byte(`{"url":"https://example.com"}`))

	s.handleRender(&ctx)

	assert.Equal(t, fasthttp.StatusTooManyRequests, ctx.Response.StatusCode())
	assert.Equal(t, "0", string(ctx.Response.Header.Peek("X-RateLimit-Limit")))
	assert.Equal(t, "0", string(ctx.Response.Header.Peek("X-RateLimit-Remaining")))
	assert.NotEmpty(t, string(ctx.Response.Header.Peek("X-RateLimit-Reset")))
}

func TestHandleRenderSetsRateLimitHeadersWhenAllowed(t *testing.T) {
	s := newTestServer(t)
	s.limiter = ratelimit.New(true, time.Minute, 5)
	t.Cleanup(s.limiter.Stop)

	var ctx fasthttp.RequestCtx
	ctx.Request.Header.SetMethod(fasthttp.MethodPost)
	ctx.Request.SetRequestURI("/v1/render")
	ctx.Request.SetBody([]byte(`{}`))

	s.handleRender(&ctx)

	assert.Equal(t, fasthttp.StatusBadRequest, ctx.Response.StatusCode())
	assert.Equal(t, "5", string(ctx.Response.Header.Peek("X-RateLimit-Limit")))
	assert.Equal(t, "4", string(ctx.Response.Header.Peek("X-RateLimit-Remaining")))
	assert.NotEmpty(t, string(ctx.Response.Header.Peek("X-RateLimit-Reset")))
}
