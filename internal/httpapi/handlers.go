package httpapi

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/edgecomet/render-service/internal/common/httputil"
	"github.com/edgecomet/render-service/internal/ratelimit"
	"github.com/edgecomet/render-service/internal/validate"
	"github.com/edgecomet/render-service/pkg/types"
)

func (s *Server) handleRender(ctx *fasthttp.RequestCtx) {
	const path = "/v1/render"

	clientKey := ratelimit.ClientKey(ctx)
	decision := s.limiter.Allow(clientKey)
	setRateLimitHeaders(ctx, decision)
	if !decision.Allowed {
		s.metrics.RecordRateLimitRejection()
		s.metrics.RecordError(types.ErrCodeRateLimited)
		resp := types.NewErrorResponse("", types.ErrCodeRateLimited, "rate limit exceeded")
		s.writeJSON(ctx, fasthttp.StatusTooManyRequests, path, &resp)
		return
	}

	var req types.RenderRequest
	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
		resp := types.NewErrorResponse("", types.ErrCodeValidationError, "invalid JSON body")
		s.metrics.RecordError(types.ErrCodeValidationError)
		s.writeJSON(ctx, fasthttp.StatusBadRequest, path, &resp)
		return
	}

	if errs := validate.Request(&req); len(errs) > 0 {
		resp := types.RenderResponse{
			RequestID: req.RequestID,
			Success:   false,
			URL:       req.URL,
			Errors:    errs,
			Timestamp: time.Now().UTC(),
		}
		s.metrics.RecordError(types.ErrCodeValidationError)
		s.writeJSON(ctx, fasthttp.StatusBadRequest, path, &resp)
		return
	}

	resp := s.pipeline.Render(ctx, &req)

	s.metrics.RecordRenderDuration(float64(resp.Meta.DurationMS) / 1000)
	if resp.Success {
		s.metrics.RecordRender("success")
	} else {
		s.metrics.RecordRender("error")
		for _, e := range resp.Errors {
			s.metrics.RecordError(e.Code)
		}
	}
	if resp.Meta.CaptchaDetected {
		s.metrics.RecordDetectionHit("captcha", "detected")
	}
	if resp.Meta.Blocked {
		s.metrics.RecordDetectionHit("block", "detected")
	}

	s.writeJSON(ctx, statusForResponse(resp), path, resp)

	s.logger.Info("render request handled",
		zap.String("request_id", resp.RequestID),
		zap.String("url", resp.URL),
		zap.Bool("success", resp.Success),
		zap.Int64("duration_ms", resp.Meta.DurationMS))
}

// setRateLimitHeaders writes the X-RateLimit-* headers from d onto ctx,
// on both the allow and deny paths, so callers can self-pace regardless of
// outcome.
func setRateLimitHeaders(ctx *fasthttp.RequestCtx, d ratelimit.Decision) {
	ctx.Response.Header.Set("X-RateLimit-Limit", fmt.Sprintf("%d", d.Limit))
	ctx.Response.Header.Set("X-RateLimit-Remaining", fmt.Sprintf("%d", d.Remaining))
	if !d.ResetAt.IsZero() {
		ctx.Response.Header.Set("X-RateLimit-Reset", fmt.Sprintf("%d", d.ResetAt.Unix()))
	}
}

// statusForResponse maps a RenderResponse onto the HTTP status the edge
// should return: success -> 200, timeout -> 504, anything else -> 500.
func statusForResponse(resp *types.RenderResponse) int {
	if resp.Success {
		return fasthttp.StatusOK
	}
	for _, e := range resp.Errors {
		if e.Code == types.ErrCodeTimeout || e.Code == types.ErrCodeTotalTimeout {
			return fasthttp.StatusGatewayTimeout
		}
	}
	return fasthttp.StatusInternalServerError
}

func (s *Server) handleHealth(ctx *fasthttp.RequestCtx) {
	stats := s.pool.Stats()
	limiterSnap := s.limiter.Snapshot()

	resp := types.HealthResponse{
		Status:   "ok",
		UptimeMS: s.pool.Uptime().Milliseconds(),
		Pool: types.PoolStatusResponse{
			TotalBrowsers:   stats.TotalInstances,
			HealthyBrowsers: stats.HealthyInstances,
			ActiveLeases:    stats.ActiveLeases,
			AvailableSlots:  stats.AvailableSlots,
			QueueLength:     stats.QueueLength,
		},
		RateLimiter: limiterSnap,
	}

	s.metrics.SetPoolSize(stats.TotalInstances)
	s.metrics.SetPoolAvailable(stats.AvailableSlots)
	s.metrics.SetQueueDepth(stats.QueueLength)

	s.writeJSON(ctx, fasthttp.StatusOK, "/health", &resp)
}

func (s *Server) handlePoolStatus(ctx *fasthttp.RequestCtx) {
	stats := s.pool.Stats()
	resp := types.PoolStatusResponse{
		TotalBrowsers:   stats.TotalInstances,
		HealthyBrowsers: stats.HealthyInstances,
		ActiveLeases:    stats.ActiveLeases,
		AvailableSlots:  stats.AvailableSlots,
		QueueLength:     stats.QueueLength,
	}
	httputil.JSONData(ctx, resp, fasthttp.StatusOK)
	s.metrics.RecordHTTPRequest("/v1/pool/status", "200")
}

func (s *Server) handleIdentity(ctx *fasthttp.RequestCtx) {
	data := map[string]interface{}{
		"service": serviceName,
		"endpoints": []string{
			"POST /v1/render",
			"GET /health",
			"GET /v1/pool/status",
		},
	}
	httputil.JSONData(ctx, data, fasthttp.StatusOK)
	s.metrics.RecordHTTPRequest("/", "200")
}

// writeJSON marshals v as the response body and records the HTTP metric.
func (s *Server) writeJSON(ctx *fasthttp.RequestCtx, statusCode int, path string, v interface{}) {
	body, err := json.Marshal(v)
	if err != nil {
		ctx.SetStatusCode(fasthttp.StatusInternalServerError)
		ctx.SetBodyString(`{"success":false,"errors":[{"code":"INTERNAL_ERROR","message":"failed to marshal response"}]}`)
		ctx.SetContentType("application/json")
		s.metrics.RecordHTTPRequest(path, "500")
		s.logger.Error("failed to marshal response", zap.String("path", path), zap.Error(err))
		return
	}

	ctx.SetStatusCode(statusCode)
	ctx.SetBody(body)
	ctx.SetContentType("application/json")
	s.metrics.RecordHTTPRequest(path, fmt.Sprintf("%d", statusCode))
}
