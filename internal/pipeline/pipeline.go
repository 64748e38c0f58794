// Package pipeline executes one render request end to end: acquiring a
// browsing context, navigating, letting the page settle, running optional
// scripts and scroll behavior, classifying the result, and extracting
// content — all under a single wall-clock deadline.
package pipeline

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/edgecomet/render-service/internal/browser"
	"github.com/edgecomet/render-service/internal/contextbroker"
	"github.com/edgecomet/render-service/internal/detection"
	"github.com/edgecomet/render-service/internal/common/requestid"
	"github.com/edgecomet/render-service/pkg/types"
)

const (
	acquireSubTimeout = 35 * time.Second
	outerDeadlineSlop = 30 * time.Second
	navWrapperBuffer  = 5 * time.Second
)

// Pipeline executes RenderRequests against browsing contexts leased from a
// ContextBroker.
type Pipeline struct {
	broker *contextbroker.Broker
	logger *zap.Logger
}

// New builds a Pipeline over the given broker.
func New(broker *contextbroker.Broker, logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{broker: broker, logger: logger}
}

// Render executes one request end to end. It never returns an error: every
// failure path is folded into the returned RenderResponse's errors array,
// per the pipeline's failure discipline.
func (p *Pipeline) Render(ctx context.Context, req *types.RenderRequest) *types.RenderResponse {
	start := time.Now()

	req.RequestID = requestid.GenerateRequestID(req.RequestID)
	applyDefaults(req)

	outerCtx, cancel := context.WithTimeout(ctx, req.Timeout()+outerDeadlineSlop)
	defer cancel()

	resp := &types.RenderResponse{
		Success:   true,
		RequestID: req.RequestID,
		URL:       req.URL,
		Timestamp: time.Now().UTC(),
	}

	lease, proxyUsed, err := p.acquireLease(outerCtx, req)
	if err != nil {
		return p.failureResponse(req, start, err)
	}
	defer lease.Release()

	resp.Meta.ProxyUsed = proxyUsed
	p.runStages(outerCtx, lease, req, resp)

	resp.Meta.DurationMS = time.Since(start).Milliseconds()
	return resp
}

func (p *Pipeline) acquireLease(ctx context.Context, req *types.RenderRequest) (*browser.Lease, bool, error) {
	acquireCtx, cancel := context.WithTimeout(ctx, acquireSubTimeout)
	defer cancel()
	return p.broker.Acquire(acquireCtx, req)
}

// runStages executes steps 3 through 11 against an already-leased context.
// Every failure after this point is recorded onto resp rather than
// aborting, so the lease is always released by the caller and the response
// is always assembled.
func (p *Pipeline) runStages(outerCtx context.Context, lease *browser.Lease, req *types.RenderRequest, resp *types.RenderResponse) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("render pipeline panic recovered",
				zap.String("request_id", req.RequestID), zap.Any("panic", r))
			resp.Success = false
			resp.Errors = append(resp.Errors, types.ErrorDetail{
				Code:    types.ErrCodeInternalError,
				Message: "internal error during render",
			})
		}
	}()

	pageCtx := lease.Context()

	netStats := newNetworkStatsCollector(req.URL)
	console := newConsoleCollector()
	blockScripts := !req.Render.JavaScriptEnabled()
	bl := newResourceBlocklist(req.Render.BlockResources, blockScripts)
	setupTasks := chromedp.Tasks{
		enableLifecycleEvents(),
		network.Enable(),
		runtime.Enable(),
		installResourceBlocking(bl, netStats),
	}
	netStats.listen(pageCtx)
	console.listen(pageCtx)
	if err := chromedp.Run(pageCtx, setupTasks); err != nil {
		p.fail(resp, types.ErrCodeBrowserError, "failed to prepare browsing context", err)
		return
	}

	navTimeout := req.Timeout() + navWrapperBuffer
	var outcome navOutcome
	navCtx, cancelNav := context.WithTimeout(pageCtx, navTimeout)
	err := chromedp.Run(navCtx, navigateAndWait(req.URL, req.Render.WaitUntil, req.Timeout(), &outcome))
	cancelNav()
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			p.fail(resp, types.ErrCodeTimeout, "navigation timed out", err)
		} else {
			p.fail(resp, types.ErrCodeNavigationFailed, "navigation failed", err)
		}
		return
	}
	resp.Meta.HTTPStatus = outcome.statusCode
	if outcome.finalURL != "" {
		resp.URL = outcome.finalURL
	}

	if req.Render.WaitUntil == types.WaitUntilNetworkIdle || req.Render.WaitUntil == "" {
		_ = chromedp.Run(pageCtx, stabilizeNetworkIdle())
	}

	if len(req.Render.JSCode) > 0 {
		runPreExtractionScripts(pageCtx, req.Render.JSCode, p.logger)
	}

	if req.Render.WaitFor != "" {
		scriptedWait(pageCtx, req.Render.WaitFor, req.Timeout(), p.logger)
	}

	if req.Render.Scroll.Enabled {
		runScrollEngine(pageCtx, req.Render.Scroll)
	}

	var html string
	if err := chromedp.Run(pageCtx, extractHTML(&html)); err != nil {
		p.fail(resp, types.ErrCodeRenderFailed, "failed to extract rendered content", err)
		return
	}
	resp.Content.HTML = html
	resp.Meta.PageTitle = extractTitle(html)

	var visibleText string
	_ = chromedp.Run(pageCtx, chromedp.Text("body", &visibleText, chromedp.ByQuery))

	detectionResult := detection.Classify(pageCtx, detection.Snapshot{
		HTML:        html,
		VisibleText: visibleText,
		StatusCode:  resp.Meta.HTTPStatus,
	})
	resp.Meta.CaptchaDetected = detectionResult.Captcha.Detected
	resp.Meta.Blocked = detectionResult.Block.Blocked
	resp.Meta.Network = netStats.snapshot()
	resp.Meta.ConsoleMessages = console.snapshot()

	if req.Debug.Screenshot {
		var screenshot string
		if err := chromedp.Run(pageCtx, captureScreenshot(&screenshot)); err != nil {
			p.logger.Warn("screenshot capture failed",
				zap.String("request_id", req.RequestID), zap.Error(err))
		} else {
			resp.Content.Screenshot = screenshot
		}
	}
	if req.Debug.HAR {
		resp.Content.HARNote = "HAR capture is not supported by this deployment"
	}
}

func (p *Pipeline) fail(resp *types.RenderResponse, code, message string, err error) {
	p.logger.Warn("render stage failed", zap.String("request_id", resp.RequestID),
		zap.String("code", code), zap.Error(err))
	resp.Success = false
	resp.Errors = append(resp.Errors, types.ErrorDetail{Code: code, Message: message})
}

func (p *Pipeline) failureResponse(req *types.RenderRequest, start time.Time, err error) *types.RenderResponse {
	code := types.ErrCodeInternalError
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		code = types.ErrCodeTotalTimeout
	case errors.Is(err, browser.ErrAcquireTimeout):
		code = types.ErrCodeTimeout
	case errors.Is(err, browser.ErrShuttingDown):
		code = types.ErrCodeInternalError
	default:
		if isProxyErr(err) {
			code = types.ErrCodeProxyError
		} else {
			code = types.ErrCodeBrowserError
		}
	}

	resp := types.NewErrorResponse(req.RequestID, code, err.Error())
	resp.URL = req.URL
	resp.Meta.DurationMS = time.Since(start).Milliseconds()
	return &resp
}

func applyDefaults(req *types.RenderRequest) {
	if req.Render.WaitUntil == "" {
		req.Render.WaitUntil = types.DefaultWaitUntil
	}
	if req.Render.TimeoutMS == 0 {
		req.Render.TimeoutMS = types.DefaultTimeoutMS
	}
	if req.Render.Scroll.Enabled {
		if req.Render.Scroll.MaxScrolls == 0 {
			req.Render.Scroll.MaxScrolls = types.DefaultMaxScrolls
		}
		if req.Render.Scroll.DelayMS == 0 {
			req.Render.Scroll.DelayMS = types.DefaultScrollDelayMS
		}
	}
	if req.Browser.Locale == "" {
		req.Browser.Locale = types.DefaultLocale
	}
	if req.Browser.Timezone == "" {
		req.Browser.Timezone = types.DefaultTimezone
	}
}

func isProxyErr(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "proxy")
}
