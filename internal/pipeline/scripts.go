package pipeline

import (
	"context"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

const interScriptDelay = 100 * time.Millisecond

// runPreExtractionScripts runs each script sequentially on the page,
// pausing interScriptDelay between them. A failing script is logged and
// short-circuits the remaining scripts, but never fails the render.
func runPreExtractionScripts(ctx context.Context, scripts []string, logger *zap.Logger) {
	for i, script := range scripts {
		if i > 0 {
			select {
			case <-ctx.Done():
				return
			case <-time.After(interScriptDelay):
			}
		}

		var result interface{}
		if err := chromedp.Run(ctx, chromedp.Evaluate(script, &result)); err != nil {
			logger.Warn("pre-extraction script failed", zap.Int("index", i), zap.Error(err))
			return
		}
	}
}

// scriptedWait dispatches render.wait_for by prefix: css: waits for a
// selector to attach, js: waits for a JS expression to become truthy, and
// a bare value is treated as a CSS selector. Failures are logged, not
// fatal.
func scriptedWait(ctx context.Context, waitFor string, timeout time.Duration, logger *zap.Logger) {
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var err error
	switch {
	case strings.HasPrefix(waitFor, "css:"):
		err = chromedp.Run(waitCtx, chromedp.WaitReady(strings.TrimPrefix(waitFor, "css:"), chromedp.ByQuery))
	case strings.HasPrefix(waitFor, "js:"):
		err = waitForTruthy(waitCtx, strings.TrimPrefix(waitFor, "js:"))
	default:
		err = chromedp.Run(waitCtx, chromedp.WaitReady(waitFor, chromedp.ByQuery))
	}

	if err != nil {
		logger.Warn("scripted wait did not resolve", zap.String("wait_for", waitFor), zap.Error(err))
	}
}

func waitForTruthy(ctx context.Context, expr string) error {
	const pollInterval = 100 * time.Millisecond
	for {
		var truthy bool
		if err := chromedp.Run(ctx, chromedp.Evaluate("Boolean("+expr+")", &truthy)); err == nil && truthy {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(pollInterval):
		}
	}
}
