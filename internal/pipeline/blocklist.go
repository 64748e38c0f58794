package pipeline

import (
	"context"
	"strings"

	"github.com/chromedp/cdproto/fetch"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"

	"github.com/edgecomet/render-service/pkg/pattern"
)

// globalBlockedPatterns is blocked on every render regardless of request
// options: the usual analytics, tracking, and ad-network hosts that add
// load time without affecting what a caller asked to render.
var globalBlockedPatterns = []string{
	"*2mdn.net*",
	"*adobestats.com*",
	"*adsappier.com*",
	"*ampproject.org*",
	"*convertexperiments.com*",
	"*doubleclick.net*",
	"*google-analytics.com*",
	"*googleadservices.com*",
	"*googlesyndication.com*",
	"*googletagservices.com*",
	"*googletagmanager.com*",
	"*hotjar.com*",
	"*clarity.ms*",
	"*static.cloudflareinsights.com*",
}

// resourceBlocklist holds the compiled patterns for one render and, when
// JavaScript is disabled, also fails every script-type request.
type resourceBlocklist struct {
	compiled     []*pattern.Pattern
	blockScripts bool
}

// newResourceBlocklist compiles the global blocklist plus any caller
// supplied patterns. Patterns that fail to compile are skipped; validate.Request
// rejects them before the pipeline ever sees them, so this only guards
// against patterns added after validation.
func newResourceBlocklist(customPatterns []string, blockScripts bool) *resourceBlocklist {
	all := make([]string, 0, len(globalBlockedPatterns)+len(customPatterns))
	all = append(all, globalBlockedPatterns...)
	all = append(all, customPatterns...)

	bl := &resourceBlocklist{blockScripts: blockScripts}
	for _, p := range all {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if !strings.HasPrefix(p, "~") {
			p = strings.ToLower(p)
		}
		compiled, err := pattern.Compile(p)
		if err != nil {
			continue
		}
		bl.compiled = append(bl.compiled, compiled)
	}
	return bl
}

// isBlocked reports whether requestURL matches any compiled pattern.
func (bl *resourceBlocklist) isBlocked(requestURL string) bool {
	lower := strings.ToLower(requestURL)
	for _, p := range bl.compiled {
		url := lower
		if p.Type == pattern.PatternTypeRegexp {
			url = requestURL
		}
		if p.Match(url) {
			return true
		}
	}
	return false
}

// installResourceBlocking installs a fetch-domain interceptor that fails
// requests matching bl and continues everything else, reporting every
// blocked request to stats so it folds into the response's network
// summary instead of counting as a failure. Installed on every render; when
// JavaScript is disabled the same interceptor also fails every script-type
// request.
func installResourceBlocking(bl *resourceBlocklist, stats *networkStatsCollector) chromedp.ActionFunc {
	return func(ctx context.Context) error {
		// WithHandleAuthRequests(true) re-affirms the auth interception the
		// browser context's proxy setup may have already enabled; Fetch.enable
		// replaces rather than merges its previous parameters, so omitting
		// this would silently turn a working proxy-auth handler back off.
		if err := fetch.Enable().WithHandleAuthRequests(true).Do(ctx); err != nil {
			return err
		}
		chromedp.ListenTarget(ctx, func(ev interface{}) {
			e, ok := ev.(*fetch.EventRequestPaused)
			if !ok {
				return
			}
			go func(reqID fetch.RequestID, resourceType network.ResourceType, url string) {
				blockScript := bl.blockScripts && resourceType == network.ResourceTypeScript
				if blockScript || bl.isBlocked(url) {
					stats.onRequestBlocked(network.RequestID(reqID))
					_ = chromedp.Run(ctx, fetch.FailRequest(reqID, network.ErrorReasonBlockedByClient))
					return
				}
				_ = chromedp.Run(ctx, fetch.ContinueRequest(reqID))
			}(e.RequestID, e.ResourceType, e.Request.URL)
		})
		return nil
	}
}
