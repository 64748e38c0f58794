// Package contextbroker translates a validated render request into a
// browser pool lease: default-merging, user-agent selection, proxy
// validation, and stealth/header injection.
package contextbroker

import (
	"context"
	"math/rand"
	"strings"

	"github.com/edgecomet/render-service/internal/browser"
	"github.com/edgecomet/render-service/pkg/types"
)

// desktopUserAgents is the fixed pool of realistic desktop agents picked
// from when a request does not specify one.
var desktopUserAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:125.0) Gecko/20100101 Firefox/125.0",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.4 Safari/605.1.15",
}

// Broker leases isolated browsing contexts from a browser.Pool on behalf
// of validated render requests.
type Broker struct {
	pool   *browser.Pool
	random *rand.Rand
}

// New builds a Broker over the given pool.
func New(pool *browser.Pool) *Broker {
	return &Broker{pool: pool}
}

// Acquire merges req's browser/proxy options with defaults, validates the
// proxy if present, and leases a context from the pool. It reports whether
// a proxy was applied, so the caller can surface meta.proxy_used even on
// failure paths that still hold a lease.
func (b *Broker) Acquire(ctx context.Context, req *types.RenderRequest) (*browser.Lease, bool, error) {
	opts, proxyUsed, err := b.buildContextOptions(req)
	if err != nil {
		return nil, false, err
	}

	lease, err := b.pool.Acquire(ctx, opts)
	if err != nil {
		return nil, proxyUsed, err
	}
	return lease, proxyUsed, nil
}

func (b *Broker) buildContextOptions(req *types.RenderRequest) (browser.ContextOptions, bool, error) {
	ua := req.Browser.UserAgent
	if ua == "" {
		ua = desktopUserAgents[b.pickUserAgentIndex()]
	}

	width := req.Browser.Viewport.Width
	if width == 0 {
		width = types.DefaultViewportWidth
	}
	height := req.Browser.Viewport.Height
	if height == 0 {
		height = types.DefaultViewportHeight
	}

	locale := req.Browser.Locale
	if locale == "" {
		locale = types.DefaultLocale
	}
	timezone := req.Browser.Timezone
	if timezone == "" {
		timezone = types.DefaultTimezone
	}

	var proxyCfg *browser.ProxyConfig
	if req.Proxy != nil {
		normalized, err := normalizeProxy(req.Proxy)
		if err != nil {
			return browser.ContextOptions{}, false, err
		}
		proxyCfg = normalized
	}

	return browser.ContextOptions{
		UserAgent: ua,
		Viewport:  browser.Viewport{Width: width, Height: height},
		Locale:    locale,
		Timezone:  timezone,
		Headers:   acceptHeadersFor(ua, locale),
		Proxy:     proxyCfg,
		StealthJS: stealthScript,
	}, proxyCfg != nil, nil
}

func (b *Broker) pickUserAgentIndex() int {
	if b.random != nil {
		return b.random.Intn(len(desktopUserAgents))
	}
	return rand.Intn(len(desktopUserAgents))
}

// acceptHeadersFor builds the context-level headers consistent with the
// chosen user agent: Accept, Accept-Language, and client-hints when the UA
// is Chromium-family.
func acceptHeadersFor(ua, locale string) map[string]string {
	headers := map[string]string{
		"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8",
		"Accept-Language": locale + ",en;q=0.9",
	}
	if strings.Contains(ua, "Chrome/") && !strings.Contains(ua, "Firefox") {
		headers["sec-ch-ua"] = `"Chromium";v="124", "Not:A-Brand";v="8", "Google Chrome";v="124"`
		headers["sec-ch-ua-mobile"] = "?0"
	}
	return headers
}
