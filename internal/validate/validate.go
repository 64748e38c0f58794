// Package validate enforces the POST /v1/render request schema: required
// fields, enum membership, numeric ranges, and SSRF-safe URLs.
package validate

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/edgecomet/render-service/internal/common/urlutil"
	"github.com/edgecomet/render-service/pkg/pattern"
	"github.com/edgecomet/render-service/pkg/types"
)

// ErrorCollector accumulates per-field validation failures so a request can
// report every problem at once instead of failing fast on the first one.
type ErrorCollector struct {
	errors []types.ErrorDetail
}

// Add records one field-scoped validation failure.
func (c *ErrorCollector) Add(field, message string) {
	c.errors = append(c.errors, types.ErrorDetail{
		Code:    types.ErrCodeValidationError,
		Message: message,
		Field:   field,
	})
}

// HasErrors reports whether any failure has been recorded.
func (c *ErrorCollector) HasErrors() bool {
	return len(c.errors) > 0
}

// Errors returns the accumulated failures, or nil if there are none.
func (c *ErrorCollector) Errors() []types.ErrorDetail {
	return c.errors
}

var validWaitUntil = map[string]bool{
	types.WaitUntilCommit:           true,
	types.WaitUntilDOMContentLoaded: true,
	types.WaitUntilLoad:             true,
	types.WaitUntilNetworkIdle:      true,
}

// Request validates req against the documented schema, returning the
// accumulated errors (nil when the request is valid).
func Request(req *types.RenderRequest) []types.ErrorDetail {
	var c ErrorCollector

	validateURL(&c, req.URL)
	validateRender(&c, req.Render)
	validateViewport(&c, req.Browser.Viewport)
	validateProxy(&c, req.Proxy)

	return c.Errors()
}

func validateURL(c *ErrorCollector, rawURL string) {
	if strings.TrimSpace(rawURL) == "" {
		c.Add("url", "url is required")
		return
	}

	parsed, err := url.Parse(rawURL)
	if err != nil || !parsed.IsAbs() {
		c.Add("url", "url must be an absolute URL")
		return
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		c.Add("url", "url scheme must be http or https")
		return
	}
	if parsed.Hostname() == "" {
		c.Add("url", "url must include a host")
		return
	}
	if err := urlutil.ValidateHostNotPrivateIP(parsed.Hostname()); err != nil {
		c.Add("url", fmt.Sprintf("url targets a disallowed address: %v", err))
	}
}

func validateRender(c *ErrorCollector, r types.RenderOptions) {
	if r.WaitUntil != "" && !validWaitUntil[r.WaitUntil] {
		c.Add("render.wait_until", "wait_until must be one of commit, domcontentloaded, load, networkidle")
	}

	if r.TimeoutMS != 0 && (r.TimeoutMS < types.MinTimeoutMS || r.TimeoutMS > types.MaxTimeoutMS) {
		c.Add("render.timeout_ms", fmt.Sprintf("timeout_ms must be between %d and %d", types.MinTimeoutMS, types.MaxTimeoutMS))
	}

	if r.Scroll.Enabled {
		if r.Scroll.MaxScrolls != 0 && (r.Scroll.MaxScrolls < types.MinMaxScrolls || r.Scroll.MaxScrolls > types.MaxMaxScrolls) {
			c.Add("render.scroll.max_scrolls", fmt.Sprintf("max_scrolls must be between %d and %d", types.MinMaxScrolls, types.MaxMaxScrolls))
		}
		if r.Scroll.DelayMS != 0 && (r.Scroll.DelayMS < types.MinScrollDelayMS || r.Scroll.DelayMS > types.MaxScrollDelayMS) {
			c.Add("render.scroll.delay_ms", fmt.Sprintf("delay_ms must be between %d and %d", types.MinScrollDelayMS, types.MaxScrollDelayMS))
		}
	}

	if r.WaitFor != "" && len(strings.TrimSpace(r.WaitFor)) == 0 {
		c.Add("render.wait_for", "wait_for must not be blank")
	}

	for _, p := range r.BlockResources {
		if strings.TrimSpace(p) == "" {
			c.Add("render.block_resources", "block_resources entries must not be blank")
			continue
		}
		if _, err := pattern.Compile(p); err != nil {
			c.Add("render.block_resources", fmt.Sprintf("invalid pattern %q: %v", p, err))
		}
	}
}

func validateViewport(c *ErrorCollector, v types.ViewportOptions) {
	if v.Width != 0 && (v.Width < types.MinViewportWidth || v.Width > types.MaxViewportWidth) {
		c.Add("browser.viewport.width", fmt.Sprintf("width must be between %d and %d", types.MinViewportWidth, types.MaxViewportWidth))
	}
	if v.Height != 0 && (v.Height < types.MinViewportHeight || v.Height > types.MaxViewportHeight) {
		c.Add("browser.viewport.height", fmt.Sprintf("height must be between %d and %d", types.MinViewportHeight, types.MaxViewportHeight))
	}
}

func validateProxy(c *ErrorCollector, p *types.ProxyOptions) {
	if p == nil {
		return
	}
	if strings.TrimSpace(p.Server) == "" {
		c.Add("proxy.server", "server is required when proxy is set")
	}
	if (p.Username == "") != (p.Password == "") {
		c.Add("proxy.username", "username and password must be both present or both absent")
	}
}
