// Package types carries the wire-level request and response shapes for the
// render service's HTTP surface.
package types

import (
	"encoding/json"
	"fmt"
	"time"
)

// Wait-until modes accepted by RenderOptions.WaitUntil.
const (
	WaitUntilCommit            = "commit"
	WaitUntilDOMContentLoaded  = "domcontentloaded"
	WaitUntilLoad              = "load"
	WaitUntilNetworkIdle       = "networkidle"
	DefaultWaitUntil           = WaitUntilNetworkIdle
	DefaultTimeoutMS           = 30000
	MinTimeoutMS               = 1000
	MaxTimeoutMS               = 120000
	DefaultMaxScrolls          = 5
	MinMaxScrolls              = 1
	MaxMaxScrolls              = 50
	DefaultScrollDelayMS       = 500
	MinScrollDelayMS           = 100
	MaxScrollDelayMS           = 5000
	DefaultViewportWidth       = 1366
	DefaultViewportHeight      = 768
	MinViewportWidth           = 320
	MaxViewportWidth           = 3840
	MinViewportHeight          = 240
	MaxViewportHeight          = 2160
	DefaultLocale              = "en-US"
	DefaultTimezone            = "America/New_York"
)

// Error codes produced by the render pipeline and the HTTP layer. These map
// 1:1 onto the taxonomy the pipeline is required to emit.
const (
	ErrCodeNavigationFailed = "NAVIGATION_FAILED"
	ErrCodeTimeout          = "TIMEOUT"
	ErrCodeTotalTimeout     = "TOTAL_TIMEOUT"
	ErrCodeProxyError       = "PROXY_ERROR"
	ErrCodeBrowserError     = "BROWSER_ERROR"
	ErrCodeRenderFailed     = "RENDER_FAILED"
	ErrCodeInternalError    = "INTERNAL_ERROR"
	ErrCodeValidationError  = "VALIDATION_ERROR"
	ErrCodeRateLimited      = "RATE_LIMITED"
)

// HTTP status classes used to bucket NetworkStats.StatusCounts.
const (
	StatusClass2xx = "2xx"
	StatusClass3xx = "3xx"
	StatusClass4xx = "4xx"
	StatusClass5xx = "5xx"
)

// JSCode accepts either a single script string or a list of scripts in the
// request JSON body, matching render.js_code's documented shape.
type JSCode []string

// UnmarshalJSON accepts a bare string or a JSON array of strings.
func (j *JSCode) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		if single == "" {
			*j = nil
			return nil
		}
		*j = JSCode{single}
		return nil
	}

	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		return fmt.Errorf("js_code must be a string or an array of strings: %w", err)
	}
	*j = JSCode(list)
	return nil
}

// MarshalJSON renders a single-element list as a bare string for symmetry
// with the common case, and multi-element lists as a JSON array.
func (j JSCode) MarshalJSON() ([]byte, error) {
	if len(j) == 1 {
		return json.Marshal(j[0])
	}
	return json.Marshal([]string(j))
}

// ScrollOptions controls the humanized scroll loop (RenderPipeline step 7).
type ScrollOptions struct {
	Enabled    bool `json:"enabled"`
	MaxScrolls int  `json:"max_scrolls,omitempty"`
	DelayMS    int  `json:"delay_ms,omitempty"`
}

// RenderOptions is the render.* block of a RenderRequest.
type RenderOptions struct {
	WaitUntil      string        `json:"wait_until,omitempty"`
	TimeoutMS      int           `json:"timeout_ms,omitempty"`
	JavaScript     *bool         `json:"javascript,omitempty"`
	Scroll         ScrollOptions `json:"scroll,omitempty"`
	WaitFor        string        `json:"wait_for,omitempty"`
	JSCode         JSCode        `json:"js_code,omitempty"`
	BlockResources []string      `json:"block_resources,omitempty"`
}

// JavaScriptEnabled returns the effective javascript flag, defaulting to true
// when the caller omitted it.
func (r RenderOptions) JavaScriptEnabled() bool {
	if r.JavaScript == nil {
		return true
	}
	return *r.JavaScript
}

// ViewportOptions is the browser.viewport block.
type ViewportOptions struct {
	Width  int `json:"width,omitempty"`
	Height int `json:"height,omitempty"`
}

// BrowserOptions is the browser.* block of a RenderRequest: fingerprint
// knobs handed to the ContextBroker.
type BrowserOptions struct {
	Viewport  ViewportOptions `json:"viewport,omitempty"`
	UserAgent string          `json:"user_agent,omitempty"`
	Locale    string          `json:"locale,omitempty"`
	Timezone  string          `json:"timezone,omitempty"`
}

// ProxyOptions is the optional proxy.* block.
type ProxyOptions struct {
	Server   string `json:"server"`
	Username string `json:"username,omitempty"`
	Password string `json:"password,omitempty"`
	Rotate   bool   `json:"rotate,omitempty"`
}

// DebugOptions is the optional debug.* block.
type DebugOptions struct {
	Screenshot bool `json:"screenshot,omitempty"`
	HAR        bool `json:"har,omitempty"`
}

// RenderRequest is the validated, defaulted POST /v1/render request body.
type RenderRequest struct {
	RequestID string          `json:"request_id,omitempty"`
	URL       string          `json:"url"`
	Render    RenderOptions   `json:"render,omitempty"`
	Browser   BrowserOptions  `json:"browser,omitempty"`
	Proxy     *ProxyOptions   `json:"proxy,omitempty"`
	Debug     DebugOptions    `json:"debug,omitempty"`
}

// Timeout returns the request's configured render timeout as a duration.
func (r RenderRequest) Timeout() time.Duration {
	return time.Duration(r.Render.TimeoutMS) * time.Millisecond
}

// ErrorDetail is one entry of a RenderResponse's errors array.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

// ContentResult carries the captured page artifacts.
type ContentResult struct {
	HTML       string          `json:"html,omitempty"`
	Screenshot string          `json:"screenshot,omitempty"` // base64 PNG
	HAR        json.RawMessage `json:"har,omitempty"`
	HARNote    string          `json:"har_note,omitempty"`
}

// Console message types captured from the page's console.error/warn calls.
const (
	ConsoleTypeError   = "error"
	ConsoleTypeWarning = "warning"
)

// ConsoleMessage is a bonus diagnostic captured alongside the page: a
// console.error or console.warn call, with its originating script URL when
// the page supplied one.
type ConsoleMessage struct {
	Type   string `json:"type"`
	Text   string `json:"text"`
	Source string `json:"source,omitempty"`
}

// DomainStats aggregates network activity for one third-party or
// same-origin host observed during a render.
type DomainStats struct {
	Requests   int     `json:"requests"`
	Bytes      int64   `json:"bytes"`
	Failed     int     `json:"failed"`
	Blocked    int     `json:"blocked"`
	AvgLatency float64 `json:"avg_latency_seconds,omitempty"`
}

// NetworkStats summarizes the subresource traffic observed while
// rendering a page: request/byte counts, first/last-party split, and
// per-domain detail for the busiest hosts.
type NetworkStats struct {
	TotalRequests      int                     `json:"total_requests"`
	TotalBytes         int64                   `json:"total_bytes"`
	SameOriginRequests int                     `json:"same_origin_requests"`
	SameOriginBytes    int64                   `json:"same_origin_bytes"`
	ThirdPartyRequests int                     `json:"third_party_requests"`
	ThirdPartyBytes    int64                   `json:"third_party_bytes"`
	ThirdPartyDomains  int                     `json:"third_party_domains"`
	BlockedCount       int                     `json:"blocked_count"`
	FailedCount        int                     `json:"failed_count"`
	BytesByType        map[string]int64        `json:"bytes_by_type,omitempty"`
	RequestsByType     map[string]int64        `json:"requests_by_type,omitempty"`
	StatusCounts       map[string]int64        `json:"status_counts,omitempty"`
	DomainStats        map[string]*DomainStats `json:"domain_stats,omitempty"`
}

// MetaResult carries the render.meta block of a RenderResponse.
type MetaResult struct {
	HTTPStatus      int              `json:"http_status"`
	DurationMS      int64            `json:"duration_ms"`
	CaptchaDetected bool             `json:"captcha_detected"`
	Blocked         bool             `json:"blocked"`
	ProxyUsed       bool             `json:"proxy_used"`
	PageTitle       string           `json:"page_title,omitempty"`
	ConsoleMessages []ConsoleMessage `json:"console_messages,omitempty"`
	Network         *NetworkStats    `json:"network,omitempty"`
}

// RenderResponse is the POST /v1/render response body.
type RenderResponse struct {
	Success   bool          `json:"success"`
	RequestID string        `json:"request_id"`
	URL       string        `json:"url,omitempty"`
	Content   ContentResult `json:"content,omitempty"`
	Meta      MetaResult    `json:"meta"`
	Errors    []ErrorDetail `json:"errors"`
	Timestamp time.Time     `json:"timestamp"`
}

// NewErrorResponse builds a failed RenderResponse carrying a single error.
func NewErrorResponse(requestID, code, message string) RenderResponse {
	return RenderResponse{
		Success:   false,
		RequestID: requestID,
		Errors:    []ErrorDetail{{Code: code, Message: message}},
		Timestamp: time.Now().UTC(),
	}
}

// PoolStatusResponse is the GET /v1/pool/status data payload.
type PoolStatusResponse struct {
	TotalBrowsers   int `json:"total_browsers"`
	HealthyBrowsers int `json:"healthy_browsers"`
	ActiveLeases    int `json:"active_leases"`
	AvailableSlots  int `json:"available_slots"`
	QueueLength     int `json:"queue_length"`
}

// HealthResponse is the GET /health payload.
type HealthResponse struct {
	Status      string             `json:"status"`
	UptimeMS    int64              `json:"uptime_ms"`
	Pool        PoolStatusResponse `json:"pool"`
	RateLimiter RateLimiterSnapshot `json:"rate_limiter"`
}

// RateLimiterSnapshot reports coarse rate-limiter occupancy for /health.
type RateLimiterSnapshot struct {
	Enabled     bool `json:"enabled"`
	TrackedKeys int  `json:"tracked_keys"`
	WindowMS    int  `json:"window_ms"`
	MaxRequests int  `json:"max_requests"`
}
