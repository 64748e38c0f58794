package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgecomet/render-service/pkg/types"
)

func TestRequestValidMinimal(t *testing.T) {
	errs := Request(&types.RenderRequest{URL: "https://example.com"})
	assert.Empty(t, errs)
}

func TestRequestMissingURL(t *testing.T) {
	errs := Request(&types.RenderRequest{})
	require.NotEmpty(t, errs)
	assert.Equal(t, "url", errs[0].Field)
	assert.Equal(t, types.ErrCodeValidationError, errs[0].Code)
}

func TestRequestInvalidURL(t *testing.T) {
	errs := Request(&types.RenderRequest{URL: "not-a-valid-url"})
	require.NotEmpty(t, errs)
	assert.Equal(t, "url", errs[0].Field)
}

func TestRequestRejectsNonHTTPScheme(t *testing.T) {
	errs := Request(&types.RenderRequest{URL: "ftp://example.com/file"})
	require.NotEmpty(t, errs)
	assert.Equal(t, "url", errs[0].Field)
}

func TestRequestRejectsPrivateIPTarget(t *testing.T) {
	errs := Request(&types.RenderRequest{URL: "http://127.0.0.1/admin"})
	require.NotEmpty(t, errs)
	assert.Equal(t, "url", errs[0].Field)
}

func TestRequestRejectsBadWaitUntil(t *testing.T) {
	errs := Request(&types.RenderRequest{
		URL:    "https://example.com",
		Render: types.RenderOptions{WaitUntil: "bogus"},
	})
	require.NotEmpty(t, errs)
	assert.Equal(t, "render.wait_until", errs[0].Field)
}

func TestRequestRejectsTimeoutOutOfRange(t *testing.T) {
	errs := Request(&types.RenderRequest{
		URL:    "https://example.com",
		Render: types.RenderOptions{TimeoutMS: 500},
	})
	require.NotEmpty(t, errs)
	assert.Equal(t, "render.timeout_ms", errs[0].Field)
}

func TestRequestRejectsScrollRangesOnlyWhenEnabled(t *testing.T) {
	// Disabled scroll with an out-of-range value is not validated.
	errs := Request(&types.RenderRequest{
		URL:    "https://example.com",
		Render: types.RenderOptions{Scroll: types.ScrollOptions{Enabled: false, MaxScrolls: 999}},
	})
	assert.Empty(t, errs)

	errs = Request(&types.RenderRequest{
		URL:    "https://example.com",
		Render: types.RenderOptions{Scroll: types.ScrollOptions{Enabled: true, MaxScrolls: 999}},
	})
	require.NotEmpty(t, errs)
	assert.Equal(t, "render.scroll.max_scrolls", errs[0].Field)
}

func TestRequestRejectsViewportOutOfRange(t *testing.T) {
	errs := Request(&types.RenderRequest{
		URL:     "https://example.com",
		Browser: types.BrowserOptions{Viewport: types.ViewportOptions{Width: 10, Height: 10}},
	})
	require.Len(t, errs, 2)
}

func TestRequestRejectsProxyMissingServer(t *testing.T) {
	errs := Request(&types.RenderRequest{
		URL:   "https://example.com",
		Proxy: &types.ProxyOptions{},
	})
	require.NotEmpty(t, errs)
	assert.Equal(t, "proxy.server", errs[0].Field)
}

func TestRequestRejectsProxyOneSidedCredentials(t *testing.T) {
	errs := Request(&types.RenderRequest{
		URL:   "https://example.com",
		Proxy: &types.ProxyOptions{Server: "http://proxy.example.com", Username: "u"},
	})
	require.NotEmpty(t, errs)
	assert.Equal(t, "proxy.username", errs[0].Field)
}

func TestRequestAcceptsValidBlockResourcePatterns(t *testing.T) {
	errs := Request(&types.RenderRequest{
		URL:    "https://example.com",
		Render: types.RenderOptions{BlockResources: []string{"*doubleclick.net*", "~^https?://ads\\..*"}},
	})
	assert.Empty(t, errs)
}

func TestRequestRejectsInvalidBlockResourcePattern(t *testing.T) {
	errs := Request(&types.RenderRequest{
		URL:    "https://example.com",
		Render: types.RenderOptions{BlockResources: []string{"~[invalid("}},
	})
	require.NotEmpty(t, errs)
	assert.Equal(t, "render.block_resources", errs[0].Field)
}

func TestErrorCollector(t *testing.T) {
	var c ErrorCollector
	assert.False(t, c.HasErrors())
	c.Add("field", "message")
	assert.True(t, c.HasErrors())
	require.Len(t, c.Errors(), 1)
	assert.Equal(t, "field", c.Errors()[0].Field)
}
