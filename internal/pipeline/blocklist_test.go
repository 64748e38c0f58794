package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResourceBlocklistBlocksGlobalTrackers(t *testing.T) {
	bl := newResourceBlocklist(nil, false)

	assert.True(t, bl.isBlocked("https://www.google-analytics.com/collect"))
	assert.True(t, bl.isBlocked("https://stats.g.doubleclick.net/r/collect"))
	assert.False(t, bl.isBlocked("https://example.com/app.js"))
}

func TestResourceBlocklistBlocksCustomPatterns(t *testing.T) {
	bl := newResourceBlocklist([]string{"*slow-widget.example*"}, false)

	assert.True(t, bl.isBlocked("https://cdn.slow-widget.example/widget.js"))
	assert.False(t, bl.isBlocked("https://example.com/app.js"))
}

func TestResourceBlocklistSkipsInvalidCustomPatterns(t *testing.T) {
	bl := newResourceBlocklist([]string{"~[invalid("}, false)

	assert.False(t, bl.isBlocked("https://example.com/~[invalid("))
	assert.True(t, bl.isBlocked("https://www.googletagmanager.com/gtm.js"))
}

func TestResourceBlocklistRegexpPatternIsCaseSensitive(t *testing.T) {
	bl := newResourceBlocklist([]string{"~^https://Ads\\.example\\.com/.*"}, false)

	assert.True(t, bl.isBlocked("https://Ads.example.com/banner"))
	assert.False(t, bl.isBlocked("https://ads.example.com/banner"))
}

func TestResourceBlocklistScriptBlockingIsOptIn(t *testing.T) {
	blocking := newResourceBlocklist(nil, true)
	assert.True(t, blocking.blockScripts)

	notBlocking := newResourceBlocklist(nil, false)
	assert.False(t, notBlocking.blockScripts)
}
