package detection

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetectCaptchaSelectorTier(t *testing.T) {
	snap := Snapshot{
		HTML:       `<html><body><div class="g-recaptcha" data-sitekey="x"></div></body></html>`,
		StatusCode: 200,
	}
	res := detectCaptcha(snap)
	assert.True(t, res.Detected)
	assert.Equal(t, "recaptcha", res.Type)
	assert.Equal(t, ConfidenceHigh, res.Confidence)
}

func TestDetectCaptchaPhraseTier(t *testing.T) {
	snap := Snapshot{
		HTML:       `<html><body><p>please complete the hcaptcha challenge</p></body></html>`,
		StatusCode: 200,
	}
	res := detectCaptcha(snap)
	assert.True(t, res.Detected)
	assert.Equal(t, "hcaptcha", res.Type)
	assert.Equal(t, ConfidenceMedium, res.Confidence)
}

func TestDetectCaptchaGenericTier(t *testing.T) {
	snap := Snapshot{
		HTML:        `<html><body><p>prove you're human to continue</p></body></html>`,
		VisibleText: "prove you're human to continue",
		StatusCode:  200,
	}
	res := detectCaptcha(snap)
	assert.True(t, res.Detected)
	assert.Equal(t, "unknown", res.Type)
	assert.Equal(t, ConfidenceLow, res.Confidence)
}

func TestDetectCaptchaClean(t *testing.T) {
	snap := Snapshot{HTML: `<html><body><h1>Example Domain</h1></body></html>`, StatusCode: 200}
	res := detectCaptcha(snap)
	assert.False(t, res.Detected)
}

func TestDetectBlockProviderHit(t *testing.T) {
	snap := Snapshot{
		HTML:        `<html><body>Checking your browser before accessing. Ray ID: abc123</body></html>`,
		VisibleText: "Checking your browser before accessing. Ray ID: abc123",
		StatusCode:  503,
	}
	res := detectBlock(snap)
	assert.True(t, res.Blocked)
	assert.Equal(t, "cloudflare", res.Provider)
	assert.Equal(t, "access_denied", res.Reason)
	assert.Equal(t, ConfidenceHigh, res.Confidence)
}

func TestDetectBlockRateLimited(t *testing.T) {
	snap := Snapshot{HTML: `<html><body>too many requests</body></html>`, StatusCode: 429}
	res := detectBlock(snap)
	assert.True(t, res.Blocked)
	assert.Equal(t, "rate_limited", res.Reason)
}

func TestDetectBlockUnknownProviderOnBlockStatus(t *testing.T) {
	snap := Snapshot{HTML: `<html><body>nope</body></html>`, StatusCode: 403}
	res := detectBlock(snap)
	assert.True(t, res.Blocked)
	assert.Equal(t, "unknown", res.Provider)
	assert.Equal(t, ConfidenceMedium, res.Confidence)
}

func TestDetectBlockGenericPhraseOn200(t *testing.T) {
	snap := Snapshot{
		HTML:        `<html><body>unusual traffic detected from your network</body></html>`,
		VisibleText: "unusual traffic detected from your network",
		StatusCode:  200,
	}
	res := detectBlock(snap)
	assert.True(t, res.Blocked)
	assert.Equal(t, "access_denied", res.Reason)
	assert.Equal(t, ConfidenceLow, res.Confidence)
}

func TestDetectBlockScriptHeavyMinimalContent(t *testing.T) {
	scripts := strings.Repeat(`<script src="a.js"></script>`, 6)
	snap := Snapshot{
		HTML:        "<html><body>wait" + scripts + "</body></html>",
		VisibleText: "wait",
		StatusCode:  200,
	}
	res := detectBlock(snap)
	assert.True(t, res.Blocked)
	assert.Equal(t, "bot_challenge", res.Reason)
	assert.Equal(t, "minimal content but many scripts", res.Details)
}

func TestDetectBlockClean(t *testing.T) {
	snap := Snapshot{HTML: `<html><body><h1>Example Domain</h1></body></html>`, VisibleText: "Example Domain", StatusCode: 200}
	res := detectBlock(snap)
	assert.False(t, res.Blocked)
}

func TestClassifyRunsBothConcurrently(t *testing.T) {
	snap := Snapshot{
		HTML:        `<html><body><div class="g-recaptcha"></div></body></html>`,
		VisibleText: "some text",
		StatusCode:  200,
	}
	res := Classify(context.Background(), snap)
	assert.True(t, res.Captcha.Detected)
	assert.False(t, res.Block.Blocked)
}
