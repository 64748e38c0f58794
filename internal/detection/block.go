package detection

import "strings"

// blockStatusCodes are the HTTP statuses that trigger the provider-matching
// pass; outside this set only a 200 response is checked further, by the
// soft-challenge, generic-phrase and script-heavy fallbacks.
var blockStatusCodes = map[int]bool{403: true, 429: true, 503: true}

// wafProvider is one bot-mitigation vendor's fingerprint: the status codes
// it typically answers with, and phrases that identify its block pages.
type wafProvider struct {
	name     string
	statuses map[int]bool
	phrases  []string
}

var wafProviders = []wafProvider{
	{
		name:     "cloudflare",
		statuses: map[int]bool{403: true, 503: true, 429: true},
		phrases:  []string{"cloudflare", "checking your browser", "ray id", "attention required"},
	},
	{
		name:     "akamai",
		statuses: map[int]bool{403: true},
		phrases:  []string{"akamai", "access denied"},
	},
	{
		name:     "datadome",
		statuses: map[int]bool{403: true, 429: true},
		phrases:  []string{"datadome"},
	},
	{
		name:     "perimeterx",
		statuses: map[int]bool{403: true},
		phrases:  []string{"perimeterx", "_px-captcha", "please verify you are a human"},
	},
	{
		name:     "imperva",
		statuses: map[int]bool{403: true},
		phrases:  []string{"imperva", "incapsula"},
	},
}

var genericBlockPhrases = []string{
	"access denied",
	"you have been blocked",
	"request blocked",
	"unusual traffic",
	"automated requests",
}

func reasonForStatus(status int) string {
	if status == 429 {
		return "rate_limited"
	}
	return "access_denied"
}

func detectBlock(snap Snapshot) BlockResult {
	haystack := snap.HTML + " " + snap.VisibleText

	if blockStatusCodes[snap.StatusCode] {
		for _, provider := range wafProviders {
			if !provider.statuses[snap.StatusCode] {
				continue
			}
			if hit := containsAny(haystack, provider.phrases); hit != "" {
				return BlockResult{
					Blocked:    true,
					Provider:   provider.name,
					Reason:     reasonForStatus(snap.StatusCode),
					Confidence: ConfidenceHigh,
				}
			}
		}
		return BlockResult{
			Blocked:    true,
			Provider:   "unknown",
			Reason:     reasonForStatus(snap.StatusCode),
			Confidence: ConfidenceMedium,
		}
	}

	if snap.StatusCode == 200 {
		for _, provider := range wafProviders {
			if hit := containsAny(haystack, provider.phrases); hit != "" {
				return BlockResult{
					Blocked:    true,
					Provider:   provider.name,
					Reason:     "bot_challenge",
					Confidence: ConfidenceMedium,
				}
			}
		}

		text := strings.TrimSpace(snap.VisibleText)
		if len(text) < 5000 {
			if hit := containsAny(text, genericBlockPhrases); hit != "" {
				return BlockResult{
					Blocked:    true,
					Provider:   "unknown",
					Reason:     "access_denied",
					Confidence: ConfidenceLow,
				}
			}
		}

		scriptCount := strings.Count(strings.ToLower(snap.HTML), "<script")
		if len(text) < 100 && scriptCount > 5 {
			return BlockResult{
				Blocked:    true,
				Provider:   "unknown",
				Reason:     "bot_challenge",
				Confidence: ConfidenceLow,
				Details:    "minimal content but many scripts",
			}
		}
	}

	return BlockResult{Blocked: false, Confidence: ConfidenceLow}
}
