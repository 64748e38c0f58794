package detection

// captchaProvider describes one CAPTCHA vendor's fingerprint: a selector
// tier checked first (high confidence), then a phrase tier scanned against
// content/text (medium confidence).
type captchaProvider struct {
	name      string
	selectors []string
	phrases   []string
}

var captchaProviders = []captchaProvider{
	{
		name:      "recaptcha",
		selectors: []string{`iframe[src*="recaptcha"]`, `.g-recaptcha`, `#g-recaptcha-response`},
		phrases:   []string{"recaptcha"},
	},
	{
		name:      "hcaptcha",
		selectors: []string{`iframe[src*="hcaptcha"]`, `.h-captcha`},
		phrases:   []string{"hcaptcha"},
	},
	{
		name:      "turnstile",
		selectors: []string{`.cf-turnstile`, `iframe[src*="turnstile"]`},
		phrases:   []string{"turnstile"},
	},
	{
		name:      "arkose",
		selectors: []string{`#FunCaptcha`, `iframe[src*="arkoselabs"]`, `.funcaptcha`},
		phrases:   []string{"arkose", "funcaptcha"},
	},
}

// genericCaptchaPhrases catch CAPTCHA pages from providers not otherwise
// fingerprinted.
var genericCaptchaPhrases = []string{
	"captcha",
	"prove you're human",
	"verify you are human",
	"i'm not a robot",
	"complete the security check",
}

func detectCaptcha(snap Snapshot) CaptchaResult {
	doc := parseDocument(snap.HTML)
	if doc != nil {
		for _, provider := range captchaProviders {
			for _, sel := range provider.selectors {
				if doc.Find(sel).Length() > 0 {
					return CaptchaResult{
						Detected:   true,
						Type:       provider.name,
						Confidence: ConfidenceHigh,
						Selector:   sel,
					}
				}
			}
		}
	}

	haystack := snap.HTML + " " + snap.VisibleText
	for _, provider := range captchaProviders {
		if hit := containsAny(haystack, provider.phrases); hit != "" {
			return CaptchaResult{
				Detected:   true,
				Type:       provider.name,
				Confidence: ConfidenceMedium,
			}
		}
	}

	if hit := containsAny(snap.VisibleText, genericCaptchaPhrases); hit != "" {
		return CaptchaResult{
			Detected:   true,
			Type:       "unknown",
			Confidence: ConfidenceLow,
		}
	}

	return CaptchaResult{Detected: false}
}
