// Package detection classifies a rendered page as clean, captcha-gated, or
// blocked by a bot-mitigation provider, from a single HTML/text snapshot.
package detection

import (
	"context"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/sync/errgroup"
)

// Confidence levels, ordered low to high.
const (
	ConfidenceLow    = "low"
	ConfidenceMedium = "medium"
	ConfidenceHigh   = "high"
)

// CaptchaResult is the outcome of the CAPTCHA classifier.
type CaptchaResult struct {
	Detected   bool   `json:"detected"`
	Type       string `json:"type,omitempty"`
	Confidence string `json:"confidence,omitempty"`
	Selector   string `json:"selector,omitempty"`
}

// BlockResult is the outcome of the WAF/block classifier.
type BlockResult struct {
	Blocked    bool   `json:"blocked"`
	Provider   string `json:"provider,omitempty"`
	Reason     string `json:"reason,omitempty"`
	Confidence string `json:"confidence,omitempty"`
	Details    string `json:"details,omitempty"`
}

// Snapshot is the read-only page state both classifiers inspect. Neither
// classifier mutates it; a panic or error in one must not affect the other.
type Snapshot struct {
	HTML       string
	VisibleText string
	StatusCode int
}

// Result bundles both classifiers' verdicts for one render.
type Result struct {
	Captcha CaptchaResult
	Block   BlockResult
}

// Classify runs the CAPTCHA and block classifiers concurrently against the
// same snapshot. Neither classifier's failure propagates: a panic recovered
// inside either goroutine downgrades that classifier's result to its
// zero-confidence default and leaves the other's verdict standing.
func Classify(ctx context.Context, snap Snapshot) Result {
	var result Result

	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error {
		result.Captcha = safeCaptchaCheck(snap)
		return nil
	})
	g.Go(func() error {
		result.Block = safeBlockCheck(snap)
		return nil
	})
	_ = g.Wait()

	return result
}

func safeCaptchaCheck(snap Snapshot) (res CaptchaResult) {
	defer func() {
		if r := recover(); r != nil {
			res = CaptchaResult{Detected: false, Confidence: ConfidenceLow}
		}
	}()
	return detectCaptcha(snap)
}

func safeBlockCheck(snap Snapshot) (res BlockResult) {
	defer func() {
		if r := recover(); r != nil {
			res = BlockResult{Blocked: false, Confidence: ConfidenceLow}
		}
	}()
	return detectBlock(snap)
}

func parseDocument(htmlStr string) *goquery.Document {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlStr))
	if err != nil {
		return nil
	}
	return doc
}

func containsAny(haystack string, needles []string) string {
	lower := strings.ToLower(haystack)
	for _, n := range needles {
		if strings.Contains(lower, n) {
			return n
		}
	}
	return ""
}
