package pipeline

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/dom"
	"github.com/chromedp/chromedp"

	"github.com/edgecomet/render-service/internal/common/htmlprocessor"
)

const (
	extractAttempts = 3
	extractBackoff  = 300 * time.Millisecond
)

// extractHTML reads the live DOM's serialized outer HTML with a short
// retry loop: a page still settling from navigation can transiently fail
// dom.GetDocument.
func extractHTML(out *string) chromedp.ActionFunc {
	return func(ctx context.Context) error {
		var lastErr error
		for attempt := 0; attempt < extractAttempts; attempt++ {
			if attempt > 0 {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-time.After(extractBackoff):
				}
			}

			docNode, err := dom.GetDocument().Do(ctx)
			if err != nil {
				lastErr = err
				continue
			}
			html, err := dom.GetOuterHTML().WithNodeID(docNode.NodeID).Do(ctx)
			if err != nil {
				lastErr = err
				continue
			}
			*out = html
			return nil
		}
		return fmt.Errorf("extract html after %d attempts: %w", extractAttempts, lastErr)
	}
}

// extractTitle derives the page title from the already-extracted HTML
// rather than re-querying the live page, so it never fails the render.
func extractTitle(html string) string {
	doc, err := htmlprocessor.ParseWithDOM([]byte(html))
	if err != nil {
		return ""
	}
	return doc.Title()
}

// captureScreenshot takes a full-page PNG screenshot and base64-encodes it.
func captureScreenshot(out *string) chromedp.ActionFunc {
	return func(ctx context.Context) error {
		var buf []byte
		if err := chromedp.FullScreenshot(&buf, 90).Do(ctx); err != nil {
			return err
		}
		*out = base64.StdEncoding.EncodeToString(buf)
		return nil
	}
}
