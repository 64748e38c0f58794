package pipeline

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/chromedp/chromedp"

	"github.com/edgecomet/render-service/pkg/types"
)

type scrollSample struct {
	ScrollHeight  int64
	InnerHTMLLen  int64
	InnerHeight   int64
	ScrollY       int64
}

// runScrollEngine drives a bounded, humanized scroll loop: each step
// scrolls a randomized fraction of the viewport, waits a jittered delay,
// and samples page growth to detect infinite-scroll content and decide
// whether to keep going.
func runScrollEngine(ctx context.Context, opts types.ScrollOptions) {
	maxScrolls := opts.MaxScrolls
	if maxScrolls <= 0 {
		maxScrolls = types.DefaultMaxScrolls
	}
	delay := time.Duration(opts.DelayMS) * time.Millisecond
	if delay <= 0 {
		delay = time.Duration(types.DefaultScrollDelayMS) * time.Millisecond
	}

	random := rand.New(rand.NewSource(time.Now().UnixNano()))
	prev, ok := sampleScroll(ctx)
	if !ok {
		return
	}

	for i := 0; i < maxScrolls; i++ {
		select {
		case <-ctx.Done():
			return
		default:
		}

		fraction := 0.6 + random.Float64()*0.3
		script := fmt.Sprintf(`window.scrollBy(0, window.innerHeight * %.4f)`, fraction)
		if err := chromedp.Run(ctx, chromedp.Evaluate(script, nil)); err != nil {
			return
		}

		jittered := jitterDuration(random, delay, 0.25)
		select {
		case <-ctx.Done():
			return
		case <-time.After(jittered):
		}

		cur, ok := sampleScroll(ctx)
		if !ok {
			return
		}

		grewHeight := cur.ScrollHeight > prev.ScrollHeight
		grewContent := prev.InnerHTMLLen > 0 && float64(cur.InnerHTMLLen-prev.InnerHTMLLen)/float64(prev.InnerHTMLLen) > 0.02
		if grewHeight || grewContent {
			extra := time.Duration(200+random.Intn(300)) * time.Millisecond
			select {
			case <-ctx.Done():
				return
			case <-time.After(extra):
			}
		}

		atBottom := cur.InnerHeight+cur.ScrollY >= cur.ScrollHeight-100
		if atBottom {
			if err := chromedp.Run(ctx, chromedp.Evaluate(`window.scrollBy(0, 200)`, nil)); err != nil {
				return
			}
			time.Sleep(jitterDuration(random, delay, 0.25))
			after, ok := sampleScroll(ctx)
			if !ok || after.ScrollHeight <= cur.ScrollHeight {
				return
			}
			cur = after
		}

		if random.Float64() < 0.2 {
			idle := time.Duration(500+random.Intn(1000)) * time.Millisecond
			select {
			case <-ctx.Done():
				return
			case <-time.After(idle):
			}
		}

		prev = cur
	}
}

func sampleScroll(ctx context.Context) (scrollSample, bool) {
	var sample scrollSample
	script := `({
		ScrollHeight: document.body ? document.body.scrollHeight : 0,
		InnerHTMLLen: document.body ? document.body.innerHTML.length : 0,
		InnerHeight: window.innerHeight,
		ScrollY: Math.round(window.scrollY)
	})`
	if err := chromedp.Run(ctx, chromedp.Evaluate(script, &sample)); err != nil {
		return scrollSample{}, false
	}
	return sample, true
}

func jitterDuration(random *rand.Rand, base time.Duration, pct float64) time.Duration {
	delta := (random.Float64()*2 - 1) * pct
	return time.Duration(float64(base) * (1 + delta))
}

