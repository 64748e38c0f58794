package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"

	"github.com/edgecomet/render-service/pkg/types"
)

// lifecycleEventNames maps the request's wait-until mode onto the CDP
// lifecycle event name that satisfies it.
var lifecycleEventNames = map[string]string{
	types.WaitUntilCommit:           "commit",
	types.WaitUntilDOMContentLoaded: "DOMContentLoaded",
	types.WaitUntilLoad:             "load",
	types.WaitUntilNetworkIdle:      "networkIdle",
}

// navOutcome carries what navigateAndWait observed, for the pipeline to
// fold into the response meta: the final HTTP status (a null/aborted
// navigation is treated as an assumed 200) and whether the lifecycle wait
// soft-timed-out.
type navOutcome struct {
	statusCode int
	timedOut   bool
	finalURL   string
}

// enableLifecycleEvents turns on the page lifecycle events the navigation
// wait depends on.
func enableLifecycleEvents() chromedp.ActionFunc {
	return func(ctx context.Context) error {
		if err := page.Enable().Do(ctx); err != nil {
			return err
		}
		return page.SetLifecycleEventsEnabled(true).Do(ctx)
	}
}

// navigateAndWait navigates to targetURL and waits for the lifecycle event
// matching waitUntil, scoped to the frame/loader the navigation produced so
// sibling navigations in other leases never cross-signal. The wait is
// soft: on timeout it records timedOut and still lets the pipeline proceed
// to extraction.
//
// The status-code listener keeps updating on every document response seen
// for the navigated frame rather than latching onto the first one, since a
// redirecting target (http->https, bare domain->www) produces a 30x
// document response before the final page's, and only the last one
// reflects what actually got rendered.
func navigateAndWait(targetURL, waitUntil string, timeout time.Duration, out *navOutcome) chromedp.ActionFunc {
	return func(ctx context.Context) error {
		out.statusCode = 200

		var mu sync.Mutex
		var mainFrameID string

		listenCtx, stopListening := context.WithCancel(ctx)
		defer stopListening()
		chromedp.ListenTarget(listenCtx, func(ev interface{}) {
			e, ok := ev.(*network.EventResponseReceived)
			if !ok || e.Type != network.ResourceTypeDocument {
				return
			}
			mu.Lock()
			defer mu.Unlock()
			if mainFrameID != "" && string(e.FrameID) != mainFrameID {
				return
			}
			out.statusCode = int(e.Response.Status)
		})

		frameID, loaderID, _, _, err := page.Navigate(targetURL).Do(ctx)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrNavigateFailed, err)
		}
		mu.Lock()
		mainFrameID = string(frameID)
		mu.Unlock()

		eventName := lifecycleEventNames[waitUntil]
		if eventName == "" {
			eventName = lifecycleEventNames[types.DefaultWaitUntil]
		}

		if err := waitForLifecycleEvent(ctx, eventName, string(frameID), string(loaderID), timeout); err != nil {
			out.timedOut = true
		}

		out.finalURL = targetURL
		_ = chromedp.Location(&out.finalURL).Do(ctx)
		return nil
	}
}

func waitForLifecycleEvent(ctx context.Context, eventName, frameID, loaderID string, timeout time.Duration) error {
	done := make(chan struct{})

	listenerCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	chromedp.ListenTarget(listenerCtx, func(ev interface{}) {
		e, ok := ev.(*page.EventLifecycleEvent)
		if !ok {
			return
		}
		if string(e.FrameID) != frameID || string(e.LoaderID) != loaderID {
			return
		}
		if string(e.Name) == eventName {
			select {
			case <-done:
			default:
				close(done)
			}
		}
	})

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(timeout):
		return ErrWaitTimeout
	}
}

// stabilizeNetworkIdle polls document.body.innerHTML.length every 200ms for
// up to 3s, declaring the page stable after two consecutive unchanged
// samples. Only run when wait-until is network-idle, as a belt-and-braces
// check beyond the lifecycle event.
func stabilizeNetworkIdle() chromedp.ActionFunc {
	return func(ctx context.Context) error {
		const (
			pollInterval = 200 * time.Millisecond
			maxWait      = 3 * time.Second
		)

		deadline := time.Now().Add(maxWait)
		var lastLen, unchangedSamples int64

		for time.Now().Before(deadline) {
			var length int64
			if err := chromedp.Evaluate(`document.body ? document.body.innerHTML.length : 0`, &length).Do(ctx); err != nil {
				return nil
			}
			if length == lastLen {
				unchangedSamples++
				if unchangedSamples >= 2 {
					return nil
				}
			} else {
				unchangedSamples = 0
				lastLen = length
			}

			select {
			case <-ctx.Done():
				return nil
			case <-time.After(pollInterval):
			}
		}
		return nil
	}
}
