package browser

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/browser"
	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/fetch"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/target"
	"github.com/chromedp/chromedp"
)

// chromedpEngine launches one real Chrome process via chromedp's exec
// allocator and hands out isolated browsing contexts for each lease.
type chromedpEngine struct {
	allocatorCtx    context.Context
	allocatorCancel context.CancelFunc
	browserCtx      context.Context
	browserCancel   context.CancelFunc
	version         string
}

// hardeningFlags tunes Chrome for headless, sandboxed container operation
// and disables the automation banners that would otherwise mark the
// process as non-interactive.
var hardeningFlags = []chromedp.ExecAllocatorOption{
	chromedp.Flag("headless", true),
	chromedp.Flag("disable-gpu", true),
	chromedp.Flag("no-sandbox", true),
	chromedp.Flag("disable-setuid-sandbox", true),
	chromedp.Flag("disable-dev-shm-usage", true),
	chromedp.Flag("no-first-run", true),
	chromedp.Flag("disable-extensions", true),
	chromedp.Flag("disable-background-networking", true),
	chromedp.Flag("mute-audio", true),
	chromedp.Flag("disable-sync", true),
	chromedp.Flag("disable-translate", true),
	chromedp.Flag("disable-blink-features", "AutomationControlled"),
}

// launchChromedpEngine starts a new Chrome process and returns a handle to
// it. It does not create any leased context; callers ask for those via
// NewLeaseContext.
func launchChromedpEngine(ctx context.Context) (engineHandle, error) {
	allocatorOpts := append(chromedp.DefaultExecAllocatorOptions[:], hardeningFlags...)
	allocatorCtx, allocatorCancel := chromedp.NewExecAllocator(context.Background(), allocatorOpts...)

	browserCtx, browserCancel := chromedp.NewContext(allocatorCtx)
	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocatorCancel()
		return nil, fmt.Errorf("%w: %v", ErrLaunchFailed, err)
	}

	e := &chromedpEngine{
		allocatorCtx:    allocatorCtx,
		allocatorCancel: allocatorCancel,
		browserCtx:      browserCtx,
		browserCancel:   browserCancel,
	}

	_ = chromedp.Run(browserCtx, chromedp.ActionFunc(func(ctx context.Context) error {
		_, product, _, _, _, err := browser.GetVersion().Do(ctx)
		if err != nil {
			return err
		}
		e.version = product
		return nil
	}))

	return e, nil
}

func (e *chromedpEngine) NewLeaseContext(ctx context.Context, opts ContextOptions) (leaseContext, error) {
	browserCtxOpts := []chromedp.ContextOption{chromedp.WithNewBrowserContext()}
	if opts.Proxy != nil {
		proxy := opts.Proxy
		browserCtxOpts = []chromedp.ContextOption{chromedp.WithNewBrowserContext(func(p *target.CreateBrowserContextParams) *target.CreateBrowserContextParams {
			p.ProxyServer = proxy.Server
			return p
		})}
	}
	leaseCtx, leaseCancel := chromedp.NewContext(e.browserCtx, browserCtxOpts...)

	tasks := chromedp.Tasks{}
	if opts.Proxy != nil && opts.Proxy.Username != "" {
		tasks = append(tasks, enableProxyAuth(opts.Proxy))
	}
	if opts.UserAgent != "" {
		tasks = append(tasks, emulation.SetUserAgentOverride(opts.UserAgent))
	}
	if opts.Viewport.Width > 0 && opts.Viewport.Height > 0 {
		tasks = append(tasks, emulation.SetDeviceMetricsOverride(int64(opts.Viewport.Width), int64(opts.Viewport.Height), 1, false))
	}
	if opts.Locale != "" {
		tasks = append(tasks, emulation.SetLocaleOverride().WithLocale(opts.Locale))
	}
	if opts.Timezone != "" {
		tasks = append(tasks, emulation.SetTimezoneOverride(opts.Timezone))
	}
	if len(opts.Headers) > 0 {
		headers := make(network.Headers, len(opts.Headers))
		for k, v := range opts.Headers {
			headers[k] = v
		}
		tasks = append(tasks, network.Enable(), network.SetExtraHTTPHeaders(headers))
	}
	if opts.StealthJS != "" {
		tasks = append(tasks, chromedp.ActionFunc(func(ctx context.Context) error {
			_, err := page.AddScriptToEvaluateOnNewDocument(opts.StealthJS).Do(ctx)
			return err
		}))
	}
	if len(tasks) > 0 {
		if err := chromedp.Run(leaseCtx, tasks); err != nil {
			leaseCancel()
			return nil, fmt.Errorf("%w: %v", ErrContextCreation, err)
		}
	} else if err := chromedp.Run(leaseCtx); err != nil {
		leaseCancel()
		return nil, fmt.Errorf("%w: %v", ErrContextCreation, err)
	}

	return &chromedpLeaseContext{ctx: leaseCtx, cancel: leaseCancel}, nil
}

// enableProxyAuth turns on Fetch-domain auth interception so a credentialed
// upstream proxy's 407 challenge is answered automatically instead of
// failing the navigation. handleAuthRequests stays enabled even when the
// pipeline's own resource blocklist re-issues Fetch.enable later in the
// same context, since that call also requests auth handling.
func enableProxyAuth(proxy *ProxyConfig) chromedp.ActionFunc {
	return func(ctx context.Context) error {
		if err := fetch.Enable().WithHandleAuthRequests(true).Do(ctx); err != nil {
			return err
		}
		chromedp.ListenTarget(ctx, func(ev interface{}) {
			e, ok := ev.(*fetch.EventAuthRequired)
			if !ok {
				return
			}
			go func(requestID fetch.RequestID) {
				_ = chromedp.Run(ctx, fetch.ContinueWithAuth(requestID, &fetch.AuthChallengeResponse{
					Response: fetch.AuthChallengeResponseResponseProvideCredentials,
					Username: proxy.Username,
					Password: proxy.Password,
				}))
			}(e.RequestID)
		})
		return nil
	}
}

func (e *chromedpEngine) Alive() bool {
	checkCtx, cancel := context.WithTimeout(e.browserCtx, 5*time.Second)
	defer cancel()

	err := chromedp.Run(checkCtx, chromedp.ActionFunc(func(ctx context.Context) error {
		_, _, _, _, _, err := browser.GetVersion().Do(ctx)
		return err
	}))
	return err == nil
}

func (e *chromedpEngine) Close() error {
	if e.browserCancel != nil {
		e.browserCancel()
	}
	if e.allocatorCancel != nil {
		e.allocatorCancel()
	}
	return nil
}

func (e *chromedpEngine) Version() string {
	return e.version
}

type chromedpLeaseContext struct {
	ctx    context.Context
	cancel context.CancelFunc
}

func (c *chromedpLeaseContext) Context() context.Context {
	return c.ctx
}

func (c *chromedpLeaseContext) Close() error {
	// chromedp.Cancel closes the page and the browsing context; a
	// cancelled context returns a benign error, which we swallow since
	// Close must tolerate already-closed contexts.
	_ = chromedp.Cancel(c.ctx)
	if c.cancel != nil {
		c.cancel()
	}
	return nil
}
