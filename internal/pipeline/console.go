package pipeline

import (
	"context"
	"strconv"
	"strings"
	"sync"

	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"

	"github.com/edgecomet/render-service/pkg/types"
)

// maxConsoleMessagesTextSize caps the total text length of collected
// console messages so a page that logs in a tight loop can't bloat the
// response.
const maxConsoleMessagesTextSize = 5120

// consoleCollector accumulates console.error and console.warn calls
// observed during one render. Other console levels (log, info, debug) are
// ignored; they're noise for a headless-render diagnostic.
type consoleCollector struct {
	mu       sync.Mutex
	messages []types.ConsoleMessage
	textSize int
}

func newConsoleCollector() *consoleCollector {
	return &consoleCollector{}
}

// listen installs a Runtime.consoleAPICalled handler onto ctx; the caller
// is responsible for enabling the Runtime domain beforehand.
func (c *consoleCollector) listen(ctx context.Context) {
	chromedp.ListenTarget(ctx, func(ev interface{}) {
		e, ok := ev.(*runtime.EventConsoleAPICalled)
		if !ok {
			return
		}

		var msgType string
		switch e.Type {
		case runtime.APITypeError:
			msgType = types.ConsoleTypeError
		case runtime.APITypeWarning:
			msgType = types.ConsoleTypeWarning
		default:
			return
		}

		parts := make([]string, 0, len(e.Args))
		for _, arg := range e.Args {
			if part := formatConsoleArg(arg); part != "" {
				parts = append(parts, part)
			}
		}
		if len(parts) == 0 {
			return
		}
		text := strings.Join(parts, " ")

		var source string
		if e.StackTrace != nil && len(e.StackTrace.CallFrames) > 0 {
			source = e.StackTrace.CallFrames[0].URL
		}

		c.record(msgType, text, source)
	})
}

// record appends one message, unless doing so would push the collector's
// total text size past maxConsoleMessagesTextSize. Returns whether it was
// recorded.
func (c *consoleCollector) record(msgType, text, source string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.textSize+len(text) > maxConsoleMessagesTextSize {
		return false
	}
	c.messages = append(c.messages, types.ConsoleMessage{Type: msgType, Text: text, Source: source})
	c.textSize += len(text)
	return true
}

// snapshot returns the collected messages, or nil if none were captured.
func (c *consoleCollector) snapshot() []types.ConsoleMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.messages) == 0 {
		return nil
	}
	out := make([]types.ConsoleMessage, len(c.messages))
	copy(out, c.messages)
	return out
}

// formatConsoleArg renders one console.* argument as text: unquoted JSON
// strings, raw JSON for numbers/booleans, and a description or class name
// fallback for objects.
func formatConsoleArg(arg *runtime.RemoteObject) string {
	if arg == nil {
		return ""
	}
	if len(arg.Value) > 0 {
		raw := string(arg.Value)
		if unquoted, err := strconv.Unquote(raw); err == nil {
			return unquoted
		}
		if raw != "null" && raw != "undefined" {
			return raw
		}
	}
	if arg.Description != "" {
		return arg.Description
	}
	if arg.ClassName != "" {
		return "[" + arg.ClassName + "]"
	}
	return string(arg.Type)
}
