package ratelimit

import (
	"strings"

	"github.com/valyala/fasthttp"
)

// ClientKey derives the rate-limiter key for one request: the first value
// of X-Forwarded-For if present, else the socket peer address.
func ClientKey(ctx *fasthttp.RequestCtx) string {
	if xff := ctx.Request.Header.Peek("X-Forwarded-For"); len(xff) > 0 {
		first := strings.TrimSpace(strings.SplitN(string(xff), ",", 2)[0])
		if first != "" {
			return normalizeIP(first)
		}
	}
	return normalizeIP(ctx.RemoteIP().String())
}

// normalizeIP strips IPv6 brackets and any port suffix a proxy may have
// appended ahead of the client address.
func normalizeIP(addr string) string {
	addr = strings.TrimPrefix(addr, "[")
	if idx := strings.Index(addr, "]"); idx != -1 {
		return addr[:idx]
	}
	if strings.Count(addr, ":") == 1 {
		return addr[:strings.Index(addr, ":")]
	}
	return addr
}
