package httpapi

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/valyala/fasthttp"
)

func TestHandlerRoutesUnknownPathTo404(t *testing.T) {
	s := newTestServer(t)
	handler := s.Handler()

	ctx := &fasthttp.RequestCtx{}
	ctx.Request.Header.SetMethod(fasthttp.MethodGet)
	ctx.Request.SetRequestURI("/nope")

	handler(ctx)

	assert.Equal(t, fasthttp.StatusNotFound, ctx.Response.StatusCode())
}

func TestHandlerAppliesCORSHeaders(t *testing.T) {
	s := newTestServer(t)
	handler := s.Handler()

	ctx := &fasthttp.RequestCtx{}
	ctx.Request.Header.SetMethod(fasthttp.MethodGet)
	ctx.Request.SetRequestURI("/health")

	handler(ctx)

	assert.Equal(t, "*", string(ctx.Response.Header.Peek("Access-Control-Allow-Origin")))
}

func TestHandlerRespondsToPreflightOptions(t *testing.T) {
	s := newTestServer(t)
	handler := s.Handler()

	ctx := &fasthttp.RequestCtx{}
	ctx.Request.Header.SetMethod(fasthttp.MethodOptions)
	ctx.Request.SetRequestURI("/v1/render")

	handler(ctx)

	assert.Equal(t, fasthttp.StatusNoContent, ctx.Response.StatusCode())
}

func TestHandlerSkipsCORSWhenDisabled(t *testing.T) {
	s := newTestServer(t)
	s.corsEnabled = false
	handler := s.Handler()

	ctx := &fasthttp.RequestCtx{}
	ctx.Request.Header.SetMethod(fasthttp.MethodGet)
	ctx.Request.SetRequestURI("/health")

	handler(ctx)

	assert.Empty(t, string(ctx.Response.Header.Peek("Access-Control-Allow-Origin")))
}
