package pipeline

import (
	"strings"
	"testing"

	"github.com/chromedp/cdproto/runtime"
	"github.com/stretchr/testify/assert"
)

func TestFormatConsoleArgUnquotesStringValue(t *testing.T) {
	arg := &runtime.RemoteObject{Value: []byte(`"hello world"`)}
	assert.Equal(t, "hello world", formatConsoleArg(arg))
}

func TestFormatConsoleArgKeepsRawNumberValue(t *testing.T) {
	arg := &runtime.RemoteObject{Value: []byte(`42`)}
	assert.Equal(t, "42", formatConsoleArg(arg))
}

func TestFormatConsoleArgIgnoresNullAndUndefined(t *testing.T) {
	assert.Equal(t, "", formatConsoleArg(&runtime.RemoteObject{Value: []byte(`null`)}))
	assert.Equal(t, "", formatConsoleArg(&runtime.RemoteObject{Value: []byte(`undefined`)}))
}

func TestFormatConsoleArgFallsBackToDescription(t *testing.T) {
	arg := &runtime.RemoteObject{Description: "Error: boom"}
	assert.Equal(t, "Error: boom", formatConsoleArg(arg))
}

func TestFormatConsoleArgFallsBackToClassName(t *testing.T) {
	arg := &runtime.RemoteObject{ClassName: "TypeError"}
	assert.Equal(t, "[TypeError]", formatConsoleArg(arg))
}

func TestFormatConsoleArgHandlesNil(t *testing.T) {
	assert.Equal(t, "", formatConsoleArg(nil))
}

func TestConsoleCollectorRecordsMessage(t *testing.T) {
	c := newConsoleCollector()
	ok := c.record("error", "something broke", "https://example.com/app.js")
	assert.True(t, ok)

	msgs := c.snapshot()
	assert.Len(t, msgs, 1)
	assert.Equal(t, "error", msgs[0].Type)
	assert.Equal(t, "something broke", msgs[0].Text)
	assert.Equal(t, "https://example.com/app.js", msgs[0].Source)
}

func TestConsoleCollectorEmptySnapshotIsNil(t *testing.T) {
	c := newConsoleCollector()
	assert.Nil(t, c.snapshot())
}

func TestConsoleCollectorCapsTotalTextSize(t *testing.T) {
	c := newConsoleCollector()
	chunk := strings.Repeat("x", maxConsoleMessagesTextSize/2)

	assert.True(t, c.record("error", chunk, ""))
	assert.True(t, c.record("error", chunk, ""))
	assert.False(t, c.record("error", chunk, ""))

	assert.Len(t, c.snapshot(), 2)
}
