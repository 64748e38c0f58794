package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSCodeUnmarshalJSON(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected JSCode
	}{
		{
			name:     "bare string",
			input:    `"document.title"`,
			expected: JSCode{"document.title"},
		},
		{
			name:     "array of strings",
			input:    `["a()", "b()"]`,
			expected: JSCode{"a()", "b()"},
		},
		{
			name:     "empty string",
			input:    `""`,
			expected: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got JSCode
			require.NoError(t, json.Unmarshal([]byte(tt.input), &got))
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestJSCodeUnmarshalJSONInvalid(t *testing.T) {
	var got JSCode
	err := json.Unmarshal([]byte(`42`), &got)
	assert.Error(t, err)
}

func TestRenderOptionsJavaScriptEnabled(t *testing.T) {
	var withoutFlag RenderOptions
	assert.True(t, withoutFlag.JavaScriptEnabled())

	disabled := false
	withFlag := RenderOptions{JavaScript: &disabled}
	assert.False(t, withFlag.JavaScriptEnabled())
}

func TestRenderRequestTimeout(t *testing.T) {
	req := RenderRequest{Render: RenderOptions{TimeoutMS: 5000}}
	assert.Equal(t, int64(5000), req.Timeout().Milliseconds())
}

func TestNewErrorResponse(t *testing.T) {
	resp := NewErrorResponse("req-1", ErrCodeValidationError, "url is required")
	assert.False(t, resp.Success)
	require.Len(t, resp.Errors, 1)
	assert.Equal(t, ErrCodeValidationError, resp.Errors[0].Code)
	assert.Equal(t, "req-1", resp.RequestID)
}
