package htmlprocessor

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"
)

func parseHTML(t *testing.T, htmlStr string) *html.Node {
	t.Helper()
	doc, err := html.Parse(strings.NewReader(htmlStr))
	require.NoError(t, err)
	return doc
}

func TestFindElement(t *testing.T) {
	tests := []struct {
		name     string
		html     string
		tag      string
		wantNil  bool
		wantData string
	}{
		{
			name:     "finds nested element",
			html:     `<html><body><div><span id="target">text</span></div></body></html>`,
			tag:      "span",
			wantData: "span",
		},
		{
			name:    "returns nil for missing element",
			html:    `<html><body><div>text</div></body></html>`,
			tag:     "span",
			wantNil: true,
		},
		{
			name:     "case insensitive search",
			html:     `<html><body><DIV>text</DIV></body></html>`,
			tag:      "div",
			wantData: "div",
		},
		{
			name:     "finds first match",
			html:     `<html><body><div id="first"></div><div id="second"></div></body></html>`,
			tag:      "div",
			wantData: "div",
		},
		{
			name:     "finds deeply nested element",
			html:     `<html><body><div><section><article><p>text</p></article></section></div></body></html>`,
			tag:      "p",
			wantData: "p",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := parseHTML(t, tt.html)
			result := findElement(doc, tt.tag)

			if tt.wantNil {
				assert.Nil(t, result)
			} else {
				require.NotNil(t, result)
				assert.Equal(t, tt.wantData, result.Data)
			}
		})
	}
}

func TestFindElement_NilNode(t *testing.T) {
	result := findElement(nil, "div")
	assert.Nil(t, result)
}

func TestFindElementInParent(t *testing.T) {
	htmlStr := `<html><head><title>Test</title></head><body><title>Body Title</title></body></html>`
	doc := parseHTML(t, htmlStr)

	head := findElement(doc, "head")
	require.NotNil(t, head)

	title := findElementInParent(head, "title")
	require.NotNil(t, title)
	assert.Equal(t, "Test", getTextContent(title))
}

func TestFindElementInParent_NilParent(t *testing.T) {
	result := findElementInParent(nil, "div")
	assert.Nil(t, result)
}

func TestGetTextContent(t *testing.T) {
	tests := []struct {
		name string
		html string
		tag  string
		want string
	}{
		{
			name: "extracts simple text",
			html: `<html><body><p>Hello World</p></body></html>`,
			tag:  "p",
			want: "Hello World",
		},
		{
			name: "extracts text from nested tags",
			html: `<html><body><p>Hello <span>World</span></p></body></html>`,
			tag:  "p",
			want: "Hello World",
		},
		{
			name: "extracts text from deeply nested tags",
			html: `<html><body><div>A<span>B<em>C</em>D</span>E</div></body></html>`,
			tag:  "div",
			want: "ABCDE",
		},
		{
			name: "extracts text from title",
			html: `<html><head><title>Hello World Test</title></head></html>`,
			tag:  "title",
			want: "Hello World Test",
		},
		{
			name: "returns empty for empty element",
			html: `<html><body><p></p></body></html>`,
			tag:  "p",
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := parseHTML(t, tt.html)
			target := findElement(doc, tt.tag)
			require.NotNil(t, target)

			result := getTextContent(target)
			assert.Equal(t, tt.want, result)
		})
	}
}

func TestGetTextContent_NilNode(t *testing.T) {
	result := getTextContent(nil)
	assert.Equal(t, "", result)
}
