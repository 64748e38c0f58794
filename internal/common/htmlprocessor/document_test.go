package htmlprocessor

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDocument_Title(t *testing.T) {
	t.Run("basic title", func(t *testing.T) {
		html := `<!DOCTYPE html><html><head><title>Hello World</title></head><body></body></html>`
		doc, err := ParseWithDOM([]byte(html))
		require.NoError(t, err)
		assert.Equal(t, "Hello World", doc.Title())
	})

	t.Run("whitespace trimmed", func(t *testing.T) {
		html := `<!DOCTYPE html><html><head><title>  Spaced  </title></head><body></body></html>`
		doc, err := ParseWithDOM([]byte(html))
		require.NoError(t, err)
		assert.Equal(t, "Spaced", doc.Title())
	})

	t.Run("long title truncated to 200 runes", func(t *testing.T) {
		longTitle := strings.Repeat("a", 250)
		html := `<!DOCTYPE html><html><head><title>` + longTitle + `</title></head><body></body></html>`
		doc, err := ParseWithDOM([]byte(html))
		require.NoError(t, err)
		result := doc.Title()
		assert.Len(t, []rune(result), 200)
		assert.Equal(t, strings.Repeat("a", 200), result)
	})

	t.Run("no title tag returns empty", func(t *testing.T) {
		html := `<!DOCTYPE html><html><head></head><body></body></html>`
		doc, err := ParseWithDOM([]byte(html))
		require.NoError(t, err)
		assert.Equal(t, "", doc.Title())
	})

	t.Run("empty title returns empty", func(t *testing.T) {
		html := `<!DOCTYPE html><html><head><title></title></head><body></body></html>`
		doc, err := ParseWithDOM([]byte(html))
		require.NoError(t, err)
		assert.Equal(t, "", doc.Title())
	})

	t.Run("whitespace only title returns empty", func(t *testing.T) {
		html := `<!DOCTYPE html><html><head><title>   </title></head><body></body></html>`
		doc, err := ParseWithDOM([]byte(html))
		require.NoError(t, err)
		assert.Equal(t, "", doc.Title())
	})

	t.Run("HTML entities decoded", func(t *testing.T) {
		html := `<!DOCTYPE html><html><head><title>A &amp; B</title></head><body></body></html>`
		doc, err := ParseWithDOM([]byte(html))
		require.NoError(t, err)
		assert.Equal(t, "A & B", doc.Title())
	})

	t.Run("title outside head ignored", func(t *testing.T) {
		html := `<!DOCTYPE html><html><head></head><body><title>Body Title</title></body></html>`
		doc, err := ParseWithDOM([]byte(html))
		require.NoError(t, err)
		assert.Equal(t, "", doc.Title())
	})

	t.Run("unicode multibyte not truncated at 200 runes", func(t *testing.T) {
		unicodeTitle := strings.Repeat("あ", 200)
		html := `<!DOCTYPE html><html><head><title>` + unicodeTitle + `</title></head><body></body></html>`
		doc, err := ParseWithDOM([]byte(html))
		require.NoError(t, err)
		result := doc.Title()
		assert.Len(t, []rune(result), 200)
		assert.Equal(t, unicodeTitle, result)
	})

	t.Run("unicode multibyte truncated correctly at rune boundary", func(t *testing.T) {
		unicodeTitle := strings.Repeat("あ", 250)
		html := `<!DOCTYPE html><html><head><title>` + unicodeTitle + `</title></head><body></body></html>`
		doc, err := ParseWithDOM([]byte(html))
		require.NoError(t, err)
		result := doc.Title()
		assert.Len(t, []rune(result), 200)
		assert.Equal(t, strings.Repeat("あ", 200), result)
	})

	t.Run("no head tag returns empty", func(t *testing.T) {
		html := `<!DOCTYPE html><html><body><title>No Head</title></body></html>`
		doc, err := ParseWithDOM([]byte(html))
		require.NoError(t, err)
		assert.Equal(t, "", doc.Title())
	})

	t.Run("first title in head used", func(t *testing.T) {
		html := `<!DOCTYPE html><html><head><title>First</title><title>Second</title></head><body></body></html>`
		doc, err := ParseWithDOM([]byte(html))
		require.NoError(t, err)
		assert.Equal(t, "First", doc.Title())
	})

	t.Run("newlines and tabs trimmed", func(t *testing.T) {
		html := "<!DOCTYPE html><html><head><title>\n\t  Title With Whitespace  \t\n</title></head><body></body></html>"
		doc, err := ParseWithDOM([]byte(html))
		require.NoError(t, err)
		assert.Equal(t, "Title With Whitespace", doc.Title())
	})
}
