// Package htmlprocessor extracts lightweight metadata from rendered HTML
// without re-running a browser: currently just the page title, read via a
// DOM parse of the extracted HTML string.
package htmlprocessor

const maxTitleLength = 200

// Document provides read-only access to a parsed HTML page.
type Document interface {
	// Title extracts the page title from the <title> tag, truncated to
	// 200 runes. Returns empty string if not found.
	Title() string
}
