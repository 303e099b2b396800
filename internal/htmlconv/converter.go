// Package htmlconv converts Zotero's HTML note bodies into markdown.
// The converter is a pluggable collaborator: callers depend on the
// Converter interface, and the default implementation wraps the
// html-to-markdown library with a tag-stripping fallback so malformed
// input degrades instead of failing.
package htmlconv

import (
	"regexp"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
)

// Converter turns an HTML string into readable text. Implementations
// must accept any input and never fail; blank input yields "".
type Converter interface {
	ToMarkdown(html string) string
}

// MarkdownConverter is the default Converter backed by the
// html-to-markdown library.
type MarkdownConverter struct {
	converter *md.Converter
}

// NewMarkdownConverter creates the default HTML → markdown converter.
func NewMarkdownConverter() *MarkdownConverter {
	return &MarkdownConverter{
		converter: md.NewConverter("", true, nil),
	}
}

// ToMarkdown converts the HTML body to markdown. Conversion failures
// fall back to stripping tags so a malformed note still exports its
// text.
func (c *MarkdownConverter) ToMarkdown(html string) string {
	if strings.TrimSpace(html) == "" {
		return ""
	}

	out, err := c.converter.ConvertString(html)
	if err != nil {
		return StripTags(html)
	}
	return strings.TrimSpace(out)
}

var (
	tagPattern   = regexp.MustCompile(`(?s)<[^>]*>`)
	blankRuns    = regexp.MustCompile(`\n{3,}`)
	breakPattern = regexp.MustCompile(`(?i)<(?:br\s*/?|/p|/div|/li|/h[1-6])>`)
)

// StripTags is the degraded conversion path: block-level closers
// become newlines, every other tag is dropped, and common entities
// are decoded.
func StripTags(html string) string {
	text := breakPattern.ReplaceAllString(html, "\n")
	text = tagPattern.ReplaceAllString(text, "")

	replacer := strings.NewReplacer(
		"&amp;", "&",
		"&lt;", "<",
		"&gt;", ">",
		"&quot;", `"`,
		"&#39;", "'",
		"&nbsp;", " ",
	)
	text = replacer.Replace(text)
	text = blankRuns.ReplaceAllString(text, "\n\n")

	return strings.TrimSpace(text)
}

var _ Converter = (*MarkdownConverter)(nil)
