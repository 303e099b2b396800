package htmlconv

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMarkdownConverter(t *testing.T) {
	conv := NewMarkdownConverter()

	t.Run("converts basic markup", func(t *testing.T) {
		out := conv.ToMarkdown("<p>Hello <strong>world</strong></p>")
		assert.Contains(t, out, "Hello")
		assert.Contains(t, out, "**world**")
	})

	t.Run("blank input yields empty string", func(t *testing.T) {
		assert.Equal(t, "", conv.ToMarkdown(""))
		assert.Equal(t, "", conv.ToMarkdown("   \n\t"))
	})

	t.Run("plain text passes through", func(t *testing.T) {
		assert.Equal(t, "just text", conv.ToMarkdown("just text"))
	})
}

func TestStripTags(t *testing.T) {
	t.Run("drops tags and keeps text", func(t *testing.T) {
		assert.Equal(t, "Hello world", StripTags("<p>Hello <em>world</em></p>"))
	})

	t.Run("block closers become line breaks", func(t *testing.T) {
		out := StripTags("<p>one</p><p>two</p>")
		assert.Equal(t, "one\ntwo", out)
	})

	t.Run("decodes common entities", func(t *testing.T) {
		assert.Equal(t, `a & b < c "d"`, StripTags("a &amp; b &lt; c &quot;d&quot;"))
	})

	t.Run("collapses blank line runs", func(t *testing.T) {
		out := StripTags("one<br><br><br><br>two")
		assert.Equal(t, "one\n\ntwo", out)
	})
}
