package exporters

import (
	"fmt"
	"strings"
	"time"

	"github.com/techczech/zotero-agent-bridge/internal/zotero"
)

// RenderedNote is a note whose HTML body has already been run
// through the text-transform collaborator.
type RenderedNote struct {
	Title string
	Body  string
}

// emptyNotePlaceholder is emitted for notes whose converted body is
// blank.
const emptyNotePlaceholder = "*(empty note)*"

func yamlQuote(s string) string {
	return `"` + strings.ReplaceAll(strings.ReplaceAll(s, `\`, `\\`), `"`, `\"`) + `"`
}

func writeScalar(sb *strings.Builder, key, value string) {
	if value == "" {
		return
	}
	fmt.Fprintf(sb, "%s: %s\n", key, yamlQuote(value))
}

func writeList(sb *strings.Builder, key string, values []string) {
	if len(values) == 0 {
		fmt.Fprintf(sb, "%s: []\n", key)
		return
	}
	fmt.Fprintf(sb, "%s:\n", key)
	for _, v := range values {
		fmt.Fprintf(sb, "  - %s\n", yamlQuote(v))
	}
}

// RenderItemDocument renders one item aggregate plus its selected
// export subset into the final markdown document: YAML frontmatter,
// title heading, then the Highlights and Notes sections. Highlight
// and note lists must already be filtered to the selected
// attachments; note bodies must already be converted from HTML.
func RenderItemDocument(
	item *zotero.Item,
	copiedFiles []string,
	highlights []zotero.Annotation,
	notes []RenderedNote,
	exportedAt time.Time,
) string {
	var sb strings.Builder

	sb.WriteString("---\n")
	writeScalar(&sb, "title", item.Title)
	fmt.Fprintf(&sb, "item_key: %s\n", item.Key)
	writeScalar(&sb, "item_type", item.ItemType)
	writeScalar(&sb, "library", item.LibraryName)
	writeList(&sb, "authors", item.CreatorNames())
	writeScalar(&sb, "date", item.Date)
	writeScalar(&sb, "year", item.Year)
	writeScalar(&sb, "publication", item.Publication)
	writeScalar(&sb, "volume", item.Volume)
	writeScalar(&sb, "issue", item.Issue)
	writeScalar(&sb, "pages", item.Pages)
	writeScalar(&sb, "publisher", item.Publisher)
	writeScalar(&sb, "place", item.Place)
	writeScalar(&sb, "language", item.Language)
	writeScalar(&sb, "doi", item.DOI)
	writeScalar(&sb, "url", item.URL)
	writeScalar(&sb, "abstract", item.Abstract)
	writeScalar(&sb, "extra", item.Extra)
	writeList(&sb, "tags", item.Tags)
	writeList(&sb, "collections", item.Collections)
	writeList(&sb, "attachments", copiedFiles)
	writeScalar(&sb, "date_added", item.DateAdded)
	writeScalar(&sb, "date_modified", item.DateModified)
	fmt.Fprintf(&sb, "exported_at: %s\n", exportedAt.Format(time.RFC3339))
	sb.WriteString("---\n\n")

	fmt.Fprintf(&sb, "# %s\n\n", item.Title)

	sb.WriteString("## Highlights\n\n")
	if len(highlights) == 0 {
		sb.WriteString("None\n")
	} else {
		for i, h := range highlights {
			renderHighlight(&sb, i+1, h)
		}
	}

	sb.WriteString("\n## Notes\n\n")
	if len(notes) == 0 {
		sb.WriteString("None\n")
	} else {
		for i, n := range notes {
			renderNote(&sb, i+1, n)
		}
	}

	return sb.String()
}

// renderHighlight writes one numbered highlight block. Page label,
// color, text and comment are each emitted only when present, never
// as empty placeholders.
func renderHighlight(sb *strings.Builder, number int, h zotero.Annotation) {
	fmt.Fprintf(sb, "### Highlight %d\n\n", number)

	if h.PageLabel != "" {
		fmt.Fprintf(sb, "**Page:** %s\n", h.PageLabel)
	}
	if h.Color != "" {
		fmt.Fprintf(sb, "**Color:** %s\n", h.Color)
	}
	if h.PageLabel != "" || h.Color != "" {
		sb.WriteString("\n")
	}

	if text := strings.TrimSpace(h.Text); text != "" {
		fmt.Fprintf(sb, "> %s\n\n", strings.ReplaceAll(text, "\n", "\n> "))
	}
	if comment := strings.TrimSpace(h.Comment); comment != "" {
		fmt.Fprintf(sb, "**Comment:** %s\n\n", comment)
	}
}

func renderNote(sb *strings.Builder, number int, n RenderedNote) {
	if n.Title != "" {
		fmt.Fprintf(sb, "### Note %d: %s\n\n", number, n.Title)
	} else {
		fmt.Fprintf(sb, "### Note %d\n\n", number)
	}

	body := strings.TrimSpace(n.Body)
	if body == "" {
		body = emptyNotePlaceholder
	}
	fmt.Fprintf(sb, "%s\n\n", body)
}
