package exporters

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/techczech/zotero-agent-bridge/internal/zotero"
)

var renderTime = time.Date(2024, 6, 15, 14, 30, 0, 0, time.UTC)

func sampleItem() *zotero.Item {
	return &zotero.Item{
		ItemID:      1,
		Key:         "ABCD1234",
		LibraryName: "My Library",
		ItemType:    "journalArticle",
		Title:       "Consensus in Asynchronous Systems",
		Creators: []zotero.Creator{
			{LastName: "Lamport", FirstName: "Leslie", DisplayName: "Lamport, Leslie"},
		},
		Date:        "1985-04",
		Year:        "1985",
		Publication: "Journal of the ACM",
		Tags:        []string{"consensus", "distributed"},
		Collections: []string{"Classics"},
	}
}

func TestRenderItemDocument(t *testing.T) {
	t.Run("empty sections render None placeholders", func(t *testing.T) {
		doc := RenderItemDocument(sampleItem(), nil, nil, nil, renderTime)

		assert.Contains(t, doc, "## Highlights\n\nNone")
		assert.Contains(t, doc, "## Notes\n\nNone")
	})

	t.Run("frontmatter carries metadata and export timestamp", func(t *testing.T) {
		doc := RenderItemDocument(sampleItem(), []string{"paper.pdf"}, nil, nil, renderTime)

		assert.Contains(t, doc, `title: "Consensus in Asynchronous Systems"`)
		assert.Contains(t, doc, "item_key: ABCD1234")
		assert.Contains(t, doc, `item_type: "journalArticle"`)
		assert.Contains(t, doc, `library: "My Library"`)
		assert.Contains(t, doc, `  - "Lamport, Leslie"`)
		assert.Contains(t, doc, `year: "1985"`)
		assert.Contains(t, doc, `publication: "Journal of the ACM"`)
		assert.Contains(t, doc, `  - "consensus"`)
		assert.Contains(t, doc, `  - "paper.pdf"`)
		assert.Contains(t, doc, "exported_at: 2024-06-15T14:30:00Z")
		assert.Contains(t, doc, "# Consensus in Asynchronous Systems")
	})

	t.Run("empty lists render as empty YAML lists", func(t *testing.T) {
		item := sampleItem()
		item.Tags = nil
		item.Collections = nil
		doc := RenderItemDocument(item, nil, nil, nil, renderTime)

		assert.Contains(t, doc, "tags: []")
		assert.Contains(t, doc, "collections: []")
		assert.Contains(t, doc, "attachments: []")
	})

	t.Run("empty optional scalars are omitted", func(t *testing.T) {
		item := sampleItem()
		item.DOI = ""
		item.Volume = ""
		doc := RenderItemDocument(item, nil, nil, nil, renderTime)

		assert.NotContains(t, doc, "doi:")
		assert.NotContains(t, doc, "volume:")
	})

	t.Run("highlights are numbered with conditional fields", func(t *testing.T) {
		highlights := []zotero.Annotation{
			{Text: "First quote", Comment: "important", Color: "#ffd400", PageLabel: "5"},
			{Text: "Second quote"},
		}
		doc := RenderItemDocument(sampleItem(), nil, highlights, nil, renderTime)

		assert.Contains(t, doc, "### Highlight 1")
		assert.Contains(t, doc, "**Page:** 5")
		assert.Contains(t, doc, "**Color:** #ffd400")
		assert.Contains(t, doc, "> First quote")
		assert.Contains(t, doc, "**Comment:** important")
		assert.Contains(t, doc, "### Highlight 2")
		assert.Contains(t, doc, "> Second quote")
		assert.NotContains(t, doc, "**Page:** \n")
	})

	t.Run("blank highlight text and comment are not emitted", func(t *testing.T) {
		highlights := []zotero.Annotation{{Text: "  ", Comment: "\t", PageLabel: "3"}}
		doc := RenderItemDocument(sampleItem(), nil, highlights, nil, renderTime)

		assert.Contains(t, doc, "**Page:** 3")
		assert.NotContains(t, doc, ">")
		assert.NotContains(t, doc, "**Comment:**")
	})

	t.Run("multiline highlight text stays inside the quote block", func(t *testing.T) {
		highlights := []zotero.Annotation{{Text: "line one\nline two"}}
		doc := RenderItemDocument(sampleItem(), nil, highlights, nil, renderTime)

		assert.Contains(t, doc, "> line one\n> line two")
	})

	t.Run("notes are numbered with titles and placeholder bodies", func(t *testing.T) {
		notes := []RenderedNote{
			{Title: "Reading notes", Body: "Some converted **markdown**."},
			{Body: ""},
		}
		doc := RenderItemDocument(sampleItem(), nil, nil, notes, renderTime)

		assert.Contains(t, doc, "### Note 1: Reading notes")
		assert.Contains(t, doc, "Some converted **markdown**.")
		assert.Contains(t, doc, "### Note 2\n")
		assert.Contains(t, doc, "*(empty note)*")
	})

	t.Run("escapes quotes in frontmatter values", func(t *testing.T) {
		item := sampleItem()
		item.Title = `A "Quoted" Title`
		doc := RenderItemDocument(item, nil, nil, nil, renderTime)

		assert.Contains(t, doc, `title: "A \"Quoted\" Title"`)
	})
}
