package exporters

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/techczech/zotero-agent-bridge/internal/naming"
	"github.com/techczech/zotero-agent-bridge/internal/zotero"
)

type stubLibrary struct {
	items     map[int64]*zotero.Item
	recursive map[int64][]zotero.ItemSummary
	subtrees  map[int64][]zotero.CollectionNode
	direct    map[int64][]zotero.ItemSummary
}

func (s *stubLibrary) GetItem(itemID int64) (*zotero.Item, error) {
	item, ok := s.items[itemID]
	if !ok {
		return nil, fmt.Errorf("item %d: %w", itemID, zotero.ErrItemNotFound)
	}
	return item, nil
}

func (s *stubLibrary) CollectionItems(collectionID int64) ([]zotero.ItemSummary, error) {
	return s.recursive[collectionID], nil
}

func (s *stubLibrary) CollectionSubtree(collectionID int64) ([]zotero.CollectionNode, error) {
	return s.subtrees[collectionID], nil
}

func (s *stubLibrary) CollectionDirectItems(collectionID int64) ([]zotero.ItemSummary, error) {
	return s.direct[collectionID], nil
}

type scriptedPolicy struct {
	conflict      ConflictDecision
	conflictCalls int
	choose        func(pdfs []zotero.Attachment) []zotero.Attachment
	chooseCalls   int
}

func (p *scriptedPolicy) ResolveConflict(existingPath string, item *zotero.Item) (ConflictDecision, error) {
	p.conflictCalls++
	return p.conflict, nil
}

func (p *scriptedPolicy) SelectAttachments(item *zotero.Item, pdfs []zotero.Attachment) ([]zotero.Attachment, error) {
	p.chooseCalls++
	if p.choose == nil {
		return pdfs, nil
	}
	return p.choose(pdfs), nil
}

// stubConverter marks converted bodies so tests can tell conversion
// happened without depending on real HTML conversion output.
type stubConverter struct{}

func (stubConverter) ToMarkdown(html string) string {
	if strings.TrimSpace(html) == "" {
		return ""
	}
	return "md:" + strings.TrimSpace(html)
}

var testNow = func() time.Time { return time.Date(2024, 6, 15, 14, 30, 0, 0, time.UTC) }

// writeStorageFile creates <storage>/<attachmentKey>/<name> with
// dummy content and returns the storage root.
func writeStorageFile(t *testing.T, storage, attachmentKey, name string) {
	t.Helper()
	dir := filepath.Join(storage, attachmentKey)
	require.NoError(t, os.MkdirAll(dir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("%PDF-1.4"), 0644))
}

func storageAttachment(itemID int64, key, filename string) zotero.Attachment {
	return zotero.Attachment{
		ItemID:      itemID,
		Key:         key,
		ContentType: "application/pdf",
		Path:        "storage:" + filename,
		IsPDF:       true,
		Filename:    filename,
	}
}

func testItem() *zotero.Item {
	return &zotero.Item{
		ItemID:      1,
		Key:         "ITEM1KEY",
		LibraryName: "My Library",
		ItemType:    "journalArticle",
		Title:       "Distributed Consensus",
		Year:        "2019",
		Attachments: []zotero.Attachment{storageAttachment(101, "ATTKEY01", "paper.pdf")},
		Notes: []zotero.Note{
			{ItemID: 201, ParentKind: zotero.ParentItem, ParentID: 1, Title: "Summary", HTML: "<p>item note</p>"},
		},
		Annotations: []zotero.Annotation{
			{ItemID: 301, ParentID: 101, Type: "highlight", Text: "a fine quote", PageLabel: "5"},
		},
	}
}

func newTestExporter(t *testing.T, lib Library, layout naming.LayoutMode, policy DecisionPolicy) (*Exporter, string) {
	t.Helper()
	base := t.TempDir()
	out := filepath.Join(base, "out")
	storage := filepath.Join(base, "storage")
	exp := New(lib, Options{
		OutputDir:  out,
		Layout:     layout,
		StorageDir: storage,
		Now:        testNow,
	}, policy, stubConverter{})
	return exp, base
}

func TestExportItems(t *testing.T) {
	t.Run("exports item folder with document and attachment", func(t *testing.T) {
		lib := &stubLibrary{items: map[int64]*zotero.Item{1: testItem()}}
		exp, base := newTestExporter(t, lib, naming.LayoutItemFolder, nil)
		writeStorageFile(t, filepath.Join(base, "storage"), "ATTKEY01", "paper.pdf")

		result, err := exp.ExportItems([]int64{1})
		require.NoError(t, err)

		assert.Equal(t, 1, result.Exported)
		assert.Zero(t, result.Skipped)
		assert.Zero(t, result.Failed)
		assert.False(t, result.Cancelled)
		assert.Empty(t, result.Warnings)

		folder := filepath.Join(base, "out", "ITEM1KEY-Distributed-Consensus")
		assert.FileExists(t, filepath.Join(folder, "paper.pdf"))

		doc, err := os.ReadFile(filepath.Join(folder, "item.md"))
		require.NoError(t, err)
		assert.Contains(t, string(doc), `  - "paper.pdf"`)
		assert.Contains(t, string(doc), "### Highlight 1")
		assert.Contains(t, string(doc), "> a fine quote")
		assert.Contains(t, string(doc), "### Note 1: Summary")
		assert.Contains(t, string(doc), "md:<p>item note</p>")
		assert.Contains(t, string(doc), "exported_at: 2024-06-15T14:30:00Z")
	})

	t.Run("missing aggregate counts as failed, batch continues", func(t *testing.T) {
		lib := &stubLibrary{items: map[int64]*zotero.Item{1: testItem()}}
		exp, base := newTestExporter(t, lib, naming.LayoutItemFolder, nil)
		writeStorageFile(t, filepath.Join(base, "storage"), "ATTKEY01", "paper.pdf")

		result, err := exp.ExportItems([]int64{999, 1})
		require.NoError(t, err)

		assert.Equal(t, 1, result.Failed)
		assert.Equal(t, 1, result.Exported)
	})

	t.Run("skip decision leaves existing target untouched", func(t *testing.T) {
		lib := &stubLibrary{items: map[int64]*zotero.Item{1: testItem()}}
		exp, base := newTestExporter(t, lib, naming.LayoutItemFolder, nil)
		writeStorageFile(t, filepath.Join(base, "storage"), "ATTKEY01", "paper.pdf")

		_, err := exp.ExportItems([]int64{1})
		require.NoError(t, err)

		folder := filepath.Join(base, "out", "ITEM1KEY-Distributed-Consensus")
		marker := filepath.Join(folder, "user-edited.txt")
		require.NoError(t, os.WriteFile(marker, []byte("keep me"), 0644))

		policy := &scriptedPolicy{conflict: DecisionSkip}
		exp2 := New(lib, Options{
			OutputDir:  filepath.Join(base, "out"),
			Layout:     naming.LayoutItemFolder,
			StorageDir: filepath.Join(base, "storage"),
			Now:        testNow,
		}, policy, stubConverter{})

		result, err := exp2.ExportItems([]int64{1})
		require.NoError(t, err)

		assert.Equal(t, 1, result.Skipped)
		assert.Zero(t, result.Exported)
		assert.Equal(t, 1, policy.conflictCalls)
		assert.FileExists(t, marker)
	})

	t.Run("cancel stops the remaining batch", func(t *testing.T) {
		item2 := testItem()
		item2.ItemID = 2
		item2.Key = "ITEM2KEY"
		item2.Title = "Second Paper"
		lib := &stubLibrary{items: map[int64]*zotero.Item{1: testItem(), 2: item2}}

		exp, base := newTestExporter(t, lib, naming.LayoutItemFolder, &scriptedPolicy{conflict: DecisionCancel})
		out := filepath.Join(base, "out")
		require.NoError(t, os.MkdirAll(filepath.Join(out, "ITEM1KEY-Distributed-Consensus"), 0755))

		result, err := exp.ExportItems([]int64{1, 2})
		require.NoError(t, err)

		assert.True(t, result.Cancelled)
		assert.Zero(t, result.Exported)
		assert.NoDirExists(t, filepath.Join(out, "ITEM2KEY-Second-Paper"))
	})

	t.Run("overwrite in flat layout sweeps prefixed files", func(t *testing.T) {
		lib := &stubLibrary{items: map[int64]*zotero.Item{1: testItem()}}
		exp, base := newTestExporter(t, lib, naming.LayoutFlat, &scriptedPolicy{conflict: DecisionOverwrite})
		writeStorageFile(t, filepath.Join(base, "storage"), "ATTKEY01", "paper.pdf")

		out := filepath.Join(base, "out")
		require.NoError(t, os.MkdirAll(out, 0755))
		slug := "ITEM1KEY-Distributed-Consensus"
		require.NoError(t, os.WriteFile(filepath.Join(out, slug+".md"), []byte("old"), 0644))
		require.NoError(t, os.WriteFile(filepath.Join(out, slug+"__stale.pdf"), []byte("old"), 0644))
		require.NoError(t, os.WriteFile(filepath.Join(out, "other.md"), []byte("keep"), 0644))

		result, err := exp.ExportItems([]int64{1})
		require.NoError(t, err)

		assert.Equal(t, 1, result.Exported)
		assert.NoFileExists(t, filepath.Join(out, slug+"__stale.pdf"))
		assert.FileExists(t, filepath.Join(out, "other.md"))
		assert.FileExists(t, filepath.Join(out, slug+"__paper.pdf"))

		doc, err := os.ReadFile(filepath.Join(out, slug+".md"))
		require.NoError(t, err)
		assert.Contains(t, string(doc), "# Distributed Consensus")
	})

	t.Run("unsupported and missing attachment sources warn without failing", func(t *testing.T) {
		item := testItem()
		item.Attachments = []zotero.Attachment{
			{ItemID: 101, Key: "ATTKEY01", Path: "relative.pdf", IsPDF: true, Filename: "relative.pdf"},
			storageAttachment(102, "ATTKEY02", "gone.pdf"),
		}
		item.Annotations = nil
		lib := &stubLibrary{items: map[int64]*zotero.Item{1: item}}
		exp, base := newTestExporter(t, lib, naming.LayoutItemFolder, nil)

		result, err := exp.ExportItems([]int64{1})
		require.NoError(t, err)

		assert.Equal(t, 1, result.Exported)
		assert.Zero(t, result.Failed)
		require.Len(t, result.Warnings, 2)
		assert.Contains(t, result.Warnings[0], "unsupported attachment path")
		assert.Contains(t, result.Warnings[1], "attachment source missing")

		doc, err := os.ReadFile(filepath.Join(base, "out", "ITEM1KEY-Distributed-Consensus", "item.md"))
		require.NoError(t, err)
		assert.Contains(t, string(doc), "attachments: []")
	})

	t.Run("multiple pdfs consult the policy and filters follow the selection", func(t *testing.T) {
		item := testItem()
		item.Attachments = []zotero.Attachment{
			storageAttachment(101, "ATTKEY01", "kept.pdf"),
			storageAttachment(102, "ATTKEY02", "dropped.pdf"),
		}
		item.Annotations = []zotero.Annotation{
			{ItemID: 301, ParentID: 101, Text: "kept highlight"},
			{ItemID: 302, ParentID: 102, Text: "dropped highlight"},
		}
		item.Notes = []zotero.Note{
			{ItemID: 201, ParentKind: zotero.ParentItem, ParentID: 1, HTML: "<p>item note</p>"},
			{ItemID: 202, ParentKind: zotero.ParentAttachment, ParentID: 101, HTML: "<p>kept note</p>"},
			{ItemID: 203, ParentKind: zotero.ParentAttachment, ParentID: 102, HTML: "<p>dropped note</p>"},
		}

		policy := &scriptedPolicy{
			conflict: DecisionOverwrite,
			choose: func(pdfs []zotero.Attachment) []zotero.Attachment {
				return pdfs[:1]
			},
		}
		lib := &stubLibrary{items: map[int64]*zotero.Item{1: item}}
		exp, base := newTestExporter(t, lib, naming.LayoutItemFolder, policy)
		writeStorageFile(t, filepath.Join(base, "storage"), "ATTKEY01", "kept.pdf")
		writeStorageFile(t, filepath.Join(base, "storage"), "ATTKEY02", "dropped.pdf")

		result, err := exp.ExportItems([]int64{1})
		require.NoError(t, err)

		assert.Equal(t, 1, result.Exported)
		assert.Equal(t, 1, policy.chooseCalls)

		folder := filepath.Join(base, "out", "ITEM1KEY-Distributed-Consensus")
		assert.FileExists(t, filepath.Join(folder, "kept.pdf"))
		assert.NoFileExists(t, filepath.Join(folder, "dropped.pdf"))

		doc, err := os.ReadFile(filepath.Join(folder, "item.md"))
		require.NoError(t, err)
		assert.Contains(t, string(doc), "kept highlight")
		assert.NotContains(t, string(doc), "dropped highlight")
		assert.Contains(t, string(doc), "md:<p>item note</p>")
		assert.Contains(t, string(doc), "md:<p>kept note</p>")
		assert.NotContains(t, string(doc), "dropped note")
	})

	t.Run("a single pdf is kept without consulting the policy", func(t *testing.T) {
		policy := &scriptedPolicy{conflict: DecisionOverwrite}
		lib := &stubLibrary{items: map[int64]*zotero.Item{1: testItem()}}
		exp, base := newTestExporter(t, lib, naming.LayoutItemFolder, policy)
		writeStorageFile(t, filepath.Join(base, "storage"), "ATTKEY01", "paper.pdf")

		_, err := exp.ExportItems([]int64{1})
		require.NoError(t, err)

		assert.Zero(t, policy.chooseCalls)
	})

	t.Run("colliding attachment filenames get numbered suffixes", func(t *testing.T) {
		item := testItem()
		item.Attachments = []zotero.Attachment{
			storageAttachment(101, "ATTKEY01", "doc.pdf"),
			storageAttachment(102, "ATTKEY02", "doc.pdf"),
		}
		item.Annotations = nil

		lib := &stubLibrary{items: map[int64]*zotero.Item{1: item}}
		exp, base := newTestExporter(t, lib, naming.LayoutItemFolder, nil)
		writeStorageFile(t, filepath.Join(base, "storage"), "ATTKEY01", "doc.pdf")
		writeStorageFile(t, filepath.Join(base, "storage"), "ATTKEY02", "doc.pdf")

		result, err := exp.ExportItems([]int64{1})
		require.NoError(t, err)
		assert.Equal(t, 1, result.Exported)

		folder := filepath.Join(base, "out", "ITEM1KEY-Distributed-Consensus")
		assert.FileExists(t, filepath.Join(folder, "doc.pdf"))
		assert.FileExists(t, filepath.Join(folder, "doc-2.pdf"))

		doc, err := os.ReadFile(filepath.Join(folder, "item.md"))
		require.NoError(t, err)
		assert.Contains(t, string(doc), `  - "doc.pdf"`)
		assert.Contains(t, string(doc), `  - "doc-2.pdf"`)
	})
}

func TestExportCollection(t *testing.T) {
	summary := zotero.ItemSummary{ItemID: 1, Key: "ITEM1KEY"}

	t.Run("recursive export deduplicates items", func(t *testing.T) {
		lib := &stubLibrary{
			items:     map[int64]*zotero.Item{1: testItem()},
			recursive: map[int64][]zotero.ItemSummary{10: {summary}},
		}
		exp, base := newTestExporter(t, lib, naming.LayoutItemFolder, nil)
		writeStorageFile(t, filepath.Join(base, "storage"), "ATTKEY01", "paper.pdf")

		result, err := exp.ExportCollection(10, false)
		require.NoError(t, err)

		assert.Equal(t, 1, result.Exported)
		assert.DirExists(t, filepath.Join(base, "out", "ITEM1KEY-Distributed-Consensus"))
	})

	t.Run("mirror mode exports an item once per containing collection", func(t *testing.T) {
		root := zotero.Collection{CollectionID: 10, Name: "Research"}
		childA := zotero.Collection{CollectionID: 11, Name: "Alpha", ParentID: 10}
		childB := zotero.Collection{CollectionID: 12, Name: "Beta", ParentID: 10}

		lib := &stubLibrary{
			items: map[int64]*zotero.Item{1: testItem()},
			subtrees: map[int64][]zotero.CollectionNode{
				10: {
					{Collection: root, Path: []string{"Research"}},
					{Collection: childA, Path: []string{"Research", "Alpha"}},
					{Collection: childB, Path: []string{"Research", "Beta"}},
				},
			},
			direct: map[int64][]zotero.ItemSummary{
				11: {summary},
				12: {summary},
			},
		}
		exp, base := newTestExporter(t, lib, naming.LayoutItemFolder, nil)
		writeStorageFile(t, filepath.Join(base, "storage"), "ATTKEY01", "paper.pdf")

		result, err := exp.ExportCollection(10, true)
		require.NoError(t, err)

		// An item filed in two sibling sub-collections lands in both
		// mirrored folders.
		assert.Equal(t, 2, result.Exported)
		assert.DirExists(t, filepath.Join(base, "out", "Research", "Alpha", "ITEM1KEY-Distributed-Consensus"))
		assert.DirExists(t, filepath.Join(base, "out", "Research", "Beta", "ITEM1KEY-Distributed-Consensus"))
	})
}
