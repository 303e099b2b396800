// Package exporters turns item aggregates into markdown bundles on
// disk: one document per item plus copied PDF attachments, laid out
// per the configured layout mode. Processing is strictly sequential
// (one item, one file operation at a time) and the destination tree
// assumes a single writer.
package exporters

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/techczech/zotero-agent-bridge/internal/htmlconv"
	"github.com/techczech/zotero-agent-bridge/internal/naming"
	"github.com/techczech/zotero-agent-bridge/internal/zotero"
)

// Library is the read side the exporter pulls aggregates from.
// *zotero.Store implements it.
type Library interface {
	GetItem(itemID int64) (*zotero.Item, error)
	CollectionItems(collectionID int64) ([]zotero.ItemSummary, error)
	CollectionSubtree(collectionID int64) ([]zotero.CollectionNode, error)
	CollectionDirectItems(collectionID int64) ([]zotero.ItemSummary, error)
}

// Options configures one exporter instance.
type Options struct {
	// OutputDir is the export root.
	OutputDir string
	// Layout selects the directory/file shape per item.
	Layout naming.LayoutMode
	// StorageDir is the Zotero storage directory that "storage:"
	// attachment paths resolve against.
	StorageDir string
	// Now supplies the export timestamp; defaults to time.Now.
	// Injectable for deterministic output in tests.
	Now func() time.Time
}

// ExportResult accumulates the outcome of one export run.
type ExportResult struct {
	Exported  int
	Skipped   int
	Failed    int
	Cancelled bool
	Warnings  []string
}

func (r *ExportResult) warn(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	r.Warnings = append(r.Warnings, msg)
	log.Printf("Warning: %s", msg)
}

// Exporter runs the per-item export pipeline: load aggregate,
// resolve paths, settle destination conflicts, copy selected
// attachments, render and write the document.
type Exporter struct {
	library Library
	options Options
	policy  DecisionPolicy
	convert htmlconv.Converter
}

// New creates an Exporter. A nil policy defaults to always-overwrite
// AutoPolicy; a nil converter defaults to the html-to-markdown one.
func New(library Library, options Options, policy DecisionPolicy, convert htmlconv.Converter) *Exporter {
	if options.Now == nil {
		options.Now = time.Now
	}
	if policy == nil {
		policy = AutoPolicy{Conflict: DecisionOverwrite}
	}
	if convert == nil {
		convert = htmlconv.NewMarkdownConverter()
	}
	return &Exporter{
		library: library,
		options: options,
		policy:  policy,
		convert: convert,
	}
}

// ExportItems exports the given items into the output root. One bad
// item never aborts the batch: failures are counted and logged, and
// processing continues. Only a cancel conflict decision stops the
// run early.
func (e *Exporter) ExportItems(itemIDs []int64) (*ExportResult, error) {
	result := &ExportResult{}
	e.exportBatch(itemIDs, e.options.OutputDir, result)
	e.logSummary(result)
	return result, nil
}

// ExportCollection exports every item of a collection subtree. In
// mirror mode the sub-collection hierarchy is reproduced as nested
// folders and each collection's direct items are exported into its
// folder, so an item filed in two sibling sub-collections is exported
// once per folder. Without mirroring, the deduplicated recursive
// item set lands flat in the output root.
func (e *Exporter) ExportCollection(collectionID int64, mirror bool) (*ExportResult, error) {
	result := &ExportResult{}

	if !mirror {
		summaries, err := e.library.CollectionItems(collectionID)
		if err != nil {
			return nil, err
		}
		e.exportBatch(summaryIDs(summaries), e.options.OutputDir, result)
		e.logSummary(result)
		return result, nil
	}

	nodes, err := e.library.CollectionSubtree(collectionID)
	if err != nil {
		return nil, err
	}

	for _, node := range nodes {
		if result.Cancelled {
			break
		}

		segments := make([]string, 0, len(node.Path)+1)
		segments = append(segments, e.options.OutputDir)
		for _, name := range node.Path {
			segment := naming.SanitizeSegment(name)
			if segment == "" {
				segment = "collection"
			}
			segments = append(segments, segment)
		}
		root := filepath.Join(segments...)

		summaries, err := e.library.CollectionDirectItems(node.CollectionID)
		if err != nil {
			result.warn("collection %q: %v", node.Name, err)
			continue
		}
		e.exportBatch(summaryIDs(summaries), root, result)
	}

	e.logSummary(result)
	return result, nil
}

func summaryIDs(summaries []zotero.ItemSummary) []int64 {
	ids := make([]int64, 0, len(summaries))
	for _, sum := range summaries {
		ids = append(ids, sum.ItemID)
	}
	return ids
}

func (e *Exporter) exportBatch(itemIDs []int64, root string, result *ExportResult) {
	for _, id := range itemIDs {
		if result.Cancelled {
			return
		}
		if err := e.exportItem(id, root, result); err != nil {
			result.Failed++
			log.Printf("Failed to export item %d: %v", id, err)
		}
	}
}

func (e *Exporter) logSummary(result *ExportResult) {
	log.Printf("Export completed: %d exported, %d skipped, %d failed, cancelled=%v, %d warnings",
		result.Exported, result.Skipped, result.Failed, result.Cancelled, len(result.Warnings))
}

// exportItem runs the whole pipeline for one item. Skip and cancel
// decisions are recorded on the result and return nil; a returned
// error means the item failed.
func (e *Exporter) exportItem(itemID int64, root string, result *ExportResult) error {
	item, err := e.library.GetItem(itemID)
	if err != nil {
		return err
	}

	slug := naming.BuildItemSlug(item.Key, item.Title)
	paths, err := naming.ResolveItemOutputPaths(root, e.options.Layout, slug, item.Year)
	if err != nil {
		return err
	}

	if pathExists(paths.ConflictTarget) {
		decision, err := e.policy.ResolveConflict(paths.ConflictTarget, item)
		if err != nil {
			return fmt.Errorf("conflict resolution for %s: %w", item.Key, err)
		}
		switch decision {
		case DecisionSkip:
			result.Skipped++
			log.Printf("Skipped item %s (%s): target exists", item.Key, item.Title)
			return nil
		case DecisionCancel:
			result.Cancelled = true
			log.Printf("Export cancelled at item %s (%s)", item.Key, item.Title)
			return nil
		case DecisionOverwrite:
			if err := e.removeExistingTarget(paths, slug); err != nil {
				return fmt.Errorf("failed to overwrite target for %s: %w", item.Key, err)
			}
		default:
			return fmt.Errorf("unknown conflict decision %q for item %s", decision, item.Key)
		}
	}

	pdfs := item.PDFAttachments()
	selected := pdfs
	if len(pdfs) > 1 {
		selected, err = e.policy.SelectAttachments(item, pdfs)
		if err != nil {
			return fmt.Errorf("attachment selection for %s: %w", item.Key, err)
		}
	}

	if err := os.MkdirAll(paths.AttachmentDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	copied := e.copyAttachments(item, selected, paths, result)

	selectedIDs := make(map[int64]bool, len(selected))
	for _, a := range selected {
		selectedIDs[a.ItemID] = true
	}

	var highlights []zotero.Annotation
	for _, a := range item.Annotations {
		if selectedIDs[a.ParentID] {
			highlights = append(highlights, a)
		}
	}

	var notes []RenderedNote
	for _, n := range item.Notes {
		if n.ParentKind == zotero.ParentAttachment && !selectedIDs[n.ParentID] {
			continue
		}
		notes = append(notes, RenderedNote{
			Title: n.Title,
			Body:  e.convert.ToMarkdown(n.HTML),
		})
	}

	doc := RenderItemDocument(item, copied, highlights, notes, e.options.Now())
	if err := os.WriteFile(paths.MarkdownPath, []byte(doc), 0644); err != nil {
		return fmt.Errorf("failed to write document: %w", err)
	}

	result.Exported++
	log.Printf("Exported item %s (%s) to %s", item.Key, item.Title, paths.MarkdownPath)
	return nil
}

// copyAttachments materializes the selected attachments next to the
// document. Unsupported or missing sources become warnings, never
// item failures.
func (e *Exporter) copyAttachments(item *zotero.Item, selected []zotero.Attachment, paths naming.OutputPaths, result *ExportResult) []string {
	var copied []string
	for _, att := range selected {
		src, err := e.resolveAttachmentSource(att)
		if err != nil {
			result.warn("item %s: %v", item.Key, err)
			continue
		}
		if !pathExists(src) {
			result.warn("item %s: attachment source missing: %s", item.Key, src)
			continue
		}

		name := paths.AttachmentPrefix + naming.SanitizeFilename(att.Filename)
		target := naming.MakeUniqueFilePath(filepath.Join(paths.AttachmentDir, name))
		if err := copyFile(src, target); err != nil {
			result.warn("item %s: failed to copy %s: %v", item.Key, att.Filename, err)
			continue
		}
		copied = append(copied, filepath.Base(target))
	}
	return copied
}

// windowsDrivePattern recognizes absolute Windows paths like
// `C:\Users\...` coming from a database created on another machine.
var windowsDrivePattern = regexp.MustCompile(`^[A-Za-z]:\\`)

// resolveAttachmentSource maps an attachment's raw path to a source
// file on disk. "storage:" paths resolve under the storage root by
// attachment key; absolute POSIX and Windows paths pass through; any
// other shape is unsupported.
func (e *Exporter) resolveAttachmentSource(att zotero.Attachment) (string, error) {
	if rel, ok := att.StorageRelativePath(); ok {
		return filepath.Join(e.options.StorageDir, att.Key, rel), nil
	}
	if strings.HasPrefix(att.Path, "/") || windowsDrivePattern.MatchString(att.Path) {
		return att.Path, nil
	}
	return "", fmt.Errorf("unsupported attachment path %q", att.Path)
}

// removeExistingTarget clears a prior export before overwriting. For
// folder layouts the whole item folder goes; for flat layout the
// markdown file goes along with any files sharing the item's flat
// prefix.
func (e *Exporter) removeExistingTarget(paths naming.OutputPaths, slug string) error {
	if paths.Folder != "" {
		return os.RemoveAll(paths.Folder)
	}

	if err := os.Remove(paths.MarkdownPath); err != nil && !os.IsNotExist(err) {
		return err
	}

	entries, err := os.ReadDir(paths.AttachmentDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	prefix := slug + "__"
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasPrefix(entry.Name(), prefix) {
			continue
		}
		if err := os.Remove(filepath.Join(paths.AttachmentDir, entry.Name())); err != nil {
			return err
		}
	}
	return nil
}

func pathExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open source: %w", err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("failed to create target: %w", err)
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("failed to copy: %w", err)
	}
	return out.Close()
}

var _ Library = (*zotero.Store)(nil)
