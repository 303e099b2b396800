// Package naming computes filesystem-safe, collision-free output
// paths for exported items. Everything here is deterministic; the
// only I/O is the existence probing in MakeUniqueFilePath.
package naming

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// LayoutMode selects the output directory/file shape for an item.
type LayoutMode string

const (
	// LayoutFlat writes a single markdown file per item directly in
	// the output root; attachments share the directory and get a
	// "<slug>__" filename prefix.
	LayoutFlat LayoutMode = "flat"
	// LayoutItemFolder gives each item its own folder with item.md
	// and attachments alongside.
	LayoutItemFolder LayoutMode = "item-folder"
	// LayoutYearItem nests item folders under a year folder.
	LayoutYearItem LayoutMode = "year-item"
)

// maxSegmentLength caps a sanitized path segment. Most filesystems
// allow 255 bytes per name; 80 leaves generous room for the item key,
// collision suffixes and extensions.
const maxSegmentLength = 80

var (
	// stripDiacritics decomposes characters and removes the
	// combining marks, so "Müller" sanitizes to "Muller".
	stripDiacritics = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

	disallowedChars  = regexp.MustCompile(`[^A-Za-z0-9._\-\s]`)
	whitespaceRuns   = regexp.MustCompile(`\s+`)
	repeatedHyphens  = regexp.MustCompile(`-{2,}`)
	disallowedExtRun = regexp.MustCompile(`[^A-Za-z0-9.]`)
)

// SanitizeSegment turns arbitrary text into a safe path segment:
// diacritics stripped, anything outside [A-Za-z0-9._- ] removed,
// whitespace runs collapsed to single hyphens, repeated hyphens
// collapsed, leading/trailing hyphens and dots stripped, capped at 80
// characters.
func SanitizeSegment(text string) string {
	if normalized, _, err := transform.String(stripDiacritics, text); err == nil {
		text = normalized
	}

	text = disallowedChars.ReplaceAllString(text, "")
	text = strings.TrimSpace(text)
	text = whitespaceRuns.ReplaceAllString(text, "-")
	text = repeatedHyphens.ReplaceAllString(text, "-")
	text = strings.Trim(text, "-.")

	if len(text) > maxSegmentLength {
		text = strings.Trim(text[:maxSegmentLength], "-.")
	}

	return text
}

// BuildItemSlug derives the stable "<key>-<title>" slug for an item.
// The title part is sanitized and already capped, so the whole slug
// never exceeds the segment cap plus the key length plus one
// separator.
func BuildItemSlug(key, title string) string {
	t := SanitizeSegment(title)
	if t == "" {
		t = "untitled"
	}
	return key + "-" + t
}

// SanitizeFilename sanitizes the base name of a filename while
// preserving its extension. The extension keeps only alphanumerics
// and dots.
func SanitizeFilename(name string) string {
	ext := filepath.Ext(name)
	base := strings.TrimSuffix(name, ext)

	base = SanitizeSegment(base)
	if base == "" {
		base = "attachment"
	}
	ext = disallowedExtRun.ReplaceAllString(ext, "")

	return base + ext
}

// OutputPaths is the resolved destination layout for one item.
type OutputPaths struct {
	// Folder is the item's own directory, empty in flat layout.
	Folder string
	// MarkdownPath is where the rendered document is written.
	MarkdownPath string
	// AttachmentDir receives copied attachment files.
	AttachmentDir string
	// AttachmentPrefix is prepended to attachment filenames (flat
	// layout only, to keep them grouped with their document).
	AttachmentPrefix string
	// ConflictTarget is the path whose existence signals a prior
	// export: the folder for folder layouts, the markdown file for
	// flat layout.
	ConflictTarget string
}

// ResolveItemOutputPaths computes the destination paths for an item
// slug under the given root and layout mode.
func ResolveItemOutputPaths(root string, layout LayoutMode, slug, year string) (OutputPaths, error) {
	switch layout {
	case LayoutFlat:
		markdown := filepath.Join(root, slug+".md")
		return OutputPaths{
			MarkdownPath:     markdown,
			AttachmentDir:    root,
			AttachmentPrefix: slug + "__",
			ConflictTarget:   markdown,
		}, nil

	case LayoutItemFolder:
		folder := filepath.Join(root, slug)
		return OutputPaths{
			Folder:         folder,
			MarkdownPath:   filepath.Join(folder, "item.md"),
			AttachmentDir:  folder,
			ConflictTarget: folder,
		}, nil

	case LayoutYearItem:
		yearSegment := SanitizeSegment(year)
		if yearSegment == "" {
			yearSegment = "unknown-year"
		}
		folder := filepath.Join(root, yearSegment, slug)
		return OutputPaths{
			Folder:         folder,
			MarkdownPath:   filepath.Join(folder, "item.md"),
			AttachmentDir:  folder,
			ConflictTarget: folder,
		}, nil

	default:
		return OutputPaths{}, fmt.Errorf("unknown layout mode: %q", layout)
	}
}

// MakeUniqueFilePath returns target unchanged when nothing exists
// there, otherwise probes "<name>-2<ext>", "<name>-3<ext>", … until a
// free path is found. Check-then-use is racy under concurrent
// writers; the exporter is strictly single-writer.
func MakeUniqueFilePath(target string) string {
	if _, err := os.Stat(target); os.IsNotExist(err) {
		return target
	}

	ext := filepath.Ext(target)
	base := strings.TrimSuffix(target, ext)
	for i := 2; ; i++ {
		candidate := fmt.Sprintf("%s-%d%s", base, i, ext)
		if _, err := os.Stat(candidate); os.IsNotExist(err) {
			return candidate
		}
	}
}
