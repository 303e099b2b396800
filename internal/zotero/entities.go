package zotero

import (
	"path"
	"regexp"
	"strings"
)

// ParentKind tells which side of the item-or-attachment union a note
// hangs off. Annotations always belong to an attachment.
type ParentKind string

const (
	ParentItem       ParentKind = "item"
	ParentAttachment ParentKind = "attachment"
)

// UnknownCreator is the display name used when a creator row carries
// neither a name nor a last name.
const UnknownCreator = "Unknown Creator"

// Creator is one author/editor/contributor of an item, ordered by
// its index in the item's creator list. Zotero stores single-field
// creators (institutions etc.) with fieldMode=1 and the whole name in
// lastName.
type Creator struct {
	FirstName   string
	LastName    string
	FieldMode   int
	OrderIndex  int
	DisplayName string // derived once at load time
}

// displayName derives the human-readable creator name.
func (c Creator) displayName() string {
	last := strings.TrimSpace(c.LastName)
	first := strings.TrimSpace(c.FirstName)
	if c.FieldMode == 1 || first == "" {
		if last == "" {
			return UnknownCreator
		}
		return last
	}
	if last == "" {
		return first
	}
	return last + ", " + first
}

// Attachment is a file attached to an item. Path either carries a
// "storage:" prefix (content-addressed file under the Zotero storage
// directory) or an absolute filesystem path.
type Attachment struct {
	ItemID      int64
	Key         string
	ParentID    int64
	ContentType string
	Path        string
	LinkMode    int
	Title       string
	IsPDF       bool   // derived: content type or extension says PDF
	Filename    string // derived: last segment of Path, or "<key>.pdf"
}

// StorageRelativePath returns the filename part of a "storage:" path,
// or "" when the path is not storage-based.
func (a Attachment) StorageRelativePath() (string, bool) {
	rel, ok := strings.CutPrefix(a.Path, "storage:")
	if !ok {
		return "", false
	}
	return rel, true
}

func deriveIsPDF(contentType, rawPath string) bool {
	if strings.Contains(strings.ToLower(contentType), "pdf") {
		return true
	}
	return strings.HasSuffix(strings.ToLower(rawPath), ".pdf")
}

func deriveFilename(rawPath, key string) string {
	p := strings.TrimPrefix(rawPath, "storage:")
	// Zotero stores forward slashes even for Windows-origin paths,
	// but absolute Windows paths keep backslashes.
	p = strings.ReplaceAll(p, "\\", "/")
	name := path.Base(p)
	if name == "" || name == "." || name == "/" {
		return key + ".pdf"
	}
	return name
}

// Note is a free-form HTML note. Its parent is either the top-level
// item or one of the item's attachments (tagged union, never both).
type Note struct {
	ItemID     int64
	Key        string
	ParentKind ParentKind
	ParentID   int64
	Title      string
	HTML       string
}

// Annotation is a PDF reader annotation (highlight, note, image…)
// belonging to exactly one attachment. SortIndex is an opaque string
// ordered lexicographically.
type Annotation struct {
	ItemID    int64
	Key       string
	ParentID  int64
	Type      string
	Text      string
	Comment   string
	Color     string
	PageLabel string
	SortIndex string
}

// Item is the fully materialized aggregate for one bibliographic
// item: scalar metadata plus all owned children. It is rebuilt from
// the database on every export and never cached.
type Item struct {
	ItemID      int64
	Key         string
	LibraryID   int64
	LibraryName string
	ItemType    string
	Title       string
	Creators    []Creator

	Date        string
	Year        string // first 4-digit run of Date, or ""
	Publication string
	Volume      string
	Issue       string
	Pages       string
	Publisher   string
	Place       string
	Language    string
	DOI         string
	URL         string
	Abstract    string
	Extra       string

	Tags        []string
	Collections []string

	DateAdded    string
	DateModified string

	Attachments []Attachment
	Notes       []Note
	Annotations []Annotation
}

// PDFAttachments returns the attachments flagged as PDFs.
func (it *Item) PDFAttachments() []Attachment {
	var pdfs []Attachment
	for _, a := range it.Attachments {
		if a.IsPDF {
			pdfs = append(pdfs, a)
		}
	}
	return pdfs
}

// CreatorNames returns the derived display names in creator order.
func (it *Item) CreatorNames() []string {
	names := make([]string, 0, len(it.Creators))
	for _, c := range it.Creators {
		names = append(names, c.DisplayName)
	}
	return names
}

// ItemSummary is the flat search/listing projection of an item.
type ItemSummary struct {
	ItemID       int64
	Key          string
	LibraryID    int64
	ItemType     string
	Title        string
	CreatorsText string
	Date         string
	Year         string
	DOI          string
	TagsText     string
	PDFCount     int
	HasPDF       bool
	NoteCount    int
	DateModified string
}

// Collection is one node of a library's collection forest.
type Collection struct {
	CollectionID int64
	Key          string
	LibraryID    int64
	Name         string
	ParentID     int64 // 0 = root
}

var yearPattern = regexp.MustCompile(`\d{4}`)

// YearFromDate extracts the first 4-digit run from a free-form date
// value ("2019-03-01", "March 2019", "c. 2019"), or "" when none.
func YearFromDate(date string) string {
	return yearPattern.FindString(date)
}
