package zotero

import (
	"database/sql"
	"fmt"
	"strings"
)

// annotationTypeName maps Zotero's integer annotation type codes to
// readable names.
func annotationTypeName(code int) string {
	switch code {
	case 1:
		return "highlight"
	case 2:
		return "note"
	case 3:
		return "image"
	case 4:
		return "ink"
	case 5:
		return "underline"
	case 6:
		return "text"
	default:
		return fmt.Sprintf("type-%d", code)
	}
}

// GetItem loads the full aggregate for one item: scalar fields,
// creators, tags, collection memberships, attachments, and the notes
// and annotations hanging off the item or its attachments. Returns
// ErrItemNotFound when the base item row does not exist.
func (s *Store) GetItem(itemID int64) (*Item, error) {
	item := &Item{ItemID: itemID}

	err := s.db.QueryRow(`
		SELECT i.key, i.libraryID, it.typeName, i.dateAdded, i.dateModified
		FROM items i
		JOIN itemTypes it ON it.itemTypeID = i.itemTypeID
		WHERE i.itemID = ?
	`, itemID).Scan(&item.Key, &item.LibraryID, &item.ItemType, &item.DateAdded, &item.DateModified)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("item %d: %w", itemID, ErrItemNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load item %d: %w", itemID, err)
	}

	item.LibraryName = s.LibraryName(item.LibraryID)

	fields, err := s.itemFields(itemID)
	if err != nil {
		return nil, err
	}
	item.Title = strings.TrimSpace(fields["title"])
	if item.Title == "" {
		item.Title = "Untitled"
	}
	item.Date = fields["date"]
	item.Year = YearFromDate(item.Date)
	item.Publication = fields["publicationTitle"]
	item.Volume = fields["volume"]
	item.Issue = fields["issue"]
	item.Pages = fields["pages"]
	item.Publisher = fields["publisher"]
	item.Place = fields["place"]
	item.Language = fields["language"]
	item.DOI = fields["DOI"]
	item.URL = fields["url"]
	item.Abstract = fields["abstractNote"]
	item.Extra = fields["extra"]

	if item.Creators, err = s.itemCreators(itemID); err != nil {
		return nil, err
	}
	if item.Tags, err = s.itemTags(itemID); err != nil {
		return nil, err
	}
	if item.Collections, err = s.itemCollectionNames(itemID); err != nil {
		return nil, err
	}
	if item.Attachments, err = s.itemAttachments(itemID); err != nil {
		return nil, err
	}
	if item.Notes, err = s.itemNotes(itemID, item.Attachments); err != nil {
		return nil, err
	}
	if item.Annotations, err = s.itemAnnotations(item.Attachments); err != nil {
		return nil, err
	}

	return item, nil
}

// itemFields collapses the EAV rows for one item into a field
// name → value map. A duplicate value for the same field name is
// semicolon-appended rather than overwritten.
func (s *Store) itemFields(itemID int64) (map[string]string, error) {
	rows, err := s.db.Query(`
		SELECT f.fieldName, idv.value
		FROM itemData id
		JOIN fields f ON f.fieldID = id.fieldID
		JOIN itemDataValues idv ON idv.valueID = id.valueID
		WHERE id.itemID = ?
	`, itemID)
	if err != nil {
		return nil, fmt.Errorf("failed to query item fields: %w", err)
	}
	defer rows.Close()

	fields := make(map[string]string)
	for rows.Next() {
		var name, value string
		if err := rows.Scan(&name, &value); err != nil {
			return nil, fmt.Errorf("failed to scan field row: %w", err)
		}
		if existing, ok := fields[name]; ok {
			fields[name] = existing + "; " + value
		} else {
			fields[name] = value
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating field rows: %w", err)
	}
	return fields, nil
}

func (s *Store) itemCreators(itemID int64) ([]Creator, error) {
	rows, err := s.db.Query(`
		SELECT c.firstName, c.lastName, c.fieldMode, ic.orderIndex
		FROM itemCreators ic
		JOIN creators c ON c.creatorID = ic.creatorID
		WHERE ic.itemID = ?
		ORDER BY ic.orderIndex
	`, itemID)
	if err != nil {
		return nil, fmt.Errorf("failed to query creators: %w", err)
	}
	defer rows.Close()

	var creators []Creator
	for rows.Next() {
		var c Creator
		var firstName, lastName sql.NullString
		var fieldMode sql.NullInt64
		if err := rows.Scan(&firstName, &lastName, &fieldMode, &c.OrderIndex); err != nil {
			return nil, fmt.Errorf("failed to scan creator row: %w", err)
		}
		c.FirstName = firstName.String
		c.LastName = lastName.String
		c.FieldMode = int(fieldMode.Int64)
		c.DisplayName = c.displayName()
		creators = append(creators, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating creator rows: %w", err)
	}
	return creators, nil
}

func (s *Store) itemTags(itemID int64) ([]string, error) {
	rows, err := s.db.Query(`
		SELECT t.name
		FROM itemTags itg
		JOIN tags t ON t.tagID = itg.tagID
		WHERE itg.itemID = ?
		ORDER BY t.name
	`, itemID)
	if err != nil {
		return nil, fmt.Errorf("failed to query tags: %w", err)
	}
	defer rows.Close()

	var tags []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan tag row: %w", err)
		}
		tags = append(tags, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tag rows: %w", err)
	}
	return tags, nil
}

func (s *Store) itemCollectionNames(itemID int64) ([]string, error) {
	rows, err := s.db.Query(`
		SELECT c.collectionName
		FROM collectionItems ci
		JOIN collections c ON c.collectionID = ci.collectionID
		WHERE ci.itemID = ?
		ORDER BY c.collectionName
	`, itemID)
	if err != nil {
		return nil, fmt.Errorf("failed to query collections: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan collection row: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating collection rows: %w", err)
	}
	return names, nil
}

func (s *Store) itemAttachments(itemID int64) ([]Attachment, error) {
	rows, err := s.db.Query(`
		SELECT ia.itemID, i.key, ia.parentItemID,
			COALESCE(ia.contentType, ''), COALESCE(ia.path, ''), ia.linkMode,
			COALESCE((SELECT idv.value FROM itemData id
				JOIN fields f ON f.fieldID = id.fieldID
				JOIN itemDataValues idv ON idv.valueID = id.valueID
				WHERE id.itemID = ia.itemID AND f.fieldName = 'title'), '')
		FROM itemAttachments ia
		JOIN items i ON i.itemID = ia.itemID
		WHERE ia.parentItemID = ?
		ORDER BY ia.itemID
	`, itemID)
	if err != nil {
		return nil, fmt.Errorf("failed to query attachments: %w", err)
	}
	defer rows.Close()

	var attachments []Attachment
	for rows.Next() {
		var a Attachment
		if err := rows.Scan(&a.ItemID, &a.Key, &a.ParentID, &a.ContentType, &a.Path, &a.LinkMode, &a.Title); err != nil {
			return nil, fmt.Errorf("failed to scan attachment row: %w", err)
		}
		a.IsPDF = deriveIsPDF(a.ContentType, a.Path)
		a.Filename = deriveFilename(a.Path, a.Key)
		attachments = append(attachments, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating attachment rows: %w", err)
	}
	return attachments, nil
}

// itemNotes merges notes parented directly on the item with notes
// parented on any of its attachments into one ordered list. The
// attachment-side query is skipped entirely when the item has no
// attachments.
func (s *Store) itemNotes(itemID int64, attachments []Attachment) ([]Note, error) {
	notes, err := s.queryNotes(`WHERE n.parentItemID = ?`, ParentItem, itemID)
	if err != nil {
		return nil, err
	}

	if len(attachments) > 0 {
		placeholders, args := attachmentIDArgs(attachments)
		attachmentNotes, err := s.queryNotes(
			"WHERE n.parentItemID IN ("+placeholders+")", ParentAttachment, args...)
		if err != nil {
			return nil, err
		}
		notes = append(notes, attachmentNotes...)
	}

	return notes, nil
}

func (s *Store) queryNotes(where string, kind ParentKind, args ...any) ([]Note, error) {
	rows, err := s.db.Query(`
		SELECT n.itemID, i.key, n.parentItemID,
			COALESCE(n.title, ''), COALESCE(n.note, '')
		FROM itemNotes n
		JOIN items i ON i.itemID = n.itemID
		`+where+`
		ORDER BY n.itemID
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query notes: %w", err)
	}
	defer rows.Close()

	var notes []Note
	for rows.Next() {
		n := Note{ParentKind: kind}
		if err := rows.Scan(&n.ItemID, &n.Key, &n.ParentID, &n.Title, &n.HTML); err != nil {
			return nil, fmt.Errorf("failed to scan note row: %w", err)
		}
		notes = append(notes, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating note rows: %w", err)
	}
	return notes, nil
}

// itemAnnotations loads the reader annotations across all of the
// item's attachments, ordered by (attachment, sortIndex, itemID).
// SortIndex is an opaque string and sorts lexicographically.
func (s *Store) itemAnnotations(attachments []Attachment) ([]Annotation, error) {
	if len(attachments) == 0 {
		return nil, nil
	}

	placeholders, args := attachmentIDArgs(attachments)
	rows, err := s.db.Query(`
		SELECT a.itemID, i.key, a.parentItemID, a.type,
			COALESCE(a.text, ''), COALESCE(a.comment, ''),
			COALESCE(a.color, ''), COALESCE(a.pageLabel, ''),
			COALESCE(a.sortIndex, '')
		FROM itemAnnotations a
		JOIN items i ON i.itemID = a.itemID
		WHERE a.parentItemID IN (`+placeholders+`)
		ORDER BY a.parentItemID, a.sortIndex, a.itemID
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query annotations: %w", err)
	}
	defer rows.Close()

	var annotations []Annotation
	for rows.Next() {
		var a Annotation
		var typeCode int
		if err := rows.Scan(&a.ItemID, &a.Key, &a.ParentID, &typeCode,
			&a.Text, &a.Comment, &a.Color, &a.PageLabel, &a.SortIndex); err != nil {
			return nil, fmt.Errorf("failed to scan annotation row: %w", err)
		}
		a.Type = annotationTypeName(typeCode)
		annotations = append(annotations, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating annotation rows: %w", err)
	}
	return annotations, nil
}

func attachmentIDArgs(attachments []Attachment) (string, []any) {
	placeholders := make([]string, len(attachments))
	args := make([]any, len(attachments))
	for i, a := range attachments {
		placeholders[i] = "?"
		args[i] = a.ItemID
	}
	return strings.Join(placeholders, ", "), args
}
