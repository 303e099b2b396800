package zotero

import (
	"database/sql"
	"fmt"
	"strings"
)

// summaryBaseQuery projects one flat row per top-level bibliographic
// item. Attachment, note and annotation rows are items too in the
// Zotero schema, so they are filtered out by type; trashed items are
// excluded via deletedItems. The scalar metadata lives in the EAV
// tables and is pulled out per field name.
const summaryBaseQuery = `
	SELECT
		i.itemID,
		i.key,
		i.libraryID,
		it.typeName,
		(SELECT idv.value FROM itemData id
			JOIN fields f ON f.fieldID = id.fieldID
			JOIN itemDataValues idv ON idv.valueID = id.valueID
			WHERE id.itemID = i.itemID AND f.fieldName = 'title') AS title,
		(SELECT idv.value FROM itemData id
			JOIN fields f ON f.fieldID = id.fieldID
			JOIN itemDataValues idv ON idv.valueID = id.valueID
			WHERE id.itemID = i.itemID AND f.fieldName = 'date') AS date,
		(SELECT idv.value FROM itemData id
			JOIN fields f ON f.fieldID = id.fieldID
			JOIN itemDataValues idv ON idv.valueID = id.valueID
			WHERE id.itemID = i.itemID AND f.fieldName = 'DOI') AS doi,
		(SELECT COUNT(*) FROM itemAttachments ia
			WHERE ia.parentItemID = i.itemID
			AND (LOWER(COALESCE(ia.contentType, '')) LIKE '%pdf%'
				OR LOWER(COALESCE(ia.path, '')) LIKE '%.pdf')) AS pdfCount,
		(SELECT COUNT(DISTINCT n.itemID) FROM itemNotes n
			WHERE n.parentItemID = i.itemID
			OR n.parentItemID IN
				(SELECT a2.itemID FROM itemAttachments a2 WHERE a2.parentItemID = i.itemID)) AS noteCount,
		i.dateModified
	FROM items i
	JOIN itemTypes it ON it.itemTypeID = i.itemTypeID
	WHERE it.typeName NOT IN ('attachment', 'note', 'annotation')
	AND i.itemID NOT IN (SELECT itemID FROM deletedItems)
`

// ItemIDByKey resolves a human-readable item key ("ABCD1234") to the
// internal item identifier.
func (s *Store) ItemIDByKey(key string) (int64, error) {
	var id int64
	err := s.db.QueryRow(`SELECT itemID FROM items WHERE key = ?`, key).Scan(&id)
	if err == sql.ErrNoRows {
		return 0, fmt.Errorf("item %q: %w", key, ErrItemNotFound)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to resolve item key %q: %w", key, err)
	}
	return id, nil
}

// SearchItems returns top-level item summaries matching the query.
// Matching is case-insensitive substring against title, creator text,
// date, DOI and tag text; an empty query matches everything. Results
// are ordered by last-modified descending and capped at limit.
func (s *Store) SearchItems(query string, limit int) ([]ItemSummary, error) {
	summaries, err := s.querySummaries(summaryBaseQuery + " ORDER BY i.dateModified DESC")
	if err != nil {
		return nil, err
	}

	needle := strings.ToLower(strings.TrimSpace(query))
	matched := make([]ItemSummary, 0, len(summaries))
	for _, sum := range summaries {
		if needle != "" && !summaryMatches(sum, needle) {
			continue
		}
		matched = append(matched, sum)
		if limit > 0 && len(matched) >= limit {
			break
		}
	}

	return matched, nil
}

// ItemSummaries returns summaries for the given item identifiers.
// Unknown identifiers are silently absent from the result.
func (s *Store) ItemSummaries(itemIDs []int64) ([]ItemSummary, error) {
	if len(itemIDs) == 0 {
		return nil, nil
	}

	placeholders := make([]string, len(itemIDs))
	args := make([]any, len(itemIDs))
	for i, id := range itemIDs {
		placeholders[i] = "?"
		args[i] = id
	}

	q := summaryBaseQuery +
		" AND i.itemID IN (" + strings.Join(placeholders, ", ") + ")" +
		" ORDER BY i.dateModified DESC"
	return s.querySummaries(q, args...)
}

func summaryMatches(sum ItemSummary, needle string) bool {
	haystacks := []string{sum.Title, sum.CreatorsText, sum.Date, sum.DOI, sum.TagsText}
	for _, h := range haystacks {
		if strings.Contains(strings.ToLower(h), needle) {
			return true
		}
	}
	return false
}

func (s *Store) querySummaries(query string, args ...any) ([]ItemSummary, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query items: %w", err)
	}
	defer rows.Close()

	var summaries []ItemSummary
	for rows.Next() {
		var sum ItemSummary
		var title, date, doi, modified sql.NullString

		err := rows.Scan(
			&sum.ItemID,
			&sum.Key,
			&sum.LibraryID,
			&sum.ItemType,
			&title,
			&date,
			&doi,
			&sum.PDFCount,
			&sum.NoteCount,
			&modified,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan item row: %w", err)
		}

		sum.Title = strings.TrimSpace(title.String)
		if sum.Title == "" {
			sum.Title = "Untitled"
		}
		sum.Date = date.String
		sum.Year = YearFromDate(date.String)
		sum.DOI = doi.String
		sum.HasPDF = sum.PDFCount > 0
		sum.DateModified = modified.String

		summaries = append(summaries, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating item rows: %w", err)
	}

	if err := s.fillCreatorsText(summaries); err != nil {
		return nil, err
	}
	if err := s.fillTagsText(summaries); err != nil {
		return nil, err
	}

	return summaries, nil
}

// creatorText formats one creator for the summary text: "lastName,
// firstName", dropping the comma part when the first name is empty.
func creatorText(firstName, lastName string) string {
	first := strings.TrimSpace(firstName)
	last := strings.TrimSpace(lastName)
	switch {
	case last == "":
		return first
	case first == "":
		return last
	default:
		return last + ", " + first
	}
}

// fillCreatorsText collapses the per-creator join rows into one
// semicolon-joined string per summary, preserving creator order.
func (s *Store) fillCreatorsText(summaries []ItemSummary) error {
	if len(summaries) == 0 {
		return nil
	}

	rows, err := s.db.Query(`
		SELECT ic.itemID, c.firstName, c.lastName
		FROM itemCreators ic
		JOIN creators c ON c.creatorID = ic.creatorID
		ORDER BY ic.itemID, ic.orderIndex
	`)
	if err != nil {
		return fmt.Errorf("failed to query creators: %w", err)
	}
	defer rows.Close()

	byItem := make(map[int64][]string)
	for rows.Next() {
		var itemID int64
		var firstName, lastName sql.NullString
		if err := rows.Scan(&itemID, &firstName, &lastName); err != nil {
			return fmt.Errorf("failed to scan creator row: %w", err)
		}
		if text := creatorText(firstName.String, lastName.String); text != "" {
			byItem[itemID] = append(byItem[itemID], text)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating creator rows: %w", err)
	}

	for i := range summaries {
		summaries[i].CreatorsText = strings.Join(byItem[summaries[i].ItemID], "; ")
	}
	return nil
}

func (s *Store) fillTagsText(summaries []ItemSummary) error {
	if len(summaries) == 0 {
		return nil
	}

	rows, err := s.db.Query(`
		SELECT itg.itemID, t.name
		FROM itemTags itg
		JOIN tags t ON t.tagID = itg.tagID
		ORDER BY itg.itemID, t.name
	`)
	if err != nil {
		return fmt.Errorf("failed to query tags: %w", err)
	}
	defer rows.Close()

	byItem := make(map[int64][]string)
	for rows.Next() {
		var itemID int64
		var name string
		if err := rows.Scan(&itemID, &name); err != nil {
			return fmt.Errorf("failed to scan tag row: %w", err)
		}
		byItem[itemID] = append(byItem[itemID], name)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating tag rows: %w", err)
	}

	for i := range summaries {
		summaries[i].TagsText = strings.Join(byItem[summaries[i].ItemID], "; ")
	}
	return nil
}
