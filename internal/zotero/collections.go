package zotero

import (
	"database/sql"
	"fmt"
)

// CollectionNode is a collection within a queried subtree, together
// with the name path from the subtree root down to it (root name
// first).
type CollectionNode struct {
	Collection
	Path []string
}

// ListCollections returns every collection in the given library.
// Pass 0 to list collections across all libraries.
func (s *Store) ListCollections(libraryID int64) ([]Collection, error) {
	query := `
		SELECT c.collectionID, c.key, c.libraryID, c.collectionName,
			COALESCE(c.parentCollectionID, 0)
		FROM collections c
	`
	var args []any
	if libraryID != 0 {
		query += " WHERE c.libraryID = ?"
		args = append(args, libraryID)
	}
	query += " ORDER BY c.collectionName"

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query collections: %w", err)
	}
	defer rows.Close()

	var collections []Collection
	for rows.Next() {
		var c Collection
		if err := rows.Scan(&c.CollectionID, &c.Key, &c.LibraryID, &c.Name, &c.ParentID); err != nil {
			return nil, fmt.Errorf("failed to scan collection row: %w", err)
		}
		collections = append(collections, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating collection rows: %w", err)
	}
	return collections, nil
}

// GetCollection loads a single collection by identifier.
func (s *Store) GetCollection(collectionID int64) (*Collection, error) {
	var c Collection
	err := s.db.QueryRow(`
		SELECT c.collectionID, c.key, c.libraryID, c.collectionName,
			COALESCE(c.parentCollectionID, 0)
		FROM collections c
		WHERE c.collectionID = ?
	`, collectionID).Scan(&c.CollectionID, &c.Key, &c.LibraryID, &c.Name, &c.ParentID)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("collection %d: %w", collectionID, ErrItemNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load collection %d: %w", collectionID, err)
	}
	return &c, nil
}

// CollectionIDByKey resolves a collection key to its identifier.
func (s *Store) CollectionIDByKey(key string) (int64, error) {
	var id int64
	err := s.db.QueryRow(`SELECT collectionID FROM collections WHERE key = ?`, key).Scan(&id)
	if err == sql.ErrNoRows {
		return 0, fmt.Errorf("collection %q: %w", key, ErrItemNotFound)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to resolve collection key %q: %w", key, err)
	}
	return id, nil
}

// CollectionSubtree returns the collection itself plus all transitive
// descendants, each with its name path from the root. Traversal is
// breadth-first so parents always precede their children.
func (s *Store) CollectionSubtree(collectionID int64) ([]CollectionNode, error) {
	root, err := s.GetCollection(collectionID)
	if err != nil {
		return nil, err
	}

	all, err := s.ListCollections(root.LibraryID)
	if err != nil {
		return nil, err
	}
	children := make(map[int64][]Collection)
	for _, c := range all {
		children[c.ParentID] = append(children[c.ParentID], c)
	}

	nodes := []CollectionNode{{Collection: *root, Path: []string{root.Name}}}
	for i := 0; i < len(nodes); i++ {
		parent := nodes[i]
		for _, child := range children[parent.CollectionID] {
			childPath := append(append([]string{}, parent.Path...), child.Name)
			nodes = append(nodes, CollectionNode{Collection: child, Path: childPath})
		}
	}
	return nodes, nil
}

// CollectionItems returns the summaries of every item in the
// collection or any of its transitive descendants, deduplicated by
// item identifier.
func (s *Store) CollectionItems(collectionID int64) ([]ItemSummary, error) {
	nodes, err := s.CollectionSubtree(collectionID)
	if err != nil {
		return nil, err
	}

	seen := make(map[int64]bool)
	var itemIDs []int64
	for _, node := range nodes {
		ids, err := s.collectionDirectItemIDs(node.CollectionID)
		if err != nil {
			return nil, err
		}
		for _, id := range ids {
			if !seen[id] {
				seen[id] = true
				itemIDs = append(itemIDs, id)
			}
		}
	}

	return s.ItemSummaries(itemIDs)
}

// CollectionDirectItems returns summaries for the items placed
// directly in the collection, ignoring sub-collections.
func (s *Store) CollectionDirectItems(collectionID int64) ([]ItemSummary, error) {
	ids, err := s.collectionDirectItemIDs(collectionID)
	if err != nil {
		return nil, err
	}
	return s.ItemSummaries(ids)
}

func (s *Store) collectionDirectItemIDs(collectionID int64) ([]int64, error) {
	rows, err := s.db.Query(`
		SELECT ci.itemID
		FROM collectionItems ci
		WHERE ci.collectionID = ?
		ORDER BY ci.orderIndex, ci.itemID
	`, collectionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query collection items: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan collection item row: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating collection item rows: %w", err)
	}
	return ids, nil
}
