// Package zotero reads a local Zotero reference-manager database.
//
// The database is foreign and externally owned: Zotero stores item
// metadata in an EAV layout (itemData/fields/itemDataValues) with
// separate relation tables for creators, tags, collections,
// attachments, notes and annotations. This package confines all of
// that to typed accessors; nothing outside it sees raw field
// name/value rows. The connection is read-only for its whole
// lifetime; the tool never writes to the Zotero database.
package zotero

import (
	"database/sql"
	"errors"
	"fmt"
	"os"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// ErrItemNotFound is returned when an item identifier does not exist
// in the database (or refers to a trashed item).
var ErrItemNotFound = errors.New("item not found")

// Store is a read-only connection to a Zotero SQLite database.
type Store struct {
	dbPath string
	db     *sql.DB
}

// Open opens the Zotero database at dbPath in read-only mode.
// The busy timeout lets reads proceed while a running Zotero client
// holds short write locks.
func Open(dbPath string) (*Store, error) {
	if _, err := os.Stat(dbPath); err != nil {
		return nil, fmt.Errorf("zotero database not found: %s", dbPath)
	}

	db, err := sql.Open("sqlite3", dbPath+"?mode=ro&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open zotero database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to open zotero database: %w", err)
	}

	return &Store{dbPath: dbPath, db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Path returns the database file path the store was opened with.
func (s *Store) Path() string {
	return s.dbPath
}

// LibraryName resolves a library identifier to its display name:
// the group name for group libraries, "My Library" for the personal
// library, and "Library <id>" for anything unresolvable.
func (s *Store) LibraryName(libraryID int64) string {
	var libType string
	var groupName sql.NullString
	err := s.db.QueryRow(`
		SELECT l.type, g.name
		FROM libraries l
		LEFT JOIN groups g ON g.libraryID = l.libraryID
		WHERE l.libraryID = ?
	`, libraryID).Scan(&libType, &groupName)
	if err != nil {
		return fmt.Sprintf("Library %d", libraryID)
	}

	if groupName.Valid && groupName.String != "" {
		return groupName.String
	}
	if libType == "user" {
		return "My Library"
	}
	return fmt.Sprintf("Library %d", libraryID)
}
