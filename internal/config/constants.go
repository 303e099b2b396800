package config

import (
	"os"
	"path/filepath"
)

// DefaultDatabasePath is where a stock Zotero installation keeps its
// database.
func DefaultDatabasePath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "zotero.sqlite"
	}
	return filepath.Join(homeDir, "Zotero", "zotero.sqlite")
}

// DefaultStorageDir derives the attachment storage directory from the
// database path: Zotero keeps "storage/" next to "zotero.sqlite".
func DefaultStorageDir(databasePath string) string {
	return filepath.Join(filepath.Dir(databasePath), "storage")
}
