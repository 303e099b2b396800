package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/techczech/zotero-agent-bridge/internal/naming"
)

func TestNewConfig(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		cfg := NewConfig()

		assert.Equal(t, DefaultDatabasePath(), cfg.Zotero.DatabasePath)
		assert.Equal(t, DefaultStorageDir(cfg.Zotero.DatabasePath), cfg.Zotero.StorageDir)
		assert.Equal(t, "./zotero-export", cfg.Export.OutputDir)
		assert.Equal(t, naming.LayoutItemFolder, cfg.Export.Layout)
		assert.Equal(t, 50, cfg.Export.SearchLimit)
	})

	t.Run("environment overrides", func(t *testing.T) {
		t.Setenv("ZOTERO_DATABASE_PATH", "/data/zotero/zotero.sqlite")
		t.Setenv("EXPORT_LAYOUT", "flat")
		t.Setenv("EXPORT_SEARCH_LIMIT", "10")

		cfg := NewConfig()

		assert.Equal(t, "/data/zotero/zotero.sqlite", cfg.Zotero.DatabasePath)
		assert.Equal(t, naming.LayoutFlat, cfg.Export.Layout)
		assert.Equal(t, 10, cfg.Export.SearchLimit)
	})

	t.Run("storage dir derives from the database path", func(t *testing.T) {
		t.Setenv("ZOTERO_DATABASE_PATH", "/data/zotero/zotero.sqlite")

		cfg := NewConfig()
		assert.Equal(t, filepath.Join("/data/zotero", "storage"), cfg.Zotero.StorageDir)
	})

	t.Run("explicit storage dir wins", func(t *testing.T) {
		t.Setenv("ZOTERO_STORAGE_DIR", "/mnt/zotero-storage")

		cfg := NewConfig()
		assert.Equal(t, "/mnt/zotero-storage", cfg.Zotero.StorageDir)
	})
}
