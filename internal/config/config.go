package config

import (
	"github.com/spf13/viper"

	"github.com/techczech/zotero-agent-bridge/internal/naming"
)

type (
	Config struct {
		Zotero
		Export
	}

	Zotero struct {
		DatabasePath string
		StorageDir   string
	}
	Export struct {
		OutputDir   string
		Layout      naming.LayoutMode
		SearchLimit int
	}
)

// NewConfig builds the configuration from environment variables with
// sensible defaults. CLI flags override these values per command.
func NewConfig() *Config {
	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("zotero_database_path", DefaultDatabasePath())
	v.SetDefault("zotero_storage_dir", "")
	v.SetDefault("export_output_dir", "./zotero-export")
	v.SetDefault("export_layout", string(naming.LayoutItemFolder))
	v.SetDefault("export_search_limit", 50)

	databasePath := v.GetString("ZOTERO_DATABASE_PATH")
	storageDir := v.GetString("ZOTERO_STORAGE_DIR")
	if storageDir == "" {
		storageDir = DefaultStorageDir(databasePath)
	}

	return &Config{
		Zotero: Zotero{
			DatabasePath: databasePath,
			StorageDir:   storageDir,
		},
		Export: Export{
			OutputDir:   v.GetString("EXPORT_OUTPUT_DIR"),
			Layout:      naming.LayoutMode(v.GetString("EXPORT_LAYOUT")),
			SearchLimit: v.GetInt("EXPORT_SEARCH_LIMIT"),
		},
	}
}
