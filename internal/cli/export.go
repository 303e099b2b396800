package cli

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/techczech/zotero-agent-bridge/internal/config"
	"github.com/techczech/zotero-agent-bridge/internal/exporters"
	"github.com/techczech/zotero-agent-bridge/internal/naming"
	"github.com/techczech/zotero-agent-bridge/internal/zotero"
)

// ExportCommand exports one or more items to markdown bundles.
type ExportCommand struct {
	DatabasePath string
	StorageDir   string
	OutputDir    string
	Layout       string
	Items        string
	Query        string
	Limit        int
	OnConflict   string
}

// NewExportCommand creates a new ExportCommand.
func NewExportCommand() *ExportCommand {
	return &ExportCommand{}
}

// ParseFlags parses command line flags.
func (cmd *ExportCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	cfg := config.NewConfig()

	fs.StringVar(&cmd.DatabasePath, "db", cfg.Zotero.DatabasePath, "Path to the Zotero database")
	fs.StringVar(&cmd.StorageDir, "storage", cfg.Zotero.StorageDir, "Path to the Zotero storage directory")
	fs.StringVar(&cmd.OutputDir, "output", cfg.Export.OutputDir, "Output directory for exported bundles")
	fs.StringVar(&cmd.Layout, "layout", string(cfg.Export.Layout), "Layout mode: item-folder, flat or year-item")
	fs.StringVar(&cmd.Items, "items", "", "Comma-separated item keys to export")
	fs.StringVar(&cmd.Query, "query", "", "Export all items matching this query instead of explicit keys")
	fs.IntVar(&cmd.Limit, "limit", cfg.Export.SearchLimit, "Maximum number of query matches to export")
	fs.StringVar(&cmd.OnConflict, "on-conflict", "overwrite", "Conflict handling: overwrite, skip or cancel")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: export [options]\n\n")
		fmt.Fprintf(os.Stderr, "Export Zotero items as markdown bundles with copied PDFs.\n\n")
		fs.PrintDefaults()
	}

	return fs.Parse(args)
}

// Run executes the export.
func (cmd *ExportCommand) Run() error {
	if cmd.Items == "" && cmd.Query == "" {
		return fmt.Errorf("either -items or -query is required")
	}

	store, err := zotero.Open(cmd.DatabasePath)
	if err != nil {
		return err
	}
	defer store.Close()

	var itemIDs []int64
	if cmd.Items != "" {
		for _, key := range strings.Split(cmd.Items, ",") {
			key = strings.TrimSpace(key)
			if key == "" {
				continue
			}
			id, err := store.ItemIDByKey(key)
			if err != nil {
				return err
			}
			itemIDs = append(itemIDs, id)
		}
	} else {
		summaries, err := store.SearchItems(cmd.Query, cmd.Limit)
		if err != nil {
			return err
		}
		for _, sum := range summaries {
			itemIDs = append(itemIDs, sum.ItemID)
		}
	}

	if len(itemIDs) == 0 {
		fmt.Println("Nothing to export.")
		return nil
	}

	exporter := exporters.New(store, exporters.Options{
		OutputDir:  cmd.OutputDir,
		Layout:     naming.LayoutMode(cmd.Layout),
		StorageDir: cmd.StorageDir,
	}, exporters.AutoPolicy{Conflict: exporters.ConflictDecision(cmd.OnConflict)}, nil)

	result, err := exporter.ExportItems(itemIDs)
	if err != nil {
		return err
	}

	printResult(result)
	return nil
}

func printResult(result *exporters.ExportResult) {
	fmt.Printf("Exported: %d  Skipped: %d  Failed: %d\n", result.Exported, result.Skipped, result.Failed)
	if result.Cancelled {
		fmt.Println("Run was cancelled before completing.")
	}
	for _, w := range result.Warnings {
		fmt.Printf("Warning: %s\n", w)
	}
}
