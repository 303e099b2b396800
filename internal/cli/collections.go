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

// CollectionsCommand lists the collection forest of the library.
type CollectionsCommand struct {
	DatabasePath string
	LibraryID    int64
}

// NewCollectionsCommand creates a new CollectionsCommand.
func NewCollectionsCommand() *CollectionsCommand {
	return &CollectionsCommand{}
}

// ParseFlags parses command line flags.
func (cmd *CollectionsCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("collections", flag.ExitOnError)
	cfg := config.NewConfig()

	fs.StringVar(&cmd.DatabasePath, "db", cfg.Zotero.DatabasePath, "Path to the Zotero database")
	fs.Int64Var(&cmd.LibraryID, "library", 0, "Restrict to one library (0 = all)")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: collections [options]\n\n")
		fmt.Fprintf(os.Stderr, "List the collections of the Zotero library as a tree.\n\n")
		fs.PrintDefaults()
	}

	return fs.Parse(args)
}

// Run lists the collections.
func (cmd *CollectionsCommand) Run() error {
	store, err := zotero.Open(cmd.DatabasePath)
	if err != nil {
		return err
	}
	defer store.Close()

	collections, err := store.ListCollections(cmd.LibraryID)
	if err != nil {
		return err
	}
	if len(collections) == 0 {
		fmt.Println("No collections found.")
		return nil
	}

	children := make(map[int64][]zotero.Collection)
	for _, c := range collections {
		children[c.ParentID] = append(children[c.ParentID], c)
	}
	printCollectionLevel(children, 0, 0)
	return nil
}

func printCollectionLevel(children map[int64][]zotero.Collection, parentID int64, depth int) {
	for _, c := range children[parentID] {
		fmt.Printf("%s%s  (%s, id %d)\n", strings.Repeat("  ", depth), c.Name, c.Key, c.CollectionID)
		printCollectionLevel(children, c.CollectionID, depth+1)
	}
}

// ExportCollectionCommand exports a whole collection subtree.
type ExportCollectionCommand struct {
	DatabasePath string
	StorageDir   string
	OutputDir    string
	Layout       string
	Collection   string
	Mirror       bool
	OnConflict   string
}

// NewExportCollectionCommand creates a new ExportCollectionCommand.
func NewExportCollectionCommand() *ExportCollectionCommand {
	return &ExportCollectionCommand{}
}

// ParseFlags parses command line flags.
func (cmd *ExportCollectionCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("export-collection", flag.ExitOnError)
	cfg := config.NewConfig()

	fs.StringVar(&cmd.DatabasePath, "db", cfg.Zotero.DatabasePath, "Path to the Zotero database")
	fs.StringVar(&cmd.StorageDir, "storage", cfg.Zotero.StorageDir, "Path to the Zotero storage directory")
	fs.StringVar(&cmd.OutputDir, "output", cfg.Export.OutputDir, "Output directory for exported bundles")
	fs.StringVar(&cmd.Layout, "layout", string(cfg.Export.Layout), "Layout mode: item-folder, flat or year-item")
	fs.StringVar(&cmd.Collection, "collection", "", "Collection key to export (required)")
	fs.BoolVar(&cmd.Mirror, "mirror", false, "Mirror sub-collections as nested folders")
	fs.StringVar(&cmd.OnConflict, "on-conflict", "overwrite", "Conflict handling: overwrite, skip or cancel")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: export-collection [options]\n\n")
		fmt.Fprintf(os.Stderr, "Export every item of a collection (recursively) as markdown bundles.\n\n")
		fs.PrintDefaults()
	}

	return fs.Parse(args)
}

// Run executes the collection export.
func (cmd *ExportCollectionCommand) Run() error {
	if cmd.Collection == "" {
		return fmt.Errorf("-collection is required")
	}

	store, err := zotero.Open(cmd.DatabasePath)
	if err != nil {
		return err
	}
	defer store.Close()

	collectionID, err := store.CollectionIDByKey(cmd.Collection)
	if err != nil {
		return err
	}

	exporter := exporters.New(store, exporters.Options{
		OutputDir:  cmd.OutputDir,
		Layout:     naming.LayoutMode(cmd.Layout),
		StorageDir: cmd.StorageDir,
	}, exporters.AutoPolicy{Conflict: exporters.ConflictDecision(cmd.OnConflict)}, nil)

	result, err := exporter.ExportCollection(collectionID, cmd.Mirror)
	if err != nil {
		return err
	}

	printResult(result)
	return nil
}
