package cli

import (
	"flag"
	"fmt"
	"os"

	"github.com/techczech/zotero-agent-bridge/internal/config"
	"github.com/techczech/zotero-agent-bridge/internal/zotero"
)

// SearchCommand lists items matching a free-text query.
type SearchCommand struct {
	DatabasePath string
	Query        string
	Limit        int
}

// NewSearchCommand creates a new SearchCommand.
func NewSearchCommand() *SearchCommand {
	return &SearchCommand{}
}

// ParseFlags parses command line flags.
func (cmd *SearchCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("search", flag.ExitOnError)
	cfg := config.NewConfig()

	fs.StringVar(&cmd.DatabasePath, "db", cfg.Zotero.DatabasePath, "Path to the Zotero database")
	fs.StringVar(&cmd.Query, "query", "", "Free-text query (empty lists everything)")
	fs.IntVar(&cmd.Limit, "limit", cfg.Export.SearchLimit, "Maximum number of results")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: search [options]\n\n")
		fmt.Fprintf(os.Stderr, "Search the Zotero library and print matching items.\n\n")
		fs.PrintDefaults()
	}

	return fs.Parse(args)
}

// Run executes the search.
func (cmd *SearchCommand) Run() error {
	store, err := zotero.Open(cmd.DatabasePath)
	if err != nil {
		return err
	}
	defer store.Close()

	summaries, err := store.SearchItems(cmd.Query, cmd.Limit)
	if err != nil {
		return err
	}

	if len(summaries) == 0 {
		fmt.Println("No items found.")
		return nil
	}

	for _, sum := range summaries {
		pdf := ""
		if sum.HasPDF {
			pdf = fmt.Sprintf("  [%d PDF]", sum.PDFCount)
		}
		notes := ""
		if sum.NoteCount > 0 {
			notes = fmt.Sprintf("  [%d notes]", sum.NoteCount)
		}
		fmt.Printf("%-10s %-6s %s", sum.Key, sum.Year, sum.Title)
		if sum.CreatorsText != "" {
			fmt.Printf(" - %s", sum.CreatorsText)
		}
		fmt.Printf("%s%s\n", pdf, notes)
	}
	fmt.Printf("\n%d item(s)\n", len(summaries))
	return nil
}
