package main

import (
	"fmt"
	"os"

	"github.com/techczech/zotero-agent-bridge/internal/cli"
)

// Version information - set at build time via ldflags
var (
	Version = "dev"
	Commit  = "unknown"
)

type command interface {
	ParseFlags(args []string) error
	Run() error
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	name := os.Args[1]
	args := os.Args[2:]

	var cmd command
	switch name {
	case "search":
		cmd = cli.NewSearchCommand()
	case "export":
		cmd = cli.NewExportCommand()
	case "collections":
		cmd = cli.NewCollectionsCommand()
	case "export-collection":
		cmd = cli.NewExportCollectionCommand()
	case "version":
		fmt.Printf("zotero-agent-bridge %s (%s)\n", Version, Commit)
		return
	case "-h", "--help", "help":
		printUsage()
		return
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", name)
		printUsage()
		os.Exit(1)
	}

	if err := cmd.ParseFlags(args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if err := cmd.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, "Usage: %s <command> [options]\n\n", os.Args[0])
	fmt.Fprintf(os.Stderr, "Commands:\n")
	fmt.Fprintf(os.Stderr, "  search             Search the Zotero library\n")
	fmt.Fprintf(os.Stderr, "  export             Export items as markdown bundles\n")
	fmt.Fprintf(os.Stderr, "  collections        List the collection tree\n")
	fmt.Fprintf(os.Stderr, "  export-collection  Export a collection (recursively)\n")
	fmt.Fprintf(os.Stderr, "  version            Print version information\n")
	fmt.Fprintf(os.Stderr, "\nUse '%s <command> -h' for help on a specific command.\n", os.Args[0])
}
