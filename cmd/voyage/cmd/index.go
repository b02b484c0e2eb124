package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"github.com/abramin/voyage/internal/index"
)

var indexCmd = &cobra.Command{
	Use:   "index [path]",
	Short: "Index a service catalog and store it as a project",
	Long: `Load the service definitions below a project directory and persist them.

The index command:
- Scans the configured catalog dirs for YAML and JSON definitions
- Validates that every (name, version) pair is unique
- Builds the dependency graph and reports unresolved invoke addresses
- Persists the project to .voyage/catalog.db and writes .voyage/index.json`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := pathArg(args, 0)
		fmt.Printf("Indexing catalog at: %s\n", path)

		indexer := index.NewIndexer(GetConfig(), path, logger)
		result, err := indexer.Run(cmd.Context())
		if err != nil {
			return fmt.Errorf("indexing failed: %w", err)
		}

		fmt.Println()
		fmt.Printf("Indexing complete!\n")
		fmt.Printf("  Project:  %s\n", result.ProjectID)
		fmt.Printf("  Files:    %d\n", result.FileCount)
		fmt.Printf("  Services: %d\n", result.ServiceCount)
		fmt.Printf("  Nodes:    %d\n", result.NodeCount)
		fmt.Printf("  Edges:    %d\n", result.EdgeCount)
		fmt.Printf("  Duration: %s\n", result.Duration.Round(time.Millisecond))
		fmt.Printf("  Database: %s\n", result.DBPath)

		if result.DanglingCount == 0 {
			return nil
		}

		fmt.Println()
		fmt.Println(text.FgYellow.Sprintf("%d unresolved invoke address(es):", result.DanglingCount))
		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.SetStyle(table.StyleRounded)
		t.AppendHeader(table.Row{"CALLER", "ADDRESS"})
		for _, d := range result.Dangling {
			t.AppendRow(table.Row{d.Caller, d.Address.String()})
		}
		t.Render()
		return nil
	},
}

func init() {
	rootCmd.AddCommand(indexCmd)
}
