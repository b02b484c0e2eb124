package cmd

import (
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"github.com/abramin/voyage/internal/graph"
)

var (
	nodesKind string
	nodesDemo bool
)

var nodesCmd = &cobra.Command{
	Use:   "nodes [path]",
	Short: "List the nodes of the dependency graph",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		g, err := loadGraph(cmd.Context(), pathArg(args, 0), nodesDemo)
		if err != nil {
			return err
		}

		nodes := g.Nodes()
		if nodesKind != "" {
			k, ok := graph.ParseKind(nodesKind)
			if !ok {
				return fmt.Errorf("invalid kind %q (want command, subscription or endpoint)", nodesKind)
			}
			nodes = g.NodesOfKind(k)
		}

		if len(nodes) == 0 {
			fmt.Println(text.FgYellow.Sprint("No nodes found"))
			return nil
		}

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.SetStyle(table.StyleRounded)
		t.AppendHeader(table.Row{"ID", "KIND", "SERVICE", "VERSION", "NAME", "EVENT"})
		for _, n := range nodes {
			name := n.Name
			if n.Deprecated {
				name = text.FgHiBlack.Sprint(name + " (deprecated)")
			}
			t.AppendRow(table.Row{n.ID, n.Kind, n.ServiceName, n.ServiceVersion, name, n.EventName})
		}
		t.AppendFooter(table.Row{"", "", "", "", "total", len(nodes)})
		t.Render()
		return nil
	},
}

func init() {
	rootCmd.AddCommand(nodesCmd)
	nodesCmd.Flags().StringVar(&nodesKind, "kind", "", "only list nodes of this kind")
	nodesCmd.Flags().BoolVar(&nodesDemo, "demo", false, "use the built-in demo project")
}
