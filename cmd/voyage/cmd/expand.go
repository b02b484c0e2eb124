package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/abramin/voyage/internal/traverse"
)

var (
	expandDepth          int
	expandDemo           bool
	expandSpine          bool
	expandHideDeprecated bool
	expandHideServices   []string
)

var expandCmd = &cobra.Command{
	Use:   "expand <node-id> [path]",
	Short: "Print the dependency diagram around a node as JSON",
	Long: `Expand a node into its inputs, subscribers and invoked commands.

The output holds the flat render nodes and edges plus the nested layout
tree. With --spine the main event flow leaving the node is printed instead.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		g, err := loadGraph(cmd.Context(), pathArg(args, 1), expandDemo)
		if err != nil {
			return err
		}

		id := args[0]
		if _, ok := g.Lookup(id); !ok {
			return fmt.Errorf("node %q not found", id)
		}

		filter := traverse.Filter{HideDeprecated: expandHideDeprecated, HideServices: expandHideServices}
		engine := traverse.NewEngine(logger, GetConfig().Layout, traverse.WithFilter(filter))

		var out any
		if expandSpine {
			out = engine.Spine(g, id, 0)
		} else {
			out = engine.Expand(g, id, GetConfig().ClampDepth(expandDepth))
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	},
}

func init() {
	rootCmd.AddCommand(expandCmd)
	expandCmd.Flags().IntVarP(&expandDepth, "depth", "d", -1, "max expansion depth (default from config)")
	expandCmd.Flags().BoolVar(&expandDemo, "demo", false, "use the built-in demo project")
	expandCmd.Flags().BoolVar(&expandSpine, "spine", false, "print the main event flow instead of the diagram")
	expandCmd.Flags().BoolVar(&expandHideDeprecated, "hide-deprecated", false, "leave out deprecated nodes")
	expandCmd.Flags().StringSliceVar(&expandHideServices, "hide-services", nil, "leave out services matching these patterns (trailing * allowed)")
}
