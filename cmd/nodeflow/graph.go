package main

import (
	"context"
	"fmt"
	"os"

	"github.com/hgl-pong/baklavajs-sub000"
	"github.com/hgl-pong/baklavajs-sub000/internal/presentation/graph"
	"github.com/hgl-pong/baklavajs-sub000/pkg/document"
	"github.com/spf13/cobra"
)

// graphCmd represents the graph command
var graphCmd = &cobra.Command{
	Use:   "graph <graph-file|graph-id>",
	Short: "Export the graph as a Mermaid diagram",
	Long: `Outputs a Mermaid diagram (graph LR) of the nodes and connections. With --run the
graph is evaluated first and calculated or failed nodes are highlighted.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		host, err := hostFromFlags(cmd)
		if err != nil {
			return err
		}

		doc, err := loadDocument(cmd.Context(), host, args[0])
		if err != nil {
			return err
		}

		var overlay *graph.GraphOverlay
		if run, _ := cmd.Flags().GetBool("run"); run {
			engineType, _ := cmd.Flags().GetString("engine")
			result, err := host.RunDocument(cmd.Context(), doc, nodeflow.RunOptions{Engine: engineType})
			if result == nil && err != nil {
				return err
			}
			overlay = graph.OverlayFromResult(result, err)
		}

		fmt.Fprint(cmd.OutOrStdout(), graph.GenerateMermaid(doc, overlay))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
	graphCmd.Flags().Bool("run", false, "Evaluate the graph and highlight the outcome")
	graphCmd.Flags().StringP("engine", "e", "", "Engine type used with --run")
}

// loadDocument reads arg as a document file when it exists on disk and as a
// stored graph ID otherwise.
func loadDocument(ctx context.Context, host *nodeflow.Host, arg string) (*document.Document, error) {
	if info, err := os.Stat(arg); err == nil && !info.IsDir() {
		return document.ReadFile(arg)
	}
	return host.Load(ctx, arg)
}
