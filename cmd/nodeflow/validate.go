package main

import (
	"fmt"

	"github.com/hgl-pong/baklavajs-sub000/internal/validator"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate <graph-file|graph-id>",
	Short: "Check the graph for consistency",
	Long: `Checks node identities and connection references, builds the live graph and
orders it. Unknown node types, undeclared interfaces and cycles fail validation;
isolated or unused nodes and mistyped input values are reported as warnings.`,
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
		g, err := host.Materialize(doc)
		if err != nil {
			return fmt.Errorf("validation failed: %w", err)
		}
		report, err := validator.ValidateGraph(g, validator.WithCatalogue(host.Catalogue()))
		if err != nil {
			return fmt.Errorf("validation failed: %w", err)
		}

		out := cmd.OutOrStdout()
		for _, w := range report.Warnings {
			fmt.Fprintf(out, "⚠️  %s\n", w)
		}
		fmt.Fprintln(out, "Graph is valid! ✅")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
