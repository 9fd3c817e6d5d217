package main

import (
	"fmt"

	"github.com/hgl-pong/baklavajs-sub000"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of nodeflow",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "nodeflow version %s\n", nodeflow.Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
