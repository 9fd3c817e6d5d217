package main

import (
	"errors"
	"fmt"

	"github.com/hgl-pong/baklavajs-sub000/pkg/document"
	"github.com/spf13/cobra"
)

var storeCmd = &cobra.Command{
	Use:   "store",
	Short: "Manage graphs in the configured store",
	Long:  `List, add, inspect and remove graph documents held by the configured store backend (memory, file or redis).`,
}

var storeLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List stored graphs",
	RunE: func(cmd *cobra.Command, args []string) error {
		host, err := hostFromFlags(cmd)
		if err != nil {
			return err
		}
		ids, err := host.Graphs(cmd.Context())
		if err != nil {
			return fmt.Errorf("listing graphs: %w", err)
		}

		out := cmd.OutOrStdout()
		if len(ids) == 0 {
			fmt.Fprintln(out, "No stored graphs found.")
			return nil
		}
		fmt.Fprintln(out, "Stored Graphs:")
		for _, id := range ids {
			fmt.Fprintln(out, "- "+id)
		}
		return nil
	},
}

var storeAddCmd = &cobra.Command{
	Use:   "add <graph-file>...",
	Short: "Validate graph files and save them to the store",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		host, err := hostFromFlags(cmd)
		if err != nil {
			return err
		}
		var errs []error
		for _, path := range args {
			doc, err := document.ReadFile(path)
			if err == nil {
				err = host.Save(cmd.Context(), doc)
			}
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", path, err))
				continue
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved graph '%s'\n", doc.ID)
		}
		return errors.Join(errs...)
	},
}

var storeInspectCmd = &cobra.Command{
	Use:   "inspect <graph-id>",
	Short: "Print a stored graph document as YAML",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		host, err := hostFromFlags(cmd)
		if err != nil {
			return err
		}
		doc, err := host.Load(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("loading graph '%s': %w", args[0], err)
		}
		data, err := document.Encode(doc, document.FormatYAML)
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(data)
		return err
	},
}

var storeRmCmd = &cobra.Command{
	Use:   "rm <graph-id>...",
	Short: "Remove one or more stored graphs",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		host, err := hostFromFlags(cmd)
		if err != nil {
			return err
		}
		var errs []error
		for _, id := range args {
			if err := host.Delete(cmd.Context(), id); err != nil {
				errs = append(errs, fmt.Errorf("removing '%s': %w", id, err))
				continue
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed graph '%s'\n", id)
		}
		return errors.Join(errs...)
	},
}

func init() {
	rootCmd.AddCommand(storeCmd)
	storeCmd.AddCommand(storeLsCmd)
	storeCmd.AddCommand(storeAddCmd)
	storeCmd.AddCommand(storeInspectCmd)
	storeCmd.AddCommand(storeRmCmd)
}
