package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/hgl-pong/baklavajs-sub000/internal/config"
	"github.com/hgl-pong/baklavajs-sub000/internal/logging"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "nodeflow",
	Short: "nodeflow evaluates dataflow node graphs",
	Long: `nodeflow loads graphs of typed nodes joined by connections and evaluates them
with a pluggable engine, either from the command line or as an HTTP or MCP service.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		printError("%v", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "Path to nodeflow.toml (default: ./nodeflow.toml when present)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn or error (overrides config)")
}

// loadConfig reads the configuration named by --config and applies flag overrides.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if level, _ := cmd.Flags().GetString("log-level"); level != "" {
		cfg.LogLevel = level
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) (*slog.Logger, error) {
	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	return logging.NewWithWriter(os.Stderr, level, cfg.LogFormat == "json"), nil
}

// printSystemMessage prints a standardized status line to stderr.
func printSystemMessage(format string, args ...any) {
	out := termenv.NewOutput(os.Stderr)
	fmt.Fprintln(os.Stderr, out.String(fmt.Sprintf("[nodeflow] "+format, args...)).Foreground(out.Color("8")))
}

func printError(format string, args ...any) {
	out := termenv.NewOutput(os.Stderr)
	fmt.Fprintln(os.Stderr, out.String(fmt.Sprintf("Error: "+format, args...)).Foreground(out.Color("1")))
}
