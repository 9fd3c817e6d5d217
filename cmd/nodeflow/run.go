package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/hgl-pong/baklavajs-sub000"
	"github.com/hgl-pong/baklavajs-sub000/internal/presentation/tui"
	"github.com/hgl-pong/baklavajs-sub000/pkg/adapters/file"
	"github.com/hgl-pong/baklavajs-sub000/pkg/domain"
	"github.com/hgl-pong/baklavajs-sub000/pkg/observability"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var runCmd = &cobra.Command{
	Use:   "run <graph-file|graph-id>",
	Short: "Evaluate a graph file once and print the results",
	Long: `Loads a graph document (a YAML or JSON file, or the ID of a stored graph), evaluates it with the selected engine and
prints every calculated output. Inputs can be overridden with --set node:interface=value.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		logger, err := newLogger(cfg)
		if err != nil {
			return err
		}

		engineType, _ := cmd.Flags().GetString("engine")
		sets, _ := cmd.Flags().GetStringArray("set")
		globalsRaw, _ := cmd.Flags().GetString("globals")
		jsonMode, _ := cmd.Flags().GetBool("json")
		watchMode, _ := cmd.Flags().GetBool("watch")

		overrides, err := parseOverrides(sets)
		if err != nil {
			return err
		}
		var globals any
		if globalsRaw != "" {
			if err := yaml.Unmarshal([]byte(globalsRaw), &globals); err != nil {
				return fmt.Errorf("invalid --globals: %w", err)
			}
		}

		host, err := newHost(cfg, logger, nil, nodeflow.WithLifecycleHooks(observability.LogHooks(logger)))
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		r := &fileRunner{
			host: host,
			path: args[0],
			opts: nodeflow.RunOptions{Engine: engineType, Overrides: overrides, Globals: globals},
			json: jsonMode,
			out:  cmd.OutOrStdout(),
		}
		if watchMode {
			return r.watch(ctx)
		}
		return r.runOnce(ctx)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringP("engine", "e", "", "Engine type (default from config)")
	runCmd.Flags().StringArray("set", nil, "Override an input, as node:interface=value (repeatable)")
	runCmd.Flags().String("globals", "", "Global values passed to every calculation (YAML or JSON)")
	runCmd.Flags().Bool("json", false, "Print the result as JSON")
	runCmd.Flags().BoolP("watch", "w", false, "Re-run whenever the graph file changes")
}

// parseOverrides turns "node:interface=value" pairs into run overrides.
// Values are decoded as YAML scalars, so numbers and booleans keep their type.
func parseOverrides(pairs []string) (map[string]any, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	out := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		key, raw, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid --set %q: expected node:interface=value", pair)
		}
		if _, _, ok := domain.ParseInterfaceID(key); !ok {
			return nil, fmt.Errorf("invalid --set %q: %q is not node:interface", pair, key)
		}
		var v any
		if err := yaml.Unmarshal([]byte(raw), &v); err != nil {
			return nil, fmt.Errorf("invalid --set %q: %w", pair, err)
		}
		if v == nil {
			v = raw
		}
		out[key] = v
	}
	return out, nil
}

type fileRunner struct {
	host *nodeflow.Host
	path string
	opts nodeflow.RunOptions
	json bool
	out  io.Writer

	last domain.CalculationResult
}

type jsonResult struct {
	Graph  string                   `json:"graph"`
	Result domain.CalculationResult `json:"result"`
	Error  string                   `json:"error,omitempty"`
}

func (r *fileRunner) runOnce(ctx context.Context) error {
	doc, err := loadDocument(ctx, r.host, r.path)
	if err != nil {
		return err
	}
	result, runErr := r.host.RunDocument(ctx, doc, r.opts)
	previous := r.last
	if result != nil {
		r.last = result
	}
	if previous != nil && result != nil {
		defer reportChanges(domain.Diff(previous, result))
	}

	if r.json {
		res := jsonResult{Graph: doc.ID, Result: result}
		if runErr != nil {
			res.Error = runErr.Error()
		}
		enc := json.NewEncoder(r.out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(res); err != nil {
			return err
		}
		return runErr
	}

	if result != nil {
		if err := tui.RenderResult(r.out, doc.ID, result); err != nil {
			return err
		}
	}
	return runErr
}

// watch runs the file, then runs it again on every change until ctx is done.
func (r *fileRunner) watch(ctx context.Context) error {
	dir, name := filepath.Split(r.path)
	if dir == "" {
		dir = "."
	}
	target := strings.TrimSuffix(name, filepath.Ext(name))

	changes, err := file.New(dir).Watch(ctx)
	if err != nil {
		return err
	}

	printSystemMessage("Watching '%s' for changes.", r.path)
	r.report(r.runOnce(ctx))
	for {
		select {
		case <-ctx.Done():
			printSystemMessage("Watcher stopped.")
			return nil
		case id, ok := <-changes:
			if !ok {
				return nil
			}
			if id != target {
				continue
			}
			printSystemMessage("Change detected, re-running '%s'.", r.path)
			r.report(r.runOnce(ctx))
		}
	}
}

func reportChanges(diff *domain.ResultDiff) {
	if diff == nil {
		printSystemMessage("No outputs changed.")
		return
	}
	changed := 0
	for _, rec := range diff.Changed {
		changed += len(rec)
	}
	printSystemMessage("%d output(s) changed, %d node(s) removed.", changed, len(diff.Removed))
}

func (r *fileRunner) report(err error) {
	if err == nil || errors.Is(err, context.Canceled) {
		return
	}
	printError("%v", err)
}
