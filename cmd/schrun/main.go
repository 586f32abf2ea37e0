// Package main provides the CLI entry point for schrun, a harness for
// the schbench scheduler wakeup-latency benchmark.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func main() {
	level := new(slog.LevelVar)
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))

	root := newRootCmd(logger, level)
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCmd(logger *slog.Logger, level *slog.LevelVar) *cobra.Command {
	var (
		verbose bool
		noColor bool
	)

	root := &cobra.Command{
		Use:   "schrun",
		Short: "Harness for the schbench scheduler latency benchmark",
		Long: `Schrun invokes an existing schbench binary with configurable parameters,
optionally wrapped in perf stat and taskset, parses the free-text diagnostic
output into a structured JSON document, and archives runs for comparison.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(*cobra.Command, []string) {
			if verbose {
				level.Set(slog.LevelDebug)
			}
			if noColor || !term.IsTerminal(int(os.Stdout.Fd())) {
				color.NoColor = true
			}
		},
	}

	pf := root.PersistentFlags()
	pf.BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	pf.BoolVar(&noColor, "no-color", false, "Disable colored output")

	root.AddCommand(newRunCmd(logger))
	root.AddCommand(newParseCmd())
	root.AddCommand(newHistoryCmd())

	return root
}
