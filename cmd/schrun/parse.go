package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/kelrin/schrun/report"
	"github.com/kelrin/schrun/schbench"
)

func newParseCmd() *cobra.Command {
	var withPerf bool

	cmd := &cobra.Command{
		Use:   "parse [file]",
		Short: "Parse captured schbench output into the JSON document",
		Long: `Parse reads a saved schbench diagnostic capture from a file, or from
stdin when the argument is - or absent, and writes the structured JSON
document to stdout. Output with no percentile report parses to an empty
document.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return runParse(args, withPerf)
		},
	}

	cmd.Flags().BoolVar(&withPerf, "perf", false,
		"Also extract perf stat counters and merge them into the document")

	return cmd
}

func runParse(args []string, withPerf bool) error {
	var (
		data []byte
		err  error
	)

	if len(args) == 0 || args[0] == "-" {
		data, err = io.ReadAll(os.Stdin)
		if err != nil {
			return fmt.Errorf("read stdin: %w", err)
		}
	} else {
		data, err = os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("read capture: %w", err)
		}
	}

	lines := schbench.SplitLines(string(data))

	result := schbench.ParseOutput(lines)
	if withPerf {
		result.Merge(schbench.ParsePerfStat(lines))
	}

	return report.WriteJSON(os.Stdout, result)
}
