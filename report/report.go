// Package report renders parsed benchmark results as JSON documents and
// terminal summaries.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/fatih/color"

	"github.com/kelrin/schrun/harness"
	"github.com/kelrin/schrun/schbench"
)

var renderCategories = []struct {
	key   string
	title string
}{
	{schbench.KeyWakeupLatencies, "Wakeup Latencies (usec)"},
	{schbench.KeyRequestLatencies, "Request Latencies (usec)"},
	{schbench.KeyRPS, "RPS (requests)"},
}

// ResultFileName returns the document name for a run: schbench.json for
// the default run, schbench-<scenario>.json for named scenarios.
func ResultFileName(name string) string {
	if name == "" || name == "default" {
		return "schbench.json"
	}

	return "schbench-" + name + ".json"
}

// WriteJSON writes the parsed result mapping as an indented JSON
// document: string-typed percentile fields, numeric average_rps and
// counter values.
func WriteJSON(w io.Writer, result schbench.Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)

	return enc.Encode(result)
}

// WriteResultFile writes the run's JSON document under dir using the
// fixed naming convention and returns the file path.
func WriteResultFile(dir, name string, result schbench.Result) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir %s: %w", dir, err)
	}

	path := filepath.Join(dir, ResultFileName(name))

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create result file: %w", err)
	}

	if err := WriteJSON(f, result); err != nil {
		f.Close()

		return "", fmt.Errorf("write result file %s: %w", path, err)
	}

	if err := f.Close(); err != nil {
		return "", fmt.Errorf("write result file %s: %w", path, err)
	}

	return path, nil
}

// Render writes a human-readable summary of the given runs, with a
// comparison table when there is more than one. Color is gated by the
// package-level fatih/color state; callers toggle color.NoColor.
func Render(w io.Writer, reports []*harness.Report) error {
	if len(reports) == 0 {
		return fmt.Errorf("no runs to report")
	}

	for _, r := range reports {
		renderRun(w, r)
	}

	if len(reports) > 1 {
		renderComparison(w, reports)
	}

	return nil
}

func renderRun(w io.Writer, r *harness.Report) {
	fmt.Fprintf(w, "## Run %s\n\n", r.Name)
	fmt.Fprintf(w, "id: %s\n", r.RunID)
	fmt.Fprintf(w, "command: %s\n", r.Command)
	fmt.Fprintf(w, "host: %s (%d cpus, %s/%s)\n",
		r.Host.Hostname, r.Host.CPUs, r.Host.OS, r.Host.Arch)
	fmt.Fprintf(w, "wall: %s  user: %s  system: %s\n\n",
		formatMs(r.WallMs), formatMs(r.UserMs), formatMs(r.SystemMs))

	rendered := false

	for _, cat := range renderCategories {
		block, ok := r.Metrics.Block(cat.key)
		if !ok {
			continue
		}

		rendered = true

		fmt.Fprintln(w, color.CyanString(cat.title))
		fmt.Fprintln(w, "| Percentile | Latency | Samples |")
		fmt.Fprintln(w, "|------------|---------|---------|")

		for _, e := range block.Percentiles {
			fmt.Fprintf(w, "| %s | %s | %s |\n", e.Percentile, e.Latency, e.Samples)
		}

		if len(block.MinMax) > 0 {
			fmt.Fprintf(w, "min: %s  max: %s\n",
				color.CyanString(block.MinMax["min"]),
				color.RedString(block.MinMax["max"]),
			)
		}

		fmt.Fprintln(w)
	}

	if rps, ok := r.Metrics.AverageRPS(); ok {
		rendered = true

		fmt.Fprintf(w, "average rps: %s\n\n", color.GreenString("%.2f", rps))
	}

	// An empty mapping is a valid run outcome, not a failure.
	if !rendered {
		fmt.Fprintln(w, "no percentile data reported")
		fmt.Fprintln(w)
	}
}

func renderComparison(w io.Writer, reports []*harness.Report) {
	best := findBestRPS(reports)

	fmt.Fprintln(w, "## Comparison")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "| Run | Avg RPS | p99 Wakeup | p99 Request | Wall | vs Best |")
	fmt.Fprintln(w, "|-----|---------|------------|-------------|------|---------|")

	for _, r := range reports {
		avg := "-"
		ratio := "-"

		if rps, ok := r.Metrics.AverageRPS(); ok {
			avg = fmt.Sprintf("%.2f", rps)
			if best > 0 {
				ratio = fmt.Sprintf("%.2fx", rps/best)
				if rps == best {
					ratio = color.GreenString(ratio)
				}
			}
		}

		fmt.Fprintf(w, "| %s | %s | %s | %s | %s | %s |\n",
			r.Name,
			avg,
			percentileLatency(r.Metrics, schbench.KeyWakeupLatencies, "99.0"),
			percentileLatency(r.Metrics, schbench.KeyRequestLatencies, "99.0"),
			formatMs(r.WallMs),
			ratio,
		)
	}

	fmt.Fprintln(w)
}

func percentileLatency(result schbench.Result, key, rank string) string {
	block, ok := result.Block(key)
	if !ok {
		return "-"
	}

	for _, e := range block.Percentiles {
		if e.Percentile == rank {
			return e.Latency
		}
	}

	return "-"
}

func findBestRPS(reports []*harness.Report) float64 {
	best := 0.0
	for _, r := range reports {
		if rps, ok := r.Metrics.AverageRPS(); ok && rps > best {
			best = rps
		}
	}

	return best
}

func formatMs(ms int64) string {
	if ms < 1000 {
		return fmt.Sprintf("%dms", ms)
	}

	return fmt.Sprintf("%.2fs", float64(ms)/1000)
}
