// Package schbench builds command lines for the schbench scheduler
// benchmark and parses its free-text diagnostic output into structured,
// JSON-ready results.
package schbench

import (
	"regexp"
	"strconv"
	"strings"
)

// Result keys for the recognized output categories.
const (
	KeyWakeupLatencies  = "wakeup_latencies_percentiles"
	KeyRequestLatencies = "request_latencies_percentiles"
	KeyRPS              = "rps_percentiles"
	KeyAverageRPS       = "average_rps"
)

const (
	headerWakeup  = "Wakeup Latencies percentiles"
	headerRequest = "Request Latencies percentiles"
	headerRPS     = "RPS percentiles (requests)"

	perfStatMarker = "Performance counter stats"
)

// categories maps header substrings to result keys, checked in order.
var categories = []struct {
	header string
	key    string
}{
	{headerWakeup, KeyWakeupLatencies},
	{headerRequest, KeyRequestLatencies},
	{headerRPS, KeyRPS},
}

var (
	percentileRe = regexp.MustCompile(`^\s*(\*?)\s*(\d+\.\d+)th: (\d+)\s+\((\d+) samples\)`)
	minMaxRe     = regexp.MustCompile(`^\s*min=(\d+), max=(\d+)`)
	averageRPSRe = regexp.MustCompile(`^average rps: (\d+\.\d+)`)
	counterRe    = regexp.MustCompile(`^\s*([\d,.]+)\s+([^#]+)\s+#\s*([\d,.]+)\s*([^#]+)?`)
)

// SplitLines splits a captured diagnostic stream into the line sequence
// the parsers consume, tolerating CRLF endings.
func SplitLines(s string) []string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSuffix(line, "\r")
	}

	return lines
}

// ParseOutput extracts latency percentiles, min/max bounds and the
// average RPS figure from schbench diagnostic lines.
//
// schbench prints a percentile report every interval plus a final one on
// exit; only the report opened by the last "Wakeup Latencies percentiles"
// header covers the whole run, so parsing starts there. Input without
// that header yields an empty result, which callers must treat as valid.
// Lines matching no known shape are skipped, never an error.
func ParseOutput(lines []string) Result {
	result := Result{}

	start := -1
	for i, line := range lines {
		if strings.Contains(line, headerWakeup) {
			start = i
		}
	}
	if start < 0 {
		return result
	}

	var current *CategoryBlock

	for _, line := range lines[start:] {
		if key, ok := matchCategory(line); ok {
			block, ok := result.Block(key)
			if !ok {
				block = newCategoryBlock()
				result[key] = block
			}
			current = block

			continue
		}

		if current == nil || strings.TrimSpace(line) == "" {
			continue
		}

		if m := percentileRe.FindStringSubmatch(line); m != nil {
			// m[1] is the asterisk marking schbench's highest
			// populated percentile; it carries no data.
			current.Percentiles = append(current.Percentiles, PercentileEntry{
				Percentile: m[2],
				Latency:    m[3],
				Samples:    m[4],
			})

			continue
		}

		if m := minMaxRe.FindStringSubmatch(line); m != nil {
			current.MinMax["min"] = m[1]
			current.MinMax["max"] = m[2]

			continue
		}

		if m := averageRPSRe.FindStringSubmatch(line); m != nil {
			if v, err := strconv.ParseFloat(m[1], 64); err == nil {
				result[KeyAverageRPS] = v
			}
		}
	}

	return result
}

func matchCategory(line string) (string, bool) {
	for _, c := range categories {
		if strings.Contains(line, c.header) {
			return c.key, true
		}
	}

	return "", false
}

// ParsePerfStat extracts counter values from perf stat output
// interleaved in the same diagnostic stream. Lines before the
// "Performance counter stats" marker are ignored; after it, each line of
// the shape "<value> <name> # <value> <unit>" becomes a record keyed by
// the counter name. Thousands separators are stripped. A repeated
// counter name overwrites the record's raw value and adds or overwrites
// its unit field. Malformed lines are skipped.
func ParsePerfStat(lines []string) PerfStat {
	stats := PerfStat{}

	inStats := false
	for _, line := range lines {
		if strings.Contains(line, perfStatMarker) {
			inStats = true

			continue
		}
		if !inStats || strings.TrimSpace(line) == "" {
			continue
		}

		m := counterRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}

		raw, err := parseCounterValue(m[1])
		if err != nil {
			continue
		}

		name := strings.TrimSpace(m[2])

		record, ok := stats[name]
		if !ok {
			record = map[string]float64{}
			stats[name] = record
		}
		record["raw"] = raw

		unit := strings.TrimSpace(m[4])
		if unit == "" {
			continue
		}
		if v, err := parseCounterValue(m[3]); err == nil {
			record[unit] = v
		}
	}

	return stats
}

func parseCounterValue(s string) (float64, error) {
	return strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64)
}
