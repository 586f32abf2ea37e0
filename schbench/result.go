package schbench

// PercentileEntry is one latency observation at a given percentile rank.
// Values stay as the decimal strings schbench printed; downstream JSON
// must carry them unconverted.
type PercentileEntry struct {
	Percentile string `json:"percentile"`
	Latency    string `json:"latency"`
	Samples    string `json:"samples"`
}

// CategoryBlock collects the percentile entries and min/max bounds
// reported under one category header.
type CategoryBlock struct {
	Percentiles []PercentileEntry `json:"percentiles"`
	MinMax      map[string]string `json:"min_max"`
}

func newCategoryBlock() *CategoryBlock {
	return &CategoryBlock{
		Percentiles: []PercentileEntry{},
		MinMax:      map[string]string{},
	}
}

// Result maps category keys to their *CategoryBlock, plus the scalar
// "average_rps" and, after Merge, perf counter records. It serializes
// directly to the run's JSON document.
type Result map[string]any

// PerfStat maps perf counter names to their parsed fields. Every record
// has a "raw" value; counters with a recognized unit suffix carry an
// additional unit-keyed value.
type PerfStat map[string]map[string]float64

// Merge copies perf counter records into the result at top level.
// A counter name colliding with an existing key overwrites it.
func (r Result) Merge(stats PerfStat) {
	for name, fields := range stats {
		r[name] = fields
	}
}

// Block returns the category block stored under key, if any.
func (r Result) Block(key string) (*CategoryBlock, bool) {
	block, ok := r[key].(*CategoryBlock)

	return block, ok
}

// AverageRPS returns the parsed average requests-per-second value, if
// the benchmark reported one.
func (r Result) AverageRPS() (float64, bool) {
	v, ok := r[KeyAverageRPS].(float64)

	return v, ok
}
