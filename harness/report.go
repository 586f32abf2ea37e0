// Package harness manages execution of schbench benchmark runs.
package harness

import (
	"time"

	"github.com/kelrin/schrun/schbench"
)

// Report wraps one run's parsed metrics with identifying metadata.
// Metrics keeps the parsed document schema untouched; the envelope
// fields are schrun's own bookkeeping.
type Report struct {
	RunID     string          `json:"run_id"`
	Name      string          `json:"name"`
	StartedAt time.Time       `json:"started_at"`
	Command   string          `json:"command"`
	Params    schbench.Params `json:"params"`
	Host      Host            `json:"host"`
	WallMs    int64           `json:"wall_ms"`
	UserMs    int64           `json:"user_ms"`
	SystemMs  int64           `json:"system_ms"`
	Metrics   schbench.Result `json:"metrics"`
}
