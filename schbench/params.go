package schbench

import "strconv"

// Params holds the schbench invocation parameters. Start from
// DefaultParams rather than the zero value.
type Params struct {
	Threads        int  `json:"threads" toml:"threads"`                 // -m, message threads
	Workers        int  `json:"workers" toml:"workers"`                 // -t, workers per message thread
	Bytes          int  `json:"bytes" toml:"bytes"`                     // -p, pipe transfer size in bytes
	Runtime        int  `json:"runtime" toml:"runtime"`                 // -r and -i, run and report interval seconds
	CacheFootprint int  `json:"cache_footprint" toml:"cache_footprint"` // -F, per-worker cache footprint in KB
	Operations     int  `json:"operations" toml:"operations"`           // -n, think-time operations per request
	RPS            int  `json:"rps" toml:"rps"`                         // -R, requests-per-second target, 0 disables
	Warmup         int  `json:"warmup" toml:"warmup"`                   // -w, warm-up seconds excluded from stats
	Autobench      bool `json:"autobench" toml:"autobench"`             // -a, auto-scaling benchmark mode
	Locking        bool `json:"locking" toml:"locking"`                 // -L, per-cpu spinlock contention mode
}

// DefaultParams returns the parameter set used when nothing overrides it.
func DefaultParams() Params {
	return Params{
		Threads:        1,
		Workers:        1,
		Bytes:          0,
		Runtime:        5,
		CacheFootprint: 256,
		Operations:     5,
		RPS:            0,
		Warmup:         0,
		Autobench:      false,
		Locking:        true,
	}
}

// Args renders the parameters as a schbench argument vector. Runtime
// feeds both -r and -i so the final report interval spans the whole run.
func (p Params) Args() []string {
	args := []string{
		"-m", strconv.Itoa(p.Threads),
		"-t", strconv.Itoa(p.Workers),
		"-p", strconv.Itoa(p.Bytes),
		"-r", strconv.Itoa(p.Runtime),
		"-i", strconv.Itoa(p.Runtime),
		"-F", strconv.Itoa(p.CacheFootprint),
		"-n", strconv.Itoa(p.Operations),
		"-R", strconv.Itoa(p.RPS),
		"-w", strconv.Itoa(p.Warmup),
	}

	if p.Autobench {
		args = append(args, "-a")
	}
	if p.Locking {
		args = append(args, "-L")
	}

	return args
}
