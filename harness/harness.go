package harness

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kelrin/schrun/schbench"
)

// Keep failure output readable; schbench repeats its percentile report
// every interval and only the end matters for diagnosis.
const stderrTailBytes = 4096

// RunConfig holds parameters for a single schbench execution. An empty
// Name is treated as the default run.
type RunConfig struct {
	Name    string
	Params  schbench.Params
	Timeout time.Duration
}

// Runner launches schbench and turns its diagnostic output into
// structured reports.
type Runner struct {
	Binary   string
	PerfStat string
	Taskset  string
	Logger   *slog.Logger
}

// NewRunner creates a Runner for the given schbench binary. A non-empty
// perfStat wraps the command in `perf stat <perfStat fields>`; a
// non-empty taskset pins it with `taskset -c <taskset>`. Empty strings
// disable the wrappers.
func NewRunner(binary, perfStat, taskset string, logger *slog.Logger) *Runner {
	return &Runner{
		Binary:   binary,
		PerfStat: perfStat,
		Taskset:  taskset,
		Logger:   logger.With(slog.String("binary", binary)),
	}
}

// Run executes one schbench run and returns the parsed report.
// A non-zero exit is fatal for the run, not a parse concern.
func (r *Runner) Run(ctx context.Context, cfg RunConfig) (*Report, error) {
	if cfg.Name == "" {
		cfg.Name = "default"
	}
	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	binary, err := exec.LookPath(r.Binary)
	if err != nil {
		return nil, fmt.Errorf("locate schbench binary %q: %w", r.Binary, err)
	}

	argv := wrapCommand(binary, cfg.Params.Args(), r.PerfStat, r.Taskset)
	command := strings.Join(argv, " ")

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	// A killed perf or taskset wrapper can orphan the benchmark child
	// with our pipes still open; WaitDelay bounds the wait for them.
	cmd.WaitDelay = time.Second

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	r.Logger.Info("starting schbench",
		slog.String("run", cfg.Name),
		slog.String("command", command),
	)

	started := time.Now()

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf(
			"schbench failed: %w\ncommand: %s\nstderr: %s",
			err, command, tail(stderr.String(), stderrTailBytes),
		)
	}

	wall := time.Since(started)

	r.Logger.Info("schbench finished",
		slog.String("run", cfg.Name),
		slog.Duration("wall_time", wall),
	)

	// schbench reports on stderr; perf stat writes there too.
	lines := schbench.SplitLines(stderr.String())

	metrics := schbench.ParseOutput(lines)
	if r.PerfStat != "" {
		metrics.Merge(schbench.ParsePerfStat(lines))
	}

	report := &Report{
		RunID:     uuid.New().String(),
		Name:      cfg.Name,
		StartedAt: started.UTC(),
		Command:   command,
		Params:    cfg.Params,
		Host:      CollectHost(),
		WallMs:    wall.Milliseconds(),
		Metrics:   metrics,
	}

	if state := cmd.ProcessState; state != nil {
		report.UserMs = state.UserTime().Milliseconds()
		report.SystemMs = state.SystemTime().Milliseconds()
	}

	return report, nil
}

// wrapCommand builds the full argv for a run. Wrapper order matches the
// invocation contract: perf stat outermost, then taskset, then the
// benchmark binary itself.
func wrapCommand(binary string, args []string, perfStat, taskset string) []string {
	argv := make([]string, 0, len(args)+8)

	if perfStat != "" {
		argv = append(argv, "perf", "stat")
		argv = append(argv, strings.Fields(perfStat)...)
	}
	if taskset != "" {
		argv = append(argv, "taskset", "-c", taskset)
	}

	argv = append(argv, binary)
	argv = append(argv, args...)

	return argv
}

func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}

	return "..." + s[len(s)-n:]
}
