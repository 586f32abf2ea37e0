package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/kelrin/schrun/config"
	"github.com/kelrin/schrun/harness"
	"github.com/kelrin/schrun/history"
	"github.com/kelrin/schrun/report"
)

// runOptions carries the run command's settings that live outside the
// configuration file.
type runOptions struct {
	timeout    time.Duration
	outputJSON bool
}

func newRunCmd(logger *slog.Logger) *cobra.Command {
	var (
		cfgPath    string
		binary     string
		perfStat   string
		taskset    string
		timeout    time.Duration
		outputDir  string
		outputJSON bool
		noHistory  bool
		all        bool

		threads    int
		workers    int
		pipeBytes  int
		runSecs    int
		cacheKB    int
		operations int
		rps        int
		warmup     int
		autobench  bool
		locking    bool
	)

	defaults := config.Default()

	cmd := &cobra.Command{
		Use:   "run [scenario...]",
		Short: "Run schbench and capture parsed results",
		Long: `Run invokes schbench once per named scenario (or once with the base
parameters when no scenario is given), writes each run's structured JSON
document under the output directory, archives the runs, and prints a
summary report. Flags override the configuration file and environment.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgPath)
			if err != nil {
				return err
			}
			cfg.ApplyEnv()

			flags := cmd.Flags()
			if flags.Changed("binary") {
				cfg.Exec.Binary = binary
			}
			if flags.Changed("perf-stat") {
				cfg.Exec.PerfStat = perfStat
			}
			if flags.Changed("taskset") {
				cfg.Exec.Taskset = taskset
			}
			if flags.Changed("output-dir") {
				cfg.Output.Dir = outputDir
			}
			if flags.Changed("no-history") {
				cfg.Output.NoHistory = noHistory
			}
			if flags.Changed("threads") {
				cfg.Schbench.Threads = threads
			}
			if flags.Changed("workers") {
				cfg.Schbench.Workers = workers
			}
			if flags.Changed("bytes") {
				cfg.Schbench.Bytes = pipeBytes
			}
			if flags.Changed("runtime") {
				cfg.Schbench.Runtime = runSecs
			}
			if flags.Changed("cache-footprint") {
				cfg.Schbench.CacheFootprint = cacheKB
			}
			if flags.Changed("operations") {
				cfg.Schbench.Operations = operations
			}
			if flags.Changed("rps") {
				cfg.Schbench.RPS = rps
			}
			if flags.Changed("warmup") {
				cfg.Schbench.Warmup = warmup
			}
			if flags.Changed("autobench") {
				cfg.Schbench.Autobench = autobench
			}
			if flags.Changed("locking") {
				cfg.Schbench.Locking = locking
			}

			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}

			names, err := resolveScenarios(cfg, args, all)
			if err != nil {
				return err
			}

			opts := runOptions{
				timeout:    cfg.Timeout(),
				outputJSON: outputJSON,
			}
			if flags.Changed("timeout") {
				opts.timeout = timeout
			}

			return runBenchmark(cmd.Context(), logger, cfg, names, opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&cfgPath, "config", "", "Path to config file (default ~/.schrun/config.toml)")
	flags.StringVar(&binary, "binary", defaults.Exec.Binary, "Path to the schbench binary")
	flags.StringVar(&perfStat, "perf-stat", "", "Wrap the run in 'perf stat' with these arguments")
	flags.StringVar(&taskset, "taskset", "", "Pin the run to this CPU list via taskset")
	flags.DurationVar(&timeout, "timeout", 0, "Kill the run after this duration (0 disables)")
	flags.StringVar(&outputDir, "output-dir", defaults.Output.Dir, "Directory for result JSON files")
	flags.BoolVar(&outputJSON, "json", false, "Print raw result documents instead of the summary")
	flags.BoolVar(&noHistory, "no-history", false, "Skip archiving runs in the history database")
	flags.BoolVar(&all, "all", false, "Run every configured scenario")

	params := defaults.Schbench
	flags.IntVarP(&threads, "threads", "m", params.Threads, "Message threads (schbench -m)")
	flags.IntVarP(&workers, "workers", "t", params.Workers, "Workers per message thread (schbench -t)")
	flags.IntVarP(&pipeBytes, "bytes", "p", params.Bytes, "Pipe transfer size in bytes (schbench -p)")
	flags.IntVarP(&runSecs, "runtime", "r", params.Runtime, "Run duration in seconds (schbench -r/-i)")
	flags.IntVarP(&cacheKB, "cache-footprint", "F", params.CacheFootprint, "Cache footprint in KB (schbench -F)")
	flags.IntVarP(&operations, "operations", "n", params.Operations, "Operations per request (schbench -n)")
	flags.IntVarP(&rps, "rps", "R", params.RPS, "Request rate limit (schbench -R)")
	flags.IntVarP(&warmup, "warmup", "w", params.Warmup, "Warmup seconds before measuring (schbench -w)")
	flags.BoolVarP(&autobench, "autobench", "a", params.Autobench, "Increase worker count until latency spikes (schbench -a)")
	flags.BoolVarP(&locking, "locking", "L", params.Locking, "Per-cpu spinlock contention mode (schbench -L)")

	return cmd
}

// resolveScenarios maps the command line onto the list of scenario names
// to run. No arguments means a single run with the base parameters.
func resolveScenarios(cfg *config.Config, args []string, all bool) ([]string, error) {
	if all {
		names := cfg.ScenarioNames()
		if len(names) == 0 {
			return nil, fmt.Errorf("--all given but no scenarios configured")
		}

		return names, nil
	}

	if len(args) == 0 {
		return []string{config.DefaultScenario}, nil
	}

	return args, nil
}

func runBenchmark(
	ctx context.Context,
	logger *slog.Logger,
	cfg *config.Config,
	names []string,
	opts runOptions,
) error {
	// Step 1: Record where the numbers come from before anything runs.
	host := harness.CollectHost()

	logger.InfoContext(ctx, "starting benchmark",
		slog.String("binary", cfg.Exec.Binary),
		slog.Any("scenarios", names),
		slog.String("host", host.Hostname),
		slog.Int("cpus", host.CPUs),
	)

	// Step 2: Open the history archive unless disabled.
	var store *history.Store
	if !cfg.Output.NoHistory {
		var err error
		store, err = history.Open(cfg.HistoryPath())
		if err != nil {
			return fmt.Errorf("open history: %w", err)
		}
		defer store.Close()
	}

	runner := harness.NewRunner(cfg.Exec.Binary, cfg.Exec.PerfStat, cfg.Exec.Taskset, logger)

	// Step 3: Run each scenario sequentially. Concurrent runs would
	// perturb each other's scheduler measurements.
	reports := make([]*harness.Report, 0, len(names))

	for _, name := range names {
		params, err := cfg.Scenario(name)
		if err != nil {
			return err
		}

		rep, err := runner.Run(ctx, harness.RunConfig{
			Name:    name,
			Params:  params,
			Timeout: opts.timeout,
		})
		if err != nil {
			return fmt.Errorf("run %s: %w", name, err)
		}

		// Step 4: Persist the run's JSON document.
		path, err := report.WriteResultFile(cfg.OutputDir(), name, rep.Metrics)
		if err != nil {
			return err
		}

		logger.InfoContext(ctx, "result written",
			slog.String("run", name),
			slog.String("path", path),
		)

		// Step 5: Archive the run for later comparison.
		if store != nil {
			if err := store.SaveRun(ctx, rep); err != nil {
				return fmt.Errorf("archive run %s: %w", name, err)
			}
		}

		reports = append(reports, rep)
	}

	// Step 6: Emit the report.
	if opts.outputJSON {
		for _, rep := range reports {
			if err := report.WriteJSON(os.Stdout, rep.Metrics); err != nil {
				return fmt.Errorf("write JSON report: %w", err)
			}
		}
	} else if err := report.Render(os.Stdout, reports); err != nil {
		return fmt.Errorf("render report: %w", err)
	}

	logger.InfoContext(ctx, "benchmark complete",
		slog.Int("runs", len(reports)),
	)

	return nil
}
