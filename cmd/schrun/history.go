package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kelrin/schrun/config"
	"github.com/kelrin/schrun/history"
)

func newHistoryCmd() *cobra.Command {
	var (
		cfgPath string
		dbPath  string
		limit   int
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect archived benchmark runs",
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&cfgPath, "config", "", "Path to config file (default ~/.schrun/config.toml)")
	pf.StringVar(&dbPath, "db", "", "History database path (overrides config)")

	list := &cobra.Command{
		Use:   "list",
		Short: "List archived runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := openHistory(cfgPath, dbPath)
			if err != nil {
				return err
			}
			defer store.Close()

			runs, err := store.ListRuns(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				fmt.Println("no archived runs")

				return nil
			}

			fmt.Println("| Run ID | Name | Started | Wall | Command |")
			fmt.Println("|--------|------|---------|------|---------|")
			for _, run := range runs {
				fmt.Printf("| %s | %s | %s | %dms | %s |\n",
					run.RunID,
					run.Name,
					run.StartedAt.Format("2006-01-02 15:04:05"),
					run.WallMs,
					run.Command,
				)
			}

			return nil
		},
	}
	list.Flags().IntVar(&limit, "limit", 20, "Maximum runs to list (0 for all)")

	show := &cobra.Command{
		Use:   "show <run-id>",
		Short: "Print an archived run as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openHistory(cfgPath, dbPath)
			if err != nil {
				return err
			}
			defer store.Close()

			rep, err := store.GetRun(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")

			return enc.Encode(rep)
		},
	}

	cmd.AddCommand(list, show)

	return cmd
}

// openHistory resolves the database location from the --db flag or the
// configuration and opens the store.
func openHistory(cfgPath, dbPath string) (*history.Store, error) {
	if dbPath == "" {
		cfg, err := config.Load(cfgPath)
		if err != nil {
			return nil, err
		}
		cfg.ApplyEnv()
		dbPath = cfg.HistoryPath()
	}

	store, err := history.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open history: %w", err)
	}

	return store, nil
}
