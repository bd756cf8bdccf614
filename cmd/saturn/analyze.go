package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"mercator-hq/saturn/pkg/config"
	"mercator-hq/saturn/pkg/learning"
	"mercator-hq/saturn/pkg/learning/storage"
	"mercator-hq/saturn/pkg/telemetry/store"
)

var analyzeFlags struct {
	start string
	end   string
	save  bool
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Analyze provider performance from the telemetry store",
	Long: `Analyze replays the ledger entries persisted in the telemetry store
over a time range and prints a per provider and model performance table.

Examples:
  # Analyze the last 24 hours
  saturn analyze

  # Analyze a specific window
  saturn analyze --start 2026-08-01T00:00:00Z --end 2026-08-02T00:00:00Z

  # Persist the analysis as a snapshot
  saturn analyze --save`,
	RunE: runAnalyze,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)

	analyzeCmd.Flags().StringVar(&analyzeFlags.start, "start", "", "window start (RFC3339, default 24h ago)")
	analyzeCmd.Flags().StringVar(&analyzeFlags.end, "end", "", "window end (RFC3339, default now)")
	analyzeCmd.Flags().BoolVar(&analyzeFlags.save, "save", false, "persist the analysis as a snapshot")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadWithEnvOverrides(cfgFile)
	if err != nil {
		return err
	}

	end := time.Now().UTC()
	if analyzeFlags.end != "" {
		if end, err = time.Parse(time.RFC3339, analyzeFlags.end); err != nil {
			return fmt.Errorf("invalid --end: %w", err)
		}
	}
	start := end.Add(-24 * time.Hour)
	if analyzeFlags.start != "" {
		if start, err = time.Parse(time.RFC3339, analyzeFlags.start); err != nil {
			return fmt.Errorf("invalid --start: %w", err)
		}
	}
	if !start.Before(end) {
		return fmt.Errorf("--start must be before --end")
	}

	ts, err := store.New(store.Config{
		Path:          cfg.Telemetry.Store.Path,
		QueueSize:     cfg.Telemetry.Store.QueueSize,
		BatchSize:     cfg.Telemetry.Store.BatchSize,
		FlushInterval: cfg.Telemetry.Store.FlushInterval,
		MaxRetries:    cfg.Telemetry.Store.MaxRetries,
		RetryBackoff:  cfg.Telemetry.Store.RetryBackoff,
	})
	if err != nil {
		return fmt.Errorf("opening telemetry store: %w", err)
	}
	defer ts.Stop()

	eng, err := learning.NewEngine(learning.Config{
		Store:    ts,
		PageSize: cfg.Learning.PageSize,
	})
	if err != nil {
		return err
	}

	analyses, err := eng.AnalyzeProviderPerformance(cmd.Context(), start, end)
	if err != nil {
		return err
	}
	printAnalyses(analyses, start, end)

	if analyzeFlags.save {
		snaps, err := storage.NewSnapshotStore(cfg.Learning.SnapshotPath)
		if err != nil {
			return fmt.Errorf("opening snapshot store: %w", err)
		}
		defer snaps.Close()
		if err := snaps.Save(cmd.Context(), start, end, analyses); err != nil {
			return err
		}
		fmt.Printf("\nSnapshot saved to %s\n", cfg.Learning.SnapshotPath)
	}
	return nil
}

func printAnalyses(analyses []learning.PerformanceAnalysis, start, end time.Time) {
	fmt.Printf("Provider performance %s to %s\n\n",
		start.Format(time.RFC3339), end.Format(time.RFC3339))
	if len(analyses) == 0 {
		fmt.Println("No ledger entries in this window.")
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "PROVIDER\tMODEL\tREQUESTS\tSUCCESS\tMITIGATED\tFAILED\tRATE\tAVG LATENCY\tAVG SCORE\tCOST USD")
	for _, a := range analyses {
		provider := a.Provider
		if provider == "" {
			provider = "(unattributed)"
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%d\t%d\t%.1f%%\t%.0fms\t%.2f\t%.4f\n",
			provider, a.Model,
			a.TotalRequests, a.Successes, a.MitigatedSuccesses, a.Failures,
			a.SuccessRate*100, a.AvgLatencyMS, a.AvgResilienceScore,
			a.TotalEstimatedCostUSD)
	}
	w.Flush()
}
