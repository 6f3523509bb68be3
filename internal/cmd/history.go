package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/pharmatext/csrgen/internal/history"
)

// NewHistoryCommand creates the history command
func NewHistoryCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List past runs and their outcomes",
		Long: `Show recorded runs from the history database, newest first. With --run,
show the per-iteration score trajectory of a single run.

Examples:
  csrgen history
  csrgen history --limit 50
  csrgen history --run 8f14e45f-ceea-467f-a0e6-8a8361a36b0a`,
		Args: cobra.NoArgs,
		RunE: historyCommand,
	}

	cmd.Flags().String("config", "", "Path to config file (default: .csrgen/config.yaml)")
	cmd.Flags().String("run", "", "Show iteration detail for a single run ID")
	cmd.Flags().Int("limit", 20, "Maximum number of runs to list")

	return cmd
}

// historyCommand implements the history command logic
func historyCommand(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfigFromFlags(cmd)
	if err != nil {
		return err
	}

	store, err := history.NewStore(cfg.History.DBPath)
	if err != nil {
		return fmt.Errorf("failed to open history database: %w", err)
	}
	defer store.Close()

	out := cmd.OutOrStdout()

	if runID, _ := cmd.Flags().GetString("run"); runID != "" {
		records, err := store.GetIterations(runID)
		if err != nil {
			return err
		}
		if len(records) == 0 {
			fmt.Fprintf(out, "No iterations recorded for run %s\n", runID)
			return nil
		}
		w := tabwriter.NewWriter(out, 2, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ITER\tCOMPLETENESS\tCOMPLIANCE\tCOMBINED\tPRODUCED")
		for _, rec := range records {
			produced := rec.ProducedPath
			if produced == "" {
				produced = "(converged)"
			}
			fmt.Fprintf(w, "%d\t%.1f\t%.1f\t%.1f\t%s\n",
				rec.Iteration, rec.CompletenessScore, rec.ComplianceScore, rec.CombinedScore, produced)
		}
		return w.Flush()
	}

	limit, _ := cmd.Flags().GetInt("limit")
	runs, err := store.ListRuns(limit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(out, "No runs recorded")
		return nil
	}

	w := tabwriter.NewWriter(out, 2, 4, 2, ' ', 0)
	fmt.Fprintln(w, "RUN\tSTARTED\tSTATUS\tSCORE\tITERS\tFINAL")
	for _, run := range runs {
		score := "-"
		if run.Status == history.StatusConverged || run.Status == history.StatusExhausted {
			score = fmt.Sprintf("%.1f", run.FinalScore)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\n",
			run.ID, run.StartedAt.Format("2006-01-02 15:04"), run.Status, score, run.Iterations, run.FinalPath)
	}
	return w.Flush()
}
