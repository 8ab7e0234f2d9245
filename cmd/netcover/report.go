package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/vanderheijden86/netcover/internal/store"
	"github.com/vanderheijden86/netcover/pkg/config"
)

var runsLimit int

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recent runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return err
		}
		st, err := store.Open(cfg.Database.Path)
		if err != nil {
			return err
		}
		defer st.Close()

		runs, err := st.FetchRecentRuns(context.Background(), runsLimit)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if len(runs) == 0 {
			fmt.Fprintln(out, "no runs recorded")
			return nil
		}
		for _, r := range runs {
			ended := "-"
			if r.EndedAt != nil {
				ended = r.EndedAt.Format(time.RFC3339)
			}
			fmt.Fprintf(out, "%s  %-10s  target=%.2f  coverage=%.2f%%  %s .. %s  (%s)\n",
				r.ID, r.Status, r.CoverageTarget, r.TotalCoverage*100,
				r.RunAt.Format(time.RFC3339), ended, r.Tag)
		}
		return nil
	},
}

var reportCmd = &cobra.Command{
	Use:   "report <run-id>",
	Short: "Show the summary and validation histogram of a run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return err
		}
		st, err := store.Open(cfg.Database.Path)
		if err != nil {
			return err
		}
		defer st.Close()

		ctx := context.Background()
		runID := args[0]

		sum, err := st.FetchSummary(ctx, runID)
		if err != nil {
			return fmt.Errorf("no summary for run %s: %w", runID, err)
		}
		vsum, err := st.FetchValidationSummary(ctx, runID)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "run %s\n", sum.RunID)
		fmt.Fprintf(out, "  status:       %s (%s)\n", sum.Status, sum.Reason)
		fmt.Fprintf(out, "  coverage:     %.2f%% of target %.2f%%\n",
			sum.AchievedCoverage*100, sum.TargetCoverage*100)
		fmt.Fprintf(out, "  attempts:     %d (%d failed, success rate %.1f%%)\n",
			sum.TotalAttempts, sum.FailedAttempts, sum.SuccessRate*100)
		fmt.Fprintf(out, "  paths:        %d found, %d unique\n", sum.PathsFound, sum.UniquePaths)
		fmt.Fprintf(out, "  path shape:   avg %.1f nodes, avg length %.1fmm\n",
			sum.AvgPathNodes, sum.AvgPathLength)
		fmt.Fprintf(out, "  sampling:     %d toolsets, %d equipments (%d draws, max %d), %d pocs (%d draws, max %d)\n",
			sum.ToolsetsSampled,
			sum.UniqueEquipments, sum.EquipmentAttempts, sum.MaxPerEquipment,
			sum.UniquePocs, sum.PocAttempts, sum.MaxPerPoc)
		fmt.Fprintf(out, "  validation:   %d findings (critical %d, high %d, medium %d, low %d)\n",
			vsum.Total, vsum.Critical, vsum.High, vsum.Medium, vsum.Low)
		return nil
	},
}

func init() {
	runsCmd.Flags().IntVar(&runsLimit, "limit", 10, "maximum runs to list")
}
