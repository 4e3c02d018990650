// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/danielhkuo/applicant-pipeline/models"
	"github.com/danielhkuo/applicant-pipeline/pipeline"
)

func newSweepCmd(c *cli) *cobra.Command {
	var withPurge bool
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Deactivate applicants past their inactivity timeout",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := c.svc.Sweeper.Sweep(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "scanned %d, deactivated %d, failed %d\n", res.Scanned, res.Deactivated, res.Failed)

			if !withPurge {
				return nil
			}
			purged, err := c.svc.Purger.AutoPurge(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "retention purge: purged %d, failed %d\n", purged.PurgedCount, len(purged.Failed))
			return nil
		},
	}
	cmd.Flags().BoolVar(&withPurge, "purge", false, "Also run the retention purge for auto-purge pipelines")
	return cmd
}

func newPurgeCmd(c *cli) *cobra.Command {
	var (
		pipelineID string
		ids        []string
		confirm    bool
	)
	cmd := &cobra.Command{
		Use:   "purge",
		Short: "Permanently delete inactive applicants",
		Long: `Permanently delete inactive applicants of a pipeline, with their history,
documents and election packages. With --ids only those applicants are
considered; otherwise the pipeline's retention policy picks them.
Nothing is deleted without --confirm.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := c.svc.Purger.Purge(cmd.Context(), pipelineID, models.PurgeRequest{
				ApplicantIDs: ids,
				Confirm:      confirm,
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "purged %d applicant(s)\n", res.PurgedCount)
			if len(res.SkippedIDs) > 0 {
				fmt.Fprintf(out, "skipped: %s\n", strings.Join(res.SkippedIDs, ", "))
			}
			failed := make([]string, 0, len(res.Failed))
			for id := range res.Failed {
				failed = append(failed, id)
			}
			sort.Strings(failed)
			for _, id := range failed {
				fmt.Fprintf(out, "failed %s: %s\n", id, res.Failed[id])
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&pipelineID, "pipeline", "", "Pipeline id")
	cmd.Flags().StringSliceVar(&ids, "ids", nil, "Applicant ids (comma separated)")
	cmd.Flags().BoolVar(&confirm, "confirm", false, "Confirm the permanent deletion")
	_ = cmd.MarkFlagRequired("pipeline")
	return cmd
}

func newStatsCmd(c *cli) *cobra.Command {
	var (
		pipelineID string
		asJSON     bool
	)
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show applicant counts and conversion metrics for a pipeline",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			stats, err := c.svc.Stats.Compute(ctx, pipelineID)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(stats)
			}

			p, err := c.svc.Definitions.GetPipeline(ctx, pipelineID)
			if err != nil {
				return err
			}
			printStats(out, p, stats)
			return nil
		},
	}
	cmd.Flags().StringVar(&pipelineID, "pipeline", "", "Pipeline id")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output statistics as JSON")
	_ = cmd.MarkFlagRequired("pipeline")
	return cmd
}

func printStats(out io.Writer, p *models.Pipeline, s *models.PipelineStats) {
	fmt.Fprintf(out, "%s (%s)\n\n", p.Name, p.ID)

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "Total\t%s\n", humanize.Comma(int64(s.TotalApplicants)))
	fmt.Fprintf(w, "Active\t%d\t(%d on hold)\n", s.ActiveApplicants, s.OnHoldApplicants)
	fmt.Fprintf(w, "Converted\t%d\n", s.ConvertedCount)
	fmt.Fprintf(w, "Rejected\t%d\n", s.RejectedCount)
	fmt.Fprintf(w, "Withdrawn\t%d\n", s.WithdrawnCount)
	fmt.Fprintf(w, "Inactive\t%d\n", s.InactiveCount)
	fmt.Fprintf(w, "Conversion rate\t%s%%\n", humanize.FormatFloat("#.##", s.ConversionRate))
	fmt.Fprintf(w, "Avg days to convert\t%s\n", humanize.FormatFloat("#.##", s.AvgDaysToConvert))
	w.Flush()

	fmt.Fprintln(out, "\nBy stage:")
	w = tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	for _, st := range p.Stages {
		fmt.Fprintf(w, "  %d. %s\t%s\t%d\n", st.SortOrder, st.Name, st.StageType, s.ByStage[st.ID])
	}
	w.Flush()
}

func newApplicantsCmd(c *cli) *cobra.Command {
	var (
		pipelineID string
		statuses   []string
		alert      string
	)
	cmd := &cobra.Command{
		Use:   "applicants",
		Short: "List a pipeline's applicants with their inactivity state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			p, err := c.svc.Definitions.GetPipeline(ctx, pipelineID)
			if err != nil {
				return err
			}
			views, err := c.svc.Machine.ListApplicants(ctx, pipelineID, pipeline.ApplicantQuery{
				Statuses: statuses,
				Alert:    models.AlertLevel(alert),
			})
			if err != nil {
				return err
			}
			printApplicants(cmd.OutOrStdout(), p, views, time.Now())
			return nil
		},
	}
	cmd.Flags().StringVar(&pipelineID, "pipeline", "", "Pipeline id")
	cmd.Flags().StringSliceVar(&statuses, "status", nil, "Filter by status (comma separated)")
	cmd.Flags().StringVar(&alert, "alert", "", "Filter by alert level (normal, warning, critical)")
	_ = cmd.MarkFlagRequired("pipeline")
	return cmd
}

func printApplicants(out io.Writer, p *models.Pipeline, views []models.ApplicantView, now time.Time) {
	if len(views) == 0 {
		fmt.Fprintln(out, "No applicants")
		return
	}

	stageNames := make(map[string]string, len(p.Stages))
	for _, st := range p.Stages {
		stageNames[st.ID] = st.Name
	}

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tSTATUS\tSTAGE\tLAST ACTIVITY\tALERT")
	for _, v := range views {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			v.ID,
			v.FullName(),
			v.Status,
			stageNames[v.CurrentStageID],
			humanize.RelTime(v.LastActivityAt, now, "ago", "from now"),
			v.AlertLevel,
		)
	}
	w.Flush()
	fmt.Fprintf(out, "\n%s applicant(s)\n", humanize.Comma(int64(len(views))))
}
