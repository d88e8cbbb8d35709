package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"staycal/internal/app/commands"
	"staycal/internal/app/dto"
	auditapp "staycal/internal/app/handlers/audit"
	"staycal/internal/app/schedule"
	"staycal/internal/domain/reconciliation"
)

func sweepCmd(opts *globalOptions) *cobra.Command {
	var (
		runID      string
		start      string
		months     int
		properties []string
	)
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Audit every property; rerun with the same --run-id to resume",
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := reconciliation.ParseWindow(start, months)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			rt, err := opts.open(ctx)
			if err != nil {
				return err
			}
			defer rt.Close(ctx)

			if runID == "" {
				runID = schedule.NightlyRunID(rt.Settings().Now())
			}
			res, err := commands.Dispatch[auditapp.SweepAuditsCommand, *dto.SweepResult](ctx, rt.Buses().Commands, auditapp.SweepAuditsCommand{
				RunID:       runID,
				PropertyIDs: properties,
				Window:      w,
			})
			if err != nil {
				return err
			}
			if err := opts.print(cmd.OutOrStdout(), res, sweepText(res)); err != nil {
				return err
			}
			if len(res.Failed) > 0 {
				return fmt.Errorf("%d properties failed", len(res.Failed))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&runID, "run-id", "", "sweep id used for checkpoints (default: nightly-<date>)")
	cmd.Flags().StringVar(&start, "start", "", "first month, YYYY-MM (default: rolling window)")
	cmd.Flags().IntVar(&months, "months", 0, "number of months from --start")
	cmd.Flags().StringSliceVar(&properties, "property", nil, "limit the sweep to these property ids")
	return cmd
}

func sweepText(res *dto.SweepResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Sweep %s: %d audited, %d resumed, %d failed\n", res.RunID, len(res.Audited), len(res.Resumed), len(res.Failed))
	for _, e := range res.Audited {
		fmt.Fprintf(&b, "  %-32s health %6.2f  discrepancies %d (high %d)\n", e.PropertyID, e.HealthScore, e.Discrepancies, e.High)
	}
	for _, id := range res.Resumed {
		fmt.Fprintf(&b, "  %-32s already done\n", id)
	}
	for id, msg := range res.Failed {
		fmt.Fprintf(&b, "  %-32s FAILED: %s\n", id, msg)
	}
	if res.Canceled {
		b.WriteString("  sweep canceled before completion\n")
	}
	return b.String()
}
