package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	appoutbox "staycal/internal/app/outbox"
	"staycal/internal/domain/reconciliation"
	"staycal/internal/domain/shared/daterange"
	"staycal/internal/domain/shared/events"
)

func fixCmd(opts *globalOptions) *cobra.Command {
	var (
		reportPath  string
		minSeverity string
		kinds       []string
		dates       []string
		confirm     bool
	)
	cmd := &cobra.Command{
		Use:   "fix",
		Short: "Realign priceCalendar days from a saved audit report",
		Long: "fix reads a JSON report written by run or sweep, selects discrepancies and prints the plan.\n" +
			"With --confirm the plan is applied; days that changed since the audit are reported as stale and left alone.",
		RunE: func(cmd *cobra.Command, args []string) error {
			filter, err := buildFilter(minSeverity, kinds, dates)
			if err != nil {
				return err
			}
			f, err := os.Open(reportPath)
			if err != nil {
				return err
			}
			report, err := reconciliation.ReadJSON(f)
			f.Close()
			if err != nil {
				return err
			}
			plan := reconciliation.PlanCorrections(report, filter)
			out := cmd.OutOrStdout()
			if !confirm {
				return opts.print(out, plan, planText(report.PropertyID, plan))
			}

			ctx := cmd.Context()
			rt, err := opts.open(ctx)
			if err != nil {
				return err
			}
			defer rt.Close(ctx)

			corrector := reconciliation.Corrector{Calendar: rt.Calendar, Properties: rt.Properties, Logger: rt.Logger}
			outcome, err := corrector.Apply(ctx, plan)
			if err != nil {
				return err
			}
			ev := reconciliation.PriceCalendarCorrected{
				PropertyID: report.PropertyID,
				Applied:    outcome.Applied,
				Stale:      outcome.Stale,
				Conflicted: outcome.Conflicted,
				Failed:     outcome.Failed,
				At:         time.Now().UTC(),
			}
			if err := appoutbox.RecordDomainEvents(ctx, rt.Outbox, appoutbox.JSONEventEncoder{}, []events.DomainEvent{ev}); err != nil {
				return err
			}
			if err := rt.Outbox.Flush(ctx); err != nil {
				return err
			}
			text := fmt.Sprintf("%s: applied %d, stale %d, conflicted %d, failed %d\n",
				report.PropertyID, outcome.Applied, outcome.Stale, outcome.Conflicted, outcome.Failed)
			return opts.print(out, outcome, text)
		},
	}
	cmd.Flags().StringVar(&reportPath, "report", "", "path to a JSON audit report")
	cmd.Flags().StringVar(&minSeverity, "min-severity", "", "only low, medium or high and above")
	cmd.Flags().StringSliceVar(&kinds, "kind", nil, "only these kinds (mismatch, only_in_availability, only_in_price_calendar)")
	cmd.Flags().StringSliceVar(&dates, "date", nil, "only these dates, YYYY-MM-DD")
	cmd.Flags().BoolVar(&confirm, "confirm", false, "apply the plan instead of printing it")
	_ = cmd.MarkFlagRequired("report")
	return cmd
}

func buildFilter(minSeverity string, kinds, dates []string) (reconciliation.Filter, error) {
	var f reconciliation.Filter
	if minSeverity != "" {
		sev, ok := reconciliation.ParseSeverity(minSeverity)
		if !ok {
			return f, fmt.Errorf("unknown severity %q", minSeverity)
		}
		f.MinSeverity = sev
	}
	for _, k := range kinds {
		f.Kinds = append(f.Kinds, reconciliation.Kind(strings.TrimSpace(k)))
	}
	for _, raw := range dates {
		d, err := daterange.ParseDate(raw)
		if err != nil {
			return f, err
		}
		f.Dates = append(f.Dates, d)
	}
	return f, nil
}

func planText(propertyID string, plan []reconciliation.Correction) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d corrections planned for %s (dry run, pass --confirm to apply)\n", len(plan), propertyID)
	for _, c := range plan {
		fmt.Fprintf(&b, "  %s  %-6s  %-24s priceCalendar -> %t\n", daterange.FormatDate(c.Date), c.Severity, c.Kind, c.Target())
	}
	return b.String()
}
