package main

import (
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"staycal/internal/app/commands"
	"staycal/internal/app/dto"
	auditapp "staycal/internal/app/handlers/audit"
	"staycal/internal/domain/reconciliation"
)

func runCmd(opts *globalOptions) *cobra.Command {
	var (
		start  string
		months int
		runID  string
	)
	cmd := &cobra.Command{
		Use:   "run <property-id>",
		Short: "Audit one property and print its report",
		Args:  cobra.ExactArgs(1),
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
				runID = uuid.NewString()
			}
			res, err := commands.Dispatch[auditapp.RunAuditCommand, *dto.AuditResult](ctx, rt.Buses().Commands, auditapp.RunAuditCommand{
				PropertyID: args[0],
				RunID:      runID,
				Window:     w,
			})
			if err != nil {
				return err
			}
			return opts.print(cmd.OutOrStdout(), res.Report, res.Summary)
		},
	}
	cmd.Flags().StringVar(&start, "start", "", "first month, YYYY-MM (default: rolling window)")
	cmd.Flags().IntVar(&months, "months", 0, "number of months from --start")
	cmd.Flags().StringVar(&runID, "run-id", "", "run id stamped on the report")
	return cmd
}
