package audit

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"staycal/internal/app/commands"
	"staycal/internal/app/dto"
	"staycal/internal/app/handlers/support"
	"staycal/internal/app/outbox"
	"staycal/internal/app/uow"
	"staycal/internal/domain/property"
	"staycal/internal/domain/reconciliation"
	"staycal/internal/domain/shared/events"
)

const runAuditKey = "calendar.audit"

type RunAuditCommand struct {
	PropertyID string
	RunID      string
	Window     reconciliation.Window
}

func (c RunAuditCommand) Key() string { return runAuditKey }

func (c RunAuditCommand) ReadOnly() bool { return true }

func (c RunAuditCommand) Validate() error {
	if strings.TrimSpace(c.PropertyID) == "" {
		return property.ErrIDRequired
	}
	if err := reconciliation.ValidateRunID(c.RunID); err != nil {
		return err
	}
	if c.Window.Months != 0 {
		return c.Window.Validate()
	}
	return nil
}

// RunAuditHandler audits one property and hands the report to the sink. It
// never corrects anything.
type RunAuditHandler struct {
	UoWFactory    uow.UoWFactory
	Outbox        outbox.Outbox
	Encoder       outbox.EventEncoder
	Sink          reconciliation.Sink
	Policy        reconciliation.Policy
	FetchTimeout  time.Duration
	WindowBack    int
	WindowForward int
	Now           func() time.Time
	Logger        *slog.Logger
}

func (h *RunAuditHandler) Handle(ctx context.Context, cmd RunAuditCommand) (*dto.AuditResult, error) {
	unit, ctx, cleanup, err := support.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	if _, err := unit.Properties().ByID(ctx, property.ID(cmd.PropertyID)); err != nil {
		return nil, err
	}
	auditor := reconciliation.Auditor{Calendar: unit.Calendar(), Policy: h.Policy, FetchTimeout: h.FetchTimeout, Now: h.Now, Logger: h.Logger}
	w := cmd.Window
	if w.Months == 0 {
		w = reconciliation.RollingWindow(auditor.Clock(), h.WindowBack, h.WindowForward)
	}
	report, err := auditor.Audit(ctx, cmd.PropertyID, w)
	if err != nil {
		return nil, err
	}
	report.RunID = cmd.RunID
	if h.Sink != nil {
		if err := h.Sink.Publish(ctx, report); err != nil {
			return nil, err
		}
	}
	if err := outbox.RecordDomainEvents(ctx, h.Outbox, h.Encoder, []events.DomainEvent{report.Completed()}); err != nil {
		return nil, err
	}
	return &dto.AuditResult{Report: report, Summary: report.Summary()}, nil
}

var _ commands.Handler[RunAuditCommand, *dto.AuditResult] = (*RunAuditHandler)(nil)
