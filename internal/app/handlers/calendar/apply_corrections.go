package calendar

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

const applyCorrectionsKey = "calendar.corrections.apply"

// ApplyCorrectionsCommand audits the property afresh and realigns the
// selected priceCalendar days with availability.
type ApplyCorrectionsCommand struct {
	PropertyID  string
	Window      reconciliation.Window
	MinSeverity reconciliation.Severity
	Dates       []time.Time
	Kinds       []reconciliation.Kind
}

func (c ApplyCorrectionsCommand) Key() string { return applyCorrectionsKey }

func (c ApplyCorrectionsCommand) Validate() error {
	if strings.TrimSpace(c.PropertyID) == "" {
		return property.ErrIDRequired
	}
	if c.Window.Months != 0 {
		return c.Window.Validate()
	}
	return nil
}

type ApplyCorrectionsHandler struct {
	UoWFactory    uow.UoWFactory
	Outbox        outbox.Outbox
	Encoder       outbox.EventEncoder
	Policy        reconciliation.Policy
	FetchTimeout  time.Duration
	WindowBack    int
	WindowForward int
	Now           func() time.Time
	Logger        *slog.Logger
}

func (h *ApplyCorrectionsHandler) Handle(ctx context.Context, cmd ApplyCorrectionsCommand) (*dto.CorrectionsResult, error) {
	unit, ctx, err := support.BeginUnit(ctx, h.UoWFactory)
	if err != nil {
		return nil, err
	}
	defer unit.Close(ctx)

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
	plan := reconciliation.PlanCorrections(report, reconciliation.Filter{
		MinSeverity: cmd.MinSeverity,
		Dates:       cmd.Dates,
		Kinds:       cmd.Kinds,
	})
	corrector := reconciliation.Corrector{Calendar: unit.Calendar(), Properties: unit.Properties(), Logger: h.Logger}
	outcome, err := corrector.Apply(ctx, plan)
	if err != nil {
		return nil, err
	}

	ev := reconciliation.PriceCalendarCorrected{
		PropertyID: cmd.PropertyID,
		Applied:    outcome.Applied,
		Stale:      outcome.Stale,
		Conflicted: outcome.Conflicted,
		Failed:     outcome.Failed,
		At:         auditor.Clock(),
	}
	if err := outbox.RecordDomainEvents(ctx, h.Outbox, h.Encoder, []events.DomainEvent{ev}); err != nil {
		return nil, err
	}
	if err := unit.Commit(ctx); err != nil {
		return nil, err
	}
	return &dto.CorrectionsResult{PropertyID: cmd.PropertyID, Planned: len(plan), Outcome: outcome}, nil
}

var _ commands.Handler[ApplyCorrectionsCommand, *dto.CorrectionsResult] = (*ApplyCorrectionsHandler)(nil)
