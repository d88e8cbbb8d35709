package audit

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"strings"
	"time"

	"staycal/internal/app/commands"
	"staycal/internal/app/dto"
	"staycal/internal/app/handlers/support"
	"staycal/internal/app/outbox"
	"staycal/internal/app/uow"
	"staycal/internal/domain/reconciliation"
	"staycal/internal/domain/shared/events"
)

const sweepAuditsKey = "calendar.audit.sweep"

var ErrRunIDRequired = errors.New("audit: run id is required")

// SweepAuditsCommand audits many properties under one run id. Re-sending the
// same run id resumes: properties already published are skipped.
type SweepAuditsCommand struct {
	RunID       string
	PropertyIDs []string
	Window      reconciliation.Window
}

func (c SweepAuditsCommand) Key() string { return sweepAuditsKey }

// ReadOnly keeps long sweeps out of a write transaction.
func (c SweepAuditsCommand) ReadOnly() bool { return true }

func (c SweepAuditsCommand) Validate() error {
	if strings.TrimSpace(c.RunID) == "" {
		return ErrRunIDRequired
	}
	if err := reconciliation.ValidateRunID(c.RunID); err != nil {
		return err
	}
	if c.Window.Months != 0 {
		return c.Window.Validate()
	}
	return nil
}

type SweepAuditsHandler struct {
	UoWFactory    uow.UoWFactory
	Outbox        outbox.Outbox
	Encoder       outbox.EventEncoder
	Sink          reconciliation.Sink
	Checkpoint    reconciliation.Checkpoint
	Policy        reconciliation.Policy
	FetchTimeout  time.Duration
	Concurrency   int
	WindowBack    int
	WindowForward int
	Now           func() time.Time
	Logger        *slog.Logger
}

func (h *SweepAuditsHandler) Handle(ctx context.Context, cmd SweepAuditsCommand) (*dto.SweepResult, error) {
	unit, ctx, cleanup, err := support.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	ids := cmd.PropertyIDs
	if len(ids) == 0 {
		props, err := unit.Properties().List(ctx)
		if err != nil {
			return nil, err
		}
		for _, p := range props {
			ids = append(ids, string(p.ID))
		}
	}
	auditor := reconciliation.Auditor{
		Calendar:     unit.Calendar(),
		Policy:       h.Policy,
		FetchTimeout: h.FetchTimeout,
		Concurrency:  h.Concurrency,
		Now:          h.Now,
		Logger:       h.Logger,
	}
	w := cmd.Window
	if w.Months == 0 {
		w = reconciliation.RollingWindow(auditor.Clock(), h.WindowBack, h.WindowForward)
	}
	if h.Logger != nil {
		h.Logger.Info("audit sweep started", "run_id", cmd.RunID, "properties", len(ids), "window_start", w.Start.Format("2006-01"), "months", w.Months)
	}
	sweep, err := auditor.AuditAll(ctx, cmd.RunID, ids, w, h.Checkpoint, h.Sink)
	if sweep == nil {
		return nil, err
	}
	evs := make([]events.DomainEvent, 0, len(sweep.Reports))
	for _, r := range sweep.Reports {
		evs = append(evs, r.Completed())
	}
	if recErr := outbox.RecordDomainEvents(ctx, h.Outbox, h.Encoder, evs); recErr != nil && err == nil {
		err = recErr
	}
	res := mapSweep(sweep)
	if h.Logger != nil {
		h.Logger.Info("audit sweep finished",
			"run_id", cmd.RunID,
			"audited", len(res.Audited),
			"resumed", len(res.Resumed),
			"failed", len(res.Failed),
			"canceled", res.Canceled,
		)
	}
	if err != nil {
		return nil, err
	}
	return res, nil
}

func mapSweep(s *reconciliation.Sweep) *dto.SweepResult {
	res := &dto.SweepResult{RunID: s.RunID, Resumed: s.Resumed, Canceled: s.Canceled}
	for _, r := range s.Reports {
		res.Audited = append(res.Audited, dto.SweepEntry{
			PropertyID:    r.PropertyID,
			HealthScore:   r.HealthScore,
			Discrepancies: len(r.Discrepancies),
			High:          r.BySeverity[reconciliation.SeverityHigh],
		})
	}
	if len(s.Failed) > 0 {
		res.Failed = make(map[string]string, len(s.Failed))
		for id, err := range s.Failed {
			res.Failed[id] = err.Error()
		}
	}
	sort.Slice(res.Audited, func(i, j int) bool { return res.Audited[i].PropertyID < res.Audited[j].PropertyID })
	return res
}

var _ commands.Handler[SweepAuditsCommand, *dto.SweepResult] = (*SweepAuditsHandler)(nil)
