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
	"staycal/internal/domain/pricecalendar"
	"staycal/internal/domain/property"
	"staycal/internal/domain/shared/events"
)

const regeneratePricesKey = "calendar.prices.regenerate"

type RegeneratePricesCommand struct {
	PropertyID string
	From       time.Time
	Months     int
}

func (c RegeneratePricesCommand) Key() string { return regeneratePricesKey }

func (c RegeneratePricesCommand) Validate() error {
	if strings.TrimSpace(c.PropertyID) == "" {
		return property.ErrIDRequired
	}
	return nil
}

type RegeneratePricesHandler struct {
	UoWFactory    uow.UoWFactory
	Outbox        outbox.Outbox
	Encoder       outbox.EventEncoder
	FetchTimeout  time.Duration
	DefaultMonths int
	Now           func() time.Time
	Logger        *slog.Logger
}

func (h *RegeneratePricesHandler) Handle(ctx context.Context, cmd RegeneratePricesCommand) (*dto.RegenerationResult, error) {
	unit, ctx, err := support.BeginUnit(ctx, h.UoWFactory)
	if err != nil {
		return nil, err
	}
	defer unit.Close(ctx)

	prop, err := unit.Properties().ByID(ctx, property.ID(cmd.PropertyID))
	if err != nil {
		return nil, err
	}
	from, months := cmd.From, cmd.Months
	if from.IsZero() {
		from = h.now()
	}
	if months <= 0 {
		months = h.DefaultMonths
	}
	if months <= 0 {
		months = 12
	}

	regen := pricecalendar.Regenerator{Calendar: unit.Calendar(), FetchTimeout: h.FetchTimeout, Now: h.Now, Logger: h.Logger}
	res, err := regen.Regenerate(ctx, prop, from, months)
	if err != nil {
		return nil, err
	}
	ev := regen.Event(res)
	if err := outbox.RecordDomainEvents(ctx, h.Outbox, h.Encoder, []events.DomainEvent{ev}); err != nil {
		return nil, err
	}
	if err := unit.Commit(ctx); err != nil {
		return nil, err
	}
	return &dto.RegenerationResult{
		PropertyID:    res.PropertyID,
		Months:        res.Months,
		DaysWritten:   res.DaysWritten,
		SkippedMonths: res.SkippedMonths,
		RegeneratedAt: ev.At,
	}, nil
}

func (h *RegeneratePricesHandler) now() time.Time {
	if h.Now != nil {
		return h.Now().UTC()
	}
	return time.Now().UTC()
}

var _ commands.Handler[RegeneratePricesCommand, *dto.RegenerationResult] = (*RegeneratePricesHandler)(nil)
