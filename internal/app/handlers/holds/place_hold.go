package holds

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"staycal/internal/app/commands"
	"staycal/internal/app/dto"
	"staycal/internal/app/handlers/support"
	"staycal/internal/app/middleware"
	"staycal/internal/app/outbox"
	"staycal/internal/app/uow"
	domainholds "staycal/internal/domain/holds"
	"staycal/internal/domain/property"
	"staycal/internal/domain/shared/daterange"
)

const placeHoldKey = "holds.place"

type PlaceHoldCommand struct {
	PropertyID      string
	HoldID          string
	CheckIn         time.Time
	CheckOut        time.Time
	IdempotencyKeyV string
}

func (c PlaceHoldCommand) Key() string { return placeHoldKey }

func (c PlaceHoldCommand) IdempotencyKey() string {
	if c.IdempotencyKeyV == "" {
		return ""
	}
	return placeHoldKey + ":" + c.PropertyID + ":" + c.IdempotencyKeyV
}

func (c PlaceHoldCommand) ResultPrototype() any { return &dto.Hold{} }

func (c PlaceHoldCommand) Validate() error {
	if strings.TrimSpace(c.PropertyID) == "" {
		return property.ErrIDRequired
	}
	return nil
}

// HoldsHandler serves the three hold commands; each builds the domain service
// on the calendar store of the current unit of work.
type HoldsHandler struct {
	UoWFactory uow.UoWFactory
	Locker     domainholds.Locker
	LockTTL    time.Duration
	MaxNights  int
	Outbox     outbox.Outbox
	Encoder    outbox.EventEncoder
	Now        func() time.Time
	Logger     *slog.Logger
}

func (h *HoldsHandler) Place(ctx context.Context, cmd PlaceHoldCommand) (*dto.Hold, error) {
	dr, err := daterange.New(cmd.CheckIn, cmd.CheckOut)
	if err != nil {
		return nil, err
	}
	if err := dr.WithinNights(h.MaxNights); err != nil {
		return nil, err
	}
	holdID := cmd.HoldID
	if holdID == "" {
		holdID = uuid.NewString()
	}
	return h.run(ctx, cmd.PropertyID, func(ctx context.Context, svc *domainholds.Service) (*domainholds.Hold, string, error) {
		hold, err := svc.Place(ctx, cmd.PropertyID, holdID, dr)
		return hold, "held", err
	})
}

func (h *HoldsHandler) run(ctx context.Context, propertyID string, op func(context.Context, *domainholds.Service) (*domainholds.Hold, string, error)) (*dto.Hold, error) {
	unit, ctx, err := support.BeginUnit(ctx, h.UoWFactory)
	if err != nil {
		return nil, err
	}
	defer unit.Close(ctx)

	if _, err := unit.Properties().ByID(ctx, property.ID(propertyID)); err != nil {
		return nil, err
	}
	svc := &domainholds.Service{
		Calendar: unit.Calendar(),
		Locker:   h.Locker,
		LockTTL:  h.LockTTL,
		Now:      h.Now,
		Logger:   h.Logger,
	}
	hold, status, err := op(ctx, svc)
	if err != nil {
		return nil, err
	}
	if err := outbox.RecordDomainEvents(ctx, h.Outbox, h.Encoder, hold.Drain()); err != nil {
		return nil, err
	}
	if err := unit.Commit(ctx); err != nil {
		return nil, err
	}
	res := dto.MapHold(hold, status)
	return &res, nil
}

// Register attaches the hold commands to bus.
func (h *HoldsHandler) Register(bus *commands.InMemoryBus) {
	commands.RegisterHandler(bus, placeHoldKey, commands.HandlerFunc[PlaceHoldCommand, *dto.Hold](h.Place))
	commands.RegisterHandler(bus, releaseHoldKey, commands.HandlerFunc[ReleaseHoldCommand, *dto.Hold](h.Release))
	commands.RegisterHandler(bus, confirmHoldKey, commands.HandlerFunc[ConfirmHoldCommand, *dto.Hold](h.Confirm))
}

var _ middleware.IdempotentCommand = (*PlaceHoldCommand)(nil)
