package holds

import (
	"context"
	"strings"
	"time"

	"staycal/internal/app/dto"
	domainholds "staycal/internal/domain/holds"
	"staycal/internal/domain/property"
	"staycal/internal/domain/shared/daterange"
)

const (
	releaseHoldKey = "holds.release"
	confirmHoldKey = "holds.confirm"
)

type ReleaseHoldCommand struct {
	PropertyID string
	HoldID     string
	CheckIn    time.Time
	CheckOut   time.Time
}

func (c ReleaseHoldCommand) Key() string { return releaseHoldKey }

func (c ReleaseHoldCommand) Validate() error { return validateSettle(c.PropertyID, c.HoldID) }

type ConfirmHoldCommand struct {
	PropertyID string
	HoldID     string
	CheckIn    time.Time
	CheckOut   time.Time
}

func (c ConfirmHoldCommand) Key() string { return confirmHoldKey }

func (c ConfirmHoldCommand) Validate() error { return validateSettle(c.PropertyID, c.HoldID) }

func validateSettle(propertyID, holdID string) error {
	if strings.TrimSpace(propertyID) == "" {
		return property.ErrIDRequired
	}
	if strings.TrimSpace(holdID) == "" {
		return domainholds.ErrHoldIDRequired
	}
	return nil
}

func (h *HoldsHandler) Release(ctx context.Context, cmd ReleaseHoldCommand) (*dto.Hold, error) {
	dr, err := daterange.New(cmd.CheckIn, cmd.CheckOut)
	if err != nil {
		return nil, err
	}
	return h.run(ctx, cmd.PropertyID, func(ctx context.Context, svc *domainholds.Service) (*domainholds.Hold, string, error) {
		hold, err := svc.Release(ctx, cmd.PropertyID, cmd.HoldID, dr)
		return hold, "released", err
	})
}

func (h *HoldsHandler) Confirm(ctx context.Context, cmd ConfirmHoldCommand) (*dto.Hold, error) {
	dr, err := daterange.New(cmd.CheckIn, cmd.CheckOut)
	if err != nil {
		return nil, err
	}
	return h.run(ctx, cmd.PropertyID, func(ctx context.Context, svc *domainholds.Service) (*domainholds.Hold, string, error) {
		hold, err := svc.Confirm(ctx, cmd.PropertyID, cmd.HoldID, dr)
		return hold, "confirmed", err
	})
}
