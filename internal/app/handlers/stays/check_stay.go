package stays

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"staycal/internal/app/dto"
	"staycal/internal/app/handlers/support"
	"staycal/internal/app/queries"
	"staycal/internal/app/uow"
	"staycal/internal/domain/availability"
	"staycal/internal/domain/pricing"
	"staycal/internal/domain/property"
	"staycal/internal/domain/shared/daterange"
)

const checkStayKey = "stay.check"

type CheckStayQuery struct {
	PropertyID string
	CheckIn    time.Time
	CheckOut   time.Time
	Guests     int
}

func (q CheckStayQuery) Key() string { return checkStayKey }

func (q CheckStayQuery) Validate() error {
	if strings.TrimSpace(q.PropertyID) == "" {
		return property.ErrIDRequired
	}
	return nil
}

// CheckStayHandler gates the price quote on the availability verdict.
type CheckStayHandler struct {
	UoWFactory   uow.UoWFactory
	FetchTimeout time.Duration
	MaxNights    int
	Logger       *slog.Logger
}

func (h *CheckStayHandler) Handle(ctx context.Context, q CheckStayQuery) (dto.StayCheck, error) {
	if dr, err := daterange.New(q.CheckIn, q.CheckOut); err == nil {
		if err := dr.WithinNights(h.MaxNights); err != nil {
			return dto.StayCheck{}, err
		}
	}
	unit, ctx, cleanup, err := support.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.StayCheck{}, err
	}
	defer cleanup()

	prop, err := unit.Properties().ByID(ctx, property.ID(q.PropertyID))
	if err != nil {
		if errors.Is(err, property.ErrNotFound) {
			return dto.StayCheck{}, fmt.Errorf("%w: %s", availability.ErrPropertyNotFound, q.PropertyID)
		}
		return dto.StayCheck{}, err
	}

	resolver := availability.Resolver{
		Calendar:     unit.Calendar(),
		FetchTimeout: h.FetchTimeout,
		Logger:       h.Logger,
	}
	verdict, err := resolver.Resolve(ctx, q.PropertyID, q.CheckIn, q.CheckOut)
	if err != nil {
		var incomplete *availability.IncompleteDataError
		if errors.As(err, &incomplete) {
			return dto.MapStayCheck(verdict, nil), nil
		}
		return dto.StayCheck{}, err
	}
	if verdict.Status != availability.StatusAvailable {
		return dto.MapStayCheck(verdict, nil), nil
	}

	quote, err := pricing.Calculate(prop.Pricing, q.CheckIn, q.CheckOut, q.Guests)
	if err != nil {
		return dto.StayCheck{}, err
	}
	return dto.MapStayCheck(verdict, &quote), nil
}

var _ queries.Handler[CheckStayQuery, dto.StayCheck] = (*CheckStayHandler)(nil)
