package calendar

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"staycal/internal/app/dto"
	"staycal/internal/app/handlers/support"
	"staycal/internal/app/queries"
	"staycal/internal/app/uow"
	domaincalendar "staycal/internal/domain/calendar"
	"staycal/internal/domain/property"
)

const getMonthKey = "calendar.month"

type GetMonthQuery struct {
	PropertyID string
	Month      string
}

func (q GetMonthQuery) Key() string { return getMonthKey }

func (q GetMonthQuery) Validate() error {
	if strings.TrimSpace(q.PropertyID) == "" {
		return property.ErrIDRequired
	}
	return nil
}

type GetMonthHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *GetMonthHandler) Handle(ctx context.Context, q GetMonthQuery) (dto.CalendarMonth, error) {
	key, err := domaincalendar.MonthOf(q.PropertyID, q.Month)
	if err != nil {
		return dto.CalendarMonth{}, err
	}
	unit, ctx, cleanup, err := support.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.CalendarMonth{}, err
	}
	defer cleanup()

	if _, err := unit.Properties().ByID(ctx, property.ID(q.PropertyID)); err != nil {
		return dto.CalendarMonth{}, err
	}

	var (
		avail *domaincalendar.AvailabilityMonth
		price *domaincalendar.PriceMonth
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		m, err := unit.Calendar().AvailabilityMonth(gctx, key)
		if err != nil && !errors.Is(err, domaincalendar.ErrMonthNotFound) {
			return fmt.Errorf("%s: %w", domaincalendar.FamilyAvailability, err)
		}
		avail = m
		return nil
	})
	g.Go(func() error {
		m, err := unit.Calendar().PriceMonth(gctx, key)
		if err != nil && !errors.Is(err, domaincalendar.ErrMonthNotFound) {
			return fmt.Errorf("%s: %w", domaincalendar.FamilyPriceCalendar, err)
		}
		price = m
		return nil
	})
	if err := g.Wait(); err != nil {
		return dto.CalendarMonth{}, err
	}
	return dto.MapCalendarMonth(key, avail, price), nil
}

var _ queries.Handler[GetMonthQuery, dto.CalendarMonth] = (*GetMonthHandler)(nil)
