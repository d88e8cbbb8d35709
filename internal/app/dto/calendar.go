package dto

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"staycal/internal/domain/calendar"
	"staycal/internal/domain/shared/daterange"
)

type CalendarDay struct {
	Date         string           `json:"date"`
	Available    *bool            `json:"available"`
	HoldID       string           `json:"hold_id,omitempty"`
	Priced       *bool            `json:"price_calendar_available"`
	BaseRate     *decimal.Decimal `json:"base_rate,omitempty"`
	AdjustedRate *decimal.Decimal `json:"adjusted_rate,omitempty"`
	MinimumStay  int              `json:"minimum_stay,omitempty"`
}

// CalendarMonth is the admin view of both families side by side.
type CalendarMonth struct {
	PropertyID          string        `json:"property_id"`
	Month               string        `json:"month"`
	AvailabilityVersion int64         `json:"availability_version"`
	PriceVersion        int64         `json:"price_version"`
	AvailabilityFound   bool          `json:"availability_found"`
	PriceFound          bool          `json:"price_found"`
	Days                []CalendarDay `json:"days"`
}

func MapCalendarMonth(key calendar.MonthKey, avail *calendar.AvailabilityMonth, price *calendar.PriceMonth) CalendarMonth {
	out := CalendarMonth{
		PropertyID:        key.PropertyID,
		Month:             key.YYYYMM(),
		AvailabilityFound: avail != nil,
		PriceFound:        price != nil,
		Days:              []CalendarDay{},
	}
	byDay := map[int]*CalendarDay{}
	entry := func(d int) *CalendarDay {
		if e, ok := byDay[d]; ok {
			return e
		}
		e := &CalendarDay{Date: daterange.FormatDate(key.Date(d))}
		byDay[d] = e
		return e
	}
	if avail != nil {
		out.AvailabilityVersion = avail.Version
		for d, v := range avail.Days {
			e := entry(d)
			available := v.Available
			e.Available = &available
			e.HoldID = v.HoldID
		}
	}
	if price != nil {
		out.PriceVersion = price.Version
		for d, v := range price.Days {
			e := entry(d)
			available, base, adjusted := v.Available, v.BaseRate, v.AdjustedRate
			e.Priced = &available
			e.BaseRate = &base
			e.AdjustedRate = &adjusted
			e.MinimumStay = v.MinimumStay
		}
	}
	days := make([]int, 0, len(byDay))
	for d := range byDay {
		days = append(days, d)
	}
	sort.Ints(days)
	for _, d := range days {
		out.Days = append(out.Days, *byDay[d])
	}
	return out
}

type RegenerationResult struct {
	PropertyID    string    `json:"property_id"`
	Months        []string  `json:"months"`
	DaysWritten   int       `json:"days_written"`
	SkippedMonths []string  `json:"skipped_months,omitempty"`
	RegeneratedAt time.Time `json:"regenerated_at"`
}
