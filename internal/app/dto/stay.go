package dto

import (
	"staycal/internal/domain/availability"
	"staycal/internal/domain/pricing"
	"staycal/internal/domain/shared/daterange"
)

// StayCheck answers a booking check. Pricing is present only for AVAILABLE.
type StayCheck struct {
	PropertyID       string                  `json:"property_id"`
	Availability     availability.Status     `json:"availability"`
	BlockedDates     []string                `json:"blocked_dates"`
	UnreadableMonths []string                `json:"unreadable_months,omitempty"`
	Pricing          *pricing.PriceBreakdown `json:"pricing"`
}

func MapStayCheck(v availability.Verdict, quote *pricing.PriceBreakdown) StayCheck {
	out := StayCheck{
		PropertyID:       v.PropertyID,
		Availability:     v.Status,
		BlockedDates:     make([]string, 0, len(v.BlockedDates)),
		UnreadableMonths: v.UnreadableMonths,
		Pricing:          quote,
	}
	for _, d := range v.BlockedDates {
		out.BlockedDates = append(out.BlockedDates, daterange.FormatDate(d))
	}
	return out
}
