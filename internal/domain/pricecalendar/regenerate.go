package pricecalendar

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"staycal/internal/domain/calendar"
	"staycal/internal/domain/property"
)

var ErrNoMonths = errors.New("pricecalendar: at least one month is required")

// Regenerator is the writer of the priceCalendar family. It derives every day
// from the property's compiled pricing policy and the availability snapshot
// it reads at the same time.
type Regenerator struct {
	Calendar     calendar.Store
	FetchTimeout time.Duration
	Now          func() time.Time
	Logger       *slog.Logger
}

type Result struct {
	PropertyID    string   `json:"propertyId"`
	Months        []string `json:"months"`
	DaysWritten   int      `json:"daysWritten"`
	SkippedMonths []string `json:"skippedMonths,omitempty"`
}

// Regenerate rewrites months of the price calendar for p. A month whose
// availability cannot be read is left untouched.
func (r *Regenerator) Regenerate(ctx context.Context, p *property.Property, start time.Time, months int) (*Result, error) {
	if months < 1 {
		return nil, ErrNoMonths
	}
	propertyID := string(p.ID)
	keys := calendar.MonthRange(propertyID, start, months)
	timeout := r.FetchTimeout
	if timeout <= 0 {
		timeout = calendar.DefaultFetchTimeout
	}
	snapshot := calendar.FetchAvailability(ctx, r.Calendar, keys, timeout)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	res := &Result{PropertyID: propertyID}
	minStay := p.Pricing.MinimumStay()
	for _, key := range keys {
		if err, failed := snapshot.Failed[key]; failed {
			res.SkippedMonths = append(res.SkippedMonths, key.YYYYMM())
			if r.Logger != nil {
				r.Logger.Warn("price regeneration skipped month", "property_id", propertyID, "month", key.YYYYMM(), "error", err)
			}
			continue
		}
		avail := snapshot.Found[key]
		for d := 1; d <= key.DaysIn(); d++ {
			date := key.Date(d)
			day, ok := avail.Day(date)
			available := ok && day.Available
			base, adjusted := p.Pricing.ExpectedRates(date)
			err := r.Calendar.SetPriceDay(ctx, propertyID, date, calendar.PricePatch{
				Available:    &available,
				BaseRate:     &base,
				AdjustedRate: &adjusted,
				MinimumStay:  &minStay,
			})
			if err != nil {
				return res, fmt.Errorf("pricecalendar: write %s day %d: %w", key, d, err)
			}
			res.DaysWritten++
		}
		res.Months = append(res.Months, key.YYYYMM())
	}
	if r.Logger != nil {
		r.Logger.Info("price calendar regenerated", "property_id", propertyID, "months", len(res.Months), "days", res.DaysWritten)
	}
	return res, nil
}

// Event describes a finished regeneration for the outbox.
func (r *Regenerator) Event(res *Result) PricesRegenerated {
	at := time.Now().UTC()
	if r.Now != nil {
		at = r.Now().UTC()
	}
	return PricesRegenerated{PropertyID: res.PropertyID, Months: res.Months, DaysWritten: res.DaysWritten, At: at}
}

type PricesRegenerated struct {
	PropertyID  string    `json:"property_id"`
	Months      []string  `json:"months"`
	DaysWritten int       `json:"days_written"`
	At          time.Time `json:"at"`
}

func (e PricesRegenerated) EventName() string     { return "calendar.prices_regenerated" }
func (e PricesRegenerated) AggregateID() string   { return e.PropertyID }
func (e PricesRegenerated) OccurredAt() time.Time { return e.At }
