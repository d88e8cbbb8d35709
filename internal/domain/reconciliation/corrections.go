package reconciliation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"staycal/internal/domain/calendar"
	"staycal/internal/domain/property"
	"staycal/internal/domain/shared/daterange"
)

// Filter narrows which discrepancies become corrections. Zero value selects all.
type Filter struct {
	MinSeverity Severity
	Dates       []time.Time
	Kinds       []Kind
}

func (f Filter) match(d Discrepancy) bool {
	if !d.Severity.AtLeast(f.MinSeverity) {
		return false
	}
	if len(f.Kinds) > 0 {
		ok := false
		for _, k := range f.Kinds {
			ok = ok || k == d.Kind
		}
		if !ok {
			return false
		}
	}
	if len(f.Dates) > 0 {
		ok := false
		for _, t := range f.Dates {
			ok = ok || daterange.Day(t).Equal(daterange.Day(d.Date))
		}
		if !ok {
			return false
		}
	}
	return true
}

// Correction proposes realigning one priceCalendar day with availability.
// The Seen values are what the audit observed; Apply refuses to act if either
// family has moved since.
type Correction struct {
	PropertyID        string    `json:"propertyId"`
	Date              time.Time `json:"date"`
	Kind              Kind      `json:"kind"`
	Severity          Severity  `json:"severity"`
	SeenAvailability  *bool     `json:"seenAvailability"`
	SeenPriceCalendar *bool     `json:"seenPriceCalendar"`
}

// Target is the priceCalendar availability flag the correction writes. A
// night missing from availability is unbookable, so the copy becomes false.
func (c Correction) Target() bool {
	return c.SeenAvailability != nil && *c.SeenAvailability
}

// PlanCorrections turns selected discrepancies of r into proposals. Only the
// priceCalendar family is ever a target.
func PlanCorrections(r *Report, f Filter) []Correction {
	if r == nil {
		return nil
	}
	var plan []Correction
	for _, d := range r.Discrepancies {
		if !f.match(d) {
			continue
		}
		plan = append(plan, Correction{
			PropertyID:        d.PropertyID,
			Date:              daterange.Day(d.Date),
			Kind:              d.Kind,
			Severity:          d.Severity,
			SeenAvailability:  d.AvailabilityValue,
			SeenPriceCalendar: d.PriceCalendarValue,
		})
	}
	return plan
}

type Outcome string

const (
	OutcomeApplied    Outcome = "applied"
	OutcomeStale      Outcome = "stale"
	OutcomeConflicted Outcome = "conflicted"
	OutcomeFailed     Outcome = "failed"
)

type CorrectionResult struct {
	Correction Correction `json:"correction"`
	Outcome    Outcome    `json:"outcome"`
	Error      string     `json:"error,omitempty"`
}

type CorrectionReport struct {
	Results    []CorrectionResult `json:"results"`
	Applied    int                `json:"applied"`
	Stale      int                `json:"stale"`
	Conflicted int                `json:"conflicted"`
	Failed     int                `json:"failed"`
}

func (r *CorrectionReport) add(c Correction, outcome Outcome, err error) {
	res := CorrectionResult{Correction: c, Outcome: outcome}
	if err != nil {
		res.Error = err.Error()
	}
	r.Results = append(r.Results, res)
	switch outcome {
	case OutcomeApplied:
		r.Applied++
	case OutcomeStale:
		r.Stale++
	case OutcomeConflicted:
		r.Conflicted++
	case OutcomeFailed:
		r.Failed++
	}
}

// Corrector executes a reviewed plan against the priceCalendar family.
type Corrector struct {
	Calendar   calendar.Store
	Properties property.Lookup
	Logger     *slog.Logger
}

// Apply re-reads the authoritative day for every correction and writes the
// priceCalendar day only if it still holds the value the audit saw.
func (c *Corrector) Apply(ctx context.Context, plan []Correction) (*CorrectionReport, error) {
	out := &CorrectionReport{Results: []CorrectionResult{}}
	policies := make(map[string]*property.Property)
	for _, corr := range plan {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		outcome, err := c.applyOne(ctx, corr, policies)
		out.add(corr, outcome, err)
		if c.Logger != nil && outcome != OutcomeApplied {
			c.Logger.Warn("correction not applied",
				"property_id", corr.PropertyID,
				"date", daterange.FormatDate(corr.Date),
				"outcome", string(outcome),
				"error", err,
			)
		}
	}
	if c.Logger != nil {
		c.Logger.Info("corrections applied", "applied", out.Applied, "stale", out.Stale, "conflicted", out.Conflicted, "failed", out.Failed)
	}
	return out, nil
}

func (c *Corrector) applyOne(ctx context.Context, corr Correction, props map[string]*property.Property) (Outcome, error) {
	key := calendar.KeyFor(corr.PropertyID, corr.Date)
	month, err := c.Calendar.AvailabilityMonth(ctx, key)
	if err != nil && !errors.Is(err, calendar.ErrMonthNotFound) {
		return OutcomeFailed, err
	}
	var current *bool
	if day, ok := month.Day(corr.Date); ok {
		current = boolPtr(day.Available)
	}
	if !sameFlag(current, corr.SeenAvailability) {
		return OutcomeStale, nil
	}

	target := corr.Target()
	patch := calendar.PricePatch{
		Available: &target,
		Expect:    calendar.ExpectFlag(corr.SeenPriceCalendar),
	}
	if corr.SeenPriceCalendar == nil {
		if err := c.fillRates(ctx, corr, &patch, props); err != nil {
			return OutcomeFailed, err
		}
	}
	err = c.Calendar.SetPriceDay(ctx, corr.PropertyID, corr.Date, patch)
	switch {
	case err == nil:
		return OutcomeApplied, nil
	case errors.Is(err, calendar.ErrWriteConflict):
		return OutcomeConflicted, err
	default:
		return OutcomeFailed, err
	}
}

// fillRates prices a day the priceCalendar family never had.
func (c *Corrector) fillRates(ctx context.Context, corr Correction, patch *calendar.PricePatch, props map[string]*property.Property) error {
	if c.Properties == nil {
		return nil
	}
	p, ok := props[corr.PropertyID]
	if !ok {
		var err error
		p, err = c.Properties.ByID(ctx, property.ID(corr.PropertyID))
		if err != nil {
			return fmt.Errorf("reconciliation: pricing for %s: %w", corr.PropertyID, err)
		}
		props[corr.PropertyID] = p
	}
	base, adjusted := p.Pricing.ExpectedRates(corr.Date)
	minStay := p.Pricing.MinimumStay()
	patch.BaseRate = &base
	patch.AdjustedRate = &adjusted
	patch.MinimumStay = &minStay
	return nil
}

func sameFlag(a, b *bool) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
