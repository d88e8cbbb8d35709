package availability

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"staycal/internal/domain/calendar"
	"staycal/internal/domain/property"
	"staycal/internal/domain/shared/daterange"
)

var (
	ErrPropertyNotFound = errors.New("availability: property not found")
	ErrCalendarNotFound = errors.New("availability: no calendar data for range")
)

type Status string

const (
	StatusAvailable  Status = "AVAILABLE"
	StatusBlocked    Status = "BLOCKED"
	StatusIncomplete Status = "INCOMPLETE"
)

// Verdict is the answer for one stay. BlockedDates lists every night that
// prevents the booking, ascending.
type Verdict struct {
	PropertyID       string
	Range            daterange.DateRange
	Status           Status
	BlockedDates     []time.Time
	UnreadableMonths []string
}

// IncompleteDataError means some month documents could not be read, so the
// verdict cannot be trusted either way.
type IncompleteDataError struct {
	PropertyID string
	Months     []string
	Causes     []error
}

func (e *IncompleteDataError) Error() string {
	return fmt.Sprintf("availability: incomplete calendar data for %s: %s", e.PropertyID, strings.Join(e.Months, ", "))
}

func (e *IncompleteDataError) Unwrap() []error { return e.Causes }

// Resolver answers bookability from the availability family only; the
// priceCalendar copy of the flag is never consulted.
type Resolver struct {
	Calendar     calendar.Reader
	Properties   property.Lookup
	FetchTimeout time.Duration
	Logger       *slog.Logger
}

// Resolve checks every night in [checkIn, checkOut). Missing entries block.
func (r *Resolver) Resolve(ctx context.Context, propertyID string, checkIn, checkOut time.Time) (Verdict, error) {
	dr, err := daterange.New(checkIn, checkOut)
	if err != nil {
		return Verdict{}, err
	}
	if r.Properties != nil {
		if _, err := r.Properties.ByID(ctx, property.ID(propertyID)); err != nil {
			if errors.Is(err, property.ErrNotFound) {
				return Verdict{}, fmt.Errorf("%w: %s", ErrPropertyNotFound, propertyID)
			}
			return Verdict{}, err
		}
	}

	keys := calendar.MonthsCovering(propertyID, dr)
	batch := calendar.FetchAvailability(ctx, r.Calendar, keys, r.FetchTimeout)
	verdict := Verdict{PropertyID: propertyID, Range: dr}

	if !batch.Complete() {
		incomplete := &IncompleteDataError{PropertyID: propertyID}
		for _, key := range batch.FailedKeys() {
			incomplete.Months = append(incomplete.Months, key.YYYYMM())
			incomplete.Causes = append(incomplete.Causes, batch.Failed[key])
		}
		verdict.Status = StatusIncomplete
		verdict.UnreadableMonths = incomplete.Months
		if r.Logger != nil {
			r.Logger.Warn("availability incomplete", "property_id", propertyID, "range", dr.String(), "months", incomplete.Months)
		}
		return verdict, incomplete
	}
	if len(batch.Found) == 0 {
		return Verdict{}, fmt.Errorf("%w: %s %s", ErrCalendarNotFound, propertyID, dr)
	}

	for _, night := range dr.Days() {
		entry, ok := batch.Found[calendar.KeyFor(propertyID, night)].Day(night)
		if !ok || !entry.Available {
			verdict.BlockedDates = append(verdict.BlockedDates, night)
		}
	}
	verdict.Status = StatusAvailable
	if len(verdict.BlockedDates) > 0 {
		verdict.Status = StatusBlocked
	}
	return verdict, nil
}
