package holds

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"staycal/internal/domain/calendar"
	"staycal/internal/domain/shared/daterange"
	"staycal/internal/domain/shared/events"
)

var (
	ErrHoldIDRequired = errors.New("holds: hold id is required")
	ErrLocked         = errors.New("holds: nights are locked by another request")
	ErrNotHeld        = errors.New("holds: nights are not held by this hold")
)

const DefaultLockTTL = 15 * time.Second

// Locker serializes competing writers on the same nights across processes.
type Locker interface {
	Acquire(ctx context.Context, keys []string, ttl time.Duration) (Lease, error)
}

type Lease interface {
	Release(ctx context.Context) error
}

// ConflictError reports nights another writer got to first. It unwraps to
// calendar.ErrWriteConflict.
type ConflictError struct {
	PropertyID string
	Dates      []time.Time
}

func (e *ConflictError) Error() string {
	dates := make([]string, 0, len(e.Dates))
	for _, d := range e.Dates {
		dates = append(dates, daterange.FormatDate(d))
	}
	return fmt.Sprintf("holds: %s: nights already taken: %s", e.PropertyID, strings.Join(dates, ", "))
}

func (e *ConflictError) Unwrap() error { return calendar.ErrWriteConflict }

type Hold struct {
	ID         string
	PropertyID string
	Range      daterange.DateRange
	At         time.Time
	events.EventRecorder
}

// Service is the hold-management writer of the availability family. Every
// night is claimed with a conditional write so two overlapping holds can never
// both succeed, with or without a Locker.
type Service struct {
	Calendar calendar.Writer
	Locker   Locker
	LockTTL  time.Duration
	Now      func() time.Time
	Logger   *slog.Logger
}

// Place claims every night of dr for holdID or nothing.
func (s *Service) Place(ctx context.Context, propertyID, holdID string, dr daterange.DateRange) (*Hold, error) {
	if strings.TrimSpace(holdID) == "" {
		return nil, ErrHoldIDRequired
	}
	if err := dr.Validate(); err != nil {
		return nil, err
	}
	lease, err := s.lock(ctx, propertyID, dr)
	if err != nil {
		return nil, err
	}
	defer s.unlock(lease)

	nights := dr.Days()
	for i, night := range nights {
		err := s.Calendar.SetAvailabilityDay(ctx, propertyID, night, calendar.AvailabilityPatch{
			Available: false,
			HoldID:    holdID,
			Expect:    calendar.ExpectAvailable(),
		})
		if err == nil {
			continue
		}
		s.rollback(ctx, propertyID, holdID, nights[:i])
		if errors.Is(err, calendar.ErrWriteConflict) {
			return nil, &ConflictError{PropertyID: propertyID, Dates: []time.Time{night}}
		}
		return nil, fmt.Errorf("holds: claim %s: %w", daterange.FormatDate(night), err)
	}

	hold := &Hold{ID: holdID, PropertyID: propertyID, Range: dr, At: s.now()}
	hold.Record(HoldPlaced{PropertyID: propertyID, HoldID: holdID, CheckIn: dr.CheckIn, CheckOut: dr.CheckOut, At: hold.At})
	if s.Logger != nil {
		s.Logger.Info("hold placed", "property_id", propertyID, "hold_id", holdID, "range", dr.String())
	}
	return hold, nil
}

// Release frees the nights still held by holdID.
func (s *Service) Release(ctx context.Context, propertyID, holdID string, dr daterange.DateRange) (*Hold, error) {
	return s.settle(ctx, propertyID, holdID, dr, true)
}

// Confirm turns the provisional hold into a confirmed booking.
func (s *Service) Confirm(ctx context.Context, propertyID, holdID string, dr daterange.DateRange) (*Hold, error) {
	return s.settle(ctx, propertyID, holdID, dr, false)
}

func (s *Service) settle(ctx context.Context, propertyID, holdID string, dr daterange.DateRange, release bool) (*Hold, error) {
	if strings.TrimSpace(holdID) == "" {
		return nil, ErrHoldIDRequired
	}
	if err := dr.Validate(); err != nil {
		return nil, err
	}
	lease, err := s.lock(ctx, propertyID, dr)
	if err != nil {
		return nil, err
	}
	defer s.unlock(lease)

	var missed []time.Time
	for _, night := range dr.Days() {
		err := s.Calendar.SetAvailabilityDay(ctx, propertyID, night, calendar.AvailabilityPatch{
			Available: release,
			Expect:    calendar.ExpectHold(holdID),
		})
		switch {
		case errors.Is(err, calendar.ErrWriteConflict):
			missed = append(missed, night)
		case err != nil:
			return nil, fmt.Errorf("holds: settle %s: %w", daterange.FormatDate(night), err)
		}
	}
	if len(missed) == len(dr.Days()) {
		return nil, fmt.Errorf("%w: %s %s", ErrNotHeld, holdID, dr)
	}

	hold := &Hold{ID: holdID, PropertyID: propertyID, Range: dr, At: s.now()}
	if release {
		hold.Record(HoldReleased{PropertyID: propertyID, HoldID: holdID, CheckIn: dr.CheckIn, CheckOut: dr.CheckOut, At: hold.At})
	} else {
		hold.Record(HoldConfirmed{PropertyID: propertyID, HoldID: holdID, CheckIn: dr.CheckIn, CheckOut: dr.CheckOut, At: hold.At})
	}
	if len(missed) > 0 && s.Logger != nil {
		s.Logger.Warn("hold partially settled", "property_id", propertyID, "hold_id", holdID, "missed", len(missed))
	}
	return hold, nil
}

func (s *Service) rollback(ctx context.Context, propertyID, holdID string, nights []time.Time) {
	for _, night := range nights {
		err := s.Calendar.SetAvailabilityDay(ctx, propertyID, night, calendar.AvailabilityPatch{
			Available: true,
			Expect:    calendar.ExpectHold(holdID),
		})
		if err != nil && s.Logger != nil {
			s.Logger.Error("hold rollback failed", "property_id", propertyID, "hold_id", holdID, "night", daterange.FormatDate(night), "error", err)
		}
	}
}

// LockKeys names one lock per night, in night order so concurrent callers
// acquire overlapping locks in the same sequence.
func LockKeys(propertyID string, dr daterange.DateRange) []string {
	days := dr.Days()
	keys := make([]string, 0, len(days))
	for _, d := range days {
		keys = append(keys, propertyID+":"+daterange.FormatDate(d))
	}
	return keys
}

func (s *Service) lock(ctx context.Context, propertyID string, dr daterange.DateRange) (Lease, error) {
	if s.Locker == nil {
		return nil, nil
	}
	ttl := s.LockTTL
	if ttl <= 0 {
		ttl = DefaultLockTTL
	}
	return s.Locker.Acquire(ctx, LockKeys(propertyID, dr), ttl)
}

func (s *Service) unlock(lease Lease) {
	if lease == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := lease.Release(ctx); err != nil && s.Logger != nil {
		s.Logger.Warn("hold lock release failed", "error", err)
	}
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}
