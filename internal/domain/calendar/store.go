package calendar

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Reader fetches whole month documents. Implementations return ErrMonthNotFound
// when a document was never written.
type Reader interface {
	AvailabilityMonth(ctx context.Context, key MonthKey) (*AvailabilityMonth, error)
	PriceMonth(ctx context.Context, key MonthKey) (*PriceMonth, error)
}

// Writer patches a single day. Each call must be atomic with respect to the
// month document it touches; a failed Expect yields ErrWriteConflict.
type Writer interface {
	SetAvailabilityDay(ctx context.Context, propertyID string, day time.Time, patch AvailabilityPatch) error
	SetPriceDay(ctx context.Context, propertyID string, day time.Time, patch PricePatch) error
}

type Store interface {
	Reader
	Writer
}

// Expectation guards a conditional day write against the state the caller last saw.
type Expectation struct {
	// Missing requires the day to be absent from the document.
	Missing bool
	// Available, when set, requires the day to exist with this flag.
	Available *bool
	// HoldID, when set, requires the day's hold id to match (availability only).
	HoldID *string
}

// ExpectAvailable is the precondition used when claiming a free night.
func ExpectAvailable() *Expectation {
	return &Expectation{Available: boolPtr(true)}
}

// ExpectHold requires the day to be held by holdID.
func ExpectHold(holdID string) *Expectation {
	return &Expectation{Available: boolPtr(false), HoldID: &holdID}
}

// ExpectFlag requires the day to exist with the given flag, or to be missing when flag is nil.
func ExpectFlag(flag *bool) *Expectation {
	if flag == nil {
		return &Expectation{Missing: true}
	}
	v := *flag
	return &Expectation{Available: &v}
}

func (e *Expectation) matches(present, available bool, holdID string) bool {
	if e == nil {
		return true
	}
	if e.Missing {
		return !present
	}
	if e.Available != nil && (!present || *e.Available != available) {
		return false
	}
	if e.HoldID != nil && (!present || *e.HoldID != holdID) {
		return false
	}
	return true
}

type AvailabilityPatch struct {
	Available bool
	HoldID    string
	Expect    *Expectation
}

// Apply returns the new day value or ErrWriteConflict.
func (p AvailabilityPatch) Apply(current AvailabilityDay, present bool) (AvailabilityDay, error) {
	if !p.Expect.matches(present, current.Available, current.HoldID) {
		return current, ErrWriteConflict
	}
	return AvailabilityDay{Available: p.Available, HoldID: p.HoldID}, nil
}

// PricePatch updates the fields that are set. Applied to a missing day it starts
// from a zero PriceDay.
type PricePatch struct {
	Available    *bool
	BaseRate     *decimal.Decimal
	AdjustedRate *decimal.Decimal
	MinimumStay  *int
	Expect       *Expectation
}

func (p PricePatch) Apply(current PriceDay, present bool) (PriceDay, error) {
	if !p.Expect.matches(present, current.Available, "") {
		return current, ErrWriteConflict
	}
	next := current
	if !present {
		next = PriceDay{BaseRate: decimal.Zero, AdjustedRate: decimal.Zero}
	}
	if p.Available != nil {
		next.Available = *p.Available
	}
	if p.BaseRate != nil {
		next.BaseRate = *p.BaseRate
	}
	if p.AdjustedRate != nil {
		next.AdjustedRate = *p.AdjustedRate
	}
	if p.MinimumStay != nil {
		next.MinimumStay = *p.MinimumStay
	}
	return next, nil
}

// ApplyAvailability patches day d of month m in place. Stores that keep whole
// documents in memory use it under their own lock.
func ApplyAvailability(m *AvailabilityMonth, d int, patch AvailabilityPatch) error {
	if err := validDay(m.Key, d); err != nil {
		return err
	}
	current, present := m.Days[d]
	next, err := patch.Apply(current, present)
	if err != nil {
		return err
	}
	m.Days[d] = next
	m.Version++
	return nil
}

func ApplyPrice(m *PriceMonth, d int, patch PricePatch) error {
	if err := validDay(m.Key, d); err != nil {
		return err
	}
	current, present := m.Days[d]
	next, err := patch.Apply(current, present)
	if err != nil {
		return err
	}
	m.Days[d] = next
	m.Version++
	return nil
}

func boolPtr(v bool) *bool { return &v }
