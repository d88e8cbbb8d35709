package memory

import (
	"context"
	"sync"
	"time"

	"staycal/internal/domain/calendar"
)

// CalendarStore keeps both month families in memory. A single mutex makes every
// day write atomic with respect to its month document.
type CalendarStore struct {
	mu           sync.RWMutex
	availability map[calendar.MonthKey]*calendar.AvailabilityMonth
	prices       map[calendar.MonthKey]*calendar.PriceMonth
	now          func() time.Time
}

func NewCalendarStore() *CalendarStore {
	return &CalendarStore{
		availability: make(map[calendar.MonthKey]*calendar.AvailabilityMonth),
		prices:       make(map[calendar.MonthKey]*calendar.PriceMonth),
		now:          time.Now,
	}
}

func (s *CalendarStore) AvailabilityMonth(ctx context.Context, key calendar.MonthKey) (*calendar.AvailabilityMonth, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.availability[key]
	if !ok {
		return nil, calendar.ErrMonthNotFound
	}
	return doc.Clone(), nil
}

func (s *CalendarStore) PriceMonth(ctx context.Context, key calendar.MonthKey) (*calendar.PriceMonth, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.prices[key]
	if !ok {
		return nil, calendar.ErrMonthNotFound
	}
	return doc.Clone(), nil
}

func (s *CalendarStore) SetAvailabilityDay(ctx context.Context, propertyID string, day time.Time, patch calendar.AvailabilityPatch) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if propertyID == "" {
		return calendar.ErrPropertyNeeded
	}
	key := calendar.KeyFor(propertyID, day)
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.availability[key]
	if !ok {
		doc = calendar.NewAvailabilityMonth(key)
	}
	next := doc.Clone()
	if err := calendar.ApplyAvailability(next, day.UTC().Day(), patch); err != nil {
		return err
	}
	next.UpdatedAt = s.now().UTC()
	s.availability[key] = next
	return nil
}

func (s *CalendarStore) SetPriceDay(ctx context.Context, propertyID string, day time.Time, patch calendar.PricePatch) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if propertyID == "" {
		return calendar.ErrPropertyNeeded
	}
	key := calendar.KeyFor(propertyID, day)
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.prices[key]
	if !ok {
		doc = calendar.NewPriceMonth(key)
	}
	next := doc.Clone()
	if err := calendar.ApplyPrice(next, day.UTC().Day(), patch); err != nil {
		return err
	}
	next.UpdatedAt = s.now().UTC()
	s.prices[key] = next
	return nil
}

// PutAvailabilityMonth replaces a whole document; used by fixtures and tests.
func (s *CalendarStore) PutAvailabilityMonth(doc *calendar.AvailabilityMonth) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.availability[doc.Key] = doc.Clone()
}

func (s *CalendarStore) PutPriceMonth(doc *calendar.PriceMonth) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prices[doc.Key] = doc.Clone()
}

var _ calendar.Store = (*CalendarStore)(nil)
