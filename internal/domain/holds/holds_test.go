package holds_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"staycal/internal/domain/calendar"
	"staycal/internal/domain/holds"
	"staycal/internal/domain/shared/daterange"
	"staycal/internal/infra/storage/memory"
)

const chalet = "prahova-mountain-chalet"

func openJune(t *testing.T) *memory.CalendarStore {
	t.Helper()
	store := memory.NewCalendarStore()
	key := calendar.KeyFor(chalet, time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC))
	doc := calendar.NewAvailabilityMonth(key)
	for d := 1; d <= key.DaysIn(); d++ {
		doc.Days[d] = calendar.AvailabilityDay{Available: true}
	}
	store.PutAvailabilityMonth(doc)
	return store
}

func stay(t *testing.T, in, out string) daterange.DateRange {
	t.Helper()
	dr, err := daterange.Parse(in, out)
	require.NoError(t, err)
	return dr
}

func dayOf(t *testing.T, store *memory.CalendarStore, date string) calendar.AvailabilityDay {
	t.Helper()
	d, err := daterange.ParseDate(date)
	require.NoError(t, err)
	m, err := store.AvailabilityMonth(context.Background(), calendar.KeyFor(chalet, d))
	require.NoError(t, err)
	v, ok := m.Day(d)
	require.True(t, ok)
	return v
}

func TestPlaceClaimsNightsButNotCheckout(t *testing.T) {
	store := openJune(t)
	svc := &holds.Service{Calendar: store, Locker: memory.NewLocker()}

	hold, err := svc.Place(context.Background(), chalet, "h1", stay(t, "2025-06-10", "2025-06-13"))
	require.NoError(t, err)

	for _, d := range []string{"2025-06-10", "2025-06-11", "2025-06-12"} {
		assert.Equal(t, calendar.AvailabilityDay{Available: false, HoldID: "h1"}, dayOf(t, store, d), d)
	}
	assert.True(t, dayOf(t, store, "2025-06-13").Available)

	evs := hold.PendingEvents()
	require.Len(t, evs, 1)
	assert.Equal(t, "hold.placed", evs[0].EventName())
}

func TestPlaceRollsBackOnConflict(t *testing.T) {
	store := openJune(t)
	svc := &holds.Service{Calendar: store}
	ctx := context.Background()

	_, err := svc.Place(ctx, chalet, "first", stay(t, "2025-06-12", "2025-06-14"))
	require.NoError(t, err)

	_, err = svc.Place(ctx, chalet, "second", stay(t, "2025-06-10", "2025-06-13"))
	var conflict *holds.ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.ErrorIs(t, err, calendar.ErrWriteConflict)
	require.Len(t, conflict.Dates, 1)
	assert.Equal(t, "2025-06-12", daterange.FormatDate(conflict.Dates[0]))

	assert.True(t, dayOf(t, store, "2025-06-10").Available)
	assert.True(t, dayOf(t, store, "2025-06-11").Available)
	assert.Equal(t, "first", dayOf(t, store, "2025-06-12").HoldID)
}

func TestOverlappingHoldsNeverBothSucceed(t *testing.T) {
	store := openJune(t)
	svc := &holds.Service{Calendar: store}

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := svc.Place(context.Background(), chalet, string(rune('a'+i)), stay(t, "2025-06-20", "2025-06-23"))
			if err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 1, wins)
}

func TestLockedNightsAreRejected(t *testing.T) {
	store := openJune(t)
	locker := memory.NewLocker()
	svc := &holds.Service{Calendar: store, Locker: locker}
	dr := stay(t, "2025-06-10", "2025-06-12")

	lease, err := locker.Acquire(context.Background(), holds.LockKeys(chalet, dr), time.Minute)
	require.NoError(t, err)
	_, err = svc.Place(context.Background(), chalet, "h1", dr)
	assert.ErrorIs(t, err, holds.ErrLocked)

	require.NoError(t, lease.Release(context.Background()))
	_, err = svc.Place(context.Background(), chalet, "h1", dr)
	assert.NoError(t, err)
}

func TestReleaseAndConfirm(t *testing.T) {
	store := openJune(t)
	svc := &holds.Service{Calendar: store}
	ctx := context.Background()
	dr := stay(t, "2025-06-01", "2025-06-03")

	_, err := svc.Place(ctx, chalet, "h1", dr)
	require.NoError(t, err)

	_, err = svc.Release(ctx, chalet, "other", dr)
	assert.ErrorIs(t, err, holds.ErrNotHeld)

	hold, err := svc.Confirm(ctx, chalet, "h1", dr)
	require.NoError(t, err)
	assert.Equal(t, "hold.confirmed", hold.PendingEvents()[0].EventName())
	assert.Equal(t, calendar.AvailabilityDay{Available: false}, dayOf(t, store, "2025-06-01"))

	_, err = svc.Release(ctx, chalet, "h1", dr)
	assert.ErrorIs(t, err, holds.ErrNotHeld)
}

func TestReleaseFreesNights(t *testing.T) {
	store := openJune(t)
	svc := &holds.Service{Calendar: store}
	ctx := context.Background()
	dr := stay(t, "2025-06-05", "2025-06-07")

	_, err := svc.Place(ctx, chalet, "h1", dr)
	require.NoError(t, err)
	hold, err := svc.Release(ctx, chalet, "h1", dr)
	require.NoError(t, err)
	assert.Equal(t, "hold.released", hold.PendingEvents()[0].EventName())
	assert.Equal(t, calendar.AvailabilityDay{Available: true}, dayOf(t, store, "2025-06-05"))
}

func TestPlaceValidatesInput(t *testing.T) {
	svc := &holds.Service{Calendar: openJune(t)}
	_, err := svc.Place(context.Background(), chalet, " ", stay(t, "2025-06-05", "2025-06-07"))
	assert.ErrorIs(t, err, holds.ErrHoldIDRequired)

	_, err = svc.Place(context.Background(), chalet, "h1", daterange.DateRange{})
	assert.Error(t, err)
	assert.False(t, errors.Is(err, holds.ErrHoldIDRequired))
}

func TestPlaceOnUnknownMonthConflicts(t *testing.T) {
	svc := &holds.Service{Calendar: memory.NewCalendarStore()}
	_, err := svc.Place(context.Background(), chalet, "h1", stay(t, "2025-07-01", "2025-07-02"))
	assert.ErrorIs(t, err, calendar.ErrWriteConflict)
}
