package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"staycal/internal/domain/calendar"
	"staycal/internal/domain/holds"
)

func TestCalendarStoreConditionalWrites(t *testing.T) {
	ctx := context.Background()
	s := NewCalendarStore()
	day := time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)

	require.NoError(t, s.SetAvailabilityDay(ctx, "p1", day, calendar.AvailabilityPatch{Available: true, Expect: &calendar.Expectation{Missing: true}}))
	err := s.SetAvailabilityDay(ctx, "p1", day, calendar.AvailabilityPatch{Available: true, Expect: &calendar.Expectation{Missing: true}})
	assert.ErrorIs(t, err, calendar.ErrWriteConflict)

	require.NoError(t, s.SetAvailabilityDay(ctx, "p1", day, calendar.AvailabilityPatch{Available: false, HoldID: "h1", Expect: calendar.ExpectAvailable()}))
	err = s.SetAvailabilityDay(ctx, "p1", day, calendar.AvailabilityPatch{Available: true, Expect: calendar.ExpectHold("h2")})
	assert.ErrorIs(t, err, calendar.ErrWriteConflict)
	require.NoError(t, s.SetAvailabilityDay(ctx, "p1", day, calendar.AvailabilityPatch{Available: true, Expect: calendar.ExpectHold("h1")}))

	m, err := s.AvailabilityMonth(ctx, calendar.KeyFor("p1", day))
	require.NoError(t, err)
	got, ok := m.Day(day)
	require.True(t, ok)
	assert.Equal(t, calendar.AvailabilityDay{Available: true}, got)

	assert.ErrorIs(t, s.SetAvailabilityDay(ctx, "", day, calendar.AvailabilityPatch{}), calendar.ErrPropertyNeeded)
}

func TestCalendarStoreReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := NewCalendarStore()
	day := time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)
	require.NoError(t, s.SetAvailabilityDay(ctx, "p1", day, calendar.AvailabilityPatch{Available: true}))

	m, err := s.AvailabilityMonth(ctx, calendar.KeyFor("p1", day))
	require.NoError(t, err)
	m.Days[10] = calendar.AvailabilityDay{Available: false}

	again, err := s.AvailabilityMonth(ctx, calendar.KeyFor("p1", day))
	require.NoError(t, err)
	assert.True(t, again.Days[10].Available)

	_, err = s.PriceMonth(ctx, calendar.KeyFor("p1", day))
	assert.ErrorIs(t, err, calendar.ErrMonthNotFound)
}

func TestCalendarStoreConcurrentDaysInOneMonth(t *testing.T) {
	ctx := context.Background()
	s := NewCalendarStore()
	var wg sync.WaitGroup
	for d := 1; d <= 30; d++ {
		wg.Add(1)
		go func(d int) {
			defer wg.Done()
			_ = s.SetAvailabilityDay(ctx, "p1", time.Date(2025, 6, d, 0, 0, 0, 0, time.UTC), calendar.AvailabilityPatch{Available: true})
		}(d)
	}
	wg.Wait()
	m, err := s.AvailabilityMonth(ctx, calendar.KeyFor("p1", time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)))
	require.NoError(t, err)
	assert.Len(t, m.Days, 30)
}

func TestLockerIsAllOrNothing(t *testing.T) {
	ctx := context.Background()
	l := NewLocker()

	first, err := l.Acquire(ctx, []string{"a", "b"}, time.Minute)
	require.NoError(t, err)

	_, err = l.Acquire(ctx, []string{"b", "c"}, time.Minute)
	assert.ErrorIs(t, err, holds.ErrLocked)

	// c was not taken by the failed attempt
	third, err := l.Acquire(ctx, []string{"c"}, time.Minute)
	require.NoError(t, err)
	require.NoError(t, third.Release(ctx))

	require.NoError(t, first.Release(ctx))
	second, err := l.Acquire(ctx, []string{"b", "c"}, time.Minute)
	require.NoError(t, err)

	// releasing a stale lease leaves the new owner alone
	require.NoError(t, first.Release(ctx))
	_, err = l.Acquire(ctx, []string{"b"}, time.Minute)
	assert.ErrorIs(t, err, holds.ErrLocked)
	require.NoError(t, second.Release(ctx))
}

func TestLockerExpiresLeases(t *testing.T) {
	ctx := context.Background()
	l := NewLocker()
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	l.clock = func() time.Time { return now }

	_, err := l.Acquire(ctx, []string{"a"}, time.Second)
	require.NoError(t, err)
	now = now.Add(2 * time.Second)
	_, err = l.Acquire(ctx, []string{"a"}, time.Second)
	assert.NoError(t, err)
}

func TestCheckpointAndInbox(t *testing.T) {
	ctx := context.Background()
	cp := NewCheckpoint()
	done, err := cp.Done(ctx, "run", "p1")
	require.NoError(t, err)
	assert.False(t, done)
	require.NoError(t, cp.MarkDone(ctx, "run", "p1"))
	done, _ = cp.Done(ctx, "run", "p1")
	assert.True(t, done)
	done, _ = cp.Done(ctx, "other", "p1")
	assert.False(t, done)

	in := NewInbox()
	seen, err := in.Seen(ctx, "msg-1")
	require.NoError(t, err)
	assert.False(t, seen)
	seen, _ = in.Seen(ctx, "msg-1")
	assert.False(t, seen, "checking must not record the id")

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = in.Mark(ctx, "msg-1")
		}()
	}
	wg.Wait()
	seen, _ = in.Seen(ctx, "msg-1")
	assert.True(t, seen)
	seen, _ = in.Seen(ctx, "msg-2")
	assert.False(t, seen)
}
