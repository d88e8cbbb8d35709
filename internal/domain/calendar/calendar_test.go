package calendar

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"staycal/internal/domain/shared/daterange"
)

func TestMonthKeyRoundTrip(t *testing.T) {
	key, err := ParseMonthKey("prahova_mountain_chalet_2025-06")
	require.NoError(t, err)
	assert.Equal(t, "prahova_mountain_chalet", key.PropertyID)
	assert.Equal(t, time.June, key.Month)
	assert.Equal(t, "prahova_mountain_chalet_2025-06", key.String())
	assert.Equal(t, 30, key.DaysIn())

	_, err = ParseMonthKey("nounderscore")
	assert.ErrorIs(t, err, ErrInvalidKey)
	_, err = ParseMonthKey("p_2025-13")
	assert.ErrorIs(t, err, ErrInvalidKey)
}

func TestMonthsCoveringIgnoresCheckoutMonth(t *testing.T) {
	dr, err := daterange.Parse("2025-06-28", "2025-07-01")
	require.NoError(t, err)
	keys := MonthsCovering("p1", dr)
	require.Len(t, keys, 1)
	assert.Equal(t, "p1_2025-06", keys[0].String())

	dr, err = daterange.Parse("2025-11-20", "2026-02-03")
	require.NoError(t, err)
	keys = MonthsCovering("p1", dr)
	require.Len(t, keys, 4)
	assert.Equal(t, "p1_2026-02", keys[3].String())
}

func TestMonthRangeCrossesYear(t *testing.T) {
	keys := MonthRange("p1", time.Date(2025, 11, 15, 0, 0, 0, 0, time.UTC), 3)
	require.Len(t, keys, 3)
	assert.Equal(t, "2026-01", keys[2].YYYYMM())
}

func TestAvailabilityPatchExpectations(t *testing.T) {
	month := NewAvailabilityMonth(MonthKey{PropertyID: "p1", Year: 2025, Month: time.June})
	month.Days[10] = AvailabilityDay{Available: true}

	err := ApplyAvailability(month, 10, AvailabilityPatch{Available: false, HoldID: "h1", Expect: ExpectAvailable()})
	require.NoError(t, err)
	assert.Equal(t, AvailabilityDay{Available: false, HoldID: "h1"}, month.Days[10])
	assert.Equal(t, int64(1), month.Version)

	err = ApplyAvailability(month, 10, AvailabilityPatch{Available: false, HoldID: "h2", Expect: ExpectAvailable()})
	assert.ErrorIs(t, err, ErrWriteConflict)

	err = ApplyAvailability(month, 10, AvailabilityPatch{Available: true, Expect: ExpectHold("h2")})
	assert.ErrorIs(t, err, ErrWriteConflict)

	err = ApplyAvailability(month, 10, AvailabilityPatch{Available: true, Expect: ExpectHold("h1")})
	require.NoError(t, err)

	err = ApplyAvailability(month, 11, AvailabilityPatch{Available: false, Expect: ExpectAvailable()})
	assert.ErrorIs(t, err, ErrWriteConflict, "missing days are never claimable")

	err = ApplyAvailability(month, 31, AvailabilityPatch{Available: true})
	assert.ErrorIs(t, err, ErrInvalidDay)
}

func TestPricePatchOnMissingDay(t *testing.T) {
	month := NewPriceMonth(MonthKey{PropertyID: "p1", Year: 2025, Month: time.June})
	flag := false
	err := ApplyPrice(month, 3, PricePatch{Available: &flag, Expect: ExpectFlag(nil)})
	require.NoError(t, err)
	day := month.Days[3]
	assert.False(t, day.Available)
	assert.True(t, day.BaseRate.IsZero())

	err = ApplyPrice(month, 3, PricePatch{Available: &flag, Expect: ExpectFlag(nil)})
	assert.ErrorIs(t, err, ErrWriteConflict)
}

type fakeReader struct {
	calls atomic.Int32
	docs  map[string]*AvailabilityMonth
	fail  map[string]error
	delay time.Duration
}

func (f *fakeReader) AvailabilityMonth(ctx context.Context, key MonthKey) (*AvailabilityMonth, error) {
	f.calls.Add(1)
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err, ok := f.fail[key.String()]; ok {
		return nil, err
	}
	if doc, ok := f.docs[key.String()]; ok {
		return doc, nil
	}
	return nil, ErrMonthNotFound
}

func (f *fakeReader) PriceMonth(ctx context.Context, key MonthKey) (*PriceMonth, error) {
	return nil, ErrMonthNotFound
}

func TestFetchAvailabilitySeparatesOutcomes(t *testing.T) {
	keys := MonthRange("p1", time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC), 3)
	reader := &fakeReader{
		docs: map[string]*AvailabilityMonth{"p1_2025-06": NewAvailabilityMonth(keys[0])},
		fail: map[string]error{"p1_2025-08": errors.New("boom")},
	}
	batch := FetchAvailability(context.Background(), reader, keys, time.Second)

	assert.Len(t, batch.Found, 1)
	assert.Equal(t, []MonthKey{keys[1]}, batch.Missing)
	assert.Equal(t, []MonthKey{keys[2]}, batch.FailedKeys())
	assert.False(t, batch.Complete())
	assert.Equal(t, int32(3), reader.calls.Load())
}

func TestFetchRunsConcurrentlyAndTimesOut(t *testing.T) {
	keys := MonthRange("p1", time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), 6)
	reader := &fakeReader{delay: 50 * time.Millisecond}

	start := time.Now()
	batch := FetchAvailability(context.Background(), reader, keys, time.Second)
	assert.Less(t, time.Since(start), 250*time.Millisecond)
	assert.Len(t, batch.Missing, 6)

	reader.delay = time.Second
	batch = FetchAvailability(context.Background(), reader, keys[:1], 20*time.Millisecond)
	require.Len(t, batch.Failed, 1)
	assert.ErrorIs(t, batch.Failed[keys[0]], context.DeadlineExceeded)
}
