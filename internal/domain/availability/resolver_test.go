package availability_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"staycal/internal/domain/availability"
	"staycal/internal/domain/calendar"
	"staycal/internal/domain/pricing"
	"staycal/internal/domain/property"
	"staycal/internal/domain/shared/daterange"
	"staycal/internal/infra/storage/memory"
)

const chalet = "prahova-mountain-chalet"

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

type countingReader struct {
	calendar.Reader
	calls atomic.Int32
	fail  map[string]error
}

func (c *countingReader) AvailabilityMonth(ctx context.Context, key calendar.MonthKey) (*calendar.AvailabilityMonth, error) {
	c.calls.Add(1)
	if err, ok := c.fail[key.YYYYMM()]; ok {
		return nil, err
	}
	return c.Reader.AvailabilityMonth(ctx, key)
}

func setup(t *testing.T) (*availability.Resolver, *memory.CalendarStore, *countingReader) {
	t.Helper()
	store := memory.NewCalendarStore()
	props := memory.NewPropertyRepository()
	p, err := property.New(property.CreateParams{
		ID:      chalet,
		Name:    "Prahova Mountain Chalet",
		Pricing: pricing.Config{PricePerNight: decimal.NewFromInt(180), BaseCurrency: "RON"},
	})
	require.NoError(t, err)
	require.NoError(t, props.Save(context.Background(), p))

	for _, key := range calendar.MonthRange(chalet, day(2025, 6, 1), 2) {
		doc := calendar.NewAvailabilityMonth(key)
		for d := 1; d <= key.DaysIn(); d++ {
			doc.Days[d] = calendar.AvailabilityDay{Available: true}
		}
		store.PutAvailabilityMonth(doc)
	}
	reader := &countingReader{Reader: store}
	return &availability.Resolver{Calendar: reader, Properties: props, FetchTimeout: time.Second}, store, reader
}

func block(t *testing.T, store *memory.CalendarStore, d time.Time, hold string) {
	t.Helper()
	require.NoError(t, store.SetAvailabilityDay(context.Background(), chalet, d, calendar.AvailabilityPatch{Available: false, HoldID: hold}))
}

func TestResolveAvailable(t *testing.T) {
	r, _, _ := setup(t)
	v, err := r.Resolve(context.Background(), chalet, day(2025, 6, 24), day(2025, 6, 27))
	require.NoError(t, err)
	assert.Equal(t, availability.StatusAvailable, v.Status)
	assert.Empty(t, v.BlockedDates)
}

func TestResolveCheckoutDayMayBeBlocked(t *testing.T) {
	r, store, _ := setup(t)
	block(t, store, day(2025, 6, 27), "")

	v, err := r.Resolve(context.Background(), chalet, day(2025, 6, 24), day(2025, 6, 27))
	require.NoError(t, err)
	assert.Equal(t, availability.StatusAvailable, v.Status)
}

func TestResolveListsEveryBlockedNight(t *testing.T) {
	r, store, _ := setup(t)
	block(t, store, day(2025, 6, 25), "")
	block(t, store, day(2025, 7, 2), "hold-1")

	v, err := r.Resolve(context.Background(), chalet, day(2025, 6, 24), day(2025, 7, 8))
	require.NoError(t, err)
	assert.Equal(t, availability.StatusBlocked, v.Status)
	assert.Equal(t, []time.Time{day(2025, 6, 25), day(2025, 7, 2)}, v.BlockedDates)
}

func TestResolveMissingEntriesFailClosed(t *testing.T) {
	r, _, _ := setup(t)
	// August has no document at all; July 31 exists.
	v, err := r.Resolve(context.Background(), chalet, day(2025, 7, 31), day(2025, 8, 2))
	require.NoError(t, err)
	assert.Equal(t, availability.StatusBlocked, v.Status)
	assert.Equal(t, []time.Time{day(2025, 8, 1)}, v.BlockedDates)
}

func TestResolveNoCalendarData(t *testing.T) {
	r, _, _ := setup(t)
	_, err := r.Resolve(context.Background(), chalet, day(2026, 1, 10), day(2026, 1, 12))
	assert.ErrorIs(t, err, availability.ErrCalendarNotFound)
}

func TestResolveRejectsBadRangeBeforeIO(t *testing.T) {
	r, _, reader := setup(t)
	_, err := r.Resolve(context.Background(), chalet, day(2025, 6, 27), day(2025, 6, 27))
	assert.ErrorIs(t, err, daterange.ErrInvalidRange)
	_, err = r.Resolve(context.Background(), chalet, day(2025, 6, 27), day(2025, 6, 20))
	assert.ErrorIs(t, err, daterange.ErrInvalidRange)
	assert.Equal(t, int32(0), reader.calls.Load())
}

func TestResolveUnknownProperty(t *testing.T) {
	r, _, _ := setup(t)
	_, err := r.Resolve(context.Background(), "nope", day(2025, 6, 24), day(2025, 6, 27))
	assert.ErrorIs(t, err, availability.ErrPropertyNotFound)
}

func TestResolveIncompleteOnReadFailure(t *testing.T) {
	r, _, reader := setup(t)
	cause := errors.New("socket closed")
	reader.fail = map[string]error{"2025-07": cause}

	v, err := r.Resolve(context.Background(), chalet, day(2025, 6, 28), day(2025, 7, 3))
	var incomplete *availability.IncompleteDataError
	require.ErrorAs(t, err, &incomplete)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, availability.StatusIncomplete, v.Status)
	assert.Equal(t, []string{"2025-07"}, v.UnreadableMonths)
	assert.Equal(t, int32(2), reader.calls.Load())
}
