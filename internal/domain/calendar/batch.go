package calendar

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// maxParallelFetches caps in-flight month reads for one batch.
const maxParallelFetches = 12

// DefaultFetchTimeout bounds a single month read when callers pass zero.
const DefaultFetchTimeout = 5 * time.Second

// Batch is the outcome of reading several month documents at once. A key lands
// in exactly one of Found, Missing or Failed.
type Batch[T any] struct {
	Found   map[MonthKey]*T
	Missing []MonthKey
	Failed  map[MonthKey]error
}

// Complete reports whether every read either found a document or confirmed its absence.
func (b Batch[T]) Complete() bool { return len(b.Failed) == 0 }

// FailedKeys lists unreadable months in key order.
func (b Batch[T]) FailedKeys() []MonthKey {
	keys := make([]MonthKey, 0, len(b.Failed))
	for k := range b.Failed {
		keys = append(keys, k)
	}
	sortKeys(keys)
	return keys
}

// FetchAvailability reads the availability documents for keys concurrently.
func FetchAvailability(ctx context.Context, r Reader, keys []MonthKey, timeout time.Duration) Batch[AvailabilityMonth] {
	return fetch(ctx, keys, timeout, r.AvailabilityMonth)
}

// FetchPrices reads the priceCalendar documents for keys concurrently.
func FetchPrices(ctx context.Context, r Reader, keys []MonthKey, timeout time.Duration) Batch[PriceMonth] {
	return fetch(ctx, keys, timeout, r.PriceMonth)
}

func fetch[T any](ctx context.Context, keys []MonthKey, timeout time.Duration, get func(context.Context, MonthKey) (*T, error)) Batch[T] {
	if timeout <= 0 {
		timeout = DefaultFetchTimeout
	}
	out := Batch[T]{Found: make(map[MonthKey]*T, len(keys)), Failed: make(map[MonthKey]error)}
	var mu sync.Mutex
	var g errgroup.Group
	g.SetLimit(maxParallelFetches)
	for _, key := range keys {
		key := key
		g.Go(func() error {
			fctx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()
			doc, err := get(fctx, key)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case errors.Is(err, ErrMonthNotFound):
				out.Missing = append(out.Missing, key)
			case err != nil:
				out.Failed[key] = err
			case doc == nil:
				out.Missing = append(out.Missing, key)
			default:
				out.Found[key] = doc
			}
			return nil
		})
	}
	_ = g.Wait()
	sortKeys(out.Missing)
	return out
}

func sortKeys(keys []MonthKey) {
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].PropertyID != keys[j].PropertyID {
			return keys[i].PropertyID < keys[j].PropertyID
		}
		if keys[i].Year != keys[j].Year {
			return keys[i].Year < keys[j].Year
		}
		return keys[i].Month < keys[j].Month
	})
}
