package reconciliation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"staycal/internal/domain/calendar"
)

const DefaultConcurrency = 4

// Auditor compares the availability and priceCalendar families. It tolerates
// bad data: an unreadable month is recorded as skipped and the audit goes on.
// It never writes.
type Auditor struct {
	Calendar     calendar.Reader
	Policy       Policy
	FetchTimeout time.Duration
	// Concurrency bounds properties audited at once by AuditAll.
	Concurrency int
	Now         func() time.Time
	Logger      *slog.Logger
}

// Audit inspects one property over w.
func (a *Auditor) Audit(ctx context.Context, propertyID string, w Window) (*Report, error) {
	if strings.TrimSpace(propertyID) == "" {
		return nil, ErrPropertyRequired
	}
	if err := w.Validate(); err != nil {
		return nil, err
	}
	now := a.Clock()
	keys := w.Keys(propertyID)

	var (
		avail  calendar.Batch[calendar.AvailabilityMonth]
		prices calendar.Batch[calendar.PriceMonth]
	)
	var g errgroup.Group
	g.Go(func() error {
		avail = calendar.FetchAvailability(ctx, a.Calendar, keys, a.timeout())
		return nil
	})
	g.Go(func() error {
		prices = calendar.FetchPrices(ctx, a.Calendar, keys, a.timeout())
		return nil
	})
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	report := &Report{PropertyID: propertyID, GeneratedAt: now, Window: w}
	for _, key := range keys {
		if cause := monthFailure(key, avail, prices); cause != nil {
			report.Skipped = append(report.Skipped, SkippedMonth{Month: key.YYYYMM(), Error: cause.Error()})
			if a.Logger != nil {
				a.Logger.Warn("audit month skipped", "property_id", propertyID, "month", key.YYYYMM(), "error", cause)
			}
			continue
		}
		report.MonthsAnalyzed++
		report.Discrepancies = append(report.Discrepancies, a.compareMonth(key, avail.Found[key], prices.Found[key], now)...)
	}
	report.finish()

	if a.Logger != nil {
		a.Logger.Info("audit completed",
			"property_id", propertyID,
			"months", report.MonthsAnalyzed,
			"skipped", len(report.Skipped),
			"discrepancies", len(report.Discrepancies),
			"health_score", report.HealthScore,
		)
	}
	return report, nil
}

func monthFailure(key calendar.MonthKey, avail calendar.Batch[calendar.AvailabilityMonth], prices calendar.Batch[calendar.PriceMonth]) error {
	var errs []error
	if err, ok := avail.Failed[key]; ok {
		errs = append(errs, fmt.Errorf("%s: %w", calendar.FamilyAvailability, err))
	}
	if err, ok := prices.Failed[key]; ok {
		errs = append(errs, fmt.Errorf("%s: %w", calendar.FamilyPriceCalendar, err))
	}
	return errors.Join(errs...)
}

// compareMonth walks the union of day entries of both documents. Either may be nil.
func (a *Auditor) compareMonth(key calendar.MonthKey, avail *calendar.AvailabilityMonth, price *calendar.PriceMonth, now time.Time) []Discrepancy {
	days := make(map[int]struct{})
	if avail != nil {
		for d := range avail.Days {
			days[d] = struct{}{}
		}
	}
	if price != nil {
		for d := range price.Days {
			days[d] = struct{}{}
		}
	}
	ordered := make([]int, 0, len(days))
	for d := range days {
		if d >= 1 && d <= key.DaysIn() {
			ordered = append(ordered, d)
		}
	}
	sort.Ints(ordered)

	var out []Discrepancy
	for _, d := range ordered {
		date := key.Date(d)
		var (
			av, aok = availDay(avail, d)
			pv, pok = priceDay(price, d)
		)
		rec := Discrepancy{Date: date, PropertyID: key.PropertyID, HoldID: av.HoldID}
		switch {
		case aok && pok:
			if av.Available == pv.Available {
				continue
			}
			rec.Kind = KindMismatch
			rec.AvailabilityValue = boolPtr(av.Available)
			rec.PriceCalendarValue = boolPtr(pv.Available)
			rec.Description = fmt.Sprintf("availability says %s, priceCalendar says %s", word(av.Available), word(pv.Available))
		case aok:
			rec.Kind = KindOnlyInAvailability
			rec.AvailabilityValue = boolPtr(av.Available)
			rec.Description = "only in availability"
		case pok:
			rec.Kind = KindOnlyInPriceCalendar
			rec.PriceCalendarValue = boolPtr(pv.Available)
			rec.Description = "only in priceCalendar"
		default:
			continue
		}
		rec.Severity = a.Policy.Classify(rec.Kind, date, now)
		out = append(out, rec)
	}
	return out
}

func availDay(m *calendar.AvailabilityMonth, d int) (calendar.AvailabilityDay, bool) {
	if m == nil {
		return calendar.AvailabilityDay{}, false
	}
	v, ok := m.Days[d]
	return v, ok
}

func priceDay(m *calendar.PriceMonth, d int) (calendar.PriceDay, bool) {
	if m == nil {
		return calendar.PriceDay{}, false
	}
	v, ok := m.Days[d]
	return v, ok
}

func word(available bool) string {
	if available {
		return "available"
	}
	return "unavailable"
}

// Checkpoint remembers which properties a sweep has already finished so an
// interrupted run can resume.
type Checkpoint interface {
	Done(ctx context.Context, runID, propertyID string) (bool, error)
	MarkDone(ctx context.Context, runID, propertyID string) error
}

// Sink receives finished reports.
type Sink interface {
	Publish(ctx context.Context, report *Report) error
}

type SinkFunc func(ctx context.Context, report *Report) error

func (f SinkFunc) Publish(ctx context.Context, report *Report) error { return f(ctx, report) }

// Sweep summarises a multi-property run.
type Sweep struct {
	RunID    string
	Reports  []*Report
	Resumed  []string
	Failed   map[string]error
	Canceled bool
}

// AuditAll audits every property with bounded concurrency. Properties the
// checkpoint already holds for runID are skipped; a property is checkpointed
// only after its report was published.
func (a *Auditor) AuditAll(ctx context.Context, runID string, propertyIDs []string, w Window, cp Checkpoint, sink Sink) (*Sweep, error) {
	if err := w.Validate(); err != nil {
		return nil, err
	}
	sweep := &Sweep{RunID: runID, Failed: make(map[string]error)}
	var mu sync.Mutex

	limit := a.Concurrency
	if limit <= 0 {
		limit = DefaultConcurrency
	}
	var g errgroup.Group
	g.SetLimit(limit)
	for _, id := range propertyIDs {
		if ctx.Err() != nil {
			break
		}
		id := id
		g.Go(func() error {
			report, resumed, err := a.auditOne(ctx, runID, id, w, cp, sink)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err != nil:
				sweep.Failed[id] = err
			case resumed:
				sweep.Resumed = append(sweep.Resumed, id)
			default:
				sweep.Reports = append(sweep.Reports, report)
			}
			return nil
		})
	}
	_ = g.Wait()

	sort.Slice(sweep.Reports, func(i, j int) bool { return sweep.Reports[i].PropertyID < sweep.Reports[j].PropertyID })
	sort.Strings(sweep.Resumed)
	if err := ctx.Err(); err != nil {
		sweep.Canceled = true
		return sweep, err
	}
	return sweep, nil
}

func (a *Auditor) auditOne(ctx context.Context, runID, propertyID string, w Window, cp Checkpoint, sink Sink) (*Report, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	if cp != nil && runID != "" {
		done, err := cp.Done(ctx, runID, propertyID)
		if err != nil {
			return nil, false, fmt.Errorf("reconciliation: checkpoint: %w", err)
		}
		if done {
			return nil, true, nil
		}
	}
	report, err := a.Audit(ctx, propertyID, w)
	if err != nil {
		return nil, false, err
	}
	report.RunID = runID
	if sink != nil {
		if err := sink.Publish(ctx, report); err != nil {
			return nil, false, fmt.Errorf("reconciliation: publish report: %w", err)
		}
	}
	if cp != nil && runID != "" {
		if err := cp.MarkDone(ctx, runID, propertyID); err != nil {
			return nil, false, fmt.Errorf("reconciliation: checkpoint: %w", err)
		}
	}
	return report, false, nil
}

func (a *Auditor) timeout() time.Duration {
	if a.FetchTimeout > 0 {
		return a.FetchTimeout
	}
	return calendar.DefaultFetchTimeout
}

// Clock is the audit's notion of now.
func (a *Auditor) Clock() time.Time {
	if a.Now != nil {
		return a.Now().UTC()
	}
	return time.Now().UTC()
}

func boolPtr(v bool) *bool { return &v }
