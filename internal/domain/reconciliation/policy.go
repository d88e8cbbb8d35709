package reconciliation

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"staycal/internal/domain/calendar"
	"staycal/internal/domain/shared/daterange"
)

var (
	ErrPropertyRequired = errors.New("reconciliation: property id is required")
	ErrEmptyWindow      = errors.New("reconciliation: window must cover at least one month")
	ErrInvalidRunID     = errors.New("reconciliation: run id may only contain letters, digits, '.', '_' and '-'")
)

const maxRunIDLength = 128

// ValidateRunID accepts ids that are safe as a single object-name segment.
// An empty id is valid; callers decide whether one is required.
func ValidateRunID(runID string) error {
	if len(runID) > maxRunIDLength || runID == "." || runID == ".." {
		return ErrInvalidRunID
	}
	for _, r := range runID {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '-', r == '_', r == '.':
		default:
			return ErrInvalidRunID
		}
	}
	return nil
}

type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

func (s Severity) rank() int {
	switch s {
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 1
	}
	return 0
}

// AtLeast reports whether s is as severe as min. An empty min matches everything.
func (s Severity) AtLeast(min Severity) bool {
	return s.rank() >= min.rank()
}

func ParseSeverity(raw string) (Severity, bool) {
	switch s := Severity(raw); s {
	case SeverityLow, SeverityMedium, SeverityHigh:
		return s, true
	}
	return "", false
}

type Kind string

const (
	KindMismatch            Kind = "mismatch"
	KindOnlyInAvailability  Kind = "only_in_availability"
	KindOnlyInPriceCalendar Kind = "only_in_price_calendar"
)

const DefaultNearFutureWindow = 30 * 24 * time.Hour

// Policy holds the classification cutoffs.
type Policy struct {
	NearFutureWindow time.Duration
}

func DefaultPolicy() Policy {
	return Policy{NearFutureWindow: DefaultNearFutureWindow}
}

// Classify grades a discrepancy on date as seen at now. Disagreements on
// nights about to be sold are high, further out medium, already elapsed low.
// A day present in only one family is always medium.
func (p Policy) Classify(kind Kind, date, now time.Time) Severity {
	if kind != KindMismatch {
		return SeverityMedium
	}
	window := p.NearFutureWindow
	if window <= 0 {
		window = DefaultNearFutureWindow
	}
	today := daterange.Day(now)
	date = daterange.Day(date)
	switch {
	case date.Before(today):
		return SeverityLow
	case !date.After(now.Add(window)):
		return SeverityHigh
	default:
		return SeverityMedium
	}
}

// Window is a run of consecutive months starting at the month of Start.
type Window struct {
	Start  time.Time `json:"start"`
	Months int       `json:"months"`
}

// RollingWindow spans back months before the month of now through forward
// months after it.
func RollingWindow(now time.Time, back, forward int) Window {
	if back < 0 {
		back = 0
	}
	if forward < 0 {
		forward = 0
	}
	first := time.Date(now.UTC().Year(), now.UTC().Month(), 1, 0, 0, 0, 0, time.UTC)
	return Window{Start: first.AddDate(0, -back, 0), Months: back + forward + 1}
}

func (w Window) Keys(propertyID string) []calendar.MonthKey {
	return calendar.MonthRange(propertyID, w.Start, w.Months)
}

func (w Window) Validate() error {
	if w.Months < 1 || w.Start.IsZero() {
		return ErrEmptyWindow
	}
	return nil
}

// ParseWindow builds a window from a YYYY-MM start. An empty start with zero
// months yields the zero Window, which callers replace with a rolling one.
func ParseWindow(start string, months int) (Window, error) {
	start = strings.TrimSpace(start)
	if start == "" && months == 0 {
		return Window{}, nil
	}
	t, err := time.Parse("2006-01", start)
	if err != nil {
		return Window{}, fmt.Errorf("%w: start must be YYYY-MM", ErrEmptyWindow)
	}
	w := Window{Start: t.UTC(), Months: months}
	return w, w.Validate()
}
