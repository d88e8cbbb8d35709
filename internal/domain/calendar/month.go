package calendar

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"staycal/internal/domain/shared/daterange"
)

var (
	ErrMonthNotFound  = errors.New("calendar: month not found")
	ErrWriteConflict  = errors.New("calendar: concurrent day write conflict")
	ErrInvalidKey     = errors.New("calendar: invalid month key")
	ErrInvalidDay     = errors.New("calendar: day out of month")
	ErrPropertyNeeded = errors.New("calendar: property id required")
)

// Family names one of the two per-month document collections.
type Family string

const (
	FamilyAvailability  Family = "availability"
	FamilyPriceCalendar Family = "priceCalendar"
)

// MonthKey addresses a month document: {propertyId}_{YYYY-MM}.
type MonthKey struct {
	PropertyID string
	Year       int
	Month      time.Month
}

// KeyFor returns the key of the month containing day.
func KeyFor(propertyID string, day time.Time) MonthKey {
	day = day.UTC()
	return MonthKey{PropertyID: propertyID, Year: day.Year(), Month: day.Month()}
}

// ParseMonthKey parses "{propertyId}_{YYYY-MM}". Property ids may contain underscores.
func ParseMonthKey(raw string) (MonthKey, error) {
	idx := strings.LastIndex(raw, "_")
	if idx <= 0 || idx == len(raw)-1 {
		return MonthKey{}, fmt.Errorf("%w: %q", ErrInvalidKey, raw)
	}
	key, err := MonthOf(raw[:idx], raw[idx+1:])
	if err != nil {
		return MonthKey{}, err
	}
	return key, nil
}

// MonthOf builds a key from a property id and a YYYY-MM string.
func MonthOf(propertyID, yyyyMM string) (MonthKey, error) {
	t, err := time.Parse("2006-01", strings.TrimSpace(yyyyMM))
	if err != nil {
		return MonthKey{}, fmt.Errorf("%w: %q", ErrInvalidKey, yyyyMM)
	}
	if strings.TrimSpace(propertyID) == "" {
		return MonthKey{}, ErrPropertyNeeded
	}
	return MonthKey{PropertyID: propertyID, Year: t.Year(), Month: t.Month()}, nil
}

func (k MonthKey) YYYYMM() string {
	return fmt.Sprintf("%04d-%02d", k.Year, int(k.Month))
}

func (k MonthKey) String() string {
	return k.PropertyID + "_" + k.YYYYMM()
}

// First returns midnight UTC of the first day of the month.
func (k MonthKey) First() time.Time {
	return time.Date(k.Year, k.Month, 1, 0, 0, 0, 0, time.UTC)
}

// Date returns the UTC date of day-of-month d.
func (k MonthKey) Date(d int) time.Time {
	return time.Date(k.Year, k.Month, d, 0, 0, 0, 0, time.UTC)
}

func (k MonthKey) DaysIn() int {
	return k.First().AddDate(0, 1, -1).Day()
}

func (k MonthKey) Next() MonthKey {
	return KeyFor(k.PropertyID, k.First().AddDate(0, 1, 0))
}

// MonthsCovering returns every month touched by the occupied nights of dr.
func MonthsCovering(propertyID string, dr daterange.DateRange) []MonthKey {
	days := dr.Days()
	if len(days) == 0 {
		return nil
	}
	first := KeyFor(propertyID, days[0])
	last := KeyFor(propertyID, days[len(days)-1])
	keys := []MonthKey{first}
	for k := first; k != last; {
		k = k.Next()
		keys = append(keys, k)
	}
	return keys
}

// MonthRange returns n consecutive months starting at the month of start.
func MonthRange(propertyID string, start time.Time, n int) []MonthKey {
	if n <= 0 {
		return nil
	}
	keys := make([]MonthKey, 0, n)
	k := KeyFor(propertyID, start)
	for i := 0; i < n; i++ {
		keys = append(keys, k)
		k = k.Next()
	}
	return keys
}

// AvailabilityDay is one entry of the authoritative family. A hold id marks a
// provisional reservation; unavailable without a hold is a booking or host block.
type AvailabilityDay struct {
	Available bool   `json:"available"`
	HoldID    string `json:"holdId,omitempty"`
}

func (d AvailabilityDay) Held() bool { return d.HoldID != "" }

type AvailabilityMonth struct {
	Key       MonthKey
	Days      map[int]AvailabilityDay
	Version   int64
	UpdatedAt time.Time
}

func NewAvailabilityMonth(key MonthKey) *AvailabilityMonth {
	return &AvailabilityMonth{Key: key, Days: make(map[int]AvailabilityDay)}
}

// Day returns the entry for date if the document holds one.
func (m *AvailabilityMonth) Day(date time.Time) (AvailabilityDay, bool) {
	if m == nil || KeyFor(m.Key.PropertyID, date) != m.Key {
		return AvailabilityDay{}, false
	}
	d, ok := m.Days[date.UTC().Day()]
	return d, ok
}

func (m *AvailabilityMonth) Clone() *AvailabilityMonth {
	if m == nil {
		return nil
	}
	out := *m
	out.Days = make(map[int]AvailabilityDay, len(m.Days))
	for k, v := range m.Days {
		out.Days[k] = v
	}
	return &out
}

// PriceDay is one entry of the priceCalendar family. Its Available flag mirrors
// the availability family and may drift from it.
type PriceDay struct {
	Available    bool            `json:"available"`
	BaseRate     decimal.Decimal `json:"baseRate"`
	AdjustedRate decimal.Decimal `json:"adjustedRate"`
	MinimumStay  int             `json:"minimumStay,omitempty"`
}

type PriceMonth struct {
	Key       MonthKey
	Days      map[int]PriceDay
	Version   int64
	UpdatedAt time.Time
}

func NewPriceMonth(key MonthKey) *PriceMonth {
	return &PriceMonth{Key: key, Days: make(map[int]PriceDay)}
}

func (m *PriceMonth) Day(date time.Time) (PriceDay, bool) {
	if m == nil || KeyFor(m.Key.PropertyID, date) != m.Key {
		return PriceDay{}, false
	}
	d, ok := m.Days[date.UTC().Day()]
	return d, ok
}

func (m *PriceMonth) Clone() *PriceMonth {
	if m == nil {
		return nil
	}
	out := *m
	out.Days = make(map[int]PriceDay, len(m.Days))
	for k, v := range m.Days {
		out.Days[k] = v
	}
	return &out
}

func validDay(key MonthKey, day int) error {
	if day < 1 || day > key.DaysIn() {
		return fmt.Errorf("%w: %s day %d", ErrInvalidDay, key, day)
	}
	return nil
}
