package mongo

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"staycal/internal/domain/calendar"
)

const (
	availabilityCollection = "cal_availability"
	priceCollection        = "cal_price"
)

// CalendarStore keeps one document per property and month in each family,
// keyed "{propertyId}_{YYYY-MM}". Day writes are single conditional updates on
// days.<n>, so concurrent writers to the same month never lose each other's days.
type CalendarStore struct {
	availability *mongo.Collection
	prices       *mongo.Collection
	now          func() time.Time
}

func NewCalendarStore(db *mongo.Database) *CalendarStore {
	s := &CalendarStore{
		availability: db.Collection(availabilityCollection),
		prices:       db.Collection(priceCollection),
		now:          time.Now,
	}
	idx := mongo.IndexModel{Keys: bson.D{{Key: "property_id", Value: 1}, {Key: "month", Value: 1}}}
	_, _ = s.availability.Indexes().CreateOne(context.Background(), idx)
	_, _ = s.prices.Indexes().CreateOne(context.Background(), idx)
	return s
}

func (s *CalendarStore) AvailabilityMonth(ctx context.Context, key calendar.MonthKey) (*calendar.AvailabilityMonth, error) {
	var doc availabilityDocument
	if err := s.availability.FindOne(sessionless{ctx}, bson.M{"_id": key.String()}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, calendar.ErrMonthNotFound
		}
		return nil, err
	}
	return doc.toMonth(key)
}

func (s *CalendarStore) PriceMonth(ctx context.Context, key calendar.MonthKey) (*calendar.PriceMonth, error) {
	var doc priceDocument
	if err := s.prices.FindOne(sessionless{ctx}, bson.M{"_id": key.String()}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, calendar.ErrMonthNotFound
		}
		return nil, err
	}
	return doc.toMonth(key)
}

func (s *CalendarStore) SetAvailabilityDay(ctx context.Context, propertyID string, day time.Time, patch calendar.AvailabilityPatch) error {
	if propertyID == "" {
		return calendar.ErrPropertyNeeded
	}
	key := calendar.KeyFor(propertyID, day)
	field := dayField(day)
	set := bson.M{
		field:         availabilityDayDocument{Available: patch.Available, HoldID: patch.HoldID},
		"property_id": propertyID,
		"month":       key.YYYYMM(),
		"updated_at":  s.now().UTC(),
	}
	return s.update(ctx, s.availability, key, field, patch.Expect, set)
}

func (s *CalendarStore) SetPriceDay(ctx context.Context, propertyID string, day time.Time, patch calendar.PricePatch) error {
	if propertyID == "" {
		return calendar.ErrPropertyNeeded
	}
	key := calendar.KeyFor(propertyID, day)
	field := dayField(day)
	set := bson.M{
		"property_id": propertyID,
		"month":       key.YYYYMM(),
		"updated_at":  s.now().UTC(),
	}
	if patch.Available != nil {
		set[field+".available"] = *patch.Available
	}
	if patch.BaseRate != nil {
		set[field+".base_rate"] = patch.BaseRate.String()
	}
	if patch.AdjustedRate != nil {
		set[field+".adjusted_rate"] = patch.AdjustedRate.String()
	}
	if patch.MinimumStay != nil {
		set[field+".minimum_stay"] = *patch.MinimumStay
	}
	return s.update(ctx, s.prices, key, field, patch.Expect, set)
}

// update applies one guarded day write. Expectations that need the day to
// exist never upsert: a missing document is simply a conflict. The others
// upsert, and a duplicate _id on insert means the day appeared concurrently.
func (s *CalendarStore) update(ctx context.Context, col *mongo.Collection, key calendar.MonthKey, field string, expect *calendar.Expectation, set bson.M) error {
	filter := bson.M{"_id": key.String()}
	upsert := true
	if expect != nil {
		switch {
		case expect.Missing:
			filter[field] = bson.M{"$exists": false}
		default:
			filter[field] = bson.M{"$exists": true}
			upsert = false
			if expect.Available != nil {
				filter[field+".available"] = *expect.Available
			}
			if expect.HoldID != nil {
				if *expect.HoldID == "" {
					filter[field+".hold_id"] = bson.M{"$in": bson.A{"", nil}}
				} else {
					filter[field+".hold_id"] = *expect.HoldID
				}
			}
		}
	}
	update := bson.M{"$set": set, "$inc": bson.M{"version": 1}}
	res, err := col.UpdateOne(ctx, filter, update, options.Update().SetUpsert(upsert))
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return calendar.ErrWriteConflict
		}
		if isWriteConflict(err) {
			return fmt.Errorf("%w: %v", calendar.ErrWriteConflict, err)
		}
		return fmt.Errorf("mongo: update %s %s: %w", col.Name(), field, err)
	}
	if res.MatchedCount == 0 && res.UpsertedCount == 0 {
		return calendar.ErrWriteConflict
	}
	return nil
}

func dayField(day time.Time) string {
	return "days." + strconv.Itoa(day.UTC().Day())
}

type availabilityDayDocument struct {
	Available bool   `bson:"available"`
	HoldID    string `bson:"hold_id,omitempty"`
}

type availabilityDocument struct {
	ID         string                             `bson:"_id"`
	PropertyID string                             `bson:"property_id"`
	Month      string                             `bson:"month"`
	Days       map[string]availabilityDayDocument `bson:"days"`
	Version    int64                              `bson:"version"`
	UpdatedAt  time.Time                          `bson:"updated_at"`
}

func (d availabilityDocument) toMonth(key calendar.MonthKey) (*calendar.AvailabilityMonth, error) {
	m := calendar.NewAvailabilityMonth(key)
	m.Version = d.Version
	m.UpdatedAt = d.UpdatedAt
	for raw, day := range d.Days {
		n, err := dayNumber(key, raw)
		if err != nil {
			return nil, err
		}
		m.Days[n] = calendar.AvailabilityDay{Available: day.Available, HoldID: day.HoldID}
	}
	return m, nil
}

type priceDayDocument struct {
	Available    bool   `bson:"available"`
	BaseRate     string `bson:"base_rate,omitempty"`
	AdjustedRate string `bson:"adjusted_rate,omitempty"`
	MinimumStay  int    `bson:"minimum_stay,omitempty"`
}

type priceDocument struct {
	ID         string                      `bson:"_id"`
	PropertyID string                      `bson:"property_id"`
	Month      string                      `bson:"month"`
	Days       map[string]priceDayDocument `bson:"days"`
	Version    int64                       `bson:"version"`
	UpdatedAt  time.Time                   `bson:"updated_at"`
}

func (d priceDocument) toMonth(key calendar.MonthKey) (*calendar.PriceMonth, error) {
	m := calendar.NewPriceMonth(key)
	m.Version = d.Version
	m.UpdatedAt = d.UpdatedAt
	for raw, day := range d.Days {
		n, err := dayNumber(key, raw)
		if err != nil {
			return nil, err
		}
		base, err := parseRate(day.BaseRate)
		if err != nil {
			return nil, fmt.Errorf("mongo: %s day %s base rate: %w", key, raw, err)
		}
		adjusted, err := parseRate(day.AdjustedRate)
		if err != nil {
			return nil, fmt.Errorf("mongo: %s day %s adjusted rate: %w", key, raw, err)
		}
		m.Days[n] = calendar.PriceDay{
			Available:    day.Available,
			BaseRate:     base,
			AdjustedRate: adjusted,
			MinimumStay:  day.MinimumStay,
		}
	}
	return m, nil
}

// dayNumber rejects keys that are not a day of the month; the month is then
// reported as unreadable rather than silently truncated.
func dayNumber(key calendar.MonthKey, raw string) (int, error) {
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 || n > key.DaysIn() {
		return 0, fmt.Errorf("%w: %s day %q", calendar.ErrInvalidDay, key, raw)
	}
	return n, nil
}

func parseRate(raw string) (decimal.Decimal, error) {
	if raw == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(raw)
}

var _ calendar.Store = (*CalendarStore)(nil)
