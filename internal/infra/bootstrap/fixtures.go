package bootstrap

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"staycal/internal/domain/calendar"
	"staycal/internal/domain/pricecalendar"
	"staycal/internal/domain/pricing"
	"staycal/internal/domain/property"
	"staycal/internal/domain/shared/daterange"
)

type propertyFixture struct {
	ID      string         `json:"id"`
	Name    string         `json:"name"`
	Pricing pricing.Config `json:"pricing"`
	Seed    *seedFixture   `json:"seed,omitempty"`
}

// seedFixture describes a demo calendar relative to the load day.
type seedFixture struct {
	Months  int            `json:"months"`
	Blocked []blockFixture `json:"blocked"`
	// DriftDays flips the priceCalendar flag of these days so audits have
	// something to find.
	DriftDays []int `json:"drift_days"`
}

type blockFixture struct {
	OffsetDays int    `json:"offset_days"`
	Nights     int    `json:"nights"`
	HoldID     string `json:"hold_id,omitempty"`
}

// LoadFixtures imports properties from path and seeds calendars for those
// that have never been written. Existing properties are left alone.
func (rt *Runtime) LoadFixtures(ctx context.Context, path string) error {
	logger := rt.Logger
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logger.Info("property fixtures file not found, skipping", "path", path)
			return nil
		}
		return fmt.Errorf("read fixtures: %w", err)
	}
	if len(data) == 0 {
		logger.Warn("property fixtures file empty", "path", path)
		return nil
	}
	var fixtures []propertyFixture
	if err := json.Unmarshal(data, &fixtures); err != nil {
		return fmt.Errorf("decode fixtures: %w", err)
	}

	now := time.Now().UTC()
	for _, fx := range fixtures {
		if _, err := rt.Properties.ByID(ctx, property.ID(fx.ID)); err == nil {
			logger.Debug("property fixture already present", "property_id", fx.ID)
			continue
		} else if !errors.Is(err, property.ErrNotFound) {
			return err
		}
		p, err := property.New(property.CreateParams{ID: property.ID(fx.ID), Name: fx.Name, Pricing: fx.Pricing, Now: now})
		if err != nil {
			logger.Error("fixture invalid", "property_id", fx.ID, "error", err)
			continue
		}
		if err := rt.Properties.Save(ctx, p); err != nil {
			logger.Error("cannot store fixture property", "property_id", fx.ID, "error", err)
			continue
		}
		if fx.Seed != nil {
			if err := seedCalendar(ctx, rt.Calendar, p, *fx.Seed, now, logger); err != nil {
				logger.Error("cannot seed fixture calendar", "property_id", fx.ID, "error", err)
				continue
			}
		}
		logger.Info("property fixture imported", "property_id", p.ID)
	}
	return nil
}

func seedCalendar(ctx context.Context, store calendar.Store, p *property.Property, seed seedFixture, now time.Time, logger *slog.Logger) error {
	if seed.Months < 1 {
		return nil
	}
	id := string(p.ID)
	today := daterange.Day(now)
	for _, key := range calendar.MonthRange(id, today, seed.Months) {
		for d := 1; d <= key.DaysIn(); d++ {
			err := store.SetAvailabilityDay(ctx, id, key.Date(d), calendar.AvailabilityPatch{
				Available: true,
				Expect:    &calendar.Expectation{Missing: true},
			})
			if err != nil && !errors.Is(err, calendar.ErrWriteConflict) {
				return err
			}
		}
	}
	for _, b := range seed.Blocked {
		start := today.AddDate(0, 0, b.OffsetDays)
		for i := 0; i < b.Nights; i++ {
			patch := calendar.AvailabilityPatch{Available: false, HoldID: b.HoldID}
			if err := store.SetAvailabilityDay(ctx, id, start.AddDate(0, 0, i), patch); err != nil {
				return err
			}
		}
	}
	regen := pricecalendar.Regenerator{Calendar: store, Logger: logger}
	if _, err := regen.Regenerate(ctx, p, today, seed.Months); err != nil {
		return err
	}
	for _, offset := range seed.DriftDays {
		day := today.AddDate(0, 0, offset)
		m, err := store.PriceMonth(ctx, calendar.KeyFor(id, day))
		if err != nil {
			return err
		}
		current, ok := m.Day(day)
		if !ok {
			continue
		}
		flipped := !current.Available
		if err := store.SetPriceDay(ctx, id, day, calendar.PricePatch{Available: &flipped}); err != nil {
			return err
		}
	}
	return nil
}

// DefaultFixturesPath looks for the fixtures file in the usual places.
func DefaultFixturesPath() string {
	candidates := []string{
		filepath.Join("data", "properties.json"),
		filepath.Join("..", "data", "properties.json"),
	}
	for _, candidate := range candidates {
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return candidates[0]
}
