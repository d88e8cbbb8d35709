package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"staycal/internal/domain/pricing"
	"staycal/internal/domain/property"
)

var ErrConcurrentUpdate = errors.New("mongo: concurrent update detected")

type PropertyRepository struct {
	col *mongo.Collection
}

func NewPropertyRepository(db *mongo.Database) *PropertyRepository {
	return &PropertyRepository{col: db.Collection("properties")}
}

func (r *PropertyRepository) ByID(ctx context.Context, id property.ID) (*property.Property, error) {
	var doc propertyDocument
	if err := r.col.FindOne(sessionless{ctx}, bson.M{"_id": string(id)}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, property.ErrNotFound
		}
		return nil, err
	}
	return doc.toProperty()
}

func (r *PropertyRepository) Save(ctx context.Context, p *property.Property) error {
	doc := newPropertyDocument(p)
	filter := bson.M{"_id": doc.ID, "version": p.Version}
	doc.Version = p.Version + 1
	res, err := r.col.UpdateOne(ctx, filter, bson.M{"$set": doc}, options.Update().SetUpsert(true))
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrConcurrentUpdate
		}
		return err
	}
	if res.MatchedCount == 0 && res.UpsertedCount == 0 {
		return ErrConcurrentUpdate
	}
	p.Version = doc.Version
	return nil
}

func (r *PropertyRepository) List(ctx context.Context) ([]*property.Property, error) {
	cur, err := r.col.Find(sessionless{ctx}, bson.M{}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var out []*property.Property
	for cur.Next(ctx) {
		var doc propertyDocument
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		p, err := doc.toProperty()
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, cur.Err()
}

type propertyDocument struct {
	ID        string          `bson:"_id"`
	Name      string          `bson:"name"`
	Pricing   pricingDocument `bson:"pricing"`
	CreatedAt time.Time       `bson:"created_at"`
	UpdatedAt time.Time       `bson:"updated_at"`
	Version   int64           `bson:"version"`
}

// pricingDocument stores decimals as strings so rates survive round trips exactly.
type pricingDocument struct {
	PricePerNight         string             `bson:"price_per_night"`
	BaseOccupancy         int                `bson:"base_occupancy"`
	ExtraGuestFeePerNight string             `bson:"extra_guest_fee_per_night"`
	CleaningFee           string             `bson:"cleaning_fee"`
	BaseCurrency          string             `bson:"base_currency"`
	WeekendAdjustment     string             `bson:"weekend_adjustment"`
	WeekendDays           []string           `bson:"weekend_days"`
	LengthOfStayDiscounts []discountDocument `bson:"length_of_stay_discounts"`
	OccupancyPricing      occupancyDocument  `bson:"occupancy_pricing"`
	MinimumStay           int                `bson:"minimum_stay"`
}

type discountDocument struct {
	NightsThreshold    int    `bson:"nights_threshold"`
	DiscountPercentage string `bson:"discount_percentage"`
	Enabled            bool   `bson:"enabled"`
}

type occupancyDocument struct {
	Enabled               bool   `bson:"enabled"`
	BaseOccupancy         int    `bson:"base_occupancy"`
	ExtraGuestFeePerNight string `bson:"extra_guest_fee_per_night"`
}

func newPropertyDocument(p *property.Property) propertyDocument {
	cfg := p.Pricing.Config()
	doc := propertyDocument{
		ID:        string(p.ID),
		Name:      p.Name,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
		Pricing: pricingDocument{
			PricePerNight:         cfg.PricePerNight.String(),
			BaseOccupancy:         cfg.BaseOccupancy,
			ExtraGuestFeePerNight: cfg.ExtraGuestFeePerNight.String(),
			CleaningFee:           cfg.CleaningFee.String(),
			BaseCurrency:          cfg.BaseCurrency,
			WeekendAdjustment:     cfg.WeekendAdjustment.String(),
			WeekendDays:           cfg.WeekendDays,
			OccupancyPricing: occupancyDocument{
				Enabled:               cfg.OccupancyPricing.Enabled,
				BaseOccupancy:         cfg.OccupancyPricing.BaseOccupancy,
				ExtraGuestFeePerNight: cfg.OccupancyPricing.ExtraGuestFeePerNight.String(),
			},
			MinimumStay: cfg.MinimumStay,
		},
	}
	for _, t := range cfg.LengthOfStayDiscounts {
		doc.Pricing.LengthOfStayDiscounts = append(doc.Pricing.LengthOfStayDiscounts, discountDocument{
			NightsThreshold:    t.NightsThreshold,
			DiscountPercentage: t.DiscountPercentage.String(),
			Enabled:            t.Enabled,
		})
	}
	return doc
}

// toProperty recompiles the stored pricing so invalid records fail at load.
func (d propertyDocument) toProperty() (*property.Property, error) {
	var errs []error
	dec := func(field, raw string) decimal.Decimal {
		if raw == "" {
			return decimal.Zero
		}
		v, err := decimal.NewFromString(raw)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", field, err))
		}
		return v
	}
	cfg := pricing.Config{
		PricePerNight:         dec("price_per_night", d.Pricing.PricePerNight),
		BaseOccupancy:         d.Pricing.BaseOccupancy,
		ExtraGuestFeePerNight: dec("extra_guest_fee_per_night", d.Pricing.ExtraGuestFeePerNight),
		CleaningFee:           dec("cleaning_fee", d.Pricing.CleaningFee),
		BaseCurrency:          d.Pricing.BaseCurrency,
		WeekendAdjustment:     dec("weekend_adjustment", d.Pricing.WeekendAdjustment),
		WeekendDays:           d.Pricing.WeekendDays,
		OccupancyPricing: pricing.OccupancyPricing{
			Enabled:               d.Pricing.OccupancyPricing.Enabled,
			BaseOccupancy:         d.Pricing.OccupancyPricing.BaseOccupancy,
			ExtraGuestFeePerNight: dec("occupancy_pricing.extra_guest_fee_per_night", d.Pricing.OccupancyPricing.ExtraGuestFeePerNight),
		},
		MinimumStay: d.Pricing.MinimumStay,
	}
	for _, t := range d.Pricing.LengthOfStayDiscounts {
		cfg.LengthOfStayDiscounts = append(cfg.LengthOfStayDiscounts, pricing.DiscountTier{
			NightsThreshold:    t.NightsThreshold,
			DiscountPercentage: dec("length_of_stay_discounts.discount_percentage", t.DiscountPercentage),
			Enabled:            t.Enabled,
		})
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("%w: %s: %w", property.ErrInvalidPolicy, d.ID, errors.Join(errs...))
	}
	p, err := property.New(property.CreateParams{ID: property.ID(d.ID), Name: d.Name, Pricing: cfg, Now: d.CreatedAt})
	if err != nil {
		return nil, err
	}
	p.UpdatedAt = d.UpdatedAt.UTC()
	p.Version = d.Version
	return p, nil
}

var _ property.Repository = (*PropertyRepository)(nil)
