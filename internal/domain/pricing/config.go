package pricing

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"staycal/internal/domain/shared/money"
)

// DiscountTier grants DiscountPercentage off the subtotal once a stay reaches
// NightsThreshold nights. Tiers are never combined.
type DiscountTier struct {
	NightsThreshold    int             `json:"nightsThreshold"`
	DiscountPercentage decimal.Decimal `json:"discountPercentage"`
	Enabled            bool            `json:"enabled"`
}

type OccupancyPricing struct {
	Enabled               bool            `json:"enabled"`
	BaseOccupancy         int             `json:"baseOccupancy"`
	ExtraGuestFeePerNight decimal.Decimal `json:"extraGuestFeePerNight"`
}

// Config is the pricing section of a property record, as stored.
type Config struct {
	PricePerNight         decimal.Decimal  `json:"pricePerNight"`
	BaseOccupancy         int              `json:"baseOccupancy"`
	ExtraGuestFeePerNight decimal.Decimal  `json:"extraGuestFeePerNight"`
	CleaningFee           decimal.Decimal  `json:"cleaningFee"`
	BaseCurrency          string           `json:"baseCurrency"`
	WeekendAdjustment     decimal.Decimal  `json:"weekendAdjustment"`
	WeekendDays           []string         `json:"weekendDays"`
	LengthOfStayDiscounts []DiscountTier   `json:"lengthOfStayDiscounts"`
	OccupancyPricing      OccupancyPricing `json:"occupancyPricing"`
	MinimumStay           int              `json:"minimumStay,omitempty"`
}

// ConfigurationError lists every problem found in a pricing config.
type ConfigurationError struct {
	Problems []string
}

func (e *ConfigurationError) Error() string {
	return "pricing: invalid configuration: " + strings.Join(e.Problems, "; ")
}

func (e *ConfigurationError) add(format string, args ...any) {
	e.Problems = append(e.Problems, fmt.Sprintf(format, args...))
}

var weekdayNames = map[string]time.Weekday{
	"sunday": time.Sunday, "sun": time.Sunday,
	"monday": time.Monday, "mon": time.Monday,
	"tuesday": time.Tuesday, "tue": time.Tuesday,
	"wednesday": time.Wednesday, "wed": time.Wednesday,
	"thursday": time.Thursday, "thu": time.Thursday,
	"friday": time.Friday, "fri": time.Friday,
	"saturday": time.Saturday, "sat": time.Saturday,
}

// ParseWeekday accepts full or three letter English day names.
func ParseWeekday(name string) (time.Weekday, bool) {
	d, ok := weekdayNames[strings.ToLower(strings.TrimSpace(name))]
	return d, ok
}

// Validate reports every invalid field at once.
func (c Config) Validate() error {
	_, err := Compile(c)
	return err
}

// Policy is a validated, ready-to-price Config. Build it with Compile when a
// property record is loaded so calculations never re-check configuration.
type Policy struct {
	currency      string
	nightly       decimal.Decimal
	weekendFactor decimal.Decimal
	weekend       [7]bool
	cleaning      decimal.Decimal
	baseOccupancy int
	extraGuestFee decimal.Decimal
	tiers         []DiscountTier // enabled only, threshold descending
	minimumStay   int
	source        Config
}

// Compile validates cfg and returns the policy used by Calculate.
func Compile(cfg Config) (Policy, error) {
	cerr := &ConfigurationError{}

	currency, err := money.NormalizeCurrency(cfg.BaseCurrency)
	if err != nil {
		cerr.add("baseCurrency %q is not a 3-letter code", cfg.BaseCurrency)
	}
	if !cfg.PricePerNight.IsPositive() {
		cerr.add("pricePerNight must be positive")
	}
	if cfg.CleaningFee.IsNegative() {
		cerr.add("cleaningFee must not be negative")
	}
	if cfg.ExtraGuestFeePerNight.IsNegative() {
		cerr.add("extraGuestFeePerNight must not be negative")
	}
	if cfg.BaseOccupancy < 0 {
		cerr.add("baseOccupancy must not be negative")
	}
	if cfg.MinimumStay < 0 {
		cerr.add("minimumStay must not be negative")
	}
	factor := cfg.WeekendAdjustment
	if factor.IsZero() {
		factor = decimal.NewFromInt(1)
	}
	if factor.IsNegative() {
		cerr.add("weekendAdjustment must be positive")
	}

	p := Policy{
		currency:      currency,
		nightly:       cfg.PricePerNight,
		weekendFactor: factor,
		cleaning:      cfg.CleaningFee,
		baseOccupancy: cfg.BaseOccupancy,
		extraGuestFee: cfg.ExtraGuestFeePerNight,
		minimumStay:   cfg.MinimumStay,
	}
	if cfg.OccupancyPricing.Enabled {
		if cfg.OccupancyPricing.BaseOccupancy < 0 {
			cerr.add("occupancyPricing.baseOccupancy must not be negative")
		}
		if cfg.OccupancyPricing.ExtraGuestFeePerNight.IsNegative() {
			cerr.add("occupancyPricing.extraGuestFeePerNight must not be negative")
		}
		p.baseOccupancy = cfg.OccupancyPricing.BaseOccupancy
		p.extraGuestFee = cfg.OccupancyPricing.ExtraGuestFeePerNight
	}

	for _, name := range cfg.WeekendDays {
		day, ok := ParseWeekday(name)
		if !ok {
			cerr.add("weekendDays: unknown day %q", name)
			continue
		}
		p.weekend[day] = true
	}

	seen := map[int]bool{}
	hundred := decimal.NewFromInt(100)
	for i, tier := range cfg.LengthOfStayDiscounts {
		if tier.NightsThreshold < 1 {
			cerr.add("lengthOfStayDiscounts[%d]: nightsThreshold must be at least 1", i)
		}
		if tier.DiscountPercentage.IsNegative() || tier.DiscountPercentage.GreaterThan(hundred) {
			cerr.add("lengthOfStayDiscounts[%d]: discountPercentage must be within 0..100", i)
		}
		if !tier.Enabled {
			continue
		}
		if seen[tier.NightsThreshold] {
			cerr.add("lengthOfStayDiscounts[%d]: overlaps another enabled tier at %d nights", i, tier.NightsThreshold)
			continue
		}
		seen[tier.NightsThreshold] = true
		p.tiers = append(p.tiers, tier)
	}
	sort.Slice(p.tiers, func(i, j int) bool { return p.tiers[i].NightsThreshold > p.tiers[j].NightsThreshold })

	if len(cerr.Problems) > 0 {
		return Policy{}, cerr
	}
	p.source = cfg
	return p, nil
}

// MustCompile panics on invalid configs; useful in tests and fixtures.
func MustCompile(cfg Config) Policy {
	p, err := Compile(cfg)
	if err != nil {
		panic(err)
	}
	return p
}

func (p Policy) Currency() string { return p.currency }

func (p Policy) MinimumStay() int { return p.minimumStay }

// Config returns the configuration the policy was compiled from.
func (p Policy) Config() Config { return p.source }

func (p Policy) IsWeekend(day time.Time) bool {
	return p.weekend[day.UTC().Weekday()]
}

// NightlyRate is the rate charged for the night starting on day.
func (p Policy) NightlyRate(day time.Time) money.Money {
	rate := p.nightly
	if p.IsWeekend(day) {
		rate = rate.Mul(p.weekendFactor)
	}
	return money.Money{Amount: rate, Currency: p.currency}.Round()
}

// ExpectedRates returns the base and adjusted rate the price calendar should
// carry for day.
func (p Policy) ExpectedRates(day time.Time) (base, adjusted decimal.Decimal) {
	return p.nightly.Round(money.Places), p.NightlyRate(day).Amount
}

// tierFor picks the single enabled tier with the highest threshold not above nights.
func (p Policy) tierFor(nights int) (DiscountTier, bool) {
	for _, tier := range p.tiers {
		if tier.NightsThreshold <= nights {
			return tier, true
		}
	}
	return DiscountTier{}, false
}
