package pricing

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"staycal/internal/domain/shared/daterange"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func dec(v float64) decimal.Decimal { return decimal.NewFromFloat(v) }

func chaletConfig() Config {
	return Config{
		PricePerNight:         dec(180),
		BaseOccupancy:         4,
		ExtraGuestFeePerNight: dec(25),
		CleaningFee:           dec(40),
		BaseCurrency:          "ron",
		WeekendAdjustment:     dec(1.2),
		WeekendDays:           []string{"friday", "saturday"},
		LengthOfStayDiscounts: []DiscountTier{
			{NightsThreshold: 7, DiscountPercentage: dec(5), Enabled: true},
			{NightsThreshold: 14, DiscountPercentage: dec(10), Enabled: true},
			{NightsThreshold: 30, DiscountPercentage: dec(25), Enabled: false},
		},
	}
}

func TestChaletShortMidweekStay(t *testing.T) {
	bd, err := CalculateConfig(chaletConfig(), day(2025, 6, 24), day(2025, 6, 27), 4)
	require.NoError(t, err)

	assert.Equal(t, "RON", bd.Currency)
	assert.Equal(t, 3, bd.Nights)
	for _, n := range bd.NightlyRates {
		assert.False(t, n.Weekend, n.Date)
	}
	assert.Equal(t, "540", bd.BasePrice.Amount.String())
	assert.Equal(t, 0, bd.ExtraGuests)
	assert.True(t, bd.ExtraGuestFee.IsZero())
	assert.Equal(t, "40", bd.CleaningFee.Amount.String())
	assert.Equal(t, "580", bd.Subtotal.Amount.String())
	assert.Nil(t, bd.Discount)
	assert.Equal(t, "580", bd.Total.Amount.String())
}

func TestChaletTwoWeekStayWithExtraGuests(t *testing.T) {
	bd, err := CalculateConfig(chaletConfig(), day(2025, 6, 24), day(2025, 7, 8), 7)
	require.NoError(t, err)

	assert.Equal(t, 14, bd.Nights)
	weekend := 0
	for _, n := range bd.NightlyRates {
		if n.Weekend {
			weekend++
			assert.Equal(t, "216", n.Rate.Amount.String())
		}
	}
	assert.Equal(t, 4, weekend)
	assert.Equal(t, "2664", bd.BasePrice.Amount.String())
	assert.Equal(t, 3, bd.ExtraGuests)
	assert.Equal(t, "1050", bd.ExtraGuestFee.Amount.String())
	assert.Equal(t, "3754", bd.Subtotal.Amount.String())
	require.NotNil(t, bd.Discount)
	assert.Equal(t, 14, bd.Discount.NightsThreshold)
	assert.Equal(t, "375.4", bd.DiscountAmount.Amount.String())
	assert.Equal(t, "3378.6", bd.Total.Amount.String())
}

func TestCheckoutDayIsNotPriced(t *testing.T) {
	// Thursday night only; the Friday checkout day is not a weekend night of the stay.
	bd, err := CalculateConfig(chaletConfig(), day(2025, 6, 26), day(2025, 6, 27), 2)
	require.NoError(t, err)
	assert.Equal(t, "180", bd.BasePrice.Amount.String())

	bd, err = CalculateConfig(chaletConfig(), day(2025, 6, 27), day(2025, 6, 28), 2)
	require.NoError(t, err)
	assert.Equal(t, "216", bd.BasePrice.Amount.String())
}

func TestDiscountTiersAreNotCumulative(t *testing.T) {
	cfg := chaletConfig()
	cfg.WeekendDays = nil
	cfg.CleaningFee = decimal.Zero

	bd, err := CalculateConfig(cfg, day(2025, 3, 1), day(2025, 3, 15), 1)
	require.NoError(t, err)
	require.NotNil(t, bd.Discount)
	assert.Equal(t, 14, bd.Discount.NightsThreshold)
	assert.Equal(t, "252", bd.DiscountAmount.Amount.String())

	bd, err = CalculateConfig(cfg, day(2025, 3, 1), day(2025, 3, 11), 1)
	require.NoError(t, err)
	require.NotNil(t, bd.Discount)
	assert.Equal(t, 7, bd.Discount.NightsThreshold)
	assert.Equal(t, "90", bd.DiscountAmount.Amount.String())
}

func TestDisabledTierIsIgnored(t *testing.T) {
	bd, err := CalculateConfig(chaletConfig(), day(2025, 1, 1), day(2025, 2, 5), 1)
	require.NoError(t, err)
	require.NotNil(t, bd.Discount)
	assert.Equal(t, 14, bd.Discount.NightsThreshold)
}

func TestCalculateIsDeterministic(t *testing.T) {
	p := MustCompile(chaletConfig())
	a, err := Calculate(p, day(2025, 6, 24), day(2025, 7, 8), 6)
	require.NoError(t, err)
	b, err := Calculate(p, day(2025, 6, 24), day(2025, 7, 8), 6)
	require.NoError(t, err)

	ja, err := json.Marshal(a)
	require.NoError(t, err)
	jb, err := json.Marshal(b)
	require.NoError(t, err)
	assert.Equal(t, ja, jb)
}

func TestTotalNeverDecreasesWithMoreGuests(t *testing.T) {
	p := MustCompile(chaletConfig())
	prev := decimal.Zero
	for guests := 1; guests <= 12; guests++ {
		bd, err := Calculate(p, day(2025, 8, 1), day(2025, 8, 9), guests)
		require.NoError(t, err)
		assert.False(t, bd.Total.Amount.LessThan(prev), "guests=%d", guests)
		prev = bd.Total.Amount
	}
}

func TestCalculateEdgeCases(t *testing.T) {
	p := MustCompile(chaletConfig())

	bd, err := Calculate(p, day(2025, 6, 24), time.Time{}, 2)
	require.NoError(t, err)
	assert.Equal(t, 0, bd.Nights)
	assert.True(t, bd.Total.IsZero())

	_, err = Calculate(p, day(2025, 6, 24), day(2025, 6, 24), 2)
	assert.ErrorIs(t, err, daterange.ErrInvalidRange)

	_, err = Calculate(p, day(2025, 6, 24), day(2025, 6, 20), 2)
	assert.ErrorIs(t, err, daterange.ErrInvalidRange)

	_, err = Calculate(p, day(2025, 6, 24), day(2025, 6, 25), 0)
	assert.ErrorIs(t, err, ErrInvalidGuests)

	_, err = Calculate(Policy{}, day(2025, 6, 24), day(2025, 6, 25), 1)
	assert.ErrorIs(t, err, ErrPolicyUnset)
}

func TestOccupancyPricingOverridesTopLevelFee(t *testing.T) {
	cfg := chaletConfig()
	cfg.OccupancyPricing = OccupancyPricing{Enabled: true, BaseOccupancy: 2, ExtraGuestFeePerNight: dec(10)}
	bd, err := CalculateConfig(cfg, day(2025, 6, 24), day(2025, 6, 26), 5)
	require.NoError(t, err)
	assert.Equal(t, 3, bd.ExtraGuests)
	assert.Equal(t, "60", bd.ExtraGuestFee.Amount.String())
}

func TestCompileRejectsBadConfig(t *testing.T) {
	cfg := chaletConfig()
	cfg.PricePerNight = dec(-1)
	cfg.BaseCurrency = "euro"
	cfg.WeekendDays = []string{"funday"}
	cfg.LengthOfStayDiscounts = append(cfg.LengthOfStayDiscounts,
		DiscountTier{NightsThreshold: 7, DiscountPercentage: dec(8), Enabled: true},
		DiscountTier{NightsThreshold: 0, DiscountPercentage: dec(120), Enabled: false},
	)

	_, err := Compile(cfg)
	var cerr *ConfigurationError
	require.ErrorAs(t, err, &cerr)
	assert.Len(t, cerr.Problems, 6)
	assert.Contains(t, err.Error(), "overlaps another enabled tier at 7 nights")
}

func TestExpectedRates(t *testing.T) {
	p := MustCompile(chaletConfig())
	base, adjusted := p.ExpectedRates(day(2025, 6, 28))
	assert.Equal(t, "180", base.String())
	assert.Equal(t, "216", adjusted.String())
}
