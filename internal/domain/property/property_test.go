package property

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"staycal/internal/domain/pricing"
)

func TestNewCompilesPricing(t *testing.T) {
	p, err := New(CreateParams{
		ID:   "cabin",
		Name: " Cabin ",
		Pricing: pricing.Config{
			PricePerNight: decimal.NewFromInt(90),
			BaseCurrency:  "eur",
		},
		Now: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	assert.Equal(t, "Cabin", p.Name)
	assert.Equal(t, "EUR", p.Pricing.Currency())
}

func TestNewRejectsInvalidPricing(t *testing.T) {
	_, err := New(CreateParams{ID: "cabin", Name: "Cabin", Pricing: pricing.Config{BaseCurrency: "EUR"}})
	assert.ErrorIs(t, err, ErrInvalidPolicy)
	var cerr *pricing.ConfigurationError
	assert.ErrorAs(t, err, &cerr)

	_, err = New(CreateParams{Name: "Cabin"})
	assert.ErrorIs(t, err, ErrIDRequired)
}

func TestReprice(t *testing.T) {
	p, err := New(CreateParams{ID: "cabin", Name: "Cabin", Pricing: pricing.Config{PricePerNight: decimal.NewFromInt(90), BaseCurrency: "EUR"}})
	require.NoError(t, err)

	err = p.Reprice(pricing.Config{PricePerNight: decimal.NewFromInt(-5), BaseCurrency: "EUR"}, time.Now())
	assert.ErrorIs(t, err, ErrInvalidPolicy)
	assert.Equal(t, "90", p.Pricing.Config().PricePerNight.String())

	require.NoError(t, p.Reprice(pricing.Config{PricePerNight: decimal.NewFromInt(120), BaseCurrency: "EUR"}, time.Now()))
	assert.Equal(t, "120", p.Pricing.Config().PricePerNight.String())
}
