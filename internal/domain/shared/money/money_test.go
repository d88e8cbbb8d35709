package money

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeCurrency(t *testing.T) {
	code, err := NormalizeCurrency(" ron ")
	require.NoError(t, err)
	assert.Equal(t, "RON", code)

	_, err = NormalizeCurrency("LEI1")
	assert.ErrorIs(t, err, ErrInvalidCurrency)
}

func TestPercentRounds(t *testing.T) {
	m := Money{Amount: decimal.RequireFromString("3754"), Currency: "RON"}
	got := m.Percent(decimal.NewFromFloat(12.345)).Round()
	assert.Equal(t, "463.43 RON", got.String())
	assert.True(t, Zero("ron").IsZero())
	assert.Equal(t, "RON", Zero("ron").Currency)
}
