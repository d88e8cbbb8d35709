package pricing

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"staycal/internal/domain/shared/daterange"
	"staycal/internal/domain/shared/money"
)

var (
	ErrInvalidGuests = errors.New("pricing: guests count must be positive")
	ErrPolicyUnset   = errors.New("pricing: policy not compiled")
)

type Night struct {
	Date    time.Time   `json:"date"`
	Rate    money.Money `json:"rate"`
	Weekend bool        `json:"weekend"`
}

type AppliedDiscount struct {
	NightsThreshold int             `json:"nightsThreshold"`
	Percentage      decimal.Decimal `json:"percentage"`
}

// PriceBreakdown is the itemised quote for one stay, in the property's base currency.
type PriceBreakdown struct {
	Currency       string           `json:"currency"`
	Nights         int              `json:"nights"`
	NightlyRates   []Night          `json:"nightlyRates"`
	BasePrice      money.Money      `json:"basePrice"`
	Guests         int              `json:"guests"`
	ExtraGuests    int              `json:"extraGuests"`
	ExtraGuestFee  money.Money      `json:"extraGuestFee"`
	CleaningFee    money.Money      `json:"cleaningFee"`
	Subtotal       money.Money      `json:"subtotal"`
	Discount       *AppliedDiscount `json:"discount,omitempty"`
	DiscountAmount money.Money      `json:"discountAmount"`
	Total          money.Money      `json:"total"`
}

// ZeroBreakdown is returned while a date selection is still incomplete.
func ZeroBreakdown(currency string) PriceBreakdown {
	z := money.Zero(currency)
	return PriceBreakdown{
		Currency:       currency,
		NightlyRates:   []Night{},
		BasePrice:      z,
		ExtraGuestFee:  z,
		CleaningFee:    z,
		Subtotal:       z,
		DiscountAmount: z,
		Total:          z,
	}
}

// Calculate prices the nights of [checkIn, checkOut) for guests.
//
// Unset dates yield a zeroed breakdown so half-filled date pickers can render;
// a set range whose checkout is not after checkin is rejected with
// daterange.ErrInvalidRange.
func Calculate(p Policy, checkIn, checkOut time.Time, guests int) (PriceBreakdown, error) {
	if p.currency == "" {
		return PriceBreakdown{}, ErrPolicyUnset
	}
	if checkIn.IsZero() || checkOut.IsZero() {
		return ZeroBreakdown(p.currency), nil
	}
	dr, err := daterange.New(checkIn, checkOut)
	if err != nil {
		return PriceBreakdown{}, err
	}
	if guests < 1 {
		return PriceBreakdown{}, ErrInvalidGuests
	}

	days := dr.Days()
	nights := len(days)
	out := PriceBreakdown{
		Currency:     p.currency,
		Nights:       nights,
		NightlyRates: make([]Night, 0, nights),
		Guests:       guests,
	}

	base := decimal.Zero
	for _, day := range days {
		rate := p.NightlyRate(day)
		out.NightlyRates = append(out.NightlyRates, Night{Date: day, Rate: rate, Weekend: p.IsWeekend(day)})
		base = base.Add(rate.Amount)
	}
	out.BasePrice = p.amount(base)

	if extra := guests - p.baseOccupancy; extra > 0 {
		out.ExtraGuests = extra
		fee := p.extraGuestFee.Mul(decimal.NewFromInt(int64(extra))).Mul(decimal.NewFromInt(int64(nights)))
		out.ExtraGuestFee = p.amount(fee)
	} else {
		out.ExtraGuestFee = money.Zero(p.currency)
	}
	out.CleaningFee = p.amount(p.cleaning)

	subtotal := out.BasePrice.Amount.Add(out.ExtraGuestFee.Amount).Add(out.CleaningFee.Amount)
	out.Subtotal = p.amount(subtotal)

	out.DiscountAmount = money.Zero(p.currency)
	if tier, ok := p.tierFor(nights); ok {
		out.Discount = &AppliedDiscount{NightsThreshold: tier.NightsThreshold, Percentage: tier.DiscountPercentage}
		out.DiscountAmount = out.Subtotal.Percent(tier.DiscountPercentage).Round()
	}
	out.Total = p.amount(out.Subtotal.Amount.Sub(out.DiscountAmount.Amount))
	return out, nil
}

// CalculateConfig compiles cfg and prices the stay. Prefer compiling once and
// calling Calculate when pricing the same property repeatedly.
func CalculateConfig(cfg Config, checkIn, checkOut time.Time, guests int) (PriceBreakdown, error) {
	p, err := Compile(cfg)
	if err != nil {
		return PriceBreakdown{}, err
	}
	return Calculate(p, checkIn, checkOut, guests)
}

func (p Policy) amount(v decimal.Decimal) money.Money {
	return money.Money{Amount: v, Currency: p.currency}.Round()
}
