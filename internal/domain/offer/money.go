package offer

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

var currencyRegex = regexp.MustCompile(`^[A-Z]{3}$`)

// Money is an amount in the currency's minor unit (cents for USD).
type Money struct {
	amount   int64
	currency string
}

func NewMoney(amount int64, currency string) (Money, error) {
	if amount <= 0 {
		return Money{}, ErrInvalidPrice
	}
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if !currencyRegex.MatchString(currency) {
		return Money{}, ErrInvalidCurrency
	}
	return Money{amount: amount, currency: currency}, nil
}

// ReconstructMoney skips validation for values read back from storage.
func ReconstructMoney(amount int64, currency string) Money {
	return Money{amount: amount, currency: currency}
}

func (m Money) Amount() int64    { return m.amount }
func (m Money) Currency() string { return m.currency }

// Decimal renders the amount in major units, assuming two decimal places.
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(m.amount, -2)
}

// FeePolicy computes the platform fee charged on a settlement.
type FeePolicy struct {
	rate decimal.Decimal
}

func NewFeePolicy(rate decimal.Decimal) (FeePolicy, error) {
	if rate.IsNegative() || rate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return FeePolicy{}, ErrInvalidFeeRate
	}
	return FeePolicy{rate: rate}, nil
}

func (p FeePolicy) Rate() decimal.Decimal { return p.rate }

// Fee returns round(amount * rate) in minor units, rounding half away from zero.
func (p FeePolicy) Fee(m Money) Money {
	fee := decimal.NewFromInt(m.amount).Mul(p.rate).Round(0).IntPart()
	return Money{amount: fee, currency: m.currency}
}
