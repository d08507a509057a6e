package money

import (
	"errors"
	"math/big"

	"github.com/shopspring/decimal"
)

var ErrInvalidDecimals = errors.New("invalid token decimals")

// MinorUnits converts a fiat amount to the gateway's integer minor
// units (paise for INR), rounding half up. Rounding, not truncation:
// the gateway reports integer paise and a truncated value would miss
// by one on fractional amounts.
func MinorUnits(amount decimal.Decimal) int64 {
	return amount.Shift(2).Round(0).IntPart()
}

// BaseUnits converts a token quantity to on-chain base units for a
// token with the given number of decimals (e.g. 6 for USDT).
func BaseUnits(quantity decimal.Decimal, decimals int32) (*big.Int, error) {
	if decimals < 0 || decimals > 30 {
		return nil, ErrInvalidDecimals
	}
	scaled := quantity.Shift(decimals)
	if !scaled.Equal(scaled.Truncate(0)) {
		// More precision than the token can carry; round down so we
		// never send more than was purchased.
		scaled = scaled.Truncate(0)
	}
	return scaled.BigInt(), nil
}

// FromBaseUnits converts on-chain base units back to a token quantity.
func FromBaseUnits(raw *big.Int, decimals int32) decimal.Decimal {
	return decimal.NewFromBigInt(raw, 0).Shift(-decimals)
}
