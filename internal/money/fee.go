// Package money holds the marketplace's currency arithmetic.  All amounts are
// int64 values in the currency's minor unit.  The configured currency (IDR)
// has zero decimals, so a minor unit is a whole rupiah.
package money

import "github.com/shopspring/decimal"

// PlatformFeeRate is the marketplace commission applied to order subtotals
// and, per item, to seller earnings.
var PlatformFeeRate = decimal.New(5, -2)

// PlatformFee returns round(amount × 5%) to whole units.  decimal.Round
// rounds half away from zero, which is the rounding rule for zero-decimal
// currencies.
func PlatformFee(amount int64) int64 {
	return decimal.NewFromInt(amount).Mul(PlatformFeeRate).Round(0).IntPart()
}

// Split divides a gross amount into the platform's share and the seller's
// net amount.  share + net always equals gross.
func Split(gross int64) (share, net int64) {
	share = PlatformFee(gross)
	return share, gross - share
}

// LineTotal multiplies a unit price by a quantity.
func LineTotal(unitPrice int64, quantity int) int64 {
	return unitPrice * int64(quantity)
}

// SetFeeRateBasisPoints overrides the platform fee rate (500 = 5%).  It must
// be called before the server starts handling requests.
func SetFeeRateBasisPoints(bp int64) {
	if bp < 0 {
		return
	}
	PlatformFeeRate = decimal.New(bp, -4)
}
