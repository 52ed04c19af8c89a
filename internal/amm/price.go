package amm

import "github.com/shopspring/decimal"

// Prices derives the implied yes/no probabilities from the pool reserves.
// The YES price is the NO reserve's share of the combined pool, so the two
// prices always sum to 1 up to division rounding.
func Prices(yesReserve, noReserve uint64) (yesPrice, noPrice decimal.Decimal) {
	yes := decimal.NewFromUint64(yesReserve)
	no := decimal.NewFromUint64(noReserve)
	total := yes.Add(no)
	if total.IsZero() {
		return decimal.Zero, decimal.Zero
	}
	yesPrice = no.DivRound(total, 9)
	noPrice = yes.DivRound(total, 9)
	return yesPrice, noPrice
}
