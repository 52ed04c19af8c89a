// Package amm implements the constant-product pricing curve for binary
// outcome markets. All arithmetic runs on 128-bit intermediates so u64
// reserve products cannot overflow; failures convert into typed errors
// rather than wrapping.
//
// Buying YES is modeled as selling YES-pool liquidity while the net
// collateral is absorbed by the NO pool: the same-side reserve is drawn down
// by the shares minted and the opposite reserve grows by the net amount.
// This asymmetry is what distinguishes the curve from a symmetric swap.
//
// Rounding policy: the recomputed reserve k/new_out is rounded toward the
// pool (ceiling), so the product of reserves never decreases across a trade.
// A downward-drifting k would let a buy/sell loop drain the vault one dust
// unit at a time.
package amm

import (
	"math"
	"math/big"

	"github.com/openpredict/predictd/internal/domain"
)

// feeDenom is the basis-point denominator.
const feeDenom = 10000

var (
	bigFeeDenom = big.NewInt(feeDenom)
	maxUint64   = new(big.Int).SetUint64(math.MaxUint64)
)

// FeeCeil applies a basis-point fee with ceiling rounding, so micro trades
// cannot round the fee down to zero.
func FeeCeil(amount uint64, feeBps uint16) uint64 {
	n := new(big.Int).SetUint64(amount)
	n.Mul(n, big.NewInt(int64(feeBps)))
	n.Add(n, big.NewInt(feeDenom-1))
	n.Div(n, bigFeeDenom)
	// amount*bps/10000 <= amount for bps <= 10000, so this always fits.
	return n.Uint64()
}

// ceilDiv returns ceil(a/b) for positive a, b.
func ceilDiv(a, b *big.Int) *big.Int {
	q, r := new(big.Int).QuoRem(a, b, new(big.Int))
	if r.Sign() != 0 {
		q.Add(q, big.NewInt(1))
	}
	return q
}

// QuoteBuy prices a buy of amount collateral against the chosen side.
// reserveIn is the same-side reserve the shares are drawn from; reserveOut
// is the opposite reserve that absorbs the net collateral. It returns the
// shares minted to the buyer and the fee routed to the treasury.
func QuoteBuy(reserveIn, reserveOut, amount uint64, feeBps uint16) (shares, fee uint64, err error) {
	if reserveIn == 0 || reserveOut == 0 {
		return 0, 0, domain.ErrInvalidQuote
	}
	fee = FeeCeil(amount, feeBps)
	if amount <= fee {
		return 0, 0, domain.ErrInvalidQuote
	}
	net := amount - fee

	in := new(big.Int).SetUint64(reserveIn)
	out := new(big.Int).SetUint64(reserveOut)
	k := new(big.Int).Mul(in, out)

	newOut := new(big.Int).Add(out, new(big.Int).SetUint64(net))
	if newOut.Cmp(maxUint64) > 0 {
		return 0, 0, domain.ErrMathOverflow
	}

	newIn := ceilDiv(k, newOut)
	sharesBig := new(big.Int).Sub(in, newIn)
	if sharesBig.Sign() <= 0 {
		return 0, 0, domain.ErrInvalidQuote
	}
	return sharesBig.Uint64(), fee, nil
}

// QuoteSell prices a sale of sharesIn back into the side's pool.
// reserveSide is the pool the shares return to; reserveOther is the pool the
// raw refund is drawn from. The fee is taken from the raw refund.
func QuoteSell(reserveSide, reserveOther, sharesIn uint64, feeBps uint16) (refund, fee uint64, err error) {
	if reserveSide == 0 || reserveOther == 0 || sharesIn == 0 {
		return 0, 0, domain.ErrInvalidQuote
	}

	side := new(big.Int).SetUint64(reserveSide)
	other := new(big.Int).SetUint64(reserveOther)
	k := new(big.Int).Mul(side, other)

	newSide := new(big.Int).Add(side, new(big.Int).SetUint64(sharesIn))
	if newSide.Cmp(maxUint64) > 0 {
		return 0, 0, domain.ErrMathOverflow
	}
	newOther := ceilDiv(k, newSide)

	rawBig := new(big.Int).Sub(other, newOther)
	if rawBig.Sign() <= 0 {
		return 0, 0, domain.ErrInvalidQuote
	}
	raw := rawBig.Uint64()

	fee = FeeCeil(raw, feeBps)
	if raw <= fee && feeBps > 0 {
		return 0, 0, domain.ErrInvalidQuote
	}
	return raw - fee, fee, nil
}

// ApplyBuy returns the post-trade reserves for a buy quoted by QuoteBuy.
func ApplyBuy(reserveIn, reserveOut, shares, net uint64) (newIn, newOut uint64) {
	return reserveIn - shares, reserveOut + net
}

// ApplySell returns the post-trade reserves for a sale quoted by QuoteSell.
// The full raw refund (fee included) leaves the opposite pool.
func ApplySell(reserveSide, reserveOther, sharesIn, refund, fee uint64) (newSide, newOther uint64) {
	return reserveSide + sharesIn, reserveOther - refund - fee
}
