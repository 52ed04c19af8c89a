package amm_test

import (
	"errors"
	"math/bits"
	"testing"

	"github.com/openpredict/predictd/internal/amm"
	"github.com/openpredict/predictd/internal/domain"
)

const unit = 1_000_000_000 // one collateral unit at 9 decimals

func TestFeeCeil_RoundsUp(t *testing.T) {
	// 1 raw unit at 250 bps is 0.025, which must round up to 1.
	if got := amm.FeeCeil(1, 250); got != 1 {
		t.Errorf("got %d, want 1", got)
	}
	if got := amm.FeeCeil(10000, 250); got != 250 {
		t.Errorf("got %d, want 250", got)
	}
	if got := amm.FeeCeil(10001, 250); got != 251 {
		t.Errorf("got %d, want 251", got)
	}
	if got := amm.FeeCeil(12345, 0); got != 0 {
		t.Errorf("zero bps: got %d, want 0", got)
	}
}

func TestQuoteBuy_WorkedExample(t *testing.T) {
	// 0.5-unit YES bet into a 1/1 pool at 2.5% fee.
	amount := uint64(unit / 2)
	shares, fee, err := amm.QuoteBuy(unit, unit, amount, 250)
	if err != nil {
		t.Fatalf("quote failed: %v", err)
	}

	wantFee := uint64(12_500_000) // ceil(0.5e9 * 250 / 10000)
	if fee != wantFee {
		t.Errorf("fee: got %d, want %d", fee, wantFee)
	}

	// net = 487_500_000; new_no = 1_487_500_000;
	// shares = 1e9 - 1e18/new_no, within one unit of division rounding.
	want := uint64(unit) - 1_000_000_000_000_000_000/1_487_500_000
	if diff(shares, want) > 1 {
		t.Errorf("shares: got %d, want %d +/- 1", shares, want)
	}
}

func TestQuoteBuy_KNeverDecreases(t *testing.T) {
	yes, no := uint64(unit), uint64(unit)
	prevHi, prevLo := bits.Mul64(yes, no)

	for i := 0; i < 50; i++ {
		amount := uint64(unit/10 + i*1_000_003)
		shares, fee, err := amm.QuoteBuy(yes, no, amount, 250)
		if err != nil {
			t.Fatalf("buy %d failed: %v", i, err)
		}
		yes, no = amm.ApplyBuy(yes, no, shares, amount-fee)

		hi, lo := bits.Mul64(yes, no)
		if hi < prevHi || (hi == prevHi && lo < prevLo) {
			t.Fatalf("buy %d: k decreased", i)
		}
		prevHi, prevLo = hi, lo
	}
}

func TestQuoteSell_KNeverDecreases(t *testing.T) {
	// Stock up on YES shares, then sell them back piecewise.
	yes, no := uint64(unit), uint64(unit)
	shares, fee, err := amm.QuoteBuy(yes, no, unit/2, 250)
	if err != nil {
		t.Fatalf("setup buy failed: %v", err)
	}
	yes, no = amm.ApplyBuy(yes, no, shares, unit/2-fee)

	chunk := shares / 10
	for i := 0; i < 9; i++ {
		prevHi, prevLo := bits.Mul64(yes, no)

		refund, sellFee, err := amm.QuoteSell(yes, no, chunk, 250)
		if err != nil {
			t.Fatalf("sell %d failed: %v", i, err)
		}
		yes, no = amm.ApplySell(yes, no, chunk, refund, sellFee)

		hi, lo := bits.Mul64(yes, no)
		if hi < prevHi || (hi == prevHi && lo < prevLo) {
			t.Fatalf("sell %d: k decreased", i)
		}
	}
}

func TestQuoteBuy_PriceSumNearOne(t *testing.T) {
	yes, no := uint64(unit), uint64(unit)
	for i := 0; i < 20; i++ {
		shares, fee, err := amm.QuoteBuy(yes, no, unit/7, 100)
		if err != nil {
			t.Fatalf("buy %d failed: %v", i, err)
		}
		yes, no = amm.ApplyBuy(yes, no, shares, unit/7-fee)

		yp, np := amm.Prices(yes, no)
		sum, _ := yp.Add(np).Float64()
		if sum < 0.999 || sum > 1.001 {
			t.Fatalf("buy %d: price sum %f outside [0.999, 1.001]", i, sum)
		}
	}
}

func TestRoundTrip_IsLossy(t *testing.T) {
	yes, no := uint64(unit), uint64(unit)
	amount := uint64(unit / 4)

	shares, buyFee, err := amm.QuoteBuy(yes, no, amount, 250)
	if err != nil {
		t.Fatalf("buy failed: %v", err)
	}
	yes, no = amm.ApplyBuy(yes, no, shares, amount-buyFee)

	refund, sellFee, err := amm.QuoteSell(yes, no, shares, 250)
	if err != nil {
		t.Fatalf("sell failed: %v", err)
	}

	if refund >= amount {
		t.Errorf("round trip profitable: paid %d, refunded %d", amount, refund)
	}
	// At minimum both fee applications are lost.
	if refund > amount-buyFee-sellFee {
		t.Errorf("refund %d exceeds amount minus both fees (%d)", refund, amount-buyFee-sellFee)
	}
}

func TestQuoteSell_FeeFreeRoundTripRestoresPool(t *testing.T) {
	yes, no := uint64(unit), uint64(unit)
	shares, fee, err := amm.QuoteBuy(yes, no, unit/2, 0)
	if err != nil {
		t.Fatalf("buy failed: %v", err)
	}
	yes, no = amm.ApplyBuy(yes, no, shares, unit/2-fee)

	refund, sellFee, err := amm.QuoteSell(yes, no, shares, 0)
	if err != nil {
		t.Fatalf("sell failed: %v", err)
	}
	yes, no = amm.ApplySell(yes, no, shares, refund, sellFee)

	// Rounding keeps at most a couple of dust units inside the pool; it
	// never leaks value out.
	if yes != unit {
		t.Errorf("yes reserve: got %d, want %d", yes, uint64(unit))
	}
	if no < unit || no > unit+2 {
		t.Errorf("no reserve: got %d, want [%d, %d]", no, uint64(unit), uint64(unit)+2)
	}
}

func TestQuote_DegenerateInputs(t *testing.T) {
	cases := []struct {
		name string
		fn   func() error
	}{
		{"buy zero reserve in", func() error { _, _, err := amm.QuoteBuy(0, unit, unit, 250); return err }},
		{"buy zero reserve out", func() error { _, _, err := amm.QuoteBuy(unit, 0, unit, 250); return err }},
		{"buy zero amount", func() error { _, _, err := amm.QuoteBuy(unit, unit, 0, 250); return err }},
		{"buy amount eaten by fee", func() error { _, _, err := amm.QuoteBuy(unit, unit, 1, 10000); return err }},
		{"sell zero shares", func() error { _, _, err := amm.QuoteSell(unit, unit, 0, 250); return err }},
		{"sell zero reserve", func() error { _, _, err := amm.QuoteSell(0, unit, unit, 250); return err }},
	}
	for _, tc := range cases {
		if err := tc.fn(); !errors.Is(err, domain.ErrInvalidQuote) {
			t.Errorf("%s: got %v, want ErrInvalidQuote", tc.name, err)
		}
	}
}

func TestPrices_BalancedPool(t *testing.T) {
	yp, np := amm.Prices(unit, unit)
	y, _ := yp.Float64()
	n, _ := np.Float64()
	if y < 0.499 || y > 0.501 {
		t.Errorf("yes price: got %f, want 0.5", y)
	}
	if n < 0.499 || n > 0.501 {
		t.Errorf("no price: got %f, want 0.5", n)
	}
}

func diff(a, b uint64) uint64 {
	if a > b {
		return a - b
	}
	return b - a
}
