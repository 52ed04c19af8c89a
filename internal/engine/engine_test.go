package engine_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openpredict/predictd/internal/domain"
	"github.com/openpredict/predictd/internal/engine"
	"github.com/openpredict/predictd/internal/ledger"
	"github.com/openpredict/predictd/internal/store/memory"
)

const unit = 1_000_000_000 // 1.0 in collateral base units

var (
	program  = common.HexToAddress("0x00000000000000000000000000000000000000aa")
	admin    = common.HexToAddress("0x0000000000000000000000000000000000000001")
	treasury = common.HexToAddress("0x0000000000000000000000000000000000000002")
	alice    = common.HexToAddress("0x0000000000000000000000000000000000000a11")
	bob      = common.HexToAddress("0x0000000000000000000000000000000000000b0b")
	carol    = common.HexToAddress("0x0000000000000000000000000000000000000ca1")
)

type fixture struct {
	t   *testing.T
	ctx context.Context

	eng    *engine.Engine
	bank   *ledger.Bank
	shares *ledger.TokenLedger

	now time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		t:      t,
		ctx:    context.Background(),
		bank:   ledger.NewBank(),
		shares: ledger.NewTokenLedger(),
		now:    time.Unix(1_700_000_000, 0),
	}
	f.eng = engine.New(engine.Config{
		Program:   program,
		Platform:  memory.NewPlatformStore(),
		Markets:   memory.NewMarketStore(),
		Positions: memory.NewPositionStore(),
		Disputes:  memory.NewDisputeStore(),
		Bank:      f.bank,
		Shares:    f.shares,
		Clock:     func() time.Time { return f.now },
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	require.NoError(t, f.eng.InitPlatform(f.ctx, admin, engine.InitPlatformParams{
		FeeBps:      100,
		Treasury:    treasury,
		DisputeBond: 5_000_000,
	}))
	return f
}

func (f *fixture) fund(account common.Address, amount uint64) {
	f.t.Helper()
	require.NoError(f.t, f.bank.Deposit(account, amount))
}

func (f *fixture) advance(d time.Duration) {
	f.now = f.now.Add(d)
}

func (f *fixture) accounts(marketID uint64) engine.MarketAccounts {
	d := f.eng.Deriver()
	market := d.Market(marketID)
	return engine.MarketAccounts{
		Market:  market,
		Vault:   d.Vault(market),
		YesMint: d.YesMint(market),
		NoMint:  d.NoMint(market),
	}
}

func (f *fixture) marketParams(id uint64) engine.CreateMarketParams {
	base := f.now.Unix()
	return engine.CreateMarketParams{
		MarketID:         id,
		Title:            "BTC above 100k by Friday",
		Description:      "Resolves yes if the reference price closes above the threshold.",
		Category:         domain.CategoryCrypto,
		OracleSource:     domain.OracleManualAdmin,
		StartTimestamp:   base - 10,
		LockTimestamp:    base + 1_000,
		EndTimestamp:     base + 2_000,
		MinBet:           1_000,
		MaxBet:           0,
		FeeBps:           250,
		InitialLiquidity: unit,
		Accounts:         f.accounts(id),
	}
}

// createMarket funds the admin and creates a default market.
func (f *fixture) createMarket(id uint64) *domain.Market {
	f.t.Helper()
	f.fund(admin, unit)
	m, err := f.eng.CreateMarket(f.ctx, admin, f.marketParams(id))
	require.NoError(f.t, err)
	return m
}

func (f *fixture) balance(account common.Address) uint64 {
	f.t.Helper()
	b, err := f.bank.Balance(f.ctx, account)
	require.NoError(f.t, err)
	return b
}

func TestCreateMarketSeedsPool(t *testing.T) {
	f := newFixture(t)
	m := f.createMarket(1)

	assert.Equal(t, domain.MarketStatusActive, m.Status)
	assert.Equal(t, uint64(unit), m.YesReserve)
	assert.Equal(t, uint64(unit), m.NoReserve)
	assert.Equal(t, uint64(unit), m.TotalCollateral)
	assert.Equal(t, uint64(unit), f.balance(m.Vault))
	assert.Equal(t, uint64(0), f.balance(admin))

	// A fresh 50/50 pool quotes near 2x shares per collateral unit, less fee.
	shares, fee, err := f.eng.QuoteBet(f.ctx, 1, domain.SideYes, 10_000)
	require.NoError(t, err)
	assert.Greater(t, shares, uint64(0))
	assert.Equal(t, uint64(250), fee)
}

func TestCreateMarketFutureStartIsPending(t *testing.T) {
	f := newFixture(t)
	f.fund(admin, unit)
	params := f.marketParams(1)
	params.StartTimestamp = f.now.Unix() + 100
	m, err := f.eng.CreateMarket(f.ctx, admin, params)
	require.NoError(t, err)
	assert.Equal(t, domain.MarketStatusPending, m.Status)

	// Pending refuses bets until the start time passes.
	f.fund(alice, unit)
	_, err = f.eng.PlaceBet(f.ctx, alice, engine.PlaceBetParams{
		MarketID: 1, Accounts: f.accounts(1), Side: domain.SideYes, Amount: 10_000,
	})
	assert.ErrorIs(t, err, domain.ErrInvalidMarketStatus)

	f.advance(101 * time.Second)
	_, err = f.eng.PlaceBet(f.ctx, alice, engine.PlaceBetParams{
		MarketID: 1, Accounts: f.accounts(1), Side: domain.SideYes, Amount: 10_000,
	})
	require.NoError(t, err)

	m, err = f.eng.GetMarket(f.ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, domain.MarketStatusActive, m.Status)
}

func TestCreateMarketValidation(t *testing.T) {
	f := newFixture(t)
	f.fund(admin, 10*unit)

	long := make([]byte, domain.MaxTitleLen+1)
	for i := range long {
		long[i] = 'x'
	}

	cases := []struct {
		name   string
		mutate func(*engine.CreateMarketParams)
		caller common.Address
		want   error
	}{
		{"non-admin", func(p *engine.CreateMarketParams) {}, alice, domain.ErrUnauthorized},
		{"title too long", func(p *engine.CreateMarketParams) { p.Title = string(long) }, admin, domain.ErrTitleTooLong},
		{"start after lock", func(p *engine.CreateMarketParams) { p.StartTimestamp = p.LockTimestamp + 1 }, admin, domain.ErrInvalidTimestamps},
		{"lock after end", func(p *engine.CreateMarketParams) { p.LockTimestamp = p.EndTimestamp + 1 }, admin, domain.ErrInvalidTimestamps},
		{"fee above cap", func(p *engine.CreateMarketParams) { p.FeeBps = domain.MaxFeeBps + 1 }, admin, domain.ErrFeeExceedsMax},
		{"zero liquidity", func(p *engine.CreateMarketParams) { p.InitialLiquidity = 0 }, admin, domain.ErrNoLiquidity},
		{"forged vault ref", func(p *engine.CreateMarketParams) { p.Accounts.Vault = alice }, admin, domain.ErrInvalidSeeds},
		{"forged market ref", func(p *engine.CreateMarketParams) { p.Accounts.Market = alice }, admin, domain.ErrInvalidSeeds},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			params := f.marketParams(7)
			tc.mutate(&params)
			_, err := f.eng.CreateMarket(f.ctx, tc.caller, params)
			assert.ErrorIs(t, err, tc.want)
		})
	}

	// None of the rejected attempts moved any collateral.
	assert.Equal(t, uint64(10*unit), f.balance(admin))
}

func TestPlaceBetWorkedExample(t *testing.T) {
	f := newFixture(t)
	m := f.createMarket(1)
	f.fund(alice, unit)

	res, err := f.eng.PlaceBet(f.ctx, alice, engine.PlaceBetParams{
		MarketID: 1,
		Accounts: f.accounts(1),
		Side:     domain.SideYes,
		Amount:   unit / 2,
	})
	require.NoError(t, err)

	// 250 bps of 0.5 unit, ceiling.
	assert.Equal(t, uint64(12_500_000), res.Fee)
	assert.Equal(t, uint64(327_731_092), res.Shares)

	m, err = f.eng.GetMarket(f.ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, uint64(unit-327_731_092), m.YesReserve)
	assert.Equal(t, uint64(unit+487_500_000), m.NoReserve)
	assert.Equal(t, uint64(unit+487_500_000), m.TotalCollateral)
	assert.Equal(t, m.TotalCollateral, f.balance(m.Vault))
	assert.Equal(t, uint64(12_500_000), f.balance(treasury))
	assert.Equal(t, uint64(unit-unit/2), f.balance(alice))

	held, err := f.shares.BalanceOf(f.ctx, m.YesMint, alice)
	require.NoError(t, err)
	assert.Equal(t, res.Shares, held)
}

func TestPlaceBetGuards(t *testing.T) {
	f := newFixture(t)
	f.createMarket(1)
	f.fund(alice, 10*unit)
	bet := func(amount uint64, mutate func(*engine.PlaceBetParams)) error {
		p := engine.PlaceBetParams{MarketID: 1, Accounts: f.accounts(1), Side: domain.SideYes, Amount: amount}
		if mutate != nil {
			mutate(&p)
		}
		_, err := f.eng.PlaceBet(f.ctx, alice, p)
		return err
	}

	assert.ErrorIs(t, bet(999, nil), domain.ErrBelowMinBet)
	assert.ErrorIs(t, bet(10_000, func(p *engine.PlaceBetParams) { p.Accounts.YesMint = bob }), domain.ErrInvalidSeeds)
	assert.ErrorIs(t, bet(10_000, func(p *engine.PlaceBetParams) { p.MinSharesOut = unit }), domain.ErrSlippageExceeded)

	require.NoError(t, f.eng.PausePlatform(f.ctx, admin))
	assert.ErrorIs(t, bet(10_000, nil), domain.ErrPlatformPaused)
	require.NoError(t, f.eng.UnpausePlatform(f.ctx, admin))

	// A broke caller changes nothing, fee included.
	before := f.balance(treasury)
	_, err := f.eng.PlaceBet(f.ctx, bob, engine.PlaceBetParams{
		MarketID: 1, Accounts: f.accounts(1), Side: domain.SideNo, Amount: 10_000,
	})
	assert.ErrorIs(t, err, domain.ErrInsufficientFunds)
	assert.Equal(t, before, f.balance(treasury))

	f.advance(1_001 * time.Second)
	assert.ErrorIs(t, bet(10_000, nil), domain.ErrBettingClosed)
}

func TestPlaceBetMaxBet(t *testing.T) {
	f := newFixture(t)
	f.fund(admin, unit)
	params := f.marketParams(1)
	params.MaxBet = 50_000
	_, err := f.eng.CreateMarket(f.ctx, admin, params)
	require.NoError(t, err)

	f.fund(alice, unit)
	_, err = f.eng.PlaceBet(f.ctx, alice, engine.PlaceBetParams{
		MarketID: 1, Accounts: f.accounts(1), Side: domain.SideYes, Amount: 50_001,
	})
	assert.ErrorIs(t, err, domain.ErrAboveMaxBet)
}

func TestCancelBetRoundTripIsLossy(t *testing.T) {
	f := newFixture(t)
	f.createMarket(1)
	f.fund(alice, unit)

	const amount = 100_000_000
	buy, err := f.eng.PlaceBet(f.ctx, alice, engine.PlaceBetParams{
		MarketID: 1, Accounts: f.accounts(1), Side: domain.SideNo, Amount: amount,
	})
	require.NoError(t, err)

	sell, err := f.eng.CancelBet(f.ctx, alice, engine.CancelBetParams{
		MarketID: 1, Accounts: f.accounts(1), Side: domain.SideNo, Shares: buy.Shares,
	})
	require.NoError(t, err)

	assert.Less(t, sell.Refund, uint64(amount))
	assert.LessOrEqual(t, sell.Refund, amount-buy.Fee-sell.Fee)

	m, err := f.eng.GetMarket(f.ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, m.TotalCollateral, f.balance(m.Vault))

	pos, err := f.eng.GetPosition(f.ctx, 1, alice)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), pos.NoShares)

	_, err = f.eng.CancelBet(f.ctx, alice, engine.CancelBetParams{
		MarketID: 1, Accounts: f.accounts(1), Side: domain.SideNo, Shares: 1,
	})
	assert.ErrorIs(t, err, domain.ErrInsufficientShares)
}

func TestPauseBlocksTrading(t *testing.T) {
	f := newFixture(t)
	f.createMarket(1)
	f.fund(alice, unit)

	require.NoError(t, f.eng.PauseMarket(f.ctx, admin, 1, f.accounts(1).Market))
	_, err := f.eng.PlaceBet(f.ctx, alice, engine.PlaceBetParams{
		MarketID: 1, Accounts: f.accounts(1), Side: domain.SideYes, Amount: 10_000,
	})
	assert.ErrorIs(t, err, domain.ErrInvalidMarketStatus)

	// Double pause is rejected, non-admin pause is rejected.
	assert.ErrorIs(t, f.eng.PauseMarket(f.ctx, admin, 1, f.accounts(1).Market), domain.ErrInvalidMarketStatus)
	assert.ErrorIs(t, f.eng.UnpauseMarket(f.ctx, alice, 1, f.accounts(1).Market), domain.ErrUnauthorized)

	require.NoError(t, f.eng.UnpauseMarket(f.ctx, admin, 1, f.accounts(1).Market))
	_, err = f.eng.PlaceBet(f.ctx, alice, engine.PlaceBetParams{
		MarketID: 1, Accounts: f.accounts(1), Side: domain.SideYes, Amount: 10_000,
	})
	require.NoError(t, err)
}

func TestResolveGuards(t *testing.T) {
	f := newFixture(t)
	f.createMarket(1)

	resolve := func(caller common.Address) error {
		_, err := f.eng.ResolveMarket(f.ctx, caller, engine.ResolveMarketParams{
			MarketID: 1, Accounts: f.accounts(1), Outcome: domain.OutcomeYes,
		})
		return err
	}

	assert.ErrorIs(t, resolve(admin), domain.ErrResolutionTooEarly)
	f.advance(1_001 * time.Second)
	assert.ErrorIs(t, resolve(alice), domain.ErrUnauthorized)
	require.NoError(t, resolve(admin))
	assert.ErrorIs(t, resolve(admin), domain.ErrAlreadyResolved)
}

func TestResolveAndClaimYesOutcome(t *testing.T) {
	f := newFixture(t)
	f.createMarket(1)
	f.fund(alice, unit)
	f.fund(bob, unit)

	aliceBuy, err := f.eng.PlaceBet(f.ctx, alice, engine.PlaceBetParams{
		MarketID: 1, Accounts: f.accounts(1), Side: domain.SideYes, Amount: unit / 2,
	})
	require.NoError(t, err)
	_, err = f.eng.PlaceBet(f.ctx, bob, engine.PlaceBetParams{
		MarketID: 1, Accounts: f.accounts(1), Side: domain.SideNo, Amount: unit / 4,
	})
	require.NoError(t, err)

	f.advance(1_001 * time.Second)
	m, err := f.eng.ResolveMarket(f.ctx, admin, engine.ResolveMarketParams{
		MarketID: 1, Accounts: f.accounts(1), Outcome: domain.OutcomeYes,
	})
	require.NoError(t, err)
	require.NotNil(t, m.ResolvedOutcome)
	assert.Equal(t, domain.OutcomeYes, *m.ResolvedOutcome)

	// Betting is over.
	_, err = f.eng.PlaceBet(f.ctx, bob, engine.PlaceBetParams{
		MarketID: 1, Accounts: f.accounts(1), Side: domain.SideNo, Amount: 10_000,
	})
	assert.ErrorIs(t, err, domain.ErrInvalidMarketStatus)

	pot := f.balance(m.Vault)

	// The losing side burns its shares for nothing.
	bobClaim, err := f.eng.ClaimPayout(f.ctx, bob, engine.ClaimPayoutParams{MarketID: 1, Accounts: f.accounts(1)})
	require.NoError(t, err)
	assert.Equal(t, uint64(0), bobClaim.Amount)

	// The sole winner takes the whole pot: shares == supply, floor is exact.
	aliceClaim, err := f.eng.ClaimPayout(f.ctx, alice, engine.ClaimPayoutParams{MarketID: 1, Accounts: f.accounts(1)})
	require.NoError(t, err)
	assert.Equal(t, pot, aliceClaim.Amount)
	assert.Equal(t, aliceBuy.Shares, aliceClaim.SharesBurned)
	assert.Equal(t, uint64(0), f.balance(m.Vault))

	// A repeat claim settles to zero, not an error.
	again, err := f.eng.ClaimPayout(f.ctx, alice, engine.ClaimPayoutParams{MarketID: 1, Accounts: f.accounts(1)})
	require.NoError(t, err)
	assert.Equal(t, uint64(0), again.Amount)
	assert.Equal(t, uint64(0), again.SharesBurned)

	// So does a claim from a caller who never bet.
	carolClaim, err := f.eng.ClaimPayout(f.ctx, carol, engine.ClaimPayoutParams{MarketID: 1, Accounts: f.accounts(1)})
	require.NoError(t, err)
	assert.Equal(t, uint64(0), carolClaim.Amount)

	// The collateral mirror drained in step with the vault.
	m, err = f.eng.GetMarket(f.ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), m.TotalCollateral)

	// Drained vault lets the admin close and delete the market.
	require.NoError(t, f.eng.CloseMarket(f.ctx, admin, 1, f.accounts(1)))
	_, err = f.eng.GetMarket(f.ctx, 1)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestResolvePriceFeed(t *testing.T) {
	f := newFixture(t)
	f.fund(admin, unit)
	feed := common.HexToHash("0xfeed")
	params := f.marketParams(1)
	params.OracleSource = domain.OraclePriceFeed
	params.OracleFeed = feed
	params.OracleThreshold = 100_000
	_, err := f.eng.CreateMarket(f.ctx, admin, params)
	require.NoError(t, err)

	f.advance(1_001 * time.Second)
	resolve := func(report *domain.PriceReport) (*domain.Market, error) {
		return f.eng.ResolveMarket(f.ctx, admin, engine.ResolveMarketParams{
			MarketID: 1, Accounts: f.accounts(1), Report: report,
		})
	}

	_, err = resolve(nil)
	assert.ErrorIs(t, err, domain.ErrInvalidPriceFeed)

	_, err = resolve(&domain.PriceReport{
		FeedID: common.HexToHash("0xbad"), Price: 120_000, PublishedAt: f.now.Unix(),
	})
	assert.ErrorIs(t, err, domain.ErrInvalidPriceFeed)

	_, err = resolve(&domain.PriceReport{
		FeedID: feed, Price: 120_000, PublishedAt: f.now.Unix() - domain.MaxOracleAge - 1,
	})
	assert.ErrorIs(t, err, domain.ErrStaleOracle)

	m, err := resolve(&domain.PriceReport{
		FeedID: feed, Price: 120_000, PublishedAt: f.now.Unix() - 5,
	})
	require.NoError(t, err)
	require.NotNil(t, m.ResolvedOutcome)
	assert.Equal(t, domain.OutcomeYes, *m.ResolvedOutcome)
	require.NotNil(t, m.ResolutionPrice)
	assert.Equal(t, int64(120_000), *m.ResolutionPrice)
}

func TestDisputeFlow(t *testing.T) {
	f := newFixture(t)
	f.createMarket(1)
	f.fund(bob, unit)

	d := f.eng.Deriver()
	disputeRef := d.Dispute(d.Market(1))
	open := func(caller common.Address) (*domain.DisputeRecord, error) {
		return f.eng.OpenDispute(f.ctx, caller, engine.OpenDisputeParams{
			MarketID: 1, MarketRef: f.accounts(1).Market, DisputeRef: disputeRef,
			Reason: "outcome contradicts the reference source",
		})
	}

	// Only resolved markets can be disputed.
	_, err := open(bob)
	assert.ErrorIs(t, err, domain.ErrMarketNotResolved)

	f.advance(1_001 * time.Second)
	_, err = f.eng.ResolveMarket(f.ctx, admin, engine.ResolveMarketParams{
		MarketID: 1, Accounts: f.accounts(1), Outcome: domain.OutcomeNo,
	})
	require.NoError(t, err)

	treasuryBefore := f.balance(treasury)
	rec, err := open(bob)
	require.NoError(t, err)
	assert.Equal(t, domain.DisputeOpen, rec.Status)
	assert.Equal(t, uint64(5_000_000), rec.BondAmount)
	assert.Equal(t, treasuryBefore+5_000_000, f.balance(treasury))

	// One dispute per market.
	_, err = open(bob)
	assert.ErrorIs(t, err, domain.ErrDisputeExists)

	// A non-admin settle attempt fails before touching the record.
	_, err = f.eng.SettleDispute(f.ctx, bob, engine.SettleDisputeParams{
		MarketID: 1, MarketRef: f.accounts(1).Market, DisputeRef: disputeRef,
		NewOutcome: domain.OutcomeYes,
	})
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	rec, err = f.eng.SettleDispute(f.ctx, admin, engine.SettleDisputeParams{
		MarketID: 1, MarketRef: f.accounts(1).Market, DisputeRef: disputeRef,
		NewOutcome: domain.OutcomeYes,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.DisputeUpheld, rec.Status)

	// The ruling overwrote the outcome; the market stays resolved.
	m, err := f.eng.GetMarket(f.ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, domain.MarketStatusResolved, m.Status)
	require.NotNil(t, m.ResolvedOutcome)
	assert.Equal(t, domain.OutcomeYes, *m.ResolvedOutcome)

	// Settled disputes are final.
	_, err = f.eng.SettleDispute(f.ctx, admin, engine.SettleDisputeParams{
		MarketID: 1, MarketRef: f.accounts(1).Market, DisputeRef: disputeRef,
		NewOutcome: domain.OutcomeNo,
	})
	assert.ErrorIs(t, err, domain.ErrDisputeNotOpen)
}

func TestInvalidOutcomeRefundsBothSides(t *testing.T) {
	f := newFixture(t)
	f.createMarket(1)
	f.fund(alice, unit)
	f.fund(bob, unit)

	_, err := f.eng.PlaceBet(f.ctx, alice, engine.PlaceBetParams{
		MarketID: 1, Accounts: f.accounts(1), Side: domain.SideYes, Amount: unit / 2,
	})
	require.NoError(t, err)
	_, err = f.eng.PlaceBet(f.ctx, bob, engine.PlaceBetParams{
		MarketID: 1, Accounts: f.accounts(1), Side: domain.SideNo, Amount: unit / 5,
	})
	require.NoError(t, err)

	f.advance(1_001 * time.Second)
	m, err := f.eng.ResolveMarket(f.ctx, admin, engine.ResolveMarketParams{
		MarketID: 1, Accounts: f.accounts(1), Outcome: domain.OutcomeInvalid,
	})
	require.NoError(t, err)
	pot := m.TotalCollateral

	// Vault still holds dust, so the market cannot be closed yet.
	assert.ErrorIs(t, f.eng.CloseMarket(f.ctx, admin, 1, f.accounts(1)), domain.ErrOutstandingPositions)

	aliceClaim, err := f.eng.ClaimPayout(f.ctx, alice, engine.ClaimPayoutParams{MarketID: 1, Accounts: f.accounts(1)})
	require.NoError(t, err)
	bobClaim, err := f.eng.ClaimPayout(f.ctx, bob, engine.ClaimPayoutParams{MarketID: 1, Accounts: f.accounts(1)})
	require.NoError(t, err)

	// Both sides get something back and the pot covers every refund.
	assert.Greater(t, aliceClaim.Amount, uint64(0))
	assert.Greater(t, bobClaim.Amount, uint64(0))
	assert.LessOrEqual(t, aliceClaim.Amount+bobClaim.Amount, pot)
	assert.Equal(t, pot-aliceClaim.Amount-bobClaim.Amount, f.balance(m.Vault))

	// The mirror tracks the vault through settlement while the refund base
	// stays frozen at the resolution snapshot.
	m, err = f.eng.GetMarket(f.ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, f.balance(m.Vault), m.TotalCollateral)
	assert.Equal(t, pot, m.ResolutionCollateral)
}

func TestCancelMarketRefunds(t *testing.T) {
	f := newFixture(t)
	f.createMarket(1)
	f.fund(alice, unit)

	_, err := f.eng.PlaceBet(f.ctx, alice, engine.PlaceBetParams{
		MarketID: 1, Accounts: f.accounts(1), Side: domain.SideYes, Amount: unit / 2,
	})
	require.NoError(t, err)

	assert.ErrorIs(t, f.eng.CancelMarket(f.ctx, alice, 1, f.accounts(1).Market), domain.ErrUnauthorized)
	require.NoError(t, f.eng.CancelMarket(f.ctx, admin, 1, f.accounts(1).Market))

	m, err := f.eng.GetMarket(f.ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, domain.MarketStatusCancelled, m.Status)

	// Claims on a cancelled market follow the refund split.
	claim, err := f.eng.ClaimPayout(f.ctx, alice, engine.ClaimPayoutParams{MarketID: 1, Accounts: f.accounts(1)})
	require.NoError(t, err)
	assert.Greater(t, claim.Amount, uint64(0))
	assert.LessOrEqual(t, claim.Amount, m.TotalCollateral)

	m, err = f.eng.GetMarket(f.ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, f.balance(m.Vault), m.TotalCollateral)

	// Cancel is not repeatable.
	assert.ErrorIs(t, f.eng.CancelMarket(f.ctx, admin, 1, f.accounts(1).Market), domain.ErrInvalidMarketStatus)
}

func TestCloseRequiresSettledStatus(t *testing.T) {
	f := newFixture(t)
	f.createMarket(1)
	assert.ErrorIs(t, f.eng.CloseMarket(f.ctx, admin, 1, f.accounts(1)), domain.ErrMarketNotCloseable)
}

func TestUpdatePlatformSettings(t *testing.T) {
	f := newFixture(t)

	assert.ErrorIs(t, f.eng.UpdateFees(f.ctx, alice, 300), domain.ErrUnauthorized)
	assert.ErrorIs(t, f.eng.UpdateFees(f.ctx, admin, domain.MaxFeeBps+1), domain.ErrFeeExceedsMax)
	require.NoError(t, f.eng.UpdateFees(f.ctx, admin, 300))

	require.NoError(t, f.eng.UpdateTreasury(f.ctx, admin, bob))
	require.NoError(t, f.eng.UpdateCollateralAsset(f.ctx, admin, alice, bob))
}
