// Package engine implements the prediction-market instruction processor:
// the market lifecycle state machine, constant-product bet pricing, outcome
// resolution with the dispute override path, and proportional payout
// settlement. Every instruction validates derived addresses and caller
// authority before it reads or writes any state, computes all effects, and
// only then commits — a guard failure leaves no partial mutation.
package engine

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/openpredict/predictd/internal/amm"
	"github.com/openpredict/predictd/internal/domain"
	"github.com/openpredict/predictd/internal/pda"
)

// Config bundles the engine's dependencies. Bus and Prices are optional;
// everything else is required.
type Config struct {
	// Program is the engine's own identity, the root of every derived
	// account address.
	Program common.Address

	Platform  domain.PlatformStore
	Markets   domain.MarketStore
	Positions domain.PositionStore
	Disputes  domain.DisputeStore

	Bank   domain.CollateralBank
	Shares domain.ShareLedger

	Bus    domain.EventPublisher
	Prices domain.PriceCache

	// Clock overrides time.Now; tests inject a fixed clock.
	Clock func() time.Time

	Logger *slog.Logger
}

// Engine executes instructions one at a time. The runtime owns every market
// record exclusively: a single mutex serializes instructions, so handlers
// never need internal locks and each instruction observes a consistent
// snapshot of reserves, vault, and positions.
type Engine struct {
	mu sync.Mutex

	program common.Address
	deriver *pda.Deriver

	platform  domain.PlatformStore
	markets   domain.MarketStore
	positions domain.PositionStore
	disputes  domain.DisputeStore

	bank   domain.CollateralBank
	shares domain.ShareLedger

	bus    domain.EventPublisher
	prices domain.PriceCache

	clock  func() time.Time
	logger *slog.Logger
}

// New creates an Engine from the given configuration.
func New(cfg Config) *Engine {
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		program:   cfg.Program,
		deriver:   pda.NewDeriver(cfg.Program),
		platform:  cfg.Platform,
		markets:   cfg.Markets,
		positions: cfg.Positions,
		disputes:  cfg.Disputes,
		bank:      cfg.Bank,
		shares:    cfg.Shares,
		bus:       cfg.Bus,
		prices:    cfg.Prices,
		clock:     clock,
		logger:    logger.With(slog.String("component", "engine")),
	}
}

// Deriver exposes the engine's address derivation so clients can compute the
// account references an instruction expects.
func (e *Engine) Deriver() *pda.Deriver { return e.deriver }

// now returns the current unix timestamp from the injected clock.
func (e *Engine) now() int64 { return e.clock().Unix() }

// requireAdmin loads the platform record and rejects callers other than the
// configured admin. It runs before any other state is trusted.
func (e *Engine) requireAdmin(ctx context.Context, caller common.Address) (*domain.PlatformConfig, error) {
	platform, err := e.platform.Get(ctx)
	if err != nil {
		return nil, err
	}
	if caller != platform.Admin {
		return nil, domain.ErrUnauthorized
	}
	return platform, nil
}

// loadMarket fetches a market after verifying the caller-supplied market
// account reference against its derivation.
func (e *Engine) loadMarket(ctx context.Context, id uint64, ref common.Address) (*domain.Market, error) {
	if err := pda.Expect(ref, e.deriver.Market(id)); err != nil {
		return nil, err
	}
	return e.markets.Get(ctx, id)
}

// verifyMarketAccounts checks the vault and both mint references for a
// market. Mismatches are rejected before any balance is read.
func (e *Engine) verifyMarketAccounts(m *domain.Market, vault, yesMint, noMint common.Address) error {
	marketAddr := e.deriver.Market(m.ID)
	if err := pda.Expect(vault, e.deriver.Vault(marketAddr)); err != nil {
		return err
	}
	if err := pda.Expect(yesMint, e.deriver.YesMint(marketAddr)); err != nil {
		return err
	}
	return pda.Expect(noMint, e.deriver.NoMint(marketAddr))
}

// publish serializes an event and pushes it onto the signal bus.
// Best-effort: the instruction has already committed, so failures are
// logged, not returned.
func (e *Engine) publish(ctx context.Context, channel string, event any) {
	if e.bus == nil {
		return
	}
	payload, err := json.Marshal(event)
	if err != nil {
		e.logger.ErrorContext(ctx, "marshal event", slog.String("error", err.Error()))
		return
	}
	if err := e.bus.Publish(ctx, channel, payload); err != nil {
		e.logger.WarnContext(ctx, "publish event",
			slog.String("channel", channel),
			slog.String("error", err.Error()),
		)
	}
}

// cachePrices refreshes the derived yes/no price snapshot for a market.
func (e *Engine) cachePrices(ctx context.Context, m *domain.Market) {
	if e.prices == nil {
		return
	}
	yes, no := amm.Prices(m.YesReserve, m.NoReserve)
	if err := e.prices.SetPrices(ctx, m.ID, yes.String(), no.String()); err != nil {
		e.logger.WarnContext(ctx, "cache prices",
			slog.Uint64("market_id", m.ID),
			slog.String("error", err.Error()),
		)
	}
}
