package oracle

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/openpredict/predictd/internal/domain"
	"github.com/openpredict/predictd/internal/engine"
)

// AutoResolver polls for price-feed markets past their lock time and
// resolves them with fresh reports from the feed service. Manual markets are
// never touched; those wait for the admin.
type AutoResolver struct {
	client   *Client
	eng      *engine.Engine
	markets  domain.MarketStore
	operator common.Address
	interval time.Duration
	logger   *slog.Logger
}

// NewAutoResolver creates an AutoResolver. The operator must be the platform
// admin for resolution calls to pass the engine's authority check.
func NewAutoResolver(client *Client, eng *engine.Engine, markets domain.MarketStore, operator common.Address, interval time.Duration, logger *slog.Logger) *AutoResolver {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &AutoResolver{
		client:   client,
		eng:      eng,
		markets:  markets,
		operator: operator,
		interval: interval,
		logger:   logger.With(slog.String("component", "auto_resolver")),
	}
}

// Run polls until the context is cancelled.
func (r *AutoResolver) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.logger.Info("auto resolver started", slog.Duration("interval", r.interval))
	defer r.logger.Info("auto resolver stopped")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			r.sweep(ctx)
		}
	}
}

// sweep resolves every due price-feed market it can. Individual failures are
// logged and retried on the next tick.
func (r *AutoResolver) sweep(ctx context.Context) {
	now := time.Now().Unix()

	for _, status := range []domain.MarketStatus{domain.MarketStatusActive, domain.MarketStatusLocked} {
		markets, err := r.markets.List(ctx, domain.MarketFilter{Status: status})
		if err != nil {
			r.logger.Warn("list markets", slog.String("error", err.Error()))
			return
		}
		for _, m := range markets {
			if m.OracleSource != domain.OraclePriceFeed || now < m.LockTimestamp {
				continue
			}
			if err := r.resolveOne(ctx, m); err != nil {
				r.logger.Warn("resolve market",
					slog.Uint64("market_id", m.ID),
					slog.String("error", err.Error()),
				)
			}
		}
	}
}

func (r *AutoResolver) resolveOne(ctx context.Context, m *domain.Market) error {
	report, err := r.client.LatestReport(ctx, m.OracleFeed)
	if err != nil {
		return err
	}

	d := r.eng.Deriver()
	market := d.Market(m.ID)
	_, err = r.eng.ResolveMarket(ctx, r.operator, engine.ResolveMarketParams{
		MarketID: m.ID,
		Accounts: engine.MarketAccounts{
			Market:  market,
			Vault:   d.Vault(market),
			YesMint: d.YesMint(market),
			NoMint:  d.NoMint(market),
		},
		Report: report,
	})
	if err != nil {
		// A market another path resolved first is not a failure.
		if errors.Is(err, domain.ErrAlreadyResolved) {
			return nil
		}
		return err
	}
	r.logger.Info("market auto-resolved", slog.Uint64("market_id", m.ID))
	return nil
}
