package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ethereum/go-ethereum/common"

	"github.com/openpredict/predictd/internal/domain"
)

// ResolveMarketParams carries the resolution inputs. Outcome is consulted
// only on the manual path; Report only on the price-feed path.
type ResolveMarketParams struct {
	MarketID uint64
	Accounts MarketAccounts

	Outcome domain.Outcome
	Report  *domain.PriceReport
}

// ResolveMarket finalizes a market's outcome. Manual markets take the
// admin-supplied outcome as-is, Invalid included. Price-feed markets derive
// the outcome from a validated report: the feed identity must match the one
// fixed at creation and the report must be fresh. Either way the pot, the
// reserves, and the outstanding share supplies are snapshotted here; the
// snapshots are the terms of the Invalid-outcome refund split. Admin only.
func (e *Engine) ResolveMarket(ctx context.Context, caller common.Address, params ResolveMarketParams) (*domain.Market, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, err := e.requireAdmin(ctx, caller); err != nil {
		return nil, err
	}
	m, err := e.loadMarket(ctx, params.MarketID, params.Accounts.Market)
	if err != nil {
		return nil, err
	}
	if err := e.verifyMarketAccounts(m, params.Accounts.Vault, params.Accounts.YesMint, params.Accounts.NoMint); err != nil {
		return nil, err
	}

	if m.Status == domain.MarketStatusResolved {
		return nil, domain.ErrAlreadyResolved
	}
	if m.Status != domain.MarketStatusActive && m.Status != domain.MarketStatusLocked {
		return nil, domain.ErrInvalidMarketStatus
	}
	now := e.now()
	if now < m.LockTimestamp {
		return nil, domain.ErrResolutionTooEarly
	}

	outcome := params.Outcome
	var resolutionPrice *int64
	switch m.OracleSource {
	case domain.OracleManualAdmin:
		if outcome != domain.OutcomeYes && outcome != domain.OutcomeNo && outcome != domain.OutcomeInvalid {
			return nil, domain.ErrInvalidOutcome
		}
	case domain.OraclePriceFeed:
		report := params.Report
		if report == nil || report.FeedID != m.OracleFeed {
			return nil, domain.ErrInvalidPriceFeed
		}
		if report.PublishedAt > now || now-report.PublishedAt > domain.MaxOracleAge {
			return nil, domain.ErrStaleOracle
		}
		if report.Price >= m.OracleThreshold {
			outcome = domain.OutcomeYes
		} else {
			outcome = domain.OutcomeNo
		}
		price := report.Price
		resolutionPrice = &price
	default:
		return nil, domain.ErrInvalidOutcome
	}

	yesSupply, err := e.shares.Supply(ctx, m.YesMint)
	if err != nil {
		return nil, fmt.Errorf("engine: read yes supply: %w", err)
	}
	noSupply, err := e.shares.Supply(ctx, m.NoMint)
	if err != nil {
		return nil, fmt.Errorf("engine: read no supply: %w", err)
	}

	m.Status = domain.MarketStatusResolved
	m.ResolvedOutcome = &outcome
	m.ResolutionPrice = resolutionPrice
	m.ResolvedAt = &now
	m.ResolutionCollateral = m.TotalCollateral
	m.ResolutionYesReserve = m.YesReserve
	m.ResolutionNoReserve = m.NoReserve
	m.ResolutionYesSupply = yesSupply
	m.ResolutionNoSupply = noSupply
	m.UpdatedAt = e.clock()
	if err := e.markets.Update(ctx, m); err != nil {
		return nil, fmt.Errorf("engine: resolve market: %w", err)
	}

	e.logger.InfoContext(ctx, "market resolved",
		slog.Uint64("market_id", m.ID),
		slog.String("outcome", outcome.String()),
		slog.Uint64("total_collateral", m.TotalCollateral),
	)
	e.publish(ctx, domain.ChannelMarkets, domain.MarketResolvedEvent{
		MarketID:        m.ID,
		Outcome:         outcome.String(),
		ResolutionPrice: resolutionPrice,
		TotalCollateral: m.TotalCollateral,
		Timestamp:       now,
	})
	return m.Clone(), nil
}
