package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ethereum/go-ethereum/common"

	"github.com/openpredict/predictd/internal/domain"
	"github.com/openpredict/predictd/internal/pda"
)

// MarketAccounts are the derived account references a market instruction
// must present. Every field is validated against its derivation before any
// state is touched.
type MarketAccounts struct {
	Market  common.Address
	Vault   common.Address
	YesMint common.Address
	NoMint  common.Address
}

// CreateMarketParams describes a new market.
type CreateMarketParams struct {
	MarketID    uint64
	Title       string
	Description string
	Category    domain.MarketCategory

	OracleSource    domain.OracleSource
	OracleFeed      common.Hash
	OracleThreshold int64

	StartTimestamp int64
	LockTimestamp  int64
	EndTimestamp   int64

	MinBet           uint64
	MaxBet           uint64
	FeeBps           uint16
	InitialLiquidity uint64

	Accounts MarketAccounts
}

// CreateMarket creates a market and seeds both AMM reserves with the
// admin-funded initial liquidity, so the market is born at a 50/50 price.
// Admin only.
func (e *Engine) CreateMarket(ctx context.Context, caller common.Address, params CreateMarketParams) (*domain.Market, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	platform, err := e.requireAdmin(ctx, caller)
	if err != nil {
		return nil, err
	}
	if platform.Paused {
		return nil, domain.ErrPlatformPaused
	}

	// Metadata and parameter guards, all before any transfer.
	if len(params.Title) > domain.MaxTitleLen {
		return nil, domain.ErrTitleTooLong
	}
	if len(params.Description) > domain.MaxDescriptionLen {
		return nil, domain.ErrDescriptionTooLong
	}
	if params.StartTimestamp >= params.LockTimestamp || params.LockTimestamp >= params.EndTimestamp {
		return nil, domain.ErrInvalidTimestamps
	}
	if params.FeeBps > domain.MaxFeeBps {
		return nil, domain.ErrFeeExceedsMax
	}
	if params.InitialLiquidity == 0 {
		return nil, domain.ErrNoLiquidity
	}

	marketAddr := e.deriver.Market(params.MarketID)
	if err := pda.Expect(params.Accounts.Market, marketAddr); err != nil {
		return nil, err
	}
	vault := e.deriver.Vault(marketAddr)
	yesMint := e.deriver.YesMint(marketAddr)
	noMint := e.deriver.NoMint(marketAddr)
	if err := pda.Expect(params.Accounts.Vault, vault); err != nil {
		return nil, err
	}
	if err := pda.Expect(params.Accounts.YesMint, yesMint); err != nil {
		return nil, err
	}
	if err := pda.Expect(params.Accounts.NoMint, noMint); err != nil {
		return nil, err
	}

	if _, err := e.markets.Get(ctx, params.MarketID); err == nil {
		return nil, domain.ErrAlreadyExists
	}

	// Seed the vault from the admin's own collateral.
	if err := e.bank.Transfer(ctx, caller, vault, params.InitialLiquidity); err != nil {
		return nil, fmt.Errorf("engine: seed vault: %w", err)
	}

	now := e.clock()
	status := domain.MarketStatusActive
	if params.StartTimestamp > now.Unix() {
		status = domain.MarketStatusPending
	}

	m := &domain.Market{
		ID:              params.MarketID,
		Creator:         caller,
		Title:           params.Title,
		Description:     params.Description,
		Category:        params.Category,
		Status:          status,
		Vault:           vault,
		YesMint:         yesMint,
		NoMint:          noMint,
		YesReserve:      params.InitialLiquidity,
		NoReserve:       params.InitialLiquidity,
		TotalCollateral: params.InitialLiquidity,
		OracleSource:    params.OracleSource,
		OracleFeed:      params.OracleFeed,
		OracleThreshold: params.OracleThreshold,
		StartTimestamp:  params.StartTimestamp,
		LockTimestamp:   params.LockTimestamp,
		EndTimestamp:    params.EndTimestamp,
		MinBet:          params.MinBet,
		MaxBet:          params.MaxBet,
		FeeBps:          params.FeeBps,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := e.markets.Create(ctx, m); err != nil {
		return nil, fmt.Errorf("engine: create market: %w", err)
	}

	platform.TotalMarkets++
	platform.UpdatedAt = now
	if err := e.platform.Update(ctx, platform); err != nil {
		return nil, fmt.Errorf("engine: bump market counter: %w", err)
	}

	e.logger.InfoContext(ctx, "market created",
		slog.Uint64("market_id", m.ID),
		slog.String("title", m.Title),
		slog.Uint64("initial_liquidity", params.InitialLiquidity),
	)
	e.cachePrices(ctx, m)
	e.publish(ctx, domain.ChannelMarkets, domain.MarketCreatedEvent{
		MarketID:         m.ID,
		Creator:          caller,
		Title:            m.Title,
		OracleSource:     string(m.OracleSource),
		InitialLiquidity: params.InitialLiquidity,
		EndTimestamp:     m.EndTimestamp,
	})
	return m.Clone(), nil
}

// PauseMarket flips an Active market to Paused. Admin only; any other
// status is rejected.
func (e *Engine) PauseMarket(ctx context.Context, caller common.Address, marketID uint64, marketRef common.Address) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, err := e.requireAdmin(ctx, caller); err != nil {
		return err
	}
	m, err := e.loadMarket(ctx, marketID, marketRef)
	if err != nil {
		return err
	}
	if m.Status != domain.MarketStatusActive {
		return domain.ErrInvalidMarketStatus
	}

	m.Status = domain.MarketStatusPaused
	m.UpdatedAt = e.clock()
	if err := e.markets.Update(ctx, m); err != nil {
		return fmt.Errorf("engine: pause market: %w", err)
	}
	e.publishStatus(ctx, m)
	return nil
}

// UnpauseMarket returns a Paused market to Active. Admin only.
func (e *Engine) UnpauseMarket(ctx context.Context, caller common.Address, marketID uint64, marketRef common.Address) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, err := e.requireAdmin(ctx, caller); err != nil {
		return err
	}
	m, err := e.loadMarket(ctx, marketID, marketRef)
	if err != nil {
		return err
	}
	if m.Status != domain.MarketStatusPaused {
		return domain.ErrInvalidMarketStatus
	}

	m.Status = domain.MarketStatusActive
	m.UpdatedAt = e.clock()
	if err := e.markets.Update(ctx, m); err != nil {
		return fmt.Errorf("engine: unpause market: %w", err)
	}
	e.publishStatus(ctx, m)
	return nil
}

// CancelMarket voids an Active or Paused (or time-locked) market before
// resolution. Open positions become refundable through ClaimPayout under
// the same split rule as an Invalid outcome, so reserves and supplies are
// snapshotted here. Admin only.
func (e *Engine) CancelMarket(ctx context.Context, caller common.Address, marketID uint64, marketRef common.Address) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, err := e.requireAdmin(ctx, caller); err != nil {
		return err
	}
	m, err := e.loadMarket(ctx, marketID, marketRef)
	if err != nil {
		return err
	}
	switch m.Status {
	case domain.MarketStatusActive, domain.MarketStatusPaused, domain.MarketStatusLocked, domain.MarketStatusPending:
	default:
		return domain.ErrInvalidMarketStatus
	}

	yesSupply, err := e.shares.Supply(ctx, m.YesMint)
	if err != nil {
		return fmt.Errorf("engine: read yes supply: %w", err)
	}
	noSupply, err := e.shares.Supply(ctx, m.NoMint)
	if err != nil {
		return fmt.Errorf("engine: read no supply: %w", err)
	}

	m.Status = domain.MarketStatusCancelled
	m.ResolutionCollateral = m.TotalCollateral
	m.ResolutionYesReserve = m.YesReserve
	m.ResolutionNoReserve = m.NoReserve
	m.ResolutionYesSupply = yesSupply
	m.ResolutionNoSupply = noSupply
	m.UpdatedAt = e.clock()
	if err := e.markets.Update(ctx, m); err != nil {
		return fmt.Errorf("engine: cancel market: %w", err)
	}

	e.logger.InfoContext(ctx, "market cancelled", slog.Uint64("market_id", m.ID))
	e.publishStatus(ctx, m)
	return nil
}

// CloseMarket destroys a settled market's records and reclaims its
// accounts. The market must be Resolved or Cancelled and its vault must be
// fully drained; anything else is refused so funds can never be stranded by
// a premature close. Admin only.
func (e *Engine) CloseMarket(ctx context.Context, caller common.Address, marketID uint64, accounts MarketAccounts) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, err := e.requireAdmin(ctx, caller); err != nil {
		return err
	}
	m, err := e.loadMarket(ctx, marketID, accounts.Market)
	if err != nil {
		return err
	}
	if err := e.verifyMarketAccounts(m, accounts.Vault, accounts.YesMint, accounts.NoMint); err != nil {
		return err
	}

	if m.Status != domain.MarketStatusResolved && m.Status != domain.MarketStatusCancelled {
		return domain.ErrMarketNotCloseable
	}

	vaultBalance, err := e.bank.Balance(ctx, m.Vault)
	if err != nil {
		return fmt.Errorf("engine: read vault: %w", err)
	}
	if vaultBalance != 0 {
		return domain.ErrOutstandingPositions
	}

	if err := e.markets.Delete(ctx, m.ID); err != nil {
		return fmt.Errorf("engine: close market: %w", err)
	}

	e.logger.InfoContext(ctx, "market closed", slog.Uint64("market_id", m.ID))
	e.publish(ctx, domain.ChannelSettlement, domain.MarketStatusEvent{
		MarketID:  m.ID,
		Status:    string(domain.MarketStatusClosed),
		Timestamp: e.now(),
	})
	return nil
}

func (e *Engine) publishStatus(ctx context.Context, m *domain.Market) {
	e.publish(ctx, domain.ChannelMarkets, domain.MarketStatusEvent{
		MarketID:  m.ID,
		Status:    string(m.Status),
		Timestamp: e.now(),
	})
}

// GetMarket returns a market snapshot for the read API.
func (e *Engine) GetMarket(ctx context.Context, id uint64) (*domain.Market, error) {
	return e.markets.Get(ctx, id)
}

// ListMarkets returns markets matching the filter for the read API.
func (e *Engine) ListMarkets(ctx context.Context, f domain.MarketFilter) ([]*domain.Market, error) {
	return e.markets.List(ctx, f)
}

// GetPosition returns a user's position snapshot for the read API.
func (e *Engine) GetPosition(ctx context.Context, marketID uint64, user common.Address) (*domain.UserPosition, error) {
	return e.positions.Get(ctx, marketID, user)
}
