package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ethereum/go-ethereum/common"

	"github.com/openpredict/predictd/internal/amm"
	"github.com/openpredict/predictd/internal/domain"
)

// PlaceBetParams describes a bet.
type PlaceBetParams struct {
	MarketID uint64
	Accounts MarketAccounts
	Side     domain.Side
	Amount   uint64
	// MinSharesOut is the caller's slippage floor; 0 disables the check.
	MinSharesOut uint64
}

// BetResult reports the executed trade.
type BetResult struct {
	Shares uint64
	Fee    uint64
}

// PlaceBet buys outcome shares with collateral. The gross amount splits into
// a treasury fee and a net amount priced through the constant-product curve;
// the net enters the vault and the opposite reserve while the same-side
// reserve is drawn down by the shares minted.
func (e *Engine) PlaceBet(ctx context.Context, caller common.Address, params PlaceBetParams) (*BetResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	platform, err := e.platform.Get(ctx)
	if err != nil {
		return nil, err
	}
	if platform.Paused {
		return nil, domain.ErrPlatformPaused
	}

	m, err := e.loadMarket(ctx, params.MarketID, params.Accounts.Market)
	if err != nil {
		return nil, err
	}
	if err := e.verifyMarketAccounts(m, params.Accounts.Vault, params.Accounts.YesMint, params.Accounts.NoMint); err != nil {
		return nil, err
	}
	now := e.now()
	if err := e.requireBettingOpen(m, now); err != nil {
		return nil, err
	}

	if params.Amount < m.MinBet {
		return nil, domain.ErrBelowMinBet
	}
	if m.MaxBet > 0 && params.Amount > m.MaxBet {
		return nil, domain.ErrAboveMaxBet
	}

	reserveIn, reserveOut := m.YesReserve, m.NoReserve
	if params.Side == domain.SideNo {
		reserveIn, reserveOut = m.NoReserve, m.YesReserve
	}
	shares, fee, err := amm.QuoteBuy(reserveIn, reserveOut, params.Amount, m.FeeBps)
	if err != nil {
		return nil, err
	}
	if params.MinSharesOut > 0 && shares < params.MinSharesOut {
		return nil, domain.ErrSlippageExceeded
	}
	net := params.Amount - fee

	// Cover the whole gross amount before either transfer so a shortfall
	// cannot leave the fee paid without the deposit.
	balance, err := e.bank.Balance(ctx, caller)
	if err != nil {
		return nil, fmt.Errorf("engine: read balance: %w", err)
	}
	if balance < params.Amount {
		return nil, domain.ErrInsufficientFunds
	}
	if err := e.bank.Transfer(ctx, caller, m.Vault, net); err != nil {
		return nil, fmt.Errorf("engine: deposit collateral: %w", err)
	}
	if err := e.bank.Transfer(ctx, caller, platform.Treasury, fee); err != nil {
		return nil, fmt.Errorf("engine: route fee: %w", err)
	}
	if err := e.shares.Mint(ctx, m.MintFor(params.Side), caller, shares); err != nil {
		return nil, fmt.Errorf("engine: mint shares: %w", err)
	}

	newIn, newOut := amm.ApplyBuy(reserveIn, reserveOut, shares, net)
	if params.Side == domain.SideYes {
		m.YesReserve, m.NoReserve = newIn, newOut
	} else {
		m.NoReserve, m.YesReserve = newIn, newOut
	}
	m.TotalCollateral += net
	m.UpdatedAt = e.clock()
	if err := e.markets.Update(ctx, m); err != nil {
		return nil, fmt.Errorf("engine: update market: %w", err)
	}

	pos, err := e.positions.Get(ctx, m.ID, caller)
	if err != nil {
		pos = &domain.UserPosition{
			User:      caller,
			MarketID:  m.ID,
			CreatedAt: e.clock(),
		}
	}
	if params.Side == domain.SideYes {
		pos.YesShares += shares
	} else {
		pos.NoShares += shares
	}
	pos.TotalDeposited += params.Amount
	pos.LastBetAt = now
	pos.UpdatedAt = e.clock()
	if err := e.positions.Upsert(ctx, pos); err != nil {
		return nil, fmt.Errorf("engine: upsert position: %w", err)
	}

	e.logger.InfoContext(ctx, "bet placed",
		slog.Uint64("market_id", m.ID),
		slog.String("user", caller.Hex()),
		slog.String("side", params.Side.String()),
		slog.Uint64("amount", params.Amount),
		slog.Uint64("shares", shares),
	)
	e.cachePrices(ctx, m)
	e.publish(ctx, domain.ChannelBets, domain.BetPlacedEvent{
		MarketID:   m.ID,
		User:       caller,
		Side:       params.Side.String(),
		Amount:     params.Amount,
		Fee:        fee,
		Shares:     shares,
		YesReserve: m.YesReserve,
		NoReserve:  m.NoReserve,
		Timestamp:  now,
	})
	return &BetResult{Shares: shares, Fee: fee}, nil
}

// CancelResult reports an executed early exit.
type CancelResult struct {
	Refund uint64
	Fee    uint64
}

// CancelBetParams describes an early exit from a position.
type CancelBetParams struct {
	MarketID uint64
	Accounts MarketAccounts
	Side     domain.Side
	Shares   uint64
	// MinRefundOut is the caller's slippage floor; 0 disables the check.
	MinRefundOut uint64
}

// CancelBet sells shares back to the pool while betting is still open. The
// shares return to their side's reserve and the refund is drawn from the
// opposite reserve, with the exit fee carved out of the raw refund and sent
// to the treasury.
func (e *Engine) CancelBet(ctx context.Context, caller common.Address, params CancelBetParams) (*CancelResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	platform, err := e.platform.Get(ctx)
	if err != nil {
		return nil, err
	}

	m, err := e.loadMarket(ctx, params.MarketID, params.Accounts.Market)
	if err != nil {
		return nil, err
	}
	if err := e.verifyMarketAccounts(m, params.Accounts.Vault, params.Accounts.YesMint, params.Accounts.NoMint); err != nil {
		return nil, err
	}
	now := e.now()
	if err := e.requireBettingOpen(m, now); err != nil {
		return nil, err
	}

	pos, err := e.positions.Get(ctx, m.ID, caller)
	if err != nil {
		return nil, domain.ErrInsufficientShares
	}
	if pos.SharesFor(params.Side) < params.Shares {
		return nil, domain.ErrInsufficientShares
	}

	reserveSide, reserveOther := m.YesReserve, m.NoReserve
	if params.Side == domain.SideNo {
		reserveSide, reserveOther = m.NoReserve, m.YesReserve
	}
	refund, fee, err := amm.QuoteSell(reserveSide, reserveOther, params.Shares, m.FeeBps)
	if err != nil {
		return nil, err
	}
	if params.MinRefundOut > 0 && refund < params.MinRefundOut {
		return nil, domain.ErrSlippageExceeded
	}
	if refund+fee > m.TotalCollateral {
		return nil, domain.ErrInsufficientVault
	}

	if err := e.shares.Burn(ctx, m.MintFor(params.Side), caller, params.Shares); err != nil {
		return nil, fmt.Errorf("engine: burn shares: %w", err)
	}
	if err := e.bank.Transfer(ctx, m.Vault, caller, refund); err != nil {
		return nil, fmt.Errorf("engine: refund collateral: %w", err)
	}
	if err := e.bank.Transfer(ctx, m.Vault, platform.Treasury, fee); err != nil {
		return nil, fmt.Errorf("engine: route exit fee: %w", err)
	}

	newSide, newOther := amm.ApplySell(reserveSide, reserveOther, params.Shares, refund, fee)
	if params.Side == domain.SideYes {
		m.YesReserve, m.NoReserve = newSide, newOther
	} else {
		m.NoReserve, m.YesReserve = newSide, newOther
	}
	m.TotalCollateral -= refund + fee
	m.UpdatedAt = e.clock()
	if err := e.markets.Update(ctx, m); err != nil {
		return nil, fmt.Errorf("engine: update market: %w", err)
	}

	if params.Side == domain.SideYes {
		pos.YesShares -= params.Shares
	} else {
		pos.NoShares -= params.Shares
	}
	pos.UpdatedAt = e.clock()
	if err := e.positions.Upsert(ctx, pos); err != nil {
		return nil, fmt.Errorf("engine: upsert position: %w", err)
	}

	e.logger.InfoContext(ctx, "bet cancelled",
		slog.Uint64("market_id", m.ID),
		slog.String("user", caller.Hex()),
		slog.String("side", params.Side.String()),
		slog.Uint64("shares", params.Shares),
		slog.Uint64("refund", refund),
	)
	e.cachePrices(ctx, m)
	e.publish(ctx, domain.ChannelBets, domain.BetCancelledEvent{
		MarketID:     m.ID,
		User:         caller,
		Side:         params.Side.String(),
		SharesBurned: params.Shares,
		Refund:       refund,
		Fee:          fee,
		Timestamp:    now,
	})
	return &CancelResult{Refund: refund, Fee: fee}, nil
}

// QuoteBet prices a prospective bet without executing it.
func (e *Engine) QuoteBet(ctx context.Context, marketID uint64, side domain.Side, amount uint64) (shares, fee uint64, err error) {
	m, err := e.markets.Get(ctx, marketID)
	if err != nil {
		return 0, 0, err
	}
	reserveIn, reserveOut := m.YesReserve, m.NoReserve
	if side == domain.SideNo {
		reserveIn, reserveOut = m.NoReserve, m.YesReserve
	}
	return amm.QuoteBuy(reserveIn, reserveOut, amount, m.FeeBps)
}

// requireBettingOpen enforces the trading window. A Pending market whose
// start time has passed is promoted in place; an Active market past its lock
// time refuses trades even though the stored status has not been rewritten.
func (e *Engine) requireBettingOpen(m *domain.Market, now int64) error {
	switch m.Status {
	case domain.MarketStatusPending:
		if now < m.StartTimestamp {
			return domain.ErrInvalidMarketStatus
		}
		m.Status = domain.MarketStatusActive
	case domain.MarketStatusActive:
	default:
		return domain.ErrInvalidMarketStatus
	}
	if now < m.StartTimestamp {
		return domain.ErrInvalidMarketStatus
	}
	if now >= m.LockTimestamp {
		return domain.ErrBettingClosed
	}
	return nil
}
