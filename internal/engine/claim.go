package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/openpredict/predictd/internal/domain"
)

// ClaimPayoutParams identifies the position being settled.
type ClaimPayoutParams struct {
	MarketID uint64
	Accounts MarketAccounts
}

// ClaimResult reports the settled payout.
type ClaimResult struct {
	Amount       uint64
	SharesBurned uint64
}

// ClaimPayout settles a caller's position after resolution or cancellation.
//
// A Yes or No outcome pays winners pro rata from whatever remains in the
// vault, with the live share supply as denominator. Because each claim burns
// the shares it pays for, the rate stays exact for every claimer and the
// final one drains the vault to zero. Losing shares are burned for nothing.
//
// An Invalid outcome (and a cancelled market) refunds both sides at fixed
// rates locked in at resolution: each side's pool is its share of the
// frozen settlement pot weighted by the resolution reserves, divided by
// that side's supply snapshot. Floor division on every term keeps the sum
// of all refunds within the pot.
//
// Claiming is idempotent. A caller with no shares left, or no position at
// all, gets a zero result rather than an error.
func (e *Engine) ClaimPayout(ctx context.Context, caller common.Address, params ClaimPayoutParams) (*ClaimResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	m, err := e.loadMarket(ctx, params.MarketID, params.Accounts.Market)
	if err != nil {
		return nil, err
	}
	if err := e.verifyMarketAccounts(m, params.Accounts.Vault, params.Accounts.YesMint, params.Accounts.NoMint); err != nil {
		return nil, err
	}

	var outcome domain.Outcome
	switch m.Status {
	case domain.MarketStatusResolved:
		if m.ResolvedOutcome == nil {
			return nil, domain.ErrMarketNotResolved
		}
		outcome = *m.ResolvedOutcome
	case domain.MarketStatusCancelled:
		outcome = domain.OutcomeInvalid
	default:
		return nil, domain.ErrMarketNotResolved
	}

	pos, err := e.positions.Get(ctx, m.ID, caller)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return &ClaimResult{}, nil
		}
		return nil, err
	}
	if pos.YesShares == 0 && pos.NoShares == 0 {
		return &ClaimResult{}, nil
	}

	vaultBalance, err := e.bank.Balance(ctx, m.Vault)
	if err != nil {
		return nil, fmt.Errorf("engine: read vault: %w", err)
	}

	var payout uint64
	switch outcome {
	case domain.OutcomeYes, domain.OutcomeNo:
		winMint, winShares := m.YesMint, pos.YesShares
		if outcome == domain.OutcomeNo {
			winMint, winShares = m.NoMint, pos.NoShares
		}
		if winShares > 0 {
			supply, err := e.shares.Supply(ctx, winMint)
			if err != nil {
				return nil, fmt.Errorf("engine: read supply: %w", err)
			}
			payout = mulDiv(winShares, vaultBalance, supply)
		}
	case domain.OutcomeInvalid:
		yesPool, noPool := splitPot(m.ResolutionCollateral, m.ResolutionYesReserve, m.ResolutionNoReserve)
		if pos.YesShares > 0 && m.ResolutionYesSupply > 0 {
			payout += mulDiv(pos.YesShares, yesPool, m.ResolutionYesSupply)
		}
		if pos.NoShares > 0 && m.ResolutionNoSupply > 0 {
			payout += mulDiv(pos.NoShares, noPool, m.ResolutionNoSupply)
		}
	}
	if payout > vaultBalance || payout > m.TotalCollateral {
		return nil, domain.ErrInsufficientVault
	}

	// Both sides burn: losing shares are worthless and refunded shares are
	// spent. The position empties in one claim.
	sharesBurned := pos.YesShares + pos.NoShares
	if pos.YesShares > 0 {
		if err := e.shares.Burn(ctx, m.YesMint, caller, pos.YesShares); err != nil {
			return nil, fmt.Errorf("engine: burn yes shares: %w", err)
		}
	}
	if pos.NoShares > 0 {
		if err := e.shares.Burn(ctx, m.NoMint, caller, pos.NoShares); err != nil {
			return nil, fmt.Errorf("engine: burn no shares: %w", err)
		}
	}
	if payout > 0 {
		if err := e.bank.Transfer(ctx, m.Vault, caller, payout); err != nil {
			return nil, fmt.Errorf("engine: pay out: %w", err)
		}
	}

	pos.YesShares = 0
	pos.NoShares = 0
	pos.TotalClaimed += payout
	pos.UpdatedAt = e.clock()
	if err := e.positions.Upsert(ctx, pos); err != nil {
		return nil, fmt.Errorf("engine: upsert position: %w", err)
	}

	// Keep the vault mirror exact: the checked subtraction above guarantees
	// this never wraps.
	m.TotalCollateral -= payout
	m.UpdatedAt = e.clock()
	if err := e.markets.Update(ctx, m); err != nil {
		return nil, fmt.Errorf("engine: update market: %w", err)
	}

	now := e.now()
	e.logger.InfoContext(ctx, "payout claimed",
		slog.Uint64("market_id", m.ID),
		slog.String("user", caller.Hex()),
		slog.Uint64("amount", payout),
		slog.Uint64("shares_burned", sharesBurned),
	)
	e.publish(ctx, domain.ChannelSettlement, domain.PayoutClaimedEvent{
		MarketID:     m.ID,
		User:         caller,
		Amount:       payout,
		SharesBurned: sharesBurned,
		Timestamp:    now,
	})
	return &ClaimResult{Amount: payout, SharesBurned: sharesBurned}, nil
}

// mulDiv returns floor(a*b/d) on a 128-bit intermediate. d must be nonzero
// and the result is capped by b whenever a <= d, which holds for every
// settlement call (shares never exceed supply).
func mulDiv(a, b, d uint64) uint64 {
	n := new(big.Int).SetUint64(a)
	n.Mul(n, new(big.Int).SetUint64(b))
	n.Div(n, new(big.Int).SetUint64(d))
	return n.Uint64()
}

// splitPot divides the settlement pot between the two sides in proportion to
// the resolution-time reserves. Floor on the yes side, remainder to the no
// side, so the pools never sum past the pot.
func splitPot(pot, yesReserve, noReserve uint64) (yesPool, noPool uint64) {
	total := new(big.Int).Add(
		new(big.Int).SetUint64(yesReserve),
		new(big.Int).SetUint64(noReserve),
	)
	if total.Sign() == 0 {
		return 0, 0
	}
	n := new(big.Int).SetUint64(pot)
	n.Mul(n, new(big.Int).SetUint64(yesReserve))
	n.Div(n, total)
	yesPool = n.Uint64()
	return yesPool, pot - yesPool
}
