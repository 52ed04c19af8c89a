package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ethereum/go-ethereum/common"

	"github.com/openpredict/predictd/internal/domain"
	"github.com/openpredict/predictd/internal/pda"
)

// OpenDisputeParams challenges a resolved outcome.
type OpenDisputeParams struct {
	MarketID   uint64
	MarketRef  common.Address
	DisputeRef common.Address
	Reason     string
}

// OpenDispute records a challenge against a Resolved market. Any account may
// dispute by posting the platform dispute bond, which moves to the treasury
// immediately and is not returned even if the dispute is later upheld. One
// dispute per market.
func (e *Engine) OpenDispute(ctx context.Context, caller common.Address, params OpenDisputeParams) (*domain.DisputeRecord, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	platform, err := e.platform.Get(ctx)
	if err != nil {
		return nil, err
	}

	m, err := e.loadMarket(ctx, params.MarketID, params.MarketRef)
	if err != nil {
		return nil, err
	}
	if err := pda.Expect(params.DisputeRef, e.deriver.Dispute(e.deriver.Market(m.ID))); err != nil {
		return nil, err
	}
	if m.Status != domain.MarketStatusResolved {
		return nil, domain.ErrMarketNotResolved
	}
	if len(params.Reason) > domain.MaxDisputeReason {
		return nil, domain.ErrDescriptionTooLong
	}
	if _, err := e.disputes.Get(ctx, m.ID); err == nil {
		return nil, domain.ErrDisputeExists
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	if err := e.bank.Transfer(ctx, caller, platform.Treasury, platform.DisputeBond); err != nil {
		return nil, fmt.Errorf("engine: post dispute bond: %w", err)
	}

	now := e.now()
	d := &domain.DisputeRecord{
		MarketID:   m.ID,
		Disputer:   caller,
		Reason:     params.Reason,
		BondAmount: platform.DisputeBond,
		Status:     domain.DisputeOpen,
		CreatedAt:  e.clock(),
	}
	if err := e.disputes.Create(ctx, d); err != nil {
		return nil, fmt.Errorf("engine: create dispute: %w", err)
	}

	e.logger.InfoContext(ctx, "dispute opened",
		slog.Uint64("market_id", m.ID),
		slog.String("disputer", caller.Hex()),
		slog.Uint64("bond", platform.DisputeBond),
	)
	e.publish(ctx, domain.ChannelDisputes, domain.DisputeOpenedEvent{
		MarketID:  m.ID,
		Disputer:  caller,
		Reason:    params.Reason,
		Bond:      platform.DisputeBond,
		Timestamp: now,
	})
	return d.Clone(), nil
}

// SettleDisputeParams decides an open dispute.
type SettleDisputeParams struct {
	MarketID   uint64
	MarketRef  common.Address
	DisputeRef common.Address
	// NewOutcome is the admin's final ruling. If it differs from the
	// recorded outcome the dispute is upheld and the market's outcome is
	// overwritten; if it matches, the dispute is rejected.
	NewOutcome domain.Outcome
}

// SettleDispute rules on an open dispute. The admin check runs before the
// dispute record is even looked at, so a non-admin caller learns nothing and
// changes nothing. The market stays Resolved either way; only its recorded
// outcome (and the Invalid refund path it selects) can change. Admin only.
func (e *Engine) SettleDispute(ctx context.Context, caller common.Address, params SettleDisputeParams) (*domain.DisputeRecord, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, err := e.requireAdmin(ctx, caller); err != nil {
		return nil, err
	}
	m, err := e.loadMarket(ctx, params.MarketID, params.MarketRef)
	if err != nil {
		return nil, err
	}
	if err := pda.Expect(params.DisputeRef, e.deriver.Dispute(e.deriver.Market(m.ID))); err != nil {
		return nil, err
	}
	if m.Status != domain.MarketStatusResolved || m.ResolvedOutcome == nil {
		return nil, domain.ErrMarketNotResolved
	}
	if params.NewOutcome != domain.OutcomeYes && params.NewOutcome != domain.OutcomeNo && params.NewOutcome != domain.OutcomeInvalid {
		return nil, domain.ErrInvalidOutcome
	}

	d, err := e.disputes.Get(ctx, m.ID)
	if err != nil {
		return nil, err
	}
	if d.Status != domain.DisputeOpen {
		return nil, domain.ErrDisputeNotOpen
	}

	now := e.now()
	upheld := params.NewOutcome != *m.ResolvedOutcome
	if upheld {
		outcome := params.NewOutcome
		m.ResolvedOutcome = &outcome
		m.UpdatedAt = e.clock()
		if err := e.markets.Update(ctx, m); err != nil {
			return nil, fmt.Errorf("engine: overwrite outcome: %w", err)
		}
		d.Status = domain.DisputeUpheld
	} else {
		d.Status = domain.DisputeRejected
	}
	d.ResolvedAt = &now
	if err := e.disputes.Update(ctx, d); err != nil {
		return nil, fmt.Errorf("engine: settle dispute: %w", err)
	}

	e.logger.InfoContext(ctx, "dispute settled",
		slog.Uint64("market_id", m.ID),
		slog.Bool("upheld", upheld),
		slog.String("outcome", m.ResolvedOutcome.String()),
	)
	e.publish(ctx, domain.ChannelDisputes, domain.DisputeSettledEvent{
		MarketID:  m.ID,
		Upheld:    upheld,
		Outcome:   m.ResolvedOutcome.String(),
		Timestamp: now,
	})
	return d.Clone(), nil
}

// GetDispute is a read passthrough.
func (e *Engine) GetDispute(ctx context.Context, marketID uint64) (*domain.DisputeRecord, error) {
	return e.disputes.Get(ctx, marketID)
}
