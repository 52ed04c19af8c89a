package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ethereum/go-ethereum/common"

	"github.com/openpredict/predictd/internal/domain"
)

// InitPlatformParams configures the singleton platform record.
type InitPlatformParams struct {
	FeeBps          uint16
	Treasury        common.Address
	CollateralAsset common.Address
	DisputeBond     uint64
}

// InitPlatform creates the platform configuration exactly once. The caller
// becomes the platform admin, the sole authority for every privileged
// instruction thereafter.
func (e *Engine) InitPlatform(ctx context.Context, caller common.Address, params InitPlatformParams) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if params.FeeBps > domain.MaxFeeBps {
		return domain.ErrFeeExceedsMax
	}

	now := e.clock()
	cfg := &domain.PlatformConfig{
		Admin:           caller,
		FeeBps:          params.FeeBps,
		Treasury:        params.Treasury,
		CollateralAsset: params.CollateralAsset,
		DisputeBond:     params.DisputeBond,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := e.platform.Create(ctx, cfg); err != nil {
		return fmt.Errorf("engine: init platform: %w", err)
	}

	e.logger.InfoContext(ctx, "platform initialized",
		slog.String("admin", caller.Hex()),
		slog.Int("fee_bps", int(params.FeeBps)),
		slog.Uint64("dispute_bond", params.DisputeBond),
	)
	return nil
}

// UpdateFees changes the platform default fee rate. Admin only.
func (e *Engine) UpdateFees(ctx context.Context, caller common.Address, newFeeBps uint16) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	platform, err := e.requireAdmin(ctx, caller)
	if err != nil {
		return err
	}
	if newFeeBps > domain.MaxFeeBps {
		return domain.ErrFeeExceedsMax
	}

	platform.FeeBps = newFeeBps
	platform.UpdatedAt = e.clock()
	if err := e.platform.Update(ctx, platform); err != nil {
		return fmt.Errorf("engine: update fees: %w", err)
	}
	return nil
}

// UpdateTreasury redirects future fee routing. Admin only.
func (e *Engine) UpdateTreasury(ctx context.Context, caller, newTreasury common.Address) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	platform, err := e.requireAdmin(ctx, caller)
	if err != nil {
		return err
	}

	platform.Treasury = newTreasury
	platform.UpdatedAt = e.clock()
	if err := e.platform.Update(ctx, platform); err != nil {
		return fmt.Errorf("engine: update treasury: %w", err)
	}
	return nil
}

// UpdateCollateralAsset swaps the platform collateral asset and its matching
// treasury account. Admin only; existing markets keep their original asset.
func (e *Engine) UpdateCollateralAsset(ctx context.Context, caller, newAsset, newTreasury common.Address) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	platform, err := e.requireAdmin(ctx, caller)
	if err != nil {
		return err
	}

	platform.CollateralAsset = newAsset
	platform.Treasury = newTreasury
	platform.UpdatedAt = e.clock()
	if err := e.platform.Update(ctx, platform); err != nil {
		return fmt.Errorf("engine: update collateral asset: %w", err)
	}
	return nil
}

// PausePlatform halts market creation and bet placement platform-wide.
// Admin only.
func (e *Engine) PausePlatform(ctx context.Context, caller common.Address) error {
	return e.setPlatformPaused(ctx, caller, true)
}

// UnpausePlatform lifts a platform-wide pause. Admin only.
func (e *Engine) UnpausePlatform(ctx context.Context, caller common.Address) error {
	return e.setPlatformPaused(ctx, caller, false)
}

func (e *Engine) setPlatformPaused(ctx context.Context, caller common.Address, paused bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	platform, err := e.requireAdmin(ctx, caller)
	if err != nil {
		return err
	}

	platform.Paused = paused
	platform.UpdatedAt = e.clock()
	if err := e.platform.Update(ctx, platform); err != nil {
		return fmt.Errorf("engine: set platform paused: %w", err)
	}
	e.logger.InfoContext(ctx, "platform pause toggled", slog.Bool("paused", paused))
	return nil
}
