package domain

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
)

// CollateralBank is the collateral transfer primitive. Transfers must be
// atomic with the calling instruction: either the full amount moves or the
// instruction fails. The engine uses it for vault deposits/withdrawals and
// treasury fee routing.
type CollateralBank interface {
	// Transfer moves amount of the collateral asset between accounts.
	// Returns ErrInsufficientFunds when from cannot cover amount.
	Transfer(ctx context.Context, from, to common.Address, amount uint64) error
	// Balance reports an account's collateral balance.
	Balance(ctx context.Context, account common.Address) (uint64, error)
}

// ShareLedger is the outcome-token mint/burn primitive. Supply must equal
// net minted-minus-burned at all times; it is the settlement denominator,
// distinct from the AMM pool reserves.
type ShareLedger interface {
	Mint(ctx context.Context, token, to common.Address, amount uint64) error
	// Burn removes amount from the holder's balance; ErrInsufficientShares
	// when the holder cannot cover it.
	Burn(ctx context.Context, token, from common.Address, amount uint64) error
	Supply(ctx context.Context, token common.Address) (uint64, error)
	BalanceOf(ctx context.Context, token, holder common.Address) (uint64, error)
}
