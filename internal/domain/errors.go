package domain

import "errors"

// Engine error taxonomy. Every guard runs before any mutation; on failure
// the instruction aborts with no partial effect and one of these errors is
// surfaced to the caller verbatim.
var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")

	ErrUnauthorized = errors.New("unauthorized")
	ErrInvalidSeeds = errors.New("derived address mismatch")

	ErrPlatformPaused       = errors.New("platform is paused")
	ErrInvalidMarketStatus  = errors.New("operation not permitted in current market status")
	ErrBettingClosed        = errors.New("betting period has ended")
	ErrMarketNotResolved    = errors.New("market is not resolved")
	ErrAlreadyResolved      = errors.New("market already resolved")
	ErrResolutionTooEarly   = errors.New("market cannot be resolved before lock time")
	ErrMarketNotCloseable   = errors.New("market is not in a closeable state")
	ErrOutstandingPositions = errors.New("market has outstanding positions")

	ErrBelowMinBet        = errors.New("bet below minimum")
	ErrAboveMaxBet        = errors.New("bet above maximum")
	ErrSlippageExceeded   = errors.New("slippage exceeded")
	ErrInsufficientShares = errors.New("insufficient shares")
	ErrInsufficientFunds  = errors.New("insufficient funds")
	ErrInsufficientVault  = errors.New("vault balance insufficient")

	ErrInvalidQuote   = errors.New("degenerate curve input")
	ErrMathOverflow   = errors.New("arithmetic overflow")
	ErrInvalidOutcome = errors.New("invalid outcome")

	ErrInvalidPriceFeed = errors.New("price feed does not match market oracle feed")
	ErrStaleOracle      = errors.New("oracle price is stale")

	ErrDisputeExists      = errors.New("dispute already exists")
	ErrDisputeNotOpen     = errors.New("dispute is not open")
	ErrInvalidTimestamps  = errors.New("invalid market timestamps")
	ErrTitleTooLong       = errors.New("title too long")
	ErrDescriptionTooLong = errors.New("description too long")
	ErrFeeExceedsMax      = errors.New("fee exceeds maximum")
	ErrNoLiquidity        = errors.New("initial liquidity must be greater than zero")
)
