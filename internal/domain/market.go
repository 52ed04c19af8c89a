// Package domain defines the core types of the prediction-market engine:
// markets, positions, disputes, the platform configuration record, and the
// boundary interfaces (stores, collateral bank, share ledger) the engine
// operates through.
package domain

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// MarketStatus represents the lifecycle state of a market.
type MarketStatus string

const (
	MarketStatusPending   MarketStatus = "pending" // created with a future start timestamp
	MarketStatusActive    MarketStatus = "active"
	MarketStatusPaused    MarketStatus = "paused"
	MarketStatusLocked    MarketStatus = "locked"
	MarketStatusResolved  MarketStatus = "resolved"
	MarketStatusCancelled MarketStatus = "cancelled"
	MarketStatusClosed    MarketStatus = "closed"
)

// MarketCategory tags a market for discovery and filtering.
type MarketCategory string

const (
	CategoryCrypto        MarketCategory = "crypto"
	CategorySports        MarketCategory = "sports"
	CategoryPolitics      MarketCategory = "politics"
	CategoryEntertainment MarketCategory = "entertainment"
	CategoryWeather       MarketCategory = "weather"
	CategoryCustom        MarketCategory = "custom"
)

// Outcome is the closed set of resolution outcomes for a binary market.
// Invalid is the escape hatch: both sides become refundable.
type Outcome uint8

const (
	OutcomeYes Outcome = iota
	OutcomeNo
	OutcomeInvalid
)

// String implements fmt.Stringer.
func (o Outcome) String() string {
	switch o {
	case OutcomeYes:
		return "yes"
	case OutcomeNo:
		return "no"
	case OutcomeInvalid:
		return "invalid"
	}
	return "unknown"
}

// ParseOutcome converts a wire string into an Outcome.
func ParseOutcome(s string) (Outcome, error) {
	switch s {
	case "yes":
		return OutcomeYes, nil
	case "no":
		return OutcomeNo, nil
	case "invalid":
		return OutcomeInvalid, nil
	}
	return 0, ErrInvalidOutcome
}

// Side is a bet direction. Unlike Outcome it excludes Invalid: nobody bets
// on a market voiding itself.
type Side uint8

const (
	SideYes Side = iota
	SideNo
)

// String implements fmt.Stringer.
func (s Side) String() string {
	if s == SideYes {
		return "yes"
	}
	return "no"
}

// ParseSide converts a wire string into a Side.
func ParseSide(v string) (Side, error) {
	switch v {
	case "yes":
		return SideYes, nil
	case "no":
		return SideNo, nil
	}
	return 0, ErrInvalidOutcome
}

// OracleSource selects how a market is resolved.
type OracleSource string

const (
	// OracleManualAdmin resolves from the admin-supplied outcome argument.
	OracleManualAdmin OracleSource = "manual_admin"
	// OraclePriceFeed resolves by comparing a validated price report against
	// the market's threshold.
	OraclePriceFeed OracleSource = "price_feed"
)

// Limits on market metadata, mirrored by store column sizes.
const (
	MaxTitleLen       = 128
	MaxDescriptionLen = 512
	MaxDisputeReason  = 256
	MaxFeeBps         = 1000 // 10%
)

// Market is the state record for one binary-outcome market. YesReserve and
// NoReserve are the AMM pricing pools; they are NOT the outstanding share
// supplies, which live in the share ledger and serve as the settlement
// denominator. TotalCollateral mirrors the vault balance at every point a
// caller can observe: bets grow both, claims shrink both by the payout.
// ResolutionCollateral is the pot size frozen at resolution, the fixed base
// for the Invalid-outcome refund split.
type Market struct {
	ID          uint64
	Creator     common.Address
	Title       string
	Description string
	Category    MarketCategory
	Status      MarketStatus

	// Derived account addresses, fixed at creation.
	Vault   common.Address
	YesMint common.Address
	NoMint  common.Address

	YesReserve      uint64
	NoReserve       uint64
	TotalCollateral uint64

	OracleSource    OracleSource
	OracleFeed      common.Hash // feed identity for the price-feed path
	OracleThreshold int64

	StartTimestamp int64
	LockTimestamp  int64
	EndTimestamp   int64

	ResolvedOutcome *Outcome
	ResolutionPrice *int64
	ResolvedAt      *int64

	// Pot, reserve, and supply snapshots taken at resolution (or
	// cancellation); the terms of the Invalid-outcome refund split.
	ResolutionCollateral uint64
	ResolutionYesReserve uint64
	ResolutionNoReserve  uint64
	ResolutionYesSupply  uint64
	ResolutionNoSupply   uint64

	MinBet uint64
	MaxBet uint64 // 0 = unlimited
	FeeBps uint16

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Clone returns a deep copy. Instructions mutate a clone and commit it only
// after every guard and arithmetic step has succeeded.
func (m *Market) Clone() *Market {
	c := *m
	if m.ResolvedOutcome != nil {
		o := *m.ResolvedOutcome
		c.ResolvedOutcome = &o
	}
	if m.ResolutionPrice != nil {
		p := *m.ResolutionPrice
		c.ResolutionPrice = &p
	}
	if m.ResolvedAt != nil {
		t := *m.ResolvedAt
		c.ResolvedAt = &t
	}
	return &c
}

// MintFor returns the share mint address for a bet side.
func (m *Market) MintFor(side Side) common.Address {
	if side == SideYes {
		return m.YesMint
	}
	return m.NoMint
}
