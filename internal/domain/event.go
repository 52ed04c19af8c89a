package domain

import "github.com/ethereum/go-ethereum/common"

// Signal bus channels for instruction events.
const (
	ChannelBets       = "events:bets"
	ChannelMarkets    = "events:markets"
	ChannelDisputes   = "events:disputes"
	ChannelSettlement = "events:settlement"
)

// BetPlacedEvent is emitted after a successful PlaceBet.
type BetPlacedEvent struct {
	MarketID   uint64         `json:"market_id"`
	User       common.Address `json:"user"`
	Side       string         `json:"side"`
	Amount     uint64         `json:"amount"`
	Fee        uint64         `json:"fee"`
	Shares     uint64         `json:"shares"`
	YesReserve uint64         `json:"yes_reserve"`
	NoReserve  uint64         `json:"no_reserve"`
	Timestamp  int64          `json:"timestamp"`
}

// BetCancelledEvent is emitted after a successful CancelBet.
type BetCancelledEvent struct {
	MarketID     uint64         `json:"market_id"`
	User         common.Address `json:"user"`
	Side         string         `json:"side"`
	SharesBurned uint64         `json:"shares_burned"`
	Refund       uint64         `json:"refund"`
	Fee          uint64         `json:"fee"`
	Timestamp    int64          `json:"timestamp"`
}

// MarketCreatedEvent is emitted after CreateMarket.
type MarketCreatedEvent struct {
	MarketID         uint64         `json:"market_id"`
	Creator          common.Address `json:"creator"`
	Title            string         `json:"title"`
	OracleSource     string         `json:"oracle_source"`
	InitialLiquidity uint64         `json:"initial_liquidity"`
	EndTimestamp     int64          `json:"end_timestamp"`
}

// MarketResolvedEvent is emitted after ResolveMarket.
type MarketResolvedEvent struct {
	MarketID        uint64 `json:"market_id"`
	Outcome         string `json:"outcome"`
	ResolutionPrice *int64 `json:"resolution_price,omitempty"`
	TotalCollateral uint64 `json:"total_collateral"`
	Timestamp       int64  `json:"timestamp"`
}

// MarketStatusEvent is emitted on pause/unpause/cancel/close transitions.
type MarketStatusEvent struct {
	MarketID  uint64 `json:"market_id"`
	Status    string `json:"status"`
	Timestamp int64  `json:"timestamp"`
}

// DisputeOpenedEvent is emitted after OpenDispute.
type DisputeOpenedEvent struct {
	MarketID  uint64         `json:"market_id"`
	Disputer  common.Address `json:"disputer"`
	Reason    string         `json:"reason"`
	Bond      uint64         `json:"bond"`
	Timestamp int64          `json:"timestamp"`
}

// DisputeSettledEvent is emitted after SettleDispute.
type DisputeSettledEvent struct {
	MarketID  uint64 `json:"market_id"`
	Upheld    bool   `json:"upheld"`
	Outcome   string `json:"outcome"`
	Timestamp int64  `json:"timestamp"`
}

// PayoutClaimedEvent is emitted after a successful ClaimPayout.
type PayoutClaimedEvent struct {
	MarketID     uint64         `json:"market_id"`
	User         common.Address `json:"user"`
	Amount       uint64         `json:"amount"`
	SharesBurned uint64         `json:"shares_burned"`
	Timestamp    int64          `json:"timestamp"`
}
