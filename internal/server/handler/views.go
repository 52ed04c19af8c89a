package handler

import (
	"github.com/openpredict/predictd/internal/domain"
)

// Wire views. Domain records carry uint64 amounts and binary addresses;
// these views render them as decimal and hex strings for JSON clients.

type marketView struct {
	ID          uint64 `json:"id"`
	Creator     string `json:"creator"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Category    string `json:"category"`
	Status      string `json:"status"`

	Vault   string `json:"vault"`
	YesMint string `json:"yes_mint"`
	NoMint  string `json:"no_mint"`

	YesReserve      string `json:"yes_reserve"`
	NoReserve       string `json:"no_reserve"`
	TotalCollateral string `json:"total_collateral"`

	OracleSource    string `json:"oracle_source"`
	OracleFeed      string `json:"oracle_feed,omitempty"`
	OracleThreshold int64  `json:"oracle_threshold,omitempty"`

	StartTimestamp int64 `json:"start_timestamp"`
	LockTimestamp  int64 `json:"lock_timestamp"`
	EndTimestamp   int64 `json:"end_timestamp"`

	ResolvedOutcome string `json:"resolved_outcome,omitempty"`
	ResolutionPrice *int64 `json:"resolution_price,omitempty"`
	ResolvedAt      *int64 `json:"resolved_at,omitempty"`

	MinBet string `json:"min_bet"`
	MaxBet string `json:"max_bet"`
	FeeBps uint16 `json:"fee_bps"`
}

func viewMarket(m *domain.Market) marketView {
	v := marketView{
		ID:              m.ID,
		Creator:         m.Creator.Hex(),
		Title:           m.Title,
		Description:     m.Description,
		Category:        string(m.Category),
		Status:          string(m.Status),
		Vault:           m.Vault.Hex(),
		YesMint:         m.YesMint.Hex(),
		NoMint:          m.NoMint.Hex(),
		YesReserve:      u64(m.YesReserve),
		NoReserve:       u64(m.NoReserve),
		TotalCollateral: u64(m.TotalCollateral),
		OracleSource:    string(m.OracleSource),
		OracleThreshold: m.OracleThreshold,
		StartTimestamp:  m.StartTimestamp,
		LockTimestamp:   m.LockTimestamp,
		EndTimestamp:    m.EndTimestamp,
		ResolutionPrice: m.ResolutionPrice,
		ResolvedAt:      m.ResolvedAt,
		MinBet:          u64(m.MinBet),
		MaxBet:          u64(m.MaxBet),
		FeeBps:          m.FeeBps,
	}
	if m.OracleSource == domain.OraclePriceFeed {
		v.OracleFeed = m.OracleFeed.Hex()
	}
	if m.ResolvedOutcome != nil {
		v.ResolvedOutcome = m.ResolvedOutcome.String()
	}
	return v
}

func viewMarkets(ms []*domain.Market) []marketView {
	out := make([]marketView, 0, len(ms))
	for _, m := range ms {
		out = append(out, viewMarket(m))
	}
	return out
}

type positionView struct {
	User     string `json:"user"`
	MarketID uint64 `json:"market_id"`

	YesShares string `json:"yes_shares"`
	NoShares  string `json:"no_shares"`

	TotalDeposited string `json:"total_deposited"`
	TotalClaimed   string `json:"total_claimed"`
	LastBetAt      int64  `json:"last_bet_at"`
}

func viewPosition(p *domain.UserPosition) positionView {
	return positionView{
		User:           p.User.Hex(),
		MarketID:       p.MarketID,
		YesShares:      u64(p.YesShares),
		NoShares:       u64(p.NoShares),
		TotalDeposited: u64(p.TotalDeposited),
		TotalClaimed:   u64(p.TotalClaimed),
		LastBetAt:      p.LastBetAt,
	}
}

type disputeView struct {
	MarketID   uint64 `json:"market_id"`
	Disputer   string `json:"disputer"`
	Reason     string `json:"reason"`
	BondAmount string `json:"bond_amount"`
	Status     string `json:"status"`
	ResolvedAt *int64 `json:"resolved_at,omitempty"`
}

func viewDispute(d *domain.DisputeRecord) disputeView {
	return disputeView{
		MarketID:   d.MarketID,
		Disputer:   d.Disputer.Hex(),
		Reason:     d.Reason,
		BondAmount: u64(d.BondAmount),
		Status:     string(d.Status),
		ResolvedAt: d.ResolvedAt,
	}
}

type platformView struct {
	Admin           string `json:"admin"`
	FeeBps          uint16 `json:"fee_bps"`
	Treasury        string `json:"treasury"`
	CollateralAsset string `json:"collateral_asset"`
	DisputeBond     string `json:"dispute_bond"`
	Paused          bool   `json:"paused"`
	TotalMarkets    uint64 `json:"total_markets"`
}

func viewPlatform(p *domain.PlatformConfig) platformView {
	return platformView{
		Admin:           p.Admin.Hex(),
		FeeBps:          p.FeeBps,
		Treasury:        p.Treasury.Hex(),
		CollateralAsset: p.CollateralAsset.Hex(),
		DisputeBond:     u64(p.DisputeBond),
		Paused:          p.Paused,
		TotalMarkets:    p.TotalMarkets,
	}
}
