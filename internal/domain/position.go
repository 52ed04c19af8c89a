package domain

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// UserPosition tracks one user's share holdings in one market, net of
// cancellations. It is created lazily on the first bet and logically emptied
// (shares burned, not deleted) after a claim.
type UserPosition struct {
	User     common.Address
	MarketID uint64

	YesShares uint64
	NoShares  uint64

	TotalDeposited uint64
	TotalClaimed   uint64
	LastBetAt      int64

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Clone returns a copy for copy-mutate-commit instruction handling.
func (p *UserPosition) Clone() *UserPosition {
	c := *p
	return &c
}

// SharesFor returns the holdings on one side.
func (p *UserPosition) SharesFor(side Side) uint64 {
	if side == SideYes {
		return p.YesShares
	}
	return p.NoShares
}
