package domain

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
)

// PlatformStore persists the singleton platform configuration record.
type PlatformStore interface {
	// Get returns the platform record, or ErrNotFound before InitPlatform.
	Get(ctx context.Context) (*PlatformConfig, error)
	// Create stores the initial record; ErrAlreadyExists if one exists.
	Create(ctx context.Context, p *PlatformConfig) error
	// Update overwrites the record.
	Update(ctx context.Context, p *PlatformConfig) error
}

// MarketFilter narrows ListMarkets results. Zero values mean "any".
type MarketFilter struct {
	Status   MarketStatus
	Category MarketCategory
	Limit    int
}

// MarketStore persists market records.
type MarketStore interface {
	Get(ctx context.Context, id uint64) (*Market, error)
	Create(ctx context.Context, m *Market) error
	Update(ctx context.Context, m *Market) error
	Delete(ctx context.Context, id uint64) error
	List(ctx context.Context, f MarketFilter) ([]*Market, error)
}

// PositionStore persists user positions keyed by (market, user).
type PositionStore interface {
	Get(ctx context.Context, marketID uint64, user common.Address) (*UserPosition, error)
	Upsert(ctx context.Context, p *UserPosition) error
	ListByMarket(ctx context.Context, marketID uint64) ([]*UserPosition, error)
}

// DisputeStore persists dispute records, at most one per market.
type DisputeStore interface {
	Get(ctx context.Context, marketID uint64) (*DisputeRecord, error)
	Create(ctx context.Context, d *DisputeRecord) error
	Update(ctx context.Context, d *DisputeRecord) error
}

// EventPublisher fans out instruction events (bets, resolutions, disputes)
// to interested consumers. Publishing is best-effort: a publish failure does
// not abort the already-committed instruction.
type EventPublisher interface {
	Publish(ctx context.Context, channel string, payload []byte) error
}

// PriceCache stores the latest derived yes/no price per market for cheap
// reads by the API layer.
type PriceCache interface {
	SetPrices(ctx context.Context, marketID uint64, yesPrice, noPrice string) error
	GetPrices(ctx context.Context, marketID uint64) (yesPrice, noPrice string, err error)
}
