package redis

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/openpredict/predictd/internal/domain"
)

// PriceCache implements domain.PriceCache using Redis hashes. Each market's
// implied prices live at "market:price:{id}" with fields "yes" and "no",
// written by the engine after every trade and read by the API layer without
// touching the market store.
type PriceCache struct {
	rdb *redis.Client
}

// NewPriceCache creates a PriceCache backed by the given Client.
func NewPriceCache(c *Client) *PriceCache {
	return &PriceCache{rdb: c.Underlying()}
}

func priceKey(marketID uint64) string {
	return "market:price:" + strconv.FormatUint(marketID, 10)
}

// SetPrices stores the latest implied yes/no prices for a market.
func (pc *PriceCache) SetPrices(ctx context.Context, marketID uint64, yesPrice, noPrice string) error {
	fields := map[string]interface{}{
		"yes": yesPrice,
		"no":  noPrice,
	}
	if err := pc.rdb.HSet(ctx, priceKey(marketID), fields).Err(); err != nil {
		return fmt.Errorf("redis: set prices for market %d: %w", marketID, err)
	}
	return nil
}

// GetPrices retrieves the latest implied prices for a market. It returns
// domain.ErrNotFound when no price has been cached yet.
func (pc *PriceCache) GetPrices(ctx context.Context, marketID uint64) (string, string, error) {
	vals, err := pc.rdb.HGetAll(ctx, priceKey(marketID)).Result()
	if err != nil {
		return "", "", fmt.Errorf("redis: get prices for market %d: %w", marketID, err)
	}
	yes, okYes := vals["yes"]
	no, okNo := vals["no"]
	if !okYes || !okNo {
		return "", "", domain.ErrNotFound
	}
	return yes, no, nil
}

// Compile-time interface check.
var _ domain.PriceCache = (*PriceCache)(nil)
