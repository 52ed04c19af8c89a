// Package memory provides mutex-guarded in-memory implementations of the
// domain stores. Used by the engine tests and by standalone mode, where the
// process owns all state and postgres persistence is disabled.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/openpredict/predictd/internal/domain"
)

// PlatformStore implements domain.PlatformStore.
type PlatformStore struct {
	mu  sync.RWMutex
	cfg *domain.PlatformConfig
}

// NewPlatformStore creates an empty PlatformStore.
func NewPlatformStore() *PlatformStore { return &PlatformStore{} }

// Get returns the platform record.
func (s *PlatformStore) Get(_ context.Context) (*domain.PlatformConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.cfg == nil {
		return nil, domain.ErrNotFound
	}
	return s.cfg.Clone(), nil
}

// Create stores the initial record.
func (s *PlatformStore) Create(_ context.Context, p *domain.PlatformConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cfg != nil {
		return domain.ErrAlreadyExists
	}
	s.cfg = p.Clone()
	return nil
}

// Update overwrites the record.
func (s *PlatformStore) Update(_ context.Context, p *domain.PlatformConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cfg == nil {
		return domain.ErrNotFound
	}
	s.cfg = p.Clone()
	return nil
}

// MarketStore implements domain.MarketStore.
type MarketStore struct {
	mu      sync.RWMutex
	markets map[uint64]*domain.Market
}

// NewMarketStore creates an empty MarketStore.
func NewMarketStore() *MarketStore {
	return &MarketStore{markets: make(map[uint64]*domain.Market)}
}

// Get returns a market by id.
func (s *MarketStore) Get(_ context.Context, id uint64) (*domain.Market, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.markets[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return m.Clone(), nil
}

// Create stores a new market.
func (s *MarketStore) Create(_ context.Context, m *domain.Market) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.markets[m.ID]; ok {
		return domain.ErrAlreadyExists
	}
	s.markets[m.ID] = m.Clone()
	return nil
}

// Update overwrites an existing market.
func (s *MarketStore) Update(_ context.Context, m *domain.Market) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.markets[m.ID]; !ok {
		return domain.ErrNotFound
	}
	s.markets[m.ID] = m.Clone()
	return nil
}

// Delete removes a market record (market closure).
func (s *MarketStore) Delete(_ context.Context, id uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.markets[id]; !ok {
		return domain.ErrNotFound
	}
	delete(s.markets, id)
	return nil
}

// List returns markets matching the filter, ordered by id.
func (s *MarketStore) List(_ context.Context, f domain.MarketFilter) ([]*domain.Market, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*domain.Market, 0, len(s.markets))
	for _, m := range s.markets {
		if f.Status != "" && m.Status != f.Status {
			continue
		}
		if f.Category != "" && m.Category != f.Category {
			continue
		}
		out = append(out, m.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

type positionKey struct {
	marketID uint64
	user     common.Address
}

// PositionStore implements domain.PositionStore.
type PositionStore struct {
	mu        sync.RWMutex
	positions map[positionKey]*domain.UserPosition
}

// NewPositionStore creates an empty PositionStore.
func NewPositionStore() *PositionStore {
	return &PositionStore{positions: make(map[positionKey]*domain.UserPosition)}
}

// Get returns the position for (market, user).
func (s *PositionStore) Get(_ context.Context, marketID uint64, user common.Address) (*domain.UserPosition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.positions[positionKey{marketID, user}]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return p.Clone(), nil
}

// Upsert creates or overwrites a position.
func (s *PositionStore) Upsert(_ context.Context, p *domain.UserPosition) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.positions[positionKey{p.MarketID, p.User}] = p.Clone()
	return nil
}

// ListByMarket returns every position in a market.
func (s *PositionStore) ListByMarket(_ context.Context, marketID uint64) ([]*domain.UserPosition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*domain.UserPosition
	for k, p := range s.positions {
		if k.marketID == marketID {
			out = append(out, p.Clone())
		}
	}
	return out, nil
}

// DisputeStore implements domain.DisputeStore.
type DisputeStore struct {
	mu       sync.RWMutex
	disputes map[uint64]*domain.DisputeRecord
}

// NewDisputeStore creates an empty DisputeStore.
func NewDisputeStore() *DisputeStore {
	return &DisputeStore{disputes: make(map[uint64]*domain.DisputeRecord)}
}

// Get returns the dispute for a market.
func (s *DisputeStore) Get(_ context.Context, marketID uint64) (*domain.DisputeRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.disputes[marketID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return d.Clone(), nil
}

// Create stores a new dispute; at most one per market.
func (s *DisputeStore) Create(_ context.Context, d *domain.DisputeRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.disputes[d.MarketID]; ok {
		return domain.ErrAlreadyExists
	}
	s.disputes[d.MarketID] = d.Clone()
	return nil
}

// Update overwrites an existing dispute.
func (s *DisputeStore) Update(_ context.Context, d *domain.DisputeRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.disputes[d.MarketID]; !ok {
		return domain.ErrNotFound
	}
	s.disputes[d.MarketID] = d.Clone()
	return nil
}
