package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/openpredict/predictd/internal/domain"
)

// PlatformStore implements domain.PlatformStore using PostgreSQL. The table
// holds at most one row, enforced by the singleton primary key.
type PlatformStore struct {
	pool *pgxpool.Pool
}

// NewPlatformStore creates a PlatformStore backed by the given pool.
func NewPlatformStore(pool *pgxpool.Pool) *PlatformStore {
	return &PlatformStore{pool: pool}
}

// Get returns the platform record.
func (s *PlatformStore) Get(ctx context.Context) (*domain.PlatformConfig, error) {
	const query = `
		SELECT admin, fee_bps, treasury, collateral_asset, dispute_bond,
		       paused, total_markets, created_at, updated_at
		FROM platform_config WHERE singleton`

	var (
		p                               domain.PlatformConfig
		admin, treasury, asset          string
		feeBps                          int32
		disputeBond, totalMarkets       int64
	)
	err := s.pool.QueryRow(ctx, query).Scan(
		&admin, &feeBps, &treasury, &asset, &disputeBond,
		&p.Paused, &totalMarkets, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("postgres: get platform config: %w", err)
	}
	p.Admin = common.HexToAddress(admin)
	p.FeeBps = uint16(feeBps)
	p.Treasury = common.HexToAddress(treasury)
	p.CollateralAsset = common.HexToAddress(asset)
	p.DisputeBond = uint64(disputeBond)
	p.TotalMarkets = uint64(totalMarkets)
	return &p, nil
}

// Create stores the initial platform record.
func (s *PlatformStore) Create(ctx context.Context, p *domain.PlatformConfig) error {
	const query = `
		INSERT INTO platform_config (
			admin, fee_bps, treasury, collateral_asset, dispute_bond,
			paused, total_markets, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := s.pool.Exec(ctx, query,
		p.Admin.Hex(), int32(p.FeeBps), p.Treasury.Hex(), p.CollateralAsset.Hex(),
		int64(p.DisputeBond), p.Paused, int64(p.TotalMarkets), p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return domain.ErrAlreadyExists
		}
		return fmt.Errorf("postgres: create platform config: %w", err)
	}
	return nil
}

// Update overwrites the platform record.
func (s *PlatformStore) Update(ctx context.Context, p *domain.PlatformConfig) error {
	const query = `
		UPDATE platform_config SET
			admin = $1, fee_bps = $2, treasury = $3, collateral_asset = $4,
			dispute_bond = $5, paused = $6, total_markets = $7, updated_at = $8
		WHERE singleton`
	tag, err := s.pool.Exec(ctx, query,
		p.Admin.Hex(), int32(p.FeeBps), p.Treasury.Hex(), p.CollateralAsset.Hex(),
		int64(p.DisputeBond), p.Paused, int64(p.TotalMarkets), p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: update platform config: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
