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

// DisputeStore implements domain.DisputeStore using PostgreSQL.
type DisputeStore struct {
	pool *pgxpool.Pool
}

// NewDisputeStore creates a DisputeStore backed by the given pool.
func NewDisputeStore(pool *pgxpool.Pool) *DisputeStore {
	return &DisputeStore{pool: pool}
}

// Get returns the dispute for a market.
func (s *DisputeStore) Get(ctx context.Context, marketID uint64) (*domain.DisputeRecord, error) {
	const query = `
		SELECT market_id, disputer, reason, bond_amount, status, created_at, resolved_at
		FROM disputes WHERE market_id = $1`

	var (
		d        domain.DisputeRecord
		id, bond int64
		disputer string
		status   string
	)
	err := s.pool.QueryRow(ctx, query, int64(marketID)).Scan(
		&id, &disputer, &d.Reason, &bond, &status, &d.CreatedAt, &d.ResolvedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("postgres: get dispute %d: %w", marketID, err)
	}
	d.MarketID = uint64(id)
	d.Disputer = common.HexToAddress(disputer)
	d.BondAmount = uint64(bond)
	d.Status = domain.DisputeStatus(status)
	return &d, nil
}

// Create stores a new dispute; the primary key enforces one per market.
func (s *DisputeStore) Create(ctx context.Context, d *domain.DisputeRecord) error {
	const query = `
		INSERT INTO disputes (market_id, disputer, reason, bond_amount, status, created_at, resolved_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := s.pool.Exec(ctx, query,
		int64(d.MarketID), d.Disputer.Hex(), d.Reason, int64(d.BondAmount),
		string(d.Status), d.CreatedAt, d.ResolvedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return domain.ErrAlreadyExists
		}
		return fmt.Errorf("postgres: create dispute %d: %w", d.MarketID, err)
	}
	return nil
}

// Update overwrites an existing dispute.
func (s *DisputeStore) Update(ctx context.Context, d *domain.DisputeRecord) error {
	const query = `
		UPDATE disputes SET
			disputer = $2, reason = $3, bond_amount = $4, status = $5, resolved_at = $6
		WHERE market_id = $1`
	tag, err := s.pool.Exec(ctx, query,
		int64(d.MarketID), d.Disputer.Hex(), d.Reason, int64(d.BondAmount),
		string(d.Status), d.ResolvedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: update dispute %d: %w", d.MarketID, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
