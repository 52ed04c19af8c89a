package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/openpredict/predictd/internal/domain"
)

// PositionStore implements domain.PositionStore using PostgreSQL.
type PositionStore struct {
	pool *pgxpool.Pool
}

// NewPositionStore creates a PositionStore backed by the given pool.
func NewPositionStore(pool *pgxpool.Pool) *PositionStore {
	return &PositionStore{pool: pool}
}

const positionCols = `market_id, "user", yes_shares, no_shares,
	total_deposited, total_claimed, last_bet_at, created_at, updated_at`

func scanPosition(row pgx.Row) (*domain.UserPosition, error) {
	var (
		p        domain.UserPosition
		marketID int64
		user     string

		yesShares, noShares, deposited, claimed int64
	)
	err := row.Scan(
		&marketID, &user, &yesShares, &noShares,
		&deposited, &claimed, &p.LastBetAt, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	p.MarketID = uint64(marketID)
	p.User = common.HexToAddress(user)
	p.YesShares = uint64(yesShares)
	p.NoShares = uint64(noShares)
	p.TotalDeposited = uint64(deposited)
	p.TotalClaimed = uint64(claimed)
	return &p, nil
}

// Get returns the position for (market, user).
func (s *PositionStore) Get(ctx context.Context, marketID uint64, user common.Address) (*domain.UserPosition, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+positionCols+` FROM positions WHERE market_id = $1 AND "user" = $2`,
		int64(marketID), user.Hex())
	p, err := scanPosition(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("postgres: get position %d/%s: %w", marketID, user.Hex(), err)
	}
	return p, nil
}

// Upsert creates or overwrites a position.
func (s *PositionStore) Upsert(ctx context.Context, p *domain.UserPosition) error {
	const query = `
		INSERT INTO positions (` + positionCols + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (market_id, "user") DO UPDATE SET
			yes_shares      = EXCLUDED.yes_shares,
			no_shares       = EXCLUDED.no_shares,
			total_deposited = EXCLUDED.total_deposited,
			total_claimed   = EXCLUDED.total_claimed,
			last_bet_at     = EXCLUDED.last_bet_at,
			updated_at      = EXCLUDED.updated_at`
	_, err := s.pool.Exec(ctx, query,
		int64(p.MarketID), p.User.Hex(), int64(p.YesShares), int64(p.NoShares),
		int64(p.TotalDeposited), int64(p.TotalClaimed), p.LastBetAt, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: upsert position %d/%s: %w", p.MarketID, p.User.Hex(), err)
	}
	return nil
}

// ListByMarket returns every position in a market.
func (s *PositionStore) ListByMarket(ctx context.Context, marketID uint64) ([]*domain.UserPosition, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+positionCols+` FROM positions WHERE market_id = $1 ORDER BY "user"`,
		int64(marketID))
	if err != nil {
		return nil, fmt.Errorf("postgres: list positions for market %d: %w", marketID, err)
	}
	defer rows.Close()

	var positions []*domain.UserPosition
	for rows.Next() {
		p, err := scanPosition(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan position: %w", err)
		}
		positions = append(positions, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list positions rows: %w", err)
	}
	return positions, nil
}
