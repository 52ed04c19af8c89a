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

// MarketStore implements domain.MarketStore using PostgreSQL.
type MarketStore struct {
	pool *pgxpool.Pool
}

// NewMarketStore creates a MarketStore backed by the given connection pool.
func NewMarketStore(pool *pgxpool.Pool) *MarketStore {
	return &MarketStore{pool: pool}
}

const marketCols = `id, creator, title, description, category, status,
	vault, yes_mint, no_mint,
	yes_reserve, no_reserve, total_collateral,
	oracle_source, oracle_feed, oracle_threshold,
	start_ts, lock_ts, end_ts,
	resolved_outcome, resolution_price, resolved_at,
	res_collateral, res_yes_reserve, res_no_reserve, res_yes_supply, res_no_supply,
	min_bet, max_bet, fee_bps, created_at, updated_at`

func marketArgs(m *domain.Market) []any {
	var outcome *string
	if m.ResolvedOutcome != nil {
		s := m.ResolvedOutcome.String()
		outcome = &s
	}
	return []any{
		int64(m.ID), m.Creator.Hex(), m.Title, m.Description, string(m.Category), string(m.Status),
		m.Vault.Hex(), m.YesMint.Hex(), m.NoMint.Hex(),
		int64(m.YesReserve), int64(m.NoReserve), int64(m.TotalCollateral),
		string(m.OracleSource), m.OracleFeed.Hex(), m.OracleThreshold,
		m.StartTimestamp, m.LockTimestamp, m.EndTimestamp,
		outcome, m.ResolutionPrice, m.ResolvedAt,
		int64(m.ResolutionCollateral),
		int64(m.ResolutionYesReserve), int64(m.ResolutionNoReserve),
		int64(m.ResolutionYesSupply), int64(m.ResolutionNoSupply),
		int64(m.MinBet), int64(m.MaxBet), int32(m.FeeBps), m.CreatedAt, m.UpdatedAt,
	}
}

func scanMarket(row pgx.Row) (*domain.Market, error) {
	var (
		m                                          domain.Market
		id                                         int64
		creator, category, status, oracleSrc       string
		vault, yesMint, noMint, oracleFeed         string
		yesRes, noRes, totalColl                 int64
		resColl                                  int64
		resYesRes, resNoRes, resYesSup, resNoSup int64
		minBet, maxBet                           int64
		feeBps                                   int32
		outcome                                  *string
	)
	err := row.Scan(
		&id, &creator, &m.Title, &m.Description, &category, &status,
		&vault, &yesMint, &noMint,
		&yesRes, &noRes, &totalColl,
		&oracleSrc, &oracleFeed, &m.OracleThreshold,
		&m.StartTimestamp, &m.LockTimestamp, &m.EndTimestamp,
		&outcome, &m.ResolutionPrice, &m.ResolvedAt,
		&resColl, &resYesRes, &resNoRes, &resYesSup, &resNoSup,
		&minBet, &maxBet, &feeBps, &m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	m.ID = uint64(id)
	m.Creator = common.HexToAddress(creator)
	m.Category = domain.MarketCategory(category)
	m.Status = domain.MarketStatus(status)
	m.Vault = common.HexToAddress(vault)
	m.YesMint = common.HexToAddress(yesMint)
	m.NoMint = common.HexToAddress(noMint)
	m.YesReserve = uint64(yesRes)
	m.NoReserve = uint64(noRes)
	m.TotalCollateral = uint64(totalColl)
	m.OracleSource = domain.OracleSource(oracleSrc)
	m.OracleFeed = common.HexToHash(oracleFeed)
	m.ResolutionCollateral = uint64(resColl)
	m.ResolutionYesReserve = uint64(resYesRes)
	m.ResolutionNoReserve = uint64(resNoRes)
	m.ResolutionYesSupply = uint64(resYesSup)
	m.ResolutionNoSupply = uint64(resNoSup)
	m.MinBet = uint64(minBet)
	m.MaxBet = uint64(maxBet)
	m.FeeBps = uint16(feeBps)
	if outcome != nil {
		o, err := domain.ParseOutcome(*outcome)
		if err != nil {
			return nil, fmt.Errorf("postgres: bad outcome %q: %w", *outcome, err)
		}
		m.ResolvedOutcome = &o
	}
	return &m, nil
}

// Get retrieves a market by id.
func (s *MarketStore) Get(ctx context.Context, id uint64) (*domain.Market, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+marketCols+` FROM markets WHERE id = $1`, int64(id))
	m, err := scanMarket(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("postgres: get market %d: %w", id, err)
	}
	return m, nil
}

// Create inserts a new market row.
func (s *MarketStore) Create(ctx context.Context, m *domain.Market) error {
	const query = `
		INSERT INTO markets (` + marketCols + `) VALUES (
			$1, $2, $3, $4, $5, $6,
			$7, $8, $9,
			$10, $11, $12,
			$13, $14, $15,
			$16, $17, $18,
			$19, $20, $21,
			$22, $23, $24, $25, $26,
			$27, $28, $29, $30, $31
		)`
	_, err := s.pool.Exec(ctx, query, marketArgs(m)...)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return domain.ErrAlreadyExists
		}
		return fmt.Errorf("postgres: create market %d: %w", m.ID, err)
	}
	return nil
}

// Update overwrites an existing market row.
func (s *MarketStore) Update(ctx context.Context, m *domain.Market) error {
	const query = `
		UPDATE markets SET
			creator = $2, title = $3, description = $4, category = $5, status = $6,
			vault = $7, yes_mint = $8, no_mint = $9,
			yes_reserve = $10, no_reserve = $11, total_collateral = $12,
			oracle_source = $13, oracle_feed = $14, oracle_threshold = $15,
			start_ts = $16, lock_ts = $17, end_ts = $18,
			resolved_outcome = $19, resolution_price = $20, resolved_at = $21,
			res_collateral = $22,
			res_yes_reserve = $23, res_no_reserve = $24,
			res_yes_supply = $25, res_no_supply = $26,
			min_bet = $27, max_bet = $28, fee_bps = $29,
			created_at = $30, updated_at = $31
		WHERE id = $1`
	tag, err := s.pool.Exec(ctx, query, marketArgs(m)...)
	if err != nil {
		return fmt.Errorf("postgres: update market %d: %w", m.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Delete removes a market row (market closure).
func (s *MarketStore) Delete(ctx context.Context, id uint64) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM markets WHERE id = $1`, int64(id))
	if err != nil {
		return fmt.Errorf("postgres: delete market %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// List returns markets matching the filter, ordered by id.
func (s *MarketStore) List(ctx context.Context, f domain.MarketFilter) ([]*domain.Market, error) {
	query := `SELECT ` + marketCols + ` FROM markets WHERE 1=1`
	args := []any{}
	argIdx := 1

	if f.Status != "" {
		query += fmt.Sprintf(" AND status = $%d", argIdx)
		args = append(args, string(f.Status))
		argIdx++
	}
	if f.Category != "" {
		query += fmt.Sprintf(" AND category = $%d", argIdx)
		args = append(args, string(f.Category))
		argIdx++
	}
	query += " ORDER BY id"
	if f.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIdx)
		args = append(args, f.Limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list markets: %w", err)
	}
	defer rows.Close()

	var markets []*domain.Market
	for rows.Next() {
		m, err := scanMarket(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan market: %w", err)
		}
		markets = append(markets, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list markets rows: %w", err)
	}
	return markets, nil
}
