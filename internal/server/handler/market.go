package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/ethereum/go-ethereum/common"

	"github.com/openpredict/predictd/internal/amm"
	"github.com/openpredict/predictd/internal/domain"
	"github.com/openpredict/predictd/internal/engine"
)

// Archiver snapshots a market's full state to durable storage before close
// deletes it.
type Archiver interface {
	ArchiveMarket(ctx context.Context, m *domain.Market) error
}

// MarketHandler serves market lifecycle and read endpoints.
type MarketHandler struct {
	eng      *engine.Engine
	prices   domain.PriceCache // may be nil
	archiver Archiver          // may be nil
	logger   *slog.Logger
}

// NewMarketHandler creates a MarketHandler. prices may be nil, in which case
// the prices endpoint computes from the live reserves on every call.
// archiver may be nil; when set, CloseMarket snapshots the market before the
// engine deletes it.
func NewMarketHandler(eng *engine.Engine, prices domain.PriceCache, archiver Archiver, logger *slog.Logger) *MarketHandler {
	return &MarketHandler{eng: eng, prices: prices, archiver: archiver, logger: logger}
}

// marketAccounts derives the full account set for a market. The engine
// re-verifies every reference against the same derivation, so the API and a
// self-deriving client are interchangeable.
func marketAccounts(eng *engine.Engine, marketID uint64) engine.MarketAccounts {
	d := eng.Deriver()
	ref := d.Market(marketID)
	return engine.MarketAccounts{
		Market:  ref,
		Vault:   d.Vault(ref),
		YesMint: d.YesMint(ref),
		NoMint:  d.NoMint(ref),
	}
}

// ListMarkets returns markets, optionally filtered by status and category.
// GET /api/markets?status=active&category=crypto&limit=50
func (h *MarketHandler) ListMarkets(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := domain.MarketFilter{
		Status:   domain.MarketStatus(q.Get("status")),
		Category: domain.MarketCategory(q.Get("category")),
		Limit:    parseLimit(r),
	}

	markets, err := h.eng.ListMarkets(r.Context(), filter)
	if err != nil {
		writeEngineError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"markets": viewMarkets(markets),
		"count":   len(markets),
	})
}

// GetMarket returns a single market by its ID.
// GET /api/markets/{id}
func (h *MarketHandler) GetMarket(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid market id")
		return
	}
	m, err := h.eng.GetMarket(r.Context(), id)
	if err != nil {
		writeEngineError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, viewMarket(m))
}

// createMarketRequest is the wire form of a market creation. Amounts are
// decimal strings in base collateral units.
type createMarketRequest struct {
	MarketID    uint64 `json:"market_id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Category    string `json:"category"`

	OracleSource    string `json:"oracle_source"`
	OracleFeed      string `json:"oracle_feed"`
	OracleThreshold int64  `json:"oracle_threshold"`

	StartTimestamp int64 `json:"start_timestamp"`
	LockTimestamp  int64 `json:"lock_timestamp"`
	EndTimestamp   int64 `json:"end_timestamp"`

	MinBet           string `json:"min_bet"`
	MaxBet           string `json:"max_bet"`
	FeeBps           uint16 `json:"fee_bps"`
	InitialLiquidity string `json:"initial_liquidity"`
}

// CreateMarket creates a market funded by the caller. Admin only.
// POST /api/markets
func (h *MarketHandler) CreateMarket(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}
	var req createMarketRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	minBet, err1 := parseAmount(req.MinBet)
	maxBet, err2 := parseAmount(req.MaxBet)
	liquidity, err3 := parseAmount(req.InitialLiquidity)
	if err1 != nil || err2 != nil || err3 != nil {
		writeError(w, http.StatusBadRequest, "amounts must be decimal strings")
		return
	}

	params := engine.CreateMarketParams{
		MarketID:         req.MarketID,
		Title:            req.Title,
		Description:      req.Description,
		Category:         domain.MarketCategory(req.Category),
		OracleSource:     domain.OracleSource(req.OracleSource),
		OracleThreshold:  req.OracleThreshold,
		StartTimestamp:   req.StartTimestamp,
		LockTimestamp:    req.LockTimestamp,
		EndTimestamp:     req.EndTimestamp,
		MinBet:           minBet,
		MaxBet:           maxBet,
		FeeBps:           req.FeeBps,
		InitialLiquidity: liquidity,
		Accounts:         marketAccounts(h.eng, req.MarketID),
	}
	if req.OracleFeed != "" {
		params.OracleFeed = common.HexToHash(req.OracleFeed)
	}

	m, err := h.eng.CreateMarket(r.Context(), caller, params)
	if err != nil {
		writeEngineError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, viewMarket(m))
}

// QuoteBet prices a hypothetical bet without executing it.
// GET /api/markets/{id}/quote?side=yes&amount=1000000
func (h *MarketHandler) QuoteBet(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid market id")
		return
	}
	side, err := domain.ParseSide(r.URL.Query().Get("side"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "side must be yes or no")
		return
	}
	amount, err := parseAmount(r.URL.Query().Get("amount"))
	if err != nil || amount == 0 {
		writeError(w, http.StatusBadRequest, "amount must be a positive decimal string")
		return
	}

	shares, fee, err := h.eng.QuoteBet(r.Context(), id, side, amount)
	if err != nil {
		writeEngineError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"side":   side.String(),
		"amount": u64(amount),
		"shares": u64(shares),
		"fee":    u64(fee),
	})
}

// GetPrices returns the implied yes/no prices for a market, served from the
// cache when warm and recomputed from the reserves on a miss.
// GET /api/markets/{id}/prices
func (h *MarketHandler) GetPrices(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid market id")
		return
	}

	if h.prices != nil {
		yes, no, err := h.prices.GetPrices(r.Context(), id)
		if err == nil {
			writeJSON(w, http.StatusOK, map[string]string{"yes": yes, "no": no})
			return
		}
		if !errors.Is(err, domain.ErrNotFound) {
			h.logger.WarnContext(r.Context(), "handler: price cache read failed",
				slog.Uint64("market_id", id),
				slog.String("error", err.Error()),
			)
		}
	}

	m, err := h.eng.GetMarket(r.Context(), id)
	if err != nil {
		writeEngineError(w, r, h.logger, err)
		return
	}
	yes, no := amm.Prices(m.YesReserve, m.NoReserve)
	writeJSON(w, http.StatusOK, map[string]string{"yes": yes.String(), "no": no.String()})
}

// PauseMarket halts trading on a market. Admin only.
// POST /api/markets/{id}/pause
func (h *MarketHandler) PauseMarket(w http.ResponseWriter, r *http.Request) {
	h.lifecycle(w, r, h.eng.PauseMarket)
}

// UnpauseMarket resumes trading on a paused market. Admin only.
// POST /api/markets/{id}/unpause
func (h *MarketHandler) UnpauseMarket(w http.ResponseWriter, r *http.Request) {
	h.lifecycle(w, r, h.eng.UnpauseMarket)
}

// CancelMarket voids a market and makes both sides refundable. Admin only.
// POST /api/markets/{id}/cancel
func (h *MarketHandler) CancelMarket(w http.ResponseWriter, r *http.Request) {
	h.lifecycle(w, r, h.eng.CancelMarket)
}

// CloseMarket deletes a fully settled market. Admin only.
// POST /api/markets/{id}/close
func (h *MarketHandler) CloseMarket(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid market id")
		return
	}
	// Snapshot before the engine deletes the rows. An archive failure aborts
	// the close; the market can always be closed again.
	if h.archiver != nil {
		m, err := h.eng.GetMarket(r.Context(), id)
		if err != nil {
			writeEngineError(w, r, h.logger, err)
			return
		}
		if err := h.archiver.ArchiveMarket(r.Context(), m); err != nil {
			h.logger.ErrorContext(r.Context(), "handler: archive before close failed",
				slog.Uint64("market_id", id),
				slog.String("error", err.Error()),
			)
			writeError(w, http.StatusBadGateway, "market archive failed")
			return
		}
	}
	if err := h.eng.CloseMarket(r.Context(), caller, id, marketAccounts(h.eng, id)); err != nil {
		writeEngineError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"market_id": id, "status": string(domain.MarketStatusClosed)})
}

// resolveMarketRequest carries either a manual outcome or a price report.
type resolveMarketRequest struct {
	Outcome string `json:"outcome"`
	Report  *struct {
		FeedID      string `json:"feed_id"`
		Price       int64  `json:"price"`
		PublishedAt int64  `json:"published_at"`
	} `json:"report"`
}

// ResolveMarket finalizes a market's outcome. Admin only.
// POST /api/markets/{id}/resolve
func (h *MarketHandler) ResolveMarket(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid market id")
		return
	}
	var req resolveMarketRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	params := engine.ResolveMarketParams{
		MarketID: id,
		Accounts: marketAccounts(h.eng, id),
	}
	if req.Report != nil {
		params.Report = &domain.PriceReport{
			FeedID:      common.HexToHash(req.Report.FeedID),
			Price:       req.Report.Price,
			PublishedAt: req.Report.PublishedAt,
		}
	} else {
		outcome, err := domain.ParseOutcome(req.Outcome)
		if err != nil {
			writeError(w, http.StatusBadRequest, "outcome must be yes, no, or invalid")
			return
		}
		params.Outcome = outcome
	}

	m, err := h.eng.ResolveMarket(r.Context(), caller, params)
	if err != nil {
		writeEngineError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, viewMarket(m))
}

// lifecycle handles the admin status transitions that only need a market ID.
func (h *MarketHandler) lifecycle(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, caller common.Address, marketID uint64, marketRef common.Address) error) {
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid market id")
		return
	}
	if err := op(r.Context(), caller, id, h.eng.Deriver().Market(id)); err != nil {
		writeEngineError(w, r, h.logger, err)
		return
	}
	m, err := h.eng.GetMarket(r.Context(), id)
	if err != nil {
		writeEngineError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, viewMarket(m))
}

// parseAmount parses a decimal-string amount. Empty means zero.
func parseAmount(s string) (uint64, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.ParseUint(s, 10, 64)
}
