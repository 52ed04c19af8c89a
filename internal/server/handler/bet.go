package handler

import (
	"log/slog"
	"net/http"

	"github.com/openpredict/predictd/internal/domain"
	"github.com/openpredict/predictd/internal/engine"
)

// BetHandler serves bet placement and cancellation.
type BetHandler struct {
	eng    *engine.Engine
	logger *slog.Logger
}

// NewBetHandler creates a BetHandler.
func NewBetHandler(eng *engine.Engine, logger *slog.Logger) *BetHandler {
	return &BetHandler{eng: eng, logger: logger}
}

type placeBetRequest struct {
	Side         string `json:"side"`
	Amount       string `json:"amount"`
	MinSharesOut string `json:"min_shares_out"`
}

// PlaceBet buys outcome shares for the signed caller.
// POST /api/markets/{id}/bets
func (h *BetHandler) PlaceBet(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid market id")
		return
	}
	var req placeBetRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	side, err := domain.ParseSide(req.Side)
	if err != nil {
		writeError(w, http.StatusBadRequest, "side must be yes or no")
		return
	}
	amount, err1 := parseAmount(req.Amount)
	minShares, err2 := parseAmount(req.MinSharesOut)
	if err1 != nil || err2 != nil || amount == 0 {
		writeError(w, http.StatusBadRequest, "amounts must be positive decimal strings")
		return
	}

	res, err := h.eng.PlaceBet(r.Context(), caller, engine.PlaceBetParams{
		MarketID:     id,
		Accounts:     marketAccounts(h.eng, id),
		Side:         side,
		Amount:       amount,
		MinSharesOut: minShares,
	})
	if err != nil {
		writeEngineError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{
		"side":   side.String(),
		"amount": u64(amount),
		"shares": u64(res.Shares),
		"fee":    u64(res.Fee),
	})
}

type cancelBetRequest struct {
	Side         string `json:"side"`
	Shares       string `json:"shares"`
	MinRefundOut string `json:"min_refund_out"`
}

// CancelBet sells shares back to the pool while betting is open.
// POST /api/markets/{id}/bets/cancel
func (h *BetHandler) CancelBet(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid market id")
		return
	}
	var req cancelBetRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	side, err := domain.ParseSide(req.Side)
	if err != nil {
		writeError(w, http.StatusBadRequest, "side must be yes or no")
		return
	}
	shares, err1 := parseAmount(req.Shares)
	minRefund, err2 := parseAmount(req.MinRefundOut)
	if err1 != nil || err2 != nil || shares == 0 {
		writeError(w, http.StatusBadRequest, "amounts must be positive decimal strings")
		return
	}

	res, err := h.eng.CancelBet(r.Context(), caller, engine.CancelBetParams{
		MarketID:     id,
		Accounts:     marketAccounts(h.eng, id),
		Side:         side,
		Shares:       shares,
		MinRefundOut: minRefund,
	})
	if err != nil {
		writeEngineError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"side":   side.String(),
		"shares": u64(shares),
		"refund": u64(res.Refund),
		"fee":    u64(res.Fee),
	})
}
