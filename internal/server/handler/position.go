package handler

import (
	"log/slog"
	"net/http"

	"github.com/ethereum/go-ethereum/common"

	"github.com/openpredict/predictd/internal/engine"
)

// PositionHandler serves position reads and payout claims.
type PositionHandler struct {
	eng    *engine.Engine
	logger *slog.Logger
}

// NewPositionHandler creates a PositionHandler.
func NewPositionHandler(eng *engine.Engine, logger *slog.Logger) *PositionHandler {
	return &PositionHandler{eng: eng, logger: logger}
}

// GetPosition returns one user's holdings in one market.
// GET /api/markets/{id}/positions/{user}
func (h *PositionHandler) GetPosition(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid market id")
		return
	}
	user := r.PathValue("user")
	if !common.IsHexAddress(user) {
		writeError(w, http.StatusBadRequest, "invalid user address")
		return
	}

	p, err := h.eng.GetPosition(r.Context(), id, common.HexToAddress(user))
	if err != nil {
		writeEngineError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, viewPosition(p))
}

// ClaimPayout settles the signed caller's position after resolution or
// cancellation.
// POST /api/markets/{id}/claim
func (h *PositionHandler) ClaimPayout(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid market id")
		return
	}

	res, err := h.eng.ClaimPayout(r.Context(), caller, engine.ClaimPayoutParams{
		MarketID: id,
		Accounts: marketAccounts(h.eng, id),
	})
	if err != nil {
		writeEngineError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"amount":        u64(res.Amount),
		"shares_burned": u64(res.SharesBurned),
	})
}
