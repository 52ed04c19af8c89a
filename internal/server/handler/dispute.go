package handler

import (
	"log/slog"
	"net/http"

	"github.com/openpredict/predictd/internal/domain"
	"github.com/openpredict/predictd/internal/engine"
)

// DisputeHandler serves dispute opening and settlement.
type DisputeHandler struct {
	eng    *engine.Engine
	logger *slog.Logger
}

// NewDisputeHandler creates a DisputeHandler.
func NewDisputeHandler(eng *engine.Engine, logger *slog.Logger) *DisputeHandler {
	return &DisputeHandler{eng: eng, logger: logger}
}

type openDisputeRequest struct {
	Reason string `json:"reason"`
}

// OpenDispute challenges a resolved market. The platform dispute bond is
// taken from the signed caller.
// POST /api/markets/{id}/dispute
func (h *DisputeHandler) OpenDispute(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid market id")
		return
	}
	var req openDisputeRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	d := h.eng.Deriver()
	marketRef := d.Market(id)
	rec, err := h.eng.OpenDispute(r.Context(), caller, engine.OpenDisputeParams{
		MarketID:   id,
		MarketRef:  marketRef,
		DisputeRef: d.Dispute(marketRef),
		Reason:     req.Reason,
	})
	if err != nil {
		writeEngineError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, viewDispute(rec))
}

// GetDispute returns the dispute record for a market, if any.
// GET /api/markets/{id}/dispute
func (h *DisputeHandler) GetDispute(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid market id")
		return
	}
	rec, err := h.eng.GetDispute(r.Context(), id)
	if err != nil {
		writeEngineError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, viewDispute(rec))
}

type settleDisputeRequest struct {
	NewOutcome string `json:"new_outcome"`
}

// SettleDispute rules on an open dispute. Admin only.
// POST /api/markets/{id}/dispute/settle
func (h *DisputeHandler) SettleDispute(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid market id")
		return
	}
	var req settleDisputeRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	outcome, err := domain.ParseOutcome(req.NewOutcome)
	if err != nil {
		writeError(w, http.StatusBadRequest, "new_outcome must be yes, no, or invalid")
		return
	}

	d := h.eng.Deriver()
	marketRef := d.Market(id)
	rec, err := h.eng.SettleDispute(r.Context(), caller, engine.SettleDisputeParams{
		MarketID:   id,
		MarketRef:  marketRef,
		DisputeRef: d.Dispute(marketRef),
		NewOutcome: outcome,
	})
	if err != nil {
		writeEngineError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, viewDispute(rec))
}
