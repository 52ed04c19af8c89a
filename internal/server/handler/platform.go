package handler

import (
	"log/slog"
	"net/http"

	"github.com/ethereum/go-ethereum/common"

	"github.com/openpredict/predictd/internal/domain"
	"github.com/openpredict/predictd/internal/engine"
)

// PlatformHandler serves the singleton platform configuration endpoints.
type PlatformHandler struct {
	eng      *engine.Engine
	platform domain.PlatformStore
	logger   *slog.Logger
}

// NewPlatformHandler creates a PlatformHandler.
func NewPlatformHandler(eng *engine.Engine, platform domain.PlatformStore, logger *slog.Logger) *PlatformHandler {
	return &PlatformHandler{eng: eng, platform: platform, logger: logger}
}

// GetPlatform returns the platform record.
// GET /api/platform
func (h *PlatformHandler) GetPlatform(w http.ResponseWriter, r *http.Request) {
	p, err := h.platform.Get(r.Context())
	if err != nil {
		writeEngineError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, viewPlatform(p))
}

type initPlatformRequest struct {
	FeeBps          uint16 `json:"fee_bps"`
	Treasury        string `json:"treasury"`
	CollateralAsset string `json:"collateral_asset"`
	DisputeBond     string `json:"dispute_bond"`
}

// InitPlatform creates the platform record exactly once. The signed caller
// becomes the admin.
// POST /api/platform/init
func (h *PlatformHandler) InitPlatform(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}
	var req initPlatformRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if !common.IsHexAddress(req.Treasury) || !common.IsHexAddress(req.CollateralAsset) {
		writeError(w, http.StatusBadRequest, "treasury and collateral_asset must be hex addresses")
		return
	}
	bond, err := parseAmount(req.DisputeBond)
	if err != nil {
		writeError(w, http.StatusBadRequest, "dispute_bond must be a decimal string")
		return
	}

	if err := h.eng.InitPlatform(r.Context(), caller, engine.InitPlatformParams{
		FeeBps:          req.FeeBps,
		Treasury:        common.HexToAddress(req.Treasury),
		CollateralAsset: common.HexToAddress(req.CollateralAsset),
		DisputeBond:     bond,
	}); err != nil {
		writeEngineError(w, r, h.logger, err)
		return
	}

	p, err := h.platform.Get(r.Context())
	if err != nil {
		writeEngineError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, viewPlatform(p))
}

type updateFeesRequest struct {
	FeeBps uint16 `json:"fee_bps"`
}

// UpdateFees changes the platform fee. Admin only.
// PUT /api/platform/fees
func (h *PlatformHandler) UpdateFees(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}
	var req updateFeesRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if err := h.eng.UpdateFees(r.Context(), caller, req.FeeBps); err != nil {
		writeEngineError(w, r, h.logger, err)
		return
	}
	h.GetPlatform(w, r)
}

type updateTreasuryRequest struct {
	Treasury string `json:"treasury"`
}

// UpdateTreasury changes the treasury address. Admin only.
// PUT /api/platform/treasury
func (h *PlatformHandler) UpdateTreasury(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}
	var req updateTreasuryRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if !common.IsHexAddress(req.Treasury) {
		writeError(w, http.StatusBadRequest, "treasury must be a hex address")
		return
	}
	if err := h.eng.UpdateTreasury(r.Context(), caller, common.HexToAddress(req.Treasury)); err != nil {
		writeEngineError(w, r, h.logger, err)
		return
	}
	h.GetPlatform(w, r)
}

type updateCollateralRequest struct {
	CollateralAsset string `json:"collateral_asset"`
	Treasury        string `json:"treasury"`
}

// UpdateCollateralAsset migrates the collateral asset and its treasury.
// Admin only.
// PUT /api/platform/collateral
func (h *PlatformHandler) UpdateCollateralAsset(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}
	var req updateCollateralRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if !common.IsHexAddress(req.CollateralAsset) || !common.IsHexAddress(req.Treasury) {
		writeError(w, http.StatusBadRequest, "collateral_asset and treasury must be hex addresses")
		return
	}
	if err := h.eng.UpdateCollateralAsset(r.Context(), caller,
		common.HexToAddress(req.CollateralAsset), common.HexToAddress(req.Treasury)); err != nil {
		writeEngineError(w, r, h.logger, err)
		return
	}
	h.GetPlatform(w, r)
}

// PausePlatform halts all trading instructions. Admin only.
// POST /api/platform/pause
func (h *PlatformHandler) PausePlatform(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}
	if err := h.eng.PausePlatform(r.Context(), caller); err != nil {
		writeEngineError(w, r, h.logger, err)
		return
	}
	h.GetPlatform(w, r)
}

// UnpausePlatform resumes trading. Admin only.
// POST /api/platform/unpause
func (h *PlatformHandler) UnpausePlatform(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}
	if err := h.eng.UnpausePlatform(r.Context(), caller); err != nil {
		writeEngineError(w, r, h.logger, err)
		return
	}
	h.GetPlatform(w, r)
}
