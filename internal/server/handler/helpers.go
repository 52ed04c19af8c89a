package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/ethereum/go-ethereum/common"

	"github.com/openpredict/predictd/internal/domain"
	"github.com/openpredict/predictd/internal/server/middleware"
)

// writeJSON marshals v as JSON and writes it to the response with the given
// HTTP status code. If marshaling fails, it falls back to a plain-text 500.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	w.Write(data)
}

// writeError sends a JSON-formatted error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeEngineError maps an engine error onto an HTTP status and sends it.
// Unexpected errors are logged and reported as an opaque 500.
func writeEngineError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	status, known := engineErrorStatus(err)
	if !known {
		logger.ErrorContext(r.Context(), "handler: request failed",
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeError(w, status, err.Error())
}

// engineErrorStatus classifies the engine's error taxonomy. The second
// return reports whether the error is a known, caller-visible one.
func engineErrorStatus(err error) (int, bool) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, true
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusForbidden, true
	case errors.Is(err, domain.ErrAlreadyExists),
		errors.Is(err, domain.ErrAlreadyResolved),
		errors.Is(err, domain.ErrDisputeExists):
		return http.StatusConflict, true
	case errors.Is(err, domain.ErrPlatformPaused),
		errors.Is(err, domain.ErrInvalidMarketStatus),
		errors.Is(err, domain.ErrBettingClosed),
		errors.Is(err, domain.ErrMarketNotResolved),
		errors.Is(err, domain.ErrResolutionTooEarly),
		errors.Is(err, domain.ErrMarketNotCloseable),
		errors.Is(err, domain.ErrOutstandingPositions),
		errors.Is(err, domain.ErrDisputeNotOpen):
		return http.StatusConflict, true
	case errors.Is(err, domain.ErrInvalidSeeds),
		errors.Is(err, domain.ErrBelowMinBet),
		errors.Is(err, domain.ErrAboveMaxBet),
		errors.Is(err, domain.ErrSlippageExceeded),
		errors.Is(err, domain.ErrInsufficientShares),
		errors.Is(err, domain.ErrInsufficientFunds),
		errors.Is(err, domain.ErrInsufficientVault),
		errors.Is(err, domain.ErrInvalidQuote),
		errors.Is(err, domain.ErrInvalidOutcome),
		errors.Is(err, domain.ErrInvalidPriceFeed),
		errors.Is(err, domain.ErrStaleOracle),
		errors.Is(err, domain.ErrInvalidTimestamps),
		errors.Is(err, domain.ErrTitleTooLong),
		errors.Is(err, domain.ErrDescriptionTooLong),
		errors.Is(err, domain.ErrFeeExceedsMax),
		errors.Is(err, domain.ErrNoLiquidity):
		return http.StatusBadRequest, true
	}
	return 0, false
}

// requireCaller extracts the signature-recovered caller address placed by
// the auth middleware. Writes a 401 and returns false when absent.
func requireCaller(w http.ResponseWriter, r *http.Request) (common.Address, bool) {
	caller, ok := middleware.CallerFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "request signature required")
	}
	return caller, ok
}

// decodeBody decodes a JSON request body into dst, rejecting unknown fields.
func decodeBody(r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

// pathID extracts a uint64 path parameter using Go 1.22+ built-in routing.
func pathID(r *http.Request, name string) (uint64, error) {
	return strconv.ParseUint(r.PathValue(name), 10, 64)
}

// parseLimit extracts the limit query parameter. Defaults to 50, capped at
// 500.
func parseLimit(r *http.Request) int {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	if limit > 500 {
		limit = 500
	}
	return limit
}

// u64 renders an amount as a decimal string. Collateral and share amounts
// can exceed 2^53, which JSON numbers cannot carry exactly.
func u64(v uint64) string {
	return strconv.FormatUint(v, 10)
}
