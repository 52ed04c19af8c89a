package middleware

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/openpredict/predictd/internal/crypto"
)

// Signed request headers.
const (
	HeaderTimestamp = "X-Predictd-Timestamp"
	HeaderSignature = "X-Predictd-Signature"
)

// maxBodySize bounds the request body read for signature verification.
const maxBodySize = 1 << 20

type callerKey struct{}

// CallerFrom returns the signature-recovered caller address, if the request
// carried a valid signature.
func CallerFrom(ctx context.Context) (common.Address, bool) {
	addr, ok := ctx.Value(callerKey{}).(common.Address)
	return addr, ok
}

// Auth returns middleware that authenticates state-changing requests by
// signature recovery. The client signs timestamp, method, path, and body
// with its secp256k1 key; the recovered address becomes the caller identity
// for the handler. Safe methods pass through unauthenticated so read
// endpoints stay public.
//
// There is no account registry: a signature IS the identity. Authorization
// (admin checks, position ownership) happens in the engine against the
// recovered address.
func Auth(maxSkew time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodGet || r.Method == http.MethodHead || r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			tsHeader := r.Header.Get(HeaderTimestamp)
			sig := r.Header.Get(HeaderSignature)
			if tsHeader == "" || sig == "" {
				writeUnauthorized(w, "missing request signature")
				return
			}

			ts, err := strconv.ParseInt(tsHeader, 10, 64)
			if err != nil {
				writeUnauthorized(w, "malformed timestamp")
				return
			}
			skew := time.Since(time.Unix(ts, 0))
			if skew < 0 {
				skew = -skew
			}
			if skew > maxSkew {
				writeUnauthorized(w, "request timestamp outside freshness window")
				return
			}

			body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
			if err != nil {
				writeUnauthorized(w, "unreadable request body")
				return
			}
			r.Body.Close()
			// Hand the handler a fresh body; verification consumed it.
			r.Body = io.NopCloser(bytes.NewReader(body))

			caller, err := crypto.RecoverSigner(ts, r.Method, r.URL.Path, body, sig)
			if err != nil {
				writeUnauthorized(w, "invalid request signature")
				return
			}

			ctx := context.WithValue(r.Context(), callerKey{}, caller)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// writeUnauthorized sends a 401 response with a JSON error body.
func writeUnauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusUnauthorized)
	w.Write([]byte(`{"error":"` + msg + `"}`))
}
