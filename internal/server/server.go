// Package server exposes the prediction-market engine over HTTP and
// WebSocket.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/openpredict/predictd/internal/server/handler"
	"github.com/openpredict/predictd/internal/server/middleware"
	"github.com/openpredict/predictd/internal/server/ws"
)

// Config holds the HTTP server configuration.
type Config struct {
	Port        int
	CORSOrigins []string

	// AuthMaxSkew bounds how old a signed request timestamp may be.
	AuthMaxSkew time.Duration

	// RateLimit is the per-client request budget per RateWindow. Zero
	// disables rate limiting; RateLimiter may then be nil.
	RateLimit   int
	RateWindow  time.Duration
	RateLimiter middleware.Limiter
}

// Handlers aggregates all HTTP handlers that the server needs to register.
type Handlers struct {
	Health    *handler.HealthHandler
	Platform  *handler.PlatformHandler
	Markets   *handler.MarketHandler
	Bets      *handler.BetHandler
	Positions *handler.PositionHandler
	Disputes  *handler.DisputeHandler
}

// Server is the HTTP + WebSocket API server for the market engine.
type Server struct {
	httpServer *http.Server
	mux        *http.ServeMux
	logger     *slog.Logger
}

// NewServer creates a new Server with all routes registered on the ServeMux.
// It wires up middleware (rate limiting, signature auth, logging, CORS) and
// attaches the WebSocket hub.
func NewServer(cfg Config, handlers Handlers, wsHub *ws.Hub, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	// Health check (no auth required; GETs are public anyway).
	mux.HandleFunc("GET /api/health", handlers.Health.HealthCheck)

	// Platform endpoints.
	mux.HandleFunc("GET /api/platform", handlers.Platform.GetPlatform)
	mux.HandleFunc("POST /api/platform/init", handlers.Platform.InitPlatform)
	mux.HandleFunc("PUT /api/platform/fees", handlers.Platform.UpdateFees)
	mux.HandleFunc("PUT /api/platform/treasury", handlers.Platform.UpdateTreasury)
	mux.HandleFunc("PUT /api/platform/collateral", handlers.Platform.UpdateCollateralAsset)
	mux.HandleFunc("POST /api/platform/pause", handlers.Platform.PausePlatform)
	mux.HandleFunc("POST /api/platform/unpause", handlers.Platform.UnpausePlatform)

	// Market endpoints.
	mux.HandleFunc("GET /api/markets", handlers.Markets.ListMarkets)
	mux.HandleFunc("POST /api/markets", handlers.Markets.CreateMarket)
	mux.HandleFunc("GET /api/markets/{id}", handlers.Markets.GetMarket)
	mux.HandleFunc("GET /api/markets/{id}/quote", handlers.Markets.QuoteBet)
	mux.HandleFunc("GET /api/markets/{id}/prices", handlers.Markets.GetPrices)
	mux.HandleFunc("POST /api/markets/{id}/pause", handlers.Markets.PauseMarket)
	mux.HandleFunc("POST /api/markets/{id}/unpause", handlers.Markets.UnpauseMarket)
	mux.HandleFunc("POST /api/markets/{id}/cancel", handlers.Markets.CancelMarket)
	mux.HandleFunc("POST /api/markets/{id}/close", handlers.Markets.CloseMarket)
	mux.HandleFunc("POST /api/markets/{id}/resolve", handlers.Markets.ResolveMarket)

	// Bet endpoints.
	mux.HandleFunc("POST /api/markets/{id}/bets", handlers.Bets.PlaceBet)
	mux.HandleFunc("POST /api/markets/{id}/bets/cancel", handlers.Bets.CancelBet)

	// Position and claim endpoints.
	mux.HandleFunc("GET /api/markets/{id}/positions/{user}", handlers.Positions.GetPosition)
	mux.HandleFunc("POST /api/markets/{id}/claim", handlers.Positions.ClaimPayout)

	// Dispute endpoints.
	mux.HandleFunc("GET /api/markets/{id}/dispute", handlers.Disputes.GetDispute)
	mux.HandleFunc("POST /api/markets/{id}/dispute", handlers.Disputes.OpenDispute)
	mux.HandleFunc("POST /api/markets/{id}/dispute/settle", handlers.Disputes.SettleDispute)

	// WebSocket endpoint.
	if wsHub != nil {
		mux.HandleFunc("GET /ws", wsHub.HandleWS)
	}

	// Build the middleware chain, innermost first.
	var h http.Handler = mux

	h = middleware.Auth(cfg.AuthMaxSkew)(h)

	if cfg.RateLimit > 0 && cfg.RateLimiter != nil {
		h = middleware.RateLimit(cfg.RateLimiter, cfg.RateLimit, cfg.RateWindow)(h)
	}

	h = middleware.Logging(logger)(h)
	h = middleware.CORS(cfg.CORSOrigins)(h)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      h,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: srv,
		mux:        mux,
		logger:     logger,
	}
}

// Start begins listening for HTTP requests. It blocks until the server
// encounters an error or is shut down.
func (s *Server) Start() error {
	s.logger.Info("server: starting",
		slog.String("addr", s.httpServer.Addr),
	)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server: listen: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server, waiting for in-flight requests
// to complete within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("server: shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}
