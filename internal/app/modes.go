package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/sync/errgroup"

	"github.com/openpredict/predictd/internal/crypto"
	"github.com/openpredict/predictd/internal/notify"
	"github.com/openpredict/predictd/internal/oracle"
	"github.com/openpredict/predictd/internal/server"
	"github.com/openpredict/predictd/internal/server/handler"
	"github.com/openpredict/predictd/internal/server/ws"
)

// ServerMode runs the HTTP/WebSocket API, the notification watcher, and the
// settlement archiver.
func (a *App) ServerMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting server mode")

	g, ctx := errgroup.WithContext(ctx)
	a.startCommon(ctx, g, deps)
	a.startHTTPServer(ctx, g, deps)
	return g.Wait()
}

// ResolverMode runs only the oracle auto-resolver. Useful as a sidecar next
// to a separately deployed API server.
func (a *App) ResolverMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting resolver mode")

	if !a.cfg.Oracle.Enabled {
		return fmt.Errorf("resolver mode: oracle.enabled must be true")
	}

	g, ctx := errgroup.WithContext(ctx)
	if err := a.startResolver(ctx, g, deps); err != nil {
		return fmt.Errorf("resolver mode: %w", err)
	}
	return g.Wait()
}

// FullMode runs every subsystem: the API server, the notification watcher,
// the archiver, and (when the oracle is enabled) the auto-resolver.
func (a *App) FullMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting full mode")

	g, ctx := errgroup.WithContext(ctx)
	a.startCommon(ctx, g, deps)

	if a.cfg.Oracle.Enabled {
		if err := a.startResolver(ctx, g, deps); err != nil {
			return fmt.Errorf("full mode: %w", err)
		}
	}
	if a.cfg.Server.Enabled {
		a.startHTTPServer(ctx, g, deps)
	}
	return g.Wait()
}

// startCommon starts the goroutines shared by the serving modes: the event
// watcher feeding the notifier, and the settlement archiver when S3 is
// configured.
func (a *App) startCommon(ctx context.Context, g *errgroup.Group, deps *Dependencies) {
	watcher := notify.NewWatcher(deps.SignalBus, deps.Notifier, a.logger)
	g.Go(func() error {
		err := watcher.Run(ctx)
		if ctx.Err() != nil {
			return nil
		}
		return err
	})

	if deps.Archiver != nil {
		g.Go(func() error {
			err := deps.Archiver.Run(ctx)
			if ctx.Err() != nil {
				return nil
			}
			return err
		})
	}
}

// startResolver loads the operator key and starts the oracle poll loop.
func (a *App) startResolver(ctx context.Context, g *errgroup.Group, deps *Dependencies) error {
	operator, err := a.operatorAddress()
	if err != nil {
		return err
	}

	resolver := oracle.NewAutoResolver(
		oracle.NewClient(a.cfg.Oracle.BaseURL),
		deps.Engine,
		deps.Markets,
		operator,
		a.cfg.Oracle.PollInterval.Duration,
		a.logger,
	)
	g.Go(func() error {
		err := resolver.Run(ctx)
		if ctx.Err() != nil {
			return nil
		}
		return err
	})

	a.logger.InfoContext(ctx, "oracle resolver started",
		slog.String("operator", operator.Hex()),
		slog.String("base_url", a.cfg.Oracle.BaseURL),
		slog.Duration("interval", a.cfg.Oracle.PollInterval.Duration),
	)
	return nil
}

// operatorAddress loads the configured operator key and returns its address.
func (a *App) operatorAddress() (common.Address, error) {
	keyHex, err := crypto.LoadKey(crypto.KeyConfig{
		RawPrivateKey:    a.cfg.Operator.PrivateKey,
		EncryptedKeyPath: a.cfg.Operator.EncryptedKeyPath,
		KeyPassword:      a.cfg.Operator.KeyPassword,
	})
	if err != nil {
		return common.Address{}, fmt.Errorf("load operator key: %w", err)
	}
	signer, err := crypto.NewSigner(keyHex)
	if err != nil {
		return common.Address{}, fmt.Errorf("parse operator key: %w", err)
	}
	return signer.Address(), nil
}

// startHTTPServer adds the API server goroutines to the given errgroup,
// including the WebSocket hub bridging engine events to clients.
func (a *App) startHTTPServer(ctx context.Context, g *errgroup.Group, deps *Dependencies) {
	hub := ws.NewHub(deps.SignalBus, a.logger)
	g.Go(func() error {
		err := hub.Run(ctx)
		if ctx.Err() != nil {
			return nil
		}
		return err
	})

	// A typed-nil archiver must not become a non-nil interface.
	var archiver handler.Archiver
	if deps.Archiver != nil {
		archiver = deps.Archiver
	}

	handlers := server.Handlers{
		Health:    handler.NewHealthHandler(deps.Pingers, a.logger),
		Platform:  handler.NewPlatformHandler(deps.Engine, deps.Platform, a.logger),
		Markets:   handler.NewMarketHandler(deps.Engine, deps.PriceCache, archiver, a.logger),
		Bets:      handler.NewBetHandler(deps.Engine, a.logger),
		Positions: handler.NewPositionHandler(deps.Engine, a.logger),
		Disputes:  handler.NewDisputeHandler(deps.Engine, a.logger),
	}

	srv := server.NewServer(server.Config{
		Port:        a.cfg.Server.Port,
		CORSOrigins: a.cfg.Server.CORSOrigins,
		AuthMaxSkew: a.cfg.Server.AuthMaxSkew.Duration,
		RateLimit:   a.cfg.Server.RateLimit,
		RateWindow:  a.cfg.Server.RateWindow.Duration,
		RateLimiter: deps.RateLimiter,
	}, handlers, hub, a.logger)

	g.Go(func() error {
		return srv.Start()
	})
	g.Go(func() error {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutCtx)
	})
}
