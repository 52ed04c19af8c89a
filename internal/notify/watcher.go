package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/openpredict/predictd/internal/domain"
)

// Subscriber is the event-bus read side the watcher consumes.
type Subscriber interface {
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
}

// Event type names used for notification filtering.
const (
	EventMarketCreated  = "market_created"
	EventMarketResolved = "market_resolved"
	EventDisputeOpened  = "dispute_opened"
	EventDisputeSettled = "dispute_settled"
)

// Watcher subscribes to the markets and disputes channels and forwards
// operator-relevant events to the Notifier. Bet-level traffic is
// intentionally not watched; it would drown every channel.
type Watcher struct {
	bus      Subscriber
	notifier *Notifier
	logger   *slog.Logger
}

// NewWatcher creates a Watcher.
func NewWatcher(bus Subscriber, notifier *Notifier, logger *slog.Logger) *Watcher {
	return &Watcher{
		bus:      bus,
		notifier: notifier,
		logger:   logger.With(slog.String("component", "notify_watcher")),
	}
}

// Run consumes both channels until the context is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return w.watch(ctx, domain.ChannelMarkets, w.handleMarketEvent) })
	g.Go(func() error { return w.watch(ctx, domain.ChannelDisputes, w.handleDisputeEvent) })
	return g.Wait()
}

func (w *Watcher) watch(ctx context.Context, channel string, handle func(context.Context, []byte)) error {
	ch, err := w.bus.Subscribe(ctx, channel)
	if err != nil {
		return fmt.Errorf("notify: subscribe %s: %w", channel, err)
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case payload, ok := <-ch:
			if !ok {
				return nil
			}
			handle(ctx, payload)
		}
	}
}

func (w *Watcher) handleMarketEvent(ctx context.Context, payload []byte) {
	// Resolution events carry an outcome; creation events carry a title.
	// Plain status transitions carry neither and are not notified.
	var ev struct {
		MarketID uint64 `json:"market_id"`
		Title    string `json:"title"`
		Outcome  string `json:"outcome"`
	}
	if err := json.Unmarshal(payload, &ev); err != nil {
		w.logger.Debug("bad market event", slog.String("error", err.Error()))
		return
	}

	switch {
	case ev.Outcome != "":
		w.send(ctx, Alert{
			Event:    EventMarketResolved,
			MarketID: ev.MarketID,
			Title:    fmt.Sprintf("Market %d resolved", ev.MarketID),
			Body:     fmt.Sprintf("Outcome: %s", ev.Outcome),
		})
	case ev.Title != "":
		w.send(ctx, Alert{
			Event:    EventMarketCreated,
			MarketID: ev.MarketID,
			Title:    fmt.Sprintf("Market %d created", ev.MarketID),
			Body:     ev.Title,
		})
	}
}

func (w *Watcher) handleDisputeEvent(ctx context.Context, payload []byte) {
	var ev struct {
		MarketID uint64 `json:"market_id"`
		Disputer string `json:"disputer"`
		Reason   string `json:"reason"`
		Upheld   *bool  `json:"upheld"`
		Outcome  string `json:"outcome"`
	}
	if err := json.Unmarshal(payload, &ev); err != nil {
		w.logger.Debug("bad dispute event", slog.String("error", err.Error()))
		return
	}

	if ev.Upheld != nil {
		verdict := "rejected"
		if *ev.Upheld {
			verdict = "upheld"
		}
		w.send(ctx, Alert{
			Event:    EventDisputeSettled,
			MarketID: ev.MarketID,
			Title:    fmt.Sprintf("Dispute on market %d %s", ev.MarketID, verdict),
			Body:     fmt.Sprintf("Final outcome: %s", ev.Outcome),
		})
		return
	}
	w.send(ctx, Alert{
		Event:    EventDisputeOpened,
		MarketID: ev.MarketID,
		Title:    fmt.Sprintf("Dispute opened on market %d", ev.MarketID),
		Body:     ev.Reason,
	})
}

func (w *Watcher) send(ctx context.Context, a Alert) {
	if err := w.notifier.Notify(ctx, a); err != nil {
		w.logger.Warn("notify failed",
			slog.String("event", a.Event),
			slog.String("error", err.Error()),
		)
	}
}
