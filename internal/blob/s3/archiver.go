package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/openpredict/predictd/internal/domain"
)

// Subscriber is the event-bus read side the archiver consumes.
type Subscriber interface {
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
}

// flushEvery bounds how long a settlement event sits in the buffer before it
// is durably stored.
const flushEvery = 5 * time.Minute

// marketSnapshot is the archived shape of a settled market: the final state
// record plus every position and the dispute, if one was filed.
type marketSnapshot struct {
	Market     *domain.Market         `json:"market"`
	Positions  []*domain.UserPosition `json:"positions"`
	Dispute    *domain.DisputeRecord  `json:"dispute,omitempty"`
	ArchivedAt time.Time              `json:"archived_at"`
}

// Archiver preserves settled markets and the settlement event stream in
// object storage. Markets must be snapshotted before they are closed, since
// closing deletes their records from the primary store.
type Archiver struct {
	writer    *Writer
	positions domain.PositionStore
	disputes  domain.DisputeStore
	bus       Subscriber
	logger    *slog.Logger
}

// NewArchiver creates an Archiver.
func NewArchiver(writer *Writer, positions domain.PositionStore, disputes domain.DisputeStore, bus Subscriber, logger *slog.Logger) *Archiver {
	return &Archiver{
		writer:    writer,
		positions: positions,
		disputes:  disputes,
		bus:       bus,
		logger:    logger.With(slog.String("component", "archiver")),
	}
}

// ArchiveMarket uploads a full snapshot of a settled market to
// archive/markets/{id}.json. Called by the close path before the market row
// is deleted.
func (a *Archiver) ArchiveMarket(ctx context.Context, m *domain.Market) error {
	positions, err := a.positions.ListByMarket(ctx, m.ID)
	if err != nil {
		return fmt.Errorf("s3blob: archive market %d positions: %w", m.ID, err)
	}
	dispute, err := a.disputes.Get(ctx, m.ID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("s3blob: archive market %d dispute: %w", m.ID, err)
	}

	snap := marketSnapshot{
		Market:     m,
		Positions:  positions,
		Dispute:    dispute,
		ArchivedAt: time.Now().UTC(),
	}
	buf, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("s3blob: archive market %d marshal: %w", m.ID, err)
	}

	path := fmt.Sprintf("archive/markets/%d.json", m.ID)
	if err := a.writer.Put(ctx, path, bytes.NewReader(buf), "application/json"); err != nil {
		return fmt.Errorf("s3blob: archive market %d upload: %w", m.ID, err)
	}
	a.logger.Info("market archived", slog.Uint64("market_id", m.ID), slog.String("path", path))
	return nil
}

// Run consumes the settlement event channel and flushes batches of events to
// archive/settlement/ as JSONL, partitioned by flush time. Events buffered
// when the context ends are flushed with a short grace period.
func (a *Archiver) Run(ctx context.Context) error {
	events, err := a.bus.Subscribe(ctx, domain.ChannelSettlement)
	if err != nil {
		return fmt.Errorf("s3blob: subscribe settlement: %w", err)
	}

	a.logger.Info("settlement archiver started")
	defer a.logger.Info("settlement archiver stopped")

	var buf bytes.Buffer
	var count int
	ticker := time.NewTicker(flushEvery)
	defer ticker.Stop()

	flush := func(flushCtx context.Context) {
		if count == 0 {
			return
		}
		path := fmt.Sprintf("archive/settlement/%s.jsonl", time.Now().UTC().Format("2006-01-02T15-04-05"))
		if err := a.writer.Put(flushCtx, path, bytes.NewReader(buf.Bytes()), "application/x-ndjson"); err != nil {
			a.logger.Error("flush settlement archive", slog.String("error", err.Error()))
			return
		}
		a.logger.Info("settlement events archived", slog.Int("count", count), slog.String("path", path))
		buf.Reset()
		count = 0
	}

	for {
		select {
		case <-ctx.Done():
			graceCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			flush(graceCtx)
			cancel()
			return ctx.Err()
		case <-ticker.C:
			flush(ctx)
		case payload, ok := <-events:
			if !ok {
				flush(ctx)
				return nil
			}
			buf.Write(payload)
			buf.WriteByte('\n')
			count++
		}
	}
}
