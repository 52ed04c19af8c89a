package notify

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSender struct {
	name string
	err  error
	sent []Alert
}

func (f *fakeSender) Send(_ context.Context, a Alert) error {
	f.sent = append(f.sent, a)
	return f.err
}

func (f *fakeSender) Name() string { return f.name }

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNotifierFiltersByEvent(t *testing.T) {
	s := &fakeSender{name: "fake"}
	n := NewNotifier([]Sender{s}, []string{EventMarketResolved}, discard())

	require.NoError(t, n.Notify(context.Background(), Alert{
		Event: EventMarketCreated, MarketID: 7, Title: "Market 7 created",
	}))
	assert.Empty(t, s.sent)

	require.NoError(t, n.Notify(context.Background(), Alert{
		Event: EventMarketResolved, MarketID: 7, Title: "Market 7 resolved",
	}))
	require.Len(t, s.sent, 1)
	assert.Equal(t, uint64(7), s.sent[0].MarketID)
}

func TestNotifierEmptyEventListAllowsAll(t *testing.T) {
	s := &fakeSender{name: "fake"}
	n := NewNotifier([]Sender{s}, nil, discard())

	require.NoError(t, n.Notify(context.Background(), Alert{Event: "anything"}))
	assert.Len(t, s.sent, 1)
}

func TestNotifierFailureDoesNotBlockOtherSenders(t *testing.T) {
	bad := &fakeSender{name: "bad", err: errors.New("unreachable")}
	good := &fakeSender{name: "good"}
	n := NewNotifier([]Sender{bad, good}, nil, discard())

	err := n.Notify(context.Background(), Alert{Event: EventDisputeOpened, MarketID: 3})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad")

	// The failing sender did not stop delivery to the healthy one.
	assert.Len(t, good.sent, 1)
}
