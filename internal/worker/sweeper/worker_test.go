package sweeper

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/wildwest/orderbot/internal/service/models/session"
	"github.com/wildwest/orderbot/internal/service/sessions"
	"github.com/wildwest/orderbot/internal/transport/channel"
)

type fakeSender struct{ texts map[int64]string }

func (f *fakeSender) SendText(_ context.Context, recipient int64, text string) error {
	if f.texts == nil {
		f.texts = map[int64]string{}
	}
	f.texts[recipient] = text

	return nil
}

func (f *fakeSender) SendChoice(context.Context, int64, string, []channel.Choice) error {
	return nil
}

func TestSweep_ExpiresIdleSessions(t *testing.T) {
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	store := sessions.NewStore()
	sender := &fakeSender{}

	ordering := store.Get(1, base)
	ordering.Flow = session.FlowOrder
	ordering.State = session.StateAwaitingQuantity

	tracking := store.Get(2, base)
	tracking.Flow = session.FlowTracking
	tracking.State = session.StateAwaitingOrderID

	fresh := store.Get(3, base.Add(14*time.Minute))
	fresh.Flow = session.FlowOrder
	fresh.State = session.StateAwaitingCategory

	w := MustNewWorker(
		WithSessions(store),
		WithChannel(sender),
		WithClock(func() time.Time { return base.Add(16 * time.Minute) }),
	)
	w.Sweep(context.Background())

	// Both stale sessions are reset, with flow-specific notices.
	assert.False(t, store.Get(1, base).Active())
	assert.Contains(t, sender.texts[1], "draft was discarded")
	assert.False(t, store.Get(2, base).Active())
	assert.Contains(t, sender.texts[2], "timed out")

	// The session inside its window is untouched.
	assert.True(t, store.Get(3, base).Active())
	assert.NotContains(t, sender.texts, int64(3))
}

func TestSweep_NothingToDo(t *testing.T) {
	store := sessions.NewStore()
	sender := &fakeSender{}

	w := MustNewWorker(WithSessions(store), WithChannel(sender))
	w.Sweep(context.Background())

	assert.Empty(t, sender.texts)
}
