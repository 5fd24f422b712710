package sweeper

import (
	"context"
	"log/slog"
	"time"

	"github.com/spf13/viper"
	"github.com/wildwest/orderbot/internal/service/models/session"
	"github.com/wildwest/orderbot/internal/service/sessions"
	"github.com/wildwest/orderbot/internal/transport/channel"
)

// Worker periodically force-ends idle sessions and tells the affected
// users their conversation timed out.
type Worker struct {
	sessions *sessions.Store
	ch       channel.Sender

	interval time.Duration
	now      func() time.Time
}

// option is a function that configures the Worker.
type option func(*Worker)

// MustNewWorker creates a new sweeper Worker.
func MustNewWorker(opts ...option) *Worker {
	w := &Worker{
		interval: viper.GetDuration("bot.sweep_interval"),
		now:      time.Now,
	}
	if w.interval == 0 {
		w.interval = time.Minute
	}
	for _, opt := range opts {
		opt(w)
	}

	if w.sessions == nil || w.ch == nil {
		panic("sweeper: sessions and channel are required")
	}

	return w
}

// WithSessions sets the session store for the Worker.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithSessions(s *sessions.Store) option {
	return func(w *Worker) { w.sessions = s }
}

// WithChannel sets the notification channel for the Worker.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithChannel(ch channel.Sender) option {
	return func(w *Worker) { w.ch = ch }
}

// WithInterval overrides the sweep interval.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithInterval(d time.Duration) option {
	return func(w *Worker) { w.interval = d }
}

// WithClock overrides the time source, for tests.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithClock(now func() time.Time) option {
	return func(w *Worker) { w.now = now }
}

// Run sweeps on the configured interval until the context is canceled.
func (w *Worker) Run(ctx context.Context) error {
	slog.Info("Session sweeper started", "interval", w.interval)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			w.Sweep(ctx)
		}
	}
}

// Sweep expires idle sessions once and sends each affected user a
// timeout notice. Notification delivery is best-effort.
func (w *Worker) Sweep(ctx context.Context) {
	expired := w.sessions.Expire(w.now())
	if len(expired) == 0 {
		return
	}

	slog.Info("Expired idle sessions", "count", len(expired))

	for userID, flow := range expired {
		msg := "Your session timed out due to inactivity."
		if flow == session.FlowOrder {
			msg = "Your order session timed out due to inactivity and the draft was discarded. Use /order to start over."
		}
		if err := w.ch.SendText(ctx, userID, msg); err != nil {
			slog.Warn("Timeout notice delivery failed", "user_id", userID, "error", err)
		}
	}
}
