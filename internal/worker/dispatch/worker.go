package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/spf13/viper"
	"github.com/wildwest/orderbot/internal/service/models/session"
	"github.com/wildwest/orderbot/internal/service/ratelimit"
	"github.com/wildwest/orderbot/internal/service/services/healthsvc"
	"github.com/wildwest/orderbot/internal/service/sessions"
	"github.com/wildwest/orderbot/internal/transport/channel"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"
)

// flowService is one conversation workflow: the order, tracking and
// admin services all expose this shape.
type flowService interface {
	Begin(ctx context.Context, sess *session.Session) error
	Handle(ctx context.Context, sess *session.Session, ev channel.Event) error
}

type orderService interface {
	flowService
	Cancel(ctx context.Context, sess *session.Session) error
}

type adminService interface {
	flowService
	Authorized(userID int64) bool
}

type healthService interface {
	Check(ctx context.Context) healthsvc.Report
	Render(r healthsvc.Report) string
}

const failureReply = "Something went wrong on our side. Please try again in a moment."

// Worker consumes inbound channel events and routes each one to the
// workflow its session is in. Events of different users are processed
// concurrently; events of one user are serialized on the session lock.
type Worker struct {
	consumer channel.Consumer
	ch       channel.Sender
	sessions *sessions.Store
	users    *ratelimit.UserLimiter
	orders   orderService
	tracking flowService
	admin    adminService
	health   healthService

	concurrency int
	now         func() time.Time

	throttledMu sync.Mutex
	throttled   map[int64]bool
}

// option is a function that configures the Worker.
type option func(*Worker)

// MustNewWorker creates a new dispatch Worker.
func MustNewWorker(opts ...option) *Worker {
	w := &Worker{
		concurrency: viper.GetInt("bot.dispatch_concurrency"),
		now:         time.Now,
		throttled:   make(map[int64]bool),
	}
	if w.concurrency == 0 {
		w.concurrency = 50
	}
	for _, opt := range opts {
		opt(w)
	}

	if w.consumer == nil || w.ch == nil || w.sessions == nil ||
		w.orders == nil || w.tracking == nil || w.admin == nil || w.health == nil {
		panic("dispatch: consumer, channel, sessions and all services are required")
	}
	if w.users == nil {
		w.users = ratelimit.NewUserLimiter(nil)
	}

	return w
}

// WithConsumer sets the inbound event source for the Worker.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithConsumer(c channel.Consumer) option {
	return func(w *Worker) { w.consumer = c }
}

// WithChannel sets the outbound sender for the Worker.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithChannel(ch channel.Sender) option {
	return func(w *Worker) { w.ch = ch }
}

// WithSessions sets the session store for the Worker.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithSessions(s *sessions.Store) option {
	return func(w *Worker) { w.sessions = s }
}

// WithUserLimiter sets the per-user rate limiter for the Worker.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithUserLimiter(l *ratelimit.UserLimiter) option {
	return func(w *Worker) { w.users = l }
}

// WithOrderService sets the order workflow for the Worker.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithOrderService(s orderService) option {
	return func(w *Worker) { w.orders = s }
}

// WithTrackingService sets the tracking workflow for the Worker.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithTrackingService(s flowService) option {
	return func(w *Worker) { w.tracking = s }
}

// WithAdminService sets the admin workflow for the Worker.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithAdminService(s adminService) option {
	return func(w *Worker) { w.admin = s }
}

// WithHealthService sets the health prober for the Worker.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithHealthService(s healthService) option {
	return func(w *Worker) { w.health = s }
}

// WithConcurrency overrides the event processing parallelism.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithConcurrency(n int) option {
	return func(w *Worker) { w.concurrency = n }
}

// WithClock overrides the time source, for tests.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithClock(now func() time.Time) option {
	return func(w *Worker) { w.now = now }
}

// Run consumes events until the context is canceled or the inbound
// channel closes.
func (w *Worker) Run(ctx context.Context) error {
	events, err := w.consumer.Consume(ctx)
	if err != nil {
		return fmt.Errorf("consume updates: %w", err)
	}

	slog.Info("Dispatch worker started", "concurrency", w.concurrency)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(w.concurrency)

	for ev := range events {
		ev := ev
		g.Go(func() error {
			w.Dispatch(ctx, ev)

			return nil
		})
	}

	return g.Wait()
}

// Dispatch processes one inbound event end to end: rate limiting,
// session lookup, routing and the outer error boundary. A panic or an
// unclassified error never escapes past one event.
func (w *Worker) Dispatch(ctx context.Context, ev channel.Event) {
	ctx, span := otel.Tracer("orderbot").Start(ctx, "dispatch.event")
	span.SetAttributes(
		attribute.String("event.id", ev.ID),
		attribute.Int64("event.sender", ev.Sender),
	)
	defer span.End()

	defer func() {
		if r := recover(); r != nil {
			slog.Error("Panic while handling update", "op", "dispatch", "user_id", ev.Sender, "panic", r)
			_ = w.ch.SendText(ctx, ev.Sender, failureReply)
		}
	}()

	if !w.users.Allow(ev.Sender, "message") {
		slog.Debug("Message rate limit hit", "user_id", ev.Sender)
		// Tell the user once per throttled burst; further blocked
		// messages are dropped so the notice cannot amplify the flood.
		if w.markThrottled(ev.Sender) {
			_ = w.ch.SendText(ctx, ev.Sender,
				"You are sending messages too quickly. Please wait a moment and try again.")
		}

		return
	}
	w.clearThrottled(ev.Sender)

	unlock := w.sessions.Lock(ev.Sender)
	defer unlock()

	sess := w.sessions.Get(ev.Sender, w.now())
	sess.LastActivity = w.now()

	if err := w.route(ctx, sess, ev); err != nil {
		slog.Error("Update handling failed", "op", "dispatch", "user_id", ev.Sender,
			"flow", sess.Flow, "state", sess.State, "error", err)
		_ = w.ch.SendText(ctx, ev.Sender, failureReply)
	}
}

// markThrottled records that the user is over the message limit and
// reports whether this is the first blocked message of the burst.
func (w *Worker) markThrottled(userID int64) bool {
	w.throttledMu.Lock()
	defer w.throttledMu.Unlock()

	if w.throttled[userID] {
		return false
	}
	w.throttled[userID] = true

	return true
}

func (w *Worker) clearThrottled(userID int64) {
	w.throttledMu.Lock()
	defer w.throttledMu.Unlock()

	delete(w.throttled, userID)
}

func (w *Worker) route(ctx context.Context, sess *session.Session, ev channel.Event) error {
	if cmd, ok := command(ev); ok {
		return w.routeCommand(ctx, sess, ev, cmd)
	}

	switch sess.Flow {
	case session.FlowOrder:
		return w.orders.Handle(ctx, sess, ev)
	case session.FlowTracking:
		return w.tracking.Handle(ctx, sess, ev)
	case session.FlowAdmin:
		return w.admin.Handle(ctx, sess, ev)
	default:
		return w.ch.SendText(ctx, sess.UserID,
			"Hi! Use /order to place an order or /track to check an existing one.")
	}
}

func (w *Worker) routeCommand(ctx context.Context, sess *session.Session, ev channel.Event, cmd string) error {
	switch cmd {
	case "/start":
		sess.Reset()

		return w.ch.SendText(ctx, sess.UserID,
			"Welcome to Wild West! 🤠\nUse /order to place an order, /track to check one, /cancel to abort.")
	case "/order":
		if !w.users.Allow(sess.UserID, "order_start") {
			return w.ch.SendText(ctx, sess.UserID,
				"You are starting orders too quickly. Please wait a bit and try again.")
		}

		return w.orders.Begin(ctx, sess)
	case "/cancel":
		if !sess.Active() {
			return w.ch.SendText(ctx, sess.UserID, "Nothing to cancel.")
		}
		if sess.Flow == session.FlowOrder {
			return w.orders.Cancel(ctx, sess)
		}
		sess.Reset()

		return w.ch.SendText(ctx, sess.UserID, "Canceled.")
	case "/track":
		return w.tracking.Begin(ctx, sess)
	case "/admin":
		return w.admin.Begin(ctx, sess)
	case "/health":
		if !w.admin.Authorized(sess.UserID) {
			return w.ch.SendText(ctx, sess.UserID, "Unknown command. Try /order or /track.")
		}

		return w.ch.SendText(ctx, sess.UserID, w.health.Render(w.health.Check(ctx)))
	default:
		return w.ch.SendText(ctx, sess.UserID, "Unknown command. Try /order or /track.")
	}
}

// command extracts a leading slash command from a text event. Bot
// mentions like /order@WildWestBot are accepted.
func command(ev channel.Event) (string, bool) {
	if ev.Type != channel.EventText {
		return "", false
	}
	text := strings.TrimSpace(ev.Text)
	if !strings.HasPrefix(text, "/") {
		return "", false
	}

	cmd, _, _ := strings.Cut(text, " ")
	cmd, _, _ = strings.Cut(cmd, "@")

	return strings.ToLower(cmd), true
}
