package trackingsvc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/wildwest/orderbot/internal/dal/orderstore"
	"github.com/wildwest/orderbot/internal/service/models/currency"
	"github.com/wildwest/orderbot/internal/service/models/order"
	"github.com/wildwest/orderbot/internal/service/models/session"
	"github.com/wildwest/orderbot/internal/transport/channel"
)

// store is the slice of the order store adapter the tracker needs.
type store interface {
	Get(ctx context.Context, id string) (*order.Order, error)
}

// Service answers "where is my order" in two steps: prompt for the
// identifier, then render the status.
type Service struct {
	store store
	ch    channel.Sender
}

// option is a function that configures the Service.
type option func(*Service)

// MustNewService creates a new tracking Service.
func MustNewService(opts ...option) *Service {
	s := &Service{}
	for _, opt := range opts {
		opt(s)
	}

	if s.store == nil || s.ch == nil {
		panic("trackingsvc: store and channel are required")
	}

	return s
}

// WithStore sets the order store for the Service.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithStore(st store) option {
	return func(s *Service) { s.store = st }
}

// WithChannel sets the notification channel for the Service.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithChannel(ch channel.Sender) option {
	return func(s *Service) { s.ch = ch }
}

// Begin starts the tracking conversation.
func (s *Service) Begin(ctx context.Context, sess *session.Session) error {
	sess.Reset()
	sess.Flow = session.FlowTracking
	sess.State = session.StateAwaitingOrderID

	return s.ch.SendText(ctx, sess.UserID, "Please send your order ID (looks like WW-1234-ABC).")
}

// Handle resolves the submitted identifier. A miss loops in the same
// state; a hit renders the status and ends the conversation.
func (s *Service) Handle(ctx context.Context, sess *session.Session, ev channel.Event) error {
	id := strings.ToUpper(strings.TrimSpace(ev.Text))

	o, err := s.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, orderstore.ErrOrderNotFound) {
			return s.ch.SendText(ctx, sess.UserID,
				fmt.Sprintf("No order found with ID %s. Please check it and try again.", id))
		}

		slog.Error("Order lookup failed", "op", "tracking", "user_id", sess.UserID, "error", err)

		// State is preserved so the user can simply resend the id.
		return s.ch.SendText(ctx, sess.UserID, "We could not look that up right now. Please try again in a moment.")
	}

	sess.Reset()

	return s.ch.SendText(ctx, sess.UserID, Render(o))
}

// Render produces the tracking reply for an order. It is
// deterministic: the same order state always renders the same text.
func Render(o *order.Order) string {
	meta := o.Status.Meta()

	return fmt.Sprintf("Order %s\nPlaced: %s\nItems:\n%s\nTotal: %s\n\n%s %s\n%s",
		o.ID,
		o.CreatedAt.Format("Jan 2, 2006"),
		o.Notes,
		currency.Format(o.Total),
		meta.Icon,
		o.Status,
		o.Status.Describe(o.TrackingLink),
	)
}
