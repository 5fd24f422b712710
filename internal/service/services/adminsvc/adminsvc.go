package adminsvc

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/spf13/viper"
	"github.com/wildwest/orderbot/internal/service/models/currency"
	"github.com/wildwest/orderbot/internal/service/models/order"
	"github.com/wildwest/orderbot/internal/service/models/session"
	"github.com/wildwest/orderbot/internal/service/models/status"
	"github.com/wildwest/orderbot/internal/transport/channel"
)

// store is the slice of the order store adapter the admin panel needs.
type store interface {
	Get(ctx context.Context, id string) (*order.Order, error)
	List(ctx context.Context, filter status.Status) ([]order.Order, error)
	UpdateStatus(ctx context.Context, id string, st status.Status) error
	SetTracking(ctx context.Context, id, link string) error
}

// FilterAll lists orders regardless of status.
const FilterAll = "all"

// Service is the authorization-gated admin panel: list and inspect
// orders, change statuses, attach tracking links, view payment
// proofs. Every successful status change notifies the customer on a
// best-effort basis.
type Service struct {
	store    store
	ch       channel.Sender
	adminID  int64
	pageSize int
}

// option is a function that configures the Service.
type option func(*Service)

// MustNewService creates a new admin Service.
func MustNewService(opts ...option) *Service {
	s := &Service{
		adminID:  viper.GetInt64("bot.admin_id"),
		pageSize: viper.GetInt("bot.admin_page_size"),
	}
	if s.pageSize == 0 {
		s.pageSize = 5
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.store == nil || s.ch == nil {
		panic("adminsvc: store and channel are required")
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

// WithAdminID sets the administrator identity.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithAdminID(id int64) option {
	return func(s *Service) { s.adminID = id }
}

// WithPageSize overrides the order list page size.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithPageSize(n int) option {
	return func(s *Service) { s.pageSize = n }
}

// Authorized reports whether the user is the configured admin.
func (s *Service) Authorized(userID int64) bool {
	return userID == s.adminID
}

// Begin opens the admin panel. Non-admin callers get a not-authorized
// response and the attempt is logged.
func (s *Service) Begin(ctx context.Context, sess *session.Session) error {
	if !s.Authorized(sess.UserID) {
		slog.Warn("Unauthorized admin panel access attempt", "user_id", sess.UserID)

		return s.ch.SendText(ctx, sess.UserID, "You are not authorized to use the admin panel.")
	}

	sess.Reset()
	sess.Flow = session.FlowAdmin
	sess.State = session.StateAdminBrowsing
	sess.Admin = &session.AdminContext{Filter: FilterAll, Page: 1}

	return s.sendMenu(ctx, sess)
}

// Handle advances the admin conversation by one step.
func (s *Service) Handle(ctx context.Context, sess *session.Session, ev channel.Event) error {
	if !s.Authorized(sess.UserID) {
		slog.Warn("Unauthorized admin panel access attempt", "user_id", sess.UserID)

		return s.ch.SendText(ctx, sess.UserID, "You are not authorized to use the admin panel.")
	}

	if sess.Admin == nil {
		sess.Admin = &session.AdminContext{Filter: FilterAll, Page: 1}
	}

	if sess.State == session.StateAdminAwaitingTracking {
		return s.handleTrackingInput(ctx, sess, ev)
	}

	action, arg, _ := strings.Cut(decision(ev), "|")
	switch action {
	case "list":
		sess.Admin.Filter = arg
		sess.Admin.Page = 1

		return s.sendOrderList(ctx, sess)
	case "page":
		page, err := strconv.Atoi(arg)
		if err != nil || page < 1 {
			page = 1
		}
		sess.Admin.Page = page

		return s.sendOrderList(ctx, sess)
	case "ord":
		sess.Admin.OrderID = arg

		return s.sendOrderDetail(ctx, sess)
	case "act":
		return s.handleOrderAction(ctx, sess, arg)
	case "st":
		return s.handleStatusChoice(ctx, sess, arg)
	case "trk":
		return s.handleTrackingDecision(ctx, sess, arg)
	case "menu":
		return s.sendMenu(ctx, sess)
	default:
		return s.sendMenu(ctx, sess)
	}
}

func (s *Service) sendMenu(ctx context.Context, sess *session.Session) error {
	choices := []channel.Choice{
		{Label: "📋 All orders", Data: "list|" + FilterAll},
	}
	for _, st := range status.All() {
		choices = append(choices, channel.Choice{
			Label: st.Meta().Icon + " " + st.String(),
			Data:  "list|" + st.String(),
		})
	}

	return s.ch.SendChoice(ctx, sess.UserID, "Admin panel — pick a view:", choices)
}

func (s *Service) sendOrderList(ctx context.Context, sess *session.Session) error {
	var filter status.Status
	if sess.Admin.Filter != "" && sess.Admin.Filter != FilterAll {
		st, err := status.Parse(sess.Admin.Filter)
		if err != nil {
			sess.Admin.Filter = FilterAll
		} else {
			filter = st
		}
	}

	orders, err := s.store.List(ctx, filter)
	if err != nil {
		slog.Error("Order listing failed", "op", "admin.list", "user_id", sess.UserID, "error", err)

		return s.ch.SendText(ctx, sess.UserID, "Could not load orders right now. Please try again.")
	}

	if len(orders) == 0 {
		return s.ch.SendChoice(ctx, sess.UserID, "No orders match this view.",
			[]channel.Choice{{Label: "⬅ Menu", Data: "menu"}})
	}

	start := (sess.Admin.Page - 1) * s.pageSize
	if start >= len(orders) {
		start = 0
		sess.Admin.Page = 1
	}
	end := min(start+s.pageSize, len(orders))

	choices := make([]channel.Choice, 0, s.pageSize+2)
	for _, o := range orders[start:end] {
		choices = append(choices, channel.Choice{
			Label: fmt.Sprintf("%s — %s — %s", o.ID, currency.Format(o.Total), o.Status),
			Data:  "ord|" + o.ID,
		})
	}
	if end < len(orders) {
		choices = append(choices, channel.Choice{
			Label: "➡ Next page",
			Data:  "page|" + strconv.Itoa(sess.Admin.Page+1),
		})
	}
	choices = append(choices, channel.Choice{Label: "⬅ Menu", Data: "menu"})

	prompt := fmt.Sprintf("Orders (%s) — page %d, %d total:", sess.Admin.Filter, sess.Admin.Page, len(orders))

	return s.ch.SendChoice(ctx, sess.UserID, prompt, choices)
}

func (s *Service) sendOrderDetail(ctx context.Context, sess *session.Session) error {
	o, err := s.store.Get(ctx, sess.Admin.OrderID)
	if err != nil {
		slog.Error("Order lookup failed", "op", "admin.detail", "order_id", sess.Admin.OrderID, "error", err)

		return s.ch.SendText(ctx, sess.UserID, "Could not load that order. Please try again.")
	}

	detail := fmt.Sprintf("Order %s\nCustomer: %s (%d)\nAddress: %s\nContact: %s\nItems:\n%s\nTotal: %s\nStatus: %s %s\nPlaced: %s",
		o.ID, o.CustomerName, o.CustomerID, o.Address, o.Contact,
		order.Cart(o.Items).Summary(), currency.Format(o.Total), o.Status.Meta().Icon, o.Status,
		o.CreatedAt.Format("Jan 2, 2006 15:04"))
	if o.TrackingLink != "" {
		detail += "\nTracking: " + o.TrackingLink
	}

	return s.ch.SendChoice(ctx, sess.UserID, detail, []channel.Choice{
		{Label: "🔄 Change status", Data: "act|status"},
		{Label: "🔗 Set tracking link", Data: "act|track"},
		{Label: "🧾 View payment proof", Data: "act|proof"},
		{Label: "⬅ Back to list", Data: "list|" + sess.Admin.Filter},
	})
}

func (s *Service) handleOrderAction(ctx context.Context, sess *session.Session, action string) error {
	if sess.Admin.OrderID == "" {
		return s.sendMenu(ctx, sess)
	}

	switch action {
	case "status":
		choices := make([]channel.Choice, 0, len(status.All()))
		for _, st := range status.All() {
			choices = append(choices, channel.Choice{
				Label: st.Meta().Icon + " " + st.String(),
				Data:  "st|" + st.String(),
			})
		}

		return s.ch.SendChoice(ctx, sess.UserID,
			fmt.Sprintf("New status for %s:", sess.Admin.OrderID), choices)
	case "track":
		sess.State = session.StateAdminAwaitingTracking

		return s.ch.SendText(ctx, sess.UserID, "Send the tracking link for "+sess.Admin.OrderID+".")
	case "proof":
		o, err := s.store.Get(ctx, sess.Admin.OrderID)
		if err != nil {
			return s.ch.SendText(ctx, sess.UserID, "Could not load that order. Please try again.")
		}
		if o.ProofURL == "" {
			return s.ch.SendText(ctx, sess.UserID, "No payment proof on file for "+o.ID+".")
		}

		return s.ch.SendText(ctx, sess.UserID, "Payment proof for "+o.ID+": "+o.ProofURL)
	default:
		return s.sendMenu(ctx, sess)
	}
}

func (s *Service) handleStatusChoice(ctx context.Context, sess *session.Session, label string) error {
	st, err := status.Parse(label)
	if err != nil {
		return s.ch.SendText(ctx, sess.UserID, "Unknown status.")
	}

	if st == status.StatusBooked {
		// Booking a courier usually comes with a tracking link;
		// offer to attach one before committing.
		sess.Admin.PendingStatus = st

		return s.ch.SendChoice(ctx, sess.UserID,
			"Attach a tracking link before marking as Booked?",
			[]channel.Choice{
				{Label: "🔗 Yes, attach link", Data: "trk|yes"},
				{Label: "🚚 No, just mark Booked", Data: "trk|no"},
			})
	}

	return s.commitStatus(ctx, sess, st, "")
}

func (s *Service) handleTrackingDecision(ctx context.Context, sess *session.Session, arg string) error {
	switch arg {
	case "yes":
		sess.State = session.StateAdminAwaitingTracking

		return s.ch.SendText(ctx, sess.UserID, "Send the tracking link for "+sess.Admin.OrderID+".")
	case "no":
		st := sess.Admin.PendingStatus
		if st == "" {
			st = status.StatusBooked
		}

		return s.commitStatus(ctx, sess, st, "")
	default:
		return s.sendMenu(ctx, sess)
	}
}

func (s *Service) handleTrackingInput(ctx context.Context, sess *session.Session, ev channel.Event) error {
	link := strings.TrimSpace(ev.Text)
	if link == "" {
		return s.ch.SendText(ctx, sess.UserID, "Please send the tracking link as text.")
	}

	sess.State = session.StateAdminBrowsing

	if sess.Admin.PendingStatus != "" {
		return s.commitStatus(ctx, sess, sess.Admin.PendingStatus, link)
	}

	// Standalone tracking update, no status change and no customer
	// notification.
	if err := s.store.SetTracking(ctx, sess.Admin.OrderID, link); err != nil {
		slog.Error("Tracking update failed", "op", "admin.track", "order_id", sess.Admin.OrderID, "error", err)

		return s.ch.SendText(ctx, sess.UserID, "Could not save the tracking link. Please try again.")
	}

	orderID := sess.Admin.OrderID
	s.clearSelection(sess)

	return s.ch.SendText(ctx, sess.UserID, "Tracking link saved for "+orderID+".")
}

// commitStatus performs the durable status update, then fires the
// best-effort customer notification. Notification failure never rolls
// the update back; it is only logged.
func (s *Service) commitStatus(ctx context.Context, sess *session.Session, st status.Status, link string) error {
	orderID := sess.Admin.OrderID

	o, err := s.store.Get(ctx, orderID)
	if err != nil {
		slog.Error("Order lookup failed", "op", "admin.status", "order_id", orderID, "error", err)

		return s.ch.SendText(ctx, sess.UserID, "Could not load that order. Please try again.")
	}

	if err := s.store.UpdateStatus(ctx, orderID, st); err != nil {
		slog.Error("Status update failed", "op", "admin.status", "order_id", orderID, "error", err)

		return s.ch.SendText(ctx, sess.UserID, "Could not update the status. Please try again.")
	}

	if link != "" {
		if err := s.store.SetTracking(ctx, orderID, link); err != nil {
			slog.Error("Tracking update failed", "op", "admin.status", "order_id", orderID, "error", err)

			return s.ch.SendText(ctx, sess.UserID,
				"Status updated, but the tracking link could not be saved. Please set it again.")
		}
	}

	if err := s.ch.SendText(ctx, o.CustomerID,
		fmt.Sprintf("Update on your order %s:\n%s %s\n%s",
			orderID, st.Meta().Icon, st, st.Describe(link))); err != nil {
		slog.Error("Customer notification failed", "op", "admin.status",
			"order_id", orderID, "customer_id", o.CustomerID, "error", err)
	}

	s.clearSelection(sess)

	return s.ch.SendText(ctx, sess.UserID,
		fmt.Sprintf("Order %s is now %q.", orderID, st))
}

// clearSelection drops the selection context once an admin action
// completes; the filter and page survive for the next listing.
func (s *Service) clearSelection(sess *session.Session) {
	sess.Admin.OrderID = ""
	sess.Admin.PendingStatus = ""
	sess.State = session.StateAdminBrowsing
}

func decision(ev channel.Event) string {
	if ev.Choice != "" {
		return ev.Choice
	}

	return ev.Text
}
