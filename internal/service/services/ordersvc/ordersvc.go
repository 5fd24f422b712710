package ordersvc

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/viper"
	"github.com/wildwest/orderbot/internal/service/models/currency"
	"github.com/wildwest/orderbot/internal/service/models/order"
	"github.com/wildwest/orderbot/internal/service/models/product"
	"github.com/wildwest/orderbot/internal/service/models/session"
	"github.com/wildwest/orderbot/internal/service/models/status"
	"github.com/wildwest/orderbot/internal/service/parse"
	"github.com/wildwest/orderbot/internal/service/pricing"
	"github.com/wildwest/orderbot/internal/transport/channel"
)

// catalog provides the current catalog snapshot.
type catalog interface {
	Snapshot(ctx context.Context, force bool) *product.Snapshot
}

// store is the slice of the order store adapter the workflow needs.
type store interface {
	Create(ctx context.Context, o *order.Order) error
	UploadProof(ctx context.Context, data []byte, mimeType, customerName string, now time.Time) (string, error)
}

// Service drives a single customer through the ordering conversation.
// Session access is already serialized per user by the dispatcher.
type Service struct {
	catalog catalog
	store   store
	ch      channel.Sender
	adminID int64
	now     func() time.Time
}

// option is a function that configures the Service.
type option func(*Service)

// MustNewService creates a new order workflow Service.
func MustNewService(opts ...option) *Service {
	s := &Service{
		adminID: viper.GetInt64("bot.admin_id"),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.catalog == nil || s.store == nil || s.ch == nil {
		panic("ordersvc: catalog, store, and channel are required")
	}

	return s
}

// WithCatalog sets the catalog for the Service.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithCatalog(c catalog) option {
	return func(s *Service) { s.catalog = c }
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

// WithAdminID sets the administrator recipient for order summaries.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithAdminID(id int64) option {
	return func(s *Service) { s.adminID = id }
}

// WithClock overrides the clock, for tests.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithClock(now func() time.Time) option {
	return func(s *Service) { s.now = now }
}

// Begin is the single entry point of the ordering conversation.
func (s *Service) Begin(ctx context.Context, sess *session.Session) error {
	sess.Reset()
	sess.Flow = session.FlowOrder
	sess.State = session.StateAwaitingCategory

	return s.promptCategories(ctx, sess, "What would you like to order?")
}

// Cancel clears the cart and ends the conversation. It is valid in
// every state.
func (s *Service) Cancel(ctx context.Context, sess *session.Session) error {
	sess.Reset()

	return s.ch.SendText(ctx, sess.UserID, "Order cancelled. Send /order to start again.")
}

// Handle advances the conversation by one step.
func (s *Service) Handle(ctx context.Context, sess *session.Session, ev channel.Event) error {
	switch sess.State {
	case session.StateAwaitingCategory:
		return s.handleCategory(ctx, sess, ev)
	case session.StateAwaitingSubOption:
		return s.handleSubOption(ctx, sess, ev)
	case session.StateAwaitingQuantity:
		return s.handleQuantity(ctx, sess, ev)
	case session.StateAwaitingLineConfirmation:
		return s.handleLineConfirmation(ctx, sess, ev)
	case session.StateAwaitingCartDecision:
		return s.handleCartDecision(ctx, sess, ev)
	case session.StateAwaitingShippingDetails:
		return s.handleShippingDetails(ctx, sess, ev)
	case session.StateAwaitingShippingConfirmation:
		return s.handleShippingConfirmation(ctx, sess, ev)
	case session.StateAwaitingPayment:
		return s.handlePayment(ctx, sess, ev)
	default:
		return s.ch.SendText(ctx, sess.UserID, "Send /order to start an order.")
	}
}

func (s *Service) promptCategories(ctx context.Context, sess *session.Session, prompt string) error {
	choices := make([]channel.Choice, 0, len(product.AllCategories()))
	for _, cat := range product.AllCategories() {
		meta := cat.Meta()
		choices = append(choices, channel.Choice{
			Label: meta.Icon + " " + meta.Label,
			Data:  cat.String(),
		})
	}

	return s.ch.SendChoice(ctx, sess.UserID, prompt, choices)
}

func (s *Service) handleCategory(ctx context.Context, sess *session.Session, ev channel.Event) error {
	input := ev.Choice
	if input == "" {
		input = ev.Text
	}

	cat, err := product.ParseCategory(input)
	if err != nil {
		return s.promptCategories(ctx, sess, "Please pick one of the categories below.")
	}

	meta := cat.Meta()
	if meta.Bulk {
		// The bulk category has a single implicit sub-option.
		sess.Draft.Category = cat
		sess.Draft.SubOption = product.LocalOptionName
		sess.State = session.StateAwaitingQuantity

		return s.promptQuantity(ctx, sess)
	}

	snap := s.catalog.Snapshot(ctx, false)
	options := snap.OptionsFor(cat)
	if len(options) == 0 {
		return s.promptCategories(ctx, sess,
			fmt.Sprintf("Sorry, %s has no options available right now. Please pick another category.", meta.Label))
	}

	sess.Draft.Category = cat
	sess.State = session.StateAwaitingSubOption

	choices := make([]channel.Choice, 0, len(options))
	for _, opt := range options {
		choices = append(choices, channel.Choice{
			Label: fmt.Sprintf("%s — %s/%s", opt.Name, currency.Format(opt.Price), meta.Unit),
			Data:  opt.Name,
		})
	}

	return s.ch.SendChoice(ctx, sess.UserID, "Pick an option:", choices)
}

func (s *Service) handleSubOption(ctx context.Context, sess *session.Session, ev channel.Event) error {
	input := ev.Choice
	if input == "" {
		input = ev.Text
	}

	// Buttons restrict the choice, but reject unknown values anyway.
	snap := s.catalog.Snapshot(ctx, false)
	if _, ok := snap.OptionPrice(sess.Draft.Category, input); !ok {
		return s.ch.SendText(ctx, sess.UserID, "Please pick one of the offered options.")
	}

	sess.Draft.SubOption = input
	sess.State = session.StateAwaitingQuantity

	return s.promptQuantity(ctx, sess)
}

func (s *Service) promptQuantity(ctx context.Context, sess *session.Session) error {
	meta := sess.Draft.Category.Meta()
	prompt := fmt.Sprintf("How many %s? Minimum order: %d %s.", meta.Unit, meta.MinOrder, meta.Unit)
	if meta.Step > 1 {
		prompt += fmt.Sprintf(" Quantities must be multiples of %d.", meta.Step)
	}

	return s.ch.SendText(ctx, sess.UserID, prompt)
}

func (s *Service) handleQuantity(ctx context.Context, sess *session.Session, ev channel.Event) error {
	meta := sess.Draft.Category.Meta()

	qty, verr := parse.Quantity(ev.Text, meta)
	if verr != nil {
		return s.ch.SendText(ctx, sess.UserID, verr.Message)
	}

	snap := s.catalog.Snapshot(ctx, false)
	total, unit := pricing.Price(snap, sess.Draft.Category, sess.Draft.SubOption, qty)
	if total.IsZero() {
		// Zero is the error sentinel: the option vanished between
		// selection and pricing.
		sess.State = session.StateAwaitingCategory

		return s.promptCategories(ctx, sess, "That option is no longer available. Please pick again.")
	}

	sess.Draft.Pending = &order.LineItem{
		Category:  sess.Draft.Category,
		SubOption: sess.Draft.SubOption,
		Quantity:  qty,
		Unit:      meta.Unit,
		UnitPrice: unit,
		LineTotal: total,
	}
	sess.State = session.StateAwaitingLineConfirmation

	return s.ch.SendChoice(ctx, sess.UserID,
		fmt.Sprintf("Add to cart?\n%s", sess.Draft.Pending.Summary()),
		[]channel.Choice{
			{Label: "✅ Confirm", Data: "confirm"},
			{Label: "❌ Cancel", Data: "cancel"},
		})
}

func (s *Service) handleLineConfirmation(ctx context.Context, sess *session.Session, ev channel.Event) error {
	if decision(ev) != "confirm" {
		// Anything but confirm cancels the whole conversation.
		return s.Cancel(ctx, sess)
	}

	if sess.Draft.Pending == nil {
		sess.State = session.StateAwaitingCategory

		return s.promptCategories(ctx, sess, "Let's try that again. Pick a category:")
	}

	sess.Cart = append(sess.Cart, *sess.Draft.Pending)
	sess.Draft.Pending = nil
	sess.State = session.StateAwaitingCartDecision

	return s.promptCartDecision(ctx, sess)
}

func (s *Service) promptCartDecision(ctx context.Context, sess *session.Session) error {
	return s.ch.SendChoice(ctx, sess.UserID,
		fmt.Sprintf("Your cart:\n%s\nTotal: %s",
			sess.Cart.Summary(), currency.Format(sess.Cart.Total())),
		[]channel.Choice{
			{Label: "➕ Add more", Data: "add"},
			{Label: "🛒 Proceed to checkout", Data: "proceed"},
			{Label: "❌ Cancel", Data: "cancel"},
		})
}

func (s *Service) handleCartDecision(ctx context.Context, sess *session.Session, ev channel.Event) error {
	switch decision(ev) {
	case "add":
		sess.Draft = session.Draft{
			Name:    sess.Draft.Name,
			Address: sess.Draft.Address,
			Contact: sess.Draft.Contact,
		}
		sess.State = session.StateAwaitingCategory

		return s.promptCategories(ctx, sess, "What else would you like?")
	case "proceed":
		sess.State = session.StateAwaitingShippingDetails

		return s.promptShipping(ctx, sess)
	case "cancel":
		return s.Cancel(ctx, sess)
	default:
		return s.promptCartDecision(ctx, sess)
	}
}

func (s *Service) promptShipping(ctx context.Context, sess *session.Session) error {
	return s.ch.SendText(ctx, sess.UserID,
		"Please send your shipping details in one message:\nName / Address / Contact number")
}

func (s *Service) handleShippingDetails(ctx context.Context, sess *session.Session, ev channel.Event) error {
	ship, verr := parse.ParseShipping(ev.Text)
	if verr != nil {
		return s.ch.SendText(ctx, sess.UserID, verr.Message)
	}

	sess.Draft.Name = ship.Name
	sess.Draft.Address = ship.Address
	sess.Draft.Contact = ship.Contact
	sess.State = session.StateAwaitingShippingConfirmation

	return s.ch.SendChoice(ctx, sess.UserID,
		fmt.Sprintf("Please confirm your order:\n%s\nTotal: %s\n\nShip to:\n%s\n%s\n%s",
			sess.Cart.Summary(), currency.Format(sess.Cart.Total()),
			ship.Name, ship.Address, ship.Contact),
		[]channel.Choice{
			{Label: "✅ Confirm", Data: "confirm"},
			{Label: "✏️ Edit details", Data: "edit"},
		})
}

func (s *Service) handleShippingConfirmation(ctx context.Context, sess *session.Session, ev channel.Event) error {
	switch decision(ev) {
	case "confirm":
		sess.State = session.StateAwaitingPayment

		// Heads-up for the admin; failure must not block the customer.
		if err := s.ch.SendText(ctx, s.adminID,
			fmt.Sprintf("Incoming order from %s:\n%s\nTotal: %s\n%s, %s",
				sess.Draft.Name, sess.Cart.Summary(), currency.Format(sess.Cart.Total()),
				sess.Draft.Address, sess.Draft.Contact)); err != nil {
			slog.Error("Failed to notify admin of incoming order", "user_id", sess.UserID, "error", err)
		}

		return s.ch.SendText(ctx, sess.UserID,
			"Almost done! Please send a photo of your payment proof to complete the order.")
	case "edit":
		sess.State = session.StateAwaitingShippingDetails

		return s.promptShipping(ctx, sess)
	default:
		return s.ch.SendText(ctx, sess.UserID, "Please confirm or edit your details.")
	}
}

func (s *Service) handlePayment(ctx context.Context, sess *session.Session, ev channel.Event) error {
	if ev.Type != channel.EventMedia || len(ev.Media) == 0 {
		return s.ch.SendText(ctx, sess.UserID, "Please send a photo of your payment proof.")
	}

	o, err := s.commitOrder(ctx, sess, ev)
	if err != nil {
		slog.Error("Order commit failed", "op", "commitOrder", "user_id", sess.UserID, "error", err)

		// The customer stays in the payment state and may resubmit.
		return s.ch.SendText(ctx, sess.UserID,
			"We could not process your payment proof right now. Please try sending it again.")
	}
	if o == nil {
		sess.Reset()

		return s.ch.SendText(ctx, sess.UserID, "Your cart is empty. Send /order to start again.")
	}

	sess.Reset()

	if err := s.ch.SendText(ctx, s.adminID,
		fmt.Sprintf("New order %s from %s — %s", o.ID, o.CustomerName, currency.Format(o.Total))); err != nil {
		slog.Error("Failed to notify admin of new order", "order_id", o.ID, "error", err)
	}

	return s.ch.SendText(ctx, sess.UserID,
		fmt.Sprintf("Order placed! 🎉\nYour order ID is %s — keep it to track your order with /track.\nStatus: %s",
			o.ID, o.Status))
}

// commitOrder uploads the payment proof and appends the whole-order
// row. A nil order with nil error means the cart emptied between
// confirmation and commit.
func (s *Service) commitOrder(ctx context.Context, sess *session.Session, ev channel.Event) (*order.Order, error) {
	if len(sess.Cart) == 0 {
		return nil, nil
	}

	now := s.now()

	mime := ev.MediaMIME
	if mime == "" {
		mime = "image/jpeg"
	}

	proofURL, err := s.store.UploadProof(ctx, ev.Media, mime, sess.Draft.Name, now)
	if err != nil {
		return nil, err
	}

	o := &order.Order{
		ID:           order.NewID(now),
		CustomerID:   sess.UserID,
		CustomerName: sess.Draft.Name,
		Address:      sess.Draft.Address,
		Contact:      sess.Draft.Contact,
		Items:        sess.Cart,
		Total:        sess.Cart.Total(),
		Status:       status.StatusPendingReview,
		ProofURL:     proofURL,
		CreatedAt:    now,
		Notes:        sess.Cart.Summary(),
	}

	if err := s.store.Create(ctx, o); err != nil {
		return nil, err
	}

	return o, nil
}

func decision(ev channel.Event) string {
	if ev.Choice != "" {
		return ev.Choice
	}

	return ev.Text
}
