package session

import (
	"time"

	"github.com/wildwest/orderbot/internal/service/models/order"
	"github.com/wildwest/orderbot/internal/service/models/product"
	"github.com/wildwest/orderbot/internal/service/models/status"
)

// Flow identifies which workflow a session currently runs.
type Flow string

const (
	FlowNone     Flow = "none"
	FlowOrder    Flow = "order"
	FlowTracking Flow = "tracking"
	FlowAdmin    Flow = "admin"
)

// State is the current step of the active workflow.
type State string

const (
	StateIdle State = "idle"

	// Order workflow.
	StateAwaitingCategory             State = "awaiting_category"
	StateAwaitingSubOption            State = "awaiting_sub_option"
	StateAwaitingQuantity             State = "awaiting_quantity"
	StateAwaitingLineConfirmation     State = "awaiting_line_confirmation"
	StateAwaitingCartDecision         State = "awaiting_cart_decision"
	StateAwaitingShippingDetails      State = "awaiting_shipping_details"
	StateAwaitingShippingConfirmation State = "awaiting_shipping_confirmation"
	StateAwaitingPayment              State = "awaiting_payment"

	// Tracking workflow.
	StateAwaitingOrderID State = "awaiting_order_id"

	// Admin workflow.
	StateAdminBrowsing         State = "admin_browsing"
	StateAdminAwaitingTracking State = "admin_awaiting_tracking"
)

// Draft holds the order under construction: the fields collected so
// far for the line item being built plus the shipping details.
type Draft struct {
	Category  product.Category
	SubOption string
	// Pending is the priced line item shown for confirmation; it is
	// appended to the cart only on confirm.
	Pending *order.LineItem

	Name    string
	Address string
	Contact string
}

// AdminContext is the transient per-admin-session pointer to the
// order under management and the status change awaiting a
// tracking-link decision.
type AdminContext struct {
	OrderID       string
	PendingStatus status.Status
	Filter        string
	Page          int
}

// Session is the process-local per-user conversation state. A session
// is private to its user; the dispatcher serializes access per user.
type Session struct {
	UserID       int64
	Flow         Flow
	State        State
	Draft        Draft
	Cart         order.Cart
	Admin        *AdminContext
	LastActivity time.Time
}

func New(userID int64, now time.Time) *Session {
	return &Session{
		UserID:       userID,
		Flow:         FlowNone,
		State:        StateIdle,
		LastActivity: now,
	}
}

// Reset ends the active workflow and discards all draft state.
func (s *Session) Reset() {
	s.Flow = FlowNone
	s.State = StateIdle
	s.Draft = Draft{}
	s.Cart = nil
	s.Admin = nil
}

// Active reports whether a workflow is in progress.
func (s *Session) Active() bool {
	return s.Flow != FlowNone
}

// IdleTimeout returns the inactivity window that force-ends the
// session: 15 minutes while ordering, 5 minutes otherwise.
func (s *Session) IdleTimeout() time.Duration {
	if s.Flow == FlowOrder {
		return 15 * time.Minute
	}

	return 5 * time.Minute
}
