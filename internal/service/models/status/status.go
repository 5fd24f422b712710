package status

import (
	"errors"
	"fmt"
)

// Status is the fulfillment status of an order. The string value is
// the human-readable label persisted in the status column.
type Status string

const (
	StatusPendingReview    Status = "Pending Payment Review"
	StatusPaymentConfirmed Status = "Payment Confirmed and Preparing Order"
	StatusBooking          Status = "Booking"
	StatusBooked           Status = "Booked"
	StatusDelivered        Status = "Delivered"
	StatusRejected         Status = "Payment Rejected"
)

var ErrInvalidStatus = errors.New("invalid status")

// All lists every status in presentation order.
func All() []Status {
	return []Status{
		StatusPendingReview,
		StatusPaymentConfirmed,
		StatusBooking,
		StatusBooked,
		StatusDelivered,
		StatusRejected,
	}
}

func (s Status) String() string {
	return string(s)
}

func Parse(s string) (Status, error) {
	for _, st := range All() {
		if string(st) == s {
			return st, nil
		}
	}

	return "", ErrInvalidStatus
}

// Meta holds presentation metadata for a status.
type Meta struct {
	Icon        string
	Description string
	// WithTracking is the alternate template used for Booked orders
	// that carry a tracking link; the link is interpolated with %s.
	WithTracking string
}

var metaTable = map[Status]Meta{
	StatusPendingReview: {
		Icon:        "🕐",
		Description: "We received your payment proof and are reviewing it. You will be notified once it is confirmed.",
	},
	StatusPaymentConfirmed: {
		Icon:        "✅",
		Description: "Your payment is confirmed. We are preparing your order for shipment.",
	},
	StatusBooking: {
		Icon:        "📦",
		Description: "Your order is packed and we are booking a courier.",
	},
	StatusBooked: {
		Icon:         "🚚",
		Description:  "A courier has been booked. Your order is on the way.",
		WithTracking: "A courier has been booked. Track your delivery here: %s",
	},
	StatusDelivered: {
		Icon:        "🎉",
		Description: "Your order has been delivered. Thank you!",
	},
	StatusRejected: {
		Icon:        "❌",
		Description: "We could not verify your payment. Please contact support or place a new order.",
	},
}

// Meta returns the presentation metadata for the status. Unknown
// statuses get an empty Meta rather than a panic; callers that parsed
// the status never hit that branch.
func (s Status) Meta() Meta {
	return metaTable[s]
}

// Describe renders the status description. The tracking link is used
// only by the Booked status and only when non-empty.
func (s Status) Describe(trackingLink string) string {
	m := metaTable[s]
	if s == StatusBooked && trackingLink != "" && m.WithTracking != "" {
		return fmt.Sprintf(m.WithTracking, trackingLink)
	}

	return m.Description
}
