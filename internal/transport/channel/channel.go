package channel

import "context"

// EventType classifies an inbound channel event.
type EventType string

const (
	EventText   EventType = "text"
	EventChoice EventType = "choice"
	EventMedia  EventType = "media"
)

// Event is one inbound update from the notification channel.
// Media payloads are carried inline.
type Event struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	Sender    int64     `json:"sender"`
	Text      string    `json:"text,omitempty"`
	Choice    string    `json:"choice,omitempty"`
	Media     []byte    `json:"media,omitempty"`
	MediaMIME string    `json:"mediaMime,omitempty"`
}

// Choice is one selectable option offered to a user.
type Choice struct {
	Label string `json:"label"`
	Data  string `json:"data"`
}

// Sender pushes outbound messages to the notification channel.
// Delivery is at-most-once, best-effort.
type Sender interface {
	SendText(ctx context.Context, recipient int64, text string) error
	SendChoice(ctx context.Context, recipient int64, prompt string, choices []Choice) error
}

// Consumer yields inbound channel events until the context is done or
// the channel closes.
type Consumer interface {
	Consume(ctx context.Context) (<-chan Event, error)
}
