package channel

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/spf13/viper"
	"github.com/streadway/amqp"
	"github.com/wildwest/orderbot/internal/dal/rabbitmq"
)

// AMQPChannel implements the notification channel over RabbitMQ:
// inbound updates are consumed from the updates queue, outbound
// messages are published to the messages queue. Deliveries are
// auto-acked, giving at-most-once semantics.
type AMQPChannel struct {
	client   *rabbitmq.Client
	inQueue  amqp.Queue
	outQueue amqp.Queue
}

var (
	_ Sender   = (*AMQPChannel)(nil)
	_ Consumer = (*AMQPChannel)(nil)
)

// outboundMessage is the wire format of one outbound send.
type outboundMessage struct {
	ID        string   `json:"id"`
	Recipient int64    `json:"recipient"`
	Text      string   `json:"text"`
	Choices   []Choice `json:"choices,omitempty"`
}

// MustNewAMQPChannel creates a new AMQP-backed channel, declaring
// both queues.
func MustNewAMQPChannel(client *rabbitmq.Client) *AMQPChannel {
	inName := viper.GetString("channel.updates_queue")
	if inName == "" {
		inName = "bot.updates"
	}
	outName := viper.GetString("channel.messages_queue")
	if outName == "" {
		outName = "bot.messages"
	}

	inQueue, err := client.DeclareQueue(rabbitmq.DeclareQueueConfig{Name: inName, Durable: true})
	if err != nil {
		panic(err)
	}
	outQueue, err := client.DeclareQueue(rabbitmq.DeclareQueueConfig{Name: outName, Durable: true})
	if err != nil {
		panic(err)
	}

	return &AMQPChannel{
		client:   client,
		inQueue:  inQueue,
		outQueue: outQueue,
	}
}

func (c *AMQPChannel) publish(msg outboundMessage) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal outbound message: %w", err)
	}

	if err := c.client.Channel().Publish("", c.outQueue.Name, false, false, amqp.Publishing{
		ContentType: "application/json",
		Body:        body,
	}); err != nil {
		return fmt.Errorf("failed to publish outbound message: %w", err)
	}

	return nil
}

// SendText sends a plain text message to the recipient.
func (c *AMQPChannel) SendText(_ context.Context, recipient int64, text string) error {
	return c.publish(outboundMessage{
		ID:        uuid.NewString(),
		Recipient: recipient,
		Text:      text,
	})
}

// SendChoice sends a prompt with selectable options to the recipient.
func (c *AMQPChannel) SendChoice(_ context.Context, recipient int64, prompt string, choices []Choice) error {
	return c.publish(outboundMessage{
		ID:        uuid.NewString(),
		Recipient: recipient,
		Text:      prompt,
		Choices:   choices,
	})
}

// Consume starts yielding inbound events. Malformed payloads are
// logged and dropped.
func (c *AMQPChannel) Consume(ctx context.Context) (<-chan Event, error) {
	consumerTag := viper.GetString("channel.consumer_tag")
	if consumerTag == "" {
		consumerTag = "orderbot"
	}

	deliveries, err := c.client.Consume(rabbitmq.ConsumeConfig{
		Queue:    c.inQueue.Name,
		Consumer: consumerTag,
		AutoAck:  true,
	})
	if err != nil {
		return nil, err
	}

	events := make(chan Event)
	go func() {
		defer close(events)
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-deliveries:
				if !ok {
					slog.Info("Channel delivery stream closed")

					return
				}

				var ev Event
				if err := json.Unmarshal(msg.Body, &ev); err != nil {
					slog.Error("Failed to unmarshal channel event", "error", err)

					continue
				}
				if ev.ID == "" {
					ev.ID = uuid.NewString()
				}

				select {
				case <-ctx.Done():
					return
				case events <- ev:
				}
			}
		}
	}()

	return events, nil
}
