package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Routing key for user-facing messages published to the topic exchange; a
// delivery worker on the chat-platform side consumes them.
const routingKeyUserMessage = "user.message"

// UserMessage is the payload published per notification.
type UserMessage struct {
	UserID  int64     `json:"user_id"`
	Message string    `json:"message"`
	SentAt  time.Time `json:"sent_at"`
}

// AMQPNotifier publishes notifications to a RabbitMQ topic exchange.
type AMQPNotifier struct {
	conn     *amqp.Connection
	ch       *amqp.Channel
	exchange string
}

func NewAMQP(url, exchange string) (*AMQPNotifier, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}
	return &AMQPNotifier{conn: conn, ch: ch, exchange: exchange}, nil
}

func (n *AMQPNotifier) Notify(ctx context.Context, userID int64, message string) error {
	body, err := json.Marshal(UserMessage{
		UserID:  userID,
		Message: message,
		SentAt:  time.Now().UTC(),
	})
	if err != nil {
		return err
	}
	return n.ch.PublishWithContext(ctx, n.exchange, routingKeyUserMessage, false, false, amqp.Publishing{
		ContentType: "application/json",
		Body:        body,
	})
}

// Publish emits a structured event; the routing key is the event kind.
func (n *AMQPNotifier) Publish(ctx context.Context, event Event) error {
	if event.At.IsZero() {
		event.At = time.Now().UTC()
	}
	body, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return n.ch.PublishWithContext(ctx, n.exchange, event.Kind, false, false, amqp.Publishing{
		ContentType: "application/json",
		Body:        body,
	})
}

func (n *AMQPNotifier) Close() error {
	if n.ch != nil {
		_ = n.ch.Close()
	}
	if n.conn != nil {
		return n.conn.Close()
	}
	return nil
}
