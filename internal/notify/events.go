package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	RoutingKeyReservationCreated = "reservation.created"

	defaultDialTimeout = 5 * time.Second
)

// ReservationCreated is the event published after a booking is written.
type ReservationCreated struct {
	ReservationID string    `json:"reservation_id"`
	UserID        string    `json:"user_id"`
	DisplayName   string    `json:"display_name"`
	Email         *string   `json:"email"`
	Date          string    `json:"date"`
	Slot          string    `json:"slot"`
	CreatedAt     time.Time `json:"created_at"`
}

// Publisher emits domain events.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, event any) error
	Close() error
}

// AMQPPublisher publishes JSON events to a topic exchange, reconnecting on
// the next publish after the connection drops.
type AMQPPublisher struct {
	url         string
	exchange    string
	dialTimeout time.Duration

	mu      sync.Mutex
	conn    *amqp.Connection
	channel *amqp.Channel
}

// NewAMQPPublisher connects to url and declares exchange. dialTimeout bounds
// every connection attempt, including the handshake.
func NewAMQPPublisher(ctx context.Context, url, exchange string, dialTimeout time.Duration) (*AMQPPublisher, error) {
	p := &AMQPPublisher{url: url, exchange: exchange, dialTimeout: dialTimeout}
	if err := p.connectLocked(ctx); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *AMQPPublisher) connectLocked(ctx context.Context) error {
	timeout := p.dialTimeout
	if timeout <= 0 {
		timeout = defaultDialTimeout
	}
	if deadline, ok := ctx.Deadline(); ok {
		if left := time.Until(deadline); left < timeout {
			timeout = left
		}
	}
	if timeout <= 0 {
		return fmt.Errorf("failed to connect to RabbitMQ: %w", context.DeadlineExceeded)
	}
	conn, err := amqp.DialConfig(p.url, amqp.Config{
		Heartbeat: 10 * time.Second,
		Locale:    "en_US",
		Dial:      amqp.DefaultDial(timeout),
	})
	if err != nil {
		return fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("failed to open channel: %w", err)
	}
	err = ch.ExchangeDeclare(
		p.exchange,
		"topic",
		true,  // durable
		false, // auto-delete
		false, // internal
		false, // no-wait
		nil,
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return fmt.Errorf("failed to declare exchange %s: %w", p.exchange, err)
	}
	p.conn = conn
	p.channel = ch
	return nil
}

func (p *AMQPPublisher) Publish(ctx context.Context, routingKey string, event any) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.conn == nil || p.conn.IsClosed() || p.channel == nil || p.channel.IsClosed() {
		if err := p.connectLocked(ctx); err != nil {
			return err
		}
	}
	err = p.channel.PublishWithContext(ctx,
		p.exchange,
		routingKey,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish %s: %w", routingKey, err)
	}
	return nil
}

func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.channel != nil {
		p.channel.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}

// NoopPublisher drops events after logging them.
type NoopPublisher struct{}

func (NoopPublisher) Publish(_ context.Context, routingKey string, _ any) error {
	slog.Debug("noop_event_publish", "routing_key", routingKey)
	return nil
}

func (NoopPublisher) Close() error { return nil }
