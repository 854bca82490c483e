package amqp

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/isdelr/expense-tracker-be/internal/models"
	"github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog/log"
)

const (
	publishTimeout = 5 * time.Second
	maxBackoff     = 30 * time.Second
)

// Publisher mirrors activity events onto a topic exchange. The routing key is
// the event type, e.g. "expense.add".
type Publisher struct {
	conn         *amqp091.Connection
	channel      *amqp091.Channel
	exchangeName string
	mu           sync.Mutex
}

// NewPublisher dials url, retrying with exponential backoff up to attempts
// times, and declares the exchange.
func NewPublisher(ctx context.Context, url, exchangeName string, attempts int) (*Publisher, error) {
	if attempts < 1 {
		attempts = 1
	}

	var conn *amqp091.Connection
	var err error
	for attempt := 0; attempt < attempts; attempt++ {
		conn, err = amqp091.Dial(url)
		if err == nil {
			break
		}
		if !isConnectionError(err) || attempt == attempts-1 {
			return nil, fmt.Errorf("dial AMQP: %w", err)
		}
		wait := exponentialBackoff(attempt)
		log.Warn().Err(err).Dur("retry_in", wait).Msg("AMQP broker unavailable, retrying")
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(wait):
		}
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	p := &Publisher{conn: conn, channel: channel, exchangeName: exchangeName}
	if err := p.setup(); err != nil {
		p.Close()
		return nil, fmt.Errorf("setup exchange: %w", err)
	}
	return p, nil
}

func (p *Publisher) setup() error {
	err := p.channel.ExchangeDeclare(
		p.exchangeName, // name
		"topic",        // type
		true,           // durable
		false,          // auto-deleted
		false,          // internal
		false,          // no-wait
		nil,            // arguments
	)
	if err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}
	return nil
}

// PublishEvent publishes one activity event.
func (p *Publisher) PublishEvent(ctx context.Context, event models.Event) error {
	body, err := NewEventMessage(event).ToJSON()
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	p.mu.Lock()
	defer p.mu.Unlock()
	err = p.channel.PublishWithContext(
		ctx,
		p.exchangeName, // exchange
		event.Type,     // routing key
		false,          // mandatory
		false,          // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			MessageId:    event.ID,
			Timestamp:    event.CreatedAt,
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("publish message: %w", err)
	}

	log.Debug().Str("event_type", event.Type).Str("exchange", p.exchangeName).Msg("Published event")
	return nil
}

// Close closes the channel and the connection.
func (p *Publisher) Close() error {
	if p.channel != nil {
		p.channel.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}

// exponentialBackoff returns 1s, 2s, 4s... capped at 30s.
func exponentialBackoff(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	if attempt >= 5 {
		return maxBackoff
	}
	wait := time.Second << uint(attempt)
	if wait > maxBackoff {
		return maxBackoff
	}
	return wait
}

// isConnectionError reports whether err looks like a transient network failure.
func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	if amqpErr, ok := err.(*amqp091.Error); ok {
		return amqpErr.Recover || amqpErr.Code == amqp091.ConnectionForced
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range []string{"connection refused", "connection reset", "i/o timeout", "no such host", "eof"} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
