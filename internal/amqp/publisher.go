// Package amqp forwards ledger events to a RabbitMQ topic exchange so other
// services can follow postings without polling the API.
package amqp

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/dafibh/fortuna/ledger-backend/internal/websocket"
	amqp091 "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
)

const (
	routingPrefix  = "ledger."
	publishTimeout = 5 * time.Second
	queueSize      = 1024
)

// Channel is the part of *amqp091.Channel the publisher needs
type Channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp091.Publishing) error
	Close() error
}

// Message is the body of every published message
type Message struct {
	UserID int32           `json:"userId"`
	Event  websocket.Event `json:"event"`
}

type outbound struct {
	key  string
	body []byte
	at   time.Time
}

// Publisher implements websocket.EventPublisher on top of an AMQP channel.
// Publish never blocks the caller: messages go through a bounded queue and
// are dropped with a warning when the broker cannot keep up.
type Publisher struct {
	conn     *amqp091.Connection
	channel  Channel
	exchange string
	logger   zerolog.Logger
	queue    chan outbound
	done     chan struct{}
	mu       sync.RWMutex
	closed   bool
}

var _ websocket.EventPublisher = (*Publisher)(nil)

// Dial connects to the broker and declares a durable topic exchange
func Dial(url, exchange string, logger zerolog.Logger) (*Publisher, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial AMQP: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	err = ch.ExchangeDeclare(
		exchange, // name
		"topic",  // type
		true,     // durable
		false,    // auto-deleted
		false,    // internal
		false,    // no-wait
		nil,      // arguments
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}

	p := NewPublisher(ch, exchange, logger)
	p.conn = conn
	return p, nil
}

// NewPublisher starts a publisher over an already open channel
func NewPublisher(ch Channel, exchange string, logger zerolog.Logger) *Publisher {
	p := &Publisher{
		channel:  ch,
		exchange: exchange,
		logger:   logger.With().Str("component", "amqp_publisher").Str("exchange", exchange).Logger(),
		queue:    make(chan outbound, queueSize),
		done:     make(chan struct{}),
	}
	go p.loop()
	return p
}

// RoutingKey maps an event type such as "transaction.created" to "ledger.transaction.created"
func RoutingKey(event websocket.Event) string {
	return routingPrefix + event.Type
}

// Publish queues the event for delivery
func (p *Publisher) Publish(userID int32, event websocket.Event) {
	body, err := json.Marshal(Message{UserID: userID, Event: event})
	if err != nil {
		p.logger.Error().Err(err).Str("event_type", event.Type).Msg("Failed to marshal event")
		return
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return
	}
	select {
	case p.queue <- outbound{key: RoutingKey(event), body: body, at: event.Timestamp}:
	default:
		p.logger.Warn().
			Int32("user_id", userID).
			Str("event_type", event.Type).
			Msg("AMQP queue full, dropping event")
	}
}

func (p *Publisher) loop() {
	defer close(p.done)
	for msg := range p.queue {
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		err := p.channel.PublishWithContext(
			ctx,
			p.exchange, // exchange
			msg.key,    // routing key
			false,      // mandatory
			false,      // immediate
			amqp091.Publishing{
				ContentType:  "application/json",
				DeliveryMode: amqp091.Persistent,
				Timestamp:    msg.at,
				Body:         msg.body,
			},
		)
		cancel()
		if err != nil {
			p.logger.Error().Err(err).Str("routing_key", msg.key).Msg("Failed to publish event")
		}
	}
}

// Close flushes queued events and closes the channel and connection
func (p *Publisher) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.queue)
	p.mu.Unlock()

	<-p.done
	err := p.channel.Close()
	if p.conn != nil {
		if cerr := p.conn.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
