package amqp

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/rabbitmq/amqp091-go"

	"xforce-progression/internal/domain"
	"xforce-progression/internal/logger"
)

const DefaultExchange = "progression.events"

// Publisher fans progression events out to a topic exchange. The routing key
// is the event type.
type Publisher struct {
	conn     *amqp091.Connection
	channel  *amqp091.Channel
	exchange string
	enabled  bool
	log      *logger.Logger

	mu sync.Mutex
}

// NewPublisher connects to url and declares exchange. An empty url yields a
// disabled publisher that drops every event.
func NewPublisher(url, exchange string, log *logger.Logger) (*Publisher, error) {
	if log == nil {
		log = logger.Nop()
	}
	if exchange == "" {
		exchange = DefaultExchange
	}
	if url == "" {
		log.Warn("amqp url is empty, event publishing is disabled")
		return &Publisher{exchange: exchange, log: log}, nil
	}

	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial amqp: %w", err)
	}
	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	err = channel.ExchangeDeclare(
		exchange,
		"topic",
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,
	)
	if err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}

	log.Info("event publisher ready", "exchange", exchange)
	return &Publisher{conn: conn, channel: channel, exchange: exchange, enabled: true, log: log}, nil
}

func (p *Publisher) Enabled() bool { return p.enabled }

// Notify publishes event as persistent JSON.
func (p *Publisher) Notify(ctx context.Context, event domain.ProgressionEvent) error {
	if !p.enabled {
		p.log.Debug("event publishing disabled, skipping", "type", event.Type, "userId", event.UserID)
		return nil
	}
	msg, err := encode(event)
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.channel.PublishWithContext(ctx, p.exchange, string(event.Type), false, false, msg); err != nil {
		return fmt.Errorf("publish %s: %w", event.Type, err)
	}
	return nil
}

func (p *Publisher) Close() error {
	if !p.enabled {
		return nil
	}
	if p.channel != nil {
		if err := p.channel.Close(); err != nil {
			p.log.Warn("close amqp channel", "error", err)
		}
	}
	if p.conn != nil {
		if err := p.conn.Close(); err != nil {
			return fmt.Errorf("close amqp connection: %w", err)
		}
	}
	return nil
}

func encode(event domain.ProgressionEvent) (amqp091.Publishing, error) {
	body, err := json.Marshal(event)
	if err != nil {
		return amqp091.Publishing{}, fmt.Errorf("marshal event: %w", err)
	}
	ts := event.OccurredAt
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	return amqp091.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp091.Persistent,
		MessageId:    event.ID,
		Timestamp:    ts,
		Body:         body,
		Headers: amqp091.Table{
			"event_type": string(event.Type),
			"user_id":    event.UserID,
		},
	}, nil
}

// MockPublisher records events in memory.
type MockPublisher struct {
	mu     sync.Mutex
	events []domain.ProgressionEvent
}

func NewMockPublisher() *MockPublisher {
	return &MockPublisher{}
}

func (m *MockPublisher) Notify(_ context.Context, event domain.ProgressionEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
	return nil
}

func (m *MockPublisher) Events() []domain.ProgressionEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.ProgressionEvent(nil), m.events...)
}

func (m *MockPublisher) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = nil
}
