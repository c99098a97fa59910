// Package events publishes ledger domain events to RabbitMQ so downstream
// consumers (reporting, notifications) can follow account activity without
// querying the API.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"

	"github.com/fin-ledger/ledger-service/internal/config"
	"github.com/fin-ledger/ledger-service/internal/domain"
)

// TransactionRecordedEvent is the payload published for every history record
// appended to an account. Amount travels as a decimal string to preserve
// precision.
type TransactionRecordedEvent struct {
	EventID        string `json:"eventId"`
	EventType      string `json:"eventType"`
	EventTimestamp string `json:"eventTimestamp"`
	Email          string `json:"email"`
	Type           string `json:"type"`
	Amount         string `json:"amount"`
	To             string `json:"to,omitempty"`
	From           string `json:"from,omitempty"`
	RecordedAt     string `json:"recordedAt"`
}

const eventTypeTransactionRecorded = "ledger.transaction.recorded"

// Publisher implements domain.EventPublisher over a RabbitMQ topic exchange.
type Publisher struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	config  config.RabbitMQConfig
	logger  zerolog.Logger
}

// NewPublisher connects to RabbitMQ and declares the exchange.
func NewPublisher(cfg config.RabbitMQConfig, logger zerolog.Logger) (*Publisher, error) {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	err = channel.ExchangeDeclare(
		cfg.Exchange, // name
		"topic",      // type
		true,         // durable
		false,        // auto-deleted
		false,        // internal
		false,        // no-wait
		nil,          // arguments
	)
	if err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}

	logger.Info().
		Str("exchange", cfg.Exchange).
		Str("routing_key", cfg.RoutingKey).
		Msg("RabbitMQ publisher initialized")

	return &Publisher{
		conn:    conn,
		channel: channel,
		config:  cfg,
		logger:  logger,
	}, nil
}

// PublishTransactionRecorded emits an event for a transaction appended to the
// given account's history.
func (p *Publisher) PublishTransactionRecorded(ctx context.Context, email string, record domain.Transaction) error {
	event := NewTransactionRecordedEvent(email, record)

	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}

	err = p.channel.PublishWithContext(ctx,
		p.config.Exchange,
		p.config.RoutingKey,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    event.EventID,
			Timestamp:    time.Now(),
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	p.logger.Debug().
		Str("event_id", event.EventID).
		Str("email", email).
		Str("type", string(record.Type)).
		Msg("transaction event published")
	return nil
}

// NewTransactionRecordedEvent builds the event payload for a history record.
func NewTransactionRecordedEvent(email string, record domain.Transaction) TransactionRecordedEvent {
	return TransactionRecordedEvent{
		EventID:        uuid.New().String(),
		EventType:      eventTypeTransactionRecorded,
		EventTimestamp: time.Now().Format(time.RFC3339),
		Email:          email,
		Type:           string(record.Type),
		Amount:         record.Amount.String(),
		To:             record.To,
		From:           record.From,
		RecordedAt:     record.RecordedAt.Format(time.RFC3339),
	}
}

// Close releases the channel and connection.
func (p *Publisher) Close() {
	if p.channel != nil {
		p.channel.Close()
	}
	if p.conn != nil {
		p.conn.Close()
	}
}
