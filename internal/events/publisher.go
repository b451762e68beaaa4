package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jitenkr2030/VisualVerse-sub004/internal/engine"
	amqp "github.com/rabbitmq/amqp091-go"
)

// Config holds RabbitMQ connection and exchange settings for job lifecycle
// events.
type Config struct {
	Host          string
	Port          int
	User          string
	Password      string
	VHost         string
	Exchange      string
	RoutingPrefix string
	RetryAttempts int
	RetryInterval time.Duration
}

// JobEvent is the payload published for every terminal job transition.
// Consumers (websocket hub, analytics) key off the routing suffix, the
// lowercased terminal status.
type JobEvent struct {
	JobID        string    `json:"job_id"`
	Status       string    `json:"status"`
	Priority     int       `json:"priority"`
	ResultPath   string    `json:"result_path,omitempty"`
	ErrorMessage string    `json:"error_message,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	FinishedAt   time.Time `json:"finished_at"`
}

// Publisher publishes job lifecycle events to a topic exchange.
type Publisher struct {
	cfg     *Config
	conn    *amqp.Connection
	channel *amqp.Channel
	logger  *slog.Logger
}

// NewPublisher connects to RabbitMQ with retry and declares the exchange.
func NewPublisher(cfg *Config, logger *slog.Logger) (*Publisher, error) {
	dsn := fmt.Sprintf("amqp://%s:%s@%s:%d%s",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.VHost,
	)

	attempts := cfg.RetryAttempts
	if attempts <= 0 {
		attempts = 1
	}

	var conn *amqp.Connection
	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		logger.Info("Connecting to RabbitMQ",
			slog.Int("attempt", attempt),
			slog.Int("max_attempts", attempts),
		)

		conn, err = amqp.Dial(dsn)
		if err == nil {
			break
		}

		logger.Error("Failed to connect to RabbitMQ",
			slog.Any("error", err),
			slog.Int("attempt", attempt),
		)
		if attempt < attempts {
			time.Sleep(cfg.RetryInterval)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ after %d attempts: %w", attempts, err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create channel: %w", err)
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

	logger.Info("Job event publisher initialized",
		slog.String("exchange", cfg.Exchange),
	)

	return &Publisher{cfg: cfg, conn: conn, channel: channel, logger: logger}, nil
}

// JobFinished implements engine.Sink: it publishes one event per terminal
// transition with routing key <prefix>.<status>.
func (p *Publisher) JobFinished(ctx context.Context, snap engine.Snapshot) error {
	event := JobEvent{
		JobID:        snap.JobID,
		Status:       string(snap.Status),
		Priority:     snap.Priority,
		ResultPath:   snap.ResultPath,
		ErrorMessage: snap.ErrorMessage,
		CreatedAt:    snap.CreatedAt,
		FinishedAt:   time.Now(),
	}

	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal job event: %w", err)
	}

	routingKey := p.cfg.RoutingPrefix + "." + strings.ToLower(event.Status)

	err = p.channel.PublishWithContext(
		ctx,
		p.cfg.Exchange,
		routingKey,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType: "application/json",
			Timestamp:   time.Now(),
			Body:        body,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish job event: %w", err)
	}

	p.logger.Debug("Job event published",
		slog.String("job_id", event.JobID),
		slog.String("routing_key", routingKey),
	)
	return nil
}

// Close closes the channel and connection.
func (p *Publisher) Close() error {
	p.logger.Info("Closing job event publisher")
	if p.channel != nil {
		if err := p.channel.Close(); err != nil {
			return fmt.Errorf("failed to close channel: %w", err)
		}
	}
	if p.conn != nil {
		if err := p.conn.Close(); err != nil {
			return fmt.Errorf("failed to close connection: %w", err)
		}
	}
	return nil
}
