package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"strconv"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	defaultPublishRetries     = 3
	defaultPublishRetryDelay  = 100 * time.Millisecond
	defaultPublishBackoffMult = 2.0
)

var errClientClosed = errors.New("rabbitmq client is closed")

// Config holds RabbitMQ connection configuration. RoutingKey binds the
// queue to the exchange. A publish-only client leaves QueueName empty.
type Config struct {
	Host               string
	Port               int
	User               string
	Password           string
	VHost              string
	ExchangeName       string
	ExchangeType       string
	ExchangeDurable    bool
	ExchangeAutoDelete bool
	QueueName          string
	QueueDurable       bool
	QueueAutoDelete    bool
	QueueExclusive     bool
	RoutingKey         string
	RetryAttempts      int
	RetryInterval      time.Duration
	Heartbeat          time.Duration
	ConnectionTimeout  time.Duration
	PublishRetries     int
	PublishRetryDelay  time.Duration
	PublishBackoffMult float64
}

// URL builds the AMQP connection URL
func (c *Config) URL() string {
	u := url.URL{
		Scheme: "amqp",
		User:   url.UserPassword(c.User, c.Password),
		Host:   net.JoinHostPort(c.Host, strconv.Itoa(c.Port)),
		Path:   c.VHost,
	}
	return u.String()
}

// retryDelay is the wait before publish attempt n+1
func (c *Config) retryDelay(attempt int) time.Duration {
	base := c.PublishRetryDelay
	if base <= 0 {
		base = defaultPublishRetryDelay
	}
	mult := c.PublishBackoffMult
	if mult <= 0 {
		mult = defaultPublishBackoffMult
	}

	delay := float64(base)
	for i := 0; i < attempt; i++ {
		delay *= mult
	}
	return time.Duration(delay)
}

// Client owns one connection and one channel to the generation exchange.
// A channel closed by the broker is reopened on the next publish.
type Client struct {
	config *Config
	logger *slog.Logger

	mu      sync.Mutex
	conn    *amqp.Connection
	channel *amqp.Channel
	closed  bool
}

// NewClient connects and declares the exchange (and queue, if configured)
func NewClient(config *Config, logger *slog.Logger) (*Client, error) {
	client := &Client{
		config: config,
		logger: logger,
	}

	client.mu.Lock()
	defer client.mu.Unlock()

	if err := client.connect(config.RetryAttempts); err != nil {
		return nil, fmt.Errorf("failed to create RabbitMQ client: %w", err)
	}

	client.logger.Info("RabbitMQ client initialized",
		slog.String("exchange", config.ExchangeName),
		slog.String("queue", config.QueueName),
		slog.String("routing_key", config.RoutingKey),
	)

	return client, nil
}

// connect dials with up to attempts tries and opens a declared channel.
// Callers hold c.mu.
func (c *Client) connect(attempts int) error {
	if attempts <= 0 {
		attempts = 1
	}

	amqpConfig := amqp.Config{
		Heartbeat: c.config.Heartbeat,
		Locale:    "en_US",
	}
	if c.config.ConnectionTimeout > 0 {
		amqpConfig.Dial = amqp.DefaultDial(c.config.ConnectionTimeout)
	}

	var (
		conn *amqp.Connection
		err  error
	)
	for attempt := 1; attempt <= attempts; attempt++ {
		c.logger.Info("Connecting to RabbitMQ",
			slog.String("host", c.config.Host),
			slog.Int("attempt", attempt),
			slog.Int("max_attempts", attempts),
		)

		conn, err = amqp.DialConfig(c.config.URL(), amqpConfig)
		if err == nil {
			break
		}

		c.logger.Error("Failed to connect to RabbitMQ",
			slog.Int("attempt", attempt),
			slog.Any("error", err),
		)

		if attempt < attempts {
			time.Sleep(c.config.RetryInterval)
		}
	}
	if err != nil {
		return fmt.Errorf("failed to connect to RabbitMQ after %d attempts: %w", attempts, err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("failed to create channel: %w", err)
	}

	if err := c.declare(ch); err != nil {
		ch.Close()
		conn.Close()
		return fmt.Errorf("failed to setup exchange and queue: %w", err)
	}

	c.conn = conn
	c.channel = ch
	return nil
}

// declare sets up the exchange and, when a queue is configured, the queue and
// its binding. Declarations are idempotent so reconnects repeat them.
func (c *Client) declare(ch *amqp.Channel) error {
	cfg := c.config

	// name, kind, durable, autoDelete, internal, noWait, args
	if err := ch.ExchangeDeclare(cfg.ExchangeName, cfg.ExchangeType, cfg.ExchangeDurable, cfg.ExchangeAutoDelete, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare exchange: %w", err)
	}

	if cfg.QueueName == "" {
		return nil
	}

	// name, durable, autoDelete, exclusive, noWait, args
	if _, err := ch.QueueDeclare(cfg.QueueName, cfg.QueueDurable, cfg.QueueAutoDelete, cfg.QueueExclusive, false, nil); err != nil {
		return fmt.Errorf("failed to declare queue: %w", err)
	}

	if err := ch.QueueBind(cfg.QueueName, cfg.RoutingKey, cfg.ExchangeName, false, nil); err != nil {
		return fmt.Errorf("failed to bind queue %s to %s: %w", cfg.QueueName, cfg.RoutingKey, err)
	}

	return nil
}

// openChannel returns a usable channel, reconnecting once if the broker
// dropped the previous one
func (c *Client) openChannel() (*amqp.Channel, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, errClientClosed
	}
	if c.channel != nil && !c.channel.IsClosed() {
		return c.channel, nil
	}

	c.logger.Warn("RabbitMQ channel closed, reconnecting")
	if c.conn != nil && !c.conn.IsClosed() {
		c.conn.Close()
	}
	if err := c.connect(1); err != nil {
		return nil, err
	}
	return c.channel, nil
}

// Publish publishes a message with the configured routing key
func (c *Client) Publish(ctx context.Context, body []byte, contentType string) error {
	return c.PublishTo(ctx, c.config.RoutingKey, body, contentType)
}

// PublishJSON encodes v and publishes it under routingKey
func (c *Client) PublishJSON(ctx context.Context, routingKey string, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode message: %w", err)
	}
	return c.PublishTo(ctx, routingKey, body, "application/json")
}

// PublishTo publishes a persistent message under routingKey, retrying with
// exponential backoff
func (c *Client) PublishTo(ctx context.Context, routingKey string, body []byte, contentType string) error {
	maxRetries := c.config.PublishRetries
	if maxRetries <= 0 {
		maxRetries = defaultPublishRetries
	}

	msg := amqp.Publishing{
		ContentType:  contentType,
		Body:         body,
		DeliveryMode: amqp.Persistent,
	}

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		lastErr = c.publishOnce(ctx, routingKey, msg)
		if lastErr == nil {
			c.logger.Debug("Message published to RabbitMQ",
				slog.String("routing_key", routingKey),
				slog.Int("body_size", len(body)),
				slog.Int("attempt", attempt+1),
			)
			return nil
		}
		if errors.Is(lastErr, errClientClosed) {
			return lastErr
		}

		if attempt < maxRetries {
			delay := c.config.retryDelay(attempt)
			c.logger.Warn("Failed to publish message to RabbitMQ, retrying...",
				slog.String("routing_key", routingKey),
				slog.Int("attempt", attempt+1),
				slog.Duration("retry_after", delay),
				slog.Any("error", lastErr),
			)

			select {
			case <-ctx.Done():
				return fmt.Errorf("publish canceled: %w", ctx.Err())
			case <-time.After(delay):
			}
		}
	}

	c.logger.Error("Failed to publish message to RabbitMQ after all retries",
		slog.String("routing_key", routingKey),
		slog.Int("attempts", maxRetries+1),
		slog.Any("error", lastErr),
	)
	return fmt.Errorf("failed to publish message after %d attempts: %w", maxRetries+1, lastErr)
}

func (c *Client) publishOnce(ctx context.Context, routingKey string, msg amqp.Publishing) error {
	ch, err := c.openChannel()
	if err != nil {
		return err
	}
	msg.Timestamp = time.Now()
	return ch.PublishWithContext(ctx, c.config.ExchangeName, routingKey, false, false, msg)
}

// Consume starts a manual-ack consumer on the configured queue
func (c *Client) Consume(consumerTag string) (<-chan amqp.Delivery, error) {
	if c.config.QueueName == "" {
		return nil, fmt.Errorf("no queue configured for consuming")
	}

	ch, err := c.openChannel()
	if err != nil {
		return nil, err
	}

	// queue, consumer, autoAck, exclusive, noLocal, noWait, args
	deliveries, err := ch.Consume(c.config.QueueName, consumerTag, false, false, false, false, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to consume messages: %w", err)
	}

	c.logger.Info("Started consuming messages from RabbitMQ",
		slog.String("queue", c.config.QueueName),
		slog.String("consumer_tag", consumerTag),
	)

	return deliveries, nil
}

// SetPrefetch limits unacknowledged deliveries per consumer
func (c *Client) SetPrefetch(count int) error {
	ch, err := c.openChannel()
	if err != nil {
		return err
	}
	if err := ch.Qos(count, 0, false); err != nil {
		return fmt.Errorf("failed to set prefetch: %w", err)
	}
	return nil
}

// HealthCheck reports whether the connection is open
func (c *Client) HealthCheck(_ context.Context) error {
	if !c.IsConnected() {
		return fmt.Errorf("not connected to RabbitMQ")
	}
	return nil
}

// IsConnected returns the connection status
func (c *Client) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.closed && c.conn != nil && !c.conn.IsClosed()
}

// Close closes the channel and the connection
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true

	c.logger.Info("Closing RabbitMQ connection")

	if c.channel != nil && !c.channel.IsClosed() {
		if err := c.channel.Close(); err != nil {
			c.logger.Error("Failed to close RabbitMQ channel",
				slog.Any("error", err),
			)
		}
	}

	if c.conn != nil && !c.conn.IsClosed() {
		if err := c.conn.Close(); err != nil {
			c.logger.Error("Failed to close RabbitMQ connection",
				slog.Any("error", err),
			)
			return err
		}
	}

	c.logger.Info("RabbitMQ connection closed successfully")
	return nil
}
