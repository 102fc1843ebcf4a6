// Package queue carries delivery jobs over RabbitMQ.
package queue

import (
	"errors"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

// Connection represents a RabbitMQ connection with automatic reconnection support
type Connection struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	url     string
	logger  logrus.FieldLogger
	mu      sync.Mutex
}

// NewConnection creates a new RabbitMQ connection
func NewConnection(url string, logger logrus.FieldLogger) (*Connection, error) {
	if url == "" {
		return nil, errors.New("rabbitmq url cannot be empty")
	}

	c := &Connection{url: url, logger: logger}
	if err := c.dial(); err != nil {
		return nil, err
	}

	logger.Info("connected to RabbitMQ")
	return c, nil
}

// dial opens a connection and a channel; callers hold mu or own c exclusively
func (c *Connection) dial() error {
	conn, err := amqp.Dial(c.url)
	if err != nil {
		return fmt.Errorf("failed to connect to rabbitmq: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("failed to create channel: %w", err)
	}

	c.conn = conn
	c.channel = channel
	return nil
}

// Channel returns the channel, reconnecting if necessary
func (c *Connection) Channel() (*amqp.Channel, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.channel == nil || c.channel.IsClosed() || c.conn == nil || c.conn.IsClosed() {
		c.logger.Warn("RabbitMQ channel is closed, reconnecting")
		if err := c.reconnect(); err != nil {
			return nil, fmt.Errorf("failed to reconnect: %w", err)
		}
	}

	return c.channel, nil
}

func (c *Connection) reconnect() error {
	c.closeLocked()

	if err := c.dial(); err != nil {
		return err
	}

	c.logger.Info("reconnected to RabbitMQ")
	return nil
}

func (c *Connection) closeLocked() []error {
	var errs []error

	if c.channel != nil {
		if err := c.channel.Close(); err != nil && !errors.Is(err, amqp.ErrClosed) {
			errs = append(errs, fmt.Errorf("failed to close channel: %w", err))
		}
		c.channel = nil
	}

	if c.conn != nil {
		if err := c.conn.Close(); err != nil && !errors.Is(err, amqp.ErrClosed) {
			errs = append(errs, fmt.Errorf("failed to close connection: %w", err))
		}
		c.conn = nil
	}

	return errs
}

// Close closes the connection gracefully
func (c *Connection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if errs := c.closeLocked(); len(errs) > 0 {
		return fmt.Errorf("errors during close: %w", errors.Join(errs...))
	}

	c.logger.Info("RabbitMQ connection closed")
	return nil
}

// IsConnected checks if the connection is active
func (c *Connection) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.conn != nil && !c.conn.IsClosed() && c.channel != nil
}

// declareQueue declares the durable job queue shared by publisher and consumer
func declareQueue(ch *amqp.Channel, name string) error {
	_, err := ch.QueueDeclare(
		name,
		true,  // durable
		false, // auto-delete
		false, // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		return fmt.Errorf("failed to declare queue: %w", err)
	}
	return nil
}
