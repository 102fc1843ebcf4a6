package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"

	"campaignhub/internal/models"
)

// Handler processes one delivery job. A nil error acknowledges the message.
type Handler func(ctx context.Context, job models.DeliveryJob) error

// Consumer consumes delivery jobs with a fixed number of handler goroutines
type Consumer struct {
	conn        *Connection
	queueName   string
	concurrency int
	handler     Handler
	logger      logrus.FieldLogger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewConsumer creates a new consumer instance and declares the queue.
// concurrency is used both as prefetch count and handler goroutine count.
func NewConsumer(conn *Connection, queueName string, concurrency int, handler Handler, logger logrus.FieldLogger) (*Consumer, error) {
	if conn == nil {
		return nil, errors.New("connection cannot be nil")
	}
	if queueName == "" {
		return nil, errors.New("queue name cannot be empty")
	}
	if handler == nil {
		return nil, errors.New("handler cannot be nil")
	}
	if concurrency < 1 {
		concurrency = 1
	}

	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("failed to get channel: %w", err)
	}
	if err := declareQueue(ch, queueName); err != nil {
		return nil, err
	}

	return &Consumer{
		conn:        conn,
		queueName:   queueName,
		concurrency: concurrency,
		handler:     handler,
		logger:      logger,
	}, nil
}

// Start starts consuming messages from the queue
func (c *Consumer) Start(ctx context.Context) error {
	ch, err := c.conn.Channel()
	if err != nil {
		return fmt.Errorf("failed to get channel: %w", err)
	}

	if err := ch.Qos(c.concurrency, 0, false); err != nil {
		return fmt.Errorf("failed to set QoS: %w", err)
	}

	msgs, err := ch.Consume(
		c.queueName,
		"",    // consumer tag (auto-generated)
		false, // auto-ack (manual acknowledgement)
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,   // args
	)
	if err != nil {
		return fmt.Errorf("failed to start consuming: %w", err)
	}

	ctx, c.cancel = context.WithCancel(ctx)

	c.wg.Add(c.concurrency)
	for i := 0; i < c.concurrency; i++ {
		go func(id int) {
			defer c.wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case d, ok := <-msgs:
					if !ok {
						c.logger.WithField("worker", id).Warn("delivery channel closed")
						return
					}
					c.handleDelivery(ctx, d)
				}
			}
		}(i)
	}

	c.logger.WithFields(logrus.Fields{
		"queue":       c.queueName,
		"concurrency": c.concurrency,
	}).Info("consumer started")
	return nil
}

// Stop stops consuming and waits for in-flight handlers to return
func (c *Consumer) Stop() {
	if c.cancel != nil {
		c.cancel()
	}
	c.wg.Wait()
	c.logger.Info("consumer stopped")
}

// handleDelivery acks processed jobs and drops messages that cannot be
// decoded. A failed job is requeued once; if it fails again after
// redelivery it is dropped and its row stays open for a later redispatch.
func (c *Consumer) handleDelivery(ctx context.Context, d amqp.Delivery) {
	job, err := decodeJob(d.Body)
	if err != nil {
		c.logger.WithError(err).Error("dropping malformed delivery job")
		_ = d.Nack(false, false)
		return
	}

	logger := c.logger.WithFields(logrus.Fields{
		"campaign_id": job.CampaignID,
		"customer_id": job.CustomerID,
	})

	if err := c.handler(ctx, job); err != nil {
		if d.Redelivered {
			logger.WithError(err).Error("redelivered job failed again, dropping")
			_ = d.Nack(false, false)
			return
		}
		logger.WithError(err).Warn("delivery job failed, requeueing")
		_ = d.Nack(false, true)
		return
	}

	if err := d.Ack(false); err != nil {
		logger.WithError(err).Error("failed to ack delivery job")
	}
}
