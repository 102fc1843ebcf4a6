package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"

	"campaignhub/internal/models"
)

// Publisher publishes delivery jobs to RabbitMQ
type Publisher struct {
	conn      *Connection
	queueName string
}

// NewPublisher creates a new publisher instance and declares the queue
func NewPublisher(conn *Connection, queueName string) (*Publisher, error) {
	if conn == nil {
		return nil, errors.New("connection cannot be nil")
	}
	if queueName == "" {
		return nil, errors.New("queue name cannot be empty")
	}

	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("failed to get channel: %w", err)
	}
	if err := declareQueue(ch, queueName); err != nil {
		return nil, err
	}

	return &Publisher{
		conn:      conn,
		queueName: queueName,
	}, nil
}

// Submit publishes one persistent delivery job
func (p *Publisher) Submit(ctx context.Context, job models.DeliveryJob) error {
	body, err := encodeJob(job)
	if err != nil {
		return err
	}

	ch, err := p.conn.Channel()
	if err != nil {
		return fmt.Errorf("failed to get channel: %w", err)
	}

	err = ch.PublishWithContext(
		ctx,
		"",          // exchange (default)
		p.queueName, // routing key
		false,       // mandatory
		false,       // immediate
		amqp.Publishing{
			DeliveryMode: amqp.Persistent,
			ContentType:  "application/json",
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish delivery job: %w", err)
	}

	return nil
}

func encodeJob(job models.DeliveryJob) ([]byte, error) {
	body, err := json.Marshal(job)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal delivery job: %w", err)
	}
	return body, nil
}

func decodeJob(body []byte) (models.DeliveryJob, error) {
	var job models.DeliveryJob
	if err := json.Unmarshal(body, &job); err != nil {
		return job, fmt.Errorf("failed to unmarshal delivery job: %w", err)
	}
	if job.CampaignID <= 0 || job.CustomerID <= 0 {
		return job, fmt.Errorf("delivery job is missing campaign or customer id: %s", body)
	}
	return job, nil
}
