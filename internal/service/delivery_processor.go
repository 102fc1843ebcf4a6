package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"campaignhub/internal/models"
	"campaignhub/internal/repository"
)

// DeliveryProcessor executes one delivery job: send, record, and retry
// while the row stays RETRYING
type DeliveryProcessor struct {
	campaignRepo repository.CampaignRepository
	customerRepo repository.CustomerRepository
	deliveryRepo repository.DeliveryRepository
	sender       Sender
	templates    *TemplateService
	maxAttempts  int
	backoff      time.Duration
	sendTimeout  time.Duration
	logger       logrus.FieldLogger

	sleep func(ctx context.Context, d time.Duration) error
}

// ProcessorConfig holds the retry policy of a DeliveryProcessor
type ProcessorConfig struct {
	MaxAttempts  int
	RetryBackoff time.Duration
	SendTimeout  time.Duration
}

// NewDeliveryProcessor creates a new delivery processor
func NewDeliveryProcessor(
	campaignRepo repository.CampaignRepository,
	customerRepo repository.CustomerRepository,
	deliveryRepo repository.DeliveryRepository,
	sender Sender,
	cfg ProcessorConfig,
	logger logrus.FieldLogger,
) *DeliveryProcessor {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	return &DeliveryProcessor{
		campaignRepo: campaignRepo,
		customerRepo: customerRepo,
		deliveryRepo: deliveryRepo,
		sender:       sender,
		templates:    NewTemplateService(),
		maxAttempts:  cfg.MaxAttempts,
		backoff:      cfg.RetryBackoff,
		sendTimeout:  cfg.SendTimeout,
		logger:       logger,
		sleep:        sleepContext,
	}
}

// Process handles one job. A nil error means the job is finished and may be
// acknowledged; redelivered jobs for terminal rows are skipped.
func (p *DeliveryProcessor) Process(ctx context.Context, job models.DeliveryJob) error {
	logger := p.logger.WithFields(logrus.Fields{
		"campaign_id": job.CampaignID,
		"customer_id": job.CustomerID,
	})

	row, err := p.deliveryRepo.Get(ctx, job.CampaignID, job.CustomerID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			logger.Warn("delivery job has no delivery log, dropping")
			return nil
		}
		return fmt.Errorf("failed to load delivery log: %w", err)
	}
	if row.Status.IsTerminal() {
		logger.WithField("status", row.Status).Debug("delivery already finished, skipping")
		return nil
	}

	campaign, err := p.campaignRepo.GetByID(ctx, job.CampaignID)
	if err != nil {
		return fmt.Errorf("failed to load campaign: %w", err)
	}

	customer, err := p.customerRepo.GetByID(ctx, job.CustomerID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			reason := "customer no longer exists"
			_, err = p.deliveryRepo.ApplyOutcome(ctx, job.CampaignID, job.CustomerID, models.OutcomeFailure, &reason, 1)
			return err
		}
		return fmt.Errorf("failed to load customer: %w", err)
	}

	message, err := p.templates.Render(row.Message, customer)
	if err != nil {
		return fmt.Errorf("failed to render message: %w", err)
	}

	req := SendRequest{
		RecipientID: customer.ID,
		Message:     message,
		ImageURL:    campaign.ImageURL,
	}
	if customer.Phone != nil {
		req.Phone = *customer.Phone
	}

	for {
		result := p.send(ctx, req)

		outcome := models.OutcomeSuccess
		var lastError *string
		if !result.Success {
			outcome = models.OutcomeFailure
			msg := "send failed"
			if result.Error != nil {
				msg = result.Error.Error()
			}
			lastError = &msg
		}

		row, err = p.deliveryRepo.ApplyOutcome(ctx, job.CampaignID, job.CustomerID, outcome, lastError, p.maxAttempts)
		if err != nil {
			return fmt.Errorf("failed to record outcome: %w", err)
		}

		entry := logger.WithFields(logrus.Fields{
			"status":   row.Status,
			"attempts": row.Attempts,
			"latency":  result.Latency,
		})
		if lastError != nil {
			entry = entry.WithField("error", *lastError)
		}

		if row.Status != models.DeliveryStatusRetrying {
			entry.Info("delivery finished")
			return nil
		}

		wait := p.backoffFor(row.Attempts)
		entry.WithField("retry_in", wait).Info("delivery failed, retrying")
		if err := p.sleep(ctx, wait); err != nil {
			// Row stays RETRYING; a redelivered job resumes it
			return err
		}
	}
}

func (p *DeliveryProcessor) send(ctx context.Context, req SendRequest) *SendResult {
	if p.sendTimeout <= 0 {
		return p.sender.Send(ctx, req)
	}
	sendCtx, cancel := context.WithTimeout(ctx, p.sendTimeout)
	defer cancel()
	return p.sender.Send(sendCtx, req)
}

// backoffFor returns backoff * 2^(attempts-1)
func (p *DeliveryProcessor) backoffFor(attempts int) time.Duration {
	if attempts < 1 {
		attempts = 1
	}
	wait := p.backoff
	for i := 1; i < attempts && wait < time.Hour; i++ {
		wait *= 2
	}
	return wait
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
