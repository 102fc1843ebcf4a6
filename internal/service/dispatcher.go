package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"campaignhub/internal/cache"
	"campaignhub/internal/models"
	"campaignhub/internal/repository"
	"campaignhub/internal/rules"
)

// JobSubmitter hands a delivery job to whatever executes sends.
// Implementations may block to apply backpressure.
type JobSubmitter interface {
	Submit(ctx context.Context, job models.DeliveryJob) error
}

// DispatchResult summarises one dispatch run
type DispatchResult struct {
	CampaignID   int `json:"campaignId"`
	AudienceSize int `json:"audienceSize"`
	Created      int `json:"created"`
	Resubmitted  int `json:"resubmitted"`
	Submitted    int `json:"submitted"`
	SubmitFailed int `json:"submitFailed"`
}

// Dispatcher resolves a campaign's audience and fans out one delivery job
// per recipient whose delivery log is not terminal
type Dispatcher struct {
	segmentRepo  repository.SegmentRepository
	customerRepo repository.CustomerRepository
	deliveryRepo repository.DeliveryRepository
	evaluator    *rules.Evaluator
	cache        cache.AudienceCache
	submitter    JobSubmitter
	logger       logrus.FieldLogger
}

// NewDispatcher creates a new dispatcher
func NewDispatcher(
	segmentRepo repository.SegmentRepository,
	customerRepo repository.CustomerRepository,
	deliveryRepo repository.DeliveryRepository,
	evaluator *rules.Evaluator,
	audienceCache cache.AudienceCache,
	submitter JobSubmitter,
	logger logrus.FieldLogger,
) *Dispatcher {
	return &Dispatcher{
		segmentRepo:  segmentRepo,
		customerRepo: customerRepo,
		deliveryRepo: deliveryRepo,
		evaluator:    evaluator,
		cache:        audienceCache,
		submitter:    submitter,
		logger:       logger,
	}
}

// Dispatch creates PENDING delivery logs for the campaign's audience and
// submits a job for each newly created row. Running it again for the same
// campaign fills gaps and resubmits rows still PENDING or RETRYING, whose
// job may have been lost; the processor ignores jobs for terminal rows.
func (d *Dispatcher) Dispatch(ctx context.Context, campaign *models.Campaign) (*DispatchResult, error) {
	logger := d.logger.WithFields(logrus.Fields{
		"campaign_id": campaign.ID,
		"segment_id":  campaign.SegmentID,
	})

	segment, err := d.segmentRepo.GetByID(ctx, campaign.SegmentID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, &NotFoundError{Resource: "segment", ID: campaign.SegmentID}
		}
		return nil, fmt.Errorf("failed to load segment: %w", err)
	}

	customers, err := d.customerRepo.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load customers: %w", err)
	}

	audience := d.evaluator.Filter(customers, segment.Rules)
	customerIDs := make([]int, len(audience))
	for i, customer := range audience {
		customerIDs[i] = customer.ID
	}

	if err := d.cache.SetAudienceSize(ctx, segment.ID, len(audience)); err != nil {
		logger.WithError(err).Warn("failed to cache audience size")
	}

	created, err := d.deliveryRepo.UpsertPending(ctx, campaign.ID, campaign.Message, customerIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to create delivery logs: %w", err)
	}

	result := &DispatchResult{
		CampaignID:   campaign.ID,
		AudienceSize: len(audience),
		Created:      len(created),
	}

	isNew := make(map[int]bool, len(created))
	for _, row := range created {
		isNew[row.CustomerID] = true
		d.submit(ctx, logger, row, result)
	}

	existing, err := d.deliveryRepo.ListByCampaign(ctx, campaign.ID)
	if err != nil {
		logger.WithError(err).Warn("failed to list open delivery logs for resubmission")
	}
	for _, row := range existing {
		if isNew[row.CustomerID] || row.Status.IsTerminal() {
			continue
		}
		result.Resubmitted++
		d.submit(ctx, logger, row, result)
	}

	logger.WithFields(logrus.Fields{
		"audience_size": result.AudienceSize,
		"created":       result.Created,
		"resubmitted":   result.Resubmitted,
		"submitted":     result.Submitted,
		"submit_failed": result.SubmitFailed,
	}).Info("campaign dispatched")

	return result, nil
}

func (d *Dispatcher) submit(ctx context.Context, logger logrus.FieldLogger, row *models.DeliveryLog, result *DispatchResult) {
	job := models.DeliveryJob{CampaignID: row.CampaignID, CustomerID: row.CustomerID}
	if err := d.submitter.Submit(ctx, job); err != nil {
		result.SubmitFailed++
		d.failUnsubmitted(ctx, logger, job, err)
		return
	}
	result.Submitted++
}

// failUnsubmitted records a terminal failure for a job that never reached a worker
func (d *Dispatcher) failUnsubmitted(ctx context.Context, logger logrus.FieldLogger, job models.DeliveryJob, submitErr error) {
	reason := fmt.Sprintf("submit failed: %v", submitErr)
	entry := logger.WithField("customer_id", job.CustomerID)
	entry.WithError(submitErr).Warn("failed to submit delivery job")

	// recorded even when the caller's context is already cancelled
	ctx = context.WithoutCancel(ctx)
	if _, err := d.deliveryRepo.ApplyOutcome(ctx, job.CampaignID, job.CustomerID, models.OutcomeFailure, &reason, 1); err != nil {
		entry.WithError(err).Error("failed to record submit failure")
	}
}
