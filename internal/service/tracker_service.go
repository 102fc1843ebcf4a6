package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"campaignhub/internal/models"
	"campaignhub/internal/repository"
)

// TrackerService records delivery outcomes and reports campaign progress
type TrackerService struct {
	campaignRepo repository.CampaignRepository
	deliveryRepo repository.DeliveryRepository
	maxAttempts  int
	logger       logrus.FieldLogger
}

// NewTrackerService creates a new tracker service
func NewTrackerService(
	campaignRepo repository.CampaignRepository,
	deliveryRepo repository.DeliveryRepository,
	maxAttempts int,
	logger logrus.FieldLogger,
) *TrackerService {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &TrackerService{
		campaignRepo: campaignRepo,
		deliveryRepo: deliveryRepo,
		maxAttempts:  maxAttempts,
		logger:       logger,
	}
}

// RecordOutcomeRequest reports the result of one send attempt
type RecordOutcomeRequest struct {
	CampaignID int                   `json:"campaignId" validate:"required,gt=0"`
	CustomerID int                   `json:"customerId" validate:"required,gt=0"`
	Status     models.DeliveryStatus `json:"status" validate:"required"`
	Error      *string               `json:"error,omitempty"`
}

// RecordOutcome applies a reported outcome to a delivery log. Outcomes for
// rows already SENT or FAILED are accepted and ignored.
func (s *TrackerService) RecordOutcome(ctx context.Context, req *RecordOutcomeRequest) (*models.DeliveryLog, error) {
	if err := validateStruct(req); err != nil {
		return nil, err
	}

	outcome, ok := models.OutcomeForStatus(req.Status)
	if !ok {
		return nil, &ValidationError{Message: fmt.Sprintf("status must be %s or %s", models.DeliveryStatusSent, models.DeliveryStatusFailed)}
	}

	log, err := s.deliveryRepo.ApplyOutcome(ctx, req.CampaignID, req.CustomerID, outcome, req.Error, s.maxAttempts)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, &NotFoundError{Resource: fmt.Sprintf("campaign %d recipient", req.CampaignID), ID: req.CustomerID}
		}
		return nil, fmt.Errorf("failed to record outcome: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"campaign_id": req.CampaignID,
		"customer_id": req.CustomerID,
		"reported":    req.Status,
		"status":      log.Status,
		"attempts":    log.Attempts,
	}).Debug("delivery outcome recorded")

	return log, nil
}

// Stats returns aggregate delivery counts for a campaign
func (s *TrackerService) Stats(ctx context.Context, campaignID int) (models.CampaignStats, error) {
	if err := s.ensureCampaign(ctx, campaignID); err != nil {
		return models.CampaignStats{}, err
	}

	stats, err := s.deliveryRepo.Stats(ctx, campaignID)
	if err != nil {
		return models.CampaignStats{}, fmt.Errorf("failed to get campaign stats: %w", err)
	}
	return stats, nil
}

// Logs returns every delivery log of a campaign ordered by customer ID
func (s *TrackerService) Logs(ctx context.Context, campaignID int) ([]*models.DeliveryLog, error) {
	if err := s.ensureCampaign(ctx, campaignID); err != nil {
		return nil, err
	}

	logs, err := s.deliveryRepo.ListByCampaign(ctx, campaignID)
	if err != nil {
		return nil, fmt.Errorf("failed to list delivery logs: %w", err)
	}
	return logs, nil
}

func (s *TrackerService) ensureCampaign(ctx context.Context, campaignID int) error {
	if _, err := s.campaignRepo.GetByID(ctx, campaignID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return &NotFoundError{Resource: "campaign", ID: campaignID}
		}
		return fmt.Errorf("failed to get campaign: %w", err)
	}
	return nil
}
