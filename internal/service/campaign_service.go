package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"campaignhub/internal/models"
	"campaignhub/internal/repository"
)

// CampaignService handles campaign business logic
type CampaignService struct {
	campaignRepo repository.CampaignRepository
	segmentRepo  repository.SegmentRepository
	deliveryRepo repository.DeliveryRepository
	dispatcher   *Dispatcher
	templates    *TemplateService
	logger       logrus.FieldLogger

	syncDispatch bool
	inflight     sync.WaitGroup
}

// CampaignOption configures a CampaignService
type CampaignOption func(*CampaignService)

// WithSynchronousDispatch makes CreateCampaign dispatch before returning
func WithSynchronousDispatch() CampaignOption {
	return func(s *CampaignService) {
		s.syncDispatch = true
	}
}

// NewCampaignService creates a new campaign service
func NewCampaignService(
	campaignRepo repository.CampaignRepository,
	segmentRepo repository.SegmentRepository,
	deliveryRepo repository.DeliveryRepository,
	dispatcher *Dispatcher,
	logger logrus.FieldLogger,
	opts ...CampaignOption,
) *CampaignService {
	s := &CampaignService{
		campaignRepo: campaignRepo,
		segmentRepo:  segmentRepo,
		deliveryRepo: deliveryRepo,
		dispatcher:   dispatcher,
		templates:    NewTemplateService(),
		logger:       logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateCampaignRequest represents a request to create a campaign
type CreateCampaignRequest struct {
	Name      string  `json:"name" validate:"notblank,max=255"`
	SegmentID int     `json:"segmentId" validate:"required,gt=0"`
	Message   string  `json:"message" validate:"notblank"`
	ImageURL  *string `json:"imageUrl,omitempty" validate:"omitempty,url"`
}

// PaginationInfo represents pagination metadata
type PaginationInfo struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
	TotalPages int `json:"total_pages"`
}

// CreateCampaign persists a campaign and triggers dispatch to its segment.
// Dispatch runs in the background unless synchronous dispatch is enabled.
func (s *CampaignService) CreateCampaign(ctx context.Context, req *CreateCampaignRequest) (*models.Campaign, error) {
	if err := validateStruct(req); err != nil {
		return nil, err
	}
	if err := s.templates.ValidateTemplate(req.Message); err != nil {
		return nil, &ValidationError{Message: err.Error()}
	}

	if _, err := s.segmentRepo.GetByID(ctx, req.SegmentID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, &NotFoundError{Resource: "segment", ID: req.SegmentID}
		}
		return nil, fmt.Errorf("failed to load segment: %w", err)
	}

	campaign := &models.Campaign{
		Name:      strings.TrimSpace(req.Name),
		SegmentID: req.SegmentID,
		Message:   req.Message,
		ImageURL:  req.ImageURL,
	}

	if err := s.campaignRepo.Create(ctx, campaign); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// segment deleted between the check and the insert
			return nil, &NotFoundError{Resource: "segment", ID: req.SegmentID}
		}
		return nil, fmt.Errorf("failed to create campaign: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"campaign_id": campaign.ID,
		"segment_id":  campaign.SegmentID,
	}).Info("campaign created")

	if s.syncDispatch {
		s.dispatch(ctx, campaign)
		return campaign, nil
	}

	// Detached from the request context so dispatch outlives the response
	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		s.dispatch(context.Background(), campaign)
	}()

	return campaign, nil
}

// Redispatch runs dispatch again for an existing campaign. Recipients
// without a delivery log get one, and open rows are resubmitted. The
// dispatch is not cut short when the caller goes away.
func (s *CampaignService) Redispatch(ctx context.Context, id int) (*DispatchResult, error) {
	campaign, err := s.getCampaign(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.dispatcher.Dispatch(context.WithoutCancel(ctx), campaign)
}

// Wait blocks until every background dispatch has finished
func (s *CampaignService) Wait() {
	s.inflight.Wait()
}

// GetCampaignWithStats retrieves a campaign with statistics
func (s *CampaignService) GetCampaignWithStats(ctx context.Context, id int) (*models.CampaignWithStats, error) {
	campaign, err := s.getCampaign(ctx, id)
	if err != nil {
		return nil, err
	}

	stats, err := s.deliveryRepo.Stats(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get campaign stats: %w", err)
	}

	return &models.CampaignWithStats{Campaign: *campaign, Stats: stats}, nil
}

// ListCampaigns lists campaigns with filters
func (s *CampaignService) ListCampaigns(ctx context.Context, filters repository.CampaignFilters) ([]*models.Campaign, *PaginationInfo, error) {
	if filters.Page < 1 {
		filters.Page = 1
	}
	if filters.PageSize <= 0 {
		filters.PageSize = 20
	}
	if filters.PageSize > 100 {
		filters.PageSize = 100
	}
	pageSize := filters.PageSize

	campaigns, total, err := s.campaignRepo.List(ctx, filters)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list campaigns: %w", err)
	}

	pagination := &PaginationInfo{
		Page:       filters.Page,
		PageSize:   pageSize,
		TotalCount: total,
		TotalPages: (total + pageSize - 1) / pageSize,
	}

	return campaigns, pagination, nil
}

func (s *CampaignService) getCampaign(ctx context.Context, id int) (*models.Campaign, error) {
	campaign, err := s.campaignRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, &NotFoundError{Resource: "campaign", ID: id}
		}
		return nil, fmt.Errorf("failed to get campaign: %w", err)
	}
	return campaign, nil
}

func (s *CampaignService) dispatch(ctx context.Context, campaign *models.Campaign) {
	if _, err := s.dispatcher.Dispatch(ctx, campaign); err != nil {
		s.logger.WithField("campaign_id", campaign.ID).WithError(err).Error("campaign dispatch failed")
	}
}
