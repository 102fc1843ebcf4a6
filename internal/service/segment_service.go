package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"campaignhub/internal/cache"
	"campaignhub/internal/models"
	"campaignhub/internal/repository"
	"campaignhub/internal/rules"
)

// RuleSuggester turns a natural-language prompt into a rule set
type RuleSuggester interface {
	SuggestRules(ctx context.Context, prompt string) (models.RuleSet, error)
}

// SegmentService handles segment business logic
type SegmentService struct {
	segmentRepo  repository.SegmentRepository
	customerRepo repository.CustomerRepository
	evaluator    *rules.Evaluator
	cache        cache.AudienceCache
	suggester    RuleSuggester
	logger       logrus.FieldLogger
}

// NewSegmentService creates a new segment service.
// suggester may be nil when no rule suggestion service is configured.
func NewSegmentService(
	segmentRepo repository.SegmentRepository,
	customerRepo repository.CustomerRepository,
	evaluator *rules.Evaluator,
	audienceCache cache.AudienceCache,
	suggester RuleSuggester,
	logger logrus.FieldLogger,
) *SegmentService {
	return &SegmentService{
		segmentRepo:  segmentRepo,
		customerRepo: customerRepo,
		evaluator:    evaluator,
		cache:        audienceCache,
		suggester:    suggester,
		logger:       logger,
	}
}

// CreateSegmentRequest represents a request to create a segment
type CreateSegmentRequest struct {
	Name  string         `json:"name" validate:"notblank,max=255"`
	Rules models.RuleSet `json:"rules"`
}

// PreviewRequest represents a request to preview an unsaved rule set
type PreviewRequest struct {
	Rules models.RuleSet `json:"rules"`
}

// PreviewResult is the audience size of a rule set
type PreviewResult struct {
	AudienceSize int `json:"audienceSize"`
}

// SuggestRulesRequest represents a natural-language rule request
type SuggestRulesRequest struct {
	Prompt string `json:"prompt" validate:"notblank,max=2000"`
}

// CreateSegment validates and persists a new segment
func (s *SegmentService) CreateSegment(ctx context.Context, req *CreateSegmentRequest) (*models.Segment, error) {
	if err := validateStruct(req); err != nil {
		return nil, err
	}
	if err := req.Rules.Validate(); err != nil {
		return nil, &ValidationError{Message: err.Error()}
	}

	segment := &models.Segment{
		Name:  strings.TrimSpace(req.Name),
		Rules: req.Rules,
	}

	if err := s.segmentRepo.Create(ctx, segment); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, &ConflictError{
				Resource: "segment",
				Message:  fmt.Sprintf("name %q is already taken", segment.Name),
			}
		}
		return nil, fmt.Errorf("failed to create segment: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"segment_id": segment.ID,
		"rules":      len(segment.Rules),
	}).Info("segment created")

	return segment, nil
}

// ListSegments returns all segments ordered by ID, each with its cached
// audience size when one is known
func (s *SegmentService) ListSegments(ctx context.Context) ([]*models.Segment, error) {
	segments, err := s.segmentRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list segments: %w", err)
	}

	for _, segment := range segments {
		segment.AudienceSize = s.cachedAudienceSize(ctx, segment.ID)
	}

	return segments, nil
}

// GetSegment retrieves a segment by ID
func (s *SegmentService) GetSegment(ctx context.Context, id int) (*models.Segment, error) {
	segment, err := s.segmentRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, &NotFoundError{Resource: "segment", ID: id}
		}
		return nil, fmt.Errorf("failed to get segment: %w", err)
	}

	segment.AudienceSize = s.cachedAudienceSize(ctx, id)
	return segment, nil
}

// Preview counts the customers matching an unsaved rule set. Nothing is persisted.
func (s *SegmentService) Preview(ctx context.Context, req *PreviewRequest) (*PreviewResult, error) {
	if err := req.Rules.Validate(); err != nil {
		return nil, &ValidationError{Message: err.Error()}
	}

	customers, err := s.customerRepo.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load customers: %w", err)
	}

	return &PreviewResult{AudienceSize: s.evaluator.CountMatches(customers, req.Rules)}, nil
}

// RefreshAudienceSize recomputes a saved segment's audience and caches it
func (s *SegmentService) RefreshAudienceSize(ctx context.Context, id int) (*models.Segment, error) {
	segment, err := s.GetSegment(ctx, id)
	if err != nil {
		return nil, err
	}

	customers, err := s.customerRepo.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load customers: %w", err)
	}

	size := s.evaluator.CountMatches(customers, segment.Rules)
	if err := s.cache.SetAudienceSize(ctx, id, size); err != nil {
		s.logger.WithField("segment_id", id).WithError(err).Warn("failed to cache audience size")
	}

	segment.AudienceSize = &size
	return segment, nil
}

// SuggestRules asks the rule suggestion service for a rule set.
// The result is validated before it is returned.
func (s *SegmentService) SuggestRules(ctx context.Context, req *SuggestRulesRequest) (models.RuleSet, error) {
	if s.suggester == nil {
		return nil, &UnavailableError{Service: "rule suggestion service"}
	}
	if err := validateStruct(req); err != nil {
		return nil, err
	}

	ruleSet, err := s.suggester.SuggestRules(ctx, strings.TrimSpace(req.Prompt))
	if err != nil {
		s.logger.WithError(err).Warn("rule suggestion failed")
		return nil, &UnavailableError{Service: "rule suggestion service", Err: err}
	}

	return ruleSet, nil
}

func (s *SegmentService) cachedAudienceSize(ctx context.Context, segmentID int) *int {
	size, err := s.cache.GetAudienceSize(ctx, segmentID)
	if err != nil {
		if !errors.Is(err, cache.ErrMiss) {
			s.logger.WithField("segment_id", segmentID).WithError(err).Warn("failed to read cached audience size")
		}
		return nil
	}
	return &size
}
