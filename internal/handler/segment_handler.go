package handler

import (
	"net/http"

	"github.com/sirupsen/logrus"

	"campaignhub/internal/models"
	"campaignhub/internal/service"
)

// SegmentHandler handles HTTP requests for segment operations
type SegmentHandler struct {
	segmentService *service.SegmentService
	logger         logrus.FieldLogger
}

// NewSegmentHandler creates a new segment handler
func NewSegmentHandler(segmentService *service.SegmentService, logger logrus.FieldLogger) *SegmentHandler {
	return &SegmentHandler{
		segmentService: segmentService,
		logger:         logger,
	}
}

// Create handles POST /segments
func (h *SegmentHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req service.CreateSegmentRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	segment, err := h.segmentService.CreateSegment(r.Context(), &req)
	if err != nil {
		HandleServiceError(w, r, h.logger, err)
		return
	}

	WriteCreated(w, segment)
}

// List handles GET /segments
func (h *SegmentHandler) List(w http.ResponseWriter, r *http.Request) {
	segments, err := h.segmentService.ListSegments(r.Context())
	if err != nil {
		HandleServiceError(w, r, h.logger, err)
		return
	}

	WriteOK(w, ListSegmentsResponse{Segments: segments})
}

// GetByID handles GET /segments/{id}
func (h *SegmentHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "segment")
	if !ok {
		return
	}

	segment, err := h.segmentService.GetSegment(r.Context(), id)
	if err != nil {
		HandleServiceError(w, r, h.logger, err)
		return
	}

	WriteOK(w, segment)
}

// Preview handles POST /segments/preview
func (h *SegmentHandler) Preview(w http.ResponseWriter, r *http.Request) {
	var req service.PreviewRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	result, err := h.segmentService.Preview(r.Context(), &req)
	if err != nil {
		HandleServiceError(w, r, h.logger, err)
		return
	}

	WriteOK(w, result)
}

// RefreshAudience handles POST /segments/{id}/refresh-audience
func (h *SegmentHandler) RefreshAudience(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "segment")
	if !ok {
		return
	}

	segment, err := h.segmentService.RefreshAudienceSize(r.Context(), id)
	if err != nil {
		HandleServiceError(w, r, h.logger, err)
		return
	}

	WriteOK(w, segment)
}

// SuggestRules handles POST /segments/suggest-rules
func (h *SegmentHandler) SuggestRules(w http.ResponseWriter, r *http.Request) {
	var req service.SuggestRulesRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	rules, err := h.segmentService.SuggestRules(r.Context(), &req)
	if err != nil {
		HandleServiceError(w, r, h.logger, err)
		return
	}

	WriteOK(w, SuggestRulesResponse{Rules: rules})
}

// ListSegmentsResponse represents the response for listing segments
type ListSegmentsResponse struct {
	Segments []*models.Segment `json:"segments"`
}

// SuggestRulesResponse carries the suggested rule set
type SuggestRulesResponse struct {
	Rules models.RuleSet `json:"rules"`
}
