package handler

import (
	"net/http"
	"strconv"

	"github.com/sirupsen/logrus"

	"campaignhub/internal/models"
	"campaignhub/internal/repository"
	"campaignhub/internal/service"
)

// CampaignHandler handles HTTP requests for campaign operations
type CampaignHandler struct {
	campaignService *service.CampaignService
	trackerService  *service.TrackerService
	logger          logrus.FieldLogger
}

// NewCampaignHandler creates a new campaign handler
func NewCampaignHandler(campaignService *service.CampaignService, trackerService *service.TrackerService, logger logrus.FieldLogger) *CampaignHandler {
	return &CampaignHandler{
		campaignService: campaignService,
		trackerService:  trackerService,
		logger:          logger,
	}
}

// Create handles POST /campaigns. Dispatch to the segment starts in the
// background once the campaign is stored.
func (h *CampaignHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req service.CreateCampaignRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	campaign, err := h.campaignService.CreateCampaign(r.Context(), &req)
	if err != nil {
		HandleServiceError(w, r, h.logger, err)
		return
	}

	WriteCreated(w, campaign)
}

// List handles GET /campaigns with page, per_page and segment_id query parameters
func (h *CampaignHandler) List(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	page := 1
	if pageStr := query.Get("page"); pageStr != "" {
		if p, err := strconv.Atoi(pageStr); err == nil && p > 0 {
			page = p
		}
	}

	perPage := 20
	if perPageStr := query.Get("per_page"); perPageStr != "" {
		if pp, err := strconv.Atoi(perPageStr); err == nil && pp > 0 {
			perPage = pp
		}
	}
	if perPage > 100 {
		perPage = 100
	}

	filters := repository.CampaignFilters{
		Page:     page,
		PageSize: perPage,
	}

	if segmentStr := query.Get("segment_id"); segmentStr != "" {
		segmentID, err := strconv.Atoi(segmentStr)
		if err != nil || segmentID <= 0 {
			WriteValidationError(w, "segment_id must be a positive integer")
			return
		}
		filters.SegmentID = &segmentID
	}

	campaigns, pagination, err := h.campaignService.ListCampaigns(r.Context(), filters)
	if err != nil {
		HandleServiceError(w, r, h.logger, err)
		return
	}

	WriteOK(w, ListCampaignsResponse{
		Campaigns:  campaigns,
		Pagination: pagination,
	})
}

// GetByID handles GET /campaigns/{id}
func (h *CampaignHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "campaign")
	if !ok {
		return
	}

	campaign, err := h.campaignService.GetCampaignWithStats(r.Context(), id)
	if err != nil {
		HandleServiceError(w, r, h.logger, err)
		return
	}

	WriteOK(w, campaign)
}

// Stats handles GET /campaigns/{id}/stats
func (h *CampaignHandler) Stats(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "campaign")
	if !ok {
		return
	}

	stats, err := h.trackerService.Stats(r.Context(), id)
	if err != nil {
		HandleServiceError(w, r, h.logger, err)
		return
	}

	WriteOK(w, stats)
}

// Logs handles GET /campaigns/{id}/logs
func (h *CampaignHandler) Logs(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "campaign")
	if !ok {
		return
	}

	logs, err := h.trackerService.Logs(r.Context(), id)
	if err != nil {
		HandleServiceError(w, r, h.logger, err)
		return
	}

	WriteOK(w, CampaignLogsResponse{CampaignID: id, Logs: logs})
}

// Dispatch handles POST /campaigns/{id}/dispatch, sending only to
// recipients that have no delivery log yet
func (h *CampaignHandler) Dispatch(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "campaign")
	if !ok {
		return
	}

	result, err := h.campaignService.Redispatch(r.Context(), id)
	if err != nil {
		HandleServiceError(w, r, h.logger, err)
		return
	}

	WriteJSON(w, http.StatusAccepted, result)
}

// ListCampaignsResponse represents the response for listing campaigns
type ListCampaignsResponse struct {
	Campaigns  []*models.Campaign      `json:"campaigns"`
	Pagination *service.PaginationInfo `json:"pagination"`
}

// CampaignLogsResponse lists the delivery logs of one campaign
type CampaignLogsResponse struct {
	CampaignID int                   `json:"campaignId"`
	Logs       []*models.DeliveryLog `json:"logs"`
}
