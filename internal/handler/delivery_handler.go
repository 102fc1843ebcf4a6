package handler

import (
	"net/http"

	"github.com/sirupsen/logrus"

	"campaignhub/internal/service"
)

// DeliveryHandler accepts delivery receipts from the message channel
type DeliveryHandler struct {
	trackerService *service.TrackerService
	logger         logrus.FieldLogger
}

// NewDeliveryHandler creates a new delivery receipt handler
func NewDeliveryHandler(trackerService *service.TrackerService, logger logrus.FieldLogger) *DeliveryHandler {
	return &DeliveryHandler{
		trackerService: trackerService,
		logger:         logger,
	}
}

// Receipt handles POST /delivery-receipts
func (h *DeliveryHandler) Receipt(w http.ResponseWriter, r *http.Request) {
	var req service.RecordOutcomeRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	log, err := h.trackerService.RecordOutcome(r.Context(), &req)
	if err != nil {
		HandleServiceError(w, r, h.logger, err)
		return
	}

	WriteOK(w, log)
}
