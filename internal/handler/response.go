package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"campaignhub/internal/service"
)

// Error codes carried next to the message in error bodies
const (
	CodeValidation  = "VALIDATION_ERROR"
	CodeInvalidJSON = "INVALID_JSON"
	CodeNotFound    = "RESOURCE_NOT_FOUND"
	CodeConflict    = "CONFLICT"
	CodeUnavailable = "SERVICE_UNAVAILABLE"
	CodeInternal    = "INTERNAL_ERROR"
)

const maxRequestBodyMB = 1

// ErrorResponse represents the standard error response structure
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// WriteJSON writes a JSON response with the given status code
func WriteJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if data == nil {
		return
	}

	if err := json.NewEncoder(w).Encode(data); err != nil {
		logrus.WithError(err).Error("failed to encode JSON response")
	}
}

// WriteError writes a JSON error body with a human-readable message
func WriteError(w http.ResponseWriter, status int, code, message string) {
	WriteJSON(w, status, ErrorResponse{Error: message, Code: code})
}

// WriteCreated writes a 201 Created response with the given data
func WriteCreated(w http.ResponseWriter, data interface{}) {
	WriteJSON(w, http.StatusCreated, data)
}

// WriteOK writes a 200 OK response with the given data
func WriteOK(w http.ResponseWriter, data interface{}) {
	WriteJSON(w, http.StatusOK, data)
}

// WriteValidationError writes a 400 Bad Request response with VALIDATION_ERROR code
func WriteValidationError(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusBadRequest, CodeValidation, message)
}

// WriteInternalError hides internal details from the client
func WriteInternalError(w http.ResponseWriter) {
	WriteError(w, http.StatusInternalServerError, CodeInternal, "An internal error occurred")
}

// HandleServiceError maps service layer errors to HTTP responses
func HandleServiceError(w http.ResponseWriter, r *http.Request, logger logrus.FieldLogger, err error) {
	var (
		notFound    *service.NotFoundError
		validation  *service.ValidationError
		conflict    *service.ConflictError
		unavailable *service.UnavailableError
	)

	switch {
	case errors.As(err, &validation):
		WriteValidationError(w, validation.Message)
	case errors.As(err, &notFound):
		WriteError(w, http.StatusNotFound, CodeNotFound, notFound.Error())
	case errors.As(err, &conflict):
		WriteError(w, http.StatusConflict, CodeConflict, conflict.Message)
	case errors.As(err, &unavailable):
		logger.WithError(err).Warn("dependency unavailable")
		WriteError(w, http.StatusServiceUnavailable, CodeUnavailable, unavailable.Service+" is unavailable")
	default:
		logger.WithFields(logrus.Fields{
			"method": r.Method,
			"path":   r.URL.Path,
		}).WithError(err).Error("unhandled service error")
		WriteInternalError(w)
	}
}

// decodeJSON reads a bounded JSON body into dst, writing the error response on failure
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodyMB<<20)

	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			WriteError(w, http.StatusBadRequest, CodeInvalidJSON, "Request body is empty")
			return false
		}
		WriteError(w, http.StatusBadRequest, CodeInvalidJSON, "Invalid JSON format")
		return false
	}
	return true
}

// parseID reads a positive integer path variable
func parseID(w http.ResponseWriter, r *http.Request, resource string) (int, bool) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil || id <= 0 {
		WriteValidationError(w, "invalid "+resource+" ID")
		return 0, false
	}
	return id, true
}
