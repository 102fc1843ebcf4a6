package handler

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"campaignhub/internal/middleware"
)

// Handlers groups every HTTP handler served by the API
type Handlers struct {
	Segments   *SegmentHandler
	Campaigns  *CampaignHandler
	Deliveries *DeliveryHandler
	Health     *HealthHandler
}

// NewRouter registers all routes and wraps them in the middleware chain
func NewRouter(h Handlers, logger logrus.FieldLogger) http.Handler {
	router := mux.NewRouter()
	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		WriteError(w, http.StatusNotFound, CodeNotFound, "route not found")
	})
	router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		WriteError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed")
	})

	router.HandleFunc("/health", h.Health.HandleHealth).Methods(http.MethodGet)

	segments := router.PathPrefix("/segments").Subrouter()
	segments.HandleFunc("", h.Segments.Create).Methods(http.MethodPost)
	segments.HandleFunc("", h.Segments.List).Methods(http.MethodGet)
	segments.HandleFunc("/preview", h.Segments.Preview).Methods(http.MethodPost)
	segments.HandleFunc("/suggest-rules", h.Segments.SuggestRules).Methods(http.MethodPost)
	segments.HandleFunc("/{id}", h.Segments.GetByID).Methods(http.MethodGet)
	segments.HandleFunc("/{id}/refresh-audience", h.Segments.RefreshAudience).Methods(http.MethodPost)

	campaigns := router.PathPrefix("/campaigns").Subrouter()
	campaigns.HandleFunc("", h.Campaigns.Create).Methods(http.MethodPost)
	campaigns.HandleFunc("", h.Campaigns.List).Methods(http.MethodGet)
	campaigns.HandleFunc("/{id}", h.Campaigns.GetByID).Methods(http.MethodGet)
	campaigns.HandleFunc("/{id}/stats", h.Campaigns.Stats).Methods(http.MethodGet)
	campaigns.HandleFunc("/{id}/logs", h.Campaigns.Logs).Methods(http.MethodGet)
	campaigns.HandleFunc("/{id}/dispatch", h.Campaigns.Dispatch).Methods(http.MethodPost)

	router.HandleFunc("/delivery-receipts", h.Deliveries.Receipt).Methods(http.MethodPost)

	router.Use(middleware.Recovery(logger))
	router.Use(middleware.RequestLogger(logger))

	return router
}
