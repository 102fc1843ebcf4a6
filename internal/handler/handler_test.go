package handler_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"

	"campaignhub/internal/cache"
	"campaignhub/internal/handler"
	"campaignhub/internal/models"
	"campaignhub/internal/rules"
	"campaignhub/internal/service"
	"campaignhub/internal/testutil"
)

type nopSubmitter struct {
	mu   sync.Mutex
	jobs []models.DeliveryJob
}

func (s *nopSubmitter) Submit(ctx context.Context, job models.DeliveryJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs = append(s.jobs, job)
	return nil
}

type stubSuggester struct {
	rules models.RuleSet
}

func (s stubSuggester) SuggestRules(ctx context.Context, prompt string) (models.RuleSet, error) {
	return s.rules, nil
}

type apiFixture struct {
	segments   *testutil.MockSegmentRepository
	campaigns  *testutil.MockCampaignRepository
	deliveries *testutil.MemoryDeliveryRepository
	submitter  *nopSubmitter
	router     http.Handler
}

// newAPIFixture wires the router over in-memory repositories: ten customers
// with spend 100..1000 and segment 1 "High spenders" (spend > 1000, empty)
func newAPIFixture(t *testing.T, suggester service.RuleSuggester, dbUp bool) *apiFixture {
	t.Helper()
	logger, _ := test.NewNullLogger()

	f := &apiFixture{
		segments:   testutil.NewMockSegmentRepository(testutil.NewTestSegment()),
		campaigns:  testutil.NewMockCampaignRepository(),
		deliveries: testutil.NewMemoryDeliveryRepository(),
		submitter:  &nopSubmitter{},
	}
	customers := testutil.NewMockCustomerRepository(testutil.NewTestCustomers(10)...)
	evaluator := rules.NewEvaluator(logger)
	audienceCache := cache.NewMemoryCache(time.Hour)

	dispatcher := service.NewDispatcher(f.segments, customers, f.deliveries, evaluator, audienceCache, f.submitter, logger)
	segmentSvc := service.NewSegmentService(f.segments, customers, evaluator, audienceCache, suggester, logger)
	campaignSvc := service.NewCampaignService(f.campaigns, f.segments, f.deliveries, dispatcher, logger, service.WithSynchronousDispatch())
	trackerSvc := service.NewTrackerService(f.campaigns, f.deliveries, 1, logger)

	db := service.PingFunc(func(ctx context.Context) error {
		if !dbUp {
			return errors.New("connection refused")
		}
		return nil
	})
	healthSvc := service.NewHealthService(db, service.PingFunc(audienceCache.Ping), "", "test")

	f.router = handler.NewRouter(handler.Handlers{
		Segments:   handler.NewSegmentHandler(segmentSvc, logger),
		Campaigns:  handler.NewCampaignHandler(campaignSvc, trackerSvc, logger),
		Deliveries: handler.NewDeliveryHandler(trackerSvc, logger),
		Health:     handler.NewHealthHandler(healthSvc),
	}, logger)
	return f
}

func (f *apiFixture) do(t *testing.T, method, url string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	resp := httptest.NewRecorder()
	f.router.ServeHTTP(resp, testutil.NewJSONRequest(t, method, url, body))
	return resp
}

func assertErrorBody(t *testing.T, resp *httptest.ResponseRecorder, status int, code, message string) {
	t.Helper()
	testutil.AssertStatusCode(t, resp, status)
	testutil.AssertJSONContentType(t, resp)

	var body handler.ErrorResponse
	testutil.ParseJSONResponse(t, resp, &body)
	testutil.AssertEqual(t, body.Code, code)
	if message != "" {
		testutil.AssertEqual(t, body.Error, message)
	}
}

var midSpenders = models.RuleSet{{Field: models.FieldSpend, Operator: models.OpGreaterThan, Value: "700"}}

// ==================== Segments ====================

func TestAPI_CreateSegment_Success(t *testing.T) {
	f := newAPIFixture(t, nil, true)

	resp := f.do(t, http.MethodPost, "/segments", map[string]interface{}{"name": "Top three", "rules": midSpenders})

	testutil.AssertStatusCode(t, resp, http.StatusCreated)
	var segment models.Segment
	testutil.ParseJSONResponse(t, resp, &segment)
	testutil.AssertEqual(t, segment.ID, 2)
	testutil.AssertEqual(t, segment.Name, "Top three")
	testutil.AssertEqual(t, segment.Rules, midSpenders)
}

func TestAPI_CreateSegment_Errors(t *testing.T) {
	tests := []struct {
		name    string
		body    interface{}
		status  int
		code    string
		message string
	}{
		{
			name:    "empty name",
			body:    map[string]interface{}{"name": "", "rules": midSpenders},
			status:  http.StatusBadRequest,
			code:    handler.CodeValidation,
			message: "name is required",
		},
		{
			name:    "no rules",
			body:    map[string]interface{}{"name": "Nobody"},
			status:  http.StatusBadRequest,
			code:    handler.CodeValidation,
			message: "at least one rule is required",
		},
		{
			name:   "duplicate name",
			body:   map[string]interface{}{"name": "High spenders", "rules": midSpenders},
			status: http.StatusConflict,
			code:   handler.CodeConflict,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newAPIFixture(t, nil, true)
			resp := f.do(t, http.MethodPost, "/segments", tt.body)
			assertErrorBody(t, resp, tt.status, tt.code, tt.message)
		})
	}
}

func TestAPI_CreateSegment_InvalidJSON(t *testing.T) {
	f := newAPIFixture(t, nil, true)

	req := httptest.NewRequest(http.MethodPost, "/segments", strings.NewReader(`{"name":`))
	resp := httptest.NewRecorder()
	f.router.ServeHTTP(resp, req)

	assertErrorBody(t, resp, http.StatusBadRequest, handler.CodeInvalidJSON, "Invalid JSON format")
}

func TestAPI_CreateSegment_EmptyBody(t *testing.T) {
	f := newAPIFixture(t, nil, true)

	resp := f.do(t, http.MethodPost, "/segments", nil)

	assertErrorBody(t, resp, http.StatusBadRequest, handler.CodeInvalidJSON, "Request body is empty")
}

func TestAPI_ListSegments(t *testing.T) {
	f := newAPIFixture(t, nil, true)

	resp := f.do(t, http.MethodGet, "/segments", nil)

	testutil.AssertStatusCode(t, resp, http.StatusOK)
	var body handler.ListSegmentsResponse
	testutil.ParseJSONResponse(t, resp, &body)
	testutil.AssertEqual(t, len(body.Segments), 1)
	testutil.AssertNil(t, body.Segments[0].AudienceSize)
}

func TestAPI_GetSegment(t *testing.T) {
	f := newAPIFixture(t, nil, true)

	testutil.AssertStatusCode(t, f.do(t, http.MethodGet, "/segments/1", nil), http.StatusOK)
	assertErrorBody(t, f.do(t, http.MethodGet, "/segments/9", nil), http.StatusNotFound, handler.CodeNotFound, "segment with ID 9 not found")
	assertErrorBody(t, f.do(t, http.MethodGet, "/segments/abc", nil), http.StatusBadRequest, handler.CodeValidation, "invalid segment ID")
}

func TestAPI_PreviewSegment(t *testing.T) {
	f := newAPIFixture(t, nil, true)

	resp := f.do(t, http.MethodPost, "/segments/preview", map[string]interface{}{"rules": midSpenders})

	testutil.AssertStatusCode(t, resp, http.StatusOK)
	var result service.PreviewResult
	testutil.ParseJSONResponse(t, resp, &result)
	testutil.AssertEqual(t, result.AudienceSize, 3)
	testutil.AssertEqual(t, f.segments.CallCount("Create"), 0)
}

func TestAPI_PreviewSegment_InvalidOperator(t *testing.T) {
	f := newAPIFixture(t, nil, true)

	resp := f.do(t, http.MethodPost, "/segments/preview", map[string]interface{}{
		"rules": []map[string]string{{"field": "spend", "operator": "between", "value": "1"}},
	})

	assertErrorBody(t, resp, http.StatusBadRequest, handler.CodeValidation, "")
}

func TestAPI_RefreshAudience(t *testing.T) {
	f := newAPIFixture(t, nil, true)

	resp := f.do(t, http.MethodPost, "/segments/1/refresh-audience", nil)

	testutil.AssertStatusCode(t, resp, http.StatusOK)
	var segment models.Segment
	testutil.ParseJSONResponse(t, resp, &segment)
	testutil.AssertEqual(t, *segment.AudienceSize, 0)
}

func TestAPI_SuggestRules(t *testing.T) {
	t.Run("not configured", func(t *testing.T) {
		f := newAPIFixture(t, nil, true)
		resp := f.do(t, http.MethodPost, "/segments/suggest-rules", map[string]string{"prompt": "big spenders"})
		assertErrorBody(t, resp, http.StatusServiceUnavailable, handler.CodeUnavailable, "rule suggestion service is unavailable")
	})

	t.Run("configured", func(t *testing.T) {
		f := newAPIFixture(t, stubSuggester{rules: midSpenders}, true)
		resp := f.do(t, http.MethodPost, "/segments/suggest-rules", map[string]string{"prompt": "big spenders"})

		testutil.AssertStatusCode(t, resp, http.StatusOK)
		var body handler.SuggestRulesResponse
		testutil.ParseJSONResponse(t, resp, &body)
		testutil.AssertEqual(t, body.Rules, midSpenders)
	})
}

// ==================== Campaigns ====================

func createCampaign(t *testing.T, f *apiFixture, segmentID int) models.Campaign {
	t.Helper()
	resp := f.do(t, http.MethodPost, "/campaigns", map[string]interface{}{
		"name":      "Flash sale",
		"segmentId": segmentID,
		"message":   "Hi {name}, 30% off today",
	})
	testutil.AssertStatusCode(t, resp, http.StatusCreated)

	var campaign models.Campaign
	testutil.ParseJSONResponse(t, resp, &campaign)
	return campaign
}

func TestAPI_CreateCampaign_DispatchesToSegment(t *testing.T) {
	f := newAPIFixture(t, nil, true)
	segment := f.do(t, http.MethodPost, "/segments", map[string]interface{}{"name": "Top three", "rules": midSpenders})
	testutil.AssertStatusCode(t, segment, http.StatusCreated)

	campaign := createCampaign(t, f, 2)

	testutil.AssertEqual(t, campaign.ID, 1)
	testutil.AssertEqual(t, campaign.SegmentID, 2)
	testutil.AssertEqual(t, f.deliveries.Len(), 3)
	testutil.AssertEqual(t, len(f.submitter.jobs), 3)
}

func TestAPI_CreateCampaign_Errors(t *testing.T) {
	tests := []struct {
		name   string
		body   map[string]interface{}
		status int
		code   string
	}{
		{name: "empty message", body: map[string]interface{}{"name": "x", "segmentId": 1, "message": ""}, status: http.StatusBadRequest, code: handler.CodeValidation},
		{name: "missing segment id", body: map[string]interface{}{"name": "x", "message": "hi"}, status: http.StatusBadRequest, code: handler.CodeValidation},
		{name: "unknown segment", body: map[string]interface{}{"name": "x", "segmentId": 42, "message": "hi"}, status: http.StatusNotFound, code: handler.CodeNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newAPIFixture(t, nil, true)
			assertErrorBody(t, f.do(t, http.MethodPost, "/campaigns", tt.body), tt.status, tt.code, "")
			testutil.AssertEqual(t, f.campaigns.CallCount("Create"), 0)
		})
	}
}

func TestAPI_ListCampaigns(t *testing.T) {
	f := newAPIFixture(t, nil, true)
	createCampaign(t, f, 1)
	createCampaign(t, f, 1)

	resp := f.do(t, http.MethodGet, "/campaigns?page=1&per_page=1&segment_id=1", nil)

	testutil.AssertStatusCode(t, resp, http.StatusOK)
	var body handler.ListCampaignsResponse
	testutil.ParseJSONResponse(t, resp, &body)
	testutil.AssertEqual(t, len(body.Campaigns), 1)
	testutil.AssertEqual(t, body.Pagination.TotalCount, 2)
	testutil.AssertEqual(t, body.Pagination.TotalPages, 2)
}

func TestAPI_ListCampaigns_InvalidSegmentFilter(t *testing.T) {
	f := newAPIFixture(t, nil, true)

	resp := f.do(t, http.MethodGet, "/campaigns?segment_id=abc", nil)

	assertErrorBody(t, resp, http.StatusBadRequest, handler.CodeValidation, "segment_id must be a positive integer")
}

func TestAPI_CampaignStatsAndLogs(t *testing.T) {
	f := newAPIFixture(t, nil, true)
	campaign := createCampaign(t, f, 1)
	f.deliveries.Seed(campaign.ID, 8, models.DeliveryStatusSent, 1)
	f.deliveries.Seed(campaign.ID, 9, models.DeliveryStatusFailed, 1)
	f.deliveries.Seed(campaign.ID, 10, models.DeliveryStatusPending, 0)

	resp := f.do(t, http.MethodGet, "/campaigns/1/stats", nil)
	testutil.AssertStatusCode(t, resp, http.StatusOK)
	var stats models.CampaignStats
	testutil.ParseJSONResponse(t, resp, &stats)
	testutil.AssertEqual(t, stats, models.CampaignStats{Total: 3, Sent: 1, Failed: 1, Pending: 1})

	resp = f.do(t, http.MethodGet, "/campaigns/1/logs", nil)
	testutil.AssertStatusCode(t, resp, http.StatusOK)
	var logs handler.CampaignLogsResponse
	testutil.ParseJSONResponse(t, resp, &logs)
	testutil.AssertEqual(t, logs.CampaignID, 1)
	testutil.AssertEqual(t, len(logs.Logs), 3)
	testutil.AssertEqual(t, logs.Logs[0].CustomerID, 8)

	resp = f.do(t, http.MethodGet, "/campaigns/1", nil)
	testutil.AssertStatusCode(t, resp, http.StatusOK)
	var withStats models.CampaignWithStats
	testutil.ParseJSONResponse(t, resp, &withStats)
	testutil.AssertEqual(t, withStats.Stats.Total, 3)
}

func TestAPI_CampaignStats_UnknownCampaign(t *testing.T) {
	f := newAPIFixture(t, nil, true)

	assertErrorBody(t, f.do(t, http.MethodGet, "/campaigns/5/stats", nil), http.StatusNotFound, handler.CodeNotFound, "campaign with ID 5 not found")
	assertErrorBody(t, f.do(t, http.MethodGet, "/campaigns/5/logs", nil), http.StatusNotFound, handler.CodeNotFound, "")
	assertErrorBody(t, f.do(t, http.MethodGet, "/campaigns/0/stats", nil), http.StatusBadRequest, handler.CodeValidation, "invalid campaign ID")
}

func TestAPI_DispatchCampaign(t *testing.T) {
	f := newAPIFixture(t, nil, true)
	createCampaign(t, f, 1)

	resp := f.do(t, http.MethodPost, "/campaigns/1/dispatch", nil)

	testutil.AssertStatusCode(t, resp, http.StatusAccepted)
	var result service.DispatchResult
	testutil.ParseJSONResponse(t, resp, &result)
	testutil.AssertEqual(t, result.CampaignID, 1)
	testutil.AssertEqual(t, result.Created, 0)
}

// ==================== Delivery receipts ====================

func TestAPI_DeliveryReceipt(t *testing.T) {
	f := newAPIFixture(t, nil, true)
	campaign := createCampaign(t, f, 1)
	f.deliveries.Seed(campaign.ID, 4, models.DeliveryStatusPending, 0)

	resp := f.do(t, http.MethodPost, "/delivery-receipts", map[string]interface{}{
		"campaignId": campaign.ID,
		"customerId": 4,
		"status":     "FAILED",
		"error":      "handset unreachable",
	})

	testutil.AssertStatusCode(t, resp, http.StatusOK)
	var log models.DeliveryLog
	testutil.ParseJSONResponse(t, resp, &log)
	testutil.AssertEqual(t, log.Status, models.DeliveryStatusFailed)
	testutil.AssertEqual(t, log.Attempts, 1)
	testutil.AssertEqual(t, *log.LastError, "handset unreachable")
}

func TestAPI_DeliveryReceipt_Errors(t *testing.T) {
	f := newAPIFixture(t, nil, true)
	createCampaign(t, f, 1)

	assertErrorBody(t, f.do(t, http.MethodPost, "/delivery-receipts", map[string]interface{}{
		"campaignId": 1, "customerId": 4, "status": "PENDING",
	}), http.StatusBadRequest, handler.CodeValidation, "status must be SENT or FAILED")

	assertErrorBody(t, f.do(t, http.MethodPost, "/delivery-receipts", map[string]interface{}{
		"campaignId": 1, "customerId": 99, "status": "SENT",
	}), http.StatusNotFound, handler.CodeNotFound, "")
}

// ==================== Health and routing ====================

func TestAPI_Health(t *testing.T) {
	resp := newAPIFixture(t, nil, true).do(t, http.MethodGet, "/health", nil)
	testutil.AssertStatusCode(t, resp, http.StatusOK)

	var status service.HealthStatus
	testutil.ParseJSONResponse(t, resp, &status)
	testutil.AssertEqual(t, status.Status, service.StatusHealthy)
	testutil.AssertEqual(t, status.Services["queue"], service.StatusDisabled)

	resp = newAPIFixture(t, nil, false).do(t, http.MethodGet, "/health", nil)
	testutil.AssertStatusCode(t, resp, http.StatusServiceUnavailable)
}

func TestAPI_UnknownRoute(t *testing.T) {
	f := newAPIFixture(t, nil, true)

	assertErrorBody(t, f.do(t, http.MethodGet, "/nope", nil), http.StatusNotFound, handler.CodeNotFound, "route not found")
	testutil.AssertStatusCode(t, f.do(t, http.MethodDelete, "/segments", nil), http.StatusMethodNotAllowed)
}

func TestHandleServiceError_InternalHidesDetails(t *testing.T) {
	logger, hook := test.NewNullLogger()
	resp := httptest.NewRecorder()

	handler.HandleServiceError(resp, httptest.NewRequest(http.MethodGet, "/segments", nil), logger, errors.New("pq: password authentication failed"))

	assertErrorBody(t, resp, http.StatusInternalServerError, handler.CodeInternal, "An internal error occurred")
	testutil.AssertEqual(t, hook.LastEntry().Level, logrus.ErrorLevel)
}
