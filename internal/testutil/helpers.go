// Package testutil holds assertions, fixtures and HTTP helpers shared by package tests.
package testutil

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"campaignhub/internal/models"
)

// AssertNoError checks that no error occurred
func AssertNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Errorf("Expected no error but got: %v", err)
	}
}

// AssertError checks if error matches expected
func AssertError(t *testing.T, err error, expected string) {
	t.Helper()
	if err == nil {
		t.Errorf("Expected error %q but got nil", expected)
		return
	}
	if err.Error() != expected {
		t.Errorf("Expected error %q but got %q", expected, err.Error())
	}
}

// AssertEqual checks if two values are equal
func AssertEqual(t *testing.T, got, want interface{}) {
	t.Helper()
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Expected %v but got %v", want, got)
	}
}

// AssertNotNil checks if value is not nil
func AssertNotNil(t *testing.T, value interface{}) {
	t.Helper()
	if isNil(value) {
		t.Error("Expected non-nil value but got nil")
	}
}

// AssertNil checks if value is nil
func AssertNil(t *testing.T, value interface{}) {
	t.Helper()
	if !isNil(value) {
		t.Errorf("Expected nil but got %v", value)
	}
}

// AssertContains checks if string contains substring
func AssertContains(t *testing.T, haystack, needle string) {
	t.Helper()
	if !strings.Contains(haystack, needle) {
		t.Errorf("Expected %q to contain %q", haystack, needle)
	}
}

func isNil(value interface{}) bool {
	if value == nil {
		return true
	}
	v := reflect.ValueOf(value)
	switch v.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Slice, reflect.Interface, reflect.Func, reflect.Chan:
		return v.IsNil()
	}
	return false
}

// NewMockDB creates a mock database for testing
func NewMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("Failed to create mock DB: %v", err)
	}
	return db, mock
}

// NewJSONRequest creates an HTTP request with JSON body
func NewJSONRequest(t *testing.T, method, url string, body interface{}) *http.Request {
	t.Helper()
	var bodyReader io.Reader
	if body != nil {
		jsonBytes, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("Failed to marshal JSON: %v", err)
		}
		bodyReader = bytes.NewReader(jsonBytes)
	}

	req := httptest.NewRequest(method, url, bodyReader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req
}

// ParseJSONResponse parses JSON response body
func ParseJSONResponse(t *testing.T, resp *httptest.ResponseRecorder, target interface{}) {
	t.Helper()
	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		t.Fatalf("Failed to decode JSON response: %v", err)
	}
}

// AssertStatusCode checks HTTP response status code
func AssertStatusCode(t *testing.T, resp *httptest.ResponseRecorder, want int) {
	t.Helper()
	if resp.Code != want {
		t.Errorf("Expected status code %d but got %d (body: %s)", want, resp.Code, resp.Body.String())
	}
}

// AssertJSONContentType checks Content-Type header
func AssertJSONContentType(t *testing.T, resp *httptest.ResponseRecorder) {
	t.Helper()
	contentType := resp.Header().Get("Content-Type")
	if contentType != "application/json" {
		t.Errorf("Expected Content-Type application/json but got %s", contentType)
	}
}

// StringPtr returns a pointer to the given string
func StringPtr(s string) *string {
	return &s
}

// IntPtr returns a pointer to the given int
func IntPtr(i int) *int {
	return &i
}

// FloatPtr returns a pointer to the given float64
func FloatPtr(f float64) *float64 {
	return &f
}

// TimePtr returns a pointer to the given time
func TimePtr(t time.Time) *time.Time {
	return &t
}

// NewTestCustomer creates a customer with spend and inactivity attributes
func NewTestCustomer(id int, spend float64, inactiveDays int) *models.Customer {
	return &models.Customer{
		ID:           id,
		Name:         StringPtr(fmt.Sprintf("Customer %d", id)),
		Phone:        StringPtr(fmt.Sprintf("+25470000%04d", id)),
		Spend:        FloatPtr(spend),
		InactiveDays: IntPtr(inactiveDays),
		CreatedAt:    time.Now(),
	}
}

// NewTestCustomers creates count customers with ascending spend (100, 200, ...)
func NewTestCustomers(count int) []*models.Customer {
	customers := make([]*models.Customer, count)
	for i := 0; i < count; i++ {
		customers[i] = NewTestCustomer(i+1, float64((i+1)*100), (i+1)*10)
	}
	return customers
}

// NewTestSegment creates a segment selecting customers with spend > 1000
func NewTestSegment() *models.Segment {
	return &models.Segment{
		ID:   1,
		Name: "High spenders",
		Rules: models.RuleSet{
			{Field: models.FieldSpend, Operator: models.OpGreaterThan, Value: "1000"},
		},
		CreatedAt: time.Now(),
	}
}

// NewTestCampaign creates a campaign bound to segment 1
func NewTestCampaign() *models.Campaign {
	return &models.Campaign{
		ID:        1,
		Name:      "Win back",
		SegmentID: 1,
		Message:   "We miss you! Here is 10% off.",
		CreatedAt: time.Now(),
	}
}
