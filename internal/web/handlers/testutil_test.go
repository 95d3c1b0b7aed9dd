package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/kozaktomas/face-attendance/internal/attendance"
	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/database/mock"
)

const testDim = 4

// testConfig creates a minimal config for testing
func testConfig() *config.Config {
	return &config.Config{
		Matching: config.MatchingConfig{
			RecognitionThreshold: 0.6,
			DuplicateThreshold:   0.35,
			DescriptorDim:        testDim,
		},
		Attendance: config.AttendanceConfig{Cutoff: "08:00:00", Timezone: "Asia/Jakarta"},
		Database:   config.DatabaseConfig{Driver: "postgres"},
	}
}

func vec(x float32) []float32 {
	return []float32{x, 0, 0, 0}
}

// newTestService creates a service over an in-memory record store
func newTestService(t *testing.T, opts ...attendance.Option) (*attendance.Service, *mock.MockRecordStore) {
	t.Helper()
	store := mock.NewMockRecordStore()
	svc, err := attendance.NewService(store, nil, testConfig(), opts...)
	if err != nil {
		t.Fatalf("failed to create service: %v", err)
	}
	return svc, store
}

// enroll registers an identity through the service and fails the test otherwise
func enroll(t *testing.T, svc *attendance.Service, studentID, name string, descriptor []float32) *database.Identity {
	t.Helper()
	res, err := svc.Enroll(context.Background(), attendance.EnrollRequest{
		StudentID: studentID,
		Name:      name,
		Major:     "Informatics",
		Capture:   attendance.Capture{Descriptor: descriptor},
	})
	if err != nil || res.Outcome != attendance.EnrollOutcomeEnrolled {
		t.Fatalf("enroll %s: %v %v", studentID, res.Outcome, err)
	}
	return res.Identity
}

// jsonRequest creates a request with a JSON body
func jsonRequest(t *testing.T, method, path string, body any) *http.Request {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	return req
}

// requestWithChiParams creates a request with chi URL parameters
func requestWithChiParams(r *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for key, value := range params {
		rctx.URLParams.Add(key, value)
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// parseJSONResponse parses a JSON response body into the target type
func parseJSONResponse(t *testing.T, recorder *httptest.ResponseRecorder, target any) {
	t.Helper()
	if err := json.Unmarshal(recorder.Body.Bytes(), target); err != nil {
		t.Fatalf("failed to parse JSON response: %v\nBody: %s", err, recorder.Body.String())
	}
}

// assertStatusCode checks if the response has the expected status code
func assertStatusCode(t *testing.T, recorder *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if recorder.Code != expected {
		t.Errorf("expected status %d, got %d\nBody: %s", expected, recorder.Code, recorder.Body.String())
	}
}

// assertContentType checks if the response has the expected content type
func assertContentType(t *testing.T, recorder *httptest.ResponseRecorder, expected string) {
	t.Helper()
	ct := recorder.Header().Get("Content-Type")
	if ct != expected {
		t.Errorf("expected Content-Type '%s', got '%s'", expected, ct)
	}
}

// assertJSONError checks if the response is a JSON error with the expected message
func assertJSONError(t *testing.T, recorder *httptest.ResponseRecorder, expectedMessage string) {
	t.Helper()
	var result map[string]string
	if err := json.Unmarshal(recorder.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse error response: %v\nBody: %s", err, recorder.Body.String())
	}
	if result["error"] != expectedMessage {
		t.Errorf("expected error '%s', got '%s'", expectedMessage, result["error"])
	}
}
