package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestConfigHandler_Get(t *testing.T) {
	svc, _ := newTestService(t)
	enroll(t, svc, "TI-001", "Ayu Lestari", vec(0.1))
	handler := NewConfigHandler(testConfig(), svc)

	recorder := httptest.NewRecorder()
	handler.Get(recorder, httptest.NewRequest("GET", "/api/v1/config", nil))

	assertStatusCode(t, recorder, http.StatusOK)
	var resp ConfigResponse
	parseJSONResponse(t, recorder, &resp)

	if resp.RecognitionThreshold != 0.6 || resp.DuplicateThreshold != 0.35 || resp.DescriptorDim != testDim {
		t.Errorf("unexpected matching policy %+v", resp)
	}
	if resp.Cutoff != "08:00:00" || resp.Timezone != "Asia/Jakarta" {
		t.Errorf("cutoff/timezone = %s / %s", resp.Cutoff, resp.Timezone)
	}
	if resp.Identities != 1 || resp.Descriptors != 1 || resp.RefreshedAt == "" {
		t.Errorf("cache state = %+v", resp)
	}
	if resp.AuthEnabled {
		t.Error("auth should be reported as disabled")
	}
}

func TestFormatClock(t *testing.T) {
	if got := formatClock(7*3600e9 + 30*60e9 + 5e9); got != "07:30:05" {
		t.Errorf("formatClock() = %q", got)
	}
}
