package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"studyflow-backend/internal/middleware"
	"studyflow-backend/internal/services"
)

// ─── Error Mapping ───

func TestHandleServiceErrorStatusCodes(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"validation", &services.ValidationError{Fields: map[string]string{"name": "required"}}, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"conflict", &services.ConflictError{Message: "already exists"}, http.StatusConflict, "CONFLICT"},
		{"not found", &services.NotFoundError{Message: "missing"}, http.StatusNotFound, "NOT_FOUND"},
		{"unauthorized", &services.UnauthorizedError{Message: "bad credentials"}, http.StatusUnauthorized, "UNAUTHORIZED"},
		{"forbidden", &services.ForbiddenError{Message: "not yours"}, http.StatusForbidden, "FORBIDDEN"},
		{"rate limited", &services.RateLimitError{Message: "slow down"}, http.StatusTooManyRequests, "RATE_LIMITED"},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			rr := httptest.NewRecorder()

			handleServiceError(rr, req, tc.err)

			if rr.Code != tc.status {
				t.Errorf("Expected status %d, got %d", tc.status, rr.Code)
			}

			var resp map[string]map[string]interface{}
			if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
				t.Fatalf("Failed to decode response: %v", err)
			}
			if resp["error"]["code"] != tc.code {
				t.Errorf("Expected code %q, got %v", tc.code, resp["error"]["code"])
			}
		})
	}
}

func TestErrorResponseCarriesRequestID(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "req-123")

	resp := errorResp("NOT_FOUND", "Study not found", req)

	if resp.Error.RequestID != "req-123" {
		t.Errorf("Expected request id 'req-123', got %q", resp.Error.RequestID)
	}
	if resp.Error.Code != "NOT_FOUND" {
		t.Errorf("Expected code NOT_FOUND, got %q", resp.Error.Code)
	}
}

// ─── Timer Handler Validation ───

func postJSON(t *testing.T, target string, body interface{}) *http.Request {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("Failed to marshal body: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, target, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func withURLParam(req *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func TestTimerStartRejectsBadInput(t *testing.T) {
	h := NewTimerHandler(nil, nil, nil, nil, nil)

	tests := []struct {
		name string
		body map[string]string
	}{
		{"garbage session id", map[string]string{"session_id": "not-a-uuid", "topic_id": "11111111-1111-1111-1111-111111111111"}},
		{"garbage topic id", map[string]string{"session_id": "11111111-1111-1111-1111-111111111111", "topic_id": "nope"}},
		{"bad session type", map[string]string{
			"session_id":   "11111111-1111-1111-1111-111111111111",
			"topic_id":     "22222222-2222-2222-2222-222222222222",
			"session_type": "cramming",
		}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := postJSON(t, "/api/v1/timer/start", tc.body)
			rr := httptest.NewRecorder()

			h.Start(rr, req)

			if rr.Code != http.StatusBadRequest {
				t.Errorf("Expected 400, got %d", rr.Code)
			}
		})
	}
}

func TestTimerStartRejectsInvalidJSON(t *testing.T) {
	h := NewTimerHandler(nil, nil, nil, nil, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/timer/start", strings.NewReader("{nope"))
	rr := httptest.NewRecorder()

	h.Start(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Errorf("Expected 400, got %d", rr.Code)
	}
}

func TestTimerHeartbeatRejectsBadSessionID(t *testing.T) {
	h := NewTimerHandler(nil, nil, nil, nil, nil)

	req := postJSON(t, "/api/v1/timer/xyz/heartbeat", map[string]int64{"elapsed_ms": 1000})
	req = withURLParam(req, "id", "xyz")
	rr := httptest.NewRecorder()

	h.Heartbeat(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Errorf("Expected 400, got %d", rr.Code)
	}
}

func TestTimerTotalsRequiresTopicIDs(t *testing.T) {
	h := NewTimerHandler(nil, nil, nil, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/timer/totals", nil)
	rr := httptest.NewRecorder()

	h.Totals(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Errorf("Expected 400, got %d", rr.Code)
	}
}

func TestTimerTotalsRejectsMalformedIDs(t *testing.T) {
	h := NewTimerHandler(nil, nil, nil, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/timer/totals?topic_ids=abc,def", nil)
	rr := httptest.NewRecorder()

	h.Totals(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Errorf("Expected 400, got %d", rr.Code)
	}
}

// Beacon must never surface errors: nothing is listening for the answer.
func TestBeaconSwallowsBadToken(t *testing.T) {
	jwtAuth := middleware.NewJWTAuth("test-secret")
	h := NewTimerHandler(nil, nil, nil, nil, jwtAuth)

	req := postJSON(t, "/api/v1/timer/beacon", map[string]interface{}{
		"session_id":  "11111111-1111-1111-1111-111111111111",
		"duration_ms": 5000,
		"token":       "garbage",
	})
	rr := httptest.NewRecorder()

	h.Beacon(rr, req)

	if rr.Code != http.StatusNoContent {
		t.Errorf("Expected 204 even for a bad token, got %d", rr.Code)
	}
}

func TestBeaconSwallowsInvalidJSON(t *testing.T) {
	h := NewTimerHandler(nil, nil, nil, nil, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/timer/beacon", strings.NewReader("}{"))
	rr := httptest.NewRecorder()

	h.Beacon(rr, req)

	if rr.Code != http.StatusNoContent {
		t.Errorf("Expected 204 for invalid JSON, got %d", rr.Code)
	}
}

// ─── Study Handler Validation ───

func TestCreateStudyRequiresName(t *testing.T) {
	h := NewStudyHandler(nil, nil, nil)

	req := postJSON(t, "/api/v1/studies", map[string]string{"name": "   "})
	rr := httptest.NewRecorder()

	h.CreateStudy(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Errorf("Expected 400, got %d", rr.Code)
	}

	var resp map[string]map[string]interface{}
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	fields, _ := resp["error"]["fields"].(map[string]interface{})
	if _, ok := fields["name"]; !ok {
		t.Error("Expected a field-level error for name")
	}
}

func TestCreateDisciplineRejectsBadStudyID(t *testing.T) {
	h := NewStudyHandler(nil, nil, nil)

	req := postJSON(t, "/api/v1/disciplines", map[string]string{"study_id": "nope", "name": "Math"})
	rr := httptest.NewRecorder()

	h.CreateDiscipline(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Errorf("Expected 400, got %d", rr.Code)
	}
}

// ─── Cycle Handler Validation ───

func TestCycleGetRejectsBadID(t *testing.T) {
	h := NewCycleHandler(nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/cycles/xyz", nil)
	req = withURLParam(req, "id", "xyz")
	rr := httptest.NewRecorder()

	h.Get(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Errorf("Expected 400, got %d", rr.Code)
	}
}

func TestRevisionScheduleRejectsBadTopicID(t *testing.T) {
	h := NewRevisionHandler(nil)

	req := postJSON(t, "/api/v1/revisions", map[string]string{"topic_id": "not-a-uuid"})
	rr := httptest.NewRecorder()

	h.Schedule(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Errorf("Expected 400, got %d", rr.Code)
	}
}
