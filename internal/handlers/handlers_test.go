package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"aprovaai-backend/internal/services"
)

// ─── Shared Helper Tests ───

func TestWriteJSON(t *testing.T) {
	rr := httptest.NewRecorder()

	writeJSON(rr, http.StatusCreated, map[string]string{"message": "ok"})

	if rr.Code != http.StatusCreated {
		t.Errorf("Expected status 201, got %d", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Expected Content-Type 'application/json', got %q", ct)
	}

	var body map[string]string
	if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if body["message"] != "ok" {
		t.Errorf("Expected message 'ok', got %q", body["message"])
	}
}

func TestErrorRespCarriesRequestID(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/documents", nil)
	req.Header.Set("X-Request-ID", "req-123")

	resp := errorResp("NOT_FOUND", "Document not found", req)

	if resp.Error.Code != "NOT_FOUND" {
		t.Errorf("Expected code NOT_FOUND, got %q", resp.Error.Code)
	}
	if resp.Error.RequestID != "req-123" {
		t.Errorf("Expected request ID 'req-123', got %q", resp.Error.RequestID)
	}
}

func TestHandleServiceError_StatusMapping(t *testing.T) {
	tests := []struct {
		name         string
		err          error
		expectedCode int
		expectedType string
	}{
		{"validation", &services.ValidationError{Fields: map[string]string{"email": "Email is required"}}, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"conflict", &services.ConflictError{Message: "Email already registered"}, http.StatusConflict, "CONFLICT"},
		{"not found", &services.NotFoundError{Message: "Study plan not found"}, http.StatusNotFound, "NOT_FOUND"},
		{"unauthorized", &services.UnauthorizedError{Message: "Invalid credentials"}, http.StatusUnauthorized, "UNAUTHORIZED"},
		{"forbidden", &services.ForbiddenError{Message: "Access denied"}, http.StatusForbidden, "FORBIDDEN"},
		{"rate limited", &services.RateLimitError{Message: "Too many requests"}, http.StatusTooManyRequests, "RATE_LIMITED"},
		{"unknown", errors.New("database exploded"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/study-plans", nil)
			rr := httptest.NewRecorder()

			handleServiceError(rr, req, tc.err)

			if rr.Code != tc.expectedCode {
				t.Errorf("Expected status %d, got %d", tc.expectedCode, rr.Code)
			}

			var body struct {
				Error struct {
					Code    string            `json:"code"`
					Message string            `json:"message"`
					Fields  map[string]string `json:"fields"`
				} `json:"error"`
			}
			if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
				t.Fatalf("Failed to decode response: %v", err)
			}
			if body.Error.Code != tc.expectedType {
				t.Errorf("Expected error code %q, got %q", tc.expectedType, body.Error.Code)
			}
		})
	}
}

func TestHandleServiceError_ValidationFields(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/register", nil)
	rr := httptest.NewRecorder()

	handleServiceError(rr, req, &services.ValidationError{
		Fields: map[string]string{"password": "Password must be at least 8 characters"},
	})

	var body struct {
		Error struct {
			Fields map[string]string `json:"fields"`
		} `json:"error"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if body.Error.Fields["password"] == "" {
		t.Error("Expected password field error in response")
	}
}

// ─── Internal error message leakage ───

func TestHandleServiceError_HidesInternalDetails(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/dashboard/stats", nil)
	rr := httptest.NewRecorder()

	handleServiceError(rr, req, errors.New("pq: connection refused at 10.0.0.5"))

	var body struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if body.Error.Message != "An unexpected error occurred" {
		t.Errorf("Internal error details leaked: %q", body.Error.Message)
	}
}
