package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5/middleware"
)

var (
	errInvalidConstraint = errors.New("invalid constraint")
	errUnavailable       = errors.New("dataset unavailable")
)

func testMapper() ErrorMapper {
	return NewErrorMapper(
		NewError("internal_error", "failed to process naming request", http.StatusInternalServerError),
		ErrorRule{Target: errInvalidConstraint, Code: "invalid_constraint", Status: http.StatusBadRequest},
		ErrorRule{Target: errUnavailable, Code: "service_unavailable", Status: http.StatusServiceUnavailable, Message: "naming service temporarily unavailable"},
	)
}

func TestErrorMapperMap(t *testing.T) {
	mapper := testMapper()

	tests := []struct {
		name    string
		err     error
		code    string
		status  int
		message string
	}{
		{
			name:    "wrapped sentinel keeps error text",
			err:     fmt.Errorf("%w: maxResults must be positive", errInvalidConstraint),
			code:    "invalid_constraint",
			status:  http.StatusBadRequest,
			message: "invalid constraint: maxResults must be positive",
		},
		{
			name:    "fixed message hides cause",
			err:     fmt.Errorf("list characters: %w", errUnavailable),
			code:    "service_unavailable",
			status:  http.StatusServiceUnavailable,
			message: "naming service temporarily unavailable",
		},
		{
			name:    "envelope passes through",
			err:     fmt.Errorf("resolve: %w", NewError("invalid_pinyin", "bad syllable", http.StatusBadRequest)),
			code:    "invalid_pinyin",
			status:  http.StatusBadRequest,
			message: "bad syllable",
		},
		{
			name:    "deadline",
			err:     fmt.Errorf("score: %w", context.DeadlineExceeded),
			code:    "request_timeout",
			status:  http.StatusGatewayTimeout,
			message: "request cancelled",
		},
		{
			name:    "fallback",
			err:     errors.New("boom"),
			code:    "internal_error",
			status:  http.StatusInternalServerError,
			message: "failed to process naming request",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := mapper.Map(tc.err)
			if got.Code != tc.code || got.Status != tc.status || got.Message != tc.message {
				t.Fatalf("expected %s/%d/%q, got %s/%d/%q", tc.code, tc.status, tc.message, got.Code, got.Status, got.Message)
			}
		})
	}
}

func TestErrorMapperWrite(t *testing.T) {
	ctx := context.WithValue(context.Background(), middleware.RequestIDKey, "req-123")
	rr := httptest.NewRecorder()

	testMapper().Write(ctx, rr, errInvalidConstraint)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("unexpected content type %q", ct)
	}
	var body map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["error"] != "invalid_constraint" || body["request_id"] != "req-123" || body["status"] != float64(http.StatusBadRequest) {
		t.Fatalf("unexpected envelope %v", body)
	}

	rr = httptest.NewRecorder()
	testMapper().Write(ctx, rr, nil)
	if rr.Body.Len() != 0 {
		t.Fatalf("nil error must not write a body, got %q", rr.Body.String())
	}
}

func TestWriteErrorDetailsCannotOverrideEnvelope(t *testing.T) {
	rr := httptest.NewRecorder()
	err := NewError("validation_failed", "surname is required\nsecond line", http.StatusBadRequest).
		WithDetails(map[string]any{"fields": []string{"surname"}, "error": "spoofed"})

	WriteError(context.Background(), rr, err)

	var body map[string]any
	if decodeErr := json.Unmarshal(rr.Body.Bytes(), &body); decodeErr != nil {
		t.Fatalf("decode: %v", decodeErr)
	}
	if body["error"] != "validation_failed" {
		t.Fatalf("details overrode the error code: %v", body["error"])
	}
	if body["message"] != "surname is required second line" {
		t.Fatalf("message not flattened: %q", body["message"])
	}
	if fields, ok := body["fields"].([]any); !ok || len(fields) != 1 || fields[0] != "surname" {
		t.Fatalf("details missing: %v", body)
	}
	if _, ok := body["request_id"]; ok {
		t.Fatalf("request_id must be omitted without a request id")
	}
}
