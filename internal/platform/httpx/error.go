// Package httpx writes the JSON error envelope shared by every naming endpoint
// and maps service errors onto it.
package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/hanko-field/naming/internal/platform/requestctx"
)

const (
	maxCodeLen    = 80
	maxMessageLen = 512
	maxTraceLen   = 64
)

// Error is the envelope body: {error, message, status, request_id, trace_id}
// plus any details merged at the top level.
type Error struct {
	Code    string
	Message string
	Status  int
	Details map[string]any
}

// NewError builds an envelope. A zero status becomes 500.
func NewError(code, message string, status int) Error {
	if status == 0 {
		status = http.StatusInternalServerError
	}
	return Error{
		Code:    clip(code, maxCodeLen),
		Message: clip(message, maxMessageLen),
		Status:  status,
	}
}

// Error lets an envelope travel through error returns.
func (e Error) Error() string {
	return e.Code + ": " + e.Message
}

// WithDetails returns a copy of e carrying details.
func (e Error) WithDetails(details map[string]any) Error {
	if len(details) == 0 {
		return e
	}
	e.Details = make(map[string]any, len(details))
	for k, v := range details {
		e.Details[k] = v
	}
	return e
}

// WriteError writes err as JSON, stamping the chi request id and the trace id from ctx.
func WriteError(ctx context.Context, w http.ResponseWriter, err Error) {
	if err.Status == 0 {
		err.Status = http.StatusInternalServerError
	}

	body := make(map[string]any, len(err.Details)+5)
	for k, v := range err.Details {
		body[k] = v
	}
	body["error"] = err.Code
	body["message"] = err.Message
	body["status"] = err.Status
	if id := clip(middleware.GetReqID(ctx), maxCodeLen); id != "" {
		body["request_id"] = id
	}
	if trace := clip(requestctx.TraceID(ctx), maxTraceLen); trace != "" {
		body["trace_id"] = trace
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(err.Status)
	_ = json.NewEncoder(w).Encode(body)
}

// ErrorRule maps every error matching Target (errors.Is) to an envelope.
// An empty Message reuses the error text.
type ErrorRule struct {
	Target  error
	Code    string
	Status  int
	Message string
}

// ErrorMapper resolves service errors to envelopes using an ordered rule table.
// Envelopes returned as errors pass through unchanged and cancelled contexts map
// to request_timeout.
type ErrorMapper struct {
	rules    []ErrorRule
	fallback Error
}

// NewErrorMapper builds a mapper; fallback is used when no rule matches.
func NewErrorMapper(fallback Error, rules ...ErrorRule) ErrorMapper {
	return ErrorMapper{
		rules:    append([]ErrorRule(nil), rules...),
		fallback: fallback,
	}
}

// Map returns the envelope for err.
func (m ErrorMapper) Map(err error) Error {
	var envelope Error
	if errors.As(err, &envelope) {
		return envelope
	}
	for _, rule := range m.rules {
		if rule.Target == nil || !errors.Is(err, rule.Target) {
			continue
		}
		message := rule.Message
		if message == "" {
			message = err.Error()
		}
		return NewError(rule.Code, message, rule.Status)
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return NewError("request_timeout", "request cancelled", http.StatusGatewayTimeout)
	}
	return m.fallback
}

// Write maps err and writes it. A nil err writes nothing.
func (m ErrorMapper) Write(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		return
	}
	WriteError(ctx, w, m.Map(err))
}

func clip(value string, limit int) string {
	value = strings.TrimSpace(strings.NewReplacer("\n", " ", "\r", " ").Replace(value))
	if len(value) > limit {
		value = value[:limit]
	}
	return value
}
