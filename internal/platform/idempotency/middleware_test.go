package idempotency

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/hanko-field/naming/internal/platform/requestctx"
)

var fixedTime = time.Date(2024, time.January, 1, 12, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return fixedTime }

func newGenerateRequest(body, key string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/names:generate", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	if key != "" {
		req.Header.Set("Idempotency-Key", key)
	}
	return req.WithContext(requestctx.WithClientIP(req.Context(), "203.0.113.9"))
}

func countingHandler(calls *int, status int) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		*calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(`{"runId":"run-` + string(rune('0'+*calls)) + `"}`))
	})
}

func TestMiddleware_PassesThroughWithoutKey(t *testing.T) {
	store := NewMemoryStore(8)
	var calls int
	handler := Middleware(store, WithClock(fixedClock))(countingHandler(&calls, http.StatusOK))

	for i := 0; i < 2; i++ {
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, newGenerateRequest(`{"surname":"李"}`, ""))
		if rr.Code != http.StatusOK {
			t.Fatalf("unexpected status %d", rr.Code)
		}
	}
	if calls != 2 {
		t.Fatalf("expected handler to run for every keyless request, got %d", calls)
	}
	if store.Len() != 0 {
		t.Fatalf("expected no records, got %d", store.Len())
	}
}

func TestMiddleware_ReplaysStoredResponse(t *testing.T) {
	store := NewMemoryStore(8)
	var calls int
	handler := Middleware(store, WithClock(fixedClock))(countingHandler(&calls, http.StatusOK))

	rr1 := httptest.NewRecorder()
	handler.ServeHTTP(rr1, newGenerateRequest(`{"surname":"李"}`, "abc-123"))
	rr2 := httptest.NewRecorder()
	handler.ServeHTTP(rr2, newGenerateRequest(`{"surname":"李"}`, "abc-123"))

	if calls != 1 {
		t.Fatalf("expected handler to run once, got %d", calls)
	}
	if rr1.Header().Get(replayHeaderName) != "" {
		t.Fatalf("first response must not be marked as replay")
	}
	if rr2.Header().Get(replayHeaderName) != "true" {
		t.Fatalf("expected replay header on second response")
	}
	if rr2.Code != http.StatusOK || rr2.Body.String() != rr1.Body.String() {
		t.Fatalf("expected identical replay, got %d %s vs %s", rr2.Code, rr2.Body.String(), rr1.Body.String())
	}
	if got := rr2.Header().Get("Content-Type"); got != "application/json" {
		t.Fatalf("expected content type to be replayed, got %q", got)
	}
}

func TestMiddleware_KeysAreScopedPerClient(t *testing.T) {
	store := NewMemoryStore(8)
	var calls int
	handler := Middleware(store, WithClock(fixedClock))(countingHandler(&calls, http.StatusOK))

	handler.ServeHTTP(httptest.NewRecorder(), newGenerateRequest(`{"surname":"李"}`, "shared"))

	other := newGenerateRequest(`{"surname":"李"}`, "shared")
	other = other.WithContext(requestctx.WithClientIP(other.Context(), "198.51.100.4"))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, other)

	if calls != 2 {
		t.Fatalf("expected a second client to run its own request, got %d calls", calls)
	}
	if rr.Header().Get(replayHeaderName) != "" {
		t.Fatalf("response for another client must not be a replay")
	}
}

func TestMiddleware_ConflictingBodyReturnsConflict(t *testing.T) {
	store := NewMemoryStore(8)
	var calls int
	handler := Middleware(store, WithClock(fixedClock))(countingHandler(&calls, http.StatusOK))

	handler.ServeHTTP(httptest.NewRecorder(), newGenerateRequest(`{"surname":"李"}`, "same-key"))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, newGenerateRequest(`{"surname":"王"}`, "same-key"))

	if rr.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rr.Code)
	}
	assertErrorCode(t, rr.Body.Bytes(), "idempotency_key_conflict")
}

func TestMiddleware_PendingReservationReturnsConflict(t *testing.T) {
	store := NewMemoryStore(8)
	handler := Middleware(store, WithClock(fixedClock))(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Fatal("handler should not run while the key is pending")
	}))

	req := newGenerateRequest(`{"surname":"李"}`, "pending-key")
	body, _, err := bufferBody(req, defaultMaxBodyBytes)
	if err != nil {
		t.Fatalf("buffer body: %v", err)
	}
	client := requester(req)
	if _, err := store.Reserve(req.Context(), "pending-key|"+client, requestFingerprint(req, body, client), fixedTime, time.Minute); err != nil {
		t.Fatalf("seed reservation: %v", err)
	}

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rr.Code)
	}
	assertErrorCode(t, rr.Body.Bytes(), "idempotency_in_progress")
}

func TestMiddleware_FailedResponsesAreNotStored(t *testing.T) {
	store := NewMemoryStore(8)
	var calls int
	handler := Middleware(store, WithClock(fixedClock))(countingHandler(&calls, http.StatusServiceUnavailable))

	for i := 0; i < 2; i++ {
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, newGenerateRequest(`{"surname":"李"}`, "retry-me"))
		if rr.Code != http.StatusServiceUnavailable {
			t.Fatalf("unexpected status %d", rr.Code)
		}
	}
	if calls != 2 {
		t.Fatalf("expected failed requests to be retried, got %d calls", calls)
	}
	if store.Len() != 0 {
		t.Fatalf("expected released keys, got %d records", store.Len())
	}
}

func TestMiddleware_RejectsOversizedKey(t *testing.T) {
	handler := Middleware(NewMemoryStore(8))(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Fatal("handler should not run")
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, newGenerateRequest(`{}`, strings.Repeat("k", maxKeyLength+1)))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
	assertErrorCode(t, rr.Body.Bytes(), "invalid_idempotency_key")
}

func TestMiddleware_LargeBodiesBypassReplay(t *testing.T) {
	store := NewMemoryStore(8)
	var seen []byte
	handler := Middleware(store, WithMaxBodyBytes(8))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		buf := new(bytes.Buffer)
		_, _ = buf.ReadFrom(r.Body)
		seen = buf.Bytes()
		w.WriteHeader(http.StatusOK)
	}))

	body := `{"surname":"欧阳"}`
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, newGenerateRequest(body, "big"))

	if string(seen) != body {
		t.Fatalf("expected handler to receive the full body, got %q", seen)
	}
	if store.Len() != 0 {
		t.Fatalf("expected no record for an oversized body")
	}
}

func TestMiddleware_SaveFailureReleasesReservation(t *testing.T) {
	store := &stubStore{saveErr: errors.New("save failed")}
	var calls int
	handler := Middleware(store, WithClock(fixedClock))(countingHandler(&calls, http.StatusOK))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, newGenerateRequest(`{"surname":"李"}`, "fail-key"))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected the generated response to be served, got %d", rr.Code)
	}
	if !store.released {
		t.Fatalf("expected reservation to be released")
	}
}

func TestMiddleware_ReserveFailureServesRequest(t *testing.T) {
	store := &stubStore{reserveErr: errors.New("firestore down")}
	var calls int
	handler := Middleware(store)(countingHandler(&calls, http.StatusOK))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, newGenerateRequest(`{"surname":"李"}`, "key"))

	if rr.Code != http.StatusOK || calls != 1 {
		t.Fatalf("expected request to be served without replay, got %d after %d calls", rr.Code, calls)
	}
}

type stubStore struct {
	reserveErr error
	saveErr    error
	released   bool
}

func (s *stubStore) Reserve(context.Context, string, string, time.Time, time.Duration) (Reservation, error) {
	if s.reserveErr != nil {
		return Reservation{}, s.reserveErr
	}
	return Reservation{State: ReservationStateNew}, nil
}

func (s *stubStore) SaveResponse(context.Context, string, string, Response, time.Time, time.Duration) error {
	return s.saveErr
}

func (s *stubStore) Release(context.Context, string, string) error {
	s.released = true
	return nil
}

func (s *stubStore) CleanupExpired(context.Context, time.Time, int) (int, error) {
	return 0, nil
}

func assertErrorCode(t *testing.T, payload []byte, expected string) {
	t.Helper()

	var body struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(payload, &body); err != nil {
		t.Fatalf("failed to decode error payload: %v", err)
	}
	if body.Error != expected {
		t.Fatalf("expected error code %s, got %s", expected, body.Error)
	}
}
