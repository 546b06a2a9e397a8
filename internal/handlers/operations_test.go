package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

type stubOperator struct {
	version   string
	next      string
	reloadErr error
	reloads   int
	cached    int
}

func (s *stubOperator) ReloadDataset(context.Context) error {
	s.reloads++
	if s.reloadErr != nil {
		return s.reloadErr
	}
	s.version = s.next
	return nil
}

func (s *stubOperator) DatasetVersion() string { return s.version }

func (s *stubOperator) DatasetSource() string { return "gs://naming-data/characters.yaml" }

func (s *stubOperator) PurgeCache() int {
	purged := s.cached
	s.cached = 0
	return purged
}

func requireHeader(name string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get(name) == "" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func TestOperationsHandlersReloadDataset(t *testing.T) {
	operator := &stubOperator{version: "2024.1", next: "2024.2"}
	router := NewRouter(
		WithInternalRoutes(NewOperationsHandlers(operator).Routes),
		WithInternalMiddlewares(requireHeader("Authorization")),
	)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/internal/dataset:reload", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected group middleware to reject, got %d", rr.Code)
	}
	if operator.reloads != 0 {
		t.Fatalf("reload must not run without authentication")
	}

	req = httptest.NewRequest(http.MethodPost, "/api/v1/internal/dataset:reload", nil)
	req.Header.Set("Authorization", "Bearer token")
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var resp datasetReloadResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	want := datasetReloadResponse{
		Source:          "gs://naming-data/characters.yaml",
		PreviousVersion: "2024.1",
		Version:         "2024.2",
		Changed:         true,
	}
	if resp != want {
		t.Fatalf("expected %+v, got %+v", want, resp)
	}
}

func TestOperationsHandlersReloadFailureKeepsSnapshot(t *testing.T) {
	operator := &stubOperator{version: "2024.1", reloadErr: errors.New("bucket unreachable")}
	router := NewRouter(WithInternalRoutes(NewOperationsHandlers(operator).Routes))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/internal/dataset:reload", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadGateway {
		t.Fatalf("expected status 502, got %d", rr.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if body["error"] != "dataset_reload_failed" {
		t.Fatalf("unexpected error code %v", body["error"])
	}
	if operator.version != "2024.1" {
		t.Fatalf("version changed after failed reload: %s", operator.version)
	}
}

func TestOperationsHandlersPurgeCache(t *testing.T) {
	operator := &stubOperator{cached: 42}
	router := NewRouter(WithInternalRoutes(NewOperationsHandlers(operator).Routes))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/internal/cache:purge", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	var resp cachePurgeResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Purged != 42 || operator.cached != 0 {
		t.Fatalf("unexpected purge result %+v (remaining %d)", resp, operator.cached)
	}
}

func TestRouterWithoutInternalRoutes(t *testing.T) {
	router := NewRouter()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/internal/dataset:reload", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rr.Code)
	}
}
