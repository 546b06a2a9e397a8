package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	domain "github.com/hanko-field/naming/internal/domain"
	"github.com/hanko-field/naming/internal/services"
)

func newCharacterRouter(catalog services.CharacterCatalogService) chi.Router {
	r := chi.NewRouter()
	NewCharacterHandlers(catalog).Routes(r)
	return r
}

func TestCharacterHandlersList(t *testing.T) {
	catalog := &stubCharacterCatalog{
		page: domain.CursorPage[services.Character]{
			Items: []services.Character{
				{Char: "清", Pinyin: "qīng", Tone: 1, StrokeCount: 11, Element: domain.ElementWater, Frequency: 75, Gender: domain.GenderNeutral},
				{Char: "涵", Pinyin: "hán", Tone: 2, StrokeCount: 12, Element: domain.ElementWater, Frequency: 60, Gender: domain.GenderFemale},
			},
			NextPageToken: "next-token",
		},
	}
	router := newCharacterRouter(catalog)

	req := httptest.NewRequest(http.MethodGet, "/characters?pageSize=2&element=water,wood&gender=Female&style=classic", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}

	filter := catalog.lastFilter
	if filter.Pagination.PageSize != 2 {
		t.Fatalf("expected page size 2, got %d", filter.Pagination.PageSize)
	}
	if got := filter.Elements.Strings(); len(got) != 2 || got[0] != "water" || got[1] != "wood" {
		t.Fatalf("unexpected elements: %v", got)
	}
	if filter.Gender != domain.GenderFemale || filter.Style != "classic" {
		t.Fatalf("unexpected filter: %+v", filter)
	}

	var body characterListResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(body.Items) != 2 || body.Items[0].Char != "清" || body.Items[1].Element != "water" {
		t.Fatalf("unexpected items: %+v", body.Items)
	}
	if body.NextPageToken != "next-token" {
		t.Fatalf("expected next page token, got %q", body.NextPageToken)
	}
}

func TestCharacterHandlersListDefaults(t *testing.T) {
	catalog := &stubCharacterCatalog{}
	router := newCharacterRouter(catalog)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/characters", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if catalog.lastFilter.Pagination.PageSize != defaultCharacterPageSize {
		t.Fatalf("expected default page size, got %d", catalog.lastFilter.Pagination.PageSize)
	}
	if len(catalog.lastFilter.Elements) != 0 || catalog.lastFilter.Gender != "" {
		t.Fatalf("expected no filters, got %+v", catalog.lastFilter)
	}
	var body map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if items, ok := body["items"].([]any); !ok || len(items) != 0 {
		t.Fatalf("expected empty items array, got %v", body["items"])
	}
}

func TestCharacterHandlersListRejectsBadQueries(t *testing.T) {
	cases := map[string]string{
		"page size":  "/characters?pageSize=abc",
		"page token": "/characters?pageToken=not-base64!",
		"element":    "/characters?element=aether",
		"gender":     "/characters?gender=other",
	}
	for name, target := range cases {
		t.Run(name, func(t *testing.T) {
			catalog := &stubCharacterCatalog{}
			router := newCharacterRouter(catalog)

			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, target, nil))

			if rr.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", rr.Code)
			}
			if code := decodeErrorCode(t, rr); code != "invalid_query" {
				t.Fatalf("expected invalid_query, got %s", code)
			}
		})
	}
}

func TestCharacterHandlersListErrors(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{err: services.ErrCharacterCatalogInvalidInput, status: http.StatusBadRequest},
		{err: services.ErrCharacterCatalogUnavailable, status: http.StatusServiceUnavailable},
		{err: services.ErrCharacterCatalogNotFound, status: http.StatusInternalServerError},
	}
	for _, tc := range cases {
		router := newCharacterRouter(&stubCharacterCatalog{err: tc.err})
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/characters", nil))
		if rr.Code != tc.status {
			t.Fatalf("%v: expected %d, got %d", tc.err, tc.status, rr.Code)
		}
	}
}
