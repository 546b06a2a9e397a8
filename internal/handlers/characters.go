package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	domain "github.com/hanko-field/naming/internal/domain"
	"github.com/hanko-field/naming/internal/platform/httpx"
	"github.com/hanko-field/naming/internal/platform/pagination"
	"github.com/hanko-field/naming/internal/services"
)

const (
	defaultCharacterPageSize = 30
	maxCharacterPageSize     = 100
)

var characterFilters = []string{"element", "style", "source", "gender"}

var listErrors = httpx.NewErrorMapper(
	httpx.NewError("internal_error", "failed to list characters", http.StatusInternalServerError),
	httpx.ErrorRule{Target: services.ErrCharacterCatalogInvalidInput, Code: "invalid_query", Status: http.StatusBadRequest},
	httpx.ErrorRule{Target: services.ErrCharacterCatalogUnavailable, Code: "service_unavailable", Status: http.StatusServiceUnavailable, Message: "character catalog temporarily unavailable"},
)

// CharacterHandlers exposes the reference character browser.
type CharacterHandlers struct {
	catalog services.CharacterCatalogService
}

// NewCharacterHandlers constructs the character browser handlers.
func NewCharacterHandlers(catalog services.CharacterCatalogService) *CharacterHandlers {
	return &CharacterHandlers{catalog: catalog}
}

// Routes registers GET /characters.
func (h *CharacterHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/characters", h.list)
}

type characterListResponse struct {
	Items         []characterPayload `json:"items"`
	NextPageToken string             `json:"nextPageToken,omitempty"`
}

func (h *CharacterHandlers) list(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.catalog == nil {
		httpx.WriteError(ctx, w, httpx.NewError("service_unavailable", "character catalog not available", http.StatusServiceUnavailable))
		return
	}

	params, err := pagination.FromRequest(r, pagination.Options{
		DefaultPageSize: defaultCharacterPageSize,
		MaxPageSize:     maxCharacterPageSize,
		AllowedFilters:  characterFilters,
	})
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_query", err.Error(), http.StatusBadRequest))
		return
	}

	filter := services.CharacterListFilter{
		Style:  params.Filters["style"],
		Source: params.Filters["source"],
		Pagination: services.Pagination{
			PageSize:  params.PageSize,
			PageToken: params.PageToken,
		},
	}
	if raw := params.Filters["element"]; raw != "" {
		elements, err := domain.ParseElementSet(strings.Split(raw, ","))
		if err != nil {
			httpx.WriteError(ctx, w, httpx.NewError("invalid_query", err.Error(), http.StatusBadRequest))
			return
		}
		filter.Elements = elements
	}
	if raw, ok := params.Filters["gender"]; ok {
		gender, valid := domain.ParseGender(raw)
		if !valid {
			httpx.WriteError(ctx, w, httpx.NewError("invalid_query", "gender must be male, female or neutral", http.StatusBadRequest))
			return
		}
		filter.Gender = gender
	}

	page, err := h.catalog.ListCharacters(ctx, filter)
	if err != nil {
		listErrors.Write(ctx, w, err)
		return
	}

	payload := characterListResponse{
		Items:         make([]characterPayload, 0, len(page.Items)),
		NextPageToken: page.NextPageToken,
	}
	for _, c := range page.Items {
		payload.Items = append(payload.Items, buildCharacterPayload(c))
	}
	writeJSONResponse(w, http.StatusOK, payload)
}
