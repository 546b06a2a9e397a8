package handlers

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/hanko-field/naming/internal/bazi"
	domain "github.com/hanko-field/naming/internal/domain"
	"github.com/hanko-field/naming/internal/phonetics"
	"github.com/hanko-field/naming/internal/platform/httpx"
	"github.com/hanko-field/naming/internal/platform/observability"
	"github.com/hanko-field/naming/internal/platform/requestctx"
	"github.com/hanko-field/naming/internal/services"
	"github.com/hanko-field/naming/internal/wuge"
)

const birthDateLayout = "2006-01-02"

// NamingHandlers exposes the generation and calculator endpoints.
type NamingHandlers struct {
	generator  services.NameGenerationService
	calculator services.NamingCalculator
	catalog    services.CharacterCatalogService
	validate   *validator.Validate
	limiter    rateLimiter
	replay     func(http.Handler) http.Handler
}

// NamingOption customises NamingHandlers.
type NamingOption func(*NamingHandlers)

// WithGenerateRateLimit caps POST /names:generate per client IP within a one minute window.
func WithGenerateRateLimit(perMinute int, clock func() time.Time) NamingOption {
	return func(h *NamingHandlers) {
		h.limiter = newSimpleRateLimiter(perMinute, time.Minute, clock)
	}
}

// WithGenerateReplay wraps POST /names:generate, typically with the idempotency middleware.
// Replayed responses do not count against the rate limit.
func WithGenerateReplay(mw func(http.Handler) http.Handler) NamingOption {
	return func(h *NamingHandlers) {
		h.replay = mw
	}
}

// NewNamingHandlers constructs the naming handler set.
func NewNamingHandlers(generator services.NameGenerationService, calculator services.NamingCalculator, catalog services.CharacterCatalogService, opts ...NamingOption) *NamingHandlers {
	h := &NamingHandlers{
		generator:  generator,
		calculator: calculator,
		catalog:    catalog,
		validate:   newRequestValidator(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	return h
}

// Routes registers the naming endpoints.
func (h *NamingHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	if h.replay != nil {
		r.With(h.replay).Post("/names:generate", h.generate)
	} else {
		r.Post("/names:generate", h.generate)
	}
	r.Post("/names:score", h.score)
	r.Post("/bazi:chart", h.chart)
	r.Post("/wuge:analyze", h.analyzeWuge)
	r.Post("/phonetics:check", h.checkPhonetics)
}

func (h *NamingHandlers) generate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.generator == nil {
		httpx.WriteError(ctx, w, httpx.NewError("service_unavailable", "name generation service not available", http.StatusServiceUnavailable))
		return
	}

	if h.limiter != nil {
		if ok, retryAfter := h.limiter.Allow(requestctx.ClientIP(ctx)); !ok {
			seconds := int(math.Ceil(retryAfter.Seconds()))
			w.Header().Set("Retry-After", strconv.Itoa(max(seconds, 1)))
			httpx.WriteError(ctx, w, httpx.NewError("rate_limited", "too many generation requests", http.StatusTooManyRequests))
			return
		}
	}

	var req generateNamesRequest
	if !decodeRequest(w, r, h.validate, &req) {
		return
	}

	birth, err := parseBirthFields(req.birthFields)
	if err != nil {
		writeNamingError(ctx, w, err)
		return
	}
	preferred, avoid, err := parseElementFilters(req.PreferredElements, req.AvoidElements)
	if err != nil {
		writeNamingError(ctx, w, err)
		return
	}
	gender, _ := domain.ParseGender(req.Gender)

	result, err := h.generator.Generate(ctx, services.NameGenerationCommand{
		Surname:           req.Surname,
		Gender:            gender,
		Birth:             birth,
		PreferredElements: preferred,
		AvoidElements:     avoid,
		Style:             req.Style,
		Source:            req.Source,
		CharacterCount:    req.CharacterCount,
		MaxResults:        req.MaxResults,
	})
	if err != nil {
		writeNamingError(ctx, w, err)
		return
	}
	observability.AnnotateGeneration(ctx, observability.GenerationSpan{
		RunID:          result.RunID,
		SurnameLength:  utf8.RuneCountInString(req.Surname),
		CharacterCount: req.CharacterCount,
		Requested:      req.MaxResults,
		Returned:       len(result.Candidates),
		WithBirthData:  result.Chart != nil,
		Relaxations:    result.RelaxationSteps,
	})

	payload := generateNamesResponse{
		RunID:           result.RunID,
		Candidates:      make([]candidatePayload, 0, len(result.Candidates)),
		TargetElements:  elementStrings(result.TargetElements),
		RelaxationSteps: result.RelaxationSteps,
	}
	for _, candidate := range result.Candidates {
		payload.Candidates = append(payload.Candidates, buildCandidatePayload(candidate))
	}
	if result.Chart != nil {
		chart := buildChartPayload(*result.Chart)
		payload.Chart = &chart
	}
	writeJSONResponse(w, http.StatusOK, payload)
}

func (h *NamingHandlers) score(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.generator == nil {
		httpx.WriteError(ctx, w, httpx.NewError("service_unavailable", "name generation service not available", http.StatusServiceUnavailable))
		return
	}

	var req scoreNameRequest
	if !decodeRequest(w, r, h.validate, &req) {
		return
	}

	birth, err := parseBirthFields(req.birthFields)
	if err != nil {
		writeNamingError(ctx, w, err)
		return
	}
	preferred, avoid, err := parseElementFilters(req.PreferredElements, req.AvoidElements)
	if err != nil {
		writeNamingError(ctx, w, err)
		return
	}

	result, err := h.generator.ScoreName(ctx, services.NameScoreCommand{
		Surname:           req.Surname,
		GivenName:         req.GivenName,
		Birth:             birth,
		PreferredElements: preferred,
		AvoidElements:     avoid,
	})
	if err != nil {
		writeNamingError(ctx, w, err)
		return
	}

	payload := scoreNameResponse{
		Candidate: buildCandidatePayload(result.Candidate),
		Wuge:      buildWugePayload(result.Wuge),
	}
	if result.Chart != nil {
		chart := buildChartPayload(*result.Chart)
		payload.Chart = &chart
	}
	writeJSONResponse(w, http.StatusOK, payload)
}

func (h *NamingHandlers) chart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.calculator == nil {
		httpx.WriteError(ctx, w, httpx.NewError("service_unavailable", "calculator not available", http.StatusServiceUnavailable))
		return
	}

	var req chartRequest
	if !decodeRequest(w, r, h.validate, &req) {
		return
	}
	birth, err := parseBirthFields(birthFields{BirthDate: req.BirthDate, BirthHour: req.BirthHour})
	if err != nil {
		writeNamingError(ctx, w, err)
		return
	}

	chart, err := h.calculator.Chart(ctx, *birth)
	if err != nil {
		writeNamingError(ctx, w, err)
		return
	}
	balance, err := h.calculator.Balance(ctx, *birth)
	if err != nil {
		writeNamingError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, chartResponse{
		Chart:   buildChartPayload(chart),
		Balance: buildBalancePayload(balance),
	})
}

func (h *NamingHandlers) analyzeWuge(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.calculator == nil {
		httpx.WriteError(ctx, w, httpx.NewError("service_unavailable", "calculator not available", http.StatusServiceUnavailable))
		return
	}

	var req wugeRequest
	if !decodeRequest(w, r, h.validate, &req) {
		return
	}

	surnameStrokes, err := h.resolveStrokes(ctx, req.Surname, req.SurnameStrokes)
	if err != nil {
		writeNamingError(ctx, w, err)
		return
	}
	givenStrokes, err := h.resolveStrokes(ctx, req.GivenName, req.GivenStrokes)
	if err != nil {
		writeNamingError(ctx, w, err)
		return
	}

	analysis, err := h.calculator.Wuge(ctx, surnameStrokes, givenStrokes)
	if err != nil {
		writeNamingError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, wugeResponse{
		SurnameStrokes: surnameStrokes,
		GivenStrokes:   givenStrokes,
		Analysis:       buildWugePayload(analysis),
	})
}

func (h *NamingHandlers) checkPhonetics(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.calculator == nil {
		httpx.WriteError(ctx, w, httpx.NewError("service_unavailable", "calculator not available", http.StatusServiceUnavailable))
		return
	}

	var req phoneticsRequest
	if !decodeRequest(w, r, h.validate, &req) {
		return
	}

	surnamePinyin, err := h.resolvePinyin(ctx, req.Surname, req.SurnamePinyin)
	if err != nil {
		writeNamingError(ctx, w, err)
		return
	}
	givenPinyin, err := h.resolvePinyin(ctx, req.GivenName, req.GivenPinyin)
	if err != nil {
		writeNamingError(ctx, w, err)
		return
	}

	report, err := h.calculator.Phonetics(ctx, surnamePinyin, givenPinyin)
	if err != nil {
		writeNamingError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, phoneticsResponse{
		SurnamePinyin: surnamePinyin,
		GivenPinyin:   givenPinyin,
		Report:        buildPhoneticsPayload(report),
	})
}

// resolveStrokes prefers explicit stroke counts and falls back to a catalog lookup of text.
func (h *NamingHandlers) resolveStrokes(ctx context.Context, text string, explicit []int) ([]int, error) {
	if len(explicit) > 0 {
		return explicit, nil
	}
	if h.catalog == nil {
		return nil, services.ErrCharacterCatalogUnavailable
	}
	return h.catalog.StrokeCounts(ctx, text)
}

func (h *NamingHandlers) resolvePinyin(ctx context.Context, text string, explicit []string) ([]string, error) {
	if len(explicit) > 0 {
		return explicit, nil
	}
	if h.catalog == nil {
		return nil, services.ErrCharacterCatalogUnavailable
	}
	return h.catalog.Pinyin(ctx, text)
}

var (
	errBirthHourWithoutDate = errors.New("birthHour requires birthDate")
	errUnknownElement       = errors.New("unknown element")
)

func parseBirthFields(fields birthFields) (*services.BirthData, error) {
	raw := strings.TrimSpace(fields.BirthDate)
	if raw == "" {
		if fields.BirthHour != nil {
			return nil, errBirthHourWithoutDate
		}
		return nil, nil
	}
	date, err := time.Parse(birthDateLayout, raw)
	if err != nil {
		return nil, fmt.Errorf("%w: birthDate must use YYYY-MM-DD", bazi.ErrInvalidDate)
	}
	birth := &services.BirthData{Year: date.Year(), Month: int(date.Month()), Day: date.Day()}
	if fields.BirthHour != nil {
		hour := *fields.BirthHour
		birth.Hour = &hour
	}
	return birth, nil
}

func parseElementFilters(preferred, avoid []string) (domain.ElementSet, domain.ElementSet, error) {
	preferredSet, err := domain.ParseElementSet(preferred)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", errUnknownElement, err)
	}
	avoidSet, err := domain.ParseElementSet(avoid)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", errUnknownElement, err)
	}
	return preferredSet, avoidSet, nil
}

// namingErrors maps calculator and generation failures to envelopes; order matters
// where a wrapped error matches more than one sentinel.
var namingErrors = httpx.NewErrorMapper(
	httpx.NewError("internal_error", "failed to process naming request", http.StatusInternalServerError),
	httpx.ErrorRule{Target: errBirthHourWithoutDate, Code: "invalid_date", Status: http.StatusBadRequest},
	httpx.ErrorRule{Target: errUnknownElement, Code: "invalid_element", Status: http.StatusBadRequest},
	httpx.ErrorRule{Target: services.ErrNameGenerationInvalidDate, Code: "invalid_date", Status: http.StatusBadRequest},
	httpx.ErrorRule{Target: bazi.ErrInvalidDate, Code: "invalid_date", Status: http.StatusBadRequest},
	httpx.ErrorRule{Target: services.ErrNameGenerationInvalidConstraint, Code: "invalid_constraint", Status: http.StatusBadRequest},
	httpx.ErrorRule{Target: wuge.ErrInvalidStrokes, Code: "invalid_strokes", Status: http.StatusBadRequest},
	httpx.ErrorRule{Target: phonetics.ErrInvalidPinyin, Code: "invalid_pinyin", Status: http.StatusBadRequest},
	httpx.ErrorRule{Target: services.ErrCharacterCatalogInvalidInput, Code: "invalid_text", Status: http.StatusBadRequest},
	httpx.ErrorRule{Target: services.ErrCharacterCatalogNotFound, Code: "character_not_found", Status: http.StatusNotFound},
	httpx.ErrorRule{Target: services.ErrNameGenerationUnavailable, Code: "service_unavailable", Status: http.StatusServiceUnavailable, Message: "naming service temporarily unavailable"},
	httpx.ErrorRule{Target: services.ErrCharacterCatalogUnavailable, Code: "service_unavailable", Status: http.StatusServiceUnavailable, Message: "naming service temporarily unavailable"},
)

func writeNamingError(ctx context.Context, w http.ResponseWriter, err error) {
	namingErrors.Write(ctx, w, err)
}
