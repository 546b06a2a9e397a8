package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/oklog/ulid/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	domain "github.com/hanko-field/naming/internal/domain"
	"github.com/hanko-field/naming/internal/platform/cache"
	"github.com/hanko-field/naming/internal/platform/textutil"
	"github.com/hanko-field/naming/internal/repositories"
)

var (
	errNameGenerationRepositoryRequired = errors.New("name_generation: character repository is required")
	errNameGenerationClockRequired      = errors.New("name_generation: clock is required")
)

// ErrNameGenerationInvalidConstraint indicates a structurally impossible request.
var ErrNameGenerationInvalidConstraint = errors.New("name_generation: invalid constraint")

// ErrNameGenerationInvalidDate indicates the birth data does not form a real date and hour.
var ErrNameGenerationInvalidDate = errors.New("name_generation: invalid date")

// ErrNameGenerationUnavailable indicates the character store could not be read.
var ErrNameGenerationUnavailable = errors.New("name_generation: service unavailable")

const (
	defaultGenerationResults    = 20
	maxGenerationResults        = 50
	defaultCharacterCount       = 2
	defaultPairSampleCap        = 400
	defaultWidenedPairSampleCap = 2000
	generationRunIDPrefix       = "ngen_"
	candidateIDPrefix           = "cand_"
	instrumentationName         = "github.com/hanko-field/naming/internal/services"
)

// NameGenerationServiceDeps wires the collaborators of the name generator.
type NameGenerationServiceDeps struct {
	Characters           repositories.CharacterRepository
	Calculator           NamingCalculator
	Cache                *cache.Store
	Publisher            GenerationPublisher
	Clock                func() time.Time
	IDGenerator          func() string
	Logger               func(context.Context, string, map[string]any)
	Weights              ScoreWeights
	DefaultResults       int
	MaxResults           int
	PairSampleCap        int
	WidenedPairSampleCap int
	Tracer               trace.Tracer
	Meter                metric.Meter
}

type nameGenerationService struct {
	characters     repositories.CharacterRepository
	scorer         *nameScorer
	calc           NamingCalculator
	publisher      GenerationPublisher
	now            func() time.Time
	newID          func() string
	logger         func(context.Context, string, map[string]any)
	defaultResults int
	maxResults     int
	sampleCap      int
	widenedCap     int
	tracer         trace.Tracer
	metrics        generationMetrics
}

type generationMetrics struct {
	runs       metric.Int64Counter
	relaxation metric.Int64Counter
	skipped    metric.Int64Counter
}

var _ NameGenerationService = (*nameGenerationService)(nil)

// NewNameGenerationService constructs the generator and ranker.
func NewNameGenerationService(deps NameGenerationServiceDeps) (NameGenerationService, error) {
	if deps.Characters == nil {
		return nil, errNameGenerationRepositoryRequired
	}
	clock := deps.Clock
	if clock == nil {
		return nil, errNameGenerationClockRequired
	}

	weights, err := deps.Weights.normalise()
	if err != nil {
		return nil, err
	}

	calc := deps.Calculator
	if calc == nil {
		calc = NewNamingCalculator(deps.Cache)
	}

	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = func() string { return ulid.Make().String() }
	}

	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	maxResults := deps.MaxResults
	if maxResults <= 0 || maxResults > maxGenerationResults {
		maxResults = maxGenerationResults
	}
	defaultResults := deps.DefaultResults
	if defaultResults <= 0 {
		defaultResults = defaultGenerationResults
	}
	defaultResults = min(defaultResults, maxResults)

	sampleCap := deps.PairSampleCap
	if sampleCap <= 0 {
		sampleCap = defaultPairSampleCap
	}
	widenedCap := deps.WidenedPairSampleCap
	if widenedCap <= 0 {
		widenedCap = defaultWidenedPairSampleCap
	}
	widenedCap = max(widenedCap, sampleCap)

	tracer := deps.Tracer
	if tracer == nil {
		tracer = otel.Tracer(instrumentationName)
	}
	meter := deps.Meter
	if meter == nil {
		meter = otel.GetMeterProvider().Meter(instrumentationName)
	}
	metrics, err := newGenerationMetrics(meter)
	if err != nil {
		return nil, err
	}

	return &nameGenerationService{
		characters:     deps.Characters,
		scorer:         &nameScorer{calc: calc, cache: deps.Cache, weights: weights},
		calc:           calc,
		publisher:      deps.Publisher,
		now:            func() time.Time { return clock().UTC() },
		newID:          func() string { return strings.ToLower(idGen()) },
		logger:         logger,
		defaultResults: defaultResults,
		maxResults:     maxResults,
		sampleCap:      sampleCap,
		widenedCap:     widenedCap,
		tracer:         tracer,
		metrics:        metrics,
	}, nil
}

func newGenerationMetrics(meter metric.Meter) (generationMetrics, error) {
	runs, err := meter.Int64Counter("naming.generations",
		metric.WithDescription("Completed name generation runs"))
	if err != nil {
		return generationMetrics{}, fmt.Errorf("name_generation: register metric: %w", err)
	}
	relaxation, err := meter.Int64Counter("naming.relaxation_steps",
		metric.WithDescription("Constraint relaxation steps applied during generation"))
	if err != nil {
		return generationMetrics{}, fmt.Errorf("name_generation: register metric: %w", err)
	}
	skipped, err := meter.Int64Counter("naming.candidates_skipped",
		metric.WithDescription("Candidates skipped because scoring failed"))
	if err != nil {
		return generationMetrics{}, fmt.Errorf("name_generation: register metric: %w", err)
	}
	return generationMetrics{runs: runs, relaxation: relaxation, skipped: skipped}, nil
}

// generationRun accumulates candidates across relaxation passes.
type generationRun struct {
	surname    domain.Surname
	count      int
	targets    elementTargets
	seen       map[string]struct{}
	candidates []domain.NameCandidate
	skipped    int
}

// Generate produces at most MaxResults candidates ranked by overall score.
func (s *nameGenerationService) Generate(ctx context.Context, cmd NameGenerationCommand) (NameGenerationResult, error) {
	if s == nil || s.characters == nil {
		return NameGenerationResult{}, ErrNameGenerationUnavailable
	}
	started := s.now()
	runID := generationRunIDPrefix + s.newID()

	ctx, span := s.tracer.Start(ctx, "naming.generate", trace.WithAttributes(attribute.String("naming.run_id", runID)))
	defer span.End()

	count, limit, err := s.normaliseGeneration(cmd)
	if err != nil {
		return NameGenerationResult{}, recordSpanError(span, err)
	}
	surname, err := s.lookupSurname(ctx, cmd.Surname)
	if err != nil {
		return NameGenerationResult{}, recordSpanError(span, err)
	}
	chart, favorable, err := s.resolveChart(ctx, cmd.Birth)
	if err != nil {
		return NameGenerationResult{}, recordSpanError(span, err)
	}

	filters := FilterSet{
		Favorable: favorable,
		Preferred: domain.NewElementSet(cmd.PreferredElements...),
		Avoid:     domain.NewElementSet(cmd.AvoidElements...),
		Style:     textutil.NormalizeTag(cmd.Style),
		Source:    textutil.NormalizeTag(cmd.Source),
		Gender:    cmd.Gender,
		SampleCap: s.sampleCap,
	}
	run := &generationRun{
		surname: surname,
		count:   count,
		targets: elementTargets{favorable: filters.Targets(), avoid: filters.Avoid},
		seen:    make(map[string]struct{}),
	}

	steps := RelaxationSteps(s.widenedCap)
	var applied []string
	for idx := 0; ; idx++ {
		if err := s.collect(ctx, run, filters); err != nil {
			return NameGenerationResult{}, recordSpanError(span, err)
		}
		if len(run.candidates) >= limit || idx >= len(steps) {
			break
		}
		filters = steps[idx].Apply(filters)
		applied = append(applied, steps[idx].Name)
		s.metrics.relaxation.Add(ctx, 1, metric.WithAttributes(attribute.String("step", steps[idx].Name)))
	}

	rankCandidates(run.candidates)
	if len(run.candidates) > limit {
		run.candidates = run.candidates[:limit]
	}

	result := NameGenerationResult{
		RunID:           runID,
		Candidates:      run.candidates,
		Chart:           chart,
		TargetElements:  run.targets.favorable,
		RelaxationSteps: applied,
	}

	span.SetAttributes(
		attribute.Int("naming.results", len(result.Candidates)),
		attribute.Int("naming.relaxation_steps", len(applied)),
		attribute.Bool("naming.with_birth", chart != nil),
	)
	s.metrics.runs.Add(ctx, 1, metric.WithAttributes(attribute.Bool("relaxed", len(applied) > 0)))

	elapsed := s.now().Sub(started)
	s.logger(ctx, "name_generation.completed", map[string]any{
		"runId":           result.RunID,
		"surname":         surname.Surname,
		"characterCount":  count,
		"returned":        len(result.Candidates),
		"skipped":         run.skipped,
		"relaxationSteps": applied,
		"durationMs":      elapsed.Milliseconds(),
	})
	s.publishSummary(ctx, cmd, result, run, limit, elapsed)

	return result, nil
}

// ScoreName scores a user supplied given name with the same breakdown as generated candidates.
func (s *nameGenerationService) ScoreName(ctx context.Context, cmd NameScoreCommand) (NameScoreResult, error) {
	if s == nil || s.characters == nil {
		return NameScoreResult{}, ErrNameGenerationUnavailable
	}

	surname, err := s.lookupSurname(ctx, cmd.Surname)
	if err != nil {
		return NameScoreResult{}, err
	}
	givenText := strings.TrimSpace(cmd.GivenName)
	if !isHanText(givenText, 1, 2) {
		return NameScoreResult{}, fmt.Errorf("%w: given name must be one or two Han characters", ErrNameGenerationInvalidConstraint)
	}
	given := make([]domain.Character, 0, 2)
	for _, r := range givenText {
		character, err := s.characters.FindByChar(ctx, string(r))
		if err != nil {
			return NameScoreResult{}, s.translateRepoError(err, fmt.Sprintf("character %s is not in the dataset", string(r)))
		}
		given = append(given, character)
	}

	chart, favorable, err := s.resolveChart(ctx, cmd.Birth)
	if err != nil {
		return NameScoreResult{}, err
	}
	filters := FilterSet{
		Favorable: favorable,
		Preferred: domain.NewElementSet(cmd.PreferredElements...),
		Avoid:     domain.NewElementSet(cmd.AvoidElements...),
	}
	targets := elementTargets{favorable: filters.Targets(), avoid: filters.Avoid}

	scored, err := s.scorer.score(ctx, surname, given, targets)
	if err != nil {
		return NameScoreResult{}, fmt.Errorf("%w: %v", ErrNameGenerationInvalidConstraint, err)
	}
	return NameScoreResult{
		Candidate: s.buildCandidate(surname, given, scored),
		Wuge:      scored.Wuge,
		Chart:     chart,
	}, nil
}

func (s *nameGenerationService) normaliseGeneration(cmd NameGenerationCommand) (count, limit int, err error) {
	count = cmd.CharacterCount
	if count == 0 {
		count = defaultCharacterCount
	}
	if count != 1 && count != 2 {
		return 0, 0, fmt.Errorf("%w: characterCount must be 1 or 2", ErrNameGenerationInvalidConstraint)
	}
	if _, ok := domain.ParseGender(string(cmd.Gender)); !ok {
		return 0, 0, fmt.Errorf("%w: unknown gender %q", ErrNameGenerationInvalidConstraint, cmd.Gender)
	}

	limit = cmd.MaxResults
	if limit == 0 {
		limit = s.defaultResults
	}
	limit = max(1, min(limit, s.maxResults))
	return count, limit, nil
}

func (s *nameGenerationService) lookupSurname(ctx context.Context, value string) (domain.Surname, error) {
	value = strings.TrimSpace(value)
	if !isHanText(value, 1, 2) {
		return domain.Surname{}, fmt.Errorf("%w: surname must be one or two Han characters", ErrNameGenerationInvalidConstraint)
	}
	surname, err := s.characters.FindSurname(ctx, value)
	if err != nil {
		return domain.Surname{}, s.translateRepoError(err, fmt.Sprintf("surname %s has no stroke data", value))
	}
	return surname, nil
}

func (s *nameGenerationService) resolveChart(ctx context.Context, birth *BirthData) (*domain.FourPillarsChart, domain.ElementSet, error) {
	if birth == nil {
		return nil, nil, nil
	}
	chart, err := s.calc.Chart(ctx, *birth)
	if err != nil {
		if isInvalidDate(err) {
			return nil, nil, fmt.Errorf("%w: %v", ErrNameGenerationInvalidDate, err)
		}
		return nil, nil, err
	}
	return &chart, chart.FavorableElements, nil
}

func (s *nameGenerationService) collect(ctx context.Context, run *generationRun, filters FilterSet) error {
	query, ok := filters.Query()
	if !ok {
		return nil
	}
	pool, err := s.characters.QueryByElements(ctx, query)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("%w: %v", ErrNameGenerationUnavailable, err)
	}

	for _, given := range givenNames(pool, run.count, filters.SampleCap) {
		fullName := run.surname.Surname + joinChars(given)
		if _, dup := run.seen[fullName]; dup {
			continue
		}
		run.seen[fullName] = struct{}{}

		candidate, err := s.scoreCandidate(ctx, run, given)
		if err != nil {
			run.skipped++
			s.metrics.skipped.Add(ctx, 1)
			s.logger(ctx, "name_generation.candidate_skipped", map[string]any{
				"fullName": fullName,
				"error":    err.Error(),
			})
			continue
		}
		run.candidates = append(run.candidates, candidate)
	}
	return nil
}

func (s *nameGenerationService) scoreCandidate(ctx context.Context, run *generationRun, given []domain.Character) (candidate domain.NameCandidate, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("scoring panicked: %v", r)
		}
	}()
	scored, err := s.scorer.score(ctx, run.surname, given, run.targets)
	if err != nil {
		return domain.NameCandidate{}, err
	}
	return s.buildCandidate(run.surname, given, scored), nil
}

func (s *nameGenerationService) buildCandidate(surname domain.Surname, given []domain.Character, scored scoredName) domain.NameCandidate {
	givenName := joinChars(given)
	source := ""
	for _, c := range given {
		if len(c.Sources) > 0 {
			source = c.Sources[0]
			break
		}
	}
	return domain.NameCandidate{
		ID:         candidateIDPrefix + s.newID(),
		Surname:    surname.Surname,
		GivenName:  givenName,
		FullName:   surname.Surname + givenName,
		Pinyin:     joinPinyin(surname, given),
		Characters: append([]domain.Character(nil), given...),
		Score:      scored.Breakdown,
		Wuge:       scored.Wuge.Grids,
		Phonetics:  scored.Phonetics,
		Source:     source,
	}
}

func (s *nameGenerationService) translateRepoError(err error, notFoundDetail string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) && repoErr.IsNotFound() {
		return fmt.Errorf("%w: %s", ErrNameGenerationInvalidConstraint, notFoundDetail)
	}
	return fmt.Errorf("%w: %v", ErrNameGenerationUnavailable, err)
}

func (s *nameGenerationService) publishSummary(ctx context.Context, cmd NameGenerationCommand, result NameGenerationResult, run *generationRun, requested int, elapsed time.Duration) {
	if s.publisher == nil {
		return
	}
	summary := GenerationSummary{
		RunID:           result.RunID,
		Surname:         run.surname.Surname,
		Gender:          string(cmd.Gender),
		WithBirthData:   result.Chart != nil,
		CharacterCount:  run.count,
		Requested:       requested,
		Returned:        len(result.Candidates),
		Skipped:         run.skipped,
		RelaxationSteps: result.RelaxationSteps,
		Duration:        elapsed.String(),
		GeneratedAt:     s.now(),
	}
	if len(result.Candidates) > 0 {
		summary.TopName = result.Candidates[0].FullName
		summary.TopScore = result.Candidates[0].Score.Overall
	}
	if _, err := s.publisher.PublishGeneration(ctx, summary); err != nil {
		s.logger(ctx, "name_generation.publish_failed", map[string]any{
			"runId": result.RunID,
			"error": err.Error(),
		})
	}
}

// givenNames builds given-name candidates from the pool. Pairs are enumerated by
// increasing offset so every pool character leads some pair before the cap is hit.
func givenNames(pool []domain.Character, count, sampleCap int) [][]domain.Character {
	if count == 1 {
		out := make([][]domain.Character, 0, len(pool))
		for _, c := range pool {
			out = append(out, []domain.Character{c})
		}
		return out
	}

	n := len(pool)
	if n < 2 {
		return nil
	}
	limit := min(sampleCap, n*(n-1))
	out := make([][]domain.Character, 0, limit)
	for offset := 1; offset < n && len(out) < limit; offset++ {
		for i := 0; i < n && len(out) < limit; i++ {
			out = append(out, []domain.Character{pool[i], pool[(i+offset)%n]})
		}
	}
	return out
}

// rankCandidates sorts by overall descending, then pinyin ascending, keeping insertion order for ties.
func rankCandidates(candidates []domain.NameCandidate) {
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Score.Overall != candidates[j].Score.Overall {
			return candidates[i].Score.Overall > candidates[j].Score.Overall
		}
		return candidates[i].Pinyin < candidates[j].Pinyin
	})
}

func isHanText(value string, minRunes, maxRunes int) bool {
	count := utf8.RuneCountInString(value)
	if count < minRunes || count > maxRunes {
		return false
	}
	for _, r := range value {
		if !unicode.Is(unicode.Han, r) {
			return false
		}
	}
	return true
}

func recordSpanError(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
