package services

import (
	"context"
	"time"

	"github.com/hanko-field/naming/internal/bazi"
	domain "github.com/hanko-field/naming/internal/domain"
	"github.com/hanko-field/naming/internal/wuge"
)

// Type aliases expose domain models to the services package without reversing dependency direction.
type (
	Pagination         = domain.Pagination
	Character          = domain.Character
	NameCandidate      = domain.NameCandidate
	ScoreBreakdown     = domain.ScoreBreakdown
	PhoneticReport     = domain.PhoneticReport
	FourPillarsChart   = domain.FourPillarsChart
	SystemHealthReport = domain.SystemHealthReport
	ElementBalance     = bazi.Balance
	WugeAnalysis       = wuge.Analysis
)

// NameGenerationService generates ranked name candidates and scores user supplied names.
type NameGenerationService interface {
	Generate(ctx context.Context, cmd NameGenerationCommand) (NameGenerationResult, error)
	ScoreName(ctx context.Context, cmd NameScoreCommand) (NameScoreResult, error)
}

// NamingCalculator exposes the four pure computations behind a shared cache.
type NamingCalculator interface {
	Chart(ctx context.Context, birth BirthData) (FourPillarsChart, error)
	Balance(ctx context.Context, birth BirthData) (ElementBalance, error)
	Wuge(ctx context.Context, surnameStrokes, givenStrokes []int) (WugeAnalysis, error)
	Phonetics(ctx context.Context, surnamePinyin, givenPinyin []string) (PhoneticReport, error)
}

// CharacterCatalogService lists reference characters for browsing.
type CharacterCatalogService interface {
	ListCharacters(ctx context.Context, filter CharacterListFilter) (domain.CursorPage[Character], error)
	// StrokeCounts resolves the Kangxi stroke count of every character in text.
	StrokeCounts(ctx context.Context, text string) ([]int, error)
	// Pinyin resolves the reading of every character in text. Surnames are looked up as a whole first.
	Pinyin(ctx context.Context, text string) ([]string, error)
}

// SystemService exposes health information for probes.
type SystemService interface {
	HealthReport(ctx context.Context) (SystemHealthReport, error)
}

// GenerationPublisher receives a summary after each generation run. Failures are logged only.
type GenerationPublisher interface {
	PublishGeneration(ctx context.Context, summary GenerationSummary) (string, error)
}

// BirthData identifies the moment a chart is computed for. A nil Hour means noon.
type BirthData struct {
	Year  int
	Month int
	Day   int
	Hour  *int
}

// NameGenerationCommand carries a generation request after transport validation.
type NameGenerationCommand struct {
	Surname           string
	Gender            domain.Gender
	Birth             *BirthData
	PreferredElements domain.ElementSet
	AvoidElements     domain.ElementSet
	Style             string
	Source            string
	CharacterCount    int
	MaxResults        int
}

// NameGenerationResult is the ranked outcome of a generation run.
type NameGenerationResult struct {
	RunID           string
	Candidates      []NameCandidate
	Chart           *FourPillarsChart
	TargetElements  domain.ElementSet
	RelaxationSteps []string
}

// NameScoreCommand scores an arbitrary given name under an optional birth chart.
type NameScoreCommand struct {
	Surname           string
	GivenName         string
	Birth             *BirthData
	PreferredElements domain.ElementSet
	AvoidElements     domain.ElementSet
}

// NameScoreResult is the full scoring detail for one name.
type NameScoreResult struct {
	Candidate NameCandidate
	Wuge      WugeAnalysis
	Chart     *FourPillarsChart
}

// CharacterListFilter selects a page of reference characters.
type CharacterListFilter struct {
	Elements   domain.ElementSet
	Style      string
	Source     string
	Gender     domain.Gender
	Pagination Pagination
}

// GenerationSummary is the event published after a generation run.
type GenerationSummary struct {
	RunID           string    `json:"runId"`
	Surname         string    `json:"surname"`
	Gender          string    `json:"gender"`
	WithBirthData   bool      `json:"withBirthData"`
	CharacterCount  int       `json:"characterCount"`
	Requested       int       `json:"requested"`
	Returned        int       `json:"returned"`
	Skipped         int       `json:"skipped"`
	RelaxationSteps []string  `json:"relaxationSteps,omitempty"`
	TopName         string    `json:"topName,omitempty"`
	TopScore        int       `json:"topScore,omitempty"`
	Duration        string    `json:"duration"`
	GeneratedAt     time.Time `json:"generatedAt"`
}
