package services

import (
	"context"
	"errors"
	"math"
	"strings"

	domain "github.com/hanko-field/naming/internal/domain"
	"github.com/hanko-field/naming/internal/platform/cache"
	"github.com/hanko-field/naming/internal/wuge"
)

// ScoreWeights are the relative weights of the four score axes. They are normalised to sum to one.
type ScoreWeights struct {
	Bazi     float64
	Wuge     float64
	Phonetic float64
	Meaning  float64
}

// DefaultScoreWeights weighs all four axes equally.
func DefaultScoreWeights() ScoreWeights {
	return ScoreWeights{Bazi: 0.25, Wuge: 0.25, Phonetic: 0.25, Meaning: 0.25}
}

func (w ScoreWeights) normalise() (ScoreWeights, error) {
	if w == (ScoreWeights{}) {
		return DefaultScoreWeights(), nil
	}
	sum := w.Bazi + w.Wuge + w.Phonetic + w.Meaning
	if w.Bazi < 0 || w.Wuge < 0 || w.Phonetic < 0 || w.Meaning < 0 || sum <= 0 {
		return ScoreWeights{}, errors.New("naming: score weights must be non-negative with a positive sum")
	}
	return ScoreWeights{
		Bazi:     w.Bazi / sum,
		Wuge:     w.Wuge / sum,
		Phonetic: w.Phonetic / sum,
		Meaning:  w.Meaning / sum,
	}, nil
}

// Per-character element alignment points.
const (
	baziTargetPoints   = 100
	baziFeedsPoints    = 60
	baziNeutralPoints  = 70
	baziOffTargetPoint = 30
	baziAvoidedPoints  = 0
)

// Meaning heuristic: base plus frequency share plus bonuses for classical sources and common HSK levels.
const (
	meaningBase          = 40
	meaningFrequencyMax  = 40
	meaningSourceBonus   = 12
	meaningHSKBonus      = 8
	meaningCommonHSKMax  = 4
	maxScore             = 100
	targetSignatureDelim = "/"
)

// elementTargets are the elements a name is scored against.
type elementTargets struct {
	favorable domain.ElementSet
	avoid     domain.ElementSet
}

// signature identifies the targets in name-score cache keys; empty when there are none.
func (t elementTargets) signature() string {
	if len(t.favorable) == 0 && len(t.avoid) == 0 {
		return ""
	}
	return t.favorable.Signature() + targetSignatureDelim + t.avoid.Signature()
}

// scoredName is the cached scoring outcome of one surname and given name pair.
type scoredName struct {
	Breakdown domain.ScoreBreakdown
	Wuge      wuge.Analysis
	Phonetics domain.PhoneticReport
}

type nameScorer struct {
	calc    NamingCalculator
	cache   *cache.Store
	weights ScoreWeights
}

func (s *nameScorer) score(ctx context.Context, surname domain.Surname, given []domain.Character, targets elementTargets) (scoredName, error) {
	key := cache.NameScoreKey(surname.Surname, joinChars(given), targets.signature())
	scored, err := cache.GetOrCompute(ctx, s.cache, key, func() (scoredName, error) {
		strokes := make([]int, 0, len(given))
		pinyin := make([]string, 0, len(given))
		for _, c := range given {
			strokes = append(strokes, c.StrokeCount)
			pinyin = append(pinyin, c.Pinyin)
		}

		analysis, err := s.calc.Wuge(ctx, surname.Strokes, strokes)
		if err != nil {
			return scoredName{}, err
		}
		report, err := s.calc.Phonetics(ctx, surname.Pinyin, pinyin)
		if err != nil {
			return scoredName{}, err
		}

		breakdown := domain.ScoreBreakdown{
			BaziScore:     baziScore(given, targets),
			WugeScore:     analysis.OverallScore,
			PhoneticScore: report.Score,
			MeaningScore:  meaningScore(given),
		}
		breakdown.Overall = s.overall(breakdown)
		breakdown.Rating = domain.RatingFor(breakdown.Overall)
		return scoredName{Breakdown: breakdown, Wuge: analysis, Phonetics: report}, nil
	})
	if err != nil {
		return scoredName{}, err
	}
	scored.Phonetics = cloneReport(scored.Phonetics)
	return scored, nil
}

func (s *nameScorer) overall(b domain.ScoreBreakdown) int {
	total := s.weights.Bazi*float64(b.BaziScore) +
		s.weights.Wuge*float64(b.WugeScore) +
		s.weights.Phonetic*float64(b.PhoneticScore) +
		s.weights.Meaning*float64(b.MeaningScore)
	return clampScore(int(math.Round(total)))
}

// baziScore averages how well each character's element matches the targets.
func baziScore(given []domain.Character, targets elementTargets) int {
	if len(given) == 0 {
		return 0
	}
	total := 0
	for _, c := range given {
		switch {
		case targets.avoid.Contains(c.Element):
			total += baziAvoidedPoints
		case len(targets.favorable) == 0:
			total += baziNeutralPoints
		case targets.favorable.Contains(c.Element):
			total += baziTargetPoints
		case targets.favorable.Contains(c.Element.Generates()):
			total += baziFeedsPoints
		default:
			total += baziOffTargetPoint
		}
	}
	return clampScore(int(math.Round(float64(total) / float64(len(given)))))
}

// meaningScore rewards common, classically attested characters.
func meaningScore(given []domain.Character) int {
	if len(given) == 0 {
		return 0
	}
	total := 0
	for _, c := range given {
		points := meaningBase + c.Frequency*meaningFrequencyMax/100
		if len(c.Sources) > 0 {
			points += meaningSourceBonus
		}
		if c.HSKLevel != nil && *c.HSKLevel > 0 && *c.HSKLevel <= meaningCommonHSKMax {
			points += meaningHSKBonus
		}
		total += min(points, maxScore)
	}
	return clampScore(int(math.Round(float64(total) / float64(len(given)))))
}

func clampScore(score int) int {
	return max(0, min(maxScore, score))
}

func joinChars(chars []domain.Character) string {
	var builder strings.Builder
	for _, c := range chars {
		builder.WriteString(c.Char)
	}
	return builder.String()
}

func joinPinyin(surname domain.Surname, given []domain.Character) string {
	parts := make([]string, 0, len(surname.Pinyin)+len(given))
	parts = append(parts, surname.Pinyin...)
	for _, c := range given {
		parts = append(parts, c.Pinyin)
	}
	return strings.Join(parts, " ")
}
