package services

import (
	"context"
	"math"
	"testing"

	domain "github.com/hanko-field/naming/internal/domain"
	"github.com/hanko-field/naming/internal/platform/cache"
)

func TestScoreWeightsNormalise(t *testing.T) {
	weights, err := ScoreWeights{}.normalise()
	if err != nil {
		t.Fatalf("normalise zero value: %v", err)
	}
	if weights != DefaultScoreWeights() {
		t.Fatalf("expected defaults, got %+v", weights)
	}

	weights, err = ScoreWeights{Bazi: 2, Wuge: 1, Phonetic: 1, Meaning: 0}.normalise()
	if err != nil {
		t.Fatalf("normalise: %v", err)
	}
	if math.Abs(weights.Bazi-0.5) > 1e-9 || math.Abs(weights.Wuge-0.25) > 1e-9 || weights.Meaning != 0 {
		t.Fatalf("unexpected normalised weights %+v", weights)
	}

	if _, err := (ScoreWeights{Bazi: -1, Wuge: 2}).normalise(); err == nil {
		t.Fatal("expected error for negative weight")
	}
}

func TestBaziScore(t *testing.T) {
	metal := domain.Character{Char: "锐", Element: domain.ElementMetal}
	earth := domain.Character{Char: "坤", Element: domain.ElementEarth}
	fire := domain.Character{Char: "明", Element: domain.ElementFire}

	cases := map[string]struct {
		given    []domain.Character
		targets  elementTargets
		expected int
	}{
		"no targets": {
			given:    []domain.Character{metal},
			expected: baziNeutralPoints,
		},
		"on target": {
			given:    []domain.Character{metal},
			targets:  elementTargets{favorable: domain.ElementSet{domain.ElementMetal}},
			expected: baziTargetPoints,
		},
		"feeds target": {
			given:    []domain.Character{earth},
			targets:  elementTargets{favorable: domain.ElementSet{domain.ElementMetal}},
			expected: baziFeedsPoints,
		},
		"off target": {
			given:    []domain.Character{fire},
			targets:  elementTargets{favorable: domain.ElementSet{domain.ElementMetal}},
			expected: baziOffTargetPoint,
		},
		"avoided": {
			given:    []domain.Character{fire},
			targets:  elementTargets{avoid: domain.ElementSet{domain.ElementFire}},
			expected: baziAvoidedPoints,
		},
		"averaged": {
			given:    []domain.Character{metal, earth},
			targets:  elementTargets{favorable: domain.ElementSet{domain.ElementMetal}},
			expected: 80,
		},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			if got := baziScore(tc.given, tc.targets); got != tc.expected {
				t.Fatalf("expected %d, got %d", tc.expected, got)
			}
		})
	}
}

func TestMeaningScore(t *testing.T) {
	level := 2
	common := domain.Character{Frequency: 100, Sources: []string{"shijing"}, HSKLevel: &level}
	rare := domain.Character{Frequency: 10}

	if got := meaningScore([]domain.Character{common}); got != 100 {
		t.Fatalf("expected capped score 100, got %d", got)
	}
	if got := meaningScore([]domain.Character{rare}); got != 44 {
		t.Fatalf("expected 44, got %d", got)
	}
	if got := meaningScore([]domain.Character{common, rare}); got != 72 {
		t.Fatalf("expected average 72, got %d", got)
	}
	if got := meaningScore(nil); got != 0 {
		t.Fatalf("expected 0 for no characters, got %d", got)
	}
}

func TestElementTargetsSignature(t *testing.T) {
	if sig := (elementTargets{}).signature(); sig != "" {
		t.Fatalf("expected empty signature, got %q", sig)
	}
	a := elementTargets{favorable: domain.ElementSet{domain.ElementWood, domain.ElementFire}}
	b := elementTargets{favorable: domain.ElementSet{domain.ElementFire, domain.ElementWood}}
	if a.signature() != b.signature() {
		t.Fatalf("signature must not depend on order: %q vs %q", a.signature(), b.signature())
	}
	c := elementTargets{avoid: domain.ElementSet{domain.ElementWood, domain.ElementFire}}
	if a.signature() == c.signature() {
		t.Fatalf("favorable and avoided targets must not collide: %q", a.signature())
	}
}

func TestNameScorerCachesPerTargets(t *testing.T) {
	store := cache.New(cache.WithTTL(0))
	scorer := &nameScorer{calc: NewNamingCalculator(store), cache: store, weights: DefaultScoreWeights()}
	fixture := namingFixture()
	surname := fixture.Surnames[0]
	given := fixture.Characters[:2]

	plain, err := scorer.score(context.Background(), surname, given, elementTargets{})
	if err != nil {
		t.Fatalf("score: %v", err)
	}
	again, err := scorer.score(context.Background(), surname, given, elementTargets{})
	if err != nil {
		t.Fatalf("score: %v", err)
	}
	if plain.Breakdown != again.Breakdown {
		t.Fatalf("expected identical breakdowns, got %+v and %+v", plain.Breakdown, again.Breakdown)
	}

	key := cache.NameScoreKey(surname.Surname, joinChars(given), "")
	if _, ok := store.Get(context.Background(), key); !ok {
		t.Fatalf("expected %s to be cached", key)
	}

	targeted, err := scorer.score(context.Background(), surname, given, elementTargets{favorable: domain.ElementSet{domain.ElementWood}})
	if err != nil {
		t.Fatalf("score: %v", err)
	}
	if targeted.Breakdown.BaziScore != baziTargetPoints {
		t.Fatalf("expected wood target to score %d, got %d", baziTargetPoints, targeted.Breakdown.BaziScore)
	}
	if plain.Breakdown.BaziScore != baziNeutralPoints {
		t.Fatalf("expected untargeted score to stay neutral, got %d", plain.Breakdown.BaziScore)
	}
	b := targeted.Breakdown
	expected := int(math.Round(0.25*float64(b.BaziScore) + 0.25*float64(b.WugeScore) + 0.25*float64(b.PhoneticScore) + 0.25*float64(b.MeaningScore)))
	if b.Overall != expected {
		t.Fatalf("expected overall %d, got %d", expected, b.Overall)
	}
}
