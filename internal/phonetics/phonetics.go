// Package phonetics scores the sound of a full name: tone flow, consonant
// clusters, unlucky homophones, endings and alliteration.
package phonetics

import (
	"fmt"
	"strconv"
	"strings"

	domain "github.com/hanko-field/naming/internal/domain"
)

const (
	baseScore = 100

	monotonousPenalty   = 20
	clusterPenalty      = 10
	homophonePenalty    = 30
	endingAdjustment    = 5
	alliterationPenalty = 15
	twoInitialsBonus    = 3
	maxPatternBonus     = 7
)

// pleasantPatterns maps full-name tone sequences to their bonus.
var pleasantPatterns = map[string]int{
	"14":   5,
	"24":   5,
	"31":   4,
	"42":   4,
	"124":  7,
	"214":  7,
	"314":  6,
	"132":  6,
	"142":  6,
	"234":  5,
	"413":  5,
	"342":  5,
	"241":  4,
	"1234": 7,
	"2143": 6,
	"3142": 6,
	"1324": 6,
	"4213": 5,
}

// clusterPairs lists initials that are hard to say back to back, in either order.
var clusterPairs = [][2]string{
	{"zh", "z"},
	{"ch", "c"},
	{"sh", "s"},
	{"n", "l"},
	{"f", "h"},
	{"j", "zh"},
	{"q", "ch"},
	{"x", "sh"},
}

var homophoneExact = []string{"si", "gui"}

var homophoneSubstrings = []string{
	"siwang",
	"sile",
	"shaji",
	"wugui",
	"bendan",
	"shagua",
	"zaogao",
	"laji",
	"duziteng",
	"sishi",
	"shibai",
	"bingdu",
}

var preferredEndings = []string{"ang", "eng", "ing", "ong", "ian", "uan", "an", "ao", "a"}

var avoidedFinals = map[string]struct{}{
	"e":  {},
	"u":  {},
	"v":  {},
	"er": {},
}

// Check scores the name built from the surname syllables and given name syllables.
// Every entry may be tone-marked or tone-numbered pinyin.
func Check(surnamePinyin, givenPinyin []string) (domain.PhoneticReport, error) {
	surname, err := ParseSyllables(surnamePinyin)
	if err != nil {
		return domain.PhoneticReport{}, err
	}
	given, err := ParseSyllables(givenPinyin)
	if err != nil {
		return domain.PhoneticReport{}, err
	}
	if len(surname) == 0 || len(given) == 0 {
		return domain.PhoneticReport{}, fmt.Errorf("%w: surname and given name are required", ErrInvalidPinyin)
	}
	return Analyze(surname, given), nil
}

// Analyze scores already parsed syllables.
func Analyze(surname, given []Syllable) domain.PhoneticReport {
	full := make([]Syllable, 0, len(surname)+len(given))
	full = append(full, surname...)
	full = append(full, given...)

	r := &report{score: baseScore}
	r.checkTones(full, given)
	r.checkClusters(full)
	r.checkHomophones(given)
	r.checkEnding(given[len(given)-1])
	r.checkInitials(full)

	return domain.PhoneticReport{
		Score:       clamp(r.score),
		Warnings:    r.warnings,
		Suggestions: r.suggestions,
	}
}

type report struct {
	score       int
	warnings    []string
	suggestions []string
}

func (r *report) warn(penalty int, format string, args ...any) {
	r.score -= penalty
	r.warnings = append(r.warnings, fmt.Sprintf(format, args...))
}

func (r *report) suggest(bonus int, format string, args ...any) {
	r.score += bonus
	r.suggestions = append(r.suggestions, fmt.Sprintf(format, args...))
}

func (r *report) checkTones(full, given []Syllable) {
	for _, s := range full {
		if s.Tone == 0 {
			r.suggest(0, "tone of %q is unknown; add tone marks for a full tone analysis", s.Text)
			return
		}
	}

	givenTones := toneSequence(given)
	fullTones := toneSequence(full)
	switch {
	case len(givenTones) >= 2 && allSame(givenTones):
		r.warn(monotonousPenalty, "given name tones %s are monotonous", dashed(givenTones))
	case len(fullTones) >= 3 && allSame(fullTones):
		r.warn(monotonousPenalty, "all tones %s are identical", dashed(fullTones))
	}

	if bonus, ok := pleasantPatterns[fullTones]; ok {
		if bonus > maxPatternBonus {
			bonus = maxPatternBonus
		}
		r.suggest(bonus, "tone pattern %s flows well", dashed(fullTones))
	}
}

func (r *report) checkClusters(full []Syllable) {
	for idx := 1; idx < len(full); idx++ {
		prev, next := full[idx-1].Initial, full[idx].Initial
		if hardCluster(prev, next) {
			r.warn(clusterPenalty, "initials %q and %q are hard to pronounce together (%s %s)", prev, next, full[idx-1].Text, full[idx].Text)
		}
	}
}

// checkHomophones matches the given name only; surnames are fixed by the caller.
func (r *report) checkHomophones(given []Syllable) {
	givenPlain := joinText(given)
	for _, exact := range homophoneExact {
		if givenPlain == exact {
			r.warn(homophonePenalty, "given name %q sounds like an unlucky word", givenPlain)
			return
		}
	}
	for _, fragment := range homophoneSubstrings {
		if strings.Contains(givenPlain, fragment) {
			r.warn(homophonePenalty, "given name contains %q, an unlucky homophone", fragment)
			return
		}
	}
}

func (r *report) checkEnding(last Syllable) {
	if _, avoided := avoidedFinals[last.Final]; avoided {
		r.warn(endingAdjustment, "ending sound %q is weak; prefer an open or nasal final", last.Final)
		return
	}
	for _, ending := range preferredEndings {
		if strings.HasSuffix(last.Final, ending) {
			r.suggest(endingAdjustment, "ending sound %q is resonant", last.Final)
			return
		}
	}
}

func (r *report) checkInitials(full []Syllable) {
	if len(full) < 2 {
		return
	}
	distinct := map[string]struct{}{}
	for _, s := range full {
		distinct[s.Initial] = struct{}{}
	}
	switch {
	case len(distinct) == 1 && full[0].Initial != "":
		r.warn(alliterationPenalty, "every syllable starts with %q", full[0].Initial)
	case len(distinct) == 2:
		r.suggest(twoInitialsBonus, "initial consonants alternate pleasantly")
	}
}

func hardCluster(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	for _, pair := range clusterPairs {
		if (pair[0] == a && pair[1] == b) || (pair[0] == b && pair[1] == a) {
			return true
		}
	}
	return false
}

func toneSequence(syllables []Syllable) string {
	var builder strings.Builder
	for _, s := range syllables {
		builder.WriteString(strconv.Itoa(s.Tone))
	}
	return builder.String()
}

func allSame(sequence string) bool {
	return strings.Count(sequence, sequence[:1]) == len(sequence)
}

func dashed(sequence string) string {
	return strings.Join(strings.Split(sequence, ""), "-")
}

func joinText(syllables []Syllable) string {
	var builder strings.Builder
	for _, s := range syllables {
		builder.WriteString(s.Text)
	}
	return builder.String()
}

func clamp(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}
