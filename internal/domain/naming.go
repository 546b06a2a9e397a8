package domain

import "strings"

// Gender narrows the character pool for a generation request.
type Gender string

const (
	// GenderMale prefers characters tagged male or neutral.
	GenderMale Gender = "male"
	// GenderFemale prefers characters tagged female or neutral.
	GenderFemale Gender = "female"
	// GenderNeutral accepts any character.
	GenderNeutral Gender = "neutral"
)

// ParseGender normalises the gender input; empty input maps to neutral.
func ParseGender(value string) (Gender, bool) {
	switch Gender(strings.ToLower(strings.TrimSpace(value))) {
	case GenderMale:
		return GenderMale, true
	case GenderFemale:
		return GenderFemale, true
	case GenderNeutral, "":
		return GenderNeutral, true
	}
	return "", false
}

// Accepts reports whether a character tagged with affinity may be offered to g.
func (g Gender) Accepts(affinity Gender) bool {
	if g == "" || g == GenderNeutral || affinity == "" || affinity == GenderNeutral {
		return true
	}
	return g == affinity
}

// Character is a reference entry from the character store. The engine never mutates it.
type Character struct {
	Char        string
	Pinyin      string
	Tone        int
	StrokeCount int
	Element     FiveElement
	Meaning     string
	Frequency   int
	HSKLevel    *int
	Gender      Gender
	Styles      []string
	Sources     []string
}

// HasStyle reports whether the character carries the style tag.
func (c Character) HasStyle(style string) bool {
	return containsFold(c.Styles, style)
}

// HasSource reports whether the character carries the cultural source tag.
func (c Character) HasSource(source string) bool {
	return containsFold(c.Sources, source)
}

// Surname is a reference entry describing a one or two character family name.
type Surname struct {
	Surname string
	Pinyin  []string
	Strokes []int
}

// WugeGrids holds the five stroke-count grids.
type WugeGrids struct {
	TianGe int
	RenGe  int
	DiGe   int
	WaiGe  int
	ZongGe int
}

// PhoneticReport summarises the phonetic harmony checks for a name.
type PhoneticReport struct {
	Score       int
	Warnings    []string
	Suggestions []string
}

// Rating buckets the overall score.
type Rating string

const (
	// RatingExcellent covers overall scores of 85 and above.
	RatingExcellent Rating = "excellent"
	// RatingGood covers overall scores of 70 to 84.
	RatingGood Rating = "good"
	// RatingFair covers overall scores of 55 to 69.
	RatingFair Rating = "fair"
	// RatingPoor covers everything below 55.
	RatingPoor Rating = "poor"
)

// RatingFor maps an overall score onto its bucket.
func RatingFor(overall int) Rating {
	switch {
	case overall >= 85:
		return RatingExcellent
	case overall >= 70:
		return RatingGood
	case overall >= 55:
		return RatingFair
	default:
		return RatingPoor
	}
}

// ScoreBreakdown carries the four discipline scores and their aggregate, all 0-100.
type ScoreBreakdown struct {
	BaziScore     int
	WugeScore     int
	PhoneticScore int
	MeaningScore  int
	Overall       int
	Rating        Rating
}

// NameCandidate is a scored name proposal. Candidates live for one request.
type NameCandidate struct {
	ID         string
	Surname    string
	GivenName  string
	FullName   string
	Pinyin     string
	Characters []Character
	Score      ScoreBreakdown
	Wuge       WugeGrids
	Phonetics  PhoneticReport
	Source     string
}

func containsFold(values []string, target string) bool {
	target = strings.TrimSpace(target)
	if target == "" {
		return false
	}
	for _, value := range values {
		if strings.EqualFold(strings.TrimSpace(value), target) {
			return true
		}
	}
	return false
}
