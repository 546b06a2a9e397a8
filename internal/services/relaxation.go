package services

import (
	domain "github.com/hanko-field/naming/internal/domain"
	"github.com/hanko-field/naming/internal/repositories"
)

// Relaxation step names, reported in results and summary events.
const (
	RelaxDropAvoid      = "drop_avoid_elements"
	RelaxDropPreferred  = "drop_preferred_elements"
	RelaxWidenSample    = "widen_sample_cap"
	RelaxDropTagFilters = "drop_tag_filters"
)

// FilterSet is the candidate pool selection for one generation pass.
type FilterSet struct {
	Favorable domain.ElementSet
	Preferred domain.ElementSet
	Avoid     domain.ElementSet
	Style     string
	Source    string
	Gender    domain.Gender
	SampleCap int
}

// Targets returns the favorable and preferred elements minus the avoided ones.
func (f FilterSet) Targets() domain.ElementSet {
	return f.Favorable.Union(f.Preferred).Without(f.Avoid)
}

// Query returns the store query for this filter set. ok is false when avoidance
// excludes every element and no query can match.
func (f FilterSet) Query() (query repositories.CharacterQuery, ok bool) {
	query = repositories.CharacterQuery{
		Style:  f.Style,
		Source: f.Source,
		Gender: f.Gender,
	}
	if targets := f.Targets(); len(targets) > 0 {
		query.Elements = targets
		return query, true
	}
	if len(f.Avoid) == 0 {
		return query, true
	}
	rest := domain.NewElementSet(domain.AllElements[:]...).Without(f.Avoid)
	if len(rest) == 0 {
		return query, false
	}
	query.Elements = rest
	return query, true
}

// RelaxationStep is a pure transform loosening a FilterSet.
type RelaxationStep struct {
	Name  string
	Apply func(FilterSet) FilterSet
}

// RelaxationSteps returns the ordered fallback policy. widenedCap replaces the pair sample cap.
func RelaxationSteps(widenedCap int) []RelaxationStep {
	return []RelaxationStep{
		{Name: RelaxDropAvoid, Apply: func(f FilterSet) FilterSet {
			f.Avoid = nil
			return f
		}},
		{Name: RelaxDropPreferred, Apply: func(f FilterSet) FilterSet {
			f.Favorable = nil
			f.Preferred = nil
			return f
		}},
		{Name: RelaxWidenSample, Apply: func(f FilterSet) FilterSet {
			if widenedCap > f.SampleCap {
				f.SampleCap = widenedCap
			}
			return f
		}},
		{Name: RelaxDropTagFilters, Apply: func(f FilterSet) FilterSet {
			f.Style = ""
			f.Source = ""
			f.Gender = domain.GenderNeutral
			return f
		}},
	}
}
