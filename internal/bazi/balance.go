package bazi

import domain "github.com/hanko-field/naming/internal/domain"

// Balance is the elemental tally of a chart.
type Balance struct {
	Counts    map[domain.FiveElement]int
	DayMaster domain.FiveElement
	Support   int
	Oppose    int
	Strong    bool
	Favorable domain.ElementSet
	Missing   domain.ElementSet
}

// AnalyzeBalance tallies one element per stem and per branch and judges the day master.
//
// The day master is strong when the other seven tallies hold a majority of
// supporting elements (same element or its generator). A weak day master favors
// its generator and itself; a strong one favors the element it feeds and the
// element that restrains it.
func AnalyzeBalance(chart domain.FourPillarsChart) Balance {
	counts := make(map[domain.FiveElement]int, len(domain.AllElements))
	for _, el := range domain.AllElements {
		counts[el] = 0
	}

	dayMaster := chart.DayMaster()
	generator := dayMaster.GeneratedBy()

	var support, oppose int
	for idx, pillar := range chart.Pillars() {
		stemEl := pillar.Stem.Element()
		branchEl := pillar.Branch.Element()
		counts[stemEl]++
		counts[branchEl]++

		if idx != 2 {
			support, oppose = tally(stemEl, dayMaster, generator, support, oppose)
		}
		support, oppose = tally(branchEl, dayMaster, generator, support, oppose)
	}

	strong := support > oppose
	var favorable domain.ElementSet
	if strong {
		favorable = domain.NewElementSet(dayMaster.Generates(), dayMaster.RestrainedBy())
	} else {
		favorable = domain.NewElementSet(generator, dayMaster)
	}

	missing := make([]domain.FiveElement, 0, len(domain.AllElements))
	for _, el := range domain.AllElements {
		if counts[el] == 0 {
			missing = append(missing, el)
		}
	}

	return Balance{
		Counts:    counts,
		DayMaster: dayMaster,
		Support:   support,
		Oppose:    oppose,
		Strong:    strong,
		Favorable: favorable,
		Missing:   domain.NewElementSet(missing...),
	}
}

// FavorableElements returns the deduplicated, non-empty favorable element set of a chart.
func FavorableElements(chart domain.FourPillarsChart) domain.ElementSet {
	return AnalyzeBalance(chart).Favorable
}

func tally(el, dayMaster, generator domain.FiveElement, support, oppose int) (int, int) {
	if el == dayMaster || el == generator {
		return support + 1, oppose
	}
	return support, oppose + 1
}
