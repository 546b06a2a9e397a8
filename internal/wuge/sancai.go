package wuge

import domain "github.com/hanko-field/naming/internal/domain"

// Harmony is the verdict of the three talents configuration.
type Harmony string

const (
	// HarmonyHarmonious means both transitions are same-element or generative.
	HarmonyHarmonious Harmony = "harmonious"
	// HarmonyMixed means one transition restrains.
	HarmonyMixed Harmony = "mixed"
	// HarmonyClashing means both transitions restrain.
	HarmonyClashing Harmony = "clashing"
)

// SanCai is the heaven/person/earth (三才) element reading of the grids.
type SanCai struct {
	Heaven  domain.FiveElement
	Person  domain.FiveElement
	Earth   domain.FiveElement
	Harmony Harmony
}

// Pattern renders the configuration as three Han element characters, e.g. 木火土.
func (s SanCai) Pattern() string {
	return s.Heaven.Han() + s.Person.Han() + s.Earth.Han()
}

// ComputeSanCai reads the element of tianGe, renGe and diGe from their last digit.
func ComputeSanCai(grids domain.WugeGrids) SanCai {
	heaven := digitElement(grids.TianGe)
	person := digitElement(grids.RenGe)
	earth := digitElement(grids.DiGe)

	clashes := 0
	if !compatible(heaven, person) {
		clashes++
	}
	if !compatible(person, earth) {
		clashes++
	}

	harmony := HarmonyHarmonious
	switch clashes {
	case 1:
		harmony = HarmonyMixed
	case 2:
		harmony = HarmonyClashing
	}
	return SanCai{Heaven: heaven, Person: person, Earth: earth, Harmony: harmony}
}

// digitElement maps last digits 1-2 Wood, 3-4 Fire, 5-6 Earth, 7-8 Metal, 9-0 Water.
func digitElement(value int) domain.FiveElement {
	digit := value % 10
	if digit < 0 {
		digit = -digit
	}
	switch digit {
	case 1, 2:
		return domain.ElementWood
	case 3, 4:
		return domain.ElementFire
	case 5, 6:
		return domain.ElementEarth
	case 7, 8:
		return domain.ElementMetal
	default:
		return domain.ElementWater
	}
}

func compatible(from, to domain.FiveElement) bool {
	return from == to || from.Generates() == to || to.Generates() == from
}
