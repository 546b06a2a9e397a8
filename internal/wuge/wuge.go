// Package wuge implements five-grid (五格) stroke-count numerology.
package wuge

import (
	"errors"
	"fmt"
	"math"

	domain "github.com/hanko-field/naming/internal/domain"
)

// ErrInvalidStrokes is returned for empty stroke sequences or non-positive stroke counts.
var ErrInvalidStrokes = errors.New("wuge: invalid stroke counts")

// NumberCycle is the length of the classical numerology cycle.
const NumberCycle = 81

// Grid weights for the overall score. The personality (人格) and total (总格)
// grids dominate; the heaven grid is inherited from the surname and weighs least.
const (
	WeightTianGe = 0.10
	WeightRenGe  = 0.30
	WeightDiGe   = 0.15
	WeightWaiGe  = 0.15
	WeightZongGe = 0.30
)

// Interpretation is the fortune record of a single grid value.
type Interpretation struct {
	Value   int
	Number  int
	Label   string
	Fortune Fortune
	Summary string
}

// Analysis is the full five-grid reading of a name.
type Analysis struct {
	Grids        domain.WugeGrids
	TianGe       Interpretation
	RenGe        Interpretation
	DiGe         Interpretation
	WaiGe        Interpretation
	ZongGe       Interpretation
	SanCai       SanCai
	OverallScore int
}

// Calculate derives the five grids from the surname and given name stroke counts.
func Calculate(surnameStrokes, givenStrokes []int) (domain.WugeGrids, error) {
	if err := validateStrokes("surname", surnameStrokes); err != nil {
		return domain.WugeGrids{}, err
	}
	if err := validateStrokes("given name", givenStrokes); err != nil {
		return domain.WugeGrids{}, err
	}

	surnameTotal := sum(surnameStrokes)
	givenTotal := sum(givenStrokes)

	tian := surnameTotal
	if len(surnameStrokes) == 1 {
		tian = surnameStrokes[0] + 1
	}
	di := givenTotal
	if len(givenStrokes) == 1 {
		di = givenStrokes[0] + 1
	}
	ren := surnameStrokes[len(surnameStrokes)-1] + givenStrokes[0]
	zong := surnameTotal + givenTotal

	return domain.WugeGrids{
		TianGe: tian,
		RenGe:  ren,
		DiGe:   di,
		WaiGe:  zong - ren + 1,
		ZongGe: zong,
	}, nil
}

// Analyze calculates the grids and interprets each of them.
func Analyze(surnameStrokes, givenStrokes []int) (Analysis, error) {
	grids, err := Calculate(surnameStrokes, givenStrokes)
	if err != nil {
		return Analysis{}, err
	}
	return AnalyzeGrids(grids), nil
}

// AnalyzeGrids interprets already calculated grids.
func AnalyzeGrids(grids domain.WugeGrids) Analysis {
	result := Analysis{
		Grids:  grids,
		TianGe: Interpret(grids.TianGe),
		RenGe:  Interpret(grids.RenGe),
		DiGe:   Interpret(grids.DiGe),
		WaiGe:  Interpret(grids.WaiGe),
		ZongGe: Interpret(grids.ZongGe),
		SanCai: ComputeSanCai(grids),
	}
	result.OverallScore = overallScore(result)
	return result
}

// Interpret maps a grid value onto the 81-number table; multiples of 81 read as 81.
func Interpret(value int) Interpretation {
	number := value % NumberCycle
	if number < 0 {
		number += NumberCycle
	}
	if number == 0 {
		number = NumberCycle
	}
	entry := fortunes[number-1]
	return Interpretation{
		Value:   value,
		Number:  number,
		Label:   entry.label,
		Fortune: entry.fortune,
		Summary: entry.summary,
	}
}

func overallScore(result Analysis) int {
	total := WeightTianGe*float64(result.TianGe.Fortune.Points()) +
		WeightRenGe*float64(result.RenGe.Fortune.Points()) +
		WeightDiGe*float64(result.DiGe.Fortune.Points()) +
		WeightWaiGe*float64(result.WaiGe.Fortune.Points()) +
		WeightZongGe*float64(result.ZongGe.Fortune.Points())
	score := int(math.Round(total))
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

func validateStrokes(part string, strokes []int) error {
	if len(strokes) == 0 {
		return fmt.Errorf("%w: %s has no characters", ErrInvalidStrokes, part)
	}
	for idx, count := range strokes {
		if count <= 0 {
			return fmt.Errorf("%w: %s character %d has %d strokes", ErrInvalidStrokes, part, idx+1, count)
		}
	}
	return nil
}

func sum(values []int) int {
	total := 0
	for _, v := range values {
		total += v
	}
	return total
}
