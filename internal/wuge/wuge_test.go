package wuge

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	domain "github.com/hanko-field/naming/internal/domain"
)

func TestCalculate_SingleSurnameTwoCharacterName(t *testing.T) {
	t.Parallel()

	grids, err := Calculate([]int{7}, []int{11, 12})
	require.NoError(t, err)
	require.Equal(t, domain.WugeGrids{TianGe: 8, RenGe: 18, DiGe: 23, WaiGe: 13, ZongGe: 30}, grids)
}

func TestCalculate_CompoundSurnameSingleName(t *testing.T) {
	t.Parallel()

	grids, err := Calculate([]int{4, 12}, []int{5})
	require.NoError(t, err)
	require.Equal(t, domain.WugeGrids{TianGe: 16, RenGe: 17, DiGe: 6, WaiGe: 5, ZongGe: 21}, grids)
}

func TestCalculate_RejectsInvalidStrokes(t *testing.T) {
	t.Parallel()

	cases := map[string]struct {
		surname []int
		given   []int
	}{
		"empty surname":  {nil, []int{3}},
		"empty given":    {[]int{3}, nil},
		"zero stroke":    {[]int{3}, []int{0, 4}},
		"negative count": {[]int{-1}, []int{4}},
	}
	for name, tc := range cases {
		tc := tc
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			_, err := Calculate(tc.surname, tc.given)
			require.True(t, errors.Is(err, ErrInvalidStrokes))
		})
	}
}

func TestAnalyze_Fixture(t *testing.T) {
	t.Parallel()

	analysis, err := Analyze([]int{7}, []int{11, 12})
	require.NoError(t, err)

	require.Equal(t, FortuneAuspicious, analysis.TianGe.Fortune)
	require.Equal(t, FortuneAuspicious, analysis.RenGe.Fortune)
	require.Equal(t, FortuneAuspicious, analysis.DiGe.Fortune)
	require.Equal(t, FortuneAuspicious, analysis.WaiGe.Fortune)
	require.Equal(t, FortuneNeutral, analysis.ZongGe.Fortune)
	require.Equal(t, 88, analysis.OverallScore)

	require.Equal(t, "金金火", analysis.SanCai.Pattern())
	require.Equal(t, HarmonyMixed, analysis.SanCai.Harmony)
}

func TestInterpret_WrapsAroundCycle(t *testing.T) {
	t.Parallel()

	require.Equal(t, 81, Interpret(81).Number)
	require.Equal(t, "万物回春", Interpret(81).Label)
	require.Equal(t, 1, Interpret(82).Number)
	require.Equal(t, Interpret(1).Label, Interpret(82).Label)
	require.Equal(t, 81, Interpret(162).Number)
	require.Equal(t, 82, Interpret(82).Value)
}

func TestAnalyze_OverallScoreWithinBounds(t *testing.T) {
	t.Parallel()

	for s1 := 1; s1 <= 30; s1 += 3 {
		for g1 := 1; g1 <= 30; g1 += 2 {
			for g2 := 1; g2 <= 30; g2 += 5 {
				analysis, err := Analyze([]int{s1}, []int{g1, g2})
				require.NoError(t, err)
				require.GreaterOrEqual(t, analysis.OverallScore, 0)
				require.LessOrEqual(t, analysis.OverallScore, 100)
			}
		}
	}
}

func TestWeightsSumToOne(t *testing.T) {
	t.Parallel()

	require.InDelta(t, 1.0, WeightTianGe+WeightRenGe+WeightDiGe+WeightWaiGe+WeightZongGe, 1e-9)
}

func TestFortuneTableIsComplete(t *testing.T) {
	t.Parallel()

	for idx, entry := range fortunes {
		require.NotEmpty(t, entry.label, "number %d", idx+1)
		require.NotEmpty(t, entry.summary, "number %d", idx+1)
		require.Contains(t, []Fortune{FortuneAuspicious, FortuneNeutral, FortuneInauspicious}, entry.fortune)
	}
}

func TestComputeSanCai(t *testing.T) {
	t.Parallel()

	// 11 wood, 13 fire, 15 earth: each step generates the next
	harmonious := ComputeSanCai(domain.WugeGrids{TianGe: 11, RenGe: 13, DiGe: 15})
	require.Equal(t, HarmonyHarmonious, harmonious.Harmony)
	require.Equal(t, "木火土", harmonious.Pattern())

	// 10 water, 13 fire, 17 metal: water restrains fire, fire restrains metal
	clashing := ComputeSanCai(domain.WugeGrids{TianGe: 10, RenGe: 13, DiGe: 17})
	require.Equal(t, HarmonyClashing, clashing.Harmony)
}
