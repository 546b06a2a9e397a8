package bazi

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	domain "github.com/hanko-field/naming/internal/domain"
)

func pillarString(p domain.Pillar) string { return p.String() }

func TestComputeChart_KnownFixture(t *testing.T) {
	t.Parallel()

	chart, err := ComputeChart(1990, 12, 23, 8)
	require.NoError(t, err)

	require.Equal(t, "庚午", pillarString(chart.Year))
	require.Equal(t, "戊子", pillarString(chart.Month))
	require.Equal(t, "壬戌", pillarString(chart.Day))
	require.Equal(t, "甲辰", pillarString(chart.Hour))

	require.NotEmpty(t, chart.FavorableElements)
	require.Equal(t, domain.ElementSet{domain.ElementMetal, domain.ElementWater}, chart.FavorableElements)
}

func TestComputeChart_Deterministic(t *testing.T) {
	t.Parallel()

	first, err := ComputeChart(1985, 7, 14, 16)
	require.NoError(t, err)
	second, err := ComputeChart(1985, 7, 14, 16)
	require.NoError(t, err)

	if diff := cmp.Diff(first, second); diff != "" {
		t.Fatalf("charts differ (-first +second):\n%s", diff)
	}
}

func TestComputeChart_DayCycleReference(t *testing.T) {
	t.Parallel()

	require.Equal(t, 2451545, JulianDayNumber(2000, 1, 1))

	chart, err := ComputeChart(2000, 1, 1, 12)
	require.NoError(t, err)
	require.Equal(t, "庚辰", chart.Year.String())
	require.Equal(t, "丙子", chart.Month.String())
	require.Equal(t, "戊午", chart.Day.String())
	require.Equal(t, "戊午", chart.Hour.String())
}

func TestComputeChart_LateRatHourRollsDay(t *testing.T) {
	t.Parallel()

	chart, err := ComputeChart(1990, 12, 23, 23)
	require.NoError(t, err)
	require.Equal(t, "癸亥", chart.Day.String())
	require.Equal(t, "壬子", chart.Hour.String())

	early, err := ComputeChart(1990, 12, 24, 0)
	require.NoError(t, err)
	require.Equal(t, chart.Day, early.Day)
	require.Equal(t, chart.Hour, early.Hour)
}

func TestMonthBranch_FollowsSectionalTerms(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		year   int
		month  int
		day    int
		branch string
	}{
		{"before start of spring", 2024, 2, 3, "丑"},
		{"start of spring", 2024, 2, 4, "寅"},
		{"before minor cold", 2024, 1, 5, "子"},
		{"after major snow", 1990, 12, 23, "子"},
		{"before major snow", 1990, 12, 6, "亥"},
		{"mid summer", 2010, 7, 20, "未"},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tc.branch, MonthBranch(tc.year, tc.month, tc.day).String())
		})
	}
}

func TestSectionalTermDay_KnownDates(t *testing.T) {
	t.Parallel()

	require.Equal(t, 4, SectionalTermDay(2024, 2))
	require.Equal(t, 7, SectionalTermDay(1990, 12))
	require.Equal(t, 6, SectionalTermDay(2000, 1))
	require.Equal(t, 4, SectionalTermDay(2150, 2), "mean date outside the supported centuries")
	require.Equal(t, 5, SectionalTermDay(2019, 1))
	require.Equal(t, 6, SectionalTermDay(1982, 1))
	require.Equal(t, 7, SectionalTermDay(2016, 7))
}

func TestComputeChart_MonthPillarAcrossNewYear(t *testing.T) {
	t.Parallel()

	dates := [][3]int{
		{2023, 11, 20},
		{2023, 12, 20},
		{2024, 1, 10},
		{2024, 2, 10},
		{2024, 3, 10},
	}
	want := []string{"癸亥", "甲子", "乙丑", "丙寅", "丁卯"}

	var prev domain.Pillar
	for idx, date := range dates {
		chart, err := ComputeChart(date[0], date[1], date[2], 12)
		require.NoError(t, err)
		require.Equal(t, want[idx], chart.Month.String(), "%v", date)
		if idx > 0 {
			require.Equal(t, domain.StemAt(prev.Stem.Index()+1), chart.Month.Stem, "%v", date)
			require.Equal(t, domain.BranchAt(prev.Branch.Index()+1), chart.Month.Branch, "%v", date)
		}
		prev = chart.Month
	}

	chart, err := ComputeChart(2024, 1, 10, 12)
	require.NoError(t, err)
	require.Equal(t, "甲辰", chart.Year.String(), "year pillar stays on the Gregorian year")
}

func TestComputeChart_MinorColdCorrection(t *testing.T) {
	t.Parallel()

	chart, err := ComputeChart(2019, 1, 5, 12)
	require.NoError(t, err)
	require.Equal(t, "乙丑", chart.Month.String())

	chart, err = ComputeChart(2019, 1, 4, 12)
	require.NoError(t, err)
	require.Equal(t, "甲子", chart.Month.String())
}

func TestMonthAndHourStemTables(t *testing.T) {
	t.Parallel()

	// five tigers: stem of 寅 for each year stem group
	tigers := map[string]string{"甲": "丙", "乙": "戊", "丙": "庚", "丁": "壬", "戊": "甲", "己": "丙", "庚": "戊", "辛": "庚", "壬": "壬", "癸": "甲"}
	for idx := 0; idx < domain.StemCount; idx++ {
		stem := domain.StemAt(idx)
		require.Equal(t, tigers[stem.String()], monthStem(stem, domain.BranchAt(2)).String(), "year stem %s", stem)
	}

	// five rats: stem of 子 for each day stem group
	rats := map[string]string{"甲": "甲", "乙": "丙", "丙": "戊", "丁": "庚", "戊": "壬", "己": "甲", "庚": "丙", "辛": "戊", "壬": "庚", "癸": "壬"}
	for idx := 0; idx < domain.StemCount; idx++ {
		stem := domain.StemAt(idx)
		require.Equal(t, rats[stem.String()], hourStem(stem, domain.BranchAt(0)).String(), "day stem %s", stem)
	}
}

func TestHourBranch(t *testing.T) {
	t.Parallel()

	expected := []string{"子", "丑", "丑", "寅", "寅", "卯", "卯", "辰", "辰", "巳", "巳", "午", "午", "未", "未", "申", "申", "酉", "酉", "戌", "戌", "亥", "亥", "子"}
	for hour, want := range expected {
		require.Equal(t, want, HourBranch(hour).String(), "hour %d", hour)
	}
}

func TestComputeChart_InvalidDate(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name                   string
		year, month, day, hour int
	}{
		{"non leap february", 2023, 2, 29, 0},
		{"month out of range", 2024, 13, 1, 0},
		{"day zero", 2024, 1, 0, 0},
		{"april 31", 2024, 4, 31, 10},
		{"hour too large", 2024, 1, 1, 24},
		{"negative hour", 2024, 1, 1, -1},
		{"year zero", 0, 1, 1, 0},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := ComputeChart(tc.year, tc.month, tc.day, tc.hour)
			require.Error(t, err)
			require.True(t, errors.Is(err, ErrInvalidDate))
		})
	}

	_, err := ComputeChart(2024, 2, 29, 0)
	require.NoError(t, err, "leap day is valid")
}

func TestFavorableElements_NonEmptyAndUnique(t *testing.T) {
	t.Parallel()

	for year := 1950; year <= 2030; year += 7 {
		for month := 1; month <= 12; month++ {
			for _, hour := range []int{0, 5, 11, 17, 23} {
				chart, err := ComputeChart(year, month, 1+(year+month)%28, hour)
				require.NoError(t, err)
				favorable := chart.FavorableElements
				require.NotEmpty(t, favorable)
				require.Equal(t, domain.NewElementSet(favorable...), favorable, "favorable elements must be duplicate free")
			}
		}
	}
}

func TestAnalyzeBalance_StrongDayMaster(t *testing.T) {
	t.Parallel()

	woodPillar := domain.Pillar{Stem: domain.StemAt(0), Branch: domain.BranchAt(2)} // 甲寅
	chart := domain.FourPillarsChart{Year: woodPillar, Month: woodPillar, Day: woodPillar, Hour: woodPillar}

	balance := AnalyzeBalance(chart)
	require.Equal(t, domain.ElementWood, balance.DayMaster)
	require.True(t, balance.Strong)
	require.Equal(t, 7, balance.Support)
	require.Equal(t, 8, balance.Counts[domain.ElementWood])
	require.Equal(t, domain.ElementSet{domain.ElementFire, domain.ElementMetal}, balance.Favorable)
	require.Equal(t, domain.ElementSet{domain.ElementMetal, domain.ElementWater, domain.ElementFire, domain.ElementEarth}, balance.Missing)
}

func TestAnalyzeBalance_WeakDayMaster(t *testing.T) {
	t.Parallel()

	chart, err := ComputeChart(1990, 12, 23, 8)
	require.NoError(t, err)

	balance := AnalyzeBalance(chart)
	require.Equal(t, domain.ElementWater, balance.DayMaster)
	require.False(t, balance.Strong)
	require.Equal(t, 2, balance.Support)
	require.Equal(t, 5, balance.Oppose)
	require.Equal(t, 3, balance.Counts[domain.ElementEarth])
	require.Empty(t, balance.Missing)
}
