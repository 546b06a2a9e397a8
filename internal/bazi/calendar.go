// Package bazi converts Gregorian birth moments into Four Pillars charts and
// derives the favorable elements of a chart.
package bazi

import (
	"errors"
	"fmt"
	"math"

	domain "github.com/hanko-field/naming/internal/domain"
)

// ErrInvalidDate is returned when the input does not form a real Gregorian date and hour.
var ErrInvalidDate = errors.New("bazi: invalid date")

const (
	// DefaultHour is used by callers when the birth hour is unknown.
	DefaultHour = 12

	minYear = 1
	maxYear = 9999

	// dayCycleOffset aligns the Julian Day Number with the sexagenary day cycle.
	// 2000-01-01 (JDN 2451545) is 戊午, position 54.
	dayCycleOffset = 49

	tropicalYearFraction = 0.2422
)

// sectionalTerms holds the century constants of the twelve sectional solar terms
// (节), indexed by the Gregorian month in which each term falls.
var sectionalTerms = [12]struct {
	name string
	c20  float64
	c21  float64
	mean int
}{
	{"小寒", 6.11, 5.4055, 6},
	{"立春", 4.6295, 3.87, 4},
	{"惊蛰", 6.3826, 5.63, 6},
	{"清明", 5.59, 4.81, 5},
	{"立夏", 6.318, 5.52, 6},
	{"芒种", 6.5, 5.678, 6},
	{"小暑", 7.928, 7.108, 7},
	{"立秋", 8.35, 7.5, 8},
	{"白露", 8.44, 7.646, 8},
	{"寒露", 9.098, 8.318, 8},
	{"立冬", 8.218, 7.438, 7},
	{"大雪", 7.9, 7.18, 7},
}

// sectionalTermCorrections lists the years in which the century formula misses
// the observed term by one day.
var sectionalTermCorrections = map[[2]int]int{
	{1902, 6}:  1,
	{1911, 5}:  1,
	{1925, 7}:  1,
	{1927, 9}:  1,
	{1954, 12}: 1,
	{1982, 1}:  1,
	{2002, 8}:  1,
	{2016, 7}:  1,
	{2019, 1}:  -1,
	{2089, 11}: 1,
}

// ComputeChart builds the Four Pillars chart for the given local birth moment.
// An hour of 23 belongs to the 子 hour of the following day.
func ComputeChart(year, month, day, hour int) (domain.FourPillarsChart, error) {
	if err := validate(year, month, day, hour); err != nil {
		return domain.FourPillarsChart{}, err
	}

	yearPillar := YearPillar(year)
	monthBranch := MonthBranch(year, month, day)
	monthPillar := domain.Pillar{
		Stem:   monthStem(YearPillar(solarYear(year, month, monthBranch)).Stem, monthBranch),
		Branch: monthBranch,
	}

	jdn := JulianDayNumber(year, month, day)
	if hour == 23 {
		jdn++
	}
	dayPillar := domain.PillarFromCycle(jdn + dayCycleOffset)

	hourBranch := HourBranch(hour)
	hourPillar := domain.Pillar{
		Stem:   hourStem(dayPillar.Stem, hourBranch),
		Branch: hourBranch,
	}

	chart := domain.FourPillarsChart{
		Year:  yearPillar,
		Month: monthPillar,
		Day:   dayPillar,
		Hour:  hourPillar,
	}
	chart.FavorableElements = FavorableElements(chart)
	return chart, nil
}

// YearPillar returns the pillar of the Gregorian year.
func YearPillar(year int) domain.Pillar {
	return domain.Pillar{
		Stem:   domain.StemAt(year - 4),
		Branch: domain.BranchAt(year - 4),
	}
}

// MonthBranch returns the branch of the solar month containing the date.
// Months start at the sectional terms, 寅 beginning at 立春.
func MonthBranch(year, month, day int) domain.Branch {
	if day >= SectionalTermDay(year, month) {
		return domain.BranchAt(month)
	}
	return domain.BranchAt(month - 1)
}

// solarYear returns the year whose 寅 month opened the solar month containing
// the date. The 子 and 丑 months of January and February belong to the
// previous year, so the month cycle advances one step across New Year.
func solarYear(year, month int, branch domain.Branch) int {
	if month <= 2 && branch.Index() <= 1 {
		return year - 1
	}
	return year
}

// HourBranch returns the two-hour branch containing hour; 23:00-00:59 is 子.
func HourBranch(hour int) domain.Branch {
	return domain.BranchAt((hour + 1) / 2)
}

// SectionalTermDay returns the day of month on which the sectional term of the
// given Gregorian month falls, in China Standard Time. Outside 1900-2099 the
// mean date is used and may be off by one day.
func SectionalTermDay(year, month int) int {
	term := sectionalTerms[month-1]
	var c float64
	switch {
	case year >= 1900 && year <= 1999:
		c = term.c20
	case year >= 2000 && year <= 2099:
		c = term.c21
	default:
		return term.mean
	}
	y := float64(year % 100)
	leaps := math.Floor(y / 4)
	if month <= 2 {
		leaps = math.Floor((y - 1) / 4)
		if year == 1900 {
			leaps = 0
		}
	}
	return int(math.Floor(y*tropicalYearFraction+c)-leaps) + sectionalTermCorrections[[2]int{year, month}]
}

// JulianDayNumber converts a proleptic Gregorian date to its Julian Day Number.
func JulianDayNumber(year, month, day int) int {
	a := (14 - month) / 12
	y := year + 4800 - a
	m := month + 12*a - 3
	return day + (153*m+2)/5 + 365*y + y/4 - y/100 + y/400 - 32045
}

// monthStem applies the five tigers rule: the year stem fixes the stem of 寅.
func monthStem(yearStem domain.Stem, branch domain.Branch) domain.Stem {
	start := (yearStem.Index()%5)*2 + 2
	steps := branch.Index() - 2
	if steps < 0 {
		steps += domain.BranchCount
	}
	return domain.StemAt(start + steps)
}

// hourStem applies the five rats rule: the day stem fixes the stem of 子.
func hourStem(dayStem domain.Stem, branch domain.Branch) domain.Stem {
	start := (dayStem.Index() % 5) * 2
	return domain.StemAt(start + branch.Index())
}

func validate(year, month, day, hour int) error {
	if year < minYear || year > maxYear {
		return fmt.Errorf("%w: year %d out of range", ErrInvalidDate, year)
	}
	if month < 1 || month > 12 {
		return fmt.Errorf("%w: month %d", ErrInvalidDate, month)
	}
	if day < 1 || day > daysIn(year, month) {
		return fmt.Errorf("%w: day %d of %04d-%02d", ErrInvalidDate, day, year, month)
	}
	if hour < 0 || hour > 23 {
		return fmt.Errorf("%w: hour %d", ErrInvalidDate, hour)
	}
	return nil
}

func daysIn(year, month int) int {
	switch month {
	case 2:
		if isLeap(year) {
			return 29
		}
		return 28
	case 4, 6, 9, 11:
		return 30
	default:
		return 31
	}
}

func isLeap(year int) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}
