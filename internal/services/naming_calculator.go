package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/hanko-field/naming/internal/bazi"
	domain "github.com/hanko-field/naming/internal/domain"
	"github.com/hanko-field/naming/internal/phonetics"
	"github.com/hanko-field/naming/internal/platform/cache"
	"github.com/hanko-field/naming/internal/wuge"
)

// DefaultBirthHour is used when a birth date carries no hour.
const DefaultBirthHour = 12

type namingCalculator struct {
	cache *cache.Store
}

var _ NamingCalculator = (*namingCalculator)(nil)

// NewNamingCalculator returns a calculator memoising results in store. A nil store disables caching.
func NewNamingCalculator(store *cache.Store) NamingCalculator {
	return &namingCalculator{cache: store}
}

// HourOrDefault returns the birth hour, defaulting to noon.
func (b BirthData) HourOrDefault() int {
	if b.Hour == nil {
		return DefaultBirthHour
	}
	return *b.Hour
}

func (c *namingCalculator) Chart(ctx context.Context, birth BirthData) (FourPillarsChart, error) {
	hour := birth.HourOrDefault()
	key := cache.ChartKey(birth.Year, birth.Month, birth.Day, hour)
	chart, err := cache.GetOrCompute(ctx, c.cache, key, func() (domain.FourPillarsChart, error) {
		return bazi.ComputeChart(birth.Year, birth.Month, birth.Day, hour)
	})
	if err != nil {
		return FourPillarsChart{}, err
	}
	return cloneChart(chart), nil
}

func (c *namingCalculator) Balance(ctx context.Context, birth BirthData) (ElementBalance, error) {
	chart, err := c.Chart(ctx, birth)
	if err != nil {
		return ElementBalance{}, err
	}
	return bazi.AnalyzeBalance(chart), nil
}

func (c *namingCalculator) Wuge(ctx context.Context, surnameStrokes, givenStrokes []int) (WugeAnalysis, error) {
	return cache.GetOrCompute(ctx, c.cache, cache.WugeKey(surnameStrokes, givenStrokes), func() (wuge.Analysis, error) {
		return wuge.Analyze(surnameStrokes, givenStrokes)
	})
}

func (c *namingCalculator) Phonetics(ctx context.Context, surnamePinyin, givenPinyin []string) (PhoneticReport, error) {
	if len(surnamePinyin) == 0 || len(givenPinyin) == 0 {
		return PhoneticReport{}, fmt.Errorf("%w: surname and given name are required", phonetics.ErrInvalidPinyin)
	}
	full := make([]string, 0, len(surnamePinyin)+len(givenPinyin))
	for _, p := range append(append([]string(nil), surnamePinyin...), givenPinyin...) {
		full = append(full, strings.ToLower(strings.TrimSpace(p)))
	}
	// the key keeps the surname/given boundary
	key := cache.PhoneticsKey(strings.Join(full[:len(surnamePinyin)], " ") + "|" + strings.Join(full[len(surnamePinyin):], " "))
	report, err := cache.GetOrCompute(ctx, c.cache, key, func() (domain.PhoneticReport, error) {
		return phonetics.Check(surnamePinyin, givenPinyin)
	})
	if err != nil {
		return PhoneticReport{}, err
	}
	return cloneReport(report), nil
}

func cloneChart(chart domain.FourPillarsChart) domain.FourPillarsChart {
	chart.FavorableElements = append(domain.ElementSet(nil), chart.FavorableElements...)
	return chart
}

func cloneReport(report domain.PhoneticReport) domain.PhoneticReport {
	report.Warnings = append([]string(nil), report.Warnings...)
	report.Suggestions = append([]string(nil), report.Suggestions...)
	return report
}

func isInvalidDate(err error) bool {
	return errors.Is(err, bazi.ErrInvalidDate)
}
