package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	domain "github.com/hanko-field/naming/internal/domain"
	"github.com/hanko-field/naming/internal/services"
	"github.com/hanko-field/naming/internal/wuge"
)

func writeJSON(w io.Writer, value any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	encoder.SetEscapeHTML(false)
	return encoder.Encode(value)
}

type scoreView struct {
	Bazi     int    `json:"bazi"`
	Wuge     int    `json:"wuge"`
	Phonetic int    `json:"phonetic"`
	Meaning  int    `json:"meaning"`
	Overall  int    `json:"overall"`
	Rating   string `json:"rating"`
}

type candidateView struct {
	FullName  string           `json:"fullName"`
	Pinyin    string           `json:"pinyin"`
	Elements  []string         `json:"elements"`
	Score     scoreView        `json:"score"`
	Wuge      domain.WugeGrids `json:"wuge"`
	Warnings  []string         `json:"warnings,omitempty"`
	Meanings  []string         `json:"meanings"`
	SourceTag string           `json:"source,omitempty"`
}

type generationView struct {
	RunID           string          `json:"runId"`
	TargetElements  []string        `json:"targetElements"`
	RelaxationSteps []string        `json:"relaxationSteps,omitempty"`
	Chart           string          `json:"chart,omitempty"`
	Candidates      []candidateView `json:"candidates"`
}

func newCandidateView(c domain.NameCandidate) candidateView {
	view := candidateView{
		FullName: c.FullName,
		Pinyin:   c.Pinyin,
		Elements: make([]string, 0, len(c.Characters)),
		Meanings: make([]string, 0, len(c.Characters)),
		Score: scoreView{
			Bazi:     c.Score.BaziScore,
			Wuge:     c.Score.WugeScore,
			Phonetic: c.Score.PhoneticScore,
			Meaning:  c.Score.MeaningScore,
			Overall:  c.Score.Overall,
			Rating:   string(c.Score.Rating),
		},
		Wuge:      c.Wuge,
		Warnings:  c.Phonetics.Warnings,
		SourceTag: c.Source,
	}
	for _, ch := range c.Characters {
		view.Elements = append(view.Elements, ch.Element.String())
		view.Meanings = append(view.Meanings, ch.Char+": "+ch.Meaning)
	}
	return view
}

func newGenerationView(result services.NameGenerationResult) generationView {
	view := generationView{
		RunID:           result.RunID,
		TargetElements:  result.TargetElements.Strings(),
		RelaxationSteps: result.RelaxationSteps,
		Candidates:      make([]candidateView, 0, len(result.Candidates)),
	}
	if result.Chart != nil {
		view.Chart = result.Chart.String()
	}
	for _, c := range result.Candidates {
		view.Candidates = append(view.Candidates, newCandidateView(c))
	}
	return view
}

func printGeneration(w io.Writer, result services.NameGenerationResult) error {
	fmt.Fprintf(w, "run %s\n", result.RunID)
	if result.Chart != nil {
		fmt.Fprintf(w, "chart: %s\n", result.Chart.String())
	}
	fmt.Fprintf(w, "target elements: %s\n", joinOrDash(result.TargetElements.Strings()))
	if len(result.RelaxationSteps) > 0 {
		fmt.Fprintf(w, "relaxed: %s\n", strings.Join(result.RelaxationSteps, ", "))
	}
	if len(result.Candidates) == 0 {
		_, err := fmt.Fprintln(w, "no candidates")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tNAME\tPINYIN\tOVERALL\tRATING\tBAZI\tWUGE\tPHONETIC\tMEANING")
	for i, c := range result.Candidates {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%s\t%d\t%d\t%d\t%d\n",
			i+1, c.FullName, c.Pinyin, c.Score.Overall, c.Score.Rating,
			c.Score.BaziScore, c.Score.WugeScore, c.Score.PhoneticScore, c.Score.MeaningScore)
	}
	return tw.Flush()
}

type scoreResultView struct {
	Candidate candidateView `json:"candidate"`
	Wuge      wugeView      `json:"wugeAnalysis"`
	Chart     string        `json:"chart,omitempty"`
}

func newScoreView(result services.NameScoreResult) scoreResultView {
	view := scoreResultView{
		Candidate: newCandidateView(result.Candidate),
		Wuge:      newWugeView(nil, nil, result.Wuge),
	}
	if result.Chart != nil {
		view.Chart = result.Chart.String()
	}
	return view
}

func printScore(w io.Writer, result services.NameScoreResult) error {
	c := result.Candidate
	fmt.Fprintf(w, "%s (%s)\n", c.FullName, c.Pinyin)
	if result.Chart != nil {
		fmt.Fprintf(w, "chart: %s\n", result.Chart.String())
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "overall\t%d\t%s\n", c.Score.Overall, c.Score.Rating)
	fmt.Fprintf(tw, "bazi\t%d\n", c.Score.BaziScore)
	fmt.Fprintf(tw, "wuge\t%d\t%s\n", c.Score.WugeScore, result.Wuge.SanCai.Pattern())
	fmt.Fprintf(tw, "phonetic\t%d\n", c.Score.PhoneticScore)
	fmt.Fprintf(tw, "meaning\t%d\n", c.Score.MeaningScore)
	if err := tw.Flush(); err != nil {
		return err
	}
	return printWarnings(w, c.Phonetics)
}

type chartView struct {
	Pillars   []string       `json:"pillars"`
	DayMaster string         `json:"dayMaster"`
	Strong    bool           `json:"strong"`
	Counts    map[string]int `json:"counts"`
	Favorable []string       `json:"favorableElements"`
	Missing   []string       `json:"missingElements"`
}

func newChartView(chart domain.FourPillarsChart, balance services.ElementBalance) chartView {
	pillars := chart.Pillars()
	view := chartView{
		Pillars:   make([]string, 0, len(pillars)),
		DayMaster: balance.DayMaster.String(),
		Strong:    balance.Strong,
		Counts:    make(map[string]int, len(balance.Counts)),
		Favorable: balance.Favorable.Strings(),
		Missing:   balance.Missing.Strings(),
	}
	for _, p := range pillars {
		view.Pillars = append(view.Pillars, p.String())
	}
	for el, count := range balance.Counts {
		view.Counts[el.String()] = count
	}
	return view
}

func printChart(w io.Writer, chart domain.FourPillarsChart, balance services.ElementBalance) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "YEAR\tMONTH\tDAY\tHOUR")
	fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", chart.Year, chart.Month, chart.Day, chart.Hour)
	if err := tw.Flush(); err != nil {
		return err
	}

	strength := "weak"
	if balance.Strong {
		strength = "strong"
	}
	fmt.Fprintf(w, "day master: %s (%s)\n", balance.DayMaster, strength)
	counts := make([]string, 0, len(domain.AllElements))
	for _, el := range domain.AllElements {
		counts = append(counts, fmt.Sprintf("%s=%d", el, balance.Counts[el]))
	}
	fmt.Fprintf(w, "counts: %s\n", strings.Join(counts, " "))
	fmt.Fprintf(w, "favorable: %s\n", joinOrDash(balance.Favorable.Strings()))
	_, err := fmt.Fprintf(w, "missing: %s\n", joinOrDash(balance.Missing.Strings()))
	return err
}

type gridView struct {
	Grid    string `json:"grid"`
	Value   int    `json:"value"`
	Fortune string `json:"fortune"`
	Label   string `json:"label"`
}

type wugeView struct {
	SurnameStrokes []int      `json:"surnameStrokes,omitempty"`
	GivenStrokes   []int      `json:"givenStrokes,omitempty"`
	Grids          []gridView `json:"grids"`
	SanCai         string     `json:"sanCai"`
	Harmony        string     `json:"harmony"`
	Score          int        `json:"score"`
}

func newWugeView(surname, given []int, analysis wuge.Analysis) wugeView {
	view := wugeView{
		SurnameStrokes: surname,
		GivenStrokes:   given,
		SanCai:         analysis.SanCai.Pattern(),
		Harmony:        string(analysis.SanCai.Harmony),
		Score:          analysis.OverallScore,
	}
	named := []struct {
		name string
		in   wuge.Interpretation
	}{
		{"tianGe", analysis.TianGe},
		{"renGe", analysis.RenGe},
		{"diGe", analysis.DiGe},
		{"waiGe", analysis.WaiGe},
		{"zongGe", analysis.ZongGe},
	}
	for _, g := range named {
		view.Grids = append(view.Grids, gridView{Grid: g.name, Value: g.in.Value, Fortune: string(g.in.Fortune), Label: g.in.Label})
	}
	return view
}

func printWuge(w io.Writer, surname, given []int, analysis wuge.Analysis) error {
	view := newWugeView(surname, given, analysis)
	fmt.Fprintf(w, "strokes: %v %v\n", surname, given)
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "GRID\tVALUE\tFORTUNE\tLABEL")
	for _, g := range view.Grids {
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\n", g.Grid, g.Value, g.Fortune, g.Label)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "san cai: %s (%s)\nscore: %d\n", view.SanCai, view.Harmony, view.Score)
	return err
}

type phoneticsView struct {
	Surname     []string `json:"surname"`
	Given       []string `json:"given"`
	Score       int      `json:"score"`
	Warnings    []string `json:"warnings"`
	Suggestions []string `json:"suggestions"`
}

func newPhoneticsView(surname, given []string, report domain.PhoneticReport) phoneticsView {
	view := phoneticsView{
		Surname:     surname,
		Given:       given,
		Score:       report.Score,
		Warnings:    report.Warnings,
		Suggestions: report.Suggestions,
	}
	if view.Warnings == nil {
		view.Warnings = []string{}
	}
	if view.Suggestions == nil {
		view.Suggestions = []string{}
	}
	return view
}

func printPhonetics(w io.Writer, surname, given []string, report domain.PhoneticReport) error {
	fmt.Fprintf(w, "%s %s\nscore: %d\n", strings.Join(surname, " "), strings.Join(given, " "), report.Score)
	return printWarnings(w, report)
}

func printWarnings(w io.Writer, report domain.PhoneticReport) error {
	for _, warning := range report.Warnings {
		if _, err := fmt.Fprintf(w, "warning: %s\n", warning); err != nil {
			return err
		}
	}
	for _, suggestion := range report.Suggestions {
		if _, err := fmt.Fprintf(w, "suggestion: %s\n", suggestion); err != nil {
			return err
		}
	}
	return nil
}

func printDataset(w io.Writer, view datasetView) error {
	fmt.Fprintf(w, "source: %s\nversion: %s\ncharacters: %d\nsurnames: %d\n", view.Source, view.Version, view.Characters, view.Surnames)
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ELEMENT\tCHARACTERS")
	for _, el := range domain.AllElements {
		fmt.Fprintf(tw, "%s\t%d\n", el, view.ByElement[el.String()])
	}
	return tw.Flush()
}

func joinOrDash(values []string) string {
	if len(values) == 0 {
		return "-"
	}
	return strings.Join(values, ", ")
}
