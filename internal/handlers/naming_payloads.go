package handlers

import (
	"github.com/hanko-field/naming/internal/bazi"
	domain "github.com/hanko-field/naming/internal/domain"
	"github.com/hanko-field/naming/internal/services"
	"github.com/hanko-field/naming/internal/wuge"
)

type birthFields struct {
	BirthDate string `json:"birthDate" validate:"omitempty,max=10"`
	BirthHour *int   `json:"birthHour" validate:"omitempty,min=0,max=23"`
}

type generateNamesRequest struct {
	birthFields
	Surname           string   `json:"surname" validate:"required,max=8"`
	Gender            string   `json:"gender" validate:"omitempty,oneof=male female neutral"`
	PreferredElements []string `json:"preferredElements" validate:"max=5,dive,required"`
	AvoidElements     []string `json:"avoidElements" validate:"max=5,dive,required"`
	Style             string   `json:"style" validate:"max=40"`
	Source            string   `json:"source" validate:"max=40"`
	CharacterCount    int      `json:"characterCount" validate:"omitempty,oneof=1 2"`
	MaxResults        int      `json:"maxResults"`
}

type scoreNameRequest struct {
	birthFields
	Surname           string   `json:"surname" validate:"required,max=8"`
	GivenName         string   `json:"givenName" validate:"required,max=8"`
	PreferredElements []string `json:"preferredElements" validate:"max=5,dive,required"`
	AvoidElements     []string `json:"avoidElements" validate:"max=5,dive,required"`
}

type chartRequest struct {
	BirthDate string `json:"birthDate" validate:"required,max=10"`
	BirthHour *int   `json:"birthHour" validate:"omitempty,min=0,max=23"`
}

type wugeRequest struct {
	Surname        string `json:"surname" validate:"required_without=SurnameStrokes,max=8"`
	GivenName      string `json:"givenName" validate:"required_without=GivenStrokes,max=8"`
	SurnameStrokes []int  `json:"surnameStrokes" validate:"omitempty,max=2,dive,min=1"`
	GivenStrokes   []int  `json:"givenStrokes" validate:"omitempty,max=2,dive,min=1"`
}

type phoneticsRequest struct {
	Surname       string   `json:"surname" validate:"required_without=SurnamePinyin,max=8"`
	GivenName     string   `json:"givenName" validate:"required_without=GivenPinyin,max=8"`
	SurnamePinyin []string `json:"surnamePinyin" validate:"omitempty,max=2,dive,required,max=12"`
	GivenPinyin   []string `json:"givenPinyin" validate:"omitempty,max=2,dive,required,max=12"`
}

type characterPayload struct {
	Char      string   `json:"char"`
	Pinyin    string   `json:"pinyin"`
	Tone      int      `json:"tone"`
	Strokes   int      `json:"strokes"`
	Element   string   `json:"element"`
	Meaning   string   `json:"meaning,omitempty"`
	Frequency int      `json:"frequency"`
	HSKLevel  *int     `json:"hskLevel,omitempty"`
	Gender    string   `json:"gender"`
	Styles    []string `json:"styles,omitempty"`
	Sources   []string `json:"sources,omitempty"`
}

type scorePayload struct {
	Bazi     int    `json:"bazi"`
	Wuge     int    `json:"wuge"`
	Phonetic int    `json:"phonetic"`
	Meaning  int    `json:"meaning"`
	Overall  int    `json:"overall"`
	Rating   string `json:"rating"`
}

type gridsPayload struct {
	TianGe int `json:"tianGe"`
	RenGe  int `json:"renGe"`
	DiGe   int `json:"diGe"`
	WaiGe  int `json:"waiGe"`
	ZongGe int `json:"zongGe"`
}

type phoneticsPayload struct {
	Score       int      `json:"score"`
	Warnings    []string `json:"warnings"`
	Suggestions []string `json:"suggestions"`
}

type candidatePayload struct {
	ID         string             `json:"id"`
	Surname    string             `json:"surname"`
	GivenName  string             `json:"givenName"`
	FullName   string             `json:"fullName"`
	Pinyin     string             `json:"pinyin"`
	Characters []characterPayload `json:"characters"`
	Score      scorePayload       `json:"score"`
	Wuge       gridsPayload       `json:"wuge"`
	Phonetics  phoneticsPayload   `json:"phonetics"`
	Source     string             `json:"source,omitempty"`
}

type chartPayload struct {
	Year              string   `json:"year"`
	Month             string   `json:"month"`
	Day               string   `json:"day"`
	Hour              string   `json:"hour"`
	DayMaster         string   `json:"dayMaster"`
	FavorableElements []string `json:"favorableElements"`
}

type balancePayload struct {
	Counts    map[string]int `json:"counts"`
	DayMaster string         `json:"dayMaster"`
	Support   int            `json:"support"`
	Oppose    int            `json:"oppose"`
	Strong    bool           `json:"strong"`
	Favorable []string       `json:"favorable"`
	Missing   []string       `json:"missing"`
}

type interpretationPayload struct {
	Value   int    `json:"value"`
	Number  int    `json:"number"`
	Label   string `json:"label"`
	Fortune string `json:"fortune"`
	Summary string `json:"summary,omitempty"`
}

type sanCaiPayload struct {
	Pattern string `json:"pattern"`
	Heaven  string `json:"heaven"`
	Person  string `json:"person"`
	Earth   string `json:"earth"`
	Harmony string `json:"harmony"`
}

type wugePayload struct {
	Grids        gridsPayload          `json:"grids"`
	TianGe       interpretationPayload `json:"tianGe"`
	RenGe        interpretationPayload `json:"renGe"`
	DiGe         interpretationPayload `json:"diGe"`
	WaiGe        interpretationPayload `json:"waiGe"`
	ZongGe       interpretationPayload `json:"zongGe"`
	SanCai       sanCaiPayload         `json:"sanCai"`
	OverallScore int                   `json:"overallScore"`
}

type generateNamesResponse struct {
	RunID           string             `json:"runId"`
	Candidates      []candidatePayload `json:"candidates"`
	Chart           *chartPayload      `json:"chart,omitempty"`
	TargetElements  []string           `json:"targetElements"`
	RelaxationSteps []string           `json:"relaxationSteps,omitempty"`
}

type scoreNameResponse struct {
	Candidate candidatePayload `json:"candidate"`
	Wuge      wugePayload      `json:"wuge"`
	Chart     *chartPayload    `json:"chart,omitempty"`
}

type chartResponse struct {
	Chart   chartPayload   `json:"chart"`
	Balance balancePayload `json:"balance"`
}

type wugeResponse struct {
	SurnameStrokes []int       `json:"surnameStrokes"`
	GivenStrokes   []int       `json:"givenStrokes"`
	Analysis       wugePayload `json:"analysis"`
}

type phoneticsResponse struct {
	SurnamePinyin []string         `json:"surnamePinyin"`
	GivenPinyin   []string         `json:"givenPinyin"`
	Report        phoneticsPayload `json:"report"`
}

func buildCharacterPayload(c domain.Character) characterPayload {
	return characterPayload{
		Char:      c.Char,
		Pinyin:    c.Pinyin,
		Tone:      c.Tone,
		Strokes:   c.StrokeCount,
		Element:   c.Element.String(),
		Meaning:   c.Meaning,
		Frequency: c.Frequency,
		HSKLevel:  c.HSKLevel,
		Gender:    string(c.Gender),
		Styles:    c.Styles,
		Sources:   c.Sources,
	}
}

func buildGridsPayload(grids domain.WugeGrids) gridsPayload {
	return gridsPayload{
		TianGe: grids.TianGe,
		RenGe:  grids.RenGe,
		DiGe:   grids.DiGe,
		WaiGe:  grids.WaiGe,
		ZongGe: grids.ZongGe,
	}
}

func buildPhoneticsPayload(report domain.PhoneticReport) phoneticsPayload {
	warnings := report.Warnings
	if warnings == nil {
		warnings = []string{}
	}
	suggestions := report.Suggestions
	if suggestions == nil {
		suggestions = []string{}
	}
	return phoneticsPayload{Score: report.Score, Warnings: warnings, Suggestions: suggestions}
}

func buildCandidatePayload(candidate services.NameCandidate) candidatePayload {
	characters := make([]characterPayload, 0, len(candidate.Characters))
	for _, c := range candidate.Characters {
		characters = append(characters, buildCharacterPayload(c))
	}
	return candidatePayload{
		ID:         candidate.ID,
		Surname:    candidate.Surname,
		GivenName:  candidate.GivenName,
		FullName:   candidate.FullName,
		Pinyin:     candidate.Pinyin,
		Characters: characters,
		Score: scorePayload{
			Bazi:     candidate.Score.BaziScore,
			Wuge:     candidate.Score.WugeScore,
			Phonetic: candidate.Score.PhoneticScore,
			Meaning:  candidate.Score.MeaningScore,
			Overall:  candidate.Score.Overall,
			Rating:   string(candidate.Score.Rating),
		},
		Wuge:      buildGridsPayload(candidate.Wuge),
		Phonetics: buildPhoneticsPayload(candidate.Phonetics),
		Source:    candidate.Source,
	}
}

func buildChartPayload(chart domain.FourPillarsChart) chartPayload {
	return chartPayload{
		Year:              chart.Year.String(),
		Month:             chart.Month.String(),
		Day:               chart.Day.String(),
		Hour:              chart.Hour.String(),
		DayMaster:         chart.DayMaster().String(),
		FavorableElements: elementStrings(chart.FavorableElements),
	}
}

func buildBalancePayload(balance bazi.Balance) balancePayload {
	counts := make(map[string]int, len(balance.Counts))
	for el, count := range balance.Counts {
		counts[el.String()] = count
	}
	return balancePayload{
		Counts:    counts,
		DayMaster: balance.DayMaster.String(),
		Support:   balance.Support,
		Oppose:    balance.Oppose,
		Strong:    balance.Strong,
		Favorable: elementStrings(balance.Favorable),
		Missing:   elementStrings(balance.Missing),
	}
}

func buildInterpretationPayload(in wuge.Interpretation) interpretationPayload {
	return interpretationPayload{
		Value:   in.Value,
		Number:  in.Number,
		Label:   in.Label,
		Fortune: string(in.Fortune),
		Summary: in.Summary,
	}
}

func buildWugePayload(analysis wuge.Analysis) wugePayload {
	return wugePayload{
		Grids:  buildGridsPayload(analysis.Grids),
		TianGe: buildInterpretationPayload(analysis.TianGe),
		RenGe:  buildInterpretationPayload(analysis.RenGe),
		DiGe:   buildInterpretationPayload(analysis.DiGe),
		WaiGe:  buildInterpretationPayload(analysis.WaiGe),
		ZongGe: buildInterpretationPayload(analysis.ZongGe),
		SanCai: sanCaiPayload{
			Pattern: analysis.SanCai.Pattern(),
			Heaven:  analysis.SanCai.Heaven.String(),
			Person:  analysis.SanCai.Person.String(),
			Earth:   analysis.SanCai.Earth.String(),
			Harmony: string(analysis.SanCai.Harmony),
		},
		OverallScore: analysis.OverallScore,
	}
}

func elementStrings(set domain.ElementSet) []string {
	if set == nil {
		return []string{}
	}
	return set.Strings()
}
