package phonetics

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// ErrInvalidPinyin is returned when a syllable cannot be parsed.
var ErrInvalidPinyin = errors.New("phonetics: invalid pinyin")

const (
	combiningMacron    = '\u0304'
	combiningAcute     = '\u0301'
	combiningCaron     = '\u030c'
	combiningGrave     = '\u0300'
	combiningDiaeresis = '\u0308'
)

// two-letter initials must be tried first
var initials = []string{"zh", "ch", "sh", "b", "p", "m", "f", "d", "t", "n", "l", "g", "k", "h", "j", "q", "x", "r", "z", "c", "s", "y", "w"}

// Syllable is a parsed pinyin syllable. Text is lowercase ASCII with ü written as v.
// Tone is 1-4, 5 for the neutral tone, 0 when the input carried no tone information.
type Syllable struct {
	Text    string
	Initial string
	Final   string
	Tone    int
}

// ParseSyllable accepts tone-marked pinyin (hǎo), tone-numbered pinyin (hao3) or bare pinyin.
func ParseSyllable(value string) (Syllable, error) {
	trimmed := strings.ToLower(strings.TrimSpace(value))
	if trimmed == "" {
		return Syllable{}, fmt.Errorf("%w: empty syllable", ErrInvalidPinyin)
	}

	tone := 0
	if last := trimmed[len(trimmed)-1]; last >= '0' && last <= '5' {
		tone = int(last - '0')
		if tone == 0 {
			tone = 5
		}
		trimmed = trimmed[:len(trimmed)-1]
	}

	var builder strings.Builder
	for _, r := range norm.NFD.String(trimmed) {
		switch r {
		case combiningMacron, combiningAcute, combiningCaron, combiningGrave:
			if tone != 0 {
				return Syllable{}, fmt.Errorf("%w: %q carries more than one tone", ErrInvalidPinyin, value)
			}
			tone = markTone(r)
		case combiningDiaeresis:
			text := builder.String()
			if !strings.HasSuffix(text, "u") {
				return Syllable{}, fmt.Errorf("%w: %q has a stray diaeresis", ErrInvalidPinyin, value)
			}
			builder.Reset()
			builder.WriteString(text[:len(text)-1] + "v")
		default:
			if r < 'a' || r > 'z' {
				return Syllable{}, fmt.Errorf("%w: %q contains %q", ErrInvalidPinyin, value, r)
			}
			builder.WriteRune(r)
		}
	}

	text := builder.String()
	if text == "" {
		return Syllable{}, fmt.Errorf("%w: %q has no letters", ErrInvalidPinyin, value)
	}
	initial, final := splitInitial(text)
	return Syllable{Text: text, Initial: initial, Final: final, Tone: tone}, nil
}

// ParseSyllables parses each entry; entries may hold several space or apostrophe separated syllables.
func ParseSyllables(values []string) ([]Syllable, error) {
	out := make([]Syllable, 0, len(values))
	for _, value := range values {
		fields := strings.FieldsFunc(value, func(r rune) bool {
			return unicode.IsSpace(r) || r == '\'' || r == '-'
		})
		if len(fields) == 0 {
			return nil, fmt.Errorf("%w: empty syllable", ErrInvalidPinyin)
		}
		for _, field := range fields {
			syllable, err := ParseSyllable(field)
			if err != nil {
				return nil, err
			}
			out = append(out, syllable)
		}
	}
	return out, nil
}

// StripTones removes tone marks, keeping ü as u. Used for display keys and sorting.
func StripTones(value string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, value)
	if err != nil {
		return value
	}
	return out
}

func markTone(r rune) int {
	switch r {
	case combiningMacron:
		return 1
	case combiningAcute:
		return 2
	case combiningCaron:
		return 3
	default:
		return 4
	}
}

func splitInitial(text string) (string, string) {
	for _, initial := range initials {
		if strings.HasPrefix(text, initial) && len(text) > len(initial) {
			return initial, text[len(initial):]
		}
	}
	return "", text
}
