// Package dataset loads and validates the read-only character and surname
// reference data consumed by the naming engine.
package dataset

import (
	"bytes"
	"context"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
	"gopkg.in/yaml.v3"

	domain "github.com/hanko-field/naming/internal/domain"
	"github.com/hanko-field/naming/internal/phonetics"
	"github.com/hanko-field/naming/internal/platform/textutil"
)

//go:embed data/characters.yaml
var embeddedData []byte

// ErrInvalidDataset is returned when reference data fails validation.
var ErrInvalidDataset = errors.New("dataset: invalid reference data")

// Dataset is an immutable snapshot of the reference data.
type Dataset struct {
	Version    string
	Characters []domain.Character
	Surnames   []domain.Surname
}

// Source loads a dataset from some backing store.
type Source interface {
	Name() string
	Load(ctx context.Context) (Dataset, error)
}

// CharacterRecord is the serialised form of a character shared by the YAML file and Firestore documents.
type CharacterRecord struct {
	Char      string   `yaml:"char" firestore:"char"`
	Pinyin    string   `yaml:"pinyin" firestore:"pinyin"`
	Strokes   int      `yaml:"strokes" firestore:"strokes"`
	Element   string   `yaml:"element" firestore:"element"`
	Meaning   string   `yaml:"meaning" firestore:"meaning"`
	Frequency int      `yaml:"frequency" firestore:"frequency"`
	HSK       *int     `yaml:"hsk,omitempty" firestore:"hsk,omitempty"`
	Gender    string   `yaml:"gender" firestore:"gender"`
	Styles    []string `yaml:"styles" firestore:"styles"`
	Sources   []string `yaml:"sources" firestore:"sources"`
}

// SurnameRecord is the serialised form of a surname.
type SurnameRecord struct {
	Surname string   `yaml:"surname" firestore:"surname"`
	Pinyin  []string `yaml:"pinyin" firestore:"pinyin"`
	Strokes []int    `yaml:"strokes" firestore:"strokes"`
}

type document struct {
	Version    string            `yaml:"version"`
	Characters []CharacterRecord `yaml:"characters"`
	Surnames   []SurnameRecord   `yaml:"surnames"`
}

var meaningPolicy = bluemonday.StrictPolicy()

// Embedded returns the dataset compiled into the binary.
func Embedded() (Dataset, error) {
	return Parse(bytes.NewReader(embeddedData))
}

// Parse decodes and validates a YAML dataset. Unknown fields are rejected.
func Parse(r io.Reader) (Dataset, error) {
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)

	var doc document
	if err := decoder.Decode(&doc); err != nil {
		return Dataset{}, fmt.Errorf("%w: decode: %v", ErrInvalidDataset, err)
	}
	return Build(doc.Version, doc.Characters, doc.Surnames)
}

// Build validates records and converts them into a Dataset.
func Build(version string, characters []CharacterRecord, surnames []SurnameRecord) (Dataset, error) {
	ds := Dataset{
		Version:    strings.TrimSpace(version),
		Characters: make([]domain.Character, 0, len(characters)),
		Surnames:   make([]domain.Surname, 0, len(surnames)),
	}

	seenChars := make(map[string]struct{}, len(characters))
	for idx, record := range characters {
		character, err := record.toDomain()
		if err != nil {
			return Dataset{}, fmt.Errorf("%w: character %d (%s): %v", ErrInvalidDataset, idx+1, record.Char, err)
		}
		if _, dup := seenChars[character.Char]; dup {
			return Dataset{}, fmt.Errorf("%w: duplicate character %s", ErrInvalidDataset, character.Char)
		}
		seenChars[character.Char] = struct{}{}
		ds.Characters = append(ds.Characters, character)
	}

	seenSurnames := make(map[string]struct{}, len(surnames))
	for idx, record := range surnames {
		surname, err := record.toDomain()
		if err != nil {
			return Dataset{}, fmt.Errorf("%w: surname %d (%s): %v", ErrInvalidDataset, idx+1, record.Surname, err)
		}
		if _, dup := seenSurnames[surname.Surname]; dup {
			return Dataset{}, fmt.Errorf("%w: duplicate surname %s", ErrInvalidDataset, surname.Surname)
		}
		seenSurnames[surname.Surname] = struct{}{}
		ds.Surnames = append(ds.Surnames, surname)
	}

	if len(ds.Characters) == 0 {
		return Dataset{}, fmt.Errorf("%w: no characters", ErrInvalidDataset)
	}
	return ds, nil
}

// Records converts the dataset back into its serialised form, e.g. for seeding Firestore.
func (d Dataset) Records() ([]CharacterRecord, []SurnameRecord) {
	characters := make([]CharacterRecord, 0, len(d.Characters))
	for _, c := range d.Characters {
		characters = append(characters, CharacterRecord{
			Char:      c.Char,
			Pinyin:    c.Pinyin,
			Strokes:   c.StrokeCount,
			Element:   c.Element.String(),
			Meaning:   c.Meaning,
			Frequency: c.Frequency,
			HSK:       c.HSKLevel,
			Gender:    string(c.Gender),
			Styles:    append([]string(nil), c.Styles...),
			Sources:   append([]string(nil), c.Sources...),
		})
	}
	surnames := make([]SurnameRecord, 0, len(d.Surnames))
	for _, s := range d.Surnames {
		surnames = append(surnames, SurnameRecord{
			Surname: s.Surname,
			Pinyin:  append([]string(nil), s.Pinyin...),
			Strokes: append([]int(nil), s.Strokes...),
		})
	}
	return characters, surnames
}

func (r CharacterRecord) toDomain() (domain.Character, error) {
	char := strings.TrimSpace(r.Char)
	if !isSingleHan(char) {
		return domain.Character{}, fmt.Errorf("char %q must be a single Han character", r.Char)
	}
	syllable, err := phonetics.ParseSyllable(r.Pinyin)
	if err != nil {
		return domain.Character{}, err
	}
	if r.Strokes <= 0 {
		return domain.Character{}, fmt.Errorf("strokes must be positive, got %d", r.Strokes)
	}
	element, err := domain.ParseElement(r.Element)
	if err != nil {
		return domain.Character{}, err
	}
	gender, ok := domain.ParseGender(r.Gender)
	if !ok {
		return domain.Character{}, fmt.Errorf("unknown gender %q", r.Gender)
	}
	if r.Frequency < 0 || r.Frequency > 100 {
		return domain.Character{}, fmt.Errorf("frequency must be within 0-100, got %d", r.Frequency)
	}

	return domain.Character{
		Char:        char,
		Pinyin:      strings.TrimSpace(r.Pinyin),
		Tone:        syllable.Tone,
		StrokeCount: r.Strokes,
		Element:     element,
		Meaning:     strings.TrimSpace(meaningPolicy.Sanitize(r.Meaning)),
		Frequency:   r.Frequency,
		HSKLevel:    r.HSK,
		Gender:      gender,
		Styles:      textutil.NormalizeTags(r.Styles),
		Sources:     textutil.NormalizeTags(r.Sources),
	}, nil
}

func (r SurnameRecord) toDomain() (domain.Surname, error) {
	surname := strings.TrimSpace(r.Surname)
	count := utf8.RuneCountInString(surname)
	if count < 1 || count > 2 || !allHan(surname) {
		return domain.Surname{}, fmt.Errorf("surname %q must be one or two Han characters", r.Surname)
	}
	if len(r.Pinyin) != count || len(r.Strokes) != count {
		return domain.Surname{}, fmt.Errorf("surname %q needs one pinyin and one stroke count per character", r.Surname)
	}
	pinyin := make([]string, 0, count)
	for _, p := range r.Pinyin {
		if _, err := phonetics.ParseSyllable(p); err != nil {
			return domain.Surname{}, err
		}
		pinyin = append(pinyin, strings.TrimSpace(p))
	}
	for _, strokes := range r.Strokes {
		if strokes <= 0 {
			return domain.Surname{}, fmt.Errorf("surname %q has non-positive stroke count", r.Surname)
		}
	}
	return domain.Surname{
		Surname: surname,
		Pinyin:  pinyin,
		Strokes: append([]int(nil), r.Strokes...),
	}, nil
}

func isSingleHan(value string) bool {
	return utf8.RuneCountInString(value) == 1 && allHan(value)
}

func allHan(value string) bool {
	if value == "" {
		return false
	}
	for _, r := range value {
		if !unicode.Is(unicode.Han, r) {
			return false
		}
	}
	return true
}
