package dataset

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/require"

	domain "github.com/hanko-field/naming/internal/domain"
)

func TestEmbeddedDatasetIsValid(t *testing.T) {
	t.Parallel()

	ds, err := Embedded()
	require.NoError(t, err)
	require.NotEmpty(t, ds.Version)

	perElement := map[domain.FiveElement]int{}
	for _, c := range ds.Characters {
		require.Equal(t, 1, utf8.RuneCountInString(c.Char))
		require.Positive(t, c.StrokeCount)
		require.NotZero(t, c.Tone, "character %s must carry a tone", c.Char)
		perElement[c.Element]++
	}
	for _, el := range domain.AllElements {
		require.GreaterOrEqual(t, perElement[el], 10, "element %s is under-represented", el)
	}

	var compound bool
	for _, s := range ds.Surnames {
		require.Len(t, s.Strokes, utf8.RuneCountInString(s.Surname))
		if len(s.Strokes) == 2 {
			compound = true
		}
	}
	require.True(t, compound, "dataset should include compound surnames")
}

func TestParseDerivesToneAndNormalisesTags(t *testing.T) {
	t.Parallel()

	input := `
version: test
characters:
  - char: 明
    pinyin: míng
    strokes: 8
    element: Fire
    meaning: "<b>bright</b> and wise"
    frequency: 88
    gender: ""
    styles: [Classic, classic]
    sources: ["Tang Poetry"]
surnames:
  - surname: 欧阳
    pinyin: [ōu, yáng]
    strokes: [15, 17]
`
	ds, err := Parse(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, ds.Characters, 1)

	c := ds.Characters[0]
	require.Equal(t, 2, c.Tone)
	require.Equal(t, domain.ElementFire, c.Element)
	require.Equal(t, "bright and wise", c.Meaning)
	require.Equal(t, domain.GenderNeutral, c.Gender)
	require.Equal(t, []string{"classic"}, c.Styles)
	require.Equal(t, []string{"tang_poetry"}, c.Sources)

	require.Equal(t, []int{15, 17}, ds.Surnames[0].Strokes)
}

func TestParseRejectsInvalidRecords(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"unknown field":      "version: x\ncharacters:\n  - {char: 明, pinyin: míng, strokes: 8, element: fire, colour: red}\n",
		"two characters":     "characters:\n  - {char: 明亮, pinyin: míng, strokes: 8, element: fire}\n",
		"bad element":        "characters:\n  - {char: 明, pinyin: míng, strokes: 8, element: aether}\n",
		"bad pinyin":         "characters:\n  - {char: 明, pinyin: 'm1ng!', strokes: 8, element: fire}\n",
		"zero strokes":       "characters:\n  - {char: 明, pinyin: míng, strokes: 0, element: fire}\n",
		"duplicate":          "characters:\n  - {char: 明, pinyin: míng, strokes: 8, element: fire}\n  - {char: 明, pinyin: míng, strokes: 8, element: fire}\n",
		"surname mismatch":   "characters:\n  - {char: 明, pinyin: míng, strokes: 8, element: fire}\nsurnames:\n  - {surname: 欧阳, pinyin: [ōu], strokes: [15, 17]}\n",
		"no characters":      "version: x\n",
		"frequency too high": "characters:\n  - {char: 明, pinyin: míng, strokes: 8, element: fire, frequency: 101}\n",
	}
	for name, input := range cases {
		input := input
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			_, err := Parse(strings.NewReader(input))
			require.Error(t, err)
			require.True(t, errors.Is(err, ErrInvalidDataset))
		})
	}
}

func TestRecordsRoundTripThroughBuild(t *testing.T) {
	t.Parallel()

	ds, err := Embedded()
	require.NoError(t, err)

	characters, surnames := ds.Records()
	rebuilt, err := Build(ds.Version, characters, surnames)
	require.NoError(t, err)
	require.Equal(t, ds, rebuilt)
}

type fakeObjectReader struct {
	data []byte
	err  error
}

func (f fakeObjectReader) ReadObject(context.Context, string, string) ([]byte, error) {
	return f.data, f.err
}

func TestSources(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	embedded, err := EmbeddedSource{}.Load(ctx)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "characters.yaml")
	require.NoError(t, os.WriteFile(path, embeddedData, 0o600))
	fromFile, err := FileSource{Path: path}.Load(ctx)
	require.NoError(t, err)
	require.Equal(t, embedded, fromFile)

	_, err = FileSource{Path: filepath.Join(t.TempDir(), "missing.yaml")}.Load(ctx)
	require.Error(t, err)

	fromObject, err := ObjectSource{Reader: fakeObjectReader{data: embeddedData}, Bucket: "b", Object: "o"}.Load(ctx)
	require.NoError(t, err)
	require.Equal(t, embedded, fromObject)
	require.Equal(t, "gs://b/o", ObjectSource{Bucket: "b", Object: "o"}.Name())

	boom := errors.New("boom")
	_, err = ObjectSource{Reader: fakeObjectReader{err: boom}}.Load(ctx)
	require.ErrorIs(t, err, boom)
}
