package textutil

import (
	"reflect"
	"testing"
)

func TestNormalizeStringMap(t *testing.T) {
	t.Helper()

	t.Run("trims keys and values", func(t *testing.T) {
		input := map[string]string{
			" surname ":  " 王 ",
			"relaxation": " drop_avoid ",
			"empty":      " ",
			" ":          "ignored",
		}

		expected := map[string]string{
			"surname":    "王",
			"relaxation": "drop_avoid",
			"empty":      "",
		}

		actual := NormalizeStringMap(input)
		if !reflect.DeepEqual(actual, expected) {
			t.Fatalf("expected %#v got %#v", expected, actual)
		}
	})

	t.Run("returns nil for nil or empty input", func(t *testing.T) {
		if NormalizeStringMap(nil) != nil {
			t.Fatalf("expected nil for nil input")
		}
		if NormalizeStringMap(map[string]string{}) != nil {
			t.Fatalf("expected nil for empty map")
		}
	})
}

func TestNormalizeTags(t *testing.T) {
	cases := []struct {
		name     string
		input    []string
		expected []string
	}{
		{name: "nil", input: nil, expected: nil},
		{name: "blanks only", input: []string{" ", ""}, expected: nil},
		{name: "case and separators", input: []string{"Tang Poetry", "tang-poetry", " Shijing "}, expected: []string{"tang_poetry", "shijing"}},
		{name: "keeps order", input: []string{"modern", "classic", "Modern"}, expected: []string{"modern", "classic"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			actual := NormalizeTags(tc.input)
			if !reflect.DeepEqual(actual, tc.expected) {
				t.Fatalf("expected %#v got %#v", tc.expected, actual)
			}
		})
	}
}
