package cache

import (
	"fmt"
	"strconv"
	"strings"
)

// ChartKey identifies a Four Pillars chart: bazi:<year>-<month>-<day>-<hour>.
func ChartKey(year, month, day, hour int) string {
	return fmt.Sprintf("bazi:%d-%d-%d-%d", year, month, day, hour)
}

// WugeKey identifies a five-grid analysis: wuge:<surname strokes>:<given strokes>.
func WugeKey(surnameStrokes, givenStrokes []int) string {
	return "wuge:" + joinInts(surnameStrokes) + ":" + joinInts(givenStrokes)
}

// PhoneticsKey identifies a phonetic report by the full pinyin of the name.
func PhoneticsKey(fullPinyin string) string {
	return "phonetics:" + fullPinyin
}

// NameScoreKey identifies a scored name. A non-empty signature marks scores that
// depend on birth data and distinguishes the element targets they were scored against.
func NameScoreKey(surname, givenName, signature string) string {
	key := "name_score:" + surname + ":" + givenName
	if signature != "" {
		key += ":with_bazi:" + signature
	}
	return key
}

func joinInts(values []int) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, "-")
}
