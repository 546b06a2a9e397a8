package domain

import (
	"fmt"
	"strings"
)

// FiveElement enumerates the five phases (wuxing).
type FiveElement uint8

const (
	// ElementMetal is 金.
	ElementMetal FiveElement = iota
	// ElementWood is 木.
	ElementWood
	// ElementWater is 水.
	ElementWater
	// ElementFire is 火.
	ElementFire
	// ElementEarth is 土.
	ElementEarth

	elementCount = 5
)

// AllElements lists every element in declaration order.
var AllElements = [elementCount]FiveElement{ElementMetal, ElementWood, ElementWater, ElementFire, ElementEarth}

var elementNames = [elementCount]string{"metal", "wood", "water", "fire", "earth"}

var elementHan = [elementCount]string{"金", "木", "水", "火", "土"}

// generates[e] is the element e feeds in the generative cycle.
var generates = [elementCount]FiveElement{
	ElementMetal: ElementWater,
	ElementWood:  ElementFire,
	ElementWater: ElementWood,
	ElementFire:  ElementEarth,
	ElementEarth: ElementMetal,
}

// restrains[e] is the element e controls in the restraining cycle.
var restrains = [elementCount]FiveElement{
	ElementMetal: ElementWood,
	ElementWood:  ElementEarth,
	ElementWater: ElementFire,
	ElementFire:  ElementMetal,
	ElementEarth: ElementWater,
}

// Valid reports whether the value is one of the five declared elements.
func (e FiveElement) Valid() bool {
	return e < elementCount
}

// String returns the lowercase english name used in JSON payloads and datasets.
func (e FiveElement) String() string {
	if !e.Valid() {
		return fmt.Sprintf("element(%d)", uint8(e))
	}
	return elementNames[e]
}

// Han returns the single Han character for the element.
func (e FiveElement) Han() string {
	if !e.Valid() {
		return ""
	}
	return elementHan[e]
}

// Generates returns the element produced by e.
func (e FiveElement) Generates() FiveElement {
	return generates[e]
}

// GeneratedBy returns the element that produces e.
func (e FiveElement) GeneratedBy() FiveElement {
	for _, candidate := range AllElements {
		if generates[candidate] == e {
			return candidate
		}
	}
	return e
}

// Restrains returns the element controlled by e.
func (e FiveElement) Restrains() FiveElement {
	return restrains[e]
}

// RestrainedBy returns the element that controls e.
func (e FiveElement) RestrainedBy() FiveElement {
	for _, candidate := range AllElements {
		if restrains[candidate] == e {
			return candidate
		}
	}
	return e
}

// ParseElement accepts english names (any case) or the Han character.
func ParseElement(value string) (FiveElement, error) {
	trimmed := strings.TrimSpace(value)
	lowered := strings.ToLower(trimmed)
	for idx, name := range elementNames {
		if lowered == name || trimmed == elementHan[idx] {
			return FiveElement(idx), nil
		}
	}
	return 0, fmt.Errorf("domain: unknown element %q", value)
}

// ElementSet is an order-preserving, duplicate-free collection of elements.
type ElementSet []FiveElement

// NewElementSet builds a set from the given elements, dropping duplicates and invalid values.
func NewElementSet(elements ...FiveElement) ElementSet {
	var seen [elementCount]bool
	out := make(ElementSet, 0, len(elements))
	for _, el := range elements {
		if !el.Valid() || seen[el] {
			continue
		}
		seen[el] = true
		out = append(out, el)
	}
	return out
}

// Contains reports membership.
func (s ElementSet) Contains(e FiveElement) bool {
	for _, el := range s {
		if el == e {
			return true
		}
	}
	return false
}

// Union appends the elements of other that are not already present.
func (s ElementSet) Union(other ElementSet) ElementSet {
	merged := make([]FiveElement, 0, len(s)+len(other))
	merged = append(merged, s...)
	merged = append(merged, other...)
	return NewElementSet(merged...)
}

// Without removes every element present in other.
func (s ElementSet) Without(other ElementSet) ElementSet {
	out := make(ElementSet, 0, len(s))
	for _, el := range s {
		if !other.Contains(el) {
			out = append(out, el)
		}
	}
	return out
}

// Strings renders the english names in set order.
func (s ElementSet) Strings() []string {
	out := make([]string, 0, len(s))
	for _, el := range s {
		out = append(out, el.String())
	}
	return out
}

// Signature renders a canonical, order-independent key for the set.
func (s ElementSet) Signature() string {
	var present [elementCount]bool
	for _, el := range s {
		if el.Valid() {
			present[el] = true
		}
	}
	var builder strings.Builder
	for idx, ok := range present {
		if ok {
			builder.WriteString(elementHan[idx])
		}
	}
	return builder.String()
}

// ParseElementSet parses a list of element names into a set, failing on unknown values.
func ParseElementSet(values []string) (ElementSet, error) {
	elements := make([]FiveElement, 0, len(values))
	for _, value := range values {
		el, err := ParseElement(value)
		if err != nil {
			return nil, err
		}
		elements = append(elements, el)
	}
	return NewElementSet(elements...), nil
}
