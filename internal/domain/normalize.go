package domain

import (
	"strings"
	"unicode"
)

// Normalize canonicalizes an answer for comparison. Rules: case-fold and
// strip '-', '_' and all whitespace. Both the submitted text and the
// reference answer (or alias) must pass through this same function; raw
// strings are never compared directly.
func Normalize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r == '-' || r == '_' || unicode.IsSpace(r) {
			continue
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}

// AnswerMatches reports whether input matches the reference answer under
// normalization.
func AnswerMatches(input, reference string) bool {
	return Normalize(input) == Normalize(reference)
}

// PhaseMatches reports whether input matches a phase's canonical key or any
// of its accepted aliases.
func PhaseMatches(def PhaseDefinition, input string) bool {
	n := Normalize(input)
	if n == Normalize(def.CanonicalKey) {
		return true
	}
	for _, alias := range def.Aliases {
		if n == Normalize(alias) {
			return true
		}
	}
	return false
}
