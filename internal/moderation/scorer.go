// Package moderation holds the pure risk evaluation logic: the heuristic
// scorer and the decision rules. Nothing here performs I/O, so every rule is
// independently unit-testable.
package moderation

import (
	"regexp"
	"strings"
)

// Flag is a tagged wordlist match, e.g. "BANNED:sequestro" or
// "SENSITIVE:senha".
type Flag string

const (
	flagBannedPrefix    = "BANNED:"
	flagSensitivePrefix = "SENSITIVE:"
)

// Banned reports whether the flag came from the banned wordlist.
func (f Flag) Banned() bool {
	return strings.HasPrefix(string(f), flagBannedPrefix)
}

// JoinFlags renders flags as a single human-readable reason string.
func JoinFlags(flags []Flag) string {
	parts := make([]string, len(flags))
	for i, f := range flags {
		parts[i] = string(f)
	}
	return strings.Join(parts, ", ")
}

// Score weights. Banned terms dominate every other signal so a single hit
// always clears the adjust threshold.
const (
	bannedWeight    = 100
	sensitiveWeight = 30
	patternWeight   = 5
)

// Wordlists is the immutable scorer configuration, loaded once at startup
// and injected rather than referenced as ambient state.
type Wordlists struct {
	Banned    []string
	Sensitive []string
}

// DefaultWordlists returns the built-in term lists.
func DefaultWordlists() Wordlists {
	return Wordlists{
		Banned: []string{
			"sequestro",
			"refém",
			"arma de fogo",
			"drogas",
			"matar",
		},
		Sensitive: []string{
			"monitorar",
			"senha",
			"rastrear",
			"vigiar",
			"espionar",
		},
	}
}

// currencyPattern matches currency-like numerals: grouped digits or a
// decimal pair, e.g. "1.000", "5,000.00", "500,00".
var currencyPattern = regexp.MustCompile(`\d{1,3}(?:[.,]\d{3})+(?:[.,]\d{2})?|\d+[.,]\d{2}\b`)

// urgencyMarkers are matched as lowercase substrings.
var urgencyMarkers = []string{"urgent", "urgente", "immediate", "imediato"}

// Scorer evaluates free text against the configured wordlists. It is a pure
// function of its input: identical text always yields identical output.
type Scorer struct {
	banned    []string
	sensitive []string
}

// NewScorer builds a scorer from the given wordlists. Terms are lowercased
// once here so Evaluate stays allocation-light.
func NewScorer(lists Wordlists) *Scorer {
	return &Scorer{
		banned:    lowerAll(lists.Banned),
		sensitive: lowerAll(lists.Sensitive),
	}
}

// Evaluate scores text and returns the matched flags in wordlist traversal
// order. Each term contributes at most once; score never decreases as more
// matching content is added.
func (s *Scorer) Evaluate(text string) (int, []Flag) {
	lower := strings.ToLower(text)

	score := 0
	var flags []Flag

	for _, term := range s.banned {
		if strings.Contains(lower, term) {
			flags = append(flags, Flag(flagBannedPrefix+term))
			score += bannedWeight
		}
	}
	for _, term := range s.sensitive {
		if strings.Contains(lower, term) {
			flags = append(flags, Flag(flagSensitivePrefix+term))
			score += sensitiveWeight
		}
	}

	if currencyPattern.MatchString(lower) {
		score += patternWeight
	}
	for _, marker := range urgencyMarkers {
		if strings.Contains(lower, marker) {
			score += patternWeight
			break
		}
	}

	return score, flags
}

func lowerAll(terms []string) []string {
	out := make([]string, len(terms))
	for i, term := range terms {
		out[i] = strings.ToLower(term)
	}
	return out
}
