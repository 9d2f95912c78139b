package search

import (
	"strings"
	"unicode"
)

// Scoring weights. The ordering matters more than the values: a run of
// consecutive matches must outrank word-boundary hits, which must
// outrank a merely dense scattering of matched characters.
const (
	scoreBase        = 1
	bonusConsecutive = 8
	bonusBoundary    = 6
	bonusStart       = 10
	ratioWeight      = 16
	lengthDivisor    = 4
)

// fuzzyMatch reports whether every rune of query appears in order in
// target, case-insensitively, and scores the match. Higher scores are
// better; the score is deterministic for a given (query, target) pair.
func fuzzyMatch(query, target string) (score int, matched bool) {
	if query == "" {
		return 0, true
	}

	queryRunes := []rune(strings.ToLower(query))
	targetRunes := []rune(strings.ToLower(target))
	targetOrig := []rune(target)

	if len(queryRunes) > len(targetRunes) {
		return 0, false
	}

	queryPos := 0
	lastMatchPos := -1
	firstMatchPos := -1

	for targetPos := 0; targetPos < len(targetRunes) && queryPos < len(queryRunes); targetPos++ {
		if targetRunes[targetPos] != queryRunes[queryPos] {
			continue
		}

		matchScore := scoreBase

		if lastMatchPos == targetPos-1 {
			matchScore += bonusConsecutive
		}
		if targetPos == 0 {
			matchScore += bonusStart
		}
		if isWordBoundary(targetOrig, targetPos) {
			matchScore += bonusBoundary
		}

		score += matchScore
		if firstMatchPos < 0 {
			firstMatchPos = targetPos
		}
		lastMatchPos = targetPos
		queryPos++
	}

	if queryPos != len(queryRunes) {
		return 0, false
	}

	// Density of query characters in the target; a query covering most
	// of the name beats one buried in a long title.
	score += len(queryRunes) * ratioWeight / len(targetRunes)

	// Matches that start late in the name rank below early ones.
	score -= firstMatchPos

	// Mild preference for shorter targets.
	score -= len(targetRunes) / lengthDivisor

	return score, true
}

// isWordBoundary reports whether pos starts a word: the beginning of the
// string, after a separator, or a camelCase transition.
func isWordBoundary(runes []rune, pos int) bool {
	if pos == 0 {
		return true
	}
	if pos >= len(runes) {
		return false
	}

	prev := runes[pos-1]
	switch prev {
	case ' ', '/', '-', '_', '.', '[', '(':
		return true
	}

	return unicode.IsLower(prev) && unicode.IsUpper(runes[pos])
}
