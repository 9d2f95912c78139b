package search

import "testing"

// TestFuzzyMatchSubsequence tests the basic in-order matching rule.
func TestFuzzyMatchSubsequence(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		query   string
		target  string
		matched bool
	}{
		{name: "exact", query: "x.mkv", target: "x.mkv", matched: true},
		{name: "scattered", query: "xmk", target: "x.mkv", matched: true},
		{name: "case-insensitive", query: "XMK", target: "x.mkv", matched: true},
		{name: "empty query", query: "", target: "anything", matched: true},
		{name: "out of order", query: "kmx", target: "x.mkv", matched: false},
		{name: "missing char", query: "xz", target: "x.mkv", matched: false},
		{name: "query longer than target", query: "x.mkv.extra", target: "x.mkv", matched: false},
		{name: "unicode", query: "amé", target: "Amélie (2001).mkv", matched: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, matched := fuzzyMatch(tt.query, tt.target)
			if matched != tt.matched {
				t.Errorf("fuzzyMatch(%q, %q) matched = %v, want %v", tt.query, tt.target, matched, tt.matched)
			}
		})
	}
}

// TestFuzzyMatchRanking tests scoring priorities: consecutive runs beat
// boundary hits beat scattered matches.
func TestFuzzyMatchRanking(t *testing.T) {
	t.Parallel()

	rank := func(query, better, worse string) {
		t.Helper()
		bScore, bOK := fuzzyMatch(query, better)
		wScore, wOK := fuzzyMatch(query, worse)
		if !bOK || !wOK {
			t.Fatalf("both targets must match %q (better=%v worse=%v)", query, bOK, wOK)
		}
		if bScore <= wScore {
			t.Errorf("fuzzyMatch(%q): %q scored %d, should beat %q at %d", query, better, bScore, worse, wScore)
		}
	}

	// Contiguous run beats the same characters spread out
	rank("abc", "abc.mkv", "a1b2c3.mkv")

	// Early match beats late match
	rank("movie", "movie of the year.mkv", "the best movie.mkv")

	// Dense coverage beats a match buried in a long name
	rank("xmk", "x.mkv", "extra-material-dark.mkv")

	// Word-boundary initials beat mid-word scatter
	rank("bm", "best movie.mkv", "submarine.mkv")
}

// TestFuzzyMatchDeterminism tests repeat calls give identical scores.
func TestFuzzyMatchDeterminism(t *testing.T) {
	t.Parallel()

	first, _ := fuzzyMatch("xmk", "x.mkv")
	for i := 0; i < 100; i++ {
		score, _ := fuzzyMatch("xmk", "x.mkv")
		if score != first {
			t.Fatalf("score changed between calls: %d != %d", score, first)
		}
	}
}
