package search

// Scoring weights for one matched query character.
const (
	matchBase       = 10
	boundaryBonus   = 15
	camelBonus      = 12
	adjacentBonus   = 8
	leadingBonus    = 5
	leadingWindow   = 3
	gapPenalty      = 2
	maxPenalizedGap = 8

	// exactBonus is added per query byte when the whole name equals the
	// query. A non-exact match scores at most 33 per byte and an exact one
	// at least 18, so this keeps exact names ahead of everything else.
	exactBonus = 16
)

// Score matches queryLower against name as an ordered, case-insensitive
// subsequence and reports whether every query byte was matched. nameLower
// must be Lower(name); both are passed so callers can precompute it once
// per symbol. Matching is greedy from the left and byte-wise, so non-ASCII
// bytes only ever match themselves.
//
// An empty query matches everything with score 0. A name equal to the query
// always outscores any name that merely contains it.
func Score(queryLower, name, nameLower string) (int, bool) {
	if queryLower == "" {
		return 0, true
	}
	if len(nameLower) != len(name) {
		return 0, false
	}

	qi := 0
	score := 0
	last := -1

	for i := 0; i < len(nameLower) && qi < len(queryLower); i++ {
		if nameLower[i] != queryLower[qi] {
			continue
		}

		s := matchBase

		prev := byte(' ')
		if i > 0 {
			prev = name[i-1]
		}
		if isBoundary(prev) {
			s += boundaryBonus
		}
		if i > 0 && isUpper(name[i]) && isLower(name[i-1]) {
			s += camelBonus
		}

		if last >= 0 {
			if i == last+1 {
				s += adjacentBonus
			} else {
				s -= gapPenalty * min(i-last-1, maxPenalizedGap)
			}
		} else if i < leadingWindow {
			s += leadingBonus
		}

		score += s
		last = i
		qi++
	}

	if qi != len(queryLower) {
		return 0, false
	}
	if nameLower == queryLower {
		score += exactBonus * len(queryLower)
	}
	return score, true
}

// Lower folds ASCII letters only, so byte offsets line up with the input.
func Lower(s string) string {
	for i := 0; i < len(s); i++ {
		if isUpper(s[i]) {
			b := []byte(s)
			for j := i; j < len(b); j++ {
				if isUpper(b[j]) {
					b[j] += 'a' - 'A'
				}
			}
			return string(b)
		}
	}
	return s
}

func isBoundary(b byte) bool {
	switch b {
	case ' ', '_', '-', '/', '.', '(', ')', '[', ']':
		return true
	}
	return false
}

func isUpper(b byte) bool { return 'A' <= b && b <= 'Z' }
func isLower(b byte) bool { return 'a' <= b && b <= 'z' }
