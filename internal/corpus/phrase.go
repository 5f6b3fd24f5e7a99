package corpus

// PhraseMatch reports whether pattern occurs as a contiguous run in the
// sentence. The haystack ends at its first terminator and the pattern at its
// own; Wildcard in the pattern matches any cell. An empty pattern never
// matches.
func PhraseMatch(haystack []Cell, pattern []WordID) bool {
	h := SentenceLength(haystack)
	n := patternLength(pattern)
	if n == 0 || n > h {
		return false
	}
	for i := 0; i <= h-n; i++ {
		j := 0
		for j < n && (pattern[j] == Wildcard || haystack[i+j].Word == pattern[j]) {
			j++
		}
		if j == n {
			return true
		}
	}
	return false
}

func patternLength(pattern []WordID) int {
	for i, id := range pattern {
		if id == Terminator {
			return i
		}
	}
	return len(pattern)
}
