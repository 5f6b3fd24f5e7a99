package index

import "github.com/Adithya-Monish-Kumar-K/Parallel-Corpus-Concordance/internal/corpus"

// Intersect merges two strictly increasing posting lists and returns the
// values present in both, in increasing order. A 0 inside either input ends
// that list early. The result is freshly allocated.
func Intersect(a, b []uint32) []uint32 {
	out := make([]uint32, 0, min(len(a), len(b)))
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		x, y := a[i], b[j]
		if x == corpus.Terminator || y == corpus.Terminator {
			break
		}
		switch {
		case x == y:
			out = append(out, x)
			i++
			j++
		case x < y:
			i++
		default:
			j++
		}
	}
	return out
}
