package index

import (
	"testing"

	"github.com/Adithya-Monish-Kumar-K/Parallel-Corpus-Concordance/internal/corpus"
)

const benchSentences = 100000

func BenchmarkBuilderAdd(b *testing.B) {
	bld := NewBuilder(1024)
	b.ReportAllocs()
	i := 0
	for b.Loop() {
		word := corpus.WordID(2 + i%500)
		if err := bld.Add(word, 0, uint32(i%benchSentences)); err != nil {
			b.Fatal(err)
		}
		i++
	}
}

func BenchmarkIntersect(b *testing.B) {
	evens := make([]uint32, 0, benchSentences/2)
	thirds := make([]uint32, 0, benchSentences/3)
	for s := uint32(0); s < benchSentences; s++ {
		p, _ := Encode(0, s)
		if s%2 == 0 {
			evens = append(evens, p)
		}
		if s%3 == 0 {
			thirds = append(thirds, p)
		}
	}
	b.ReportAllocs()
	for b.Loop() {
		_ = Intersect(evens, thirds)
	}
}
