package corpus

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
)

func sentence(ids ...WordID) []Cell {
	cells := make([]Cell, 0, len(ids)+1)
	for _, id := range ids {
		cells = append(cells, Cell{Word: id})
	}
	return append(cells, Cell{Word: Terminator})
}

func TestPhraseMatch(t *testing.T) {
	hay := sentence(2, 3, 4, 5)
	tests := []struct {
		name    string
		pattern []WordID
		want    bool
	}{
		{"single word", []WordID{4}, true},
		{"contiguous pair", []WordID{3, 4}, true},
		{"out of order", []WordID{4, 3}, false},
		{"gap without wildcard", []WordID{2, 4}, false},
		{"wildcard fills gap", []WordID{2, Wildcard, 4}, true},
		{"whole sentence", []WordID{2, 3, 4, 5}, true},
		{"pattern ends at suffix", []WordID{4, 5}, true},
		{"longer than sentence", []WordID{2, 3, 4, 5, 6}, false},
		{"terminated pattern", []WordID{5, Terminator, 9}, true},
		{"empty pattern", nil, false},
		{"only wildcards", []WordID{Wildcard, Wildcard}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, PhraseMatch(hay, tt.pattern))
		})
	}
}

func TestPhraseMatchStopsAtTerminator(t *testing.T) {
	// cells after the first terminator belong to the next sentence
	hay := append(sentence(2, 3), sentence(4, 5)...)
	assert.False(t, PhraseMatch(hay, []WordID{4}))
	assert.True(t, PhraseMatch(hay, []WordID{3}))
}

func TestPhraseMatchProperty(t *testing.T) {
	properties := gopter.NewProperties(gopter.DefaultTestParameters())

	properties.Property("every slice of a sentence matches it", prop.ForAll(
		func(ids []uint32, start, length uint) bool {
			s := int(start) % len(ids)
			n := 1 + int(length)%(len(ids)-s)
			return PhraseMatch(sentence(ids...), ids[s:s+n])
		},
		gen.SliceOf(gen.UInt32Range(2, 6)).SuchThat(func(v []uint32) bool { return len(v) > 0 }),
		gen.UInt(),
		gen.UInt(),
	))

	properties.Property("a word absent from the sentence never matches", prop.ForAll(
		func(ids []uint32) bool {
			return !PhraseMatch(sentence(ids...), []WordID{7})
		},
		gen.SliceOf(gen.UInt32Range(2, 6)),
	))

	properties.TestingRun(t)
}
