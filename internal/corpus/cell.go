// Package corpus stores a tokenized corpus as a flat array of cells, one cell
// per word, with a terminator cell closing every sentence. A companion offset
// index maps sentence numbers to cell positions so single sentences can be
// read straight from disk.
package corpus

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// WordID identifies a vocabulary entry.
type WordID = uint32

const (
	// Terminator closes a sentence in cell arrays, patterns and postings.
	Terminator WordID = 0
	// Wildcard matches any single cell in a phrase pattern.
	Wildcard WordID = 1
	// FirstWordID is the lowest id a vocabulary hands out.
	FirstWordID WordID = 2
)

// Cell flag bits.
const (
	FlagUpper   uint8 = 0x1
	FlagCapital uint8 = 0x2
)

// Cell is one token occurrence.
type Cell struct {
	Word  WordID
	Flags uint8
}

// Side selects one half of an aligned corpus.
type Side int

const (
	Source Side = iota
	Target
)

func (s Side) String() string {
	if s == Target {
		return "target"
	}
	return "source"
}

// Other returns the opposite side.
func (s Side) Other() Side {
	if s == Target {
		return Source
	}
	return Target
}

// Recase restores the surface form of a stored (lowercased) word.
func Recase(word string, flags uint8) string {
	switch {
	case flags&FlagUpper != 0:
		return strings.ToUpper(word)
	case flags&FlagCapital != 0:
		r, size := utf8.DecodeRuneInString(word)
		if r == utf8.RuneError {
			return word
		}
		return string(unicode.ToUpper(r)) + word[size:]
	default:
		return word
	}
}
