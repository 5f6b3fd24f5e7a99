package index

import (
	apperrors "github.com/Adithya-Monish-Kumar-K/Parallel-Corpus-Concordance/pkg/errors"
)

// An occurrence packs a chunk id into the top 8 bits and sentence+1 into the
// low 24 bits, so 0 never encodes a real occurrence and can terminate lists.
const (
	ChunkShift   = 24
	SentenceMask = 1<<ChunkShift - 1
	MaxChunk     = 255
	// MaxSentence is the largest zero-based sentence number per chunk.
	MaxSentence = SentenceMask - 1
)

// Occurrence is a decoded posting.
type Occurrence struct {
	Chunk    uint8
	Sentence uint32
}

// Encode packs a zero-based sentence number with its chunk id.
func Encode(chunk uint8, sentence uint32) (uint32, error) {
	if sentence > MaxSentence {
		return 0, apperrors.Newf(apperrors.ErrOutOfRange,
			"sentence %d exceeds %d per chunk", sentence, MaxSentence)
	}
	return uint32(chunk)<<ChunkShift | (sentence + 1), nil
}

// Decode splits a packed value into its chunk id and sentence+1. Callers
// subtract one to obtain the zero-based sentence number.
func Decode(packed uint32) (chunk uint8, sentencePlusOne uint32) {
	return uint8(packed >> ChunkShift), packed & SentenceMask
}

// DecodeOccurrence returns the zero-based form of a non-zero packed value.
func DecodeOccurrence(packed uint32) Occurrence {
	chunk, s := Decode(packed)
	return Occurrence{Chunk: chunk, Sentence: s - 1}
}
