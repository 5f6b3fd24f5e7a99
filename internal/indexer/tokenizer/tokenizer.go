// Package tokenizer splits pre-segmented sentences into word tokens. Input is
// expected to be tokenized upstream, so words are separated by whitespace
// only. Each token carries case flags so the original casing can be restored
// after the word itself has been folded to lower case.
package tokenizer

import (
	"log/slog"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/Adithya-Monish-Kumar-K/Parallel-Corpus-Concordance/internal/corpus"
)

// IgnoreChars lists the characters that mark a token as punctuation. Such
// tokens are stored in the corpus but never indexed.
const IgnoreChars = ",.:;!?\"+-*/\\%^()[]@#=&_"

// Options control normalisation.
type Options struct {
	IgnoreCase bool
	MaxWordLen int
}

// Token is one word of a sentence.
type Token struct {
	Word    string
	Flags   uint8
	Indexed bool
}

// Tokenize breaks a sentence into Tokens.
func Tokenize(line string, opts Options) []Token {
	fields := strings.FieldsFunc(line, func(r rune) bool {
		return unicode.IsSpace(r) || r == 0
	})
	tokens := make([]Token, 0, len(fields))
	for _, word := range fields {
		if opts.MaxWordLen > 0 && len(word) > opts.MaxWordLen {
			slog.Warn("truncating word", "word", word, "max_len", opts.MaxWordLen)
			word = truncate(word, opts.MaxWordLen)
		}
		tok := Token{
			Word:    word,
			Flags:   caseFlags(word),
			Indexed: !strings.ContainsRune(IgnoreChars, firstRune(word)),
		}
		if opts.IgnoreCase {
			tok.Word = strings.ToLower(word)
		}
		tokens = append(tokens, tok)
	}
	return tokens
}

// truncate cuts word to at most n bytes without splitting a UTF-8 sequence.
func truncate(word string, n int) string {
	for n > 0 && !utf8.RuneStart(word[n]) {
		n--
	}
	return word[:n]
}

func firstRune(word string) rune {
	r, _ := utf8.DecodeRuneInString(word)
	return r
}

// caseFlags reports Capitalized when the first rune is upper case and all
// others are lower case, ALL-UPPER when every rune is upper case.
func caseFlags(word string) uint8 {
	first := true
	capital, upper := true, true
	for _, r := range word {
		if first {
			capital = unicode.IsUpper(r)
			first = false
		} else if !unicode.IsLower(r) {
			capital = false
		}
		if !unicode.IsUpper(r) {
			upper = false
		}
	}
	switch {
	case first:
		return 0
	case capital:
		return corpus.FlagCapital
	case upper:
		return corpus.FlagUpper
	default:
		return 0
	}
}
