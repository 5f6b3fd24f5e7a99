// Package parser turns one protocol request line into a Request.
package parser

import (
	"strconv"
	"strings"

	apperrors "github.com/Adithya-Monish-Kumar-K/Parallel-Corpus-Concordance/pkg/errors"
)

type Kind int

const (
	KindList Kind = iota
	KindConfig
	KindConfigAll
	KindDictWord
	KindDictID
	KindConcordance
	KindNgrams
)

func (k Kind) String() string {
	switch k {
	case KindList:
		return "list"
	case KindConfig:
		return "config"
	case KindConfigAll:
		return "config-all"
	case KindDictWord:
		return "dict-word"
	case KindDictID:
		return "dict-id"
	case KindConcordance:
		return "concordance"
	case KindNgrams:
		return "ngrams"
	}
	return "unknown"
}

type verb struct {
	kind      Kind
	direction int
	both      bool
	exact     bool
	minArgs   int
	maxArgs   int
}

const unbounded = -1

var verbs = map[string]verb{
	"LIST": {kind: KindList},
	"??":   {kind: KindConfigAll},
	"?":    {kind: KindConfig, minArgs: 1, maxArgs: 1},
	"~>":   {kind: KindDictWord, direction: 1, minArgs: 1, maxArgs: 1},
	"<~":   {kind: KindDictWord, direction: -1, minArgs: 1, maxArgs: 1},
	"~#>":  {kind: KindDictID, direction: 1, minArgs: 1, maxArgs: 1},
	"<#~":  {kind: KindDictID, direction: -1, minArgs: 1, maxArgs: 1},
	"->":   {kind: KindConcordance, direction: 1, minArgs: 1, maxArgs: unbounded},
	"<-":   {kind: KindConcordance, direction: -1, minArgs: 1, maxArgs: unbounded},
	"=>":   {kind: KindConcordance, direction: 1, exact: true, minArgs: 1, maxArgs: unbounded},
	"<=":   {kind: KindConcordance, direction: -1, exact: true, minArgs: 1, maxArgs: unbounded},
	"<->":  {kind: KindConcordance, direction: 1, both: true, minArgs: 1, maxArgs: unbounded},
	"<=>":  {kind: KindConcordance, direction: 1, both: true, exact: true, minArgs: 1, maxArgs: unbounded},
	":>":   {kind: KindNgrams, direction: 1, minArgs: 2, maxArgs: 4},
	"<:":   {kind: KindNgrams, direction: -1, minArgs: 2, maxArgs: 4},
}

// Request is a parsed protocol line. Args holds the tokens after the corpus
// id.
type Request struct {
	Raw       string
	Verb      string
	Kind      Kind
	CorpusID  int
	Direction int
	Both      bool
	Exact     bool
	Args      []string
}

// Parse splits line on whitespace and validates the verb, the corpus id and
// the argument count. Lines with more than maxTokens tokens are rejected.
func Parse(line string, maxTokens int) (*Request, error) {
	tokens := strings.Fields(line)
	if len(tokens) == 0 {
		return nil, apperrors.New(apperrors.ErrSyntax, "empty request")
	}
	if maxTokens > 0 && len(tokens) > maxTokens {
		return nil, apperrors.Newf(apperrors.ErrSyntax, "%d tokens, at most %d allowed", len(tokens), maxTokens)
	}
	v, ok := verbs[tokens[0]]
	if !ok {
		return nil, apperrors.Newf(apperrors.ErrSyntax, "unknown verb %q", tokens[0])
	}
	req := &Request{
		Raw:       strings.Join(tokens, " "),
		Verb:      tokens[0],
		Kind:      v.kind,
		Direction: v.direction,
		Both:      v.both,
		Exact:     v.exact,
	}
	if v.kind == KindList {
		return req, nil
	}

	if len(tokens) < 2 {
		return nil, apperrors.Newf(apperrors.ErrSyntax, "%s needs a corpus id", req.Verb)
	}
	id, err := strconv.Atoi(tokens[1])
	if err != nil || id < 1 {
		return nil, apperrors.Newf(apperrors.ErrSyntax, "bad corpus id %q", tokens[1])
	}
	req.CorpusID = id
	req.Args = tokens[2:]

	n := len(req.Args)
	if n < v.minArgs || (v.maxArgs != unbounded && n > v.maxArgs) {
		return nil, apperrors.Newf(apperrors.ErrSyntax, "%s takes %s, got %d", req.Verb, arity(v), n)
	}
	if v.kind == KindDictID {
		if _, err := strconv.ParseUint(req.Args[0], 10, 32); err != nil {
			return nil, apperrors.Newf(apperrors.ErrSyntax, "bad word id %q", req.Args[0])
		}
	}
	return req, nil
}

func arity(v verb) string {
	switch {
	case v.maxArgs == unbounded:
		return "at least " + strconv.Itoa(v.minArgs) + " arguments"
	case v.minArgs == v.maxArgs:
		return strconv.Itoa(v.minArgs) + " arguments"
	default:
		return strconv.Itoa(v.minArgs) + " to " + strconv.Itoa(v.maxArgs) + " arguments"
	}
}
