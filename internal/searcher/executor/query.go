package executor

import (
	"strconv"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/Parallel-Corpus-Concordance/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/Parallel-Corpus-Concordance/internal/indexer/index"
	apperrors "github.com/Adithya-Monish-Kumar-K/Parallel-Corpus-Concordance/pkg/errors"
)

// Tokens switching the remaining terms to the other language.
const (
	FlipToken      = "<->"
	FlipExactToken = "<=>"
)

// Query is one concordance request.
type Query struct {
	// Direction is +1 to anchor on the source side, -1 for the target side.
	Direction int
	Both      bool
	Exact     bool
	Tokens    []string
	// FoldCase lowercases tokens before lookup, for corpora indexed with
	// case folding.
	FoldCase bool
}

// plan is a resolved query ready for iteration.
type plan struct {
	limit      int
	direction  int
	both       bool
	exact      bool
	forward    []corpus.WordID
	reciprocal []corpus.WordID
	candidates []uint32
}

func sideOf(direction int) corpus.Side {
	if direction < 0 {
		return corpus.Target
	}
	return corpus.Source
}

// isCap reports whether tok is a "#<digits>" result cap. Other tokens starting
// with '#' are looked up as words.
func isCap(tok string) bool {
	return len(tok) > 1 && tok[0] == '#' && tok[1] >= '0' && tok[1] <= '9'
}

func isFlip(tok string) bool {
	return tok == FlipToken || tok == FlipExactToken
}

// resolve turns tokens into patterns and the candidate occurrence list.
// Unknown words produce an empty candidate list; malformed token order is an
// ErrSyntax.
func (e *Executor) resolve(c Corpus, q Query) (*plan, error) {
	if q.Direction == 0 {
		return nil, apperrors.New(apperrors.ErrSyntax, "query has no direction")
	}
	if len(q.Tokens) == 0 {
		return nil, apperrors.New(apperrors.ErrSyntax, "query has no terms")
	}
	p := &plan{
		limit:     e.defaultLimit,
		direction: q.Direction,
		both:      q.Both,
		exact:     q.Exact,
	}

	dir := q.Direction
	flipped := false
	unknown := false
	intersected := false

	for _, tok := range q.Tokens {
		if isCap(tok) {
			n, err := strconv.Atoi(tok[1:])
			if err != nil {
				return nil, apperrors.Newf(apperrors.ErrSyntax, "bad result cap %q", tok)
			}
			p.limit = e.clampLimit(n)
			break
		}
		if isFlip(tok) {
			if len(p.forward) == 0 || flipped || dir < 0 {
				return nil, apperrors.Newf(apperrors.ErrSyntax, "misplaced %s", tok)
			}
			flipped = true
			dir = -dir
			continue
		}
		if q.FoldCase {
			tok = strings.ToLower(tok)
		}
		side := sideOf(dir)
		id, ok := c.Lexicon(side).Resolve(tok)
		if !ok {
			unknown = true
			id = corpus.Terminator
		}
		if flipped {
			p.reciprocal = append(p.reciprocal, id)
			continue
		}
		p.forward = append(p.forward, id)
		if !ok || unknown {
			continue
		}
		if id == corpus.Wildcard {
			// The wildcard is never indexed: leading the query it empties the
			// running list, later it only shapes the phrase pattern.
			if len(p.forward) == 1 {
				p.candidates = nil
				intersected = true
			}
			continue
		}
		postings := c.Index(side).Postings(id)
		if !intersected {
			p.candidates = postings
			intersected = true
		} else {
			p.candidates = index.Intersect(p.candidates, postings)
		}
	}
	if len(p.forward) == 0 {
		return nil, apperrors.New(apperrors.ErrSyntax, "query has no terms")
	}
	if unknown || !intersected {
		p.candidates = nil
	}
	return p, nil
}

// accept applies the phrase checks to one retrieved pair.
func (p *plan) accept(src, tgt []corpus.Cell) bool {
	switch {
	case p.exact && p.both:
		return corpus.PhraseMatch(src, p.forward) &&
			(len(p.reciprocal) == 0 || corpus.PhraseMatch(tgt, p.reciprocal))
	case p.both:
		return true
	case p.direction < 0:
		return !p.exact || corpus.PhraseMatch(tgt, p.forward)
	default:
		return !p.exact || corpus.PhraseMatch(src, p.forward)
	}
}
