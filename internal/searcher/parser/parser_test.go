package parser

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/Adithya-Monish-Kumar-K/Parallel-Corpus-Concordance/pkg/errors"
)

func TestParseVerbs(t *testing.T) {
	tests := []struct {
		line      string
		kind      Kind
		direction int
		both      bool
		exact     bool
		corpus    int
		args      []string
	}{
		{"LIST", KindList, 0, false, false, 0, nil},
		{"?? 1", KindConfigAll, 0, false, false, 1, []string{}},
		{"? 2 homedir", KindConfig, 0, false, false, 2, []string{"homedir"}},
		{"~> 1 cat", KindDictWord, 1, false, false, 1, []string{"cat"}},
		{"<~ 1 gato", KindDictWord, -1, false, false, 1, []string{"gato"}},
		{"~#> 1 17", KindDictID, 1, false, false, 1, []string{"17"}},
		{"<#~ 1 17", KindDictID, -1, false, false, 1, []string{"17"}},
		{"-> 1 the cat", KindConcordance, 1, false, false, 1, []string{"the", "cat"}},
		{"<- 1 gato", KindConcordance, -1, false, false, 1, []string{"gato"}},
		{"=> 3 the * sat", KindConcordance, 1, false, true, 3, []string{"the", "*", "sat"}},
		{"<= 1 o gato", KindConcordance, -1, false, true, 1, []string{"o", "gato"}},
		{"<-> 1 cat <-> gato", KindConcordance, 1, true, false, 1, []string{"cat", "<->", "gato"}},
		{"<=> 1 cat <=> gato #5", KindConcordance, 1, true, true, 1, []string{"cat", "<=>", "gato", "#5"}},
		{":> 1 the *", KindNgrams, 1, false, false, 1, []string{"the", "*"}},
		{"<:  1  o gato sentou  *", KindNgrams, -1, false, false, 1, []string{"o", "gato", "sentou", "*"}},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			req, err := Parse(tt.line, 50)
			require.NoError(t, err)
			assert.Equal(t, tt.kind, req.Kind)
			assert.Equal(t, tt.direction, req.Direction)
			assert.Equal(t, tt.both, req.Both)
			assert.Equal(t, tt.exact, req.Exact)
			assert.Equal(t, tt.corpus, req.CorpusID)
			if tt.args != nil {
				assert.Equal(t, tt.args, req.Args)
			}
		})
	}
}

func TestParseRejects(t *testing.T) {
	tests := []string{
		"",
		"   ",
		"GET / HTTP/1.0",
		"list",
		"->",
		"-> x cat",
		"-> 0 cat",
		"-> -2 cat",
		"-> 1",
		"? 1",
		"? 1 a b",
		"~> 1",
		"~#> 1 cat",
		":> 1 the",
		":> 1 a b c d e",
		"->> 1 cat",
	}
	for _, line := range tests {
		t.Run(line, func(t *testing.T) {
			_, err := Parse(line, 50)
			assert.ErrorIs(t, err, apperrors.ErrSyntax)
		})
	}
}

func TestParseTokenLimit(t *testing.T) {
	line := "-> 1 " + strings.TrimSpace(strings.Repeat("w ", 48))
	_, err := Parse(line, 50)
	require.NoError(t, err)

	_, err = Parse(line+" extra", 50)
	assert.ErrorIs(t, err, apperrors.ErrSyntax)
}
