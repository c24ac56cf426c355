package ai

import (
	"context"
	"math"
	"sort"
	"strings"
	"unicode"

	"docqa-service/models"
)

// LexicalReranker scores candidates by normalized term overlap with the query.
// It is used when no cross-encoder endpoint is configured.
type LexicalReranker struct{}

func NewLexicalReranker() *LexicalReranker { return &LexicalReranker{} }

func (LexicalReranker) Name() string { return "lexical" }

func (LexicalReranker) Rerank(_ context.Context, query string, candidates []models.ScoredChunk, topN int) ([]models.ScoredChunk, error) {
	q := termSet(query)
	out := make([]models.ScoredChunk, len(candidates))
	for i, c := range candidates {
		out[i] = c
		out[i].Score = overlap(q, termSet(c.Text))
	}
	return TopN(out, topN), nil
}

// TopN sorts by descending score (stable, so ties keep retrieval order) and trims to n.
func TopN(chunks []models.ScoredChunk, n int) []models.ScoredChunk {
	sort.SliceStable(chunks, func(i, j int) bool { return chunks[i].Score > chunks[j].Score })
	if n >= 0 && len(chunks) > n {
		chunks = chunks[:n]
	}
	return chunks
}

// overlap is the Ochiai coefficient |A∩B| / sqrt(|A||B|).
func overlap(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	shared := 0
	for t := range a {
		if _, ok := b[t]; ok {
			shared++
		}
	}
	return float64(shared) / math.Sqrt(float64(len(a))*float64(len(b)))
}

var stopwords = map[string]struct{}{
	"a": {}, "an": {}, "the": {}, "of": {}, "in": {}, "on": {}, "is": {}, "are": {}, "was": {},
	"what": {}, "which": {}, "who": {}, "to": {}, "and": {}, "or": {}, "for": {}, "by": {},
	"with": {}, "does": {}, "do": {}, "did": {}, "it": {}, "its": {}, "at": {}, "as": {},
}

func termSet(text string) map[string]struct{} {
	terms := make(map[string]struct{})
	for _, f := range strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}) {
		if _, stop := stopwords[f]; stop {
			continue
		}
		terms[f] = struct{}{}
	}
	return terms
}
