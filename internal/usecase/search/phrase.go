package search

import (
	"github.com/kailas-cloud/serp/internal/domain/search/query"
	"github.com/kailas-cloud/serp/internal/domain/search/rules"
)

// BuildPhraseQuery assembles the single-pass phrase search. The query text is matched
// as a phrase on every phrase field; inline filters and the language term still apply.
// slop must already be clamped.
func BuildPhraseQuery(p Parsed, tbl *rules.Table, lang string, slop int) *query.Bool {
	q := &query.Bool{}
	addFilters(q, p, tbl, lang)

	if p.Text == "" {
		q.Must = append(q.Must, &query.MatchAll{})
		return q
	}
	q.Must = append(q.Must, &query.MultiMatch{
		Query:  p.Text,
		Fields: tbl.PhraseFields(lang),
		Type:   query.MultiMatchPhrase,
		Slop:   slop,
	})
	return q
}
