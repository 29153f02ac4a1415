package search

import (
	"github.com/kailas-cloud/serp/internal/domain/search/query"
	"github.com/kailas-cloud/serp/internal/domain/search/rules"
)

// preQueryFlags are the simple query string operators of the cheap first pass.
const preQueryFlags = query.FlagAnd | query.FlagOr | query.FlagNot | query.FlagWhitespace

// BuildPreQuery assembles the cheap filtering query executed against the whole corpus.
func BuildPreQuery(p Parsed, tbl *rules.Table, lang string) *query.Bool {
	q := &query.Bool{}
	addFilters(q, p, tbl, lang)

	if p.Text != "" {
		sqs := &query.SimpleQueryString{
			Query:           p.Text,
			DefaultOperator: query.OperatorAnd,
			Flags:           preQueryFlags,
		}
		for _, f := range tbl.Fields {
			sqs.Fields = append(sqs.Fields, query.WeightedField{Name: rules.Localize(f.Name, lang)})
		}
		q.Must = append(q.Must, sqs)
	} else {
		q.Must = append(q.Must, &query.MatchAll{})
	}

	for _, r := range tbl.RangeFilters {
		rq := &query.Range{Field: rules.Localize(r.Field, lang), Bounds: r.Bounds}
		if r.Negate {
			q.MustNot = append(q.MustNot, rq)
		} else {
			q.Filter = append(q.Filter, rq)
		}
	}

	for _, b := range tbl.Boosts {
		if !b.Match {
			continue
		}
		q.Should = append(q.Should, &query.Regexp{
			Field:   rules.Localize(b.Field, lang),
			Pattern: rules.Localize(b.Pattern, lang),
			Boost:   b.MatchBoost,
		})
	}

	return q
}

// addFilters adds the inline filter predicates and the mandatory language term.
func addFilters(q *query.Bool, p Parsed, tbl *rules.Table, lang string) {
	for _, f := range p.Predicates() {
		term := &query.Term{Field: f.Field(), Value: f.Value()}
		if f.Negate() {
			q.MustNot = append(q.MustNot, term)
		} else {
			q.Filter = append(q.Filter, term)
		}
	}
	q.Filter = append(q.Filter, &query.Term{Field: tbl.LanguageField, Value: lang})
}
