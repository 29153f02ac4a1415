package search

import (
	"github.com/kailas-cloud/serp/internal/domain/search/query"
	"github.com/kailas-cloud/serp/internal/domain/search/rules"
)

// rescoreFlags additionally enable phrase and prefix syntax.
const rescoreFlags = preQueryFlags | query.FlagPhrase | query.FlagPrefix

// BuildRescoreQuery assembles the expensive query used to re-rank the top hits.
func BuildRescoreQuery(text string, tbl *rules.Table, lang string) query.Node {
	sqs := &query.SimpleQueryString{
		Query:              text,
		DefaultOperator:    query.OperatorAnd,
		Flags:              rescoreFlags,
		MinimumShouldMatch: rules.DefaultMinShouldMatch,
	}
	main := &query.Bool{}

	for _, f := range tbl.Fields {
		name := rules.Localize(f.Name, lang)
		sqs.Fields = append(sqs.Fields, query.WeightedField{Name: name, Boost: f.Boost})

		if f.Proximity {
			main.Should = append(main.Should, &query.MatchPhrase{
				Field: name,
				Query: text,
				Slop:  f.ProximitySlop,
				Boost: f.ProximityBoost / 2,
			})
		}
		if f.Fuzzy {
			main.Should = append(main.Should, &query.Fuzzy{
				Field:     name,
				Value:     text,
				Fuzziness: query.FuzzinessAuto,
			})
		}
	}
	main.Must = append(main.Must, sqs)

	for _, b := range tbl.Boosts {
		main.Should = append(main.Should, &query.Regexp{
			Field:   rules.Localize(b.Field, lang),
			Pattern: rules.Localize(b.Pattern, lang),
			Boost:   b.Boost,
		})
	}

	var q query.Node = main
	for _, v := range tbl.ValueFactors {
		q = &query.FunctionScore{
			Query: q,
			ValueFactor: query.FieldValueFactor{
				Field:    rules.Localize(v.Field, lang),
				Factor:   v.Factor,
				Modifier: v.Modifier,
				Missing:  v.Missing,
			},
		}
	}

	if len(tbl.Penalties.Rules) > 0 {
		negative := &query.Bool{}
		for _, p := range tbl.Penalties.Rules {
			negative.Should = append(negative.Should, &query.Regexp{
				Field:   rules.Localize(p.Field, lang),
				Pattern: rules.Localize(p.Pattern, lang),
				Boost:   p.Boost,
			})
		}
		q = &query.Boosting{Positive: q, Negative: negative, NegativeBoost: tbl.Penalties.Factor}
	}

	return q
}

// BuildRescorer wraps the rescore query so that it fully replaces the pre-query score
// for the top window hits. It returns nil for empty text.
func BuildRescorer(text string, tbl *rules.Table, lang string, size int) *query.Rescore {
	if text == "" {
		return nil
	}
	return &query.Rescore{
		Query:              BuildRescoreQuery(text, tbl, lang),
		WindowSize:         tbl.WindowFor(size),
		QueryWeight:        0,
		RescoreQueryWeight: 1,
		ScoreMode:          query.ScoreTotal,
	}
}
