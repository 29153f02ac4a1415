package elastic

import (
	"strconv"
	"strings"

	"github.com/kailas-cloud/serp/internal/db"
	"github.com/kailas-cloud/serp/internal/domain/search/query"
)

type object = map[string]any

// BuildRequestBody encodes a two-phase query as an Elasticsearch search body.
func BuildRequestBody(q *db.SearchQuery) map[string]any {
	body := object{
		"query": RenderQuery(q.Query),
		"from":  q.From,
		"size":  q.Size,
	}
	if q.Rescore != nil {
		body["rescore"] = object{
			"window_size": q.Rescore.WindowSize,
			"query": object{
				"rescore_query":        RenderQuery(q.Rescore.Query),
				"query_weight":         q.Rescore.QueryWeight,
				"rescore_query_weight": q.Rescore.RescoreQueryWeight,
				"score_mode":           string(q.Rescore.ScoreMode),
			},
		}
	}
	if len(q.Highlight.Fields) > 0 {
		fields := object{}
		for _, f := range q.Highlight.Fields {
			fields[f.Name] = object{"fragment_size": f.FragmentSize, "number_of_fragments": f.Fragments}
		}
		hl := object{"fields": fields}
		if q.Highlight.Encoder != "" {
			hl["encoder"] = q.Highlight.Encoder
		}
		body["highlight"] = hl
	}
	if len(q.SourceFields) > 0 {
		body["_source"] = q.SourceFields
	}
	if q.Explain {
		body["explain"] = true
	}
	if q.TerminateAfter > 0 {
		body["terminate_after"] = q.TerminateAfter
	}
	return body
}

// RenderQuery encodes a query tree in the Elasticsearch query DSL.
func RenderQuery(n query.Node) map[string]any {
	switch q := n.(type) {
	case nil:
		return object{"match_all": object{}}
	case *query.Bool:
		b := object{}
		putClauses(b, "must", q.Must)
		putClauses(b, "should", q.Should)
		putClauses(b, "filter", q.Filter)
		putClauses(b, "must_not", q.MustNot)
		if q.MinimumShouldMatch != "" {
			b["minimum_should_match"] = q.MinimumShouldMatch
		}
		putBoost(b, q.Boost)
		return object{"bool": b}
	case *query.MatchAll:
		m := object{}
		putBoost(m, q.Boost)
		return object{"match_all": m}
	case *query.Term:
		t := object{"value": q.Value}
		putBoost(t, q.Boost)
		return object{"term": object{q.Field: t}}
	case *query.Range:
		r := object{}
		if v := q.Bounds.GT(); v != nil {
			r["gt"] = *v
		}
		if v := q.Bounds.GTE(); v != nil {
			r["gte"] = *v
		}
		if v := q.Bounds.LT(); v != nil {
			r["lt"] = *v
		}
		if v := q.Bounds.LTE(); v != nil {
			r["lte"] = *v
		}
		return object{"range": object{q.Field: r}}
	case *query.Regexp:
		r := object{"value": q.Pattern}
		putBoost(r, q.Boost)
		return object{"regexp": object{q.Field: r}}
	case *query.SimpleQueryString:
		s := object{
			"query":            q.Query,
			"fields":           weightedFields(q.Fields),
			"default_operator": strings.ToLower(string(q.DefaultOperator)),
			"flags":            q.Flags.String(),
		}
		if q.MinimumShouldMatch != "" {
			s["minimum_should_match"] = q.MinimumShouldMatch
		}
		return object{"simple_query_string": s}
	case *query.MatchPhrase:
		m := object{"query": q.Query, "slop": q.Slop}
		putBoost(m, q.Boost)
		return object{"match_phrase": object{q.Field: m}}
	case *query.MultiMatch:
		m := object{"query": q.Query, "fields": weightedFields(q.Fields)}
		if q.Type != "" {
			m["type"] = string(q.Type)
		}
		if q.Type == query.MultiMatchPhrase {
			m["slop"] = q.Slop
		}
		putBoost(m, q.Boost)
		return object{"multi_match": m}
	case *query.Fuzzy:
		f := object{"value": q.Value}
		if q.Fuzziness != "" {
			f["fuzziness"] = q.Fuzziness
		}
		putBoost(f, q.Boost)
		return object{"fuzzy": object{q.Field: f}}
	case *query.FunctionScore:
		fv := object{
			"field":    q.ValueFactor.Field,
			"factor":   q.ValueFactor.Factor,
			"modifier": string(q.ValueFactor.Modifier),
			"missing":  q.ValueFactor.Missing,
		}
		return object{"function_score": object{
			"query":              RenderQuery(q.Query),
			"field_value_factor": fv,
		}}
	case *query.Boosting:
		return object{"boosting": object{
			"positive":       RenderQuery(q.Positive),
			"negative":       RenderQuery(q.Negative),
			"negative_boost": q.NegativeBoost,
		}}
	default:
		return object{"match_none": object{}}
	}
}

func putClauses(b object, key string, nodes []query.Node) {
	if len(nodes) == 0 {
		return
	}
	out := make([]any, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, RenderQuery(n))
	}
	b[key] = out
}

func putBoost(m object, boost float64) {
	if boost != 0 && boost != 1 {
		m["boost"] = boost
	}
}

// weightedFields renders fields as "name^boost"; a zero or unit boost is omitted.
func weightedFields(fields []query.WeightedField) []string {
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if f.Boost == 0 || f.Boost == 1 {
			out = append(out, f.Name)
			continue
		}
		out = append(out, f.Name+"^"+strconv.FormatFloat(f.Boost, 'f', -1, 64))
	}
	return out
}
