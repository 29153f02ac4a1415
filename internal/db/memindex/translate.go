package memindex

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/blevesearch/bleve/v2"
	bquery "github.com/blevesearch/bleve/v2/search/query"

	"github.com/kailas-cloud/serp/internal/domain/search/query"
)

// filterBoost keeps filter clauses close to non-scoring.
const filterBoost = 1e-3

type boostable interface {
	SetBoost(b float64)
}

func setBoost(q bquery.Query, boost float64) {
	if boost == 0 || boost == 1 {
		return
	}
	if bq, ok := q.(boostable); ok {
		bq.SetBoost(boost)
	}
}

// translate converts a query tree into a bleve query. Function score and boosting
// nodes translate to their matching part; their score adjustments are applied by
// evaluate.
func translate(n query.Node) bquery.Query {
	switch q := n.(type) {
	case nil:
		return bleve.NewMatchAllQuery()
	case *query.MatchAll:
		m := bleve.NewMatchAllQuery()
		setBoost(m, q.Boost)
		return m
	case *query.Bool:
		return translateBool(q)
	case *query.Term:
		t := bleve.NewTermQuery(q.Value)
		t.SetField(fieldName(q.Field))
		setBoost(t, q.Boost)
		return t
	case *query.Range:
		lo, loInc := q.Bounds.Lower()
		hi, hiInc := q.Bounds.Upper()
		r := bleve.NewNumericRangeInclusiveQuery(lo, hi, &loInc, &hiInc)
		r.SetField(fieldName(q.Field))
		return r
	case *query.Regexp:
		r := bleve.NewRegexpQuery(q.Pattern)
		r.SetField(fieldName(q.Field))
		setBoost(r, q.Boost)
		return r
	case *query.SimpleQueryString:
		return translateSimple(q)
	case *query.MatchPhrase:
		p := bleve.NewMatchPhraseQuery(q.Query)
		p.SetField(fieldName(q.Field))
		setBoost(p, q.Boost)
		return p
	case *query.MultiMatch:
		return translateMultiMatch(q)
	case *query.Fuzzy:
		return translateFuzzy(q)
	case *query.FunctionScore:
		return translate(q.Query)
	case *query.Boosting:
		return translate(q.Positive)
	default:
		return bleve.NewMatchNoneQuery()
	}
}

func translateBool(q *query.Bool) bquery.Query {
	if q.IsEmpty() {
		return bleve.NewMatchAllQuery()
	}

	var must, should, mustNot []bquery.Query
	for _, c := range q.Must {
		must = append(must, translate(c))
	}
	for _, c := range q.Filter {
		f := translate(c)
		setBoost(f, filterBoost)
		must = append(must, f)
	}
	for _, c := range q.Should {
		should = append(should, translate(c))
	}
	for _, c := range q.MustNot {
		mustNot = append(mustNot, translate(c))
	}

	if len(must) == 0 && len(should) == 0 {
		must = append(must, bleve.NewMatchAllQuery())
	}
	bq := newBoolean(must, should, mustNot)
	if len(should) > 0 {
		n := minimumShouldMatch(q.MinimumShouldMatch, len(should))
		if len(must) == 0 && n < 1 {
			n = 1
		}
		bq.SetMinShould(float64(n))
	}
	setBoost(bq, q.Boost)
	return bq
}

// minimumShouldMatch resolves an absolute ("2") or percentage ("30%") value against
// the number of optional clauses. Percentages round down.
func minimumShouldMatch(msm string, clauses int) int {
	msm = strings.TrimSpace(msm)
	if msm == "" {
		return 0
	}
	if pct, ok := strings.CutSuffix(msm, "%"); ok {
		p, err := strconv.Atoi(pct)
		if err != nil {
			return 0
		}
		n := clauses * p / 100
		if p < 0 {
			n = clauses + n
		}
		return max(0, min(n, clauses))
	}
	n, err := strconv.Atoi(msm)
	if err != nil {
		return 0
	}
	if n < 0 {
		n = clauses + n
	}
	return max(0, min(n, clauses))
}

// translateSimple matches the text in every field and keeps documents matching in any
// of them. Quoted parts become phrases and words prefixed with - are excluded.
func translateSimple(q *query.SimpleQueryString) bquery.Query {
	words, phrases, excluded, or := splitSimple(q.Query)
	and := q.DefaultOperator == query.OperatorAnd && !or

	var should, mustNot []bquery.Query
	for _, f := range q.Fields {
		name := fieldName(f.Name)
		var parts []bquery.Query
		if len(words) > 0 {
			m := bleve.NewMatchQuery(strings.Join(words, " "))
			m.SetField(name)
			if and {
				m.SetOperator(bquery.MatchQueryOperatorAnd)
			}
			parts = append(parts, m)
		}
		for _, p := range phrases {
			mp := bleve.NewMatchPhraseQuery(p)
			mp.SetField(name)
			parts = append(parts, mp)
		}
		for _, w := range excluded {
			m := bleve.NewMatchQuery(w)
			m.SetField(name)
			mustNot = append(mustNot, m)
		}
		if len(parts) == 0 {
			continue
		}

		var fq bquery.Query
		if len(parts) == 1 {
			fq = parts[0]
		} else if and {
			fq = bleve.NewConjunctionQuery(parts...)
		} else {
			fq = bleve.NewDisjunctionQuery(parts...)
		}
		setBoost(fq, f.Boost)
		should = append(should, fq)
	}

	var must []bquery.Query
	if len(should) == 0 {
		must = append(must, bleve.NewMatchAllQuery())
	}
	bq := newBoolean(must, should, mustNot)
	if len(should) > 0 {
		bq.SetMinShould(1)
	}
	return bq
}

// splitSimple splits simple query string syntax into words, quoted phrases and
// excluded words. A standalone | switches the query to OR semantics.
func splitSimple(s string) (words, phrases, excluded []string, or bool) {
	for s != "" {
		before, rest, found := strings.Cut(s, `"`)
		for _, tok := range strings.Fields(before) {
			switch {
			case tok == "|":
				or = true
			case strings.HasPrefix(tok, "-"):
				if w := cleanToken(tok[1:]); w != "" {
					excluded = append(excluded, w)
				}
			default:
				if w := cleanToken(tok); w != "" {
					words = append(words, w)
				}
			}
		}
		if !found {
			break
		}
		phrase, after, _ := strings.Cut(rest, `"`)
		if p := strings.TrimSpace(phrase); p != "" {
			phrases = append(phrases, p)
		}
		s = after
	}
	return words, phrases, excluded, or
}

func cleanToken(tok string) string {
	return strings.Trim(tok, "+|()*~")
}

func translateFuzzy(q *query.Fuzzy) bquery.Query {
	words := strings.Fields(strings.ToLower(q.Value))
	if len(words) == 0 {
		return bleve.NewMatchNoneQuery()
	}
	parts := make([]bquery.Query, 0, len(words))
	for _, w := range words {
		f := bleve.NewFuzzyQuery(w)
		f.SetField(fieldName(q.Field))
		f.SetFuzziness(fuzziness(q.Fuzziness, w))
		parts = append(parts, f)
	}
	var out bquery.Query = parts[0]
	if len(parts) > 1 {
		out = bleve.NewDisjunctionQuery(parts...)
	}
	setBoost(out, q.Boost)
	return out
}

// fuzziness resolves AUTO to 0, 1 or 2 edits by term length.
func fuzziness(setting, term string) int {
	if n, err := strconv.Atoi(setting); err == nil {
		return max(0, min(n, 2))
	}
	switch l := utf8.RuneCountInString(term); {
	case l <= 2:
		return 0
	case l <= 5:
		return 1
	default:
		return 2
	}
}

// translateMultiMatch matches the text on any of the fields. Phrase slop has no bleve
// equivalent, so phrases must match exactly.
func translateMultiMatch(q *query.MultiMatch) bquery.Query {
	if len(q.Fields) == 0 {
		return bleve.NewMatchNoneQuery()
	}
	disjuncts := make([]bquery.Query, 0, len(q.Fields))
	for _, f := range q.Fields {
		var fq bquery.FieldableQuery
		if q.Type == query.MultiMatchPhrase {
			fq = bleve.NewMatchPhraseQuery(q.Query)
		} else {
			fq = bleve.NewMatchQuery(q.Query)
		}
		fq.SetField(fieldName(f.Name))
		setBoost(fq, f.Boost)
		disjuncts = append(disjuncts, fq)
	}
	dq := bleve.NewDisjunctionQuery(disjuncts...)
	setBoost(dq, q.Boost)
	return dq
}

// newBoolean builds a boolean query from its clause lists. Empty lists add no clause.
func newBoolean(must, should, mustNot []bquery.Query) *bquery.BooleanQuery {
	bq := bleve.NewBooleanQuery()
	if len(must) > 0 {
		bq.AddMust(must...)
	}
	if len(should) > 0 {
		bq.AddShould(should...)
	}
	if len(mustNot) > 0 {
		bq.AddMustNot(mustNot...)
	}
	return bq
}
