package memindex

import (
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search"
	"github.com/blevesearch/bleve/v2/search/highlight/highlighter/html"

	"github.com/kailas-cloud/serp/internal/db"
	"github.com/kailas-cloud/serp/internal/domain/search/explain"
	"github.com/kailas-cloud/serp/internal/domain/search/query"
)

// candidate is a pre-query hit moving through the rescore phases.
type candidate struct {
	match  *search.DocumentMatch
	source map[string]any
	score  float64
	expl   *explain.Node
}

func (c *candidate) key() string { return docKey(c.match.Index, c.match.ID) }

func docKey(index, id string) string { return index + "\x00" + id }

// Search runs the pre-query, re-ranks the rescore window and returns the requested page.
func (b *Backend) Search(ctx context.Context, q *db.SearchQuery) (*db.SearchResult, error) {
	idx, n, err := b.target(q.Indices)
	if err != nil {
		return nil, &db.Error{Op: db.OpSearch, Err: err}
	}

	window := 0
	if q.Rescore != nil {
		window = q.Rescore.WindowSize
	}
	fetch := max(q.From+q.Size, window)

	req := bleve.NewSearchRequestOptions(translate(q.Query), fetch, 0, q.Explain)
	req.Fields = []string{rawSourceField}
	if len(q.Highlight.Fields) > 0 {
		req.Highlight = bleve.NewHighlightWithStyle(html.Name)
		for _, f := range q.Highlight.Fields {
			req.Highlight.AddField(fieldName(f.Name))
		}
	}
	res, err := idx.SearchInContext(ctx, req)
	if err != nil {
		return nil, &db.Error{Op: db.OpSearch, Err: err}
	}

	cands := make([]*candidate, 0, len(res.Hits))
	for _, m := range res.Hits {
		c := &candidate{match: m, score: m.Score, source: decodeSource(m)}
		if q.Explain && m.Expl != nil {
			c.expl = toNode(m.Expl)
		}
		cands = append(cands, c)
	}

	e := &evaluator{idx: idx, indices: n}
	if !plain(q.Query) {
		scores, err := e.evaluate(ctx, q.Query, cands)
		if err != nil {
			return nil, &db.Error{Op: db.OpSearch, Err: err}
		}
		for _, c := range cands {
			if s, ok := scores[c.key()]; ok {
				c.score = s
			}
		}
		sortByScore(cands)
	}

	if q.Rescore != nil && len(cands) > 0 {
		top := cands[:min(q.Rescore.WindowSize, len(cands))]
		scores, err := e.evaluate(ctx, q.Rescore.Query, top)
		if err != nil {
			return nil, &db.Error{Op: db.OpSearch, Err: err}
		}
		for _, c := range top {
			s, ok := scores[c.key()]
			primary := c.score
			c.score = q.Rescore.Combine(primary, s, ok)
			if c.expl != nil {
				c.expl = &explain.Node{
					Value:       c.score,
					Description: fmt.Sprintf("rescored, score mode [%s]", q.Rescore.ScoreMode),
					Children: []*explain.Node{
						{Value: primary * q.Rescore.QueryWeight, Description: "product of:", Children: []*explain.Node{
							c.expl,
							{Value: q.Rescore.QueryWeight, Description: "primaryWeight"},
						}},
						{Value: s * q.Rescore.RescoreQueryWeight, Description: "product of:", Children: []*explain.Node{
							{Value: s, Description: "rescore query score"},
							{Value: q.Rescore.RescoreQueryWeight, Description: "secondaryWeight"},
						}},
					},
				}
			}
		}
		sortByScore(top)
	}

	out := &db.SearchResult{Total: int64(res.Total)}
	if q.TerminateAfter > 0 {
		out.Total = min(out.Total, int64(q.TerminateAfter))
	}
	if q.From >= len(cands) {
		out.Hits = []db.Hit{}
		return out, nil
	}
	page := cands[q.From:min(q.From+q.Size, len(cands))]
	out.Hits = make([]db.Hit, 0, len(page))
	for _, c := range page {
		h := db.Hit{
			ID:         c.match.ID,
			Index:      c.match.Index,
			Score:      c.score,
			Source:     selectSource(c.source, q.SourceFields),
			Highlights: highlights(c.match.Fragments, q.Highlight.Fields),
		}
		if c.expl != nil {
			h.Explanation = explain.Render([]*explain.Node{c.expl})
		}
		out.Hits = append(out.Hits, h)
	}
	return out, nil
}

func sortByScore(cands []*candidate) {
	slices.SortStableFunc(cands, func(a, b *candidate) int {
		return cmp.Compare(b.score, a.score)
	})
}

// plain reports whether n needs no score adjustment beyond what bleve computes.
func plain(n query.Node) bool {
	switch n.(type) {
	case *query.FunctionScore, *query.Boosting:
		return false
	}
	return true
}

// evaluator scores a fixed set of candidates against a query tree.
type evaluator struct {
	idx     bleve.Index
	indices int
}

// evaluate returns the scores of the candidates matching n, keyed by docKey.
func (e *evaluator) evaluate(ctx context.Context, n query.Node, cands []*candidate) (map[string]float64, error) {
	switch q := n.(type) {
	case *query.FunctionScore:
		scores, err := e.evaluate(ctx, q.Query, cands)
		if err != nil {
			return nil, err
		}
		for _, c := range cands {
			s, ok := scores[c.key()]
			if !ok {
				continue
			}
			v, found := sourceFloat(c.source, q.ValueFactor.Field)
			if !found {
				v = q.ValueFactor.Missing
			}
			scores[c.key()] = s * q.ValueFactor.Apply(v)
		}
		return scores, nil
	case *query.Boosting:
		scores, err := e.evaluate(ctx, q.Positive, cands)
		if err != nil {
			return nil, err
		}
		matched := slices.DeleteFunc(slices.Clone(cands), func(c *candidate) bool {
			_, ok := scores[c.key()]
			return !ok
		})
		negative, err := e.evaluate(ctx, q.Negative, matched)
		if err != nil {
			return nil, err
		}
		for k := range negative {
			scores[k] *= q.NegativeBoost
		}
		return scores, nil
	default:
		return e.search(ctx, n, cands)
	}
}

// search runs n restricted to the candidate documents.
func (e *evaluator) search(ctx context.Context, n query.Node, cands []*candidate) (map[string]float64, error) {
	scores := make(map[string]float64, len(cands))
	if len(cands) == 0 {
		return scores, nil
	}

	want := make(map[string]bool, len(cands))
	ids := make([]string, 0, len(cands))
	for _, c := range cands {
		want[c.key()] = true
		if !slices.Contains(ids, c.match.ID) {
			ids = append(ids, c.match.ID)
		}
	}
	restrict := bleve.NewDocIDQuery(ids)
	restrict.SetBoost(0)

	req := bleve.NewSearchRequestOptions(
		bleve.NewConjunctionQuery(restrict, translate(n)), len(ids)*e.indices, 0, false)
	res, err := e.idx.SearchInContext(ctx, req)
	if err != nil {
		return nil, err
	}
	for _, m := range res.Hits {
		if k := docKey(m.Index, m.ID); want[k] {
			scores[k] = m.Score
		}
	}
	return scores, nil
}

func decodeSource(m *search.DocumentMatch) map[string]any {
	raw, ok := m.Fields[rawSourceField].(string)
	if !ok {
		return nil
	}
	var src map[string]any
	if err := json.Unmarshal([]byte(raw), &src); err != nil {
		return nil
	}
	return src
}

// selectSource keeps the top-level keys that hold one of the requested fields.
func selectSource(src map[string]any, fields []string) map[string]any {
	if len(fields) == 0 || src == nil {
		return src
	}
	out := make(map[string]any, len(fields))
	for k, v := range src {
		for _, f := range fields {
			if f == k || strings.HasPrefix(f, k+".") {
				out[k] = v
				break
			}
		}
	}
	return out
}

func highlights(frags search.FieldFragmentMap, fields []db.HighlightField) map[string][]string {
	if len(frags) == 0 {
		return nil
	}
	out := make(map[string][]string, len(fields))
	for _, f := range fields {
		fr := frags[fieldName(f.Name)]
		if len(fr) == 0 {
			continue
		}
		if f.Fragments > 0 && len(fr) > f.Fragments {
			fr = fr[:f.Fragments]
		}
		out[f.Name] = fr
	}
	return out
}

func toNode(e *search.Explanation) *explain.Node {
	n := &explain.Node{Value: e.Value, Description: strings.Join(strings.Fields(e.Message), " ")}
	for _, c := range e.Children {
		if c != nil {
			n.Children = append(n.Children, toNode(c))
		}
	}
	return n
}

// sourceFloat reads a numeric field by flat key or dotted path.
func sourceFloat(src map[string]any, key string) (float64, bool) {
	if src == nil {
		return 0, false
	}
	v, ok := src[key]
	if !ok {
		head, tail, found := strings.Cut(key, ".")
		child, isMap := src[head].(map[string]any)
		if !found || !isMap {
			return 0, false
		}
		return sourceFloat(child, tail)
	}
	switch t := v.(type) {
	case float64:
		return t, true
	case string:
		f, err := strconv.ParseFloat(t, 64)
		return f, err == nil
	default:
		return 0, false
	}
}
