package memindex

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/blevesearch/bleve/v2"
	bquery "github.com/blevesearch/bleve/v2/search/query"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kailas-cloud/serp/internal/db"
	"github.com/kailas-cloud/serp/internal/domain/search/query"
	"github.com/kailas-cloud/serp/internal/domain/search/rules"
)

func testDocs() []Document {
	return []Document{
		{ID: "d1", Source: map[string]any{
			"lang": "en", "title_lang.en": "Climate change facts",
			"body_lang.en":         "Climate change is a long term shift in temperatures.",
			"warc_target_hostname": "example.com", "warc_target_hostname.raw": "example.com",
			"warc_target_path": "/", "page_rank": 5.0, "spam_rank": 80.0,
		}},
		{ID: "d2", Source: map[string]any{
			"lang": "en", "title_lang.en": "Weather report",
			"body_lang.en":         "Today the climate is mild and the weather sunny.",
			"warc_target_hostname": "news.example.org", "warc_target_hostname.raw": "news.example.org",
			"warc_target_path": "/news/weather", "page_rank": 2.0, "spam_rank": 60.0,
		}},
		{ID: "d3", Source: map[string]any{
			"lang": "de", "title_lang.en": "Klimawandel",
			"body_lang.en":         "climate in german",
			"warc_target_hostname": "beispiel.de", "warc_target_hostname.raw": "beispiel.de",
			"warc_target_path": "/klima", "page_rank": 9.0,
		}},
		{ID: "d4", Source: map[string]any{
			"lang": "en", "title_lang.en": "Cheap climate pills",
			"body_lang.en":         "climate climate climate buy now",
			"warc_target_hostname": "spam.example", "warc_target_hostname.raw": "spam.example",
			"warc_target_path": "/spam/page", "page_rank": 0.5, "spam_rank": 5.0,
		}},
	}
}

func newTestBackend(t *testing.T) *Backend {
	t.Helper()
	b := New(Config{KeywordFields: []string{"lang", "warc_target_hostname.raw", "warc_target_path"}})
	t.Cleanup(b.Close)
	require.NoError(t, b.Index(context.Background(), "cw12", testDocs()))
	return b
}

func textQuery(text string) *query.Bool {
	return &query.Bool{
		Must: []query.Node{&query.SimpleQueryString{
			Query:           text,
			Fields:          []query.WeightedField{{Name: "title_lang.en", Boost: 2}, {Name: "body_lang.en"}},
			DefaultOperator: query.OperatorAnd,
		}},
		Filter: []query.Node{&query.Term{Field: "lang", Value: "en"}},
	}
}

func hitIDs(hits []db.Hit) []string {
	ids := make([]string, 0, len(hits))
	for _, h := range hits {
		ids = append(ids, h.ID)
	}
	return ids
}

func TestSearch_FilterByLanguage(t *testing.T) {
	b := newTestBackend(t)

	res, err := b.Search(context.Background(), &db.SearchQuery{Query: textQuery("climate"), Size: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(3), res.Total)
	assert.ElementsMatch(t, []string{"d1", "d2", "d4"}, hitIDs(res.Hits))
	for _, h := range res.Hits {
		assert.Equal(t, "cw12", h.Index)
	}
}

func TestSearch_NegatedTerm(t *testing.T) {
	b := newTestBackend(t)
	q := textQuery("climate")
	q.MustNot = []query.Node{&query.Term{Field: "warc_target_hostname.raw", Value: "spam.example"}}

	res, err := b.Search(context.Background(), &db.SearchQuery{Query: q, Size: 10})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"d1", "d2"}, hitIDs(res.Hits))
}

func TestSearch_Pagination(t *testing.T) {
	b := newTestBackend(t)

	res, err := b.Search(context.Background(), &db.SearchQuery{Query: textQuery("climate"), From: 1, Size: 1})
	require.NoError(t, err)
	assert.Equal(t, int64(3), res.Total)
	assert.Len(t, res.Hits, 1)

	res, err = b.Search(context.Background(), &db.SearchQuery{Query: textQuery("climate"), From: 5, Size: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(3), res.Total)
	assert.Empty(t, res.Hits)
}

func TestSearch_RescoreFunctionScore(t *testing.T) {
	b := newTestBackend(t)

	res, err := b.Search(context.Background(), &db.SearchQuery{
		Query: textQuery("climate"),
		Rescore: &query.Rescore{
			Query: &query.FunctionScore{
				Query:       &query.MatchAll{},
				ValueFactor: query.FieldValueFactor{Field: "page_rank", Factor: 1, Modifier: query.ModifierNone, Missing: 1},
			},
			WindowSize:         10,
			RescoreQueryWeight: 1,
			ScoreMode:          query.ScoreTotal,
		},
		Size: 10,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"d1", "d2", "d4"}, hitIDs(res.Hits))
	assert.InDelta(t, res.Hits[0].Score/res.Hits[1].Score, 2.5, 1e-6)
}

func TestSearch_RescoreBoostingPenalty(t *testing.T) {
	b := newTestBackend(t)

	res, err := b.Search(context.Background(), &db.SearchQuery{
		Query: textQuery("climate"),
		Rescore: &query.Rescore{
			Query: &query.Boosting{
				Positive:      &query.MatchAll{},
				Negative:      &query.Regexp{Field: "warc_target_path", Pattern: "/spam/.*"},
				NegativeBoost: 0.2,
			},
			WindowSize:         10,
			RescoreQueryWeight: 1,
			ScoreMode:          query.ScoreTotal,
		},
		Size: 10,
	})
	require.NoError(t, err)
	require.Len(t, res.Hits, 3)
	assert.Equal(t, "d4", res.Hits[2].ID)
	assert.InDelta(t, 0.2, res.Hits[2].Score/res.Hits[0].Score, 1e-6)
}

func TestSearch_HighlightAndSource(t *testing.T) {
	b := newTestBackend(t)

	res, err := b.Search(context.Background(), &db.SearchQuery{
		Query: textQuery("shift"),
		Size:  10,
		Highlight: db.Highlight{
			Fields:  []db.HighlightField{{Name: "body_lang.en", FragmentSize: 200, Fragments: 1}},
			Encoder: db.HighlightEncoderHTML,
		},
		SourceFields: []string{"title_lang.en", "page_rank"},
		Explain:      true,
	})
	require.NoError(t, err)
	require.Len(t, res.Hits, 1)

	h := res.Hits[0]
	assert.Equal(t, "d1", h.ID)
	require.Len(t, h.Highlights["body_lang.en"], 1)
	assert.Contains(t, h.Highlights["body_lang.en"][0], "shift")
	assert.Equal(t, map[string]any{"title_lang.en": "Climate change facts", "page_rank": 5.0}, h.Source)
	assert.NotEmpty(t, h.Explanation)
}

func TestSearch_UnknownIndex(t *testing.T) {
	b := newTestBackend(t)

	_, err := b.Search(context.Background(), &db.SearchQuery{Indices: []string{"nope"}, Query: &query.MatchAll{}, Size: 10})
	require.Error(t, err)
	assert.True(t, errors.Is(err, db.ErrIndexNotFound))
}

func TestLoadNDJSON(t *testing.T) {
	b := New(Config{})
	t.Cleanup(b.Close)

	input := `{"_id":"a","_source":{"lang":"en","body_lang.en":"alpha"}}

{"_id":"b","_source":{"lang":"en","body_lang.en":"beta"}}
`
	n, err := b.LoadNDJSON(context.Background(), "cc1511", strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []string{"cc1511"}, b.Indices())

	_, err = b.LoadNDJSON(context.Background(), "cc1511", strings.NewReader("{broken"))
	assert.ErrorContains(t, err, "line 1")
}

func TestPingAfterClose(t *testing.T) {
	b := New(Config{})
	require.NoError(t, b.Ping(context.Background()))
	b.Close()
	assert.ErrorIs(t, b.Ping(context.Background()), ErrClosed)
	assert.ErrorIs(t, b.CreateIndex("x"), ErrClosed)
}

func TestKeywordFieldsFor(t *testing.T) {
	tbl := &rules.Table{
		LanguageField: "lang",
		HostnameField: "warc_target_hostname.raw",
		QueryFilters: []rules.QueryFilter{
			{Keyword: "site", Field: "warc_target_hostname.raw"},
			{Keyword: "index", Field: "#index"},
		},
		Boosts:    []rules.BoostRule{{Field: "warc_target_path", Pattern: "/?"}},
		Penalties: rules.Penalties{Rules: []rules.PenaltyRule{{Field: "title_lang.%lang%", Pattern: "spam"}}},
		Source:    rules.SourceFields{TargetPath: "warc_target_path", DocumentID: "warc_trec_id"},
	}
	assert.Equal(t, []string{"lang", "warc_target_hostname.raw", "warc_target_path", "warc_trec_id"}, KeywordFieldsFor(tbl))
}

func TestMinimumShouldMatch(t *testing.T) {
	tests := []struct {
		msm     string
		clauses int
		want    int
	}{
		{"", 5, 0},
		{"2", 5, 2},
		{"9", 5, 5},
		{"-1", 5, 4},
		{"30%", 10, 3},
		{"30%", 3, 0},
		{"-25%", 4, 3},
		{"junk", 5, 0},
	}
	for _, tt := range tests {
		t.Run(tt.msm, func(t *testing.T) {
			assert.Equal(t, tt.want, minimumShouldMatch(tt.msm, tt.clauses))
		})
	}
}

func TestSplitSimple(t *testing.T) {
	words, phrases, excluded, or := splitSimple(`+climate "global warming" -hoax | (weather*)`)
	assert.Equal(t, []string{"climate", "weather"}, words)
	assert.Equal(t, []string{"global warming"}, phrases)
	assert.Equal(t, []string{"hoax"}, excluded)
	assert.True(t, or)
}

func TestFuzziness(t *testing.T) {
	assert.Equal(t, 0, fuzziness("AUTO", "ab"))
	assert.Equal(t, 1, fuzziness("AUTO", "clima"))
	assert.Equal(t, 2, fuzziness("AUTO", "climate"))
	assert.Equal(t, 1, fuzziness("1", "climate"))
}

func TestTranslate_BoolClauses(t *testing.T) {
	q := translate(&query.Bool{
		Must:    []query.Node{&query.MatchAll{}},
		Filter:  []query.Node{&query.Term{Field: "lang", Value: "en"}},
		MustNot: []query.Node{&query.Term{Field: "warc_target_hostname.raw", Value: "spam.com"}},
	})

	bq, ok := q.(*bquery.BooleanQuery)
	require.True(t, ok, "got %T", q)

	must, ok := bq.Must.(*bquery.ConjunctionQuery)
	require.True(t, ok, "must is %T", bq.Must)
	assert.Len(t, must.Conjuncts, 2)

	mustNot, ok := bq.MustNot.(*bquery.DisjunctionQuery)
	require.True(t, ok, "must_not is %T", bq.MustNot)
	assert.Len(t, mustNot.Disjuncts, 1)

	assert.Nil(t, bq.Should)
}

func TestNewBoolean_ShouldOnly(t *testing.T) {
	bq := newBoolean(nil, []bquery.Query{bleve.NewTermQuery("a"), bleve.NewTermQuery("b")}, nil)

	assert.Nil(t, bq.Must)
	assert.Nil(t, bq.MustNot)
	should, ok := bq.Should.(*bquery.DisjunctionQuery)
	require.True(t, ok, "should is %T", bq.Should)
	assert.Len(t, should.Disjuncts, 2)
}

func TestSearch_MultiMatchPhrase(t *testing.T) {
	b := newTestBackend(t)
	q := &query.Bool{
		Must: []query.Node{&query.MultiMatch{
			Query:  "climate change",
			Fields: []query.WeightedField{{Name: "title_lang.en", Boost: 20}, {Name: "body_lang.en"}},
			Type:   query.MultiMatchPhrase,
		}},
		Filter: []query.Node{&query.Term{Field: "lang", Value: "en"}},
	}

	res, err := b.Search(context.Background(), &db.SearchQuery{Query: q, Size: 10})
	require.NoError(t, err)
	assert.Equal(t, []string{"d1"}, hitIDs(res.Hits))
}

func TestTranslate_MultiMatch(t *testing.T) {
	dq, ok := translate(&query.MultiMatch{
		Query:  "climate",
		Fields: []query.WeightedField{{Name: "title_lang.en", Boost: 3}, {Name: "body_lang.en"}},
		Type:   query.MultiMatchPhrase,
	}).(*bquery.DisjunctionQuery)
	require.True(t, ok)
	require.Len(t, dq.Disjuncts, 2)
	_, isPhrase := dq.Disjuncts[0].(*bquery.MatchPhraseQuery)
	assert.True(t, isPhrase)

	_, none := translate(&query.MultiMatch{Query: "climate"}).(*bquery.MatchNoneQuery)
	assert.True(t, none, "no fields matches nothing")
}
