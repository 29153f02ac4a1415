package search

import (
	"context"

	"github.com/kailas-cloud/serp/internal/db"
	"github.com/kailas-cloud/serp/internal/domain/search/filter"
	"github.com/kailas-cloud/serp/internal/domain/search/query"
	"github.com/kailas-cloud/serp/internal/domain/search/rules"
)

// --- Mocks ---

type mockSearcher struct {
	res    *db.SearchResult
	err    error
	calls  int
	lastQ  *db.SearchQuery
	search func(q *db.SearchQuery) (*db.SearchResult, error)
}

func (m *mockSearcher) Search(_ context.Context, q *db.SearchQuery) (*db.SearchResult, error) {
	m.calls++
	m.lastQ = q
	if m.search != nil {
		return m.search(q)
	}
	return m.res, m.err
}

func ptr(f float64) *float64 { return &f }

// testTable mirrors the default web archive rule set.
func testTable() *rules.Table {
	minLen, _ := filter.NewRange(nil, ptr(100), nil, nil)
	return &rules.Table{
		Fields: []rules.FieldSpec{
			{Name: "title_lang.%lang%", Boost: 20, Proximity: true, ProximitySlop: 2, ProximityBoost: 30},
			{Name: "body_lang.%lang%", Boost: 10, Proximity: true, ProximitySlop: 2, ProximityBoost: 20, Fuzzy: true},
			{Name: "warc_target_hostname", Boost: 5},
		},
		QueryFilters: []rules.QueryFilter{
			{Keyword: "lang", Field: "lang"},
			{Keyword: "site", Field: "warc_target_hostname.raw"},
			{Keyword: "index", Field: filter.IndexSelector},
		},
		RangeFilters: []rules.RangeFilter{
			{Field: "body_length", Bounds: minLen},
		},
		Boosts: []rules.BoostRule{
			{Field: "warc_target_path", Pattern: "/?(index\\.[a-z]+)?", Boost: 4, Match: true, MatchBoost: 1.5},
			{Field: "warc_target_hostname", Pattern: "www\\..*", Boost: 2},
		},
		Penalties: rules.Penalties{
			Factor: 0.2,
			Rules:  []rules.PenaltyRule{{Field: "warc_target_path", Pattern: ".*/wp-login.*", Boost: 2}},
		},
		ValueFactors: []rules.ValueFactorRule{
			{Field: "page_rank", Factor: 1, Modifier: query.ModifierLog1p, Missing: 1},
			{Field: "spam_rank", Factor: 1, Modifier: query.ModifierSqrt, Missing: 1},
		},
		NodeLimit:     rules.DefaultNodeLimit,
		LanguageField: rules.DefaultLanguageField,
		HostnameField: rules.DefaultHostnameField,
		Source:        rules.DefaultSourceFields(),
		Phrase: rules.PhraseSearch{
			Fields: []query.WeightedField{
				{Name: "title_lang.%lang%", Boost: 20},
				{Name: "body_lang.%lang%", Boost: 10},
			},
			MaxSlop:   rules.DefaultMaxSlop,
			NodeLimit: 50000,
		},
	}
}
