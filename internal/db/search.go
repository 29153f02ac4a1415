package db

import "github.com/kailas-cloud/serp/internal/domain/search/query"

// HighlightEncoderHTML escapes fragment text before adding highlight tags.
const HighlightEncoderHTML = "html"

// HighlightField requests highlighted fragments for one field.
type HighlightField struct {
	Name         string `json:"name"`
	FragmentSize int    `json:"fragment_size"`
	Fragments    int    `json:"fragments"`
}

// Highlight selects the fields to highlight and their fragment sizes.
type Highlight struct {
	Fields  []HighlightField `json:"fields"`
	Encoder string           `json:"encoder,omitempty"`
}

// SearchQuery is the input of a two-phase search: a pre-query over the whole
// corpus and an optional rescorer over its top hits.
type SearchQuery struct {
	Indices        []string       `json:"indices"`
	Query          query.Node     `json:"query"`
	Rescore        *query.Rescore `json:"rescore,omitempty"`
	From           int            `json:"from"`
	Size           int            `json:"size"`
	Highlight      Highlight      `json:"highlight"`
	SourceFields   []string       `json:"source_fields,omitempty"`
	Explain        bool           `json:"explain"`
	TerminateAfter int            `json:"terminate_after,omitempty"`
}

// SearchResult is the output of a search.
type SearchResult struct {
	Total int64 `json:"total"`
	Hits  []Hit `json:"hits"`
}

// Hit is a single document hit.
type Hit struct {
	ID     string         `json:"id"`
	Index  string         `json:"index"`
	Score  float64        `json:"score"`
	Source map[string]any `json:"source,omitempty"`
	// Highlights maps a field name to its highlighted fragments.
	Highlights map[string][]string `json:"highlights,omitempty"`
	// Explanation is the indented score explanation text, empty unless requested.
	Explanation string `json:"explanation,omitempty"`
}
