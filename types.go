package serp

import (
	"time"

	"github.com/kailas-cloud/serp/internal/domain/search/explain"
	"github.com/kailas-cloud/serp/internal/domain/search/result"
	searchuc "github.com/kailas-cloud/serp/internal/usecase/search"
)

// SearchOptions configures a search. The zero value searches the default indices
// for the first page of DefaultSize results.
type SearchOptions struct {
	Indices  []string
	From     int
	Size     int
	Language string
	Explain  bool
	// Phrase matches the query text as a phrase on the phrase search fields.
	Phrase bool
	// Slop is the phrase slop, limited by search.phrase_search.max_slop.
	Slop int
}

// Document is a document for an in-memory index. Source holds the backend fields,
// e.g. "title_lang.en" or "warc_target_uri".
type Document struct {
	ID     string
	Source map[string]any
}

// Result is a display-ready search hit. Title and Snippet are HTML with the matched
// terms highlighted.
type Result struct {
	ID             string
	DocumentID     string
	Index          string
	Score          float64
	Title          string
	Snippet        string
	TargetHostname string
	TargetPath     string
	TargetURI      string
	PageRank       float64
	SpamRank       float64
	// Grouped is set on the representative hit of a collapsed host group.
	Grouped     bool
	Explanation []*ExplanationNode
}

// ExplanationNode is one entry of a score explanation.
type ExplanationNode struct {
	Value       float64
	Description string
	Children    []*ExplanationNode
}

// Pagination locates a page in the result list.
type Pagination struct {
	CurrentPage int
	LastPage    int
	PageSize    int
	RangeStart  int64
	RangeEnd    int64
}

// Page is one page of search results.
type Page struct {
	Results    []Result
	Total      int64
	Indices    []string
	Language   string
	QueryTime  time.Duration
	Pagination Pagination
}

func fromPage(p *searchuc.Page) *Page {
	out := &Page{
		Results:   make([]Result, len(p.Results)),
		Total:     p.Total,
		Indices:   p.Indices,
		Language:  p.Language,
		QueryTime: p.QueryTime,
		Pagination: Pagination{
			CurrentPage: p.Pagination.CurrentPage,
			LastPage:    p.Pagination.LastPage,
			PageSize:    p.Pagination.PageSize,
			RangeStart:  p.Pagination.RangeStart,
			RangeEnd:    p.Pagination.RangeEnd,
		},
	}
	for i := range p.Results {
		out.Results[i] = fromResult(&p.Results[i])
	}
	return out
}

func fromResult(r *result.Result) Result {
	return Result{
		ID:             r.ID,
		DocumentID:     r.DocumentID,
		Index:          r.Index,
		Score:          r.Score,
		Title:          r.Title,
		Snippet:        r.Snippet,
		TargetHostname: r.TargetHostname,
		TargetPath:     r.TargetPath,
		TargetURI:      r.TargetURI,
		PageRank:       r.PageRank,
		SpamRank:       r.SpamRank,
		Grouped:        r.GroupingSuggested(),
		Explanation:    fromExplanation(r.Explanation),
	}
}

func fromExplanation(nodes []*explain.Node) []*ExplanationNode {
	if len(nodes) == 0 {
		return nil
	}
	out := make([]*ExplanationNode, len(nodes))
	for i, n := range nodes {
		out[i] = &ExplanationNode{
			Value:       n.Value,
			Description: n.Description,
			Children:    fromExplanation(n.Children),
		}
	}
	return out
}
