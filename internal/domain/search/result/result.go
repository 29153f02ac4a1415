package result

import "github.com/kailas-cloud/serp/internal/domain/search/explain"

// Metadata keys set by the projector.
const (
	MetaIndex          = "index"
	MetaScore          = "score"
	MetaPageRank       = "page_rank"
	MetaSpamRank       = "spam_rank"
	MetaHasExplanation = "has_explanation"
)

// Result is a display-ready search hit.
type Result struct {
	ID             string
	DocumentID     string
	Score          float64
	Index          string
	Title          string
	Snippet        string
	FullBody       string
	TargetHostname string
	TargetPath     string
	TargetURI      string
	PageRank       float64
	SpamRank       float64
	Explanation    []*explain.Node

	groupingSuggested bool
	meta              map[string]any
}

// GroupingSuggested reports whether more results from the same host were collapsed.
func (r *Result) GroupingSuggested() bool { return r.groupingSuggested }

// SuggestGrouping marks the result as representative of a host group.
func (r *Result) SuggestGrouping() { r.groupingSuggested = true }

// Meta returns the open metadata map. Never nil.
func (r *Result) Meta() map[string]any {
	if r.meta == nil {
		r.meta = make(map[string]any)
	}
	return r.meta
}

// SetMeta stores a metadata value.
func (r *Result) SetMeta(key string, value any) {
	r.Meta()[key] = value
}
