package elastic

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kailas-cloud/serp/internal/db"
	"github.com/kailas-cloud/serp/internal/domain/search/explain"
)

type searchResponse struct {
	Hits struct {
		Total json.RawMessage `json:"total"`
		Hits  []hitResponse   `json:"hits"`
	} `json:"hits"`
}

type hitResponse struct {
	Index       string              `json:"_index"`
	ID          string              `json:"_id"`
	Score       *float64            `json:"_score"`
	Source      map[string]any      `json:"_source"`
	Highlight   map[string][]string `json:"highlight"`
	Explanation *explanation        `json:"_explanation"`
}

type explanation struct {
	Value       float64       `json:"value"`
	Description string        `json:"description"`
	Details     []explanation `json:"details"`
}

type errorResponse struct {
	Error struct {
		Type   string `json:"type"`
		Reason string `json:"reason"`
	} `json:"error"`
}

func parseSearchResponse(raw []byte) (*db.SearchResult, error) {
	var resp searchResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	total, err := parseTotal(resp.Hits.Total)
	if err != nil {
		return nil, err
	}

	out := &db.SearchResult{Total: total, Hits: make([]db.Hit, 0, len(resp.Hits.Hits))}
	for _, h := range resp.Hits.Hits {
		hit := db.Hit{
			ID:         h.ID,
			Index:      h.Index,
			Source:     h.Source,
			Highlights: h.Highlight,
		}
		if h.Score != nil {
			hit.Score = *h.Score
		}
		if h.Explanation != nil {
			hit.Explanation = explain.Render([]*explain.Node{h.Explanation.toNode()})
		}
		out.Hits = append(out.Hits, hit)
	}
	return out, nil
}

// parseTotal accepts both {"value": n, "relation": ...} and a bare number.
func parseTotal(raw json.RawMessage) (int64, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return 0, nil
	}
	var obj struct {
		Value int64 `json:"value"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil {
		return obj.Value, nil
	}
	var n int64
	if err := json.Unmarshal(raw, &n); err != nil {
		return 0, fmt.Errorf("decode hits.total: %w", err)
	}
	return n, nil
}

func (e *explanation) toNode() *explain.Node {
	n := &explain.Node{Value: e.Value, Description: strings.Join(strings.Fields(e.Description), " ")}
	for i := range e.Details {
		n.Children = append(n.Children, e.Details[i].toNode())
	}
	return n
}
