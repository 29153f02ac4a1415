package search

import (
	"encoding/json"
	"html"
	"path"
	"strconv"
	"strings"

	"github.com/kailas-cloud/serp/internal/db"
	"github.com/kailas-cloud/serp/internal/domain/search/explain"
	"github.com/kailas-cloud/serp/internal/domain/search/result"
	"github.com/kailas-cloud/serp/internal/domain/search/rules"
	"github.com/kailas-cloud/serp/internal/textclean"
)

// Projector maps raw backend hits to display-ready results.
type Projector struct {
	TitleLength   int
	SnippetLength int
	// Source holds the localized names of the fields to read.
	Source rules.SourceFields
}

// Project builds a result from a hit.
func (p *Projector) Project(hit *db.Hit) result.Result {
	src := hit.Source
	body := sourceString(src, p.Source.Body)

	title := firstFragment(hit.Highlights, p.Source.Title)
	if title == "" {
		title = html.EscapeString(Truncate(sourceString(src, p.Source.Title), p.TitleLength))
	}

	snippet := firstFragment(hit.Highlights, p.Source.Body)
	if snippet == "" {
		text := strings.TrimSpace(sourceString(src, p.Source.MetaDesc))
		if text == "" {
			text = body
		}
		snippet = html.EscapeString(Truncate(text, p.SnippetLength))
	}

	r := result.Result{
		ID:             hit.ID,
		DocumentID:     sourceString(src, p.Source.DocumentID),
		Score:          hit.Score,
		Index:          hit.Index,
		Title:          textclean.CleanseAll(title, true),
		Snippet:        textclean.CleanseAll(snippet, true),
		FullBody:       body,
		TargetHostname: sourceString(src, p.Source.TargetHostname),
		TargetPath:     NormalizePath(sourceString(src, p.Source.TargetPath)),
		TargetURI:      sourceString(src, p.Source.TargetURI),
		PageRank:       sourceFloat(src, p.Source.PageRank),
		SpamRank:       sourceFloat(src, p.Source.SpamRank),
	}
	if hit.Explanation != "" {
		r.Explanation = explain.Parse(hit.Explanation)
	}

	r.SetMeta(result.MetaIndex, r.Index)
	r.SetMeta(result.MetaScore, r.Score)
	r.SetMeta(result.MetaPageRank, r.PageRank)
	r.SetMeta(result.MetaSpamRank, r.SpamRank)
	r.SetMeta(result.MetaHasExplanation, len(r.Explanation) > 0)
	return r
}

// NormalizePath returns p with a single leading slash and no redundant segments.
func NormalizePath(p string) string {
	if strings.TrimSpace(p) == "" {
		return "/"
	}
	return path.Clean("/" + p)
}

func firstFragment(hl map[string][]string, field string) string {
	frags := hl[field]
	if len(frags) == 0 {
		return ""
	}
	return frags[0]
}

// sourceValue looks up a flat key first and falls back to a dotted path
// into nested objects.
func sourceValue(src map[string]any, key string) (any, bool) {
	if key == "" || src == nil {
		return nil, false
	}
	if v, ok := src[key]; ok {
		return v, true
	}
	head, tail, found := strings.Cut(key, ".")
	if !found {
		return nil, false
	}
	child, ok := src[head].(map[string]any)
	if !ok {
		return nil, false
	}
	return sourceValue(child, tail)
}

func sourceString(src map[string]any, key string) string {
	v, ok := sourceValue(src, key)
	if !ok || v == nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	case []any:
		if len(t) > 0 {
			if s, ok := t[0].(string); ok {
				return s
			}
		}
		return ""
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case json.Number:
		return t.String()
	default:
		return ""
	}
}

func sourceFloat(src map[string]any, key string) float64 {
	v, ok := sourceValue(src, key)
	if !ok {
		return 0
	}
	switch t := v.(type) {
	case float64:
		return t
	case float32:
		return float64(t)
	case int:
		return float64(t)
	case int64:
		return float64(t)
	case json.Number:
		f, _ := t.Float64()
		return f
	case string:
		f, _ := strconv.ParseFloat(t, 64)
		return f
	default:
		return 0
	}
}
