package elastic

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/kailas-cloud/serp/internal/db"
	"github.com/kailas-cloud/serp/internal/domain/search/query"
)

func newTestBackend(t *testing.T, handler http.HandlerFunc) *Backend {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	b, err := NewBackend(Config{Addresses: []string{srv.URL}})
	if err != nil {
		t.Fatalf("NewBackend: %v", err)
	}
	return b
}

const searchResponseJSON = `{
  "took": 5,
  "hits": {
    "total": {"value": 23, "relation": "eq"},
    "hits": [
      {
        "_index": "cw12",
        "_id": "doc-1",
        "_score": 3.5,
        "_source": {"title_lang.en": "Climate", "warc_target_hostname": "example.com"},
        "highlight": {"body_lang.en": ["about <em>climate</em>"]},
        "_explanation": {
          "value": 2.5,
          "description": "sum of:",
          "details": [
            {"value": 1.0, "description": "term freq", "details": []},
            {"value": 1.5, "description": "field norm", "details": []}
          ]
        }
      }
    ]
  }
}`

func TestSearch_Success(t *testing.T) {
	var gotPath string
	var gotBody map[string]any
	b := newTestBackend(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &gotBody)
		_, _ = io.WriteString(w, searchResponseJSON)
	})

	res, err := b.Search(context.Background(), &db.SearchQuery{
		Indices: []string{"cw12", "cc1511"},
		Query:   &query.MatchAll{},
		Rescore: &query.Rescore{Query: &query.MatchAll{}, WindowSize: 10, RescoreQueryWeight: 1, ScoreMode: query.ScoreTotal},
		Size:    10,
		Explain: true,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if gotPath != "/cw12,cc1511/_search" {
		t.Errorf("path = %q", gotPath)
	}
	if _, ok := gotBody["rescore"]; !ok {
		t.Errorf("request body missing rescore: %v", gotBody)
	}

	if res.Total != 23 || len(res.Hits) != 1 {
		t.Fatalf("result = %+v", res)
	}
	h := res.Hits[0]
	if h.ID != "doc-1" || h.Index != "cw12" || h.Score != 3.5 {
		t.Errorf("hit = %+v", h)
	}
	if h.Highlights["body_lang.en"][0] != "about <em>climate</em>" {
		t.Errorf("highlights = %v", h.Highlights)
	}
	wantExpl := "2.5 = sum of:\n  1 = term freq\n  1.5 = field norm\n"
	if h.Explanation != wantExpl {
		t.Errorf("explanation = %q, want %q", h.Explanation, wantExpl)
	}
}

func TestSearch_LegacyTotal(t *testing.T) {
	b := newTestBackend(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"hits":{"total":7,"hits":[]}}`)
	})
	res, err := b.Search(context.Background(), &db.SearchQuery{Query: &query.MatchAll{}, Size: 10})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Total != 7 {
		t.Errorf("Total = %d, want 7", res.Total)
	}
}

func TestSearch_IndexNotFound(t *testing.T) {
	b := newTestBackend(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"error":{"type":"index_not_found_exception","reason":"no such index [nope]"},"status":404}`)
	})
	_, err := b.Search(context.Background(), &db.SearchQuery{Indices: []string{"nope"}, Query: &query.MatchAll{}, Size: 10})
	if !errors.Is(err, db.ErrIndexNotFound) {
		t.Errorf("expected ErrIndexNotFound, got %v", err)
	}
	var dbErr *db.Error
	if !errors.As(err, &dbErr) || dbErr.Op != db.OpSearch {
		t.Errorf("expected db.Error with op SEARCH, got %v", err)
	}
}

func TestSearch_ServerError(t *testing.T) {
	b := newTestBackend(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"error":{"type":"parsing_exception","reason":"bad query"},"status":400}`)
	})
	_, err := b.Search(context.Background(), &db.SearchQuery{Query: &query.MatchAll{}, Size: 10})
	if err == nil || !strings.Contains(err.Error(), "parsing_exception") {
		t.Errorf("expected parsing_exception error, got %v", err)
	}
}

func TestPing(t *testing.T) {
	b := newTestBackend(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodHead || r.URL.Path != "/" {
			t.Errorf("unexpected ping request %s %s", r.Method, r.URL.Path)
		}
		w.WriteHeader(http.StatusOK)
	})
	if err := b.Ping(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestNewBackend_Validation(t *testing.T) {
	if _, err := NewBackend(Config{}); err == nil {
		t.Fatal("expected error for missing addresses")
	}
}
