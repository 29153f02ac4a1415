package chi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/kailas-cloud/serp/internal/domain"
	"github.com/kailas-cloud/serp/internal/domain/search/explain"
	"github.com/kailas-cloud/serp/internal/domain/search/request"
	"github.com/kailas-cloud/serp/internal/domain/search/result"
	healthuc "github.com/kailas-cloud/serp/internal/usecase/health"
	searchuc "github.com/kailas-cloud/serp/internal/usecase/search"
)

type fakeSearch struct {
	total int64
	err   error
	last  *request.Request
}

func (f *fakeSearch) Search(_ context.Context, req *request.Request) (*searchuc.Page, error) {
	f.last = req
	if f.err != nil {
		return nil, f.err
	}
	res := result.Result{
		ID:             "uuid-1",
		DocumentID:     "clueweb12-0000tw-00-00001",
		Score:          12.5,
		Index:          "cw12",
		Title:          "Hello <em>world</em>",
		Snippet:        "A <em>world</em> of text",
		TargetHostname: "example.com",
		TargetPath:     "/hello",
		TargetURI:      "http://example.com/hello",
		PageRank:       0.3,
		SpamRank:       80,
		Explanation:    []*explain.Node{{Value: 12.5, Description: "sum of:"}},
	}
	res.SuggestGrouping()
	return &searchuc.Page{
		Results:    []result.Result{res},
		Total:      f.total,
		PageSize:   req.Size(),
		Pagination: request.Paginate(req.From(), req.Size(), f.total),
		Indices:    []string{"cw12"},
		Language:   "en",
		QueryTime:  1500 * time.Microsecond,
	}, nil
}

type fakeHealth struct {
	report healthuc.Report
}

func (f fakeHealth) Check(context.Context) healthuc.Report { return f.report }

func newTestRouter(search SearchService, health HealthChecker) http.Handler {
	s := NewServer(search, health, 10, zap.NewNop())
	return HandlerWithOptions(s, ChiServerOptions{
		BaseRouter:       chi.NewRouter(),
		ErrorHandlerFunc: s.HandleParamError,
	})
}

func serve(h http.Handler, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, http.NoBody)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var errResp ErrorResponse
	if err := json.NewDecoder(rr.Body).Decode(&errResp); err != nil {
		t.Fatalf("decode error response: %v", err)
	}
	return errResp
}

func TestSearch_OK(t *testing.T) {
	fs := &fakeSearch{total: 23}
	h := newTestRouter(fs, fakeHealth{})

	rr := serve(h, "/api/v1/_search?q=hello+world&i=cw12,cc1511&from=10&size=5")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rr.Code, rr.Body.String())
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}

	if fs.last.Query() != "hello world" {
		t.Errorf("query = %q", fs.last.Query())
	}
	if got := strings.Join(fs.last.Indices(), ","); got != "cw12,cc1511" {
		t.Errorf("indices = %q", got)
	}
	if fs.last.From() != 10 || fs.last.Size() != 5 {
		t.Errorf("from/size = %d/%d", fs.last.From(), fs.last.Size())
	}
	if fs.last.Explain() {
		t.Error("explain should be off")
	}

	var resp SearchResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Meta.TotalResults != 23 {
		t.Errorf("total_results = %d", resp.Meta.TotalResults)
	}
	if resp.Meta.QueryTime != 0.002 {
		t.Errorf("query_time = %v, want 0.002", resp.Meta.QueryTime)
	}
	if len(resp.Meta.SearchedIndices) != 1 || resp.Meta.SearchedIndices[0] != "cw12" {
		t.Errorf("searched_indices = %v", resp.Meta.SearchedIndices)
	}
	if len(resp.Results) != 1 {
		t.Fatalf("results = %d", len(resp.Results))
	}
	item := resp.Results[0]
	if item.TrecId != "clueweb12-0000tw-00-00001" || item.Link != "http://example.com/hello" {
		t.Errorf("item = %+v", item)
	}
	if !item.GroupingSuggested {
		t.Error("grouping_suggested should be set")
	}
	if item.Explanation != nil {
		t.Error("explanation should be omitted without explain")
	}
}

func TestSearch_Explain(t *testing.T) {
	fs := &fakeSearch{total: 1}
	h := newTestRouter(fs, fakeHealth{})

	rr := serve(h, "/api/v1/_search?q=hello&explain")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if !fs.last.Explain() {
		t.Error("explain flag not forwarded")
	}

	var resp SearchResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Results[0].Explanation) != 1 {
		t.Errorf("explanation = %v", resp.Results[0].Explanation)
	}
}

func TestSearch_BadRequest(t *testing.T) {
	tests := []struct {
		name   string
		target string
	}{
		{"missing query", "/api/v1/_search"},
		{"blank query", "/api/v1/_search?q=+++"},
		{"query too long", "/api/v1/_search?q=" + strings.Repeat("a", request.MaxQueryLength+1)},
		{"unknown mode", "/api/v1/_search?q=hello&mode=fuzzy"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := &fakeSearch{}
			rr := serve(newTestRouter(fs, fakeHealth{}), tt.target)
			if rr.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", rr.Code)
			}
			if e := decodeError(t, rr); e.Code != ErrorResponseCodeBadRequest {
				t.Errorf("code = %q", e.Code)
			}
			if fs.last != nil {
				t.Error("search must not run for invalid requests")
			}
		})
	}
}

func TestSearch_PhraseMode(t *testing.T) {
	tests := []struct {
		name     string
		target   string
		wantMode request.Mode
		wantSlop int
	}{
		{"default", "/api/v1/_search?q=hello+world", request.ModeDefault, 0},
		{"phrase", "/api/v1/_search?q=hello+world&mode=phrase", request.ModePhrase, 0},
		{"phrase with slop", "/api/v1/_search?q=hello+world&mode=phrase&slop=2", request.ModePhrase, 2},
		{"bad slop ignored", "/api/v1/_search?q=hello+world&mode=phrase&slop=x", request.ModePhrase, 0},
		{"slop without phrase", "/api/v1/_search?q=hello+world&slop=2", request.ModeDefault, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := &fakeSearch{total: 1}
			rr := serve(newTestRouter(fs, fakeHealth{}), tt.target)
			if rr.Code != http.StatusOK {
				t.Fatalf("status = %d, body = %s", rr.Code, rr.Body.String())
			}
			if fs.last.Mode() != tt.wantMode || fs.last.Slop() != tt.wantSlop {
				t.Errorf("mode/slop = %q/%d, want %q/%d", fs.last.Mode(), fs.last.Slop(), tt.wantMode, tt.wantSlop)
			}
		})
	}
}

func TestSearch_LenientPagination(t *testing.T) {
	tests := []struct {
		name     string
		target   string
		wantFrom int
		wantSize int
	}{
		{"non-numeric from", "/api/v1/_search?q=x&from=abc&size=5", 0, 5},
		{"non-numeric size", "/api/v1/_search?q=x&from=20&size=ten", 20, request.DefaultSize},
		{"negative from", "/api/v1/_search?q=x&from=-1", 0, request.DefaultSize},
		{"zero size", "/api/v1/_search?q=x&size=0", 0, 1},
		{"oversized", "/api/v1/_search?q=x&size=5000", 0, request.MaxSize},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := &fakeSearch{total: 1}
			rr := serve(newTestRouter(fs, fakeHealth{}), tt.target)
			if rr.Code != http.StatusOK {
				t.Fatalf("status = %d, body = %s", rr.Code, rr.Body.String())
			}
			if fs.last.From() != tt.wantFrom || fs.last.Size() != tt.wantSize {
				t.Errorf("from/size = %d/%d, want %d/%d",
					fs.last.From(), fs.last.Size(), tt.wantFrom, tt.wantSize)
			}
		})
	}
}

func TestSearch_DomainErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   ErrorResponseCode
		wantMsg    string
	}{
		{
			"backend failure",
			fmt.Errorf("%w: connection refused", domain.ErrQueryExecution),
			http.StatusBadGateway, ErrorResponseCodeQueryFailed, domain.ErrQueryExecution.Error(),
		},
		{
			"unknown index",
			fmt.Errorf("%w: %w", domain.ErrQueryExecution, domain.ErrNotFound),
			http.StatusNotFound, ErrorResponseCodeNotFound, domain.ErrNotFound.Error(),
		},
		{
			"broken rules",
			fmt.Errorf("load: %w", domain.ErrInvalidRules),
			http.StatusInternalServerError, ErrorResponseCodeInvalidRules, domain.ErrInvalidRules.Error(),
		},
		{
			"unknown error",
			errors.New("secret internals"),
			http.StatusInternalServerError, ErrorResponseCodeInternalError, "internal error",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := serve(newTestRouter(&fakeSearch{err: tt.err}, fakeHealth{}), "/api/v1/_search?q=x")
			if rr.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rr.Code, tt.wantStatus)
			}
			e := decodeError(t, rr)
			if e.Code != tt.wantCode {
				t.Errorf("code = %q, want %q", e.Code, tt.wantCode)
			}
			if e.Message != tt.wantMsg {
				t.Errorf("message = %q, want %q", e.Message, tt.wantMsg)
			}
		})
	}
}

func TestSerp_Page(t *testing.T) {
	fs := &fakeSearch{total: 23}
	rr := serve(newTestRouter(fs, fakeHealth{}), "/search?q=hello&p=3")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rr.Code, rr.Body.String())
	}
	if fs.last.From() != 20 || fs.last.Size() != 10 {
		t.Errorf("from/size = %d/%d", fs.last.From(), fs.last.Size())
	}

	var resp SerpResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	p := resp.Pagination
	if p.CurrentPage != 3 || p.LastPage != 3 || p.RangeStart != 21 || p.RangeEnd != 23 {
		t.Errorf("pagination = %+v", p)
	}
	if resp.QueryTime != "1.5ms" {
		t.Errorf("query_time = %q", resp.QueryTime)
	}
	if resp.Query != "hello" || resp.Language != "en" {
		t.Errorf("query/lang = %q/%q", resp.Query, resp.Language)
	}
}

func TestSerp_RedirectPastLastPage(t *testing.T) {
	fs := &fakeSearch{total: 23}
	rr := serve(newTestRouter(fs, fakeHealth{}), "/search?q=hello+world&p=5&i=cw12")
	if rr.Code != http.StatusFound {
		t.Fatalf("status = %d, want 302", rr.Code)
	}
	if loc := rr.Header().Get("Location"); loc != "/search?i=cw12&p=3&q=hello+world" {
		t.Errorf("Location = %q", loc)
	}
}

func TestSerp_NoResultsRedirectsToFirstPage(t *testing.T) {
	fs := &fakeSearch{total: 0}
	rr := serve(newTestRouter(fs, fakeHealth{}), "/search?q=nothing&p=2")
	if rr.Code != http.StatusFound {
		t.Fatalf("status = %d, want 302", rr.Code)
	}
	if loc := rr.Header().Get("Location"); loc != "/search?p=1&q=nothing" {
		t.Errorf("Location = %q", loc)
	}
}

func TestSerp_InvalidPageFallsBackToFirst(t *testing.T) {
	for _, p := range []string{"two", "0", "-3"} {
		t.Run(p, func(t *testing.T) {
			fs := &fakeSearch{total: 23}
			rr := serve(newTestRouter(fs, fakeHealth{}), "/search?q=x&p="+p)
			if rr.Code != http.StatusOK {
				t.Fatalf("status = %d, want 200", rr.Code)
			}
			if fs.last.From() != 0 {
				t.Errorf("from = %d, want 0", fs.last.From())
			}
		})
	}
}

func TestHealthCheck(t *testing.T) {
	tests := []struct {
		status healthuc.Status
		want   int
	}{
		{healthuc.Healthy, http.StatusOK},
		{healthuc.Degraded, http.StatusOK},
		{healthuc.Unhealthy, http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			hc := fakeHealth{report: healthuc.Report{
				Status: tt.status,
				Checks: map[string]healthuc.CheckResult{healthuc.ComponentBackend: healthuc.CheckOK},
			}}
			rr := serve(newTestRouter(&fakeSearch{}, hc), "/health")
			if rr.Code != tt.want {
				t.Fatalf("status = %d, want %d", rr.Code, tt.want)
			}
			var resp HealthResponse
			if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if resp.Status != string(tt.status) || resp.Checks["backend"] != "ok" {
				t.Errorf("resp = %+v", resp)
			}
		})
	}
}

func TestMetricsEndpoint(t *testing.T) {
	rr := serve(newTestRouter(&fakeSearch{}, fakeHealth{}), "/metrics")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
}
