package chi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/serp/internal/domain"
	"github.com/kailas-cloud/serp/internal/domain/search/request"
	"github.com/kailas-cloud/serp/internal/domain/search/result"
	healthuc "github.com/kailas-cloud/serp/internal/usecase/health"
	searchuc "github.com/kailas-cloud/serp/internal/usecase/search"
)

// SearchService executes validated search requests.
type SearchService interface {
	Search(ctx context.Context, req *request.Request) (*searchuc.Page, error)
}

// HealthChecker reports component health.
type HealthChecker interface {
	Check(ctx context.Context) healthuc.Report
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server implements ServerInterface.
type Server struct {
	search         SearchService
	health         HealthChecker
	resultsPerPage int
	logger         *zap.Logger
	errorHandlers  []errorHandler
}

var _ ServerInterface = (*Server)(nil)

// NewServer creates an HTTP API server. resultsPerPage sets the SERP page size.
func NewServer(search SearchService, health HealthChecker, resultsPerPage int, logger *zap.Logger) *Server {
	if resultsPerPage < 1 {
		resultsPerPage = request.DefaultSize
	}
	s := &Server{
		search:         search,
		health:         health,
		resultsPerPage: resultsPerPage,
		logger:         logger,
	}
	// Order matters: a missing index is reported as a failed query wrapping ErrNotFound.
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrNotFound, http.StatusNotFound, ErrorResponseCodeNotFound),
		sentinelHandler(domain.ErrEmptyQuery, http.StatusBadRequest, ErrorResponseCodeBadRequest),
		sentinelHandler(domain.ErrInvalidRequest, http.StatusBadRequest, ErrorResponseCodeBadRequest),
		sentinelHandler(domain.ErrInvalidRules, http.StatusInternalServerError, ErrorResponseCodeInvalidRules),
		sentinelHandler(domain.ErrQueryExecution, http.StatusBadGateway, ErrorResponseCodeQueryFailed),
	}
	return s
}

// Search handles GET /api/v1/_search.
func (s *Server) Search(w http.ResponseWriter, r *http.Request, params SearchParams) {
	// Out of range numbers are clamped, not rejected.
	from, size := 0, request.DefaultSize
	if params.From != nil {
		from = max(*params.From, 0)
	}
	if params.Size != nil {
		size = max(*params.Size, 1)
	}

	req, ok := s.newRequest(w, params.Q, params.I, from, size, params.Explain)
	if !ok {
		return
	}
	if params.Mode != nil {
		mode, err := request.ParseMode(*params.Mode)
		if err != nil {
			writeError(w, http.StatusBadRequest, ErrorResponseCodeBadRequest, err.Error())
			return
		}
		if mode == request.ModePhrase {
			slop := 0
			if params.Slop != nil {
				slop = *params.Slop
			}
			req = req.WithPhrase(slop)
		}
	}

	page, err := s.search.Search(r.Context(), &req)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, SearchResponse{
		Meta: SearchMeta{
			QueryTime:       math.Round(page.QueryTime.Seconds()*1000) / 1000,
			TotalResults:    page.Total,
			SearchedIndices: nonNil(page.Indices),
		},
		Results: resultsToItems(page.Results, req.Explain()),
	})
}

// Serp handles GET /search. Pages past the last page redirect to the last page,
// pages below 1 are served as page 1.
func (s *Server) Serp(w http.ResponseWriter, r *http.Request, params SerpParams) {
	pageNum := 1
	if params.P != nil {
		pageNum = *params.P
	}
	from, size := request.FromPage(pageNum, s.resultsPerPage)

	req, ok := s.newRequest(w, params.Q, params.I, from, size, params.Explain)
	if !ok {
		return
	}

	page, err := s.search.Search(r.Context(), &req)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	var oor *domain.PageOutOfRangeError
	if err := page.CheckRange(); errors.As(err, &oor) {
		http.Redirect(w, r, serpLocation(r.URL.Path, req.Query(), params.I, oor.LastPage), http.StatusFound)
		return
	}

	p := page.Pagination
	writeJSON(w, http.StatusOK, SerpResponse{
		Query:     req.Query(),
		QueryTime: fmt.Sprintf("%.1fms", float64(page.QueryTime)/float64(time.Millisecond)),
		Language:  page.Language,
		Indices:   nonNil(page.Indices),
		Results:   resultsToItems(page.Results, req.Explain()),
		Pagination: PaginationResponse{
			CurrentPage:  p.CurrentPage,
			LastPage:     p.LastPage,
			PageSize:     p.PageSize,
			TotalResults: p.Total,
			RangeStart:   p.RangeStart,
			RangeEnd:     p.RangeEnd,
		},
	})
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status == healthuc.Unhealthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, HealthResponse{
		Status: string(report.Status),
		Checks: checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

// newRequest validates the parameters and writes a 400 response on failure.
func (s *Server) newRequest(
	w http.ResponseWriter, q *string, indices *[]string, from, size int, explain bool,
) (request.Request, bool) {
	text := ""
	if q != nil {
		text = *q
	}
	if strings.TrimSpace(text) == "" {
		writeError(w, http.StatusBadRequest, ErrorResponseCodeBadRequest, domain.ErrEmptyQuery.Error())
		return request.Request{}, false
	}

	var idx []string
	if indices != nil {
		idx = *indices
	}
	req, err := request.New(text, idx, from, size, "", explain)
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrorResponseCodeBadRequest, err.Error())
		return request.Request{}, false
	}
	return req, true
}

func serpLocation(path, q string, indices *[]string, page int) string {
	v := url.Values{}
	v.Set("q", q)
	if indices != nil && len(*indices) > 0 {
		v.Set("i", strings.Join(*indices, ","))
	}
	v.Set("p", strconv.Itoa(page))
	return path + "?" + v.Encode()
}

func resultsToItems(results []result.Result, withExplain bool) []SearchResultItem {
	items := make([]SearchResultItem, len(results))
	for i := range results {
		items[i] = resultToItem(&results[i], withExplain)
	}
	return items
}

func resultToItem(r *result.Result, withExplain bool) SearchResultItem {
	item := SearchResultItem{
		Id:                r.ID,
		TrecId:            r.DocumentID,
		Link:              r.TargetURI,
		Title:             r.Title,
		Snippet:           r.Snippet,
		Index:             r.Index,
		Score:             r.Score,
		PageRank:          r.PageRank,
		SpamRank:          r.SpamRank,
		TargetHostname:    r.TargetHostname,
		TargetPath:        r.TargetPath,
		GroupingSuggested: r.GroupingSuggested(),
	}
	if withExplain {
		item.Explanation = r.Explanation
	}
	return item
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorResponseCode, message string) {
	writeJSON(w, status, ErrorResponse{
		Code:    code,
		Message: message,
	})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrNotFound,
		domain.ErrEmptyQuery,
		domain.ErrInvalidRequest,
		domain.ErrInvalidRules,
		domain.ErrQueryExecution,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code ErrorResponseCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, ErrorResponseCodeInternalError, "internal error")
}

// HandleParamError writes a 400 response for query parameters that could not be bound.
func (s *Server) HandleParamError(w http.ResponseWriter, _ *http.Request, err error) {
	s.logger.Debug("invalid query parameter", zap.Error(err))
	writeError(w, http.StatusBadRequest, ErrorResponseCodeBadRequest, err.Error())
}
