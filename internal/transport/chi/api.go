package chi

import (
	"fmt"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"

	"github.com/kailas-cloud/serp/internal/domain/search/explain"
)

// ErrorResponseCode is the machine-readable error code of an ErrorResponse.
type ErrorResponseCode string

// Error codes.
const (
	ErrorResponseCodeBadRequest    ErrorResponseCode = "bad_request"
	ErrorResponseCodeUnauthorized  ErrorResponseCode = "unauthorized"
	ErrorResponseCodeNotFound      ErrorResponseCode = "not_found"
	ErrorResponseCodeQuotaExceeded ErrorResponseCode = "quota_exceeded"
	ErrorResponseCodeQueryFailed   ErrorResponseCode = "query_failed"
	ErrorResponseCodeInvalidRules  ErrorResponseCode = "invalid_rules"
	ErrorResponseCodeInternalError ErrorResponseCode = "internal_error"
)

// ErrorResponse is the body of every non-2xx JSON response.
type ErrorResponse struct {
	Code    ErrorResponseCode `json:"code"`
	Message string            `json:"message"`
}

// SearchParams are the query parameters of GET /api/v1/_search.
type SearchParams struct {
	Q       *string
	I       *[]string
	From    *int
	Size    *int
	Explain bool
	// Mode is "default" or "phrase".
	Mode *string
	// Slop is the phrase slop, limited by the configured maximum.
	Slop *int
}

// SerpParams are the query parameters of GET /search.
type SerpParams struct {
	Q       *string
	P       *int
	I       *[]string
	Explain bool
}

// SearchResultItem is one hit of a search response.
type SearchResultItem struct {
	Id                string          `json:"id"`
	TrecId            string          `json:"trec_id"`
	Link              string          `json:"link"`
	Title             string          `json:"title"`
	Snippet           string          `json:"snippet"`
	Index             string          `json:"index"`
	Score             float64         `json:"score"`
	PageRank          float64         `json:"page_rank"`
	SpamRank          float64         `json:"spam_rank"`
	TargetHostname    string          `json:"target_hostname"`
	TargetPath        string          `json:"target_path"`
	GroupingSuggested bool            `json:"grouping_suggested,omitempty"`
	Explanation       []*explain.Node `json:"explanation,omitempty"`
}

// SearchMeta describes how a search was executed.
type SearchMeta struct {
	QueryTime       float64  `json:"query_time"`
	TotalResults    int64    `json:"total_results"`
	SearchedIndices []string `json:"searched_indices"`
}

// SearchResponse is the body of GET /api/v1/_search.
type SearchResponse struct {
	Meta    SearchMeta         `json:"meta"`
	Results []SearchResultItem `json:"results"`
}

// PaginationResponse locates a SERP page in the result list.
type PaginationResponse struct {
	CurrentPage  int   `json:"current_page"`
	LastPage     int   `json:"last_page"`
	PageSize     int   `json:"page_size"`
	TotalResults int64 `json:"total_results"`
	RangeStart   int64 `json:"range_start"`
	RangeEnd     int64 `json:"range_end"`
}

// SerpResponse is the body of GET /search.
type SerpResponse struct {
	Query      string             `json:"query"`
	QueryTime  string             `json:"query_time"`
	Language   string             `json:"language"`
	Indices    []string           `json:"indices"`
	Results    []SearchResultItem `json:"results"`
	Pagination PaginationResponse `json:"pagination"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// ServerInterface is implemented by the HTTP API server.
type ServerInterface interface {
	// (GET /api/v1/_search)
	Search(w http.ResponseWriter, r *http.Request, params SearchParams)
	// (GET /search)
	Serp(w http.ResponseWriter, r *http.Request, params SerpParams)
	// (GET /health)
	HealthCheck(w http.ResponseWriter, r *http.Request)
	// (GET /metrics)
	Metrics(w http.ResponseWriter, r *http.Request)
}

// InvalidParamFormatError reports a query parameter that could not be bound.
type InvalidParamFormatError struct {
	ParamName string
	Err       error
}

func (e *InvalidParamFormatError) Error() string {
	return fmt.Sprintf("invalid format for parameter %s: %s", e.ParamName, e.Err.Error())
}

func (e *InvalidParamFormatError) Unwrap() error { return e.Err }

// ChiServerOptions configures HandlerWithOptions.
type ChiServerOptions struct {
	BaseURL          string
	BaseRouter       chi.Router
	ErrorHandlerFunc func(w http.ResponseWriter, r *http.Request, err error)
}

// HandlerWithOptions mounts the API routes of si on options.BaseRouter.
func HandlerWithOptions(si ServerInterface, options ChiServerOptions) http.Handler {
	r := options.BaseRouter
	if r == nil {
		r = chi.NewRouter()
	}
	if options.ErrorHandlerFunc == nil {
		options.ErrorHandlerFunc = func(w http.ResponseWriter, _ *http.Request, err error) {
			http.Error(w, err.Error(), http.StatusBadRequest)
		}
	}
	wrapper := &serverInterfaceWrapper{handler: si, errorHandlerFunc: options.ErrorHandlerFunc}

	r.Get(options.BaseURL+"/api/v1/_search", wrapper.Search)
	r.Get(options.BaseURL+"/search", wrapper.Serp)
	r.Get(options.BaseURL+"/health", wrapper.HealthCheck)
	r.Get(options.BaseURL+"/metrics", wrapper.Metrics)
	return r
}

type serverInterfaceWrapper struct {
	handler          ServerInterface
	errorHandlerFunc func(w http.ResponseWriter, r *http.Request, err error)
}

func (siw *serverInterfaceWrapper) Search(w http.ResponseWriter, r *http.Request) {
	var params SearchParams
	query := r.URL.Query()

	if err := runtime.BindQueryParameter("form", true, false, "q", query, &params.Q); err != nil {
		siw.errorHandlerFunc(w, r, &InvalidParamFormatError{ParamName: "q", Err: err})
		return
	}
	if err := runtime.BindQueryParameter("form", false, false, "i", query, &params.I); err != nil {
		siw.errorHandlerFunc(w, r, &InvalidParamFormatError{ParamName: "i", Err: err})
		return
	}
	bindOptionalInt("from", query, &params.From)
	bindOptionalInt("size", query, &params.Size)
	// explain is a presence flag, any value enables it
	params.Explain = query.Has("explain")
	if err := runtime.BindQueryParameter("form", true, false, "mode", query, &params.Mode); err != nil {
		siw.errorHandlerFunc(w, r, &InvalidParamFormatError{ParamName: "mode", Err: err})
		return
	}
	bindOptionalInt("slop", query, &params.Slop)

	siw.handler.Search(w, r, params)
}

func (siw *serverInterfaceWrapper) Serp(w http.ResponseWriter, r *http.Request) {
	var params SerpParams
	query := r.URL.Query()

	if err := runtime.BindQueryParameter("form", true, false, "q", query, &params.Q); err != nil {
		siw.errorHandlerFunc(w, r, &InvalidParamFormatError{ParamName: "q", Err: err})
		return
	}
	bindOptionalInt("p", query, &params.P)
	if err := runtime.BindQueryParameter("form", false, false, "i", query, &params.I); err != nil {
		siw.errorHandlerFunc(w, r, &InvalidParamFormatError{ParamName: "i", Err: err})
		return
	}
	params.Explain = query.Has("explain")

	siw.handler.Serp(w, r, params)
}

func (siw *serverInterfaceWrapper) HealthCheck(w http.ResponseWriter, r *http.Request) {
	siw.handler.HealthCheck(w, r)
}

func (siw *serverInterfaceWrapper) Metrics(w http.ResponseWriter, r *http.Request) {
	siw.handler.Metrics(w, r)
}

// bindPagination binds an optional integer parameter. Unparsable values are
// dropped so the handler falls back to its default.
func bindOptionalInt(name string, query url.Values, dest **int) {
	if err := runtime.BindQueryParameter("form", true, false, name, query, dest); err != nil {
		*dest = nil
	}
}
