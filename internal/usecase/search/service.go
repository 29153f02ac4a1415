package search

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/serp/internal/db"
	"github.com/kailas-cloud/serp/internal/domain"
	"github.com/kailas-cloud/serp/internal/domain/search/request"
	"github.com/kailas-cloud/serp/internal/domain/search/result"
	"github.com/kailas-cloud/serp/internal/domain/search/rules"
	"github.com/kailas-cloud/serp/internal/logger"
)

// Projection defaults.
const (
	DefaultTitleLength   = 60
	DefaultSnippetLength = 200
)

// Options configures the search service.
type Options struct {
	TitleLength     int
	SnippetLength   int
	DefaultLanguage string
	// Indices lists the searchable indices. Empty allows any requested index.
	Indices []string
	// DefaultIndices are searched when no valid index was requested.
	DefaultIndices []string
}

// Page is one page of projected results.
type Page struct {
	Results    []result.Result
	Total      int64
	PageSize   int
	Pagination request.Pagination
	Indices    []string
	Language   string
	QueryTime  time.Duration
}

// CheckRange returns a *domain.PageOutOfRangeError when the page lies past the
// last page with results.
func (p *Page) CheckRange() error {
	if !p.Pagination.NeedsRedirect {
		return nil
	}
	return domain.NewPageOutOfRange(p.Pagination.CurrentPage, p.Pagination.CurrentPageCapped)
}

// Plan is a fully built query: two-phase in the default mode, single-pass in phrase mode.
type Plan struct {
	Parsed   Parsed
	Language string
	Mode     request.Mode
	// Slop is the clamped phrase slop. Zero outside phrase mode.
	Slop  int
	Query *db.SearchQuery
}

// Service builds two-phase queries, executes them and projects the hits.
type Service struct {
	backend Searcher
	rules   *rules.Table
	opts    Options
}

// New creates a search service. The rule table is shared read-only.
func New(backend Searcher, tbl *rules.Table, opts Options) *Service {
	if opts.TitleLength <= 0 {
		opts.TitleLength = DefaultTitleLength
	}
	if opts.SnippetLength <= 0 {
		opts.SnippetLength = DefaultSnippetLength
	}
	if opts.DefaultLanguage == "" {
		opts.DefaultLanguage = rules.DefaultLanguage
	}
	return &Service{backend: backend, rules: tbl, opts: opts}
}

// Plan parses the request and builds the backend query without executing it.
func (s *Service) Plan(req *request.Request) *Plan {
	parsed := ParseQueryString(req.Query(), s.rules)

	lang := s.opts.DefaultLanguage
	switch {
	case parsed.Language != "":
		lang = parsed.Language
	case req.Language() != "":
		lang = req.Language()
	}

	requested := req.Indices()
	if parsed.Indices != nil {
		requested = parsed.Indices
	}

	src := s.rules.Source.Localized(lang)
	q := &db.SearchQuery{
		Indices: s.effectiveIndices(requested),
		From:    req.From(),
		Size:    req.Size(),
		Highlight: db.Highlight{
			Fields: []db.HighlightField{
				{Name: src.Title, FragmentSize: s.opts.TitleLength, Fragments: 1},
				{Name: src.Body, FragmentSize: s.opts.SnippetLength, Fragments: 1},
			},
			Encoder: db.HighlightEncoderHTML,
		},
		SourceFields: []string{
			src.Title, src.Body, src.MetaDesc, src.TargetHostname, src.TargetPath,
			src.TargetURI, src.DocumentID, src.PageRank, src.SpamRank,
		},
		Explain: req.Explain(),
	}

	plan := &Plan{Parsed: parsed, Language: lang, Mode: req.Mode(), Query: q}
	switch plan.Mode {
	case request.ModePhrase:
		plan.Slop = s.rules.Phrase.ClampSlop(req.Slop())
		q.Query = BuildPhraseQuery(parsed, s.rules, lang, plan.Slop)
		q.TerminateAfter = s.rules.Phrase.NodeLimit
		if q.TerminateAfter == 0 {
			q.TerminateAfter = s.rules.NodeLimit
		}
	default:
		q.Query = BuildPreQuery(parsed, s.rules, lang)
		q.Rescore = BuildRescorer(parsed.Text, s.rules, lang, req.Size())
		q.TerminateAfter = s.rules.NodeLimit
	}
	return plan
}

// Search executes the request and returns one page of projected results.
func (s *Service) Search(ctx context.Context, req *request.Request) (*Page, error) {
	plan := s.Plan(req)
	log := logger.FromContext(ctx)
	log.Debug("Search query built",
		zap.String("text", plan.Parsed.Text),
		zap.Int("filters", len(plan.Parsed.Filters)),
		zap.String("lang", plan.Language),
		zap.String("mode", string(plan.Mode)),
		zap.Strings("indices", plan.Query.Indices),
		zap.Bool("rescore", plan.Query.Rescore != nil),
	)

	start := time.Now()
	res, err := s.backend.Search(ctx, plan.Query)
	elapsed := time.Since(start)
	if err != nil {
		log.Warn("Search backend failed", zap.Duration("duration", elapsed), zap.Error(err))
		if errors.Is(err, db.ErrIndexNotFound) {
			return nil, fmt.Errorf("%w: %w: %w", domain.ErrQueryExecution, domain.ErrNotFound, err)
		}
		return nil, fmt.Errorf("%w: %w", domain.ErrQueryExecution, err)
	}
	if res == nil {
		res = &db.SearchResult{}
	}

	proj := &Projector{
		TitleLength:   s.opts.TitleLength,
		SnippetLength: s.opts.SnippetLength,
		Source:        s.rules.Source.Localized(plan.Language),
	}
	results := make([]result.Result, 0, len(res.Hits))
	for i := range res.Hits {
		results = append(results, proj.Project(&res.Hits[i]))
	}
	if plan.Parsed.GroupByHostname {
		results = GroupByHostname(results)
	}

	return &Page{
		Results:    results,
		Total:      res.Total,
		PageSize:   req.Size(),
		Pagination: request.Paginate(req.From(), req.Size(), res.Total),
		Indices:    plan.Query.Indices,
		Language:   plan.Language,
		QueryTime:  elapsed,
	}, nil
}

// effectiveIndices keeps the requested indices that are configured. Without a valid
// request the defaults are used.
func (s *Service) effectiveIndices(requested []string) []string {
	if len(s.opts.Indices) == 0 {
		return requested
	}
	var out []string
	for _, idx := range requested {
		if slices.Contains(s.opts.Indices, idx) && !slices.Contains(out, idx) {
			out = append(out, idx)
		}
	}
	if len(out) > 0 {
		return out
	}
	if len(s.opts.DefaultIndices) > 0 {
		return slices.Clone(s.opts.DefaultIndices)
	}
	return slices.Clone(s.opts.Indices)
}
