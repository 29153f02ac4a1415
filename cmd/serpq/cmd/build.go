package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/serp/internal/config"
	"github.com/kailas-cloud/serp/internal/db/elastic"
	"github.com/kailas-cloud/serp/internal/domain/search/request"
	searchuc "github.com/kailas-cloud/serp/internal/usecase/search"
)

// queryOptions are the request flags shared by build and search.
type queryOptions struct {
	indices  []string
	language string
	from     int
	size     int
	explain  bool
	phrase   bool
	slop     int
}

func (q *queryOptions) register(cmd *cobra.Command) {
	cmd.Flags().StringSliceVarP(&q.indices, "index", "i", nil, "Indices to search (repeatable or comma separated)")
	cmd.Flags().StringVarP(&q.language, "lang", "l", "", "Search language (default from config)")
	cmd.Flags().IntVar(&q.from, "from", 0, "Result offset")
	cmd.Flags().IntVarP(&q.size, "size", "n", request.DefaultSize, "Results per page")
	cmd.Flags().BoolVar(&q.explain, "explain", false, "Request score explanations")
	cmd.Flags().BoolVar(&q.phrase, "phrase", false, "Match the query as a phrase instead of the two-phase search")
	cmd.Flags().IntVar(&q.slop, "slop", 0, "Phrase slop, limited by search.phrase_search.max_slop")
}

func (q *queryOptions) request(args []string) (request.Request, error) {
	req, err := request.New(strings.Join(args, " "), q.indices, q.from, q.size, q.language, q.explain)
	if err != nil {
		return request.Request{}, fmt.Errorf("invalid request: %w", err)
	}
	if q.phrase {
		req = req.WithPhrase(q.slop)
	}
	return req, nil
}

// builtQuery is the output of the build command.
type builtQuery struct {
	Text     string         `json:"text"`
	Language string         `json:"language"`
	Indices  []string       `json:"indices"`
	Body     map[string]any `json:"body"`
}

func newBuildCmd(g *globalOptions) *cobra.Command {
	var q queryOptions

	cmd := &cobra.Command{
		Use:   "build <query>",
		Short: "Print the backend request built for a query",
		Long: `Build parses the query string with the configured rule table and prints the
Elasticsearch _search body: the pre-query, its rescorer, highlighting and paging.
No backend is contacted.

Examples:
  serpq build "climate change site:example.gov"
  serpq build -l de --size 20 "klimawandel -werbung"
  serpq build --phrase --slop 1 "climate change"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.loadConfig()
			if err != nil {
				return err
			}
			req, err := q.request(args)
			if err != nil {
				return err
			}
			out, err := buildQuery(cfg, &req)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		},
	}
	q.register(cmd)
	return cmd
}

func buildQuery(cfg *config.Config, req *request.Request) (*builtQuery, error) {
	tbl, err := config.LoadRules(cfg.Tree())
	if err != nil {
		return nil, fmt.Errorf("load search rules: %w", err)
	}
	svc := searchuc.New(nil, tbl, searchuc.Options{
		TitleLength:     cfg.Serp.TitleLength,
		SnippetLength:   cfg.Serp.SnippetLength,
		DefaultLanguage: cfg.Serp.DefaultLanguage,
		Indices:         cfg.Backend.Indices,
		DefaultIndices:  cfg.Backend.DefaultIndices,
	})
	plan := svc.Plan(req)
	return &builtQuery{
		Text:     plan.Parsed.Text,
		Language: plan.Language,
		Indices:  plan.Query.Indices,
		Body:     elastic.BuildRequestBody(plan.Query),
	}, nil
}
