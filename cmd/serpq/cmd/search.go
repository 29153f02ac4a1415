package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/serp/internal/app"
	"github.com/kailas-cloud/serp/internal/domain/search/explain"
	searchuc "github.com/kailas-cloud/serp/internal/usecase/search"
)

// searchOutput is the JSON form of one result page.
type searchOutput struct {
	Total     int64          `json:"total"`
	Indices   []string       `json:"indices"`
	Language  string         `json:"language"`
	QueryTime string         `json:"query_time"`
	Results   []searchResult `json:"results"`
}

type searchResult struct {
	Rank        int             `json:"rank"`
	Score       float64         `json:"score"`
	Index       string          `json:"index"`
	DocumentID  string          `json:"document_id"`
	URI         string          `json:"uri"`
	Title       string          `json:"title"`
	Snippet     string          `json:"snippet"`
	Grouped     bool            `json:"grouped,omitempty"`
	Explanation []*explain.Node `json:"explanation,omitempty"`
}

func newSearchCmd(g *globalOptions) *cobra.Command {
	var (
		q      queryOptions
		format string
	)

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Run a query against the configured backend",
		Long: `Search builds the query like the API server does, executes it on the
configured backend and prints the projected result page.

Examples:
  serpq search "climate change"
  serpq search --format json --explain "climate lang:en"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if format != "text" && format != "json" {
				return fmt.Errorf("unknown format %q (text, json)", format)
			}
			req, err := q.request(args)
			if err != nil {
				return err
			}
			cfg, err := g.loadConfig()
			if err != nil {
				return err
			}
			logger, err := g.newLogger()
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			pipeline, err := app.Build(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer pipeline.Close()

			page, err := pipeline.Search.Search(ctx, &req)
			if err != nil {
				return fmt.Errorf("search: %w", err)
			}
			out := toSearchOutput(page, req.From())
			if format == "json" {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(out)
			}
			return writeSearchText(cmd.OutOrStdout(), out)
		},
	}
	q.register(cmd)
	cmd.Flags().StringVarP(&format, "format", "f", "text", "Output format: text, json")
	return cmd
}

func toSearchOutput(page *searchuc.Page, from int) *searchOutput {
	out := &searchOutput{
		Total:     page.Total,
		Indices:   page.Indices,
		Language:  page.Language,
		QueryTime: page.QueryTime.String(),
		Results:   make([]searchResult, len(page.Results)),
	}
	for i := range page.Results {
		r := &page.Results[i]
		out.Results[i] = searchResult{
			Rank:        from + i + 1,
			Score:       r.Score,
			Index:       r.Index,
			DocumentID:  r.DocumentID,
			URI:         r.TargetURI,
			Title:       r.Title,
			Snippet:     r.Snippet,
			Grouped:     r.GroupingSuggested(),
			Explanation: r.Explanation,
		}
	}
	return out
}

func writeSearchText(w io.Writer, out *searchOutput) error {
	if _, err := fmt.Fprintf(w, "%d results in %v (%s) [%s]\n\n",
		out.Total, out.Indices, out.Language, out.QueryTime); err != nil {
		return err
	}
	for _, r := range out.Results {
		if _, err := fmt.Fprintf(w, "%3d. %s\n     %s\n     %s\n     score=%.4f index=%s id=%s\n",
			r.Rank, r.Title, r.URI, r.Snippet, r.Score, r.Index, r.DocumentID); err != nil {
			return err
		}
		if len(r.Explanation) > 0 {
			if _, err := fmt.Fprint(w, indent(explain.Render(r.Explanation), "     ")); err != nil {
				return err
			}
		}
	}
	return nil
}
