package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/serp/internal/domain/search/explain"
)

func newExplainCmd() *cobra.Command {
	var render bool

	cmd := &cobra.Command{
		Use:   "explain",
		Short: "Parse a score explanation read from stdin",
		Long: `Explain reads a backend score explanation in its indented text form from
stdin and prints it as a JSON tree. With --render the tree is printed back
as normalized text.

Example:
  pbpaste | serpq explain`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			data, err := io.ReadAll(cmd.InOrStdin())
			if err != nil {
				return fmt.Errorf("read explanation: %w", err)
			}
			nodes := explain.Parse(string(data))
			if len(nodes) == 0 {
				return fmt.Errorf("no explanation entries found")
			}
			if render {
				_, err := fmt.Fprint(cmd.OutOrStdout(), explain.Render(nodes))
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(nodes)
		},
	}
	cmd.Flags().BoolVar(&render, "render", false, "Print normalized text instead of JSON")
	return cmd
}

func indent(s, prefix string) string {
	lines := strings.SplitAfter(s, "\n")
	var b strings.Builder
	for _, l := range lines {
		if l == "" {
			continue
		}
		b.WriteString(prefix)
		b.WriteString(l)
	}
	return b.String()
}
