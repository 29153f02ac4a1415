package search

import "github.com/kailas-cloud/serp/internal/domain/search/result"

// GroupByHostname keeps the first result per target hostname and suppresses the rest.
// A kept result is marked when other results under its host were suppressed.
// Results without a hostname are never grouped.
func GroupByHostname(results []result.Result) []result.Result {
	out := make([]result.Result, 0, len(results))
	seen := make(map[string]int, len(results))
	for _, r := range results {
		host := r.TargetHostname
		if host == "" {
			out = append(out, r)
			continue
		}
		if i, ok := seen[host]; ok {
			out[i].SuggestGrouping()
			continue
		}
		seen[host] = len(out)
		out = append(out, r)
	}
	return out
}
