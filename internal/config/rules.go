package config

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/kailas-cloud/serp/internal/domain"
	"github.com/kailas-cloud/serp/internal/domain/search/filter"
	"github.com/kailas-cloud/serp/internal/domain/search/query"
	"github.com/kailas-cloud/serp/internal/domain/search/rules"
)

// ParseRules decodes a YAML search section and builds its rule table.
func ParseRules(data []byte) (*rules.Table, error) {
	var raw map[string]any
	if err := yaml.Unmarshal(expandEnvVars(data), &raw); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidRules, err)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: empty rule table", domain.ErrInvalidRules)
	}
	return LoadRules(Tree(raw))
}

// LoadRules builds the ranking rule table from the search section.
func LoadRules(t Tree) (*rules.Table, error) {
	tbl := &rules.Table{
		RescoreWindow: t.Int("rescore_window", 0),
		NodeLimit:     t.Int("node_limit", rules.DefaultNodeLimit),
		LanguageField: t.String("language_field", rules.DefaultLanguageField),
		HostnameField: t.String("hostname_field", rules.DefaultHostnameField),
		Source:        loadSourceFields(t.Sub("source_fields")),
	}

	for _, f := range t.Array("main_fields") {
		tbl.Fields = append(tbl.Fields, rules.FieldSpec{
			Name:           f.String("name", ""),
			Boost:          f.Float("boost", 1),
			Proximity:      f.Bool("proximity_matching", false),
			ProximitySlop:  f.Int("proximity_slop", rules.DefaultProximitySlop),
			ProximityBoost: f.Float("proximity_boost", 1),
			Fuzzy:          f.Bool("fuzzy_matching", false),
		})
	}

	for _, f := range t.Array("query_filters") {
		tbl.QueryFilters = append(tbl.QueryFilters, rules.QueryFilter{
			Keyword: f.String("keyword", ""),
			Field:   f.String("field", ""),
		})
	}

	for i, f := range t.Array("range_filters") {
		bounds, err := filter.NewRange(f.OptFloat("gt"), f.OptFloat("gte"), f.OptFloat("lt"), f.OptFloat("lte"))
		if err != nil {
			return nil, fmt.Errorf("%w: range_filters[%d]: %w", domain.ErrInvalidRules, i, err)
		}
		tbl.RangeFilters = append(tbl.RangeFilters, rules.RangeFilter{
			Field:  f.String("name", ""),
			Bounds: bounds,
			Negate: f.Bool("negate", false),
		})
	}

	for _, b := range t.Array("boosts") {
		tbl.Boosts = append(tbl.Boosts, rules.BoostRule{
			Field:      b.String("name", ""),
			Pattern:    b.String("value", ""),
			Boost:      b.Float("boost", rules.DefaultBoost),
			Match:      b.Bool("match", false),
			MatchBoost: b.Float("match_boost", 1),
		})
	}

	for i, v := range t.Array("field_value_factors") {
		mod, err := query.ParseModifier(v.String("modifier", ""))
		if err != nil {
			return nil, fmt.Errorf("%w: field_value_factors[%d]: %w", domain.ErrInvalidRules, i, err)
		}
		tbl.ValueFactors = append(tbl.ValueFactors, rules.ValueFactorRule{
			Field:    v.String("name", ""),
			Factor:   v.Float("factor", 1),
			Modifier: mod,
			Missing:  v.Float("missing", 1),
		})
	}

	phrase := t.Sub("phrase_search")
	tbl.Phrase.MaxSlop = phrase.Int("max_slop", rules.DefaultMaxSlop)
	tbl.Phrase.NodeLimit = phrase.Int("node_limit", tbl.NodeLimit)
	for _, f := range phrase.Array("fields") {
		tbl.Phrase.Fields = append(tbl.Phrase.Fields, query.WeightedField{
			Name:  f.String("name", ""),
			Boost: f.Float("boost", 1),
		})
	}

	penalties := t.Sub("penalties")
	tbl.Penalties.Factor = penalties.Float("penalty_factor", rules.DefaultPenaltyFactor)
	for _, p := range penalties.Array("fields") {
		tbl.Penalties.Rules = append(tbl.Penalties.Rules, rules.PenaltyRule{
			Field:   p.String("name", ""),
			Pattern: p.String("value", ""),
			Boost:   p.Float("boost", rules.DefaultBoost),
		})
	}

	if err := tbl.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidRules, err)
	}
	return tbl, nil
}

func loadSourceFields(t Tree) rules.SourceFields {
	def := rules.DefaultSourceFields()
	return rules.SourceFields{
		Title:          t.String("title", def.Title),
		Body:           t.String("body", def.Body),
		MetaDesc:       t.String("meta_desc", def.MetaDesc),
		TargetHostname: t.String("target_hostname", def.TargetHostname),
		TargetPath:     t.String("target_path", def.TargetPath),
		TargetURI:      t.String("target_uri", def.TargetURI),
		DocumentID:     t.String("document_id", def.DocumentID),
		PageRank:       t.String("page_rank", def.PageRank),
		SpamRank:       t.String("spam_rank", def.SpamRank),
	}
}
