// Package rules holds the configured ranking rule table.
//
// A Table is loaded once at startup and shared read-only by all requests. Field names may
// contain the LangPlaceholder, which is replaced with the effective search language.
package rules

import (
	"errors"
	"fmt"
	"strings"

	"github.com/kailas-cloud/serp/internal/domain/search/filter"
	"github.com/kailas-cloud/serp/internal/domain/search/query"
)

// LangPlaceholder is replaced by the search language in field names and patterns.
const LangPlaceholder = "%lang%"

// Defaults used when the configuration omits a value.
const (
	DefaultNodeLimit      = 200000
	DefaultPenaltyFactor  = 0.2
	DefaultBoost          = 2.0
	DefaultProximitySlop  = 1
	DefaultLanguage       = "en"
	DefaultLanguageField  = "lang"
	DefaultHostnameField  = "warc_target_hostname.raw"
	DefaultMinShouldMatch = "30%"
	DefaultMaxSlop        = 2
)

// FieldSpec is a searchable field with its weighting.
type FieldSpec struct {
	Name           string
	Boost          float64
	Proximity      bool
	ProximitySlop  int
	ProximityBoost float64
	Fuzzy          bool
}

// QueryFilter maps an inline keyword ("site") to a backend field.
type QueryFilter struct {
	Keyword string
	Field   string
}

// RangeFilter restricts a numeric field to a range.
type RangeFilter struct {
	Field  string
	Bounds filter.Range
	Negate bool
}

// BoostRule raises the score of documents whose field matches Pattern.
// Match enables the rule in the cheap pre-query with MatchBoost; the rescore query always
// uses Boost.
type BoostRule struct {
	Field      string
	Pattern    string
	Boost      float64
	Match      bool
	MatchBoost float64
}

// PenaltyRule lowers the score of documents whose field matches Pattern.
type PenaltyRule struct {
	Field   string
	Pattern string
	Boost   float64
}

// Penalties is the set of penalty rules sharing one penalty factor.
type Penalties struct {
	Factor float64
	Rules  []PenaltyRule
}

// ValueFactorRule scores documents by a numeric field.
type ValueFactorRule struct {
	Field    string
	Factor   float64
	Modifier query.Modifier
	Missing  float64
}

// SourceFields names the document fields read when projecting hits.
type SourceFields struct {
	Title          string
	Body           string
	MetaDesc       string
	TargetHostname string
	TargetPath     string
	TargetURI      string
	DocumentID     string
	PageRank       string
	SpamRank       string
}

// DefaultSourceFields returns the field layout of the web archive indices.
func DefaultSourceFields() SourceFields {
	return SourceFields{
		Title:          "title_lang." + LangPlaceholder,
		Body:           "body_lang." + LangPlaceholder,
		MetaDesc:       "meta_desc_lang." + LangPlaceholder,
		TargetHostname: "warc_target_hostname",
		TargetPath:     "warc_target_path",
		TargetURI:      "warc_target_uri",
		DocumentID:     "warc_trec_id",
		PageRank:       "page_rank",
		SpamRank:       "spam_rank",
	}
}

// PhraseSearch configures the phrase-only search mode.
type PhraseSearch struct {
	// Fields are matched with a phrase query each. Empty falls back to the main fields.
	Fields    []query.WeightedField
	MaxSlop   int
	NodeLimit int
}

// ClampSlop limits a requested phrase slop to [0, MaxSlop].
func (p PhraseSearch) ClampSlop(slop int) int {
	return min(max(slop, 0), max(p.MaxSlop, 0))
}

// Table is the complete rule set of the simple and the phrase search.
type Table struct {
	Fields        []FieldSpec
	QueryFilters  []QueryFilter
	RangeFilters  []RangeFilter
	Boosts        []BoostRule
	Penalties     Penalties
	ValueFactors  []ValueFactorRule
	RescoreWindow int // 0 = page size
	NodeLimit     int
	LanguageField string
	HostnameField string
	Source        SourceFields
	Phrase        PhraseSearch
}

// Validate checks that the table is usable for building queries.
func (t *Table) Validate() error {
	if len(t.Fields) == 0 {
		return errors.New("at least one main field is required")
	}
	for i, f := range t.Fields {
		if f.Name == "" {
			return fmt.Errorf("main_fields[%d]: name is required", i)
		}
		if f.Proximity && f.ProximitySlop < 0 {
			return fmt.Errorf("main_fields[%d]: proximity_slop must be >= 0", i)
		}
	}
	for i, qf := range t.QueryFilters {
		if qf.Keyword == "" || qf.Field == "" {
			return fmt.Errorf("query_filters[%d]: keyword and field are required", i)
		}
		if strings.ContainsAny(qf.Keyword, " \t\n:") {
			return fmt.Errorf("query_filters[%d]: keyword %q contains whitespace or colon", i, qf.Keyword)
		}
	}
	for i, r := range t.RangeFilters {
		if r.Field == "" {
			return fmt.Errorf("range_filters[%d]: name is required", i)
		}
	}
	for i, b := range t.Boosts {
		if b.Field == "" || b.Pattern == "" {
			return fmt.Errorf("boosts[%d]: name and value are required", i)
		}
	}
	if len(t.Penalties.Rules) > 0 && (t.Penalties.Factor < 0 || t.Penalties.Factor > 1) {
		return fmt.Errorf("penalties.penalty_factor must be between 0 and 1, got %v", t.Penalties.Factor)
	}
	for i, p := range t.Penalties.Rules {
		if p.Field == "" || p.Pattern == "" {
			return fmt.Errorf("penalties.fields[%d]: name and value are required", i)
		}
	}
	for i, v := range t.ValueFactors {
		if v.Field == "" {
			return fmt.Errorf("field_value_factors[%d]: name is required", i)
		}
		if !v.Modifier.IsValid() {
			return fmt.Errorf("field_value_factors[%d]: invalid modifier %q", i, v.Modifier)
		}
	}
	for i, f := range t.Phrase.Fields {
		if f.Name == "" {
			return fmt.Errorf("phrase_search.fields[%d]: name is required", i)
		}
	}
	if t.Phrase.MaxSlop < 0 {
		return fmt.Errorf("phrase_search.max_slop must be >= 0, got %d", t.Phrase.MaxSlop)
	}
	if t.RescoreWindow < 0 {
		return fmt.Errorf("rescore_window must be >= 0, got %d", t.RescoreWindow)
	}
	return nil
}

// WindowFor returns the rescore window for a page of the given size.
func (t *Table) WindowFor(size int) int {
	if t.RescoreWindow > 0 {
		return t.RescoreWindow
	}
	return size
}

// PhraseFields returns the localized phrase search fields with their boosts.
func (t *Table) PhraseFields(lang string) []query.WeightedField {
	out := make([]query.WeightedField, 0, max(len(t.Phrase.Fields), len(t.Fields)))
	if len(t.Phrase.Fields) > 0 {
		for _, f := range t.Phrase.Fields {
			out = append(out, query.WeightedField{Name: Localize(f.Name, lang), Boost: f.Boost})
		}
		return out
	}
	for _, f := range t.Fields {
		out = append(out, query.WeightedField{Name: Localize(f.Name, lang), Boost: f.Boost})
	}
	return out
}

// Localize replaces the language placeholder in s.
func Localize(s, lang string) string {
	if !strings.Contains(s, LangPlaceholder) {
		return s
	}
	return strings.ReplaceAll(s, LangPlaceholder, lang)
}

// Localized returns the source field names for lang.
func (s SourceFields) Localized(lang string) SourceFields {
	return SourceFields{
		Title:          Localize(s.Title, lang),
		Body:           Localize(s.Body, lang),
		MetaDesc:       Localize(s.MetaDesc, lang),
		TargetHostname: Localize(s.TargetHostname, lang),
		TargetPath:     Localize(s.TargetPath, lang),
		TargetURI:      Localize(s.TargetURI, lang),
		DocumentID:     Localize(s.DocumentID, lang),
		PageRank:       Localize(s.PageRank, lang),
		SpamRank:       Localize(s.SpamRank, lang),
	}
}
