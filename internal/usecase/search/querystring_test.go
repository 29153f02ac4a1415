package search

import (
	"strings"
	"testing"

	"github.com/kailas-cloud/serp/internal/domain/search/rules"
)

func TestParseQueryString_SiteFilter(t *testing.T) {
	tbl := &rules.Table{
		QueryFilters:  []rules.QueryFilter{{Keyword: "site", Field: "target_hostname"}},
		HostnameField: "target_hostname",
	}
	p := ParseQueryString("site:example.com climate change", tbl)

	if p.Text != "climate change" {
		t.Errorf("Text = %q, want %q", p.Text, "climate change")
	}
	if len(p.Filters) != 1 {
		t.Fatalf("len(Filters) = %d, want 1", len(p.Filters))
	}
	f := p.Filters[0]
	if f.Field() != "target_hostname" || f.Value() != "example.com" || f.Negate() {
		t.Errorf("filter = {%s %s %v}", f.Field(), f.Value(), f.Negate())
	}
	if p.GroupByHostname {
		t.Error("GroupByHostname = true after hostname filter")
	}
}

func TestParseQueryString(t *testing.T) {
	tests := []struct {
		name      string
		in        string
		wantText  string
		wantVals  []string
		wantNeg   []bool
		wantGroup bool
		wantLang  string
		wantIdx   []string
	}{
		{
			name:      "no filters",
			in:        "  climate change ",
			wantText:  "climate change",
			wantGroup: true,
		},
		{
			name:      "filter at end",
			in:        "climate change site:example.com",
			wantText:  "climate change",
			wantVals:  []string{"example.com"},
			wantNeg:   []bool{false},
			wantGroup: false,
		},
		{
			name:      "whitespace after colon",
			in:        "site:   example.com climate",
			wantText:  "climate",
			wantVals:  []string{"example.com"},
			wantNeg:   []bool{false},
			wantGroup: false,
		},
		{
			name:      "negated filter",
			in:        "climate -site:spam.com",
			wantText:  "climate",
			wantVals:  []string{"spam.com"},
			wantNeg:   []bool{true},
			wantGroup: true,
		},
		{
			name:      "hyphen inside word is not negation",
			in:        "e-site:x.org",
			wantText:  "e-",
			wantVals:  []string{"x.org"},
			wantNeg:   []bool{false},
			wantGroup: false,
		},
		{
			name:      "empty value dropped",
			in:        "climate site:",
			wantText:  "climate",
			wantGroup: true,
		},
		{
			name:      "only first occurrence",
			in:        "site:a.com site:b.com",
			wantText:  "site:b.com",
			wantVals:  []string{"a.com"},
			wantNeg:   []bool{false},
			wantGroup: false,
		},
		{
			name:      "language override",
			in:        "lang:DE klima",
			wantText:  "klima",
			wantVals:  []string{"de"},
			wantNeg:   []bool{false},
			wantGroup: true,
			wantLang:  "de",
		},
		{
			name:      "index selector",
			in:        "index:cw12,cc1511 climate",
			wantText:  "climate",
			wantVals:  []string{"cw12,cc1511"},
			wantNeg:   []bool{false},
			wantGroup: true,
			wantIdx:   []string{"cw12", "cc1511"},
		},
		{
			name:      "keyword inside quotes still matched",
			in:        `"site:example.com rocks"`,
			wantText:  `" rocks"`,
			wantVals:  []string{`example.com`},
			wantNeg:   []bool{false},
			wantGroup: false,
		},
		{
			name:      "filter only",
			in:        "site:example.com",
			wantText:  "",
			wantVals:  []string{"example.com"},
			wantNeg:   []bool{false},
			wantGroup: false,
		},
	}

	tbl := testTable()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := ParseQueryString(tt.in, tbl)
			if p.Text != tt.wantText {
				t.Errorf("Text = %q, want %q", p.Text, tt.wantText)
			}
			if len(p.Filters) != len(tt.wantVals) {
				t.Fatalf("len(Filters) = %d, want %d", len(p.Filters), len(tt.wantVals))
			}
			for i, f := range p.Filters {
				if f.Value() != tt.wantVals[i] || f.Negate() != tt.wantNeg[i] {
					t.Errorf("filter[%d] = {%q %v}, want {%q %v}", i, f.Value(), f.Negate(), tt.wantVals[i], tt.wantNeg[i])
				}
				if strings.Contains(p.Text, f.Keyword()+":"+f.Value()) {
					t.Errorf("residual %q still contains %s:%s", p.Text, f.Keyword(), f.Value())
				}
			}
			if p.GroupByHostname != tt.wantGroup {
				t.Errorf("GroupByHostname = %v, want %v", p.GroupByHostname, tt.wantGroup)
			}
			if p.Language != tt.wantLang {
				t.Errorf("Language = %q, want %q", p.Language, tt.wantLang)
			}
			if strings.Join(p.Indices, ",") != strings.Join(tt.wantIdx, ",") {
				t.Errorf("Indices = %v, want %v", p.Indices, tt.wantIdx)
			}
		})
	}
}

func TestParsed_Predicates(t *testing.T) {
	p := ParseQueryString("index:cw12 site:example.com climate", testTable())
	if len(p.Filters) != 2 {
		t.Fatalf("len(Filters) = %d, want 2", len(p.Filters))
	}
	preds := p.Predicates()
	if len(preds) != 1 || preds[0].Field() != "warc_target_hostname.raw" {
		t.Errorf("Predicates() = %v", preds)
	}
}

func TestNormalizeOperators(t *testing.T) {
	tests := []struct{ in, want string }{
		{"cats AND dogs", "cats + dogs"},
		{"cats OR dogs", "cats | dogs"},
		{"a AND b OR c", "a + b | c"},
		{"a AND OR b", "a + | b"},
		{`"cats AND dogs" OR birds`, `"cats AND dogs" | birds`},
		{"cats and dogs", "cats and dogs"},
		{"ANDROID OR", "ANDROID OR"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := normalizeOperators(tt.in); got != tt.want {
			t.Errorf("normalizeOperators(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
