package search

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/kailas-cloud/serp/internal/domain/search/filter"
	"github.com/kailas-cloud/serp/internal/domain/search/rules"
)

// Parsed is a user query split into free text and inline filters.
type Parsed struct {
	// Text is the residual free text with operator tokens normalized.
	Text    string
	Filters []filter.Filter
	// Language is set when a filter on the language field overrides the search language.
	Language string
	// Indices is set when an index selector overrides the target indices.
	Indices []string
	// GroupByHostname is false when results are already restricted to one host.
	GroupByHostname bool
}

// Predicates returns the filters that map to backend fields.
func (p Parsed) Predicates() []filter.Filter {
	var out []filter.Filter
	for _, f := range p.Filters {
		if !f.IsMeta() {
			out = append(out, f)
		}
	}
	return out
}

// ParseQueryString extracts the configured "keyword:value" filters from text.
//
// Keywords are processed in table order and only their first occurrence is consumed.
// Matching is case-sensitive and not aware of quotes. A "-" directly before the keyword
// negates the filter.
func ParseQueryString(text string, tbl *rules.Table) Parsed {
	p := Parsed{GroupByHostname: true}
	text = strings.TrimSpace(normalizeOperators(text))

	for _, qf := range tbl.QueryFilters {
		var value string
		var negate, ok bool
		text, value, negate, ok = cutFilter(text, qf.Keyword)
		if !ok || value == "" {
			continue
		}
		// Language codes are lower case so the predicate agrees with the language term.
		if qf.Field == tbl.LanguageField {
			value = strings.ToLower(value)
		}
		f, err := filter.New(qf.Keyword, qf.Field, value, negate)
		if err != nil {
			continue
		}
		p.Filters = append(p.Filters, f)

		switch qf.Field {
		case tbl.HostnameField:
			// Excluding one host keeps grouping for the others.
			if !negate {
				p.GroupByHostname = false
			}
		case tbl.LanguageField:
			if !negate {
				p.Language = value
			}
		case filter.IndexSelector:
			p.Indices = splitList(value)
		}
	}

	p.Text = text
	return p
}

// cutFilter removes the first "keyword:value" span from text.
func cutFilter(text, keyword string) (rest, value string, negate, ok bool) {
	pos := strings.Index(text, keyword+":")
	if pos < 0 {
		return text, "", false, false
	}

	start := pos
	if pos > 0 && text[pos-1] == '-' && (pos == 1 || isSpaceBefore(text, pos-1)) {
		start = pos - 1
		negate = true
	}

	i := pos + len(keyword) + 1
	for i < len(text) {
		r, size := utf8.DecodeRuneInString(text[i:])
		if !unicode.IsSpace(r) {
			break
		}
		i += size
	}
	valueStart := i
	for i < len(text) {
		r, size := utf8.DecodeRuneInString(text[i:])
		if unicode.IsSpace(r) {
			break
		}
		i += size
	}
	value = strings.TrimSpace(text[valueStart:i])

	rest = strings.TrimSpace(text[:start] + text[i:])
	return rest, value, negate, true
}

func isSpaceBefore(s string, i int) bool {
	r, _ := utf8.DecodeLastRuneInString(s[:i])
	return unicode.IsSpace(r)
}

// normalizeOperators rewrites standalone " AND " and " OR " outside of double quotes
// into the simple query string operators "+" and "|".
func normalizeOperators(s string) string {
	if !strings.Contains(s, " AND ") && !strings.Contains(s, " OR ") {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	quoted := false
	for i := 0; i < len(s); {
		if s[i] == '"' {
			quoted = !quoted
		}
		if !quoted {
			switch {
			case strings.HasPrefix(s[i:], " AND "):
				b.WriteString(" +")
				i += len(" AND")
				continue
			case strings.HasPrefix(s[i:], " OR "):
				b.WriteString(" |")
				i += len(" OR")
				continue
			}
		}
		b.WriteByte(s[i])
		i++
	}
	return b.String()
}

func splitList(s string) []string {
	var out []string
	for part := range strings.SplitSeq(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
