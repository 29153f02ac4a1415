package filter

import (
	"encoding/json"
	"fmt"
	"strings"
)

// MetaPrefix marks a filter field that is a directive to the frontend rather than a
// backend predicate.
const MetaPrefix = "#"

// IndexSelector is the meta field that selects the target indices.
const IndexSelector = "#index"

// Filter is a structured predicate extracted from an inline "keyword:value" token.
type Filter struct {
	keyword string
	field   string
	value   string
	negate  bool
}

// New validates and creates a Filter.
func New(keyword, field, value string, negate bool) (Filter, error) {
	if keyword == "" {
		return Filter{}, fmt.Errorf("filter keyword is required")
	}
	if field == "" {
		return Filter{}, fmt.Errorf("filter field is required for keyword %q", keyword)
	}
	if value == "" {
		return Filter{}, fmt.Errorf("filter value is required for keyword %q", keyword)
	}
	return Filter{keyword: keyword, field: field, value: value, negate: negate}, nil
}

// Keyword returns the inline keyword, e.g. "site".
func (f Filter) Keyword() string { return f.keyword }

// Field returns the backend field name.
func (f Filter) Field() string { return f.field }

// Value returns the extracted filter value.
func (f Filter) Value() string { return f.value }

// Negate reports whether matching documents are excluded.
func (f Filter) Negate() bool { return f.negate }

// IsMeta reports whether the filter is a frontend directive.
func (f Filter) IsMeta() bool { return strings.HasPrefix(f.field, MetaPrefix) }

// Range is a numeric range with gt/gte/lt/lte boundaries.
type Range struct {
	gt  *float64
	gte *float64
	lt  *float64
	lte *float64
}

// NewRange validates and creates a Range.
// At least one boundary required. gt/gte and lt/lte are mutually exclusive.
func NewRange(gt, gte, lt, lte *float64) (Range, error) {
	if gt == nil && gte == nil && lt == nil && lte == nil {
		return Range{}, fmt.Errorf("at least one range boundary is required")
	}
	if gt != nil && gte != nil {
		return Range{}, fmt.Errorf("cannot specify both gt and gte")
	}
	if lt != nil && lte != nil {
		return Range{}, fmt.Errorf("cannot specify both lt and lte")
	}
	return Range{gt: gt, gte: gte, lt: lt, lte: lte}, nil
}

// GT returns the lower exclusive bound.
func (r Range) GT() *float64 { return r.gt }

// GTE returns the lower inclusive bound.
func (r Range) GTE() *float64 { return r.gte }

// LT returns the upper exclusive bound.
func (r Range) LT() *float64 { return r.lt }

// LTE returns the upper inclusive bound.
func (r Range) LTE() *float64 { return r.lte }

// Lower returns the lower bound and whether it is inclusive. nil when unbounded.
func (r Range) Lower() (*float64, bool) {
	if r.gte != nil {
		return r.gte, true
	}
	return r.gt, false
}

// Upper returns the upper bound and whether it is inclusive. nil when unbounded.
func (r Range) Upper() (*float64, bool) {
	if r.lte != nil {
		return r.lte, true
	}
	return r.lt, false
}

// MarshalJSON encodes the set boundaries.
func (r Range) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		GT  *float64 `json:"gt,omitempty"`
		GTE *float64 `json:"gte,omitempty"`
		LT  *float64 `json:"lt,omitempty"`
		LTE *float64 `json:"lte,omitempty"`
	}{r.gt, r.gte, r.lt, r.lte})
}
