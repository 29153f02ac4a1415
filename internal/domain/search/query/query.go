// Package query defines the backend-neutral query tree built by the search use case.
//
// Nodes are plain values. Backend drivers translate the tree into their own request format
// with a type switch over the concrete node types.
package query

import "github.com/kailas-cloud/serp/internal/domain/search/filter"

// Node is a query tree node. The set of implementations is closed.
type Node interface {
	node()
}

// Bool combines clauses with boolean semantics. Filter and MustNot clauses do not score.
type Bool struct {
	Must               []Node
	Should             []Node
	Filter             []Node
	MustNot            []Node
	MinimumShouldMatch string
	Boost              float64
}

// IsEmpty reports whether the query has no clauses.
func (b *Bool) IsEmpty() bool {
	return len(b.Must) == 0 && len(b.Should) == 0 && len(b.Filter) == 0 && len(b.MustNot) == 0
}

// MatchAll matches every document with a constant score.
type MatchAll struct {
	Boost float64
}

// Term matches an exact, non-analyzed value.
type Term struct {
	Field string
	Value string
	Boost float64
}

// Range matches numeric values within bounds.
type Range struct {
	Field  string
	Bounds filter.Range
}

// Regexp matches terms against a regular expression.
type Regexp struct {
	Field   string
	Pattern string
	Boost   float64
}

// WeightedField is a field name with a per-field boost.
type WeightedField struct {
	Name  string
	Boost float64
}

// SimpleQueryString parses user text with a restricted operator syntax
// (+ for AND, | for OR, - for NOT, quotes for phrases, * for prefixes).
type SimpleQueryString struct {
	Query              string
	Fields             []WeightedField
	DefaultOperator    Operator
	Flags              Flag
	MinimumShouldMatch string
}

// MatchPhrase matches terms in order, allowing Slop positions between them.
type MatchPhrase struct {
	Field string
	Query string
	Slop  int
	Boost float64
}

// MultiMatchType selects how a multi-field match combines its fields.
type MultiMatchType string

const (
	// MultiMatchBestFields scores by the best matching field.
	MultiMatchBestFields MultiMatchType = "best_fields"
	// MultiMatchPhrase runs a phrase match on every field and keeps the best.
	MultiMatchPhrase MultiMatchType = "phrase"
)

// MultiMatch matches the query text against several weighted fields.
// Slop only applies to the phrase type.
type MultiMatch struct {
	Query  string
	Fields []WeightedField
	Type   MultiMatchType
	Slop   int
	Boost  float64
}

// FuzzinessAuto scales the edit distance with the term length.
const FuzzinessAuto = "AUTO"

// Fuzzy matches terms within an edit distance.
type Fuzzy struct {
	Field     string
	Value     string
	Fuzziness string
	Boost     float64
}

// FieldValueFactor adjusts a score by a numeric document field.
type FieldValueFactor struct {
	Field    string
	Factor   float64
	Modifier Modifier
	Missing  float64
}

// FunctionScore multiplies the score of Query by a field value factor.
type FunctionScore struct {
	Query       Node
	ValueFactor FieldValueFactor
}

// Boosting keeps documents matching Negative but multiplies their score by NegativeBoost.
type Boosting struct {
	Positive      Node
	Negative      Node
	NegativeBoost float64
}

func (*Bool) node()              {}
func (*MatchAll) node()          {}
func (*Term) node()              {}
func (*Range) node()             {}
func (*Regexp) node()            {}
func (*SimpleQueryString) node() {}
func (*MatchPhrase) node()       {}
func (*MultiMatch) node()        {}
func (*Fuzzy) node()             {}
func (*FunctionScore) node()     {}
func (*Boosting) node()          {}

// Operator is the default boolean operator of a query string.
type Operator string

const (
	// OperatorAnd requires all terms.
	OperatorAnd Operator = "AND"
	// OperatorOr requires any term.
	OperatorOr Operator = "OR"
)

// ScoreMode combines the original and the rescore score.
type ScoreMode string

const (
	// ScoreTotal adds both scores.
	ScoreTotal ScoreMode = "total"
	// ScoreMultiply multiplies both scores.
	ScoreMultiply ScoreMode = "multiply"
	// ScoreMax keeps the larger score.
	ScoreMax ScoreMode = "max"
)

// Rescore re-ranks the top WindowSize hits of the primary query.
type Rescore struct {
	Query              Node
	WindowSize         int
	QueryWeight        float64
	RescoreQueryWeight float64
	ScoreMode          ScoreMode
}

// Combine merges a primary and a rescore score according to the weights and mode.
// matched reports whether the document matched the rescore query at all.
func (r *Rescore) Combine(primary, secondary float64, matched bool) float64 {
	p := primary * r.QueryWeight
	if !matched {
		return p
	}
	s := secondary * r.RescoreQueryWeight
	switch r.ScoreMode {
	case ScoreMultiply:
		return p * s
	case ScoreMax:
		return max(p, s)
	default:
		return p + s
	}
}

// Walk calls fn for n and every node below it in depth-first order.
// Returning false from fn skips the children of that node.
func Walk(n Node, fn func(Node) bool) {
	if n == nil || !fn(n) {
		return
	}
	switch q := n.(type) {
	case *Bool:
		for _, group := range [][]Node{q.Must, q.Should, q.Filter, q.MustNot} {
			for _, c := range group {
				Walk(c, fn)
			}
		}
	case *FunctionScore:
		Walk(q.Query, fn)
	case *Boosting:
		Walk(q.Positive, fn)
		Walk(q.Negative, fn)
	}
}
