package query

import (
	"math"
	"testing"
)

func TestParseModifier(t *testing.T) {
	tests := []struct {
		in      string
		want    Modifier
		wantErr bool
	}{
		{"", ModifierNone, false},
		{"log1p", ModifierLog1p, false},
		{" LN2P ", ModifierLn2p, false},
		{"sqrt", ModifierSqrt, false},
		{"cubic", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseModifier(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseModifier(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestFieldValueFactor_Apply(t *testing.T) {
	tests := []struct {
		mod                 Modifier
		factor, value, want float64
	}{
		{ModifierNone, 2, 3, 6},
		{ModifierLog, 1, 100, 2},
		{ModifierLog1p, 1, 9, 1},
		{ModifierLog2p, 1, 8, 1},
		{ModifierLn, 1, math.E, 1},
		{ModifierSquare, 2, 3, 36},
		{ModifierSqrt, 1, 16, 4},
		{ModifierReciprocal, 1, 4, 0.25},
	}
	for _, tt := range tests {
		t.Run(string(tt.mod), func(t *testing.T) {
			f := FieldValueFactor{Field: "page_rank", Factor: tt.factor, Modifier: tt.mod}
			if got := f.Apply(tt.value); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("Apply(%v) = %v, want %v", tt.value, got, tt.want)
			}
		})
	}
}

func TestFlag_String(t *testing.T) {
	if got := (FlagAnd | FlagOr | FlagNot | FlagWhitespace).String(); got != "AND|OR|NOT|WHITESPACE" {
		t.Errorf("String() = %q", got)
	}
	if got := Flag(0).String(); got != "NONE" {
		t.Errorf("String() = %q", got)
	}
	f := FlagPhrase | FlagPrefix
	if !f.Has(FlagPhrase) || f.Has(FlagAnd) {
		t.Errorf("Has() mismatch for %v", f)
	}
}

func TestRescore_Combine(t *testing.T) {
	r := &Rescore{QueryWeight: 0, RescoreQueryWeight: 1, ScoreMode: ScoreTotal}
	if got := r.Combine(5, 2, true); got != 2 {
		t.Errorf("Combine total = %v, want 2", got)
	}
	if got := r.Combine(5, 2, false); got != 0 {
		t.Errorf("Combine unmatched = %v, want 0", got)
	}

	m := &Rescore{QueryWeight: 1, RescoreQueryWeight: 2, ScoreMode: ScoreMultiply}
	if got := m.Combine(3, 2, true); got != 12 {
		t.Errorf("Combine multiply = %v, want 12", got)
	}
	x := &Rescore{QueryWeight: 1, RescoreQueryWeight: 1, ScoreMode: ScoreMax}
	if got := x.Combine(3, 7, true); got != 7 {
		t.Errorf("Combine max = %v, want 7", got)
	}
}

func TestWalk(t *testing.T) {
	tree := &Boosting{
		Positive: &FunctionScore{
			Query: &Bool{
				Must:   []Node{&SimpleQueryString{Query: "q"}},
				Should: []Node{&MatchPhrase{Field: "title", Query: "q"}, &Regexp{Field: "url", Pattern: ".*"}},
			},
		},
		Negative:      &Bool{Should: []Node{&Regexp{Field: "url", Pattern: "spam"}}},
		NegativeBoost: 0.2,
	}

	var count int
	Walk(tree, func(Node) bool {
		count++
		return true
	})
	// boosting, function score, bool, sqs, phrase, regexp, negative bool, regexp
	if count != 8 {
		t.Errorf("visited %d nodes, want 8", count)
	}

	var skipped int
	Walk(tree, func(n Node) bool {
		skipped++
		_, isFS := n.(*FunctionScore)
		return !isFS
	})
	if skipped != 4 {
		t.Errorf("visited %d nodes with pruning, want 4", skipped)
	}
}
