package query

import (
	"fmt"
	"math"
	"strings"
)

// Modifier is the transform applied to a field value factor.
type Modifier string

// Field value factor modifiers.
const (
	ModifierNone       Modifier = "none"
	ModifierLog        Modifier = "log"
	ModifierLog1p      Modifier = "log1p"
	ModifierLog2p      Modifier = "log2p"
	ModifierLn         Modifier = "ln"
	ModifierLn1p       Modifier = "ln1p"
	ModifierLn2p       Modifier = "ln2p"
	ModifierSquare     Modifier = "square"
	ModifierSqrt       Modifier = "sqrt"
	ModifierReciprocal Modifier = "reciprocal"
)

// ParseModifier parses a modifier name. An empty name means ModifierNone.
func ParseModifier(s string) (Modifier, error) {
	m := Modifier(strings.ToLower(strings.TrimSpace(s)))
	if m == "" {
		return ModifierNone, nil
	}
	if !m.IsValid() {
		return "", fmt.Errorf("unknown field value factor modifier %q", s)
	}
	return m, nil
}

// IsValid checks if the modifier is one of the supported values.
func (m Modifier) IsValid() bool {
	switch m {
	case ModifierNone, ModifierLog, ModifierLog1p, ModifierLog2p, ModifierLn, ModifierLn1p,
		ModifierLn2p, ModifierSquare, ModifierSqrt, ModifierReciprocal:
		return true
	}
	return false
}

// Apply computes modifier(factor * value).
func (f FieldValueFactor) Apply(value float64) float64 {
	v := value * f.Factor
	switch f.Modifier {
	case ModifierLog:
		return math.Log10(v)
	case ModifierLog1p:
		return math.Log10(v + 1)
	case ModifierLog2p:
		return math.Log10(v + 2)
	case ModifierLn:
		return math.Log(v)
	case ModifierLn1p:
		return math.Log1p(v)
	case ModifierLn2p:
		return math.Log(v + 2)
	case ModifierSquare:
		return v * v
	case ModifierSqrt:
		return math.Sqrt(v)
	case ModifierReciprocal:
		return 1 / v
	default:
		return v
	}
}

// Flag enables a simple query string operator.
type Flag uint16

// Simple query string flags.
const (
	FlagAnd Flag = 1 << iota
	FlagOr
	FlagNot
	FlagPhrase
	FlagPrefix
	FlagWhitespace
)

var flagNames = []struct {
	flag Flag
	name string
}{
	{FlagAnd, "AND"},
	{FlagOr, "OR"},
	{FlagNot, "NOT"},
	{FlagPhrase, "PHRASE"},
	{FlagPrefix, "PREFIX"},
	{FlagWhitespace, "WHITESPACE"},
}

// Has reports whether all bits of o are set.
func (f Flag) Has(o Flag) bool { return f&o == o }

// String returns the flags joined by "|", e.g. "AND|OR|NOT".
func (f Flag) String() string {
	var parts []string
	for _, fn := range flagNames {
		if f.Has(fn.flag) {
			parts = append(parts, fn.name)
		}
	}
	if len(parts) == 0 {
		return "NONE"
	}
	return strings.Join(parts, "|")
}
