package config

import (
	"fmt"
	"strconv"
	"strings"
)

// Tree is a nested configuration section with typed lookups by dotted path.
// Every accessor falls back to the supplied default when the key is missing or has
// the wrong type.
type Tree map[string]any

// Lookup returns the raw value at path.
func (t Tree) Lookup(path string) (any, bool) {
	var cur any = map[string]any(t)
	for part := range strings.SplitSeq(path, ".") {
		m, ok := asMap(cur)
		if !ok {
			return nil, false
		}
		cur, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// Sub returns the section at path, or an empty tree.
func (t Tree) Sub(path string) Tree {
	v, ok := t.Lookup(path)
	if !ok {
		return Tree{}
	}
	m, ok := asMap(v)
	if !ok {
		return Tree{}
	}
	return Tree(m)
}

// String returns the string at path.
func (t Tree) String(path, def string) string {
	v, ok := t.Lookup(path)
	if !ok || v == nil {
		return def
	}
	switch s := v.(type) {
	case string:
		return s
	case int, int64, float64, bool:
		return fmt.Sprint(s)
	default:
		return def
	}
}

// Int returns the integer at path. Integral floats and numeric strings are accepted.
func (t Tree) Int(path string, def int) int {
	v, ok := t.Lookup(path)
	if !ok {
		return def
	}
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		if n == float64(int(n)) {
			return int(n)
		}
	case string:
		if i, err := strconv.Atoi(strings.TrimSpace(n)); err == nil {
			return i
		}
	}
	return def
}

// Float returns the number at path.
func (t Tree) Float(path string, def float64) float64 {
	if f := t.OptFloat(path); f != nil {
		return *f
	}
	return def
}

// OptFloat returns the number at path, or nil when it is absent.
func (t Tree) OptFloat(path string) *float64 {
	v, ok := t.Lookup(path)
	if !ok {
		return nil
	}
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case int:
		f = float64(n)
	case int64:
		f = float64(n)
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return nil
		}
		f = parsed
	default:
		return nil
	}
	return &f
}

// Bool returns the boolean at path.
func (t Tree) Bool(path string, def bool) bool {
	v, ok := t.Lookup(path)
	if !ok {
		return def
	}
	switch b := v.(type) {
	case bool:
		return b
	case string:
		if parsed, err := strconv.ParseBool(strings.TrimSpace(b)); err == nil {
			return parsed
		}
	}
	return def
}

// Array returns the objects of the list at path. Non-object items are skipped.
func (t Tree) Array(path string) []Tree {
	v, ok := t.Lookup(path)
	if !ok {
		return nil
	}
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]Tree, 0, len(items))
	for _, item := range items {
		if m, ok := asMap(item); ok {
			out = append(out, Tree(m))
		}
	}
	return out
}

// Strings returns the string list at path.
func (t Tree) Strings(path string, def []string) []string {
	v, ok := t.Lookup(path)
	if !ok {
		return def
	}
	items, ok := v.([]any)
	if !ok {
		return def
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func asMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case Tree:
		return m, true
	default:
		return nil, false
	}
}
