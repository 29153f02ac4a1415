// Package explain parses backend score explanations into trees.
//
// The text format has one "<value> = <description>" entry per line. Nesting is encoded by
// indentation in steps of two spaces.
package explain

import (
	"strconv"
	"strings"
)

// Node is one entry of a score explanation.
type Node struct {
	Value       float64 `json:"value"`
	Description string  `json:"description"`
	Children    []*Node `json:"children,omitempty"`
}

// Parse turns explanation text into its root nodes.
// Lines without "=" continue the previous line. Lines before the first entry are ignored.
func Parse(text string) []*Node {
	text = strings.ReplaceAll(text, "\r\n", "\n")

	var lines []string
	for l := range strings.SplitSeq(text, "\n") {
		if strings.TrimSpace(l) == "" {
			continue
		}
		if !strings.Contains(l, "=") {
			if len(lines) > 0 {
				lines[len(lines)-1] += " " + strings.TrimSpace(l)
			}
			continue
		}
		lines = append(lines, l)
	}

	var roots []*Node
	// stack[d] is the last node seen at depth d.
	var stack []*Node
	for _, l := range lines {
		depth, n := parseLine(l)
		if depth > len(stack) {
			depth = len(stack)
		}
		stack = stack[:depth]
		if depth == 0 {
			roots = append(roots, n)
		} else {
			parent := stack[depth-1]
			parent.Children = append(parent.Children, n)
		}
		stack = append(stack, n)
	}
	return roots
}

func parseLine(l string) (int, *Node) {
	trimmed := strings.TrimLeft(l, " ")
	depth := (len(l) - len(trimmed)) / 2

	num, desc, _ := strings.Cut(trimmed, "=")
	n := &Node{Description: strings.TrimSpace(desc)}
	v, err := strconv.ParseFloat(strings.TrimSpace(num), 64)
	if err != nil {
		n.Description = strings.TrimSpace(trimmed)
		return depth, n
	}
	n.Value = v
	return depth, n
}

// Render writes nodes back into the indented text format.
func Render(nodes []*Node) string {
	var b strings.Builder
	var walk func([]*Node, int)
	walk = func(ns []*Node, depth int) {
		for _, n := range ns {
			b.WriteString(strings.Repeat("  ", depth))
			b.WriteString(strconv.FormatFloat(n.Value, 'g', -1, 64))
			b.WriteString(" = ")
			b.WriteString(n.Description)
			b.WriteByte('\n')
			walk(n.Children, depth+1)
		}
	}
	walk(nodes, 0)
	return b.String()
}
