// Package textclean removes common text artifacts from titles and snippets.
package textclean

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// CleanseAll runs every cleansing stage in order until the text no longer changes.
// html enables HTML entity handling; the input is then expected to be escaped.
func CleanseAll(s string, html bool) string {
	for {
		next := Whitespace(RepeatedWords(UnclosedBrackets(DoubleHTMLEscape(EncodingErrors(s)), html), html), html)
		if next == s {
			return next
		}
		s = next
	}
}

const westernChars = "àáâãäåæçèéêëìíîïñòóôõöøùúûüýÿœßÀÁÂÃÄÅÆÇÈÉÊËÌÍÎÏÑÒÓÔÕÖØÙÚÛÜÝŒŸ"

// mojibake maps western characters whose UTF-8 bytes were decoded as a single-byte
// Latin encoding back to the original character.
var mojibake = newMojibakeReplacer(charmap.ISO8859_1, charmap.ISO8859_15, charmap.Windows1252)

func newMojibakeReplacer(maps ...*charmap.Charmap) *strings.Replacer {
	seen := make(map[string]bool)
	var pairs []string
	for _, r := range westernChars {
		enc := []byte(string(r))
		for _, m := range maps {
			var b strings.Builder
			for _, c := range enc {
				b.WriteRune(m.DecodeByte(c))
			}
			broken := b.String()
			if seen[broken] || strings.ContainsRune(broken, utf8.RuneError) {
				continue
			}
			seen[broken] = true
			pairs = append(pairs, broken, string(r))
		}
	}
	pairs = append(pairs, string(utf8.RuneError), "")
	return strings.NewReplacer(pairs...)
}

// EncodingErrors repairs mis-decoded western multi-byte characters and strips
// replacement characters.
func EncodingErrors(s string) string {
	if s == "" {
		return s
	}
	return mojibake.Replace(s)
}

var doubleEscape = regexp.MustCompile(`&amp;(\w{1,8});`)

// DoubleHTMLEscape collapses escaped entities such as "&amp;lt;" to "&lt;".
func DoubleHTMLEscape(s string) string {
	for strings.Contains(s, "&amp;") {
		next := doubleEscape.ReplaceAllString(s, "&$1;")
		if next == s {
			break
		}
		s = next
	}
	return s
}

const maxUnclosedTail = 10

// UnclosedBrackets removes a short trailing fragment (at most 10 characters) that
// starts with an opening bracket and is never closed.
func UnclosedBrackets(s string, html bool) string {
	openers, closers := []string{"(", "[", "<"}, []string{")", "]", ">"}
	if html {
		openers[2], closers[2] = "&lt;", "&gt;"
	}

	cut := -1
	for _, o := range openers {
		from := 0
		for {
			i := strings.Index(s[from:], o)
			if i < 0 {
				break
			}
			pos := from + i
			tail := strings.TrimSpace(s[pos+len(o):])
			if utf8.RuneCountInString(tail) <= maxUnclosedTail && !containsAny(tail, closers) {
				if cut < 0 || pos < cut {
					cut = pos
				}
				break
			}
			from = pos + len(o)
		}
	}
	if cut < 0 {
		return s
	}
	return strings.TrimSpace(s[:cut])
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// RepeatedWords collapses runs of three or more identical consecutive tokens into one.
func RepeatedWords(s string, _ bool) string {
	type span struct{ start, end int }
	var tokens []span
	start := -1
	for i, r := range s {
		if unicode.IsSpace(r) {
			if start >= 0 {
				tokens = append(tokens, span{start, i})
				start = -1
			}
			continue
		}
		if start < 0 {
			start = i
		}
	}
	if start >= 0 {
		tokens = append(tokens, span{start, len(s)})
	}
	if len(tokens) < 3 {
		return s
	}

	var b strings.Builder
	last := 0
	for i := 0; i < len(tokens); {
		j := i + 1
		word := s[tokens[i].start:tokens[i].end]
		for j < len(tokens) && s[tokens[j].start:tokens[j].end] == word {
			j++
		}
		if j-i >= 3 {
			b.WriteString(s[last:tokens[i].end])
			last = tokens[j-1].end
		}
		i = j
	}
	if last == 0 {
		return s
	}
	b.WriteString(s[last:])
	return strings.TrimSpace(b.String())
}

// Whitespace collapses whitespace runs into a single space and trims the result.
// In HTML mode "&nbsp;" counts as whitespace.
func Whitespace(s string, html bool) string {
	if html {
		s = strings.ReplaceAll(s, "&nbsp;", " ")
	}
	return strings.Join(strings.FieldsFunc(s, unicode.IsSpace), " ")
}
