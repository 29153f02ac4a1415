package request

import (
	"fmt"
	"strings"
)

// Search parameter limits.
const (
	// MaxQueryLength is the maximum allowed search query length.
	MaxQueryLength = 4096
	DefaultSize    = 10
	MaxSize        = 100
	// MaxPages caps deep pagination.
	MaxPages = 1000
)

// Mode selects how the query text is matched.
type Mode string

const (
	// ModeDefault runs the filtering pre-query followed by the rescorer.
	ModeDefault Mode = "default"
	// ModePhrase matches the query text as a phrase over the phrase fields.
	ModePhrase Mode = "phrase"
)

// ParseMode parses a mode name. The empty string is ModeDefault.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case "", ModeDefault:
		return ModeDefault, nil
	case ModePhrase:
		return ModePhrase, nil
	default:
		return "", fmt.Errorf("unknown search mode %q", s)
	}
}

// Request is a validated search query.
type Request struct {
	query    string
	indices  []string
	from     int
	size     int
	language string
	explain  bool
	mode     Mode
	slop     int
}

// New validates search parameters. from must be >= 0 and size >= 1.
// Size is clamped to MaxSize.
func New(query string, indices []string, from, size int, language string, explain bool) (Request, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return Request{}, fmt.Errorf("query is required")
	}
	if len(query) > MaxQueryLength {
		return Request{}, fmt.Errorf("query too long (max %d chars)", MaxQueryLength)
	}
	if from < 0 {
		return Request{}, fmt.Errorf("from must be >= 0, got %d", from)
	}
	if size < 1 {
		return Request{}, fmt.Errorf("size must be >= 1, got %d", size)
	}
	if size > MaxSize {
		size = MaxSize
	}

	var idx []string
	for _, i := range indices {
		if i = strings.TrimSpace(i); i != "" {
			idx = append(idx, i)
		}
	}

	return Request{
		query:    query,
		indices:  idx,
		from:     from,
		size:     size,
		language: strings.ToLower(strings.TrimSpace(language)),
		explain:  explain,
		mode:     ModeDefault,
	}, nil
}

// WithPhrase returns a copy of r in phrase mode with the requested slop.
// The slop is limited by the rule table when the query is built.
func (r Request) WithPhrase(slop int) Request {
	r.mode = ModePhrase
	r.slop = slop
	return r
}

// Query returns the raw query text including inline filters.
func (r *Request) Query() string { return r.query }

// Indices returns the explicitly requested indices (nil = defaults).
func (r *Request) Indices() []string { return r.indices }

// From returns the result offset.
func (r *Request) From() int { return r.from }

// Size returns the page size.
func (r *Request) Size() int { return r.size }

// Language returns the search language ("" = configured default).
func (r *Request) Language() string { return r.language }

// Explain reports whether score explanations are requested.
func (r *Request) Explain() bool { return r.explain }

// Mode returns the search mode.
func (r *Request) Mode() Mode {
	if r.mode == "" {
		return ModeDefault
	}
	return r.mode
}

// Slop returns the requested phrase slop.
func (r *Request) Slop() int { return r.slop }

// FromPage converts a 1-based page number into an offset. Invalid values fall back
// to page 1 and DefaultSize; pages past MaxPages are capped.
func FromPage(page, perPage int) (from, size int) {
	if perPage < 1 {
		perPage = DefaultSize
	}
	if perPage > MaxSize {
		perPage = MaxSize
	}
	if page < 1 {
		page = 1
	}
	if page > MaxPages {
		page = MaxPages
	}
	return (page - 1) * perPage, perPage
}
