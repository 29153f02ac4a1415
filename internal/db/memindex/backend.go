// Package memindex implements the search backend on in-memory bleve indices.
//
// It evaluates the same query trees as the Elasticsearch backend. Scores differ from
// Lucene's, but filters, the rescore window and the score adjustments of function score
// and boosting queries behave the same, which is enough for local runs and tests.
package memindex

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"
	"sync"

	"github.com/blevesearch/bleve/v2"

	"github.com/kailas-cloud/serp/internal/db"
	"github.com/kailas-cloud/serp/internal/domain/search/rules"
)

// Compile-time check: Backend implements db.Backend.
var _ db.Backend = (*Backend)(nil)

// rawSourceField stores the original document as JSON. It is not indexed.
const rawSourceField = "rawsource"

// ErrClosed is returned after Close.
var ErrClosed = errors.New("memindex: backend closed")

// Config configures the index mapping.
type Config struct {
	// KeywordFields are indexed as single terms instead of analyzed text.
	KeywordFields []string
}

// Document is a document to index.
type Document struct {
	ID     string         `json:"_id"`
	Source map[string]any `json:"_source"`
}

// Backend holds named in-memory indices.
type Backend struct {
	mu       sync.RWMutex
	keywords []string
	indices  map[string]bleve.Index
	closed   bool
}

// New creates an empty backend.
func New(cfg Config) *Backend {
	return &Backend{
		keywords: slices.Clone(cfg.KeywordFields),
		indices:  make(map[string]bleve.Index),
	}
}

// KeywordFieldsFor lists the fields of tbl that are matched by exact term or regexp.
// Fields that depend on the search language are skipped.
func KeywordFieldsFor(tbl *rules.Table) []string {
	src := tbl.Source
	candidates := []string{
		tbl.LanguageField, tbl.HostnameField,
		src.TargetHostname, src.TargetPath, src.TargetURI, src.DocumentID,
	}
	for _, qf := range tbl.QueryFilters {
		candidates = append(candidates, qf.Field)
	}
	for _, b := range tbl.Boosts {
		candidates = append(candidates, b.Field)
	}
	for _, p := range tbl.Penalties.Rules {
		candidates = append(candidates, p.Field)
	}

	var out []string
	for _, f := range candidates {
		if f == "" || strings.HasPrefix(f, "#") || strings.Contains(f, rules.LangPlaceholder) {
			continue
		}
		if !slices.Contains(out, f) {
			out = append(out, f)
		}
	}
	return out
}

// CreateIndex adds an empty index. Creating an existing index is a no-op.
func (b *Backend) CreateIndex(name string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, err := b.createLocked(name)
	return err
}

func (b *Backend) createLocked(name string) (bleve.Index, error) {
	if b.closed {
		return nil, ErrClosed
	}
	if name == "" {
		return nil, fmt.Errorf("index name is required")
	}
	if idx, ok := b.indices[name]; ok {
		return idx, nil
	}

	im := bleve.NewIndexMapping()
	for _, f := range b.keywords {
		im.DefaultMapping.AddFieldMappingsAt(fieldName(f), bleve.NewKeywordFieldMapping())
	}
	raw := bleve.NewTextFieldMapping()
	raw.Index = false
	raw.Store = true
	raw.IncludeInAll = false
	raw.IncludeTermVectors = false
	im.DefaultMapping.AddFieldMappingsAt(rawSourceField, raw)

	idx, err := bleve.NewMemOnly(im)
	if err != nil {
		return nil, fmt.Errorf("create index %s: %w", name, err)
	}
	idx.SetName(name)
	b.indices[name] = idx
	return idx, nil
}

// Index adds or replaces documents, creating the index on first use.
func (b *Backend) Index(ctx context.Context, name string, docs []Document) error {
	b.mu.Lock()
	idx, err := b.createLocked(name)
	b.mu.Unlock()
	if err != nil {
		return err
	}

	batch := idx.NewBatch()
	for _, d := range docs {
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.ID == "" {
			return fmt.Errorf("document id is required")
		}
		raw, err := json.Marshal(d.Source)
		if err != nil {
			return fmt.Errorf("encode document %s: %w", d.ID, err)
		}
		fields := make(map[string]any, len(d.Source)+1)
		flatten("", d.Source, fields)
		fields[rawSourceField] = string(raw)
		if err := batch.Index(d.ID, fields); err != nil {
			return fmt.Errorf("index document %s: %w", d.ID, err)
		}
	}
	if err := idx.Batch(batch); err != nil {
		return fmt.Errorf("execute batch: %w", err)
	}
	return nil
}

// LoadNDJSON indexes one {"_id": ..., "_source": {...}} document per line and
// returns the number of documents read.
func (b *Backend) LoadNDJSON(ctx context.Context, name string, r io.Reader) (int, error) {
	var docs []Document
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" {
			continue
		}
		var d Document
		if err := json.Unmarshal([]byte(text), &d); err != nil {
			return 0, fmt.Errorf("line %d: %w", line, err)
		}
		docs = append(docs, d)
	}
	if err := sc.Err(); err != nil {
		return 0, fmt.Errorf("read documents: %w", err)
	}
	if err := b.Index(ctx, name, docs); err != nil {
		return 0, err
	}
	return len(docs), nil
}

// Indices returns the index names in sorted order.
func (b *Backend) Indices() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	names := make([]string, 0, len(b.indices))
	for name := range b.indices {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Ping reports ErrClosed after Close.
func (b *Backend) Ping(_ context.Context) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return &db.Error{Op: db.OpPing, Err: ErrClosed}
	}
	return nil
}

// Close releases all indices.
func (b *Backend) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, idx := range b.indices {
		_ = idx.Close()
	}
	b.indices = map[string]bleve.Index{}
	b.closed = true
}

// target resolves the requested indices. An empty list selects all of them.
func (b *Backend) target(names []string) (bleve.Index, int, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return nil, 0, ErrClosed
	}

	var selected []bleve.Index
	if len(names) == 0 {
		for _, idx := range b.indices {
			selected = append(selected, idx)
		}
	}
	for _, name := range names {
		idx, ok := b.indices[name]
		if !ok {
			return nil, 0, fmt.Errorf("%w: %s", db.ErrIndexNotFound, name)
		}
		selected = append(selected, idx)
	}
	if len(selected) == 0 {
		return nil, 0, fmt.Errorf("%w: no indices", db.ErrIndexNotFound)
	}
	return bleve.NewIndexAlias(selected...), len(selected), nil
}

// fieldName maps a dotted field name to a flat bleve field name.
func fieldName(name string) string {
	return strings.ReplaceAll(name, ".", "_")
}

func flatten(prefix string, in, out map[string]any) {
	for k, v := range in {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if m, ok := v.(map[string]any); ok {
			flatten(key, m, out)
			continue
		}
		out[fieldName(key)] = v
	}
}
