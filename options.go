package serp

import (
	"time"

	"go.uber.org/zap"
)

// Option configures a Client.
type Option func(*clientConfig)

type clientConfig struct {
	driver         string
	addrs          []string
	username       string
	password       string
	apiKey         string
	rules          []byte
	indices        []string
	defaultIndices []string
	language       string
	titleLength    int
	snippetLength  int
	cacheSize      int
	cacheTTL       time.Duration
	logger         *zap.Logger
}

// WithElasticsearch searches an Elasticsearch cluster.
func WithElasticsearch(addrs ...string) Option {
	return func(c *clientConfig) {
		c.driver = driverElastic
		c.addrs = addrs
	}
}

// WithBasicAuth sets Elasticsearch credentials.
func WithBasicAuth(username, password string) Option {
	return func(c *clientConfig) {
		c.username = username
		c.password = password
	}
}

// WithAPIKey sets an Elasticsearch API key.
func WithAPIKey(key string) Option {
	return func(c *clientConfig) {
		c.apiKey = key
	}
}

// InMemory searches in-process indices filled with Client.Index.
func InMemory() Option {
	return func(c *clientConfig) {
		c.driver = driverMemory
	}
}

// WithRules sets the ranking rule table in its YAML form (the search section of
// the server configuration). Required.
func WithRules(yaml []byte) Option {
	return func(c *clientConfig) {
		c.rules = yaml
	}
}

// WithIndices restricts searches to indices. defaults are used when a request
// names none.
func WithIndices(indices []string, defaults ...string) Option {
	return func(c *clientConfig) {
		c.indices = indices
		c.defaultIndices = defaults
	}
}

// WithLanguage sets the default search language.
func WithLanguage(lang string) Option {
	return func(c *clientConfig) {
		c.language = lang
	}
}

// WithLengths sets the title and snippet length limits.
func WithLengths(title, snippet int) Option {
	return func(c *clientConfig) {
		c.titleLength = title
		c.snippetLength = snippet
	}
}

// WithResultCache caches up to size result pages for ttl in process memory.
func WithResultCache(size int, ttl time.Duration) Option {
	return func(c *clientConfig) {
		c.cacheSize = size
		c.cacheTTL = ttl
	}
}

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *clientConfig) {
		c.logger = l
	}
}
