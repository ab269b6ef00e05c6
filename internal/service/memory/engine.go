package memory

import (
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/sandevgo/stridemem/internal/core"
)

const defaultPoolTTL = 30 * time.Second

// Engine ties extraction, persistence and retrieval to a store. Calls for
// different subjects may run concurrently; calls that write the same subject
// must be serialised by the caller.
type Engine struct {
	insights  core.InsightRepository
	summaries core.SummaryRepository
	tables    *Tables
	extractor *Extractor
	pool      *cache.Cache
	now       func() time.Time
}

type Option func(*engineOptions)

type engineOptions struct {
	tables  *Tables
	parsers []StructuredParser
	now     func() time.Time
	poolTTL time.Duration
}

func WithTables(t *Tables) Option {
	return func(o *engineOptions) { o.tables = t }
}

func WithParsers(parsers ...StructuredParser) Option {
	return func(o *engineOptions) { o.parsers = parsers }
}

func WithClock(now func() time.Time) Option {
	return func(o *engineOptions) { o.now = now }
}

// WithPoolCache sets how long a subject's retrieval pool is reused. Zero
// disables caching.
func WithPoolCache(ttl time.Duration) Option {
	return func(o *engineOptions) { o.poolTTL = ttl }
}

func NewEngine(insights core.InsightRepository, summaries core.SummaryRepository, opts ...Option) *Engine {
	o := engineOptions{
		tables:  DefaultTables(),
		parsers: DefaultStructuredParsers(),
		now:     time.Now,
		poolTTL: defaultPoolTTL,
	}
	for _, opt := range opts {
		opt(&o)
	}

	e := &Engine{
		insights:  insights,
		summaries: summaries,
		tables:    o.tables,
		now:       o.now,
		extractor: NewExtractor(
			WithExtractorTables(o.tables),
			WithStructuredParsers(o.parsers...),
			WithExtractorClock(o.now),
		),
	}
	if o.poolTTL > 0 {
		e.pool = cache.New(o.poolTTL, 2*o.poolTTL)
	}
	return e
}

func (e *Engine) Extractor() *Extractor {
	return e.extractor
}

func (e *Engine) Tables() *Tables {
	return e.tables
}

func (e *Engine) invalidate(subjectID string) {
	if e.pool == nil {
		return
	}
	prefix := subjectID + "|"
	for key := range e.pool.Items() {
		if strings.HasPrefix(key, prefix) {
			e.pool.Delete(key)
		}
	}
}
