package service

import (
	"context"
	"fmt"
	"runtime"

	"github.com/ludo-technologies/simscan/domain"
	"github.com/ludo-technologies/simscan/internal/analyzer"
	"github.com/ludo-technologies/simscan/internal/parser"
)

// FileParseResult holds everything extracted from a single file.
type FileParseResult struct {
	Path      string
	Language  parser.Language
	Functions []*analyzer.FunctionUnit
	Types     []*analyzer.TypeUnit
	Skipped   []domain.SkippedUnit
	ParseErr  error
}

// ParseCache stores per-file extraction results in input order.
// After Seal() is called the cache is read-only and safe for concurrent access
// without locks.
type ParseCache struct {
	order   []string
	results map[string]*FileParseResult
	sealed  bool
}

// NewParseCache creates a new empty ParseCache.
func NewParseCache() *ParseCache {
	return &ParseCache{
		results: make(map[string]*FileParseResult),
	}
}

// Put stores a parse result. Must be called before Seal().
func (c *ParseCache) Put(filePath string, result *FileParseResult) {
	if c.sealed {
		return
	}
	if _, ok := c.results[filePath]; !ok {
		c.order = append(c.order, filePath)
	}
	c.results[filePath] = result
}

// Seal marks the cache as read-only.
func (c *ParseCache) Seal() {
	c.sealed = true
}

// Get retrieves a cached parse result.
func (c *ParseCache) Get(filePath string) (*FileParseResult, bool) {
	r, ok := c.results[filePath]
	return r, ok
}

// Len returns the number of entries in the cache.
func (c *ParseCache) Len() int {
	return len(c.results)
}

// Functions returns every function unit in file order
func (c *ParseCache) Functions() []*analyzer.FunctionUnit {
	var units []*analyzer.FunctionUnit
	for _, path := range c.order {
		units = append(units, c.results[path].Functions...)
	}
	return units
}

// Types returns every type unit in file order
func (c *ParseCache) Types() []*analyzer.TypeUnit {
	var units []*analyzer.TypeUnit
	for _, path := range c.order {
		units = append(units, c.results[path].Types...)
	}
	return units
}

// Skipped returns files that failed to parse plus functions without a body tree
func (c *ParseCache) Skipped() []domain.SkippedUnit {
	var skipped []domain.SkippedUnit
	for _, path := range c.order {
		r := c.results[path]
		if r.ParseErr != nil {
			skipped = append(skipped, domain.SkippedUnit{FilePath: path, Reason: r.ParseErr.Error()})
		}
		skipped = append(skipped, r.Skipped...)
	}
	return skipped
}

// ParseCachePopulatorConfig controls how PopulateParseCache works.
type ParseCachePopulatorConfig struct {
	Reader      domain.FileReader
	Executor    domain.ParallelExecutor
	Progress    domain.ProgressManager
	Concurrency int // 0 means runtime.GOMAXPROCS(0)
}

// PopulateParseCache reads, parses and extracts units from all files in
// parallel and returns a sealed cache. Each task builds its own parser
// because tree-sitter parsers are not thread-safe. Read and parse failures
// are recorded on the result, never returned.
func PopulateParseCache(ctx context.Context, files []string, cfg ParseCachePopulatorConfig) (*ParseCache, error) {
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = runtime.GOMAXPROCS(0)
	}
	reader := cfg.Reader
	if reader == nil {
		reader = NewFileReader()
	}
	executor := cfg.Executor
	if executor == nil {
		executor = NewParallelExecutor()
	}
	executor.SetMaxConcurrency(concurrency)

	progress := cfg.Progress
	if progress == nil {
		progress = NewNoOpProgressManager()
	}
	progress.Initialize(len(files))
	progress.Start()
	tracker := newProgressCounter(progress, len(files))

	results := make([]*FileParseResult, len(files))
	tasks := make([]domain.ExecutableTask, len(files))
	for i, filePath := range files {
		tasks[i] = NewSimpleTask(filePath, true, func(ctx context.Context) (interface{}, error) {
			results[i] = parseOne(ctx, reader, filePath)
			tracker.increment()
			return results[i], nil
		})
	}

	err := executor.Execute(ctx, tasks)
	progress.Complete(err == nil)
	if err != nil {
		return nil, err
	}

	cache := NewParseCache()
	for i, r := range results {
		if r == nil {
			r = &FileParseResult{Path: files[i], ParseErr: fmt.Errorf("not processed")}
		}
		cache.Put(files[i], r)
	}
	cache.Seal()
	return cache, nil
}

func parseOne(ctx context.Context, reader domain.FileReader, path string) *FileParseResult {
	r := &FileParseResult{Path: path}

	p, err := parser.NewParserForFile(path)
	if err != nil {
		r.ParseErr = err
		return r
	}
	r.Language = p.Language()

	content, err := reader.ReadFile(path)
	if err != nil {
		r.ParseErr = err
		return r
	}

	parsed, err := p.ParseSource(ctx, content, path)
	if err != nil {
		r.ParseErr = err
		return r
	}

	r.Functions, r.Types, r.Skipped = analyzer.BuildUnits(parsed)
	return r
}
