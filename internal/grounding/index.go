// Package grounding extracts, caches and searches the page text of the
// reference documents that quiz questions and gradings cite.
package grounding

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode"
	"unicode/utf8"

	"notes-quiz/internal/cache"
	"notes-quiz/internal/domain"
	"notes-quiz/internal/logger"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

const excerptRadius = 150

// Index serves page text for documents under a notes root. Extracted pages
// are cached for the lifetime of the Index; documents are assumed static.
type Index struct {
	root       string
	extractors map[string]PageExtractor
	cache      domain.Cache
	cacheTTL   time.Duration

	mu    sync.RWMutex
	pages map[string]map[int]string
	group singleflight.Group
}

// Option configures an Index.
type Option func(*Index)

// WithExtractor registers an extractor for a file extension such as ".pdf".
func WithExtractor(ext string, e PageExtractor) Option {
	return func(idx *Index) {
		idx.extractors[strings.ToLower(ext)] = e
	}
}

// WithCache adds a shared second-level page cache.
func WithCache(c domain.Cache, ttl time.Duration) Option {
	return func(idx *Index) {
		idx.cache = c
		idx.cacheTTL = ttl
	}
}

// NewIndex creates an Index resolving relative paths against root.
func NewIndex(root string, opts ...Option) *Index {
	idx := &Index{
		root:       root,
		extractors: DefaultExtractors(),
		pages:      make(map[string]map[int]string),
	}
	for _, opt := range opts {
		opt(idx)
	}
	return idx
}

// Root returns the notes root directory.
func (idx *Index) Root() string {
	return idx.root
}

// Resolve returns the absolute location of a document path.
func (idx *Index) Resolve(path string) string {
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}
	return filepath.Join(idx.root, path)
}

// ValidateReference reports whether path names an existing document of a
// supported type.
func (idx *Index) ValidateReference(path string) bool {
	if strings.TrimSpace(path) == "" {
		return false
	}
	if _, ok := idx.extractors[strings.ToLower(filepath.Ext(path))]; !ok {
		return false
	}
	info, err := os.Stat(idx.Resolve(path))
	return err == nil && info.Mode().IsRegular()
}

// ExtractText returns the page map of a document. Failures are logged and
// yield an empty map. The returned map must not be modified.
func (idx *Index) ExtractText(ctx context.Context, path string) map[int]string {
	abs := idx.Resolve(path)

	idx.mu.RLock()
	pages, ok := idx.pages[abs]
	idx.mu.RUnlock()
	if ok {
		return pages
	}

	v, _, _ := idx.group.Do(abs, func() (interface{}, error) {
		idx.mu.RLock()
		cached, ok := idx.pages[abs]
		idx.mu.RUnlock()
		if ok {
			return cached, nil
		}

		loaded := idx.load(ctx, abs)

		idx.mu.Lock()
		idx.pages[abs] = loaded
		idx.mu.Unlock()
		return loaded, nil
	})
	return v.(map[int]string)
}

func (idx *Index) load(ctx context.Context, abs string) map[int]string {
	l := logger.Get().With(zap.String("path", abs))

	extractor, ok := idx.extractors[strings.ToLower(filepath.Ext(abs))]
	if !ok {
		l.Warn("Unsupported document type")
		return map[int]string{}
	}

	info, err := os.Stat(abs)
	if err != nil {
		l.Warn("Document not readable", zap.Error(err))
		return map[int]string{}
	}

	var key string
	if idx.cache != nil {
		key = cache.PageCacheKey(abs, info.ModTime(), info.Size())
		if pages, ok := idx.loadCached(ctx, key, l); ok {
			return pages
		}
	}

	start := time.Now()
	pages, err := extractor.Extract(abs)
	if err != nil {
		l.Error("Failed to extract document text", zap.Error(err))
		return map[int]string{}
	}
	l.Info("Extracted document text", zap.Int("pages", len(pages)), zap.Duration("duration", time.Since(start)))

	if idx.cache != nil && len(pages) > 0 {
		fields := make(map[string]string, len(pages))
		for n, text := range pages {
			fields[strconv.Itoa(n)] = text
		}
		if err := idx.cache.HSet(ctx, key, fields, idx.cacheTTL); err != nil {
			l.Warn("Failed to store pages in cache", zap.Error(err))
		}
	}
	return pages
}

func (idx *Index) loadCached(ctx context.Context, key string, l *zap.Logger) (map[int]string, bool) {
	fields, err := idx.cache.HGetAll(ctx, key)
	if err != nil {
		if !errors.Is(err, domain.ErrCacheMiss) {
			l.Warn("Failed to read pages from cache", zap.Error(err))
		}
		return nil, false
	}
	pages := make(map[int]string, len(fields))
	for field, text := range fields {
		n, err := strconv.Atoi(field)
		if err != nil || n < 1 {
			l.Warn("Ignoring malformed cached page map", zap.String("field", field))
			return nil, false
		}
		pages[n] = text
	}
	l.Debug("Page cache hit", zap.Int("pages", len(pages)))
	return pages, true
}

// Prefetch extracts several documents concurrently.
func (idx *Index) Prefetch(ctx context.Context, paths []string) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for _, p := range paths {
		p := p
		g.Go(func() error {
			idx.ExtractText(gctx, p)
			return nil
		})
	}
	_ = g.Wait()
}

// PageNumbers returns the document's page numbers in ascending order.
func (idx *Index) PageNumbers(ctx context.Context, path string) []int {
	return sortedPages(idx.ExtractText(ctx, path))
}

func sortedPages(pages map[int]string) []int {
	nums := make([]int, 0, len(pages))
	for n := range pages {
		nums = append(nums, n)
	}
	sort.Ints(nums)
	return nums
}

// PageCount returns the number of extracted pages.
func (idx *Index) PageCount(ctx context.Context, path string) int {
	return len(idx.ExtractText(ctx, path))
}

// PageContent returns the text of one page.
func (idx *Index) PageContent(ctx context.Context, path string, page int) (string, bool) {
	text, ok := idx.ExtractText(ctx, path)[page]
	return text, ok
}

// Search ranks pages by the number of distinct query tokens they contain.
// Ties keep page order.
func (idx *Index) Search(ctx context.Context, path, query string, maxResults int) []domain.SearchResult {
	tokens := queryTokens(query)
	if len(tokens) == 0 || maxResults <= 0 {
		return nil
	}

	pages := idx.ExtractText(ctx, path)
	var results []domain.SearchResult
	for _, n := range sortedPages(pages) {
		text := pages[n]
		lowered := lower(text)

		score := 0
		for _, tok := range tokens {
			if strings.Contains(lowered, tok) {
				score++
			}
		}
		if score == 0 {
			continue
		}
		results = append(results, domain.SearchResult{
			Page:    n,
			Text:    text,
			Excerpt: excerpt(text, lowered, tokens),
			Score:   score,
			Path:    path,
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if len(results) > maxResults {
		results = results[:maxResults]
	}
	return results
}

func queryTokens(query string) []string {
	seen := make(map[string]bool)
	var tokens []string
	for _, tok := range strings.Fields(lower(query)) {
		if !seen[tok] {
			seen[tok] = true
			tokens = append(tokens, tok)
		}
	}
	return tokens
}

// lower maps rune by rune so rune offsets match the original text.
func lower(s string) string {
	return strings.Map(unicode.ToLower, s)
}

func excerpt(text, lowered string, tokens []string) string {
	for _, tok := range tokens {
		byteIdx := strings.Index(lowered, tok)
		if byteIdx < 0 {
			continue
		}
		runes := []rune(text)
		pos := utf8.RuneCountInString(lowered[:byteIdx])
		start := pos - excerptRadius
		if start < 0 {
			start = 0
		}
		end := pos + excerptRadius
		if end > len(runes) {
			end = len(runes)
		}
		return strings.TrimSpace(string(runes[start:end]))
	}
	return ""
}
