package grounding

import (
	"fmt"
	"os"
	"strings"

	"github.com/ledongthuc/pdf"
)

// PageExtractor turns a document on disk into 1-indexed page text.
type PageExtractor interface {
	Extract(path string) (map[int]string, error)
}

// PageExtractorFunc adapts a function to PageExtractor.
type PageExtractorFunc func(path string) (map[int]string, error)

func (f PageExtractorFunc) Extract(path string) (map[int]string, error) {
	return f(path)
}

// PDFExtractor reads the plain text layer of each PDF page.
type PDFExtractor struct{}

// Extract returns the pages that carry text. Pages without a text layer are
// left out and the remaining pages keep their numbers.
func (PDFExtractor) Extract(path string) (pages map[int]string, err error) {
	// The pdf package panics on some malformed content streams.
	defer func() {
		if r := recover(); r != nil {
			pages, err = nil, fmt.Errorf("parse pdf %s: %v", path, r)
		}
	}()

	f, reader, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pdf %s: %w", path, err)
	}
	defer f.Close()

	pages = make(map[int]string, reader.NumPage())
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("read page %d of %s: %w", i, path, err)
		}
		if strings.TrimSpace(text) != "" {
			pages[i] = text
		}
	}
	return pages, nil
}

// TextExtractor reads plain-text notes where form feeds separate pages.
// Blank pages are skipped like PDF pages without text.
type TextExtractor struct{}

func (TextExtractor) Extract(path string) (map[int]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read notes %s: %w", path, err)
	}
	parts := strings.Split(string(data), "\f")
	pages := make(map[int]string, len(parts))
	for i, p := range parts {
		if strings.TrimSpace(p) != "" {
			pages[i+1] = p
		}
	}
	return pages, nil
}

// DefaultExtractors maps supported file extensions to their extractors.
func DefaultExtractors() map[string]PageExtractor {
	return map[string]PageExtractor{
		".pdf": PDFExtractor{},
		".txt": TextExtractor{},
	}
}
