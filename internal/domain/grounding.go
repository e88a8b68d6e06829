package domain

import "context"

// GroundingIndex is the port onto the searchable reference documents.
type GroundingIndex interface {
	ValidateReference(path string) bool
	Prefetch(ctx context.Context, paths []string)
	PageNumbers(ctx context.Context, path string) []int
	PageContent(ctx context.Context, path string, page int) (string, bool)
	Search(ctx context.Context, path, query string, maxResults int) []SearchResult
}
