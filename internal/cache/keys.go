package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
	"time"
)

const (
	GlobalKeyPrefix = "notesquiz"
)

// GenerateCacheKey generates a cache key for a given service, object type, and identifier.
// If paramsKey are provided, they are joined by "_" and appended to the cache key.
func GenerateCacheKey(serviceName, objectType, identifier string, paramsKey ...string) string {
	baseKey := strings.Join([]string{GlobalKeyPrefix, serviceName, objectType, identifier}, ":")
	if len(paramsKey) > 0 {
		return strings.Join([]string{baseKey, strings.Join(paramsKey, "_")}, ":")
	}
	return baseKey
}

// HashString returns a short stable digest used as a key identifier.
func HashString(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:8])
}

// PageCacheKey identifies the extracted pages of one document version.
// The modification time is part of the key so an edited file is re-extracted.
func PageCacheKey(absPath string, modTime time.Time, size int64) string {
	return GenerateCacheKey("grounding", "pages", HashString(absPath),
		strconv.FormatInt(modTime.UnixNano(), 10), strconv.FormatInt(size, 10))
}

// EmbeddingCacheKey identifies the embedding of text under a model.
func EmbeddingCacheKey(source, model, text string) string {
	return GenerateCacheKey("embedding", source, HashString(text), model)
}

// GradingCacheKey identifies the cached oracle gradings of one question.
func GradingCacheKey(prompt, canonical string) string {
	return GenerateCacheKey("grading", "answers", HashString(prompt+"\x00"+canonical))
}

// ResultCacheKey identifies the stored summary of a finished quiz session.
func ResultCacheKey(sessionID string) string {
	return GenerateCacheKey("quiz", "result", sessionID)
}
