package grounding

import (
	"context"
	"regexp"
	"strings"

	"notes-quiz/internal/domain"
)

// QuoteWords is the word limit of citation quotes.
const QuoteWords = 25

const minQuoteWords = 5

var sentenceBreak = regexp.MustCompile(`[.!?]\s+`)

// ExtractQuote picks the shortest sentence of 5 to maxWords words. Failing
// that it returns the first maxWords words followed by "...".
func ExtractQuote(text string, maxWords int) string {
	clean := strings.Join(strings.Fields(text), " ")
	if clean == "" {
		return ""
	}
	if maxWords <= 0 {
		maxWords = QuoteWords
	}

	best, bestLen := "", 0
	for _, sentence := range sentenceBreak.Split(clean, -1) {
		words := strings.Fields(sentence)
		n := len(words)
		if n < minQuoteWords || n > maxWords {
			continue
		}
		if best == "" || n < bestLen {
			best, bestLen = strings.Join(words, " "), n
		}
	}
	if best != "" {
		return best
	}

	words := strings.Fields(clean)
	if len(words) > maxWords {
		words = words[:maxWords]
	}
	return strings.Join(words, " ") + "..."
}

// FindGrounding returns up to three citations for a concept within a topic.
func (idx *Index) FindGrounding(ctx context.Context, path, topic, concept string) []domain.GroundingCitation {
	query := strings.TrimSpace(topic + " " + concept)
	var citations []domain.GroundingCitation
	for _, r := range idx.Search(ctx, path, query, 3) {
		citations = append(citations, domain.GroundingCitation{
			Path:  r.Path,
			Page:  r.Page,
			Quote: ExtractQuote(r.Excerpt, QuoteWords),
		})
	}
	return citations
}
