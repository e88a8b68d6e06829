package service

import (
	"context"
	"math/rand"
	"sort"
	"strings"

	"notes-quiz/internal/domain"
	"notes-quiz/internal/logger"
	"notes-quiz/internal/util"

	"go.uber.org/zap"
)

const passagesPerDocument = 3

// passage is a page of notes chosen as question material.
type passage struct {
	path string
	page int
	text string
}

// topicPlanner hands out passages topic by topic. Each passage is used once.
type topicPlanner struct {
	index  domain.GroundingIndex
	docs   []string
	topics []string
	pools  [][]domain.SearchResult
}

func newTopicPlanner(ctx context.Context, index domain.GroundingIndex, docs, topics []string) *topicPlanner {
	p := &topicPlanner{
		index:  index,
		docs:   docs,
		topics: topics,
		pools:  make([][]domain.SearchResult, len(topics)),
	}
	for i, topic := range topics {
		var pool []domain.SearchResult
		for _, doc := range docs {
			pool = append(pool, index.Search(ctx, doc, topic, passagesPerDocument)...)
		}
		sort.SliceStable(pool, func(a, b int) bool {
			return pool[a].Score > pool[b].Score
		})
		p.pools[i] = pool
		logger.Get().Debug("Planned topic passages", zap.String("topic", topic), zap.Int("passages", len(pool)))
	}
	return p
}

// next picks the topic for slot and the passage to ask about. Topics rotate by
// slot; a topic with an exhausted pool yields to the next one that still has
// passages. Once every pool is empty a random non-blank page of a random
// document is used. ok is false when no document has any text.
func (p *topicPlanner) next(ctx context.Context, slot int, rng *rand.Rand) (topic string, psg passage, ok bool) {
	n := len(p.topics)
	for i := 0; i < n; i++ {
		t := (slot + i) % n
		if len(p.pools[t]) == 0 {
			continue
		}
		r := p.pools[t][0]
		p.pools[t] = p.pools[t][1:]
		return p.topics[t], passage{path: r.Path, page: r.Page, text: r.Text}, true
	}

	topic = p.topics[slot%n]
	for _, di := range rng.Perm(len(p.docs)) {
		doc := p.docs[di]
		pages := p.index.PageNumbers(ctx, doc)
		for _, pi := range rng.Perm(len(pages)) {
			text, found := p.index.PageContent(ctx, doc, pages[pi])
			if !found || strings.TrimSpace(text) == "" {
				continue
			}
			return topic, passage{path: doc, page: pages[pi], text: util.TruncateRunes(text, promptChunkRunes)}, true
		}
	}
	return topic, passage{}, false
}

// randomChunk returns at most promptChunkRunes runes of text starting at a
// random offset.
func randomChunk(text string, rng *rand.Rand) string {
	size := len([]rune(text))
	if size <= promptChunkRunes {
		return text
	}
	start := rng.Intn(size - promptChunkRunes + 1)
	return util.RuneWindow(text, start, promptChunkRunes)
}
