package service

import (
	"context"
	"sort"
	"strings"

	"notes-quiz/internal/domain"
	"notes-quiz/internal/logger"
	"notes-quiz/internal/util"

	"go.uber.org/zap"
)

const (
	assistantMaxSources  = 5
	assistantNotFoundMsg = "I couldn't find information about that in the course notes. Try rephrasing your question or using more specific course terms."
	assistantFailedMsg   = "The study assistant is unavailable right now. The most relevant pages of your notes are listed below."
)

// AssistantService answers free-form questions from course notes.
type AssistantService interface {
	Ask(ctx context.Context, course, question string) (*domain.StudyAnswer, error)
}

// StudyAssistant answers questions from the pages of a course's notes.
type StudyAssistant struct {
	catalog *CourseCatalog
	oracle  domain.Oracle
}

// NewStudyAssistant creates a StudyAssistant.
func NewStudyAssistant(catalog *CourseCatalog, oracle domain.Oracle) *StudyAssistant {
	return &StudyAssistant{catalog: catalog, oracle: oracle}
}

// Ask searches the course notes and has the oracle answer from the best
// pages. Without matching pages the oracle is not consulted.
func (a *StudyAssistant) Ask(ctx context.Context, course, question string) (*domain.StudyAnswer, error) {
	if strings.TrimSpace(question) == "" {
		return nil, domain.NewInvalidInputError("question must not be empty")
	}
	docs, err := a.catalog.Resolve(course, nil)
	if err != nil {
		return nil, err
	}

	index := a.catalog.Index()
	var results []domain.SearchResult
	for _, doc := range docs {
		results = append(results, index.Search(ctx, doc, question, assistantMaxSources)...)
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if len(results) > assistantMaxSources {
		results = results[:assistantMaxSources]
	}

	if len(results) == 0 {
		logger.Get().Info("No notes matched study question", zap.String("course", course))
		return &domain.StudyAnswer{Answer: assistantNotFoundMsg, Sources: []domain.StudySource{}}, nil
	}

	sources := make([]domain.StudySource, 0, len(results))
	pages := make([]string, 0, len(results))
	for _, r := range results {
		sources = append(sources, domain.StudySource{Path: r.Path, Page: r.Page, Excerpt: r.Excerpt})
		pages = append(pages, util.TruncateRunes(r.Text, assistantPageRunes))
	}

	answer, err := a.oracle.Generate(ctx, domain.OracleRequest{
		Prompt:      buildAssistantPrompt(question, pages),
		System:      assistantSystemPrompt,
		Temperature: assistantTemperature,
		MaxTokens:   assistantMaxTokens,
	})
	if err != nil {
		logger.Get().Warn("Study assistant oracle call failed", zap.String("course", course), zap.Error(err))
		return &domain.StudyAnswer{Answer: assistantFailedMsg, Sources: sources}, nil
	}

	return &domain.StudyAnswer{
		Answer:    strings.TrimSpace(answer),
		Sources:   sources,
		FoundInfo: true,
	}, nil
}
