package service

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"notes-quiz/internal/config"
	"notes-quiz/internal/domain"
	"notes-quiz/internal/logger"

	"go.uber.org/zap"
)

// CatalogService exposes the course catalog to transports.
type CatalogService interface {
	AvailableCourses() []domain.CourseInfo
	ValidateTopics(ctx context.Context, course string, topics []string) (*domain.TopicValidation, error)
}

var _ CatalogService = (*CourseCatalog)(nil)

// CourseCatalog maps course codes to their default notes.
type CourseCatalog struct {
	index   domain.GroundingIndex
	courses map[string]domain.Course
	codes   []string
}

// NewCourseCatalog builds the catalog from configuration.
func NewCourseCatalog(index domain.GroundingIndex, courses map[string]config.CourseConfig) *CourseCatalog {
	c := &CourseCatalog{
		index:   index,
		courses: make(map[string]domain.Course, len(courses)),
	}
	for code, cc := range courses {
		c.courses[code] = domain.Course{Code: code, Name: cc.Name, NoteFiles: cc.Files}
		c.codes = append(c.codes, code)
	}
	sort.Strings(c.codes)
	return c
}

// Index returns the grounding index the catalog checks notes against.
func (c *CourseCatalog) Index() domain.GroundingIndex {
	return c.index
}

// Codes returns the course codes in sorted order.
func (c *CourseCatalog) Codes() []string {
	return append([]string(nil), c.codes...)
}

// Course looks up a course by code.
func (c *CourseCatalog) Course(code string) (domain.Course, bool) {
	course, ok := c.courses[code]
	return course, ok
}

// Resolve returns the documents a request on course should use. Explicit note
// files replace the course defaults and every file must exist.
func (c *CourseCatalog) Resolve(course string, noteFiles []string) ([]string, error) {
	entry, ok := c.courses[strings.TrimSpace(course)]
	if !ok {
		return nil, domain.NewInvalidCourseError(course, c.Codes())
	}

	requested := noteFiles
	if len(requested) == 0 {
		requested = entry.NoteFiles
	}
	if len(requested) == 0 {
		return nil, domain.NewMissingNotesError(requested, nil)
	}

	var missing []string
	for _, f := range requested {
		if !c.index.ValidateReference(f) {
			missing = append(missing, f)
		}
	}
	if len(missing) > 0 {
		logger.Get().Warn("Note files not found",
			zap.String("course", course),
			zap.Strings("missing", missing),
		)
		return nil, domain.NewMissingNotesError(requested, missing)
	}
	return append([]string(nil), requested...), nil
}

// AvailableCourses lists every course with the default notes present on disk.
func (c *CourseCatalog) AvailableCourses() []domain.CourseInfo {
	infos := make([]domain.CourseInfo, 0, len(c.codes))
	for _, code := range c.codes {
		course := c.courses[code]
		present := []string{}
		for _, f := range course.NoteFiles {
			if c.index.ValidateReference(f) {
				present = append(present, f)
			}
		}
		infos = append(infos, domain.CourseInfo{
			Code:           code,
			Name:           course.Name,
			NotesAvailable: len(present),
			NoteFiles:      present,
		})
	}
	return infos
}

// ValidateTopics reports which topics appear in the course's default notes.
// A topic is located at the best page of the first document that mentions it.
func (c *CourseCatalog) ValidateTopics(ctx context.Context, course string, topics []string) (*domain.TopicValidation, error) {
	entry, ok := c.courses[strings.TrimSpace(course)]
	if !ok {
		return nil, domain.NewInvalidCourseError(course, c.Codes())
	}

	result := &domain.TopicValidation{
		Found:       []domain.TopicMatch{},
		NotFound:    []string{},
		Suggestions: map[string][]string{},
	}
	for _, topic := range topics {
		if strings.TrimSpace(topic) == "" {
			continue
		}
		match, found := c.locate(ctx, entry.NoteFiles, topic)
		if found {
			result.Found = append(result.Found, match)
			continue
		}
		result.NotFound = append(result.NotFound, topic)
		result.Suggestions[topic] = []string{
			fmt.Sprintf("Check %s course materials", entry.Name),
			"Try more general topic keywords",
		}
	}
	return result, nil
}

func (c *CourseCatalog) locate(ctx context.Context, files []string, topic string) (domain.TopicMatch, bool) {
	for _, f := range files {
		if !c.index.ValidateReference(f) {
			continue
		}
		results := c.index.Search(ctx, f, topic, 1)
		if len(results) > 0 && results[0].Score > 0 {
			return domain.TopicMatch{Topic: topic, File: f, Page: results[0].Page}, true
		}
	}
	return domain.TopicMatch{}, false
}
