package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"notes-quiz/internal/domain"
	"notes-quiz/internal/grounding"
	"notes-quiz/internal/logger"

	"go.uber.org/zap"
)

const (
	maxAttemptsPerSlot = 3
	minPromptRunes     = 10
	minChoiceOptions   = 2
)

// ErrRunExhausted is returned by Run.Next once every slot has been attempted.
var ErrRunExhausted = errors.New("generation run exhausted")

// Generator turns course notes into grounded quiz questions.
type Generator struct {
	catalog *CourseCatalog
	index   domain.GroundingIndex
	oracle  domain.Oracle
	guard   *SimilarityGuard

	seedMu sync.Mutex
	seed   *rand.Rand
}

// GeneratorOption configures a Generator.
type GeneratorOption func(*Generator)

// WithSimilarityGuard rejects near-duplicate prompts by embedding similarity.
func WithSimilarityGuard(g *SimilarityGuard) GeneratorOption {
	return func(gen *Generator) {
		gen.guard = g
	}
}

// WithSeed makes passage, chunk and hint selection reproducible.
func WithSeed(seed int64) GeneratorOption {
	return func(gen *Generator) {
		gen.seed = rand.New(rand.NewSource(seed))
	}
}

// NewGenerator creates a Generator over the catalog's grounding index.
func NewGenerator(catalog *CourseCatalog, oracle domain.Oracle, opts ...GeneratorOption) *Generator {
	g := &Generator{
		catalog: catalog,
		index:   catalog.Index(),
		oracle:  oracle,
		seed:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *Generator) newRand() *rand.Rand {
	g.seedMu.Lock()
	defer g.seedMu.Unlock()
	return rand.New(rand.NewSource(g.seed.Int63()))
}

// GenerateQuestions resolves the request's notes and generates every
// question up front.
func (g *Generator) GenerateQuestions(ctx context.Context, req domain.GenerationRequest) (*domain.GenerationResult, error) {
	req = req.WithDefaults()
	docs, err := g.catalog.Resolve(req.Course, req.NoteFiles)
	if err != nil {
		return nil, err
	}

	run := g.NewRun(ctx, req, docs)
	var questions []*domain.Question
	for {
		q, err := run.Next(ctx)
		if errors.Is(err, ErrRunExhausted) {
			break
		}
		if err != nil {
			return nil, err
		}
		questions = append(questions, q)
	}

	if len(questions) == 0 {
		logger.Get().Error("No questions could be generated",
			zap.String("course", req.Course),
			zap.Int("requested", req.NumQuestions),
		)
		return nil, domain.NewGenerationFailedError(req.NumQuestions)
	}

	logger.Get().Info("Generated quiz",
		zap.String("course", req.Course),
		zap.Int("requested", req.NumQuestions),
		zap.Int("generated", len(questions)),
	)
	return &domain.GenerationResult{
		Meta: domain.GenerationMeta{
			Course:        req.Course,
			NotesUsed:     docs,
			QuestionCount: len(questions),
			Requested:     req.NumQuestions,
		},
		Questions: questions,
	}, nil
}

// Run generates the questions of one request one at a time. A Run is not
// safe for concurrent use.
type Run struct {
	gen     *Generator
	req     domain.GenerationRequest
	docs    []string
	planner *topicPlanner
	rng     *rand.Rand

	slots    int
	accepted []*domain.Question
	seen     map[string]bool
	vectors  [][]float32
}

// NewRun prepares a lazy run over already resolved documents.
func (g *Generator) NewRun(ctx context.Context, req domain.GenerationRequest, docs []string) *Run {
	req = req.WithDefaults()
	g.index.Prefetch(ctx, docs)
	return &Run{
		gen:     g,
		req:     req,
		docs:    docs,
		planner: newTopicPlanner(ctx, g.index, docs, req.Topics),
		rng:     g.newRand(),
		seen:    make(map[string]bool),
	}
}

// Request returns the defaulted request the run serves.
func (r *Run) Request() domain.GenerationRequest {
	return r.req
}

// Documents returns the notes the run draws on.
func (r *Run) Documents() []string {
	return r.docs
}

// Generated is the number of accepted questions.
func (r *Run) Generated() int {
	return len(r.accepted)
}

// Exhausted reports whether every slot has been attempted.
func (r *Run) Exhausted() bool {
	return r.slots >= r.req.NumQuestions
}

// Next attempts slots until one yields a question. It returns ErrRunExhausted
// once all slots are used. A cancelled context leaves the interrupted slot
// unconsumed.
func (r *Run) Next(ctx context.Context) (*domain.Question, error) {
	for r.slots < r.req.NumQuestions {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		slot := r.slots
		r.slots++

		q, err := r.fillSlot(ctx, slot)
		if err != nil {
			r.slots--
			return nil, err
		}
		if q != nil {
			return q, nil
		}
	}
	return nil, ErrRunExhausted
}

// fillSlot returns nil, nil when the slot's retry budget runs out. The only
// error it returns is the context's.
func (r *Run) fillSlot(ctx context.Context, slot int) (*domain.Question, error) {
	qtype := r.req.QuestionTypes[slot%len(r.req.QuestionTypes)]
	l := logger.Get().With(zap.Int("slot", slot+1), zap.String("type", string(qtype)))

	topic, psg, ok := r.planner.next(ctx, slot, r.rng)
	if !ok {
		l.Warn("No note content available for slot")
		return nil, nil
	}
	l = l.With(zap.String("topic", topic), zap.String("path", psg.path), zap.Int("page", psg.page))

	for attempt := 1; attempt <= maxAttemptsPerSlot; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		chunk := randomChunk(psg.text, r.rng)
		hint := variationHints[r.rng.Intn(len(variationHints))]
		raw, err := r.gen.oracle.GenerateJSON(ctx, domain.OracleRequest{
			Prompt:      buildGenerationPrompt(topic, r.req.Difficulty, qtype, hint, chunk),
			System:      generationSystemPrompt,
			Temperature: generationTemperature,
			MaxTokens:   generationMaxTokens,
		})
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			l.Warn("Oracle call failed", zap.Int("attempt", attempt), zap.Error(err))
			continue
		}

		item, err := parseGeneratedItem(raw)
		if err != nil {
			l.Warn("Unusable oracle response", zap.Int("attempt", attempt), zap.Error(err))
			continue
		}

		q, err := r.buildQuestion(item, qtype, topic, psg, chunk)
		if err != nil {
			l.Info("Rejected generated question", zap.Int("attempt", attempt), zap.Error(err))
			continue
		}

		if r.gen.guard != nil {
			vec, similar := r.gen.guard.Check(ctx, q.Prompt, r.vectors)
			if similar {
				l.Info("Rejected generated question", zap.Int("attempt", attempt), zap.String("reason", "similar to accepted prompt"))
				continue
			}
			r.vectors = append(r.vectors, vec)
		}

		q.ID = fmt.Sprintf("q%d", len(r.accepted)+1)
		r.accepted = append(r.accepted, q)
		r.seen[promptKey(q.Prompt)] = true
		l.Info("Accepted generated question", zap.String("question_id", q.ID), zap.Int("attempt", attempt))
		return q, nil
	}

	l.Warn("Skipping slot after exhausting attempts", zap.Int("attempts", maxAttemptsPerSlot))
	return nil, nil
}

func promptKey(prompt string) string {
	return strings.ToLower(strings.TrimSpace(prompt))
}

// buildQuestion validates a generated item and assembles the question for the
// requested type. The ID is assigned on acceptance.
func (r *Run) buildQuestion(item *generatedItem, requested domain.QuestionType, topic string, psg passage, chunk string) (*domain.Question, error) {
	prompt := item.prompt()
	if utf8.RuneCountInString(prompt) < minPromptRunes {
		return nil, fmt.Errorf("prompt too short (%d characters)", utf8.RuneCountInString(prompt))
	}
	if generated := item.itemType(); !domain.TypesCompatible(requested, generated) {
		return nil, fmt.Errorf("generated type %s does not match requested %s", generated, requested)
	}
	if r.seen[promptKey(prompt)] {
		return nil, errors.New("duplicate prompt")
	}

	maxPoints := r.req.MaxPointsPerQuestion
	concepts := item.concepts()
	if len(concepts) == 0 {
		concepts = []string{topic}
	}

	q := &domain.Question{
		Type:       requested,
		Topic:      topic,
		Difficulty: r.req.Difficulty,
		Prompt:     prompt,
		Citations: []domain.GroundingCitation{{
			Path:  psg.path,
			Page:  psg.page,
			Quote: grounding.ExtractQuote(chunk, grounding.QuoteWords),
		}},
		Flags: domain.RubricFlags{
			StrictConcepts:              r.req.GradingMode == domain.DefaultGradingMode,
			AcceptSynonyms:              true,
			RequireAllConcepts:          true,
			AllowEquivalentFormulations: true,
		},
	}

	answers, isBool := answerValues(item.Answer)
	if requested.IsChoice() {
		options := item.choices()
		if len(options) == 0 && isBool {
			options = append([]string(nil), trueFalseOpts...)
		}
		if len(options) < minChoiceOptions {
			return nil, fmt.Errorf("choice question has %d options", len(options))
		}
		correct := resolveCorrect(options, answers)
		if len(correct) == 0 {
			return nil, errors.New("no resolvable correct option")
		}
		if requested == domain.TypeSingleChoice {
			correct = correct[:1]
		}
		q.Options = options
		q.Rubric = domain.ChoiceRubric(maxPoints)
		q.AnswerKey = domain.AnswerKey{
			Correct:          correct,
			ConceptsRequired: concepts,
			MaxPoints:        maxPoints,
			Explanation:      item.Explanation,
		}
		return q, nil
	}

	rubric := domain.BuildRubric(concepts, topic, maxPoints)
	q.Rubric = rubric
	q.AnswerKey = domain.AnswerKey{
		CanonicalAnswer:  strings.Join(answers, ", "),
		ConceptsRequired: concepts,
		PointBreakdown:   rubric,
		MaxPoints:        maxPoints,
		Explanation:      item.Explanation,
	}
	return q, nil
}
