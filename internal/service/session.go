package service

import (
	"context"
	"errors"
	"sync"

	"notes-quiz/internal/domain"
	"notes-quiz/internal/logger"
	"notes-quiz/internal/util"

	"go.uber.org/zap"
)

// QuizService drives a single interactive quiz session.
type QuizService interface {
	StartQuiz(ctx context.Context, req domain.GenerationRequest) (*domain.GenerationResult, error)
	CurrentQuestion() (*domain.Question, error)
	NextQuestion(ctx context.Context) (*domain.Question, error)
	SubmitAnswer(ctx context.Context, questionID, answer string) (*domain.Grading, error)
	Progress() domain.QuizProgress
	Summary() (*domain.QuizSummary, error)
	Result(ctx context.Context, sessionID string) (*domain.QuizSummary, error)
	Reset()
}

type quizSession struct {
	id        string
	req       domain.GenerationRequest
	docs      []string
	lazy      bool
	run       *Run
	questions []*domain.Question
	cursor    int
	state     domain.QuizState
	gradings  map[string]*domain.Grading
}

func (s *quizSession) total() int {
	if s.lazy {
		return s.req.NumQuestions
	}
	return len(s.questions)
}

func (s *quizSession) find(questionID string) *domain.Question {
	for _, q := range s.questions {
		if q.ID == questionID {
			return q
		}
	}
	return nil
}

// totals sums the latest grading of every answered question.
func (s *quizSession) totals() (answered, awarded, possible int) {
	for _, g := range s.gradings {
		answered++
		awarded += g.PointsAwarded
		possible += g.PointsPossible
	}
	return answered, awarded, possible
}

// QuizEngine holds at most one quiz session. Calls are serialized.
type QuizEngine struct {
	mu      sync.Mutex
	catalog *CourseCatalog
	gen     *Generator
	grader  *GradingEngine
	results ResultStore
	lazy    bool

	session *quizSession
}

// NewQuizEngine creates an engine. lazy is the generation mode used when a
// request does not choose one.
func NewQuizEngine(catalog *CourseCatalog, gen *Generator, grader *GradingEngine, results ResultStore, lazy bool) *QuizEngine {
	if results == nil {
		results = noopResultStore{}
	}
	return &QuizEngine{
		catalog: catalog,
		gen:     gen,
		grader:  grader,
		results: results,
		lazy:    lazy,
	}
}

// StartQuiz replaces any existing session with a new one for req. In lazy
// mode only the first question is generated. A request that fails leaves the
// previous session in place.
func (e *QuizEngine) StartQuiz(ctx context.Context, req domain.GenerationRequest) (*domain.GenerationResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	req = req.WithDefaults()
	docs, err := e.catalog.Resolve(req.Course, req.NoteFiles)
	if err != nil {
		return nil, err
	}

	lazy := e.lazy
	if req.Lazy != nil {
		lazy = *req.Lazy
	}

	run := e.gen.NewRun(ctx, req, docs)
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
		if lazy {
			break
		}
	}
	if len(questions) == 0 {
		logger.Get().Error("Quiz start failed, no questions generated",
			zap.String("course", req.Course),
			zap.Int("requested", req.NumQuestions),
		)
		return nil, domain.NewGenerationFailedError(req.NumQuestions)
	}

	s := &quizSession{
		id:        util.NewULID(),
		req:       req,
		docs:      docs,
		lazy:      lazy,
		run:       run,
		questions: questions,
		state:     domain.StateInProgress,
		gradings:  make(map[string]*domain.Grading),
	}
	e.session = s

	logger.Get().Info("Quiz started",
		zap.String("session_id", s.id),
		zap.String("course", req.Course),
		zap.Bool("lazy", lazy),
		zap.Int("generated", len(questions)),
		zap.Int("requested", req.NumQuestions),
	)
	return &domain.GenerationResult{
		Meta: domain.GenerationMeta{
			SessionID:      s.id,
			Course:         req.Course,
			NotesUsed:      docs,
			QuestionCount:  len(questions),
			Requested:      req.NumQuestions,
			LazyGeneration: lazy,
		},
		Questions: append([]*domain.Question(nil), questions...),
	}, nil
}

// CurrentQuestion returns the question at the cursor, or nil once the quiz
// is completed.
func (e *QuizEngine) CurrentQuestion() (*domain.Question, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	s := e.session
	if s == nil {
		return nil, domain.NewNoActiveQuizError()
	}
	if s.cursor < len(s.questions) {
		return s.questions[s.cursor], nil
	}
	return nil, nil
}

// NextQuestion advances the cursor, generating the next question in lazy
// mode. It returns nil and marks the session completed when no further
// question exists. A session completed by SubmitAnswer stays completed.
func (e *QuizEngine) NextQuestion(ctx context.Context) (*domain.Question, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	s := e.session
	if s == nil {
		return nil, domain.NewNoActiveQuizError()
	}
	if s.state == domain.StateCompleted {
		return nil, nil
	}

	if s.cursor+1 < len(s.questions) {
		s.cursor++
		return s.questions[s.cursor], nil
	}

	if s.lazy && len(s.questions) < s.req.NumQuestions {
		q, err := s.run.Next(ctx)
		switch {
		case err == nil:
			s.questions = append(s.questions, q)
			s.cursor++
			return q, nil
		case !errors.Is(err, ErrRunExhausted):
			return nil, err
		}
		logger.Get().Warn("Lazy generation ran out of slots",
			zap.String("session_id", s.id),
			zap.Int("generated", len(s.questions)),
			zap.Int("requested", s.req.NumQuestions),
		)
	}

	s.cursor = len(s.questions)
	e.complete(ctx, s)
	return nil, nil
}

func (e *QuizEngine) complete(ctx context.Context, s *quizSession) {
	s.state = domain.StateCompleted
	summary := e.storeResult(ctx, s)
	logger.Get().Info("Quiz completed",
		zap.String("session_id", s.id),
		zap.Int("points_awarded", summary.PointsAwarded),
		zap.Int("points_possible", summary.PointsPossible),
		zap.Int("stars", summary.Stars),
	)
}

func (e *QuizEngine) storeResult(ctx context.Context, s *quizSession) *domain.QuizSummary {
	summary := e.summarize(s)
	if err := e.results.Put(ctx, summary); err != nil {
		logger.Get().Warn("Failed to store quiz result", zap.String("session_id", s.id), zap.Error(err))
	}
	return summary
}

// isFinal reports whether q is the last question the session will have.
func (s *quizSession) isFinal(q *domain.Question) bool {
	if len(s.questions) == 0 || s.questions[len(s.questions)-1] != q {
		return false
	}
	return !s.lazy || len(s.questions) >= s.req.NumQuestions
}

// SubmitAnswer grades answer for a generated question. A resubmission
// replaces the question's earlier grading. Answering the final question at
// the cursor completes the session; a resubmission after completion refreshes
// the stored result.
func (e *QuizEngine) SubmitAnswer(ctx context.Context, questionID, answer string) (*domain.Grading, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	s := e.session
	if s == nil {
		return nil, domain.NewNoActiveQuizError()
	}
	q := s.find(questionID)
	if q == nil {
		return nil, domain.NewQuestionNotFoundError(questionID)
	}

	g := e.grader.Grade(ctx, q, answer)
	s.gradings[q.ID] = g

	logger.Get().Info("Answer graded",
		zap.String("session_id", s.id),
		zap.String("question_id", q.ID),
		zap.String("decision", string(g.Decision)),
		zap.Int("points_awarded", g.PointsAwarded),
		zap.Int("points_possible", g.PointsPossible),
	)

	switch {
	case s.state == domain.StateCompleted:
		e.storeResult(ctx, s)
	case s.cursor == len(s.questions)-1 && s.isFinal(q):
		s.cursor = len(s.questions)
		e.complete(ctx, s)
	}
	return g, nil
}

// Progress reports the session's position and running totals.
func (e *QuizEngine) Progress() domain.QuizProgress {
	e.mu.Lock()
	defer e.mu.Unlock()

	s := e.session
	if s == nil {
		return domain.QuizProgress{State: domain.StateNotStarted}
	}
	answered, awarded, possible := s.totals()
	total := s.total()
	current := s.cursor + 1
	if current > total {
		current = total
	}
	return domain.QuizProgress{
		Active:         true,
		SessionID:      s.id,
		State:          s.state,
		Current:        current,
		Total:          total,
		Completed:      s.state == domain.StateCompleted,
		GeneratedSoFar: len(s.questions),
		Answered:       answered,
		PointsAwarded:  awarded,
		PointsPossible: possible,
	}
}

// Summary rates the session from its latest gradings.
func (e *QuizEngine) Summary() (*domain.QuizSummary, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.session == nil {
		return nil, domain.NewNoActiveQuizError()
	}
	return e.summarize(e.session), nil
}

func (e *QuizEngine) summarize(s *quizSession) *domain.QuizSummary {
	answered, awarded, possible := s.totals()
	pct := 0.0
	if possible > 0 {
		pct = float64(awarded) / float64(possible) * 100
	}
	gradings := make([]*domain.Grading, 0, answered)
	for _, q := range s.questions {
		if g, ok := s.gradings[q.ID]; ok {
			gradings = append(gradings, g)
		}
	}
	return &domain.QuizSummary{
		SessionID:      s.id,
		Course:         s.req.Course,
		Questions:      len(s.questions),
		Answered:       answered,
		PointsAwarded:  awarded,
		PointsPossible: possible,
		Percentage:     pct,
		Stars:          domain.StarsForPercentage(pct),
		Gradings:       gradings,
	}
}

// Result returns the stored summary of a completed session.
func (e *QuizEngine) Result(ctx context.Context, sessionID string) (*domain.QuizSummary, error) {
	return e.results.Get(ctx, sessionID)
}

// Reset discards the session and its questions.
func (e *QuizEngine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.session != nil {
		logger.Get().Info("Quiz reset", zap.String("session_id", e.session.id))
	}
	e.session = nil
}
