package service

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"notes-quiz/internal/domain"
	"notes-quiz/internal/logger"
	"notes-quiz/internal/util"

	"go.uber.org/zap"
)

const (
	minMeaningfulRunes = 5
	minKeyTermRunes    = 5
)

var guardPunctuation = strings.NewReplacer(".", "", ",", "", "!", "", "?", "")

// oracleVerdict is the grading response requested from the oracle. Score and
// Verdict are required; a response carrying an error key is not a verdict.
type oracleVerdict struct {
	IsCorrect       bool            `json:"is_correct"`
	Score           *float64        `json:"score"`
	Verdict         *string         `json:"verdict"`
	Justification   string          `json:"justification"`
	ExpectedSummary string          `json:"expected_summary"`
	Error           json.RawMessage `json:"error"`
}

func (v *oracleVerdict) usable() bool {
	hasError := len(v.Error) > 0 && string(v.Error) != "null"
	return v.Score != nil && v.Verdict != nil && !hasError
}

// GradingEngine scores submitted answers. Choice questions are graded
// deterministically; open-ended ones by the oracle with a keyword fallback.
type GradingEngine struct {
	index  domain.GroundingIndex
	oracle domain.Oracle
	cache  GradingCache
}

// GradingOption configures a GradingEngine.
type GradingOption func(*GradingEngine)

// WithGradingCache reuses oracle gradings of repeated answers.
func WithGradingCache(c GradingCache) GradingOption {
	return func(e *GradingEngine) {
		e.cache = c
	}
}

// NewGradingEngine creates a GradingEngine. index resolves citation pages for
// the oracle's reference context.
func NewGradingEngine(index domain.GroundingIndex, oracle domain.Oracle, opts ...GradingOption) *GradingEngine {
	e := &GradingEngine{index: index, oracle: oracle}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Grade scores answer against q. It always returns a grading.
func (e *GradingEngine) Grade(ctx context.Context, q *domain.Question, answer string) *domain.Grading {
	switch q.Type {
	case domain.TypeSingleChoice:
		return e.gradeSingleChoice(q, answer)
	case domain.TypeMultiChoice:
		return e.gradeMultiChoice(q, answer)
	default:
		return e.gradeOpenEnded(ctx, q, answer)
	}
}

func normalizedKey(correct []string) []string {
	var out []string
	for _, c := range correct {
		if l := firstAlpha(c); l != "" {
			out = append(out, l)
		}
	}
	return out
}

func (e *GradingEngine) gradeSingleChoice(q *domain.Question, answer string) *domain.Grading {
	maxPoints := q.MaxPoints()
	selected := firstAlpha(answer)
	key := normalizedKey(q.AnswerKey.Correct)

	isCorrect := false
	for _, k := range key {
		if selected != "" && selected == k {
			isCorrect = true
			break
		}
	}
	expected := "?"
	if len(key) > 0 {
		expected = key[0]
	}

	g := &domain.Grading{
		QuestionID:     q.ID,
		PointsPossible: maxPoints,
		Decision:       domain.DecisionIncorrect,
		Checks: []domain.CriterionCheck{{
			Criterion: "Selected correct option",
			Met:       isCorrect,
			Evidence:  fmt.Sprintf("User selected '%s', correct is %v", selected, key),
		}},
		Explanation: fmt.Sprintf("Incorrect. You selected '%s' but the correct answer is %s.", selected, expected),
		Citations:   q.Citations,
		Guards:      domain.GuardFlags{FalsePositiveCheck: true, FalseNegativeCheck: true},
	}
	if isCorrect {
		g.PointsAwarded = maxPoints
		g.Decision = domain.DecisionCorrect
		g.Score = 1
		g.Explanation = fmt.Sprintf("Correct! The answer is %s.", expected)
	}
	return g
}

func (e *GradingEngine) gradeMultiChoice(q *domain.Question, answer string) *domain.Grading {
	maxPoints := q.MaxPoints()

	all := make(map[string]bool)
	for i, opt := range q.Options {
		all[optionLetter(i, opt)] = true
	}
	correct := make(map[string]bool)
	for _, l := range normalizedKey(q.AnswerKey.Correct) {
		correct[l] = true
	}
	incorrect := make(map[string]bool)
	for l := range all {
		if !correct[l] {
			incorrect[l] = true
		}
	}

	selected := selectedLetters(answer)
	var chosenCorrect, chosenIncorrect []string
	for l := range selected {
		switch {
		case correct[l]:
			chosenCorrect = append(chosenCorrect, l)
		case incorrect[l]:
			chosenIncorrect = append(chosenIncorrect, l)
		}
	}
	sort.Strings(chosenCorrect)
	sort.Strings(chosenIncorrect)

	ratio := 0.0
	if len(correct) > 0 {
		ratio = float64(len(chosenCorrect)) / float64(len(correct))
		if len(incorrect) > 0 {
			ratio -= float64(len(chosenIncorrect)) / float64(len(incorrect))
		}
		ratio = clamp01(ratio)
	}
	points := int(math.Round(ratio * float64(maxPoints)))
	decision := domain.DecisionForRatio(ratio)

	citationHint := ""
	if len(q.Citations) > 0 {
		c := q.Citations[0]
		citationHint = fmt.Sprintf(" (See %s, p. %d)", c.Path, c.Page)
	}
	incorrectEvidence := "none"
	if len(chosenIncorrect) > 0 {
		incorrectEvidence = fmt.Sprintf("%v", chosenIncorrect)
	}

	return &domain.Grading{
		QuestionID:     q.ID,
		PointsAwarded:  points,
		PointsPossible: maxPoints,
		Decision:       decision,
		Score:          ratio,
		Checks: []domain.CriterionCheck{
			{
				Criterion: "Selected all correct options",
				Met:       len(chosenCorrect) == len(correct),
				Evidence:  fmt.Sprintf("Chose %d/%d correct options: %v", len(chosenCorrect), len(correct), chosenCorrect),
			},
			{
				Criterion: "No incorrect options selected",
				Met:       len(chosenIncorrect) == 0,
				Evidence:  fmt.Sprintf("Chose %d incorrect options: %s", len(chosenIncorrect), incorrectEvidence),
			},
		},
		Explanation: fmt.Sprintf("%s. Score: %d/%d points.\nCorrect options chosen: %d/%d\nIncorrect options chosen: %d\nCorrect answer: %s%s",
			verdictTitle(string(decision)), points, maxPoints,
			len(chosenCorrect), len(correct), len(chosenIncorrect),
			strings.Join(sortedKeys(correct), ", "), citationHint),
		Citations: q.Citations,
		Guards:    domain.GuardFlags{FalsePositiveCheck: true, FalseNegativeCheck: true},
	}
}

// openCriteria is the point breakdown an open answer is scored against.
func openCriteria(q *domain.Question) []domain.RubricCriterion {
	if len(q.AnswerKey.PointBreakdown) > 0 {
		return q.AnswerKey.PointBreakdown
	}
	return q.Rubric
}

func openMaxPoints(criteria []domain.RubricCriterion) int {
	if len(criteria) == 0 {
		return domain.DefaultMaxPoints
	}
	total := 0
	for _, c := range criteria {
		total += c.Points
	}
	return total
}

// meaningfulRunes counts the answer's runes once sentence punctuation and
// surrounding whitespace are removed.
func meaningfulRunes(answer string) int {
	return utf8.RuneCountInString(strings.TrimSpace(guardPunctuation.Replace(strings.TrimSpace(answer))))
}

func (e *GradingEngine) gradeOpenEnded(ctx context.Context, q *domain.Question, answer string) *domain.Grading {
	l := logger.Get().With(zap.String("question_id", q.ID), zap.String("type", string(q.Type)))

	// Short answers bypass the cache so a similar hit cannot lift them above zero.
	meaningful := meaningfulRunes(answer)
	useCache := e.cache != nil && meaningful >= minMeaningfulRunes
	if useCache {
		if g, ok := e.cache.Get(ctx, q, answer); ok {
			return g
		}
	}

	reference := e.referenceContent(ctx, q)
	raw, err := e.oracle.GenerateJSON(ctx, domain.OracleRequest{
		Prompt:      buildGradingPrompt(q, answer, reference),
		System:      gradingSystemPrompt,
		Temperature: gradingTemperature,
		MaxTokens:   gradingMaxTokens,
	})
	if err != nil {
		l.Warn("Oracle grading failed, using keyword fallback", zap.Error(err))
		return e.fallbackGrade(q, answer)
	}

	var v oracleVerdict
	if err := json.Unmarshal(raw, &v); err != nil {
		l.Warn("Unusable oracle grading, using keyword fallback", zap.Error(err))
		return e.fallbackGrade(q, answer)
	}
	if !v.usable() {
		l.Warn("Oracle grading missing score or verdict, using keyword fallback", zap.ByteString("response", raw))
		return e.fallbackGrade(q, answer)
	}

	criteria := openCriteria(q)
	maxPoints := openMaxPoints(criteria)
	score := clamp01(*v.Score)
	verdict := strings.ToLower(strings.TrimSpace(*v.Verdict))
	justification := v.Justification
	expected := v.ExpectedSummary
	if strings.TrimSpace(expected) == "" {
		expected = q.AnswerKey.CanonicalAnswer
	}
	points := int(math.Floor(score * float64(maxPoints)))

	if meaningful < minMeaningfulRunes {
		l.Info("Answer too short to evaluate, forcing zero points", zap.Int("meaningful_characters", meaningful))
		points = 0
		score = 0
		verdict = string(domain.DecisionIncorrect)
		justification = fmt.Sprintf("Answer is too short/empty to evaluate (%d meaningful characters). %s", meaningful, justification)
	}

	checks := make([]domain.CriterionCheck, 0, len(criteria))
	for _, c := range criteria {
		checks = append(checks, domain.CriterionCheck{
			Criterion: c.Criterion,
			Met:       score >= domain.CriterionThreshold,
			Evidence:  justification,
		})
	}

	g := &domain.Grading{
		QuestionID:     q.ID,
		PointsAwarded:  points,
		PointsPossible: maxPoints,
		Decision:       decisionForVerdict(verdict),
		Score:          score,
		Verdict:        verdict,
		Checks:         checks,
		Explanation: fmt.Sprintf("%s. Score: %d/%d points.\n\n%s\n\nExpected: %s",
			verdictTitle(verdict), points, maxPoints, justification, expected),
		Citations: q.Citations,
		Guards:    domain.GuardFlags{FalsePositiveCheck: true, FalseNegativeCheck: true},
	}
	if useCache {
		e.cache.Put(ctx, q, answer, g)
	}
	l.Info("Graded open answer", zap.String("verdict", verdict), zap.Int("points", points), zap.Int("max_points", maxPoints))
	return g
}

// referenceContent joins the cited pages, falling back to the canonical answer.
func (e *GradingEngine) referenceContent(ctx context.Context, q *domain.Question) string {
	var texts []string
	for _, c := range q.Citations {
		if text, ok := e.index.PageContent(ctx, c.Path, c.Page); ok && text != "" {
			texts = append(texts, util.TruncateRunes(text, referencePageRunes))
		}
	}
	if len(texts) == 0 {
		return q.AnswerKey.CanonicalAnswer
	}
	return strings.Join(texts, "\n")
}

func decisionForVerdict(verdict string) domain.Decision {
	switch verdict {
	case "exact", "semantically_correct":
		return domain.DecisionCorrect
	case "partially_correct":
		return domain.DecisionPartiallyCorrect
	default:
		return domain.DecisionIncorrect
	}
}

// keyTerms are the distinct lower-cased words of the canonical answer longer
// than four runes, stripped of surrounding punctuation.
func keyTerms(canonical string) []string {
	seen := make(map[string]bool)
	var terms []string
	for _, w := range strings.Fields(strings.ToLower(canonical)) {
		w = strings.TrimFunc(w, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r)
		})
		if utf8.RuneCountInString(w) < minKeyTermRunes || seen[w] {
			continue
		}
		seen[w] = true
		terms = append(terms, w)
	}
	return terms
}

// fallbackGrade scores by key term overlap with the canonical answer.
func (e *GradingEngine) fallbackGrade(q *domain.Question, answer string) *domain.Grading {
	maxPoints := q.MaxPoints()
	terms := keyTerms(q.AnswerKey.CanonicalAnswer)
	lowered := strings.ToLower(answer)

	matched := 0
	for _, t := range terms {
		if strings.Contains(lowered, t) {
			matched++
		}
	}
	ratio := 0.0
	if len(terms) > 0 {
		ratio = float64(matched) / float64(len(terms))
	}
	if meaningfulRunes(answer) < minMeaningfulRunes {
		ratio = 0
	}
	points := int(math.Floor(ratio * float64(maxPoints)))
	evidence := fmt.Sprintf("Matched %d/%d key terms", matched, len(terms))

	criteria := openCriteria(q)
	checks := make([]domain.CriterionCheck, 0, len(criteria))
	for _, c := range criteria {
		checks = append(checks, domain.CriterionCheck{
			Criterion: c.Criterion,
			Met:       ratio >= domain.CriterionThreshold,
			Evidence:  evidence,
		})
	}
	if len(checks) == 0 {
		checks = append(checks, domain.CriterionCheck{
			Criterion: "Answer completeness",
			Met:       ratio >= domain.CriterionThreshold,
			Evidence:  evidence,
		})
	}

	return &domain.Grading{
		QuestionID:     q.ID,
		PointsAwarded:  points,
		PointsPossible: maxPoints,
		Decision:       domain.DecisionForRatio(ratio),
		Score:          ratio,
		Checks:         checks,
		Explanation:    fmt.Sprintf("Basic grading: %d/%d points. %s.", points, maxPoints, evidence),
		Citations:      q.Citations,
		Guards:         domain.GuardFlags{},
	}
}

// verdictTitle renders "partially_correct" as "Partially Correct".
func verdictTitle(verdict string) string {
	words := strings.Fields(strings.ReplaceAll(verdict, "_", " "))
	for i, w := range words {
		r := []rune(strings.ToLower(w))
		r[0] = unicode.ToUpper(r[0])
		words[i] = string(r)
	}
	if len(words) == 0 {
		return "Incorrect"
	}
	return strings.Join(words, " ")
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
