package domain

import (
	"fmt"
	"strings"
)

// QuestionType is the internal question taxonomy.
type QuestionType string

const (
	TypeSingleChoice QuestionType = "mcq_single"
	TypeMultiChoice  QuestionType = "mcq_multi"
	TypeShortAnswer  QuestionType = "short_answer"
	TypeLongAnswer   QuestionType = "long_answer"
	TypeDerivation   QuestionType = "derivation"
	TypeProof        QuestionType = "proof"
	TypeCode         QuestionType = "code"
)

var knownQuestionTypes = map[QuestionType]bool{
	TypeSingleChoice: true,
	TypeMultiChoice:  true,
	TypeShortAnswer:  true,
	TypeLongAnswer:   true,
	TypeDerivation:   true,
	TypeProof:        true,
	TypeCode:         true,
}

// Valid reports whether t belongs to the taxonomy.
func (t QuestionType) Valid() bool {
	return knownQuestionTypes[t]
}

// IsChoice reports whether t is graded deterministically against option letters.
func (t QuestionType) IsChoice() bool {
	return t == TypeSingleChoice || t == TypeMultiChoice
}

// IsOpenEnded reports whether t shares the oracle-assisted grading path.
func (t QuestionType) IsOpenEnded() bool {
	return t.Valid() && !t.IsChoice()
}

// MapOracleType maps the item type reported by the oracle onto the taxonomy.
// Unknown labels map to TypeShortAnswer.
func MapOracleType(label string) QuestionType {
	switch strings.ToLower(strings.TrimSpace(label)) {
	case "mcq", "single", "mcq_single", "true_false", "truefalse":
		return TypeSingleChoice
	case "mcq_multi", "multi", "multiple_select", "multi_select":
		return TypeMultiChoice
	case "long", "long_answer", "essay":
		return TypeLongAnswer
	case "derivation":
		return TypeDerivation
	case "proof":
		return TypeProof
	case "code":
		return TypeCode
	default:
		return TypeShortAnswer
	}
}

// TypesCompatible reports whether a generated item of type generated may fill
// a slot that requested type requested. Models tend to label every choice
// item "mcq", so a single-choice item may fill a multi-choice slot.
func TypesCompatible(requested, generated QuestionType) bool {
	switch {
	case requested == generated:
		return true
	case requested == TypeMultiChoice:
		return generated == TypeSingleChoice
	default:
		return requested.IsOpenEnded() && generated.IsOpenEnded()
	}
}

// GroundingCitation ties a question or grading to a page of a reference document.
type GroundingCitation struct {
	Path  string `json:"path"`
	Page  int    `json:"page"`
	Quote string `json:"quote"`
}

// SearchResult is one ranked page returned by a grounding search.
type SearchResult struct {
	Page    int    `json:"page"`
	Text    string `json:"text"`
	Excerpt string `json:"excerpt"`
	Score   int    `json:"score"`
	Path    string `json:"path"`
}

// RubricCriterion is one weighted grading criterion.
type RubricCriterion struct {
	Criterion string `json:"criterion"`
	Points    int    `json:"points"`
}

// RubricFlags tune how strictly open answers are judged.
type RubricFlags struct {
	StrictConcepts              bool `json:"strict_concepts"`
	AcceptSynonyms              bool `json:"accept_synonyms"`
	RequireAllConcepts          bool `json:"require_all_core_concepts"`
	AllowEquivalentFormulations bool `json:"allow_equivalent_formulations"`
}

// AnswerKey holds the type-dependent expected answer.
type AnswerKey struct {
	// Choice questions.
	Correct []string `json:"correct,omitempty"`

	// Open-ended questions.
	CanonicalAnswer string            `json:"canonical_answer,omitempty"`
	PointBreakdown  []RubricCriterion `json:"point_breakdown,omitempty"`

	ConceptsRequired []string `json:"concepts_required"`
	MaxPoints        int      `json:"max_points"`
	Explanation      string   `json:"explanation,omitempty"`
}

// Question is immutable once emitted by the generator.
type Question struct {
	ID         string              `json:"id"`
	Type       QuestionType        `json:"type"`
	Topic      string              `json:"topic"`
	Difficulty string              `json:"difficulty"`
	Prompt     string              `json:"prompt"`
	Options    []string            `json:"options,omitempty"`
	Citations  []GroundingCitation `json:"grounding"`
	AnswerKey  AnswerKey           `json:"answer_key"`
	Rubric     []RubricCriterion   `json:"rubric"`
	Flags      RubricFlags         `json:"rubric_flags"`
}

// MaxPoints is the rubric total, or DefaultMaxPoints when there is no rubric.
func (q *Question) MaxPoints() int {
	if len(q.Rubric) == 0 {
		if q.AnswerKey.MaxPoints > 0 {
			return q.AnswerKey.MaxPoints
		}
		return DefaultMaxPoints
	}
	total := 0
	for _, c := range q.Rubric {
		total += c.Points
	}
	return total
}

const (
	conceptCriterionFormat = "Correctly explains/uses concept: %s"
	completenessCriterion  = "Answer is complete, accurate, and follows reasoning from notes"
	choiceCriterion        = "Selected the correct option(s)"
)

// BuildRubric splits 70% of maxPoints evenly across concepts and assigns the
// rest, including the integer division remainder, to a trailing completeness
// criterion. Points always sum to maxPoints.
func BuildRubric(concepts []string, topic string, maxPoints int) []RubricCriterion {
	if len(concepts) == 0 {
		concepts = []string{topic}
	}
	conceptPoints := maxPoints * 7 / 10
	per := conceptPoints / len(concepts)

	rubric := make([]RubricCriterion, 0, len(concepts)+1)
	used := 0
	for _, c := range concepts {
		rubric = append(rubric, RubricCriterion{
			Criterion: fmt.Sprintf(conceptCriterionFormat, c),
			Points:    per,
		})
		used += per
	}
	rubric = append(rubric, RubricCriterion{
		Criterion: completenessCriterion,
		Points:    maxPoints - used,
	})
	return rubric
}

// ChoiceRubric is the single all-or-nothing criterion of choice questions.
func ChoiceRubric(maxPoints int) []RubricCriterion {
	return []RubricCriterion{{Criterion: choiceCriterion, Points: maxPoints}}
}
