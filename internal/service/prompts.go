package service

import (
	"encoding/json"
	"fmt"
	"strings"

	"notes-quiz/internal/domain"
	"notes-quiz/internal/util"
)

const (
	generationSystemPrompt = "Generate quiz question. Return ONLY valid JSON."
	gradingSystemPrompt    = "You are an academic examiner evaluating a student's short answer for a university-level quiz. " +
		"Grade fairly and educationally, focusing on meaning rather than wording. Return only valid JSON."
	assistantSystemPrompt = "You are a study assistant for a university course. Answer only from the provided course notes " +
		"and cite sources as [Source n]. If the notes do not cover the question, say so."

	generationTemperature = 0.8
	generationMaxTokens   = 500
	gradingTemperature    = 0.2
	gradingMaxTokens      = 1000
	assistantTemperature  = 0.4
	assistantMaxTokens    = 1200

	promptChunkRunes    = 1000
	referencePageRunes  = 1000
	gradingContextRunes = 1500
	assistantPageRunes  = 2500
)

var variationHints = []string{
	"Focus on a specific detail or concept.",
	"Ask about the main idea or relationship between concepts.",
	"Test understanding of technical terms or definitions.",
	"Challenge comprehension of how concepts work together.",
	"Focus on practical applications or implications.",
}

type exampleItem struct {
	ID          string      `json:"id"`
	Type        string      `json:"type"`
	Question    string      `json:"question"`
	Choices     []string    `json:"choices,omitempty"`
	Answer      interface{} `json:"answer"`
	Explanation string      `json:"explanation"`
	Tags        []string    `json:"tags"`
}

type exampleEnvelope struct {
	Topic      string        `json:"topic"`
	Difficulty string        `json:"difficulty"`
	Items      []exampleItem `json:"items"`
}

// exampleJSON renders the response shape shown to the oracle for qtype.
func exampleJSON(topic, difficulty string, qtype domain.QuestionType) string {
	item := exampleItem{
		ID:          "q1",
		Explanation: "Why this is correct",
		Tags:        []string{"concept"},
	}
	switch qtype {
	case domain.TypeSingleChoice:
		item.Type = "mcq"
		item.Question = "What is the main concept discussed?"
		item.Choices = []string{"A: Option 1", "B: Option 2", "C: Option 3", "D: Option 4"}
		item.Answer = "A"
	case domain.TypeMultiChoice:
		item.Type = "mcq_multi"
		item.Question = "Which of the following statements are true?"
		item.Choices = []string{"A: Option 1", "B: Option 2", "C: Option 3", "D: Option 4"}
		item.Answer = []string{"A", "C"}
	case domain.TypeLongAnswer:
		item.Type = "long"
		item.Question = "Explain in detail how the main concept works."
		item.Answer = "A paragraph-length answer here"
	case domain.TypeDerivation:
		item.Type = "derivation"
		item.Question = "Derive the relationship between the quantities discussed."
		item.Answer = "Step-by-step derivation"
	case domain.TypeProof:
		item.Type = "proof"
		item.Question = "Prove that the stated property holds."
		item.Answer = "Proof steps"
	case domain.TypeCode:
		item.Type = "code"
		item.Question = "Write a function that implements the described procedure."
		item.Answer = "Reference solution"
	default:
		item.Type = "short"
		item.Question = "What is the main concept?"
		item.Answer = "Brief answer here"
	}

	out, _ := json.MarshalIndent(exampleEnvelope{
		Topic:      topic,
		Difficulty: domain.OracleDifficulty(difficulty),
		Items:      []exampleItem{item},
	}, "", "  ")
	return string(out)
}

func buildGenerationPrompt(topic, difficulty string, qtype domain.QuestionType, hint, chunk string) string {
	return fmt.Sprintf("Create a unique quiz question from this text. %s\n\n%s\n\nReturn ONLY this JSON (no extra text):\n%s",
		hint, chunk, exampleJSON(topic, difficulty, qtype))
}

func buildGradingPrompt(q *domain.Question, answer, reference string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Question:\n%s\n\n", q.Prompt)
	fmt.Fprintf(&b, "Correct Answer:\n%s\n\n", q.AnswerKey.CanonicalAnswer)
	if len(q.AnswerKey.ConceptsRequired) > 0 {
		fmt.Fprintf(&b, "Required Concepts:\n%s\n\n", strings.Join(q.AnswerKey.ConceptsRequired, ", "))
	}
	fmt.Fprintf(&b, "Student Answer:\n%s", answer)
	if reference != "" {
		fmt.Fprintf(&b, "\n\nContext (optional, if available):\n%s", util.TruncateRunes(reference, gradingContextRunes))
	}
	b.WriteString(`

Now grade the student's answer according to the schema and principles below.
Return **only JSON**, no commentary or markdown.

Expected JSON Schema:
{
  "is_correct": boolean,
  "score": number,          // 0.0 to 1.0
  "verdict": "exact" | "semantically_correct" | "partially_correct" | "incorrect",
  "justification": string,  // brief academic feedback for the student
  "expected_summary": string // concise gold-standard answer
}

Grading principles:
- Accept synonyms or equivalent phrasing.
- Minor spelling or grammar errors are ignored.
- Penalize missing key points, wrong facts, or contradictions.
- If the answer shows partial understanding, mark "partially_correct" with score 0.4-0.7.
- If the student adds incorrect facts, mark as "incorrect".
- Always explain why the answer is or isn't correct, clearly and kindly.`)
	return b.String()
}

func buildAssistantPrompt(question string, sources []string) string {
	var b strings.Builder
	b.WriteString("Course notes:\n\n")
	for i, s := range sources {
		fmt.Fprintf(&b, "[Source %d]\n%s\n\n", i+1, s)
	}
	fmt.Fprintf(&b, "Student question: %s\n\nAnswer using only the notes above.", question)
	return b.String()
}
