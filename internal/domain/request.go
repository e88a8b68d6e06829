package domain

import "strings"

// Request defaults.
const (
	DefaultTopic        = "general"
	DefaultDifficulty   = "standard"
	DefaultNumQuestions = 10
	DefaultMaxPoints    = 10
	DefaultGradingMode  = "strict_concepts"
)

// DefaultQuestionType is used when a request names no types.
const DefaultQuestionType = TypeShortAnswer

// GenerationRequest asks for a grounded quiz on one course.
type GenerationRequest struct {
	Course               string         `json:"course"`
	Topics               []string       `json:"topics"`
	NoteFiles            []string       `json:"note_files,omitempty"`
	QuestionTypes        []QuestionType `json:"question_types"`
	Difficulty           string         `json:"difficulty"`
	NumQuestions         int            `json:"num_questions"`
	MaxPointsPerQuestion int            `json:"max_points_per_question"`
	GradingMode          string         `json:"grading_mode"`
	Lazy                 *bool          `json:"lazy_generation,omitempty"`
}

// WithDefaults returns a copy with every absent field filled in.
func (r GenerationRequest) WithDefaults() GenerationRequest {
	out := r
	out.Topics = nonEmpty(r.Topics)
	if len(out.Topics) == 0 {
		out.Topics = []string{DefaultTopic}
	}
	out.QuestionTypes = nil
	for _, t := range r.QuestionTypes {
		if t != "" {
			out.QuestionTypes = append(out.QuestionTypes, t)
		}
	}
	if len(out.QuestionTypes) == 0 {
		out.QuestionTypes = []QuestionType{DefaultQuestionType}
	}
	if strings.TrimSpace(out.Difficulty) == "" {
		out.Difficulty = DefaultDifficulty
	}
	if out.NumQuestions <= 0 {
		out.NumQuestions = DefaultNumQuestions
	}
	if out.MaxPointsPerQuestion <= 0 {
		out.MaxPointsPerQuestion = DefaultMaxPoints
	}
	if strings.TrimSpace(out.GradingMode) == "" {
		out.GradingMode = DefaultGradingMode
	}
	out.NoteFiles = nonEmpty(r.NoteFiles)
	return out
}

// OracleDifficulty maps a course difficulty label to the label used in prompts.
func OracleDifficulty(difficulty string) string {
	switch strings.ToLower(difficulty) {
	case "intro":
		return "easy"
	case "advanced", "exam":
		return "hard"
	default:
		return "medium"
	}
}

func nonEmpty(in []string) []string {
	var out []string
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// GenerationMeta describes a generation run.
type GenerationMeta struct {
	SessionID      string   `json:"session_id,omitempty"`
	Course         string   `json:"course"`
	NotesUsed      []string `json:"notes_used"`
	QuestionCount  int      `json:"question_count"`
	Requested      int      `json:"requested"`
	LazyGeneration bool     `json:"lazy_generation"`
}

// GenerationResult is the response to a generation request.
type GenerationResult struct {
	Meta      GenerationMeta `json:"meta"`
	Questions []*Question    `json:"questions"`
}
