package dto

import "notes-quiz/internal/domain"

// StartQuizRequest represents the body of POST /api/quiz
type StartQuizRequest struct {
	Course               string   `json:"course" validate:"required,max=50"`
	Topics               []string `json:"topics" validate:"omitempty,max=20,dive,max=200"`
	NoteFiles            []string `json:"note_files" validate:"omitempty,max=20,dive,required"`
	QuestionTypes        []string `json:"question_types" validate:"omitempty,max=7,dive,oneof=mcq_single mcq_multi short_answer long_answer derivation proof code"`
	Difficulty           string   `json:"difficulty" validate:"omitempty,max=30"`
	NumQuestions         int      `json:"num_questions" validate:"omitempty,min=1,max=50"`
	MaxPointsPerQuestion int      `json:"max_points_per_question" validate:"omitempty,min=1,max=100"`
	GradingMode          string   `json:"grading_mode" validate:"omitempty,max=50"`
	LazyGeneration       *bool    `json:"lazy_generation"`
}

// ToDomain converts the request into a generation request.
func (r StartQuizRequest) ToDomain() domain.GenerationRequest {
	types := make([]domain.QuestionType, 0, len(r.QuestionTypes))
	for _, t := range r.QuestionTypes {
		types = append(types, domain.QuestionType(t))
	}
	return domain.GenerationRequest{
		Course:               r.Course,
		Topics:               r.Topics,
		NoteFiles:            r.NoteFiles,
		QuestionTypes:        types,
		Difficulty:           r.Difficulty,
		NumQuestions:         r.NumQuestions,
		MaxPointsPerQuestion: r.MaxPointsPerQuestion,
		GradingMode:          r.GradingMode,
		Lazy:                 r.LazyGeneration,
	}
}

// SubmitAnswerRequest represents a user's answer to a generated question
type SubmitAnswerRequest struct {
	QuestionID string `json:"question_id" validate:"required,max=20"`
	Answer     string `json:"answer" validate:"max=5000"`
}

// TopicsRequest lists topics to look up in a course's notes
type TopicsRequest struct {
	Topics []string `json:"topics" validate:"required,min=1,max=20,dive,max=200"`
}

// AskRequest represents a question for the study assistant
type AskRequest struct {
	Course   string `json:"course" validate:"required,max=50"`
	Question string `json:"question" validate:"required,max=2000"`
}

// QuestionResponse wraps the question at the cursor. Question is null once
// the quiz is completed.
type QuestionResponse struct {
	Question *domain.Question    `json:"question"`
	Progress domain.QuizProgress `json:"progress"`
}

// GradingResponse wraps the grading of a submitted answer
type GradingResponse struct {
	Grading *domain.Grading `json:"grading"`
}

// CoursesResponse lists the course catalog
type CoursesResponse struct {
	Courses []domain.CourseInfo `json:"courses"`
}

// HealthResponse reports service and dependency status
type HealthResponse struct {
	Status string `json:"status"`
	Redis  string `json:"redis"`
}

// ErrorBody is the inner object of the error envelope
type ErrorBody struct {
	Type    string      `json:"type"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// ErrorResponse represents an error in the API response
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}
