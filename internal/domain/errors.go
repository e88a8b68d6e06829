package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrorCode represents a specific type of error in the domain
type ErrorCode string

const (
	// Common errors
	CodeInternal      ErrorCode = "internal_error"
	CodeInvalidInput  ErrorCode = "invalid_input"
	CodeValidation    ErrorCode = "validation_error"
	CodeMissingField  ErrorCode = "missing_field"
	CodeInvalidFormat ErrorCode = "invalid_format"
	CodeOutOfRange    ErrorCode = "out_of_range"

	// Generation errors
	CodeInvalidCourse    ErrorCode = "invalid_course"
	CodeMissingNotes     ErrorCode = "missing_notes"
	CodeGenerationFailed ErrorCode = "generation_failed"

	// Session lookup errors
	CodeNoActiveQuiz     ErrorCode = "no_active_quiz"
	CodeQuestionNotFound ErrorCode = "question_not_found"
	CodeResultNotFound   ErrorCode = "result_not_found"

	CodeOracleError ErrorCode = "oracle_error"
)

// ErrNoUsableOutput is the single failure variant of the oracle. Transport
// errors, timeouts and unparseable output all wrap it.
var ErrNoUsableOutput = errors.New("oracle: no usable output")

// DomainError represents a domain-specific error
type DomainError struct {
	Code    ErrorCode              `json:"type"`
	Message string                 `json:"message"`
	Cause   error                  `json:"-"`
	Context map[string]interface{} `json:"details,omitempty"`
}

func (e *DomainError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Cause
}

// MarshalJSON implements the json.Marshaler interface
func (e *DomainError) MarshalJSON() ([]byte, error) {
	return json.Marshal(&struct {
		Type    string                 `json:"type"`
		Message string                 `json:"message"`
		Details map[string]interface{} `json:"details,omitempty"`
	}{
		Type:    string(e.Code),
		Message: e.Message,
		Details: e.Context,
	})
}

// WithContext attaches a detail field and returns the same error.
func (e *DomainError) WithContext(key string, value interface{}) *DomainError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// NewError creates a new DomainError
func NewError(code ErrorCode, message string, cause error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// HasCode reports whether err is a DomainError carrying code.
func HasCode(err error, code ErrorCode) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code == code
	}
	return false
}

func NewInvalidInputError(message string) *DomainError {
	return NewError(CodeInvalidInput, message, nil)
}

func NewInternalError(message string, cause error) *DomainError {
	return NewError(CodeInternal, message, cause)
}

func NewInvalidCourseError(course string, available []string) *DomainError {
	msg := fmt.Sprintf("Unknown course: %q", course)
	if course == "" {
		msg = "Course is required"
	}
	return NewError(CodeInvalidCourse, msg, nil).
		WithContext("available_courses", available)
}

func NewMissingNotesError(requested, missing []string) *DomainError {
	msg := "No note files available for this course"
	if len(missing) > 0 {
		msg = fmt.Sprintf("Note files not found: %s", strings.Join(missing, ", "))
	}
	return NewError(CodeMissingNotes, msg, nil).
		WithContext("requested_files", requested).
		WithContext("missing_files", missing)
}

func NewGenerationFailedError(requested int) *DomainError {
	return NewError(CodeGenerationFailed,
		fmt.Sprintf("Failed to generate any of the %d requested questions", requested), nil)
}

func NewNoActiveQuizError() *DomainError {
	return NewError(CodeNoActiveQuiz, "No active quiz session", nil)
}

func NewQuestionNotFoundError(questionID string) *DomainError {
	return NewError(CodeQuestionNotFound, fmt.Sprintf("Question not found: %s", questionID), nil).
		WithContext("question_id", questionID)
}

func NewResultNotFoundError(sessionID string) *DomainError {
	return NewError(CodeResultNotFound, fmt.Sprintf("No stored result for session: %s", sessionID), nil).
		WithContext("session_id", sessionID)
}

func NewOracleError(cause error) *DomainError {
	return NewError(CodeOracleError, "Failed to process with generation oracle", cause)
}

// ValidationError describes one rejected request field.
type ValidationError struct {
	Field   string      `json:"field"`
	Code    ErrorCode   `json:"code"`
	Message string      `json:"message"`
	Value   interface{} `json:"value,omitempty"`
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors is returned by request validation and rendered as a 400.
type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	msgs := make([]string, 0, len(v))
	for _, e := range v {
		msgs = append(msgs, e.Error())
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

func NewMissingFieldError(field string) ValidationError {
	return ValidationError{Field: field, Code: CodeMissingField, Message: "field is required"}
}

func NewInvalidFormatError(field string, value interface{}) ValidationError {
	return ValidationError{Field: field, Code: CodeInvalidFormat, Message: "invalid format", Value: value}
}

func NewOutOfRangeError(field string, value interface{}, min, max int) ValidationError {
	return ValidationError{
		Field:   field,
		Code:    CodeOutOfRange,
		Message: fmt.Sprintf("must be between %d and %d", min, max),
		Value:   value,
	}
}
