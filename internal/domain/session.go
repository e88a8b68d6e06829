package domain

// QuizState is the lifecycle of the quiz session.
type QuizState string

const (
	StateNotStarted QuizState = "not_started"
	StateInProgress QuizState = "in_progress"
	StateCompleted  QuizState = "completed"
)

// QuizProgress is a snapshot of the active session.
type QuizProgress struct {
	Active         bool      `json:"active"`
	SessionID      string    `json:"session_id,omitempty"`
	State          QuizState `json:"state"`
	Current        int       `json:"current"`
	Total          int       `json:"total"`
	Completed      bool      `json:"completed"`
	GeneratedSoFar int       `json:"generated_so_far"`
	Answered       int       `json:"answered"`
	PointsAwarded  int       `json:"points_awarded"`
	PointsPossible int       `json:"points_possible"`
}

// QuizSummary is reported once a session is finished.
type QuizSummary struct {
	SessionID      string     `json:"session_id"`
	Course         string     `json:"course"`
	Questions      int        `json:"questions"`
	Answered       int        `json:"answered"`
	PointsAwarded  int        `json:"points_awarded"`
	PointsPossible int        `json:"points_possible"`
	Percentage     float64    `json:"percentage"`
	Stars          int        `json:"stars"`
	Gradings       []*Grading `json:"gradings"`
}

// StarsForPercentage rates a finished quiz from 1 to 5.
func StarsForPercentage(pct float64) int {
	switch {
	case pct >= 90:
		return 5
	case pct >= 80:
		return 4
	case pct >= 70:
		return 3
	case pct >= 60:
		return 2
	default:
		return 1
	}
}

// Course is a catalog entry mapping a code to its default notes.
type Course struct {
	Code      string   `json:"code"`
	Name      string   `json:"name"`
	NoteFiles []string `json:"note_files"`
}

// CourseInfo reports a course and which of its default notes are on disk.
type CourseInfo struct {
	Code           string   `json:"code"`
	Name           string   `json:"name"`
	NotesAvailable int      `json:"notes_available"`
	NoteFiles      []string `json:"note_files"`
}

// TopicMatch locates the first page covering a topic.
type TopicMatch struct {
	Topic string `json:"topic"`
	File  string `json:"file"`
	Page  int    `json:"page"`
}

// TopicValidation is the outcome of checking topics against course notes.
type TopicValidation struct {
	Found       []TopicMatch        `json:"found"`
	NotFound    []string            `json:"not_found"`
	Suggestions map[string][]string `json:"suggestions"`
}

// StudySource is a page the study assistant drew on.
type StudySource struct {
	Path    string `json:"path"`
	Page    int    `json:"page"`
	Excerpt string `json:"excerpt"`
}

// StudyAnswer is the study assistant's reply.
type StudyAnswer struct {
	Answer    string        `json:"answer"`
	Sources   []StudySource `json:"sources"`
	FoundInfo bool          `json:"found_info"`
}
