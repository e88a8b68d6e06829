package domain

// Decision is the three-way outcome of grading.
type Decision string

const (
	DecisionCorrect          Decision = "correct"
	DecisionPartiallyCorrect Decision = "partially_correct"
	DecisionIncorrect        Decision = "incorrect"
)

// Verdict thresholds shared by multi-choice scoring and the keyword fallback.
const (
	CorrectThreshold   = 0.9
	PartialThreshold   = 0.4
	CriterionThreshold = 0.7
)

// DecisionForRatio applies the correct/partial thresholds to a score ratio.
func DecisionForRatio(ratio float64) Decision {
	switch {
	case ratio >= CorrectThreshold:
		return DecisionCorrect
	case ratio >= PartialThreshold:
		return DecisionPartiallyCorrect
	default:
		return DecisionIncorrect
	}
}

// CriterionCheck reports whether a rubric criterion was satisfied.
type CriterionCheck struct {
	Criterion string `json:"criterion"`
	Met       bool   `json:"met"`
	Evidence  string `json:"evidence"`
}

// GuardFlags tell consumers which safeguards were active while grading.
type GuardFlags struct {
	FalsePositiveCheck bool `json:"false_positive_check"`
	FalseNegativeCheck bool `json:"false_negative_check"`
}

// Grading is the result of scoring one answer.
type Grading struct {
	QuestionID     string              `json:"question_id"`
	PointsAwarded  int                 `json:"points_awarded"`
	PointsPossible int                 `json:"points_possible"`
	Decision       Decision            `json:"decision"`
	Score          float64             `json:"score"`
	Verdict        string              `json:"verdict,omitempty"`
	Checks         []CriterionCheck    `json:"checks"`
	Explanation    string              `json:"explanation"`
	Citations      []GroundingCitation `json:"citations"`
	Guards         GuardFlags          `json:"guards"`
}
