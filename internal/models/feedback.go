package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Feedback submission statuses.
const (
	FeedbackStatusPending   = "pending"
	FeedbackStatusSubmitted = "submitted"
)

// Minimum lengths enforced on submission.
const (
	MinExplanationChars = 10
	MinOverallChars     = 20
)

// Feedback is the interviewer's mandatory post-interview feedback, one per
// request. Submission is terminal and is the sole trigger for escrow release.
type Feedback struct {
	ID          uuid.UUID `json:"id"`
	RequestID   uuid.UUID `json:"request_id"`
	SubmitterID uuid.UUID `json:"submitter_id"`
	Status      string    `json:"status"`

	ProblemUnderstandingRating int    `json:"problem_understanding_rating"`
	ProblemUnderstandingText   string `json:"problem_understanding_text"`
	SolutionApproachRating     int    `json:"solution_approach_rating"`
	SolutionApproachText       string `json:"solution_approach_text"`
	ImplementationSkillRating  int    `json:"implementation_skill_rating"`
	ImplementationSkillText    string `json:"implementation_skill_text"`
	CommunicationRating        int    `json:"communication_rating"`
	CommunicationText          string `json:"communication_text"`
	OverallFeedback            string `json:"overall_feedback"`

	CreatedAt   time.Time  `json:"created_at"`
	SubmittedAt *time.Time `json:"submitted_at,omitempty"`
}

// MissingFields returns the names of incomplete fields. Every rating must be
// 1–5, every explanation at least MinExplanationChars, and the overall text at
// least MinOverallChars.
func (f *Feedback) MissingFields() []string {
	var missing []string
	check := func(rating int, text, ratingName, textName string) {
		if rating < 1 || rating > 5 {
			missing = append(missing, ratingName)
		}
		if len(strings.TrimSpace(text)) < MinExplanationChars {
			missing = append(missing, textName)
		}
	}
	check(f.ProblemUnderstandingRating, f.ProblemUnderstandingText, "problem_understanding_rating", "problem_understanding_text")
	check(f.SolutionApproachRating, f.SolutionApproachText, "solution_approach_rating", "solution_approach_text")
	check(f.ImplementationSkillRating, f.ImplementationSkillText, "implementation_skill_rating", "implementation_skill_text")
	check(f.CommunicationRating, f.CommunicationText, "communication_rating", "communication_text")
	if len(strings.TrimSpace(f.OverallFeedback)) < MinOverallChars {
		missing = append(missing, "overall_feedback")
	}
	return missing
}

// IsComplete reports whether all required fields are filled.
func (f *Feedback) IsComplete() bool {
	return len(f.MissingFields()) == 0
}

// AverageRating is the mean of the four ratings.
func (f *Feedback) AverageRating() float64 {
	sum := f.ProblemUnderstandingRating + f.SolutionApproachRating +
		f.ImplementationSkillRating + f.CommunicationRating
	return float64(sum) / 4
}
