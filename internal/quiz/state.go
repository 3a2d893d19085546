package quiz

import (
	"time"

	"github.com/pharmcheck/pharmcheck/internal/bank"
	"github.com/pharmcheck/pharmcheck/internal/scoring"
)

// Stage is the controller's position in the quiz flow.
type Stage string

const (
	StageLanding    Stage = "landing"     // Waiting for start
	StageInProgress Stage = "in_progress" // Answering question Index
	StageComplete   Stage = "complete"    // All questions answered
)

// State is the full, serializable quiz state.
type State struct {
	Stage Stage `json:"stage"`

	// Index is the current question while in progress.
	Index int `json:"index"`

	// Answers has one slot per question in bank order. Unanswered slots have
	// an empty QuestionID.
	Answers []bank.Answer `json:"answers"`

	Nickname    string    `json:"nickname,omitempty"`
	SessionID   string    `json:"session_id,omitempty"`
	BankVersion string    `json:"bank_version,omitempty"`
	StartedAt   time.Time `json:"started_at,omitzero"`
	CompletedAt time.Time `json:"completed_at,omitzero"`
}

// Answered reports whether question i has a recorded answer.
func (s State) Answered(i int) bool {
	return i >= 0 && i < len(s.Answers) && s.Answers[i].QuestionID != ""
}

// AnsweredCount returns the number of questions with a recorded answer.
func (s State) AnsweredCount() int {
	n := 0
	for i := range s.Answers {
		if s.Answered(i) {
			n++
		}
	}
	return n
}

func (s State) clone() State {
	c := s
	if s.Answers != nil {
		c.Answers = make([]bank.Answer, len(s.Answers))
		copy(c.Answers, s.Answers)
	}
	return c
}

// recorded returns the answered slots in question order.
func (s State) recorded() []bank.Answer {
	out := make([]bank.Answer, 0, len(s.Answers))
	for i := range s.Answers {
		if s.Answered(i) {
			out = append(out, s.Answers[i])
		}
	}
	return out
}

// Outcome is the result of a completed quiz.
type Outcome struct {
	SessionID   string              `json:"session_id"`
	Nickname    string              `json:"nickname,omitempty"`
	BankVersion string              `json:"bank_version"`
	Answers     []bank.Answer       `json:"answers"`
	Scores      []scoring.RoleScore `json:"scores"`
	Ranked      []scoring.RoleScore `json:"ranked"`
	Policy      scoring.Policy      `json:"policy"`
	StartedAt   time.Time           `json:"started_at"`
	CompletedAt time.Time           `json:"completed_at"`
}

// Duration returns how long the quiz took.
func (o Outcome) Duration() time.Duration {
	return o.CompletedAt.Sub(o.StartedAt)
}
