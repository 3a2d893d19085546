package results

import (
	"github.com/pharmcheck/pharmcheck/internal/bank"
	"github.com/pharmcheck/pharmcheck/internal/scoring"
)

// SubmittedAnswer is one answer as sent to the collector.
type SubmittedAnswer struct {
	ID    string `json:"id" validate:"required"`
	Label string `json:"label"`
	Value int    `json:"value" validate:"gte=0"`
}

// Payload is the body of a result submission.
type Payload struct {
	Nickname string            `json:"nickname,omitempty" validate:"max=64"`
	Answers  []SubmittedAnswer `json:"answers" validate:"required,min=1,dive"`
	Score    map[string]int    `json:"score" validate:"required,dive,gte=0,lte=100"`
}

// NewPayload builds a submission payload from a completed quiz.
func NewPayload(nickname string, answers []bank.Answer, scores []scoring.RoleScore) Payload {
	p := Payload{
		Nickname: nickname,
		Answers:  make([]SubmittedAnswer, len(answers)),
		Score:    scoring.Percentages(scores),
	}
	for i, a := range answers {
		p.Answers[i] = SubmittedAnswer{ID: a.QuestionID, Label: a.Label, Value: a.Value}
	}
	return p
}

// TopRole returns the key with the highest score, breaking ties by order in
// roles. It returns "" for an empty score map.
func (p Payload) TopRole(roles []string) string {
	best, bestPct := "", -1
	for _, k := range roles {
		if v, ok := p.Score[k]; ok && v > bestPct {
			best, bestPct = k, v
		}
	}
	return best
}
