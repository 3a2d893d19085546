package bank

import "fmt"

// Kind distinguishes how a question is answered.
type Kind string

const (
	KindChoice Kind = "choice" // Explicit choices, each with its own weights
	KindLikert Kind = "likert" // Agreement scale scaling question-level weights
)

// DefaultScale is the number of points on a Likert question when none is given.
const DefaultScale = 5

// Weights maps a role key to the amount a selection contributes to it.
type Weights map[string]float64

// Choice is one selectable answer of a choice question.
type Choice struct {
	Label   string  `yaml:"label" json:"label"`
	Weights Weights `yaml:"weights" json:"weights"`
}

// Question is a single prompt in the bank.
type Question struct {
	ID          string   `yaml:"id" json:"id"`
	Text        string   `yaml:"text" json:"text"`
	Description string   `yaml:"description,omitempty" json:"description,omitempty"`
	Kind        Kind     `yaml:"kind,omitempty" json:"kind,omitempty"`
	Choices     []Choice `yaml:"choices,omitempty" json:"choices,omitempty"`

	// Weights and Scale apply to Likert questions only.
	Weights Weights `yaml:"weights,omitempty" json:"weights,omitempty"`
	Scale   int     `yaml:"scale,omitempty" json:"scale,omitempty"`
}

// Option is a selectable answer regardless of question kind. For choice
// questions Factor is always 1; for Likert questions it is the position on
// the scale mapped into [0,1].
type Option struct {
	Label   string  `json:"label"`
	Value   int     `json:"value"`
	Factor  float64 `json:"factor"`
	Weights Weights `json:"weights"`
}

// likertLabels are used for five-point scales.
var likertLabels = []string{
	"Strongly disagree",
	"Disagree",
	"Neutral",
	"Agree",
	"Strongly agree",
}

// EffectiveKind returns the question kind, treating an empty kind as choice.
func (q Question) EffectiveKind() Kind {
	if q.Kind == "" {
		return KindChoice
	}
	return q.Kind
}

// ScalePoints returns the number of points on a Likert question.
func (q Question) ScalePoints() int {
	if q.Scale == 0 {
		return DefaultScale
	}
	return q.Scale
}

// Options returns the answers a user can pick for this question, in display order.
func (q Question) Options() []Option {
	if q.EffectiveKind() == KindLikert {
		n := q.ScalePoints()
		opts := make([]Option, n)
		for i := range n {
			opts[i] = Option{
				Label:   likertLabel(i, n),
				Value:   i + 1,
				Factor:  float64(i) / float64(n-1),
				Weights: q.Weights,
			}
		}
		return opts
	}

	opts := make([]Option, len(q.Choices))
	for i, c := range q.Choices {
		opts[i] = Option{
			Label:   c.Label,
			Value:   i + 1,
			Factor:  1,
			Weights: c.Weights,
		}
	}
	return opts
}

func likertLabel(i, n int) string {
	if n == len(likertLabels) {
		return likertLabels[i]
	}
	switch i {
	case 0:
		return fmt.Sprintf("1 (%s)", likertLabels[0])
	case n - 1:
		return fmt.Sprintf("%d (%s)", n, likertLabels[len(likertLabels)-1])
	default:
		return fmt.Sprintf("%d", i+1)
	}
}

// Role is a career category the quiz measures affinity toward.
type Role struct {
	Key         string `yaml:"key" json:"key"`
	Label       string `yaml:"label" json:"label"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
	Icon        string `yaml:"icon,omitempty" json:"icon,omitempty"`

	// Image is an asset path relative to the assets directory. When empty,
	// images/<key>.png is tried.
	Image string `yaml:"image,omitempty" json:"image,omitempty"`
}

// Answer is the recorded selection for one question.
type Answer struct {
	QuestionID string `json:"id"`
	Option     int    `json:"option"`
	Label      string `json:"label"`
	Value      int    `json:"value"`
}
