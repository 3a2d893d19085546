// Package quiz drives a single quiz session through landing, questions and
// completion.
package quiz

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/pharmcheck/pharmcheck/internal/bank"
	"github.com/pharmcheck/pharmcheck/internal/results"
	"github.com/pharmcheck/pharmcheck/internal/scoring"
)

// MaxNicknameLength is the longest accepted nickname, in runes.
const MaxNicknameLength = 32

var (
	ErrEmptyBank         = errors.New("question bank has no questions")
	ErrNotInProgress     = errors.New("quiz is not in progress")
	ErrNotComplete       = errors.New("quiz is not complete")
	ErrAlreadyStarted    = errors.New("quiz already started")
	ErrInvalidChoice     = errors.New("invalid choice")
	ErrAtFirstQuestion   = errors.New("already at the first question")
	ErrNicknameRequired  = errors.New("nickname is required")
	ErrNicknameTooLong   = fmt.Errorf("nickname is longer than %d characters", MaxNicknameLength)
	ErrStateInconsistent = errors.New("quiz state does not match question bank")
)

// Notifier is told about every completed quiz. Notifiers run in their own
// goroutine; errors are logged and never reach the user.
type Notifier interface {
	Notify(ctx context.Context, o Outcome) error
}

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(ctx context.Context, o Outcome) error

// Notify calls f.
func (f NotifierFunc) Notify(ctx context.Context, o Outcome) error { return f(ctx, o) }

// Options configures a Controller.
type Options struct {
	// RequireNickname rejects Start with an empty nickname.
	RequireNickname bool

	Scoring   scoring.Config
	Notifiers []Notifier
	Logger    *slog.Logger

	// Now and NewID are overridable for tests.
	Now   func() time.Time
	NewID func() string
}

// Controller owns the quiz state. It is not safe for concurrent use; all
// calls come from the UI loop.
type Controller struct {
	bank  *bank.Bank
	opts  Options
	state State

	outcome *Outcome
	hooks   sync.WaitGroup
}

// New creates a controller in the landing stage.
func New(b *bank.Bank, opts Options) *Controller {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}
	if opts.Scoring.Policy == "" {
		opts.Scoring = scoring.DefaultConfig()
	}
	return &Controller{
		bank:  b,
		opts:  opts,
		state: State{Stage: StageLanding},
	}
}

// Bank returns the question bank the controller walks.
func (c *Controller) Bank() *bank.Bank { return c.bank }

// Stage returns the current stage.
func (c *Controller) Stage() Stage { return c.state.Stage }

// Index returns the current question index.
func (c *Controller) Index() int { return c.state.Index }

// Total returns the number of questions.
func (c *Controller) Total() int { return c.bank.Len() }

// Nickname returns the nickname given at start.
func (c *Controller) Nickname() string { return c.state.Nickname }

// Snapshot returns a deep copy of the current state.
func (c *Controller) Snapshot() State { return c.state.clone() }

// Start moves from landing to the first question.
func (c *Controller) Start(nickname string) error {
	if c.state.Stage != StageLanding {
		return ErrAlreadyStarted
	}
	nickname = strings.TrimSpace(nickname)
	if nickname == "" && c.opts.RequireNickname {
		return ErrNicknameRequired
	}
	if utf8.RuneCountInString(nickname) > MaxNicknameLength {
		return ErrNicknameTooLong
	}
	if c.bank.Len() == 0 {
		return ErrEmptyBank
	}

	c.state = State{
		Stage:       StageInProgress,
		Index:       0,
		Answers:     make([]bank.Answer, c.bank.Len()),
		Nickname:    nickname,
		SessionID:   c.opts.NewID(),
		BankVersion: c.bank.Version,
		StartedAt:   c.opts.Now(),
	}
	c.outcome = nil
	c.opts.Logger.Debug("quiz started", "session", c.state.SessionID, "questions", c.bank.Len())
	return nil
}

// Current returns the question being asked.
func (c *Controller) Current() (bank.Question, bool) {
	if c.state.Stage != StageInProgress {
		return bank.Question{}, false
	}
	return c.bank.QuestionAt(c.state.Index)
}

// Selected returns the option index previously recorded for the current
// question, or -1.
func (c *Controller) Selected() int {
	if c.state.Stage != StageInProgress || !c.state.Answered(c.state.Index) {
		return -1
	}
	return c.state.Answers[c.state.Index].Option
}

// Answer records option for the current question, replacing any earlier
// answer, and advances. Answering the last question completes the quiz and
// fires notifiers.
func (c *Controller) Answer(option int) error {
	if c.state.Stage != StageInProgress {
		return ErrNotInProgress
	}
	i := c.state.Index
	q, ok := c.bank.QuestionAt(i)
	if !ok {
		return ErrStateInconsistent
	}
	opts := q.Options()
	if option < 0 || option >= len(opts) {
		return fmt.Errorf("%w: %d for question %s", ErrInvalidChoice, option, q.ID)
	}

	c.state.Answers[i] = bank.Answer{
		QuestionID: q.ID,
		Option:     option,
		Label:      opts[option].Label,
		Value:      opts[option].Value,
	}

	if i+1 < c.bank.Len() {
		c.state.Index = i + 1
		return nil
	}
	return c.complete()
}

// Back returns to the previous question, keeping all answers.
func (c *Controller) Back() error {
	if c.state.Stage != StageInProgress {
		return ErrNotInProgress
	}
	if c.state.Index == 0 {
		return ErrAtFirstQuestion
	}
	c.state.Index--
	return nil
}

// Abandon leaves an in-progress quiz and returns to landing, dropping answers.
func (c *Controller) Abandon() error {
	if c.state.Stage != StageInProgress {
		return ErrNotInProgress
	}
	c.opts.Logger.Debug("quiz abandoned", "session", c.state.SessionID, "answered", c.state.AnsweredCount())
	c.reset()
	return nil
}

// Restart clears a completed quiz and returns to landing.
func (c *Controller) Restart() error {
	if c.state.Stage != StageComplete {
		return ErrNotComplete
	}
	c.reset()
	return nil
}

func (c *Controller) reset() {
	c.state = State{Stage: StageLanding}
	c.outcome = nil
}

// Progress returns the fraction of the quiz behind the user, in [0,1].
func (c *Controller) Progress() float64 {
	switch c.state.Stage {
	case StageComplete:
		return 1
	case StageInProgress:
		if n := c.bank.Len(); n > 0 {
			return float64(c.state.Index) / float64(n)
		}
	}
	return 0
}

// Scores computes role scores for the answers recorded so far.
func (c *Controller) Scores() []scoring.RoleScore {
	return scoring.Score(c.bank, c.state.recorded(), c.opts.Scoring)
}

// Outcome returns the result of a completed quiz.
func (c *Controller) Outcome() (Outcome, bool) {
	if c.state.Stage != StageComplete || c.outcome == nil {
		return Outcome{}, false
	}
	return *c.outcome, true
}

// Wait blocks until all notifier goroutines started so far have returned.
func (c *Controller) Wait() {
	c.hooks.Wait()
}

func (c *Controller) complete() error {
	for i := range c.state.Answers {
		if !c.state.Answered(i) {
			return fmt.Errorf("%w: question %d unanswered", ErrStateInconsistent, i)
		}
	}
	c.state.Stage = StageComplete
	c.state.CompletedAt = c.opts.Now()

	o := c.buildOutcome()
	c.outcome = &o
	c.opts.Logger.Info("quiz complete",
		"session", o.SessionID,
		"duration", o.Duration().Round(time.Second),
		"top", topRole(o.Ranked))

	for _, n := range c.opts.Notifiers {
		c.notify(n, o)
	}
	return nil
}

func (c *Controller) buildOutcome() Outcome {
	scores := c.Scores()
	answers := c.state.recorded()
	return Outcome{
		SessionID:   c.state.SessionID,
		Nickname:    c.state.Nickname,
		BankVersion: c.state.BankVersion,
		Answers:     answers,
		Scores:      scores,
		Ranked:      results.Rank(scores),
		Policy:      c.opts.Scoring.Policy,
		StartedAt:   c.state.StartedAt,
		CompletedAt: c.state.CompletedAt,
	}
}

// notify runs one hook detached from the caller. The outcome is copied so
// the hook never shares slices with controller state.
func (c *Controller) notify(n Notifier, o Outcome) {
	o.Answers = append([]bank.Answer(nil), o.Answers...)
	o.Scores = append([]scoring.RoleScore(nil), o.Scores...)
	o.Ranked = append([]scoring.RoleScore(nil), o.Ranked...)
	logger := c.opts.Logger

	c.hooks.Add(1)
	go func() {
		defer c.hooks.Done()
		defer func() {
			if r := recover(); r != nil {
				logger.Error("completion hook panicked", "session", o.SessionID, "panic", r)
			}
		}()
		if err := n.Notify(context.Background(), o); err != nil {
			logger.Warn("completion hook failed", "session", o.SessionID, "error", err)
		}
	}()
}

func topRole(ranked []scoring.RoleScore) string {
	if len(ranked) == 0 {
		return ""
	}
	return ranked[0].Role
}
