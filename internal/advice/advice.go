// Package advice generates optional AI career advice for a finished quiz.
package advice

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/pharmcheck/pharmcheck/internal/llm"
	"github.com/pharmcheck/pharmcheck/internal/results"
)

// Purpose labels advice calls in the LLM event log.
const Purpose = "career-advice"

// Config holds advice generation settings.
type Config struct {
	MaxTokens   int
	Temperature float64
	Timeout     time.Duration
}

// DefaultConfig returns sensible defaults for advice generation.
func DefaultConfig() Config {
	return Config{
		MaxTokens:   700,
		Temperature: 0.4,
		Timeout:     45 * time.Second,
	}
}

// Input is what the model sees about a result.
type Input struct {
	Nickname string
	Top      []results.Card
}

// Advice is generated guidance for one result.
type Advice struct {
	Summary   string   `json:"summary"`
	Strengths []string `json:"strengths"`
	NextSteps []string `json:"next_steps"`
}

// Schema constrains the model output.
var Schema = &llm.Schema{
	Name:        "career-advice",
	Description: "Short, encouraging career guidance for a pharmacy student",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"summary": map[string]any{
				"type":        "string",
				"description": "2-3 sentences relating the top roles to each other",
			},
			"strengths": map[string]any{
				"type":        "array",
				"items":       map[string]any{"type": "string"},
				"maxItems":    4,
				"description": "Strengths the answers suggest (5-10 words each)",
			},
			"next_steps": map[string]any{
				"type":        "array",
				"items":       map[string]any{"type": "string"},
				"maxItems":    4,
				"description": "Concrete actions for the next semester (5-15 words each)",
			},
		},
		"required":             []any{"summary", "strengths", "next_steps"},
		"additionalProperties": false,
	},
}

const systemPrompt = `You are a careers adviser for pharmacy students.
You receive the top matches from an aptitude quiz with affinity percentages.
Write warm, specific, practical guidance. Do not invent statistics or salaries.
Never discourage the student from any path.`

// Service generates advice off the UI goroutine. One request is tracked at a
// time; a new request supersedes any in flight.
type Service struct {
	provider llm.Provider
	cfg      Config
	logger   *slog.Logger

	mu      sync.Mutex
	gen     int
	pending *Advice
	err     error
	ready   bool
}

// NewService creates an advice service.
func NewService(provider llm.Provider, cfg Config, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{provider: provider, cfg: cfg, logger: logger}
}

// Request starts generating advice in the background. Results are picked up
// with Consume.
func (s *Service) Request(ctx context.Context, in Input) {
	s.mu.Lock()
	s.gen++
	gen := s.gen
	s.pending, s.err, s.ready = nil, nil, false
	s.mu.Unlock()

	go func() {
		a, err := s.Generate(ctx, in)
		if err != nil {
			s.logger.Warn("career advice failed", "error", err)
		}

		s.mu.Lock()
		defer s.mu.Unlock()
		if gen != s.gen {
			return
		}
		s.pending, s.err, s.ready = a, err, true
	}()
}

// Cancel drops any in-flight or unconsumed result.
func (s *Service) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen++
	s.pending, s.err, s.ready = nil, nil, false
}

// Result is a finished background request.
type Result struct {
	Advice *Advice
	Err    error
}

// Consume returns the finished result, if any, and clears it. ok is false
// while generation is still running or when nothing was requested.
func (s *Service) Consume() (Result, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.ready {
		return Result{}, false
	}
	r := Result{Advice: s.pending, Err: s.err}
	s.pending, s.err, s.ready = nil, nil, false
	return r, true
}

// Generate produces advice synchronously.
func (s *Service) Generate(ctx context.Context, in Input) (*Advice, error) {
	if len(in.Top) == 0 {
		return nil, fmt.Errorf("generate advice: no roles to advise on")
	}
	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}
	ctx = llm.WithPurpose(ctx, Purpose)

	req := llm.UserPrompt(systemPrompt, buildUserMessage(in), Schema, s.cfg.MaxTokens)
	req.Temperature = s.cfg.Temperature

	resp, err := s.provider.Generate(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("generate advice: %w", err)
	}
	var a Advice
	if err := json.Unmarshal(resp.Content, &a); err != nil {
		return nil, fmt.Errorf("parse advice response: %w", err)
	}
	return &a, nil
}

func buildUserMessage(in Input) string {
	var b strings.Builder
	if in.Nickname != "" {
		fmt.Fprintf(&b, "Student nickname: %s\n", in.Nickname)
	}
	b.WriteString("Top matches:\n")
	for _, c := range in.Top {
		fmt.Fprintf(&b, "%d. %s (%d%%)", c.Rank, c.Label, c.Percent)
		if c.Tip != "" && c.Tip != results.DefaultTip {
			fmt.Fprintf(&b, ": %s", c.Tip)
		}
		b.WriteString("\n")
	}
	b.WriteString("\nExplain what these matches have in common and suggest next steps.")
	return b.String()
}
