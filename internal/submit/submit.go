// Package submit sends completed quiz results to a remote collector.
package submit

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/pharmcheck/pharmcheck/internal/quiz"
	"github.com/pharmcheck/pharmcheck/internal/results"
)

// StatusSuccess is the status a collector reports for an accepted submission.
const StatusSuccess = "success"

// maxResponseBytes bounds how much of a collector response is read.
const maxResponseBytes = 64 << 10

var (
	ErrDisabled         = errors.New("submission endpoint not configured")
	ErrRejected         = errors.New("submission rejected")
	ErrUnexpectedStatus = errors.New("unexpected HTTP status")
)

// Config holds submission settings.
type Config struct {
	// Endpoint is the collector URL. Empty disables submission.
	Endpoint string

	// Timeout bounds a single attempt, including reading the response.
	Timeout time.Duration
}

// DefaultConfig returns submission defaults with no endpoint.
func DefaultConfig() Config {
	return Config{Timeout: 10 * time.Second}
}

// Response is the collector's reply.
type Response struct {
	Status  string `json:"status"`
	ID      int64  `json:"id,omitempty"`
	Message string `json:"message,omitempty"`
}

// Submitter posts result payloads. A single attempt is made; failures are
// returned to the caller or logged, never retried.
type Submitter struct {
	cfg    Config
	client *http.Client
	logger *slog.Logger

	pending sync.WaitGroup
}

// New creates a Submitter. A nil client uses http.DefaultClient.
func New(cfg Config, client *http.Client, logger *slog.Logger) *Submitter {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultConfig().Timeout
	}
	if client == nil {
		client = http.DefaultClient
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Submitter{cfg: cfg, client: client, logger: logger}
}

// Enabled reports whether an endpoint is configured.
func (s *Submitter) Enabled() bool {
	return s != nil && s.cfg.Endpoint != ""
}

// Submit posts one payload and waits for the reply.
func (s *Submitter) Submit(ctx context.Context, p results.Payload) (*Response, error) {
	if !s.Enabled() {
		return nil, ErrDisabled
	}
	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	body, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("post submission: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: HTTP %d", ErrUnexpectedStatus, resp.StatusCode)
	}

	var out Response
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if out.Status != StatusSuccess {
		return &out, fmt.Errorf("%w: status %q %s", ErrRejected, out.Status, out.Message)
	}
	return &out, nil
}

// Notify submits a completed quiz. It implements quiz.Notifier, which runs
// it off the UI goroutine. When no endpoint is configured it does nothing.
func (s *Submitter) Notify(ctx context.Context, o quiz.Outcome) error {
	if !s.Enabled() {
		return nil
	}
	resp, err := s.Submit(ctx, results.NewPayload(o.Nickname, o.Answers, o.Scores))
	if err != nil {
		return fmt.Errorf("submit session %s: %w", o.SessionID, err)
	}
	s.logger.Debug("result submitted", "session", o.SessionID, "remote_id", resp.ID)
	return nil
}

// Go submits p in a detached goroutine and logs the outcome.
func (s *Submitter) Go(p results.Payload) {
	if !s.Enabled() {
		return
	}
	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		if _, err := s.Submit(context.Background(), p); err != nil {
			s.logger.Warn("result submission failed", "endpoint", s.cfg.Endpoint, "error", err)
		}
	}()
}

// Wait blocks until submissions started with Go have finished.
func (s *Submitter) Wait() {
	s.pending.Wait()
}
