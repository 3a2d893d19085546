package result

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	tea "charm.land/bubbletea/v2"

	"github.com/pharmcheck/pharmcheck/internal/advice"
	"github.com/pharmcheck/pharmcheck/internal/bank"
	"github.com/pharmcheck/pharmcheck/internal/llm"
	"github.com/pharmcheck/pharmcheck/internal/logging"
	"github.com/pharmcheck/pharmcheck/internal/quiz"
	"github.com/pharmcheck/pharmcheck/internal/results"
	"github.com/pharmcheck/pharmcheck/internal/router"
	"github.com/pharmcheck/pharmcheck/internal/screen"
)

// completed runs the default bank to completion, always picking the first
// option.
func completed(t *testing.T) *quiz.Controller {
	t.Helper()
	b, err := bank.Default()
	if err != nil {
		t.Fatalf("default bank: %v", err)
	}
	ctrl := quiz.New(b, quiz.Options{Logger: logging.Discard()})
	if err := ctrl.Start("mio"); err != nil {
		t.Fatalf("start: %v", err)
	}
	for ctrl.Stage() == quiz.StageInProgress {
		if err := ctrl.Answer(0); err != nil {
			t.Fatalf("answer: %v", err)
		}
	}
	return ctrl
}

func TestResultScreen_View(t *testing.T) {
	ctrl := completed(t)
	s := New(ctrl, Options{})
	if len(s.cards) != results.DefaultTopN {
		t.Fatalf("cards = %d, want %d", len(s.cards), results.DefaultTopN)
	}
	if cmd := s.Init(); cmd != nil {
		t.Error("Init without advice should not schedule work")
	}

	view := s.View(100, 200)
	for _, want := range []string{"mio, your top matches", s.cards[0].Label, "100%", "All roles", "Next steps"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}
	if s.Status() != "mio" {
		t.Errorf("Status = %q, want mio", s.Status())
	}
}

func TestResultScreen_RestartPopsToRoot(t *testing.T) {
	ctrl := completed(t)
	s := New(ctrl, Options{})
	_, cmd := s.Update(tea.KeyPressMsg{Code: tea.KeyEnter})
	if cmd == nil {
		t.Fatal("expected command on Enter")
	}
	msg, ok := cmd().(router.PopToRootMsg)
	if !ok {
		t.Fatalf("msg = %T, want PopToRootMsg", cmd())
	}
	if _, ok := msg.Notify.(screen.ResetMsg); !ok {
		t.Errorf("Notify = %T, want ResetMsg", msg.Notify)
	}
	if ctrl.Stage() != quiz.StageLanding {
		t.Errorf("Stage = %v, want landing", ctrl.Stage())
	}
}

func TestResultScreen_Scroll(t *testing.T) {
	s := New(completed(t), Options{})
	full := s.View(100, 200)
	s.Update(tea.KeyPressMsg{Code: tea.KeyDown})
	s.Update(tea.KeyPressMsg{Code: tea.KeyDown})
	scrolled := s.View(100, 10)
	if scrolled == full {
		t.Error("scrolled view should differ from the full view")
	}
	if s.offset != 2 {
		t.Errorf("offset = %d, want 2", s.offset)
	}
	s.Update(tea.KeyPressMsg{Code: tea.KeyUp})
	s.Update(tea.KeyPressMsg{Code: tea.KeyUp})
	s.Update(tea.KeyPressMsg{Code: tea.KeyUp})
	if s.offset != 0 {
		t.Errorf("offset = %d, want 0", s.offset)
	}
}

func TestResultScreen_Advice(t *testing.T) {
	mock := llm.NewMockProvider(llm.MockResponse{Content: json.RawMessage(`{
		"summary": "A patient-facing profile.",
		"strengths": ["Empathy"],
		"next_steps": ["Volunteer at a community pharmacy"]
	}`)})
	svc := advice.NewService(mock, advice.DefaultConfig(), logging.Discard())
	s := New(completed(t), Options{Advice: svc})

	if cmd := s.Init(); cmd == nil {
		t.Fatal("expected advice poll command")
	}
	if !strings.Contains(s.View(100, 200), "Preparing personal advice") {
		t.Error("expected loading text")
	}

	deadline := time.Now().Add(5 * time.Second)
	for s.adviceState == adviceLoading && time.Now().Before(deadline) {
		s.Update(adviceTickMsg(time.Now()))
		time.Sleep(5 * time.Millisecond)
	}
	if s.adviceState != adviceReady {
		t.Fatalf("adviceState = %v, want ready", s.adviceState)
	}
	view := s.View(100, 200)
	for _, want := range []string{"Advice for you", "A patient-facing profile.", "Empathy"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}
}

func TestResultScreen_AdviceFailureHidden(t *testing.T) {
	svc := advice.NewService(llm.NewMockProvider(), advice.DefaultConfig(), logging.Discard())
	s := New(completed(t), Options{Advice: svc})
	s.Init()

	deadline := time.Now().Add(5 * time.Second)
	for s.adviceState == adviceLoading && time.Now().Before(deadline) {
		s.Update(adviceTickMsg(time.Now()))
		time.Sleep(5 * time.Millisecond)
	}
	if s.adviceState != adviceFailed {
		t.Fatalf("adviceState = %v, want failed", s.adviceState)
	}
	if strings.Contains(s.View(100, 200), "Advice for you") {
		t.Error("failed advice should not be shown")
	}
}
