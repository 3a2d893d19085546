// Package quiz is the question screen. It renders the current question and
// forwards choices to the quiz controller.
package quiz

import (
	"errors"
	"fmt"
	"strings"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/pharmcheck/pharmcheck/internal/bank"
	qz "github.com/pharmcheck/pharmcheck/internal/quiz"
	"github.com/pharmcheck/pharmcheck/internal/router"
	"github.com/pharmcheck/pharmcheck/internal/screen"
	"github.com/pharmcheck/pharmcheck/internal/ui/components"
	"github.com/pharmcheck/pharmcheck/internal/ui/layout"
	"github.com/pharmcheck/pharmcheck/internal/ui/theme"
)

// QuizScreen asks one question at a time.
type QuizScreen struct {
	ctrl       *qz.Controller
	onComplete func() screen.Screen

	choices    components.ChoiceList
	confirming bool
	errMsg     string
}

var _ screen.Screen = (*QuizScreen)(nil)
var _ screen.KeyHintProvider = (*QuizScreen)(nil)
var _ screen.StatusProvider = (*QuizScreen)(nil)

// New creates the question screen. onComplete builds the screen that
// replaces this one after the last answer.
func New(ctrl *qz.Controller, onComplete func() screen.Screen) *QuizScreen {
	s := &QuizScreen{ctrl: ctrl, onComplete: onComplete}
	s.loadQuestion()
	return s
}

func (s *QuizScreen) Init() tea.Cmd {
	return nil
}

func (s *QuizScreen) Title() string {
	return "Career quiz"
}

func (s *QuizScreen) Status() string {
	return fmt.Sprintf("%d/%d", s.ctrl.Index()+1, s.ctrl.Total())
}

func (s *QuizScreen) KeyHints() []layout.KeyHint {
	if s.confirming {
		return []layout.KeyHint{
			{Key: "Y", Description: "Leave quiz"},
			{Key: "N", Description: "Keep going"},
		}
	}
	hints := []layout.KeyHint{
		{Key: "↑↓", Description: "Move"},
		{Key: "Enter/1-9", Description: "Answer"},
	}
	if s.ctrl.Index() > 0 {
		hints = append(hints, layout.KeyHint{Key: "←", Description: "Back"})
	}
	return append(hints, layout.KeyHint{Key: "Esc", Description: "Quit"})
}

func (s *QuizScreen) loadQuestion() {
	q, ok := s.ctrl.Current()
	if !ok {
		s.choices = components.ChoiceList{}
		return
	}
	opts := q.Options()
	labels := make([]string, len(opts))
	for i, o := range opts {
		labels[i] = o.Label
	}
	s.choices = components.NewChoiceList(labels, s.ctrl.Selected())
}

func (s *QuizScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case components.ChoiceMsg:
		return s, s.answer(msg.Index)

	case tea.KeyPressMsg:
		if s.confirming {
			return s, s.handleConfirm(msg.String())
		}
		switch msg.String() {
		case "esc":
			s.confirming = true
			return s, nil
		case "left", "backspace", "h":
			if err := s.ctrl.Back(); err != nil && !errors.Is(err, qz.ErrAtFirstQuestion) {
				s.errMsg = err.Error()
			}
			s.loadQuestion()
			return s, nil
		}
	}

	var cmd tea.Cmd
	s.choices, cmd = s.choices.Update(msg)
	return s, cmd
}

func (s *QuizScreen) handleConfirm(key string) tea.Cmd {
	switch key {
	case "y", "Y":
		s.confirming = false
		if err := s.ctrl.Abandon(); err != nil {
			s.errMsg = err.Error()
			return nil
		}
		return func() tea.Msg { return router.PopToRootMsg{Notify: screen.ResetMsg{}} }
	case "n", "N", "esc":
		s.confirming = false
	}
	return nil
}

func (s *QuizScreen) answer(i int) tea.Cmd {
	if err := s.ctrl.Answer(i); err != nil {
		s.errMsg = err.Error()
		return nil
	}
	s.errMsg = ""
	if s.ctrl.Stage() == qz.StageComplete {
		next := s.onComplete()
		return func() tea.Msg { return router.ReplaceScreenMsg{Screen: next} }
	}
	s.loadQuestion()
	return nil
}

func (s *QuizScreen) View(width, height int) string {
	cw := components.ContentWidth(width)

	if s.confirming {
		msg := lipgloss.JoinVertical(lipgloss.Center,
			lipgloss.NewStyle().Foreground(theme.Accent).Bold(true).Render("Leave the quiz?"),
			"",
			theme.Hint.Render("Your answers so far will be discarded."),
		)
		return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center,
			components.Panel(msg, min(cw, 48), theme.Accent))
	}

	q, ok := s.ctrl.Current()
	if !ok {
		return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center,
			theme.Hint.Render("No question to show."))
	}

	progress := components.NewProgressBar(
		fmt.Sprintf("Question %d of %d", s.ctrl.Index()+1, s.ctrl.Total()),
		s.ctrl.Progress(), true, cw)
	progress.Floor = components.ProgressFloor

	sections := []string{
		progress.View(),
		"",
		lipgloss.NewStyle().Foreground(theme.Text).Bold(true).Width(cw).Render(q.Text),
	}
	if q.Description != "" {
		sections = append(sections, theme.Hint.Width(cw).Render(q.Description))
	}
	if q.EffectiveKind() == bank.KindLikert {
		sections = append(sections, theme.Hint.Render("How much do you agree?"))
	}
	sections = append(sections, "", strings.TrimRight(s.choices.View(), "\n"))
	if s.errMsg != "" {
		sections = append(sections, "", theme.ErrorText.Render(s.errMsg))
	}

	body := lipgloss.NewStyle().Width(cw).Render(strings.Join(sections, "\n"))
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, body)
}
