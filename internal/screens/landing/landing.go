// Package landing is the first screen: a short introduction and the
// nickname prompt that starts a quiz.
package landing

import (
	"errors"
	"fmt"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/pharmcheck/pharmcheck/internal/quiz"
	"github.com/pharmcheck/pharmcheck/internal/router"
	"github.com/pharmcheck/pharmcheck/internal/screen"
	"github.com/pharmcheck/pharmcheck/internal/ui/components"
	"github.com/pharmcheck/pharmcheck/internal/ui/layout"
	"github.com/pharmcheck/pharmcheck/internal/ui/theme"
)

const banner = `┏━┓╻ ╻┏━┓┏━┓┏┳┓┏━╸╻ ╻┏━╸┏━╸╻┏
┣━┛┣━┫┣━┫┣┳┛┃┃┃┃  ┣━┫┣╸ ┃  ┣┻┓
╹  ╹ ╹╹ ╹╹┗╸╹ ╹┗━╸╹ ╹┗━╸┗━╸╹ ╹`

// Options configures the landing screen.
type Options struct {
	// NewQuiz builds the question screen pushed after a successful start.
	NewQuiz func() screen.Screen

	// NewHistory builds the history screen. Nil hides the shortcut.
	NewHistory func() screen.Screen
}

// LandingScreen asks for a nickname and starts the quiz.
type LandingScreen struct {
	ctrl   *quiz.Controller
	opts   Options
	input  components.TextInput
	errMsg string
}

var _ screen.Screen = (*LandingScreen)(nil)
var _ screen.KeyHintProvider = (*LandingScreen)(nil)

// New creates the landing screen.
func New(ctrl *quiz.Controller, opts Options) *LandingScreen {
	return &LandingScreen{
		ctrl:  ctrl,
		opts:  opts,
		input: components.NewTextInput("your nickname", quiz.MaxNicknameLength, 32),
	}
}

func (s *LandingScreen) Init() tea.Cmd {
	return s.input.Init()
}

func (s *LandingScreen) Title() string {
	return "Welcome"
}

func (s *LandingScreen) KeyHints() []layout.KeyHint {
	hints := []layout.KeyHint{{Key: "Enter", Description: "Start"}}
	if s.opts.NewHistory != nil {
		hints = append(hints, layout.KeyHint{Key: "Tab", Description: "History"})
	}
	return append(hints, layout.KeyHint{Key: "Ctrl+C", Description: "Quit"})
}

func (s *LandingScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case screen.ResetMsg:
		s.errMsg = ""
		s.input.Err = ""
		return s, s.input.Init()

	case tea.KeyPressMsg:
		switch msg.String() {
		case "enter":
			return s, s.start()
		case "tab":
			if s.opts.NewHistory != nil {
				next := s.opts.NewHistory()
				return s, func() tea.Msg { return router.PushScreenMsg{Screen: next} }
			}
			return s, nil
		}
	}

	var cmd tea.Cmd
	s.input, cmd = s.input.Update(msg)
	return s, cmd
}

func (s *LandingScreen) start() tea.Cmd {
	err := s.ctrl.Start(s.input.Value())
	switch {
	case err == nil:
	case errors.Is(err, quiz.ErrNicknameRequired):
		s.input.Err = "Please enter a nickname to begin."
		return nil
	case errors.Is(err, quiz.ErrNicknameTooLong):
		s.input.Err = fmt.Sprintf("Nicknames can be at most %d characters.", quiz.MaxNicknameLength)
		return nil
	case errors.Is(err, quiz.ErrEmptyBank):
		s.errMsg = "This question bank has no questions, so the quiz cannot start."
		return nil
	default:
		s.errMsg = err.Error()
		return nil
	}

	s.errMsg = ""
	next := s.opts.NewQuiz()
	return func() tea.Msg { return router.PushScreenMsg{Screen: next} }
}

func (s *LandingScreen) View(width, height int) string {
	cw := components.ContentWidth(width)
	b := s.ctrl.Bank()

	var sections []string
	if !layout.IsCompactHeight(height) && width >= 40 {
		sections = append(sections, lipgloss.NewStyle().Foreground(theme.Primary).Bold(true).Render(banner), "")
	} else {
		sections = append(sections, theme.Title.Render(layout.Brand), "")
	}

	title := b.Title
	if title == "" {
		title = "Pharmacy career check"
	}
	sections = append(sections,
		lipgloss.NewStyle().Foreground(theme.Text).Bold(true).Render(title),
		theme.Subtitle.Width(cw).Render(fmt.Sprintf(
			"%d quick questions about how you like to work. We'll suggest the pharmacy careers that fit you best.",
			b.Len())),
		"",
		components.Panel(s.input.View(), min(cw, 44), theme.Primary),
	)
	if s.errMsg != "" {
		sections = append(sections, "", theme.ErrorText.Render(s.errMsg))
	}

	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center,
		lipgloss.JoinVertical(lipgloss.Center, sections...))
}
