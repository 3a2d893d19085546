// Package result shows the top role matches once a quiz is complete.
package result

import (
	"context"
	"fmt"
	"image/color"
	"strings"
	"time"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/pharmcheck/pharmcheck/internal/advice"
	"github.com/pharmcheck/pharmcheck/internal/quiz"
	"github.com/pharmcheck/pharmcheck/internal/results"
	"github.com/pharmcheck/pharmcheck/internal/router"
	"github.com/pharmcheck/pharmcheck/internal/screen"
	"github.com/pharmcheck/pharmcheck/internal/ui/components"
	"github.com/pharmcheck/pharmcheck/internal/ui/layout"
	"github.com/pharmcheck/pharmcheck/internal/ui/theme"
)

const advicePollInterval = 250 * time.Millisecond

type adviceTickMsg time.Time

// Options configures the result screen.
type Options struct {
	TopN  int
	Icons *results.IconResolver

	// Advice generates optional AI guidance. Nil disables it.
	Advice *advice.Service

	// NewHistory builds the history screen. Nil hides the shortcut.
	NewHistory func() screen.Screen
}

type adviceState int

const (
	adviceOff adviceState = iota
	adviceLoading
	adviceReady
	adviceFailed
)

// ResultScreen renders result cards, the full score chart and next steps.
type ResultScreen struct {
	ctrl    *quiz.Controller
	opts    Options
	outcome quiz.Outcome
	cards   []results.Card

	advice      *advice.Advice
	adviceState adviceState
	offset      int
}

var _ screen.Screen = (*ResultScreen)(nil)
var _ screen.KeyHintProvider = (*ResultScreen)(nil)
var _ screen.StatusProvider = (*ResultScreen)(nil)

// New creates the result screen for the controller's completed quiz.
func New(ctrl *quiz.Controller, opts Options) *ResultScreen {
	if opts.TopN <= 0 {
		opts.TopN = results.DefaultTopN
	}
	s := &ResultScreen{ctrl: ctrl, opts: opts}
	if o, ok := ctrl.Outcome(); ok {
		s.outcome = o
		s.cards = results.Present(ctrl.Bank(), o.Ranked, opts.TopN, opts.Icons)
	}
	return s
}

func (s *ResultScreen) Init() tea.Cmd {
	if s.opts.Advice == nil || len(s.cards) == 0 {
		return nil
	}
	s.adviceState = adviceLoading
	s.opts.Advice.Request(context.Background(), advice.Input{
		Nickname: s.outcome.Nickname,
		Top:      s.cards,
	})
	return pollAdvice()
}

func pollAdvice() tea.Cmd {
	return tea.Tick(advicePollInterval, func(t time.Time) tea.Msg {
		return adviceTickMsg(t)
	})
}

func (s *ResultScreen) Title() string {
	return "Your results"
}

func (s *ResultScreen) Status() string {
	return s.outcome.Nickname
}

func (s *ResultScreen) KeyHints() []layout.KeyHint {
	hints := []layout.KeyHint{
		{Key: "Enter", Description: "Try again"},
		{Key: "↑↓", Description: "Scroll"},
	}
	if s.opts.NewHistory != nil {
		hints = append(hints, layout.KeyHint{Key: "H", Description: "History"})
	}
	return append(hints, layout.KeyHint{Key: "Ctrl+C", Description: "Quit"})
}

func (s *ResultScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case adviceTickMsg:
		if s.adviceState != adviceLoading {
			return s, nil
		}
		r, ok := s.opts.Advice.Consume()
		if !ok {
			return s, pollAdvice()
		}
		if r.Err != nil || r.Advice == nil {
			s.adviceState = adviceFailed
		} else {
			s.advice = r.Advice
			s.adviceState = adviceReady
		}
		return s, nil

	case tea.KeyPressMsg:
		switch msg.String() {
		case "enter", "r", "esc":
			return s, s.restart()
		case "h":
			if s.opts.NewHistory != nil {
				next := s.opts.NewHistory()
				return s, func() tea.Msg { return router.PushScreenMsg{Screen: next} }
			}
		case "up", "k":
			s.offset = max(s.offset-1, 0)
		case "down", "j":
			s.offset++
		case "pgup":
			s.offset = max(s.offset-10, 0)
		case "pgdown":
			s.offset += 10
		}
	}
	return s, nil
}

func (s *ResultScreen) restart() tea.Cmd {
	if s.opts.Advice != nil {
		s.opts.Advice.Cancel()
	}
	if err := s.ctrl.Restart(); err != nil {
		return nil
	}
	return func() tea.Msg { return router.PopToRootMsg{Notify: screen.ResetMsg{}} }
}

func (s *ResultScreen) View(width, height int) string {
	cw := components.ContentWidth(width)
	if len(s.cards) == 0 {
		return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center,
			theme.Hint.Render("No result to show."))
	}

	heading := "Your top matches"
	if s.outcome.Nickname != "" {
		heading = fmt.Sprintf("%s, your top matches", s.outcome.Nickname)
	}

	sections := []string{theme.Title.Width(cw).Render(heading), ""}
	for _, c := range s.cards {
		sections = append(sections, renderCard(c, cw))
	}
	sections = append(sections, "", s.renderChart(cw))
	if block := s.renderAdvice(cw); block != "" {
		sections = append(sections, "", block)
	}
	sections = append(sections, "", renderNextSteps(cw))

	lines := strings.Split(lipgloss.JoinVertical(lipgloss.Left, sections...), "\n")
	maxOffset := max(len(lines)-height, 0)
	s.offset = min(s.offset, maxOffset)
	visible := lines[s.offset:min(s.offset+height, len(lines))]

	return lipgloss.PlaceHorizontal(width, lipgloss.Center, strings.Join(visible, "\n"))
}

func medal(rank int) color.Color {
	switch rank {
	case 1:
		return theme.Gold
	case 2:
		return theme.Silver
	case 3:
		return theme.Bronze
	default:
		return theme.Border
	}
}

func renderCard(c results.Card, cw int) string {
	head := lipgloss.NewStyle().Foreground(medal(c.Rank)).Bold(true).
		Render(fmt.Sprintf("#%d  %s  %s", c.Rank, c.Icon, c.Label))
	pct := lipgloss.NewStyle().Foreground(theme.Accent).Bold(true).
		Render(fmt.Sprintf("%d%%", c.Percent))
	gap := max(cw-6-lipgloss.Width(head)-lipgloss.Width(pct), 1)

	body := head + strings.Repeat(" ", gap) + pct + "\n" +
		theme.Body.Width(cw-6).Render(c.Tip)
	if c.Image != "" {
		body += "\n" + theme.Hint.Render("image: "+c.Image)
	}
	return components.Panel(body, cw, medal(c.Rank))
}

func (s *ResultScreen) renderChart(cw int) string {
	b := s.ctrl.Bank()
	labelWidth := min(24, cw/3)
	barWidth := max(cw-labelWidth-6, 10)

	rows := []string{lipgloss.NewStyle().Foreground(theme.Text).Bold(true).Render("All roles")}
	for _, rs := range s.outcome.Ranked {
		label := rs.Role
		if r, ok := b.Role(rs.Role); ok {
			label = r.Label
		}
		fill := theme.Secondary
		if rs.Percent == 100 {
			fill = theme.Primary
		}
		rows = append(rows, components.ScoreBar(label, rs.Percent, labelWidth, barWidth, fill))
	}
	return strings.Join(rows, "\n")
}

func (s *ResultScreen) renderAdvice(cw int) string {
	switch s.adviceState {
	case adviceLoading:
		return theme.Hint.Render("Preparing personal advice…")
	case adviceReady:
		var b strings.Builder
		b.WriteString(lipgloss.NewStyle().Foreground(theme.Secondary).Bold(true).Render("Advice for you"))
		b.WriteString("\n")
		b.WriteString(theme.Body.Width(cw - 6).Render(s.advice.Summary))
		for _, st := range s.advice.Strengths {
			b.WriteString("\n" + theme.Answered.Render("  + "+st))
		}
		for _, st := range s.advice.NextSteps {
			b.WriteString("\n" + theme.Body.Render("  → "+st))
		}
		return components.Panel(b.String(), cw, theme.Secondary)
	default:
		return ""
	}
}

func renderNextSteps(cw int) string {
	rows := []string{lipgloss.NewStyle().Foreground(theme.Text).Bold(true).Render("Next steps")}
	for _, step := range results.NextSteps() {
		rows = append(rows, theme.Body.Width(cw).Render("• "+step))
	}
	return strings.Join(rows, "\n")
}
