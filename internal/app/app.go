// Package app wires the quiz controller and screens into the root Bubble Tea
// model.
package app

import (
	"context"
	"fmt"
	"log/slog"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/pharmcheck/pharmcheck/internal/advice"
	"github.com/pharmcheck/pharmcheck/internal/bank"
	"github.com/pharmcheck/pharmcheck/internal/quiz"
	"github.com/pharmcheck/pharmcheck/internal/results"
	"github.com/pharmcheck/pharmcheck/internal/router"
	"github.com/pharmcheck/pharmcheck/internal/screen"
	"github.com/pharmcheck/pharmcheck/internal/screens/history"
	"github.com/pharmcheck/pharmcheck/internal/screens/landing"
	quizscreen "github.com/pharmcheck/pharmcheck/internal/screens/quiz"
	"github.com/pharmcheck/pharmcheck/internal/screens/result"
	"github.com/pharmcheck/pharmcheck/internal/scoring"
	"github.com/pharmcheck/pharmcheck/internal/store"
	"github.com/pharmcheck/pharmcheck/internal/submit"
	"github.com/pharmcheck/pharmcheck/internal/ui/layout"
)

// Options holds the dependencies of the terminal app. Results, Submitter and
// Advice are optional.
type Options struct {
	Bank            *bank.Bank
	Scoring         scoring.Config
	RequireNickname bool
	TopN            int
	Icons           *results.IconResolver

	Results   store.ResultRepo
	Submitter *submit.Submitter
	Advice    *advice.Service

	Logger *slog.Logger
}

// AppModel is the root Bubble Tea model.
type AppModel struct {
	ctrl   *quiz.Controller
	router *router.Router
	width  int
	height int
}

// New builds the controller, its completion hooks, and the screen stack.
func New(opts Options) AppModel {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	var notifiers []quiz.Notifier
	if opts.Results != nil {
		notifiers = append(notifiers, LocalRecorder(opts.Results, opts.Logger))
	}
	if opts.Submitter.Enabled() {
		notifiers = append(notifiers, opts.Submitter)
	}

	ctrl := quiz.New(opts.Bank, quiz.Options{
		RequireNickname: opts.RequireNickname,
		Scoring:         opts.Scoring,
		Notifiers:       notifiers,
		Logger:          opts.Logger,
	})

	var newHistory func() screen.Screen
	if opts.Results != nil {
		newHistory = func() screen.Screen { return history.New(opts.Results, opts.Bank) }
	}
	newResult := func() screen.Screen {
		return result.New(ctrl, result.Options{
			TopN:       opts.TopN,
			Icons:      opts.Icons,
			Advice:     opts.Advice,
			NewHistory: newHistory,
		})
	}
	root := landing.New(ctrl, landing.Options{
		NewQuiz:    func() screen.Screen { return quizscreen.New(ctrl, newResult) },
		NewHistory: newHistory,
	})

	return AppModel{ctrl: ctrl, router: router.New(root)}
}

// Controller returns the quiz controller driving the app.
func (m AppModel) Controller() *quiz.Controller {
	return m.ctrl
}

func (m AppModel) Init() tea.Cmd {
	if active := m.router.Active(); active != nil {
		return active.Init()
	}
	return nil
}

func (m AppModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyPressMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
	}

	cmd := m.router.Update(msg)
	return m, cmd
}

func (m AppModel) View() tea.View {
	v := tea.NewView(m.render())
	v.AltScreen = true
	return v
}

func (m AppModel) render() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}
	if layout.IsTooSmall(m.width, m.height) {
		return layout.RenderMinSizeMessage(m.width, m.height)
	}

	active := m.router.Active()
	var title, status string
	var hints []layout.KeyHint
	if active != nil {
		title = active.Title()
		if sp, ok := active.(screen.StatusProvider); ok {
			status = sp.Status()
		}
		if kp, ok := active.(screen.KeyHintProvider); ok {
			hints = kp.KeyHints()
		}
	}
	if hints == nil {
		hints = []layout.KeyHint{{Key: "Ctrl+C", Description: "Quit"}}
	}

	header := layout.RenderHeader(title, status, m.width)
	footer := layout.RenderFooter(hints, m.width)
	contentHeight := max(m.height-lipgloss.Height(header)-lipgloss.Height(footer), 0)

	content := m.router.View(m.width, contentHeight)
	return layout.RenderFrame(header, content, footer, m.width, m.height)
}

// Run starts the terminal app and blocks until it exits. Completion hooks
// still in flight are given until ctx is done to finish.
func Run(ctx context.Context, opts Options) error {
	model := New(opts)
	p := tea.NewProgram(model, tea.WithContext(ctx))
	_, err := p.Run()

	done := make(chan struct{})
	go func() {
		model.ctrl.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
	}

	if err != nil {
		return fmt.Errorf("run terminal ui: %w", err)
	}
	return nil
}
