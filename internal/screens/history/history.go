package history

import (
	"context"
	"fmt"
	"sort"
	"strings"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/pharmcheck/pharmcheck/internal/bank"
	"github.com/pharmcheck/pharmcheck/internal/router"
	"github.com/pharmcheck/pharmcheck/internal/screen"
	"github.com/pharmcheck/pharmcheck/internal/store"
	"github.com/pharmcheck/pharmcheck/internal/ui/layout"
	"github.com/pharmcheck/pharmcheck/internal/ui/theme"
)

// Limit is the number of results listed.
const Limit = 50

type historyLoadedMsg struct {
	Results []store.ResultRecord
	Err     error
}

// HistoryScreen lists past results stored on this machine.
type HistoryScreen struct {
	repo     store.ResultRepo
	bank     *bank.Bank
	results  []store.ResultRecord
	selected int
	expanded map[int64]bool
	loaded   bool
	errMsg   string
}

var _ screen.Screen = (*HistoryScreen)(nil)
var _ screen.KeyHintProvider = (*HistoryScreen)(nil)

// New creates a new HistoryScreen. b supplies role labels.
func New(repo store.ResultRepo, b *bank.Bank) *HistoryScreen {
	return &HistoryScreen{
		repo:     repo,
		bank:     b,
		expanded: make(map[int64]bool),
	}
}

func (s *HistoryScreen) Init() tea.Cmd {
	repo := s.repo
	return func() tea.Msg {
		recs, err := repo.ListResults(context.Background(), store.QueryOpts{Limit: Limit})
		return historyLoadedMsg{Results: recs, Err: err}
	}
}

func (s *HistoryScreen) Title() string {
	return "History"
}

func (s *HistoryScreen) KeyHints() []layout.KeyHint {
	return []layout.KeyHint{
		{Key: "Enter", Description: "Details"},
		{Key: "↑↓", Description: "Navigate"},
		{Key: "Esc", Description: "Back"},
	}
}

func (s *HistoryScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case historyLoadedMsg:
		if msg.Err != nil {
			s.errMsg = msg.Err.Error()
		} else {
			s.results = msg.Results
		}
		s.loaded = true
		return s, nil

	case tea.KeyPressMsg:
		switch msg.String() {
		case "esc", "q":
			return s, func() tea.Msg { return router.PopScreenMsg{} }
		case "up", "k":
			if s.selected > 0 {
				s.selected--
			}
		case "down", "j":
			if s.selected < len(s.results)-1 {
				s.selected++
			}
		case "enter":
			if s.selected < len(s.results) {
				id := s.results[s.selected].ID
				s.expanded[id] = !s.expanded[id]
			}
		}
	}
	return s, nil
}

func (s *HistoryScreen) label(role string) string {
	if r, ok := s.bank.Role(role); ok {
		return r.Label
	}
	return role
}

func (s *HistoryScreen) View(width, height int) string {
	centered := lipgloss.NewStyle().Width(width).Align(lipgloss.Center)
	if s.errMsg != "" {
		return centered.Foreground(theme.Error).Render(fmt.Sprintf("\n\nError: %s", s.errMsg))
	}
	if !s.loaded {
		return centered.Foreground(theme.TextDim).Render("\n\nLoading history...")
	}
	if len(s.results) == 0 {
		return centered.Foreground(theme.TextDim).Italic(true).
			Render("\n\nNo results yet. Finish a quiz to see it here.")
	}

	var lines []string
	for i, r := range s.results {
		prefix := "  "
		style := lipgloss.NewStyle().Foreground(theme.Text)
		if i == s.selected {
			prefix = "> "
			style = style.Foreground(theme.Primary).Bold(true)
		}

		name := r.Nickname
		if name == "" {
			name = "anonymous"
		}
		line := fmt.Sprintf("%s%s  %-16s  %s", prefix,
			r.CreatedAt.Local().Format("Jan 02 15:04"), name, s.label(r.TopRole))
		if r.Source == store.SourceRemote {
			line += "  (received)"
		}
		lines = append(lines, style.Render(line))

		if s.expanded[r.ID] {
			lines = append(lines, s.details(r)...)
		}
	}

	// Keep the selection visible.
	start := 0
	if len(lines) > height && height > 0 {
		start = min(max(s.selectedLine()-height/2, 0), len(lines)-height)
		lines = lines[start : start+height]
	}
	return lipgloss.PlaceHorizontal(width, lipgloss.Center, strings.Join(lines, "\n"))
}

// selectedLine returns the index of the selected row in the rendered lines.
func (s *HistoryScreen) selectedLine() int {
	n := 0
	for i, r := range s.results {
		if i == s.selected {
			return n
		}
		n++
		if s.expanded[r.ID] {
			n += len(s.details(r))
		}
	}
	return n
}

func (s *HistoryScreen) details(r store.ResultRecord) []string {
	type kv struct {
		role string
		pct  int
	}
	scores := make([]kv, 0, len(r.Scores))
	for k, v := range r.Scores {
		scores = append(scores, kv{k, v})
	}
	sort.Slice(scores, func(i, j int) bool {
		if scores[i].pct != scores[j].pct {
			return scores[i].pct > scores[j].pct
		}
		return scores[i].role < scores[j].role
	})

	dim := lipgloss.NewStyle().Foreground(theme.TextDim)
	out := make([]string, 0, 5)
	for i, sc := range scores {
		if i == 3 {
			break
		}
		out = append(out, dim.Render(fmt.Sprintf("      %d. %-30s %3d%%", i+1, s.label(sc.role), sc.pct)))
	}
	meta := fmt.Sprintf("      %d answers", len(r.Answers))
	if r.DurationMs > 0 {
		secs := r.DurationMs / 1000
		meta += fmt.Sprintf(" in %d:%02d", secs/60, secs%60)
	}
	if r.BankVersion != "" {
		meta += "  bank " + r.BankVersion
	}
	return append(out, dim.Italic(true).Render(meta))
}
