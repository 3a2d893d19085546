package components

import (
	"fmt"
	"strings"

	tea "charm.land/bubbletea/v2"

	"github.com/pharmcheck/pharmcheck/internal/ui/theme"
)

// ChoiceMsg reports that the user picked option Index.
type ChoiceMsg struct {
	Index int
}

// ChoiceList is a single-select list of answer options.
type ChoiceList struct {
	Options []string
	Cursor  int

	// Previous is the option answered on an earlier visit, or -1.
	Previous int
}

// NewChoiceList creates a list with the cursor on previous, or on the first
// option when previous is -1.
func NewChoiceList(options []string, previous int) ChoiceList {
	cursor := 0
	if previous >= 0 && previous < len(options) {
		cursor = previous
	}
	return ChoiceList{Options: options, Cursor: cursor, Previous: previous}
}

// Update moves the cursor and emits ChoiceMsg on enter or a number key.
func (c ChoiceList) Update(msg tea.Msg) (ChoiceList, tea.Cmd) {
	kmsg, ok := msg.(tea.KeyPressMsg)
	if !ok || len(c.Options) == 0 {
		return c, nil
	}

	key := kmsg.String()
	switch key {
	case "up", "k":
		if c.Cursor > 0 {
			c.Cursor--
		}
	case "down", "j":
		if c.Cursor < len(c.Options)-1 {
			c.Cursor++
		}
	case "enter", "space":
		return c, choose(c.Cursor)
	default:
		if len(key) == 1 && key[0] >= '1' && key[0] <= '9' {
			i := int(key[0] - '1')
			if i < len(c.Options) {
				c.Cursor = i
				return c, choose(i)
			}
		}
	}
	return c, nil
}

func choose(i int) tea.Cmd {
	return func() tea.Msg { return ChoiceMsg{Index: i} }
}

// View renders the options, numbered from 1.
func (c ChoiceList) View() string {
	var b strings.Builder
	for i, opt := range c.Options {
		prefix := "  "
		if i == c.Cursor {
			prefix = "▸ "
		}
		line := fmt.Sprintf("%s%d. %s", prefix, i+1, opt)
		if i == c.Previous {
			line += " ✓"
		}

		switch {
		case i == c.Cursor:
			b.WriteString(theme.Selected.Render(line))
		case i == c.Previous:
			b.WriteString(theme.Answered.Render(line))
		default:
			b.WriteString(theme.Unselected.Render(line))
		}
		b.WriteString("\n")
	}
	return b.String()
}
