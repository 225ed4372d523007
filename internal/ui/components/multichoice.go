package components

import (
	"fmt"
	"strings"

	"charm.land/bubbles/v2/key"
	tea "charm.land/bubbletea/v2"

	"github.com/abhisek/geoquiz/internal/ui/layout"
	"github.com/abhisek/geoquiz/internal/ui/theme"
)

// ChoiceKeyMap holds the bindings of a MultiChoice.
type ChoiceKeyMap struct {
	Up     key.Binding
	Down   key.Binding
	Submit key.Binding
	Pick   key.Binding
	Skip   key.Binding
}

// DefaultChoiceKeys returns arrows/jk to move, Enter to answer, 1-4 to
// answer directly and s to skip.
func DefaultChoiceKeys() ChoiceKeyMap {
	return ChoiceKeyMap{
		Up:     key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "Up")),
		Down:   key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "Down")),
		Submit: key.NewBinding(key.WithKeys("enter"), key.WithHelp("Enter", "Answer")),
		Pick:   key.NewBinding(key.WithKeys("1", "2", "3", "4"), key.WithHelp("1-4", "Pick")),
		Skip:   key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "Skip")),
	}
}

// Hints returns footer hints for the bindings.
func (k ChoiceKeyMap) Hints() []layout.KeyHint {
	var hints []layout.KeyHint
	for _, b := range []key.Binding{k.Pick, k.Submit, k.Skip} {
		h := b.Help()
		hints = append(hints, layout.KeyHint{Key: h.Key, Description: h.Desc})
	}
	return hints
}

// SkippedIndex is Chosen after a skip.
const SkippedIndex = -1

// MultiChoice lets the player pick one of a few options, then shows which
// one was correct.
type MultiChoice struct {
	Options      []string
	CorrectIndex int

	Cursor    int
	Submitted bool
	Chosen    int

	keys ChoiceKeyMap
}

// NewMultiChoice creates a selector over options.
func NewMultiChoice(options []string, correctIndex int) MultiChoice {
	return MultiChoice{
		Options:      options,
		CorrectIndex: correctIndex,
		Chosen:       SkippedIndex,
		keys:         DefaultChoiceKeys(),
	}
}

// Keys returns the key bindings.
func (m MultiChoice) Keys() ChoiceKeyMap { return m.keys }

// Update handles navigation and selection keys. It is a no-op once an
// answer was submitted.
func (m MultiChoice) Update(msg tea.Msg) MultiChoice {
	if m.Submitted {
		return m
	}
	kmsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m
	}

	switch {
	case key.Matches(kmsg, m.keys.Up):
		if m.Cursor > 0 {
			m.Cursor--
		}
	case key.Matches(kmsg, m.keys.Down):
		if m.Cursor < len(m.Options)-1 {
			m.Cursor++
		}
	case key.Matches(kmsg, m.keys.Submit):
		m.Submitted, m.Chosen = true, m.Cursor
	case key.Matches(kmsg, m.keys.Pick):
		if i := int(kmsg.String()[0] - '1'); i >= 0 && i < len(m.Options) {
			m.Cursor = i
			m.Submitted, m.Chosen = true, i
		}
	case key.Matches(kmsg, m.keys.Skip):
		m.Submitted, m.Chosen = true, SkippedIndex
	}
	return m
}

// Skipped reports whether the question was skipped.
func (m MultiChoice) Skipped() bool {
	return m.Submitted && m.Chosen == SkippedIndex
}

// IsCorrect reports whether the submitted answer is the correct one.
func (m MultiChoice) IsCorrect() bool {
	return m.Submitted && m.Chosen == m.CorrectIndex
}

// View renders the options, colouring the result after submission.
func (m MultiChoice) View() string {
	var b strings.Builder
	for i, opt := range m.Options {
		marker := "  "
		if !m.Submitted && i == m.Cursor {
			marker = "▸ "
		}
		line := fmt.Sprintf("%s%d) %s", marker, i+1, opt)

		style := theme.Body
		switch {
		case m.Submitted && i == m.CorrectIndex:
			style = theme.Correct
		case m.Submitted && i == m.Chosen:
			style = theme.Incorrect
		case m.Submitted:
			style = theme.Dim
		case i == m.Cursor:
			style = theme.Selected
		}
		b.WriteString(style.Render(line))
		b.WriteString("\n")
	}
	return b.String()
}
