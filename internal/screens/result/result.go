// Package result shows the score and a per-question review after a quiz.
package result

import (
	"context"
	"fmt"
	"strings"

	"charm.land/bubbles/v2/key"
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/abhisek/geoquiz/internal/router"
	"github.com/abhisek/geoquiz/internal/screen"
	"github.com/abhisek/geoquiz/internal/session"
	"github.com/abhisek/geoquiz/internal/ui/layout"
	"github.com/abhisek/geoquiz/internal/ui/theme"
)

// Explainer produces extra notes for missed questions, keyed by item index.
type Explainer interface {
	ExplainMissed(ctx context.Context, res *session.Result) (map[int]string, error)
}

type notesMsg struct {
	Notes map[int]string
	Err   error
}

type keyMap struct {
	Again key.Binding
	Quit  key.Binding
	Up    key.Binding
	Down  key.Binding
}

var keys = keyMap{
	Again: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "Play again")),
	Quit:  key.NewBinding(key.WithKeys("q", "enter"), key.WithHelp("q", "Quit")),
	Up:    key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑↓", "Scroll")),
	Down:  key.NewBinding(key.WithKeys("down", "j")),
}

// ResultScreen renders a session.Result.
type ResultScreen struct {
	ctx       context.Context
	res       *session.Result
	explainer Explainer
	playAgain func() screen.Screen

	notes      map[int]string
	explaining bool
	offset     int
}

var _ screen.Screen = (*ResultScreen)(nil)
var _ screen.KeyHintProvider = (*ResultScreen)(nil)
var _ screen.StatusProvider = (*ResultScreen)(nil)

// New creates a ResultScreen. explainer and playAgain may be nil.
func New(ctx context.Context, res *session.Result, explainer Explainer, playAgain func() screen.Screen) *ResultScreen {
	if res == nil {
		res = &session.Result{}
	}
	return &ResultScreen{ctx: ctx, res: res, explainer: explainer, playAgain: playAgain}
}

func (s *ResultScreen) Init() tea.Cmd {
	if s.explainer == nil || len(s.res.Missed()) == 0 {
		return nil
	}
	s.explaining = true
	ctx, ex, res := s.ctx, s.explainer, s.res
	return func() tea.Msg {
		notes, err := ex.ExplainMissed(ctx, res)
		return notesMsg{Notes: notes, Err: err}
	}
}

func (s *ResultScreen) Title() string { return "Results" }

func (s *ResultScreen) Status() string {
	return fmt.Sprintf("Final %d/%d", s.res.Score, s.res.Total)
}

func (s *ResultScreen) KeyHints() []layout.KeyHint {
	var hints []layout.KeyHint
	bindings := []key.Binding{keys.Up, keys.Quit}
	if s.playAgain != nil {
		bindings = append([]key.Binding{keys.Again}, bindings...)
	}
	for _, b := range bindings {
		hints = append(hints, layout.KeyHint{Key: b.Help().Key, Description: b.Help().Desc})
	}
	return hints
}

func (s *ResultScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case notesMsg:
		s.explaining = false
		s.notes = msg.Notes
		return s, nil
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Again) && s.playAgain != nil:
			next := s.playAgain()
			return s, func() tea.Msg { return router.ReplaceScreenMsg{Screen: next} }
		case key.Matches(msg, keys.Quit):
			return s, tea.Quit
		case key.Matches(msg, keys.Up):
			s.offset = max(s.offset-1, 0)
		case key.Matches(msg, keys.Down):
			s.offset++
		}
	}
	return s, nil
}

func (s *ResultScreen) View(width, height int) string {
	head := s.renderSummary(width)
	lines := s.reviewLines(min(width-4, 80))

	room := max(height-lipgloss.Height(head)-1, 1)
	s.offset = min(s.offset, max(len(lines)-room, 0))
	end := min(s.offset+room, len(lines))
	review := strings.Join(lines[s.offset:end], "\n")

	return head + "\n" + layout.Center(width, lipgloss.NewStyle().Width(min(width-4, 80)).Render(review))
}

func (s *ResultScreen) renderSummary(width int) string {
	var b strings.Builder
	b.WriteString(layout.Center(width, theme.Title.Render("Quiz complete!")))
	b.WriteString("\n\n")

	stats := fmt.Sprintf("Score %d/%d   Accuracy %.0f%%   Time %s",
		s.res.Score, s.res.Total, s.res.Accuracy()*100, formatDuration(s.res))
	b.WriteString(layout.Center(width, theme.Score.Render(stats)))
	b.WriteString("\n")
	b.WriteString(layout.Center(width, theme.Dim.Render(verdict(s.res))))
	if s.res.EndReason != "" {
		b.WriteString("\n")
		b.WriteString(layout.Center(width, theme.Hint.Render(s.res.EndReason)))
	}
	if s.explaining {
		b.WriteString("\n")
		b.WriteString(layout.Center(width, theme.Hint.Render("Writing notes on the ones you missed...")))
	}
	b.WriteString("\n")
	return b.String()
}

func (s *ResultScreen) reviewLines(width int) []string {
	var lines []string
	wrap := lipgloss.NewStyle().Width(max(width-5, 10))
	for i, it := range s.res.Items {
		mark := theme.Correct.Render("✓")
		if !it.Correct {
			mark = theme.Incorrect.Render("✗")
		}
		lines = append(lines, fmt.Sprintf("%2d. %s %s", i+1, mark, theme.Body.Render(it.Question.Prompt)))

		answer := "Your answer: " + it.SelectedText()
		if !it.Correct {
			answer += "   Correct: " + it.CorrectText()
		}
		lines = append(lines, "    "+theme.Dim.Render(answer))

		for _, l := range strings.Split(wrap.Render(it.Question.Explanation), "\n") {
			lines = append(lines, "    "+theme.Hint.Render(l))
		}
		if note := s.notes[i]; note != "" {
			for _, l := range strings.Split(wrap.Render(note), "\n") {
				lines = append(lines, "    "+theme.Body.Render(l))
			}
		}
		if thumb := it.Question.Thumbnail(); thumb != "" {
			lines = append(lines, "    "+theme.Link.Render(thumb))
		}
		lines = append(lines, "")
	}
	return lines
}

func formatDuration(res *session.Result) string {
	secs := int(res.Duration.Seconds())
	return fmt.Sprintf("%d:%02d", secs/60, secs%60)
}

func verdict(res *session.Result) string {
	switch acc := res.Accuracy(); {
	case res.Total == 0:
		return "No questions answered."
	case acc == 1:
		return "Perfect round. You know your capitals."
	case acc >= 0.7:
		return "Well travelled."
	case acc >= 0.4:
		return "Not bad. A few more trips around the atlas."
	default:
		return "Keep exploring."
	}
}
