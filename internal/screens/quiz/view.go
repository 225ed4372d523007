package quiz

import (
	"strings"

	"charm.land/lipgloss/v2"

	"github.com/abhisek/geoquiz/internal/session"
	"github.com/abhisek/geoquiz/internal/ui/components"
	"github.com/abhisek/geoquiz/internal/ui/layout"
	"github.com/abhisek/geoquiz/internal/ui/theme"
)

func (s *QuizScreen) View(width, height int) string {
	switch s.phase {
	case session.PhaseFailed:
		return s.renderFailed(width, height)
	case session.PhaseActive, session.PhaseFeedback:
		return s.renderQuestion(width)
	case session.PhaseDone:
		return ""
	}
	return s.renderLoading(width, height)
}

func (s *QuizScreen) renderLoading(width, height int) string {
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center,
		s.spinner.View()+" "+theme.Dim.Render("Fetching facts from DBpedia..."))
}

func (s *QuizScreen) renderFailed(width, height int) string {
	msg := theme.Incorrect.Render(s.errMsg) + "\n\n" +
		theme.Hint.Render("Press r to try again or Ctrl+C to quit.")
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center,
		lipgloss.NewStyle().Width(min(width-4, 70)).Align(lipgloss.Center).Render(msg))
}

func (s *QuizScreen) renderQuestion(width int) string {
	q := s.current
	cardWidth := min(width-4, 72)

	var b strings.Builder
	b.WriteString(components.ProgressBar{Done: s.rec.Len(), Total: s.rec.Target(), Width: cardWidth}.View())
	b.WriteString("\n\n")
	b.WriteString(theme.Title.Render(q.Prompt))
	b.WriteString("\n\n")
	b.WriteString(s.choice.View())

	if s.phase == session.PhaseFeedback {
		b.WriteString("\n")
		switch {
		case s.choice.Skipped():
			b.WriteString(theme.Dim.Render("Skipped. The answer is " + q.CorrectAnswer() + "."))
		case s.choice.IsCorrect():
			b.WriteString(theme.Correct.Render("Correct!"))
		default:
			b.WriteString(theme.Incorrect.Render("Not quite. The answer is " + q.CorrectAnswer() + "."))
		}
		b.WriteString("\n\n")
		b.WriteString(theme.Body.Width(cardWidth - 6).Render(q.Explanation))
		if thumb := q.Thumbnail(); thumb != "" {
			b.WriteString("\n")
			b.WriteString(theme.Link.Render(thumb))
		}
	}

	return layout.Center(width, theme.Card.Width(cardWidth).Render(b.String()))
}
