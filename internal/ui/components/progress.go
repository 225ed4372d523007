package components

import (
	"fmt"
	"strings"

	"github.com/abhisek/geoquiz/internal/ui/theme"
)

// ProgressBar renders "done/total" as a horizontal bar.
type ProgressBar struct {
	Done  int
	Total int
	Width int
}

// View renders the bar followed by the count.
func (p ProgressBar) View() string {
	label := fmt.Sprintf(" %d/%d", p.Done, p.Total)
	bar := max(p.Width-len(label), 4)

	filled := 0
	if p.Total > 0 {
		filled = min(bar*p.Done/p.Total, bar)
	}
	return theme.ProgressFilled.Render(strings.Repeat(" ", filled)) +
		theme.ProgressEmpty.Render(strings.Repeat(" ", bar-filled)) +
		theme.Dim.Render(label)
}
