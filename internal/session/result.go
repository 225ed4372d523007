package session

import (
	"time"

	"github.com/abhisek/geoquiz/internal/questiongen"
)

// Skipped is the selected index recorded when the player skips a question.
const Skipped = -1

// skippedText is shown in place of an answer the player never gave.
const skippedText = "(skipped)"

// Item is a snapshot of one completed question and the player's answer.
type Item struct {
	Question      questiongen.Question
	SelectedIndex int // Skipped when no option was chosen
	Correct       bool
}

// Answered reports whether an option was selected.
func (it Item) Answered() bool {
	return it.SelectedIndex >= 0 && it.SelectedIndex < len(it.Question.Options)
}

// CorrectText returns the text of the correct option.
func (it Item) CorrectText() string {
	return it.Question.CorrectAnswer()
}

// SelectedText returns the text of the chosen option, or "(skipped)".
func (it Item) SelectedText() string {
	if !it.Answered() {
		return skippedText
	}
	return it.Question.Options[it.SelectedIndex]
}

// Result is the summary handed from the quiz screen to the result screen.
type Result struct {
	SessionID string
	Score     int
	Total     int
	Items     []Item
	Duration  time.Duration

	// EndReason explains an early end, empty when the quiz ran its course.
	EndReason string
}

// Accuracy returns Score/Total, or 0 for an empty result.
func (r *Result) Accuracy() float64 {
	if r == nil || r.Total == 0 {
		return 0
	}
	return float64(r.Score) / float64(r.Total)
}

// Missed returns the indices of items that were answered wrongly or skipped.
func (r *Result) Missed() []int {
	if r == nil {
		return nil
	}
	var idx []int
	for i, it := range r.Items {
		if !it.Correct {
			idx = append(idx, i)
		}
	}
	return idx
}
