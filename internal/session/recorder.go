package session

import (
	"time"

	"github.com/google/uuid"

	"github.com/abhisek/geoquiz/internal/questiongen"
)

// Phase is the current phase of a quiz session.
type Phase int

const (
	PhaseLoading  Phase = iota // Waiting for the pool to preload
	PhaseActive                // Question on screen
	PhaseFeedback              // Showing answer feedback
	PhaseFailed                // Could not load any question
	PhaseDone                  // Quiz finished, result ready
)

// Recorder accumulates answered questions for one quiz session. It is owned
// by a single screen and is not safe for concurrent use.
type Recorder struct {
	id    string
	total int
	start time.Time
	items []Item
	score int

	now func() time.Time
}

// NewRecorder creates a Recorder for a quiz of total questions.
func NewRecorder(total int) *Recorder {
	return &Recorder{
		id:    uuid.NewString(),
		total: total,
		start: time.Now(),
		now:   time.Now,
	}
}

// ID returns the session UUID.
func (r *Recorder) ID() string { return r.id }

// Target returns the planned number of questions.
func (r *Recorder) Target() int { return r.total }

// Record appends a snapshot of q with the selected index and correctness.
// Pass Skipped as selected for a skipped question.
func (r *Recorder) Record(q *questiongen.Question, selected int, correct bool) Item {
	it := Item{
		Question:      q.Clone(),
		SelectedIndex: selected,
		Correct:       correct,
	}
	if correct {
		r.score++
	}
	r.items = append(r.items, it)
	return it
}

// Len returns the number of recorded items.
func (r *Recorder) Len() int { return len(r.items) }

// Score returns the number of correct answers so far.
func (r *Recorder) Score() int { return r.score }

// Complete reports whether the planned number of questions was reached.
func (r *Recorder) Complete() bool {
	return r.total > 0 && len(r.items) >= r.total
}

// Result builds the summary. Total is the number of questions actually
// asked, which is lower than the target if the quiz ended early.
func (r *Recorder) Result() *Result {
	items := make([]Item, len(r.items))
	copy(items, r.items)
	return &Result{
		SessionID: r.id,
		Score:     r.score,
		Total:     len(items),
		Items:     items,
		Duration:  r.now().Sub(r.start),
	}
}
