package quiz

import "github.com/abhisek/geoquiz/internal/questiongen"

// preloadDoneMsg reports the initial pool fill.
type preloadDoneMsg struct {
	Err error
}

// questionMsg carries the next question. A nil Question with a nil Err
// means the pool is exhausted.
type questionMsg struct {
	Question *questiongen.Question
	Err      error
}
