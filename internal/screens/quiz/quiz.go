// Package quiz is the screen that asks a fixed number of questions and
// hands the recorded result to the next screen.
package quiz

import (
	"context"
	"fmt"

	"charm.land/bubbles/v2/key"
	"charm.land/bubbles/v2/spinner"
	tea "charm.land/bubbletea/v2"
	"github.com/sirupsen/logrus"

	"github.com/abhisek/geoquiz/internal/questiongen"
	"github.com/abhisek/geoquiz/internal/router"
	"github.com/abhisek/geoquiz/internal/screen"
	"github.com/abhisek/geoquiz/internal/session"
	"github.com/abhisek/geoquiz/internal/ui/components"
	"github.com/abhisek/geoquiz/internal/ui/layout"
	"github.com/abhisek/geoquiz/internal/ui/theme"
)

// QuestionSource is the slice of the fact pool the screen needs.
type QuestionSource interface {
	Preload(ctx context.Context) error
	NextQuestion(ctx context.Context) (*questiongen.Question, error)
}

// Options configures a QuizScreen.
type Options struct {
	// Questions is the quiz length.
	Questions int

	// Finish builds the screen shown after the last question.
	Finish func(*session.Result) screen.Screen

	Logger logrus.FieldLogger
}

type keyMap struct {
	Continue key.Binding
	Quit     key.Binding
	Retry    key.Binding
}

var keys = keyMap{
	Continue: key.NewBinding(key.WithKeys("enter", "space", "n"), key.WithHelp("Enter", "Next")),
	Quit:     key.NewBinding(key.WithKeys("q"), key.WithHelp("q", "End quiz")),
	Retry:    key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "Retry")),
}

// QuizScreen runs one quiz.
type QuizScreen struct {
	ctx    context.Context
	source QuestionSource
	opts   Options
	log    logrus.FieldLogger

	rec     *session.Recorder
	phase   session.Phase
	current *questiongen.Question
	choice  components.MultiChoice
	spinner spinner.Model
	errMsg  string
	notice  string
}

var _ screen.Screen = (*QuizScreen)(nil)
var _ screen.KeyHintProvider = (*QuizScreen)(nil)
var _ screen.StatusProvider = (*QuizScreen)(nil)

// New creates a QuizScreen drawing questions from source. ctx bounds every
// network call the screen makes.
func New(ctx context.Context, source QuestionSource, opts Options) *QuizScreen {
	if opts.Questions < 1 {
		opts.Questions = 10
	}
	log := opts.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &QuizScreen{
		ctx:     ctx,
		source:  source,
		opts:    opts,
		log:     log,
		rec:     session.NewRecorder(opts.Questions),
		phase:   session.PhaseLoading,
		spinner: spinner.New(spinner.WithSpinner(spinner.Globe), spinner.WithStyle(theme.Dim)),
	}
}

func (s *QuizScreen) Init() tea.Cmd {
	return tea.Batch(s.spinner.Tick, s.preload())
}

func (s *QuizScreen) Title() string { return "Capitals of the World" }

// Status shows the running score in the header.
func (s *QuizScreen) Status() string {
	return fmt.Sprintf("Score %d/%d", s.rec.Score(), s.rec.Len())
}

func (s *QuizScreen) KeyHints() []layout.KeyHint {
	switch s.phase {
	case session.PhaseActive:
		return append(s.choice.Keys().Hints(), hint(keys.Quit))
	case session.PhaseFeedback:
		return []layout.KeyHint{hint(keys.Continue), hint(keys.Quit)}
	case session.PhaseFailed:
		return []layout.KeyHint{hint(keys.Retry), {Key: "Ctrl+C", Description: "Quit"}}
	}
	return []layout.KeyHint{{Key: "Ctrl+C", Description: "Quit"}}
}

func (s *QuizScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case preloadDoneMsg:
		return s.handlePreload(msg)
	case questionMsg:
		return s.handleQuestion(msg)
	case spinner.TickMsg:
		var cmd tea.Cmd
		s.spinner, cmd = s.spinner.Update(msg)
		return s, cmd
	case tea.KeyMsg:
		return s.handleKey(msg)
	}
	return s, nil
}

func (s *QuizScreen) handlePreload(msg preloadDoneMsg) (screen.Screen, tea.Cmd) {
	if msg.Err != nil {
		s.log.WithError(msg.Err).Error("initial preload failed")
		s.fail(msg.Err)
		return s, nil
	}
	return s, s.next()
}

func (s *QuizScreen) handleQuestion(msg questionMsg) (screen.Screen, tea.Cmd) {
	switch {
	case msg.Err != nil && s.rec.Len() == 0:
		s.log.WithError(msg.Err).Error("no question for a new quiz")
		s.fail(msg.Err)
		return s, nil
	case msg.Err != nil:
		s.log.WithError(msg.Err).Warn("ending quiz early")
		s.notice = "The knowledge service stopped answering, so the quiz ended early."
		return s, s.finish()
	case msg.Question == nil && s.rec.Len() == 0:
		s.fail(nil)
		return s, nil
	case msg.Question == nil:
		s.notice = "We ran out of fresh questions."
		return s, s.finish()
	}

	s.current = msg.Question
	s.choice = components.NewMultiChoice(msg.Question.Options, msg.Question.CorrectIndex)
	s.phase = session.PhaseActive
	return s, nil
}

func (s *QuizScreen) handleKey(msg tea.KeyMsg) (screen.Screen, tea.Cmd) {
	switch s.phase {
	case session.PhaseActive:
		if key.Matches(msg, keys.Quit) {
			return s, s.finish()
		}
		s.choice = s.choice.Update(msg)
		if s.choice.Submitted {
			s.record()
		}
	case session.PhaseFeedback:
		switch {
		case key.Matches(msg, keys.Quit):
			return s, s.finish()
		case key.Matches(msg, keys.Continue):
			if s.rec.Complete() {
				return s, s.finish()
			}
			s.phase = session.PhaseLoading
			s.current = nil
			return s, s.next()
		}
	case session.PhaseFailed:
		if key.Matches(msg, keys.Retry) {
			s.errMsg = ""
			s.phase = session.PhaseLoading
			return s, s.preload()
		}
	}
	return s, nil
}

func (s *QuizScreen) record() {
	selected := s.choice.Chosen
	correct := s.choice.IsCorrect()
	s.rec.Record(s.current, selected, correct)
	s.phase = session.PhaseFeedback

	s.log.WithFields(logrus.Fields{
		"question": s.current.ID,
		"type":     s.current.Type,
		"selected": selected,
		"correct":  correct,
		"score":    s.rec.Score(),
	}).Debug("answer recorded")
}

func (s *QuizScreen) fail(err error) {
	s.phase = session.PhaseFailed
	if err == nil {
		s.errMsg = "No questions are available right now."
		return
	}
	s.errMsg = fmt.Sprintf("Could not load questions: %v", err)
}

func (s *QuizScreen) finish() tea.Cmd {
	s.phase = session.PhaseDone
	res := s.rec.Result()
	res.EndReason = s.notice
	s.log.WithFields(logrus.Fields{
		"session": res.SessionID,
		"score":   res.Score,
		"total":   res.Total,
	}).Info("quiz finished")

	if s.opts.Finish == nil {
		return tea.Quit
	}
	next := s.opts.Finish(res)
	return func() tea.Msg { return router.ReplaceScreenMsg{Screen: next} }
}

func (s *QuizScreen) preload() tea.Cmd {
	ctx, src := s.ctx, s.source
	return func() tea.Msg {
		return preloadDoneMsg{Err: src.Preload(ctx)}
	}
}

func (s *QuizScreen) next() tea.Cmd {
	ctx, src := s.ctx, s.source
	return func() tea.Msg {
		q, err := src.NextQuestion(ctx)
		return questionMsg{Question: q, Err: err}
	}
}

func hint(b key.Binding) layout.KeyHint {
	return layout.KeyHint{Key: b.Help().Key, Description: b.Help().Desc}
}
