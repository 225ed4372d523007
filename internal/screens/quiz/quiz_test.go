package quiz

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	tea "charm.land/bubbletea/v2"
	"github.com/sirupsen/logrus/hooks/test"

	"github.com/abhisek/geoquiz/internal/questiongen"
	"github.com/abhisek/geoquiz/internal/router"
	"github.com/abhisek/geoquiz/internal/screen"
	"github.com/abhisek/geoquiz/internal/session"
)

type fakeSource struct {
	questions  []*questiongen.Question
	preloadErr error
	nextErr    error
	preloads   int
}

func (f *fakeSource) Preload(context.Context) error {
	f.preloads++
	return f.preloadErr
}

func (f *fakeSource) NextQuestion(context.Context) (*questiongen.Question, error) {
	if f.nextErr != nil {
		return nil, f.nextErr
	}
	if len(f.questions) == 0 {
		return nil, nil
	}
	q := f.questions[0]
	f.questions = f.questions[1:]
	return q, nil
}

type stubScreen struct{ title string }

func (s *stubScreen) Init() tea.Cmd                           { return nil }
func (s *stubScreen) Update(tea.Msg) (screen.Screen, tea.Cmd) { return s, nil }
func (s *stubScreen) View(int, int) string                    { return s.title }
func (s *stubScreen) Title() string                           { return s.title }

func makeQuestions(n int) []*questiongen.Question {
	qs := make([]*questiongen.Question, n)
	for i := range qs {
		qs[i] = &questiongen.Question{
			ID:           fmt.Sprintf("q%d", i),
			Type:         questiongen.TypeByCountry,
			Prompt:       fmt.Sprintf("What is the capital city of Country %d?", i),
			Options:      []string{"A", "B", "C", "D"},
			CorrectIndex: 1,
			Explanation:  "B is the capital.",
			Meta:         map[string]string{questiongen.MetaThumbnail: "http://example.org/flag.png"},
		}
	}
	return qs
}

func keyPress(r rune) tea.KeyPressMsg {
	return tea.KeyPressMsg{Code: r, Text: string(r)}
}

func newTestQuiz(src QuestionSource, questions int) (*QuizScreen, **session.Result) {
	var got *session.Result
	log, _ := test.NewNullLogger()
	s := New(context.Background(), src, Options{
		Questions: questions,
		Logger:    log,
		Finish: func(res *session.Result) screen.Screen {
			got = res
			return &stubScreen{title: "result"}
		},
	})
	return s, &got
}

// send delivers msg and returns the message produced by the resulting
// command, if any.
func send(t *testing.T, s *QuizScreen, msg tea.Msg) tea.Msg {
	t.Helper()
	_, cmd := s.Update(msg)
	if cmd == nil {
		return nil
	}
	return cmd()
}

// start runs the preload and first question fetch.
func start(t *testing.T, s *QuizScreen) {
	t.Helper()
	next := send(t, s, preloadDoneMsg{})
	if next == nil {
		t.Fatal("expected a question fetch after preload")
	}
	send(t, s, next)
}

func TestQuiz_FullRun(t *testing.T) {
	src := &fakeSource{questions: makeQuestions(5)}
	s, got := newTestQuiz(src, 3)
	start(t, s)

	answers := []rune{'2', '1', 's'}
	for i, a := range answers {
		if s.phase != session.PhaseActive {
			t.Fatalf("question %d: phase = %v, want active", i, s.phase)
		}
		send(t, s, keyPress(a))
		if s.phase != session.PhaseFeedback {
			t.Fatalf("question %d: phase = %v, want feedback", i, s.phase)
		}
		if !strings.Contains(s.View(100, 30), "B is the capital.") {
			t.Errorf("question %d: feedback should show the explanation", i)
		}

		msg := send(t, s, tea.KeyPressMsg{Code: tea.KeyEnter})
		if i < len(answers)-1 {
			send(t, s, msg)
			continue
		}
		replace, ok := msg.(router.ReplaceScreenMsg)
		if !ok {
			t.Fatalf("last continue produced %T, want ReplaceScreenMsg", msg)
		}
		if replace.Screen.Title() != "result" {
			t.Errorf("replaced with %q", replace.Screen.Title())
		}
	}

	res := *got
	if res == nil {
		t.Fatal("finish callback not called")
	}
	if res.Total != 3 || res.Score != 1 {
		t.Errorf("result = %d/%d, want 1/3", res.Score, res.Total)
	}
	if res.Items[1].SelectedIndex != 0 || res.Items[2].Answered() {
		t.Errorf("unexpected items: %+v", res.Items)
	}
	if res.EndReason != "" {
		t.Errorf("EndReason = %q, want empty", res.EndReason)
	}
}

func TestQuiz_StatusTracksScore(t *testing.T) {
	s, _ := newTestQuiz(&fakeSource{questions: makeQuestions(2)}, 2)
	start(t, s)
	send(t, s, keyPress('2'))
	if s.Status() != "Score 1/1" {
		t.Errorf("Status() = %q", s.Status())
	}
}

func TestQuiz_InitialFailureAndRetry(t *testing.T) {
	src := &fakeSource{preloadErr: errors.New("dbpedia unreachable")}
	s, _ := newTestQuiz(src, 3)

	send(t, s, preloadDoneMsg{Err: src.Preload(context.Background())})
	if s.phase != session.PhaseFailed {
		t.Fatalf("phase = %v, want failed", s.phase)
	}
	view := s.View(100, 30)
	if !strings.Contains(view, "Could not load questions") {
		t.Errorf("view should explain the failure:\n%s", view)
	}

	src.preloadErr = nil
	src.questions = makeQuestions(1)
	msg := send(t, s, keyPress('r'))
	if s.phase != session.PhaseLoading {
		t.Fatalf("phase after retry = %v, want loading", s.phase)
	}
	if _, ok := msg.(preloadDoneMsg); !ok {
		t.Fatalf("retry produced %T, want preloadDoneMsg", msg)
	}
	send(t, s, send(t, s, msg))
	if s.phase != session.PhaseActive {
		t.Fatalf("phase = %v, want active after successful retry", s.phase)
	}
}

func TestQuiz_ExhaustionEndsEarly(t *testing.T) {
	s, got := newTestQuiz(&fakeSource{questions: makeQuestions(1)}, 10)
	start(t, s)
	send(t, s, keyPress('2'))

	next := send(t, s, tea.KeyPressMsg{Code: tea.KeyEnter})
	msg := send(t, s, next)
	if _, ok := msg.(router.ReplaceScreenMsg); !ok {
		t.Fatalf("exhaustion produced %T, want ReplaceScreenMsg", msg)
	}
	if (*got).Total != 1 || (*got).EndReason == "" {
		t.Errorf("result = %+v", *got)
	}
}

func TestQuiz_EmptyPoolIsFailure(t *testing.T) {
	s, got := newTestQuiz(&fakeSource{}, 10)
	start(t, s)
	if s.phase != session.PhaseFailed || *got != nil {
		t.Fatalf("phase = %v, result = %v", s.phase, *got)
	}
	if !strings.Contains(s.View(100, 30), "No questions") {
		t.Error("view should say no questions are available")
	}
}

func TestQuiz_QuitEarly(t *testing.T) {
	s, got := newTestQuiz(&fakeSource{questions: makeQuestions(5)}, 5)
	start(t, s)
	send(t, s, keyPress('2'))
	send(t, s, send(t, s, tea.KeyPressMsg{Code: tea.KeyEnter}))

	msg := send(t, s, keyPress('q'))
	if _, ok := msg.(router.ReplaceScreenMsg); !ok {
		t.Fatalf("q produced %T, want ReplaceScreenMsg", msg)
	}
	if (*got).Total != 1 || (*got).Score != 1 {
		t.Errorf("result = %d/%d, want 1/1", (*got).Score, (*got).Total)
	}
}

func TestQuiz_KeyHintsFollowPhase(t *testing.T) {
	s, _ := newTestQuiz(&fakeSource{questions: makeQuestions(1)}, 1)
	start(t, s)
	if hints := s.KeyHints(); hints[len(hints)-1].Key != "q" {
		t.Errorf("active hints = %+v", hints)
	}
	send(t, s, keyPress('1'))
	if hints := s.KeyHints(); hints[0].Key != "Enter" {
		t.Errorf("feedback hints = %+v", hints)
	}
}
