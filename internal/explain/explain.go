// Package explain asks an LLM for short, friendly notes on questions the
// player got wrong. It is optional: the quiz works without it.
package explain

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/abhisek/geoquiz/internal/llm"
	"github.com/abhisek/geoquiz/internal/session"
)

// Schema is the reply shape for one explanation.
var Schema = &llm.Schema{
	Name:        "capital-explanation",
	Description: "A short note helping a quiz player remember a capital city",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"explanation": map[string]any{
				"type":        "string",
				"description": "One or two sentences, at most 60 words",
				"minLength":   1,
			},
		},
		"required":             []any{"explanation"},
		"additionalProperties": false,
	},
}

const systemPrompt = `You help people learn world capitals after a trivia quiz.
Given a question they missed, write one or two friendly sentences that state the correct answer
and give a memorable fact or mnemonic about it. If they picked a wrong option, briefly say what that option is.
Do not invent statistics.`

// Config holds generation settings.
type Config struct {
	MaxTokens   int
	Temperature float64

	// Concurrency bounds parallel requests in ExplainMissed.
	Concurrency int
}

// DefaultConfig returns the defaults.
func DefaultConfig() Config {
	return Config{
		MaxTokens:   256,
		Temperature: 0.4,
		Concurrency: 3,
	}
}

// Service generates explanations.
type Service struct {
	provider llm.Provider
	cfg      Config
	log      logrus.FieldLogger
}

// NewService creates a Service backed by provider.
func NewService(provider llm.Provider, cfg Config, log logrus.FieldLogger) *Service {
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Service{provider: provider, cfg: cfg, log: log}
}

type output struct {
	Explanation string `json:"explanation"`
}

// Explain returns a note for a single answered item.
func (s *Service) Explain(ctx context.Context, item session.Item) (string, error) {
	resp, err := s.provider.Generate(llm.WithPurpose(ctx, "explain"), llm.Request{
		System:      systemPrompt,
		Prompt:      prompt(item),
		Schema:      Schema,
		MaxTokens:   s.cfg.MaxTokens,
		Temperature: s.cfg.Temperature,
	})
	if err != nil {
		return "", fmt.Errorf("explain %q: %w", item.Question.Prompt, err)
	}

	var out output
	if err := json.Unmarshal(resp.Content, &out); err != nil {
		return "", fmt.Errorf("parse explanation: %w", err)
	}
	return strings.TrimSpace(out.Explanation), nil
}

// ExplainMissed explains every missed item of res, keyed by item index.
// Individual failures are logged and left out of the map; the error is
// non-nil only when ctx ends first.
func (s *Service) ExplainMissed(ctx context.Context, res *session.Result) (map[int]string, error) {
	missed := res.Missed()
	notes := make(map[int]string, len(missed))
	if len(missed) == 0 {
		return notes, nil
	}

	var (
		mu sync.Mutex
		g  errgroup.Group
	)
	g.SetLimit(s.cfg.Concurrency)
	for _, idx := range missed {
		item := res.Items[idx]
		g.Go(func() error {
			note, err := s.Explain(ctx, item)
			if err != nil {
				s.log.WithError(err).WithField("item", idx).Warn("explanation unavailable")
				return nil
			}
			mu.Lock()
			notes[idx] = note
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return notes, err
	}
	return notes, nil
}

func prompt(item session.Item) string {
	q := item.Question
	var b strings.Builder
	fmt.Fprintf(&b, "Question: %s\n", q.Prompt)
	fmt.Fprintf(&b, "Options: %s\n", strings.Join(q.Options, ", "))
	fmt.Fprintf(&b, "Correct answer: %s\n", item.CorrectText())
	if item.Answered() {
		fmt.Fprintf(&b, "Player chose: %s\n", item.SelectedText())
	} else {
		b.WriteString("Player skipped the question.\n")
	}
	if q.Explanation != "" {
		fmt.Fprintf(&b, "Known fact: %s\n", q.Explanation)
	}
	return b.String()
}
