package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/adrg/xdg"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/abhisek/geoquiz/internal/app"
	"github.com/abhisek/geoquiz/internal/config"
	"github.com/abhisek/geoquiz/internal/explain"
	"github.com/abhisek/geoquiz/internal/knowledge"
	"github.com/abhisek/geoquiz/internal/llm"
	"github.com/abhisek/geoquiz/internal/logging"
	"github.com/abhisek/geoquiz/internal/pool"
	"github.com/abhisek/geoquiz/internal/questiongen"
	"github.com/abhisek/geoquiz/internal/screen"
	"github.com/abhisek/geoquiz/internal/screens/quiz"
	"github.com/abhisek/geoquiz/internal/screens/result"
	"github.com/abhisek/geoquiz/internal/session"
)

var playCmd = &cobra.Command{
	Use:   "play",
	Short: "Start a quiz (same as running geoquiz with no command)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runApp(cmd)
	},
}

// runApp builds the quiz dependencies and launches the TUI.
func runApp(cmd *cobra.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cfg.Log.File == "" {
		if cfg.Log.File, err = defaultLogFile(); err != nil {
			return err
		}
	}

	log, closer, err := setupLogger(cfg, nil)
	if err != nil {
		return err
	}
	defer closer.Close()

	ctx := cmd.Context()
	client := knowledge.New(cfg.Knowledge, knowledge.WithLogger(log))
	explainer := newExplainer(ctx, cfg, log)

	var newQuiz func() screen.Screen
	newQuiz = func() screen.Screen {
		mgr := pool.New(client, questiongen.NewGenerator(nil), cfg.Pool, pool.WithLogger(log))
		return quiz.New(ctx, mgr, quiz.Options{
			Questions: cfg.Quiz.Questions,
			Logger:    log,
			Finish: func(res *session.Result) screen.Screen {
				return result.New(ctx, res, explainer, newQuiz)
			},
		})
	}

	log.WithField("endpoint", cfg.Knowledge.Endpoint).Info("starting quiz")
	return app.Run(ctx, newQuiz())
}

// defaultLogFile returns the per-user TUI log path under the XDG state
// directory, creating its parent.
func defaultLogFile() (string, error) {
	path, err := xdg.StateFile("geoquiz/geoquiz.log")
	if err != nil {
		return "", fmt.Errorf("resolve log file: %w", err)
	}
	return path, nil
}

// setupLogger configures the standard logrus logger from cfg. Output goes to
// cfg.Log.File, or to fallback (stderr when nil) if no file is set.
func setupLogger(cfg config.Config, fallback io.Writer) (*logrus.Logger, io.Closer, error) {
	log := logrus.StandardLogger()
	closer, err := logging.Setup(log, logging.Options{
		Level:    cfg.Log.Level,
		Format:   cfg.Log.Format,
		File:     cfg.Log.File,
		Fallback: fallback,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("setup logging: %w", err)
	}
	return log, closer, nil
}

// newExplainer returns nil when no LLM provider is configured; the quiz
// works without one.
func newExplainer(ctx context.Context, cfg config.Config, log logrus.FieldLogger) result.Explainer {
	provider, err := llm.New(ctx, cfg.LLM, log)
	if err != nil {
		if !errors.Is(err, llm.ErrDisabled) {
			log.WithError(err).Warn("llm provider unavailable, explanations disabled")
		}
		return nil
	}
	return explain.NewService(provider, cfg.Explain, log)
}
