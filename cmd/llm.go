package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/abhisek/geoquiz/internal/explain"
	"github.com/abhisek/geoquiz/internal/llm"
	"github.com/abhisek/geoquiz/internal/questiongen"
	"github.com/abhisek/geoquiz/internal/session"
)

var llmCmd = &cobra.Command{
	Use:   "llm",
	Short: "Show the LLM provider used for post-quiz explanations",
	RunE:  runLLM,
}

func init() {
	llmCmd.Flags().Bool("ping", false, "Ask the provider for one sample explanation")
}

func runLLM(cmd *cobra.Command, args []string) error {
	ping, _ := cmd.Flags().GetBool("ping")

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if !cfg.LLM.Enabled() {
		fmt.Fprintln(out, "No LLM provider configured. Set GEOQUIZ_LLM_PROVIDER and GEOQUIZ_LLM_API_KEY,")
		fmt.Fprintln(out, "or one of GEMINI_API_KEY, OPENAI_API_KEY, ANTHROPIC_API_KEY, OPENROUTER_API_KEY.")
		return nil
	}
	fmt.Fprintf(out, "Provider: %s\nModel:    %s\n", cfg.LLM.Provider, cfg.LLM.ModelOrDefault())
	if !ping {
		return nil
	}

	log, closer, err := setupLogger(cfg, os.Stderr)
	if err != nil {
		return err
	}
	defer closer.Close()

	ctx := cmd.Context()
	provider, err := llm.New(ctx, cfg.LLM, log)
	if errors.Is(err, llm.ErrDisabled) {
		return nil
	}
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, cfg.LLM.Timeout)
	defer cancel()
	svc := explain.NewService(provider, cfg.Explain, log)
	text, err := svc.Explain(ctx, sampleItem())
	if err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	fmt.Fprintf(out, "\n%s\n", text)
	return nil
}

func sampleItem() session.Item {
	return session.Item{
		Question: questiongen.Question{
			Type:         questiongen.TypeByCountry,
			Prompt:       "What is the capital city of Australia?",
			Options:      []string{"Sydney", "Canberra", "Melbourne", "Perth"},
			CorrectIndex: 1,
			Meta: map[string]string{
				questiongen.MetaCountry: "Australia",
				questiongen.MetaCapital: "Canberra",
			},
		},
		SelectedIndex: 0,
	}
}
