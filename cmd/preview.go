package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abhisek/geoquiz/internal/knowledge"
	"github.com/abhisek/geoquiz/internal/pool"
	"github.com/abhisek/geoquiz/internal/questiongen"
)

var previewCmd = &cobra.Command{
	Use:   "preview",
	Short: "Print generated questions without starting the TUI",
	Long: `Preload the fact pool and print the next N questions with their answers.

This is a developer tool for checking question quality against the live
endpoint. Logs go to stderr.`,
	RunE: runPreview,
}

func init() {
	previewCmd.Flags().Int("count", 5, "Number of questions to print")
}

func runPreview(cmd *cobra.Command, args []string) error {
	count, _ := cmd.Flags().GetInt("count")
	if count < 1 {
		return fmt.Errorf("--count must be at least 1, got %d", count)
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	log, closer, err := setupLogger(cfg, os.Stderr)
	if err != nil {
		return err
	}
	defer closer.Close()

	ctx := cmd.Context()
	client := knowledge.New(cfg.Knowledge, knowledge.WithLogger(log))
	mgr := pool.New(client, questiongen.NewGenerator(nil), cfg.Pool, pool.WithLogger(log))

	if err := mgr.Preload(ctx); err != nil {
		return fmt.Errorf("preload: %w", err)
	}

	out := cmd.OutOrStdout()
	printed := 0
	for i := 1; i <= count; i++ {
		q, err := mgr.NextQuestion(ctx)
		if err != nil {
			return fmt.Errorf("question %d: %w", i, err)
		}
		if q == nil {
			fmt.Fprintf(out, "Pool exhausted after %d questions.\n\n", printed)
			break
		}
		printQuestion(out, i, count, q)
		printed++
	}

	st := mgr.Stats()
	fmt.Fprintf(out, "── Pool: %d facts, %d decoys, %d queued, %d used ──\n",
		st.Facts, st.Decoys, st.Queued, st.Used)
	return nil
}

func printQuestion(out io.Writer, i, count int, q *questiongen.Question) {
	fmt.Fprintf(out, "── Question %d/%d (%s) ──\n", i, count, q.Type)
	fmt.Fprintln(out, q.Prompt)
	for j, opt := range q.Options {
		mark := " "
		if j == q.CorrectIndex {
			mark = "✓"
		}
		fmt.Fprintf(out, "  %s %d) %s\n", mark, j+1, opt)
	}
	if q.Explanation != "" {
		fmt.Fprintf(out, "Explanation: %s\n", q.Explanation)
	}
	if thumb := strings.TrimSpace(q.Thumbnail()); thumb != "" {
		fmt.Fprintf(out, "Image: %s\n", thumb)
	}
	fmt.Fprintln(out)
}
