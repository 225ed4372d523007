package cmd

import (
	"context"
	"fmt"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/abhisek/geoquiz/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "geoquiz",
	Short: "Capitals-of-the-world quiz in your terminal",
	Long: `GeoQuiz builds multiple-choice questions about countries and their capitals
from live DBpedia facts. Each fact is asked at most once per session.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runApp(cmd)
	},
}

// Execute runs the root command with ctx.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	registerConfigFlags(rootCmd)

	rootCmd.AddCommand(playCmd)
	rootCmd.AddCommand(previewCmd)
	rootCmd.AddCommand(factsCmd)
	rootCmd.AddCommand(llmCmd)
	rootCmd.AddCommand(versionCmd)
}

// registerConfigFlags adds the flags read by loadConfig to cmd and its
// subcommands.
func registerConfigFlags(cmd *cobra.Command) {
	f := cmd.PersistentFlags()
	f.String("endpoint", "", "SPARQL endpoint URL (overrides GEOQUIZ_ENDPOINT)")
	f.Int("batch-size", 0, "Facts fetched per preload (overrides GEOQUIZ_BATCH_SIZE)")
	f.Int("refill-threshold", 0, "Queue size at or below which the pool refills (overrides GEOQUIZ_REFILL_THRESHOLD)")
	f.Int("max-retries", 0, "Extra attempts for failed requests (overrides GEOQUIZ_MAX_RETRIES)")
	f.Duration("timeout", 0, "Per-request timeout (overrides GEOQUIZ_TIMEOUT)")
	f.Duration("connect-timeout", 0, "Dial timeout (overrides GEOQUIZ_CONNECT_TIMEOUT)")
	f.Int("questions", 0, "Questions per quiz (overrides GEOQUIZ_QUESTIONS)")
	f.String("log-level", "", "trace, debug, info, warn or error (overrides GEOQUIZ_LOG_LEVEL)")
	f.String("log-format", "", "text or json (overrides GEOQUIZ_LOG_FORMAT)")
	f.String("log-file", "", "Log file path (overrides GEOQUIZ_LOG_FILE)")
}

// loadConfig resolves defaults, then GEOQUIZ_* env vars (a .env file in the
// working directory is loaded first if present), then flags that were set
// explicitly.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	_ = godotenv.Load()

	cfg, err := config.FromEnv()
	if err != nil {
		return cfg, fmt.Errorf("read environment: %w", err)
	}

	f := cmd.Flags()
	if f.Changed("endpoint") {
		cfg.Knowledge.Endpoint, _ = f.GetString("endpoint")
	}
	if f.Changed("batch-size") {
		cfg.Pool.BatchSize, _ = f.GetInt("batch-size")
	}
	if f.Changed("refill-threshold") {
		cfg.Pool.RefillThreshold, _ = f.GetInt("refill-threshold")
	}
	if f.Changed("max-retries") {
		cfg.Knowledge.MaxRetries, _ = f.GetInt("max-retries")
	}
	if f.Changed("timeout") {
		cfg.Knowledge.Timeout, _ = f.GetDuration("timeout")
	}
	if f.Changed("connect-timeout") {
		cfg.Knowledge.ConnectTimeout, _ = f.GetDuration("connect-timeout")
	}
	if f.Changed("questions") {
		cfg.Quiz.Questions, _ = f.GetInt("questions")
	}
	if f.Changed("log-level") {
		cfg.Log.Level, _ = f.GetString("log-level")
	}
	if f.Changed("log-format") {
		cfg.Log.Format, _ = f.GetString("log-format")
	}
	if f.Changed("log-file") {
		cfg.Log.File, _ = f.GetString("log-file")
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}
