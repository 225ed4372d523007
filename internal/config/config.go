// Package config gathers every tunable of the quiz into one value with
// documented defaults, overridable through GEOQUIZ_* environment variables
// and then by command-line flags.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/abhisek/geoquiz/internal/explain"
	"github.com/abhisek/geoquiz/internal/knowledge"
	"github.com/abhisek/geoquiz/internal/llm"
	"github.com/abhisek/geoquiz/internal/pool"
)

// Config is the full application configuration.
type Config struct {
	Knowledge knowledge.Config
	Pool      pool.Config
	Quiz      QuizConfig
	Log       LogConfig
	LLM       llm.Config
	Explain   explain.Config
}

// QuizConfig controls a single play-through.
type QuizConfig struct {
	// Questions is the number of questions per quiz. Default: 10.
	Questions int
}

// LogConfig controls logrus output.
type LogConfig struct {
	Level  string // trace, debug, info, warn, error. Default: info.
	Format string // text or json. Default: text.
	File   string // Empty means stderr.
}

// Default returns the built-in defaults.
func Default() Config {
	return Config{
		Knowledge: knowledge.DefaultConfig(),
		Pool:      pool.DefaultConfig(),
		Quiz:      QuizConfig{Questions: 10},
		Log:       LogConfig{Level: "info", Format: "text"},
		LLM:       llm.DefaultConfig(),
		Explain:   explain.DefaultConfig(),
	}
}

// FromEnv returns the defaults overlaid with environment variables. A
// variable that is set but unparseable is an error.
func FromEnv() (Config, error) {
	cfg := Default()
	e := &envReader{}

	cfg.Knowledge.Endpoint = e.text("GEOQUIZ_ENDPOINT", cfg.Knowledge.Endpoint)
	cfg.Knowledge.MaxRetries = e.integer("GEOQUIZ_MAX_RETRIES", cfg.Knowledge.MaxRetries)
	cfg.Knowledge.Timeout = e.duration("GEOQUIZ_TIMEOUT", cfg.Knowledge.Timeout)
	cfg.Knowledge.ConnectTimeout = e.duration("GEOQUIZ_CONNECT_TIMEOUT", cfg.Knowledge.ConnectTimeout)

	cfg.Pool.BatchSize = e.integer("GEOQUIZ_BATCH_SIZE", cfg.Pool.BatchSize)
	cfg.Pool.RefillThreshold = e.integer("GEOQUIZ_REFILL_THRESHOLD", cfg.Pool.RefillThreshold)

	cfg.Quiz.Questions = e.integer("GEOQUIZ_QUESTIONS", cfg.Quiz.Questions)

	cfg.Log.Level = e.text("GEOQUIZ_LOG_LEVEL", cfg.Log.Level)
	cfg.Log.Format = e.text("GEOQUIZ_LOG_FORMAT", cfg.Log.Format)
	cfg.Log.File = e.text("GEOQUIZ_LOG_FILE", cfg.Log.File)

	llmCfg := llm.ConfigFromEnv()
	cfg.LLM.Provider = llmCfg.Provider
	cfg.LLM.APIKey = llmCfg.APIKey
	cfg.LLM.Model = llmCfg.Model
	cfg.LLM.BaseURL = llmCfg.BaseURL

	if err := errors.Join(e.errs...); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate rejects values that would make the quiz misbehave.
func (c Config) Validate() error {
	var errs []error
	u, err := url.Parse(c.Knowledge.Endpoint)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = append(errs, fmt.Errorf("endpoint %q must be an http(s) URL", c.Knowledge.Endpoint))
	}
	if c.Knowledge.MaxRetries < 0 || c.Knowledge.MaxRetries > 10 {
		errs = append(errs, fmt.Errorf("max retries must be 0-10, got %d", c.Knowledge.MaxRetries))
	}
	if c.Knowledge.Timeout <= 0 || c.Knowledge.ConnectTimeout <= 0 {
		errs = append(errs, errors.New("timeouts must be positive"))
	}
	if c.Pool.BatchSize < 1 || c.Pool.BatchSize > 500 {
		errs = append(errs, fmt.Errorf("batch size must be 1-500, got %d", c.Pool.BatchSize))
	}
	if c.Pool.RefillThreshold < 0 {
		errs = append(errs, fmt.Errorf("refill threshold must not be negative, got %d", c.Pool.RefillThreshold))
	}
	if c.Quiz.Questions < 1 {
		errs = append(errs, fmt.Errorf("questions must be at least 1, got %d", c.Quiz.Questions))
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log format must be text or json, got %q", c.Log.Format))
	}
	if err := c.LLM.Validate(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// envReader collects parse errors while reading variables.
type envReader struct {
	errs []error
}

func (e *envReader) text(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func (e *envReader) integer(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return n
}

func (e *envReader) duration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return d
}
