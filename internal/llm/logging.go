package llm

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

type loggingProvider struct {
	inner Provider
	log   logrus.FieldLogger
}

// WithLogging wraps p so that every call is logged with its purpose,
// latency and token usage.
func WithLogging(p Provider, log logrus.FieldLogger) Provider {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &loggingProvider{inner: p, log: log}
}

func (l *loggingProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()
	resp, err := l.inner.Generate(ctx, req)

	entry := l.log.WithFields(logrus.Fields{
		"model":      l.inner.ModelID(),
		"purpose":    PurposeFrom(ctx),
		"latency_ms": time.Since(start).Milliseconds(),
	})
	if req.Schema != nil {
		entry = entry.WithField("schema", req.Schema.Name)
	}
	if err != nil {
		entry.WithError(err).Debug("llm request failed")
		return nil, err
	}

	entry.WithFields(logrus.Fields{
		"input_tokens":  resp.Usage.InputTokens,
		"output_tokens": resp.Usage.OutputTokens,
		"truncated":     resp.Truncated,
	}).Debug("llm request")
	return resp, nil
}

func (l *loggingProvider) ModelID() string { return l.inner.ModelID() }
