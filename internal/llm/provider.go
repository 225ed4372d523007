// Package llm is a small provider-neutral wrapper around hosted language
// models. The quiz only uses it for optional one-shot explanations, so a
// request is a single prompt with an optional JSON schema for the reply.
package llm

import (
	"context"
	"encoding/json"
)

// Provider generates a completion for a single-turn request.
type Provider interface {
	// Generate sends req and returns the model's reply. When req.Schema is
	// set the reply Content is JSON that has been validated against it.
	Generate(ctx context.Context, req Request) (*Response, error)

	// ModelID returns the model identifier requests are sent to.
	ModelID() string
}

// Request is a single-turn prompt.
type Request struct {
	System string
	Prompt string

	// Schema constrains the reply to a JSON object. Nil means free text.
	Schema *Schema

	MaxTokens   int
	Temperature float64
}

// Schema names a JSON Schema definition expected from the model.
type Schema struct {
	Name        string
	Description string
	Definition  map[string]any
}

// Response is the model's reply.
type Response struct {
	Content json.RawMessage
	Usage   Usage
	Model   string

	// Truncated is set when generation stopped at MaxTokens.
	Truncated bool
}

// Usage is the token accounting reported by the provider.
type Usage struct {
	InputTokens  int
	OutputTokens int
}

// Total returns input plus output tokens.
func (u Usage) Total() int { return u.InputTokens + u.OutputTokens }
