package llm

import (
	"context"
	"encoding/json"
)

// DefaultMaxTokens caps responses when a request leaves MaxTokens unset.
// Remediation notes are a few sentences, so this is generous.
const DefaultMaxTokens = 1024

// Provider generates structured JSON from a prompt. Implementations wrap a
// vendor SDK; decorators (retry, logging, fallback) wrap other Providers.
type Provider interface {
	// Generate sends req and returns the model output. When req.Schema is
	// set, Content has been validated against it.
	Generate(ctx context.Context, req Request) (*Response, error)

	// ModelID names the model requests are sent to.
	ModelID() string
}

// Request is a single-turn or few-turn generation request.
type Request struct {
	System   string
	Messages []Message

	// Schema, when set, asks the provider for native structured output and
	// enables response validation.
	Schema *Schema

	// MaxTokens of zero means DefaultMaxTokens.
	MaxTokens int

	// Temperature in [0, 1]. Zero leaves the provider default.
	Temperature float64
}

type Message struct {
	Role    Role
	Content string
}

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Schema is a named JSON Schema. Name is kebab-case and is sent to
// providers that require one, e.g. "remediation-note".
type Schema struct {
	Name        string
	Description string
	Definition  map[string]any
}

// Response is a provider answer. StopReason is normalized to "end" or
// "max_tokens".
type Response struct {
	Content    json.RawMessage
	Usage      Usage
	Model      string
	StopReason string
}

type Usage struct {
	InputTokens  int
	OutputTokens int
	TotalTokens  int
}

func maxTokens(req Request) int {
	if req.MaxTokens > 0 {
		return req.MaxTokens
	}
	return DefaultMaxTokens
}

// resolveModel maps a friendly model name to a provider model ID. Unknown
// names pass through as direct IDs.
func resolveModel(name string, models map[string]string) string {
	if id, ok := models[name]; ok {
		return id
	}
	return name
}
