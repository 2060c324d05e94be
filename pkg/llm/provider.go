package llm

import (
	"context"
)

// Roles understood by every backend. Backends that call the assistant
// something else translate on the way out.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type Message struct {
	Role    string
	Content string
}

type Option func(*Options)

type Options struct {
	Temperature float64
	MaxTokens   int
	Model       string
	JSON        bool // constrain output to a single JSON object
}

// Apply layers opts over the backend defaults.
func Apply(defaults Options, opts []Option) Options {
	for _, o := range opts {
		o(&defaults)
	}
	return defaults
}

func WithTemperature(temp float64) Option {
	return func(o *Options) { o.Temperature = temp }
}

func WithMaxTokens(n int) Option {
	return func(o *Options) { o.MaxTokens = n }
}

func WithModel(model string) Option {
	return func(o *Options) { o.Model = model }
}

// WithJSONResponse requests JSON-only output where the backend supports it.
func WithJSONResponse() Option {
	return func(o *Options) { o.JSON = true }
}

// LLMProvider is a chat-completion backend. Implementations must be safe for
// concurrent use.
type LLMProvider interface {
	Chat(ctx context.Context, history []Message, options ...Option) (string, error)
	Generate(ctx context.Context, prompt string, options ...Option) (string, error)
}

// Prompt wraps a single user prompt as a history.
func Prompt(text string) []Message {
	return []Message{{Role: RoleUser, Content: text}}
}

// NormalizeRole maps the "model" alias onto RoleAssistant.
func NormalizeRole(role string) string {
	if role == "model" {
		return RoleAssistant
	}
	return role
}
