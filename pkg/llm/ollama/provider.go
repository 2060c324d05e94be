package ollama

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"querymate-be/pkg/llm"
)

const DefaultBaseURL = "http://localhost:11434"

// OllamaProvider talks to a local Ollama daemon through /api/chat.
type OllamaProvider struct {
	baseURL string
	model   string
	client  *http.Client
}

var _ llm.LLMProvider = (*OllamaProvider)(nil)

func NewOllamaProvider(baseURL, model string) *OllamaProvider {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &OllamaProvider{
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		client:  &http.Client{Timeout: 120 * time.Second},
	}
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []message     `json:"messages"`
	Stream   bool          `json:"stream"`
	Format   string        `json:"format,omitempty"`
	Options  sampleOptions `json:"options"`
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type sampleOptions struct {
	Temperature float64 `json:"temperature,omitempty"`
	NumPredict  int     `json:"num_predict,omitempty"`
}

type chatResponse struct {
	Message message `json:"message"`
	Error   string  `json:"error,omitempty"`
}

func (p *OllamaProvider) Chat(ctx context.Context, history []llm.Message, opts ...llm.Option) (string, error) {
	o := llm.Apply(llm.Options{Model: p.model, Temperature: 0.7}, opts)

	req := chatRequest{
		Model:    o.Model,
		Messages: make([]message, len(history)),
		Options:  sampleOptions{Temperature: o.Temperature, NumPredict: o.MaxTokens},
	}
	for i, m := range history {
		req.Messages[i] = message{Role: llm.NormalizeRole(m.Role), Content: m.Content}
	}
	if o.JSON {
		req.Format = "json"
	}

	var resp chatResponse
	if err := llm.PostJSON(ctx, p.client, "ollama", p.baseURL+"/api/chat", nil, req, &resp); err != nil {
		return "", err
	}
	if resp.Error != "" {
		return "", errors.New("ollama: " + resp.Error)
	}
	return resp.Message.Content, nil
}

func (p *OllamaProvider) Generate(ctx context.Context, prompt string, opts ...llm.Option) (string, error) {
	return p.Chat(ctx, llm.Prompt(prompt), opts...)
}
