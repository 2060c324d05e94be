package huggingface

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"querymate-be/pkg/llm"
)

// DefaultBaseURL is the OpenAI-compatible inference router.
const DefaultBaseURL = "https://router.huggingface.co/v1"

type HuggingFaceProvider struct {
	apiKey  string
	baseURL string
	model   string
	client  *http.Client
}

var _ llm.LLMProvider = (*HuggingFaceProvider)(nil)

func NewHuggingFaceProvider(apiKey, baseURL, model string) *HuggingFaceProvider {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &HuggingFaceProvider{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		client:  &http.Client{Timeout: 60 * time.Second},
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	Temperature    float64         `json:"temperature,omitempty"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (p *HuggingFaceProvider) Chat(ctx context.Context, history []llm.Message, opts ...llm.Option) (string, error) {
	o := llm.Apply(llm.Options{Model: p.model, MaxTokens: 800}, opts)

	req := chatRequest{
		Model:       o.Model,
		Messages:    make([]chatMessage, len(history)),
		MaxTokens:   o.MaxTokens,
		Temperature: o.Temperature,
	}
	for i, m := range history {
		req.Messages[i] = chatMessage{Role: llm.NormalizeRole(m.Role), Content: m.Content}
	}
	if o.JSON {
		req.ResponseFormat = &responseFormat{Type: "json_object"}
	}

	header := http.Header{}
	if p.apiKey != "" {
		header.Set("Authorization", "Bearer "+p.apiKey)
	}

	var resp chatResponse
	if err := llm.PostJSON(ctx, p.client, "huggingface", p.baseURL+"/chat/completions", header, req, &resp); err != nil {
		return "", err
	}
	if resp.Error != nil {
		return "", errors.New("huggingface: " + resp.Error.Message)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("huggingface: empty choices")
	}
	return resp.Choices[0].Message.Content, nil
}

func (p *HuggingFaceProvider) Generate(ctx context.Context, prompt string, opts ...llm.Option) (string, error) {
	return p.Chat(ctx, llm.Prompt(prompt), opts...)
}
