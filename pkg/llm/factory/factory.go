package factory

import (
	"context"
	"fmt"

	"querymate-be/pkg/llm"
	"querymate-be/pkg/llm/gemini"
	"querymate-be/pkg/llm/huggingface"
	"querymate-be/pkg/llm/ollama"
)

// ProviderConfig selects and parameterises a language-model backend.
type ProviderConfig struct {
	Provider string // gemini | ollama | huggingface
	Model    string
	BaseURL  string
	APIKey   string
}

func NewLLMProvider(ctx context.Context, cfg ProviderConfig) (llm.LLMProvider, error) {
	switch cfg.Provider {
	case "gemini", "":
		return gemini.NewGeminiProvider(ctx, cfg.APIKey, cfg.Model)
	case "ollama":
		return ollama.NewOllamaProvider(cfg.BaseURL, cfg.Model), nil
	case "huggingface":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("huggingface provider requires an api key")
		}
		return huggingface.NewHuggingFaceProvider(cfg.APIKey, cfg.BaseURL, cfg.Model), nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.Provider)
	}
}
