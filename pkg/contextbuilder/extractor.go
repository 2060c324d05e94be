package contextbuilder

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"querymate-be/internal/constant"
	"querymate-be/internal/pkg/logger"
	"querymate-be/pkg/llm"
)

const (
	DefaultExtractTimeout = 30 * time.Second
	DefaultHistoryLimit   = 10
)

// Turn is one transcript entry.
type Turn struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

// Result is what one extraction step produced. A degraded result carries no
// updates and is never done.
type Result struct {
	Reply    string
	Updates  Fields
	Done     bool
	Degraded bool
}

type Extractor struct {
	provider     llm.LLMProvider
	logger       logger.ILogger
	timeout      time.Duration
	historyLimit int
	exchangeLog  logger.ILogger
}

type ExtractorOption func(*Extractor)

func WithTimeout(d time.Duration) ExtractorOption {
	return func(e *Extractor) {
		if d > 0 {
			e.timeout = d
		}
	}
}

// WithHistoryLimit caps how many prior turns are replayed to the model.
func WithHistoryLimit(n int) ExtractorOption {
	return func(e *Extractor) {
		if n >= 0 {
			e.historyLimit = n
		}
	}
}

// WithExchangeLog records every raw model reply on a separate logger.
func WithExchangeLog(l logger.ILogger) ExtractorOption {
	return func(e *Extractor) { e.exchangeLog = l }
}

func NewExtractor(provider llm.LLMProvider, log logger.ILogger, opts ...ExtractorOption) *Extractor {
	e := &Extractor{
		provider:     provider,
		logger:       log,
		timeout:      DefaultExtractTimeout,
		historyLimit: DefaultHistoryLimit,
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Extract asks the model for field updates found in utterance. transcript is
// the conversation before utterance.
func (e *Extractor) Extract(ctx context.Context, prior Fields, transcript []Turn, utterance string) Result {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	messages, err := e.buildMessages(prior, transcript, utterance)
	if err != nil {
		return e.degraded(err)
	}

	raw, err := e.provider.Chat(ctx, messages, llm.WithTemperature(0.2), llm.WithJSONResponse())
	if err != nil {
		return e.degraded(err)
	}

	result, ok := ParseModelOutput(raw)
	if e.exchangeLog != nil {
		e.exchangeLog.Info("EXTRACTOR", "Model exchange", map[string]interface{}{
			"utterance": utterance,
			"raw":       raw,
			"parsed":    ok,
			"updates":   len(result.Updates.Pairs()),
		})
	}
	if !ok {
		e.logger.Warn("EXTRACTOR", "Model output is not JSON, using it as reply", map[string]interface{}{
			"length": len(raw),
		})
	}
	if strings.TrimSpace(result.Reply) == "" {
		result.Reply = constant.ContextSessionFallbackReply
	}
	return result
}

func (e *Extractor) degraded(err error) Result {
	e.logger.Warn("EXTRACTOR", "Extraction failed, degrading reply", map[string]interface{}{
		"error": err.Error(),
	})
	return Result{
		Reply:    constant.ContextSessionDegradedReply,
		Degraded: true,
	}
}

func (e *Extractor) buildMessages(prior Fields, transcript []Turn, utterance string) ([]llm.Message, error) {
	collected, err := json.MarshalIndent(prior, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal collected fields: %w", err)
	}

	recent := transcript
	if e.historyLimit >= 0 && len(recent) > e.historyLimit {
		recent = recent[len(recent)-e.historyLimit:]
	}

	messages := make([]llm.Message, 0, len(recent)+2)
	messages = append(messages, llm.Message{Role: constant.ChatMessageRoleSystem, Content: constant.ContextExtractionSystemPrompt})
	for _, t := range recent {
		role := constant.ChatMessageRoleUser
		if t.Role == constant.ChatMessageRoleAssistant {
			role = constant.ChatMessageRoleAssistant
		}
		messages = append(messages, llm.Message{Role: role, Content: t.Content})
	}
	messages = append(messages, llm.Message{
		Role:    constant.ChatMessageRoleUser,
		Content: fmt.Sprintf(constant.ContextExtractionTurnTemplate, string(collected), utterance),
	})
	return messages, nil
}

type modelOutput struct {
	Reply  string          `json:"reply"`
	Fields Fields          `json:"fields"`
	Done   json.RawMessage `json:"done"`
}

// ParseModelOutput decodes the model's JSON answer. Code fences and text
// around the object are tolerated. When no object can be decoded the whole
// text becomes the reply and ok is false.
func ParseModelOutput(raw string) (Result, bool) {
	text := strings.TrimSpace(raw)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return Result{Reply: strings.TrimSpace(raw)}, false
	}

	var out modelOutput
	if err := json.Unmarshal([]byte(text[start:end+1]), &out); err != nil {
		return Result{Reply: strings.TrimSpace(raw)}, false
	}

	return Result{
		Reply:   strings.TrimSpace(out.Reply),
		Updates: Fields{}.Merge(out.Fields),
		Done:    parseDone(out.Done),
	}, true
}

func parseDone(raw json.RawMessage) bool {
	if len(raw) == 0 {
		return false
	}
	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		return b
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.EqualFold(strings.TrimSpace(s), "true")
	}
	return false
}
