package llm

import (
	"context"
	"fmt"
	"strings"

	"financewatch/internal/config"
)

const (
	// DefaultTemperature matches the sampling used for both analysis prompts.
	DefaultTemperature = float32(0.7)
	// DefaultMaxTokens caps each completion.
	DefaultMaxTokens = int32(1000)
)

// Request is one chat-style completion request.
type Request struct {
	System      string  // System instruction, optional
	Prompt      string  // User prompt
	Temperature float32 // 0 uses DefaultTemperature
	MaxTokens   int32   // 0 uses DefaultMaxTokens
	JSON        bool    // Ask the provider for a JSON response where supported
}

func (r Request) temperature() float32 {
	if r.Temperature > 0 {
		return r.Temperature
	}
	return DefaultTemperature
}

func (r Request) maxTokens() int32 {
	if r.MaxTokens > 0 {
		return r.MaxTokens
	}
	return DefaultMaxTokens
}

// Generator produces text for a prompt.
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
	Name() string
}

// NewFromConfig builds the Generator selected by backend.provider.
func NewFromConfig(ctx context.Context, cfg *config.Config) (Generator, error) {
	switch cfg.Backend.Provider {
	case "gemini":
		return NewGeminiClient(ctx, cfg.AI.Gemini.APIKey, cfg.AI.Gemini.Model)
	case "openai", "":
		return NewOpenAIClient(cfg.AI.OpenAI.APIKey, cfg.AI.OpenAI.BaseURL, cfg.AI.OpenAI.Model)
	default:
		return nil, fmt.Errorf("unknown LLM provider: %s", cfg.Backend.Provider)
	}
}

// CleanJSON strips a surrounding markdown code fence (```json ... ```) and
// whitespace from a model response so it can be decoded.
func CleanJSON(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}

	text = strings.TrimPrefix(text, "```")
	if end := strings.Index(text, "```"); end >= 0 {
		text = text[:end]
	}
	text = strings.TrimSpace(text)
	if len(text) >= 4 && strings.EqualFold(text[:4], "json") {
		text = text[4:]
	}
	return strings.TrimSpace(text)
}
