package llm

import (
	"context"
	"fmt"
	"strings"

	openaiclient "github.com/openai/openai-go/v2"
	openaioption "github.com/openai/openai-go/v2/option"
)

const (
	// DefaultOpenAIBaseURL points at Groq's OpenAI-compatible API.
	DefaultOpenAIBaseURL = "https://api.groq.com/openai/v1"
	// DefaultOpenAIModel is the Groq-hosted model used by default.
	DefaultOpenAIModel = "llama-3.3-70b-versatile"
)

// OpenAIClient generates text through any OpenAI-compatible chat completions API.
type OpenAIClient struct {
	client  openaiclient.Client
	model   string
	baseURL string
}

var _ Generator = (*OpenAIClient)(nil)

// NewOpenAIClient creates a client. Empty baseURL and model use the Groq defaults.
func NewOpenAIClient(apiKey, baseURL, model string, extra ...openaioption.RequestOption) (*OpenAIClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required. Set GROQ_API_KEY or OPENAI_API_KEY environment variable or ai.openai.api_key in config file")
	}
	if baseURL == "" {
		baseURL = DefaultOpenAIBaseURL
	}
	if model == "" {
		model = DefaultOpenAIModel
	}
	normalized := strings.TrimRight(baseURL, "/") + "/"

	opts := []openaioption.RequestOption{
		openaioption.WithAPIKey(apiKey),
		openaioption.WithBaseURL(normalized),
		openaioption.WithMaxRetries(0),
	}
	opts = append(opts, extra...)

	return &OpenAIClient{
		client:  openaiclient.NewClient(opts...),
		model:   model,
		baseURL: normalized,
	}, nil
}

// Name returns provider and model.
func (c *OpenAIClient) Name() string {
	return "openai/" + c.model
}

// Generate runs one chat completion.
func (c *OpenAIClient) Generate(ctx context.Context, req Request) (string, error) {
	if req.Prompt == "" {
		return "", fmt.Errorf("prompt cannot be empty")
	}

	messages := make([]openaiclient.ChatCompletionMessageParamUnion, 0, 2)
	if req.System != "" {
		messages = append(messages, openaiclient.SystemMessage(req.System))
	}
	messages = append(messages, openaiclient.UserMessage(req.Prompt))

	params := openaiclient.ChatCompletionNewParams{
		Model:       openaiclient.ChatModel(c.model),
		Messages:    messages,
		Temperature: openaiclient.Float(float64(req.temperature())),
		MaxTokens:   openaiclient.Int(int64(req.maxTokens())),
	}

	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion returned no choices")
	}

	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", fmt.Errorf("empty response from LLM")
	}
	return text, nil
}
