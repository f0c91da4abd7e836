package llm

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// DefaultGeminiModel is the default Gemini model.
const DefaultGeminiModel = "gemini-flash-lite-latest"

// GeminiClient generates text with Google Gemini.
type GeminiClient struct {
	modelName string
	gClient   *genai.Client
}

var _ Generator = (*GeminiClient)(nil)

// NewGeminiClient creates a Gemini client. An empty model uses DefaultGeminiModel.
func NewGeminiClient(ctx context.Context, apiKey, modelName string) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini API key is required. Set GEMINI_API_KEY environment variable or ai.gemini.api_key in config file")
	}
	if modelName == "" {
		modelName = DefaultGeminiModel
	}

	gClient, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiClient{modelName: modelName, gClient: gClient}, nil
}

// Name returns provider and model.
func (c *GeminiClient) Name() string {
	return "gemini/" + c.modelName
}

// Generate runs one GenerateContent call.
func (c *GeminiClient) Generate(ctx context.Context, req Request) (string, error) {
	if req.Prompt == "" {
		return "", fmt.Errorf("prompt cannot be empty")
	}

	contents := []*genai.Content{{
		Parts: []*genai.Part{{Text: req.Prompt}},
		Role:  "user",
	}}

	temp := req.temperature()
	config := &genai.GenerateContentConfig{
		MaxOutputTokens: req.maxTokens(),
		Temperature:     &temp,
	}
	if req.System != "" {
		config.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: req.System}}}
	}
	if req.JSON {
		config.ResponseMIMEType = "application/json"
	}

	resp, err := c.gClient.Models.GenerateContent(ctx, c.modelName, contents, config)
	if err != nil {
		return "", fmt.Errorf("failed to generate text: %w", err)
	}

	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("empty response from LLM")
	}

	return text, nil
}
