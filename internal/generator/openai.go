package generator

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"

	"codeberg.org/snonux/linkmemory/internal/card"
)

// DefaultOpenAIModel is the chat model used for card batches
const DefaultOpenAIModel = openai.GPT4oMini

const openAISystemPrompt = "You are an expert English teacher for Chinese exam students. " +
	"You always answer with a single JSON object and nothing else."

// OpenAIConfig holds OpenAI card backend settings
type OpenAIConfig struct {
	APIKey      string
	Model       string
	Temperature float32
}

// OpenAIBackend generates cards with a JSON-mode chat completion
type OpenAIBackend struct {
	apiKey      string
	client      *openai.Client
	model       string
	temperature float32
}

// NewOpenAIBackend creates an OpenAI card backend
func NewOpenAIBackend(config *OpenAIConfig) *OpenAIBackend {
	return NewOpenAIBackendWithClient(openai.NewClient(config.APIKey), config)
}

// NewOpenAIBackendWithClient creates a backend on a preconfigured client
func NewOpenAIBackendWithClient(client *openai.Client, config *OpenAIConfig) *OpenAIBackend {
	b := &OpenAIBackend{
		apiKey:      config.APIKey,
		client:      client,
		model:       config.Model,
		temperature: config.Temperature,
	}
	if b.model == "" {
		b.model = DefaultOpenAIModel
	}
	if b.temperature == 0 {
		b.temperature = 1.0
	}
	return b
}

// Generate sends the prompt and returns the JSON object content
func (b *OpenAIBackend) Generate(ctx context.Context, req *Request) ([]byte, error) {
	if b.apiKey == "" {
		return nil, errors.New("OpenAI API key not configured")
	}

	resp, err := b.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: b.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: openAISystemPrompt,
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: req.Prompt + "\n\n" + jsonFormatInstructions(),
			},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Temperature: b.temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("OpenAI API error: %w", err)
	}

	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return nil, errors.New("no response from OpenAI")
	}
	return []byte(resp.Choices[0].Message.Content), nil
}

// Name returns the backend name
func (b *OpenAIBackend) Name() string {
	return "openai"
}

// jsonFormatInstructions spells out the card contract, since JSON mode
// enforces syntax but not shape
func jsonFormatInstructions() string {
	return fmt.Sprintf(`Output format: {"cards": [ ... ]} where every card is an object with the string fields %s. "difficulty" must be one of %s.`,
		strings.Join(card.RequiredFields, ", "), strings.Join(card.Difficulties(), ", "))
}
