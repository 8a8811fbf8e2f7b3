package image

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/sashabaranov/go-openai"
)

// OpenAIConfig holds DALL-E settings
type OpenAIConfig struct {
	APIKey string
	Model  string // "dall-e-2" or "dall-e-3"
	Size   string
}

// OpenAIBackend generates images with the OpenAI images API
type OpenAIBackend struct {
	apiKey string
	client *openai.Client
	model  string
	size   string
}

// NewOpenAIBackend creates a DALL-E backend
func NewOpenAIBackend(config *OpenAIConfig) *OpenAIBackend {
	return NewOpenAIBackendWithClient(openai.NewClient(config.APIKey), config)
}

// NewOpenAIBackendWithClient creates a backend on a preconfigured client
func NewOpenAIBackendWithClient(client *openai.Client, config *OpenAIConfig) *OpenAIBackend {
	b := &OpenAIBackend{
		apiKey: config.APIKey,
		client: client,
		model:  config.Model,
		size:   config.Size,
	}
	if b.model == "" {
		b.model = openai.CreateImageModelDallE2
	}
	if b.size == "" {
		if b.model == openai.CreateImageModelDallE3 {
			b.size = openai.CreateImageSize1024x1024
		} else {
			b.size = openai.CreateImageSize512x512
		}
	}
	return b
}

// GenerateImage requests one base64 encoded image
func (b *OpenAIBackend) GenerateImage(ctx context.Context, prompt string) (*Payload, error) {
	if b.apiKey == "" {
		return nil, errors.New("OpenAI API key not configured")
	}

	resp, err := b.client.CreateImage(ctx, openai.ImageRequest{
		Prompt:         prompt,
		Model:          b.model,
		N:              1,
		Size:           b.size,
		ResponseFormat: openai.CreateImageResponseFormatB64JSON,
	})
	if err != nil {
		return nil, fmt.Errorf("OpenAI API error: %w", err)
	}
	if len(resp.Data) == 0 || resp.Data[0].B64JSON == "" {
		return nil, ErrNoImage
	}

	data, err := base64.StdEncoding.DecodeString(resp.Data[0].B64JSON)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	return &Payload{Data: data, MIMEType: DefaultMIMEType}, nil
}

// Name returns the backend name
func (b *OpenAIBackend) Name() string {
	return "openai"
}

// Model returns the image model
func (b *OpenAIBackend) Model() string {
	return b.model
}
