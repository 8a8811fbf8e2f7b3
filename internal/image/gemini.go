package image

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"
)

// DefaultGeminiModel is the image-capable Gemini model
const DefaultGeminiModel = "gemini-2.5-flash-image"

// GeminiBackend generates images through the Gemini API
type GeminiBackend struct {
	client *genai.Client
	model  string
}

// NewGeminiBackend creates an image backend on an existing client
func NewGeminiBackend(client *genai.Client, model string) *GeminiBackend {
	if model == "" {
		model = DefaultGeminiModel
	}
	return &GeminiBackend{client: client, model: model}
}

// GenerateImage returns the first inline image part of the response
func (b *GeminiBackend) GenerateImage(ctx context.Context, prompt string) (*Payload, error) {
	if b.client == nil {
		return nil, errors.New("Gemini client not configured")
	}

	resp, err := b.client.Models.GenerateContent(ctx, b.model, genai.Text(prompt), &genai.GenerateContentConfig{
		ResponseModalities: []string{"IMAGE", "TEXT"},
	})
	if err != nil {
		return nil, fmt.Errorf("Gemini API error: %w", err)
	}

	return firstInlineImage(resp)
}

// Name returns the backend name
func (b *GeminiBackend) Name() string {
	return "gemini"
}

// Model returns the image model
func (b *GeminiBackend) Model() string {
	return b.model
}

func firstInlineImage(resp *genai.GenerateContentResponse) (*Payload, error) {
	if resp == nil {
		return nil, ErrNoImage
	}
	for _, cand := range resp.Candidates {
		if cand == nil || cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if part == nil || part.InlineData == nil || len(part.InlineData.Data) == 0 {
				continue
			}
			return &Payload{Data: part.InlineData.Data, MIMEType: part.InlineData.MIMEType}, nil
		}
	}
	return nil, ErrNoImage
}
