package generator

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"codeberg.org/snonux/linkmemory/internal/card"
)

// DefaultGeminiModel is the text model used for card batches
const DefaultGeminiModel = "gemini-2.5-flash"

// GeminiConfig holds Gemini card backend settings
type GeminiConfig struct {
	Model       string
	Temperature float32
}

// GeminiBackend generates cards with a structured-output Gemini request
type GeminiBackend struct {
	client      *genai.Client
	model       string
	temperature float32
}

// NewGeminiBackend creates a Gemini card backend on an existing client
func NewGeminiBackend(client *genai.Client, config *GeminiConfig) *GeminiBackend {
	if config == nil {
		config = &GeminiConfig{}
	}
	b := &GeminiBackend{
		client:      client,
		model:       config.Model,
		temperature: config.Temperature,
	}
	if b.model == "" {
		b.model = DefaultGeminiModel
	}
	if b.temperature == 0 {
		b.temperature = 1.1
	}
	return b
}

// Generate sends the prompt with the card array schema attached
func (b *GeminiBackend) Generate(ctx context.Context, req *Request) ([]byte, error) {
	if b.client == nil {
		return nil, errors.New("Gemini client not configured")
	}

	temperature := b.temperature
	resp, err := b.client.Models.GenerateContent(ctx, b.model, genai.Text(req.Prompt), &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   CardArraySchema(),
		Temperature:      &temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("Gemini API error: %w", err)
	}

	text := responseText(resp)
	if text == "" {
		return nil, errors.New("no response from Gemini")
	}
	return []byte(text), nil
}

// Name returns the backend name
func (b *GeminiBackend) Name() string {
	return "gemini"
}

// CardArraySchema is the structural contract for a batch: an array of
// objects with all seven card fields required and difficulty enumerated.
func CardArraySchema() *genai.Schema {
	str := func(desc string) *genai.Schema {
		return &genai.Schema{Type: genai.TypeString, Description: desc}
	}

	return &genai.Schema{
		Type: genai.TypeArray,
		Items: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"word":       str("The English vocabulary word."),
				"phonetic":   str("IPA phonetic transcription."),
				"definition": str("Concise Chinese definition."),
				"mnemonic": str("A vivid, creative memory story in Chinese. Use visual imagery, " +
					"sound association (谐音), or a funny scenario that connects the spelling/pronunciation " +
					"to the meaning. It must be easy to visualize as a cartoon."),
				"exampleSentence":    str("An example sentence using the word."),
				"exampleTranslation": str("Chinese translation of the example sentence."),
				"difficulty": {
					Type: genai.TypeString,
					Enum: card.Difficulties(),
				},
			},
			Required: append([]string(nil), card.RequiredFields...),
		},
	}
}

// responseText joins the text parts of the first candidate
func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part == nil || part.Thought {
			continue
		}
		b.WriteString(part.Text)
	}
	return strings.TrimSpace(b.String())
}
