package models

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/sashabaranov/go-openai"
	"google.golang.org/genai"
)

var (
	// ErrNoOpenAIKey is returned when listing OpenAI models without a key
	ErrNoOpenAIKey = errors.New("OpenAI API key not found. Set OPENAI_API_KEY environment variable or configure in .linkmemory.yaml")
	// ErrNoGeminiClient is returned when listing Gemini models without a key
	ErrNoGeminiClient = errors.New("Gemini API key not found. Set GEMINI_API_KEY environment variable or configure in .linkmemory.yaml")
)

// Lister prints available models for one or both providers
type Lister struct {
	openaiKey string
	openai    *openai.Client
	gemini    *genai.Client
	out       io.Writer
}

// NewLister creates a model lister. gemini may be nil.
func NewLister(openaiKey string, gemini *genai.Client) *Lister {
	return NewListerWithClient(openaiKey, openai.NewClient(openaiKey), gemini)
}

// NewListerWithClient uses a preconfigured OpenAI client
func NewListerWithClient(openaiKey string, client *openai.Client, gemini *genai.Client) *Lister {
	return &Lister{
		openaiKey: openaiKey,
		openai:    client,
		gemini:    gemini,
		out:       os.Stdout,
	}
}

// SetOutput redirects the listing
func (l *Lister) SetOutput(w io.Writer) {
	l.out = w
}

// ListAvailableModels lists models for provider ("gemini", "openai" or "")
func (l *Lister) ListAvailableModels(ctx context.Context, provider string) error {
	switch provider {
	case "gemini":
		return l.ListGeminiModels(ctx)
	case "openai":
		return l.ListOpenAIModels(ctx)
	case "":
		gerr := l.ListGeminiModels(ctx)
		oerr := l.ListOpenAIModels(ctx)
		if gerr != nil && oerr != nil {
			return errors.Join(gerr, oerr)
		}
		return nil
	default:
		return fmt.Errorf("unknown provider: %s", provider)
	}
}

// ListGeminiModels prints text and image generation models
func (l *Lister) ListGeminiModels(ctx context.Context) error {
	if l.gemini == nil {
		return ErrNoGeminiClient
	}

	var textModels, imageModels []string
	for m, err := range l.gemini.Models.All(ctx) {
		if err != nil {
			return fmt.Errorf("failed to list Gemini models: %w", err)
		}
		if !supports(m.SupportedActions, "generateContent") {
			continue
		}
		name := strings.TrimPrefix(m.Name, "models/")
		if strings.Contains(name, "image") {
			imageModels = append(imageModels, name)
		} else {
			textModels = append(textModels, name)
		}
	}

	fmt.Fprintln(l.out, "Available Gemini Models:")
	printGroup(l.out, "Card Generation Models", textModels)
	printGroup(l.out, "Image Generation Models", imageModels)
	return nil
}

// ListOpenAIModels prints chat and image generation models
func (l *Lister) ListOpenAIModels(ctx context.Context) error {
	if l.openaiKey == "" {
		return ErrNoOpenAIKey
	}

	list, err := l.openai.ListModels(ctx)
	if err != nil {
		return fmt.Errorf("failed to list models: %w", err)
	}

	chat, images := CategorizeOpenAI(list.Models)
	fmt.Fprintln(l.out, "Available OpenAI Models:")
	printGroup(l.out, "Card Generation Models", chat)
	printGroup(l.out, "Image Generation Models", images)
	return nil
}

// CategorizeOpenAI splits model IDs into chat and image models, sorted
func CategorizeOpenAI(models []openai.Model) (chat, images []string) {
	for _, model := range models {
		id := model.ID
		switch {
		case strings.Contains(id, "dall-e") || strings.Contains(id, "image"):
			images = append(images, id)
		case strings.Contains(id, "tts") || strings.Contains(id, "audio") || strings.Contains(id, "realtime"):
			// speech models cannot produce cards
		case strings.HasPrefix(id, "gpt") || strings.HasPrefix(id, "o"):
			chat = append(chat, id)
		}
	}
	sort.Strings(chat)
	sort.Strings(images)
	return chat, images
}

func supports(actions []string, action string) bool {
	for _, a := range actions {
		if a == action {
			return true
		}
	}
	return false
}

func printGroup(w io.Writer, title string, models []string) {
	fmt.Fprintf(w, "\n%s:\n", title)
	if len(models) == 0 {
		fmt.Fprintln(w, "  None found")
		return
	}
	for _, m := range models {
		fmt.Fprintf(w, "  %s\n", m)
	}
}
