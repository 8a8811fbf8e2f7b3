package models

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/sashabaranov/go-openai"
)

func TestNewLister(t *testing.T) {
	lister := NewLister("test-api-key", nil)

	if lister.openaiKey != "test-api-key" {
		t.Errorf("Expected API key 'test-api-key', got '%s'", lister.openaiKey)
	}
	if lister.openai == nil {
		t.Error("OpenAI client not initialized")
	}
}

func TestListAvailableModels_NoKeys(t *testing.T) {
	lister := NewLister("", nil)

	if err := lister.ListAvailableModels(context.Background(), "openai"); !errors.Is(err, ErrNoOpenAIKey) {
		t.Errorf("Expected ErrNoOpenAIKey, got %v", err)
	}
	if err := lister.ListAvailableModels(context.Background(), "gemini"); !errors.Is(err, ErrNoGeminiClient) {
		t.Errorf("Expected ErrNoGeminiClient, got %v", err)
	}
	if err := lister.ListAvailableModels(context.Background(), ""); err == nil {
		t.Error("Expected error when no provider is configured")
	}
	if err := lister.ListAvailableModels(context.Background(), "claude"); err == nil {
		t.Error("Expected error for unknown provider")
	}
}

func TestCategorizeOpenAI(t *testing.T) {
	chat, images := CategorizeOpenAI([]openai.Model{
		{ID: "tts-1"},
		{ID: "gpt-4o-mini"},
		{ID: "dall-e-3"},
		{ID: "gpt-4o"},
		{ID: "gpt-image-1"},
		{ID: "whisper-1"},
		{ID: "gpt-4o-audio-preview"},
	})

	if strings.Join(chat, ",") != "gpt-4o,gpt-4o-mini" {
		t.Errorf("Unexpected chat models %v", chat)
	}
	if strings.Join(images, ",") != "dall-e-3,gpt-image-1" {
		t.Errorf("Unexpected image models %v", images)
	}
}

func TestListOpenAIModels(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/models" {
			t.Errorf("Unexpected path %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(openai.ModelsList{Models: []openai.Model{
			{ID: "gpt-4o-mini"}, {ID: "dall-e-2"},
		}})
	}))
	defer srv.Close()

	cfg := openai.DefaultConfig("test-key")
	cfg.BaseURL = srv.URL + "/v1"
	lister := NewListerWithClient("test-key", openai.NewClientWithConfig(cfg), nil)

	var out bytes.Buffer
	lister.SetOutput(&out)
	if err := lister.ListAvailableModels(context.Background(), "openai"); err != nil {
		t.Fatalf("ListAvailableModels() error = %v", err)
	}

	for _, want := range []string{"Available OpenAI Models:", "gpt-4o-mini", "dall-e-2"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("Output missing %q:\n%s", want, out.String())
		}
	}
}

func TestListAvailableModels_Integration(t *testing.T) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		t.Skip("Skipping integration test: OPENAI_API_KEY not set")
	}

	lister := NewLister(apiKey, nil)
	lister.SetOutput(&bytes.Buffer{})
	if err := lister.ListOpenAIModels(context.Background()); err != nil {
		t.Errorf("ListOpenAIModels failed: %v", err)
	}
}
