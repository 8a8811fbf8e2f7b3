package generator

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codeberg.org/snonux/linkmemory/internal/card"
	"codeberg.org/snonux/linkmemory/internal/guard"
	"codeberg.org/snonux/linkmemory/internal/wordpool"
)

func guardOptions(maxFailures uint32) guard.Options {
	opts := guard.DefaultOptions()
	opts.MaxFailures = maxFailures
	opts.RequestsPerMinute = 0
	return opts
}

func newOpenAITestServer(t *testing.T, content string, seen *openai.ChatCompletionRequest) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		body, _ := io.ReadAll(r.Body)
		if seen != nil {
			_ = json.Unmarshal(body, seen)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(openai.ChatCompletionResponse{
			ID:     "chatcmpl-test",
			Object: "chat.completion",
			Model:  DefaultOpenAIModel,
			Choices: []openai.ChatCompletionChoice{{
				Index:   0,
				Message: openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: content},
			}},
		})
	}))
}

func testOpenAIBackend(url string) *OpenAIBackend {
	cfg := openai.DefaultConfig("test-key")
	cfg.BaseURL = url + "/v1"
	return NewOpenAIBackendWithClient(openai.NewClientWithConfig(cfg), &OpenAIConfig{APIKey: "test-key"})
}

func TestOpenAIBackendEnvelope(t *testing.T) {
	payload, err := json.Marshal(map[string]interface{}{
		"cards": []card.StudyCard{validCard("abandon"), validCard("ability")},
	})
	require.NoError(t, err)

	var seen openai.ChatCompletionRequest
	srv := newOpenAITestServer(t, string(payload), &seen)
	defer srv.Close()

	g := New(testCatalog(), testOpenAIBackend(srv.URL), nil)
	cards, err := g.GenerateBatch(context.Background(), wordpool.Gaokao, 2, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"abandon", "ability"}, card.Words(cards))

	require.NotNil(t, seen.ResponseFormat)
	assert.Equal(t, openai.ChatCompletionResponseFormatTypeJSONObject, seen.ResponseFormat.Type)
	require.Len(t, seen.Messages, 2)
	assert.Contains(t, seen.Messages[1].Content, "exampleTranslation")
}

func TestOpenAIBackendMissingKey(t *testing.T) {
	b := NewOpenAIBackendWithClient(openai.NewClient(""), &OpenAIConfig{})
	_, err := b.Generate(context.Background(), &Request{Prompt: "x"})
	require.Error(t, err)
	assert.Equal(t, "openai", b.Name())
}

func TestOpenAIBackendEmptyContent(t *testing.T) {
	srv := newOpenAITestServer(t, "  ", nil)
	defer srv.Close()

	_, err := testOpenAIBackend(srv.URL).Generate(context.Background(), &Request{Prompt: "x"})
	assert.Error(t, err)
}
