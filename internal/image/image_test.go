package image

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBackend struct {
	mu      sync.Mutex
	prompts []string
	payload *Payload
	err     error
}

func (f *fakeBackend) GenerateImage(ctx context.Context, prompt string) (*Payload, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prompts = append(f.prompts, prompt)
	return f.payload, f.err
}

func (f *fakeBackend) Name() string  { return "fake" }
func (f *fakeBackend) Model() string { return "fake-model" }

func TestBuildPrompt(t *testing.T) {
	prompt := BuildPrompt("abandon", "一个人把包扔在了岸边")

	for _, want := range []string{"abandon", "一个人把包扔在了岸边", "cartoon", "thick lines", "colorful", "white background", "text"} {
		assert.Contains(t, prompt, want)
	}
}

func TestDataURLRoundTrip(t *testing.T) {
	p := &Payload{Data: []byte{1, 2, 3, 250}, MIMEType: "image/jpeg"}
	url := p.DataURL()
	assert.Equal(t, "data:image/jpeg;base64,"+base64.StdEncoding.EncodeToString(p.Data), url)

	decoded, err := DecodeDataURL(url)
	require.NoError(t, err)
	assert.Equal(t, p.Data, decoded.Data)
	assert.Equal(t, ".jpg", decoded.Extension())
}

func TestDataURLDefaultsToPNG(t *testing.T) {
	p := &Payload{Data: []byte("x")}
	assert.True(t, strings.HasPrefix(p.DataURL(), "data:image/png;base64,"))
}

func TestDecodeDataURLErrors(t *testing.T) {
	for _, in := range []string{
		"http://example.com/a.png",
		"data:image/png;base64",
		"data:image/png,plain",
		"data:image/png;base64,***",
	} {
		_, err := DecodeDataURL(in)
		assert.ErrorIs(t, err, ErrInvalidDataURL, in)
	}
}

func TestEnrichImage(t *testing.T) {
	tests := []struct {
		name    string
		backend *fakeBackend
		maxSize int64
		wantOK  bool
	}{
		{"success", &fakeBackend{payload: &Payload{Data: []byte("png"), MIMEType: "image/png"}}, 0, true},
		{"missing mime", &fakeBackend{payload: &Payload{Data: []byte("png")}}, 0, true},
		{"request fails", &fakeBackend{err: errors.New("quota exceeded")}, 0, false},
		{"no payload", &fakeBackend{}, 0, false},
		{"empty payload", &fakeBackend{payload: &Payload{}}, 0, false},
		{"too large", &fakeBackend{payload: &Payload{Data: make([]byte, 11)}}, 10, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := NewEnricher(tt.backend, &Options{MaxSizeBytes: tt.maxSize})
			url, ok := e.EnrichImage(context.Background(), "absorb", "海绵吸水")

			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.True(t, strings.HasPrefix(url, "data:image/png;base64,"))
			} else {
				assert.Empty(t, url)
			}
			require.Len(t, tt.backend.prompts, 1)
			assert.Contains(t, tt.backend.prompts[0], "海绵吸水")
		})
	}
}

func TestEnrichImageCache(t *testing.T) {
	cache, err := NewCache(t.TempDir())
	require.NoError(t, err)

	backend := &fakeBackend{payload: &Payload{Data: []byte("jpeg-bytes"), MIMEType: "image/jpeg"}}
	e := NewEnricher(backend, &Options{Cache: cache})

	first, ok := e.EnrichImage(context.Background(), "access", "钥匙")
	require.True(t, ok)
	second, ok := e.EnrichImage(context.Background(), "access", "钥匙")
	require.True(t, ok)

	assert.Equal(t, first, second)
	assert.Len(t, backend.prompts, 1, "second call must be served from cache")

	_, ok = e.EnrichImage(context.Background(), "access", "另一个故事")
	require.True(t, ok)
	assert.Len(t, backend.prompts, 2)

	files, size, err := cache.Stats()
	require.NoError(t, err)
	assert.Equal(t, 2, files)
	assert.Equal(t, int64(2*len("jpeg-bytes")), size)

	require.NoError(t, cache.Clear())
	_, ok = cache.Load(cache.Key("fake", "fake-model", "access", "钥匙"))
	assert.False(t, ok)
}

func TestFailedImageNotCached(t *testing.T) {
	cache, err := NewCache(t.TempDir())
	require.NoError(t, err)

	backend := &fakeBackend{err: errors.New("500")}
	e := NewEnricher(backend, &Options{Cache: cache})
	_, ok := e.EnrichImage(context.Background(), "adapt", "适应")
	assert.False(t, ok)

	files, _, err := cache.Stats()
	require.NoError(t, err)
	assert.Zero(t, files)
}

func TestOpenAIBackend(t *testing.T) {
	pixels := []byte("fake-png")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/images/generations", r.URL.Path)

		var req openai.ImageRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, openai.CreateImageResponseFormatB64JSON, req.ResponseFormat)
		assert.Equal(t, openai.CreateImageModelDallE2, req.Model)
		assert.Equal(t, openai.CreateImageSize512x512, req.Size)

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(openai.ImageResponse{
			Created: 1,
			Data: []openai.ImageResponseDataInner{
				{B64JSON: base64.StdEncoding.EncodeToString(pixels)},
			},
		})
	}))
	defer srv.Close()

	cfg := openai.DefaultConfig("test-key")
	cfg.BaseURL = srv.URL + "/v1"
	b := NewOpenAIBackendWithClient(openai.NewClientWithConfig(cfg), &OpenAIConfig{APIKey: "test-key"})

	p, err := b.GenerateImage(context.Background(), "a cat")
	require.NoError(t, err)
	assert.Equal(t, pixels, p.Data)
	assert.Equal(t, "image/png", p.MIMEType)
	assert.Equal(t, "openai", b.Name())
	assert.Equal(t, openai.CreateImageModelDallE2, b.Model())
}

func TestOpenAIBackendDefaults(t *testing.T) {
	b := NewOpenAIBackend(&OpenAIConfig{APIKey: "k", Model: openai.CreateImageModelDallE3})
	assert.Equal(t, openai.CreateImageSize1024x1024, b.size)

	_, err := NewOpenAIBackend(&OpenAIConfig{}).GenerateImage(context.Background(), "x")
	assert.Error(t, err)
}

func TestGeminiBackendWithoutClient(t *testing.T) {
	b := NewGeminiBackend(nil, "")
	assert.Equal(t, DefaultGeminiModel, b.Model())
	_, err := b.GenerateImage(context.Background(), "x")
	assert.Error(t, err)
}
