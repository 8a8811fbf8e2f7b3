package testutil

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"codeberg.org/snonux/linkmemory/internal/card"
	"codeberg.org/snonux/linkmemory/internal/generator"
	"codeberg.org/snonux/linkmemory/internal/image"
	"codeberg.org/snonux/linkmemory/internal/wordpool"
)

// MakeCard returns a valid text-only card for word
func MakeCard(word string) card.StudyCard {
	return card.StudyCard{
		Word:               word,
		Phonetic:           "/" + word + "/",
		Definition:         word + " 的释义",
		Mnemonic:           word + " 的记忆故事",
		ExampleSentence:    "This sentence uses " + word + ".",
		ExampleTranslation: "这个句子用到了 " + word + "。",
		Difficulty:         card.Medium,
	}
}

// MakeCards returns one valid card per word
func MakeCards(words ...string) []card.StudyCard {
	cards := make([]card.StudyCard, len(words))
	for i, w := range words {
		cards[i] = MakeCard(w)
	}
	return cards
}

// MockCardBackend implements generator.Backend and answers with valid cards
// for the requested words. Open-ended requests get "novelN" words.
type MockCardBackend struct {
	mu       sync.Mutex
	Requests []*generator.Request
	Errors   []error // consumed one per call, nil entries succeed
	novel    int
}

// Generate records the request and returns a JSON card array
func (m *MockCardBackend) Generate(ctx context.Context, req *generator.Request) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Requests = append(m.Requests, req)
	if len(m.Errors) > 0 {
		err := m.Errors[0]
		m.Errors = m.Errors[1:]
		if err != nil {
			return nil, err
		}
	}

	words := req.Words
	if req.Mode == generator.ModeOpenEnded {
		words = nil
		for i := 0; i < req.Count; i++ {
			m.novel++
			words = append(words, fmt.Sprintf("novel%d", m.novel))
		}
	}
	return json.Marshal(MakeCards(words...))
}

// Name returns the backend name
func (m *MockCardBackend) Name() string {
	return "mock"
}

// RequestCount returns how many requests were made
func (m *MockCardBackend) RequestCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Requests)
}

// BatchCall is one recorded GenerateBatch invocation
type BatchCall struct {
	Category wordpool.Category
	Count    int
	Exclude  []string
}

// PendingBatch is a GenerateBatch call held until the test responds
type PendingBatch struct {
	BatchCall
	reply chan batchResult
}

type batchResult struct {
	cards []card.StudyCard
	err   error
}

// Respond releases the blocked call with the given result
func (p *PendingBatch) Respond(cards []card.StudyCard, err error) {
	p.reply <- batchResult{cards: cards, err: err}
}

// MockBatchGenerator satisfies the session's generator interface. With
// Pending set every call blocks until the test responds; otherwise Handler
// decides the result.
type MockBatchGenerator struct {
	mu      sync.Mutex
	calls   []BatchCall
	Handler func(BatchCall) ([]card.StudyCard, error)
	Pending chan *PendingBatch
}

// NewBlockingBatchGenerator returns a generator whose calls wait for Respond
func NewBlockingBatchGenerator() *MockBatchGenerator {
	return &MockBatchGenerator{Pending: make(chan *PendingBatch, 16)}
}

// GenerateBatch records the call and returns the scripted result
func (m *MockBatchGenerator) GenerateBatch(ctx context.Context, category wordpool.Category, count int, exclude []string) ([]card.StudyCard, error) {
	call := BatchCall{Category: category, Count: count, Exclude: append([]string(nil), exclude...)}
	m.mu.Lock()
	m.calls = append(m.calls, call)
	m.mu.Unlock()

	if m.Pending != nil {
		p := &PendingBatch{BatchCall: call, reply: make(chan batchResult, 1)}
		select {
		case m.Pending <- p:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		select {
		case res := <-p.reply:
			return res.cards, res.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if m.Handler != nil {
		return m.Handler(call)
	}
	return nil, fmt.Errorf("no scripted result for %s", category)
}

// Calls returns a copy of the recorded calls
func (m *MockBatchGenerator) Calls() []BatchCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]BatchCall(nil), m.calls...)
}

// ImageCall is one recorded EnrichImage invocation
type ImageCall struct {
	Word     string
	Mnemonic string
}

// PendingImage is an EnrichImage call held until the test responds
type PendingImage struct {
	ImageCall
	reply chan imageResult
}

type imageResult struct {
	url string
	ok  bool
}

// Respond releases the blocked call
func (p *PendingImage) Respond(url string, ok bool) {
	p.reply <- imageResult{url: url, ok: ok}
}

// MockImageEnricher satisfies the session's image interface
type MockImageEnricher struct {
	mu      sync.Mutex
	calls   []ImageCall
	Fail    map[string]bool // words whose image request fails
	Pending chan *PendingImage
}

// NewBlockingImageEnricher returns an enricher whose calls wait for Respond
func NewBlockingImageEnricher() *MockImageEnricher {
	return &MockImageEnricher{Pending: make(chan *PendingImage, 16)}
}

// EnrichImage records the call and returns a data URL naming the word
func (m *MockImageEnricher) EnrichImage(ctx context.Context, word, mnemonic string) (string, bool) {
	call := ImageCall{Word: word, Mnemonic: mnemonic}
	m.mu.Lock()
	m.calls = append(m.calls, call)
	m.mu.Unlock()

	if m.Pending != nil {
		p := &PendingImage{ImageCall: call, reply: make(chan imageResult, 1)}
		select {
		case m.Pending <- p:
		case <-ctx.Done():
			return "", false
		}
		select {
		case res := <-p.reply:
			return res.url, res.ok
		case <-ctx.Done():
			return "", false
		}
	}

	if m.Fail[word] {
		return "", false
	}
	return ImageDataURL(word), true
}

// Calls returns a copy of the recorded calls
func (m *MockImageEnricher) Calls() []ImageCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]ImageCall(nil), m.calls...)
}

// ImageDataURL returns a small deterministic data URL for word
func ImageDataURL(word string) string {
	p := &image.Payload{Data: append(PNGData(), []byte(word)...), MIMEType: "image/png"}
	return p.DataURL()
}

// MockImageBackend implements image.Backend with a fixed payload
type MockImageBackend struct {
	mu      sync.Mutex
	Prompts []string
	Payload *image.Payload
	Err     error
}

// GenerateImage records the prompt and returns the scripted payload
func (m *MockImageBackend) GenerateImage(ctx context.Context, prompt string) (*image.Payload, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Prompts = append(m.Prompts, prompt)
	if m.Err != nil {
		return nil, m.Err
	}
	if m.Payload != nil {
		return m.Payload, nil
	}
	return &image.Payload{Data: PNGData(), MIMEType: "image/png"}, nil
}

// Name returns the backend name
func (m *MockImageBackend) Name() string {
	return "mock"
}

// Model returns the model name
func (m *MockImageBackend) Model() string {
	return "mock-image"
}

// CallCount returns how many images were requested
func (m *MockImageBackend) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Prompts)
}

// PNGData returns the PNG signature, enough to stand in for image bytes
func PNGData() []byte {
	return []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}
}
