package generator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codeberg.org/snonux/linkmemory/internal/card"
	"codeberg.org/snonux/linkmemory/internal/wordpool"
)

// echoBackend answers every request with valid cards for the asked words
type echoBackend struct {
	mu       sync.Mutex
	requests []*Request
	err      error
	raw      []byte
}

func (b *echoBackend) Generate(ctx context.Context, req *Request) ([]byte, error) {
	b.mu.Lock()
	b.requests = append(b.requests, req)
	b.mu.Unlock()

	if b.err != nil {
		return nil, b.err
	}
	if b.raw != nil {
		return b.raw, nil
	}

	words := req.Words
	if req.Mode == ModeOpenEnded {
		for i := 0; i < req.Count; i++ {
			words = append(words, fmt.Sprintf("fresh%d", i))
		}
	}
	cards := make([]card.StudyCard, 0, len(words))
	for _, w := range words {
		cards = append(cards, validCard(w))
	}
	return json.Marshal(cards)
}

func (b *echoBackend) Name() string { return "echo" }

func validCard(word string) card.StudyCard {
	return card.StudyCard{
		Word:               word,
		Phonetic:           "/" + word + "/",
		Definition:         "释义",
		Mnemonic:           "故事",
		ExampleSentence:    "I use " + word + ".",
		ExampleTranslation: "我用它。",
		Difficulty:         card.Medium,
	}
}

func testCatalog() *wordpool.Catalog {
	return wordpool.NewCatalogFrom(map[wordpool.Category][]string{
		wordpool.Gaokao: {"abandon", "ability", "absent", "absolute", "absorb", "abstract", "academic"},
	})
}

func TestGenerateBatchUsesPoolOrder(t *testing.T) {
	backend := &echoBackend{}
	g := New(testCatalog(), backend, nil)

	cards, err := g.GenerateBatch(context.Background(), wordpool.Gaokao, 5, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"abandon", "ability", "absent", "absolute", "absorb"}, card.Words(cards))

	require.Len(t, backend.requests, 1)
	assert.Equal(t, ModeExplicit, backend.requests[0].Mode)
	assert.Contains(t, backend.requests[0].Prompt, "abandon, ability, absent, absolute, absorb")
}

func TestGenerateBatchSkipsExcluded(t *testing.T) {
	backend := &echoBackend{}
	g := New(testCatalog(), backend, nil)

	exclude := []string{"abandon", "ability", "absent", "absolute", "absorb"}
	cards, err := g.GenerateBatch(context.Background(), wordpool.Gaokao, 5, exclude)
	require.NoError(t, err)
	assert.Equal(t, []string{"abstract", "academic"}, card.Words(cards))
}

func TestPlanOpenEndedWhenPoolExhausted(t *testing.T) {
	g := New(testCatalog(), &echoBackend{}, nil)

	exclude := testCatalog().Lookup(wordpool.Gaokao)
	req := g.Plan(wordpool.Gaokao, 5, exclude)

	assert.Equal(t, ModeOpenEnded, req.Mode)
	assert.Empty(t, req.Words)
	assert.Equal(t, 5, req.Count)
	assert.Equal(t, exclude, req.Avoid)
	assert.Contains(t, req.Prompt, "Generate 5 NEW")
	assert.Contains(t, req.Prompt, "abandon")
}

func TestPlanOpenEndedForEmptyPool(t *testing.T) {
	g := New(testCatalog(), &echoBackend{}, nil)

	req := g.Plan(wordpool.CET6, 3, nil)
	assert.Equal(t, ModeOpenEnded, req.Mode)
	assert.Empty(t, req.Avoid)
	assert.NotContains(t, req.Prompt, "Do not include")
}

func TestPlanAvoidHintKeepsMostRecent(t *testing.T) {
	g := New(testCatalog(), &echoBackend{}, &Options{AvoidHint: 3})

	exclude := append(testCatalog().Lookup(wordpool.Gaokao), "zeal", "zone", "zoom")
	req := g.Plan(wordpool.Gaokao, 5, exclude)

	assert.Equal(t, ModeOpenEnded, req.Mode)
	assert.Equal(t, []string{"zeal", "zone", "zoom"}, req.Avoid)
}

func TestPlanDefaultAvoidHint(t *testing.T) {
	g := New(wordpool.NewCatalogFrom(nil), &echoBackend{}, nil)

	exclude := make([]string, 80)
	for i := range exclude {
		exclude[i] = fmt.Sprintf("w%02d", i)
	}
	req := g.Plan(wordpool.CET4, 5, exclude)
	require.Len(t, req.Avoid, DefaultAvoidHint)
	assert.Equal(t, "w30", req.Avoid[0])
	assert.Equal(t, "w79", req.Avoid[DefaultAvoidHint-1])
}

func TestGenerateBatchFailures(t *testing.T) {
	invalid := validCard("abandon")
	invalid.Difficulty = "extreme"
	invalidJSON, _ := json.Marshal([]card.StudyCard{validCard("ability"), invalid})

	missing := map[string]string{"word": "absent", "phonetic": "/x/"}
	missingJSON, _ := json.Marshal([]map[string]string{missing})

	tests := []struct {
		name    string
		backend *echoBackend
		target  error
	}{
		{"transport error", &echoBackend{err: errors.New("connection reset")}, nil},
		{"not json", &echoBackend{raw: []byte("sorry, I cannot help")}, card.ErrMalformed},
		{"invalid difficulty", &echoBackend{raw: invalidJSON}, card.ErrInvalidDifficulty},
		{"missing field", &echoBackend{raw: missingJSON}, card.ErrMissingField},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := New(testCatalog(), tt.backend, nil)
			cards, err := g.GenerateBatch(context.Background(), wordpool.Gaokao, 5, nil)
			require.Error(t, err)
			assert.Nil(t, cards)
			assert.ErrorIs(t, err, ErrGenerationFailed)
			if tt.target != nil {
				assert.ErrorIs(t, err, tt.target)
			}
		})
	}
}

func TestGenerateBatchRejectsNonPositiveCount(t *testing.T) {
	backend := &echoBackend{}
	g := New(testCatalog(), backend, nil)

	_, err := g.GenerateBatch(context.Background(), wordpool.Gaokao, 0, nil)
	assert.ErrorIs(t, err, ErrGenerationFailed)
	assert.Empty(t, backend.requests)
}

func TestCardArraySchema(t *testing.T) {
	schema := CardArraySchema()
	require.NotNil(t, schema.Items)
	assert.ElementsMatch(t, card.RequiredFields, schema.Items.Required)
	assert.Len(t, schema.Items.Properties, len(card.RequiredFields))
	assert.Equal(t, []string{"easy", "medium", "hard"}, schema.Items.Properties["difficulty"].Enum)
	assert.True(t, strings.Contains(schema.Items.Properties["mnemonic"].Description, "谐音"))
}

func TestGuardedBackendOpensAfterFailures(t *testing.T) {
	inner := &echoBackend{err: errors.New("503")}
	b := NewGuardedBackend(inner, guardOptions(2))

	req := &Request{Prompt: "x"}
	for i := 0; i < 2; i++ {
		_, err := b.Generate(context.Background(), req)
		require.Error(t, err)
	}

	_, err := b.Generate(context.Background(), req)
	require.Error(t, err)
	assert.Len(t, inner.requests, 2, "open breaker must not reach the backend")
	assert.Equal(t, "echo", b.Name())
}
