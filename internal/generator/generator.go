package generator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"codeberg.org/snonux/linkmemory/internal/card"
	"codeberg.org/snonux/linkmemory/internal/wordpool"
)

// ErrGenerationFailed wraps every transport, breaker or parse failure
var ErrGenerationFailed = errors.New("generation failed")

// DefaultAvoidHint is how many recently seen words the open-ended prompt lists
const DefaultAvoidHint = 50

// Options configures a Generator
type Options struct {
	AvoidHint int // most recent excluded words passed to open-ended prompts
	Logger    *slog.Logger
}

// Generator turns pool words into study cards through a Backend
type Generator struct {
	catalog   *wordpool.Catalog
	backend   Backend
	avoidHint int
	logger    *slog.Logger
}

// New creates a card generator
func New(catalog *wordpool.Catalog, backend Backend, opts *Options) *Generator {
	if opts == nil {
		opts = &Options{}
	}
	g := &Generator{
		catalog:   catalog,
		backend:   backend,
		avoidHint: opts.AvoidHint,
		logger:    opts.Logger,
	}
	if g.avoidHint <= 0 {
		g.avoidHint = DefaultAvoidHint
	}
	if g.logger == nil {
		g.logger = slog.Default()
	}
	return g
}

// Plan decides which words a batch covers without calling the backend.
// Words come from the pool in catalog order; an exhausted pool yields an
// open-ended request carrying the most recent exclusions as a hint.
func (g *Generator) Plan(category wordpool.Category, count int, exclude []string) *Request {
	remaining := wordpool.Remaining(g.catalog.Lookup(category), exclude)

	if len(remaining) > 0 {
		words := remaining[:min(count, len(remaining))]
		return &Request{
			Category: category,
			Mode:     ModeExplicit,
			Words:    words,
			Count:    len(words),
			Prompt:   BuildExplicitPrompt(category, words),
		}
	}

	avoid := exclude
	if len(avoid) > g.avoidHint {
		avoid = avoid[len(avoid)-g.avoidHint:]
	}
	avoid = append([]string(nil), avoid...)
	return &Request{
		Category: category,
		Mode:     ModeOpenEnded,
		Count:    count,
		Avoid:    avoid,
		Prompt:   BuildOpenEndedPrompt(category, count, avoid),
	}
}

// GenerateBatch produces up to count new cards for category, skipping the
// words in exclude. Either the whole batch validates or an error wrapping
// ErrGenerationFailed is returned with no cards.
func (g *Generator) GenerateBatch(ctx context.Context, category wordpool.Category, count int, exclude []string) ([]card.StudyCard, error) {
	if count <= 0 {
		return nil, fmt.Errorf("%w: batch size must be positive, got %d", ErrGenerationFailed, count)
	}

	req := g.Plan(category, count, exclude)
	logger := g.logger.With("backend", g.backend.Name(), "category", string(category), "mode", req.Mode.String())
	logger.Debug("requesting card batch", "words", req.Words, "count", req.Count, "excluded", len(exclude))

	start := time.Now()
	data, err := g.backend.Generate(ctx, req)
	if err != nil {
		logger.Error("card batch request failed", "error", err)
		return nil, fmt.Errorf("%w: %s: %w", ErrGenerationFailed, g.backend.Name(), err)
	}

	cards, err := card.ParseBatch(data)
	if err != nil {
		logger.Error("card batch rejected", "error", err)
		return nil, fmt.Errorf("%w: %w", ErrGenerationFailed, err)
	}

	logger.Info("card batch generated", "cards", len(cards), "duration_ms", time.Since(start).Milliseconds())
	return cards, nil
}
